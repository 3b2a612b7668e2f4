package model

// TopicAnalysis is one topic entry of a shadow risk analysis.
type TopicAnalysis struct {
	Topic        string `json:"topic"`
	Problems     string `json:"problems"`
	Implications string `json:"implications"`
	Solutions    string `json:"solutions"`
	Score        *int   `json:"score"`
}

// ShadowResult is the outcome of the shadow risk analysis pass: a coarse
// overall score plus per-topic risk notes. It feeds the evaluator and the
// summary prompt but is never shown to the user directly.
type ShadowResult struct {
	OverallScore *int            `json:"overall_score"`
	Topics       []TopicAnalysis `json:"topics"`
	Summary      string          `json:"summary"`
}

// Topic returns the named topic's entry and whether it was present.
func (s *ShadowResult) Topic(name string) (TopicAnalysis, bool) {
	if s == nil {
		return TopicAnalysis{}, false
	}
	for _, t := range s.Topics {
		if t.Topic == name {
			return t, true
		}
	}
	return TopicAnalysis{}, false
}
