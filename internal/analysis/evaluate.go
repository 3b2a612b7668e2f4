package analysis

import (
	"math"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/sells-group/contract-cli/internal/model"
)

// evaluationAreas are the base areas the evaluator always scores. User
// focal points are added on top.
var evaluationAreas = []string{
	"liability",
	"work_hours",
	"compensation",
	"termination",
	"confidentiality",
	"non_compete",
	"benefits",
	"intellectual_property",
	"dispute_resolution",
}

// maxRecommendations caps the flattened recommendation list.
const maxRecommendations = 5

type areaAggregate struct {
	score           int
	issues          []string
	recommendations []string
}

// Evaluate aggregates the shadow analysis and the structured record into
// per-area scores, issues and recommendations plus derived contract-level
// metrics. It is a pure function: no model calls, no storage.
func Evaluate(shadow *model.ShadowResult, record *model.AnalysisRecord, focalPoints []string) *model.Evaluation {
	// order keeps the flattened recommendation list deterministic.
	order := append([]string{}, evaluationAreas...)
	areas := make(map[string]*areaAggregate, len(evaluationAreas)+len(focalPoints))
	for _, a := range evaluationAreas {
		areas[a] = &areaAggregate{}
	}
	for _, p := range focalPoints {
		if _, ok := areas[p]; !ok {
			areas[p] = &areaAggregate{}
			order = append(order, p)
		}
	}

	if shadow != nil {
		for _, t := range shadow.Topics {
			topic := strings.ToLower(t.Topic)
			score := 0
			if t.Score != nil {
				score = *t.Score
			}
			for name, agg := range areas {
				if !strings.Contains(topic, name) && !strings.Contains(name, topic) {
					continue
				}
				if score > agg.score {
					agg.score = score
				}
				if t.Problems != "" {
					agg.issues = append(agg.issues, t.Problems)
				}
				if t.Solutions != "" {
					agg.recommendations = append(agg.recommendations, t.Solutions)
				}
			}
		}
	}

	if record != nil {
		for name, agg := range areas {
			f := record.Field(name)
			if f.Score != nil && *f.Score > agg.score {
				agg.score = *f.Score
			}
			lower := strings.ToLower(f.Content)
			if strings.Contains(lower, "issue") || strings.Contains(lower, "concern") {
				agg.issues = append(agg.issues, f.Content)
			}
			if strings.Contains(lower, "recommend") || strings.Contains(lower, "suggest") {
				agg.recommendations = append(agg.recommendations, f.Content)
			}
		}
	}

	var totalScore, scoreCount, highScores, issueCount int
	for _, agg := range areas {
		if agg.score > 0 {
			totalScore += agg.score
			scoreCount++
		}
		if agg.score >= 8 {
			highScores++
		}
		issueCount += len(agg.issues)
	}

	overall := 5.0
	if scoreCount > 0 {
		overall = float64(totalScore) / float64(scoreCount)
	}
	n := float64(len(areas))

	eval := &model.Evaluation{
		OverallScore: round1(overall),
		Scores: model.EvaluationScores{
			Clarity:      round1(float64(highScores) / n * 10),
			Completeness: round1(float64(scoreCount) / n * 10),
			RiskLevel:    round1(float64(issueCount) / n * 10),
			Fairness:     round1(overall),
		},
		Areas: make(map[string]model.AreaEvaluation),
	}

	for _, name := range order {
		agg := areas[name]
		if agg.score > 0 || len(agg.issues) > 0 {
			eval.Areas[name] = model.AreaEvaluation{
				Score:           agg.score,
				Issues:          agg.issues,
				Recommendations: agg.recommendations,
			}
		}
		for _, rec := range agg.recommendations {
			if len(eval.Recommendations) < maxRecommendations {
				eval.Recommendations = append(eval.Recommendations, rec)
			}
		}
	}

	return eval
}

func round1(f float64) float64 {
	return math.Round(f*10) / 10
}

// MergeReport assembles the full analysis report returned to callers.
func MergeReport(userID, contractName, language string, record *model.AnalysisRecord, eval *model.Evaluation) *model.Report {
	return &model.Report{
		Metadata: model.ReportMetadata{
			AnalysisID:   uuid.NewString(),
			UserID:       userID,
			ContractName: contractName,
			Language:     language,
			GeneratedAt:  time.Now().UTC(),
		},
		StructuredAnalysis: record,
		Summary:            record.Summary,
		Evaluation:         eval,
	}
}
