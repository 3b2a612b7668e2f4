package model

import "time"

// AreaEvaluation aggregates the shadow and summary findings for one
// evaluation area.
type AreaEvaluation struct {
	Score           int      `json:"score"`
	Issues          []string `json:"issues"`
	Recommendations []string `json:"recommendations"`
}

// EvaluationScores are derived quality indicators for a whole contract,
// each on a 0-10 scale.
type EvaluationScores struct {
	Clarity      float64 `json:"clarity"`
	Completeness float64 `json:"completeness"`
	RiskLevel    float64 `json:"risk_level"`
	Fairness     float64 `json:"fairness"`
}

// Evaluation is the aggregated assessment of a contract, built from the
// shadow analysis and the structured summary.
type Evaluation struct {
	OverallScore    float64                   `json:"overall_score"`
	Scores          EvaluationScores          `json:"scores"`
	Areas           map[string]AreaEvaluation `json:"areas"`
	Recommendations []string                  `json:"recommendations"`
}

// ReportMetadata describes one analysis run.
type ReportMetadata struct {
	AnalysisID   string    `json:"analysis_id"`
	UserID       string    `json:"user_id"`
	ContractName string    `json:"contract_name"`
	Language     string    `json:"language"`
	GeneratedAt  time.Time `json:"generated_at"`
}

// Report is the full merged output returned to callers: run metadata, the
// structured per-area analysis, the summary and the aggregated evaluation.
type Report struct {
	Metadata           ReportMetadata  `json:"metadata"`
	StructuredAnalysis *AnalysisRecord `json:"structured_analysis"`
	Summary            Summary         `json:"summary"`
	Evaluation         *Evaluation     `json:"evaluation"`
}
