package analysis

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/contract-cli/internal/model"
)

func TestEvaluateAggregatesShadowAndRecord(t *testing.T) {
	shadow := &model.ShadowResult{
		Topics: []model.TopicAnalysis{
			{Topic: "termination clause", Problems: "vague notice", Solutions: "define notice days", Score: model.ScorePtr(4)},
			{Topic: "liability", Problems: "unlimited exposure", Solutions: "cap liability", Score: model.ScorePtr(3)},
		},
	}
	rec := model.NewAnalysisRecord()
	rec.Fields["termination"] = model.ContractField{Content: "Notice period is a concern here.", Score: model.ScorePtr(6)}
	rec.Fields["benefits"] = model.ContractField{Content: "We recommend adding health coverage.", Score: model.ScorePtr(8)}

	eval := Evaluate(shadow, rec, nil)
	require.NotNil(t, eval)

	term := eval.Areas["termination"]
	assert.Equal(t, 6, term.Score, "record score should win over lower shadow score")
	assert.Contains(t, term.Issues, "vague notice")
	assert.Contains(t, term.Issues, "Notice period is a concern here.")

	liab := eval.Areas["liability"]
	assert.Equal(t, 3, liab.Score)
	assert.Contains(t, liab.Recommendations, "cap liability")

	ben := eval.Areas["benefits"]
	assert.Equal(t, 8, ben.Score)
	assert.Contains(t, ben.Recommendations, "We recommend adding health coverage.")

	assert.NotEmpty(t, eval.Recommendations)
	assert.LessOrEqual(t, len(eval.Recommendations), 5)
	assert.Greater(t, eval.Scores.RiskLevel, 0.0)
}

func TestEvaluateEmptyInputsDefaultOverall(t *testing.T) {
	eval := Evaluate(&model.ShadowResult{}, model.NewAnalysisRecord(), nil)
	assert.Equal(t, 5.0, eval.OverallScore)
	assert.Equal(t, 0.0, eval.Scores.Completeness)
	assert.Empty(t, eval.Areas)
}

func TestEvaluateNilInputs(t *testing.T) {
	eval := Evaluate(nil, nil, nil)
	require.NotNil(t, eval)
	assert.Equal(t, 5.0, eval.OverallScore)
}

func TestEvaluateFocalPointsAdded(t *testing.T) {
	rec := model.NewAnalysisRecord()
	rec.Fields["vacation"] = model.ContractField{Content: "25 days", Score: model.ScorePtr(9)}

	eval := Evaluate(nil, rec, []string{"vacation"})
	v, ok := eval.Areas["vacation"]
	require.True(t, ok, "focal point area should be evaluated")
	assert.Equal(t, 9, v.Score)
}

func TestMergeReport(t *testing.T) {
	rec := model.NewAnalysisRecord()
	rec.Summary = model.Summary{ExecutiveSummary: "ok"}
	eval := Evaluate(nil, rec, nil)

	report := MergeReport("user-1", "offer.pdf", "en", rec, eval)
	require.NotNil(t, report)
	assert.NotEmpty(t, report.Metadata.AnalysisID)
	assert.Equal(t, "user-1", report.Metadata.UserID)
	assert.Equal(t, "offer.pdf", report.Metadata.ContractName)
	assert.Same(t, rec, report.StructuredAnalysis)
	assert.Equal(t, "ok", report.Summary.ExecutiveSummary)
	assert.Same(t, eval, report.Evaluation)
	assert.False(t, report.Metadata.GeneratedAt.IsZero())
}
