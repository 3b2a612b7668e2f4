package analysis

import (
	"context"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/contract-cli/internal/llm"
	"github.com/sells-group/contract-cli/internal/model"
	"github.com/sells-group/contract-cli/internal/resilience"
)

// Completer issues one completion against the prioritized backends.
// *llm.Router satisfies it.
type Completer interface {
	Complete(ctx context.Context, req llm.Request) (*llm.Response, error)
}

// maxAnalysisTokens bounds the completion length of a single analysis call.
const maxAnalysisTokens = 2000

const summarySystemPrompt = `You are an expert in employment contract analysis. Analyze the provided contract in %s. Focus particularly on these areas: %s. Return the response wrapped in ` + "```json\n...\n```" + ` code blocks as a valid JSON object with the following structure:
` + "```json" + `
{
  "structured_analysis": {
%s    "overall_score": integer|null
  },
  "summary": {
    "executive_summary": "string",
    "key_points": "string",
    "potential_issues": "string",
    "recommendations": "string"
  }
}
` + "```" + `
Each area entry has the shape {"content": "string", "score": integer|null} with scores from 1 to 10. Ensure the response is valid JSON and contains all required fields, even if empty.`

// SummaryAgent produces the structured per-area analysis and narrative
// summary of a contract.
type SummaryAgent struct {
	router Completer
}

// NewSummaryAgent creates a summary agent over the given backend router.
func NewSummaryAgent(router Completer) *SummaryAgent {
	return &SummaryAgent{router: router}
}

// Analyze runs one structured analysis of contractText, steering the
// prompt toward focusAreas. A terminal backend failure or cancellation is
// returned as an error; exhausted transient failures degrade to the fixed
// fallback record.
func (a *SummaryAgent) Analyze(ctx context.Context, contractText string, focusAreas []string, language string) (*model.AnalysisRecord, error) {
	if strings.TrimSpace(contractText) == "" {
		return nil, eris.New("summary: contract text is empty")
	}
	if language == "" {
		language = "en"
	}
	if len(focusAreas) == 0 {
		focusAreas = model.Areas[:5]
	}

	var areaLines strings.Builder
	for _, area := range model.Areas {
		fmt.Fprintf(&areaLines, "    %q: {\"content\": \"string\", \"score\": integer|null},\n", area)
	}
	system := fmt.Sprintf(summarySystemPrompt, language, strings.Join(focusAreas, ", "), areaLines.String())

	resp, err := a.router.Complete(ctx, llm.Request{
		Messages: []llm.Message{
			{Role: "system", Content: system},
			{Role: "user", Content: "Contract: " + contractText},
		},
		MaxTokens: maxAnalysisTokens,
	})
	if err != nil {
		if ctx.Err() != nil || resilience.IsTerminalStatus(err) {
			return nil, eris.Wrap(err, "summary: analyze")
		}
		zap.L().Warn("summary analysis degraded to fallback", zap.Error(err))
		return FallbackRecord(), nil
	}

	return Parse(resp.Text), nil
}

// FallbackRecord is the deterministic record returned when every backend
// attempt failed transiently.
func FallbackRecord() *model.AnalysisRecord {
	return NewBuilder().SetSummary(model.Summary{
		ExecutiveSummary: "Unable to generate summary due to API error.",
		KeyPoints:        "No key points available.",
		PotentialIssues:  "No issues identified due to API error.",
		Recommendations:  "Please try again later or contact support.",
	}).Record()
}
