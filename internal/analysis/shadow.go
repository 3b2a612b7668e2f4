package analysis

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/contract-cli/internal/llm"
	"github.com/sells-group/contract-cli/internal/model"
	"github.com/sells-group/contract-cli/internal/resilience"
)

const shadowSystemPrompt = `You are an expert legal consultant analyzing employment contracts in %s. Your goal is to identify ambiguities, unfavorable clauses, and potential risks, focusing on: %s. Pay close attention to unclear definitions, broad liability exclusions, ambiguous termination clauses, payment terms, penalties, intellectual property, governing law, jurisdiction, and discrepancies. Return the response wrapped in ` + "```json\n...\n```" + ` code blocks as a valid JSON object with the following structure:
` + "```json" + `
{
  "overall_score": integer|null,
  "topics": [
    {
      "topic": "string",
      "problems": "string",
      "implications": "string",
      "solutions": "string",
      "score": integer|null
    }
  ],
  "summary": "string"
}
` + "```" + `
For each topic:
- Identify the main clause or term.
- Explain problems or ambiguities.
- Describe potential implications.
- Suggest solutions or improvements.
- Assign a clarity and fairness score (1-10).
Provide a concise summary of critical points. Respond in %s, be polite, and ensure the JSON is valid.`

// ShadowAgent runs the risk-oriented shadow analysis of a contract.
type ShadowAgent struct {
	router Completer
}

// NewShadowAgent creates a shadow agent over the given backend router.
func NewShadowAgent(router Completer) *ShadowAgent {
	return &ShadowAgent{router: router}
}

// Analyze runs one shadow analysis. Terminal backend failures and
// cancellation are returned as errors; exhausted transient failures
// degrade to the fixed fallback result.
func (a *ShadowAgent) Analyze(ctx context.Context, contractText string, focusAreas []string, language string) (*model.ShadowResult, error) {
	if strings.TrimSpace(contractText) == "" {
		return nil, eris.New("shadow: contract text is empty")
	}
	if language == "" {
		language = "en"
	}
	if len(focusAreas) == 0 {
		focusAreas = model.Areas[:5]
	}

	system := fmt.Sprintf(shadowSystemPrompt, language, strings.Join(focusAreas, ", "), language)

	resp, err := a.router.Complete(ctx, llm.Request{
		Messages: []llm.Message{
			{Role: "system", Content: system},
			{Role: "user", Content: "Contract: " + contractText},
		},
		MaxTokens: maxAnalysisTokens,
	})
	if err != nil {
		if ctx.Err() != nil || resilience.IsTerminalStatus(err) {
			return nil, eris.Wrap(err, "shadow: analyze")
		}
		zap.L().Warn("shadow analysis degraded to fallback", zap.Error(err))
		return FallbackShadowResult(), nil
	}

	return ParseShadow(resp.Text), nil
}

// FallbackShadowResult is the deterministic result returned when every
// backend attempt failed transiently.
func FallbackShadowResult() *model.ShadowResult {
	return &model.ShadowResult{
		Topics:  []model.TopicAnalysis{},
		Summary: "Unable to generate shadow analysis due to API error. Please try again later.",
	}
}

// ParseShadow converts a raw model response into a ShadowResult, using
// the same clean-then-repair pipeline as the record parser. Unusable
// responses come back as an empty result, never an error.
func ParseShadow(raw string) *model.ShadowResult {
	cleaned := CleanResponse(raw)

	doc, ok := parseShadowDoc(cleaned)
	if !ok {
		doc, ok = parseShadowDoc(RepairJSON(cleaned))
	}
	if !ok {
		zap.L().Warn("no structure found in shadow response", zap.String("raw", raw))
		return &model.ShadowResult{Topics: []model.TopicAnalysis{}}
	}

	res := &model.ShadowResult{
		OverallScore: CoerceScore(doc["overall_score"]),
		Topics:       []model.TopicAnalysis{},
	}
	if s, ok := doc["summary"].(string); ok {
		res.Summary = s
	}

	topics, _ := doc["topics"].([]any)
	for _, t := range topics {
		raw, ok := t.(map[string]any)
		if !ok {
			continue
		}
		str := func(key string) string {
			s, _ := raw[key].(string)
			return s
		}
		res.Topics = append(res.Topics, model.TopicAnalysis{
			Topic:        str("topic"),
			Problems:     str("problems"),
			Implications: str("implications"),
			Solutions:    str("solutions"),
			Score:        CoerceScore(raw["score"]),
		})
	}
	return res
}

func parseShadowDoc(text string) (map[string]any, bool) {
	var doc map[string]any
	if err := json.Unmarshal([]byte(text), &doc); err != nil {
		return nil, false
	}
	return doc, true
}
