package analysis

import (
	"encoding/json"

	"go.uber.org/zap"

	"github.com/sells-group/contract-cli/internal/model"
)

// Parse converts a raw model response into a structurally complete
// AnalysisRecord. It tries, in order: a direct JSON parse of the cleaned
// text, one re-parse after the repair rules, and the tagged plain-text
// conventions. If nothing yields a field the record comes back fully
// defaulted with a summary noting the failure; Parse never fails on
// malformed input.
func Parse(raw string) *model.AnalysisRecord {
	cleaned := CleanResponse(raw)

	if rec, ok := parseJSONRecord(cleaned); ok {
		return rec
	}

	repaired := RepairJSON(cleaned)
	if rec, ok := parseJSONRecord(repaired); ok {
		zap.L().Debug("record recovered by JSON repair")
		return rec
	}

	if HasTaggedFields(raw) {
		return ParseTagged(raw)
	}

	zap.L().Warn("no structure found in model response", zap.String("raw", raw))
	return ExtractionFailedRecord()
}

// ExtractionFailedRecord is the defaulted record returned when a response
// yields no structure at all.
func ExtractionFailedRecord() *model.AnalysisRecord {
	return NewBuilder().SetSummary(model.Summary{
		ExecutiveSummary: "Unable to extract a structured analysis from the model response.",
	}).Record()
}

func parseJSONRecord(text string) (*model.AnalysisRecord, bool) {
	var doc map[string]any
	if err := json.Unmarshal([]byte(text), &doc); err != nil {
		return nil, false
	}
	return recordFromDoc(doc), true
}

// recordFromDoc accepts both serialized shapes: the nested
// {"structured_analysis": {...}, "summary": {...}} form and the flat form
// with area keys at the top level.
func recordFromDoc(doc map[string]any) *model.AnalysisRecord {
	fields := doc
	if nested, ok := doc["structured_analysis"].(map[string]any); ok {
		fields = nested
	}

	b := NewBuilder()
	for _, area := range model.Areas {
		raw, ok := fields[area].(map[string]any)
		if !ok {
			continue
		}
		content, _ := raw["content"].(string)
		b.SetField(area, content, CoerceScore(raw["score"]))
	}
	b.SetOverallScore(CoerceScore(fields["overall_score"]))

	if sm, ok := doc["summary"].(map[string]any); ok {
		b.SetSummary(summaryFromDoc(sm))
	}
	return b.Record()
}

func summaryFromDoc(doc map[string]any) model.Summary {
	str := func(key string) string {
		s, _ := doc[key].(string)
		return s
	}
	return model.Summary{
		ExecutiveSummary: str("executive_summary"),
		KeyPoints:        str("key_points"),
		PotentialIssues:  str("potential_issues"),
		Recommendations:  str("recommendations"),
	}
}
