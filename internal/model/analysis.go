// Package model defines the structured records produced by the contract
// analysis pipeline and the canonical list of contract topic areas.
package model

import (
	"bytes"
	"encoding/json"

	"github.com/rotisserie/eris"
)

// Areas is the canonical, ordered list of contract topic areas. Order
// matters: it breaks ties in focus-area selection and fixes the key order
// of serialized records.
var Areas = []string{
	"sick_leave",
	"vacation",
	"overtime",
	"termination",
	"confidentiality",
	"non_compete",
	"intellectual_property",
	"governing_law",
	"jurisdiction",
	"dispute_resolution",
	"liability",
	"salary",
	"benefits",
	"work_hours",
	"performance_evaluation",
	"duties",
	"responsibilities",
}

// KnownArea reports whether name is one of the canonical topic areas.
func KnownArea(name string) bool {
	for _, a := range Areas {
		if a == name {
			return true
		}
	}
	return false
}

// MinScore and MaxScore bound every topic and overall score.
const (
	MinScore = 1
	MaxScore = 10
)

// ValidScore reports whether n is within the accepted score range.
func ValidScore(n int) bool {
	return n >= MinScore && n <= MaxScore
}

// ScorePtr returns a pointer to n, for use in optional score fields.
func ScorePtr(n int) *int {
	return &n
}

// ContractField is one analyzed topic of a contract. Score is nil when the
// model produced no score or an invalid one.
type ContractField struct {
	Content string `json:"content"`
	Score   *int   `json:"score"`
}

// Summary is the free-text portion of an analysis record.
type Summary struct {
	ExecutiveSummary string `json:"executive_summary"`
	KeyPoints        string `json:"key_points"`
	PotentialIssues  string `json:"potential_issues"`
	Recommendations  string `json:"recommendations"`
}

// AnalysisRecord is the validated result of one contract analysis: one
// ContractField per canonical area, an optional overall score and a
// summary. Records are structurally complete: every area key is always
// present.
type AnalysisRecord struct {
	Fields       map[string]ContractField
	OverallScore *int
	Summary      Summary
}

// NewAnalysisRecord returns a record with every canonical area defaulted
// to an empty field and no overall score.
func NewAnalysisRecord() *AnalysisRecord {
	fields := make(map[string]ContractField, len(Areas))
	for _, a := range Areas {
		fields[a] = ContractField{}
	}
	return &AnalysisRecord{Fields: fields}
}

// Field returns the named area's field, or an empty field for unknown or
// missing areas.
func (r *AnalysisRecord) Field(area string) ContractField {
	if r == nil || r.Fields == nil {
		return ContractField{}
	}
	return r.Fields[area]
}

// MarshalJSON serializes the record with the area fields at the top level
// in canonical order, followed by overall_score and summary.
func (r *AnalysisRecord) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')

	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)

	writeKey := func(key string) {
		if buf.Len() > 1 {
			buf.WriteByte(',')
		}
		_ = enc.Encode(key)
		// Encode appends a newline; replace it with the separator.
		buf.Truncate(buf.Len() - 1)
		buf.WriteByte(':')
	}

	for _, area := range Areas {
		writeKey(area)
		if err := enc.Encode(r.Field(area)); err != nil {
			return nil, eris.Wrap(err, "model: marshal field")
		}
		buf.Truncate(buf.Len() - 1)
	}

	writeKey("overall_score")
	if err := enc.Encode(r.OverallScore); err != nil {
		return nil, eris.Wrap(err, "model: marshal overall score")
	}
	buf.Truncate(buf.Len() - 1)

	writeKey("summary")
	if err := enc.Encode(r.Summary); err != nil {
		return nil, eris.Wrap(err, "model: marshal summary")
	}
	buf.Truncate(buf.Len() - 1)

	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON accepts the same top-level shape MarshalJSON produces.
// Unknown keys are ignored; missing areas stay defaulted.
func (r *AnalysisRecord) UnmarshalJSON(data []byte) error {
	raw := map[string]json.RawMessage{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return eris.Wrap(err, "model: unmarshal record")
	}

	rec := NewAnalysisRecord()
	for _, area := range Areas {
		v, ok := raw[area]
		if !ok {
			continue
		}
		var f ContractField
		if err := json.Unmarshal(v, &f); err != nil {
			continue
		}
		rec.Fields[area] = f
	}
	if v, ok := raw["overall_score"]; ok {
		_ = json.Unmarshal(v, &rec.OverallScore)
	}
	if v, ok := raw["summary"]; ok {
		_ = json.Unmarshal(v, &rec.Summary)
	}

	*r = *rec
	return nil
}
