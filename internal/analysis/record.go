package analysis

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"github.com/sells-group/contract-cli/internal/model"
)

// Builder assembles a structurally complete AnalysisRecord field by field.
// Every canonical area starts defaulted, so a record is valid no matter
// how few fields the model response yielded. Unknown areas and invalid
// scores are dropped at the door, never stored.
type Builder struct {
	rec *model.AnalysisRecord
}

// NewBuilder returns a builder over a fully defaulted record.
func NewBuilder() *Builder {
	return &Builder{rec: model.NewAnalysisRecord()}
}

// SetField sets one area's content and score. Unknown areas are ignored;
// the score must already be validated (use CoerceScore for raw values).
func (b *Builder) SetField(area, content string, score *int) *Builder {
	if !model.KnownArea(area) {
		return b
	}
	if score != nil && !model.ValidScore(*score) {
		score = nil
	}
	b.rec.Fields[area] = model.ContractField{Content: content, Score: score}
	return b
}

// SetOverallScore sets the record's overall score; out-of-range values
// must have been coerced to nil already.
func (b *Builder) SetOverallScore(score *int) *Builder {
	if score != nil && !model.ValidScore(*score) {
		score = nil
	}
	b.rec.OverallScore = score
	return b
}

// SetSummary sets the narrative summary.
func (b *Builder) SetSummary(s model.Summary) *Builder {
	b.rec.Summary = s
	return b
}

// Record returns the assembled record.
func (b *Builder) Record() *model.AnalysisRecord {
	return b.rec
}

// CoerceScore converts a loosely typed score value (as decoded from JSON)
// into a validated score pointer. Non-numeric values, fractional numbers
// and anything outside the accepted range become nil rather than errors.
func CoerceScore(v any) *int {
	switch n := v.(type) {
	case nil:
		return nil
	case float64:
		if n != math.Trunc(n) {
			return nil
		}
		return validated(int(n))
	case int:
		return validated(n)
	case json.Number:
		i, err := n.Int64()
		if err != nil {
			return nil
		}
		return validated(int(i))
	case string:
		i, err := strconv.Atoi(strings.TrimSpace(n))
		if err != nil {
			return nil
		}
		return validated(i)
	default:
		return nil
	}
}

func validated(n int) *int {
	if !model.ValidScore(n) {
		return nil
	}
	return model.ScorePtr(n)
}
