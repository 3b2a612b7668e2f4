package analysis

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/sells-group/contract-cli/internal/model"
)

// Tagged plain-text conventions. Two variants appear in the wild: block
// fields delimited by CONTENT:/SCORE:/END_FIELD, and single lines of the
// form "field_name: analysis text (Punteggio: X)".
const (
	contentTag  = "CONTENT:"
	scoreTag    = "SCORE:"
	endFieldTag = "END_FIELD"
	scoreParen  = "(Punteggio:"
)

// blockFieldRes matches one CONTENT/SCORE/END_FIELD block per area.
var blockFieldRes = func() map[string]*regexp.Regexp {
	res := make(map[string]*regexp.Regexp, len(model.Areas))
	for _, area := range model.Areas {
		res[area] = regexp.MustCompile(
			`(?is)\b` + regexp.QuoteMeta(area) + `\b\s*:?\s*` +
				contentTag + `\s*(.*?)\s*(?:` + scoreTag + `\s*(\S+)\s*)?` + endFieldTag,
		)
	}
	return res
}()

// HasTaggedFields reports whether text uses one of the tagged plain-text
// conventions instead of JSON.
func HasTaggedFields(text string) bool {
	if strings.Contains(text, contentTag) && strings.Contains(text, endFieldTag) {
		return true
	}
	return strings.Contains(text, scoreParen)
}

// ParseTagged extracts a record from the tagged plain-text conventions.
// Fields that cannot be found stay defaulted; scores that are missing,
// non-numeric or out of range become null.
func ParseTagged(text string) *model.AnalysisRecord {
	b := NewBuilder()

	if strings.Contains(text, endFieldTag) {
		parseBlockFields(b, text)
	}
	parseScoredLines(b, text)

	return b.Record()
}

func parseBlockFields(b *Builder, text string) {
	for area, re := range blockFieldRes {
		m := re.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		b.SetField(area, strings.TrimSpace(m[1]), parseScoreToken(m[2]))
	}
}

// parseScoredLines handles the line convention: everything before an
// "EXECUTIVE SUMMARY:" marker is scanned for "name: text (Punteggio: X)"
// lines and an "overall_score: X" line; everything after it is split into
// the four narrative summary sections.
func parseScoredLines(b *Builder, text string) {
	structured, narrative, hasNarrative := strings.Cut(text, "EXECUTIVE SUMMARY:")

	for _, line := range strings.Split(structured, "\n") {
		key, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		key = strings.ReplaceAll(strings.ToLower(strings.TrimSpace(key)), " ", "_")
		value = strings.TrimSpace(value)

		if key == "overall_score" {
			b.SetOverallScore(parseScoreToken(value))
			continue
		}
		if !model.KnownArea(key) {
			continue
		}

		content := value
		var score *int
		if idx := strings.LastIndex(value, scoreParen); idx >= 0 {
			score = parseScoreToken(value[idx+len(scoreParen):])
			content = strings.TrimSpace(value[:idx])
		}
		// A block field already parsed for this area wins.
		if b.Record().Field(key).Content == "" {
			b.SetField(key, content, score)
		}
	}

	if !hasNarrative {
		return
	}

	sections := map[string]*strings.Builder{
		"executive_summary": {},
		"key_points":        {},
		"potential_issues":  {},
		"recommendations":   {},
	}
	current := "executive_summary"
	for _, line := range strings.Split(narrative, "\n") {
		switch {
		case strings.Contains(line, "KEY POINTS:"):
			current = "key_points"
		case strings.Contains(line, "POTENTIAL ISSUES:"):
			current = "potential_issues"
		case strings.Contains(line, "RECOMMENDATIONS:"):
			current = "recommendations"
		default:
			sections[current].WriteString(line)
			sections[current].WriteString("\n")
		}
	}

	b.SetSummary(model.Summary{
		ExecutiveSummary: strings.TrimSpace(sections["executive_summary"].String()),
		KeyPoints:        strings.TrimSpace(sections["key_points"].String()),
		PotentialIssues:  strings.TrimSpace(sections["potential_issues"].String()),
		Recommendations:  strings.TrimSpace(sections["recommendations"].String()),
	})
}

// parseScoreToken parses a textual score like "7", "7)" or "null" into a
// validated score pointer.
func parseScoreToken(tok string) *int {
	tok = strings.Trim(strings.TrimSpace(tok), " )")
	if tok == "" || strings.EqualFold(tok, "null") {
		return nil
	}
	n, err := strconv.Atoi(tok)
	if err != nil || !model.ValidScore(n) {
		return nil
	}
	return model.ScorePtr(n)
}
