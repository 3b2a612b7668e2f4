// Package analysis turns raw generative-model responses into validated
// contract analysis records. It tolerates malformed output: fenced or
// broken JSON is cleaned and repaired, a tagged plain-text convention is
// recognized as a fallback, and unusable responses degrade to a fully
// defaulted record instead of an error.
package analysis

import (
	"regexp"
	"strings"

	"github.com/sells-group/contract-cli/internal/model"
)

// structural keys that may appear in a serialized record, in addition to
// the canonical area names. Used by the repair rules to recognize field
// boundaries.
var recordKeys = func() []string {
	keys := append([]string{}, model.Areas...)
	return append(keys,
		"content", "score", "overall_score",
		"structured_analysis", "summary",
		"executive_summary", "key_points", "potential_issues", "recommendations",
		"topics", "topic", "problems", "implications", "solutions",
	)
}()

// stringKeys are keys whose values are always strings; a bare null there
// is a model artifact, not a real value.
var stringKeys = []string{
	"content",
	"executive_summary", "key_points", "potential_issues", "recommendations",
	"topic", "problems", "implications", "solutions",
}

var (
	quotedStringRe = regexp.MustCompile(`"[^"]*"`)
	objectRe       = regexp.MustCompile(`(?s)\{.*\}`)

	keyAlt       = strings.Join(recordKeys, "|")
	stringKeyAlt = strings.Join(stringKeys, "|")

	missingColonRe = regexp.MustCompile(`("(?:` + keyAlt + `)")\s+(["{\[]|-?\d|null|true|false)`)
	nullContentRe  = regexp.MustCompile(`("(?:` + stringKeyAlt + `)"\s*:\s*)null\b`)
	missingCommaRe = regexp.MustCompile(`(["}\]]|\d|null|true|false)(\s+)("(?:` + keyAlt + `)"\s*:)`)
	trailingComRe  = regexp.MustCompile(`,\s*([}\]])`)
)

// CleanResponse normalizes a raw model response for JSON parsing: strips
// markdown code fences, escapes raw control characters inside quoted
// strings and extracts the outermost JSON object. If no object is found
// the cleaned text is returned as is and will fail the parse.
func CleanResponse(text string) string {
	text = strings.TrimSpace(text)

	if strings.HasPrefix(text, "```json") {
		text = strings.TrimPrefix(text, "```json")
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
	} else if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```")
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
	}
	text = strings.TrimSpace(text)

	text = quotedStringRe.ReplaceAllStringFunc(text, func(s string) string {
		s = strings.ReplaceAll(s, "\n", `\n`)
		s = strings.ReplaceAll(s, "\t", `\t`)
		return strings.ReplaceAll(s, "\r", `\r`)
	})

	if m := objectRe.FindString(text); m != "" {
		return m
	}
	return text
}

// RepairRule is one named, independently testable syntactic repair. Apply
// rewrites the text; it must be a no-op on well-formed JSON.
type RepairRule struct {
	// Name identifies the rule in logs and tests.
	Name string
	// Malformation describes the specific defect the rule targets.
	Malformation string
	Apply        func(string) string
}

// RepairRules are applied in order, once each, before the single re-parse.
var RepairRules = []RepairRule{
	{
		Name:         "missingColonAfterKey",
		Malformation: `a known quoted key directly followed by its value, as in "salary" {...}`,
		Apply: func(s string) string {
			return missingColonRe.ReplaceAllString(s, `$1: $2`)
		},
	},
	{
		Name:         "nullSentinelToEmpty",
		Malformation: `a bare null where a string-typed field requires text, as in "content": null`,
		Apply: func(s string) string {
			return nullContentRe.ReplaceAllString(s, `$1""`)
		},
	},
	{
		Name:         "missingCommaBeforeKey",
		Malformation: `a value abutting the next known quoted key with no comma, as in "score": 5 "vacation":`,
		Apply: func(s string) string {
			return missingCommaRe.ReplaceAllString(s, `$1,$2$3`)
		},
	},
	{
		Name:         "trailingComma",
		Malformation: `a comma immediately before a closing } or ]`,
		Apply: func(s string) string {
			return trailingComRe.ReplaceAllString(s, `$1`)
		},
	},
}

// RepairJSON applies every repair rule in order and returns the rewritten
// text. The caller re-parses exactly once afterwards.
func RepairJSON(text string) string {
	for _, rule := range RepairRules {
		text = rule.Apply(text)
	}
	return text
}
