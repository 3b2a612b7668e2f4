package analysis

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestCleanResponseStripsFences(t *testing.T) {
	in := "```json\n{\"salary\": {\"content\": \"ok\", \"score\": 5}}\n```"
	got := CleanResponse(in)
	if !json.Valid([]byte(got)) {
		t.Fatalf("cleaned text is not valid JSON: %s", got)
	}
	if strings.Contains(got, "```") {
		t.Errorf("fence markers not stripped: %s", got)
	}
}

func TestCleanResponseExtractsObject(t *testing.T) {
	in := "Here is the analysis:\n{\"overall_score\": 7}\nLet me know if you need more."
	got := CleanResponse(in)
	if got != `{"overall_score": 7}` {
		t.Errorf("object not extracted, got %q", got)
	}
}

func TestCleanResponseEscapesControlChars(t *testing.T) {
	in := "{\"content\": \"line one\nline two\"}"
	got := CleanResponse(in)
	if !json.Valid([]byte(got)) {
		t.Errorf("control characters not escaped: %q", got)
	}
}

func TestCleanResponseEmpty(t *testing.T) {
	if got := CleanResponse(""); got != "" {
		t.Errorf("expected empty string, got %q", got)
	}
	if got := CleanResponse("   \n\t "); got != "" {
		t.Errorf("expected empty string, got %q", got)
	}
}

// One minimal malformed fixture per repair rule.
func TestRepairRules(t *testing.T) {
	cases := []struct {
		rule string
		in   string
	}{
		{"missingColonAfterKey", `{"salary" {"content": "ok", "score": 5}}`},
		{"missingCommaBeforeKey", `{"salary": {"content": "a", "score": 5} "vacation": {"content": "b", "score": 4}}`},
		{"trailingComma", `{"salary": {"content": "ok", "score": 5},}`},
	}

	for _, tc := range cases {
		t.Run(tc.rule, func(t *testing.T) {
			var rule *RepairRule
			for i := range RepairRules {
				if RepairRules[i].Name == tc.rule {
					rule = &RepairRules[i]
				}
			}
			if rule == nil {
				t.Fatalf("rule %s not registered", tc.rule)
			}
			if json.Valid([]byte(tc.in)) {
				t.Fatalf("fixture already valid: %s", tc.in)
			}
			got := rule.Apply(tc.in)
			if !json.Valid([]byte(got)) {
				t.Errorf("rule did not repair fixture: %s -> %s", tc.in, got)
			}
		})
	}
}

// null is valid JSON but the schema wants text, so this rule is exercised
// on its output rather than through the invalid-fixture grid above.
func TestRepairRuleNullSentinelToEmpty(t *testing.T) {
	var rule *RepairRule
	for i := range RepairRules {
		if RepairRules[i].Name == "nullSentinelToEmpty" {
			rule = &RepairRules[i]
		}
	}
	if rule == nil {
		t.Fatal("rule nullSentinelToEmpty not registered")
	}

	in := `{"salary": {"content": null, "score": 5}}`
	want := `{"salary": {"content": "", "score": 5}}`
	if got := rule.Apply(in); got != want {
		t.Errorf("null not replaced: got %s, want %s", got, want)
	}
}

func TestRepairRulesNoOpOnValidJSON(t *testing.T) {
	valid := `{"salary": {"content": "ok", "score": 5}, "overall_score": 7}`
	for _, rule := range RepairRules {
		if got := rule.Apply(valid); got != valid {
			t.Errorf("rule %s rewrote valid JSON: %s", rule.Name, got)
		}
	}
}

func TestRepairJSONCombined(t *testing.T) {
	in := `{"salary": {"content": null, "score": 5} "vacation": {"content": "b", "score": 4},}`
	got := RepairJSON(in)
	if !json.Valid([]byte(got)) {
		t.Errorf("combined repairs failed: %s", got)
	}
}
