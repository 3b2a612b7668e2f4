package translate

import (
	"reflect"
	"testing"
)

func TestCollectDeterministicOrder(t *testing.T) {
	in := map[string]any{
		"y": map[string]any{"z": "world"},
		"x": "hello",
		"n": 42,
	}
	units := Collect(in, nil)

	want := []Unit{
		{Path: []string{"x"}, Text: "hello"},
		{Path: []string{"y", "z"}, Text: "world"},
	}
	if !reflect.DeepEqual(units, want) {
		t.Errorf("got %+v, want %+v", units, want)
	}
}

func TestCollectSkipsExcludedAndNonStrings(t *testing.T) {
	in := map[string]any{
		"status": "success",
		"error":  "none",
		"data": map[string]any{
			"text":  "translate me",
			"count": float64(3),
			"flag":  true,
			"empty": "",
		},
	}
	units := Collect(in, map[string]bool{"status": true, "error": true})

	if len(units) != 1 {
		t.Fatalf("expected 1 unit, got %+v", units)
	}
	if units[0].Text != "translate me" {
		t.Errorf("wrong unit: %+v", units[0])
	}
}

func TestCollectSequences(t *testing.T) {
	in := map[string]any{
		"topics": []any{
			map[string]any{"topic": "pay"},
			map[string]any{"topic": "leave"},
		},
	}
	units := Collect(in, nil)

	if len(units) != 2 {
		t.Fatalf("expected 2 units, got %+v", units)
	}
	if got := units[1].Path; !reflect.DeepEqual(got, []string{"topics", "1", "topic"}) {
		t.Errorf("path: %v", got)
	}
}

func TestReconstructShapeIdentical(t *testing.T) {
	in := map[string]any{
		"x":      "hello",
		"y":      map[string]any{"z": "world"},
		"status": "success",
		"nums":   []any{float64(1), "two"},
	}
	translations := map[string]string{
		Unit{Path: []string{"x"}}.Key():         "ciao",
		Unit{Path: []string{"y", "z"}}.Key():    "mondo",
		Unit{Path: []string{"nums", "1"}}.Key(): "due",
		Unit{Path: []string{"status"}}.Key():    "should never apply",
	}

	out := Reconstruct(in, translations, map[string]bool{"status": true}).(map[string]any)

	if out["x"] != "ciao" {
		t.Errorf("x: %v", out["x"])
	}
	if out["y"].(map[string]any)["z"] != "mondo" {
		t.Errorf("y.z: %v", out["y"])
	}
	if out["status"] != "success" {
		t.Errorf("excluded key rewritten: %v", out["status"])
	}
	nums := out["nums"].([]any)
	if nums[0] != float64(1) || nums[1] != "due" {
		t.Errorf("nums: %v", nums)
	}
	if len(out) != len(in) {
		t.Errorf("shape changed: %v", out)
	}
}

func TestReconstructMissingTranslationKeepsOriginal(t *testing.T) {
	in := map[string]any{"a": "one", "b": "two"}
	out := Reconstruct(in, map[string]string{
		Unit{Path: []string{"a"}}.Key(): "uno",
	}, nil).(map[string]any)

	if out["a"] != "uno" || out["b"] != "two" {
		t.Errorf("got %v", out)
	}
}

func TestPackBatchesBudget(t *testing.T) {
	units := []Unit{
		{Path: []string{"a"}, Text: "aaaa"}, // cost 2
		{Path: []string{"b"}, Text: "bbbb"}, // cost 2
		{Path: []string{"c"}, Text: "cccc"}, // cost 2
	}
	batches := PackBatches(units, 4)
	if len(batches) != 2 {
		t.Fatalf("expected 2 batches, got %d", len(batches))
	}
	if len(batches[0]) != 2 || len(batches[1]) != 1 {
		t.Errorf("batch sizes: %d, %d", len(batches[0]), len(batches[1]))
	}
}

func TestPackBatchesNeverSplitsOversizedUnit(t *testing.T) {
	big := Unit{Path: []string{"big"}, Text: string(make([]byte, 100))} // cost 26
	units := []Unit{{Path: []string{"a"}, Text: "aa"}, big, {Path: []string{"b"}, Text: "bb"}}

	batches := PackBatches(units, 10)
	if len(batches) != 3 {
		t.Fatalf("expected 3 batches, got %d", len(batches))
	}
	if len(batches[1]) != 1 || batches[1][0].Key() != big.Key() {
		t.Errorf("oversized unit should be alone: %+v", batches[1])
	}
}

func TestPackBatchesEmpty(t *testing.T) {
	if got := PackBatches(nil, 100); got != nil {
		t.Errorf("expected nil, got %v", got)
	}
}
