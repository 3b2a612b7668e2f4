package preference

import (
	"reflect"
	"testing"
)

func TestFocusAreasMinimalCover(t *testing.T) {
	canonical := []string{"a", "b", "c", "d", "e", "f"}
	weights := map[string]float64{"a": 5, "b": 4, "c": 3, "d": 2, "e": 1, "f": 1}

	// total=16, target=9.6; a+b+c = 12 covers it, then the selection
	// fills back up to the cap.
	got := FocusAreas(weights, canonical, 0.6, 5)
	want := []string{"a", "b", "c", "d", "e"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestFocusAreasEmptyWeights(t *testing.T) {
	canonical := []string{"a", "b", "c", "d", "e", "f", "g"}
	got := FocusAreas(nil, canonical, 0.6, 5)
	want := []string{"a", "b", "c", "d", "e"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestFocusAreasCapsAtMax(t *testing.T) {
	canonical := []string{"a", "b", "c", "d", "e", "f", "g"}
	weights := map[string]float64{}
	// Uniform weights: 60% of 7 needs 5 areas (the cap).
	for _, a := range canonical {
		weights[a] = 1
	}
	got := FocusAreas(weights, canonical, 0.6, 5)
	if len(got) != 5 {
		t.Fatalf("expected 5 areas, got %v", got)
	}
	// Uniform ties resolve to canonical order.
	want := []string{"a", "b", "c", "d", "e"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestFocusAreasPadsAfterEarlyCover(t *testing.T) {
	canonical := []string{"a", "b", "c"}
	weights := map[string]float64{"a": 10, "b": 0.5, "c": 0.5}
	// "a" alone covers the threshold; the rest pad the selection.
	got := FocusAreas(weights, canonical, 0.6, 5)
	want := []string{"a", "b", "c"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestFocusAreasTieBreakCanonicalOrder(t *testing.T) {
	canonical := []string{"x", "y", "z"}
	weights := map[string]float64{"z": 2, "y": 2, "x": 2}
	got := FocusAreas(weights, canonical, 0.9, 2)
	want := []string{"x", "y"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}
