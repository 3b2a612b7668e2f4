// Package preference maintains per-user topic-area weights derived from
// the user's questions and selects the focus areas that steer analysis
// prompts.
package preference

import "sort"

// FocusAreas selects areas by descending weight until the cumulative
// weight reaches threshold (a fraction of the total weight) or maxAreas
// is hit, then keeps appending by weight until maxAreas areas are
// selected or none remain. Ties are broken by the canonical declaration
// order so the result is deterministic. A user with no weights gets the
// first maxAreas canonical areas.
func FocusAreas(weights map[string]float64, canonical []string, threshold float64, maxAreas int) []string {
	if maxAreas <= 0 {
		return nil
	}
	if len(weights) == 0 {
		if len(canonical) < maxAreas {
			maxAreas = len(canonical)
		}
		return append([]string{}, canonical[:maxAreas]...)
	}

	rank := make(map[string]int, len(canonical))
	for i, a := range canonical {
		rank[a] = i
	}

	areas := make([]string, 0, len(weights))
	var total float64
	for a, w := range weights {
		areas = append(areas, a)
		total += w
	}
	sort.Slice(areas, func(i, j int) bool {
		wi, wj := weights[areas[i]], weights[areas[j]]
		if wi != wj {
			return wi > wj
		}
		return rank[areas[i]] < rank[areas[j]]
	})

	target := threshold * total
	selected := make([]string, 0, maxAreas)
	var acc float64
	idx := 0
	for ; idx < len(areas) && len(selected) < maxAreas; idx++ {
		selected = append(selected, areas[idx])
		acc += weights[areas[idx]]
		if acc >= target {
			idx++
			break
		}
	}
	// Covering can stop short of the cap; keep filling by weight so a
	// prompt always carries maxAreas focus areas when enough exist.
	for ; idx < len(areas) && len(selected) < maxAreas; idx++ {
		selected = append(selected, areas[idx])
	}

	return selected
}
