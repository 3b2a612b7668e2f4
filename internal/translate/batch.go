package translate

// tokenCost approximates the token footprint of one unit's text.
func tokenCost(text string) int {
	return len(text)/4 + 1
}

// PackBatches groups units into batches bounded by maxTokens. A unit is
// never split: a new batch starts whenever adding the next unit would
// exceed the budget, and a single oversized unit gets a batch of its own.
func PackBatches(units []Unit, maxTokens int) [][]Unit {
	if len(units) == 0 {
		return nil
	}
	if maxTokens <= 0 {
		return [][]Unit{units}
	}

	var batches [][]Unit
	var current []Unit
	budget := 0
	for _, u := range units {
		cost := tokenCost(u.Text)
		if len(current) > 0 && budget+cost > maxTokens {
			batches = append(batches, current)
			current = nil
			budget = 0
		}
		current = append(current, u)
		budget += cost
	}
	return append(batches, current)
}
