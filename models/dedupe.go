package models

// dedupe drops rows equal to an earlier row, keeping first occurrences in order.
func dedupe[T comparable](rows []T) []T {
	seen := make(map[T]struct{}, len(rows))
	out := make([]T, 0, len(rows))
	for _, r := range rows {
		if _, ok := seen[r]; ok {
			continue
		}
		seen[r] = struct{}{}
		out = append(out, r)
	}
	return out
}

// without removes one occurrence of each row of drop from rows, keeping order.
func without[T comparable](rows, drop []T) []T {
	pending := make(map[T]int, len(drop))
	for _, d := range drop {
		pending[d]++
	}
	out := make([]T, 0, len(rows))
	for _, r := range rows {
		if pending[r] > 0 {
			pending[r]--
			continue
		}
		out = append(out, r)
	}
	return out
}
