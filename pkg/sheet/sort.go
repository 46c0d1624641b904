package sheet

import "slices"

// SortLevel is one applied level of the sort chain.
type SortLevel struct {
	Key   string `json:"key"`
	Order Order  `json:"order"`
}

// compareAt compares two records by their values at key. A missing value is
// lower than any present value in both directions.
func compareAt[T Item[T]](a, b Record[T], key string, order Order) int {
	av, aok := a[key]
	bv, bok := b[key]
	switch {
	case !aok && !bok:
		return 0
	case !aok:
		return -1
	case !bok:
		return 1
	}
	c := av.Compare(bv, key)
	if order == Descending {
		switch {
		case c < 0:
			return 1
		case c > 0:
			return -1
		}
	}
	return c
}

// equalUnder reports whether a and b compare equal at every level of chain.
func equalUnder[T Item[T]](a, b Record[T], chain []SortLevel) bool {
	for _, level := range chain {
		if compareAt(a, b, level.Key, level.Order) != 0 {
			return false
		}
	}
	return true
}

// sortRuns stably sorts each maximal run of rows that the chain leaves tied,
// using level alone. Rows never cross run boundaries.
func sortRuns[T Item[T]](rows []Record[T], chain []SortLevel, level SortLevel) {
	cmp := func(a, b Record[T]) int {
		return compareAt(a, b, level.Key, level.Order)
	}
	for start := 0; start < len(rows); {
		end := start + 1
		for end < len(rows) && equalUnder(rows[start], rows[end], chain) {
			end++
		}
		if end-start > 1 {
			slices.SortStableFunc(rows[start:end], cmp)
		}
		start = end
	}
}

// truncateChain drops key and every finer level from chain.
func truncateChain(chain []SortLevel, key string) []SortLevel {
	for i, level := range chain {
		if level.Key == key {
			return chain[:i]
		}
	}
	return chain
}
