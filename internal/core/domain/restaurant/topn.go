package restaurant

import "sort"

const (
	// DefaultLimit is used when a query supplies no limit.
	DefaultLimit = 10
	// MaxLimit caps the number of results a single top-N query may return.
	MaxLimit = 100
)

// ClampLimit normalizes a requested result limit into [1, MaxLimit],
// substituting DefaultLimit when the caller supplied nothing usable.
func ClampLimit(limit int) int {
	if limit <= 0 {
		return DefaultLimit
	}
	if limit > MaxLimit {
		return MaxLimit
	}
	return limit
}

// TopN reduces a candidate set (already filtered by cuisine and/or region by
// the store's secondary access path) to the query response: entries rated
// below minRating are dropped, the remainder is sorted by rating descending
// with ties keeping the store's return order, and the result is truncated to
// limit entries.
func TopN(items []Restaurant, minRating float64, limit int) []Projection {
	filtered := make([]Restaurant, 0, len(items))
	for _, item := range items {
		if item.Rating >= minRating {
			filtered = append(filtered, item)
		}
	}

	sort.SliceStable(filtered, func(i, j int) bool {
		return filtered[i].Rating > filtered[j].Rating
	})

	if len(filtered) > limit {
		filtered = filtered[:limit]
	}

	out := make([]Projection, 0, len(filtered))
	for _, item := range filtered {
		out = append(out, item.Project())
	}
	return out
}
