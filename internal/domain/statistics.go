package domain

import (
	"sort"
	"strconv"
)

// Statistics summarises the accepted ratings of a collection.
type Statistics struct {
	Count int `json:"count"`

	// Average is nil when no rating has been accepted yet, so that "no data"
	// stays distinct from an average score of zero.
	Average *float64 `json:"average"`
}

// ComputeStatistics derives Statistics from a snapshot of ratings. Only
// ratings whose Allowed flag is explicitly true are counted.
func ComputeStatistics(ratings Ratings) Statistics {
	var (
		count int
		total float64
	)

	for _, r := range ratings {
		if !r.IsAllowed() {
			continue
		}
		count++
		total += r.Score
	}

	stats := Statistics{Count: count}
	if count > 0 {
		avg := total / float64(count)
		stats.Average = &avg
	}
	return stats
}

// Sort orders for rating lists.
const (
	SortScoreAsc  = "score_asc"
	SortScoreDesc = "score_desc"
)

// SortByScore flattens ratings into a slice ordered by score. Unknown orders
// fall back to ascending. Equal scores are ordered by identifier.
func SortByScore(ratings Ratings, order string) []IdentifiedRating {
	list := make([]IdentifiedRating, 0, len(ratings))
	for id, r := range ratings {
		list = append(list, IdentifiedRating{ID: id, Rating: r})
	}

	desc := order == SortScoreDesc
	sort.Slice(list, func(i, j int) bool {
		if list[i].Score != list[j].Score {
			if desc {
				return list[i].Score > list[j].Score
			}
			return list[i].Score < list[j].Score
		}
		return lessIdentifier(list[i].ID, list[j].ID)
	})

	return list
}

// lessIdentifier compares identifiers numerically when both are numeric.
func lessIdentifier(a, b string) bool {
	na, errA := strconv.ParseInt(a, 10, 64)
	nb, errB := strconv.ParseInt(b, 10, 64)
	if errA == nil && errB == nil {
		return na < nb
	}
	return a < b
}
