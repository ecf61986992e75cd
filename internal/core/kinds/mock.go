package kinds

import (
	"fmt"
	"time"

	"github.com/JonMunkholm/oeedash/internal/core"
)

// Helpers shared by the synthetic row generators.

func pick(src core.Source, values []string) string {
	return values[src.IntN(len(values))]
}

// uniform returns a value in [lo, hi).
func uniform(src core.Source, lo, hi float64) float64 {
	return lo + (hi-lo)*src.Float64()
}

// between returns an integer in [lo, hi].
func between(src core.Source, lo, hi int) int {
	return lo + src.IntN(hi-lo+1)
}

// chance reports true with probability p.
func chance(src core.Source, p float64) bool {
	return src.Float64() < p
}

// recentTime returns a time up to 30 days, 23 hours and 59 minutes before now.
func recentTime(src core.Source, now time.Time) time.Time {
	back := time.Duration(between(src, 0, 30))*24*time.Hour +
		time.Duration(between(src, 0, 23))*time.Hour +
		time.Duration(between(src, 0, 59))*time.Minute
	return now.Add(-back).Truncate(time.Second)
}

// numberedIDs returns prefix001 .. prefixNNN.
func numberedIDs(prefix string, n int) []string {
	ids := make([]string, n)
	for i := range ids {
		ids[i] = fmt.Sprintf("%s%03d", prefix, i+1)
	}
	return ids
}
