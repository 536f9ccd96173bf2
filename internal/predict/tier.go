package predict

import "strings"

// Tier buckets a probability into 1..5 at 0.2 steps. Values below zero
// clamp to 1 and values at or above 0.8 saturate at 5.
func Tier(p float64) int {
	switch {
	case p < 0.2:
		return 1
	case p < 0.4:
		return 2
	case p < 0.6:
		return 3
	case p < 0.8:
		return 4
	default:
		return 5
	}
}

// Fire renders a tier as that many fire emoji.
func Fire(tier int) string {
	return strings.Repeat("🔥", max(tier, 0))
}
