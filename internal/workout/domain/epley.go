package domain

import "math"

// EstimateOneRepMax applies the Epley estimate: weight * (1 + reps/30).
// A single rep is the lift itself. Non-positive input yields zero so a
// malformed set can never register as a personal record.
func EstimateOneRepMax(weightKg float64, reps int) float64 {
	if weightKg <= 0 || reps <= 0 {
		return 0
	}
	if reps == 1 {
		return weightKg
	}
	estimate := weightKg * (1 + float64(reps)/30)
	return math.Round(estimate*100) / 100
}
