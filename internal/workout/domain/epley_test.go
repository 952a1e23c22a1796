package domain

import "testing"

func TestEstimateOneRepMax(t *testing.T) {
	cases := []struct {
		name   string
		weight float64
		reps   int
		want   float64
	}{
		{"single rep is the lift itself", 100, 1, 100},
		{"five reps", 100, 5, 116.67},
		{"ten reps", 80, 10, 106.67},
		{"thirty reps doubles", 60, 30, 120},
		{"zero reps", 100, 0, 0},
		{"negative weight", -10, 5, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := EstimateOneRepMax(tc.weight, tc.reps)
			if got != tc.want {
				t.Fatalf("EstimateOneRepMax(%v, %d) = %v, want %v", tc.weight, tc.reps, got, tc.want)
			}
		})
	}
}
