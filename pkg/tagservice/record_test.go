package tagservice

import "testing"

func TestRound2(t *testing.T) {
	tests := []struct {
		in   float64
		want float64
	}{
		{10.126, 10.13},
		{20.004, 20.0},
		{0.125, 0.12}, // exact tie, to even
		{0.375, 0.38}, // exact tie, to even
		{2.675, 2.67}, // stored just below the tie
		{1.005, 1.0},  // stored just below the tie
		{-3.14159, -3.14},
		{123.456789, 123.46},
		{42, 42},
	}

	for _, tc := range tests {
		if got := Round2(tc.in); got != tc.want {
			t.Errorf("Round2(%v) = %v, want %v", tc.in, got, tc.want)
		}
	}
}
