package match_test

import (
	"math"
	"testing"

	"corella/internal/match"
)

func TestRatio(t *testing.T) {
	cases := []struct {
		a, b string
		want float64
	}{
		{"ACME", "ACME", 1},
		{"", "", 1},
		{"ACME", "", 0},
		{"", "ACME", 0},
		{"ABC", "ABD", 4.0 / 6.0},
		{"ABC", "XYZ", 0},
		{"ACME TRADNG", "ACME TRADING", 22.0 / 23.0},
	}
	for _, tc := range cases {
		got := match.Ratio(tc.a, tc.b)
		if math.Abs(got-tc.want) > 1e-9 {
			t.Fatalf("Ratio(%q, %q) = %v, want %v", tc.a, tc.b, got, tc.want)
		}
	}
}

func TestRatioIsSymmetric(t *testing.T) {
	pairs := [][2]string{
		{"ACME TRADING", "ACME HOLDINGS"},
		{"SHORT", "A MUCH LONGER NAME"},
	}
	for _, pair := range pairs {
		ab := match.Ratio(pair[0], pair[1])
		ba := match.Ratio(pair[1], pair[0])
		if ab != ba {
			t.Fatalf("Ratio(%q, %q) = %v but reversed = %v", pair[0], pair[1], ab, ba)
		}
	}
}
