package gamification

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/volatiletech/null/v8"
)

func TestAwardXP(t *testing.T) {
	tests := []struct {
		name  string
		score null.Float64
		want  int
	}{
		{name: "no score", score: null.Float64{}, want: 10},
		{name: "0", score: null.Float64From(0), want: 10},
		{name: "50", score: null.Float64From(50), want: 10},
		{name: "79", score: null.Float64From(79), want: 10},
		{name: "79.99", score: null.Float64From(79.99), want: 10},
		{name: "80", score: null.Float64From(80), want: 15},
		{name: "85", score: null.Float64From(85), want: 15},
		{name: "89", score: null.Float64From(89), want: 15},
		{name: "90", score: null.Float64From(90), want: 20},
		{name: "95", score: null.Float64From(95), want: 20},
		{name: "100", score: null.Float64From(100), want: 20},
		{name: "above range", score: null.Float64From(250), want: 20},
		{name: "below range", score: null.Float64From(-5), want: 10},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, AwardXP(tt.score))
		})
	}
}

func TestComputeLevel(t *testing.T) {
	tests := []struct {
		xp   int
		want int
	}{
		{xp: 0, want: 1},
		{xp: 20, want: 1},
		{xp: 99, want: 1},
		{xp: 100, want: 2},
		{xp: 199, want: 2},
		{xp: 250, want: 3},
		{xp: 1000, want: 11},
		{xp: -10, want: 1},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ComputeLevel(tt.xp), "ComputeLevel(%d)", tt.xp)
	}

	prev := ComputeLevel(0)
	for xp := 1; xp <= 5000; xp++ {
		lvl := ComputeLevel(xp)
		if lvl < prev {
			t.Fatalf("ComputeLevel(%d) = %d < ComputeLevel(%d) = %d", xp, lvl, xp-1, prev)
		}
		prev = lvl
	}
}
