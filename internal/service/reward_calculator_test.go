package service

import (
	"errors"
	"math"
	"testing"
)

func TestExcellencePolicy_ComputeReward(t *testing.T) {
	p := DefaultExcellencePolicy()
	cases := []struct {
		name      string
		score     float64
		wantExp   int64
		wantCur   int64
		wantBonus bool
	}{
		{"high", 18, 108, 11, true}, // 90 → ×1.2
		{"mid", 15, 83, 9, true},    // 75 → ×1.1 = 82.5
		{"plain", 11, 55, 6, false},
		{"zero", 0, 0, 0, false},
		{"over max clamps", 25, 120, 12, true},
		{"negative clamps", -3, 0, 0, false},
	}
	for _, c := range cases {
		r, err := p.ComputeReward(100, 10, c.score, 20)
		if err != nil {
			t.Fatalf("%s: %v", c.name, err)
		}
		if r.Experience != c.wantExp || r.Currency != c.wantCur || r.BonusApplied != c.wantBonus {
			t.Fatalf("%s: got %+v, want exp=%d cur=%d bonus=%v", c.name, r, c.wantExp, c.wantCur, c.wantBonus)
		}
	}
}

func TestExcellencePolicy_DefaultMaxScore(t *testing.T) {
	r, err := DefaultExcellencePolicy().ComputeReward(100, 0, 10, 0)
	if err != nil {
		t.Fatalf("ComputeReward: %v", err)
	}
	if r.Percentage != 50 || r.Experience != 50 {
		t.Fatalf("maxScore<=0 should fall back to 20, got %+v", r)
	}
}

func TestExcellencePolicy_InvalidInput(t *testing.T) {
	p := DefaultExcellencePolicy()
	if _, err := p.ComputeReward(-1, 0, 10, 20); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("negative base: err=%v", err)
	}
	if _, err := p.ComputeReward(100, 10, math.NaN(), 20); !errors.Is(err, ErrInvalidScore) {
		t.Fatalf("NaN score: err=%v", err)
	}
}
