package analysis

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestEstimateCost(t *testing.T) {
	t.Run("known model", func(t *testing.T) {
		// haiku-4-5: $1/M input, $5/M output
		cost := EstimateCost("claude-haiku-4-5-20251101", 1_000_000, 1_000_000)
		want := decimal.NewFromInt(6)
		if !cost.Equal(want) {
			t.Errorf("expected %s, got %s", want, cost)
		}
	})

	t.Run("matches model family by substring", func(t *testing.T) {
		cost := EstimateCost("claude-sonnet-4-5", 2_000_000, 0)
		want := decimal.NewFromInt(6)
		if !cost.Equal(want) {
			t.Errorf("expected %s, got %s", want, cost)
		}
	})

	t.Run("unknown model estimates zero", func(t *testing.T) {
		cost := EstimateCost("some-future-model", 1_000_000, 1_000_000)
		if !cost.IsZero() {
			t.Errorf("expected zero cost, got %s", cost)
		}
	})

	t.Run("zero tokens zero cost", func(t *testing.T) {
		cost := EstimateCost("claude-haiku-4-5", 0, 0)
		if !cost.IsZero() {
			t.Errorf("expected zero cost, got %s", cost)
		}
	})
}
