package policy

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// defaultWeights mirrors the production default table: categories sum to
// 0.80, leaving 0.20 for the reserve.
func defaultWeights() []CategoryWeight {
	return []CategoryWeight{
		{Category: "Healthcare", Weight: dec("0.20")},
		{Category: "Groceries", Weight: dec("0.16")},
		{Category: "Education", Weight: dec("0.16")},
		{Category: "Transport", Weight: dec("0.08")},
		{Category: "Entertainment", Weight: dec("0.04")},
		{Category: "Clothing", Weight: dec("0.04")},
		{Category: "Baby Care", Weight: dec("0.04")},
		{Category: "Pregnancy", Weight: dec("0.08")},
	}
}

func TestNew(t *testing.T) {
	t.Run("valid table", func(t *testing.T) {
		p, err := New(dec("0.20"), defaultWeights())
		require.NoError(t, err)
		assert.True(t, dec("0.20").Equal(p.ReservePct()))
		assert.Equal(t, []string{
			"Healthcare", "Groceries", "Education", "Transport",
			"Entertainment", "Clothing", "Baby Care", "Pregnancy",
		}, p.Categories())
		assert.True(t, dec("0.16").Equal(p.Weight("Groceries")))
	})

	t.Run("sum short of one", func(t *testing.T) {
		_, err := New(dec("0.10"), defaultWeights())
		assert.ErrorIs(t, err, ErrInvalidPolicy)
	})

	t.Run("sum above one", func(t *testing.T) {
		_, err := New(dec("0.30"), defaultWeights())
		assert.ErrorIs(t, err, ErrInvalidPolicy)
	})

	t.Run("within epsilon", func(t *testing.T) {
		_, err := New(dec("0.20005"), defaultWeights())
		assert.NoError(t, err)
	})

	t.Run("just beyond epsilon", func(t *testing.T) {
		_, err := New(dec("0.2002"), defaultWeights())
		assert.ErrorIs(t, err, ErrInvalidPolicy)
	})

	t.Run("negative reserve", func(t *testing.T) {
		_, err := New(dec("-0.20"), defaultWeights())
		assert.ErrorIs(t, err, ErrInvalidPolicy)
	})

	t.Run("negative weight", func(t *testing.T) {
		weights := []CategoryWeight{
			{Category: "Healthcare", Weight: dec("1.20")},
			{Category: "Groceries", Weight: dec("-0.40")},
		}
		_, err := New(dec("0.20"), weights)
		assert.ErrorIs(t, err, ErrInvalidPolicy)
	})

	t.Run("duplicate category", func(t *testing.T) {
		weights := append(defaultWeights(), CategoryWeight{Category: "Healthcare", Weight: dec("0")})
		_, err := New(dec("0.20"), weights)
		assert.ErrorIs(t, err, ErrInvalidPolicy)
	})

	t.Run("empty category name", func(t *testing.T) {
		_, err := New(dec("0.20"), []CategoryWeight{{Category: "", Weight: dec("0.80")}})
		assert.ErrorIs(t, err, ErrInvalidPolicy)
	})

	t.Run("no categories", func(t *testing.T) {
		_, err := New(dec("1.00"), nil)
		assert.ErrorIs(t, err, ErrInvalidPolicy)
	})
}

func TestPolicy_Split(t *testing.T) {
	p, err := New(dec("0.20"), defaultWeights())
	require.NoError(t, err)

	t.Run("reference deposit of 1000.00", func(t *testing.T) {
		alloc := p.Split(100_000)

		assert.Equal(t, int64(20_000), alloc.Reserve)
		assert.Zero(t, alloc.Residual)
		want := map[string]int64{
			"Healthcare":    20_000,
			"Groceries":     16_000,
			"Education":     16_000,
			"Transport":     8_000,
			"Entertainment": 4_000,
			"Clothing":      4_000,
			"Baby Care":     4_000,
			"Pregnancy":     8_000,
		}
		for _, leg := range alloc.Legs {
			assert.Equal(t, want[leg.Category], leg.Amount, leg.Category)
		}
		assert.Equal(t, int64(100_000), alloc.Total())
	})

	t.Run("conservation across awkward amounts", func(t *testing.T) {
		for _, amount := range []int64{1, 2, 3, 7, 13, 99, 101, 333, 12_345, 99_999, 1_000_001} {
			alloc := p.Split(amount)
			assert.Equal(t, amount, alloc.Total(), "amount %d", amount)
			assert.GreaterOrEqual(t, alloc.Reserve, int64(0), "amount %d", amount)
		}
	})

	t.Run("residual folds into reserve", func(t *testing.T) {
		// 13 minor units: rounded legs overshoot, reserve absorbs the drift.
		alloc := p.Split(13)
		assert.Equal(t, int64(13), alloc.Total())
		assert.NotZero(t, alloc.Residual)
	})

	t.Run("sub-cent amount yields zero legs", func(t *testing.T) {
		alloc := p.Split(1)
		assert.Equal(t, int64(1), alloc.Total())
		var nonZero int
		for _, leg := range alloc.Legs {
			if leg.Amount != 0 {
				nonZero++
			}
		}
		assert.LessOrEqual(t, nonZero, 1)
	})
}

func TestParseWeights(t *testing.T) {
	t.Run("parses table", func(t *testing.T) {
		weights, err := ParseWeights("Healthcare:0.20, Groceries:0.16,Baby Care:0.04")
		require.NoError(t, err)
		require.Len(t, weights, 3)
		assert.Equal(t, "Healthcare", weights[0].Category)
		assert.True(t, dec("0.16").Equal(weights[1].Weight))
		assert.Equal(t, "Baby Care", weights[2].Category)
	})

	t.Run("malformed entry", func(t *testing.T) {
		_, err := ParseWeights("Healthcare=0.20")
		assert.ErrorIs(t, err, ErrInvalidPolicy)
	})

	t.Run("bad fraction", func(t *testing.T) {
		_, err := ParseWeights("Healthcare:abc")
		assert.ErrorIs(t, err, ErrInvalidPolicy)
	})

	t.Run("empty", func(t *testing.T) {
		_, err := ParseWeights("  ")
		assert.ErrorIs(t, err, ErrInvalidPolicy)
	})
}
