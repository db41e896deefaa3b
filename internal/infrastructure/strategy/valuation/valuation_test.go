package valuation

import (
	"context"
	"testing"
	"time"

	"github.com/erp/stockledger/internal/domain/shared/strategy"
	"github.com/erp/stockledger/internal/infrastructure/strategy/lot"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func lotAt(qty, cost string, received time.Time, expiry *time.Time) strategy.LotCandidate {
	return strategy.LotCandidate{
		ID:         uuid.New(),
		LotNumber:  uuid.NewString(),
		Quantity:   d(qty),
		UnitCost:   d(cost),
		ReceivedAt: received,
		ExpiryDate: expiry,
	}
}

func TestCUMPValuationStrategy_Value(t *testing.T) {
	s := NewCUMPValuationStrategy()

	result, err := s.Value(context.Background(), strategy.ValuationInput{
		Quantity:    d("6"),
		StoredValue: d("60"),
		Lots:        []strategy.LotCandidate{lotAt("6", "99", time.Now(), nil)},
	})

	require.NoError(t, err)
	assert.Equal(t, "CUMP", result.Method)
	assert.True(t, result.Value.Equal(d("60")))
	assert.True(t, result.UnitCost.Equal(d("10")))
	assert.False(t, s.UsesLots())

	empty, err := s.Value(context.Background(), strategy.ValuationInput{Quantity: decimal.Zero, StoredValue: decimal.Zero})
	require.NoError(t, err)
	assert.True(t, empty.UnitCost.IsZero())
}

func TestFIFOValuationStrategy_Value(t *testing.T) {
	s := NewFIFOValuationStrategy(lot.NewFIFOLotStrategy())
	jan1 := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	jan15 := time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC)
	lots := []strategy.LotCandidate{
		lotAt("10", "6.00", jan15, nil),
		lotAt("10", "5.00", jan1, nil),
	}

	t.Run("oldest costs first", func(t *testing.T) {
		result, err := s.Value(context.Background(), strategy.ValuationInput{Quantity: d("15"), Lots: lots})

		require.NoError(t, err)
		assert.Equal(t, "80.00", result.Value.StringFixed(2))
		assert.True(t, result.UnvaluedQty.IsZero())
		assert.Equal(t, "5.3333", result.UnitCost.String())
	})

	t.Run("quantity beyond the lots stays unvalued", func(t *testing.T) {
		result, err := s.Value(context.Background(), strategy.ValuationInput{Quantity: d("25"), Lots: lots})

		require.NoError(t, err)
		assert.True(t, result.Value.Equal(d("110")))
		assert.True(t, result.UnvaluedQty.Equal(d("5")))
	})

	t.Run("no lots values zero", func(t *testing.T) {
		result, err := s.Value(context.Background(), strategy.ValuationInput{Quantity: d("4")})

		require.NoError(t, err)
		assert.True(t, result.Value.IsZero())
		assert.True(t, result.UnitCost.IsZero())
	})
}

func TestFEFOValuationStrategy_Value(t *testing.T) {
	s := NewFEFOValuationStrategy(lot.NewFEFOLotStrategy())
	received := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	early := received.AddDate(0, 1, 0)
	late := received.AddDate(0, 6, 0)

	result, err := s.Value(context.Background(), strategy.ValuationInput{
		Quantity: d("15"),
		Lots: []strategy.LotCandidate{
			lotAt("10", "5.00", received, &late),
			lotAt("10", "6.00", received.AddDate(0, 0, 14), &early),
			lotAt("10", "1.00", received, nil),
		},
	})

	require.NoError(t, err)
	assert.Equal(t, "FEFO", result.Method)
	// 10 expiring first at 6.00 then 5 at 5.00
	assert.Equal(t, "85.00", result.Value.StringFixed(2))
	assert.True(t, s.UsesLots())
}
