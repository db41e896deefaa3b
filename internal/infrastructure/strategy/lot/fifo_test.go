package lot

import (
	"context"
	"testing"
	"time"

	"github.com/erp/stockledger/internal/domain/shared"
	"github.com/erp/stockledger/internal/domain/shared/strategy"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func candidate(number string, qty int64, cost string, received time.Time, expiry *time.Time) strategy.LotCandidate {
	return strategy.LotCandidate{
		ID:         uuid.New(),
		LotNumber:  number,
		Quantity:   decimal.NewFromInt(qty),
		UnitCost:   decimal.RequireFromString(cost),
		ReceivedAt: received,
		ExpiryDate: expiry,
	}
}

func TestFIFOLotStrategy_Order(t *testing.T) {
	s := NewFIFOLotStrategy()
	jan1 := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	jan15 := time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC)

	input := []strategy.LotCandidate{
		candidate("L2", 10, "6", jan15, nil),
		candidate("L0", 0, "1", jan1.AddDate(-1, 0, 0), nil),
		candidate("L1", 10, "5", jan1, nil),
	}

	ordered := s.Order(input)

	require.Len(t, ordered, 2)
	assert.Equal(t, "L1", ordered[0].LotNumber)
	assert.Equal(t, "L2", ordered[1].LotNumber)
	assert.Equal(t, "L2", input[0].LotNumber, "input must not be reordered")
}

func TestFIFOLotStrategy_SelectLots(t *testing.T) {
	s := NewFIFOLotStrategy()
	ctx := context.Background()
	now := time.Now()

	lots := []strategy.LotCandidate{
		candidate("B003", 30, "10", now.Add(-72*time.Hour), nil),
		candidate("B001", 50, "12", now.Add(-48*time.Hour), nil),
		candidate("B002", 40, "11", now.Add(-24*time.Hour), nil),
	}

	t.Run("prefers the first lot covering the whole demand", func(t *testing.T) {
		result, err := s.SelectLots(ctx, strategy.LotSelectionRequest{Quantity: decimal.NewFromInt(45)}, lots)

		require.NoError(t, err)
		require.Len(t, result.Allocations, 1)
		assert.Equal(t, "B001", result.Allocations[0].LotNumber)
		assert.True(t, result.Covered())
	})

	t.Run("takes the oldest lot when it covers", func(t *testing.T) {
		result, err := s.SelectLots(ctx, strategy.LotSelectionRequest{Quantity: decimal.NewFromInt(30)}, lots)

		require.NoError(t, err)
		require.Len(t, result.Allocations, 1)
		assert.Equal(t, "B003", result.Allocations[0].LotNumber)
	})

	t.Run("aggregates in order when no single lot covers", func(t *testing.T) {
		result, err := s.SelectLots(ctx, strategy.LotSelectionRequest{Quantity: decimal.NewFromInt(100)}, lots)

		require.NoError(t, err)
		require.Len(t, result.Allocations, 3)
		assert.Equal(t, "B003", result.Allocations[0].LotNumber)
		assert.True(t, result.Allocations[0].Quantity.Equal(decimal.NewFromInt(30)))
		assert.Equal(t, "B001", result.Allocations[1].LotNumber)
		assert.True(t, result.Allocations[1].Quantity.Equal(decimal.NewFromInt(50)))
		assert.True(t, result.Allocations[2].Quantity.Equal(decimal.NewFromInt(20)))
		assert.True(t, result.Covered())
	})

	t.Run("reports the shortfall", func(t *testing.T) {
		result, err := s.SelectLots(ctx, strategy.LotSelectionRequest{Quantity: decimal.NewFromInt(130)}, lots)

		require.NoError(t, err)
		assert.True(t, result.TotalQty.Equal(decimal.NewFromInt(120)))
		assert.True(t, result.ShortfallQty.Equal(decimal.NewFromInt(10)))
		assert.False(t, result.Covered())
	})

	t.Run("consumes the preferred lot first", func(t *testing.T) {
		preferred := lots[2].ID
		result, err := s.SelectLots(ctx, strategy.LotSelectionRequest{
			Quantity:    decimal.NewFromInt(50),
			PreferLotID: &preferred,
		}, lots)

		require.NoError(t, err)
		require.Len(t, result.Allocations, 2)
		assert.Equal(t, "B002", result.Allocations[0].LotNumber)
		assert.True(t, result.Allocations[0].Quantity.Equal(decimal.NewFromInt(40)))
		assert.Equal(t, "B003", result.Allocations[1].LotNumber)
	})

	t.Run("rejects non positive demand", func(t *testing.T) {
		_, err := s.SelectLots(ctx, strategy.LotSelectionRequest{Quantity: decimal.Zero}, lots)
		assert.ErrorIs(t, err, shared.ErrDataIntegrity)
	})

	t.Run("no candidates yields a full shortfall", func(t *testing.T) {
		result, err := s.SelectLots(ctx, strategy.LotSelectionRequest{Quantity: decimal.NewFromInt(5)}, nil)

		require.NoError(t, err)
		assert.Empty(t, result.Allocations)
		assert.True(t, result.ShortfallQty.Equal(decimal.NewFromInt(5)))
	})
}
