package inventory

import (
	"testing"
	"time"

	"github.com/erp/stockledger/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCountPolicy_RequiresRecount(t *testing.T) {
	policy := DefaultCountPolicy()

	tests := []struct {
		name        string
		theoretical string
		counted     string
		unitCost    string
		want        bool
	}{
		{"11 units and 11 percent", "100", "89", "1", true},
		{"3 units and 3 percent", "100", "97", "300", false},
		{"exact count", "100", "100", "1000", false},
		{"percentage only", "20", "18", "1", true},
		{"value only", "1000", "995", "250", true},
		{"unit only", "1000", "989", "1", true},
		{"zero theoretical", "0", "1", "1", true},
		{"boundaries are not exceeded", "200", "190", "100", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := policy.RequiresRecount(dec(tt.theoretical), dec(tt.counted), dec(tt.unitCost))
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCountPolicy_RequiresSecondValidation(t *testing.T) {
	policy := DefaultCountPolicy()

	assert.True(t, policy.RequiresSecondValidation(dec("-5200")))
	assert.False(t, policy.RequiresSecondValidation(dec("-4800")))
	assert.True(t, policy.RequiresSecondValidation(dec("5000.01")))
	assert.False(t, policy.RequiresSecondValidation(dec("5000")))
}

func newStartedCampaign(t *testing.T, positions ...[2]string) (*InventoryCampaign, []Stock) {
	t.Helper()
	depotID := uuid.New()
	stocks := make([]Stock, 0, len(positions))
	for _, p := range positions {
		s, err := NewStock(uuid.New(), depotID)
		require.NoError(t, err)
		if dec(p[0]).IsPositive() {
			require.NoError(t, s.ApplyEntry(dec(p[0]), dec(p[1])))
		}
		stocks = append(stocks, *s)
	}
	c, err := NewInventoryCampaign("INV-2026-000001", depotID, "Year end", time.Now())
	require.NoError(t, err)
	require.NoError(t, c.Start(stocks, time.Now()))
	return c, stocks
}

func TestInventoryCampaign_Start(t *testing.T) {
	c, stocks := newStartedCampaign(t, [2]string{"100", "2"}, [2]string{"10", "3"})

	assert.Equal(t, CampaignInProgress, c.Status)
	require.Len(t, c.Lines, 2)
	assert.Equal(t, stocks[0].ArticleID, c.Lines[0].ArticleID)
	assert.True(t, c.Lines[0].TheoreticalQuantity.Equal(dec("100")))
	assert.True(t, c.Lines[0].UnitCost.Equal(dec("2")))
	assert.Equal(t, LineToCount, c.Lines[0].Status)

	assert.ErrorIs(t, c.Start(nil, time.Now()), shared.ErrInvalidState)
}

func TestInventoryLine_RecordCount(t *testing.T) {
	policy := DefaultCountPolicy()

	t.Run("large discrepancy requires a recount", func(t *testing.T) {
		c, _ := newStartedCampaign(t, [2]string{"100", "1"})
		line := &c.Lines[0]

		require.NoError(t, line.RecordCount(dec("89"), "alice", policy))
		assert.Equal(t, LineRecountPending, line.Status)
		assert.ErrorIs(t, line.Validate("bob", time.Now()), shared.ErrInvalidState)

		require.NoError(t, line.RecordCount(dec("90"), "carol", policy))
		assert.Equal(t, LineCounted, line.Status)
		assert.True(t, line.Final().Equal(dec("90")))
		assert.True(t, line.Delta().Equal(dec("-10")))
	})

	t.Run("small discrepancy is counted directly", func(t *testing.T) {
		c, _ := newStartedCampaign(t, [2]string{"100", "300"})
		line := &c.Lines[0]

		require.NoError(t, line.RecordCount(dec("97"), "alice", policy))
		assert.Equal(t, LineCounted, line.Status)
		assert.True(t, line.ValueDelta().Equal(dec("-900")))
	})

	t.Run("second count prefers the recount", func(t *testing.T) {
		c, _ := newStartedCampaign(t, [2]string{"10", "1"})
		line := &c.Lines[0]

		require.NoError(t, line.RecordCount(dec("10"), "alice", policy))
		require.NoError(t, line.RecordCount(dec("9"), "bob", policy))
		assert.True(t, line.CountedQuantity1.Decimal.Equal(dec("10")))
		assert.True(t, line.Final().Equal(dec("9")))
	})

	t.Run("excluded line cannot be recounted", func(t *testing.T) {
		c, _ := newStartedCampaign(t, [2]string{"10", "1"})
		line := &c.Lines[0]
		require.NoError(t, line.Exclude("damaged area"))

		assert.ErrorIs(t, line.RecordCount(dec("1"), "alice", policy), shared.ErrInvalidState)
	})

	t.Run("negative count is rejected", func(t *testing.T) {
		c, _ := newStartedCampaign(t, [2]string{"10", "1"})
		assert.ErrorIs(t, c.Lines[0].RecordCount(dec("-1"), "alice", policy), shared.ErrDataIntegrity)
	})
}

func TestNewInventoryAdjustment(t *testing.T) {
	policy := DefaultCountPolicy()

	t.Run("below threshold is applied directly", func(t *testing.T) {
		c, _ := newStartedCampaign(t, [2]string{"1000", "480"})
		line := &c.Lines[0]
		require.NoError(t, line.RecordCount(dec("990"), "alice", policy))
		require.NoError(t, line.RecordCount(dec("990"), "alice", policy))
		require.NoError(t, line.Validate("alice", time.Now()))

		adj, err := NewInventoryAdjustment(c, line, policy)

		require.NoError(t, err)
		assert.True(t, adj.QuantityDelta.Equal(dec("-10")))
		assert.True(t, adj.ValueDelta.Equal(dec("-4800")))
		assert.False(t, adj.RequiresSecondValidation)
		assert.Equal(t, AdjustmentApplied, adj.Status)
		assert.Equal(t, MovementAdjustmentNegative, adj.MovementType())
	})

	t.Run("above threshold waits for a second validator", func(t *testing.T) {
		c, _ := newStartedCampaign(t, [2]string{"1000", "520"})
		line := &c.Lines[0]
		require.NoError(t, line.RecordCount(dec("990"), "alice", policy))
		require.NoError(t, line.RecordCount(dec("990"), "alice", policy))
		require.NoError(t, line.Validate("alice", time.Now()))

		adj, err := NewInventoryAdjustment(c, line, policy)

		require.NoError(t, err)
		assert.True(t, adj.ValueDelta.Equal(dec("-5200")))
		assert.True(t, adj.RequiresSecondValidation)
		assert.True(t, adj.IsPending())

		assert.ErrorIs(t, adj.ApproveSecond("alice"), shared.ErrValidationConflict)
		require.NoError(t, adj.ApproveSecond("bob"))
		adj.MarkApplied(uuid.New(), time.Now())
		assert.Equal(t, AdjustmentApplied, adj.Status)
		assert.ErrorIs(t, adj.ApproveSecond("carol"), shared.ErrInvalidState)
	})

	t.Run("no discrepancy means no adjustment", func(t *testing.T) {
		c, _ := newStartedCampaign(t, [2]string{"5", "1"})
		line := &c.Lines[0]
		require.NoError(t, line.RecordCount(dec("5"), "alice", policy))
		require.NoError(t, line.Validate("alice", time.Now()))

		_, err := NewInventoryAdjustment(c, line, policy)
		assert.ErrorIs(t, err, shared.ErrInvalidInput)
	})
}

func TestInventoryCampaign_Lifecycle(t *testing.T) {
	policy := DefaultCountPolicy()
	c, _ := newStartedCampaign(t, [2]string{"100", "1"}, [2]string{"50", "1"}, [2]string{"10", "1"})

	assert.ErrorIs(t, c.Complete(time.Now()), shared.ErrInvalidState)

	require.NoError(t, c.Lines[0].RecordCount(dec("98"), "alice", policy))
	require.NoError(t, c.Lines[1].RecordCount(dec("50"), "alice", policy))
	require.NoError(t, c.Lines[2].Exclude("not accessible"))
	require.NoError(t, c.Complete(time.Now()))
	assert.Equal(t, CampaignCompleted, c.Status)

	assert.ErrorIs(t, c.Validate(time.Now()), shared.ErrInvalidState)
	require.NoError(t, c.Lines[0].Validate("bob", time.Now()))
	require.NoError(t, c.Lines[0].MarkAdjusted())
	require.NoError(t, c.Lines[1].Validate("bob", time.Now()))
	require.NoError(t, c.Validate(time.Now()))

	require.NoError(t, c.Close(time.Now()))

	assert.Equal(t, CampaignClosed, c.Status)
	assert.True(t, c.TotalTheoretical.Equal(dec("150")))
	assert.True(t, c.TotalAbsDelta.Equal(dec("2")))
	// 1 - 2/150
	assert.Equal(t, "0.986667", c.Precision.StringFixed(6))
	assert.ErrorIs(t, c.Cancel("late", time.Now()), shared.ErrInvalidState)
}

func TestInventoryCampaign_Precision(t *testing.T) {
	t.Run("empty campaign is fully precise", func(t *testing.T) {
		c, _ := newStartedCampaign(t)
		require.NoError(t, c.Complete(time.Now()))
		require.NoError(t, c.Validate(time.Now()))
		require.NoError(t, c.Close(time.Now()))
		assert.True(t, c.Precision.Equal(decimal.NewFromInt(1)))
	})

	t.Run("precision is floored at zero", func(t *testing.T) {
		policy := DefaultCountPolicy()
		c, _ := newStartedCampaign(t, [2]string{"1", "1"})
		require.NoError(t, c.Lines[0].RecordCount(dec("5"), "alice", policy))
		require.NoError(t, c.Lines[0].RecordCount(dec("5"), "bob", policy))
		require.NoError(t, c.Complete(time.Now()))
		require.NoError(t, c.Lines[0].Validate("carol", time.Now()))
		require.NoError(t, c.Validate(time.Now()))
		require.NoError(t, c.Close(time.Now()))
		assert.True(t, c.Precision.IsZero())
	})
}

func TestCampaignStatus_CanTransitionTo(t *testing.T) {
	assert.True(t, CampaignPlanned.CanTransitionTo(CampaignInProgress))
	assert.True(t, CampaignValidated.CanTransitionTo(CampaignCancelled))
	assert.False(t, CampaignPlanned.CanTransitionTo(CampaignClosed))
	assert.False(t, CampaignClosed.CanTransitionTo(CampaignCancelled))
	assert.False(t, CampaignCancelled.CanTransitionTo(CampaignInProgress))
}
