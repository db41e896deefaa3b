package persistence

import (
	"context"
	"testing"
	"time"

	appinv "github.com/erp/stockledger/internal/application/inventory"
	"github.com/erp/stockledger/internal/domain/inventory"
	"github.com/erp/stockledger/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGormTransactionScope_Execute(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	clock := func() time.Time { return time.Date(2026, 3, 15, 9, 0, 0, 0, time.UTC) }
	scope := NewGormTransactionScope(db, WithClock(clock))

	t.Run("rolls back rows and references together", func(t *testing.T) {
		var stock *inventory.Stock
		err := scope.Execute(ctx, func(repos appinv.TransactionalRepositories) error {
			ref, err := repos.Sequences().Next(ctx, shared.SequenceMovement)
			require.NoError(t, err)
			assert.Equal(t, "MVT-2026-000001", ref)

			stock = newStock(t, "5", "1")
			require.NoError(t, repos.Stocks().Create(ctx, stock))
			return shared.ErrInsufficientStock
		})
		assert.ErrorIs(t, err, shared.ErrInsufficientStock)

		_, err = NewGormStockRepository(db).FindByArticleAndDepot(ctx, stock.ArticleID, stock.DepotID)
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})

	t.Run("commits and keeps numbering gapless", func(t *testing.T) {
		var stock *inventory.Stock
		err := scope.Execute(ctx, func(repos appinv.TransactionalRepositories) error {
			ref, err := repos.Sequences().Next(ctx, shared.SequenceMovement)
			if err != nil {
				return err
			}
			assert.Equal(t, "MVT-2026-000001", ref)

			stock = newStock(t, "5", "1")
			return repos.Stocks().Create(ctx, stock)
		})
		require.NoError(t, err)

		_, err = NewGormStockRepository(db).FindByArticleAndDepot(ctx, stock.ArticleID, stock.DepotID)
		assert.NoError(t, err)
	})
}

type fixedSequence struct{ ref string }

func (f fixedSequence) Next(context.Context, shared.SequenceKind) (string, error) {
	return f.ref, nil
}

func TestGormTransactionScope_WithSequenceGenerator(t *testing.T) {
	db := setupTestDB(t)
	scope := NewGormTransactionScope(db, WithSequenceGenerator(fixedSequence{ref: "MVT-2026-999999"}))

	err := scope.Execute(context.Background(), func(repos appinv.TransactionalRepositories) error {
		ref, err := repos.Sequences().Next(context.Background(), shared.SequenceMovement)
		assert.Equal(t, "MVT-2026-999999", ref)
		return err
	})
	require.NoError(t, err)
}

func TestGormCampaignRepository_LinesRoundTrip(t *testing.T) {
	db := setupTestDB(t)
	repo := NewGormCampaignRepository(db)
	ctx := context.Background()

	depotID := uuid.New()
	first, err := inventory.NewStock(uuid.New(), depotID)
	require.NoError(t, err)
	require.NoError(t, first.ApplyEntry(dec("20"), dec("2")))
	second, err := inventory.NewStock(uuid.New(), depotID)
	require.NoError(t, err)
	require.NoError(t, second.ApplyEntry(dec("8"), dec("5")))

	campaign, err := inventory.NewInventoryCampaign("INV-2026-000001", depotID, "March count", day(2026, 3, 30))
	require.NoError(t, err)
	require.NoError(t, campaign.Start([]inventory.Stock{*first, *second}, day(2026, 3, 30)))
	require.NoError(t, repo.Create(ctx, campaign))

	loaded, err := repo.FindForUpdate(ctx, campaign.ID)
	require.NoError(t, err)
	require.Len(t, loaded.Lines, 2)
	for _, line := range loaded.Lines {
		assert.Equal(t, inventory.LineToCount, line.Status)
		assert.False(t, line.CountedQuantity1.Valid)
	}

	line := &loaded.Lines[0]
	require.NoError(t, line.RecordCount(line.TheoreticalQuantity, "alice", inventory.DefaultCountPolicy()))
	require.NoError(t, repo.Save(ctx, loaded))

	reloaded, err := repo.FindByID(ctx, campaign.ID)
	require.NoError(t, err)
	require.Len(t, reloaded.Lines, 2, "lines are updated in place")
	counted := 0
	for _, l := range reloaded.Lines {
		if l.ID == line.ID {
			assert.Equal(t, inventory.LineCounted, l.Status)
			assert.True(t, l.CountedQuantity1.Valid)
			assert.Equal(t, "alice", l.CountedBy)
			counted++
		}
	}
	assert.Equal(t, 1, counted)
	assert.Equal(t, 2, reloaded.Version)

	list, total, err := repo.FindAll(ctx, &depotID, shared.DefaultFilter())
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, list, 1)
	assert.Empty(t, list[0].Lines)
}
