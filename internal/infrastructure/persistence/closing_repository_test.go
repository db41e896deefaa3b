package persistence

import (
	"context"
	"testing"
	"time"

	"github.com/erp/stockledger/internal/domain/closing"
	"github.com/erp/stockledger/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createPeriod(t *testing.T, repo *GormPeriodRepository, year, month int, status closing.PeriodStatus) *closing.PeriodClosing {
	t.Helper()
	p, err := closing.NewPeriodClosing(year, month)
	require.NoError(t, err)
	p.Status = status
	require.NoError(t, repo.Create(context.Background(), p))
	return p
}

func TestGormPeriodRepository_FindLockingDate(t *testing.T) {
	db := setupTestDB(t)
	repo := NewGormPeriodRepository(db)
	ctx := context.Background()

	closed := createPeriod(t, repo, 2026, 3, closing.PeriodClosed)
	createPeriod(t, repo, 2026, 4, closing.PeriodOpen)
	createPeriod(t, repo, 2026, 5, closing.PeriodRejected)
	running := createPeriod(t, repo, 2026, 6, closing.PeriodInProgress)

	found, err := repo.FindLockingDate(ctx, day(2026, 3, 31).Add(23*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, closed.ID, found.ID)

	found, err = repo.FindLockingDate(ctx, day(2026, 6, 1))
	require.NoError(t, err)
	assert.Equal(t, running.ID, found.ID)

	for _, month := range []time.Month{time.April, time.May, time.July} {
		_, err := repo.FindLockingDate(ctx, day(2026, month, 10))
		assert.ErrorIs(t, err, shared.ErrNotFound, "month %s", month)
	}
}

func TestGormPeriodRepository_FindPreviousValidated(t *testing.T) {
	db := setupTestDB(t)
	repo := NewGormPeriodRepository(db)
	ctx := context.Background()

	_, err := repo.FindPreviousValidated(ctx, 2026, 1)
	assert.ErrorIs(t, err, shared.ErrNotFound)

	createPeriod(t, repo, 2025, 11, closing.PeriodValidated)
	december := createPeriod(t, repo, 2025, 12, closing.PeriodValidated)
	createPeriod(t, repo, 2026, 1, closing.PeriodClosed)
	february := createPeriod(t, repo, 2026, 2, closing.PeriodValidated)

	prev, err := repo.FindPreviousValidated(ctx, 2026, 2)
	require.NoError(t, err)
	assert.Equal(t, december.ID, prev.ID, "closed but unvalidated months are skipped")

	prev, err = repo.FindPreviousValidated(ctx, 2026, 3)
	require.NoError(t, err)
	assert.Equal(t, february.ID, prev.ID)

	_, err = repo.FindByYearMonth(ctx, 2026, 2)
	require.NoError(t, err)

	dup, err := closing.NewPeriodClosing(2026, 2)
	require.NoError(t, err)
	assert.ErrorIs(t, repo.Create(ctx, dup), shared.ErrAlreadyExists)
}

func TestGormPeriodRepository_Save(t *testing.T) {
	db := setupTestDB(t)
	repo := NewGormPeriodRepository(db)
	ctx := context.Background()

	p := createPeriod(t, repo, 2026, 3, closing.PeriodOpen)

	loaded, err := repo.FindForUpdate(ctx, p.ID)
	require.NoError(t, err)
	require.NoError(t, loaded.Start(day(2026, 4, 1)))
	require.NoError(t, repo.Save(ctx, loaded))

	stored, err := repo.FindByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, closing.PeriodInProgress, stored.Status)
	assert.NotNil(t, stored.StartedAt)

	// p still holds version 1
	require.NoError(t, p.Start(day(2026, 4, 1)))
	assert.ErrorIs(t, repo.Save(ctx, p), shared.ErrConcurrencyConflict)
}

func TestGormSnapshotRepository_Upsert(t *testing.T) {
	db := setupTestDB(t)
	repo := NewGormSnapshotRepository(db)
	ctx := context.Background()

	periodID, other := uuid.New(), uuid.New()
	articleID, depotID := uuid.New(), uuid.New()

	first, err := closing.NewCostSnapshot(periodID, articleID, depotID, dec("10"), dec("40"), "CUMP", day(2026, 3, 31))
	require.NoError(t, err)
	require.NoError(t, repo.Upsert(ctx, first))

	rerun, err := closing.NewCostSnapshot(periodID, articleID, depotID, dec("12"), dec("60"), "FIFO", day(2026, 3, 31))
	require.NoError(t, err)
	require.NoError(t, repo.Upsert(ctx, rerun))

	second, err := closing.NewCostSnapshot(periodID, uuid.New(), depotID, dec("1"), dec("2.5"), "CUMP", day(2026, 3, 31))
	require.NoError(t, err)
	require.NoError(t, repo.Upsert(ctx, second))

	elsewhere, err := closing.NewCostSnapshot(other, articleID, depotID, dec("1"), dec("100"), "CUMP", day(2026, 2, 28))
	require.NoError(t, err)
	require.NoError(t, repo.Upsert(ctx, elsewhere))

	count, err := repo.CountByPeriod(ctx, periodID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)

	sum, err := repo.SumValueByPeriod(ctx, periodID)
	require.NoError(t, err)
	assert.True(t, sum.Equal(dec("62.5")), "got %s", sum)

	rows, total, err := repo.FindByPeriod(ctx, periodID, shared.Filter{Page: 1, PageSize: 10, OrderBy: "total_value", OrderDir: "desc"})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	require.Len(t, rows, 2)
	assert.Equal(t, "FIFO", rows[0].Method)
	assert.True(t, rows[0].Quantity.Equal(dec("12")))
	assert.True(t, rows[0].UnitCost.Equal(dec("5")))

	deleted, err := repo.DeleteByPeriod(ctx, periodID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), deleted)

	empty, err := repo.SumValueByPeriod(ctx, periodID)
	require.NoError(t, err)
	assert.True(t, empty.IsZero())
}
