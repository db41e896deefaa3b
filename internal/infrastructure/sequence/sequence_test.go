package sequence

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/erp/stockledger/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupSequenceTestDB(t *testing.T) *gorm.DB {
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(&Counter{}))
	return db
}

func TestFormat(t *testing.T) {
	assert.Equal(t, "MVT-2026-000001", Format(shared.SequenceMovement, 2026, 1))
	assert.Equal(t, "LOT-2026-123456", Format(shared.SequenceLot, 2026, 123456))
	assert.Equal(t, "RES-2027-1234567", Format(shared.SequenceReservation, 2027, 1234567))
}

func TestDBGenerator_Next(t *testing.T) {
	db := setupSequenceTestDB(t)
	ctx := context.Background()
	now := time.Date(2026, 3, 15, 10, 0, 0, 0, time.UTC)
	gen := NewDBGenerator(db, func() time.Time { return now })

	t.Run("counts per kind", func(t *testing.T) {
		first, err := gen.Next(ctx, shared.SequenceMovement)
		require.NoError(t, err)
		second, err := gen.Next(ctx, shared.SequenceMovement)
		require.NoError(t, err)
		lot, err := gen.Next(ctx, shared.SequenceLot)
		require.NoError(t, err)

		assert.Equal(t, "MVT-2026-000001", first)
		assert.Equal(t, "MVT-2026-000002", second)
		assert.Equal(t, "LOT-2026-000001", lot)
	})

	t.Run("restarts every year", func(t *testing.T) {
		now = time.Date(2027, 1, 1, 0, 0, 1, 0, time.UTC)
		ref, err := gen.Next(ctx, shared.SequenceMovement)
		require.NoError(t, err)
		assert.Equal(t, "MVT-2027-000001", ref)
	})

	t.Run("rolled back numbers are handed out again", func(t *testing.T) {
		now = time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
		err := db.Transaction(func(tx *gorm.DB) error {
			ref, err := gen.WithDB(tx).Next(ctx, shared.SequenceTransfer)
			require.NoError(t, err)
			assert.Equal(t, "TRF-2026-000001", ref)
			return assert.AnError
		})
		require.ErrorIs(t, err, assert.AnError)

		ref, err := gen.Next(ctx, shared.SequenceTransfer)
		require.NoError(t, err)
		assert.Equal(t, "TRF-2026-000001", ref)
	})
}

func TestRedisGenerator_Key(t *testing.T) {
	gen := NewRedisGenerator(nil, "", nil)
	assert.Equal(t, "stock:seq:MVT:2026", gen.key(shared.SequenceMovement, 2026))

	custom := NewRedisGenerator(nil, "erp:refs", nil)
	assert.Equal(t, "erp:refs:INV:2026", custom.key(shared.SequenceInventory, 2026))
}
