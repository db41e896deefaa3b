package persistence

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/erp/stockledger/internal/domain/inventory"
	"github.com/erp/stockledger/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newMockDatabase(t *testing.T) (*Database, sqlmock.Sqlmock, *sql.DB) {
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)

	dialector := postgres.New(postgres.Config{
		Conn:       mockDB,
		DriverName: "postgres",
	})

	cfg := newGormConfig(logger.Default.LogMode(logger.Silent))
	cfg.PrepareStmt = false
	gormDB, err := gorm.Open(dialector, cfg)
	require.NoError(t, err)

	return &Database{DB: gormDB}, mock, mockDB
}

func TestNewGormConfig(t *testing.T) {
	cfg := newGormConfig(logger.Default.LogMode(logger.Silent))

	assert.True(t, cfg.SkipDefaultTransaction)
	assert.True(t, cfg.TranslateError)
	assert.Equal(t, time.UTC, cfg.NowFunc().Location())
}

func TestDatabase_Stats(t *testing.T) {
	db, _, mockDB := newMockDatabase(t)
	defer mockDB.Close()

	stats, err := db.Stats()
	assert.NoError(t, err)
	assert.Equal(t, 0, stats.InUse)
	assert.Equal(t, stats.OpenConnections, stats.InUse+stats.Idle)
}

func TestDatabase_Ping(t *testing.T) {
	db, mock, mockDB := newMockDatabase(t)
	defer mockDB.Close()

	mock.ExpectPing()

	assert.NoError(t, db.Ping())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDatabase_Close(t *testing.T) {
	db, mock, _ := newMockDatabase(t)

	mock.ExpectClose()

	assert.NoError(t, db.Close())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDatabase_Transaction(t *testing.T) {
	t.Run("commits on success", func(t *testing.T) {
		db, mock, mockDB := newMockDatabase(t)
		defer mockDB.Close()

		mock.ExpectBegin()
		mock.ExpectExec(`DELETE FROM "cost_snapshots" WHERE period_id = \$1`).
			WillReturnResult(sqlmock.NewResult(0, 3))
		mock.ExpectCommit()

		periodID := uuid.New()
		var deleted int64
		err := db.Transaction(func(tx *gorm.DB) error {
			var err error
			deleted, err = NewGormSnapshotRepository(tx).DeleteByPeriod(context.Background(), periodID)
			return err
		})

		assert.NoError(t, err)
		assert.Equal(t, int64(3), deleted)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("rolls back on error", func(t *testing.T) {
		db, mock, mockDB := newMockDatabase(t)
		defer mockDB.Close()

		mock.ExpectBegin()
		mock.ExpectRollback()

		err := db.Transaction(func(tx *gorm.DB) error {
			return assert.AnError
		})

		assert.ErrorIs(t, err, assert.AnError)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

// The versioned update must carry the loaded version in its WHERE clause;
// postgres reports zero rows when another transaction got there first.
func TestSaveVersioned_Postgres(t *testing.T) {
	newLoadedStock := func(t *testing.T) *inventory.Stock {
		stock, err := inventory.NewStock(uuid.New(), uuid.New())
		require.NoError(t, err)
		stock.Version = 3
		return stock
	}

	t.Run("bumps the version when the row matches", func(t *testing.T) {
		db, mock, mockDB := newMockDatabase(t)
		defer mockDB.Close()
		stock := newLoadedStock(t)

		mock.ExpectExec(`UPDATE "stocks" SET .* WHERE version = \$\d+ AND "stocks"."id" = \$\d+`).
			WillReturnResult(sqlmock.NewResult(0, 1))

		err := NewGormStockRepository(db.DB).Save(context.Background(), stock)
		require.NoError(t, err)
		assert.Equal(t, 4, stock.Version)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("reports a conflict when the version moved", func(t *testing.T) {
		db, mock, mockDB := newMockDatabase(t)
		defer mockDB.Close()
		stock := newLoadedStock(t)

		mock.ExpectExec(`UPDATE "stocks" SET .* WHERE version = \$\d+ AND "stocks"."id" = \$\d+`).
			WillReturnResult(sqlmock.NewResult(0, 0))

		err := NewGormStockRepository(db.DB).Save(context.Background(), stock)
		assert.ErrorIs(t, err, shared.ErrConcurrencyConflict)
		assert.Equal(t, 3, stock.Version)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("keeps the version on driver errors", func(t *testing.T) {
		db, mock, mockDB := newMockDatabase(t)
		defer mockDB.Close()
		stock := newLoadedStock(t)

		mock.ExpectExec(`UPDATE "stocks"`).WillReturnError(sql.ErrConnDone)

		err := NewGormStockRepository(db.DB).Save(context.Background(), stock)
		assert.ErrorIs(t, err, sql.ErrConnDone)
		assert.Equal(t, 3, stock.Version)
	})
}

func TestNewSQLiteDatabase(t *testing.T) {
	db, err := NewSQLiteDatabase(":memory:", logger.Default.LogMode(logger.Silent))
	require.NoError(t, err)
	defer db.Close()

	assert.True(t, db.IsSQLite())
	require.NoError(t, db.AutoMigrate())
	assert.True(t, db.DB.Migrator().HasTable(&inventory.StockMovement{}))

	stats, err := db.Stats()
	require.NoError(t, err)
	assert.Equal(t, 1, stats.MaxOpenConnections)
}

func TestSQLiteDSN(t *testing.T) {
	assert.Equal(t, "file::memory:?cache=shared", sqliteDSN(":memory:"))
	assert.Equal(t, "file:/tmp/ledger.db?_foreign_keys=on", sqliteDSN("/tmp/ledger.db"))
}
