//go:build integration

package persistence

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	appinv "github.com/erp/stockledger/internal/application/inventory"
	"github.com/erp/stockledger/internal/domain/catalog"
	"github.com/erp/stockledger/internal/domain/inventory"
	"github.com/erp/stockledger/internal/domain/shared"
	"github.com/erp/stockledger/internal/infrastructure/migration"
	"github.com/erp/stockledger/internal/infrastructure/strategy"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"
	gormpostgres "gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// newPostgresDB starts a throwaway PostgreSQL container and applies the embedded migrations
func newPostgresDB(t *testing.T) *gorm.DB {
	t.Helper()
	ctx := context.Background()

	container, err := tcpostgres.Run(ctx,
		"postgres:16-alpine",
		tcpostgres.WithDatabase("stockledger_test"),
		tcpostgres.WithUsername("postgres"),
		tcpostgres.WithPassword("postgres"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	require.NoError(t, err, "Failed to start PostgreSQL container")
	t.Cleanup(func() {
		if err := container.Terminate(context.Background()); err != nil {
			t.Logf("Warning: failed to terminate container: %v", err)
		}
	})

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	db, err := gorm.Open(gormpostgres.Open(dsn), newGormConfig(logger.Default.LogMode(logger.Silent)))
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(10)
	t.Cleanup(func() { _ = sqlDB.Close() })

	m, err := migration.New(sqlDB, zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, m.Up())

	return db
}

func TestPostgres_MigrationsMatchModels(t *testing.T) {
	db := newPostgresDB(t)

	for _, model := range Models() {
		assert.True(t, db.Migrator().HasTable(model), "missing table for %T", model)
	}
}

func TestPostgres_ConcurrentExitsNeverOversell(t *testing.T) {
	db := newPostgresDB(t)
	ctx := context.Background()

	article, err := catalog.NewArticle("BOLT-M8", "Bolt M8", "pcs", catalog.ValuationCUMP)
	require.NoError(t, err)
	require.NoError(t, NewGormArticleRepository(db).Save(ctx, article))
	depot, err := catalog.NewDepot("MAIN", "Main depot")
	require.NoError(t, err)
	require.NoError(t, NewGormDepotRepository(db).Save(ctx, depot))

	registry, err := strategy.NewRegistryWithDefaults()
	require.NoError(t, err)
	ledger := appinv.NewLedgerService(appinv.Dependencies{
		Scope:       NewGormTransactionScope(db),
		Strategies:  registry,
		MaxAttempts: 10,
	})

	_, err = ledger.RecordMovement(ctx, appinv.RecordMovementRequest{
		Type:      inventory.MovementReceipt,
		ArticleID: article.ID,
		DepotID:   depot.ID,
		Quantity:  dec("10"),
		UnitCost:  dec("2"),
	})
	require.NoError(t, err)

	const workers = 15
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := ledger.RecordMovement(ctx, appinv.RecordMovementRequest{
				Type:      inventory.MovementSale,
				ArticleID: article.ID,
				DepotID:   depot.ID,
				Quantity:  dec("1"),
			})
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				succeeded++
				return
			}
			assert.True(t,
				errors.Is(err, shared.ErrInsufficientStock) || errors.Is(err, shared.ErrConcurrencyConflict),
				"unexpected error: %v", err)
		}()
	}
	wg.Wait()

	assert.LessOrEqual(t, succeeded, 10)

	stock, err := ledger.GetStock(ctx, article.ID, depot.ID)
	require.NoError(t, err)
	assert.True(t, stock.TheoreticalQuantity.Equal(dec("10").Sub(decimal.NewFromInt(int64(succeeded)))),
		"stock %s after %d exits", stock.TheoreticalQuantity, succeeded)
	assert.False(t, stock.TheoreticalQuantity.IsNegative())
	assert.True(t, stock.Value.Equal(stock.TheoreticalQuantity.Mul(dec("2"))))

	var sales int64
	require.NoError(t, db.Model(&inventory.StockMovement{}).
		Where("type = ? AND article_id = ?", string(inventory.MovementSale), article.ID).
		Count(&sales).Error)
	assert.Equal(t, int64(succeeded), sales, "every accepted exit is in the ledger exactly once")
}

func TestPostgres_ConcurrentReservesNeverOversell(t *testing.T) {
	db := newPostgresDB(t)
	ctx := context.Background()

	article, err := catalog.NewArticle("NUT-M8", "Nut M8", "pcs", catalog.ValuationCUMP)
	require.NoError(t, err)
	require.NoError(t, NewGormArticleRepository(db).Save(ctx, article))
	depot, err := catalog.NewDepot("MAIN", "Main depot")
	require.NoError(t, err)
	require.NoError(t, NewGormDepotRepository(db).Save(ctx, depot))

	registry, err := strategy.NewRegistryWithDefaults()
	require.NoError(t, err)
	deps := appinv.Dependencies{
		Scope:       NewGormTransactionScope(db),
		Strategies:  registry,
		MaxAttempts: 10,
	}
	_, err = appinv.NewLedgerService(deps).RecordMovement(ctx, appinv.RecordMovementRequest{
		Type:      inventory.MovementReceipt,
		ArticleID: article.ID,
		DepotID:   depot.ID,
		Quantity:  dec("10"),
		UnitCost:  dec("2"),
	})
	require.NoError(t, err)

	reservations := appinv.NewReservationService(deps, 0)
	var (
		wg   sync.WaitGroup
		errs = make([]error, 2)
	)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = reservations.Reserve(ctx, appinv.ReserveRequest{
				ArticleID: article.ID,
				DepotID:   depot.ID,
				Quantity:  dec("6"),
				OrderRef:  "SO-" + string(rune('A'+i)),
			})
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		assert.ErrorIs(t, err, shared.ErrInsufficientStock)
	}
	assert.Equal(t, 1, succeeded)

	stock, err := appinv.NewLedgerService(deps).GetStock(ctx, article.ID, depot.ID)
	require.NoError(t, err)
	assert.True(t, stock.ReservedQuantity.Equal(dec("6")), "reserved %s", stock.ReservedQuantity)
	assert.True(t, stock.TheoreticalQuantity.Equal(dec("10")))
}

func TestPostgres_ReferencesAreSequential(t *testing.T) {
	db := newPostgresDB(t)
	ctx := context.Background()
	scope := NewGormTransactionScope(db, WithClock(func() time.Time { return day(2026, time.March, 1) }))

	var refs []string
	for i := 0; i < 3; i++ {
		require.NoError(t, scope.Execute(ctx, func(repos appinv.TransactionalRepositories) error {
			ref, err := repos.Sequences().Next(ctx, shared.SequenceMovement)
			refs = append(refs, ref)
			return err
		}))
	}

	assert.Equal(t, []string{"MVT-2026-000001", "MVT-2026-000002", "MVT-2026-000003"}, refs)
}
