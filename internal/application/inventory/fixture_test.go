package inventory_test

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	appinv "github.com/erp/stockledger/internal/application/inventory"
	"github.com/erp/stockledger/internal/domain/catalog"
	"github.com/erp/stockledger/internal/domain/inventory"
	"github.com/erp/stockledger/internal/domain/shared"
	"github.com/erp/stockledger/internal/infrastructure/persistence"
	"github.com/erp/stockledger/internal/infrastructure/strategy"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var today = time.Date(2026, 3, 15, 9, 0, 0, 0, time.UTC)

// recordingPublisher keeps every published event
type recordingPublisher struct {
	mu     sync.Mutex
	events []shared.DomainEvent
}

func (p *recordingPublisher) Publish(_ context.Context, events ...shared.DomainEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, events...)
	return nil
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.events))
	for i, e := range p.events {
		out[i] = e.EventType()
	}
	return out
}

func (p *recordingPublisher) count(eventType string) int {
	n := 0
	for _, t := range p.types() {
		if t == eventType {
			n++
		}
	}
	return n
}

// recordingMetrics counts metric calls by name
type recordingMetrics struct {
	mu     sync.Mutex
	counts map[string]int
}

func newRecordingMetrics() *recordingMetrics {
	return &recordingMetrics{counts: map[string]int{}}
}

func (m *recordingMetrics) add(key string, n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counts[key] += n
}

func (m *recordingMetrics) get(key string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.counts[key]
}

func (m *recordingMetrics) RecordMovement(_ context.Context, movementType, direction string) {
	m.add("movement:"+movementType+":"+direction, 1)
}

func (m *recordingMetrics) RecordInsufficientStock(_ context.Context, operation string) {
	m.add("insufficient:"+operation, 1)
}

func (m *recordingMetrics) RecordReservation(_ context.Context, action string) {
	m.add("reservation:"+action, 1)
}

func (m *recordingMetrics) RecordLotsExpired(_ context.Context, count int) {
	m.add("lots_expired", count)
}

type fixture struct {
	t       *testing.T
	ctx     context.Context
	db      *gorm.DB
	deps    appinv.Dependencies
	events  *recordingPublisher
	metrics *recordingMetrics
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", name)), &gorm.Config{
		Logger:                 logger.Default.LogMode(logger.Silent),
		SkipDefaultTransaction: true,
		TranslateError:         true,
		NowFunc:                func() time.Time { return today },
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, db.AutoMigrate(persistence.Models()...))

	registry, err := strategy.NewRegistryWithDefaults()
	require.NoError(t, err)

	clock := func() time.Time { return today }
	f := &fixture{
		t:       t,
		ctx:     context.Background(),
		db:      db,
		events:  &recordingPublisher{},
		metrics: newRecordingMetrics(),
	}
	f.deps = appinv.Dependencies{
		Scope:      persistence.NewGormTransactionScope(db, persistence.WithClock(clock)),
		Strategies: registry,
		Events:     f.events,
		Metrics:    f.metrics,
		Clock:      clock,
	}
	return f
}

func (f *fixture) depot(code string) uuid.UUID {
	f.t.Helper()
	d, err := catalog.NewDepot(code, "Depot "+code)
	require.NoError(f.t, err)
	require.NoError(f.t, persistence.NewGormDepotRepository(f.db).Save(f.ctx, d))
	return d.ID
}

func (f *fixture) article(code string, method catalog.ValuationMethod) uuid.UUID {
	f.t.Helper()
	a, err := catalog.NewArticle(code, "Article "+code, "unit", method)
	require.NoError(f.t, err)
	if method.UsesLots() {
		require.NoError(f.t, a.EnableLotTracking(nil))
	}
	require.NoError(f.t, persistence.NewGormArticleRepository(f.db).Save(f.ctx, a))
	return a.ID
}

func (f *fixture) ledger() *appinv.LedgerService {
	return appinv.NewLedgerService(f.deps)
}

func (f *fixture) receive(articleID, depotID uuid.UUID, qty, cost string, at time.Time) *appinv.MovementResponse {
	f.t.Helper()
	m, err := f.ledger().RecordMovement(f.ctx, appinv.RecordMovementRequest{
		Type:         inventory.MovementReceipt,
		ArticleID:    articleID,
		DepotID:      depotID,
		Quantity:     dec(qty),
		UnitCost:     dec(cost),
		MovementDate: at,
	})
	require.NoError(f.t, err)
	return m
}

func (f *fixture) sell(articleID, depotID uuid.UUID, qty string, at time.Time) *appinv.MovementResponse {
	f.t.Helper()
	m, err := f.ledger().RecordMovement(f.ctx, appinv.RecordMovementRequest{
		Type:         inventory.MovementSale,
		ArticleID:    articleID,
		DepotID:      depotID,
		Quantity:     dec(qty),
		MovementDate: at,
	})
	require.NoError(f.t, err)
	return m
}

func (f *fixture) stock(articleID, depotID uuid.UUID) *appinv.StockResponse {
	f.t.Helper()
	s, err := f.ledger().GetStock(f.ctx, articleID, depotID)
	require.NoError(f.t, err)
	return s
}

func dec(v string) decimal.Decimal {
	return decimal.RequireFromString(v)
}

func decPtr(v string) *decimal.Decimal {
	d := dec(v)
	return &d
}

func day(year int, month time.Month, d int) time.Time {
	return time.Date(year, month, d, 0, 0, 0, 0, time.UTC)
}

func assertDecimal(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	assert.Truef(t, dec(want).Equal(got), "want %s, got %s", want, got.String())
}
