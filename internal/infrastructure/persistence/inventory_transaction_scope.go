package persistence

import (
	"context"
	"time"

	appinv "github.com/erp/stockledger/internal/application/inventory"
	"github.com/erp/stockledger/internal/domain/catalog"
	"github.com/erp/stockledger/internal/domain/closing"
	"github.com/erp/stockledger/internal/domain/inventory"
	"github.com/erp/stockledger/internal/domain/shared"
	"github.com/erp/stockledger/internal/infrastructure/sequence"
	"gorm.io/gorm"
)

// ScopeOption configures a GormTransactionScope
type ScopeOption func(*GormTransactionScope)

// WithSequenceGenerator replaces the database counters with another generator, such as Redis
func WithSequenceGenerator(gen shared.SequenceGenerator) ScopeOption {
	return func(s *GormTransactionScope) {
		s.override = gen
	}
}

// WithClock sets the clock deciding the year of references
func WithClock(clock func() time.Time) ScopeOption {
	return func(s *GormTransactionScope) {
		s.sequences = sequence.NewDBGenerator(s.db, clock)
	}
}

// GormTransactionScope implements TransactionScope using GORM transactions.
// It provides atomic execution of multiple repository operations.
type GormTransactionScope struct {
	db        *gorm.DB
	sequences *sequence.DBGenerator
	override  shared.SequenceGenerator
}

// NewGormTransactionScope creates a new GormTransactionScope.
func NewGormTransactionScope(db *gorm.DB, opts ...ScopeOption) *GormTransactionScope {
	s := &GormTransactionScope{db: db, sequences: sequence.NewDBGenerator(db, nil)}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Execute runs the given function within a database transaction.
// If the function returns an error, the transaction is rolled back.
// If the function succeeds, the transaction is committed.
func (s *GormTransactionScope) Execute(ctx context.Context, fn func(repos appinv.TransactionalRepositories) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var gen shared.SequenceGenerator = s.sequences.WithDB(tx)
		if s.override != nil {
			gen = s.override
		}
		return fn(&gormTransactionalRepositories{tx: tx, sequences: gen})
	})
}

// gormTransactionalRepositories provides access to all repositories within a transaction.
type gormTransactionalRepositories struct {
	tx        *gorm.DB
	sequences shared.SequenceGenerator
}

func (r *gormTransactionalRepositories) Stocks() inventory.StockRepository {
	return NewGormStockRepository(r.tx)
}

func (r *gormTransactionalRepositories) Lots() inventory.LotRepository {
	return NewGormLotRepository(r.tx)
}

func (r *gormTransactionalRepositories) Movements() inventory.MovementRepository {
	return NewGormMovementRepository(r.tx)
}

func (r *gormTransactionalRepositories) Reservations() inventory.ReservationRepository {
	return NewGormReservationRepository(r.tx)
}

func (r *gormTransactionalRepositories) Campaigns() inventory.CampaignRepository {
	return NewGormCampaignRepository(r.tx)
}

func (r *gormTransactionalRepositories) Adjustments() inventory.AdjustmentRepository {
	return NewGormAdjustmentRepository(r.tx)
}

func (r *gormTransactionalRepositories) Transfers() inventory.TransferRepository {
	return NewGormTransferRepository(r.tx)
}

func (r *gormTransactionalRepositories) Articles() catalog.ArticleRepository {
	return NewGormArticleRepository(r.tx)
}

func (r *gormTransactionalRepositories) Depots() catalog.DepotRepository {
	return NewGormDepotRepository(r.tx)
}

// Periods is read here only to refuse movements dated in a locked period
func (r *gormTransactionalRepositories) Periods() closing.PeriodRepository {
	return NewGormPeriodRepository(r.tx)
}

// Sequences returns the reference generator, joined to the transaction unless overridden
func (r *gormTransactionalRepositories) Sequences() shared.SequenceGenerator {
	return r.sequences
}

// Ensure GormTransactionScope implements TransactionScope
var _ appinv.TransactionScope = (*GormTransactionScope)(nil)

// Ensure gormTransactionalRepositories implements TransactionalRepositories
var _ appinv.TransactionalRepositories = (*gormTransactionalRepositories)(nil)
