package persistence

import (
	"context"

	appclosing "github.com/erp/stockledger/internal/application/closing"
	"github.com/erp/stockledger/internal/domain/closing"
	"gorm.io/gorm"
)

// GormClosingScope implements the closing TransactionScope using GORM transactions
type GormClosingScope struct {
	db *gorm.DB
}

// NewGormClosingScope creates a new GormClosingScope
func NewGormClosingScope(db *gorm.DB) *GormClosingScope {
	return &GormClosingScope{db: db}
}

// Execute runs fn in a transaction with the period and snapshot repositories bound to it
func (s *GormClosingScope) Execute(ctx context.Context, fn func(repos appclosing.Repositories) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(closingRepositories{tx: tx})
	})
}

type closingRepositories struct {
	tx *gorm.DB
}

func (r closingRepositories) Periods() closing.PeriodRepository {
	return NewGormPeriodRepository(r.tx)
}

func (r closingRepositories) Snapshots() closing.SnapshotRepository {
	return NewGormSnapshotRepository(r.tx)
}

var (
	_ appclosing.TransactionScope = (*GormClosingScope)(nil)
	_ appclosing.Repositories     = closingRepositories{}
)
