package closing

import (
	"context"
	"time"

	"github.com/erp/stockledger/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PeriodRepository defines persistence for monthly closings
type PeriodRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*PeriodClosing, error)
	FindForUpdate(ctx context.Context, id uuid.UUID) (*PeriodClosing, error)
	FindByYearMonth(ctx context.Context, year, month int) (*PeriodClosing, error)

	// FindPreviousValidated returns the latest VALIDATED period strictly before (year, month)
	FindPreviousValidated(ctx context.Context, year, month int) (*PeriodClosing, error)

	// FindLockingDate returns the period containing the date when it locks movements
	FindLockingDate(ctx context.Context, date time.Time) (*PeriodClosing, error)

	FindAll(ctx context.Context, filter shared.Filter) ([]PeriodClosing, int64, error)
	Create(ctx context.Context, period *PeriodClosing) error
	Save(ctx context.Context, period *PeriodClosing) error
}

// SnapshotRepository defines persistence for cost snapshots
type SnapshotRepository interface {
	// Upsert writes the snapshot, replacing any row with the same (period, article, depot)
	Upsert(ctx context.Context, snapshot *CostSnapshot) error
	DeleteByPeriod(ctx context.Context, periodID uuid.UUID) (int64, error)
	FindByPeriod(ctx context.Context, periodID uuid.UUID, filter shared.Filter) ([]CostSnapshot, int64, error)
	CountByPeriod(ctx context.Context, periodID uuid.UUID) (int64, error)
	SumValueByPeriod(ctx context.Context, periodID uuid.UUID) (decimal.Decimal, error)
}
