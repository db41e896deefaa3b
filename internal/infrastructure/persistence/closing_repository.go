package persistence

import (
	"context"
	"time"

	"github.com/erp/stockledger/internal/domain/closing"
	"github.com/erp/stockledger/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// lockingStatuses are the period statuses that refuse new movements
var lockingStatuses = []closing.PeriodStatus{
	closing.PeriodInProgress,
	closing.PeriodClosed,
	closing.PeriodValidated,
}

// GormPeriodRepository implements PeriodRepository using GORM
type GormPeriodRepository struct {
	db *gorm.DB
}

// NewGormPeriodRepository creates a new GormPeriodRepository
func NewGormPeriodRepository(db *gorm.DB) *GormPeriodRepository {
	return &GormPeriodRepository{db: db}
}

// FindByID finds a period by its ID
func (r *GormPeriodRepository) FindByID(ctx context.Context, id uuid.UUID) (*closing.PeriodClosing, error) {
	var p closing.PeriodClosing
	if err := r.db.WithContext(ctx).First(&p, "id = ?", id).Error; err != nil {
		return nil, notFound(err)
	}
	return &p, nil
}

// FindForUpdate finds a period and locks its row
func (r *GormPeriodRepository) FindForUpdate(ctx context.Context, id uuid.UUID) (*closing.PeriodClosing, error) {
	var p closing.PeriodClosing
	if err := forUpdate(r.db.WithContext(ctx)).First(&p, "id = ?", id).Error; err != nil {
		return nil, notFound(err)
	}
	return &p, nil
}

// FindByYearMonth finds the period of a calendar month
func (r *GormPeriodRepository) FindByYearMonth(ctx context.Context, year, month int) (*closing.PeriodClosing, error) {
	var p closing.PeriodClosing
	if err := r.db.WithContext(ctx).First(&p, "year = ? AND month = ?", year, month).Error; err != nil {
		return nil, notFound(err)
	}
	return &p, nil
}

// FindPreviousValidated returns the latest validated period strictly before (year, month)
func (r *GormPeriodRepository) FindPreviousValidated(ctx context.Context, year, month int) (*closing.PeriodClosing, error) {
	var p closing.PeriodClosing
	err := r.db.WithContext(ctx).
		Where("status = ?", closing.PeriodValidated).
		Where("year < ? OR (year = ? AND month < ?)", year, year, month).
		Order("year DESC, month DESC").
		First(&p).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &p, nil
}

// FindLockingDate returns the period of the date's month when its status refuses movements
func (r *GormPeriodRepository) FindLockingDate(ctx context.Context, date time.Time) (*closing.PeriodClosing, error) {
	utc := date.UTC()
	var p closing.PeriodClosing
	err := r.db.WithContext(ctx).
		Where("year = ? AND month = ? AND status IN ?", utc.Year(), int(utc.Month()), lockingStatuses).
		First(&p).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &p, nil
}

// FindAll returns a page of periods, latest first by default
func (r *GormPeriodRepository) FindAll(ctx context.Context, filter shared.Filter) ([]closing.PeriodClosing, int64, error) {
	query := r.db.WithContext(ctx).Model(&closing.PeriodClosing{})

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var periods []closing.PeriodClosing
	if err := paginate(query, filter, PeriodSortFields, "created_at").Find(&periods).Error; err != nil {
		return nil, 0, err
	}
	return periods, total, nil
}

// Create inserts a period; one period exists per month
func (r *GormPeriodRepository) Create(ctx context.Context, p *closing.PeriodClosing) error {
	err := r.db.WithContext(ctx).Create(p).Error
	return duplicate(err, shared.NewDomainError(shared.CodeAlreadyExists, "Period "+p.Label()+" already exists"))
}

// Save persists the period with an optimistic version check
func (r *GormPeriodRepository) Save(ctx context.Context, p *closing.PeriodClosing) error {
	return saveVersioned(ctx, r.db, p, &p.BaseAggregateRoot, "period")
}

// GormSnapshotRepository implements SnapshotRepository using GORM
type GormSnapshotRepository struct {
	db *gorm.DB
}

// NewGormSnapshotRepository creates a new GormSnapshotRepository
func NewGormSnapshotRepository(db *gorm.DB) *GormSnapshotRepository {
	return &GormSnapshotRepository{db: db}
}

// Upsert writes a snapshot, overwriting the figures of an existing (period, article, depot) row
func (r *GormSnapshotRepository) Upsert(ctx context.Context, s *closing.CostSnapshot) error {
	updates := clause.AssignmentColumns([]string{
		"quantity", "unit_cost", "total_value", "method", "snapshot_date", "updated_at",
	})
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "period_id"}, {Name: "article_id"}, {Name: "depot_id"}},
			DoUpdates: updates,
		}).
		Create(s).Error
}

// DeleteByPeriod removes every snapshot of a period
func (r *GormSnapshotRepository) DeleteByPeriod(ctx context.Context, periodID uuid.UUID) (int64, error) {
	result := r.db.WithContext(ctx).Where("period_id = ?", periodID).Delete(&closing.CostSnapshot{})
	return result.RowsAffected, result.Error
}

// FindByPeriod returns a page of the snapshots of a period
func (r *GormSnapshotRepository) FindByPeriod(ctx context.Context, periodID uuid.UUID, filter shared.Filter) ([]closing.CostSnapshot, int64, error) {
	query := r.db.WithContext(ctx).Model(&closing.CostSnapshot{}).Where("period_id = ?", periodID)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var snapshots []closing.CostSnapshot
	if err := paginate(query, filter, SnapshotSortFields, "created_at").Find(&snapshots).Error; err != nil {
		return nil, 0, err
	}
	return snapshots, total, nil
}

// CountByPeriod counts the snapshots of a period
func (r *GormSnapshotRepository) CountByPeriod(ctx context.Context, periodID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&closing.CostSnapshot{}).Where("period_id = ?", periodID).Count(&count).Error
	return count, err
}

// SumValueByPeriod totals the value of the snapshots of a period
func (r *GormSnapshotRepository) SumValueByPeriod(ctx context.Context, periodID uuid.UUID) (decimal.Decimal, error) {
	var row struct {
		Total decimal.NullDecimal
	}
	err := r.db.WithContext(ctx).
		Model(&closing.CostSnapshot{}).
		Select("SUM(total_value) AS total").
		Where("period_id = ?", periodID).
		Scan(&row).Error
	if err != nil {
		return decimal.Zero, err
	}
	if !row.Total.Valid {
		return decimal.Zero, nil
	}
	return row.Total.Decimal, nil
}

var (
	_ closing.PeriodRepository   = (*GormPeriodRepository)(nil)
	_ closing.SnapshotRepository = (*GormSnapshotRepository)(nil)
)
