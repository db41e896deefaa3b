package persistence

import (
	"context"
	"time"

	"github.com/erp/stockledger/internal/domain/inventory"
	"github.com/erp/stockledger/internal/domain/shared"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormLotRepository implements LotRepository using GORM
type GormLotRepository struct {
	db *gorm.DB
}

// NewGormLotRepository creates a new GormLotRepository
func NewGormLotRepository(db *gorm.DB) *GormLotRepository {
	return &GormLotRepository{db: db}
}

// FindByID finds a lot by its ID
func (r *GormLotRepository) FindByID(ctx context.Context, id uuid.UUID) (*inventory.Lot, error) {
	var lot inventory.Lot
	if err := r.db.WithContext(ctx).First(&lot, "id = ?", id).Error; err != nil {
		return nil, notFound(err)
	}
	return &lot, nil
}

// FindForUpdate finds a lot and locks its row
func (r *GormLotRepository) FindForUpdate(ctx context.Context, id uuid.UUID) (*inventory.Lot, error) {
	var lot inventory.Lot
	if err := forUpdate(r.db.WithContext(ctx)).First(&lot, "id = ?", id).Error; err != nil {
		return nil, notFound(err)
	}
	return &lot, nil
}

// FindByNumber finds a lot by its lot number
func (r *GormLotRepository) FindByNumber(ctx context.Context, lotNumber string) (*inventory.Lot, error) {
	var lot inventory.Lot
	if err := r.db.WithContext(ctx).First(&lot, "lot_number = ?", lotNumber).Error; err != nil {
		return nil, notFound(err)
	}
	return &lot, nil
}

// FindAvailable returns the consumable lots of an article, oldest first.
// Lots received before depots were recorded carry no depot and match any depot.
func (r *GormLotRepository) FindAvailable(ctx context.Context, articleID uuid.UUID, depotID *uuid.UUID) ([]inventory.Lot, error) {
	query := r.db.WithContext(ctx).
		Where("article_id = ? AND status = ? AND current_quantity > 0", articleID, inventory.LotStatusAvailable)
	if depotID != nil {
		query = query.Where("depot_id = ? OR depot_id IS NULL", *depotID)
	}

	var lots []inventory.Lot
	if err := query.Order("received_at ASC, lot_number ASC").Find(&lots).Error; err != nil {
		return nil, err
	}
	return lots, nil
}

// FindByArticle lists the lots of an article in any status
func (r *GormLotRepository) FindByArticle(ctx context.Context, articleID uuid.UUID, filter shared.Filter) ([]inventory.Lot, int64, error) {
	query := r.db.WithContext(ctx).Model(&inventory.Lot{}).Where("article_id = ?", articleID)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var lots []inventory.Lot
	if err := paginate(query, filter, LotSortFields, "received_at").Find(&lots).Error; err != nil {
		return nil, 0, err
	}
	return lots, total, nil
}

// FindExpiredCandidates returns available lots whose expiry date is on or before the day
func (r *GormLotRepository) FindExpiredCandidates(ctx context.Context, day time.Time) ([]inventory.Lot, error) {
	var lots []inventory.Lot
	if err := r.db.WithContext(ctx).
		Where("status = ? AND expiry_date IS NOT NULL AND expiry_date <= ?", inventory.LotStatusAvailable, day.UTC()).
		Order("expiry_date ASC").
		Find(&lots).Error; err != nil {
		return nil, err
	}
	return lots, nil
}

// FindExpiringBetween returns available lots with stock expiring in (from, to]
func (r *GormLotRepository) FindExpiringBetween(ctx context.Context, from, to time.Time) ([]inventory.Lot, error) {
	var lots []inventory.Lot
	if err := r.db.WithContext(ctx).
		Where("status = ? AND current_quantity > 0", inventory.LotStatusAvailable).
		Where("expiry_date > ? AND expiry_date <= ?", from.UTC(), to.UTC()).
		Order("expiry_date ASC").
		Find(&lots).Error; err != nil {
		return nil, err
	}
	return lots, nil
}

// Create inserts a lot; lot numbers are unique
func (r *GormLotRepository) Create(ctx context.Context, lot *inventory.Lot) error {
	err := r.db.WithContext(ctx).Create(lot).Error
	return duplicate(err, shared.NewDomainError(shared.CodeAlreadyExists, "Lot number "+lot.LotNumber+" already exists"))
}

// Save persists the lot with an optimistic version check
func (r *GormLotRepository) Save(ctx context.Context, lot *inventory.Lot) error {
	return saveVersioned(ctx, r.db, lot, &lot.BaseAggregateRoot, "lot")
}

var _ inventory.LotRepository = (*GormLotRepository)(nil)
