package persistence

import (
	"context"

	"github.com/erp/stockledger/internal/domain/inventory"
	"github.com/erp/stockledger/internal/domain/shared"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormCampaignRepository implements CampaignRepository using GORM
type GormCampaignRepository struct {
	db *gorm.DB
}

// NewGormCampaignRepository creates a new GormCampaignRepository
func NewGormCampaignRepository(db *gorm.DB) *GormCampaignRepository {
	return &GormCampaignRepository{db: db}
}

// FindByID finds a campaign with its lines
func (r *GormCampaignRepository) FindByID(ctx context.Context, id uuid.UUID) (*inventory.InventoryCampaign, error) {
	var c inventory.InventoryCampaign
	if err := r.db.WithContext(ctx).First(&c, "id = ?", id).Error; err != nil {
		return nil, notFound(err)
	}
	if err := r.loadLines(ctx, &c); err != nil {
		return nil, err
	}
	return &c, nil
}

// FindForUpdate finds a campaign with its lines and locks the campaign row.
// Lines are only written through the campaign, so the one lock covers them.
func (r *GormCampaignRepository) FindForUpdate(ctx context.Context, id uuid.UUID) (*inventory.InventoryCampaign, error) {
	var c inventory.InventoryCampaign
	if err := forUpdate(r.db.WithContext(ctx)).First(&c, "id = ?", id).Error; err != nil {
		return nil, notFound(err)
	}
	if err := r.loadLines(ctx, &c); err != nil {
		return nil, err
	}
	return &c, nil
}

// FindAll lists campaigns without their lines, optionally for one depot
func (r *GormCampaignRepository) FindAll(ctx context.Context, depotID *uuid.UUID, filter shared.Filter) ([]inventory.InventoryCampaign, int64, error) {
	query := r.db.WithContext(ctx).Model(&inventory.InventoryCampaign{})
	if depotID != nil {
		query = query.Where("depot_id = ?", *depotID)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var campaigns []inventory.InventoryCampaign
	if err := paginate(query, filter, CampaignSortFields, "created_at").Find(&campaigns).Error; err != nil {
		return nil, 0, err
	}
	return campaigns, total, nil
}

// Create inserts the campaign and its lines
func (r *GormCampaignRepository) Create(ctx context.Context, c *inventory.InventoryCampaign) error {
	if err := r.db.WithContext(ctx).Create(c).Error; err != nil {
		return err
	}
	return r.upsertLines(ctx, c)
}

// Save persists the campaign with a version check, then upserts its lines
func (r *GormCampaignRepository) Save(ctx context.Context, c *inventory.InventoryCampaign) error {
	if err := saveVersioned(ctx, r.db, c, &c.BaseAggregateRoot, "inventory campaign"); err != nil {
		return err
	}
	return r.upsertLines(ctx, c)
}

func (r *GormCampaignRepository) loadLines(ctx context.Context, c *inventory.InventoryCampaign) error {
	var lines []inventory.InventoryLine
	if err := r.db.WithContext(ctx).
		Where("campaign_id = ?", c.ID).
		Order("created_at ASC, article_id ASC").
		Find(&lines).Error; err != nil {
		return err
	}
	c.Lines = lines
	return nil
}

func (r *GormCampaignRepository) upsertLines(ctx context.Context, c *inventory.InventoryCampaign) error {
	if len(c.Lines) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "id"}}, UpdateAll: true}).
		CreateInBatches(&c.Lines, 200).Error
}

// GormAdjustmentRepository implements AdjustmentRepository using GORM
type GormAdjustmentRepository struct {
	db *gorm.DB
}

// NewGormAdjustmentRepository creates a new GormAdjustmentRepository
func NewGormAdjustmentRepository(db *gorm.DB) *GormAdjustmentRepository {
	return &GormAdjustmentRepository{db: db}
}

// FindByID finds an adjustment by its ID
func (r *GormAdjustmentRepository) FindByID(ctx context.Context, id uuid.UUID) (*inventory.InventoryAdjustment, error) {
	var adj inventory.InventoryAdjustment
	if err := r.db.WithContext(ctx).First(&adj, "id = ?", id).Error; err != nil {
		return nil, notFound(err)
	}
	return &adj, nil
}

// FindByCampaign returns the adjustments of a campaign
func (r *GormAdjustmentRepository) FindByCampaign(ctx context.Context, campaignID uuid.UUID) ([]inventory.InventoryAdjustment, error) {
	var adjustments []inventory.InventoryAdjustment
	if err := r.db.WithContext(ctx).
		Where("campaign_id = ?", campaignID).
		Order("created_at ASC").
		Find(&adjustments).Error; err != nil {
		return nil, err
	}
	return adjustments, nil
}

// CountPending counts adjustments still waiting for a second validator
func (r *GormAdjustmentRepository) CountPending(ctx context.Context, campaignID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&inventory.InventoryAdjustment{}).
		Where("campaign_id = ? AND status = ?", campaignID, inventory.AdjustmentPendingSecondValidation).
		Count(&count).Error
	return count, err
}

// Save creates or updates an adjustment. One line yields at most one adjustment.
func (r *GormAdjustmentRepository) Save(ctx context.Context, adj *inventory.InventoryAdjustment) error {
	err := r.db.WithContext(ctx).Save(adj).Error
	return duplicate(err, shared.NewDomainError(shared.CodeAlreadyExists, "Line already has an adjustment"))
}

var (
	_ inventory.CampaignRepository   = (*GormCampaignRepository)(nil)
	_ inventory.AdjustmentRepository = (*GormAdjustmentRepository)(nil)
)
