package persistence

import (
	"context"

	"github.com/erp/stockledger/internal/domain/inventory"
	"github.com/erp/stockledger/internal/domain/shared"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormTransferRepository implements TransferRepository using GORM
type GormTransferRepository struct {
	db *gorm.DB
}

// NewGormTransferRepository creates a new GormTransferRepository
func NewGormTransferRepository(db *gorm.DB) *GormTransferRepository {
	return &GormTransferRepository{db: db}
}

// FindByID finds a transfer with its lines
func (r *GormTransferRepository) FindByID(ctx context.Context, id uuid.UUID) (*inventory.Transfer, error) {
	return r.find(ctx, r.db.WithContext(ctx), id)
}

// FindForUpdate finds a transfer with its lines and locks the transfer row
func (r *GormTransferRepository) FindForUpdate(ctx context.Context, id uuid.UUID) (*inventory.Transfer, error) {
	return r.find(ctx, forUpdate(r.db.WithContext(ctx)), id)
}

func (r *GormTransferRepository) find(ctx context.Context, query *gorm.DB, id uuid.UUID) (*inventory.Transfer, error) {
	var t inventory.Transfer
	if err := query.First(&t, "id = ?", id).Error; err != nil {
		return nil, notFound(err)
	}
	var lines []inventory.TransferLine
	if err := r.db.WithContext(ctx).
		Where("transfer_id = ?", t.ID).
		Order("created_at ASC").
		Find(&lines).Error; err != nil {
		return nil, err
	}
	t.Lines = lines
	return &t, nil
}

// Create inserts the transfer and its lines
func (r *GormTransferRepository) Create(ctx context.Context, t *inventory.Transfer) error {
	if err := r.db.WithContext(ctx).Create(t).Error; err != nil {
		return duplicate(err, shared.NewDomainError(shared.CodeAlreadyExists, "Transfer reference "+t.Reference+" already exists"))
	}
	return r.upsertLines(ctx, t)
}

// Save persists the transfer with a version check and upserts its lines,
// which carry the movements written when shipping and receiving
func (r *GormTransferRepository) Save(ctx context.Context, t *inventory.Transfer) error {
	if err := saveVersioned(ctx, r.db, t, &t.BaseAggregateRoot, "transfer"); err != nil {
		return err
	}
	return r.upsertLines(ctx, t)
}

func (r *GormTransferRepository) upsertLines(ctx context.Context, t *inventory.Transfer) error {
	if len(t.Lines) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "id"}}, UpdateAll: true}).
		Create(&t.Lines).Error
}

var _ inventory.TransferRepository = (*GormTransferRepository)(nil)
