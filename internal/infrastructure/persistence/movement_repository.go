package persistence

import (
	"context"
	"time"

	"github.com/erp/stockledger/internal/domain/inventory"
	"github.com/erp/stockledger/internal/domain/shared"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormMovementRepository implements MovementRepository using GORM.
// Lot lines live in their own table and travel with the movement.
type GormMovementRepository struct {
	db *gorm.DB
}

// NewGormMovementRepository creates a new GormMovementRepository
func NewGormMovementRepository(db *gorm.DB) *GormMovementRepository {
	return &GormMovementRepository{db: db}
}

// FindByID finds a movement with its lot lines
func (r *GormMovementRepository) FindByID(ctx context.Context, id uuid.UUID) (*inventory.StockMovement, error) {
	var m inventory.StockMovement
	if err := r.db.WithContext(ctx).First(&m, "id = ?", id).Error; err != nil {
		return nil, notFound(err)
	}
	if err := r.loadLines(ctx, &m); err != nil {
		return nil, err
	}
	return &m, nil
}

// FindForUpdate finds a movement with its lot lines and locks the movement row
func (r *GormMovementRepository) FindForUpdate(ctx context.Context, id uuid.UUID) (*inventory.StockMovement, error) {
	var m inventory.StockMovement
	if err := forUpdate(r.db.WithContext(ctx)).First(&m, "id = ?", id).Error; err != nil {
		return nil, notFound(err)
	}
	if err := r.loadLines(ctx, &m); err != nil {
		return nil, err
	}
	return &m, nil
}

// FindByReference finds a movement by its reference
func (r *GormMovementRepository) FindByReference(ctx context.Context, reference string) (*inventory.StockMovement, error) {
	var m inventory.StockMovement
	if err := r.db.WithContext(ctx).First(&m, "reference = ?", reference).Error; err != nil {
		return nil, notFound(err)
	}
	if err := r.loadLines(ctx, &m); err != nil {
		return nil, err
	}
	return &m, nil
}

// Create inserts the movement and its lot lines
func (r *GormMovementRepository) Create(ctx context.Context, m *inventory.StockMovement) error {
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		return duplicate(err, shared.NewDomainError(shared.CodeAlreadyExists, "Movement reference "+m.Reference+" already exists"))
	}
	return r.insertLines(ctx, m)
}

// Save persists status changes and appends lot lines added since the last write.
// Existing lines are never rewritten.
func (r *GormMovementRepository) Save(ctx context.Context, m *inventory.StockMovement) error {
	if err := saveVersioned(ctx, r.db, m, &m.BaseAggregateRoot, "movement"); err != nil {
		return err
	}
	return r.insertLines(ctx, m)
}

// List returns a page of movements matching the filter
func (r *GormMovementRepository) List(ctx context.Context, filter inventory.MovementFilter) ([]inventory.StockMovement, int64, error) {
	query := r.db.WithContext(ctx).Model(&inventory.StockMovement{})
	if filter.ArticleID != nil {
		query = query.Where("article_id = ?", *filter.ArticleID)
	}
	if filter.DepotID != nil {
		query = query.Where("depot_id = ?", *filter.DepotID)
	}
	if filter.Type != "" {
		query = query.Where("type = ?", filter.Type)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.From != nil {
		query = query.Where("accounting_date >= ?", filter.From.UTC())
	}
	if filter.To != nil {
		query = query.Where("accounting_date <= ?", filter.To.UTC())
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var movements []inventory.StockMovement
	if err := paginate(query, filter.Filter, MovementSortFields, "created_at").Find(&movements).Error; err != nil {
		return nil, 0, err
	}
	return movements, total, nil
}

// FindValidatedForPosition returns the posted movements of a position in accounting order.
// Cancelled originals stay in the result: their effect is undone by a reversal that is also returned.
func (r *GormMovementRepository) FindValidatedForPosition(ctx context.Context, articleID, depotID uuid.UUID, from, to *time.Time) ([]inventory.StockMovement, error) {
	query := r.db.WithContext(ctx).
		Where("article_id = ? AND depot_id = ?", articleID, depotID).
		Where("status IN ?", []inventory.MovementStatus{inventory.MovementStatusValidated, inventory.MovementStatusCancelled}).
		Where("validated_at IS NOT NULL")
	if from != nil {
		query = query.Where("accounting_date >= ?", from.UTC())
	}
	if to != nil {
		query = query.Where("accounting_date <= ?", to.UTC())
	}

	var movements []inventory.StockMovement
	if err := query.Order("accounting_date ASC, validated_at ASC").Find(&movements).Error; err != nil {
		return nil, err
	}
	return movements, nil
}

func (r *GormMovementRepository) loadLines(ctx context.Context, m *inventory.StockMovement) error {
	var lines []inventory.MovementLotLine
	if err := r.db.WithContext(ctx).
		Where("movement_id = ?", m.ID).
		Order("created_at ASC").
		Find(&lines).Error; err != nil {
		return err
	}
	m.LotLines = lines
	return nil
}

func (r *GormMovementRepository) insertLines(ctx context.Context, m *inventory.StockMovement) error {
	if len(m.LotLines) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "id"}}, DoNothing: true}).
		Create(&m.LotLines).Error
}

var _ inventory.MovementRepository = (*GormMovementRepository)(nil)
