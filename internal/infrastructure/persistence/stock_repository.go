package persistence

import (
	"context"

	"github.com/erp/stockledger/internal/domain/inventory"
	"github.com/erp/stockledger/internal/domain/shared"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormStockRepository implements StockRepository using GORM
type GormStockRepository struct {
	db *gorm.DB
}

// NewGormStockRepository creates a new GormStockRepository
func NewGormStockRepository(db *gorm.DB) *GormStockRepository {
	return &GormStockRepository{db: db}
}

// FindForUpdate loads a position and locks its row until the transaction ends
func (r *GormStockRepository) FindForUpdate(ctx context.Context, articleID, depotID uuid.UUID) (*inventory.Stock, error) {
	var stock inventory.Stock
	err := forUpdate(r.db.WithContext(ctx)).
		Where("article_id = ? AND depot_id = ?", articleID, depotID).
		First(&stock).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &stock, nil
}

// FindByArticleAndDepot loads a position without locking
func (r *GormStockRepository) FindByArticleAndDepot(ctx context.Context, articleID, depotID uuid.UUID) (*inventory.Stock, error) {
	var stock inventory.Stock
	err := r.db.WithContext(ctx).
		Where("article_id = ? AND depot_id = ?", articleID, depotID).
		First(&stock).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &stock, nil
}

// FindByArticle returns the positions of an article in every depot
func (r *GormStockRepository) FindByArticle(ctx context.Context, articleID uuid.UUID) ([]inventory.Stock, error) {
	var stocks []inventory.Stock
	if err := r.db.WithContext(ctx).
		Where("article_id = ?", articleID).
		Order("created_at ASC").
		Find(&stocks).Error; err != nil {
		return nil, err
	}
	return stocks, nil
}

// FindByDepot returns the positions held in a depot
func (r *GormStockRepository) FindByDepot(ctx context.Context, depotID uuid.UUID) ([]inventory.Stock, error) {
	var stocks []inventory.Stock
	if err := r.db.WithContext(ctx).
		Where("depot_id = ?", depotID).
		Order("created_at ASC").
		Find(&stocks).Error; err != nil {
		return nil, err
	}
	return stocks, nil
}

// FindAll returns every position
func (r *GormStockRepository) FindAll(ctx context.Context) ([]inventory.Stock, error) {
	var stocks []inventory.Stock
	if err := r.db.WithContext(ctx).
		Order("depot_id ASC, article_id ASC").
		Find(&stocks).Error; err != nil {
		return nil, err
	}
	return stocks, nil
}

// Create inserts a position. Two writers creating the same (article, depot)
// collide on the unique index; the loser retries and finds the row.
func (r *GormStockRepository) Create(ctx context.Context, stock *inventory.Stock) error {
	err := r.db.WithContext(ctx).Create(stock).Error
	return duplicate(err, shared.ErrConcurrencyConflict)
}

// Save persists the position with an optimistic version check
func (r *GormStockRepository) Save(ctx context.Context, stock *inventory.Stock) error {
	return saveVersioned(ctx, r.db, stock, &stock.BaseAggregateRoot, "stock")
}

var _ inventory.StockRepository = (*GormStockRepository)(nil)
