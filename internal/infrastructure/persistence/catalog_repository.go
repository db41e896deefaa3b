package persistence

import (
	"context"

	"github.com/erp/stockledger/internal/domain/catalog"
	"github.com/erp/stockledger/internal/domain/shared"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormArticleRepository implements ArticleRepository using GORM
type GormArticleRepository struct {
	db *gorm.DB
}

// NewGormArticleRepository creates a new GormArticleRepository
func NewGormArticleRepository(db *gorm.DB) *GormArticleRepository {
	return &GormArticleRepository{db: db}
}

// FindByID finds an article by its ID
func (r *GormArticleRepository) FindByID(ctx context.Context, id uuid.UUID) (*catalog.Article, error) {
	var article catalog.Article
	if err := r.db.WithContext(ctx).First(&article, "id = ?", id).Error; err != nil {
		return nil, notFound(err)
	}
	return &article, nil
}

// FindByCode finds an article by its code
func (r *GormArticleRepository) FindByCode(ctx context.Context, code string) (*catalog.Article, error) {
	var article catalog.Article
	if err := r.db.WithContext(ctx).First(&article, "code = ?", code).Error; err != nil {
		return nil, notFound(err)
	}
	return &article, nil
}

// FindAll returns a page of articles
func (r *GormArticleRepository) FindAll(ctx context.Context, filter shared.Filter) ([]catalog.Article, int64, error) {
	query := r.db.WithContext(ctx).Model(&catalog.Article{})

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var articles []catalog.Article
	if err := paginate(query, filter, ArticleSortFields, "code").Find(&articles).Error; err != nil {
		return nil, 0, err
	}
	return articles, total, nil
}

// Save creates or updates an article
func (r *GormArticleRepository) Save(ctx context.Context, article *catalog.Article) error {
	err := r.db.WithContext(ctx).Save(article).Error
	return duplicate(err, shared.NewDomainError(shared.CodeAlreadyExists, "Article with this code already exists"))
}

// GormDepotRepository implements DepotRepository using GORM
type GormDepotRepository struct {
	db *gorm.DB
}

// NewGormDepotRepository creates a new GormDepotRepository
func NewGormDepotRepository(db *gorm.DB) *GormDepotRepository {
	return &GormDepotRepository{db: db}
}

// FindByID finds a depot by its ID
func (r *GormDepotRepository) FindByID(ctx context.Context, id uuid.UUID) (*catalog.Depot, error) {
	var depot catalog.Depot
	if err := r.db.WithContext(ctx).First(&depot, "id = ?", id).Error; err != nil {
		return nil, notFound(err)
	}
	return &depot, nil
}

// FindByCode finds a depot by its code
func (r *GormDepotRepository) FindByCode(ctx context.Context, code string) (*catalog.Depot, error) {
	var depot catalog.Depot
	if err := r.db.WithContext(ctx).First(&depot, "code = ?", code).Error; err != nil {
		return nil, notFound(err)
	}
	return &depot, nil
}

// FindAll returns a page of depots
func (r *GormDepotRepository) FindAll(ctx context.Context, filter shared.Filter) ([]catalog.Depot, int64, error) {
	query := r.db.WithContext(ctx).Model(&catalog.Depot{})

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var depots []catalog.Depot
	if err := paginate(query, filter, DepotSortFields, "code").Find(&depots).Error; err != nil {
		return nil, 0, err
	}
	return depots, total, nil
}

// Save creates or updates a depot
func (r *GormDepotRepository) Save(ctx context.Context, depot *catalog.Depot) error {
	err := r.db.WithContext(ctx).Save(depot).Error
	return duplicate(err, shared.NewDomainError(shared.CodeAlreadyExists, "Depot with this code already exists"))
}

var (
	_ catalog.ArticleRepository = (*GormArticleRepository)(nil)
	_ catalog.DepotRepository   = (*GormDepotRepository)(nil)
)
