package catalog

import (
	"context"

	"github.com/erp/stockledger/internal/domain/shared"
	"github.com/google/uuid"
)

// ArticleRepository defines persistence for articles
type ArticleRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Article, error)
	FindByCode(ctx context.Context, code string) (*Article, error)
	FindAll(ctx context.Context, filter shared.Filter) ([]Article, int64, error)
	Save(ctx context.Context, article *Article) error
}

// DepotRepository defines persistence for depots
type DepotRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Depot, error)
	FindByCode(ctx context.Context, code string) (*Depot, error)
	FindAll(ctx context.Context, filter shared.Filter) ([]Depot, int64, error)
	Save(ctx context.Context, depot *Depot) error
}
