package catalog

import (
	"context"
	"errors"
	"strings"

	"github.com/erp/stockledger/internal/domain/catalog"
	"github.com/erp/stockledger/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CatalogService handles article and depot reference data
type CatalogService struct {
	articleRepo catalog.ArticleRepository
	depotRepo   catalog.DepotRepository
}

// NewCatalogService creates a new CatalogService
func NewCatalogService(articleRepo catalog.ArticleRepository, depotRepo catalog.DepotRepository) *CatalogService {
	return &CatalogService{
		articleRepo: articleRepo,
		depotRepo:   depotRepo,
	}
}

// CreateArticle creates a new article
func (s *CatalogService) CreateArticle(ctx context.Context, req CreateArticleRequest) (*ArticleResponse, error) {
	// Check if code already exists
	if _, err := s.articleRepo.FindByCode(ctx, strings.ToUpper(strings.TrimSpace(req.Code))); err == nil {
		return nil, shared.NewDomainError(shared.CodeAlreadyExists, "Article with this code already exists")
	} else if !errors.Is(err, shared.ErrNotFound) {
		return nil, err
	}

	article, err := catalog.NewArticle(req.Code, req.Name, req.Unit, catalog.ValuationMethod(req.ValuationMethod))
	if err != nil {
		return nil, err
	}
	article.SerialTracked = req.SerialTracked

	// FIFO and FEFO value stock from lots, so they imply lot tracking
	if req.LotTracked || req.ShelfLifeDays != nil || article.ValuationMethod.UsesLots() {
		if err := article.EnableLotTracking(req.ShelfLifeDays); err != nil {
			return nil, err
		}
	}

	if req.MinStock != nil || req.MaxStock != nil || req.SafetyStock != nil {
		if err := article.SetThresholds(orZero(req.MinStock), orZero(req.MaxStock), orZero(req.SafetyStock)); err != nil {
			return nil, err
		}
	}
	if req.StandardCost != nil {
		if err := article.SetStandardCost(*req.StandardCost); err != nil {
			return nil, err
		}
	}

	if err := s.articleRepo.Save(ctx, article); err != nil {
		return nil, err
	}

	response := ToArticleResponse(article)
	return &response, nil
}

// GetArticle retrieves an article by ID
func (s *CatalogService) GetArticle(ctx context.Context, id uuid.UUID) (*ArticleResponse, error) {
	article, err := s.articleRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	response := ToArticleResponse(article)
	return &response, nil
}

// GetArticleByCode retrieves an article by its code
func (s *CatalogService) GetArticleByCode(ctx context.Context, code string) (*ArticleResponse, error) {
	article, err := s.articleRepo.FindByCode(ctx, strings.ToUpper(code))
	if err != nil {
		return nil, err
	}
	response := ToArticleResponse(article)
	return &response, nil
}

// ListArticles lists articles with pagination
func (s *CatalogService) ListArticles(ctx context.Context, f ListFilter) (*shared.Paginated[ArticleResponse], error) {
	filter := toFilter(f)
	articles, total, err := s.articleRepo.FindAll(ctx, filter)
	if err != nil {
		return nil, err
	}
	page := shared.NewPaginated(ToArticleResponses(articles), total, filter.Page, filter.PageSize)
	return &page, nil
}

// CreateDepot creates a new depot
func (s *CatalogService) CreateDepot(ctx context.Context, req CreateDepotRequest) (*DepotResponse, error) {
	if _, err := s.depotRepo.FindByCode(ctx, strings.ToUpper(strings.TrimSpace(req.Code))); err == nil {
		return nil, shared.NewDomainError(shared.CodeAlreadyExists, "Depot with this code already exists")
	} else if !errors.Is(err, shared.ErrNotFound) {
		return nil, err
	}

	depot, err := catalog.NewDepot(req.Code, req.Name)
	if err != nil {
		return nil, err
	}
	depot.Address = req.Address

	if err := s.depotRepo.Save(ctx, depot); err != nil {
		return nil, err
	}
	response := ToDepotResponse(depot)
	return &response, nil
}

// GetDepot retrieves a depot by ID
func (s *CatalogService) GetDepot(ctx context.Context, id uuid.UUID) (*DepotResponse, error) {
	depot, err := s.depotRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	response := ToDepotResponse(depot)
	return &response, nil
}

// ListDepots lists depots with pagination
func (s *CatalogService) ListDepots(ctx context.Context, f ListFilter) (*shared.Paginated[DepotResponse], error) {
	filter := toFilter(f)
	depots, total, err := s.depotRepo.FindAll(ctx, filter)
	if err != nil {
		return nil, err
	}
	page := shared.NewPaginated(ToDepotResponses(depots), total, filter.Page, filter.PageSize)
	return &page, nil
}

// DeactivateDepot stops a depot from receiving stock. Existing positions stay readable.
func (s *CatalogService) DeactivateDepot(ctx context.Context, id uuid.UUID) (*DepotResponse, error) {
	depot, err := s.depotRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !depot.Active {
		return nil, shared.NewDomainError(shared.CodeInvalidState, "Depot is already inactive")
	}
	depot.Deactivate()
	if err := s.depotRepo.Save(ctx, depot); err != nil {
		return nil, err
	}
	response := ToDepotResponse(depot)
	return &response, nil
}

func toFilter(f ListFilter) shared.Filter {
	filter := shared.DefaultFilter()
	if f.Page > 0 {
		filter.Page = f.Page
	}
	if f.PageSize > 0 {
		filter.PageSize = f.PageSize
	}
	if f.OrderBy != "" {
		filter.OrderBy = f.OrderBy
	}
	if f.OrderDir != "" {
		filter.OrderDir = f.OrderDir
	}
	return filter
}

func orZero(d *decimal.Decimal) decimal.Decimal {
	if d == nil {
		return decimal.Zero
	}
	return *d
}
