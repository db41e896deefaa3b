package catalog

import (
	"time"

	"github.com/erp/stockledger/internal/domain/catalog"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CreateArticleRequest represents a request to create an article
type CreateArticleRequest struct {
	Code            string           `json:"code" binding:"required,min=1,max=50"`
	Name            string           `json:"name" binding:"required,min=1,max=200"`
	Unit            string           `json:"unit" binding:"required,min=1,max=20"`
	ValuationMethod string           `json:"valuation_method" binding:"omitempty,oneof=CUMP FIFO FEFO"`
	LotTracked      bool             `json:"lot_tracked"`
	SerialTracked   bool             `json:"serial_tracked"`
	ShelfLifeDays   *int             `json:"shelf_life_days" binding:"omitempty,min=1"`
	MinStock        *decimal.Decimal `json:"min_stock"`
	MaxStock        *decimal.Decimal `json:"max_stock"`
	SafetyStock     *decimal.Decimal `json:"safety_stock"`
	StandardCost    *decimal.Decimal `json:"standard_cost"`
}

// CreateDepotRequest represents a request to create a depot
type CreateDepotRequest struct {
	Code    string `json:"code" binding:"required,min=1,max=50"`
	Name    string `json:"name" binding:"required,min=1,max=200"`
	Address string `json:"address" binding:"max=500"`
}

// ListFilter represents paging options for catalog listings
type ListFilter struct {
	Page     int    `form:"page" binding:"omitempty,min=1"`
	PageSize int    `form:"page_size" binding:"omitempty,min=1,max=100"`
	OrderBy  string `form:"order_by" binding:"omitempty,oneof=code name created_at"`
	OrderDir string `form:"order_dir" binding:"omitempty,oneof=asc desc"`
}

// ArticleResponse represents an article in API responses
type ArticleResponse struct {
	ID              uuid.UUID       `json:"id"`
	Code            string          `json:"code"`
	Name            string          `json:"name"`
	Unit            string          `json:"unit"`
	ValuationMethod string          `json:"valuation_method"`
	LotTracked      bool            `json:"lot_tracked"`
	SerialTracked   bool            `json:"serial_tracked"`
	ShelfLifeDays   *int            `json:"shelf_life_days,omitempty"`
	MinStock        decimal.Decimal `json:"min_stock"`
	MaxStock        decimal.Decimal `json:"max_stock"`
	SafetyStock     decimal.Decimal `json:"safety_stock"`
	StandardCost    decimal.Decimal `json:"standard_cost"`
	Active          bool            `json:"active"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// DepotResponse represents a depot in API responses
type DepotResponse struct {
	ID        uuid.UUID `json:"id"`
	Code      string    `json:"code"`
	Name      string    `json:"name"`
	Address   string    `json:"address,omitempty"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ToArticleResponse converts a domain Article to ArticleResponse
func ToArticleResponse(a *catalog.Article) ArticleResponse {
	return ArticleResponse{
		ID:              a.ID,
		Code:            a.Code,
		Name:            a.Name,
		Unit:            a.Unit,
		ValuationMethod: a.ValuationMethod.String(),
		LotTracked:      a.LotTracked,
		SerialTracked:   a.SerialTracked,
		ShelfLifeDays:   a.ShelfLifeDays,
		MinStock:        a.MinStock,
		MaxStock:        a.MaxStock,
		SafetyStock:     a.SafetyStock,
		StandardCost:    a.StandardCost,
		Active:          a.Active,
		CreatedAt:       a.CreatedAt,
		UpdatedAt:       a.UpdatedAt,
	}
}

// ToArticleResponses converts a slice of domain Articles to ArticleResponses
func ToArticleResponses(articles []catalog.Article) []ArticleResponse {
	responses := make([]ArticleResponse, len(articles))
	for i := range articles {
		responses[i] = ToArticleResponse(&articles[i])
	}
	return responses
}

// ToDepotResponse converts a domain Depot to DepotResponse
func ToDepotResponse(d *catalog.Depot) DepotResponse {
	return DepotResponse{
		ID:        d.ID,
		Code:      d.Code,
		Name:      d.Name,
		Address:   d.Address,
		Active:    d.Active,
		CreatedAt: d.CreatedAt,
		UpdatedAt: d.UpdatedAt,
	}
}

// ToDepotResponses converts a slice of domain Depots to DepotResponses
func ToDepotResponses(depots []catalog.Depot) []DepotResponse {
	responses := make([]DepotResponse, len(depots))
	for i := range depots {
		responses[i] = ToDepotResponse(&depots[i])
	}
	return responses
}
