package catalog

import (
	"strings"
	"time"

	"github.com/erp/stockledger/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// Article is a stockable item. Its valuation method is fixed for its lifetime;
// changing it would require a full revaluation of every stock position.
type Article struct {
	shared.BaseAggregateRoot
	Code            string          `gorm:"type:varchar(50);not null;uniqueIndex"`
	Name            string          `gorm:"type:varchar(200);not null"`
	Unit            string          `gorm:"type:varchar(20);not null"`
	LotTracked      bool            `gorm:"not null;default:false"`
	SerialTracked   bool            `gorm:"not null;default:false"`
	ValuationMethod ValuationMethod `gorm:"type:varchar(10);not null;default:'CUMP'"`
	MinStock        decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	MaxStock        decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	SafetyStock     decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	StandardCost    decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	ShelfLifeDays   *int
	Active          bool `gorm:"not null;default:true"`
}

// TableName returns the table name for GORM
func (Article) TableName() string {
	return "articles"
}

// NewArticle creates a new article
func NewArticle(code, name, unit string, method ValuationMethod) (*Article, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Article code cannot be empty")
	}
	if strings.TrimSpace(name) == "" {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Article name cannot be empty")
	}
	if strings.TrimSpace(unit) == "" {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Unit of measure cannot be empty")
	}
	if method == "" {
		method = ValuationCUMP
	}
	if !method.IsValid() {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Unknown valuation method "+string(method))
	}

	return &Article{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		Code:              strings.ToUpper(code),
		Name:              name,
		Unit:              unit,
		ValuationMethod:   method,
		MinStock:          decimal.Zero,
		MaxStock:          decimal.Zero,
		SafetyStock:       decimal.Zero,
		StandardCost:      decimal.Zero,
		Active:            true,
	}, nil
}

// EnableLotTracking marks the article as traceable by lot, with an optional shelf life
func (a *Article) EnableLotTracking(shelfLifeDays *int) error {
	if shelfLifeDays != nil && *shelfLifeDays <= 0 {
		return shared.NewDomainError(shared.CodeInvalidInput, "Shelf life must be a positive number of days")
	}
	a.LotTracked = true
	a.ShelfLifeDays = shelfLifeDays
	a.Touch()
	return nil
}

// SetThresholds sets minimum, maximum and safety stock levels
func (a *Article) SetThresholds(minStock, maxStock, safetyStock decimal.Decimal) error {
	if minStock.IsNegative() || maxStock.IsNegative() || safetyStock.IsNegative() {
		return shared.NewDomainError(shared.CodeInvalidInput, "Stock thresholds cannot be negative")
	}
	if maxStock.IsPositive() && minStock.GreaterThan(maxStock) {
		return shared.NewDomainError(shared.CodeInvalidInput, "Minimum stock cannot exceed maximum stock")
	}
	a.MinStock = minStock
	a.MaxStock = maxStock
	a.SafetyStock = safetyStock
	a.Touch()
	return nil
}

// SetStandardCost sets the reference cost used when no history exists
func (a *Article) SetStandardCost(cost decimal.Decimal) error {
	if cost.IsNegative() {
		return shared.NewDomainError(shared.CodeInvalidInput, "Standard cost cannot be negative")
	}
	a.StandardCost = cost
	a.Touch()
	return nil
}

// ExpiryFrom returns the expiry date of a lot received at the given date,
// or nil when the article has no shelf life.
func (a *Article) ExpiryFrom(receivedAt time.Time) *time.Time {
	if a.ShelfLifeDays == nil {
		return nil
	}
	expiry := receivedAt.AddDate(0, 0, *a.ShelfLifeDays)
	return &expiry
}

// IsBelowMinimum reports whether a quantity is under the reorder threshold
func (a *Article) IsBelowMinimum(quantity decimal.Decimal) bool {
	return a.MinStock.IsPositive() && quantity.LessThan(a.MinStock)
}
