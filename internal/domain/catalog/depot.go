package catalog

import (
	"strings"

	"github.com/erp/stockledger/internal/domain/shared"
)

// Depot is a physical storage location. Stock is always scoped to an (article, depot) pair.
type Depot struct {
	shared.BaseAggregateRoot
	Code    string `gorm:"type:varchar(50);not null;uniqueIndex"`
	Name    string `gorm:"type:varchar(200);not null"`
	Address string `gorm:"type:varchar(500)"`
	Active  bool   `gorm:"not null;default:true"`
}

// TableName returns the table name for GORM
func (Depot) TableName() string {
	return "depots"
}

// NewDepot creates a new depot
func NewDepot(code, name string) (*Depot, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Depot code cannot be empty")
	}
	if strings.TrimSpace(name) == "" {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Depot name cannot be empty")
	}
	return &Depot{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		Code:              strings.ToUpper(code),
		Name:              name,
		Active:            true,
	}, nil
}

// Deactivate prevents new stock from being received in the depot
func (d *Depot) Deactivate() {
	d.Active = false
	d.Touch()
}
