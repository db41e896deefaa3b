package closing

import (
	"time"

	"github.com/erp/stockledger/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CostSnapshot is the frozen valuation of one (article, depot) at a closing.
// There is at most one per (period, article, depot); rewriting it overwrites.
type CostSnapshot struct {
	shared.BaseEntity
	PeriodID     uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_snapshot_position,priority:1"`
	ArticleID    uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_snapshot_position,priority:2"`
	DepotID      uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_snapshot_position,priority:3"`
	Quantity     decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	UnitCost     decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	TotalValue   decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	Method       string          `gorm:"type:varchar(10);not null"`
	SnapshotDate time.Time       `gorm:"not null"`
}

// TableName returns the table name for GORM
func (CostSnapshot) TableName() string {
	return "cost_snapshots"
}

// NewCostSnapshot creates a snapshot row
func NewCostSnapshot(
	periodID, articleID, depotID uuid.UUID,
	quantity, totalValue decimal.Decimal,
	method string,
	snapshotDate time.Time,
) (*CostSnapshot, error) {
	if quantity.IsNegative() || totalValue.IsNegative() {
		return nil, shared.NewDomainError(shared.CodeDataIntegrity, "Snapshot quantity and value cannot be negative")
	}
	unitCost := decimal.Zero
	if quantity.IsPositive() {
		unitCost = totalValue.Div(quantity).Round(4)
	}
	return &CostSnapshot{
		BaseEntity:   shared.NewBaseEntity(),
		PeriodID:     periodID,
		ArticleID:    articleID,
		DepotID:      depotID,
		Quantity:     quantity,
		UnitCost:     unitCost,
		TotalValue:   totalValue.Round(4),
		Method:       method,
		SnapshotDate: snapshotDate,
	}, nil
}
