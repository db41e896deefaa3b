package inventory

import (
	"time"

	"github.com/erp/stockledger/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ValueScale is the number of decimals kept on monetary amounts
const ValueScale int32 = 4

// Stock is the running position of one article in one depot.
// It is created lazily by the first entry and never deleted, only zeroed.
//
// Invariants: TheoreticalQuantity >= ReservedQuantity >= 0 and Value >= 0.
type Stock struct {
	shared.BaseAggregateRoot
	ArticleID           uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_stock_article_depot,priority:1"`
	DepotID             uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_stock_article_depot,priority:2;index"`
	TheoreticalQuantity decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	PhysicalQuantity    decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	ReservedQuantity    decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	Value               decimal.Decimal `gorm:"column:stock_value;type:decimal(18,4);not null;default:0"`
	LastMovementAt      *time.Time
	LastCountAt         *time.Time
}

// TableName returns the table name for GORM
func (Stock) TableName() string {
	return "stocks"
}

// NewStock creates an empty stock position
func NewStock(articleID, depotID uuid.UUID) (*Stock, error) {
	if articleID == uuid.Nil {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Article ID cannot be empty")
	}
	if depotID == uuid.Nil {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Depot ID cannot be empty")
	}
	return &Stock{
		BaseAggregateRoot:   shared.NewBaseAggregateRoot(),
		ArticleID:           articleID,
		DepotID:             depotID,
		TheoreticalQuantity: decimal.Zero,
		PhysicalQuantity:    decimal.Zero,
		ReservedQuantity:    decimal.Zero,
		Value:               decimal.Zero,
	}, nil
}

// AvailableQuantity returns theoretical minus reserved quantity
func (s *Stock) AvailableQuantity() decimal.Decimal {
	return s.TheoreticalQuantity.Sub(s.ReservedQuantity)
}

// AverageUnitCost returns the weighted average unit cost (CUMP), zero when empty
func (s *Stock) AverageUnitCost() decimal.Decimal {
	if !s.TheoreticalQuantity.IsPositive() {
		return decimal.Zero
	}
	return s.Value.Div(s.TheoreticalQuantity).Round(ValueScale)
}

// ApplyEntry adds quantity at the given unit cost.
// The value accumulates so the average cost is implicitly re-weighted.
func (s *Stock) ApplyEntry(quantity, unitCost decimal.Decimal) error {
	if !quantity.IsPositive() {
		return shared.NewDomainError(shared.CodeDataIntegrity, "Entry quantity must be positive")
	}
	if unitCost.IsNegative() {
		return shared.NewDomainError(shared.CodeDataIntegrity, "Unit cost cannot be negative")
	}

	s.TheoreticalQuantity = s.TheoreticalQuantity.Add(quantity)
	s.PhysicalQuantity = s.PhysicalQuantity.Add(quantity)
	s.Value = s.Value.Add(quantity.Mul(unitCost)).Round(ValueScale)
	s.markMoved()
	return nil
}

// ApplyExit removes quantity at the current average cost and returns the value taken out.
// A free exit may not eat into reserved quantity.
func (s *Stock) ApplyExit(quantity decimal.Decimal) (decimal.Decimal, error) {
	if !quantity.IsPositive() {
		return decimal.Zero, shared.NewDomainError(shared.CodeDataIntegrity, "Exit quantity must be positive")
	}
	if s.TheoreticalQuantity.LessThan(quantity) {
		return decimal.Zero, shared.InsufficientStockError(quantity, s.TheoreticalQuantity)
	}
	if s.AvailableQuantity().LessThan(quantity) {
		return decimal.Zero, shared.InsufficientStockError(quantity, s.AvailableQuantity())
	}
	return s.removeQuantity(quantity), nil
}

// ConsumeReservation ships reserved quantity: both reserved and theoretical quantities drop.
func (s *Stock) ConsumeReservation(quantity decimal.Decimal) (decimal.Decimal, error) {
	if !quantity.IsPositive() {
		return decimal.Zero, shared.NewDomainError(shared.CodeDataIntegrity, "Withdrawal quantity must be positive")
	}
	if s.ReservedQuantity.LessThan(quantity) {
		return decimal.Zero, shared.NewDomainError(shared.CodeDataIntegrity, "Withdrawal exceeds reserved quantity")
	}
	if s.TheoreticalQuantity.LessThan(quantity) {
		return decimal.Zero, shared.InsufficientStockError(quantity, s.TheoreticalQuantity)
	}
	s.ReservedQuantity = s.ReservedQuantity.Sub(quantity)
	return s.removeQuantity(quantity), nil
}

// ReverseEntry takes a cancelled entry back out at the current average cost,
// like any other exit. Later exits were valued at the blended average, so
// removing the entry at its own cost would distort what remains.
func (s *Stock) ReverseEntry(quantity decimal.Decimal) (decimal.Decimal, error) {
	if !quantity.IsPositive() {
		return decimal.Zero, shared.NewDomainError(shared.CodeDataIntegrity, "Reversed quantity must be positive")
	}
	if s.AvailableQuantity().LessThan(quantity) {
		return decimal.Zero, shared.InsufficientStockError(quantity, s.AvailableQuantity())
	}
	return s.removeQuantity(quantity), nil
}

// removeQuantity keeps the average cost constant: value -= value * qty / theoretical
func (s *Stock) removeQuantity(quantity decimal.Decimal) decimal.Decimal {
	var exitValue decimal.Decimal
	if quantity.Equal(s.TheoreticalQuantity) {
		exitValue = s.Value
	} else {
		exitValue = s.Value.Mul(quantity).Div(s.TheoreticalQuantity).Round(ValueScale)
	}

	s.Value = s.Value.Sub(exitValue)
	if s.Value.IsNegative() {
		s.Value = decimal.Zero
	}
	s.TheoreticalQuantity = s.TheoreticalQuantity.Sub(quantity)
	s.PhysicalQuantity = s.PhysicalQuantity.Sub(quantity)
	if s.PhysicalQuantity.IsNegative() {
		s.PhysicalQuantity = decimal.Zero
	}
	s.markMoved()
	return exitValue
}

// Reserve earmarks available quantity for a downstream order
func (s *Stock) Reserve(quantity decimal.Decimal) error {
	if !quantity.IsPositive() {
		return shared.NewDomainError(shared.CodeDataIntegrity, "Reservation quantity must be positive")
	}
	if s.AvailableQuantity().LessThan(quantity) {
		return shared.InsufficientStockError(quantity, s.AvailableQuantity())
	}
	s.ReservedQuantity = s.ReservedQuantity.Add(quantity)
	s.Touch()
	return nil
}

// Release gives reserved quantity back to the available pool
func (s *Stock) Release(quantity decimal.Decimal) error {
	if !quantity.IsPositive() {
		return shared.NewDomainError(shared.CodeDataIntegrity, "Release quantity must be positive")
	}
	if s.ReservedQuantity.LessThan(quantity) {
		return shared.NewDomainError(shared.CodeDataIntegrity, "Release exceeds reserved quantity")
	}
	s.ReservedQuantity = s.ReservedQuantity.Sub(quantity)
	s.Touch()
	return nil
}

// SetPhysicalQuantity records the result of a physical count
func (s *Stock) SetPhysicalQuantity(quantity decimal.Decimal, countedAt time.Time) error {
	if quantity.IsNegative() {
		return shared.NewDomainError(shared.CodeDataIntegrity, "Physical quantity cannot be negative")
	}
	s.PhysicalQuantity = quantity
	s.LastCountAt = &countedAt
	s.Touch()
	return nil
}

// Restate overwrites quantity and value with figures rebuilt from the ledger.
// Only the audit repair path uses it.
func (s *Stock) Restate(theoretical, value decimal.Decimal) error {
	if theoretical.IsNegative() || value.IsNegative() {
		return shared.NewDomainError(shared.CodeDataIntegrity, "Restated stock cannot be negative")
	}
	if theoretical.LessThan(s.ReservedQuantity) {
		return shared.NewDomainError(shared.CodeDataIntegrity, "Restated quantity is below reserved quantity")
	}
	s.TheoreticalQuantity = theoretical
	s.Value = value.Round(ValueScale)
	s.Touch()
	return nil
}

// CheckInvariants verifies the quantity and value invariants
func (s *Stock) CheckInvariants() error {
	if s.ReservedQuantity.IsNegative() {
		return shared.NewDomainError(shared.CodeDataIntegrity, "Reserved quantity is negative")
	}
	if s.TheoreticalQuantity.LessThan(s.ReservedQuantity) {
		return shared.NewDomainError(shared.CodeDataIntegrity, "Theoretical quantity is below reserved quantity")
	}
	if s.Value.IsNegative() {
		return shared.NewDomainError(shared.CodeDataIntegrity, "Stock value is negative")
	}
	return nil
}

// IsEmpty reports whether nothing is left in the position
func (s *Stock) IsEmpty() bool {
	return s.TheoreticalQuantity.IsZero() && s.ReservedQuantity.IsZero()
}

func (s *Stock) markMoved() {
	now := time.Now()
	s.LastMovementAt = &now
	s.UpdatedAt = now
}
