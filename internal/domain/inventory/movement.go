package inventory

import (
	"time"

	"github.com/erp/stockledger/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Direction is the effect of a movement on the stock position
type Direction string

const (
	DirectionEntry Direction = "ENTRY"
	DirectionExit  Direction = "EXIT"
)

// Opposite returns the reverse direction
func (d Direction) Opposite() Direction {
	if d == DirectionEntry {
		return DirectionExit
	}
	return DirectionEntry
}

// IsValid checks if the direction is valid
func (d Direction) IsValid() bool {
	return d == DirectionEntry || d == DirectionExit
}

// MovementType classifies the business event behind a movement
type MovementType string

const (
	MovementReceipt               MovementType = "RECEIPT"
	MovementSale                  MovementType = "SALE"
	MovementTransferIn            MovementType = "TRANSFER_IN"
	MovementTransferOut           MovementType = "TRANSFER_OUT"
	MovementAdjustmentPositive    MovementType = "ADJUSTMENT_POSITIVE"
	MovementAdjustmentNegative    MovementType = "ADJUSTMENT_NEGATIVE"
	MovementCustomerReturn        MovementType = "CUSTOMER_RETURN"
	MovementSupplierReturn        MovementType = "SUPPLIER_RETURN"
	MovementReservationWithdrawal MovementType = "RESERVATION_WITHDRAWAL"
)

type movementTypeDef struct {
	direction        Direction
	impactsValuation bool
}

// Transfers move value between depots without changing the company wide valuation.
var movementTypes = map[MovementType]movementTypeDef{
	MovementReceipt:               {DirectionEntry, true},
	MovementSale:                  {DirectionExit, true},
	MovementTransferIn:            {DirectionEntry, false},
	MovementTransferOut:           {DirectionExit, false},
	MovementAdjustmentPositive:    {DirectionEntry, true},
	MovementAdjustmentNegative:    {DirectionExit, true},
	MovementCustomerReturn:        {DirectionEntry, true},
	MovementSupplierReturn:        {DirectionExit, true},
	MovementReservationWithdrawal: {DirectionExit, true},
}

// IsValid checks if the movement type is known
func (t MovementType) IsValid() bool {
	_, ok := movementTypes[t]
	return ok
}

// DefaultDirection returns the direction the type normally has
func (t MovementType) DefaultDirection() Direction {
	return movementTypes[t].direction
}

// ImpactsValuation reports whether the type changes the company wide stock value
func (t MovementType) ImpactsValuation() bool {
	return movementTypes[t].impactsValuation
}

// MovementStatus represents the status of a ledger entry
type MovementStatus string

const (
	MovementStatusDraft     MovementStatus = "DRAFT"
	MovementStatusValidated MovementStatus = "VALIDATED"
	MovementStatusCancelled MovementStatus = "CANCELLED"
)

// OriginType names the kind of document that produced a movement
type OriginType string

const (
	OriginReceipt     OriginType = "RECEIPT"
	OriginOrder       OriginType = "ORDER"
	OriginTransfer    OriginType = "TRANSFER"
	OriginInventory   OriginType = "INVENTORY"
	OriginReversal    OriginType = "REVERSAL"
	OriginManual      OriginType = "MANUAL"
	OriginReservation OriginType = "RESERVATION"
)

// StockMovement is an immutable ledger entry. Once validated only its status may
// change: cancellation writes a compensating movement instead of deleting anything.
type StockMovement struct {
	shared.BaseAggregateRoot
	Reference        string          `gorm:"type:varchar(50);not null;uniqueIndex"`
	Type             MovementType    `gorm:"type:varchar(30);not null;index"`
	Direction        Direction       `gorm:"type:varchar(10);not null"`
	ImpactsValuation bool            `gorm:"not null;default:true"`
	ArticleID        uuid.UUID       `gorm:"type:uuid;not null;index:idx_movement_position,priority:1"`
	DepotID          uuid.UUID       `gorm:"type:uuid;not null;index:idx_movement_position,priority:2"`
	LotID            *uuid.UUID      `gorm:"type:uuid;index"`
	Quantity         decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	UnitCost         decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	TotalValue       decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	MovementDate     time.Time       `gorm:"not null"`
	AccountingDate   time.Time       `gorm:"not null;index"`
	Status           MovementStatus  `gorm:"type:varchar(20);not null;default:'DRAFT';index"`
	OriginType       OriginType      `gorm:"type:varchar(20)"`
	OriginRef        string          `gorm:"type:varchar(100);index"`
	ReversalOfID     *uuid.UUID      `gorm:"type:uuid;index"`
	CancelReason     string          `gorm:"type:varchar(500)"`
	ValidatedAt      *time.Time
	CancelledAt      *time.Time

	// LotLines is loaded and stored explicitly by the repository
	LotLines []MovementLotLine `gorm:"-"`
}

// TableName returns the table name for GORM
func (StockMovement) TableName() string {
	return "stock_movements"
}

// MovementLotLine records how much of one lot a movement moved
type MovementLotLine struct {
	shared.BaseEntity
	MovementID uuid.UUID       `gorm:"type:uuid;not null;index"`
	LotID      uuid.UUID       `gorm:"type:uuid;not null;index"`
	Quantity   decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	UnitCost   decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
}

// TableName returns the table name for GORM
func (MovementLotLine) TableName() string {
	return "stock_movement_lots"
}

// MovementParams holds the fields needed to create a movement
type MovementParams struct {
	Reference      string
	Type           MovementType
	Direction      Direction
	ArticleID      uuid.UUID
	DepotID        uuid.UUID
	Quantity       decimal.Decimal
	UnitCost       decimal.Decimal
	MovementDate   time.Time
	AccountingDate time.Time
	OriginType     OriginType
	OriginRef      string
}

// NewStockMovement creates a DRAFT movement
func NewStockMovement(p MovementParams) (*StockMovement, error) {
	if p.Reference == "" {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Movement reference cannot be empty")
	}
	if !p.Type.IsValid() {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Unknown movement type "+string(p.Type))
	}
	if p.Direction == "" {
		p.Direction = p.Type.DefaultDirection()
	}
	if !p.Direction.IsValid() {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Unknown movement direction "+string(p.Direction))
	}
	if p.ArticleID == uuid.Nil || p.DepotID == uuid.Nil {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Article and depot are required")
	}
	if !p.Quantity.IsPositive() {
		return nil, shared.NewDomainError(shared.CodeDataIntegrity, "Movement quantity must be positive")
	}
	if p.UnitCost.IsNegative() {
		return nil, shared.NewDomainError(shared.CodeDataIntegrity, "Movement unit cost cannot be negative")
	}
	if p.MovementDate.IsZero() {
		p.MovementDate = time.Now()
	}
	if p.AccountingDate.IsZero() {
		p.AccountingDate = p.MovementDate
	}

	return &StockMovement{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		Reference:         p.Reference,
		Type:              p.Type,
		Direction:         p.Direction,
		ImpactsValuation:  p.Type.ImpactsValuation(),
		ArticleID:         p.ArticleID,
		DepotID:           p.DepotID,
		Quantity:          p.Quantity,
		UnitCost:          p.UnitCost,
		TotalValue:        p.Quantity.Mul(p.UnitCost).Round(ValueScale),
		MovementDate:      p.MovementDate,
		AccountingDate:    p.AccountingDate,
		Status:            MovementStatusDraft,
		OriginType:        p.OriginType,
		OriginRef:         p.OriginRef,
	}, nil
}

// IsEntry returns true for movements adding stock
func (m *StockMovement) IsEntry() bool {
	return m.Direction == DirectionEntry
}

// IsReversal returns true if the movement compensates another one
func (m *StockMovement) IsReversal() bool {
	return m.ReversalOfID != nil
}

// AddLotLine records the quantity taken from or added to a lot
func (m *StockMovement) AddLotLine(lotID uuid.UUID, quantity, unitCost decimal.Decimal) {
	m.LotLines = append(m.LotLines, MovementLotLine{
		BaseEntity: shared.NewBaseEntity(),
		MovementID: m.ID,
		LotID:      lotID,
		Quantity:   quantity,
		UnitCost:   unitCost,
	})
	if len(m.LotLines) == 1 {
		id := lotID
		m.LotID = &id
	} else {
		m.LotID = nil
	}
}

// MarkValidated records the movement as applied with the effective value.
// For exits the value is the amount removed at average cost.
func (m *StockMovement) MarkValidated(totalValue decimal.Decimal, at time.Time) error {
	if m.Status != MovementStatusDraft {
		return shared.InvalidStateError("movement "+m.Reference, string(m.Status), "validate")
	}
	m.TotalValue = totalValue.Round(ValueScale)
	if m.Quantity.IsPositive() {
		m.UnitCost = totalValue.Div(m.Quantity).Round(ValueScale)
	}
	m.Status = MovementStatusValidated
	m.ValidatedAt = &at
	m.UpdatedAt = at
	m.AddDomainEvent(NewStockMovedEvent(m))
	return nil
}

// Cancel flips a validated movement to CANCELLED. The caller is responsible
// for applying the compensating movement in the same transaction.
func (m *StockMovement) Cancel(reason string, at time.Time) error {
	if m.Status == MovementStatusCancelled {
		return shared.InvalidStateError("movement "+m.Reference, string(m.Status), "cancel")
	}
	if m.IsReversal() {
		return shared.NewDomainError(shared.CodeInvalidState, "A reversal movement cannot itself be cancelled")
	}
	m.Status = MovementStatusCancelled
	m.CancelReason = reason
	m.CancelledAt = &at
	m.UpdatedAt = at
	return nil
}

// Inverse builds the compensating movement: same article, depot and lots,
// opposite direction and the original unit cost.
func (m *StockMovement) Inverse(reference string, at time.Time) (*StockMovement, error) {
	if m.Status != MovementStatusValidated {
		return nil, shared.InvalidStateError("movement "+m.Reference, string(m.Status), "reverse")
	}
	inverse, err := NewStockMovement(MovementParams{
		Reference:      reference,
		Type:           m.Type,
		Direction:      m.Direction.Opposite(),
		ArticleID:      m.ArticleID,
		DepotID:        m.DepotID,
		Quantity:       m.Quantity,
		UnitCost:       m.UnitCost,
		MovementDate:   at,
		AccountingDate: at,
		OriginType:     OriginReversal,
		OriginRef:      m.Reference,
	})
	if err != nil {
		return nil, err
	}
	originalID := m.ID
	inverse.ReversalOfID = &originalID
	for _, line := range m.LotLines {
		inverse.AddLotLine(line.LotID, line.Quantity, line.UnitCost)
	}
	return inverse, nil
}
