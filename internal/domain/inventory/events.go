package inventory

import (
	"time"

	"github.com/erp/stockledger/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Aggregate type names used in events
const (
	AggregateTypeMovement    = "StockMovement"
	AggregateTypeReservation = "Reservation"
	AggregateTypeLot         = "Lot"
)

// Event type constants
const (
	EventTypeStockMoved          = "StockMoved"
	EventTypeReservationCreated  = "ReservationCreated"
	EventTypeReservationReleased = "ReservationReleased"
	EventTypeReservationExpired  = "ReservationExpired"
	EventTypeLotExpired          = "LotExpired"
	EventTypeLotExpiryAlert      = "LotExpiryAlert"
)

// StockMovedEvent is raised when a movement is applied to the ledger
type StockMovedEvent struct {
	shared.BaseDomainEvent
	Reference  string          `json:"reference"`
	Type       MovementType    `json:"movement_type"`
	Direction  Direction       `json:"direction"`
	ArticleID  uuid.UUID       `json:"article_id"`
	DepotID    uuid.UUID       `json:"depot_id"`
	Quantity   decimal.Decimal `json:"quantity"`
	TotalValue decimal.Decimal `json:"total_value"`
	IsReversal bool            `json:"is_reversal"`
}

// NewStockMovedEvent creates a StockMovedEvent
func NewStockMovedEvent(m *StockMovement) *StockMovedEvent {
	return &StockMovedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeStockMoved, AggregateTypeMovement, m.ID),
		Reference:       m.Reference,
		Type:            m.Type,
		Direction:       m.Direction,
		ArticleID:       m.ArticleID,
		DepotID:         m.DepotID,
		Quantity:        m.Quantity,
		TotalValue:      m.TotalValue,
		IsReversal:      m.IsReversal(),
	}
}

// ReservationEvent is raised on reservation lifecycle changes
type ReservationEvent struct {
	shared.BaseDomainEvent
	Reference string          `json:"reference"`
	OrderRef  string          `json:"order_ref"`
	ArticleID uuid.UUID       `json:"article_id"`
	DepotID   uuid.UUID       `json:"depot_id"`
	Quantity  decimal.Decimal `json:"quantity"`
}

// NewReservationEvent creates a ReservationEvent of the given type
func NewReservationEvent(eventType string, r *Reservation, quantity decimal.Decimal) *ReservationEvent {
	return &ReservationEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(eventType, AggregateTypeReservation, r.ID),
		Reference:       r.Reference,
		OrderRef:        r.OrderRef,
		ArticleID:       r.ArticleID,
		DepotID:         r.DepotID,
		Quantity:        quantity,
	}
}

// LotEvent is raised when a lot expires or approaches expiry
type LotEvent struct {
	shared.BaseDomainEvent
	LotNumber  string          `json:"lot_number"`
	ArticleID  uuid.UUID       `json:"article_id"`
	Quantity   decimal.Decimal `json:"quantity"`
	ExpiryDate *time.Time      `json:"expiry_date,omitempty"`
	DaysLeft   int             `json:"days_left"`
}

// NewLotEvent creates a LotEvent of the given type
func NewLotEvent(eventType string, l *Lot, now time.Time) *LotEvent {
	return &LotEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(eventType, AggregateTypeLot, l.ID),
		LotNumber:       l.LotNumber,
		ArticleID:       l.ArticleID,
		Quantity:        l.CurrentQuantity,
		ExpiryDate:      l.ExpiryDate,
		DaysLeft:        l.DaysUntilExpiry(now),
	}
}
