package inventory

import (
	"time"

	"github.com/erp/stockledger/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ReservationStatus represents the status of a reservation
type ReservationStatus string

const (
	ReservationActive    ReservationStatus = "ACTIVE"
	ReservationWithdrawn ReservationStatus = "WITHDRAWN"
	ReservationCancelled ReservationStatus = "CANCELLED"
	ReservationExpired   ReservationStatus = "EXPIRED"
)

// Reservation earmarks stock for one order line without moving it.
// Invariant: 0 <= WithdrawnQuantity <= ReservedQuantity.
type Reservation struct {
	shared.BaseAggregateRoot
	Reference         string            `gorm:"type:varchar(50);not null;uniqueIndex"`
	ArticleID         uuid.UUID         `gorm:"type:uuid;not null;index:idx_reservation_position,priority:1"`
	DepotID           uuid.UUID         `gorm:"type:uuid;not null;index:idx_reservation_position,priority:2"`
	LotID             *uuid.UUID        `gorm:"type:uuid;index"`
	OrderRef          string            `gorm:"type:varchar(100);not null;index"`
	LineRef           string            `gorm:"type:varchar(100)"`
	ReservedQuantity  decimal.Decimal   `gorm:"type:decimal(18,4);not null"`
	WithdrawnQuantity decimal.Decimal   `gorm:"type:decimal(18,4);not null;default:0"`
	Status            ReservationStatus `gorm:"type:varchar(20);not null;default:'ACTIVE';index"`
	ExpiresAt         *time.Time        `gorm:"index"`
	ReleasedAt        *time.Time
	WithdrawnAt       *time.Time
}

// TableName returns the table name for GORM
func (Reservation) TableName() string {
	return "stock_reservations"
}

// NewReservation creates an ACTIVE reservation
func NewReservation(
	reference string,
	articleID, depotID uuid.UUID,
	quantity decimal.Decimal,
	orderRef, lineRef string,
	expiresAt *time.Time,
) (*Reservation, error) {
	if reference == "" {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Reservation reference cannot be empty")
	}
	if !quantity.IsPositive() {
		return nil, shared.NewDomainError(shared.CodeDataIntegrity, "Reservation quantity must be positive")
	}
	if orderRef == "" {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Order reference is required")
	}

	r := &Reservation{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		Reference:         reference,
		ArticleID:         articleID,
		DepotID:           depotID,
		OrderRef:          orderRef,
		LineRef:           lineRef,
		ReservedQuantity:  quantity,
		WithdrawnQuantity: decimal.Zero,
		Status:            ReservationActive,
		ExpiresAt:         expiresAt,
	}
	r.AddDomainEvent(NewReservationEvent(EventTypeReservationCreated, r, quantity))
	return r, nil
}

// BindLot attaches the lot chosen to support the reservation
func (r *Reservation) BindLot(lotID uuid.UUID) {
	id := lotID
	r.LotID = &id
}

// RemainingQuantity returns reserved minus withdrawn quantity
func (r *Reservation) RemainingQuantity() decimal.Decimal {
	return r.ReservedQuantity.Sub(r.WithdrawnQuantity)
}

// IsActive returns true if the reservation still holds stock
func (r *Reservation) IsActive() bool {
	return r.Status == ReservationActive
}

// IsExpiredAt returns true if an active reservation passed its expiry
func (r *Reservation) IsExpiredAt(now time.Time) bool {
	return r.Status == ReservationActive && r.ExpiresAt != nil && !r.ExpiresAt.After(now)
}

// Withdraw records shipped quantity. The reservation is WITHDRAWN once nothing remains.
func (r *Reservation) Withdraw(quantity decimal.Decimal, at time.Time) error {
	if r.Status != ReservationActive {
		return shared.InvalidStateError("reservation "+r.Reference, string(r.Status), "withdraw")
	}
	if !quantity.IsPositive() {
		return shared.NewDomainError(shared.CodeDataIntegrity, "Withdrawn quantity must be positive")
	}
	if quantity.GreaterThan(r.RemainingQuantity()) {
		return shared.NewDomainError(shared.CodeDataIntegrity, "Withdrawn quantity exceeds the outstanding reservation")
	}

	r.WithdrawnQuantity = r.WithdrawnQuantity.Add(quantity)
	if r.RemainingQuantity().IsZero() {
		r.Status = ReservationWithdrawn
		r.WithdrawnAt = &at
	}
	r.UpdatedAt = at
	return nil
}

// Release cancels the reservation and returns the outstanding quantity to give back
func (r *Reservation) Release(at time.Time) (decimal.Decimal, error) {
	if r.Status != ReservationActive {
		return decimal.Zero, shared.InvalidStateError("reservation "+r.Reference, string(r.Status), "release")
	}
	outstanding := r.RemainingQuantity()
	r.Status = ReservationCancelled
	r.ReleasedAt = &at
	r.UpdatedAt = at
	r.AddDomainEvent(NewReservationEvent(EventTypeReservationReleased, r, outstanding))
	return outstanding, nil
}

// Expire closes an active reservation past its expiry and returns the quantity to give back
func (r *Reservation) Expire(now time.Time) (decimal.Decimal, error) {
	if !r.IsExpiredAt(now) {
		return decimal.Zero, shared.InvalidStateError("reservation "+r.Reference, string(r.Status), "expire")
	}
	outstanding := r.RemainingQuantity()
	r.Status = ReservationExpired
	r.ReleasedAt = &now
	r.UpdatedAt = now
	r.AddDomainEvent(NewReservationEvent(EventTypeReservationExpired, r, outstanding))
	return outstanding, nil
}
