package inventory

import (
	"time"

	"github.com/erp/stockledger/internal/domain/inventory"
	"github.com/erp/stockledger/internal/domain/shared/strategy"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// RecordMovementRequest represents a request to post a movement to the ledger
type RecordMovementRequest struct {
	Type           inventory.MovementType `json:"type" binding:"required"`
	ArticleID      uuid.UUID              `json:"article_id" binding:"required"`
	DepotID        uuid.UUID              `json:"depot_id" binding:"required"`
	LotID          *uuid.UUID             `json:"lot_id"`
	Quantity       decimal.Decimal        `json:"quantity" binding:"required,gt=0"`
	UnitCost       decimal.Decimal        `json:"unit_cost"`
	MovementDate   time.Time              `json:"movement_date"`
	AccountingDate time.Time              `json:"accounting_date"`
	OriginType     inventory.OriginType   `json:"origin_type"`
	OriginRef      string                 `json:"origin_ref" binding:"max=100"`

	// Lot attributes, used when an entry of a lot tracked article creates a lot
	LotNumber      string     `json:"lot_number" binding:"max=50"`
	ManufacturedAt *time.Time `json:"manufactured_at"`
	ExpiryDate     *time.Time `json:"expiry_date"`
}

// CancelMovementRequest represents a request to cancel a movement
type CancelMovementRequest struct {
	Reason string `json:"reason" binding:"required,max=500"`
}

// MovementListFilter represents filter options for the ledger listing
type MovementListFilter struct {
	ArticleID *uuid.UUID               `form:"article_id"`
	DepotID   *uuid.UUID               `form:"depot_id"`
	Type      inventory.MovementType   `form:"type"`
	Status    inventory.MovementStatus `form:"status"`
	From      *time.Time               `form:"from" time_format:"2006-01-02"`
	To        *time.Time               `form:"to" time_format:"2006-01-02"`
	Page      int                      `form:"page" binding:"omitempty,min=1"`
	PageSize  int                      `form:"page_size" binding:"omitempty,min=1,max=100"`
}

// MovementLotLineResponse represents the lot effect of a movement
type MovementLotLineResponse struct {
	LotID    uuid.UUID       `json:"lot_id"`
	Quantity decimal.Decimal `json:"quantity"`
	UnitCost decimal.Decimal `json:"unit_cost"`
}

// MovementResponse represents a ledger entry in API responses
type MovementResponse struct {
	ID               uuid.UUID                 `json:"id"`
	Reference        string                    `json:"reference"`
	Type             string                    `json:"type"`
	Direction        string                    `json:"direction"`
	ImpactsValuation bool                      `json:"impacts_valuation"`
	ArticleID        uuid.UUID                 `json:"article_id"`
	DepotID          uuid.UUID                 `json:"depot_id"`
	LotID            *uuid.UUID                `json:"lot_id,omitempty"`
	Quantity         decimal.Decimal           `json:"quantity"`
	UnitCost         decimal.Decimal           `json:"unit_cost"`
	TotalValue       decimal.Decimal           `json:"total_value"`
	MovementDate     time.Time                 `json:"movement_date"`
	AccountingDate   time.Time                 `json:"accounting_date"`
	Status           string                    `json:"status"`
	OriginType       string                    `json:"origin_type,omitempty"`
	OriginRef        string                    `json:"origin_ref,omitempty"`
	ReversalOfID     *uuid.UUID                `json:"reversal_of_id,omitempty"`
	CancelReason     string                    `json:"cancel_reason,omitempty"`
	LotLines         []MovementLotLineResponse `json:"lot_lines,omitempty"`
	ValidatedAt      *time.Time                `json:"validated_at,omitempty"`
	CancelledAt      *time.Time                `json:"cancelled_at,omitempty"`
	CreatedAt        time.Time                 `json:"created_at"`
}

// StockResponse represents a stock position
type StockResponse struct {
	ID                  uuid.UUID       `json:"id"`
	ArticleID           uuid.UUID       `json:"article_id"`
	DepotID             uuid.UUID       `json:"depot_id"`
	TheoreticalQuantity decimal.Decimal `json:"theoretical_quantity"`
	PhysicalQuantity    decimal.Decimal `json:"physical_quantity"`
	ReservedQuantity    decimal.Decimal `json:"reserved_quantity"`
	AvailableQuantity   decimal.Decimal `json:"available_quantity"`
	Value               decimal.Decimal `json:"value"`
	AverageUnitCost     decimal.Decimal `json:"average_unit_cost"`
	LastMovementAt      *time.Time      `json:"last_movement_at,omitempty"`
	LastCountAt         *time.Time      `json:"last_count_at,omitempty"`
	Version             int             `json:"version"`
}

// ReceiveLotRequest represents a receipt creating a new lot
type ReceiveLotRequest struct {
	ArticleID      uuid.UUID       `json:"article_id" binding:"required"`
	DepotID        uuid.UUID       `json:"depot_id" binding:"required"`
	Quantity       decimal.Decimal `json:"quantity" binding:"required,gt=0"`
	UnitCost       decimal.Decimal `json:"unit_cost"`
	LotNumber      string          `json:"lot_number" binding:"max=50"`
	ReceivedAt     time.Time       `json:"received_at"`
	ManufacturedAt *time.Time      `json:"manufactured_at"`
	ExpiryDate     *time.Time      `json:"expiry_date"`
	OriginRef      string          `json:"origin_ref" binding:"max=100"`
}

// ConsumeLotRequest represents an exit drawn from one named lot
type ConsumeLotRequest struct {
	LotID     uuid.UUID              `json:"lot_id" binding:"required"`
	DepotID   *uuid.UUID             `json:"depot_id"`
	Quantity  decimal.Decimal        `json:"quantity" binding:"required,gt=0"`
	Type      inventory.MovementType `json:"type"`
	OriginRef string                 `json:"origin_ref" binding:"max=100"`
}

// MergeLotsRequest represents a request to merge a lot into another
type MergeLotsRequest struct {
	SourceLotID      uuid.UUID `json:"source_lot_id" binding:"required"`
	DestinationLotID uuid.UUID `json:"destination_lot_id" binding:"required"`
}

// ChangeLotStatusRequest represents a quarantine, block or release of a lot
type ChangeLotStatusRequest struct {
	Status inventory.LotStatus `json:"status" binding:"required,oneof=AVAILABLE QUARANTINE BLOCKED"`
}

// LotResponse represents a lot in API responses
type LotResponse struct {
	ID              uuid.UUID       `json:"id"`
	LotNumber       string          `json:"lot_number"`
	ArticleID       uuid.UUID       `json:"article_id"`
	DepotID         *uuid.UUID      `json:"depot_id,omitempty"`
	InitialQuantity decimal.Decimal `json:"initial_quantity"`
	CurrentQuantity decimal.Decimal `json:"current_quantity"`
	UnitCost        decimal.Decimal `json:"unit_cost"`
	Value           decimal.Decimal `json:"value"`
	ManufacturedAt  *time.Time      `json:"manufactured_at,omitempty"`
	ReceivedAt      time.Time       `json:"received_at"`
	ExpiryDate      *time.Time      `json:"expiry_date,omitempty"`
	DaysUntilExpiry *int            `json:"days_until_expiry,omitempty"`
	Status          string          `json:"status"`
	MergedIntoID    *uuid.UUID      `json:"merged_into_id,omitempty"`
	OriginRef       string          `json:"origin_ref,omitempty"`
}

// ReceiveLotResponse is the lot and the receipt movement created with it
type ReceiveLotResponse struct {
	Lot      LotResponse      `json:"lot"`
	Movement MovementResponse `json:"movement"`
}

// AllocationResponse is a suggested split of a demand across lots
type AllocationResponse struct {
	Policy      string                  `json:"policy"`
	Requested   decimal.Decimal         `json:"requested"`
	Allocated   decimal.Decimal         `json:"allocated"`
	Shortfall   decimal.Decimal         `json:"shortfall"`
	Covered     bool                    `json:"covered"`
	Allocations []LotAllocationResponse `json:"allocations"`
}

// LotAllocationResponse is the quantity taken from one lot
type LotAllocationResponse struct {
	LotID     uuid.UUID       `json:"lot_id"`
	LotNumber string          `json:"lot_number"`
	Quantity  decimal.Decimal `json:"quantity"`
	UnitCost  decimal.Decimal `json:"unit_cost"`
}

// SweepStats contains statistics about a scheduled sweep
type SweepStats struct {
	Total       int       `json:"total"`
	Succeeded   int       `json:"succeeded"`
	Failed      int       `json:"failed"`
	Skipped     int       `json:"skipped"`
	ProcessedAt time.Time `json:"processed_at"`
}

// ReserveRequest represents a request to reserve stock for an order line
type ReserveRequest struct {
	ArticleID uuid.UUID       `json:"article_id" binding:"required"`
	DepotID   uuid.UUID       `json:"depot_id" binding:"required"`
	Quantity  decimal.Decimal `json:"quantity" binding:"required,gt=0"`
	OrderRef  string          `json:"order_ref" binding:"required,max=100"`
	LineRef   string          `json:"line_ref" binding:"max=100"`
	ExpiresAt *time.Time      `json:"expires_at"`
}

// WithdrawRequest represents a shipment against a reservation.
// A nil quantity ships everything still outstanding.
type WithdrawRequest struct {
	Quantity *decimal.Decimal `json:"quantity" binding:"omitempty,gt=0"`
}

// ReservationResponse represents a reservation in API responses
type ReservationResponse struct {
	ID                uuid.UUID       `json:"id"`
	Reference         string          `json:"reference"`
	ArticleID         uuid.UUID       `json:"article_id"`
	DepotID           uuid.UUID       `json:"depot_id"`
	LotID             *uuid.UUID      `json:"lot_id,omitempty"`
	OrderRef          string          `json:"order_ref"`
	LineRef           string          `json:"line_ref,omitempty"`
	ReservedQuantity  decimal.Decimal `json:"reserved_quantity"`
	WithdrawnQuantity decimal.Decimal `json:"withdrawn_quantity"`
	RemainingQuantity decimal.Decimal `json:"remaining_quantity"`
	Status            string          `json:"status"`
	ExpiresAt         *time.Time      `json:"expires_at,omitempty"`
	ReleasedAt        *time.Time      `json:"released_at,omitempty"`
	WithdrawnAt       *time.Time      `json:"withdrawn_at,omitempty"`
	CreatedAt         time.Time       `json:"created_at"`
}

// WithdrawResponse is the reservation after a shipment and the exit it produced
type WithdrawResponse struct {
	Reservation ReservationResponse `json:"reservation"`
	Movement    MovementResponse    `json:"movement"`
}

// ValuationResponse is the value of a stock position under the article's method
type ValuationResponse struct {
	ArticleID   uuid.UUID       `json:"article_id"`
	DepotID     uuid.UUID       `json:"depot_id"`
	Method      string          `json:"method"`
	Quantity    decimal.Decimal `json:"quantity"`
	Value       decimal.Decimal `json:"value"`
	UnitCost    decimal.Decimal `json:"unit_cost"`
	UnvaluedQty decimal.Decimal `json:"unvalued_quantity"`
	Unscoped    bool            `json:"unscoped"`
}

// ArticleValuationResponse aggregates the valuation of an article over every depot
type ArticleValuationResponse struct {
	ArticleID     uuid.UUID           `json:"article_id"`
	Method        string              `json:"method"`
	TotalQuantity decimal.Decimal     `json:"total_quantity"`
	TotalValue    decimal.Decimal     `json:"total_value"`
	Depots        []ValuationResponse `json:"depots"`
}

// LedgerAuditResponse compares a stored position with the ledger replay
type LedgerAuditResponse struct {
	ArticleID      uuid.UUID       `json:"article_id"`
	DepotID        uuid.UUID       `json:"depot_id"`
	MovementCount  int             `json:"movement_count"`
	StoredQuantity decimal.Decimal `json:"stored_quantity"`
	StoredValue    decimal.Decimal `json:"stored_value"`
	LedgerQuantity decimal.Decimal `json:"ledger_quantity"`
	LedgerValue    decimal.Decimal `json:"ledger_value"`
	QuantityDrift  decimal.Decimal `json:"quantity_drift"`
	ValueDrift     decimal.Decimal `json:"value_drift"`
	Consistent     bool            `json:"consistent"`
	Repaired       bool            `json:"repaired"`
}

// RotationResponse is the stock turnover of a position over a date range
type RotationResponse struct {
	ArticleID       uuid.UUID        `json:"article_id"`
	DepotID         uuid.UUID        `json:"depot_id"`
	From            time.Time        `json:"from"`
	To              time.Time        `json:"to"`
	ExitQuantity    decimal.Decimal  `json:"exit_quantity"`
	OpeningQuantity decimal.Decimal  `json:"opening_quantity"`
	ClosingQuantity decimal.Decimal  `json:"closing_quantity"`
	AverageStock    decimal.Decimal  `json:"average_stock"`
	Rotation        decimal.Decimal  `json:"rotation"`
	CoverageDays    *decimal.Decimal `json:"coverage_days,omitempty"`
}

// ABCClass is the Pareto class of an article
type ABCClass string

const (
	ClassA ABCClass = "A"
	ClassB ABCClass = "B"
	ClassC ABCClass = "C"
)

// ABCItem is one classified position
type ABCItem struct {
	ArticleID       uuid.UUID       `json:"article_id"`
	Value           decimal.Decimal `json:"value"`
	Share           decimal.Decimal `json:"share"`
	CumulativeShare decimal.Decimal `json:"cumulative_share"`
	Class           ABCClass        `json:"class"`
}

// ABCResponse is the ABC classification of a depot by stock value
type ABCResponse struct {
	DepotID    uuid.UUID       `json:"depot_id"`
	TotalValue decimal.Decimal `json:"total_value"`
	Items      []ABCItem       `json:"items"`
}

// ToMovementResponse converts a domain StockMovement to MovementResponse
func ToMovementResponse(m *inventory.StockMovement) MovementResponse {
	resp := MovementResponse{
		ID:               m.ID,
		Reference:        m.Reference,
		Type:             string(m.Type),
		Direction:        string(m.Direction),
		ImpactsValuation: m.ImpactsValuation,
		ArticleID:        m.ArticleID,
		DepotID:          m.DepotID,
		LotID:            m.LotID,
		Quantity:         m.Quantity,
		UnitCost:         m.UnitCost,
		TotalValue:       m.TotalValue,
		MovementDate:     m.MovementDate,
		AccountingDate:   m.AccountingDate,
		Status:           string(m.Status),
		OriginType:       string(m.OriginType),
		OriginRef:        m.OriginRef,
		ReversalOfID:     m.ReversalOfID,
		CancelReason:     m.CancelReason,
		ValidatedAt:      m.ValidatedAt,
		CancelledAt:      m.CancelledAt,
		CreatedAt:        m.CreatedAt,
	}
	for _, line := range m.LotLines {
		resp.LotLines = append(resp.LotLines, MovementLotLineResponse{
			LotID:    line.LotID,
			Quantity: line.Quantity,
			UnitCost: line.UnitCost,
		})
	}
	return resp
}

// ToMovementResponses converts a slice of movements
func ToMovementResponses(movements []inventory.StockMovement) []MovementResponse {
	responses := make([]MovementResponse, len(movements))
	for i := range movements {
		responses[i] = ToMovementResponse(&movements[i])
	}
	return responses
}

// ToStockResponse converts a domain Stock to StockResponse
func ToStockResponse(s *inventory.Stock) StockResponse {
	return StockResponse{
		ID:                  s.ID,
		ArticleID:           s.ArticleID,
		DepotID:             s.DepotID,
		TheoreticalQuantity: s.TheoreticalQuantity,
		PhysicalQuantity:    s.PhysicalQuantity,
		ReservedQuantity:    s.ReservedQuantity,
		AvailableQuantity:   s.AvailableQuantity(),
		Value:               s.Value,
		AverageUnitCost:     s.AverageUnitCost(),
		LastMovementAt:      s.LastMovementAt,
		LastCountAt:         s.LastCountAt,
		Version:             s.Version,
	}
}

// ToStockResponses converts a slice of stocks
func ToStockResponses(stocks []inventory.Stock) []StockResponse {
	responses := make([]StockResponse, len(stocks))
	for i := range stocks {
		responses[i] = ToStockResponse(&stocks[i])
	}
	return responses
}

// ToLotResponse converts a domain Lot to LotResponse
func ToLotResponse(l *inventory.Lot, now time.Time) LotResponse {
	resp := LotResponse{
		ID:              l.ID,
		LotNumber:       l.LotNumber,
		ArticleID:       l.ArticleID,
		DepotID:         l.DepotID,
		InitialQuantity: l.InitialQuantity,
		CurrentQuantity: l.CurrentQuantity,
		UnitCost:        l.UnitCost,
		Value:           l.Value(),
		ManufacturedAt:  l.ManufacturedAt,
		ReceivedAt:      l.ReceivedAt,
		ExpiryDate:      l.ExpiryDate,
		Status:          string(l.Status),
		MergedIntoID:    l.MergedIntoID,
		OriginRef:       l.OriginRef,
	}
	if l.ExpiryDate != nil {
		days := l.DaysUntilExpiry(now)
		resp.DaysUntilExpiry = &days
	}
	return resp
}

// ToLotResponses converts a slice of lots
func ToLotResponses(lots []inventory.Lot, now time.Time) []LotResponse {
	responses := make([]LotResponse, len(lots))
	for i := range lots {
		responses[i] = ToLotResponse(&lots[i], now)
	}
	return responses
}

// ToAllocationResponse converts a lot selection result
func ToAllocationResponse(policy string, requested decimal.Decimal, result strategy.LotSelectionResult) AllocationResponse {
	resp := AllocationResponse{
		Policy:      policy,
		Requested:   requested,
		Allocated:   result.TotalQty,
		Shortfall:   result.ShortfallQty,
		Covered:     result.Covered(),
		Allocations: make([]LotAllocationResponse, 0, len(result.Allocations)),
	}
	for _, a := range result.Allocations {
		resp.Allocations = append(resp.Allocations, LotAllocationResponse{
			LotID:     a.LotID,
			LotNumber: a.LotNumber,
			Quantity:  a.Quantity,
			UnitCost:  a.UnitCost,
		})
	}
	return resp
}

// ToReservationResponse converts a domain Reservation to ReservationResponse
func ToReservationResponse(r *inventory.Reservation) ReservationResponse {
	return ReservationResponse{
		ID:                r.ID,
		Reference:         r.Reference,
		ArticleID:         r.ArticleID,
		DepotID:           r.DepotID,
		LotID:             r.LotID,
		OrderRef:          r.OrderRef,
		LineRef:           r.LineRef,
		ReservedQuantity:  r.ReservedQuantity,
		WithdrawnQuantity: r.WithdrawnQuantity,
		RemainingQuantity: r.RemainingQuantity(),
		Status:            string(r.Status),
		ExpiresAt:         r.ExpiresAt,
		ReleasedAt:        r.ReleasedAt,
		WithdrawnAt:       r.WithdrawnAt,
		CreatedAt:         r.CreatedAt,
	}
}

// ToReservationResponses converts a slice of reservations
func ToReservationResponses(reservations []inventory.Reservation) []ReservationResponse {
	responses := make([]ReservationResponse, len(reservations))
	for i := range reservations {
		responses[i] = ToReservationResponse(&reservations[i])
	}
	return responses
}
