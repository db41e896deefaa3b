package strategy

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// LotCandidate is the view of a lot that selection and valuation strategies work on
type LotCandidate struct {
	ID         uuid.UUID
	LotNumber  string
	Quantity   decimal.Decimal
	UnitCost   decimal.Decimal
	ReceivedAt time.Time
	ExpiryDate *time.Time
}

// LotAllocation is the quantity taken from one lot
type LotAllocation struct {
	LotID     uuid.UUID
	LotNumber string
	Quantity  decimal.Decimal
	UnitCost  decimal.Decimal
}

// LotSelectionRequest describes the demand to cover
type LotSelectionRequest struct {
	ArticleID uuid.UUID
	DepotID   uuid.UUID
	Quantity  decimal.Decimal
	// PreferLotID is consumed first when present among the candidates
	PreferLotID *uuid.UUID
	// AsOf excludes lots already past expiry for expiry aware policies; zero disables it
	AsOf time.Time
}

// LotSelectionResult contains the allocations in consumption order.
// ShortfallQty is the part of the demand no candidate could cover.
type LotSelectionResult struct {
	Allocations  []LotAllocation
	TotalQty     decimal.Decimal
	ShortfallQty decimal.Decimal
}

// Covered reports whether the whole demand was allocated
func (r LotSelectionResult) Covered() bool {
	return r.ShortfallQty.IsZero()
}

// LotSelectionStrategy orders candidate lots and allocates a demand across them
type LotSelectionStrategy interface {
	Strategy
	// Order returns the candidates in consumption order without mutating the input
	Order(candidates []LotCandidate) []LotCandidate
	// SelectLots allocates the requested quantity across the candidates
	SelectLots(ctx context.Context, req LotSelectionRequest, candidates []LotCandidate) (LotSelectionResult, error)
}
