package strategy

import (
	"context"

	"github.com/shopspring/decimal"
)

// ValuationInput carries everything a valuation method may need.
// CUMP reads StoredValue, lot based methods walk Lots.
type ValuationInput struct {
	Quantity    decimal.Decimal
	StoredValue decimal.Decimal
	Lots        []LotCandidate
}

// ValuationResult is the value of a quantity under one method
type ValuationResult struct {
	Method   string
	Quantity decimal.Decimal
	Value    decimal.Decimal
	UnitCost decimal.Decimal
	// UnvaluedQty is quantity that no lot could price
	UnvaluedQty decimal.Decimal
}

// ValuationStrategy computes the value of a stock position
type ValuationStrategy interface {
	Strategy
	// UsesLots reports whether the method needs lot candidates
	UsesLots() bool
	Value(ctx context.Context, input ValuationInput) (ValuationResult, error)
}
