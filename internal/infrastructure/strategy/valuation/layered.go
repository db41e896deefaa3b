package valuation

import (
	"context"

	"github.com/erp/stockledger/internal/domain/shared/strategy"
	"github.com/shopspring/decimal"
)

const scale int32 = 4

// lotOrderer is the part of a lot selection strategy the layered methods need
type lotOrderer interface {
	Order(candidates []strategy.LotCandidate) []strategy.LotCandidate
}

// LayeredValuationStrategy values the current quantity with lot costs taken in a
// policy order. It is not a cash flow simulation: the demand starts at the
// theoretical quantity and each lot prices min(remaining, lot quantity).
type LayeredValuationStrategy struct {
	strategy.BaseStrategy
	orderer lotOrderer
}

// NewFIFOValuationStrategy values oldest received lots first
func NewFIFOValuationStrategy(orderer lotOrderer) *LayeredValuationStrategy {
	return &LayeredValuationStrategy{
		BaseStrategy: strategy.NewBaseStrategy(
			"FIFO",
			strategy.StrategyTypeValuation,
			"First In First Out - values quantity with the oldest lot costs",
		),
		orderer: orderer,
	}
}

// NewFEFOValuationStrategy values earliest expiring lots first
func NewFEFOValuationStrategy(orderer lotOrderer) *LayeredValuationStrategy {
	return &LayeredValuationStrategy{
		BaseStrategy: strategy.NewBaseStrategy(
			"FEFO",
			strategy.StrategyTypeValuation,
			"First Expired First Out - values quantity with the earliest expiring lot costs",
		),
		orderer: orderer,
	}
}

// UsesLots returns true
func (s *LayeredValuationStrategy) UsesLots() bool {
	return true
}

// Value walks the ordered lots until the quantity is priced.
// Quantity no lot covers is reported as UnvaluedQty and adds nothing.
func (s *LayeredValuationStrategy) Value(ctx context.Context, input strategy.ValuationInput) (strategy.ValuationResult, error) {
	remaining := input.Quantity
	total := decimal.Zero

	for _, lot := range s.orderer.Order(input.Lots) {
		if !remaining.IsPositive() {
			break
		}
		taken := decimal.Min(remaining, lot.Quantity)
		total = total.Add(taken.Mul(lot.UnitCost))
		remaining = remaining.Sub(taken)
	}
	if remaining.IsNegative() {
		remaining = decimal.Zero
	}

	valued := input.Quantity.Sub(remaining)
	unitCost := decimal.Zero
	if valued.IsPositive() {
		unitCost = total.Div(valued).Round(scale)
	}

	return strategy.ValuationResult{
		Method:      s.Name(),
		Quantity:    input.Quantity,
		Value:       total.Round(scale),
		UnitCost:    unitCost,
		UnvaluedQty: remaining,
	}, nil
}
