package valuation

import (
	"context"

	"github.com/erp/stockledger/internal/domain/shared/strategy"
	"github.com/shopspring/decimal"
)

// CUMPValuationStrategy reads the weighted average value kept incrementally on the stock position
type CUMPValuationStrategy struct {
	strategy.BaseStrategy
}

// NewCUMPValuationStrategy creates a new CUMP valuation strategy
func NewCUMPValuationStrategy() *CUMPValuationStrategy {
	return &CUMPValuationStrategy{
		BaseStrategy: strategy.NewBaseStrategy(
			"CUMP",
			strategy.StrategyTypeValuation,
			"Weighted average unit cost, maintained on every entry",
		),
	}
}

// UsesLots returns false, the stored value is authoritative
func (s *CUMPValuationStrategy) UsesLots() bool {
	return false
}

// Value returns the stored value. It never replays the ledger.
func (s *CUMPValuationStrategy) Value(ctx context.Context, input strategy.ValuationInput) (strategy.ValuationResult, error) {
	unitCost := decimal.Zero
	if input.Quantity.IsPositive() {
		unitCost = input.StoredValue.Div(input.Quantity).Round(scale)
	}
	return strategy.ValuationResult{
		Method:      s.Name(),
		Quantity:    input.Quantity,
		Value:       input.StoredValue.Round(scale),
		UnitCost:    unitCost,
		UnvaluedQty: decimal.Zero,
	}, nil
}
