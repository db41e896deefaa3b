package lot

import (
	"context"
	"sort"

	"github.com/erp/stockledger/internal/domain/shared"
	"github.com/erp/stockledger/internal/domain/shared/strategy"
)

// FIFOLotStrategy implements First In First Out lot selection.
// Lots are ordered by reception date (oldest first).
type FIFOLotStrategy struct {
	strategy.BaseStrategy
}

// NewFIFOLotStrategy creates a new FIFO lot strategy
func NewFIFOLotStrategy() *FIFOLotStrategy {
	return &FIFOLotStrategy{
		BaseStrategy: strategy.NewBaseStrategy(
			"FIFO",
			strategy.StrategyTypeLotSelection,
			"First In First Out - consumes lots by reception date (oldest first)",
		),
	}
}

// Order sorts lots by reception date, lot number breaking ties
func (s *FIFOLotStrategy) Order(candidates []strategy.LotCandidate) []strategy.LotCandidate {
	ordered := withQuantity(candidates)
	sort.SliceStable(ordered, func(i, j int) bool {
		if !ordered[i].ReceivedAt.Equal(ordered[j].ReceivedAt) {
			return ordered[i].ReceivedAt.Before(ordered[j].ReceivedAt)
		}
		return ordered[i].LotNumber < ordered[j].LotNumber
	})
	return ordered
}

// SelectLots allocates the demand in FIFO order
func (s *FIFOLotStrategy) SelectLots(
	ctx context.Context,
	req strategy.LotSelectionRequest,
	candidates []strategy.LotCandidate,
) (strategy.LotSelectionResult, error) {
	if !req.Quantity.IsPositive() {
		return strategy.LotSelectionResult{}, shared.NewDomainError(shared.CodeDataIntegrity, "Requested quantity must be positive")
	}
	ordered, hasPreferred := preferLot(s.Order(candidates), req.PreferLotID)
	return allocate(ordered, req.Quantity, hasPreferred), nil
}
