package lot

import (
	"context"
	"sort"
	"time"

	"github.com/erp/stockledger/internal/domain/shared"
	"github.com/erp/stockledger/internal/domain/shared/strategy"
)

// FEFOLotStrategy implements First Expired First Out lot selection.
// Lots are ordered by expiry date (earliest first), lots without expiry last.
// Ideal for perishable and traceable articles.
type FEFOLotStrategy struct {
	strategy.BaseStrategy
}

// NewFEFOLotStrategy creates a new FEFO lot strategy
func NewFEFOLotStrategy() *FEFOLotStrategy {
	return &FEFOLotStrategy{
		BaseStrategy: strategy.NewBaseStrategy(
			"FEFO",
			strategy.StrategyTypeLotSelection,
			"First Expired First Out - consumes lots by expiry date (earliest first)",
		),
	}
}

// Order sorts lots by expiry date with nulls last, reception date breaking ties
func (s *FEFOLotStrategy) Order(candidates []strategy.LotCandidate) []strategy.LotCandidate {
	ordered := withQuantity(candidates)
	sort.SliceStable(ordered, func(i, j int) bool {
		iExpiry, jExpiry := ordered[i].ExpiryDate, ordered[j].ExpiryDate
		switch {
		case iExpiry == nil && jExpiry == nil:
			return ordered[i].ReceivedAt.Before(ordered[j].ReceivedAt)
		case iExpiry == nil:
			return false
		case jExpiry == nil:
			return true
		case !iExpiry.Equal(*jExpiry):
			return iExpiry.Before(*jExpiry)
		default:
			return ordered[i].ReceivedAt.Before(ordered[j].ReceivedAt)
		}
	})
	return ordered
}

// SelectLots allocates the demand in FEFO order, skipping lots already past expiry
func (s *FEFOLotStrategy) SelectLots(
	ctx context.Context,
	req strategy.LotSelectionRequest,
	candidates []strategy.LotCandidate,
) (strategy.LotSelectionResult, error) {
	if !req.Quantity.IsPositive() {
		return strategy.LotSelectionResult{}, shared.NewDomainError(shared.CodeDataIntegrity, "Requested quantity must be positive")
	}
	ordered := s.Order(candidates)
	if !req.AsOf.IsZero() {
		ordered = notExpired(ordered, req.AsOf)
	}
	ordered, hasPreferred := preferLot(ordered, req.PreferLotID)
	return allocate(ordered, req.Quantity, hasPreferred), nil
}

// notExpired keeps lots without expiry or expiring after the given instant
func notExpired(candidates []strategy.LotCandidate, asOf time.Time) []strategy.LotCandidate {
	filtered := make([]strategy.LotCandidate, 0, len(candidates))
	for _, c := range candidates {
		if c.ExpiryDate == nil || c.ExpiryDate.After(asOf) {
			filtered = append(filtered, c)
		}
	}
	return filtered
}
