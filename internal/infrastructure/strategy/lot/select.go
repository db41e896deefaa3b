package lot

import (
	"github.com/erp/stockledger/internal/domain/shared/strategy"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// withQuantity drops candidates with nothing left and copies the slice
func withQuantity(candidates []strategy.LotCandidate) []strategy.LotCandidate {
	filtered := make([]strategy.LotCandidate, 0, len(candidates))
	for _, c := range candidates {
		if c.Quantity.IsPositive() {
			filtered = append(filtered, c)
		}
	}
	return filtered
}

// preferLot moves the preferred lot to the front of an ordered list
func preferLot(ordered []strategy.LotCandidate, preferred *uuid.UUID) ([]strategy.LotCandidate, bool) {
	if preferred == nil {
		return ordered, false
	}
	for i := range ordered {
		if ordered[i].ID == *preferred {
			result := make([]strategy.LotCandidate, 0, len(ordered))
			result = append(result, ordered[i])
			result = append(result, ordered[:i]...)
			result = append(result, ordered[i+1:]...)
			return result, true
		}
	}
	return ordered, false
}

// allocate covers the demand from ordered lots.
// Without a preferred lot the first lot covering the whole demand on its own wins;
// otherwise lots are aggregated in order until the demand is met.
func allocate(ordered []strategy.LotCandidate, quantity decimal.Decimal, hasPreferred bool) strategy.LotSelectionResult {
	if !hasPreferred {
		for _, c := range ordered {
			if c.Quantity.GreaterThanOrEqual(quantity) {
				return strategy.LotSelectionResult{
					Allocations:  []strategy.LotAllocation{toAllocation(c, quantity)},
					TotalQty:     quantity,
					ShortfallQty: decimal.Zero,
				}
			}
		}
	}

	remaining := quantity
	total := decimal.Zero
	allocations := make([]strategy.LotAllocation, 0)
	for _, c := range ordered {
		if !remaining.IsPositive() {
			break
		}
		taken := decimal.Min(remaining, c.Quantity)
		allocations = append(allocations, toAllocation(c, taken))
		remaining = remaining.Sub(taken)
		total = total.Add(taken)
	}

	return strategy.LotSelectionResult{
		Allocations:  allocations,
		TotalQty:     total,
		ShortfallQty: remaining,
	}
}

func toAllocation(c strategy.LotCandidate, quantity decimal.Decimal) strategy.LotAllocation {
	return strategy.LotAllocation{
		LotID:     c.ID,
		LotNumber: c.LotNumber,
		Quantity:  quantity,
		UnitCost:  c.UnitCost,
	}
}
