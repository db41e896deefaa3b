package inventory

import "github.com/shopspring/decimal"

// CountPolicy holds the discrepancy thresholds of the physical inventory workflow
type CountPolicy struct {
	// RecountUnitThreshold flags a line when |delta| exceeds this many units
	RecountUnitThreshold decimal.Decimal
	// RecountPercentThreshold flags a line when |delta| / theoretical exceeds this percentage
	RecountPercentThreshold decimal.Decimal
	// RecountValueThreshold flags a line when |delta| * unit cost exceeds this amount
	RecountValueThreshold decimal.Decimal
	// SecondValidationThreshold requires a second validator when |value delta| exceeds it
	SecondValidationThreshold decimal.Decimal
}

// DefaultCountPolicy returns the standard thresholds: 10 units, 5 %, 1000 and 5000
func DefaultCountPolicy() CountPolicy {
	return CountPolicy{
		RecountUnitThreshold:      decimal.NewFromInt(10),
		RecountPercentThreshold:   decimal.NewFromInt(5),
		RecountValueThreshold:     decimal.NewFromInt(1000),
		SecondValidationThreshold: decimal.NewFromInt(5000),
	}
}

// RequiresRecount reports whether a counted quantity differs enough from the
// theoretical one to require a second count. Any single threshold is enough.
func (p CountPolicy) RequiresRecount(theoretical, counted, unitCost decimal.Decimal) bool {
	delta := counted.Sub(theoretical).Abs()
	if delta.IsZero() {
		return false
	}
	if delta.GreaterThan(p.RecountUnitThreshold) {
		return true
	}
	if DeltaPercent(theoretical, counted).GreaterThan(p.RecountPercentThreshold) {
		return true
	}
	return delta.Mul(unitCost).GreaterThan(p.RecountValueThreshold)
}

// RequiresSecondValidation reports whether an adjustment value needs a second validator
func (p CountPolicy) RequiresSecondValidation(valueDelta decimal.Decimal) bool {
	return valueDelta.Abs().GreaterThan(p.SecondValidationThreshold)
}

// DeltaPercent returns |counted - theoretical| / theoretical * 100.
// A discrepancy on a zero theoretical quantity counts as 100 %.
func DeltaPercent(theoretical, counted decimal.Decimal) decimal.Decimal {
	delta := counted.Sub(theoretical).Abs()
	if delta.IsZero() {
		return decimal.Zero
	}
	if !theoretical.IsPositive() {
		return decimal.NewFromInt(100)
	}
	return delta.Div(theoretical).Mul(decimal.NewFromInt(100))
}
