package catalog

// ValuationMethod is the costing method an article is valued with
type ValuationMethod string

const (
	// ValuationCUMP is the weighted average unit cost, kept incrementally on every entry
	ValuationCUMP ValuationMethod = "CUMP"
	// ValuationFIFO values the current quantity with the oldest received lots first
	ValuationFIFO ValuationMethod = "FIFO"
	// ValuationFEFO values the current quantity with the earliest expiring lots first
	ValuationFEFO ValuationMethod = "FEFO"
)

// IsValid checks if the valuation method is valid
func (m ValuationMethod) IsValid() bool {
	switch m {
	case ValuationCUMP, ValuationFIFO, ValuationFEFO:
		return true
	default:
		return false
	}
}

// String returns the string representation of the valuation method
func (m ValuationMethod) String() string {
	return string(m)
}

// UsesLots returns true if the method values stock from lot layers
func (m ValuationMethod) UsesLots() bool {
	return m == ValuationFIFO || m == ValuationFEFO
}

// LotPolicy returns the name of the lot consumption order matching the method.
// CUMP articles that are lot tracked consume their oldest lots first.
func (m ValuationMethod) LotPolicy() string {
	if m == ValuationFEFO {
		return string(ValuationFEFO)
	}
	return string(ValuationFIFO)
}
