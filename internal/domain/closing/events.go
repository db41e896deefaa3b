package closing

import (
	"github.com/erp/stockledger/internal/domain/shared"
	"github.com/shopspring/decimal"
)

const (
	AggregateTypePeriod   = "PeriodClosing"
	EventTypePeriodClosed = "PeriodClosed"
)

// PeriodClosedEvent is raised when a closing completes
type PeriodClosedEvent struct {
	shared.BaseDomainEvent
	Year          int             `json:"year"`
	Month         int             `json:"month"`
	TotalValue    decimal.Decimal `json:"total_value"`
	Variance      decimal.Decimal `json:"variance"`
	CoverageRatio decimal.Decimal `json:"coverage_ratio"`
}

// NewPeriodClosedEvent creates a PeriodClosedEvent
func NewPeriodClosedEvent(p *PeriodClosing) *PeriodClosedEvent {
	return &PeriodClosedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypePeriodClosed, AggregateTypePeriod, p.ID),
		Year:            p.Year,
		Month:           p.Month,
		TotalValue:      p.TotalValue,
		Variance:        p.Variance,
		CoverageRatio:   p.CoverageRatio,
	}
}
