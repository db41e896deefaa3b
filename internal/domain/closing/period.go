package closing

import (
	"fmt"
	"time"

	"github.com/erp/stockledger/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// PeriodStatus represents the status of a monthly closing
type PeriodStatus string

const (
	PeriodOpen       PeriodStatus = "OPEN"
	PeriodInProgress PeriodStatus = "IN_PROGRESS"
	PeriodClosed     PeriodStatus = "CLOSED"
	PeriodValidated  PeriodStatus = "VALIDATED"
	PeriodRejected   PeriodStatus = "REJECTED"
)

// IsValid checks if the status is valid
func (s PeriodStatus) IsValid() bool {
	switch s {
	case PeriodOpen, PeriodInProgress, PeriodClosed, PeriodValidated, PeriodRejected:
		return true
	}
	return false
}

// LocksMovements returns true when no movement may be booked in the period
func (s PeriodStatus) LocksMovements() bool {
	return s == PeriodInProgress || s == PeriodClosed || s == PeriodValidated
}

// IsReusable returns true when InitializePeriod hands the existing period back
func (s PeriodStatus) IsReusable() bool {
	return s == PeriodOpen || s == PeriodRejected
}

// PeriodClosing is the monthly freeze of stock valuation for one (year, month)
type PeriodClosing struct {
	shared.BaseAggregateRoot
	Year            int             `gorm:"not null;uniqueIndex:idx_period_year_month,priority:1"`
	Month           int             `gorm:"not null;uniqueIndex:idx_period_year_month,priority:2"`
	Status          PeriodStatus    `gorm:"type:varchar(20);not null;default:'OPEN';index"`
	TotalRows       int             `gorm:"not null;default:0"`
	ValuedRows      int             `gorm:"not null;default:0"`
	CoverageRatio   decimal.Decimal `gorm:"type:decimal(9,4);not null;default:0"`
	TotalQuantity   decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	TotalValue      decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	PreviousValue   decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	Variance        decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	VariancePercent decimal.Decimal `gorm:"type:decimal(9,4);not null;default:0"`
	StartedAt       *time.Time
	ClosedAt        *time.Time
	ValidatedAt     *time.Time
	ValidatedBy     string `gorm:"type:varchar(100)"`
	RejectedAt      *time.Time
	ErrorMessage    string `gorm:"type:text"`
	ArchiveKey      string `gorm:"type:varchar(300)"`
}

// TableName returns the table name for GORM
func (PeriodClosing) TableName() string {
	return "period_closings"
}

// NewPeriodClosing creates an OPEN period
func NewPeriodClosing(year, month int) (*PeriodClosing, error) {
	if year < 1900 || year > 9999 {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, fmt.Sprintf("Invalid year %d", year))
	}
	if month < 1 || month > 12 {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, fmt.Sprintf("Invalid month %d", month))
	}
	return &PeriodClosing{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		Year:              year,
		Month:             month,
		Status:            PeriodOpen,
		CoverageRatio:     decimal.Zero,
		TotalQuantity:     decimal.Zero,
		TotalValue:        decimal.Zero,
		PreviousValue:     decimal.Zero,
		Variance:          decimal.Zero,
		VariancePercent:   decimal.Zero,
	}, nil
}

// Label returns the period as YYYY-MM
func (p *PeriodClosing) Label() string {
	return fmt.Sprintf("%04d-%02d", p.Year, p.Month)
}

// Bounds returns the first instant of the period and the first instant of the next one, in UTC
func (p *PeriodClosing) Bounds() (time.Time, time.Time) {
	return MonthBounds(p.Year, p.Month)
}

// MonthBounds returns [start, end) of a calendar month in UTC
func MonthBounds(year, month int) (time.Time, time.Time) {
	start := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	return start, start.AddDate(0, 1, 0)
}

// Contains reports whether the date falls in the period
func (p *PeriodClosing) Contains(date time.Time) bool {
	start, end := p.Bounds()
	d := date.UTC()
	return !d.Before(start) && d.Before(end)
}

// Start moves an OPEN or REJECTED period into IN_PROGRESS and clears previous results
func (p *PeriodClosing) Start(at time.Time) error {
	if !p.Status.IsReusable() {
		return shared.InvalidStateError("period "+p.Label(), string(p.Status), "execute closing")
	}
	p.Status = PeriodInProgress
	p.StartedAt = &at
	p.ErrorMessage = ""
	p.TotalRows = 0
	p.ValuedRows = 0
	p.TotalQuantity = decimal.Zero
	p.TotalValue = decimal.Zero
	p.UpdatedAt = at
	return nil
}

// ClosingTotals are the aggregates computed by the snapshot loop
type ClosingTotals struct {
	TotalRows     int
	ValuedRows    int
	TotalQuantity decimal.Decimal
	TotalValue    decimal.Decimal
	// PreviousValue is the total of the previous VALIDATED period, nil when there is none
	PreviousValue *decimal.Decimal
}

// Complete records the totals and moves the period to CLOSED
func (p *PeriodClosing) Complete(totals ClosingTotals, at time.Time) error {
	if p.Status != PeriodInProgress {
		return shared.InvalidStateError("period "+p.Label(), string(p.Status), "complete closing")
	}
	p.TotalRows = totals.TotalRows
	p.ValuedRows = totals.ValuedRows
	p.TotalQuantity = totals.TotalQuantity
	p.TotalValue = totals.TotalValue.Round(4)

	if totals.TotalRows > 0 {
		p.CoverageRatio = decimal.NewFromInt(int64(totals.ValuedRows)).
			Div(decimal.NewFromInt(int64(totals.TotalRows))).
			Mul(decimal.NewFromInt(100)).
			Round(4)
	} else {
		p.CoverageRatio = decimal.NewFromInt(100)
	}

	if totals.PreviousValue != nil {
		p.PreviousValue = *totals.PreviousValue
		p.Variance = p.TotalValue.Sub(p.PreviousValue)
		if p.PreviousValue.IsZero() {
			p.VariancePercent = decimal.Zero
		} else {
			p.VariancePercent = p.Variance.Div(p.PreviousValue.Abs()).Mul(decimal.NewFromInt(100)).Round(4)
		}
	} else {
		p.PreviousValue = decimal.Zero
		p.Variance = decimal.Zero
		p.VariancePercent = decimal.Zero
	}

	p.Status = PeriodClosed
	p.ClosedAt = &at
	p.UpdatedAt = at
	p.AddDomainEvent(NewPeriodClosedEvent(p))
	return nil
}

// Fail marks the period REJECTED with the causing message
func (p *PeriodClosing) Fail(message string, at time.Time) {
	p.Status = PeriodRejected
	p.ErrorMessage = message
	p.RejectedAt = &at
	p.UpdatedAt = at
}

// Validate freezes a CLOSED period
func (p *PeriodClosing) Validate(validator string, at time.Time) error {
	if p.Status != PeriodClosed {
		return shared.InvalidStateError("period "+p.Label(), string(p.Status), "validate")
	}
	if validator == "" {
		return shared.NewDomainError(shared.CodeInvalidInput, "Validator is required")
	}
	p.Status = PeriodValidated
	p.ValidatedBy = validator
	p.ValidatedAt = &at
	p.UpdatedAt = at
	return nil
}

// Reject sends a period back for a rerun. VALIDATED periods are immutable.
func (p *PeriodClosing) Reject(reason string, at time.Time) error {
	if p.Status == PeriodValidated {
		return shared.InvalidStateError("period "+p.Label(), string(p.Status), "reject")
	}
	p.Fail(reason, at)
	p.ArchiveKey = ""
	return nil
}

// SetArchiveKey records where the snapshot archive was stored
func (p *PeriodClosing) SetArchiveKey(key string) {
	p.ArchiveKey = key
	p.Touch()
}
