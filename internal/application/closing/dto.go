package closing

import (
	"time"

	"github.com/erp/stockledger/internal/domain/closing"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// InitializePeriodRequest opens the closing of a month
type InitializePeriodRequest struct {
	Year  int `json:"year" binding:"required,min=1900,max=9999"`
	Month int `json:"month" binding:"required,min=1,max=12"`
}

// ValidatePeriodRequest freezes a closed period
type ValidatePeriodRequest struct {
	ValidatedBy string `json:"validated_by" binding:"required,max=100"`
}

// RejectPeriodRequest sends a period back for a rerun
type RejectPeriodRequest struct {
	Reason string `json:"reason" binding:"required,max=500"`
}

// ListFilter represents paging options for period and snapshot listings
type ListFilter struct {
	Page     int `form:"page" binding:"omitempty,min=1"`
	PageSize int `form:"page_size" binding:"omitempty,min=1,max=500"`
}

// PeriodResponse represents a monthly closing in API responses
type PeriodResponse struct {
	ID              uuid.UUID       `json:"id"`
	Year            int             `json:"year"`
	Month           int             `json:"month"`
	Label           string          `json:"label"`
	Status          string          `json:"status"`
	TotalRows       int             `json:"total_rows"`
	ValuedRows      int             `json:"valued_rows"`
	CoverageRatio   decimal.Decimal `json:"coverage_ratio"`
	TotalQuantity   decimal.Decimal `json:"total_quantity"`
	TotalValue      decimal.Decimal `json:"total_value"`
	PreviousValue   decimal.Decimal `json:"previous_value"`
	Variance        decimal.Decimal `json:"variance"`
	VariancePercent decimal.Decimal `json:"variance_percent"`
	StartedAt       *time.Time      `json:"started_at,omitempty"`
	ClosedAt        *time.Time      `json:"closed_at,omitempty"`
	ValidatedAt     *time.Time      `json:"validated_at,omitempty"`
	ValidatedBy     string          `json:"validated_by,omitempty"`
	RejectedAt      *time.Time      `json:"rejected_at,omitempty"`
	ErrorMessage    string          `json:"error_message,omitempty"`
	ArchiveKey      string          `json:"archive_key,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
}

// SnapshotResponse represents a frozen cost snapshot
type SnapshotResponse struct {
	ID           uuid.UUID       `json:"id"`
	PeriodID     uuid.UUID       `json:"period_id"`
	ArticleID    uuid.UUID       `json:"article_id"`
	DepotID      uuid.UUID       `json:"depot_id"`
	Quantity     decimal.Decimal `json:"quantity"`
	UnitCost     decimal.Decimal `json:"unit_cost"`
	TotalValue   decimal.Decimal `json:"total_value"`
	Method       string          `json:"method"`
	SnapshotDate time.Time       `json:"snapshot_date"`
}

// PeriodLockResponse tells whether a date falls in a locked period
type PeriodLockResponse struct {
	Date     time.Time  `json:"date"`
	Locked   bool       `json:"locked"`
	PeriodID *uuid.UUID `json:"period_id,omitempty"`
	Status   string     `json:"status,omitempty"`
}

// ArchiveLinkResponse is a temporary download link to a closing archive
type ArchiveLinkResponse struct {
	Key       string    `json:"key"`
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expires_at"`
}

// ToPeriodResponse converts a domain PeriodClosing to PeriodResponse
func ToPeriodResponse(p *closing.PeriodClosing) PeriodResponse {
	return PeriodResponse{
		ID:              p.ID,
		Year:            p.Year,
		Month:           p.Month,
		Label:           p.Label(),
		Status:          string(p.Status),
		TotalRows:       p.TotalRows,
		ValuedRows:      p.ValuedRows,
		CoverageRatio:   p.CoverageRatio,
		TotalQuantity:   p.TotalQuantity,
		TotalValue:      p.TotalValue,
		PreviousValue:   p.PreviousValue,
		Variance:        p.Variance,
		VariancePercent: p.VariancePercent,
		StartedAt:       p.StartedAt,
		ClosedAt:        p.ClosedAt,
		ValidatedAt:     p.ValidatedAt,
		ValidatedBy:     p.ValidatedBy,
		RejectedAt:      p.RejectedAt,
		ErrorMessage:    p.ErrorMessage,
		ArchiveKey:      p.ArchiveKey,
		CreatedAt:       p.CreatedAt,
	}
}

// ToSnapshotResponse converts a domain CostSnapshot to SnapshotResponse
func ToSnapshotResponse(s *closing.CostSnapshot) SnapshotResponse {
	return SnapshotResponse{
		ID:           s.ID,
		PeriodID:     s.PeriodID,
		ArticleID:    s.ArticleID,
		DepotID:      s.DepotID,
		Quantity:     s.Quantity,
		UnitCost:     s.UnitCost,
		TotalValue:   s.TotalValue,
		Method:       s.Method,
		SnapshotDate: s.SnapshotDate,
	}
}

// ToSnapshotResponses converts snapshots to responses
func ToSnapshotResponses(snapshots []closing.CostSnapshot) []SnapshotResponse {
	responses := make([]SnapshotResponse, len(snapshots))
	for i := range snapshots {
		responses[i] = ToSnapshotResponse(&snapshots[i])
	}
	return responses
}
