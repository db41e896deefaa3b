package inventory

import (
	"time"

	"github.com/erp/stockledger/internal/domain/inventory"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CreateCampaignRequest represents a request to plan a counting campaign
type CreateCampaignRequest struct {
	DepotID   uuid.UUID `json:"depot_id" binding:"required"`
	Label     string    `json:"label" binding:"max=200"`
	PlannedAt time.Time `json:"planned_at"`
}

// StartCampaignRequest restricts the counted positions to some articles.
// An empty list counts every position of the depot.
type StartCampaignRequest struct {
	ArticleIDs []uuid.UUID `json:"article_ids"`
}

// RecordCountRequest represents a first count or a recount of a line
type RecordCountRequest struct {
	Quantity  decimal.Decimal `json:"quantity" binding:"gte=0"`
	CountedBy string          `json:"counted_by" binding:"required,max=100"`
}

// ValidateLineRequest represents the validation of a counted line
type ValidateLineRequest struct {
	ValidatedBy string `json:"validated_by" binding:"required,max=100"`
}

// ExcludeLineRequest represents the exclusion of a line from the campaign
type ExcludeLineRequest struct {
	Reason string `json:"reason" binding:"required,max=500"`
}

// ValidateAdjustmentRequest represents the second validation of an adjustment
type ValidateAdjustmentRequest struct {
	Validator string `json:"validator" binding:"required,max=100"`
}

// CancelCampaignRequest represents a request to cancel a campaign
type CancelCampaignRequest struct {
	Reason string `json:"reason" binding:"required,max=500"`
}

// CampaignListFilter represents filter options for campaign listings
type CampaignListFilter struct {
	DepotID  *uuid.UUID `form:"depot_id"`
	Page     int        `form:"page" binding:"omitempty,min=1"`
	PageSize int        `form:"page_size" binding:"omitempty,min=1,max=100"`
}

// InventoryLineResponse represents a counted line
type InventoryLineResponse struct {
	ID                  uuid.UUID        `json:"id"`
	ArticleID           uuid.UUID        `json:"article_id"`
	TheoreticalQuantity decimal.Decimal  `json:"theoretical_quantity"`
	UnitCost            decimal.Decimal  `json:"unit_cost"`
	CountedQuantity1    *decimal.Decimal `json:"counted_quantity_1,omitempty"`
	CountedQuantity2    *decimal.Decimal `json:"counted_quantity_2,omitempty"`
	FinalQuantity       *decimal.Decimal `json:"final_quantity,omitempty"`
	Delta               decimal.Decimal  `json:"delta"`
	ValueDelta          decimal.Decimal  `json:"value_delta"`
	Status              string           `json:"status"`
	CountedBy           string           `json:"counted_by,omitempty"`
	RecountedBy         string           `json:"recounted_by,omitempty"`
	ValidatedBy         string           `json:"validated_by,omitempty"`
	ExclusionReason     string           `json:"exclusion_reason,omitempty"`
}

// CampaignResponse represents a campaign with its lines
type CampaignResponse struct {
	ID               uuid.UUID               `json:"id"`
	Reference        string                  `json:"reference"`
	DepotID          uuid.UUID               `json:"depot_id"`
	Label            string                  `json:"label,omitempty"`
	Status           string                  `json:"status"`
	PlannedAt        time.Time               `json:"planned_at"`
	StartedAt        *time.Time              `json:"started_at,omitempty"`
	CompletedAt      *time.Time              `json:"completed_at,omitempty"`
	ValidatedAt      *time.Time              `json:"validated_at,omitempty"`
	ClosedAt         *time.Time              `json:"closed_at,omitempty"`
	CancelledAt      *time.Time              `json:"cancelled_at,omitempty"`
	CancelReason     string                  `json:"cancel_reason,omitempty"`
	TotalTheoretical decimal.Decimal         `json:"total_theoretical"`
	TotalAbsDelta    decimal.Decimal         `json:"total_abs_delta"`
	Precision        decimal.Decimal         `json:"precision"`
	Lines            []InventoryLineResponse `json:"lines,omitempty"`
}

// AdjustmentResponse represents an inventory adjustment
type AdjustmentResponse struct {
	ID                       uuid.UUID       `json:"id"`
	CampaignID               uuid.UUID       `json:"campaign_id"`
	LineID                   uuid.UUID       `json:"line_id"`
	ArticleID                uuid.UUID       `json:"article_id"`
	DepotID                  uuid.UUID       `json:"depot_id"`
	QuantityDelta            decimal.Decimal `json:"quantity_delta"`
	ValueDelta               decimal.Decimal `json:"value_delta"`
	UnitCost                 decimal.Decimal `json:"unit_cost"`
	RequiresSecondValidation bool            `json:"requires_second_validation"`
	Status                   string          `json:"status"`
	FirstValidator           string          `json:"first_validator"`
	SecondValidator          string          `json:"second_validator,omitempty"`
	MovementID               *uuid.UUID      `json:"movement_id,omitempty"`
	AppliedAt                *time.Time      `json:"applied_at,omitempty"`
}

// ValidateLineResponse is the validated line with the adjustment and movement it produced
type ValidateLineResponse struct {
	Line       InventoryLineResponse `json:"line"`
	Adjustment *AdjustmentResponse   `json:"adjustment,omitempty"`
	Movement   *MovementResponse     `json:"movement,omitempty"`
}

// ValidateAdjustmentResponse is the approved adjustment and its correcting movement
type ValidateAdjustmentResponse struct {
	Adjustment AdjustmentResponse `json:"adjustment"`
	Movement   MovementResponse   `json:"movement"`
}

func nullable(d decimal.NullDecimal) *decimal.Decimal {
	if !d.Valid {
		return nil
	}
	v := d.Decimal
	return &v
}

// ToInventoryLineResponse converts a domain InventoryLine to InventoryLineResponse
func ToInventoryLineResponse(l *inventory.InventoryLine) InventoryLineResponse {
	return InventoryLineResponse{
		ID:                  l.ID,
		ArticleID:           l.ArticleID,
		TheoreticalQuantity: l.TheoreticalQuantity,
		UnitCost:            l.UnitCost,
		CountedQuantity1:    nullable(l.CountedQuantity1),
		CountedQuantity2:    nullable(l.CountedQuantity2),
		FinalQuantity:       nullable(l.FinalQuantity),
		Delta:               l.Delta(),
		ValueDelta:          l.ValueDelta(),
		Status:              string(l.Status),
		CountedBy:           l.CountedBy,
		RecountedBy:         l.RecountedBy,
		ValidatedBy:         l.ValidatedBy,
		ExclusionReason:     l.ExclusionReason,
	}
}

// ToCampaignResponse converts a domain InventoryCampaign to CampaignResponse
func ToCampaignResponse(c *inventory.InventoryCampaign) CampaignResponse {
	resp := CampaignResponse{
		ID:               c.ID,
		Reference:        c.Reference,
		DepotID:          c.DepotID,
		Label:            c.Label,
		Status:           string(c.Status),
		PlannedAt:        c.PlannedAt,
		StartedAt:        c.StartedAt,
		CompletedAt:      c.CompletedAt,
		ValidatedAt:      c.ValidatedAt,
		ClosedAt:         c.ClosedAt,
		CancelledAt:      c.CancelledAt,
		CancelReason:     c.CancelReason,
		TotalTheoretical: c.TotalTheoretical,
		TotalAbsDelta:    c.TotalAbsDelta,
		Precision:        c.Precision,
	}
	if len(c.Lines) > 0 {
		resp.Lines = make([]InventoryLineResponse, len(c.Lines))
		for i := range c.Lines {
			resp.Lines[i] = ToInventoryLineResponse(&c.Lines[i])
		}
	}
	return resp
}

// ToCampaignResponses converts campaigns without their lines
func ToCampaignResponses(campaigns []inventory.InventoryCampaign) []CampaignResponse {
	responses := make([]CampaignResponse, len(campaigns))
	for i := range campaigns {
		c := campaigns[i]
		c.Lines = nil
		responses[i] = ToCampaignResponse(&c)
	}
	return responses
}

// ToAdjustmentResponse converts a domain InventoryAdjustment to AdjustmentResponse
func ToAdjustmentResponse(a *inventory.InventoryAdjustment) AdjustmentResponse {
	return AdjustmentResponse{
		ID:                       a.ID,
		CampaignID:               a.CampaignID,
		LineID:                   a.LineID,
		ArticleID:                a.ArticleID,
		DepotID:                  a.DepotID,
		QuantityDelta:            a.QuantityDelta,
		ValueDelta:               a.ValueDelta,
		UnitCost:                 a.UnitCost,
		RequiresSecondValidation: a.RequiresSecondValidation,
		Status:                   string(a.Status),
		FirstValidator:           a.FirstValidator,
		SecondValidator:          a.SecondValidator,
		MovementID:               a.MovementID,
		AppliedAt:                a.AppliedAt,
	}
}

// ToAdjustmentResponses converts a slice of adjustments
func ToAdjustmentResponses(adjustments []inventory.InventoryAdjustment) []AdjustmentResponse {
	responses := make([]AdjustmentResponse, len(adjustments))
	for i := range adjustments {
		responses[i] = ToAdjustmentResponse(&adjustments[i])
	}
	return responses
}
