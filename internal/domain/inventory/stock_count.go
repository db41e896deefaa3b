package inventory

import (
	"time"

	"github.com/erp/stockledger/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CampaignStatus represents the status of a physical inventory campaign
type CampaignStatus string

const (
	CampaignPlanned    CampaignStatus = "PLANNED"
	CampaignInProgress CampaignStatus = "IN_PROGRESS"
	CampaignCompleted  CampaignStatus = "COMPLETED"
	CampaignValidated  CampaignStatus = "VALIDATED"
	CampaignClosed     CampaignStatus = "CLOSED"
	CampaignCancelled  CampaignStatus = "CANCELLED"
)

// CanTransitionTo checks if the status can transition to the target status
func (s CampaignStatus) CanTransitionTo(target CampaignStatus) bool {
	switch s {
	case CampaignPlanned:
		return target == CampaignInProgress || target == CampaignCancelled
	case CampaignInProgress:
		return target == CampaignCompleted || target == CampaignCancelled
	case CampaignCompleted:
		return target == CampaignValidated || target == CampaignCancelled
	case CampaignValidated:
		return target == CampaignClosed || target == CampaignCancelled
	case CampaignClosed, CampaignCancelled:
		return false
	}
	return false
}

// LineStatus represents the status of one counted line
type LineStatus string

const (
	LineToCount        LineStatus = "TO_COUNT"
	LineCounted        LineStatus = "COUNTED"
	LineRecountPending LineStatus = "ECART_A_RECOMPTER"
	LineValidated      LineStatus = "VALIDATED"
	LineAdjusted       LineStatus = "ADJUSTED"
	LineExcluded       LineStatus = "EXCLUDED"
)

// IsSettled returns true once the line no longer blocks campaign validation
func (s LineStatus) IsSettled() bool {
	return s == LineValidated || s == LineAdjusted || s == LineExcluded
}

// InventoryCampaign is a counting campaign over one depot
type InventoryCampaign struct {
	shared.BaseAggregateRoot
	Reference        string          `gorm:"type:varchar(50);not null;uniqueIndex"`
	DepotID          uuid.UUID       `gorm:"type:uuid;not null;index"`
	Label            string          `gorm:"type:varchar(200)"`
	Status           CampaignStatus  `gorm:"type:varchar(20);not null;default:'PLANNED';index"`
	PlannedAt        time.Time       `gorm:"not null"`
	StartedAt        *time.Time
	CompletedAt      *time.Time
	ValidatedAt      *time.Time
	ClosedAt         *time.Time
	CancelledAt      *time.Time
	CancelReason     string          `gorm:"type:varchar(500)"`
	TotalTheoretical decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	TotalAbsDelta    decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	Precision        decimal.Decimal `gorm:"type:decimal(9,6);not null;default:0"`

	// Lines is loaded and stored explicitly by the repository
	Lines []InventoryLine `gorm:"-"`
}

// TableName returns the table name for GORM
func (InventoryCampaign) TableName() string {
	return "inventory_campaigns"
}

// NewInventoryCampaign creates a PLANNED campaign
func NewInventoryCampaign(reference string, depotID uuid.UUID, label string, plannedAt time.Time) (*InventoryCampaign, error) {
	if reference == "" {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Campaign reference cannot be empty")
	}
	if depotID == uuid.Nil {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Depot ID cannot be empty")
	}
	if plannedAt.IsZero() {
		plannedAt = time.Now()
	}
	return &InventoryCampaign{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		Reference:         reference,
		DepotID:           depotID,
		Label:             label,
		Status:            CampaignPlanned,
		PlannedAt:         plannedAt,
		TotalTheoretical:  decimal.Zero,
		TotalAbsDelta:     decimal.Zero,
		Precision:         decimal.Zero,
	}, nil
}

func (c *InventoryCampaign) transition(target CampaignStatus, operation string) error {
	if !c.Status.CanTransitionTo(target) {
		return shared.InvalidStateError("campaign "+c.Reference, string(c.Status), operation)
	}
	c.Status = target
	c.Touch()
	return nil
}

// Start snapshots the theoretical quantities and opens counting
func (c *InventoryCampaign) Start(stocks []Stock, at time.Time) error {
	if err := c.transition(CampaignInProgress, "start"); err != nil {
		return err
	}
	c.StartedAt = &at
	c.Lines = make([]InventoryLine, 0, len(stocks))
	for i := range stocks {
		if stocks[i].DepotID != c.DepotID {
			continue
		}
		c.Lines = append(c.Lines, *NewInventoryLine(c.ID, &stocks[i]))
	}
	return nil
}

// IsCounting returns true while lines may be counted or validated
func (c *InventoryCampaign) IsCounting() bool {
	return c.Status == CampaignInProgress || c.Status == CampaignCompleted
}

// Line returns the line with the given ID
func (c *InventoryCampaign) Line(lineID uuid.UUID) (*InventoryLine, error) {
	for i := range c.Lines {
		if c.Lines[i].ID == lineID {
			return &c.Lines[i], nil
		}
	}
	return nil, shared.ErrNotFound
}

// Complete ends counting. Every line must have been counted (and recounted when flagged) or excluded.
func (c *InventoryCampaign) Complete(at time.Time) error {
	for i := range c.Lines {
		switch c.Lines[i].Status {
		case LineToCount, LineRecountPending:
			return shared.NewDomainError(shared.CodeInvalidState, "All lines must be counted before completing the campaign")
		}
	}
	if err := c.transition(CampaignCompleted, "complete"); err != nil {
		return err
	}
	c.CompletedAt = &at
	return nil
}

// Validate marks the campaign VALIDATED once every line is validated, adjusted or excluded
func (c *InventoryCampaign) Validate(at time.Time) error {
	for i := range c.Lines {
		if !c.Lines[i].Status.IsSettled() {
			return shared.NewDomainError(shared.CodeInvalidState, "Every line must be validated or excluded")
		}
	}
	if err := c.transition(CampaignValidated, "validate"); err != nil {
		return err
	}
	c.ValidatedAt = &at
	return nil
}

// Close computes the campaign precision, 1 - sum|delta| / sum theoretical,
// over the lines that were not excluded. Precision is floored at zero.
func (c *InventoryCampaign) Close(at time.Time) error {
	if err := c.transition(CampaignClosed, "close"); err != nil {
		return err
	}

	totalTheoretical := decimal.Zero
	totalDelta := decimal.Zero
	for i := range c.Lines {
		line := &c.Lines[i]
		if line.Status == LineExcluded {
			continue
		}
		totalTheoretical = totalTheoretical.Add(line.TheoreticalQuantity)
		totalDelta = totalDelta.Add(line.Delta().Abs())
	}
	c.TotalTheoretical = totalTheoretical
	c.TotalAbsDelta = totalDelta

	switch {
	case totalTheoretical.IsPositive():
		c.Precision = decimal.NewFromInt(1).Sub(totalDelta.Div(totalTheoretical)).Round(6)
		if c.Precision.IsNegative() {
			c.Precision = decimal.Zero
		}
	case totalDelta.IsZero():
		c.Precision = decimal.NewFromInt(1)
	default:
		c.Precision = decimal.Zero
	}
	c.ClosedAt = &at
	return nil
}

// Cancel abandons the campaign before it is closed
func (c *InventoryCampaign) Cancel(reason string, at time.Time) error {
	if err := c.transition(CampaignCancelled, "cancel"); err != nil {
		return err
	}
	c.CancelReason = reason
	c.CancelledAt = &at
	return nil
}

// InventoryLine pairs a theoretical snapshot with up to two counts
type InventoryLine struct {
	shared.BaseEntity
	CampaignID          uuid.UUID           `gorm:"type:uuid;not null;index"`
	ArticleID           uuid.UUID           `gorm:"type:uuid;not null;index"`
	StockID             uuid.UUID           `gorm:"type:uuid;not null"`
	TheoreticalQuantity decimal.Decimal     `gorm:"type:decimal(18,4);not null"`
	UnitCost            decimal.Decimal     `gorm:"type:decimal(18,4);not null;default:0"`
	CountedQuantity1    decimal.NullDecimal `gorm:"type:decimal(18,4)"`
	CountedQuantity2    decimal.NullDecimal `gorm:"type:decimal(18,4)"`
	FinalQuantity       decimal.NullDecimal `gorm:"type:decimal(18,4)"`
	Status              LineStatus          `gorm:"type:varchar(20);not null;default:'TO_COUNT'"`
	CountedBy           string              `gorm:"type:varchar(100)"`
	RecountedBy         string              `gorm:"type:varchar(100)"`
	ValidatedBy         string              `gorm:"type:varchar(100)"`
	ValidatedAt         *time.Time
	ExclusionReason     string `gorm:"type:varchar(500)"`
}

// TableName returns the table name for GORM
func (InventoryLine) TableName() string {
	return "inventory_lines"
}

// NewInventoryLine snapshots a stock position at campaign start
func NewInventoryLine(campaignID uuid.UUID, stock *Stock) *InventoryLine {
	return &InventoryLine{
		BaseEntity:          shared.NewBaseEntity(),
		CampaignID:          campaignID,
		ArticleID:           stock.ArticleID,
		StockID:             stock.ID,
		TheoreticalQuantity: stock.TheoreticalQuantity,
		UnitCost:            stock.AverageUnitCost(),
		Status:              LineToCount,
	}
}

// RecordCount stores the first count, or the second one when a count already exists.
// The first count flags the line for recount when the policy says so.
func (l *InventoryLine) RecordCount(quantity decimal.Decimal, countedBy string, policy CountPolicy) error {
	if quantity.IsNegative() {
		return shared.NewDomainError(shared.CodeDataIntegrity, "Counted quantity cannot be negative")
	}

	switch l.Status {
	case LineToCount:
		l.CountedQuantity1 = decimal.NewNullDecimal(quantity)
		l.FinalQuantity = l.CountedQuantity1
		l.CountedBy = countedBy
		if policy.RequiresRecount(l.TheoreticalQuantity, quantity, l.UnitCost) {
			l.Status = LineRecountPending
		} else {
			l.Status = LineCounted
		}
	case LineCounted, LineRecountPending:
		// the second count always wins over the first
		l.CountedQuantity2 = decimal.NewNullDecimal(quantity)
		l.FinalQuantity = l.CountedQuantity2
		l.RecountedBy = countedBy
		l.Status = LineCounted
	default:
		return shared.InvalidStateError("inventory line", string(l.Status), "count")
	}
	l.Touch()
	return nil
}

// Final returns the retained counted quantity, preferring the second count
func (l *InventoryLine) Final() decimal.Decimal {
	if l.CountedQuantity2.Valid {
		return l.CountedQuantity2.Decimal
	}
	if l.CountedQuantity1.Valid {
		return l.CountedQuantity1.Decimal
	}
	return l.TheoreticalQuantity
}

// Delta returns final minus theoretical quantity
func (l *InventoryLine) Delta() decimal.Decimal {
	if !l.FinalQuantity.Valid && !l.CountedQuantity1.Valid {
		return decimal.Zero
	}
	return l.Final().Sub(l.TheoreticalQuantity)
}

// ValueDelta returns delta times the snapshot unit cost
func (l *InventoryLine) ValueDelta() decimal.Decimal {
	return l.Delta().Mul(l.UnitCost).Round(ValueScale)
}

// Validate accepts the counted quantity. Lines awaiting a recount cannot be validated.
func (l *InventoryLine) Validate(validatedBy string, at time.Time) error {
	if l.Status != LineCounted {
		return shared.InvalidStateError("inventory line", string(l.Status), "validate")
	}
	if validatedBy == "" {
		return shared.NewDomainError(shared.CodeInvalidInput, "Validator is required")
	}
	l.Status = LineValidated
	l.ValidatedBy = validatedBy
	l.ValidatedAt = &at
	l.UpdatedAt = at
	return nil
}

// MarkAdjusted records that the correcting movement has been applied
func (l *InventoryLine) MarkAdjusted() error {
	if l.Status != LineValidated {
		return shared.InvalidStateError("inventory line", string(l.Status), "adjust")
	}
	l.Status = LineAdjusted
	l.Touch()
	return nil
}

// Exclude removes the line from the campaign
func (l *InventoryLine) Exclude(reason string) error {
	switch l.Status {
	case LineAdjusted, LineExcluded:
		return shared.InvalidStateError("inventory line", string(l.Status), "exclude")
	}
	l.Status = LineExcluded
	l.ExclusionReason = reason
	l.Touch()
	return nil
}

// AdjustmentStatus represents the status of an inventory adjustment
type AdjustmentStatus string

const (
	AdjustmentPendingSecondValidation AdjustmentStatus = "PENDING_SECOND_VALIDATION"
	AdjustmentApplied                 AdjustmentStatus = "APPLIED"
)

// InventoryAdjustment records the signed correction derived from a validated line
type InventoryAdjustment struct {
	shared.BaseEntity
	CampaignID               uuid.UUID        `gorm:"type:uuid;not null;index"`
	LineID                   uuid.UUID        `gorm:"type:uuid;not null;uniqueIndex"`
	ArticleID                uuid.UUID        `gorm:"type:uuid;not null"`
	DepotID                  uuid.UUID        `gorm:"type:uuid;not null"`
	QuantityDelta            decimal.Decimal  `gorm:"type:decimal(18,4);not null"`
	ValueDelta               decimal.Decimal  `gorm:"type:decimal(18,4);not null"`
	UnitCost                 decimal.Decimal  `gorm:"type:decimal(18,4);not null"`
	RequiresSecondValidation bool             `gorm:"not null;default:false"`
	Status                   AdjustmentStatus `gorm:"type:varchar(30);not null;index"`
	FirstValidator           string           `gorm:"type:varchar(100);not null"`
	SecondValidator          string           `gorm:"type:varchar(100)"`
	MovementID               *uuid.UUID       `gorm:"type:uuid"`
	AppliedAt                *time.Time
}

// TableName returns the table name for GORM
func (InventoryAdjustment) TableName() string {
	return "inventory_adjustments"
}

// NewInventoryAdjustment derives the adjustment of a validated line with a nonzero delta
func NewInventoryAdjustment(campaign *InventoryCampaign, line *InventoryLine, policy CountPolicy) (*InventoryAdjustment, error) {
	if line.Status != LineValidated {
		return nil, shared.InvalidStateError("inventory line", string(line.Status), "adjust")
	}
	delta := line.Delta()
	if delta.IsZero() {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "No discrepancy to adjust")
	}
	valueDelta := line.ValueDelta()
	requiresSecond := policy.RequiresSecondValidation(valueDelta)
	status := AdjustmentApplied
	if requiresSecond {
		status = AdjustmentPendingSecondValidation
	}
	return &InventoryAdjustment{
		BaseEntity:               shared.NewBaseEntity(),
		CampaignID:               campaign.ID,
		LineID:                   line.ID,
		ArticleID:                line.ArticleID,
		DepotID:                  campaign.DepotID,
		QuantityDelta:            delta,
		ValueDelta:               valueDelta,
		UnitCost:                 line.UnitCost,
		RequiresSecondValidation: requiresSecond,
		Status:                   status,
		FirstValidator:           line.ValidatedBy,
	}, nil
}

// IsPending returns true while the adjustment awaits its second validator
func (a *InventoryAdjustment) IsPending() bool {
	return a.Status == AdjustmentPendingSecondValidation
}

// MovementType returns the ledger movement type correcting the stock
func (a *InventoryAdjustment) MovementType() MovementType {
	if a.QuantityDelta.IsPositive() {
		return MovementAdjustmentPositive
	}
	return MovementAdjustmentNegative
}

// ApproveSecond records the second validation. The second validator must differ
// from the one who validated the line.
func (a *InventoryAdjustment) ApproveSecond(validator string) error {
	if !a.IsPending() {
		return shared.InvalidStateError("adjustment", string(a.Status), "approve")
	}
	if validator == "" {
		return shared.NewDomainError(shared.CodeInvalidInput, "Validator is required")
	}
	if validator == a.FirstValidator {
		return shared.NewDomainError(shared.CodeValidationConflict,
			"The second validation must be performed by a different user than the first")
	}
	a.SecondValidator = validator
	return nil
}

// MarkApplied links the correcting movement
func (a *InventoryAdjustment) MarkApplied(movementID uuid.UUID, at time.Time) {
	id := movementID
	a.MovementID = &id
	a.Status = AdjustmentApplied
	a.AppliedAt = &at
	a.UpdatedAt = at
}
