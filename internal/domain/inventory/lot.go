package inventory

import (
	"time"

	"github.com/erp/stockledger/internal/domain/shared"
	"github.com/erp/stockledger/internal/domain/shared/strategy"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// LotStatus represents the lifecycle status of a lot
type LotStatus string

const (
	LotStatusAvailable  LotStatus = "AVAILABLE"
	LotStatusQuarantine LotStatus = "QUARANTINE"
	LotStatusBlocked    LotStatus = "BLOCKED"
	LotStatusExpired    LotStatus = "EXPIRED"
	LotStatusExhausted  LotStatus = "EXHAUSTED"
	LotStatusMerged     LotStatus = "MERGED"
)

// IsValid checks if the status is valid
func (s LotStatus) IsValid() bool {
	switch s {
	case LotStatusAvailable, LotStatusQuarantine, LotStatusBlocked,
		LotStatusExpired, LotStatusExhausted, LotStatusMerged:
		return true
	}
	return false
}

// Lot is a traceable batch of an article with its own cost and expiry.
// Invariant: 0 <= CurrentQuantity <= InitialQuantity.
type Lot struct {
	shared.BaseAggregateRoot
	LotNumber       string          `gorm:"type:varchar(50);not null;uniqueIndex"`
	ArticleID       uuid.UUID       `gorm:"type:uuid;not null;index:idx_lot_article_depot,priority:1"`
	DepotID         *uuid.UUID      `gorm:"type:uuid;index:idx_lot_article_depot,priority:2"`
	InitialQuantity decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	CurrentQuantity decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	UnitCost        decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	ManufacturedAt  *time.Time
	ReceivedAt      time.Time  `gorm:"not null;index"`
	ExpiryDate      *time.Time `gorm:"index"`
	Status          LotStatus  `gorm:"type:varchar(20);not null;default:'AVAILABLE';index"`
	MergedIntoID    *uuid.UUID `gorm:"type:uuid"`
	OriginRef       string     `gorm:"type:varchar(100)"`
}

// TableName returns the table name for GORM
func (Lot) TableName() string {
	return "lots"
}

// NewLot creates a lot holding the received quantity
func NewLot(
	lotNumber string,
	articleID uuid.UUID,
	depotID *uuid.UUID,
	quantity, unitCost decimal.Decimal,
	receivedAt time.Time,
	manufacturedAt, expiryDate *time.Time,
) (*Lot, error) {
	if lotNumber == "" {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Lot number cannot be empty")
	}
	if articleID == uuid.Nil {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Article ID cannot be empty")
	}
	if !quantity.IsPositive() {
		return nil, shared.NewDomainError(shared.CodeDataIntegrity, "Lot quantity must be positive")
	}
	if unitCost.IsNegative() {
		return nil, shared.NewDomainError(shared.CodeDataIntegrity, "Lot unit cost cannot be negative")
	}
	if expiryDate != nil && expiryDate.Before(receivedAt) {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Expiry date cannot precede reception date")
	}

	return &Lot{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		LotNumber:         lotNumber,
		ArticleID:         articleID,
		DepotID:           depotID,
		InitialQuantity:   quantity,
		CurrentQuantity:   quantity,
		UnitCost:          unitCost,
		ManufacturedAt:    manufacturedAt,
		ReceivedAt:        receivedAt,
		ExpiryDate:        expiryDate,
		Status:            LotStatusAvailable,
	}, nil
}

// Consume takes quantity out of the lot. The lot is EXHAUSTED once empty.
func (l *Lot) Consume(quantity decimal.Decimal) error {
	if !quantity.IsPositive() {
		return shared.NewDomainError(shared.CodeDataIntegrity, "Consumed quantity must be positive")
	}
	if l.Status != LotStatusAvailable {
		return shared.InvalidStateError("lot "+l.LotNumber, string(l.Status), "consume")
	}
	if quantity.GreaterThan(l.CurrentQuantity) {
		return shared.InsufficientStockError(quantity, l.CurrentQuantity)
	}

	l.CurrentQuantity = l.CurrentQuantity.Sub(quantity)
	if l.CurrentQuantity.IsZero() {
		l.Status = LotStatusExhausted
	}
	l.Touch()
	return nil
}

// Restore puts quantity back into the lot, as a correction or when a movement is reversed.
// An exhausted lot becomes available again.
func (l *Lot) Restore(quantity decimal.Decimal) error {
	if !quantity.IsPositive() {
		return shared.NewDomainError(shared.CodeDataIntegrity, "Restored quantity must be positive")
	}
	switch l.Status {
	case LotStatusMerged, LotStatusExpired:
		return shared.InvalidStateError("lot "+l.LotNumber, string(l.Status), "restore")
	}

	l.CurrentQuantity = l.CurrentQuantity.Add(quantity)
	if l.CurrentQuantity.GreaterThan(l.InitialQuantity) {
		l.InitialQuantity = l.CurrentQuantity
	}
	if l.Status == LotStatusExhausted {
		l.Status = LotStatusAvailable
	}
	l.Touch()
	return nil
}

// MergeFrom absorbs the source lot. The destination cost becomes the
// quantity weighted average of both lots and the source is left MERGED and empty.
func (l *Lot) MergeFrom(source *Lot) error {
	if source.ID == l.ID {
		return shared.NewDomainError(shared.CodeDataIntegrity, "A lot cannot be merged into itself")
	}
	if source.ArticleID != l.ArticleID {
		return shared.NewDomainError(shared.CodeDataIntegrity, "Cannot merge lots of different articles")
	}
	if !sameDepot(source.DepotID, l.DepotID) {
		return shared.NewDomainError(shared.CodeDataIntegrity, "Cannot merge lots stored in different depots")
	}
	if l.Status != LotStatusAvailable {
		return shared.InvalidStateError("lot "+l.LotNumber, string(l.Status), "merge into")
	}
	if source.Status != LotStatusAvailable {
		return shared.InvalidStateError("lot "+source.LotNumber, string(source.Status), "merge")
	}

	total := l.CurrentQuantity.Add(source.CurrentQuantity)
	if total.IsPositive() {
		l.UnitCost = l.CurrentQuantity.Mul(l.UnitCost).
			Add(source.CurrentQuantity.Mul(source.UnitCost)).
			Div(total).
			Round(ValueScale)
	}
	l.CurrentQuantity = total
	l.InitialQuantity = l.InitialQuantity.Add(source.CurrentQuantity)
	l.Touch()

	source.CurrentQuantity = decimal.Zero
	source.Status = LotStatusMerged
	destinationID := l.ID
	source.MergedIntoID = &destinationID
	source.Touch()
	return nil
}

// Expire marks an available lot as expired
func (l *Lot) Expire() error {
	if l.Status != LotStatusAvailable {
		return shared.InvalidStateError("lot "+l.LotNumber, string(l.Status), "expire")
	}
	l.Status = LotStatusExpired
	l.Touch()
	return nil
}

// ChangeStatus moves the lot between AVAILABLE, QUARANTINE and BLOCKED.
// Terminal statuses are reached only through consumption, expiry or merge.
func (l *Lot) ChangeStatus(target LotStatus) error {
	allowed := map[LotStatus][]LotStatus{
		LotStatusAvailable:  {LotStatusQuarantine, LotStatusBlocked},
		LotStatusQuarantine: {LotStatusAvailable, LotStatusBlocked},
		LotStatusBlocked:    {LotStatusAvailable, LotStatusQuarantine},
	}
	for _, s := range allowed[l.Status] {
		if s == target {
			l.Status = target
			l.Touch()
			return nil
		}
	}
	return shared.InvalidStateError("lot "+l.LotNumber, string(l.Status), "change to "+string(target))
}

// IsExpiredAt returns true if the expiry date is on or before the given day
func (l *Lot) IsExpiredAt(day time.Time) bool {
	if l.ExpiryDate == nil {
		return false
	}
	return !l.ExpiryDate.After(day)
}

// ExpiresWithin returns true if the lot expires between now and now+horizon
func (l *Lot) ExpiresWithin(now time.Time, horizon time.Duration) bool {
	if l.ExpiryDate == nil {
		return false
	}
	return l.ExpiryDate.After(now) && !l.ExpiryDate.After(now.Add(horizon))
}

// DaysUntilExpiry returns the number of whole days until expiry, -1 without expiry date
func (l *Lot) DaysUntilExpiry(now time.Time) int {
	if l.ExpiryDate == nil {
		return -1
	}
	return int(l.ExpiryDate.Sub(now).Hours() / 24)
}

// BelongsTo reports whether the lot holds the given article in the given depot.
// Lots without a depot belong to every depot of the article.
func (l *Lot) BelongsTo(articleID, depotID uuid.UUID) bool {
	if l.ArticleID != articleID {
		return false
	}
	return l.DepotID == nil || *l.DepotID == depotID
}

// Value returns current quantity times unit cost
func (l *Lot) Value() decimal.Decimal {
	return l.CurrentQuantity.Mul(l.UnitCost).Round(ValueScale)
}

// CheckInvariants verifies 0 <= current <= initial
func (l *Lot) CheckInvariants() error {
	if l.CurrentQuantity.IsNegative() || l.CurrentQuantity.GreaterThan(l.InitialQuantity) {
		return shared.NewDomainError(shared.CodeDataIntegrity, "Lot quantity out of bounds")
	}
	return nil
}

// ToCandidate converts the lot into the view used by selection strategies
func (l *Lot) ToCandidate() strategy.LotCandidate {
	return strategy.LotCandidate{
		ID:         l.ID,
		LotNumber:  l.LotNumber,
		Quantity:   l.CurrentQuantity,
		UnitCost:   l.UnitCost,
		ReceivedAt: l.ReceivedAt,
		ExpiryDate: l.ExpiryDate,
	}
}

// ToCandidates converts lots into selection candidates
func ToCandidates(lots []Lot) []strategy.LotCandidate {
	candidates := make([]strategy.LotCandidate, 0, len(lots))
	for i := range lots {
		candidates = append(candidates, lots[i].ToCandidate())
	}
	return candidates
}

func sameDepot(a, b *uuid.UUID) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
