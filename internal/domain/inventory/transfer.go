package inventory

import (
	"time"

	"github.com/erp/stockledger/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TransferStatus represents the status of an inter-depot transfer
type TransferStatus string

const (
	TransferDraft     TransferStatus = "DRAFT"
	TransferValidated TransferStatus = "VALIDATED"
	TransferShipped   TransferStatus = "SHIPPED"
	TransferReceived  TransferStatus = "RECEIVED"
	TransferCancelled TransferStatus = "CANCELLED"
)

// CanTransitionTo checks if the status can transition to the target status
func (s TransferStatus) CanTransitionTo(target TransferStatus) bool {
	switch s {
	case TransferDraft:
		return target == TransferValidated || target == TransferCancelled
	case TransferValidated:
		return target == TransferShipped || target == TransferCancelled
	case TransferShipped:
		return target == TransferReceived
	default:
		return false
	}
}

// Transfer moves stock between two depots: an exit at the source when shipped,
// an entry at the destination when received.
type Transfer struct {
	shared.BaseAggregateRoot
	Reference          string         `gorm:"type:varchar(50);not null;uniqueIndex"`
	SourceDepotID      uuid.UUID      `gorm:"type:uuid;not null;index"`
	DestinationDepotID uuid.UUID      `gorm:"type:uuid;not null;index"`
	Status             TransferStatus `gorm:"type:varchar(20);not null;default:'DRAFT';index"`
	Note               string         `gorm:"type:varchar(500)"`
	ShippedAt          *time.Time
	ReceivedAt         *time.Time
	CancelledAt        *time.Time

	// Lines is loaded and stored explicitly by the repository
	Lines []TransferLine `gorm:"-"`
}

// TableName returns the table name for GORM
func (Transfer) TableName() string {
	return "stock_transfers"
}

// TransferLine is one article moved by a transfer
type TransferLine struct {
	shared.BaseEntity
	TransferID      uuid.UUID       `gorm:"type:uuid;not null;index"`
	ArticleID       uuid.UUID       `gorm:"type:uuid;not null"`
	LotID           *uuid.UUID      `gorm:"type:uuid"`
	Quantity        decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	ExitMovementID  *uuid.UUID      `gorm:"type:uuid"`
	EntryMovementID *uuid.UUID      `gorm:"type:uuid"`
}

// TableName returns the table name for GORM
func (TransferLine) TableName() string {
	return "stock_transfer_lines"
}

// NewTransfer creates a DRAFT transfer between two distinct depots
func NewTransfer(reference string, sourceDepotID, destinationDepotID uuid.UUID, note string) (*Transfer, error) {
	if reference == "" {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Transfer reference cannot be empty")
	}
	if sourceDepotID == uuid.Nil || destinationDepotID == uuid.Nil {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Source and destination depots are required")
	}
	if sourceDepotID == destinationDepotID {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Source and destination depots must differ")
	}
	return &Transfer{
		BaseAggregateRoot:  shared.NewBaseAggregateRoot(),
		Reference:          reference,
		SourceDepotID:      sourceDepotID,
		DestinationDepotID: destinationDepotID,
		Status:             TransferDraft,
		Note:               note,
	}, nil
}

// AddLine adds an article to a draft transfer
func (t *Transfer) AddLine(articleID uuid.UUID, lotID *uuid.UUID, quantity decimal.Decimal) error {
	if t.Status != TransferDraft {
		return shared.InvalidStateError("transfer "+t.Reference, string(t.Status), "add line")
	}
	if articleID == uuid.Nil {
		return shared.NewDomainError(shared.CodeInvalidInput, "Article ID cannot be empty")
	}
	if !quantity.IsPositive() {
		return shared.NewDomainError(shared.CodeDataIntegrity, "Transfer quantity must be positive")
	}
	t.Lines = append(t.Lines, TransferLine{
		BaseEntity: shared.NewBaseEntity(),
		TransferID: t.ID,
		ArticleID:  articleID,
		LotID:      lotID,
		Quantity:   quantity,
	})
	t.Touch()
	return nil
}

func (t *Transfer) transition(target TransferStatus, operation string) error {
	if !t.Status.CanTransitionTo(target) {
		return shared.InvalidStateError("transfer "+t.Reference, string(t.Status), operation)
	}
	t.Status = target
	t.Touch()
	return nil
}

// Validate freezes the lines
func (t *Transfer) Validate() error {
	if len(t.Lines) == 0 {
		return shared.NewDomainError(shared.CodeInvalidInput, "A transfer needs at least one line")
	}
	return t.transition(TransferValidated, "validate")
}

// MarkShipped records that every exit movement has been written
func (t *Transfer) MarkShipped(at time.Time) error {
	if err := t.transition(TransferShipped, "ship"); err != nil {
		return err
	}
	t.ShippedAt = &at
	return nil
}

// MarkReceived records that every entry movement has been written
func (t *Transfer) MarkReceived(at time.Time) error {
	if err := t.transition(TransferReceived, "receive"); err != nil {
		return err
	}
	t.ReceivedAt = &at
	return nil
}

// Cancel abandons a transfer that has not shipped yet
func (t *Transfer) Cancel(at time.Time) error {
	if err := t.transition(TransferCancelled, "cancel"); err != nil {
		return err
	}
	t.CancelledAt = &at
	return nil
}
