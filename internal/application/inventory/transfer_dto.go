package inventory

import (
	"time"

	"github.com/erp/stockledger/internal/domain/inventory"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CreateTransferRequest represents a request to create a transfer with its lines
type CreateTransferRequest struct {
	SourceDepotID      uuid.UUID             `json:"source_depot_id" binding:"required"`
	DestinationDepotID uuid.UUID             `json:"destination_depot_id" binding:"required"`
	Note               string                `json:"note" binding:"max=500"`
	Lines              []TransferLineRequest `json:"lines" binding:"required,min=1,dive"`
}

// TransferLineRequest is one article to move
type TransferLineRequest struct {
	ArticleID uuid.UUID       `json:"article_id" binding:"required"`
	LotID     *uuid.UUID      `json:"lot_id"`
	Quantity  decimal.Decimal `json:"quantity" binding:"required,gt=0"`
}

// TransferLineResponse represents a transfer line
type TransferLineResponse struct {
	ID              uuid.UUID       `json:"id"`
	ArticleID       uuid.UUID       `json:"article_id"`
	LotID           *uuid.UUID      `json:"lot_id,omitempty"`
	Quantity        decimal.Decimal `json:"quantity"`
	ExitMovementID  *uuid.UUID      `json:"exit_movement_id,omitempty"`
	EntryMovementID *uuid.UUID      `json:"entry_movement_id,omitempty"`
}

// TransferResponse represents a transfer in API responses
type TransferResponse struct {
	ID                 uuid.UUID              `json:"id"`
	Reference          string                 `json:"reference"`
	SourceDepotID      uuid.UUID              `json:"source_depot_id"`
	DestinationDepotID uuid.UUID              `json:"destination_depot_id"`
	Status             string                 `json:"status"`
	Note               string                 `json:"note,omitempty"`
	Lines              []TransferLineResponse `json:"lines"`
	ShippedAt          *time.Time             `json:"shipped_at,omitempty"`
	ReceivedAt         *time.Time             `json:"received_at,omitempty"`
	CancelledAt        *time.Time             `json:"cancelled_at,omitempty"`
	CreatedAt          time.Time              `json:"created_at"`
}

// ToTransferResponse converts a domain Transfer to TransferResponse
func ToTransferResponse(t *inventory.Transfer) TransferResponse {
	lines := make([]TransferLineResponse, len(t.Lines))
	for i, l := range t.Lines {
		lines[i] = TransferLineResponse{
			ID:              l.ID,
			ArticleID:       l.ArticleID,
			LotID:           l.LotID,
			Quantity:        l.Quantity,
			ExitMovementID:  l.ExitMovementID,
			EntryMovementID: l.EntryMovementID,
		}
	}
	return TransferResponse{
		ID:                 t.ID,
		Reference:          t.Reference,
		SourceDepotID:      t.SourceDepotID,
		DestinationDepotID: t.DestinationDepotID,
		Status:             string(t.Status),
		Note:               t.Note,
		Lines:              lines,
		ShippedAt:          t.ShippedAt,
		ReceivedAt:         t.ReceivedAt,
		CancelledAt:        t.CancelledAt,
		CreatedAt:          t.CreatedAt,
	}
}
