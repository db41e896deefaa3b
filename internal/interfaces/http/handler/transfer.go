package handler

import (
	"context"

	inventoryapp "github.com/erp/stockledger/internal/application/inventory"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// TransferHandler handles inter-depot transfer endpoints
type TransferHandler struct {
	BaseHandler
	transferService *inventoryapp.TransferService
}

// NewTransferHandler creates a new TransferHandler
func NewTransferHandler(transferService *inventoryapp.TransferService) *TransferHandler {
	return &TransferHandler{transferService: transferService}
}

// Create handles POST /transfers
func (h *TransferHandler) Create(c *gin.Context) {
	var req inventoryapp.CreateTransferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	transfer, err := h.transferService.CreateTransfer(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, transfer)
}

// Get handles GET /transfers/:id
func (h *TransferHandler) Get(c *gin.Context) {
	h.transition(c, h.transferService.GetTransfer)
}

// Validate handles POST /transfers/:id/validate
func (h *TransferHandler) Validate(c *gin.Context) {
	h.transition(c, h.transferService.ValidateTransfer)
}

// Ship handles POST /transfers/:id/ship
func (h *TransferHandler) Ship(c *gin.Context) {
	h.transition(c, h.transferService.Ship)
}

// Receive handles POST /transfers/:id/receive
func (h *TransferHandler) Receive(c *gin.Context) {
	h.transition(c, h.transferService.Receive)
}

// Cancel handles POST /transfers/:id/cancel
func (h *TransferHandler) Cancel(c *gin.Context) {
	h.transition(c, h.transferService.CancelTransfer)
}

func (h *TransferHandler) transition(
	c *gin.Context,
	apply func(ctx context.Context, id uuid.UUID) (*inventoryapp.TransferResponse, error),
) {
	id, ok := h.ParamUUID(c, "id")
	if !ok {
		return
	}

	transfer, err := apply(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, transfer)
}
