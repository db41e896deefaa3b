package handler

import (
	"time"

	inventoryapp "github.com/erp/stockledger/internal/application/inventory"
	"github.com/erp/stockledger/internal/domain/inventory"
	"github.com/gin-gonic/gin"
)

// LedgerHandler handles movement and stock position endpoints
type LedgerHandler struct {
	BaseHandler
	ledgerService *inventoryapp.LedgerService
}

// NewLedgerHandler creates a new LedgerHandler
func NewLedgerHandler(ledgerService *inventoryapp.LedgerService) *LedgerHandler {
	return &LedgerHandler{ledgerService: ledgerService}
}

// movementQuery is the query string of the ledger listing
type movementQuery struct {
	ArticleID string `form:"article_id" binding:"omitempty,uuid"`
	DepotID   string `form:"depot_id" binding:"omitempty,uuid"`
	Type      string `form:"type"`
	Status    string `form:"status" binding:"omitempty,oneof=DRAFT VALIDATED CANCELLED"`
	From      string `form:"from"`
	To        string `form:"to"`
	Page      int    `form:"page" binding:"omitempty,min=1"`
	PageSize  int    `form:"page_size" binding:"omitempty,min=1,max=100"`
}

// RecordMovement handles POST /movements
func (h *LedgerHandler) RecordMovement(c *gin.Context) {
	var req inventoryapp.RecordMovementRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	movement, err := h.ledgerService.RecordMovement(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, movement)
}

// CreateDraft handles POST /movements/drafts
func (h *LedgerHandler) CreateDraft(c *gin.Context) {
	var req inventoryapp.RecordMovementRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	movement, err := h.ledgerService.CreateDraft(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, movement)
}

// ValidateDraft handles POST /movements/:id/validate
func (h *LedgerHandler) ValidateDraft(c *gin.Context) {
	id, ok := h.ParamUUID(c, "id")
	if !ok {
		return
	}

	movement, err := h.ledgerService.ValidateDraft(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, movement)
}

// CancelMovement handles POST /movements/:id/cancel
func (h *LedgerHandler) CancelMovement(c *gin.Context) {
	id, ok := h.ParamUUID(c, "id")
	if !ok {
		return
	}

	var req inventoryapp.CancelMovementRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	movement, err := h.ledgerService.CancelMovement(c.Request.Context(), id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, movement)
}

// GetMovement handles GET /movements/:id
func (h *LedgerHandler) GetMovement(c *gin.Context) {
	id, ok := h.ParamUUID(c, "id")
	if !ok {
		return
	}

	movement, err := h.ledgerService.GetMovement(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, movement)
}

// ListMovements handles GET /movements
func (h *LedgerHandler) ListMovements(c *gin.Context) {
	var q movementQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		h.BindError(c, err)
		return
	}

	filter := inventoryapp.MovementListFilter{
		Type:     inventory.MovementType(q.Type),
		Status:   inventory.MovementStatus(q.Status),
		Page:     q.Page,
		PageSize: q.PageSize,
	}
	var err error
	if filter.ArticleID, err = queryUUID(c, "article_id"); err != nil {
		h.BadRequest(c, err.Error())
		return
	}
	if filter.DepotID, err = queryUUID(c, "depot_id"); err != nil {
		h.BadRequest(c, err.Error())
		return
	}
	if filter.From, err = queryTime(c, "from"); err != nil {
		h.BadRequest(c, err.Error())
		return
	}
	if filter.To, err = queryTime(c, "to"); err != nil {
		h.BadRequest(c, err.Error())
		return
	}
	if filter.To != nil && len(q.To) == len("2006-01-02") {
		// a bare date includes the whole day
		end := filter.To.Add(24*time.Hour - time.Nanosecond)
		filter.To = &end
	}

	page, err := h.ledgerService.ListMovements(c.Request.Context(), filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessWithMeta(c, page.Items, page.Total, page.Page, page.PageSize)
}

// GetStock handles GET /stocks/:article_id/:depot_id
func (h *LedgerHandler) GetStock(c *gin.Context) {
	articleID, ok := h.ParamUUID(c, "article_id")
	if !ok {
		return
	}
	depotID, ok := h.ParamUUID(c, "depot_id")
	if !ok {
		return
	}

	stock, err := h.ledgerService.GetStock(c.Request.Context(), articleID, depotID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, stock)
}

// ListStocks handles GET /stocks, optionally narrowed by article_id and depot_id
func (h *LedgerHandler) ListStocks(c *gin.Context) {
	articleID, err := queryUUID(c, "article_id")
	if err != nil {
		h.BadRequest(c, err.Error())
		return
	}
	depotID, err := queryUUID(c, "depot_id")
	if err != nil {
		h.BadRequest(c, err.Error())
		return
	}
	stocks, err := h.ledgerService.ListStocks(c.Request.Context(), articleID, depotID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	if stocks == nil {
		stocks = []inventoryapp.StockResponse{}
	}
	h.Success(c, stocks)
}
