package handler

import (
	"time"

	inventoryapp "github.com/erp/stockledger/internal/application/inventory"
	"github.com/erp/stockledger/internal/domain/shared"
	"github.com/gin-gonic/gin"
)

// defaultExpiryHorizonDays is the look-ahead of the expiring lots report
const defaultExpiryHorizonDays = 30

// LotHandler handles lot registry endpoints
type LotHandler struct {
	BaseHandler
	lotService *inventoryapp.LotService
}

// NewLotHandler creates a new LotHandler
func NewLotHandler(lotService *inventoryapp.LotService) *LotHandler {
	return &LotHandler{lotService: lotService}
}

type lotListQuery struct {
	Page     int `form:"page" binding:"omitempty,min=1"`
	PageSize int `form:"page_size" binding:"omitempty,min=1,max=100"`
}

type expiringQuery struct {
	Days int `form:"days" binding:"omitempty,min=1,max=3650"`
}

// Receive handles POST /lots/receipts
func (h *LotHandler) Receive(c *gin.Context) {
	var req inventoryapp.ReceiveLotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	resp, err := h.lotService.ReceiveLot(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, resp)
}

// Consume handles POST /lots/consumptions
func (h *LotHandler) Consume(c *gin.Context) {
	var req inventoryapp.ConsumeLotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	movement, err := h.lotService.ConsumeLot(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, movement)
}

// Merge handles POST /lots/merges
func (h *LotHandler) Merge(c *gin.Context) {
	var req inventoryapp.MergeLotsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	lot, err := h.lotService.MergeLots(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, lot)
}

// ChangeStatus handles POST /lots/:id/status
func (h *LotHandler) ChangeStatus(c *gin.Context) {
	id, ok := h.ParamUUID(c, "id")
	if !ok {
		return
	}

	var req inventoryapp.ChangeLotStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	lot, err := h.lotService.ChangeLotStatus(c.Request.Context(), id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, lot)
}

// Get handles GET /lots/:id
func (h *LotHandler) Get(c *gin.Context) {
	id, ok := h.ParamUUID(c, "id")
	if !ok {
		return
	}

	lot, err := h.lotService.GetLot(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, lot)
}

// ListByArticle handles GET /lots/articles/:article_id
func (h *LotHandler) ListByArticle(c *gin.Context) {
	articleID, ok := h.ParamUUID(c, "article_id")
	if !ok {
		return
	}

	var q lotListQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		h.BindError(c, err)
		return
	}
	filter := shared.DefaultFilter()
	if q.Page > 0 {
		filter.Page = q.Page
	}
	if q.PageSize > 0 {
		filter.PageSize = q.PageSize
	}

	page, err := h.lotService.ListLots(c.Request.Context(), articleID, filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessWithMeta(c, page.Items, page.Total, page.Page, page.PageSize)
}

// SuggestAllocation handles GET /lots/allocation?article_id=&depot_id=&quantity=
func (h *LotHandler) SuggestAllocation(c *gin.Context) {
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
	if articleID == nil || depotID == nil {
		h.BadRequest(c, "article_id and depot_id are required")
		return
	}
	quantity, err := queryDecimal(c, "quantity")
	if err != nil {
		h.BadRequest(c, err.Error())
		return
	}
	if !quantity.IsPositive() {
		h.BadRequest(c, "quantity must be positive")
		return
	}

	allocation, err := h.lotService.SuggestAllocation(c.Request.Context(), *articleID, *depotID, quantity)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, allocation)
}

// Expiring handles GET /lots/expiring?days=N
func (h *LotHandler) Expiring(c *gin.Context) {
	var q expiringQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		h.BindError(c, err)
		return
	}
	days := q.Days
	if days == 0 {
		days = defaultExpiryHorizonDays
	}

	lots, err := h.lotService.ExpiringLots(c.Request.Context(), time.Duration(days)*24*time.Hour)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	if lots == nil {
		lots = []inventoryapp.LotResponse{}
	}
	h.Success(c, lots)
}

// Expire handles POST /lots/expire, the manual trigger of the expiry sweep
func (h *LotHandler) Expire(c *gin.Context) {
	date, err := queryTime(c, "date")
	if err != nil {
		h.BadRequest(c, err.Error())
		return
	}
	today := time.Now()
	if date != nil {
		today = *date
	}

	stats, err := h.lotService.ExpireLots(c.Request.Context(), today)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, stats)
}
