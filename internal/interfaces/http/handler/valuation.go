package handler

import (
	"time"

	inventoryapp "github.com/erp/stockledger/internal/application/inventory"
	"github.com/gin-gonic/gin"
)

// ValuationHandler handles valuation and stock analysis endpoints
type ValuationHandler struct {
	BaseHandler
	valuationService *inventoryapp.ValuationService
}

// NewValuationHandler creates a new ValuationHandler
func NewValuationHandler(valuationService *inventoryapp.ValuationService) *ValuationHandler {
	return &ValuationHandler{valuationService: valuationService}
}

type auditQuery struct {
	Repair bool `form:"repair"`
}

// ValueStock handles GET /valuation/stocks/:article_id/:depot_id
func (h *ValuationHandler) ValueStock(c *gin.Context) {
	articleID, ok := h.ParamUUID(c, "article_id")
	if !ok {
		return
	}
	depotID, ok := h.ParamUUID(c, "depot_id")
	if !ok {
		return
	}

	valuation, err := h.valuationService.ValueStock(c.Request.Context(), articleID, depotID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, valuation)
}

// ValueArticle handles GET /valuation/articles/:article_id
func (h *ValuationHandler) ValueArticle(c *gin.Context) {
	articleID, ok := h.ParamUUID(c, "article_id")
	if !ok {
		return
	}

	valuation, err := h.valuationService.ValueArticle(c.Request.Context(), articleID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, valuation)
}

// Audit handles POST /valuation/stocks/:article_id/:depot_id/audit?repair=true
func (h *ValuationHandler) Audit(c *gin.Context) {
	articleID, ok := h.ParamUUID(c, "article_id")
	if !ok {
		return
	}
	depotID, ok := h.ParamUUID(c, "depot_id")
	if !ok {
		return
	}
	var q auditQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		h.BindError(c, err)
		return
	}

	audit, err := h.valuationService.RecomputeFromLedger(c.Request.Context(), articleID, depotID, q.Repair)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, audit)
}

// Rotation handles GET /valuation/stocks/:article_id/:depot_id/rotation?from=&to=.
// The range defaults to the last 365 days.
func (h *ValuationHandler) Rotation(c *gin.Context) {
	articleID, ok := h.ParamUUID(c, "article_id")
	if !ok {
		return
	}
	depotID, ok := h.ParamUUID(c, "depot_id")
	if !ok {
		return
	}
	from, err := queryTime(c, "from")
	if err != nil {
		h.BadRequest(c, err.Error())
		return
	}
	to, err := queryTime(c, "to")
	if err != nil {
		h.BadRequest(c, err.Error())
		return
	}
	end := time.Now()
	if to != nil {
		end = *to
	}
	start := end.AddDate(-1, 0, 0)
	if from != nil {
		start = *from
	}

	rotation, err := h.valuationService.Rotation(c.Request.Context(), articleID, depotID, start, end)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, rotation)
}

// ABC handles GET /valuation/depots/:depot_id/abc
func (h *ValuationHandler) ABC(c *gin.Context) {
	depotID, ok := h.ParamUUID(c, "depot_id")
	if !ok {
		return
	}

	classification, err := h.valuationService.ABCClassification(c.Request.Context(), depotID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, classification)
}
