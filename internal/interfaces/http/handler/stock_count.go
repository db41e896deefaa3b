package handler

import (
	"context"
	"errors"
	"io"

	inventoryapp "github.com/erp/stockledger/internal/application/inventory"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// StockCountHandler handles physical inventory endpoints
type StockCountHandler struct {
	BaseHandler
	countService *inventoryapp.StockCountService
}

// NewStockCountHandler creates a new StockCountHandler
func NewStockCountHandler(countService *inventoryapp.StockCountService) *StockCountHandler {
	return &StockCountHandler{countService: countService}
}

type campaignQuery struct {
	DepotID  string `form:"depot_id" binding:"omitempty,uuid"`
	Page     int    `form:"page" binding:"omitempty,min=1"`
	PageSize int    `form:"page_size" binding:"omitempty,min=1,max=100"`
}

// The actor fields below fall back to the X-Operator header when the body omits them.

type recordCountBody struct {
	Quantity  decimal.Decimal `json:"quantity" binding:"gte=0"`
	CountedBy string          `json:"counted_by" binding:"max=100"`
}

type validateLineBody struct {
	ValidatedBy string `json:"validated_by" binding:"max=100"`
}

type validateAdjustmentBody struct {
	Validator string `json:"validator" binding:"max=100"`
}

// CreateCampaign handles POST /counts
func (h *StockCountHandler) CreateCampaign(c *gin.Context) {
	var req inventoryapp.CreateCampaignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	campaign, err := h.countService.CreateCampaign(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, campaign)
}

// StartCampaign handles POST /counts/:id/start. An empty body counts the whole depot.
func (h *StockCountHandler) StartCampaign(c *gin.Context) {
	id, ok := h.ParamUUID(c, "id")
	if !ok {
		return
	}

	var req inventoryapp.StartCampaignRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		h.BindError(c, err)
		return
	}

	campaign, err := h.countService.StartCampaign(c.Request.Context(), id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, campaign)
}

// RecordCount handles POST /counts/:id/lines/:line_id/count
func (h *StockCountHandler) RecordCount(c *gin.Context) {
	campaignID, lineID, ok := h.lineParams(c)
	if !ok {
		return
	}

	var body recordCountBody
	if err := c.ShouldBindJSON(&body); err != nil {
		h.BindError(c, err)
		return
	}
	countedBy := operator(c, body.CountedBy)
	if countedBy == "" {
		h.BadRequest(c, "counted_by or the X-Operator header is required")
		return
	}

	line, err := h.countService.RecordCount(c.Request.Context(), campaignID, lineID, inventoryapp.RecordCountRequest{
		Quantity:  body.Quantity,
		CountedBy: countedBy,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, line)
}

// ExcludeLine handles POST /counts/:id/lines/:line_id/exclude
func (h *StockCountHandler) ExcludeLine(c *gin.Context) {
	campaignID, lineID, ok := h.lineParams(c)
	if !ok {
		return
	}

	var req inventoryapp.ExcludeLineRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	line, err := h.countService.ExcludeLine(c.Request.Context(), campaignID, lineID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, line)
}

// ValidateLine handles POST /counts/:id/lines/:line_id/validate
func (h *StockCountHandler) ValidateLine(c *gin.Context) {
	campaignID, lineID, ok := h.lineParams(c)
	if !ok {
		return
	}

	var body validateLineBody
	if err := c.ShouldBindJSON(&body); err != nil && !errors.Is(err, io.EOF) {
		h.BindError(c, err)
		return
	}
	validatedBy := operator(c, body.ValidatedBy)
	if validatedBy == "" {
		h.BadRequest(c, "validated_by or the X-Operator header is required")
		return
	}

	resp, err := h.countService.ValidateLine(c.Request.Context(), campaignID, lineID, inventoryapp.ValidateLineRequest{
		ValidatedBy: validatedBy,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// ValidateAdjustment handles POST /counts/adjustments/:adjustment_id/validate
func (h *StockCountHandler) ValidateAdjustment(c *gin.Context) {
	adjustmentID, ok := h.ParamUUID(c, "adjustment_id")
	if !ok {
		return
	}

	var body validateAdjustmentBody
	if err := c.ShouldBindJSON(&body); err != nil && !errors.Is(err, io.EOF) {
		h.BindError(c, err)
		return
	}
	validator := operator(c, body.Validator)
	if validator == "" {
		h.BadRequest(c, "validator or the X-Operator header is required")
		return
	}

	resp, err := h.countService.ValidateAdjustment(c.Request.Context(), adjustmentID, inventoryapp.ValidateAdjustmentRequest{
		Validator: validator,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// Complete handles POST /counts/:id/complete
func (h *StockCountHandler) Complete(c *gin.Context) {
	h.transition(c, h.countService.CompleteCampaign)
}

// Validate handles POST /counts/:id/validate
func (h *StockCountHandler) Validate(c *gin.Context) {
	h.transition(c, h.countService.ValidateCampaign)
}

// Close handles POST /counts/:id/close
func (h *StockCountHandler) Close(c *gin.Context) {
	h.transition(c, h.countService.CloseCampaign)
}

// Get handles GET /counts/:id
func (h *StockCountHandler) Get(c *gin.Context) {
	h.transition(c, h.countService.GetCampaign)
}

// Cancel handles POST /counts/:id/cancel
func (h *StockCountHandler) Cancel(c *gin.Context) {
	id, ok := h.ParamUUID(c, "id")
	if !ok {
		return
	}

	var req inventoryapp.CancelCampaignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	campaign, err := h.countService.CancelCampaign(c.Request.Context(), id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, campaign)
}

// List handles GET /counts
func (h *StockCountHandler) List(c *gin.Context) {
	var q campaignQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		h.BindError(c, err)
		return
	}
	depotID, err := queryUUID(c, "depot_id")
	if err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	page, err := h.countService.ListCampaigns(c.Request.Context(), inventoryapp.CampaignListFilter{
		DepotID:  depotID,
		Page:     q.Page,
		PageSize: q.PageSize,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessWithMeta(c, page.Items, page.Total, page.Page, page.PageSize)
}

// ListAdjustments handles GET /counts/:id/adjustments
func (h *StockCountHandler) ListAdjustments(c *gin.Context) {
	id, ok := h.ParamUUID(c, "id")
	if !ok {
		return
	}

	adjustments, err := h.countService.ListAdjustments(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	if adjustments == nil {
		adjustments = []inventoryapp.AdjustmentResponse{}
	}
	h.Success(c, adjustments)
}

func (h *StockCountHandler) lineParams(c *gin.Context) (uuid.UUID, uuid.UUID, bool) {
	campaignID, ok := h.ParamUUID(c, "id")
	if !ok {
		return uuid.Nil, uuid.Nil, false
	}
	lineID, ok := h.ParamUUID(c, "line_id")
	if !ok {
		return uuid.Nil, uuid.Nil, false
	}
	return campaignID, lineID, true
}

func (h *StockCountHandler) transition(
	c *gin.Context,
	apply func(ctx context.Context, id uuid.UUID) (*inventoryapp.CampaignResponse, error),
) {
	id, ok := h.ParamUUID(c, "id")
	if !ok {
		return
	}

	campaign, err := apply(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, campaign)
}
