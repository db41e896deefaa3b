package handler

import (
	"errors"
	"io"
	"time"

	closingapp "github.com/erp/stockledger/internal/application/closing"
	"github.com/gin-gonic/gin"
)

// defaultArchiveLinkTTL is the lifetime of an archive download link
const defaultArchiveLinkTTL = 15 * time.Minute

// ClosingHandler handles period closing endpoints
type ClosingHandler struct {
	BaseHandler
	closingService *closingapp.ClosingService
}

// NewClosingHandler creates a new ClosingHandler
func NewClosingHandler(closingService *closingapp.ClosingService) *ClosingHandler {
	return &ClosingHandler{closingService: closingService}
}

type validatePeriodBody struct {
	ValidatedBy string `json:"validated_by" binding:"max=100"`
}

type archiveLinkQuery struct {
	ExpiresIn int `form:"expires_in" binding:"omitempty,min=60,max=604800"`
}

// Initialize handles POST /closings
func (h *ClosingHandler) Initialize(c *gin.Context) {
	var req closingapp.InitializePeriodRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	period, err := h.closingService.InitializePeriod(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, period)
}

// Execute handles POST /closings/:id/execute
func (h *ClosingHandler) Execute(c *gin.Context) {
	id, ok := h.ParamUUID(c, "id")
	if !ok {
		return
	}

	period, err := h.closingService.ExecuteClosing(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, period)
}

// Validate handles POST /closings/:id/validate
func (h *ClosingHandler) Validate(c *gin.Context) {
	id, ok := h.ParamUUID(c, "id")
	if !ok {
		return
	}

	var body validatePeriodBody
	if err := c.ShouldBindJSON(&body); err != nil && !errors.Is(err, io.EOF) {
		h.BindError(c, err)
		return
	}
	validatedBy := operator(c, body.ValidatedBy)
	if validatedBy == "" {
		h.BadRequest(c, "validated_by or the X-Operator header is required")
		return
	}

	period, err := h.closingService.Validate(c.Request.Context(), id, closingapp.ValidatePeriodRequest{
		ValidatedBy: validatedBy,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, period)
}

// Reject handles POST /closings/:id/reject
func (h *ClosingHandler) Reject(c *gin.Context) {
	id, ok := h.ParamUUID(c, "id")
	if !ok {
		return
	}

	var req closingapp.RejectPeriodRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	period, err := h.closingService.Reject(c.Request.Context(), id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, period)
}

// Get handles GET /closings/:id
func (h *ClosingHandler) Get(c *gin.Context) {
	id, ok := h.ParamUUID(c, "id")
	if !ok {
		return
	}

	period, err := h.closingService.GetPeriod(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, period)
}

// List handles GET /closings
func (h *ClosingHandler) List(c *gin.Context) {
	var filter closingapp.ListFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		h.BindError(c, err)
		return
	}

	page, err := h.closingService.ListPeriods(c.Request.Context(), filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessWithMeta(c, page.Items, page.Total, page.Page, page.PageSize)
}

// Snapshots handles GET /closings/:id/snapshots
func (h *ClosingHandler) Snapshots(c *gin.Context) {
	id, ok := h.ParamUUID(c, "id")
	if !ok {
		return
	}
	var filter closingapp.ListFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		h.BindError(c, err)
		return
	}

	page, err := h.closingService.ListSnapshots(c.Request.Context(), id, filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessWithMeta(c, page.Items, page.Total, page.Page, page.PageSize)
}

// Lock handles GET /closings/lock?date=YYYY-MM-DD
func (h *ClosingHandler) Lock(c *gin.Context) {
	date, err := queryTime(c, "date")
	if err != nil {
		h.BadRequest(c, err.Error())
		return
	}
	if date == nil {
		h.BadRequest(c, "date is required")
		return
	}

	lock, err := h.closingService.IsPeriodLocked(c.Request.Context(), *date)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, lock)
}

// ArchiveLink handles GET /closings/:id/archive?expires_in=seconds
func (h *ClosingHandler) ArchiveLink(c *gin.Context) {
	id, ok := h.ParamUUID(c, "id")
	if !ok {
		return
	}
	var q archiveLinkQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		h.BindError(c, err)
		return
	}
	ttl := defaultArchiveLinkTTL
	if q.ExpiresIn > 0 {
		ttl = time.Duration(q.ExpiresIn) * time.Second
	}

	link, err := h.closingService.ArchiveLink(c.Request.Context(), id, ttl)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, link)
}
