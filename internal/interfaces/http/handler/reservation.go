package handler

import (
	"errors"
	"io"
	"time"

	inventoryapp "github.com/erp/stockledger/internal/application/inventory"
	"github.com/gin-gonic/gin"
)

// ReservationHandler handles stock reservation endpoints
type ReservationHandler struct {
	BaseHandler
	reservationService *inventoryapp.ReservationService
}

// NewReservationHandler creates a new ReservationHandler
func NewReservationHandler(reservationService *inventoryapp.ReservationService) *ReservationHandler {
	return &ReservationHandler{reservationService: reservationService}
}

// Reserve handles POST /reservations
func (h *ReservationHandler) Reserve(c *gin.Context) {
	var req inventoryapp.ReserveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	reservation, err := h.reservationService.Reserve(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, reservation)
}

// Get handles GET /reservations/:id
func (h *ReservationHandler) Get(c *gin.Context) {
	id, ok := h.ParamUUID(c, "id")
	if !ok {
		return
	}

	reservation, err := h.reservationService.GetReservation(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, reservation)
}

// ListByOrder handles GET /reservations?order_ref=
func (h *ReservationHandler) ListByOrder(c *gin.Context) {
	orderRef := c.Query("order_ref")
	if orderRef == "" {
		h.BadRequest(c, "order_ref is required")
		return
	}

	reservations, err := h.reservationService.ListByOrder(c.Request.Context(), orderRef)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	if reservations == nil {
		reservations = []inventoryapp.ReservationResponse{}
	}
	h.Success(c, reservations)
}

// Release handles POST /reservations/:id/release
func (h *ReservationHandler) Release(c *gin.Context) {
	id, ok := h.ParamUUID(c, "id")
	if !ok {
		return
	}

	reservation, err := h.reservationService.Release(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, reservation)
}

// Withdraw handles POST /reservations/:id/withdraw. An empty body ships
// the whole outstanding quantity.
func (h *ReservationHandler) Withdraw(c *gin.Context) {
	id, ok := h.ParamUUID(c, "id")
	if !ok {
		return
	}

	var req inventoryapp.WithdrawRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		h.BindError(c, err)
		return
	}

	resp, err := h.reservationService.Withdraw(c.Request.Context(), id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// Expire handles POST /reservations/expire, the manual trigger of the TTL sweep
func (h *ReservationHandler) Expire(c *gin.Context) {
	stats, err := h.reservationService.ExpireReservations(c.Request.Context(), time.Now())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, stats)
}
