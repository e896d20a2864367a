package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"warehouse-service/internal/models"
	"warehouse-service/internal/services"
)

type ReservationHandler struct {
	base
	reservationService services.ReservationService
}

func NewReservationHandler(reservationService services.ReservationService, logger *zap.Logger) *ReservationHandler {
	return &ReservationHandler{base: newBase(logger), reservationService: reservationService}
}

func (h *ReservationHandler) Create(c *gin.Context) {
	var body models.CreateReservationRequest
	if !h.bind(c, &body) {
		return
	}
	body.CreatedBy = currentUser(c)

	res, err := h.reservationService.Create(c.Request.Context(), &body)
	if err != nil {
		h.fail(c, "Error creando reserva", err)
		return
	}
	ok(c, http.StatusCreated, "Reserva creada", res)
}

func (h *ReservationHandler) Get(c *gin.Context) {
	res, err := h.reservationService.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, "Error obteniendo reserva", err)
		return
	}
	ok(c, http.StatusOK, "Reserva obtenida", res)
}

func (h *ReservationHandler) Activate(c *gin.Context) {
	h.transition(c, "Reserva activada", h.reservationService.Activate)
}

func (h *ReservationHandler) Cancel(c *gin.Context) {
	h.transition(c, "Reserva cancelada", h.reservationService.Cancel)
}

func (h *ReservationHandler) Complete(c *gin.Context) {
	h.transition(c, "Reserva completada", h.reservationService.Complete)
}

func (h *ReservationHandler) Convert(c *gin.Context) {
	req, err := h.reservationService.ConvertToStockOut(c.Request.Context(), c.Param("id"), currentUser(c))
	if err != nil {
		h.fail(c, "Error convirtiendo reserva", err)
		return
	}
	ok(c, http.StatusCreated, "Reserva convertida en salida de stock", req)
}

func (h *ReservationHandler) transition(c *gin.Context, message string, fn func(ctx context.Context, id string) (*models.CustomReservation, error)) {
	res, err := fn(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, "Error actualizando reserva", err)
		return
	}
	ok(c, http.StatusOK, message, res)
}
