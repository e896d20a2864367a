package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"warehouse-service/internal/models"
	"warehouse-service/internal/services"
)

// StockOutHandler maneja las solicitudes de salida y sus sesiones de escaneo
type StockOutHandler struct {
	base
	stockOutService services.StockOutService
}

func NewStockOutHandler(stockOutService services.StockOutService, logger *zap.Logger) *StockOutHandler {
	return &StockOutHandler{
		base:            newBase(logger),
		stockOutService: stockOutService,
	}
}

// List admite ?status=, ?product_id=, ?limit= y ?offset=
func (h *StockOutHandler) List(c *gin.Context) {
	filter := &models.StockOutFilter{}
	if status := c.Query("status"); status != "" {
		filter.Status = &status
	}
	if productID := c.Query("product_id"); productID != "" {
		filter.ProductID = &productID
	}
	if limit, err := strconv.Atoi(c.Query("limit")); err == nil {
		filter.Limit = limit
	}
	if offset, err := strconv.Atoi(c.Query("offset")); err == nil {
		filter.Offset = offset
	}

	requests, err := h.stockOutService.List(c.Request.Context(), filter)
	if err != nil {
		h.fail(c, "Error obteniendo solicitudes", err)
		return
	}

	ok(c, http.StatusOK, "Solicitudes obtenidas correctamente", gin.H{
		"requests": requests,
		"total":    len(requests),
	})
}

func (h *StockOutHandler) Create(c *gin.Context) {
	var req models.CreateStockOutRequest
	if !h.bind(c, &req) {
		return
	}
	req.RequestedBy = currentUser(c)

	created, err := h.stockOutService.Create(c.Request.Context(), &req)
	if err != nil {
		h.fail(c, "Error creando solicitud", err)
		return
	}

	h.logSuccess("Solicitud creada", zap.String("stock_out_id", created.ID))
	ok(c, http.StatusCreated, "Solicitud creada correctamente", created)
}

func (h *StockOutHandler) Get(c *gin.Context) {
	req, err := h.stockOutService.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, "Error obteniendo solicitud", err)
		return
	}
	ok(c, http.StatusOK, "Solicitud obtenida correctamente", req)
}

func (h *StockOutHandler) Approve(c *gin.Context) {
	var body models.ApproveStockOutRequest
	if !h.bind(c, &body) {
		return
	}

	req, err := h.stockOutService.Approve(c.Request.Context(), c.Param("id"), body.ApprovedQuantity, currentUser(c))
	if err != nil {
		h.fail(c, "Error aprobando solicitud", err)
		return
	}
	ok(c, http.StatusOK, "Solicitud aprobada", req)
}

func (h *StockOutHandler) Reject(c *gin.Context) {
	var body models.RejectStockOutRequest
	if !h.bind(c, &body) {
		return
	}

	req, err := h.stockOutService.Reject(c.Request.Context(), c.Param("id"), body.Reason, currentUser(c))
	if err != nil {
		h.fail(c, "Error rechazando solicitud", err)
		return
	}
	ok(c, http.StatusOK, "Solicitud rechazada", req)
}

func (h *StockOutHandler) Cancel(c *gin.Context) {
	req, err := h.stockOutService.Cancel(c.Request.Context(), c.Param("id"), currentUser(c))
	if err != nil {
		h.fail(c, "Error cancelando solicitud", err)
		return
	}
	ok(c, http.StatusOK, "Solicitud cancelada", req)
}

func (h *StockOutHandler) ProcessedItems(c *gin.Context) {
	resp, err := h.stockOutService.ListProcessedItems(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, "Error obteniendo ítems procesados", err)
		return
	}
	ok(c, http.StatusOK, "Ítems procesados obtenidos", resp)
}

func (h *StockOutHandler) AvailableItems(c *gin.Context) {
	items, err := h.stockOutService.AvailableBatchItems(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, "Error obteniendo cajas disponibles", err)
		return
	}
	ok(c, http.StatusOK, "Cajas disponibles obtenidas", gin.H{
		"items": items,
		"total": len(items),
	})
}

func (h *StockOutHandler) StartSession(c *gin.Context) {
	session, err := h.stockOutService.StartSession(c.Request.Context(), c.Param("id"), currentUser(c))
	if err != nil {
		h.fail(c, "Error iniciando sesión de escaneo", err)
		return
	}
	ok(c, http.StatusCreated, "Sesión de escaneo iniciada", session)
}

func (h *StockOutHandler) GetSession(c *gin.Context) {
	session, err := h.stockOutService.GetSession(c.Request.Context(), c.Param("session_id"))
	if err != nil {
		h.fail(c, "Error obteniendo sesión", err)
		return
	}
	ok(c, http.StatusOK, "Sesión obtenida", session)
}

// Scan rechaza con 422 y el motivo cuando el código no es válido
func (h *StockOutHandler) Scan(c *gin.Context) {
	var body models.ScanRequest
	if !h.bind(c, &body) {
		return
	}

	h.logDebug("Escaneo recibido",
		zap.String("session_id", c.Param("session_id")),
		zap.String("barcode", body.Barcode),
		zap.Int("quantity", body.Quantity))

	result, err := h.stockOutService.Scan(c.Request.Context(), c.Param("session_id"), currentUser(c), &body)
	if err != nil {
		h.fail(c, "Escaneo rechazado", err)
		return
	}
	ok(c, http.StatusOK, "Código escaneado", result)
}

func (h *StockOutHandler) RemoveScan(c *gin.Context) {
	session, err := h.stockOutService.RemoveScan(c.Request.Context(), c.Param("session_id"), currentUser(c), c.Param("barcode"))
	if err != nil {
		h.fail(c, "Error quitando código de la sesión", err)
		return
	}
	ok(c, http.StatusOK, "Código quitado de la sesión", session)
}

func (h *StockOutHandler) Complete(c *gin.Context) {
	start := time.Now()
	sessionID := c.Param("session_id")

	result, err := h.stockOutService.Complete(c.Request.Context(), sessionID, currentUser(c))
	if err != nil {
		h.fail(c, "Error confirmando sesión", err)
		return
	}

	h.logSuccess("Sesión confirmada",
		zap.String("session_id", sessionID),
		zap.Int("items", len(result.ProcessedItems)),
		zap.Int("attempts", result.Attempts),
		zap.Duration("latency", time.Since(start)))

	ok(c, http.StatusOK, "Salida de stock procesada", result)
}
