package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"warehouse-service/internal/fulfillment"
	"warehouse-service/internal/middleware"
)

// base agrupa lo que comparten todos los handlers: logger con prefijos y validador
type base struct {
	validator *validator.Validate
	logger    *zap.Logger
}

func newBase(logger *zap.Logger) base {
	return base{validator: validator.New(), logger: logger}
}

// logDebug logs solo en modo debug
func (h base) logDebug(msg string, fields ...zap.Field) {
	h.logger.Debug("🔍 [DEBUG] "+msg, fields...)
}

func (h base) logInfo(msg string, fields ...zap.Field) {
	h.logger.Info("ℹ️ "+msg, fields...)
}

func (h base) logError(msg string, fields ...zap.Field) {
	h.logger.Error("❌ "+msg, fields...)
}

func (h base) logSuccess(msg string, fields ...zap.Field) {
	h.logger.Info("✅ "+msg, fields...)
}

// bind lee el JSON y valida las etiquetas validate; responde 400 y devuelve
// false si algo falla.
func (h base) bind(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		h.logError("Error binding JSON", zap.String("path", c.FullPath()), zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"message": "❌ Error en el formato de datos",
			"error":   err.Error(),
		})
		return false
	}
	if err := h.validator.Struct(dst); err != nil {
		h.logError("Validation error", zap.String("path", c.FullPath()), zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"message": "❌ Datos de entrada inválidos",
			"error":   err.Error(),
		})
		return false
	}
	return true
}

// fail traduce el error del servicio a su código HTTP
func (h base) fail(c *gin.Context, message string, err error) {
	status := statusFor(err)

	body := gin.H{
		"success": false,
		"message": "❌ " + message,
		"error":   err.Error(),
	}

	var scanErr *fulfillment.ScanError
	if errors.As(err, &scanErr) {
		body["reason"] = scanErr.Reason
		body["barcode"] = scanErr.Barcode
		body["error"] = scanErr.Message
	}

	fields := []zap.Field{
		zap.String("path", c.FullPath()),
		zap.Int("status", status),
		zap.Error(err),
	}
	if status >= http.StatusInternalServerError {
		h.logError(message, fields...)
	} else {
		h.logInfo(message, fields...)
	}

	c.JSON(status, body)
}

func ok(c *gin.Context, status int, message string, data any) {
	c.JSON(status, gin.H{
		"success": true,
		"message": "✅ " + message,
		"data":    data,
	})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, fulfillment.ErrScanRejected):
		return http.StatusUnprocessableEntity
	case errors.Is(err, fulfillment.ErrNotFound), errors.Is(err, fulfillment.ErrSessionNotFound):
		return http.StatusNotFound
	case errors.Is(err, fulfillment.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, fulfillment.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, fulfillment.ErrInvalidTransition),
		errors.Is(err, fulfillment.ErrConcurrentUpdate),
		errors.Is(err, fulfillment.ErrInsufficientQuantity),
		errors.Is(err, fulfillment.ErrOverFulfillment),
		errors.Is(err, fulfillment.ErrEmptySession),
		errors.Is(err, fulfillment.ErrSessionClaimed):
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

func currentUser(c *gin.Context) string {
	return c.GetString(middleware.ContextUserID)
}
