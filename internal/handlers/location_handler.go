package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"warehouse-service/internal/models"
	"warehouse-service/internal/services"
)

const maxLookupBarcodes = 200

type LocationHandler struct {
	base
	reconciler *services.LocationReconciler
}

func NewLocationHandler(reconciler *services.LocationReconciler, logger *zap.Logger) *LocationHandler {
	return &LocationHandler{base: newBase(logger), reconciler: reconciler}
}

// Lookup resuelve los códigos de forma síncrona y deja el resultado en caché
func (h *LocationHandler) Lookup(c *gin.Context) {
	start := time.Now()

	var body models.LocationLookupRequest
	if !h.bind(c, &body) {
		return
	}

	results := h.reconciler.Resolve(c.Request.Context(), body.Barcodes)

	errored := 0
	for _, r := range results {
		if r.Errored {
			errored++
		}
	}

	h.logInfo("Ubicaciones resueltas",
		zap.Int("barcodes", len(results)),
		zap.Int("errored", errored),
		zap.Duration("latency", time.Since(start)))

	ok(c, http.StatusOK, "Ubicaciones resueltas", gin.H{
		"results": results,
		"total":   len(results),
		"errored": errored,
	})
}

// Results devuelve lo que haya en caché para ?barcodes=a,b sin tocar la base
func (h *LocationHandler) Results(c *gin.Context) {
	var barcodes []string
	for _, b := range strings.Split(c.Query("barcodes"), ",") {
		if b = strings.TrimSpace(b); b != "" {
			barcodes = append(barcodes, b)
		}
	}
	if len(barcodes) == 0 || len(barcodes) > maxLookupBarcodes {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"message": "❌ Parámetro barcodes inválido",
			"error":   "barcodes must list between 1 and 200 comma separated values",
		})
		return
	}

	results := h.reconciler.Results(c.Request.Context(), barcodes)

	missing := []string{}
	for _, b := range barcodes {
		if _, found := results[b]; !found {
			missing = append(missing, b)
		}
	}

	ok(c, http.StatusOK, "Resultados de ubicación", gin.H{
		"results": results,
		"missing": missing,
	})
}
