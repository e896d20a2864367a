package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"warehouse-service/internal/models"
	"warehouse-service/internal/services"
)

const (
	metricsPushInterval = 10 * time.Second
	wsPongWait          = 60 * time.Second
)

type MonitoringHandler struct {
	monitoringService services.MonitoringService
	logger            *zap.Logger
	pushInterval      time.Duration
}

func NewMonitoringHandler(monitoringService services.MonitoringService, logger *zap.Logger) *MonitoringHandler {
	return &MonitoringHandler{
		monitoringService: monitoringService,
		logger:            logger,
		pushInterval:      metricsPushInterval,
	}
}

func (h *MonitoringHandler) GetMetrics(c *gin.Context) {
	logger := h.logger.With(zap.String("handler", "get_metrics"))

	metrics := h.monitoringService.GetMetrics(c.Request.Context())

	logger.Debug("Métricas obtenidas",
		zap.Int("total_requests", metrics.Requests.TotalRequests),
		zap.Int("total_endpoints", metrics.Requests.TotalEndpoints))

	c.JSON(http.StatusOK, metrics)
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// WebSocketMetrics envía las métricas cada pushInterval hasta que el cliente se va
func (h *MonitoringHandler) WebSocketMetrics(c *gin.Context) {
	logger := h.logger.With(zap.String("handler", "websocket_metrics"))

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.Error("Error actualizando a WebSocket", zap.Error(err))
		return
	}
	defer conn.Close()

	logger.Info("Conexión WebSocket establecida")

	_ = conn.SetReadDeadline(time.Now().Add(wsPongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})

	// el lector detecta el cierre del cliente
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	send := func() bool {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		metrics := h.monitoringService.GetMetrics(ctx)
		if err := conn.WriteJSON(metrics); err != nil {
			logger.Error("Error enviando métricas por WebSocket", zap.Error(err))
			return false
		}
		return true
	}

	if !send() {
		return
	}

	ticker := time.NewTicker(h.pushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if !send() {
				return
			}
		case <-closed:
			logger.Info("Conexión WebSocket cerrada por el cliente")
			return
		case <-c.Request.Context().Done():
			return
		}
	}
}

// RecordRequestMiddleware registra duración y status de cada request
func (h *MonitoringHandler) RecordRequestMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}
		if shouldSkipMonitoring(path) {
			return
		}

		h.monitoringService.RecordRequest(models.RequestData{
			Endpoint:   path,
			Method:     c.Request.Method,
			Duration:   time.Since(start),
			StatusCode: c.Writer.Status(),
			Timestamp:  time.Now(),
		})
	}
}

func shouldSkipMonitoring(path string) bool {
	switch path {
	case "/api/v1/monitoring/metrics",
		"/api/v1/monitoring/metrics/summary",
		"/api/v1/monitoring/ws",
		"/health/monitoring",
		"/health",
		"/":
		return true
	}
	return false
}

// HealthCheck estado resumido según Redis y el pool de PostgreSQL
func (h *MonitoringHandler) HealthCheck(c *gin.Context) {
	services := gin.H{
		"database": "online",
		"redis":    "online",
	}
	status := "healthy"

	if !h.monitoringService.GetRedisStats(c.Request.Context()).Connected {
		services["redis"] = "offline"
		status = "degraded"
	}
	if h.monitoringService.GetDatabaseStats().Status != "online" {
		services["database"] = "offline"
		status = "degraded"
	}

	c.JSON(http.StatusOK, gin.H{
		"status":    status,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"services":  services,
	})
}

func (h *MonitoringHandler) GetMetricsSummary(c *gin.Context) {
	metrics := h.monitoringService.GetMetrics(c.Request.Context())

	c.JSON(http.StatusOK, gin.H{
		"requests": gin.H{
			"total":         metrics.Requests.TotalRequests,
			"endpoints":     metrics.Requests.TotalEndpoints,
			"errors":        len(metrics.Requests.Errors),
			"slow_requests": len(metrics.Requests.SlowRequests),
		},
		"performance": gin.H{
			"avg_response_time_ms": metrics.Performance.AvgResponseTimeMs,
			"max_response_time_ms": metrics.Performance.MaxResponseTimeMs,
		},
		"fulfillment": gin.H{
			"completions":        metrics.Fulfillment.Completions,
			"failed_completions": metrics.Fulfillment.FailedCompletions,
			"conflicts":          metrics.Fulfillment.Conflicts,
			"units_deducted":     metrics.Fulfillment.UnitsDeducted,
			"rejected_scans":     metrics.Fulfillment.RejectedScans,
		},
		"cache": gin.H{
			"hit_rate": metrics.Cache.HitRatePercentage,
			"l1_keys":  metrics.Cache.L1Keys,
		},
		"database": gin.H{
			"open_connections": metrics.Database.OpenConnections,
			"status":           metrics.Database.Status,
		},
		"system": gin.H{
			"heap":       metrics.System.HeapAllocMB,
			"goroutines": metrics.System.Goroutines,
			"uptime":     metrics.System.UptimeHours,
		},
		"redis": gin.H{
			"connected": metrics.Redis.Connected,
			"keys":      metrics.Redis.Keys,
			"memory":    metrics.Redis.MemoryMB,
			"status":    metrics.Redis.Status,
		},
		"timestamp": metrics.Timestamp,
	})
}
