package middleware

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Pinger es lo que necesita el health check de cada dependencia
type Pinger interface {
	Ping(ctx context.Context) error
}

// DBStatser expone las estadísticas del pool de PostgreSQL
type DBStatser interface {
	GetStats() sql.DBStats
}

// SessionCounter cuenta las sesiones de escaneo vivas en Redis
type SessionCounter interface {
	ScanSessionCounts(ctx context.Context) (active, claimed int64, err error)
}

type HealthChecker struct {
	postgres Pinger
	redis    Pinger
	logger   *zap.Logger
}

func NewHealthChecker(postgres, redis Pinger, logger *zap.Logger) *HealthChecker {
	return &HealthChecker{
		postgres: postgres,
		redis:    redis,
		logger:   logger,
	}
}

// HealthCheck responde 503 si PostgreSQL o Redis no contestan el ping
func (h *HealthChecker) HealthCheck(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	healthy := true
	services := gin.H{}

	postgres := gin.H{"status": "healthy"}
	if err := h.postgres.Ping(ctx); err != nil {
		healthy = false
		postgres["status"] = "unhealthy"
		h.logger.Error("PostgreSQL health check failed", zap.Error(err))
	}
	if statser, ok := h.postgres.(DBStatser); ok {
		stats := statser.GetStats()
		postgres["stats"] = gin.H{
			"max_open_connections": stats.MaxOpenConnections,
			"open_connections":     stats.OpenConnections,
			"in_use":               stats.InUse,
			"idle":                 stats.Idle,
		}
	}
	services["postgresql"] = postgres

	redis := gin.H{"status": "healthy"}
	if err := h.redis.Ping(ctx); err != nil {
		healthy = false
		redis["status"] = "unhealthy"
		h.logger.Error("Redis health check failed", zap.Error(err))
	} else if counter, ok := h.redis.(SessionCounter); ok {
		active, claimed, err := counter.ScanSessionCounts(ctx)
		if err != nil {
			h.logger.Warn("No se pudieron contar las sesiones de escaneo", zap.Error(err))
		} else {
			redis["scan_sessions"] = gin.H{"active": active, "completing": claimed}
		}
	}
	services["redis"] = redis

	status := "healthy"
	httpStatus := http.StatusOK
	if !healthy {
		status = "unhealthy"
		httpStatus = http.StatusServiceUnavailable
	}

	c.JSON(httpStatus, gin.H{
		"status":    status,
		"timestamp": time.Now().Format(time.RFC3339),
		"services":  services,
	})
}
