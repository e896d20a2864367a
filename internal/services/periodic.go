package services

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// RunPeriodic ejecuta fn cada interval hasta que ctx se cancela. Un error se
// registra y no detiene el ciclo.
func RunPeriodic(ctx context.Context, name string, interval time.Duration, logger *zap.Logger, fn func(ctx context.Context) error) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	logger.Info("Tarea periódica iniciada", zap.String("task", name), zap.Duration("interval", interval))

	for {
		select {
		case <-ctx.Done():
			logger.Info("Tarea periódica detenida", zap.String("task", name))
			return
		case <-ticker.C:
			if err := fn(ctx); err != nil {
				logger.Error("Error en tarea periódica", zap.String("task", name), zap.Error(err))
			}
		}
	}
}
