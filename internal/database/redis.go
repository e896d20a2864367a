package database

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

type RedisDB struct {
	Client *redis.Client
}

func NewRedisDB(ctx context.Context, url, password string, db int, logger *zap.Logger) (*RedisDB, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	// La contraseña explícita tiene prioridad sobre la de la URL
	if password != "" {
		opt.Password = password
	}
	opt.DB = db

	client := redis.NewClient(opt)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to ping Redis: %w", err)
	}

	logger.Info("Redis connection established",
		zap.String("addr", opt.Addr),
		zap.Int("db", db),
	)

	return &RedisDB{Client: client}, nil
}

func (r *RedisDB) Close() error {
	return r.Client.Close()
}

func (r *RedisDB) Ping(ctx context.Context) error {
	return r.Client.Ping(ctx).Err()
}

// ScanSessionCounts recorre las claves scan_session:* y separa sesiones abiertas de
// marcas de confirmación (sufijo :claim)
func (r *RedisDB) ScanSessionCounts(ctx context.Context) (active, claimed int64, err error) {
	iter := r.Client.Scan(ctx, 0, "scan_session:*", 200).Iterator()
	for iter.Next(ctx) {
		if strings.HasSuffix(iter.Val(), ":claim") {
			claimed++
		} else {
			active++
		}
	}
	if err := iter.Err(); err != nil {
		return 0, 0, fmt.Errorf("failed to scan session keys: %w", err)
	}
	return active, claimed, nil
}
