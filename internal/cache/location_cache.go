package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/puzpuzpuz/xsync/v3"
	"go.uber.org/zap"

	"warehouse-service/internal/models"
)

// CacheStats estadísticas del caché
type CacheStats struct {
	Hits          int64
	Misses        int64
	TotalRequests int64
	TotalKeys     int
}

// HitRate fracción de aciertos, 0 sin consultas
func (s CacheStats) HitRate() float64 {
	if s.TotalRequests == 0 {
		return 0
	}
	return float64(s.Hits) / float64(s.TotalRequests)
}

// LocationCache guarda el último resultado de reconciliación por código de barras.
// L1 en memoria y L2 en Redis; la última escritura gana en ambos niveles.
type LocationCache struct {
	l1 *xsync.MapOf[string, models.LocationLookup]

	// nil deja el caché solo en memoria
	redisClient *redis.Client

	maxL1Size int
	ttl       time.Duration

	logger *zap.Logger

	hits   *xsync.Counter
	misses *xsync.Counter
}

func NewLocationCache(redisClient *redis.Client, maxL1Size int, ttl time.Duration, logger *zap.Logger) *LocationCache {
	return &LocationCache{
		l1:          xsync.NewMapOf[string, models.LocationLookup](),
		redisClient: redisClient,
		maxL1Size:   maxL1Size,
		ttl:         ttl,
		logger:      logger,
		hits:        xsync.NewCounter(),
		misses:      xsync.NewCounter(),
	}
}

func locationKey(barcode string) string {
	return fmt.Sprintf("location:%s", barcode)
}

func (lc *LocationCache) GetStats() CacheStats {
	hits, misses := lc.hits.Value(), lc.misses.Value()
	return CacheStats{
		Hits:          hits,
		Misses:        misses,
		TotalRequests: hits + misses,
		TotalKeys:     lc.l1.Size(),
	}
}

// Get busca primero en memoria y luego en Redis, subiendo a L1 lo que encuentre.
// Una entrada de L1 resuelta hace más de ttl se descarta.
func (lc *LocationCache) Get(ctx context.Context, barcode string) (models.LocationLookup, bool) {
	if lookup, ok := lc.l1.Load(barcode); ok {
		if !lc.expired(lookup) {
			lc.hits.Inc()
			return lookup, true
		}
		lc.l1.Delete(barcode)
	}

	if lc.redisClient != nil {
		lookup, err := lc.getFromL2(ctx, barcode)
		if err == nil {
			lc.setToL1(barcode, lookup)
			lc.hits.Inc()
			return lookup, true
		}
		if !errors.Is(err, redis.Nil) {
			lc.logger.Warn("Error leyendo ubicación desde Redis",
				zap.String("barcode", barcode),
				zap.Error(err))
		}
	}

	lc.misses.Inc()
	return models.LocationLookup{}, false
}

// Set guarda en ambos niveles. Si falla Redis el valor queda igual en L1.
func (lc *LocationCache) Set(ctx context.Context, lookup models.LocationLookup) error {
	if lookup.ResolvedAt.IsZero() {
		lookup.ResolvedAt = time.Now()
	}
	lc.setToL1(lookup.Barcode, lookup)

	if lc.redisClient == nil {
		return nil
	}
	return lc.setToL2(ctx, lookup)
}

func (lc *LocationCache) expired(lookup models.LocationLookup) bool {
	return lc.ttl > 0 && time.Since(lookup.ResolvedAt) > lc.ttl
}

func (lc *LocationCache) Invalidate(ctx context.Context, barcode string) error {
	lc.l1.Delete(barcode)
	if lc.redisClient == nil {
		return nil
	}
	return lc.redisClient.Del(ctx, locationKey(barcode)).Err()
}

func (lc *LocationCache) setToL1(barcode string, lookup models.LocationLookup) {
	if lc.maxL1Size > 0 && lc.l1.Size() >= lc.maxL1Size {
		if _, exists := lc.l1.Load(barcode); !exists {
			lc.evictOne()
		}
	}
	lc.l1.Store(barcode, lookup)
}

// evictOne saca la entrada resuelta hace más tiempo
func (lc *LocationCache) evictOne() {
	var oldestKey string
	var oldest time.Time
	lc.l1.Range(func(key string, value models.LocationLookup) bool {
		if oldestKey == "" || value.ResolvedAt.Before(oldest) {
			oldestKey, oldest = key, value.ResolvedAt
		}
		return true
	})
	if oldestKey != "" {
		lc.l1.Delete(oldestKey)
	}
}

func (lc *LocationCache) getFromL2(ctx context.Context, barcode string) (models.LocationLookup, error) {
	data, err := lc.redisClient.Get(ctx, locationKey(barcode)).Bytes()
	if err != nil {
		return models.LocationLookup{}, err
	}

	var lookup models.LocationLookup
	if err := json.Unmarshal(data, &lookup); err != nil {
		return models.LocationLookup{}, fmt.Errorf("failed to decode cached location: %w", err)
	}
	return lookup, nil
}

func (lc *LocationCache) setToL2(ctx context.Context, lookup models.LocationLookup) error {
	data, err := json.Marshal(lookup)
	if err != nil {
		return fmt.Errorf("failed to encode location: %w", err)
	}
	if err := lc.redisClient.Set(ctx, locationKey(lookup.Barcode), data, lc.ttl).Err(); err != nil {
		return fmt.Errorf("failed to cache location: %w", err)
	}
	return nil
}
