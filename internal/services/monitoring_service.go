package services

import (
	"context"
	"database/sql"
	"fmt"
	"runtime"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"warehouse-service/internal/cache"
	"warehouse-service/internal/config"
	"warehouse-service/internal/models"
)

const (
	slowRequestThreshold = time.Second
	maxTrackedRequests   = 100
)

type MonitoringService interface {
	GetMetrics(ctx context.Context) *models.MonitoringResponse
	RecordRequest(data models.RequestData)
	GetCacheStats() models.CacheMetrics
	GetDatabaseStats() models.DatabaseMetrics
	GetSystemStats() models.SystemMetrics
	GetRedisStats(ctx context.Context) models.RedisMetrics
}

type monitoringService struct {
	logger        *zap.Logger
	config        *config.Config
	redisClient   *redis.Client
	dbPool        *sql.DB
	locationCache *cache.LocationCache
	counters      *FulfillmentCounters

	// Métricas de requests
	requestsMutex sync.RWMutex
	requests      map[string]*models.EndpointMetrics
	slowRequests  []models.SlowRequest
	errors        []models.RequestError
	totalRequests int64

	startTime time.Time
}

// NewMonitoringService redisClient y dbPool pueden ser nil; esas secciones se
// reportan como offline.
func NewMonitoringService(
	logger *zap.Logger,
	config *config.Config,
	redisClient *redis.Client,
	dbPool *sql.DB,
	locationCache *cache.LocationCache,
	counters *FulfillmentCounters,
) MonitoringService {
	return &monitoringService{
		logger:        logger,
		config:        config,
		redisClient:   redisClient,
		dbPool:        dbPool,
		locationCache: locationCache,
		counters:      counters,
		requests:      make(map[string]*models.EndpointMetrics),
		startTime:     time.Now(),
	}
}

func (s *monitoringService) RecordRequest(data models.RequestData) {
	s.requestsMutex.Lock()
	defer s.requestsMutex.Unlock()

	endpointKey := fmt.Sprintf("%s %s", data.Method, data.Endpoint)

	metrics, exists := s.requests[endpointKey]
	if !exists {
		metrics = &models.EndpointMetrics{}
		s.requests[endpointKey] = metrics
	}

	durationMs := data.Duration.Milliseconds()
	metrics.Count++
	metrics.TotalMs += durationMs
	metrics.AvgTimeMs = float64(metrics.TotalMs) / float64(metrics.Count)
	if durationMs > metrics.MaxMs {
		metrics.MaxMs = durationMs
	}

	s.totalRequests++

	if data.Duration > slowRequestThreshold {
		s.slowRequests = append(s.slowRequests, models.SlowRequest{
			Endpoint:   endpointKey,
			DurationMs: durationMs,
			Timestamp:  data.Timestamp,
		})
		if len(s.slowRequests) > maxTrackedRequests {
			s.slowRequests = s.slowRequests[1:]
		}
	}

	if data.StatusCode >= 400 {
		s.errors = append(s.errors, models.RequestError{
			Endpoint:   endpointKey,
			StatusCode: data.StatusCode,
			Timestamp:  data.Timestamp,
		})
		if len(s.errors) > maxTrackedRequests {
			s.errors = s.errors[1:]
		}
	}
}

func (s *monitoringService) GetMetrics(ctx context.Context) *models.MonitoringResponse {
	s.requestsMutex.RLock()
	requestMetrics := s.calculateRequestMetrics()
	performanceMetrics := s.calculatePerformanceMetrics()
	s.requestsMutex.RUnlock()

	var fulfillment models.FulfillmentMetrics
	if s.counters != nil {
		fulfillment = s.counters.Snapshot()
	}

	return &models.MonitoringResponse{
		Requests:    requestMetrics,
		Performance: performanceMetrics,
		Fulfillment: fulfillment,
		Cache:       s.GetCacheStats(),
		Database:    s.GetDatabaseStats(),
		System:      s.GetSystemStats(),
		Redis:       s.GetRedisStats(ctx),
		Timestamp:   time.Now().UTC().Format(time.RFC3339),
		Version:     "1.0",
	}
}

func (s *monitoringService) calculateRequestMetrics() models.RequestMetrics {
	type endpointEntry struct {
		key     string
		metrics *models.EndpointMetrics
	}

	endpoints := make([]endpointEntry, 0, len(s.requests))
	byEndpoint := make(map[string]models.EndpointMetrics, len(s.requests))
	for key, metrics := range s.requests {
		endpoints = append(endpoints, endpointEntry{key, metrics})
		byEndpoint[key] = *metrics
	}

	// Ordenar por count descendente
	sort.Slice(endpoints, func(i, j int) bool {
		if endpoints[i].metrics.Count == endpoints[j].metrics.Count {
			return endpoints[i].key < endpoints[j].key
		}
		return endpoints[i].metrics.Count > endpoints[j].metrics.Count
	})

	topEndpoints := []models.TopEndpoint{}
	for i, endpoint := range endpoints {
		if i >= 10 {
			break
		}
		topEndpoints = append(topEndpoints, models.TopEndpoint{
			Endpoint:  endpoint.key,
			Count:     endpoint.metrics.Count,
			AvgTimeMs: fmt.Sprintf("%.2fms", endpoint.metrics.AvgTimeMs),
		})
	}

	return models.RequestMetrics{
		TotalEndpoints: len(s.requests),
		TotalRequests:  int(s.totalRequests),
		ByEndpoint:     byEndpoint,
		SlowRequests:   append([]models.SlowRequest{}, s.slowRequests...),
		Errors:         append([]models.RequestError{}, s.errors...),
		TopEndpoints:   topEndpoints,
	}
}

func (s *monitoringService) calculatePerformanceMetrics() models.PerformanceMetrics {
	var totalMs, maxMs int64
	var count int

	for _, metrics := range s.requests {
		totalMs += metrics.TotalMs
		count += metrics.Count
		if metrics.MaxMs > maxMs {
			maxMs = metrics.MaxMs
		}
	}

	var avg float64
	if count > 0 {
		avg = float64(totalMs) / float64(count)
	}

	return models.PerformanceMetrics{
		AvgResponseTimeMs: avg,
		MaxResponseTimeMs: maxMs,
	}
}

func (s *monitoringService) GetCacheStats() models.CacheMetrics {
	if s.locationCache == nil {
		return models.CacheMetrics{HitRatePercentage: "0.00%"}
	}

	stats := s.locationCache.GetStats()
	hitRate := stats.HitRate()

	return models.CacheMetrics{
		L1Keys:            stats.TotalKeys,
		HitRate:           hitRate,
		HitRatePercentage: fmt.Sprintf("%.2f%%", hitRate*100),
		TotalHits:         stats.Hits,
		TotalMisses:       stats.Misses,
		TotalRequests:     stats.TotalRequests,
	}
}

func (s *monitoringService) GetDatabaseStats() models.DatabaseMetrics {
	if s.dbPool == nil {
		return models.DatabaseMetrics{Status: "offline"}
	}

	stats := s.dbPool.Stats()
	return models.DatabaseMetrics{
		OpenConnections: stats.OpenConnections,
		InUse:           stats.InUse,
		Idle:            stats.Idle,
		WaitCount:       stats.WaitCount,
		Status:          "online",
	}
}

func (s *monitoringService) GetSystemStats() models.SystemMetrics {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	uptime := time.Since(s.startTime).Seconds()

	environment := "production"
	if s.config != nil && s.config.Server.GinMode == "debug" {
		environment = "development"
	}

	return models.SystemMetrics{
		HeapAllocMB: fmt.Sprintf("%.2f MB", float64(m.HeapAlloc)/1024/1024),
		SysMB:       fmt.Sprintf("%.2f MB", float64(m.Sys)/1024/1024),
		Goroutines:  runtime.NumGoroutine(),
		Uptime:      uptime,
		UptimeHours: fmt.Sprintf("%.2fh", uptime/3600),
		GoVersion:   runtime.Version(),
		Platform:    runtime.GOOS,
		Environment: environment,
	}
}

func (s *monitoringService) GetRedisStats(ctx context.Context) models.RedisMetrics {
	if s.redisClient == nil {
		return models.RedisMetrics{Status: "offline"}
	}

	_, err := s.redisClient.Ping(ctx).Result()
	connected := err == nil

	var keys int
	var memoryMB string

	if connected {
		if size, err := s.redisClient.DBSize(ctx).Result(); err == nil {
			keys = int(size)
		}

		// used_memory de INFO memory
		if info, err := s.redisClient.Info(ctx, "memory").Result(); err == nil {
			for _, line := range strings.Split(info, "\n") {
				value, ok := strings.CutPrefix(strings.TrimSpace(line), "used_memory:")
				if !ok {
					continue
				}
				if memBytes, err := strconv.ParseInt(value, 10, 64); err == nil {
					memoryMB = fmt.Sprintf("%.2f MB", float64(memBytes)/1024/1024)
				}
				break
			}
		}
	}

	status := "offline"
	if connected {
		status = "online"
	} else {
		s.logger.Warn("Redis no responde", zap.Error(err))
	}

	return models.RedisMetrics{
		Connected: connected,
		Keys:      keys,
		MemoryMB:  memoryMB,
		Status:    status,
	}
}
