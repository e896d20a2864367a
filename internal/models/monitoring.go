package models

import "time"

// MonitoringResponse respuesta completa del sistema de monitoring
type MonitoringResponse struct {
	Requests    RequestMetrics     `json:"requests"`
	Performance PerformanceMetrics `json:"performance"`
	Fulfillment FulfillmentMetrics `json:"fulfillment"`
	Cache       CacheMetrics       `json:"cache"`
	Database    DatabaseMetrics    `json:"database"`
	System      SystemMetrics      `json:"system"`
	Redis       RedisMetrics       `json:"redis"`
	Timestamp   string             `json:"timestamp"`
	Version     string             `json:"version"`
}

// RequestMetrics métricas de requests
type RequestMetrics struct {
	TotalEndpoints int                        `json:"total_endpoints"`
	TotalRequests  int                        `json:"total_requests"`
	ByEndpoint     map[string]EndpointMetrics `json:"by_endpoint"`
	SlowRequests   []SlowRequest              `json:"slow_requests"`
	Errors         []RequestError             `json:"errors"`
	TopEndpoints   []TopEndpoint              `json:"top_endpoints"`
}

// EndpointMetrics métricas por endpoint
type EndpointMetrics struct {
	Count     int     `json:"count"`
	AvgTimeMs float64 `json:"avg_time_ms"`
	TotalMs   int64   `json:"total_ms"`
	MaxMs     int64   `json:"max_ms"`
}

type SlowRequest struct {
	Endpoint   string    `json:"endpoint"`
	DurationMs int64     `json:"duration_ms"`
	Timestamp  time.Time `json:"timestamp"`
}

type RequestError struct {
	Endpoint   string    `json:"endpoint"`
	StatusCode int       `json:"status_code"`
	Timestamp  time.Time `json:"timestamp"`
}

type TopEndpoint struct {
	Endpoint  string `json:"endpoint"`
	Count     int    `json:"count"`
	AvgTimeMs string `json:"avg_time_ms"`
}

// PerformanceMetrics métricas de rendimiento agregadas
type PerformanceMetrics struct {
	AvgResponseTimeMs float64 `json:"avg_response_time_ms"`
	MaxResponseTimeMs int64   `json:"max_response_time_ms"`
}

// FulfillmentMetrics contadores del flujo de salida de stock
type FulfillmentMetrics struct {
	AcceptedScans     int64 `json:"accepted_scans"`
	RejectedScans     int64 `json:"rejected_scans"`
	Completions       int64 `json:"completions"`
	FailedCompletions int64 `json:"failed_completions"`
	Conflicts         int64 `json:"conflicts"`
	ItemsProcessed    int64 `json:"items_processed"`
	UnitsDeducted     int64 `json:"units_deducted"`
	LookupsDispatched int64 `json:"lookups_dispatched"`
	LookupsErrored    int64 `json:"lookups_errored"`
}

// CacheMetrics métricas del caché de ubicaciones
type CacheMetrics struct {
	L1Keys            int     `json:"l1_keys"`
	HitRate           float64 `json:"hit_rate"`
	HitRatePercentage string  `json:"hit_rate_percentage"`
	TotalHits         int64   `json:"total_hits"`
	TotalMisses       int64   `json:"total_misses"`
	TotalRequests     int64   `json:"total_requests"`
}

type DatabaseMetrics struct {
	OpenConnections int    `json:"open_connections"`
	InUse           int    `json:"in_use"`
	Idle            int    `json:"idle"`
	WaitCount       int64  `json:"wait_count"`
	Status          string `json:"status"`
}

type SystemMetrics struct {
	HeapAllocMB string  `json:"heap_alloc_mb"`
	SysMB       string  `json:"sys_mb"`
	Goroutines  int     `json:"goroutines"`
	Uptime      float64 `json:"uptime_seconds"`
	UptimeHours string  `json:"uptime_hours"`
	GoVersion   string  `json:"go_version"`
	Platform    string  `json:"platform"`
	Environment string  `json:"environment"`
}

type RedisMetrics struct {
	Connected bool   `json:"connected"`
	Keys      int    `json:"keys"`
	MemoryMB  string `json:"memory_mb"`
	Status    string `json:"status"`
}

// RequestData datos de un request individual
type RequestData struct {
	Endpoint   string
	Method     string
	Duration   time.Duration
	StatusCode int
	Timestamp  time.Time
}
