package services

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"warehouse-service/internal/cache"
	"warehouse-service/internal/config"
	"warehouse-service/internal/models"
)

func TestMonitoringService_RecordRequest(t *testing.T) {
	svc := NewMonitoringService(zap.NewNop(), &config.Config{}, nil, nil, nil, nil)
	now := time.Now()

	svc.RecordRequest(models.RequestData{Endpoint: "/api/v1/stock-outs", Method: "GET", Duration: 20 * time.Millisecond, StatusCode: 200, Timestamp: now})
	svc.RecordRequest(models.RequestData{Endpoint: "/api/v1/stock-outs", Method: "GET", Duration: 40 * time.Millisecond, StatusCode: 200, Timestamp: now})
	svc.RecordRequest(models.RequestData{Endpoint: "/api/v1/scan-sessions/:id/complete", Method: "POST", Duration: 1500 * time.Millisecond, StatusCode: 409, Timestamp: now})

	metrics := svc.GetMetrics(context.Background())

	assert.Equal(t, 3, metrics.Requests.TotalRequests)
	assert.Equal(t, 2, metrics.Requests.TotalEndpoints)
	require.NotEmpty(t, metrics.Requests.TopEndpoints)
	assert.Equal(t, "GET /api/v1/stock-outs", metrics.Requests.TopEndpoints[0].Endpoint)
	assert.Equal(t, "30.00ms", metrics.Requests.TopEndpoints[0].AvgTimeMs)
	assert.Len(t, metrics.Requests.SlowRequests, 1)
	assert.Len(t, metrics.Requests.Errors, 1)
	assert.Equal(t, 409, metrics.Requests.Errors[0].StatusCode)
	assert.Equal(t, int64(1500), metrics.Performance.MaxResponseTimeMs)

	assert.Equal(t, "offline", metrics.Database.Status)
	assert.Equal(t, "offline", metrics.Redis.Status)
}

func TestMonitoringService_FulfillmentAndCache(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	locCache := cache.NewLocationCache(nil, 10, time.Minute, zap.NewNop())
	require.NoError(t, locCache.Set(ctx, models.LocationLookup{Barcode: "B1", WarehouseName: "Main"}))
	locCache.Get(ctx, "B1")
	locCache.Get(ctx, "B2")

	counters := NewFulfillmentCounters()
	counters.ScanAccepted()
	counters.CompletionSucceeded(2, 5)

	svc := NewMonitoringService(zap.NewNop(), &config.Config{}, client, nil, locCache, counters)
	metrics := svc.GetMetrics(ctx)

	assert.Equal(t, int64(1), metrics.Fulfillment.AcceptedScans)
	assert.Equal(t, int64(5), metrics.Fulfillment.UnitsDeducted)
	assert.Equal(t, 1, metrics.Cache.L1Keys)
	assert.Equal(t, "50.00%", metrics.Cache.HitRatePercentage)
	assert.True(t, metrics.Redis.Connected)
	assert.Equal(t, "online", metrics.Redis.Status)
}
