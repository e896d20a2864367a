package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"warehouse-service/internal/handlers"
	"warehouse-service/internal/middleware"
	"warehouse-service/internal/models"
)

// Handlers agrupa los handlers que monta SetupRoutes
type Handlers struct {
	StockOut    *handlers.StockOutHandler
	Location    *handlers.LocationHandler
	Reservation *handlers.ReservationHandler
	Inventory   *handlers.InventoryHandler
	Admin       *handlers.AdminHandler
	Monitoring  *handlers.MonitoringHandler
}

// SetupRoutes configura todas las rutas de la aplicación
func SetupRoutes(router *gin.Engine, h Handlers, auth *middleware.Auth, healthChecker *middleware.HealthChecker) {
	writers := middleware.RequireRole(models.RoleAdmin, models.RoleManager, models.RoleOperator)
	managers := middleware.RequireRole(models.RoleAdmin, models.RoleManager)

	v1 := router.Group("/api/v1")

	// Monitoring sin token
	monitoring := v1.Group("/monitoring")
	{
		monitoring.GET("/metrics", h.Monitoring.GetMetrics)
		monitoring.GET("/metrics/summary", h.Monitoring.GetMetricsSummary)
		monitoring.GET("/ws", h.Monitoring.WebSocketMetrics)
	}

	api := v1.Group("", auth.RequireAuth())

	stockOut := api.Group("/stock-out")
	{
		stockOut.GET("", h.StockOut.List)
		stockOut.POST("", writers, h.StockOut.Create)
		stockOut.GET("/:id", h.StockOut.Get)
		stockOut.POST("/:id/approve", managers, h.StockOut.Approve)
		stockOut.POST("/:id/reject", managers, h.StockOut.Reject)
		stockOut.POST("/:id/cancel", writers, h.StockOut.Cancel)
		stockOut.GET("/:id/processed-items", h.StockOut.ProcessedItems)
		stockOut.GET("/:id/available-items", h.StockOut.AvailableItems)
		stockOut.POST("/:id/sessions", writers, h.StockOut.StartSession)
	}

	sessions := api.Group("/sessions")
	{
		sessions.GET("/:session_id", h.StockOut.GetSession)
		sessions.POST("/:session_id/scan", writers, h.StockOut.Scan)
		sessions.DELETE("/:session_id/scan/:barcode", writers, h.StockOut.RemoveScan)
		sessions.POST("/:session_id/complete", writers, h.StockOut.Complete)
	}

	locations := api.Group("/locations")
	{
		locations.POST("/lookup", h.Location.Lookup)
		locations.GET("/results", h.Location.Results)
	}

	reservations := api.Group("/reservations")
	{
		reservations.POST("", writers, h.Reservation.Create)
		reservations.GET("/:id", h.Reservation.Get)
		reservations.POST("/:id/activate", writers, h.Reservation.Activate)
		reservations.POST("/:id/cancel", writers, h.Reservation.Cancel)
		reservations.POST("/:id/complete", writers, h.Reservation.Complete)
		reservations.POST("/:id/convert", managers, h.Reservation.Convert)
	}

	api.POST("/transfers/:id/approve", managers, h.Inventory.ApproveTransfer)
	api.POST("/batch-items/:id/adjust", managers, h.Inventory.AdjustBatchItem)

	admin := api.Group("/admin", middleware.RequireRole(models.RoleAdmin))
	{
		admin.POST("/users/:id/role", h.Admin.UpdateRole)
	}

	router.GET("/health", healthChecker.HealthCheck)
	router.GET("/health/monitoring", h.Monitoring.HealthCheck)

	router.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"message": "Warehouse Service API",
			"version": "1.0.0",
			"status":  "running",
			"endpoints": gin.H{
				"health":       "/health",
				"api":          "/api/v1",
				"stock_out":    "/api/v1/stock-out",
				"sessions":     "/api/v1/sessions/:session_id",
				"locations":    "/api/v1/locations",
				"reservations": "/api/v1/reservations",
				"monitoring":   "/api/v1/monitoring/metrics",
			},
		})
	})
}
