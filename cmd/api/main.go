package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"warehouse-service/internal/cache"
	"warehouse-service/internal/config"
	"warehouse-service/internal/database"
	"warehouse-service/internal/handlers"
	"warehouse-service/internal/middleware"
	"warehouse-service/internal/repository"
	"warehouse-service/internal/routes"
	"warehouse-service/internal/services"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("❌ Error cargando configuración: %v", err)
	}

	logger, err := newLogger(cfg)
	if err != nil {
		log.Fatalf("❌ Error creando logger: %v", err)
	}
	defer logger.Sync()

	gin.SetMode(cfg.Server.GinMode)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	postgres, err := database.NewPostgresDB(ctx, database.PostgresOptions{
		DSN:             cfg.Database.URL,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
	}, logger)
	if err != nil {
		logger.Fatal("Error conectando a PostgreSQL", zap.Error(err))
	}
	defer postgres.Close()

	redisDB, err := database.NewRedisDB(ctx, cfg.Redis.URL, cfg.Redis.Password, cfg.Redis.DB, logger)
	if err != nil {
		logger.Fatal("Error conectando a Redis", zap.Error(err))
	}
	defer redisDB.Close()

	// Repositorios
	stockOutRepo, err := repository.NewStockOutRepository(postgres.DB)
	if err != nil {
		logger.Fatal("Error preparando repositorio de salidas", zap.Error(err))
	}
	batchItemRepo, err := repository.NewBatchItemRepository(postgres.DB, logger)
	if err != nil {
		logger.Fatal("Error preparando repositorio de batch items", zap.Error(err))
	}
	store := repository.NewFulfillmentStore(postgres.DB)
	locationRepo := repository.NewLocationRepository(postgres.X)
	reservationRepo := repository.NewReservationRepository(postgres.X)
	transferRepo := repository.NewTransferRepository(postgres.X)
	userRepo := repository.NewUserRepository(postgres.X)

	// Cache
	sessions := cache.NewSessionStore(redisDB.Client, cfg.Fulfillment.SessionTTL)
	locationCache := cache.NewLocationCache(redisDB.Client, cfg.Fulfillment.LocationCacheL1Max, cfg.Fulfillment.LocationCacheTTL, logger)

	// Servicios
	counters := services.NewFulfillmentCounters()
	reconciler := services.NewLocationReconciler(locationRepo, locationCache, counters,
		cfg.Fulfillment.ReconcileWorkers, cfg.Fulfillment.ReconcileTimeout, logger)
	stockOutService := services.NewStockOutService(stockOutRepo, batchItemRepo, store, sessions,
		locationCache, reconciler, counters, cfg.Fulfillment, logger)
	reservationService := services.NewReservationService(reservationRepo, logger)
	transferService := services.NewTransferService(transferRepo, logger)
	batchItemService := services.NewBatchItemService(batchItemRepo, logger)
	userService := services.NewUserService(userRepo, logger)
	monitoringService := services.NewMonitoringService(logger, cfg, redisDB.Client, postgres.DB, locationCache, counters)

	monitoringHandler := handlers.NewMonitoringHandler(monitoringService, logger)

	router := gin.New()
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.LoggerMiddleware(logger))
	router.Use(gin.Recovery())
	router.Use(monitoringHandler.RecordRequestMiddleware())

	routes.SetupRoutes(router, routes.Handlers{
		StockOut:    handlers.NewStockOutHandler(stockOutService, logger),
		Location:    handlers.NewLocationHandler(reconciler, logger),
		Reservation: handlers.NewReservationHandler(reservationService, logger),
		Inventory:   handlers.NewInventoryHandler(transferService, batchItemService, logger),
		Admin:       handlers.NewAdminHandler(userService, logger),
		Monitoring:  monitoringHandler,
	}, middleware.NewAuth(cfg.JWT.Secret, logger), middleware.NewHealthChecker(postgres, redisDB, logger))

	// Tareas en segundo plano
	go services.RunPeriodic(ctx, "reservation_expiry", cfg.Reservation.SweepInterval, logger, func(ctx context.Context) error {
		_, err := reservationService.ResetExpired(ctx)
		return err
	})
	go services.RunPeriodic(ctx, "location_dispatch_prune", cfg.Fulfillment.SessionTTL, logger, func(context.Context) error {
		if n := reconciler.Prune(cfg.Fulfillment.SessionTTL); n > 0 {
			logger.Debug("Despachos de ubicación purgados", zap.Int("count", n))
		}
		return nil
	})

	middleware.ServerInfo(cfg.Server.Port, cfg.Fulfillment.RequireApproval, logger)

	server := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Error iniciando servidor", zap.Error(err))
		}
	}()

	sig := <-shutdown
	logger.Info("⚠️ Señal recibida, cerrando servidor", zap.String("signal", sig.String()))

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error cerrando servidor HTTP", zap.Error(err))
	}

	cancel()
	reconciler.Wait()

	logger.Info("✅ Servidor detenido")
}

// newLogger JSON en producción, consola con colores en modo debug
func newLogger(cfg *config.Config) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.Logging.Level)
	if err != nil {
		level = zapcore.InfoLevel
	}

	zapCfg := zap.NewProductionConfig()
	if cfg.Server.GinMode == gin.DebugMode {
		zapCfg = zap.NewDevelopmentConfig()
		zapCfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}
	zapCfg.Level = zap.NewAtomicLevelAt(level)
	zapCfg.EncoderConfig.TimeKey = "timestamp"
	zapCfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return zapCfg.Build()
}
