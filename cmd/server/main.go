package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"shipdesk/docs"
	"shipdesk/internal/auth"
	"shipdesk/internal/cache"
	"shipdesk/internal/config"
	"shipdesk/internal/db"
	"shipdesk/internal/events"
	"shipdesk/internal/handler"
	"shipdesk/internal/observability"
	"shipdesk/internal/repository"
	"shipdesk/internal/router"
	"shipdesk/internal/service"
)

// @title Shipdesk API
// @version 1.0
// @description Shipment administration API: clients, shipments, status workflow and history, with JWT authentication.
// @host localhost:4000
// @BasePath /
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.
func main() {
	cfg := config.Load()

	logger := observability.NewLogger(cfg.LogLevel)
	defer logger.Sync()

	shutdownTracer, err := observability.InitTracer(cfg.OTLPEndpoint, "shipdesk-api")
	if err != nil {
		logger.Fatal("failed to init tracer", zap.Error(err))
	}
	defer shutdownTracer(context.Background())

	metrics := observability.NewMetrics()

	dsn := cfg.MySQLDSN
	if cfg.DBDriver == "sqlite" {
		dsn = cfg.SQLitePath
	}
	gormDB, err := db.Open(cfg.DBDriver, dsn)
	if err != nil {
		logger.Fatal("database init", zap.Error(err))
	}
	if cfg.ResetDB {
		logger.Warn("RESET_DB=true detected, dropping all tables")
		if err := db.Reset(gormDB); err != nil {
			logger.Fatal("reset database", zap.Error(err))
		}
	}
	if err := db.Migrate(gormDB); err != nil {
		logger.Fatal("migrate database", zap.Error(err))
	}

	cacheClient := cache.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)
	defer cacheClient.Close()
	pingCtx, cancelPing := context.WithTimeout(context.Background(), 2*time.Second)
	if err := cacheClient.Ping(pingCtx); err != nil {
		logger.Warn("redis unreachable, cache and token store degrade", zap.String("addr", cfg.RedisAddr), zap.Error(err))
	}
	cancelPing()

	var publisher events.Publisher = events.NopPublisher{}
	if cfg.KafkaBroker != "" {
		publisher = events.NewKafkaPublisher(cfg.KafkaBroker, cfg.KafkaTopic, logger)
		logger.Info("publishing status events", zap.String("broker", cfg.KafkaBroker), zap.String("topic", cfg.KafkaTopic))
	}
	defer publisher.Close()

	// Initialize repositories
	userRepo := repository.NewUserRepository(gormDB)
	clientRepo := repository.NewClientRepository(gormDB)
	shipmentRepo := repository.NewShipmentRepository(gormDB)
	historyRepo := repository.NewHistoryRepository(gormDB)

	// Initialize auth components
	jwtService := auth.NewJWTService(cfg.JWTSecret, cfg.JWTAccessTTL, cfg.JWTRefreshWindow)
	tokenStore := auth.NewTokenStore(cacheClient)

	// Initialize services
	authService := service.NewAuthService(userRepo, jwtService, tokenStore, service.NewLogMailer(logger), service.AuthOptions{
		VerifyTokenTTL: cfg.VerifyTokenTTL,
		AppBaseURL:     cfg.AppBaseURL,
	}, metrics)
	clientService := service.NewClientService(clientRepo)
	shipmentService := service.NewShipmentService(shipmentRepo, historyRepo, clientRepo, cacheClient, publisher, metrics, logger)
	seedService := service.NewSeedService(clientRepo, shipmentRepo, metrics)

	e := echo.New()
	e.HideBanner = true
	router.Register(e, jwtService.Secret(), logger, metrics, router.Handlers{
		Auth:     handler.NewAuthHandler(authService),
		Client:   handler.NewClientHandler(clientService),
		Shipment: handler.NewShipmentHandler(shipmentService),
		Seed:     handler.NewSeedHandler(seedService),
	})

	if cfg.SwaggerHost != "" {
		docs.SwaggerInfo.Host = cfg.SwaggerHost
	}
	logger.Info("swagger documentation available", zap.String("url", "http://"+docs.SwaggerInfo.Host+"/swagger/index.html"))

	srv := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      e,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server starting", zap.String("port", cfg.ServerPort), zap.String("db_driver", cfg.DBDriver))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("server shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("server forced shutdown", zap.Error(err))
	}
	logger.Info("server stopped")
}
