package main

import (
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/settleops/settlement-engine/internal/config"
	"github.com/settleops/settlement-engine/internal/dispatch"
	"github.com/settleops/settlement-engine/internal/handler"
	"github.com/settleops/settlement-engine/internal/infra/postgresql"
	"github.com/settleops/settlement-engine/internal/infra/postgresql/migrations"
	infraredis "github.com/settleops/settlement-engine/internal/infra/redis"
	"github.com/settleops/settlement-engine/internal/observability"
	"github.com/settleops/settlement-engine/internal/registry"
	"github.com/settleops/settlement-engine/internal/repository"
	"github.com/settleops/settlement-engine/internal/service"
	"github.com/settleops/settlement-engine/internal/transport"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("failed to load config", err)
	}

	logger, err := observability.NewLogger(cfg.LogLevel)
	if err != nil {
		log.Fatal("failed to initialize logger", err)
	}
	defer logger.Sync() //nolint:errcheck

	db, err := postgresql.NewPostgres(cfg.DatabaseDSN)
	if err != nil {
		logger.Fatal("postgres initialization failed", zap.Error(err))
	}

	if err := migrations.Migrate(db); err != nil {
		logger.Fatal("database migrations failed", zap.Error(err))
	}

	sqlDB, err := db.DB()
	if err != nil {
		logger.Fatal("postgres underlying db init failed", zap.Error(err))
	}
	defer sqlDB.Close()

	rdb, err := infraredis.NewRedis(cfg.RedisURL)
	if err != nil {
		logger.Fatal("redis initialization failed", zap.Error(err))
	}
	defer rdb.Close()

	limiter, err := infraredis.NewRedisRateLimiter(rdb, cfg.WebhookRateLimitPerSec)
	if err != nil {
		logger.Fatal("rate limiter initialization failed", zap.Error(err))
	}

	metrics := observability.NewMetrics()

	// One registry per deployment, owned here and injected everywhere.
	reg := registry.NewInMemoryRegistry(logger)

	processes := repository.NewGormProcessRepo(db)
	matches := repository.NewGormMatchRepo(db)
	players := repository.NewGormPlayerRepo(db)
	audits := repository.NewGormAuditRepo(db)
	notifications := repository.NewGormNotificationRepo(db)
	permissions := repository.NewGormPermissionRepo(db)
	transfers := repository.NewGormTransferRepo(db)
	users := repository.NewGormUserRepo(db)
	apiKeys := repository.NewGormAPIKeyRepo(db)

	notifier := service.NewNotifier(notifications, users, reg, logger)
	notifier.SetMetrics(metrics)

	engine := service.NewProcessService(processes, matches, players, transfers, notifier, cfg.MatchBatchSize, logger)
	engine.SetMetrics(metrics)

	permissionService := service.NewPermissionService(permissions, logger)

	dispatcher := dispatch.NewDispatcher(audits, matches, transfers, reg, notifier, logger)
	dispatcher.SetMetrics(metrics)

	app := fiber.New(fiber.Config{
		AppName:      "settlement-engine",
		ErrorHandler: transport.ErrorHandler(logger),
	})
	app.Use(metrics.HTTPMiddleware())

	handler.RegisterHealthRoutes(app, sqlDB, rdb)
	app.Get("/metrics", adaptor.HTTPHandler(metrics.Handler()))

	webhook := handler.NewWebhookHandler(apiKeys, matches, processes, reg, limiter, logger)
	webhook.SetMetrics(metrics)
	handler.RegisterWebhookRoutes(app, webhook)

	events := handler.NewEventsHandler(reg, logger)
	events.SetMetrics(metrics)
	handler.RegisterEventRoutes(app, events)

	handler.RegisterPermissionRoutes(app, permissionService)
	handler.RegisterProcessRoutes(app, handler.NewProcessHandler(engine, processes, dispatcher))

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		logger.Info("settlement-engine api started", zap.Int("port", cfg.APIPort))
		if err := app.Listen(fmt.Sprintf(":%d", cfg.APIPort)); err != nil {
			logger.Error("server stopped", zap.Error(err))
		}
	}()

	<-shutdown
	logger.Info("shutting down")
	if err := app.Shutdown(); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
	}
}
