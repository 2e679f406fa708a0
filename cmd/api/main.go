package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/contrib/otelfiber"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	_ "github.com/joho/godotenv/autoload"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"loanops/internal/breaker"
	"loanops/internal/config"
	"loanops/internal/database"
	"loanops/internal/database/migration"
	"loanops/internal/engine"
	handlers "loanops/internal/http/handler"
	"loanops/internal/http/middleware"
	"loanops/internal/logger"
	"loanops/internal/metrics"
	"loanops/internal/orchestrator"
	"loanops/internal/otel"
	"loanops/internal/repository"
	"loanops/internal/repository/postgres"
	"loanops/internal/requirements"
	"loanops/internal/service"
	"loanops/internal/storage"
)

const shutdownTimeout = 15 * time.Second

func main() {
	cfg := config.Load()
	log := logger.New(cfg.Log.Level, cfg.Log.Format)
	defer func() { _ = log.Sync() }()

	if err := run(cfg, log); err != nil {
		log.Fatal("server stopped", zap.Error(err))
	}
}

func run(cfg *config.AppConfig, log *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := otel.Init(ctx, logger.Component(log, "otel"))
	if err != nil {
		return err
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := shutdownTracing(sctx); err != nil {
			log.Warn("tracing shutdown failed", zap.Error(err))
		}
	}()

	db, err := database.NewPostgres(ctx, cfg.Database, logger.Component(log, "database"))
	if err != nil {
		return err
	}
	defer db.Close()

	if err := migration.EnsureMigrated(ctx, db, log); err != nil {
		return err
	}

	blobs, err := storage.NewMinIO(ctx, cfg.MinIO)
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		collectors.NewDBStatsCollector(db, cfg.Database.Name),
	)
	m, err := metrics.New(reg)
	if err != nil {
		return err
	}
	httpMetrics, err := middleware.NewPrometheusMiddleware(reg)
	if err != nil {
		return err
	}

	store := postgres.NewStore(db)
	tx := postgres.NewTxManager(db)

	var products repository.LenderProductRepository = postgres.NewLenderProductPostgres(db)
	if cfg.Redis.Address != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Address,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			log.Warn("redis unreachable, requirements are read from postgres until it recovers", zap.Error(err))
		}
		cache := requirements.NewCachedProducts(products, rdb, cfg.Redis.RequirementsCacheTTL, logger.Component(log, "requirements_cache"))
		// A deploy may ship lender configuration changes; start cold.
		if err := cache.Invalidate(ctx); err != nil {
			log.Warn("requirements cache flush failed", zap.Error(err))
		}
		products = cache
	}
	resolver := requirements.NewResolver(products)

	breakers := breaker.NewRegistry(
		cfg.Engine.BreakerFailureThreshold,
		cfg.Engine.BreakerCooldown,
		breaker.WithObserver(m.ObserveBreaker),
	)

	stages := engine.New(tx, resolver, m, logger.Component(log, "engine"))
	orch := orchestrator.New(tx, stages, breakers, orchestrator.Config{
		OCRRetryWindow:   cfg.Engine.OCRRetryWindow,
		OCRMaxRetries:    cfg.Engine.OCRMaxRetries,
		BankingBatchSize: cfg.Engine.BankingBatchSize,
	}, m, logger.Component(log, "orchestrator"))
	docs := service.NewDocumentService(blobs, store, tx, resolver, stages, orch, logger.Component(log, "documents"))

	app := fiber.New(fiber.Config{
		ErrorHandler: handlers.ErrorHandler(logger.Component(log, "http")),
		BodyLimit:    50 * 1024 * 1024,
	})
	app.Use(otelfiber.Middleware())
	app.Use(middleware.RequestID())
	app.Use(httpMetrics.Handler())
	app.Use(middleware.Logger(logger.Component(log, "http")))

	app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})))
	handlers.RegisterRoutes(app, handlers.Deps{
		DB:        db,
		Storage:   blobs,
		Circuits:  breakers,
		Documents: docs,
		Stages:    stages,
		Jobs:      orch,
	})

	errCh := make(chan error, 1)
	go func() {
		log.Info("http server listening", zap.String("addr", ":"+cfg.Port))
		errCh <- app.Listen(":" + cfg.Port)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	if err := app.ShutdownWithTimeout(shutdownTimeout); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
