package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/nusantara-erp/nusantara-erp/internal/app"
	"github.com/nusantara-erp/nusantara-erp/internal/observability"
	"github.com/nusantara-erp/nusantara-erp/internal/platform/cache"
	"github.com/nusantara-erp/nusantara-erp/internal/platform/db"
	"github.com/nusantara-erp/nusantara-erp/internal/purchasing/deliveryorders"
	"github.com/nusantara-erp/nusantara-erp/internal/purchasing/externalorders"
	"github.com/nusantara-erp/nusantara-erp/internal/purchasing/purchaseorders"
	"github.com/nusantara-erp/nusantara-erp/internal/shared"
	"github.com/nusantara-erp/nusantara-erp/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	dbpool, err := db.New(ctx, cfg.PGDSN, cfg.PGMaxConns)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer dbpool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	locker := cache.NewLocker(redisClient, cfg.PropagationLockTTL)

	purchaseOrderStore := purchaseorders.NewRepository(dbpool)
	externalOrderStore := externalorders.NewRepository(dbpool)
	deliveryOrderStore := deliveryorders.NewRepository(dbpool)

	resolver := deliveryorders.NewResolver(purchaseOrderStore, externalOrderStore)
	propagator := deliveryorders.NewPropagator(purchaseOrderStore, externalOrderStore, resolver, locker, logger)
	validator := deliveryorders.NewValidator(deliveryOrderStore)
	auditLogger := shared.NewAuditLogger(dbpool)

	taskClient, err := jobs.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	if err != nil {
		logger.Error("init task client", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := taskClient.Close(); err != nil {
			logger.Warn("task client close", slog.Any("error", err))
		}
	}()

	metrics := observability.NewMetrics()

	service := deliveryorders.NewService(deliveryOrderStore, validator, propagator, auditLogger, taskClient, logger)
	service.SetMetrics(metrics)
	handler := deliveryorders.NewHandler(logger, service, shared.NewIdempotencyStore(dbpool))

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	jobHandler := jobs.NewHandler(inspector, logger)

	router := app.NewRouter(app.RouterParams{
		Logger:                logger,
		Config:                cfg,
		DeliveryOrdersHandler: handler,
		JobHandler:            jobHandler,
		Metrics:               metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting", slog.String("addr", cfg.AppAddr), slog.String("env", cfg.AppEnv))
		errCh <- server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("server shutdown", slog.Any("error", err))
		}
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server run", slog.Any("error", err))
			os.Exit(1)
		}
	}
}
