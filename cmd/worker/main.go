package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"

	"github.com/nusantara-erp/nusantara-erp/internal/app"
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
		slog.Default().Info("test mode detected, skipping worker startup")
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

	// The worker consumes reapply tasks, it never enqueues them.
	service := deliveryorders.NewService(deliveryOrderStore, validator, propagator, auditLogger, nil, logger)

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		Logger:    logger,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskFulfillmentReapply, Handler: jobs.NewFulfillmentReapplyHandler(service, logger)},
		},
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	if err := worker.Run(ctx); err != nil && err != context.Canceled {
		logger.Error("worker run", slog.Any("error", err))
		os.Exit(1)
	}
}
