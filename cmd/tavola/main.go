package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/shopspring/decimal"

	"github.com/tavola-pos/tavola/internal/app"
	"github.com/tavola-pos/tavola/internal/fulfillment"
	"github.com/tavola-pos/tavola/internal/menu"
	"github.com/tavola-pos/tavola/internal/notify"
	"github.com/tavola-pos/tavola/internal/observability"
	"github.com/tavola-pos/tavola/internal/orders"
	"github.com/tavola-pos/tavola/internal/platform/cache"
	"github.com/tavola-pos/tavola/internal/platform/db"
	"github.com/tavola-pos/tavola/internal/shared"
	"github.com/tavola-pos/tavola/internal/tables"
	"github.com/tavola-pos/tavola/jobs"
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

	defaultRate, err := decimal.NewFromString(cfg.DefaultTaxRate)
	if err != nil {
		logger.Error("parse default tax rate", slog.Any("error", err))
		os.Exit(1)
	}

	dbpool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer dbpool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Warn("redis unavailable, menu cache disabled", slog.Any("error", err))
		redisClient = nil
	}
	defer func() {
		if redisClient == nil {
			return
		}
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	metrics := observability.NewMetrics()

	hub := notify.NewHub()
	go hub.Run()
	notifier := notify.NewNotifier(hub)
	notifyHandler := notify.NewHandler(logger, hub, notifier)

	idempotencyStore := shared.NewIdempotencyStore(dbpool)
	auditLogger := shared.NewAuditLogger(dbpool)

	menuRepo := menu.NewRepository(dbpool)
	menuService := menu.NewService(menuRepo, redisClient, cfg.MenuCacheTTL, logger)
	menuHandler := menu.NewHandler(logger, menuService)

	ordersRepo := orders.NewRepository(dbpool)
	ordersService := orders.NewService(ordersRepo, menuService, defaultRate, logger)
	ordersHandler := orders.NewHandler(logger, ordersService, idempotencyStore, notifier)

	fulfillmentRepo := fulfillment.NewRepository(dbpool)
	fulfillmentService := fulfillment.NewService(fulfillmentRepo, auditLogger, defaultRate, metrics, logger)
	fulfillmentHandler := fulfillment.NewHandler(logger, fulfillmentService, notifier)

	redisOpts := asynq.RedisClientOpt{Addr: cfg.RedisAddr}
	jobsClient, err := jobs.NewClient(redisOpts)
	if err != nil {
		logger.Error("init jobs client", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := jobsClient.Close(); err != nil {
			logger.Warn("jobs client close", slog.Any("error", err))
		}
	}()
	jobsHandler := jobs.NewHandler(asynq.NewInspector(redisOpts), jobsClient, logger)

	tablesRepo := tables.NewRepository(dbpool)
	tablesService := tables.NewService(tablesRepo, notifier, logger)
	tablesHandler := tables.NewHandler(logger, tablesService)

	router := app.NewRouter(app.RouterConfig{
		Logger:      logger,
		Config:      cfg,
		Metrics:     metrics,
		Orders:      ordersHandler,
		Fulfillment: fulfillmentHandler,
		Menu:        menuHandler,
		Tables:      tablesHandler,
		Notify:      notifyHandler,
		Jobs:        jobsHandler,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}
