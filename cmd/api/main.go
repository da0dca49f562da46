package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/fixhubapp/fixhub-backend/api/routes"
	"github.com/fixhubapp/fixhub-backend/internal/dispatch"
	"github.com/fixhubapp/fixhub-backend/internal/orders"
	"github.com/fixhubapp/fixhub-backend/internal/technicians"
	"github.com/fixhubapp/fixhub-backend/pkg/config"
	"github.com/fixhubapp/fixhub-backend/pkg/db"
	"github.com/fixhubapp/fixhub-backend/pkg/env"
	"github.com/fixhubapp/fixhub-backend/pkg/logger"
	"github.com/fixhubapp/fixhub-backend/pkg/metrics"
	"github.com/fixhubapp/fixhub-backend/pkg/migrate"
	"github.com/fixhubapp/fixhub-backend/pkg/outbox"
	"github.com/fixhubapp/fixhub-backend/pkg/outbox/idempotency"
	"github.com/fixhubapp/fixhub-backend/pkg/pubsub"
	"github.com/fixhubapp/fixhub-backend/pkg/redis"
)

const shutdownGrace = 10 * time.Second

func main() {
	ctx := context.Background()
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(ctx, ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	requireResource(ctx, logg, "config", err)

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(ctx, cfg.DB, logg)
	requireResource(ctx, logg, "database", err)
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(ctx, "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(ctx, cfg, logg, dbClient); err != nil {
		requireResource(ctx, logg, "dev migrations", err)
	}

	redisClient, err := redis.New(ctx, cfg.Redis, logg)
	requireResource(ctx, logg, "redis", err)
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(ctx, "error closing redis", err)
		}
	}()

	pubsubClient, err := pubsub.NewClient(ctx, cfg.GCP, cfg.PubSub, logg)
	requireResource(ctx, logg, "pubsub", err)
	defer func() {
		if err := pubsubClient.Close(); err != nil {
			logg.Error(ctx, "error closing pubsub", err)
		}
	}()

	dispatchMetrics := metrics.NewDispatchMetrics(prometheus.DefaultRegisterer)

	outboxService := outbox.NewService(outbox.NewRepository(dbClient.DB()), logg)
	ordersService, err := orders.NewService(orders.NewRepository(dbClient.DB()), dbClient, outboxService)
	requireResource(ctx, logg, "orders service", err)

	techniciansService, err := technicians.NewService(
		technicians.NewRepository(dbClient.DB()),
		redisClient,
		cfg.Feed.LocationTTL,
		logg,
	)
	requireResource(ctx, logg, "technicians service", err)

	hub, err := dispatch.NewHub(cfg.Feed.SubscriberBuffer, dispatchMetrics, logg)
	requireResource(ctx, logg, "dispatch hub", err)

	manager, err := idempotency.NewManager(redisClient, cfg.Eventing.OutboxIdempotencyTTL)
	requireResource(ctx, logg, "idempotency manager", err)

	subscription := pubsubClient.DispatchSubscription()
	if subscription == nil {
		requireResource(ctx, logg, "dispatch subscription", errors.New("subscription not configured"))
	}
	consumer, err := dispatch.NewConsumer(subscription, hub, manager, logg)
	requireResource(ctx, logg, "dispatch consumer", err)

	// Cloud Run style PORT wins over the configured port.
	addr := ":" + env.Get("PORT", cfg.App.Port)

	runCtx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()
	runCtx = logg.WithFields(runCtx, map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})

	go func() {
		if err := consumer.Run(runCtx); err != nil && !errors.Is(err, context.Canceled) {
			logg.Error(runCtx, "dispatch consumer stopped unexpectedly", err)
			stop()
		}
	}()

	server := &http.Server{
		Addr:    addr,
		Handler: routes.NewRouter(cfg, logg, dbClient, redisClient, ordersService, techniciansService, hub, dispatchMetrics),
	}

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- server.ListenAndServe()
	}()
	logg.Info(runCtx, "api server started")

	select {
	case <-runCtx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(ctx, "api server shutdown failed", err)
		}
	case err := <-serverErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error(runCtx, "api server stopped unexpectedly", err)
			os.Exit(1)
		}
	}
}

func requireResource(ctx context.Context, logg *logger.Logger, resource string, err error) {
	if err == nil {
		return
	}
	logg.Error(ctx, fmt.Sprintf("resource not working: %s", resource), err)
	os.Exit(1)
}
