package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/basketwise/basketwise-backend/internal/consumers/searchindex"
	products "github.com/basketwise/basketwise-backend/internal/products"
	"github.com/basketwise/basketwise-backend/pkg/config"
	"github.com/basketwise/basketwise-backend/pkg/db"
	"github.com/basketwise/basketwise-backend/pkg/logger"
	"github.com/basketwise/basketwise-backend/pkg/outbox/idempotency"
	"github.com/basketwise/basketwise-backend/pkg/pubsub"
	"github.com/basketwise/basketwise-backend/pkg/redis"
	"github.com/basketwise/basketwise-backend/pkg/search"
)

func main() {
	ctx := context.Background()
	logg := logger.New(logger.Options{ServiceName: "search-indexer"})

	_ = godotenv.Load()

	cfg, err := config.Load()
	requireResource(ctx, logg, "config", err)

	cfg.Service.Kind = "search-indexer"

	logg = logger.New(logger.Options{
		ServiceName: "search-indexer",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(ctx, cfg.DB, logg)
	requireResource(ctx, logg, "database", err)
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(ctx, "failed to close database", err)
		}
	}()

	redisClient, err := redis.New(ctx, cfg.Redis, logg)
	requireResource(ctx, logg, "redis", err)
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(ctx, "failed to close redis client", err)
		}
	}()

	searchClient, err := search.New(cfg.Search, logg)
	requireResource(ctx, logg, "search", err)
	requireResource(ctx, logg, "search index", searchClient.EnsureIndex(ctx))

	pubsubClient, err := pubsub.NewClient(ctx, cfg.GCP, cfg.PubSub, logg, cfg.PubSub.CatalogSubscription)
	requireResource(ctx, logg, "pubsub", err)
	defer func() {
		if err := pubsubClient.Close(); err != nil {
			logg.Error(ctx, "failed to close pubsub client", err)
		}
	}()

	subscription := pubsubClient.CatalogSubscription()
	if subscription == nil {
		requireResource(ctx, logg, "catalog subscription", errors.New("subscription not configured"))
	}

	manager, err := idempotency.NewManager(redisClient, cfg.Eventing.IdempotencyTTL)
	requireResource(ctx, logg, "idempotency manager", err)

	consumer, err := searchindex.NewConsumer(products.NewRepository(dbClient.DB()), searchClient, manager, logg)
	requireResource(ctx, logg, "search consumer", err)

	worker, err := searchindex.NewWorker(subscription, consumer, logg)
	requireResource(ctx, logg, "search worker", err)

	runCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	runCtx = logg.WithFields(runCtx, map[string]any{
		"env":          cfg.App.Env,
		"serviceKind":  cfg.Service.Kind,
		"subscription": cfg.PubSub.CatalogSubscription,
	})
	logg.Info(runCtx, "search indexer ready")

	if err := worker.Run(runCtx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(runCtx, "search indexer failed", err)
		os.Exit(1)
	}
}

func requireResource(ctx context.Context, logg *logger.Logger, resource string, err error) {
	if err == nil {
		return
	}
	logg.Error(ctx, fmt.Sprintf("resource not working: %s", resource), err)
	os.Exit(1)
}
