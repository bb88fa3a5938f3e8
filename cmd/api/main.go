package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/basketwise/basketwise-backend/api/routes"
	"github.com/basketwise/basketwise-backend/internal/cart"
	"github.com/basketwise/basketwise-backend/internal/catalog"
	"github.com/basketwise/basketwise-backend/internal/imports"
	"github.com/basketwise/basketwise-backend/internal/prices"
	products "github.com/basketwise/basketwise-backend/internal/products"
	"github.com/basketwise/basketwise-backend/pkg/config"
	"github.com/basketwise/basketwise-backend/pkg/db"
	"github.com/basketwise/basketwise-backend/pkg/logger"
	"github.com/basketwise/basketwise-backend/pkg/metrics"
	"github.com/basketwise/basketwise-backend/pkg/migrate"
	"github.com/basketwise/basketwise-backend/pkg/outbox"
	"github.com/basketwise/basketwise-backend/pkg/redis"
	"github.com/basketwise/basketwise-backend/pkg/search"
)

const shutdownTimeout = 15 * time.Second

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	deps := routes.Dependencies{
		DB:          dbClient,
		Redis:       redisClient,
		RateLimiter: redisClient,
		Gatherer:    prometheus.DefaultGatherer,
	}

	productDeps := products.Deps{
		Repo:     products.NewRepository(dbClient.DB()),
		DB:       dbClient,
		Resolver: catalog.NewResolver(catalog.RegexMetaExtractor{}),
		Events:   outbox.NewService(outbox.NewRepository(dbClient.DB()), logg),
		Locker:   redisClient,
		Metrics:  metrics.NewCatalogMetrics(prometheus.DefaultRegisterer),
		Logger:   logg,
		Config:   cfg.Catalog,
	}

	searchClient, err := search.New(cfg.Search, logg)
	switch {
	case err == nil:
		// Interface fields stay nil unless a client exists.
		productDeps.Search = searchClient
		deps.Search = searchClient
	case errors.Is(err, search.ErrDisabled):
		logg.Info(context.Background(), "search disabled, listing falls back to database")
	default:
		logg.Error(context.Background(), "failed to create search client", err)
		os.Exit(1)
	}

	productService, err := products.NewService(productDeps)
	if err != nil {
		logg.Error(context.Background(), "failed to create product service", err)
		os.Exit(1)
	}

	cartService, err := cart.NewService(
		prices.NewIndex(dbClient.DB()),
		cfg.Cart,
		metrics.NewCartMetrics(prometheus.DefaultRegisterer),
		logg,
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create cart service", err)
		os.Exit(1)
	}

	importService, err := imports.NewService(dbClient, productService, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create import service", err)
		os.Exit(1)
	}

	linkService, err := prices.NewLinkService(dbClient, productDeps.Events)
	if err != nil {
		logg.Error(context.Background(), "failed to create branch price link service", err)
		os.Exit(1)
	}

	deps.Products = productService
	deps.Cart = cartService
	deps.Imports = importService
	deps.BranchPrices = linkService

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})

	server := &http.Server{
		Addr:              addr,
		Handler:           routes.NewRouter(cfg, logg, deps),
		ReadHeaderTimeout: 10 * time.Second,
	}

	sigCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	serverErr := make(chan error, 1)
	go func() {
		logg.Info(ctx, "starting api server")
		serverErr <- server.ListenAndServe()
	}()

	select {
	case err := <-serverErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error(ctx, "api server stopped unexpectedly", err)
			os.Exit(1)
		}
	case <-sigCtx.Done():
		logg.Info(ctx, "shutting down api server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(ctx, "api server shutdown failed", err)
		}
	}
}
