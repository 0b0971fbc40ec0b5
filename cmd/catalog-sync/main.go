package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	catalogevents "github.com/quickbite/order-service/internal/domains/catalog/adapters/events"
	catalogmemory "github.com/quickbite/order-service/internal/domains/catalog/adapters/memory"
	catalogpostgres "github.com/quickbite/order-service/internal/domains/catalog/adapters/persistence/postgres"
	catalogapp "github.com/quickbite/order-service/internal/domains/catalog/application"
	catalogports "github.com/quickbite/order-service/internal/domains/catalog/ports"
	platformmigrations "github.com/quickbite/order-service/internal/platform/migrations"
	platformobservability "github.com/quickbite/order-service/internal/platform/observability"
	platformpostgres "github.com/quickbite/order-service/internal/platform/postgres"
	"github.com/quickbite/order-service/internal/platform/rabbitmq"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	const serviceName = "order-service-catalog-sync"
	instruments, shutdown, err := platformobservability.Init(ctx, serviceName)
	if err != nil {
		log.Fatalf("failed to initialize observability: %v", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdown(shutdownCtx); err != nil {
			instruments.Logger.Error("failed to shutdown observability", slog.String("error", err.Error()))
		}
	}()
	logger := instruments.Logger

	url := os.Getenv("AMQP_URL")
	if url == "" {
		logger.Error("AMQP_URL not set, catalog sync has nothing to consume")
		os.Exit(1)
	}
	broker, err := rabbitmq.Dial(url)
	if err != nil {
		logger.Error("failed to connect to rabbitmq", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer broker.Close()

	store, cleanupStore := buildCatalogStore(ctx, logger)
	defer cleanupStore()

	consumer := catalogevents.NewConsumer(broker, catalogapp.NewSynchronizer(store, logger), logger)
	logger.Info("catalog sync consuming",
		slog.String("topics", catalogevents.TopicProduct+","+catalogevents.TopicTopping))
	if err := consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("catalog sync exited with error", slog.String("error", err.Error()))
		os.Exit(1)
	}
	logger.Info("catalog sync stopped")
}

func buildCatalogStore(ctx context.Context, logger *slog.Logger) (catalogports.Store, func()) {
	db, cleanup := platformpostgres.ConnectFromEnv(ctx, logger)
	if db == nil {
		return catalogmemory.NewStore(), cleanup
	}
	if err := platformmigrations.Run(db); err != nil {
		logger.Warn("failed to run migrations, falling back to in-memory catalog store", slog.String("error", err.Error()))
		cleanup()
		return catalogmemory.NewStore(), func() {}
	}
	logger.Info("catalog store configured with postgres")
	return catalogpostgres.NewStore(db), cleanup
}
