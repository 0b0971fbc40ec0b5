package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"time"

	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/client"
	temporalotel "go.temporal.io/sdk/contrib/opentelemetry"
	workerlog "go.temporal.io/sdk/log"
	"go.temporal.io/sdk/worker"
	"go.temporal.io/sdk/workflow"

	"github.com/quickbite/order-service/internal/clients/http/checkout"
	catalogmemory "github.com/quickbite/order-service/internal/domains/catalog/adapters/memory"
	catalogpostgres "github.com/quickbite/order-service/internal/domains/catalog/adapters/persistence/postgres"
	catalogapp "github.com/quickbite/order-service/internal/domains/catalog/application"
	catalogports "github.com/quickbite/order-service/internal/domains/catalog/ports"
	ordersevents "github.com/quickbite/order-service/internal/domains/orders/adapters/events"
	ordersmemory "github.com/quickbite/order-service/internal/domains/orders/adapters/memory"
	orderspostgres "github.com/quickbite/order-service/internal/domains/orders/adapters/persistence/postgres"
	ordersapp "github.com/quickbite/order-service/internal/domains/orders/application"
	ordersports "github.com/quickbite/order-service/internal/domains/orders/ports"
	paymentworkflows "github.com/quickbite/order-service/internal/durable/temporal/workflows/payments"
	platformmigrations "github.com/quickbite/order-service/internal/platform/migrations"
	platformobservability "github.com/quickbite/order-service/internal/platform/observability"
	platformpostgres "github.com/quickbite/order-service/internal/platform/postgres"
	"github.com/quickbite/order-service/internal/platform/rabbitmq"
	paymentactivities "github.com/quickbite/order-service/internal/platform/temporal/activities/payments"
)

func main() {
	ctx := context.Background()
	const serviceName = "order-service-worker"
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

	gateway, err := checkout.NewClient(os.Getenv("PAYMENT_API_URL"), nil)
	if err != nil {
		logger.Error("PAYMENT_API_URL not usable, worker cannot verify payments", slog.String("error", err.Error()))
		os.Exit(1)
	}

	repo, tx, ledger, catalogStore, cleanupStores := buildStores(ctx, logger)
	defer cleanupStores()
	publisher, cleanupBroker := buildPublisher(logger)
	defer cleanupBroker()

	service := ordersapp.NewService(
		repo, tx, ledger,
		catalogapp.NewResolver(catalogStore),
		gateway, publisher, nil,
		ordersapp.WithLogger(logger),
	)
	activities := paymentactivities.NewActivities(gateway, service)

	tracerOptions := temporalotel.TracerOptions{Tracer: instruments.Tracer("temporal-worker")}
	tracingInterceptor, err := temporalotel.NewTracingInterceptor(tracerOptions)
	if err != nil {
		logger.Error("failed to configure Temporal tracing interceptor", slog.String("error", err.Error()))
		os.Exit(1)
	}
	clientOptions := client.Options{
		HostPort:  envOrDefault("TEMPORAL_ADDRESS", client.DefaultHostPort),
		Namespace: envOrDefault("TEMPORAL_NAMESPACE", client.DefaultNamespace),
		Logger:    workerlog.NewStructuredLogger(logger),
	}
	clientOptions.Interceptors = append(clientOptions.Interceptors, tracingInterceptor)
	temporalClient, err := client.Dial(clientOptions)
	if err != nil {
		logger.Error("failed to create Temporal client", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer temporalClient.Close()

	w := worker.New(temporalClient, paymentworkflows.PaymentVerificationTaskQueue, worker.Options{})
	w.RegisterWorkflowWithOptions(paymentworkflows.PaymentVerificationWorkflow,
		workflow.RegisterOptions{Name: paymentworkflows.PaymentVerificationWorkflowName})
	w.RegisterActivityWithOptions(activities.VerifySession,
		activity.RegisterOptions{Name: paymentactivities.VerifySessionActivityName})
	w.RegisterActivityWithOptions(activities.RecordPaymentStatus,
		activity.RegisterOptions{Name: paymentactivities.RecordPaymentStatusActivityName})

	logger.Info("worker listening",
		slog.String("taskQueue", paymentworkflows.PaymentVerificationTaskQueue),
		slog.String("namespace", clientOptions.Namespace))
	if err := w.Run(worker.InterruptCh()); err != nil {
		logger.Error("Temporal worker exited with error", slog.String("error", err.Error()))
		return
	}
	logger.Info("Temporal worker stopped")
}

func buildStores(ctx context.Context, logger *slog.Logger) (ordersports.Repository, ordersports.TransactionManager, ordersports.IdempotencyStore, catalogports.Store, func()) {
	db, cleanup := platformpostgres.ConnectFromEnv(ctx, logger)
	if db == nil {
		store := ordersmemory.NewStore()
		return store, store, store, catalogmemory.NewStore(), cleanup
	}
	if err := platformmigrations.Run(db); err != nil {
		logger.Warn("worker failed to run migrations, falling back to memory", slog.String("error", err.Error()))
		cleanup()
		store := ordersmemory.NewStore()
		return store, store, store, catalogmemory.NewStore(), func() {}
	}
	logger.Info("worker stores configured with postgres")
	return orderspostgres.NewRepository(db),
		orderspostgres.NewTxManager(db),
		orderspostgres.NewIdempotencyStore(db),
		catalogpostgres.NewStore(db),
		cleanup
}

func buildPublisher(logger *slog.Logger) (ordersports.EventPublisher, func()) {
	url := os.Getenv("AMQP_URL")
	if url == "" {
		logger.Warn("AMQP_URL not set, worker events will be logged and dropped")
		return ordersevents.NewLogPublisher(logger), func() {}
	}
	broker, err := rabbitmq.Dial(url)
	if err != nil {
		logger.Warn("worker failed to connect to rabbitmq, events will be logged and dropped", slog.String("error", err.Error()))
		return ordersevents.NewLogPublisher(logger), func() {}
	}
	publisher, err := ordersevents.NewPublisher(broker, logger)
	if err != nil {
		broker.Close()
		logger.Warn("worker failed to declare order exchange, events will be logged and dropped", slog.String("error", err.Error()))
		return ordersevents.NewLogPublisher(logger), func() {}
	}
	return publisher, broker.Close
}

func envOrDefault(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
