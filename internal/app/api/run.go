// Package api boots the order HTTP API process.
package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.temporal.io/sdk/client"
	temporalotel "go.temporal.io/sdk/contrib/opentelemetry"
	workerlog "go.temporal.io/sdk/log"

	"github.com/quickbite/order-service/internal/clients/http/checkout"
	catalogmemory "github.com/quickbite/order-service/internal/domains/catalog/adapters/memory"
	catalogpostgres "github.com/quickbite/order-service/internal/domains/catalog/adapters/persistence/postgres"
	catalogapp "github.com/quickbite/order-service/internal/domains/catalog/application"
	catalogports "github.com/quickbite/order-service/internal/domains/catalog/ports"
	ordersevents "github.com/quickbite/order-service/internal/domains/orders/adapters/events"
	ordershttp "github.com/quickbite/order-service/internal/domains/orders/adapters/http"
	ordersmemory "github.com/quickbite/order-service/internal/domains/orders/adapters/memory"
	ordersobs "github.com/quickbite/order-service/internal/domains/orders/adapters/observability"
	orderspostgres "github.com/quickbite/order-service/internal/domains/orders/adapters/persistence/postgres"
	ordersworkflows "github.com/quickbite/order-service/internal/domains/orders/adapters/workflows"
	ordersapp "github.com/quickbite/order-service/internal/domains/orders/application"
	ordersports "github.com/quickbite/order-service/internal/domains/orders/ports"
	platformmigrations "github.com/quickbite/order-service/internal/platform/migrations"
	platformobservability "github.com/quickbite/order-service/internal/platform/observability"
	platformpostgres "github.com/quickbite/order-service/internal/platform/postgres"
	"github.com/quickbite/order-service/internal/platform/rabbitmq"
)

// Run boots the order HTTP API with observability, stores, messaging, and
// workflows wired.
func Run(ctx context.Context) error {
	const serviceName = "order-service-api"
	instruments, shutdown, err := platformobservability.Init(ctx, serviceName)
	if err != nil {
		return fmt.Errorf("failed to initialize observability: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdown(shutdownCtx); err != nil {
			instruments.Logger.Error("failed to shutdown observability", slog.String("error", err.Error()))
		}
	}()
	logger := instruments.Logger

	cfg, err := LoadConfig()
	if err != nil {
		return err
	}

	stores, cleanupStores := buildStores(ctx, cfg, logger)
	defer cleanupStores()

	publisher, cleanupBroker := buildPublisher(cfg, logger)
	defer cleanupBroker()

	gateway, err := buildGateway(cfg, logger)
	if err != nil {
		return err
	}

	watcher := &watcherProxy{}
	coreService := ordersapp.NewService(
		stores.repo, stores.tx, stores.ledger,
		catalogapp.NewResolver(stores.catalog),
		gateway, publisher, watcher,
		ordersapp.WithLogger(logger),
		ordersapp.WithCurrency(cfg.Currency),
	)
	service := ordersobs.New(
		coreService,
		ordersobs.WithLogger(logger),
		ordersobs.WithTracer(instruments.Tracer("internal.orders.application")),
		ordersobs.WithMeter(instruments.Meter("internal.orders.application")),
	)

	if temporalClient, err := connectTemporalClient(cfg, instruments); err != nil {
		logger.Warn("Temporal unavailable, payment verification runs inline", slog.String("error", err.Error()))
		watcher.inner = ordersworkflows.NewInlinePaymentWatcher(gateway, service, logger)
	} else {
		defer temporalClient.Close()
		watcher.inner = ordersworkflows.NewTemporalPaymentWatcher(temporalClient)
		logger.Info("Temporal payment verification enabled", slog.String("namespace", cfg.TemporalNamespace))
	}

	go purgeExpiredIdempotencyKeys(ctx, stores.ledger, cfg, logger)

	router := gin.New()
	router.Use(gin.Recovery(), otelgin.Middleware(serviceName))
	router.GET("/healthz", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })
	ordershttp.NewHandler(service).Register(router)

	addr := ":" + cfg.Port
	logger.Info("order API listening", slog.String("addr", addr))
	server := &http.Server{Addr: addr, Handler: router}
	if err := serveUntilDone(ctx, server, logger); err != nil {
		logger.Error("order API server exited", slog.String("addr", addr), slog.String("error", err.Error()))
		return err
	}
	return nil
}

// serveUntilDone serves until the listener fails or ctx is cancelled, then
// drains in-flight requests before returning.
func serveUntilDone(ctx context.Context, server *http.Server, logger *slog.Logger) error {
	errCh := make(chan error, 1)
	go func() { errCh <- server.ListenAndServe() }()
	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}
	logger.Info("draining order API server", slog.String("addr", server.Addr))
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

type storeSet struct {
	repo    ordersports.Repository
	tx      ordersports.TransactionManager
	ledger  ordersports.IdempotencyStore
	catalog catalogports.Store
}

func buildStores(ctx context.Context, cfg Config, logger *slog.Logger) (storeSet, func()) {
	if cfg.PostgresDSN == "" {
		logger.Warn("POSTGRES_DSN not set, falling back to in-memory stores")
		return memoryStores(), func() {}
	}
	db, err := platformpostgres.Connect(ctx, cfg.PostgresDSN)
	if err != nil {
		logger.Warn("failed to connect to postgres, falling back to memory", slog.String("error", err.Error()))
		return memoryStores(), func() {}
	}
	if err := platformmigrations.Run(db); err != nil {
		logger.Warn("failed to run migrations, falling back to memory", slog.String("error", err.Error()))
		return memoryStores(), func() {}
	}
	sqlDB, err := db.DB()
	if err != nil {
		logger.Warn("failed to unwrap postgres connection, falling back to memory", slog.String("error", err.Error()))
		return memoryStores(), func() {}
	}
	logger.Info("stores configured with postgres")
	return storeSet{
		repo:    orderspostgres.NewRepository(db),
		tx:      orderspostgres.NewTxManager(db),
		ledger:  orderspostgres.NewIdempotencyStore(db),
		catalog: catalogpostgres.NewStore(db),
	}, func() { _ = sqlDB.Close() }
}

func memoryStores() storeSet {
	store := ordersmemory.NewStore()
	return storeSet{repo: store, tx: store, ledger: store, catalog: catalogmemory.NewStore()}
}

func buildPublisher(cfg Config, logger *slog.Logger) (ordersports.EventPublisher, func()) {
	if cfg.AMQPURL == "" {
		logger.Warn("AMQP_URL not set, order events will be logged and dropped")
		return ordersevents.NewLogPublisher(logger), func() {}
	}
	broker, err := rabbitmq.Dial(cfg.AMQPURL)
	if err != nil {
		logger.Warn("failed to connect to rabbitmq, order events will be logged and dropped", slog.String("error", err.Error()))
		return ordersevents.NewLogPublisher(logger), func() {}
	}
	publisher, err := ordersevents.NewPublisher(broker, logger)
	if err != nil {
		broker.Close()
		logger.Warn("failed to declare order exchange, order events will be logged and dropped", slog.String("error", err.Error()))
		return ordersevents.NewLogPublisher(logger), func() {}
	}
	logger.Info("order events configured with rabbitmq")
	return publisher, broker.Close
}

func buildGateway(cfg Config, logger *slog.Logger) (ordersports.PaymentGateway, error) {
	if cfg.PaymentAPIURL == "" {
		logger.Warn("PAYMENT_API_URL not set, card orders will be rejected")
		return nil, nil
	}
	return checkout.NewClient(cfg.PaymentAPIURL, nil)
}

// watcherProxy breaks the construction cycle between the service and the
// inline watcher, which records payments through the service itself.
type watcherProxy struct {
	inner ordersports.PaymentWatcher
}

func (w *watcherProxy) Watch(ctx context.Context, sessionID, orderID, tenantID string) error {
	if w.inner == nil {
		return errors.New("payment watcher not configured")
	}
	return w.inner.Watch(ctx, sessionID, orderID, tenantID)
}

func purgeExpiredIdempotencyKeys(ctx context.Context, ledger ordersports.IdempotencyStore, cfg Config, logger *slog.Logger) {
	interval := time.Duration(cfg.IdempotencyPurgeIntervalMinutes) * time.Minute
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			purged, err := ledger.DeleteExpired(ctx)
			if err != nil {
				logger.Error("failed to purge expired idempotency keys", slog.String("error", err.Error()))
				continue
			}
			if purged > 0 {
				logger.Info("purged expired idempotency keys", slog.Int64("count", purged))
			}
		}
	}
}

func connectTemporalClient(cfg Config, instruments *platformobservability.Instruments) (client.Client, error) {
	if cfg.TemporalDisabled {
		return nil, errors.New("temporal disabled via TEMPORAL_DISABLED env")
	}
	tracerOptions := temporalotel.TracerOptions{}
	if instruments != nil {
		tracerOptions.Tracer = instruments.Tracer("temporal-client")
	}
	tracingInterceptor, err := temporalotel.NewTracingInterceptor(tracerOptions)
	if err != nil {
		return nil, err
	}
	options := client.Options{
		HostPort:  cfg.TemporalAddress,
		Namespace: cfg.TemporalNamespace,
		Logger:    workerlog.NewStructuredLogger(effectiveLogger(instruments)),
	}
	options.Interceptors = append(options.Interceptors, tracingInterceptor)
	return client.Dial(options)
}

func effectiveLogger(instruments *platformobservability.Instruments) *slog.Logger {
	if instruments != nil && instruments.Logger != nil {
		return instruments.Logger
	}
	return slog.New(slog.NewTextHandler(os.Stdout, nil))
}
