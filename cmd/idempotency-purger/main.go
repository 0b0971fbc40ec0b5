package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"time"

	orderspostgres "github.com/quickbite/order-service/internal/domains/orders/adapters/persistence/postgres"
	platformpostgres "github.com/quickbite/order-service/internal/platform/postgres"
)

func main() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	db, cleanup := platformpostgres.ConnectFromEnv(ctx, logger)
	defer cleanup()
	if db == nil {
		log.Fatal("POSTGRES_DSN not set or connection failed; cannot purge idempotency keys")
	}

	store := orderspostgres.NewIdempotencyStore(db)
	purged, err := store.DeleteExpired(ctx)
	if err != nil {
		log.Fatalf("failed to purge idempotency keys: %v", err)
	}
	log.Printf("idempotency purge completed, removed %d keys", purged)
}
