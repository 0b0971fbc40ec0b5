package application

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/quickbite/order-service/internal/domains/catalog/domain"
	"github.com/quickbite/order-service/internal/domains/catalog/ports"
	"github.com/quickbite/order-service/internal/shared/money"
)

var errEmptyIdentifier = errors.New("payload missing identifier")

type envelope struct {
	EventType string          `json:"event_type"`
	Data      json.RawMessage `json:"data"`
}

type productPayload struct {
	ProductID          string                                      `json:"productId"`
	TenantID           string                                      `json:"tenantId"`
	PriceConfiguration map[domain.PriceType]priceConfigurationJSON `json:"priceConfiguration"`
}

type priceConfigurationJSON struct {
	PriceType        domain.PriceType        `json:"priceType"`
	AvailableOptions map[string]money.Amount `json:"availableOptions"`
}

type toppingPayload struct {
	ToppingID string       `json:"toppingId"`
	Name      string       `json:"name"`
	Price     money.Amount `json:"price"`
	TenantID  string       `json:"tenantId"`
}

// Synchronizer mirrors upstream catalog change events into the local cache.
// Every write is a last-write-wins upsert; ordering across events is whatever
// the broker delivers.
type Synchronizer struct {
	store  ports.Writer
	logger *slog.Logger
}

// NewSynchronizer wires the synchronizer with its write port.
func NewSynchronizer(store ports.Writer, logger *slog.Logger) *Synchronizer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Synchronizer{store: store, logger: logger}
}

// HandleProductMessage upserts the product carried by a product topic message.
// Malformed payloads are reported as errors; the caller decides whether to
// drop or retry.
func (s *Synchronizer) HandleProductMessage(ctx context.Context, body []byte) error {
	payload, err := decodeProduct(body)
	if err != nil {
		return err
	}

	configurations := make(map[domain.PriceType]domain.PriceConfiguration, len(payload.PriceConfiguration))
	for priceType, configuration := range payload.PriceConfiguration {
		configurations[priceType] = domain.PriceConfiguration{
			PriceType:        configuration.PriceType,
			AvailableOptions: configuration.AvailableOptions,
		}
	}

	product := domain.Product{
		ProductID:          payload.ProductID,
		TenantID:           payload.TenantID,
		PriceConfiguration: configurations,
	}
	if err := s.store.UpsertProduct(ctx, product); err != nil {
		return fmt.Errorf("upsert product %q: %w", product.ProductID, err)
	}
	s.logger.DebugContext(ctx, "product cache updated", slog.String("product_id", product.ProductID), slog.String("tenant_id", product.TenantID))
	return nil
}

// HandleToppingMessage upserts the topping carried by a topping topic message.
func (s *Synchronizer) HandleToppingMessage(ctx context.Context, body []byte) error {
	payload, err := decodeTopping(body)
	if err != nil {
		return err
	}

	topping := domain.Topping{
		ToppingID: payload.ToppingID,
		Name:      payload.Name,
		Price:     payload.Price,
		TenantID:  payload.TenantID,
	}
	if err := s.store.UpsertTopping(ctx, topping); err != nil {
		return fmt.Errorf("upsert topping %q: %w", topping.ToppingID, err)
	}
	s.logger.DebugContext(ctx, "topping cache updated", slog.String("topping_id", topping.ToppingID), slog.String("tenant_id", topping.TenantID))
	return nil
}

func decodeProduct(body []byte) (productPayload, error) {
	var payload productPayload
	if err := json.Unmarshal(unwrap(body), &payload); err != nil {
		return productPayload{}, fmt.Errorf("decode product payload: %w", err)
	}
	if payload.ProductID == "" {
		return productPayload{}, fmt.Errorf("product payload: %w", errEmptyIdentifier)
	}
	return payload, nil
}

func decodeTopping(body []byte) (toppingPayload, error) {
	var payload toppingPayload
	if err := json.Unmarshal(unwrap(body), &payload); err != nil {
		return toppingPayload{}, fmt.Errorf("decode topping payload: %w", err)
	}
	if payload.ToppingID == "" {
		return toppingPayload{}, fmt.Errorf("topping payload: %w", errEmptyIdentifier)
	}
	return payload, nil
}

// unwrap accepts both the enveloped form {event_type, data} and a bare
// payload, returning the payload bytes.
func unwrap(body []byte) []byte {
	var env envelope
	if err := json.Unmarshal(body, &env); err == nil && len(env.Data) > 0 {
		return env.Data
	}
	return body
}
