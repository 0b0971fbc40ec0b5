//go:build pact
// +build pact

// Package pacttest holds shared names, states, and fixtures for the pact
// suites. The order API is verified as a provider for the storefront, and
// exercised as a consumer of the checkout API.
package pacttest

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

const (
	ProviderName = "order-service-api"
	ConsumerName = "storefront-web"

	CheckoutProviderName = "checkout-api"
	CheckoutConsumerName = ProviderName

	StateCatalogSeeded = "catalog cache seeded for tenant-1"
	StateOrderExists   = "order with id order-301 exists"
	StateOrderMissing  = "no order with id order-404"

	StateSessionPaid    = "checkout session sess-301 is paid"
	StateSessionMissing = "no checkout session sess-404"
)

const (
	ExistingOrderID = "order-301"
	MissingOrderID  = "order-404"

	PaidSessionID    = "sess-301"
	MissingSessionID = "sess-404"

	TenantID   = "tenant-1"
	CustomerID = "cust-1"
)

// PactDir returns the workspace-level directory for generated pact files.
func PactDir(t testing.TB) string {
	t.Helper()
	dir := filepath.Join(projectRoot(t), "pacts")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("create pact dir: %v", err)
	}
	return dir
}

// StorefrontPactFile returns the pact file written by the storefront consumer
// suite and read by the provider verification.
func StorefrontPactFile(t testing.TB) string {
	t.Helper()
	return filepath.Join(PactDir(t), ConsumerName+"-"+ProviderName+".json")
}

// LogDir returns the log output directory for pact-go.
func LogDir(t testing.TB) string {
	t.Helper()
	dir := filepath.Join(projectRoot(t), "bin", "pact-logs")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("create pact log dir: %v", err)
	}
	return dir
}

// ExampleCreateOrderPayload is the storefront's canonical creation request.
func ExampleCreateOrderPayload() map[string]any {
	return map[string]any{
		"tenantId":    TenantID,
		"address":     "12 Baker Street",
		"phone":       "555-0100",
		"paymentMode": "CASH",
		"items": []map[string]any{{
			"productId":   "prod-1",
			"productName": "Pizza",
			"quantity":    2,
			"base":        map[string]any{"name": "margherita"},
			"toppings":    []map[string]any{{"id": "top-1"}},
		}},
	}
}

// projectRoot walks up from this file to the workspace root.
func projectRoot(t testing.TB) string {
	t.Helper()
	_, file, _, ok := runtime.Caller(0)
	if !ok {
		t.Fatal("cannot determine caller for pact paths")
	}
	return filepath.Clean(filepath.Join(filepath.Dir(file), "..", ".."))
}
