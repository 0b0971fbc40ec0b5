// Package checkout is the HTTP client for the payment provider's
// checkout-session API.
package checkout

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/quickbite/order-service/internal/domains/orders/domain"
	"github.com/quickbite/order-service/internal/domains/orders/ports"
	"github.com/quickbite/order-service/internal/shared/money"
)

const idempotencyKeyHeader = "Idempotency-Key"

var _ ports.PaymentGateway = (*Client)(nil)

// Client talks to the checkout-session endpoints of the payment provider.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient instantiates the checkout client with sane defaults.
func NewClient(baseURL string, httpClient *http.Client) (*Client, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, errors.New("checkout base URL is required")
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &Client{baseURL: baseURL, httpClient: httpClient}, nil
}

type createSessionRequest struct {
	Amount        money.Amount      `json:"amount"`
	Currency      string            `json:"currency"`
	CustomerEmail string            `json:"customerEmail,omitempty"`
	Metadata      map[string]string `json:"metadata"`
}

type sessionResponse struct {
	ID            string            `json:"id"`
	PaymentURL    string            `json:"paymentUrl"`
	PaymentStatus string            `json:"paymentStatus"`
	Metadata      map[string]string `json:"metadata"`
}

type errorResponse struct {
	Message string `json:"message"`
}

// CreateSession opens a checkout session for the order's grand total. The
// idempotency key is forwarded so provider-side session creation dedupes
// with order creation.
func (c *Client) CreateSession(ctx context.Context, opts ports.SessionOptions) (*ports.PaymentSession, error) {
	if c == nil || c.httpClient == nil {
		return nil, errors.New("checkout client not configured")
	}
	payload, err := json.Marshal(createSessionRequest{
		Amount:        opts.Amount,
		Currency:      opts.Currency,
		CustomerEmail: opts.CustomerEmail,
		Metadata: map[string]string{
			"orderId":  opts.OrderID,
			"tenantId": opts.TenantID,
		},
	})
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/sessions", bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if opts.IdempotencyKey != "" {
		req.Header.Set(idempotencyKeyHeader, opts.IdempotencyKey)
	}

	var session sessionResponse
	if err := c.do(req, &session); err != nil {
		return nil, fmt.Errorf("create checkout session: %w", err)
	}
	if session.ID == "" || session.PaymentURL == "" {
		return nil, errors.New("checkout session response missing id or payment url")
	}
	return &ports.PaymentSession{ID: session.ID, PaymentURL: session.PaymentURL}, nil
}

// GetSession fetches an existing session and maps the provider's payment
// state: "paid" becomes PAID, anything else UNPAID.
func (c *Client) GetSession(ctx context.Context, sessionID string) (*ports.VerifiedSession, error) {
	if c == nil || c.httpClient == nil {
		return nil, errors.New("checkout client not configured")
	}
	if strings.TrimSpace(sessionID) == "" {
		return nil, errors.New("session id is required")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/sessions/"+url.PathEscape(sessionID), nil)
	if err != nil {
		return nil, err
	}

	var session sessionResponse
	if err := c.do(req, &session); err != nil {
		return nil, fmt.Errorf("get checkout session %q: %w", sessionID, err)
	}

	status := domain.PaymentStatusUnpaid
	if strings.EqualFold(session.PaymentStatus, "paid") {
		status = domain.PaymentStatusPaid
	}
	return &ports.VerifiedSession{
		ID:            session.ID,
		OrderID:       session.Metadata["orderId"],
		TenantID:      session.Metadata["tenantId"],
		PaymentStatus: status,
	}, nil
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return err
	}
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		var apiErr errorResponse
		if json.Unmarshal(body, &apiErr) == nil && apiErr.Message != "" {
			return fmt.Errorf("provider returned %s: %s", resp.Status, apiErr.Message)
		}
		return fmt.Errorf("provider returned %s", resp.Status)
	}
	if out == nil {
		return nil
	}
	return json.Unmarshal(body, out)
}
