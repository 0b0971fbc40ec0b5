// Package mapper translates between HTTP payloads and application types.
package mapper

import (
	types "github.com/quickbite/order-service/internal/domains/orders/application/types"
	"github.com/quickbite/order-service/internal/domains/orders/domain"
	"github.com/quickbite/order-service/internal/domains/orders/ports"
	"github.com/quickbite/order-service/internal/shared/money"
)

// CreateOrderRequest is the creation payload. Any price fields a client
// sends are not modelled and therefore never read.
type CreateOrderRequest struct {
	TenantID    string             `json:"tenantId" binding:"required"`
	Address     string             `json:"address" binding:"required"`
	Phone       string             `json:"phone"`
	Comment     string             `json:"comment"`
	CouponCode  string             `json:"couponCode"`
	Discount    money.Amount       `json:"discount"`
	PaymentMode string             `json:"paymentMode" binding:"required"`
	Items       []OrderItemRequest `json:"items" binding:"required"`
}

type OrderItemRequest struct {
	ProductID   string           `json:"productId"`
	ProductName string           `json:"productName"`
	Quantity    int              `json:"quantity"`
	Base        BaseRequest      `json:"base"`
	Toppings    []ToppingRequest `json:"toppings"`
}

type BaseRequest struct {
	Name string `json:"name"`
}

type ToppingRequest struct {
	ID string `json:"id"`
}

// StatusUpdateRequest carries the requested lifecycle state.
type StatusUpdateRequest struct {
	OrderStatus string `json:"orderStatus" binding:"required"`
}

// WebhookRequest is the completed-session notification from the payment
// collaborator.
type WebhookRequest struct {
	Type string `json:"type"`
	Data struct {
		Object struct {
			ID string `json:"id"`
		} `json:"object"`
	} `json:"data"`
}

// SessionID extracts the checkout session id from the event payload.
func (r WebhookRequest) SessionID() string {
	return r.Data.Object.ID
}

// CreateOrderResponse echoes the payment URL alongside the materialized
// order. PaymentURL is null for cash orders.
type CreateOrderResponse struct {
	PaymentURL *string       `json:"paymentUrl"`
	Order      *domain.Order `json:"order"`
}

// ListResponse is one page of orders plus the unfiltered total.
type ListResponse struct {
	Data  []*domain.Order `json:"data"`
	Total int64           `json:"total"`
	Page  int             `json:"page"`
	Limit int             `json:"limit"`
}

// ToCreateOrderInput builds the use-case input from the request and the
// authenticated caller.
func ToCreateOrderInput(req CreateOrderRequest, key string, caller types.Caller) types.CreateOrderInput {
	items := make([]types.OrderItemInput, 0, len(req.Items))
	for _, item := range req.Items {
		toppings := make([]types.RequestedTopping, 0, len(item.Toppings))
		for _, topping := range item.Toppings {
			toppings = append(toppings, types.RequestedTopping{ID: topping.ID})
		}
		items = append(items, types.OrderItemInput{
			ProductID:   item.ProductID,
			ProductName: item.ProductName,
			Quantity:    item.Quantity,
			Base:        types.RequestedBase{Name: item.Base.Name},
			Toppings:    toppings,
		})
	}
	return types.CreateOrderInput{
		IdempotencyKey: key,
		Caller:         caller,
		TenantID:       req.TenantID,
		Address:        req.Address,
		Phone:          req.Phone,
		Comment:        req.Comment,
		CouponCode:     req.CouponCode,
		Discount:       req.Discount,
		PaymentMode:    domain.PaymentMode(req.PaymentMode),
		Items:          items,
	}
}

// ToCreateOrderResponse renders the creation result.
func ToCreateOrderResponse(result *types.CreateOrderResult) CreateOrderResponse {
	response := CreateOrderResponse{Order: result.Order}
	if result.PaymentURL != "" {
		url := result.PaymentURL
		response.PaymentURL = &url
	}
	return response
}

// ToListResponse renders one page.
func ToListResponse(page *ports.Page, pageNum, limit int) ListResponse {
	orders := page.Orders
	if orders == nil {
		orders = []*domain.Order{}
	}
	return ListResponse{Data: orders, Total: page.Total, Page: pageNum, Limit: limit}
}
