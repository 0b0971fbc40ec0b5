// Package http exposes the order use cases over gin.
package http

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	catalog "github.com/quickbite/order-service/internal/domains/catalog/application"
	"github.com/quickbite/order-service/internal/domains/orders/adapters/http/mapper"
	"github.com/quickbite/order-service/internal/domains/orders/application"
	types "github.com/quickbite/order-service/internal/domains/orders/application/types"
	"github.com/quickbite/order-service/internal/domains/orders/domain"
	"github.com/quickbite/order-service/internal/domains/orders/ports"
	"github.com/quickbite/order-service/internal/shared/authz"
	sharederrors "github.com/quickbite/order-service/internal/shared/errors"
	"github.com/quickbite/order-service/internal/shared/identity"
)

// IdempotencyKeyHeader carries the client-chosen creation key.
const IdempotencyKeyHeader = "Idempotency-Key"

const webhookSessionCompleted = "checkout.session.completed"

// Handler wires the order routes.
type Handler struct {
	service   ports.Service
	responder *sharederrors.ChainedResponder
}

// NewHandler builds the handler with the shared error mapping chain.
func NewHandler(service ports.Service) *Handler {
	return &Handler{
		service:   service,
		responder: sharederrors.NewChainedResponder("", mapServiceError),
	}
}

// Register mounts the order and webhook routes. Order routes require the
// gateway identity headers; the webhook is called by the payment
// collaborator and carries no user identity.
func (h *Handler) Register(router gin.IRouter) {
	orders := router.Group("/orders", identity.Middleware())
	orders.POST("", h.createOrder)
	orders.GET("", h.listOrders)
	orders.GET("/mine", h.listMyOrders)
	orders.GET("/:orderId", h.getOrder)
	orders.PATCH("/:orderId/status", h.updateStatus)

	router.POST("/payments/webhook", h.paymentWebhook)
}

func (h *Handler) createOrder(c *gin.Context) {
	key := strings.TrimSpace(c.GetHeader(IdempotencyKeyHeader))
	if key == "" {
		h.responder.Respond(c, sharederrors.ErrValidation.WithDetail("missing Idempotency-Key header"))
		return
	}
	var req mapper.CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.responder.Respond(c, sharederrors.ErrBadRequest.WithDetail(err.Error()))
		return
	}
	result, err := h.service.CreateOrder(c.Request.Context(), mapper.ToCreateOrderInput(req, key, callerFrom(c)))
	if err != nil {
		h.responder.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, mapper.ToCreateOrderResponse(result))
}

func (h *Handler) updateStatus(c *gin.Context) {
	var req mapper.StatusUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.responder.Respond(c, sharederrors.ErrBadRequest.WithDetail(err.Error()))
		return
	}
	order, err := h.service.UpdateOrderStatus(c.Request.Context(), types.StatusUpdateInput{
		Caller:     callerFrom(c),
		OrderID:    c.Param("orderId"),
		NextStatus: domain.Status(req.OrderStatus),
	})
	if err != nil {
		h.responder.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

func (h *Handler) getOrder(c *gin.Context) {
	order, err := h.service.GetOrder(c.Request.Context(), callerFrom(c), c.Param("orderId"))
	if err != nil {
		h.responder.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

func (h *Handler) listOrders(c *gin.Context) {
	input := listInputFrom(c)
	page, err := h.service.ListOrders(c.Request.Context(), input)
	if err != nil {
		h.responder.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, mapper.ToListResponse(page, input.Page, input.Limit))
}

func (h *Handler) listMyOrders(c *gin.Context) {
	input := listInputFrom(c)
	page, err := h.service.ListMyOrders(c.Request.Context(), input)
	if err != nil {
		h.responder.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, mapper.ToListResponse(page, input.Page, input.Limit))
}

func (h *Handler) paymentWebhook(c *gin.Context) {
	var req mapper.WebhookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.responder.Respond(c, sharederrors.ErrBadRequest.WithDetail(err.Error()))
		return
	}
	if req.Type != webhookSessionCompleted {
		c.JSON(http.StatusOK, gin.H{"received": true})
		return
	}
	if req.SessionID() == "" {
		h.responder.Respond(c, sharederrors.ErrValidation.WithDetail("missing session id"))
		return
	}
	order, err := h.service.HandlePaymentWebhook(c.Request.Context(), req.SessionID())
	if err != nil {
		h.responder.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"received": true, "orderId": order.ID})
}

func callerFrom(c *gin.Context) types.Caller {
	claims, _ := identity.FromContext(c)
	return types.Caller{ID: claims.Subject, Email: claims.Email, Role: claims.Role, TenantID: claims.TenantID}
}

func listInputFrom(c *gin.Context) types.ListOrdersInput {
	page, _ := strconv.Atoi(c.Query("page"))
	limit, _ := strconv.Atoi(c.Query("limit"))
	input := types.ListOrdersInput{
		Caller:        callerFrom(c),
		TenantID:      c.Query("tenantId"),
		PaymentStatus: domain.PaymentStatus(c.Query("paymentStatus")),
		OrderStatus:   domain.Status(c.Query("orderStatus")),
		ProductName:   c.Query("productName"),
		Page:          page,
		Limit:         limit,
	}
	input.Normalize()
	return input
}

func mapServiceError(err error) (sharederrors.ProblemDetail, bool) {
	switch {
	case errors.Is(err, types.ErrInvalidInput),
		errors.Is(err, domain.ErrInvalidOrder):
		return sharederrors.ErrValidation.WithDetail(err.Error()), true
	case errors.Is(err, domain.ErrInvalidTransition):
		return sharederrors.ErrBadRequest.WithDetail(err.Error()), true
	case errors.Is(err, ports.ErrNotFound),
		errors.Is(err, catalog.ErrProductNotCached),
		errors.Is(err, catalog.ErrToppingNotCached),
		errors.Is(err, catalog.ErrBasePriceNotConfigured):
		return sharederrors.ErrNotFound.WithDetail(err.Error()), true
	case errors.Is(err, ports.ErrStatusConflict):
		return sharederrors.ErrConflict.WithDetail(err.Error()), true
	case errors.Is(err, authz.ErrForbidden):
		return sharederrors.ErrForbidden.WithDetail(err.Error()), true
	case errors.Is(err, application.ErrPaymentGateway):
		return sharederrors.ErrUpstream.WithDetail(err.Error()), true
	}
	return sharederrors.ProblemDetail{}, false
}
