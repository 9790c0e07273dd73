package http

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/freshveggie/veggie-api/internal/domain"
	"github.com/freshveggie/veggie-api/internal/service"
	"github.com/freshveggie/veggie-api/internal/tracking"
	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type OrdersHandler struct {
	orders  *service.OrderService
	timeout time.Duration
	log     *zap.Logger
}

func NewOrdersHandler(orders *service.OrderService, timeout time.Duration, log *zap.Logger) *OrdersHandler {
	return &OrdersHandler{orders: orders, timeout: timeout, log: log}
}

type CheckoutResponseDTO struct {
	Success           bool            `json:"success"`
	OrderID           string          `json:"order_id"`
	OrderNumber       string          `json:"order_number"`
	TotalAmount       decimal.Decimal `json:"total_amount"`
	EstimatedDelivery string          `json:"estimated_delivery"`
	Message           string          `json:"message"`
}

type OrderWithStatusDTO struct {
	*domain.Order
	StatusInfo tracking.StatusInfo `json:"status_info"`
}

type OrderHistoryDTO struct {
	Phone       string               `json:"phone"`
	TotalOrders int                  `json:"total_orders"`
	Orders      []OrderWithStatusDTO `json:"orders"`
}

type TrackedOrderDTO struct {
	OrderWithStatusDTO
	TrackingTimeline []tracking.Step `json:"tracking_timeline"`
}

type StatusRequestDTO struct {
	Status string `json:"status"`
}

type StatusResponseDTO struct {
	Message string        `json:"message"`
	Order   *domain.Order `json:"order"`
}

func withStatus(orders []*domain.Order) []OrderWithStatusDTO {
	out := make([]OrderWithStatusDTO, 0, len(orders))
	for _, o := range orders {
		out = append(out, OrderWithStatusDTO{Order: o, StatusInfo: tracking.Info(o.Status)})
	}
	return out
}

// POST /checkout
func (h *OrdersHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req domain.CheckoutRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	res, err := h.orders.Checkout(ctx, req)
	if err != nil {
		handleError(w, r, h.log, err)
		return
	}

	respondJSON(w, http.StatusCreated, CheckoutResponseDTO{
		Success:           true,
		OrderID:           res.Order.ID,
		OrderNumber:       res.Order.OrderNumber,
		TotalAmount:       res.Order.TotalAmount,
		EstimatedDelivery: res.EstimatedDelivery,
		Message:           "Order placed successfully! We'll call you with updates.",
	})
}

// GET /orders/{phone}
func (h *OrdersHandler) History(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	phone, orders, err := h.orders.History(ctx, chi.URLParam(r, "phone"))
	if err != nil {
		handleError(w, r, h.log, err)
		return
	}
	respondJSON(w, http.StatusOK, OrderHistoryDTO{Phone: phone, TotalOrders: len(orders), Orders: withStatus(orders)})
}

// GET /orders/track/{orderNumber}
func (h *OrdersHandler) Track(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	order, err := h.orders.Track(ctx, chi.URLParam(r, "orderNumber"))
	if err != nil {
		handleError(w, r, h.log, err)
		return
	}
	respondJSON(w, http.StatusOK, TrackedOrderDTO{
		OrderWithStatusDTO: OrderWithStatusDTO{Order: order, StatusInfo: tracking.Info(order.Status)},
		TrackingTimeline:   tracking.Timeline(order.Status),
	})
}

// GET /admin/orders
func (h *OrdersHandler) ListAll(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	orders, err := h.orders.All(ctx)
	if err != nil {
		handleError(w, r, h.log, err)
		return
	}
	respondJSON(w, http.StatusOK, withStatus(orders))
}

// PUT /admin/orders/{id}/status
func (h *OrdersHandler) SetStatus(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req StatusRequestDTO
	if !decodeJSON(w, r, &req) {
		return
	}

	order, err := h.orders.SetStatus(ctx, chi.URLParam(r, "id"), req.Status)
	if err != nil {
		handleError(w, r, h.log, err)
		return
	}
	respondJSON(w, http.StatusOK, StatusResponseDTO{
		Message: fmt.Sprintf("Order status updated to %s", order.Status),
		Order:   order,
	})
}
