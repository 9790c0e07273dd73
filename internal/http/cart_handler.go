package http

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/freshveggie/veggie-api/internal/domain"
	"github.com/freshveggie/veggie-api/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	userPhoneHeader = "User-Phone"
	guestIDHeader   = "Guest-Id"
)

type CartHandler struct {
	carts   *service.CartService
	timeout time.Duration
	log     *zap.Logger
}

func NewCartHandler(carts *service.CartService, timeout time.Duration, log *zap.Logger) *CartHandler {
	return &CartHandler{carts: carts, timeout: timeout, log: log}
}

type AddItemRequestDTO struct {
	ProductID      string `json:"product_id"`
	Quantity       *int   `json:"quantity"`
	SelectedWeight string `json:"selected_weight"`
}

type AddItemResponseDTO struct {
	Message  string           `json:"message"`
	CartID   string           `json:"cart_id"`
	Quantity int              `json:"quantity,omitempty"`
	CartItem *domain.CartLine `json:"cart_item,omitempty"`
}

type UpdateQuantityRequestDTO struct {
	Quantity *int `json:"quantity"`
}

type CartResponseDTO struct {
	*domain.CartSnapshot
	Message string `json:"message,omitempty"`
}

func cartIdentity(r *http.Request) (domain.CartIdentity, bool) {
	return domain.ParseCartIdentity(r.Header.Get(userPhoneHeader), r.Header.Get(guestIDHeader))
}

// POST /cart/add
func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req AddItemRequestDTO
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.ProductID == "" {
		respondError(w, http.StatusBadRequest, "invalid_product_id", "product_id is required")
		return
	}
	quantity := 1
	if req.Quantity != nil {
		quantity = *req.Quantity
	}

	id, ok := cartIdentity(r)
	if !ok {
		id = service.NewGuestIdentity()
	}

	res, err := h.carts.AddLine(ctx, id, req.ProductID, req.SelectedWeight, quantity)
	if err != nil {
		handleError(w, r, h.log, err)
		return
	}

	if res.Merged {
		respondJSON(w, http.StatusOK, AddItemResponseDTO{Message: "Cart updated", CartID: res.CartID, Quantity: res.Line.Quantity})
		return
	}
	respondJSON(w, http.StatusOK, AddItemResponseDTO{Message: "Added to cart", CartID: res.CartID, CartItem: &res.Line})
}

// GET /cart
func (h *CartHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	id, ok := cartIdentity(r)
	if !ok {
		respondJSON(w, http.StatusOK, CartResponseDTO{
			CartSnapshot: &domain.CartSnapshot{Items: []domain.SnapshotLine{}, Total: decimal.Zero},
			Message:      "No cart ID provided",
		})
		return
	}

	snap, err := h.carts.GetCart(ctx, id)
	if err != nil {
		handleError(w, r, h.log, err)
		return
	}
	resp := CartResponseDTO{CartSnapshot: snap}
	if len(snap.Items) == 0 {
		resp.Message = "Cart is empty"
	}
	respondJSON(w, http.StatusOK, resp)
}

// PUT /cart/{lineId}?quantity=N, or {"quantity": N} in the body.
func (h *CartHandler) UpdateQuantity(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	id, ok := cartIdentity(r)
	if !ok {
		respondError(w, http.StatusBadRequest, "missing_cart_id", "No cart ID provided")
		return
	}

	var req UpdateQuantityRequestDTO
	if q := r.URL.Query().Get("quantity"); q != "" {
		n, err := strconv.Atoi(q)
		if err != nil {
			respondError(w, http.StatusBadRequest, "invalid_quantity", "quantity must be an integer")
			return
		}
		req.Quantity = &n
	} else if !decodeJSON(w, r, &req) {
		return
	}
	if req.Quantity == nil {
		respondError(w, http.StatusBadRequest, "invalid_quantity", "quantity is required")
		return
	}

	removed, err := h.carts.UpdateLineQuantity(ctx, id, chi.URLParam(r, "lineId"), *req.Quantity)
	if err != nil {
		handleError(w, r, h.log, err)
		return
	}
	if removed {
		respondMessage(w, "Item removed from cart")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"message": "Cart updated", "new_quantity": *req.Quantity})
}

// DELETE /cart/{lineId}
func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	id, ok := cartIdentity(r)
	if !ok {
		respondError(w, http.StatusBadRequest, "missing_cart_id", "No cart ID provided")
		return
	}
	if err := h.carts.RemoveLine(ctx, id, chi.URLParam(r, "lineId")); err != nil {
		handleError(w, r, h.log, err)
		return
	}
	respondMessage(w, "Item removed from cart")
}

// DELETE /cart
func (h *CartHandler) ClearCart(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	id, ok := cartIdentity(r)
	if !ok {
		respondError(w, http.StatusBadRequest, "missing_cart_id", "No cart ID provided")
		return
	}
	if err := h.carts.ClearCart(ctx, id); err != nil {
		handleError(w, r, h.log, err)
		return
	}
	respondMessage(w, "Cart cleared")
}
