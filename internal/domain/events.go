package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type StockMovement struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

// OrderPlacedEvent is published once the order and its stock decrement have
// been committed.
type OrderPlacedEvent struct {
	OrderID     string          `json:"order_id"`
	OrderNumber string          `json:"order_number"`
	CartID      string          `json:"cart_id,omitempty"`
	UserPhone   string          `json:"user_phone,omitempty"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	Stock       []StockMovement `json:"stock"`
	PlacedAt    time.Time       `json:"placed_at"`
}

type OrderStatusChangedEvent struct {
	OrderID   string      `json:"order_id"`
	From      OrderStatus `json:"from"`
	To        OrderStatus `json:"to"`
	ChangedAt time.Time   `json:"changed_at"`
}
