package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	OrderStatusPlaced         OrderStatus = "placed"
	OrderStatusConfirmed      OrderStatus = "confirmed"
	OrderStatusPreparing      OrderStatus = "preparing"
	OrderStatusOutForDelivery OrderStatus = "out_for_delivery"
	OrderStatusDelivered      OrderStatus = "delivered"
	OrderStatusCancelled      OrderStatus = "cancelled"
)

// OrderStatuses lists the delivery pipeline in canonical order followed by cancelled.
var OrderStatuses = []OrderStatus{
	OrderStatusPlaced,
	OrderStatusConfirmed,
	OrderStatusPreparing,
	OrderStatusOutForDelivery,
	OrderStatusDelivered,
	OrderStatusCancelled,
}

func ParseOrderStatus(s string) (OrderStatus, error) {
	for _, st := range OrderStatuses {
		if string(st) == s {
			return st, nil
		}
	}
	return "", ErrInvalidStatus
}

// Rank is the position of the status in the delivery pipeline. Cancelled and
// unknown statuses have no rank.
func (s OrderStatus) Rank() int {
	switch s {
	case OrderStatusPlaced:
		return 0
	case OrderStatusConfirmed:
		return 1
	case OrderStatusPreparing:
		return 2
	case OrderStatusOutForDelivery:
		return 3
	case OrderStatusDelivered:
		return 4
	}
	return -1
}

func (s OrderStatus) IsTerminal() bool {
	return s == OrderStatusDelivered || s == OrderStatusCancelled
}

// CanTransitionTo reports whether an order may move from s to next. Terminal
// orders never move; otherwise an order may stay put, move forward, or be cancelled.
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	if s.IsTerminal() {
		return false
	}
	if next == OrderStatusCancelled {
		return true
	}
	return next.Rank() >= s.Rank() && next.Rank() >= 0
}

func (s OrderStatus) String() string {
	return string(s)
}

type DeliverySlot string

const (
	SlotTodayMorning    DeliverySlot = "today_morning"
	SlotTodayEvening    DeliverySlot = "today_evening"
	SlotTomorrowMorning DeliverySlot = "tomorrow_morning"
)

var DeliverySlots = []DeliverySlot{SlotTodayMorning, SlotTodayEvening, SlotTomorrowMorning}

type PaymentMethod string

const (
	PaymentCOD    PaymentMethod = "cod"
	PaymentOnline PaymentMethod = "online"
)

var PaymentMethods = []PaymentMethod{PaymentCOD, PaymentOnline}

type DeliveryAddress struct {
	Name        string `json:"name"`
	Phone       string `json:"phone"`
	AddressLine string `json:"address_line"`
	Landmark    string `json:"landmark,omitempty"`
	Area        string `json:"area"`
	Pincode     string `json:"pincode"`
	AddressType string `json:"address_type"`
}

// OrderLine is the immutable snapshot of a purchased product taken at checkout.
type OrderLine struct {
	ProductID      string          `json:"product_id"`
	ProductName    string          `json:"product_name"`
	Quantity       int             `json:"quantity"`
	SelectedWeight string          `json:"selected_weight"`
	UnitPrice      decimal.Decimal `json:"unit_price"`
	ItemTotal      decimal.Decimal `json:"item_total"`
}

type Order struct {
	ID                  string          `json:"id"`
	OrderNumber         string          `json:"order_number"`
	UserPhone           string          `json:"user_phone"`
	CustomerName        string          `json:"customer_name"`
	DeliveryAddress     DeliveryAddress `json:"delivery_address"`
	Items               []OrderLine     `json:"items"`
	Subtotal            decimal.Decimal `json:"subtotal"`
	DeliveryCharge      decimal.Decimal `json:"delivery_charge"`
	TotalAmount         decimal.Decimal `json:"total_amount"`
	DeliverySlot        DeliverySlot    `json:"delivery_slot"`
	PaymentMethod       PaymentMethod   `json:"payment_method"`
	SpecialInstructions string          `json:"special_instructions,omitempty"`
	Status              OrderStatus     `json:"status"`
	CreatedAt           time.Time       `json:"created_at"`
	UpdatedAt           *time.Time      `json:"updated_at,omitempty"`

	// CartID is the cart the order was placed from. It is not stored.
	CartID string `json:"-"`
}

// CheckoutLine is a requested line at checkout, as sent by the client.
type CheckoutLine struct {
	ProductID      string `json:"product_id"`
	Quantity       int    `json:"quantity"`
	SelectedWeight string `json:"selected_weight"`
}

type CheckoutRequest struct {
	UserPhone           string          `json:"user_phone"`
	DeliveryAddress     DeliveryAddress `json:"delivery_address"`
	CartItems           []CheckoutLine  `json:"cart_items"`
	DeliverySlot        DeliverySlot    `json:"delivery_slot"`
	PaymentMethod       PaymentMethod   `json:"payment_method"`
	SpecialInstructions string          `json:"special_instructions,omitempty"`
}
