package domain

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseOrderStatus(t *testing.T) {
	st, err := ParseOrderStatus("out_for_delivery")
	require.NoError(t, err)
	assert.Equal(t, OrderStatusOutForDelivery, st)

	_, err = ParseOrderStatus("shipped")
	assert.ErrorIs(t, err, ErrInvalidStatus)
}

func TestOrderStatus_CanTransitionTo(t *testing.T) {
	tests := []struct {
		from, to OrderStatus
		want     bool
	}{
		{OrderStatusPlaced, OrderStatusConfirmed, true},
		{OrderStatusPlaced, OrderStatusDelivered, true},
		{OrderStatusPreparing, OrderStatusPreparing, true},
		{OrderStatusPreparing, OrderStatusConfirmed, false},
		{OrderStatusOutForDelivery, OrderStatusCancelled, true},
		{OrderStatusDelivered, OrderStatusCancelled, false},
		{OrderStatusCancelled, OrderStatusPlaced, false},
	}
	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.from.CanTransitionTo(tt.to))
		})
	}
}

func TestNormalizePhone(t *testing.T) {
	phone, err := NormalizePhone(" 98765-43210")
	require.NoError(t, err)
	assert.Equal(t, "9876543210", phone)

	_, err = NormalizePhone("12345")
	var vErr *ValidationError
	require.True(t, errors.As(err, &vErr))
	assert.Equal(t, "phone", vErr.Field)
}

func TestNormalizeLoginPhone_RejectsLandlinePrefix(t *testing.T) {
	_, err := NormalizeLoginPhone("5876543210")
	assert.Error(t, err)

	phone, err := NormalizeLoginPhone("(987) 654-3210")
	require.NoError(t, err)
	assert.Equal(t, "9876543210", phone)
}

func TestParseCartIdentity(t *testing.T) {
	id, ok := ParseCartIdentity("9876543210", "guest_abc")
	require.True(t, ok)
	assert.False(t, id.IsGuest())
	assert.Equal(t, "9876543210", id.Key())

	id, ok = ParseCartIdentity("", "guest_abc")
	require.True(t, ok)
	assert.True(t, id.IsGuest())

	id, ok = ParseCartIdentity("guest_1234", "")
	require.True(t, ok)
	assert.True(t, id.IsGuest())

	_, ok = ParseCartIdentity(" ", "")
	assert.False(t, ok)
}

func TestDeliveryAddress_Normalize(t *testing.T) {
	addr := DeliveryAddress{Name: "  Ravi ", AddressLine: "12 MG Road"}
	require.NoError(t, addr.Normalize())
	assert.Equal(t, "Ravi", addr.Name)
	assert.Equal(t, "home", addr.AddressType)

	short := DeliveryAddress{Name: " R ", AddressLine: "x"}
	assert.Error(t, short.Normalize())
}

func TestProduct_StockStatus(t *testing.T) {
	assert.Equal(t, StockInStock, (&Product{StockQuantity: 11}).StockStatus())
	assert.Equal(t, StockLowStock, (&Product{StockQuantity: 10}).StockStatus())
	assert.Equal(t, StockOutOfStock, (&Product{StockQuantity: 0}).StockStatus())
}

func TestStockError_IsInsufficientStock(t *testing.T) {
	err := error(&StockError{Available: 3})
	assert.ErrorIs(t, err, ErrInsufficientStock)
	assert.Equal(t, "only 3 items available", err.Error())
}
