package service

import (
	"context"
	"testing"

	"github.com/freshveggie/veggie-api/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newCustomerService(t *testing.T) *CustomerService {
	repo := setupSQLite(t)
	return NewCustomerService(repo, repo, zap.NewNop())
}

func TestLoginPhone_NewThenReturning(t *testing.T) {
	svc := newCustomerService(t)
	ctx := context.Background()

	res, err := svc.LoginPhone(ctx, "98765 43210", "")
	require.NoError(t, err)
	assert.False(t, res.Returning)
	assert.Equal(t, "User", res.Customer.Name)
	assert.Equal(t, "9876543210", res.Customer.Phone)
	assert.Equal(t, 0, res.TotalOrders)

	res, err = svc.LoginPhone(ctx, "9876543210", "Asha")
	require.NoError(t, err)
	assert.True(t, res.Returning)
	assert.Equal(t, 2, res.Customer.LoginCount)
}

func TestLoginPhone_RejectsInvalidNumbers(t *testing.T) {
	svc := newCustomerService(t)

	for _, phone := range []string{"12345", "5876543210", "98765432101"} {
		_, err := svc.LoginPhone(context.Background(), phone, "")
		var vErr *domain.ValidationError
		assert.ErrorAs(t, err, &vErr, phone)
	}
}

func TestLoginGuest(t *testing.T) {
	svc := newCustomerService(t)

	a, b := svc.LoginGuest(), svc.LoginGuest()

	assert.True(t, a.IsGuest())
	assert.NotEqual(t, a.Key(), b.Key())
}

func TestAddresses(t *testing.T) {
	svc := newCustomerService(t)
	ctx := context.Background()
	addr := domain.DeliveryAddress{Name: "Asha", AddressLine: "12 MG Road", Area: "MG Road", Pincode: "560001"}

	_, err := svc.SaveAddress(ctx, "", addr)
	var vErr *domain.ValidationError
	require.ErrorAs(t, err, &vErr)

	_, err = svc.SaveAddress(ctx, "guest_ab12cd34", addr)
	require.ErrorAs(t, err, &vErr)

	saved, err := svc.SaveAddress(ctx, "9876543210", addr)
	require.NoError(t, err)
	assert.Equal(t, "home", saved.AddressType)

	addr.AddressType = "work"
	_, err = svc.SaveAddress(ctx, "9876543210", addr)
	require.NoError(t, err)

	list, err := svc.Addresses(ctx, "9876543210")
	require.NoError(t, err)
	require.Len(t, list, 2)

	empty, err := svc.Addresses(ctx, "9123456789")
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)
}
