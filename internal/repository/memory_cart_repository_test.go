package repository

import (
	"context"
	"testing"
	"time"

	"github.com/freshveggie/veggie-api/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryCart_AddMergeAndRemove(t *testing.T) {
	repo := NewMemoryCartRepository(time.Hour)
	ctx := context.Background()
	id := domain.Registered("9876543210")

	require.NoError(t, repo.AddLine(ctx, id, domain.CartLine{ID: "l1", ProductID: "p1", SelectedWeight: "500g", Quantity: 2}))
	require.NoError(t, repo.AddLine(ctx, id, domain.CartLine{ID: "l2", ProductID: "p1", SelectedWeight: "500g", Quantity: 5}))
	require.NoError(t, repo.AddLine(ctx, id, domain.CartLine{ID: "l3", ProductID: "p2", SelectedWeight: "1kg", Quantity: 1}))

	cart, err := repo.GetCart(ctx, id)
	require.NoError(t, err)
	require.Len(t, cart.Lines, 2)
	assert.Equal(t, "l1", cart.Lines[0].ID)
	assert.Equal(t, 5, cart.Lines[0].Quantity)

	require.NoError(t, repo.SetLineQuantity(ctx, id, "l3", 4))
	assert.ErrorIs(t, repo.SetLineQuantity(ctx, id, "missing", 1), domain.ErrCartLineNotFound)

	require.NoError(t, repo.RemoveProduct(ctx, "p1"))
	require.NoError(t, repo.RemoveLine(ctx, id, "l1"))

	cart, err = repo.GetCart(ctx, id)
	require.NoError(t, err)
	require.Len(t, cart.Lines, 1)
	assert.Equal(t, 4, cart.Lines[0].Quantity)

	require.NoError(t, repo.DeleteCart(ctx, id))
	assert.ErrorIs(t, repo.DeleteCart(ctx, id), ErrCartNotFound)
}

func TestMemoryCart_ReturnsCopies(t *testing.T) {
	repo := NewMemoryCartRepository(time.Hour)
	ctx := context.Background()
	id := domain.Registered("9876543210")
	require.NoError(t, repo.AddLine(ctx, id, domain.CartLine{ID: "l1", ProductID: "p1", Quantity: 1}))

	cart, err := repo.GetCart(ctx, id)
	require.NoError(t, err)
	cart.Lines[0].Quantity = 99

	cart, err = repo.GetCart(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 1, cart.Lines[0].Quantity)
}

func TestMemoryCart_GuestCartsExpire(t *testing.T) {
	repo := NewMemoryCartRepository(time.Hour)
	clock := time.Date(2025, 3, 15, 12, 0, 0, 0, time.UTC)
	repo.now = func() time.Time { return clock }
	ctx := context.Background()

	guest := domain.Guest("guest_ab12cd34")
	user := domain.Registered("9876543210")
	require.NoError(t, repo.AddLine(ctx, guest, domain.CartLine{ID: "g1", ProductID: "p1", Quantity: 1}))
	require.NoError(t, repo.AddLine(ctx, user, domain.CartLine{ID: "u1", ProductID: "p1", Quantity: 1}))

	clock = clock.Add(2 * time.Hour)

	_, err := repo.GetCart(ctx, guest)
	assert.ErrorIs(t, err, ErrCartNotFound)
	_, err = repo.GetCart(ctx, user)
	assert.NoError(t, err)
}

func TestMemoryCart_DeleteCartUnchangedSince(t *testing.T) {
	repo := NewMemoryCartRepository(time.Hour)
	clock := time.Date(2025, 3, 15, 12, 0, 0, 0, time.UTC)
	repo.now = func() time.Time { return clock }
	ctx := context.Background()
	id := domain.Registered("9876543210")

	require.NoError(t, repo.AddLine(ctx, id, domain.CartLine{ID: "l1", ProductID: "p1", Quantity: 1}))
	placed := clock.Add(time.Second)

	clock = clock.Add(time.Minute)
	require.NoError(t, repo.AddLine(ctx, id, domain.CartLine{ID: "l2", ProductID: "p2", Quantity: 1}))

	assert.ErrorIs(t, repo.DeleteCartUnchangedSince(ctx, id, placed), ErrCartNotFound)
	cart, err := repo.GetCart(ctx, id)
	require.NoError(t, err)
	assert.Len(t, cart.Lines, 2)

	require.NoError(t, repo.DeleteCartUnchangedSince(ctx, id, clock))
	assert.ErrorIs(t, repo.DeleteCartUnchangedSince(ctx, id, clock), ErrCartNotFound)
}
