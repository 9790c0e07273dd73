package cache

import (
	"context"
	"errors"

	"github.com/freshveggie/veggie-api/internal/domain"
)

// CartCache holds raw cart documents. Prices are never cached; the snapshot
// is recomputed from live product data on every read.
type CartCache interface {
	Get(ctx context.Context, id domain.CartIdentity) (*domain.Cart, error)
	Set(ctx context.Context, id domain.CartIdentity, cart *domain.Cart) error
	Delete(ctx context.Context, id domain.CartIdentity) error
}

var ErrCacheMiss = errors.New("cache miss")
