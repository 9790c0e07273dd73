package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/freshveggie/veggie-api/internal/cache"
	"github.com/freshveggie/veggie-api/internal/domain"
	"github.com/freshveggie/veggie-api/internal/logger"
	"github.com/freshveggie/veggie-api/internal/pricing"
	"github.com/freshveggie/veggie-api/internal/repository"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

type CartService struct {
	repo     repository.CartRepository
	products repository.ProductRepository
	cache    cache.CartCache
	policy   pricing.Policy
	log      *zap.Logger
	sfg      singleflight.Group // Prevents cache stampede
	locks    *keyedMutex
}

func NewCartService(
	repo repository.CartRepository,
	products repository.ProductRepository,
	cache cache.CartCache,
	policy pricing.Policy,
	log *zap.Logger,
) *CartService {
	return &CartService{
		repo:     repo,
		products: products,
		cache:    cache,
		policy:   policy,
		log:      log,
		locks:    newKeyedMutex(),
	}
}

// AddResult describes the line written by AddLine.
type AddResult struct {
	CartID string
	Line   domain.CartLine
	Merged bool
}

// NewGuestIdentity mints the token used for carts created without a phone.
func NewGuestIdentity() domain.CartIdentity {
	return domain.Guest("guest_" + uuid.NewString()[:8])
}

// AddLine adds quantity of a product to the cart, merging into an existing
// line with the same weight. The stock check covers the merged quantity.
func (s *CartService) AddLine(ctx context.Context, id domain.CartIdentity, productID, weight string, quantity int) (*AddResult, error) {
	if err := domain.ValidateQuantity(quantity); err != nil {
		return nil, err
	}
	weight = domain.NormalizeWeight(weight)

	product, err := s.getProduct(ctx, productID)
	if err != nil {
		return nil, err
	}
	if !product.IsActive {
		return nil, domain.ErrProductNotFound
	}
	if product.StockQuantity < quantity {
		return nil, &domain.StockError{Available: product.StockQuantity}
	}

	unlock := s.locks.Lock(id.Key())
	defer unlock()

	cart, err := s.readCart(ctx, id)
	if err != nil {
		return nil, err
	}

	line := domain.CartLine{
		ID:             uuid.NewString(),
		ProductID:      productID,
		SelectedWeight: weight,
		Quantity:       quantity,
	}
	merged := false
	if existing, ok := cart.FindLine(productID, weight); ok {
		line = *existing
		line.Quantity = existing.Quantity + quantity
		merged = true
		if line.Quantity > product.StockQuantity {
			return nil, &domain.StockError{Available: product.StockQuantity}
		}
		if line.Quantity > domain.MaxLineQuantity {
			return nil, domain.NewValidationError("quantity", "quantity must be between 1 and 20")
		}
	}

	if err := s.repo.AddLine(ctx, id, line); err != nil {
		logger.FromContext(ctx, s.log).Error("repo add line failed", zap.String("cart_id", id.Key()), zap.Error(err))
		return nil, err
	}

	s.invalidateCache(id)
	return &AddResult{CartID: id.Key(), Line: line, Merged: merged}, nil
}

// GetCart prices the cart against live product data. Lines whose product no
// longer exists are left out.
func (s *CartService) GetCart(ctx context.Context, id domain.CartIdentity) (*domain.CartSnapshot, error) {
	cart, err := s.loadCart(ctx, id)
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(cart.Lines))
	for _, l := range cart.Lines {
		ids = append(ids, l.ProductID)
	}
	products := map[string]*domain.Product{}
	if len(ids) > 0 {
		products, err = retryRead(ctx, func(ctx context.Context) (map[string]*domain.Product, error) {
			return s.products.GetProductsByIDs(ctx, ids)
		})
		if err != nil {
			return nil, err
		}
	}

	snapshot := &domain.CartSnapshot{CartID: id.Key(), Items: []domain.SnapshotLine{}}
	lines := make([]pricing.Line, 0, len(cart.Lines))
	for _, l := range cart.Lines {
		p, ok := products[l.ProductID]
		if !ok {
			continue
		}
		snapshot.Items = append(snapshot.Items, domain.SnapshotLine{
			CartItemID: l.ID,
			Product: domain.ProductSummary{
				ID:        p.ID,
				Name:      p.Name,
				ImageURL:  p.ImageURL,
				BasePrice: p.BasePrice,
			},
			Quantity:       l.Quantity,
			SelectedWeight: l.SelectedWeight,
			UnitPrice:      p.BasePrice,
			ItemTotal:      pricing.LineTotal(p.BasePrice, l.Quantity),
			MaxQuantity:    p.StockQuantity,
		})
		lines = append(lines, pricing.Line{UnitPrice: p.BasePrice, Quantity: l.Quantity})
	}

	b := s.policy.Price(lines)
	snapshot.Subtotal = b.Subtotal
	snapshot.DeliveryCharge = b.DeliveryCharge
	snapshot.Total = b.Total
	snapshot.FreeDeliveryRemaining = b.FreeDeliveryRemaining
	snapshot.ItemCount = len(snapshot.Items)
	return snapshot, nil
}

// UpdateLineQuantity sets a line's quantity. A quantity of zero or less
// removes the line and reports removed=true.
func (s *CartService) UpdateLineQuantity(ctx context.Context, id domain.CartIdentity, lineID string, quantity int) (bool, error) {
	if quantity <= 0 {
		return true, s.RemoveLine(ctx, id, lineID)
	}
	if quantity > domain.MaxLineQuantity {
		return false, domain.NewValidationError("quantity", "quantity must be between 1 and 20")
	}

	unlock := s.locks.Lock(id.Key())
	defer unlock()

	cart, err := s.readCart(ctx, id)
	if err != nil {
		return false, err
	}
	line, ok := cart.LineByID(lineID)
	if !ok {
		return false, domain.ErrCartLineNotFound
	}

	product, err := s.getProduct(ctx, line.ProductID)
	if err != nil {
		return false, err
	}
	if quantity > product.StockQuantity {
		return false, &domain.StockError{Available: product.StockQuantity}
	}

	if err := s.repo.SetLineQuantity(ctx, id, lineID, quantity); err != nil {
		logger.FromContext(ctx, s.log).Error("repo set line quantity failed", zap.String("cart_id", id.Key()), zap.Error(err))
		return false, err
	}

	s.invalidateCache(id)
	return false, nil
}

func (s *CartService) RemoveLine(ctx context.Context, id domain.CartIdentity, lineID string) error {
	unlock := s.locks.Lock(id.Key())
	defer unlock()

	if err := s.repo.RemoveLine(ctx, id, lineID); err != nil {
		logger.FromContext(ctx, s.log).Error("repo remove line failed", zap.String("cart_id", id.Key()), zap.Error(err))
		return err
	}

	s.invalidateCache(id)
	return nil
}

// ClearCart drops the whole cart. Clearing a cart that does not exist is not an error.
func (s *CartService) ClearCart(ctx context.Context, id domain.CartIdentity) error {
	unlock := s.locks.Lock(id.Key())
	defer unlock()

	err := s.repo.DeleteCart(ctx, id)
	if err != nil && !errors.Is(err, repository.ErrCartNotFound) {
		logger.FromContext(ctx, s.log).Error("repo delete cart failed", zap.String("cart_id", id.Key()), zap.Error(err))
		return err
	}

	s.invalidateCache(id)
	return nil
}

// RemoveProduct drops a deleted product from every cart. Cached carts are
// left to expire; GetCart already skips lines without a product.
func (s *CartService) RemoveProduct(ctx context.Context, productID string) error {
	if err := s.repo.RemoveProduct(ctx, productID); err != nil {
		return fmt.Errorf("remove product from carts: %w", err)
	}
	return nil
}

func (s *CartService) getProduct(ctx context.Context, productID string) (*domain.Product, error) {
	return retryRead(ctx, func(ctx context.Context) (*domain.Product, error) {
		return s.products.GetProduct(ctx, productID)
	})
}

// loadCart returns the raw cart from cache or store. A missing cart is an
// empty one.
func (s *CartService) loadCart(ctx context.Context, id domain.CartIdentity) (*domain.Cart, error) {
	// Use singleflight to prevent multiple concurrent cache misses for same key
	v, err, _ := s.sfg.Do(id.Key(), func() (interface{}, error) {
		cart, err := s.cache.Get(ctx, id)
		if err == nil {
			return cart, nil
		}
		if !errors.Is(err, cache.ErrCacheMiss) {
			logger.FromContext(ctx, s.log).Warn("cache get failed", zap.String("cart_id", id.Key()), zap.Error(err))
		}

		cart, err = s.repo.GetCart(ctx, id)
		if errors.Is(err, repository.ErrCartNotFound) {
			now := time.Now().UTC()
			return &domain.Cart{ID: id.Key(), Guest: id.IsGuest(), CreatedAt: now, UpdatedAt: now}, nil
		}
		if err != nil {
			return nil, err
		}

		// may land after a concurrent mutation's invalidation; mutations
		// therefore read through readCart, never through the cache
		setCtx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		if err := s.cache.Set(setCtx, id, cart); err != nil {
			logger.FromContext(ctx, s.log).Warn("cache set failed", zap.String("cart_id", id.Key()), zap.Error(err))
		}

		return cart, nil
	})
	if err != nil {
		return nil, err
	}

	// callers sharing a flight must not share the slice
	cart := *v.(*domain.Cart)
	cart.Lines = append([]domain.CartLine(nil), cart.Lines...)
	return &cart, nil
}

// readCart loads the cart straight from the store for a mutation. Callers
// hold the cart lock.
func (s *CartService) readCart(ctx context.Context, id domain.CartIdentity) (*domain.Cart, error) {
	cart, err := s.repo.GetCart(ctx, id)
	if errors.Is(err, repository.ErrCartNotFound) {
		now := time.Now().UTC()
		return &domain.Cart{ID: id.Key(), Guest: id.IsGuest(), CreatedAt: now, UpdatedAt: now}, nil
	}
	if err != nil {
		return nil, err
	}
	return cart, nil
}

func (s *CartService) invalidateCache(id domain.CartIdentity) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := s.cache.Delete(ctx, id); err != nil {
		s.log.Warn("cache invalidate failed", zap.String("cart_id", id.Key()), zap.Error(err))
	}
}
