package repository

import (
	"context"
	"sync"
	"time"

	"github.com/freshveggie/veggie-api/internal/domain"
)

// MemoryCartRepository keeps carts in process memory. Guest carts expire
// guestTTL after their last change, like the Mongo TTL index.
type MemoryCartRepository struct {
	mu       sync.Mutex
	carts    map[string]*domain.Cart
	guestTTL time.Duration
	now      func() time.Time
}

func NewMemoryCartRepository(guestTTL time.Duration) *MemoryCartRepository {
	return &MemoryCartRepository{
		carts:    map[string]*domain.Cart{},
		guestTTL: guestTTL,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// lookup returns the live cart for key. Caller holds mu.
func (m *MemoryCartRepository) lookup(key string) (*domain.Cart, bool) {
	c, ok := m.carts[key]
	if !ok {
		return nil, false
	}
	if c.Guest && m.guestTTL > 0 && m.now().Sub(c.UpdatedAt) > m.guestTTL {
		delete(m.carts, key)
		return nil, false
	}
	return c, true
}

func (m *MemoryCartRepository) GetCart(_ context.Context, id domain.CartIdentity) (*domain.Cart, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	c, ok := m.lookup(id.Key())
	if !ok {
		return nil, ErrCartNotFound
	}
	cp := *c
	cp.Lines = append([]domain.CartLine(nil), c.Lines...)
	return &cp, nil
}

func (m *MemoryCartRepository) AddLine(_ context.Context, id domain.CartIdentity, line domain.CartLine) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	c, ok := m.lookup(id.Key())
	if !ok {
		c = &domain.Cart{ID: id.Key(), Guest: id.IsGuest(), CreatedAt: now}
		m.carts[id.Key()] = c
	}
	c.UpdatedAt = now

	if existing, ok := c.FindLine(line.ProductID, line.SelectedWeight); ok {
		existing.Quantity = line.Quantity
		existing.UpdatedAt = now
		return nil
	}
	line.AddedAt = now
	line.UpdatedAt = now
	c.Lines = append(c.Lines, line)
	return nil
}

func (m *MemoryCartRepository) SetLineQuantity(_ context.Context, id domain.CartIdentity, lineID string, quantity int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	c, ok := m.lookup(id.Key())
	if !ok {
		return domain.ErrCartLineNotFound
	}
	l, ok := c.LineByID(lineID)
	if !ok {
		return domain.ErrCartLineNotFound
	}
	now := m.now()
	l.Quantity = quantity
	l.UpdatedAt = now
	c.UpdatedAt = now
	return nil
}

func (m *MemoryCartRepository) RemoveLine(_ context.Context, id domain.CartIdentity, lineID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if c, ok := m.lookup(id.Key()); ok {
		c.Lines = dropLines(c.Lines, func(l domain.CartLine) bool { return l.ID == lineID })
		c.UpdatedAt = m.now()
	}
	return nil
}

func (m *MemoryCartRepository) RemoveProduct(_ context.Context, productID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, c := range m.carts {
		c.Lines = dropLines(c.Lines, func(l domain.CartLine) bool { return l.ProductID == productID })
	}
	return nil
}

func (m *MemoryCartRepository) DeleteCart(_ context.Context, id domain.CartIdentity) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.lookup(id.Key()); !ok {
		return ErrCartNotFound
	}
	delete(m.carts, id.Key())
	return nil
}

func (m *MemoryCartRepository) DeleteCartUnchangedSince(_ context.Context, id domain.CartIdentity, cutoff time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	c, ok := m.lookup(id.Key())
	if !ok || c.UpdatedAt.After(cutoff) {
		return ErrCartNotFound
	}
	delete(m.carts, id.Key())
	return nil
}

func dropLines(lines []domain.CartLine, drop func(domain.CartLine) bool) []domain.CartLine {
	kept := lines[:0]
	for _, l := range lines {
		if !drop(l) {
			kept = append(kept, l)
		}
	}
	return kept
}
