package service

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/freshveggie/veggie-api/internal/cache"
	"github.com/freshveggie/veggie-api/internal/domain"
	"github.com/freshveggie/veggie-api/internal/repository"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

// MockCartRepository keeps carts in memory with the same merge semantics as
// the Mongo repository.
type MockCartRepository struct {
	mu       sync.Mutex
	carts    map[string]*domain.Cart
	GetCalls int
	AddErr   error
}

func NewMockCartRepository() *MockCartRepository {
	return &MockCartRepository{carts: map[string]*domain.Cart{}}
}

func (m *MockCartRepository) GetCart(_ context.Context, id domain.CartIdentity) (*domain.Cart, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.GetCalls++
	c, ok := m.carts[id.Key()]
	if !ok {
		return nil, repository.ErrCartNotFound
	}
	cp := *c
	cp.Lines = append([]domain.CartLine(nil), c.Lines...)
	return &cp, nil
}

func (m *MockCartRepository) AddLine(_ context.Context, id domain.CartIdentity, line domain.CartLine) error {
	if m.AddErr != nil {
		return m.AddErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.carts[id.Key()]
	if !ok {
		c = &domain.Cart{ID: id.Key(), Guest: id.IsGuest()}
		m.carts[id.Key()] = c
	}
	if existing, ok := c.FindLine(line.ProductID, line.SelectedWeight); ok {
		existing.Quantity = line.Quantity
		return nil
	}
	c.Lines = append(c.Lines, line)
	return nil
}

func (m *MockCartRepository) SetLineQuantity(_ context.Context, id domain.CartIdentity, lineID string, quantity int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.carts[id.Key()]
	if !ok {
		return domain.ErrCartLineNotFound
	}
	l, ok := c.LineByID(lineID)
	if !ok {
		return domain.ErrCartLineNotFound
	}
	l.Quantity = quantity
	return nil
}

func (m *MockCartRepository) RemoveLine(_ context.Context, id domain.CartIdentity, lineID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.carts[id.Key()]
	if !ok {
		return nil
	}
	kept := c.Lines[:0]
	for _, l := range c.Lines {
		if l.ID != lineID {
			kept = append(kept, l)
		}
	}
	c.Lines = kept
	return nil
}

func (m *MockCartRepository) RemoveProduct(_ context.Context, productID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.carts {
		kept := c.Lines[:0]
		for _, l := range c.Lines {
			if l.ProductID != productID {
				kept = append(kept, l)
			}
		}
		c.Lines = kept
	}
	return nil
}

func (m *MockCartRepository) DeleteCart(_ context.Context, id domain.CartIdentity) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.carts[id.Key()]; !ok {
		return repository.ErrCartNotFound
	}
	delete(m.carts, id.Key())
	return nil
}

func (m *MockCartRepository) DeleteCartUnchangedSince(_ context.Context, id domain.CartIdentity, cutoff time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.carts[id.Key()]
	if !ok || c.UpdatedAt.After(cutoff) {
		return repository.ErrCartNotFound
	}
	delete(m.carts, id.Key())
	return nil
}

func (m *MockCartRepository) lines(id domain.CartIdentity) []domain.CartLine {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c, ok := m.carts[id.Key()]; ok {
		return append([]domain.CartLine(nil), c.Lines...)
	}
	return nil
}

// MockCartCache is a map backed cache.CartCache.
type MockCartCache struct {
	mu      sync.Mutex
	carts   map[string]domain.Cart
	Deletes int
}

func NewMockCartCache() *MockCartCache {
	return &MockCartCache{carts: map[string]domain.Cart{}}
}

func (m *MockCartCache) Get(_ context.Context, id domain.CartIdentity) (*domain.Cart, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.carts[id.Key()]
	if !ok {
		return nil, cache.ErrCacheMiss
	}
	c.Lines = append([]domain.CartLine(nil), c.Lines...)
	return &c, nil
}

func (m *MockCartCache) Set(_ context.Context, id domain.CartIdentity, cart *domain.Cart) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := *cart
	c.Lines = append([]domain.CartLine(nil), cart.Lines...)
	m.carts[id.Key()] = c
	return nil
}

func (m *MockCartCache) Delete(_ context.Context, id domain.CartIdentity) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Deletes++
	delete(m.carts, id.Key())
	return nil
}

// MockProductRepository serves products from a map. FailReads makes the
// next reads fail with ReadErr.
type MockProductRepository struct {
	mu        sync.Mutex
	Products  map[string]*domain.Product
	ReadErr   error
	FailReads int
	Reads     int
}

func NewMockProductRepository(products ...*domain.Product) *MockProductRepository {
	m := &MockProductRepository{Products: map[string]*domain.Product{}}
	for _, p := range products {
		m.Products[p.ID] = p
	}
	return m
}

func (m *MockProductRepository) readErr() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Reads++
	if m.FailReads > 0 {
		m.FailReads--
		return m.ReadErr
	}
	return nil
}

func (m *MockProductRepository) GetProduct(_ context.Context, id string) (*domain.Product, error) {
	if err := m.readErr(); err != nil {
		return nil, err
	}
	p, ok := m.Products[id]
	if !ok {
		return nil, domain.ErrProductNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *MockProductRepository) GetProductsByIDs(_ context.Context, ids []string) (map[string]*domain.Product, error) {
	if err := m.readErr(); err != nil {
		return nil, err
	}
	out := map[string]*domain.Product{}
	for _, id := range ids {
		if p, ok := m.Products[id]; ok {
			cp := *p
			out[id] = &cp
		}
	}
	return out, nil
}

func (m *MockProductRepository) ListProducts(_ context.Context, _ repository.ProductFilter) ([]*domain.Product, int, error) {
	if err := m.readErr(); err != nil {
		return nil, 0, err
	}
	var out []*domain.Product
	for _, p := range m.Products {
		out = append(out, p)
	}
	return out, len(out), nil
}

func (m *MockProductRepository) CreateProduct(_ context.Context, p *domain.Product) error {
	m.Products[p.ID] = p
	return nil
}

func (m *MockProductRepository) UpdateProduct(_ context.Context, p *domain.Product) error {
	m.Products[p.ID] = p
	return nil
}

func (m *MockProductRepository) DeleteProduct(_ context.Context, id string) error {
	delete(m.Products, id)
	return nil
}

func (m *MockProductRepository) UpdateStock(_ context.Context, id string, quantity int) error {
	p, ok := m.Products[id]
	if !ok {
		return domain.ErrProductNotFound
	}
	p.StockQuantity = quantity
	return nil
}

func (m *MockProductRepository) CountProductsInCategory(_ context.Context, categoryID string) (int, error) {
	n := 0
	for _, p := range m.Products {
		if p.CategoryID == categoryID {
			n++
		}
	}
	return n, nil
}

// MockOrderRepository captures placed orders and status updates.
type MockOrderRepository struct {
	Orders      map[string]*domain.Order
	Placed      []*domain.Order
	PlaceErr    error
	GetCalls    int
	UpdateErr   error
	Transitions []domain.OrderStatus
}

func NewMockOrderRepository(orders ...*domain.Order) *MockOrderRepository {
	m := &MockOrderRepository{Orders: map[string]*domain.Order{}}
	for _, o := range orders {
		m.Orders[o.ID] = o
	}
	return m
}

func (m *MockOrderRepository) PlaceOrder(_ context.Context, order *domain.Order) error {
	if m.PlaceErr != nil {
		return m.PlaceErr
	}
	order.OrderNumber = "VEG0001"
	m.Placed = append(m.Placed, order)
	m.Orders[order.ID] = order
	return nil
}

func (m *MockOrderRepository) GetOrder(_ context.Context, id string) (*domain.Order, error) {
	m.GetCalls++
	o, ok := m.Orders[id]
	if !ok {
		return nil, domain.ErrOrderNotFound
	}
	cp := *o
	return &cp, nil
}

func (m *MockOrderRepository) GetOrderByNumber(_ context.Context, number string) (*domain.Order, error) {
	for _, o := range m.Orders {
		if o.OrderNumber == number {
			return o, nil
		}
	}
	return nil, domain.ErrOrderNotFound
}

func (m *MockOrderRepository) ListOrdersByPhone(_ context.Context, phone string) ([]*domain.Order, error) {
	var out []*domain.Order
	for _, o := range m.Orders {
		if o.UserPhone == phone {
			out = append(out, o)
		}
	}
	return out, nil
}

func (m *MockOrderRepository) ListOrders(_ context.Context, f repository.OrderFilter) ([]*domain.Order, error) {
	var out []*domain.Order
	for _, o := range m.Orders {
		if !f.Since.IsZero() && o.CreatedAt.Before(f.Since) {
			continue
		}
		if !f.Until.IsZero() && !o.CreatedAt.Before(f.Until) {
			continue
		}
		out = append(out, o)
	}
	return out, nil
}

func (m *MockOrderRepository) UpdateOrderStatus(_ context.Context, id string, from, to domain.OrderStatus, _ time.Time) error {
	if m.UpdateErr != nil {
		return m.UpdateErr
	}
	o, ok := m.Orders[id]
	if !ok {
		return domain.ErrOrderNotFound
	}
	if o.Status != from {
		return repository.ErrStatusConflict
	}
	o.Status = to
	m.Transitions = append(m.Transitions, to)
	return nil
}

// MockCartClearer records cleared carts.
type MockCartClearer struct {
	Cleared []domain.CartIdentity
	Err     error
}

func (m *MockCartClearer) ClearCart(_ context.Context, id domain.CartIdentity) error {
	m.Cleared = append(m.Cleared, id)
	return m.Err
}

// MockCartPurger records products removed from carts.
type MockCartPurger struct {
	Removed []string
}

func (m *MockCartPurger) RemoveProduct(_ context.Context, productID string) error {
	m.Removed = append(m.Removed, productID)
	return nil
}

// MockImageRemover records removed image URLs.
type MockImageRemover struct {
	Removed []string
}

func (m *MockImageRemover) RemoveImage(_ context.Context, url string) error {
	m.Removed = append(m.Removed, url)
	return nil
}

func testProduct(id string, price int64, stock int) *domain.Product {
	return &domain.Product{
		ID:            id,
		Name:          "Product " + id,
		CategoryID:    "cat-1",
		BasePrice:     decimal.NewFromInt(price),
		StockQuantity: stock,
		IsActive:      true,
	}
}

// seeded catalog ids from the sqlite migrations
const (
	tomatoID     = "93757282-9976-5904-b589-4cb808f97768"
	broccoliID   = "2311ff82-1b65-5e23-b9eb-b19a76f97605"
	vegetablesID = "93043c9c-bb8a-5d04-b60d-66c4a0bfe2ca"
	exoticsID    = "f288745b-79df-5344-925f-48986e0dcd1f"
)

func setupSQLite(t *testing.T) *repository.Repository {
	t.Helper()

	repo, err := repository.NewSQLiteRepository(filepath.Join(t.TempDir(), "veggie.db"))
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })

	require.NoError(t, repo.RunMigrations("../repository/migrations/sqlite"))
	return repo
}
