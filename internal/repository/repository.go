package repository

import (
	"context"
	"errors"
	"time"

	"github.com/freshveggie/veggie-api/internal/domain"
)

var (
	ErrCartNotFound   = errors.New("cart not found")
	ErrStatusConflict = errors.New("order status changed concurrently")
)

const (
	EventOrderPlaced        = "order_placed"
	EventOrderStatusChanged = "order_status_changed"
)

// CartRepository stores cart documents keyed by cart identity.
type CartRepository interface {
	GetCart(ctx context.Context, id domain.CartIdentity) (*domain.Cart, error)
	AddLine(ctx context.Context, id domain.CartIdentity, line domain.CartLine) error
	SetLineQuantity(ctx context.Context, id domain.CartIdentity, lineID string, quantity int) error
	RemoveLine(ctx context.Context, id domain.CartIdentity, lineID string) error
	RemoveProduct(ctx context.Context, productID string) error
	DeleteCart(ctx context.Context, id domain.CartIdentity) error
	// DeleteCartUnchangedSince deletes the cart only when its last change is
	// at or before cutoff. ErrCartNotFound covers both a missing and a newer cart.
	DeleteCartUnchangedSince(ctx context.Context, id domain.CartIdentity, cutoff time.Time) error
}

type ProductFilter struct {
	CategoryID string
	Search     string
	Featured   *bool
	ActiveOnly bool
	SortBy     string // name, price_low, price_high, popular, newest
	Skip       int
	Limit      int // 0 means no limit
}

type ProductRepository interface {
	GetProduct(ctx context.Context, id string) (*domain.Product, error)
	GetProductsByIDs(ctx context.Context, ids []string) (map[string]*domain.Product, error)
	ListProducts(ctx context.Context, f ProductFilter) ([]*domain.Product, int, error)
	CreateProduct(ctx context.Context, p *domain.Product) error
	UpdateProduct(ctx context.Context, p *domain.Product) error
	DeleteProduct(ctx context.Context, id string) error
	UpdateStock(ctx context.Context, id string, quantity int) error
	CountProductsInCategory(ctx context.Context, categoryID string) (int, error)
}

type CatalogRepository interface {
	ListCategories(ctx context.Context, activeOnly bool) ([]*domain.Category, error)
	GetCategory(ctx context.Context, id string) (*domain.Category, error)
	CreateCategory(ctx context.Context, c *domain.Category) error
	UpdateCategory(ctx context.Context, c *domain.Category) error
	DeleteCategory(ctx context.Context, id string) error

	ListBanners(ctx context.Context, activeOnly bool) ([]*domain.Banner, error)
	GetBanner(ctx context.Context, id string) (*domain.Banner, error)
	CreateBanner(ctx context.Context, b *domain.Banner) error
	UpdateBanner(ctx context.Context, b *domain.Banner) error
	DeleteBanner(ctx context.Context, id string) error

	SetImageURL(ctx context.Context, kind domain.ImageKind, id, url string) error
}

type CustomerRepository interface {
	GetCustomer(ctx context.Context, phone string) (*domain.Customer, error)
	// RecordLogin creates the customer on first login and bumps the login
	// counter otherwise. The bool reports whether the customer was created.
	RecordLogin(ctx context.Context, phone, name string, at time.Time) (*domain.Customer, bool, error)
	ListCustomers(ctx context.Context) ([]*domain.Customer, error)
	ListAddresses(ctx context.Context, phone string) ([]*domain.Address, error)
	CreateAddress(ctx context.Context, a *domain.Address) error
}

// OrderFilter bounds ListOrders by creation time; zero values are open ends.
type OrderFilter struct {
	Since time.Time
	Until time.Time
}

type OrderRepository interface {
	// PlaceOrder assigns the order number, decrements stock, stores the order
	// and queues an order_placed event in one transaction.
	PlaceOrder(ctx context.Context, order *domain.Order) error
	GetOrder(ctx context.Context, id string) (*domain.Order, error)
	GetOrderByNumber(ctx context.Context, number string) (*domain.Order, error)
	ListOrdersByPhone(ctx context.Context, phone string) ([]*domain.Order, error)
	ListOrders(ctx context.Context, f OrderFilter) ([]*domain.Order, error)
	// UpdateOrderStatus moves the order from one status to another and fails
	// with ErrStatusConflict when the stored status is no longer from.
	UpdateOrderStatus(ctx context.Context, id string, from, to domain.OrderStatus, at time.Time) error
}

type OutboxEvent struct {
	ID          string
	AggregateId string
	EventType   string
	Payload     []byte
	CreatedAt   time.Time
}

type OutboxRepository interface {
	GetUnprocessedEvents(ctx context.Context, limit int) ([]*OutboxEvent, error)
	MarkEventAsProcessed(ctx context.Context, id string) error
}
