package service

import (
	"context"
	"time"

	"github.com/freshveggie/veggie-api/internal/domain"
	"github.com/freshveggie/veggie-api/internal/logger"
	"github.com/freshveggie/veggie-api/internal/pricing"
	"github.com/freshveggie/veggie-api/internal/repository"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const EstimatedDelivery = "30-60 minutes"

// CartClearer empties a cart once its order is placed.
type CartClearer interface {
	ClearCart(ctx context.Context, id domain.CartIdentity) error
}

type OrderService struct {
	orders   repository.OrderRepository
	products repository.ProductRepository
	carts    CartClearer
	policy   pricing.Policy
	strict   bool
	log      *zap.Logger
	now      func() time.Time
}

func NewOrderService(
	orders repository.OrderRepository,
	products repository.ProductRepository,
	carts CartClearer,
	policy pricing.Policy,
	strictTransitions bool,
	log *zap.Logger,
) *OrderService {
	return &OrderService{
		orders:   orders,
		products: products,
		carts:    carts,
		policy:   policy,
		strict:   strictTransitions,
		log:      log,
		now:      func() time.Time { return time.Now().UTC().Truncate(time.Microsecond) },
	}
}

type CheckoutResult struct {
	Order             *domain.Order
	EstimatedDelivery string
}

// Checkout validates the requested lines against current stock, prices them
// at today's prices and places the order. Stock is decremented in the same
// transaction that stores the order.
func (s *OrderService) Checkout(ctx context.Context, req domain.CheckoutRequest) (*CheckoutResult, error) {
	if len(req.CartItems) == 0 {
		return nil, domain.ErrEmptyCart
	}

	cartID, phone, err := checkoutIdentity(req.UserPhone)
	if err != nil {
		return nil, err
	}
	address := req.DeliveryAddress
	if err := address.Normalize(); err != nil {
		return nil, err
	}
	slot, err := domain.ValidateSlot(req.DeliverySlot)
	if err != nil {
		return nil, err
	}
	payment, err := domain.ValidatePaymentMethod(req.PaymentMethod)
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(req.CartItems))
	for _, item := range req.CartItems {
		if err := domain.ValidateQuantity(item.Quantity); err != nil {
			return nil, err
		}
		ids = append(ids, item.ProductID)
	}

	products, err := retryRead(ctx, func(ctx context.Context) (map[string]*domain.Product, error) {
		return s.products.GetProductsByIDs(ctx, ids)
	})
	if err != nil {
		return nil, err
	}

	items := make([]domain.OrderLine, 0, len(req.CartItems))
	lines := make([]pricing.Line, 0, len(req.CartItems))
	for _, item := range req.CartItems {
		p, ok := products[item.ProductID]
		if !ok {
			return nil, domain.ErrProductNotFound
		}
		if p.StockQuantity < item.Quantity {
			return nil, &domain.StockError{ProductName: p.Name, Available: p.StockQuantity}
		}
		items = append(items, domain.OrderLine{
			ProductID:      p.ID,
			ProductName:    p.Name,
			Quantity:       item.Quantity,
			SelectedWeight: domain.NormalizeWeight(item.SelectedWeight),
			UnitPrice:      p.BasePrice,
			ItemTotal:      pricing.LineTotal(p.BasePrice, item.Quantity),
		})
		lines = append(lines, pricing.Line{UnitPrice: p.BasePrice, Quantity: item.Quantity})
	}

	b := s.policy.Price(lines)
	order := &domain.Order{
		ID:                  uuid.NewString(),
		UserPhone:           phone,
		CustomerName:        address.Name,
		DeliveryAddress:     address,
		Items:               items,
		Subtotal:            b.Subtotal,
		DeliveryCharge:      b.DeliveryCharge,
		TotalAmount:         b.Total,
		DeliverySlot:        slot,
		PaymentMethod:       payment,
		SpecialInstructions: req.SpecialInstructions,
		Status:              domain.OrderStatusPlaced,
		CreatedAt:           s.now(),
		CartID:              cartID.Key(),
	}

	if err := s.orders.PlaceOrder(ctx, order); err != nil {
		return nil, err
	}

	log := logger.FromContext(ctx, s.log)
	log.Info("order placed",
		zap.String("order_id", order.ID),
		zap.String("order_number", order.OrderNumber),
		zap.String("total", order.TotalAmount.StringFixed(2)),
		zap.Int("lines", len(order.Items)))

	if !cartID.IsZero() {
		if err := s.carts.ClearCart(ctx, cartID); err != nil {
			log.Warn("cart clear after checkout failed",
				zap.String("order_number", order.OrderNumber),
				zap.String("cart_id", cartID.Key()),
				zap.Error(err))
		}
	}

	return &CheckoutResult{Order: order, EstimatedDelivery: EstimatedDelivery}, nil
}

// checkoutIdentity resolves the cart to clear and the phone recorded on the
// order. Guests check out with their guest token and no phone.
func checkoutIdentity(userPhone string) (domain.CartIdentity, string, error) {
	id, ok := domain.ParseCartIdentity(userPhone, "")
	if !ok {
		return domain.CartIdentity{}, "", nil
	}
	if id.IsGuest() {
		return id, "", nil
	}
	phone, err := domain.NormalizePhone(userPhone)
	if err != nil {
		return domain.CartIdentity{}, "", err
	}
	return domain.Registered(phone), phone, nil
}

// SetStatus moves an order to status. The value is checked against the
// status enum before the order is looked up.
func (s *OrderService) SetStatus(ctx context.Context, orderID, status string) (*domain.Order, error) {
	next, err := domain.ParseOrderStatus(status)
	if err != nil {
		return nil, err
	}

	order, err := s.orders.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if s.strict && !order.Status.CanTransitionTo(next) {
		return nil, domain.ErrInvalidTransition
	}

	at := s.now()
	if err := s.orders.UpdateOrderStatus(ctx, order.ID, order.Status, next, at); err != nil {
		return nil, err
	}

	logger.FromContext(ctx, s.log).Info("order status changed",
		zap.String("order_id", order.ID),
		zap.Stringer("from", order.Status),
		zap.Stringer("to", next))

	order.Status = next
	order.UpdatedAt = &at
	return order, nil
}

// History lists a customer's orders newest first.
func (s *OrderService) History(ctx context.Context, rawPhone string) (string, []*domain.Order, error) {
	phone, err := domain.NormalizePhone(rawPhone)
	if err != nil {
		return "", nil, err
	}
	orders, err := retryRead(ctx, func(ctx context.Context) ([]*domain.Order, error) {
		return s.orders.ListOrdersByPhone(ctx, phone)
	})
	if err != nil {
		return "", nil, err
	}
	return phone, orders, nil
}

func (s *OrderService) Track(ctx context.Context, orderNumber string) (*domain.Order, error) {
	return retryRead(ctx, func(ctx context.Context) (*domain.Order, error) {
		return s.orders.GetOrderByNumber(ctx, orderNumber)
	})
}

// All lists every order newest first for the back office.
func (s *OrderService) All(ctx context.Context) ([]*domain.Order, error) {
	return retryRead(ctx, func(ctx context.Context) ([]*domain.Order, error) {
		return s.orders.ListOrders(ctx, repository.OrderFilter{})
	})
}
