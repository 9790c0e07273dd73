package service

import (
	"context"
	"strings"
	"time"

	"github.com/freshveggie/veggie-api/internal/domain"
	"github.com/freshveggie/veggie-api/internal/logger"
	"github.com/freshveggie/veggie-api/internal/repository"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	defaultCustomerName = "User"
	guestName           = "Guest User"
)

var GuestLimitations = []string{"Cannot save addresses", "Cannot view order history"}

type CustomerService struct {
	customers repository.CustomerRepository
	orders    repository.OrderRepository
	log       *zap.Logger
	now       func() time.Time
}

func NewCustomerService(customers repository.CustomerRepository, orders repository.OrderRepository, log *zap.Logger) *CustomerService {
	return &CustomerService{
		customers: customers,
		orders:    orders,
		log:       log,
		now:       func() time.Time { return time.Now().UTC().Truncate(time.Microsecond) },
	}
}

type LoginResult struct {
	Customer    *domain.Customer
	Returning   bool
	TotalOrders int
}

// LoginPhone signs a customer in by phone number alone, creating the account
// on first use.
func (s *CustomerService) LoginPhone(ctx context.Context, rawPhone, name string) (*LoginResult, error) {
	phone, err := domain.NormalizeLoginPhone(rawPhone)
	if err != nil {
		return nil, err
	}
	name = strings.TrimSpace(name)
	if name == "" {
		name = defaultCustomerName
	}

	c, created, err := s.customers.RecordLogin(ctx, phone, name, s.now())
	if err != nil {
		return nil, err
	}

	res := &LoginResult{Customer: c, Returning: !created}
	if !created {
		orders, err := s.orders.ListOrdersByPhone(ctx, phone)
		if err != nil {
			return nil, err
		}
		res.TotalOrders = len(orders)
	}

	logger.FromContext(ctx, s.log).Info("customer login",
		zap.String("user_id", c.ID),
		zap.Bool("returning", res.Returning))
	return res, nil
}

// LoginGuest mints a guest identity. Nothing is stored until the guest adds
// to a cart.
func (s *CustomerService) LoginGuest() domain.CartIdentity {
	return NewGuestIdentity()
}

// Addresses lists saved addresses newest first.
func (s *CustomerService) Addresses(ctx context.Context, rawPhone string) ([]*domain.Address, error) {
	phone, err := domain.NormalizePhone(rawPhone)
	if err != nil {
		return nil, err
	}
	addresses, err := retryRead(ctx, func(ctx context.Context) ([]*domain.Address, error) {
		return s.customers.ListAddresses(ctx, phone)
	})
	if err != nil {
		return nil, err
	}
	if addresses == nil {
		addresses = []*domain.Address{}
	}
	return addresses, nil
}

func (s *CustomerService) SaveAddress(ctx context.Context, userPhone string, address domain.DeliveryAddress) (*domain.Address, error) {
	userPhone = strings.TrimSpace(userPhone)
	if userPhone == "" {
		return nil, domain.NewValidationError("User-Phone", "user phone required")
	}
	if strings.HasPrefix(userPhone, "guest_") {
		return nil, domain.NewValidationError("User-Phone", "guests cannot save addresses")
	}
	phone, err := domain.NormalizePhone(userPhone)
	if err != nil {
		return nil, err
	}
	if err := address.Normalize(); err != nil {
		return nil, err
	}

	a := &domain.Address{
		ID:              uuid.NewString(),
		UserPhone:       phone,
		DeliveryAddress: address,
		CreatedAt:       s.now(),
	}
	if err := s.customers.CreateAddress(ctx, a); err != nil {
		return nil, err
	}
	return a, nil
}
