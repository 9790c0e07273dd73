package domain

import (
	"errors"
	"fmt"
)

var (
	ErrProductNotFound     = errors.New("product not found")
	ErrCategoryNotFound    = errors.New("category not found")
	ErrBannerNotFound      = errors.New("banner not found")
	ErrCustomerNotFound    = errors.New("customer not found")
	ErrCartLineNotFound    = errors.New("cart item not found")
	ErrOrderNotFound       = errors.New("order not found")
	ErrInsufficientStock   = errors.New("insufficient stock")
	ErrEmptyCart           = errors.New("cart is empty")
	ErrInvalidStatus       = errors.New("invalid status")
	ErrInvalidTransition   = errors.New("illegal status transition")
	ErrCategoryInUse       = errors.New("category has products")
	ErrUpstreamUnavailable = errors.New("upstream unavailable")
)

// ValidationError reports a request field that failed validation.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func NewValidationError(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

// IsNotFound reports whether err belongs to the not-found family.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrProductNotFound) ||
		errors.Is(err, ErrCategoryNotFound) ||
		errors.Is(err, ErrBannerNotFound) ||
		errors.Is(err, ErrCustomerNotFound) ||
		errors.Is(err, ErrCartLineNotFound) ||
		errors.Is(err, ErrOrderNotFound)
}

// StockError carries the available quantity along with ErrInsufficientStock.
type StockError struct {
	ProductName string
	Available   int
}

func (e *StockError) Error() string {
	if e.ProductName != "" {
		return fmt.Sprintf("insufficient stock for %s", e.ProductName)
	}
	return fmt.Sprintf("only %d items available", e.Available)
}

func (e *StockError) Unwrap() error {
	return ErrInsufficientStock
}
