package domain

import (
	"slices"
	"strings"
)

// DigitsOnly strips everything but ASCII digits from s.
func DigitsOnly(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// NormalizePhone returns the 10 digit form of a phone number used as the
// order history key.
func NormalizePhone(phone string) (string, error) {
	digits := DigitsOnly(phone)
	if len(digits) != 10 {
		return "", NewValidationError("phone", "phone must be exactly 10 digits")
	}
	return digits, nil
}

// NormalizeLoginPhone additionally requires a mobile number prefix (6-9).
func NormalizeLoginPhone(phone string) (string, error) {
	digits, err := NormalizePhone(phone)
	if err != nil {
		return "", err
	}
	if !strings.ContainsRune("6789", rune(digits[0])) {
		return "", NewValidationError("phone", "invalid mobile phone number")
	}
	return digits, nil
}

func ValidateQuantity(qty int) error {
	if qty < MinLineQuantity || qty > MaxLineQuantity {
		return NewValidationError("quantity", "quantity must be between 1 and 20")
	}
	return nil
}

func NormalizeWeight(w string) string {
	w = strings.TrimSpace(w)
	if w == "" {
		return DefaultWeight
	}
	return w
}

// Normalize trims the address and fills defaults.
func (a *DeliveryAddress) Normalize() error {
	a.Name = strings.TrimSpace(a.Name)
	if len([]rune(a.Name)) < 2 {
		return NewValidationError("delivery_address.name", "name must be at least 2 characters")
	}
	if strings.TrimSpace(a.AddressLine) == "" {
		return NewValidationError("delivery_address.address_line", "address line is required")
	}
	if a.AddressType == "" {
		a.AddressType = "home"
	}
	return nil
}

func ValidateSlot(slot DeliverySlot) (DeliverySlot, error) {
	if slot == "" {
		return SlotTodayEvening, nil
	}
	if !slices.Contains(DeliverySlots, slot) {
		return "", NewValidationError("delivery_slot", "unknown delivery slot")
	}
	return slot, nil
}

func ValidatePaymentMethod(m PaymentMethod) (PaymentMethod, error) {
	if m == "" {
		return PaymentCOD, nil
	}
	if !slices.Contains(PaymentMethods, m) {
		return "", NewValidationError("payment_method", "unknown payment method")
	}
	return m, nil
}
