// Package pricing computes cart and order totals. The same Policy prices the
// cart preview and the order written at checkout.
package pricing

import "github.com/shopspring/decimal"

var (
	DefaultFreeDeliveryThreshold = decimal.NewFromInt(199)
	DefaultDeliveryFee           = decimal.NewFromInt(40)
)

type Policy struct {
	FreeDeliveryThreshold decimal.Decimal
	DeliveryFee           decimal.Decimal
}

func DefaultPolicy() Policy {
	return Policy{
		FreeDeliveryThreshold: DefaultFreeDeliveryThreshold,
		DeliveryFee:           DefaultDeliveryFee,
	}
}

type Line struct {
	UnitPrice decimal.Decimal
	Quantity  int
}

type Breakdown struct {
	Subtotal              decimal.Decimal
	DeliveryCharge        decimal.Decimal
	Total                 decimal.Decimal
	FreeDeliveryRemaining decimal.Decimal
}

// LineTotal is unit price times quantity, rounded to paise.
func LineTotal(unitPrice decimal.Decimal, quantity int) decimal.Decimal {
	return unitPrice.Mul(decimal.NewFromInt(int64(quantity))).Round(2)
}

// Price applies the delivery policy to the given lines. The threshold is
// inclusive: a subtotal equal to it ships free.
func (p Policy) Price(lines []Line) Breakdown {
	subtotal := decimal.Zero
	for _, l := range lines {
		subtotal = subtotal.Add(LineTotal(l.UnitPrice, l.Quantity))
	}

	delivery := p.DeliveryFee
	if subtotal.GreaterThanOrEqual(p.FreeDeliveryThreshold) {
		delivery = decimal.Zero
	}

	remaining := p.FreeDeliveryThreshold.Sub(subtotal)
	if remaining.IsNegative() {
		remaining = decimal.Zero
	}

	return Breakdown{
		Subtotal:              subtotal,
		DeliveryCharge:        delivery,
		Total:                 subtotal.Add(delivery),
		FreeDeliveryRemaining: remaining,
	}
}

// Price prices lines with the default policy.
func Price(lines []Line) Breakdown {
	return DefaultPolicy().Price(lines)
}
