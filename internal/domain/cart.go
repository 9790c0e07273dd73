package domain

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	MinLineQuantity = 1
	MaxLineQuantity = 20
	DefaultWeight   = "500g"
	guestPrefix     = "guest_"
)

// CartIdentity identifies a cart. A registered cart is keyed by the customer's
// phone number, a guest cart by a token handed out at guest login.
type CartIdentity struct {
	key   string
	guest bool
}

func Registered(phone string) CartIdentity {
	return CartIdentity{key: phone}
}

func Guest(token string) CartIdentity {
	return CartIdentity{key: token, guest: true}
}

// ParseCartIdentity resolves the cart headers sent by the app. The phone wins
// when both are present.
func ParseCartIdentity(userPhone, guestID string) (CartIdentity, bool) {
	userPhone = strings.TrimSpace(userPhone)
	guestID = strings.TrimSpace(guestID)
	switch {
	case userPhone != "":
		if strings.HasPrefix(userPhone, guestPrefix) {
			return Guest(userPhone), true
		}
		return Registered(userPhone), true
	case guestID != "":
		return Guest(guestID), true
	}
	return CartIdentity{}, false
}

func (c CartIdentity) Key() string   { return c.key }
func (c CartIdentity) IsGuest() bool { return c.guest }
func (c CartIdentity) IsZero() bool  { return c.key == "" }
func (c CartIdentity) String() string {
	return c.key
}

type Cart struct {
	ID        string     `bson:"_id" json:"cart_id"`
	Guest     bool       `bson:"guest" json:"guest"`
	Lines     []CartLine `bson:"lines" json:"lines"`
	CreatedAt time.Time  `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time  `bson:"updated_at" json:"updated_at"`
}

type CartLine struct {
	ID             string    `bson:"line_id" json:"id"`
	ProductID      string    `bson:"product_id" json:"product_id"`
	SelectedWeight string    `bson:"selected_weight" json:"selected_weight"`
	Quantity       int       `bson:"quantity" json:"quantity"`
	AddedAt        time.Time `bson:"added_at" json:"added_at"`
	UpdatedAt      time.Time `bson:"updated_at" json:"updated_at"`
}

// FindLine returns the line for a (product, weight) pair, if present.
func (c *Cart) FindLine(productID, weight string) (*CartLine, bool) {
	for i := range c.Lines {
		if c.Lines[i].ProductID == productID && c.Lines[i].SelectedWeight == weight {
			return &c.Lines[i], true
		}
	}
	return nil, false
}

func (c *Cart) LineByID(lineID string) (*CartLine, bool) {
	for i := range c.Lines {
		if c.Lines[i].ID == lineID {
			return &c.Lines[i], true
		}
	}
	return nil, false
}

type ProductSummary struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	ImageURL  string          `json:"image_url,omitempty"`
	BasePrice decimal.Decimal `json:"base_price"`
}

type SnapshotLine struct {
	CartItemID     string          `json:"cart_item_id"`
	Product        ProductSummary  `json:"product"`
	Quantity       int             `json:"quantity"`
	SelectedWeight string          `json:"selected_weight"`
	UnitPrice      decimal.Decimal `json:"unit_price"`
	ItemTotal      decimal.Decimal `json:"item_total"`
	MaxQuantity    int             `json:"max_quantity"`
}

// CartSnapshot is the priced view of a cart. It is derived on every read and
// never stored.
type CartSnapshot struct {
	CartID                string          `json:"cart_id,omitempty"`
	Items                 []SnapshotLine  `json:"items"`
	Subtotal              decimal.Decimal `json:"subtotal"`
	DeliveryCharge        decimal.Decimal `json:"delivery_charge"`
	Total                 decimal.Decimal `json:"total"`
	FreeDeliveryRemaining decimal.Decimal `json:"free_delivery_remaining"`
	ItemCount             int             `json:"item_count"`
}
