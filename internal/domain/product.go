package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

func init() {
	// prices are rendered as JSON numbers, the mobile client parses them as floats
	decimal.MarshalJSONWithoutQuotes = true
}

type StockStatus string

const (
	StockInStock    StockStatus = "in_stock"
	StockLowStock   StockStatus = "low_stock"
	StockOutOfStock StockStatus = "out_of_stock"
)

var DefaultWeightOptions = []string{"250g", "500g", "1kg"}
var DefaultUnitOptions = []int{1, 2, 3, 4, 5}

type Product struct {
	ID                 string          `json:"id"`
	Name               string          `json:"name"`
	Description        string          `json:"description"`
	CategoryID         string          `json:"category_id"`
	BasePrice          decimal.Decimal `json:"base_price"`
	StockQuantity      int             `json:"stock_quantity"`
	IsActive           bool            `json:"is_active"`
	Featured           bool            `json:"featured"`
	ImageURL           string          `json:"image_url,omitempty"`
	WeightOptions      []string        `json:"weight_options"`
	UnitOptions        []int           `json:"unit_options"`
	DiscountPercentage decimal.Decimal `json:"discount_percentage"`
	CreatedAt          time.Time       `json:"created_at"`
	UpdatedAt          time.Time       `json:"updated_at"`
}

// StockStatus buckets the current stock for the product details screen.
func (p *Product) StockStatus() StockStatus {
	switch {
	case p.StockQuantity > 10:
		return StockInStock
	case p.StockQuantity > 0:
		return StockLowStock
	default:
		return StockOutOfStock
	}
}

type Category struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Description  string    `json:"description"`
	Icon         string    `json:"icon"`
	Color        string    `json:"color"`
	ImageURL     string    `json:"image_url,omitempty"`
	DisplayOrder int       `json:"display_order"`
	IsActive     bool      `json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

type Banner struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	Description  string    `json:"description"`
	ImageURL     string    `json:"image_url,omitempty"`
	LinkURL      string    `json:"link_url"`
	DisplayOrder int       `json:"display_order"`
	IsActive     bool      `json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// ImageKind names the catalog entity an uploaded image belongs to.
type ImageKind string

const (
	ImageKindProduct  ImageKind = "product"
	ImageKindCategory ImageKind = "category"
	ImageKindBanner   ImageKind = "banner"
)

func ParseImageKind(s string) (ImageKind, bool) {
	switch ImageKind(s) {
	case ImageKindProduct, ImageKindCategory, ImageKindBanner:
		return ImageKind(s), true
	}
	return "", false
}

// Folder is the storage prefix used for images of this kind.
func (k ImageKind) Folder() string {
	switch k {
	case ImageKindCategory:
		return "categories"
	case ImageKindBanner:
		return "banners"
	default:
		return "products"
	}
}
