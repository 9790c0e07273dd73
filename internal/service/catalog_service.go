package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/freshveggie/veggie-api/internal/domain"
	"github.com/freshveggie/veggie-api/internal/logger"
	"github.com/freshveggie/veggie-api/internal/repository"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	DefaultProductLimit = 50
	MaxProductLimit     = 100
	DefaultSearchLimit  = 10
	minSearchLength     = 2

	defaultCategoryIcon  = "🥬"
	defaultCategoryColor = "#4CAF50"
	defaultBannerLink    = "/products"
)

// CartPurger removes a product from every cart.
type CartPurger interface {
	RemoveProduct(ctx context.Context, productID string) error
}

// ImageRemover deletes a stored image by its public URL.
type ImageRemover interface {
	RemoveImage(ctx context.Context, url string) error
}

type CatalogService struct {
	products repository.ProductRepository
	catalog  repository.CatalogRepository
	carts    CartPurger
	images   ImageRemover
	log      *zap.Logger
	now      func() time.Time
}

func NewCatalogService(
	products repository.ProductRepository,
	catalog repository.CatalogRepository,
	carts CartPurger,
	images ImageRemover,
	log *zap.Logger,
) *CatalogService {
	return &CatalogService{
		products: products,
		catalog:  catalog,
		carts:    carts,
		images:   images,
		log:      log,
		now:      func() time.Time { return time.Now().UTC().Truncate(time.Microsecond) },
	}
}

// ProductView is a product decorated with its category for list screens.
type ProductView struct {
	*domain.Product
	CategoryName string `json:"category_name,omitempty"`
	CategoryIcon string `json:"category_icon,omitempty"`
}

type ProductDetails struct {
	*domain.Product
	Category    *domain.Category   `json:"category,omitempty"`
	StockStatus domain.StockStatus `json:"stock_status"`
}

type ProductQuery struct {
	CategoryID string
	Search     string
	Featured   *bool
	SortBy     string
	Skip       int
	Limit      int
}

type ProductPage struct {
	Products   []ProductView
	TotalCount int
	HasMore    bool
}

type Home struct {
	Banners          []*domain.Banner
	Categories       []*domain.Category
	FeaturedProducts []*domain.Product
	TotalProducts    int
}

type SearchResult struct {
	Products   []*domain.Product
	TotalFound int
	TooShort   bool
}

func (s *CatalogService) Home(ctx context.Context) (*Home, error) {
	banners, err := s.Banners(ctx, true)
	if err != nil {
		return nil, err
	}
	categories, err := s.Categories(ctx, true)
	if err != nil {
		return nil, err
	}

	featured := true
	page, err := s.listProducts(ctx, repository.ProductFilter{ActiveOnly: true, Featured: &featured})
	if err != nil {
		return nil, err
	}
	all, err := s.listProducts(ctx, repository.ProductFilter{ActiveOnly: true, Limit: 1})
	if err != nil {
		return nil, err
	}

	return &Home{
		Banners:          banners,
		Categories:       categories,
		FeaturedProducts: page.products,
		TotalProducts:    all.total,
	}, nil
}

func (s *CatalogService) Categories(ctx context.Context, activeOnly bool) ([]*domain.Category, error) {
	return retryRead(ctx, func(ctx context.Context) ([]*domain.Category, error) {
		return s.catalog.ListCategories(ctx, activeOnly)
	})
}

func (s *CatalogService) Banners(ctx context.Context, activeOnly bool) ([]*domain.Banner, error) {
	return retryRead(ctx, func(ctx context.Context) ([]*domain.Banner, error) {
		return s.catalog.ListBanners(ctx, activeOnly)
	})
}

// ListProducts returns one page of active products with category details.
func (s *CatalogService) ListProducts(ctx context.Context, q ProductQuery) (*ProductPage, error) {
	if q.Skip < 0 {
		q.Skip = 0
	}
	if q.Limit <= 0 {
		q.Limit = DefaultProductLimit
	}
	if q.Limit > MaxProductLimit {
		q.Limit = MaxProductLimit
	}

	res, err := s.listProducts(ctx, repository.ProductFilter{
		CategoryID: q.CategoryID,
		Search:     q.Search,
		Featured:   q.Featured,
		ActiveOnly: true,
		SortBy:     q.SortBy,
		Skip:       q.Skip,
		Limit:      q.Limit,
	})
	if err != nil {
		return nil, err
	}

	categories, err := s.categoryIndex(ctx)
	if err != nil {
		return nil, err
	}

	views := make([]ProductView, 0, len(res.products))
	for _, p := range res.products {
		v := ProductView{Product: p}
		if c, ok := categories[p.CategoryID]; ok {
			v.CategoryName = c.Name
			v.CategoryIcon = c.Icon
			if v.CategoryIcon == "" {
				v.CategoryIcon = defaultCategoryIcon
			}
		}
		views = append(views, v)
	}

	return &ProductPage{
		Products:   views,
		TotalCount: res.total,
		HasMore:    q.Skip+q.Limit < res.total,
	}, nil
}

// Product returns an active product with its category and stock status.
func (s *CatalogService) Product(ctx context.Context, id string) (*ProductDetails, error) {
	p, err := retryRead(ctx, func(ctx context.Context) (*domain.Product, error) {
		return s.products.GetProduct(ctx, id)
	})
	if err != nil {
		return nil, err
	}
	if !p.IsActive {
		return nil, domain.ErrProductNotFound
	}

	details := &ProductDetails{Product: p, StockStatus: p.StockStatus()}
	c, err := retryRead(ctx, func(ctx context.Context) (*domain.Category, error) {
		return s.catalog.GetCategory(ctx, p.CategoryID)
	})
	switch {
	case err == nil:
		details.Category = c
	case !errors.Is(err, domain.ErrCategoryNotFound):
		return nil, err
	}
	return details, nil
}

// Search matches active products by name or description. Name matches are
// listed first.
func (s *CatalogService) Search(ctx context.Context, query string, limit int) (*SearchResult, error) {
	query = strings.TrimSpace(query)
	if len([]rune(query)) < minSearchLength {
		return &SearchResult{Products: []*domain.Product{}, TooShort: true}, nil
	}
	if limit <= 0 {
		limit = DefaultSearchLimit
	}

	res, err := s.listProducts(ctx, repository.ProductFilter{ActiveOnly: true, Search: query})
	if err != nil {
		return nil, err
	}

	needle := strings.ToLower(query)
	ranked := make([]*domain.Product, 0, len(res.products))
	var byDescription []*domain.Product
	for _, p := range res.products {
		if strings.Contains(strings.ToLower(p.Name), needle) {
			ranked = append(ranked, p)
		} else {
			byDescription = append(byDescription, p)
		}
	}
	ranked = append(ranked, byDescription...)
	if len(ranked) > limit {
		ranked = ranked[:limit]
	}

	return &SearchResult{Products: ranked, TotalFound: res.total}, nil
}

// AdminProducts lists every product, newest first, with its category.
func (s *CatalogService) AdminProducts(ctx context.Context) ([]ProductDetails, error) {
	res, err := s.listProducts(ctx, repository.ProductFilter{SortBy: "newest"})
	if err != nil {
		return nil, err
	}
	categories, err := s.categoryIndex(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]ProductDetails, 0, len(res.products))
	for _, p := range res.products {
		out = append(out, ProductDetails{Product: p, Category: categories[p.CategoryID], StockStatus: p.StockStatus()})
	}
	return out, nil
}

type ProductInput struct {
	Name               string          `json:"name"`
	Description        string          `json:"description"`
	CategoryID         string          `json:"category_id"`
	BasePrice          decimal.Decimal `json:"base_price"`
	StockQuantity      int             `json:"stock_quantity"`
	Featured           bool            `json:"featured"`
	IsActive           *bool           `json:"is_active"`
	WeightOptions      []string        `json:"weight_options"`
	UnitOptions        []int           `json:"unit_options"`
	DiscountPercentage decimal.Decimal `json:"discount_percentage"`
}

// ProductPatch carries the fields of a partial product update; nil fields
// are left untouched.
type ProductPatch struct {
	Name               *string          `json:"name"`
	Description        *string          `json:"description"`
	CategoryID         *string          `json:"category_id"`
	BasePrice          *decimal.Decimal `json:"base_price"`
	StockQuantity      *int             `json:"stock_quantity"`
	Featured           *bool            `json:"featured"`
	IsActive           *bool            `json:"is_active"`
	WeightOptions      []string         `json:"weight_options"`
	UnitOptions        []int            `json:"unit_options"`
	DiscountPercentage *decimal.Decimal `json:"discount_percentage"`
}

func (s *CatalogService) CreateProduct(ctx context.Context, in ProductInput) (*domain.Product, error) {
	now := s.now()
	p := &domain.Product{
		ID:                 uuid.NewString(),
		Name:               strings.TrimSpace(in.Name),
		Description:        in.Description,
		CategoryID:         in.CategoryID,
		BasePrice:          in.BasePrice,
		StockQuantity:      in.StockQuantity,
		IsActive:           in.IsActive == nil || *in.IsActive,
		Featured:           in.Featured,
		WeightOptions:      in.WeightOptions,
		UnitOptions:        in.UnitOptions,
		DiscountPercentage: in.DiscountPercentage,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	if err := s.validateProduct(ctx, p); err != nil {
		return nil, err
	}
	if p.WeightOptions == nil {
		p.WeightOptions = domain.DefaultWeightOptions
	}
	if p.UnitOptions == nil {
		p.UnitOptions = domain.DefaultUnitOptions
	}

	if err := s.products.CreateProduct(ctx, p); err != nil {
		return nil, err
	}
	logger.FromContext(ctx, s.log).Info("product created", zap.String("product_id", p.ID), zap.String("name", p.Name))
	return p, nil
}

func (s *CatalogService) UpdateProduct(ctx context.Context, id string, patch ProductPatch) (*domain.Product, error) {
	p, err := s.products.GetProduct(ctx, id)
	if err != nil {
		return nil, err
	}

	if patch.Name != nil {
		p.Name = strings.TrimSpace(*patch.Name)
	}
	if patch.Description != nil {
		p.Description = *patch.Description
	}
	if patch.CategoryID != nil {
		p.CategoryID = *patch.CategoryID
	}
	if patch.BasePrice != nil {
		p.BasePrice = *patch.BasePrice
	}
	if patch.StockQuantity != nil {
		p.StockQuantity = *patch.StockQuantity
	}
	if patch.Featured != nil {
		p.Featured = *patch.Featured
	}
	if patch.IsActive != nil {
		p.IsActive = *patch.IsActive
	}
	if patch.WeightOptions != nil {
		p.WeightOptions = patch.WeightOptions
	}
	if patch.UnitOptions != nil {
		p.UnitOptions = patch.UnitOptions
	}
	if patch.DiscountPercentage != nil {
		p.DiscountPercentage = *patch.DiscountPercentage
	}
	p.UpdatedAt = s.now()

	if err := s.validateProduct(ctx, p); err != nil {
		return nil, err
	}
	if err := s.products.UpdateProduct(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *CatalogService) validateProduct(ctx context.Context, p *domain.Product) error {
	switch {
	case p.Name == "":
		return domain.NewValidationError("name", "name is required")
	case p.BasePrice.IsNegative():
		return domain.NewValidationError("base_price", "price must not be negative")
	case p.StockQuantity < 0:
		return domain.NewValidationError("stock_quantity", "stock must not be negative")
	case p.DiscountPercentage.IsNegative() || p.DiscountPercentage.GreaterThan(decimal.NewFromInt(100)):
		return domain.NewValidationError("discount_percentage", "discount must be between 0 and 100")
	}

	_, err := s.catalog.GetCategory(ctx, p.CategoryID)
	if errors.Is(err, domain.ErrCategoryNotFound) {
		return domain.NewValidationError("category_id", "category not found")
	}
	return err
}

// DeleteProduct removes the product, its cart lines and its stored image.
// Cart and image cleanup failures are logged only.
func (s *CatalogService) DeleteProduct(ctx context.Context, id string) error {
	p, err := s.products.GetProduct(ctx, id)
	if err != nil {
		return err
	}

	log := logger.FromContext(ctx, s.log)
	if err := s.carts.RemoveProduct(ctx, id); err != nil {
		log.Warn("removing deleted product from carts failed", zap.String("product_id", id), zap.Error(err))
	}
	if err := s.products.DeleteProduct(ctx, id); err != nil {
		return err
	}
	s.removeImage(ctx, p.ImageURL)

	log.Info("product deleted", zap.String("product_id", id))
	return nil
}

func (s *CatalogService) UpdateStock(ctx context.Context, id string, quantity *int) (int, error) {
	if quantity == nil || *quantity < 0 {
		return 0, domain.NewValidationError("stock_quantity", "valid stock quantity required")
	}
	if err := s.products.UpdateStock(ctx, id, *quantity); err != nil {
		return 0, err
	}
	return *quantity, nil
}

type CategoryInput struct {
	Name         string  `json:"name"`
	Description  string  `json:"description"`
	Icon         string  `json:"icon"`
	Color        string  `json:"color"`
	DisplayOrder *int    `json:"display_order"`
	IsActive     *bool   `json:"is_active"`
	ImageURL     *string `json:"image_url"`
}

func (s *CatalogService) CreateCategory(ctx context.Context, in CategoryInput) (*domain.Category, error) {
	now := s.now()
	c := &domain.Category{
		ID:           uuid.NewString(),
		Name:         strings.TrimSpace(in.Name),
		Description:  in.Description,
		Icon:         in.Icon,
		Color:        in.Color,
		DisplayOrder: 1,
		IsActive:     in.IsActive == nil || *in.IsActive,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if c.Name == "" {
		return nil, domain.NewValidationError("name", "name is required")
	}
	if c.Icon == "" {
		c.Icon = defaultCategoryIcon
	}
	if c.Color == "" {
		c.Color = defaultCategoryColor
	}
	if in.DisplayOrder != nil {
		c.DisplayOrder = *in.DisplayOrder
	}

	if err := s.catalog.CreateCategory(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// UpdateCategory applies the non-empty fields of in.
func (s *CatalogService) UpdateCategory(ctx context.Context, id string, in CategoryInput) (*domain.Category, error) {
	c, err := s.catalog.GetCategory(ctx, id)
	if err != nil {
		return nil, err
	}
	if name := strings.TrimSpace(in.Name); name != "" {
		c.Name = name
	}
	if in.Description != "" {
		c.Description = in.Description
	}
	if in.Icon != "" {
		c.Icon = in.Icon
	}
	if in.Color != "" {
		c.Color = in.Color
	}
	if in.DisplayOrder != nil {
		c.DisplayOrder = *in.DisplayOrder
	}
	if in.IsActive != nil {
		c.IsActive = *in.IsActive
	}
	if in.ImageURL != nil {
		c.ImageURL = *in.ImageURL
	}
	c.UpdatedAt = s.now()

	if err := s.catalog.UpdateCategory(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// DeleteCategory refuses to delete a category that still has products.
func (s *CatalogService) DeleteCategory(ctx context.Context, id string) error {
	c, err := s.catalog.GetCategory(ctx, id)
	if err != nil {
		return err
	}
	n, err := s.products.CountProductsInCategory(ctx, id)
	if err != nil {
		return err
	}
	if n > 0 {
		return &CategoryInUseError{Products: n}
	}

	if err := s.catalog.DeleteCategory(ctx, id); err != nil {
		return err
	}
	s.removeImage(ctx, c.ImageURL)
	return nil
}

// CategoryInUseError reports how many products still reference a category.
type CategoryInUseError struct {
	Products int
}

func (e *CategoryInUseError) Error() string {
	return fmt.Sprintf("cannot delete category: %d products are using this category", e.Products)
}

func (e *CategoryInUseError) Unwrap() error { return domain.ErrCategoryInUse }

type BannerInput struct {
	Title        string  `json:"title"`
	Description  string  `json:"description"`
	LinkURL      string  `json:"link_url"`
	DisplayOrder *int    `json:"display_order"`
	IsActive     *bool   `json:"is_active"`
	ImageURL     *string `json:"image_url"`
}

func (s *CatalogService) CreateBanner(ctx context.Context, in BannerInput) (*domain.Banner, error) {
	now := s.now()
	b := &domain.Banner{
		ID:           uuid.NewString(),
		Title:        strings.TrimSpace(in.Title),
		Description:  in.Description,
		LinkURL:      in.LinkURL,
		DisplayOrder: 1,
		IsActive:     in.IsActive == nil || *in.IsActive,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if b.Title == "" {
		return nil, domain.NewValidationError("title", "title is required")
	}
	if b.LinkURL == "" {
		b.LinkURL = defaultBannerLink
	}
	if in.DisplayOrder != nil {
		b.DisplayOrder = *in.DisplayOrder
	}

	if err := s.catalog.CreateBanner(ctx, b); err != nil {
		return nil, err
	}
	return b, nil
}

func (s *CatalogService) UpdateBanner(ctx context.Context, id string, in BannerInput) (*domain.Banner, error) {
	b, err := s.catalog.GetBanner(ctx, id)
	if err != nil {
		return nil, err
	}
	if title := strings.TrimSpace(in.Title); title != "" {
		b.Title = title
	}
	if in.Description != "" {
		b.Description = in.Description
	}
	if in.LinkURL != "" {
		b.LinkURL = in.LinkURL
	}
	if in.DisplayOrder != nil {
		b.DisplayOrder = *in.DisplayOrder
	}
	if in.IsActive != nil {
		b.IsActive = *in.IsActive
	}
	if in.ImageURL != nil {
		b.ImageURL = *in.ImageURL
	}
	b.UpdatedAt = s.now()

	if err := s.catalog.UpdateBanner(ctx, b); err != nil {
		return nil, err
	}
	return b, nil
}

// DeleteBanner is idempotent.
func (s *CatalogService) DeleteBanner(ctx context.Context, id string) error {
	b, err := s.catalog.GetBanner(ctx, id)
	if errors.Is(err, domain.ErrBannerNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if err := s.catalog.DeleteBanner(ctx, id); err != nil && !errors.Is(err, domain.ErrBannerNotFound) {
		return err
	}
	s.removeImage(ctx, b.ImageURL)
	return nil
}

func (s *CatalogService) removeImage(ctx context.Context, url string) {
	if url == "" || s.images == nil {
		return
	}
	if err := s.images.RemoveImage(ctx, url); err != nil {
		logger.FromContext(ctx, s.log).Warn("image cleanup failed", zap.String("url", url), zap.Error(err))
	}
}

func (s *CatalogService) categoryIndex(ctx context.Context) (map[string]*domain.Category, error) {
	categories, err := s.Categories(ctx, false)
	if err != nil {
		return nil, err
	}
	idx := make(map[string]*domain.Category, len(categories))
	for _, c := range categories {
		idx[c.ID] = c
	}
	return idx, nil
}

type productList struct {
	products []*domain.Product
	total    int
}

func (s *CatalogService) listProducts(ctx context.Context, f repository.ProductFilter) (*productList, error) {
	return retryRead(ctx, func(ctx context.Context) (*productList, error) {
		products, total, err := s.products.ListProducts(ctx, f)
		if err != nil {
			return nil, err
		}
		if products == nil {
			products = []*domain.Product{}
		}
		return &productList{products: products, total: total}, nil
	})
}
