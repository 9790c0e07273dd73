package http

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/freshveggie/veggie-api/internal/domain"
	"github.com/freshveggie/veggie-api/internal/pricing"
	"github.com/freshveggie/veggie-api/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// CatalogHandler serves the storefront catalog and its back office CRUD.
type CatalogHandler struct {
	catalog *service.CatalogService
	policy  pricing.Policy
	timeout time.Duration
	log     *zap.Logger
}

func NewCatalogHandler(catalog *service.CatalogService, policy pricing.Policy, timeout time.Duration, log *zap.Logger) *CatalogHandler {
	return &CatalogHandler{catalog: catalog, policy: policy, timeout: timeout, log: log}
}

type AppInfoDTO struct {
	FreeDeliveryAbove decimal.Decimal        `json:"free_delivery_above"`
	DeliveryCharge    decimal.Decimal        `json:"delivery_charge"`
	DeliverySlots     []domain.DeliverySlot  `json:"delivery_slots"`
	PaymentMethods    []domain.PaymentMethod `json:"payment_methods"`
}

type HomeResponseDTO struct {
	Banners          []*domain.Banner   `json:"banners"`
	Categories       []*domain.Category `json:"categories"`
	FeaturedProducts []*domain.Product  `json:"featured_products"`
	TotalProducts    int                `json:"total_products"`
	AppInfo          AppInfoDTO         `json:"app_info"`
}

type FiltersDTO struct {
	CategoryID string `json:"category_id,omitempty"`
	Search     string `json:"search,omitempty"`
	Featured   *bool  `json:"featured,omitempty"`
	SortBy     string `json:"sort_by"`
}

type ProductsResponseDTO struct {
	Products       []service.ProductView `json:"products"`
	TotalCount     int                   `json:"total_count"`
	HasMore        bool                  `json:"has_more"`
	FiltersApplied FiltersDTO            `json:"filters_applied"`
}

type SearchResponseDTO struct {
	Products    []*domain.Product `json:"products"`
	TotalFound  int               `json:"total_found"`
	SearchQuery string            `json:"search_query"`
	Message     string            `json:"message,omitempty"`
}

type StockRequestDTO struct {
	StockQuantity *int `json:"stock_quantity"`
}

type StockResponseDTO struct {
	Message  string `json:"message"`
	NewStock int    `json:"new_stock"`
}

// GET /home
func (h *CatalogHandler) Home(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	home, err := h.catalog.Home(ctx)
	if err != nil {
		handleError(w, r, h.log, err)
		return
	}
	respondJSON(w, http.StatusOK, HomeResponseDTO{
		Banners:          home.Banners,
		Categories:       home.Categories,
		FeaturedProducts: home.FeaturedProducts,
		TotalProducts:    home.TotalProducts,
		AppInfo: AppInfoDTO{
			FreeDeliveryAbove: h.policy.FreeDeliveryThreshold,
			DeliveryCharge:    h.policy.DeliveryFee,
			DeliverySlots:     domain.DeliverySlots,
			PaymentMethods:    domain.PaymentMethods,
		},
	})
}

// GET /categories
func (h *CatalogHandler) Categories(w http.ResponseWriter, r *http.Request) {
	h.listCategories(w, r, true)
}

// GET /banners
func (h *CatalogHandler) Banners(w http.ResponseWriter, r *http.Request) {
	h.listBanners(w, r, true)
}

// GET /products
func (h *CatalogHandler) Products(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	q := r.URL.Query()
	query := service.ProductQuery{
		CategoryID: q.Get("category_id"),
		Search:     q.Get("search"),
		SortBy:     q.Get("sort_by"),
	}
	if query.SortBy == "" {
		query.SortBy = "name"
	}
	if v := q.Get("featured"); v != "" {
		featured, err := strconv.ParseBool(v)
		if err != nil {
			respondError(w, http.StatusBadRequest, "invalid_request", "featured must be true or false")
			return
		}
		query.Featured = &featured
	}
	var ok bool
	if query.Skip, ok = intParam(w, r, "skip"); !ok {
		return
	}
	if query.Limit, ok = intParam(w, r, "limit"); !ok {
		return
	}

	page, err := h.catalog.ListProducts(ctx, query)
	if err != nil {
		handleError(w, r, h.log, err)
		return
	}
	respondJSON(w, http.StatusOK, ProductsResponseDTO{
		Products:   page.Products,
		TotalCount: page.TotalCount,
		HasMore:    page.HasMore,
		FiltersApplied: FiltersDTO{
			CategoryID: query.CategoryID,
			Search:     query.Search,
			Featured:   query.Featured,
			SortBy:     query.SortBy,
		},
	})
}

// GET /products/{id}
func (h *CatalogHandler) Product(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	p, err := h.catalog.Product(ctx, chi.URLParam(r, "id"))
	if err != nil {
		handleError(w, r, h.log, err)
		return
	}
	respondJSON(w, http.StatusOK, p)
}

// GET /search?q=
func (h *CatalogHandler) Search(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	query := r.URL.Query().Get("q")
	limit, ok := intParam(w, r, "limit")
	if !ok {
		return
	}

	res, err := h.catalog.Search(ctx, query, limit)
	if err != nil {
		handleError(w, r, h.log, err)
		return
	}
	resp := SearchResponseDTO{Products: res.Products, TotalFound: res.TotalFound, SearchQuery: query}
	if res.TooShort {
		resp.Message = "Search query too short"
	}
	respondJSON(w, http.StatusOK, resp)
}

// GET /admin/products
func (h *CatalogHandler) AdminProducts(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	products, err := h.catalog.AdminProducts(ctx)
	if err != nil {
		handleError(w, r, h.log, err)
		return
	}
	respondJSON(w, http.StatusOK, products)
}

// POST /admin/products
func (h *CatalogHandler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var in service.ProductInput
	if !decodeJSON(w, r, &in) {
		return
	}
	p, err := h.catalog.CreateProduct(ctx, in)
	if err != nil {
		handleError(w, r, h.log, err)
		return
	}
	respondJSON(w, http.StatusCreated, map[string]any{"message": "Product created successfully", "product": p})
}

// PUT /admin/products/{id}
func (h *CatalogHandler) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var patch service.ProductPatch
	if !decodeJSON(w, r, &patch) {
		return
	}
	p, err := h.catalog.UpdateProduct(ctx, chi.URLParam(r, "id"), patch)
	if err != nil {
		handleError(w, r, h.log, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"message": "Product updated successfully", "product": p})
}

// DELETE /admin/products/{id}
func (h *CatalogHandler) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	if err := h.catalog.DeleteProduct(ctx, chi.URLParam(r, "id")); err != nil {
		handleError(w, r, h.log, err)
		return
	}
	respondMessage(w, "Product deleted successfully")
}

// PUT /admin/inventory/{id}/stock
func (h *CatalogHandler) UpdateStock(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req StockRequestDTO
	if !decodeJSON(w, r, &req) {
		return
	}
	n, err := h.catalog.UpdateStock(ctx, chi.URLParam(r, "id"), req.StockQuantity)
	if err != nil {
		handleError(w, r, h.log, err)
		return
	}
	respondJSON(w, http.StatusOK, StockResponseDTO{Message: "Stock updated to " + strconv.Itoa(n), NewStock: n})
}

// GET /admin/categories
func (h *CatalogHandler) AdminCategories(w http.ResponseWriter, r *http.Request) {
	h.listCategories(w, r, false)
}

// POST /admin/categories
func (h *CatalogHandler) CreateCategory(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var in service.CategoryInput
	if !decodeJSON(w, r, &in) {
		return
	}
	c, err := h.catalog.CreateCategory(ctx, in)
	if err != nil {
		handleError(w, r, h.log, err)
		return
	}
	respondJSON(w, http.StatusCreated, map[string]any{"message": "Category created successfully", "category": c})
}

// PUT /admin/categories/{id}
func (h *CatalogHandler) UpdateCategory(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var in service.CategoryInput
	if !decodeJSON(w, r, &in) {
		return
	}
	c, err := h.catalog.UpdateCategory(ctx, chi.URLParam(r, "id"), in)
	if err != nil {
		handleError(w, r, h.log, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"message": "Category updated successfully", "category": c})
}

// DELETE /admin/categories/{id}
func (h *CatalogHandler) DeleteCategory(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	if err := h.catalog.DeleteCategory(ctx, chi.URLParam(r, "id")); err != nil {
		handleError(w, r, h.log, err)
		return
	}
	respondMessage(w, "Category deleted successfully")
}

// GET /admin/banners
func (h *CatalogHandler) AdminBanners(w http.ResponseWriter, r *http.Request) {
	h.listBanners(w, r, false)
}

// POST /admin/banners
func (h *CatalogHandler) CreateBanner(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var in service.BannerInput
	if !decodeJSON(w, r, &in) {
		return
	}
	b, err := h.catalog.CreateBanner(ctx, in)
	if err != nil {
		handleError(w, r, h.log, err)
		return
	}
	respondJSON(w, http.StatusCreated, map[string]any{"message": "Banner created successfully", "banner": b})
}

// PUT /admin/banners/{id}
func (h *CatalogHandler) UpdateBanner(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var in service.BannerInput
	if !decodeJSON(w, r, &in) {
		return
	}
	b, err := h.catalog.UpdateBanner(ctx, chi.URLParam(r, "id"), in)
	if err != nil {
		handleError(w, r, h.log, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"message": "Banner updated successfully", "banner": b})
}

// DELETE /admin/banners/{id}
func (h *CatalogHandler) DeleteBanner(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	if err := h.catalog.DeleteBanner(ctx, chi.URLParam(r, "id")); err != nil {
		handleError(w, r, h.log, err)
		return
	}
	respondMessage(w, "Banner deleted successfully")
}

func (h *CatalogHandler) listCategories(w http.ResponseWriter, r *http.Request, activeOnly bool) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	categories, err := h.catalog.Categories(ctx, activeOnly)
	if err != nil {
		handleError(w, r, h.log, err)
		return
	}
	if categories == nil {
		categories = []*domain.Category{}
	}
	respondJSON(w, http.StatusOK, categories)
}

func (h *CatalogHandler) listBanners(w http.ResponseWriter, r *http.Request, activeOnly bool) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	banners, err := h.catalog.Banners(ctx, activeOnly)
	if err != nil {
		handleError(w, r, h.log, err)
		return
	}
	if banners == nil {
		banners = []*domain.Banner{}
	}
	respondJSON(w, http.StatusOK, banners)
}

// intParam parses an optional integer query parameter; absent means 0.
func intParam(w http.ResponseWriter, r *http.Request, name string) (int, bool) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return 0, true
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", name+" must be an integer")
		return 0, false
	}
	return n, true
}
