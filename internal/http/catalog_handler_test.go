package http

import (
	"net/http"
	"testing"

	"github.com/freshveggie/veggie-api/internal/service"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHome(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodGet, "/home", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	home := decode[map[string]any](t, rec)
	assert.Len(t, home["banners"], 2)
	assert.Len(t, home["categories"], 4)
	assert.Len(t, home["featured_products"], 8)
	assert.EqualValues(t, 14, home["total_products"])

	info := home["app_info"].(map[string]any)
	assert.EqualValues(t, 199, info["free_delivery_above"])
	assert.EqualValues(t, 40, info["delivery_charge"])
	assert.Len(t, info["payment_methods"], 2)
}

func TestProducts_Filters(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodGet, "/products?category_id="+vegetablesID+"&sort_by=price_low&limit=3", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	page := decode[map[string]any](t, rec)
	assert.EqualValues(t, 6, page["total_count"])
	assert.Equal(t, true, page["has_more"])
	products := page["products"].([]any)
	require.Len(t, products, 3)
	assert.Equal(t, "Vegetables", products[0].(map[string]any)["category_name"])

	filters := page["filters_applied"].(map[string]any)
	assert.Equal(t, vegetablesID, filters["category_id"])
	assert.Equal(t, "price_low", filters["sort_by"])

	rec = s.do(t, http.MethodGet, "/products?featured=true&limit=100", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 8, decode[map[string]any](t, rec)["total_count"])
}

func TestProducts_BadParams(t *testing.T) {
	s := newTestServer(t)

	for _, q := range []string{"skip=x", "limit=ten", "featured=maybe"} {
		rec := s.do(t, http.MethodGet, "/products?"+q, nil, nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code, q)
	}
}

func TestProduct_Details(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodGet, "/products/"+tomatoID, nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	p := decode[map[string]any](t, rec)
	assert.Equal(t, "Tomato", p["name"])
	assert.Equal(t, "in_stock", p["stock_status"])
	assert.Equal(t, "Vegetables", p["category"].(map[string]any)["name"])

	rec = s.do(t, http.MethodGet, "/products/missing", nil, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSearch(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodGet, "/search?q=t", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	short := decode[SearchResponseDTO](t, rec)
	assert.Equal(t, "Search query too short", short.Message)
	assert.Empty(t, short.Products)

	rec = s.do(t, http.MethodGet, "/search?q=tomato", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	found := decode[SearchResponseDTO](t, rec)
	require.NotEmpty(t, found.Products)
	assert.Equal(t, "Tomato", found.Products[0].Name)
	assert.Equal(t, "tomato", found.SearchQuery)
}

func TestAdminProductLifecycle(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodPost, "/admin/products", service.ProductInput{
		Name:          "Okra",
		CategoryID:    vegetablesID,
		BasePrice:     decimal.NewFromInt(30),
		StockQuantity: 12,
	}, nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decode[map[string]any](t, rec)["product"].(map[string]any)
	id := created["id"].(string)

	price := decimal.NewFromInt(35)
	rec = s.do(t, http.MethodPut, "/admin/products/"+id, service.ProductPatch{BasePrice: &price}, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 35, decode[map[string]any](t, rec)["product"].(map[string]any)["base_price"])

	stock := 7
	rec = s.do(t, http.MethodPut, "/admin/inventory/"+id+"/stock", StockRequestDTO{StockQuantity: &stock}, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, StockResponseDTO{Message: "Stock updated to 7", NewStock: 7}, decode[StockResponseDTO](t, rec))

	rec = s.do(t, http.MethodPut, "/admin/inventory/"+id+"/stock", StockRequestDTO{}, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, http.MethodGet, "/admin/products", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]map[string]any](t, rec), 15)

	rec = s.do(t, http.MethodDelete, "/admin/products/"+id, nil, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	rec = s.do(t, http.MethodDelete, "/admin/products/"+id, nil, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAdminDeleteProduct_DropsCartLines(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodPost, "/cart/add", AddItemRequestDTO{ProductID: tomatoID, Quantity: ptr(1)}, phoneHeader())
	require.Equal(t, http.StatusOK, rec.Code)

	rec = s.do(t, http.MethodDelete, "/admin/products/"+tomatoID, nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = s.do(t, http.MethodGet, "/cart", nil, phoneHeader())
	assert.Equal(t, "Cart is empty", decode[map[string]any](t, rec)["message"])
}

func TestAdminCategories(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodPost, "/admin/categories", service.CategoryInput{Name: "Fruits"}, nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	id := decode[map[string]any](t, rec)["category"].(map[string]any)["id"].(string)

	rec = s.do(t, http.MethodDelete, "/admin/categories/"+vegetablesID, nil, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "category_in_use", decode[ErrorResponse](t, rec).Code)

	rec = s.do(t, http.MethodGet, "/admin/categories", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]map[string]any](t, rec), 5)

	rec = s.do(t, http.MethodDelete, "/admin/categories/"+id, nil, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = s.do(t, http.MethodPost, "/admin/categories", service.CategoryInput{}, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAdminBanners(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodPost, "/admin/banners", service.BannerInput{Title: "Monsoon sale"}, nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	id := decode[map[string]any](t, rec)["banner"].(map[string]any)["id"].(string)

	inactive := false
	rec = s.do(t, http.MethodPut, "/admin/banners/"+id, service.BannerInput{IsActive: &inactive}, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = s.do(t, http.MethodGet, "/banners", nil, nil)
	assert.Len(t, decode[[]map[string]any](t, rec), 2)
	rec = s.do(t, http.MethodGet, "/admin/banners", nil, nil)
	assert.Len(t, decode[[]map[string]any](t, rec), 3)

	rec = s.do(t, http.MethodDelete, "/admin/banners/"+id, nil, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	rec = s.do(t, http.MethodPut, "/admin/banners/missing", service.BannerInput{Title: "x"}, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
