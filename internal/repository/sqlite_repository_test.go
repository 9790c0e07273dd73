package repository

import (
	"context"
	"encoding/json"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/freshveggie/veggie-api/internal/domain"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	tomatoID     = "93757282-9976-5904-b589-4cb808f97768"
	broccoliID   = "2311ff82-1b65-5e23-b9eb-b19a76f97605"
	vegetablesID = "93043c9c-bb8a-5d04-b60d-66c4a0bfe2ca"
)

func setupSQLite(t *testing.T) *Repository {
	t.Helper()

	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "veggie.db"))
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })

	require.NoError(t, repo.RunMigrations("./migrations/sqlite"))
	return repo
}

func newTestOrder(phone string, items ...domain.OrderLine) *domain.Order {
	subtotal := decimal.Zero
	for _, it := range items {
		subtotal = subtotal.Add(it.ItemTotal)
	}
	return &domain.Order{
		ID:           uuid.NewString(),
		UserPhone:    phone,
		CustomerName: "Asha",
		DeliveryAddress: domain.DeliveryAddress{
			Name:        "Asha",
			Phone:       phone,
			AddressLine: "12 MG Road",
			Area:        "Indiranagar",
			Pincode:     "560038",
			AddressType: "home",
		},
		Items:          items,
		Subtotal:       subtotal,
		DeliveryCharge: decimal.NewFromInt(40),
		TotalAmount:    subtotal.Add(decimal.NewFromInt(40)),
		DeliverySlot:   domain.SlotTodayEvening,
		PaymentMethod:  domain.PaymentCOD,
		Status:         domain.OrderStatusPlaced,
		CreatedAt:      now(),
	}
}

func tomatoLine(qty int) domain.OrderLine {
	return domain.OrderLine{
		ProductID:      tomatoID,
		ProductName:    "Tomato",
		Quantity:       qty,
		SelectedWeight: "500g",
		UnitPrice:      decimal.NewFromInt(40),
		ItemTotal:      decimal.NewFromInt(int64(40 * qty)),
	}
}

func TestMigrations_SeedCatalog(t *testing.T) {
	repo := setupSQLite(t)
	ctx := context.Background()

	products, total, err := repo.ListProducts(ctx, ProductFilter{ActiveOnly: true})
	require.NoError(t, err)
	assert.Equal(t, 14, total)
	assert.Len(t, products, 14)

	categories, err := repo.ListCategories(ctx, true)
	require.NoError(t, err)
	assert.Len(t, categories, 4)

	banners, err := repo.ListBanners(ctx, true)
	require.NoError(t, err)
	assert.Len(t, banners, 2)
}

func TestGetProduct(t *testing.T) {
	repo := setupSQLite(t)
	ctx := context.Background()

	p, err := repo.GetProduct(ctx, tomatoID)
	require.NoError(t, err)
	assert.Equal(t, "Tomato", p.Name)
	assert.True(t, p.BasePrice.Equal(decimal.NewFromInt(40)))
	assert.Equal(t, 40, p.StockQuantity)
	assert.Equal(t, domain.DefaultWeightOptions, p.WeightOptions)

	_, err = repo.GetProduct(ctx, uuid.NewString())
	assert.ErrorIs(t, err, domain.ErrProductNotFound)
}

func TestGetProductsByIDs_SkipsUnknown(t *testing.T) {
	repo := setupSQLite(t)

	got, err := repo.GetProductsByIDs(context.Background(), []string{tomatoID, broccoliID, "missing"})
	require.NoError(t, err)
	assert.Len(t, got, 2)
	assert.Equal(t, "Broccoli", got[broccoliID].Name)
}

func TestListProducts_FilterSortPage(t *testing.T) {
	repo := setupSQLite(t)
	ctx := context.Background()
	featured := true

	t.Run("featured", func(t *testing.T) {
		products, total, err := repo.ListProducts(ctx, ProductFilter{ActiveOnly: true, Featured: &featured})
		require.NoError(t, err)
		assert.Equal(t, 8, total)
		for _, p := range products {
			assert.True(t, p.Featured)
		}
	})

	t.Run("price ascending", func(t *testing.T) {
		products, _, err := repo.ListProducts(ctx, ProductFilter{ActiveOnly: true, SortBy: "price_low"})
		require.NoError(t, err)
		for i := 1; i < len(products); i++ {
			assert.True(t, products[i-1].BasePrice.LessThanOrEqual(products[i].BasePrice))
		}
	})

	t.Run("search is case insensitive", func(t *testing.T) {
		products, total, err := repo.ListProducts(ctx, ProductFilter{ActiveOnly: true, Search: "TOMA"})
		require.NoError(t, err)
		require.Equal(t, 1, total)
		assert.Equal(t, tomatoID, products[0].ID)
	})

	t.Run("page keeps total", func(t *testing.T) {
		products, total, err := repo.ListProducts(ctx, ProductFilter{ActiveOnly: true, Skip: 10, Limit: 10})
		require.NoError(t, err)
		assert.Equal(t, 14, total)
		assert.Len(t, products, 4)
	})
}

func TestProductCRUD(t *testing.T) {
	repo := setupSQLite(t)
	ctx := context.Background()
	ts := now()

	p := &domain.Product{
		ID:                 uuid.NewString(),
		Name:               "Okra",
		Description:        "Tender lady finger",
		CategoryID:         vegetablesID,
		BasePrice:          decimal.RequireFromString("35.50"),
		StockQuantity:      12,
		IsActive:           true,
		DiscountPercentage: decimal.Zero,
		CreatedAt:          ts,
		UpdatedAt:          ts,
	}
	require.NoError(t, repo.CreateProduct(ctx, p))

	got, err := repo.GetProduct(ctx, p.ID)
	require.NoError(t, err)
	assert.True(t, got.BasePrice.Equal(p.BasePrice))
	assert.Equal(t, domain.DefaultUnitOptions, got.UnitOptions)

	p.Name = "Okra (Bhindi)"
	p.UpdatedAt = now()
	require.NoError(t, repo.UpdateProduct(ctx, p))

	require.NoError(t, repo.UpdateStock(ctx, p.ID, 0))
	got, err = repo.GetProduct(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "Okra (Bhindi)", got.Name)
	assert.Equal(t, 0, got.StockQuantity)

	require.NoError(t, repo.DeleteProduct(ctx, p.ID))
	assert.ErrorIs(t, repo.DeleteProduct(ctx, p.ID), domain.ErrProductNotFound)
	assert.ErrorIs(t, repo.UpdateStock(ctx, p.ID, 3), domain.ErrProductNotFound)
}

func TestCategoryAndBanner(t *testing.T) {
	repo := setupSQLite(t)
	ctx := context.Background()
	ts := now()

	n, err := repo.CountProductsInCategory(ctx, vegetablesID)
	require.NoError(t, err)
	assert.Greater(t, n, 0)

	c := &domain.Category{ID: uuid.NewString(), Name: "Herbs", Icon: "🌿", Color: "#4CAF50", DisplayOrder: 9, IsActive: true, CreatedAt: ts, UpdatedAt: ts}
	require.NoError(t, repo.CreateCategory(ctx, c))
	require.NoError(t, repo.SetImageURL(ctx, domain.ImageKindCategory, c.ID, "/uploads/categories/x.png"))

	got, err := repo.GetCategory(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, "/uploads/categories/x.png", got.ImageURL)

	require.NoError(t, repo.SetImageURL(ctx, domain.ImageKindCategory, c.ID, ""))
	got, err = repo.GetCategory(ctx, c.ID)
	require.NoError(t, err)
	assert.Empty(t, got.ImageURL)

	require.NoError(t, repo.DeleteCategory(ctx, c.ID))
	_, err = repo.GetCategory(ctx, c.ID)
	assert.ErrorIs(t, err, domain.ErrCategoryNotFound)

	b := &domain.Banner{ID: uuid.NewString(), Title: "Monsoon sale", LinkURL: "/products", DisplayOrder: 3, IsActive: false, CreatedAt: ts, UpdatedAt: ts}
	require.NoError(t, repo.CreateBanner(ctx, b))

	active, err := repo.ListBanners(ctx, true)
	require.NoError(t, err)
	all, err := repo.ListBanners(ctx, false)
	require.NoError(t, err)
	assert.Len(t, all, len(active)+1)

	assert.ErrorIs(t, repo.SetImageURL(ctx, domain.ImageKindBanner, "missing", "x"), domain.ErrBannerNotFound)
}

func TestRecordLogin(t *testing.T) {
	repo := setupSQLite(t)
	ctx := context.Background()

	c, created, err := repo.RecordLogin(ctx, "9876543210", "Asha", now())
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, 1, c.LoginCount)

	later := now().Add(time.Minute)
	c, created, err = repo.RecordLogin(ctx, "9876543210", "Ignored", later)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, 2, c.LoginCount)
	assert.Equal(t, "Asha", c.Name)
	assert.True(t, c.LastLoginAt.Equal(later))

	_, err = repo.GetCustomer(ctx, "9000000000")
	assert.ErrorIs(t, err, domain.ErrCustomerNotFound)
}

func TestAddresses_NewestFirst(t *testing.T) {
	repo := setupSQLite(t)
	ctx := context.Background()
	base := now()

	for i, line := range []string{"first", "second"} {
		a := &domain.Address{
			ID:              uuid.NewString(),
			UserPhone:       "9876543210",
			DeliveryAddress: domain.DeliveryAddress{Name: "Asha", AddressLine: line, AddressType: "home"},
			CreatedAt:       base.Add(time.Duration(i) * time.Second),
		}
		require.NoError(t, repo.CreateAddress(ctx, a))
	}

	got, err := repo.ListAddresses(ctx, "9876543210")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "second", got[0].AddressLine)
}

func TestPlaceOrder_DecrementsStockAndQueuesEvent(t *testing.T) {
	repo := setupSQLite(t)
	ctx := context.Background()

	order := newTestOrder("9876543210", tomatoLine(3))
	require.NoError(t, repo.PlaceOrder(ctx, order))
	assert.Equal(t, "VEG0001", order.OrderNumber)

	p, err := repo.GetProduct(ctx, tomatoID)
	require.NoError(t, err)
	assert.Equal(t, 37, p.StockQuantity)

	fetched, err := repo.GetOrder(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, order.OrderNumber, fetched.OrderNumber)
	assert.Equal(t, order.DeliveryAddress, fetched.DeliveryAddress)
	require.Len(t, fetched.Items, 1)
	assert.True(t, fetched.TotalAmount.Equal(decimal.NewFromInt(160)))
	assert.Nil(t, fetched.UpdatedAt)

	byNumber, err := repo.GetOrderByNumber(ctx, "VEG0001")
	require.NoError(t, err)
	assert.Equal(t, order.ID, byNumber.ID)

	events, err := repo.GetUnprocessedEvents(ctx, 10)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, EventOrderPlaced, events[0].EventType)
	assert.Equal(t, order.ID, events[0].AggregateId)

	var placed domain.OrderPlacedEvent
	require.NoError(t, json.Unmarshal(events[0].Payload, &placed))
	assert.Equal(t, "VEG0001", placed.OrderNumber)
	assert.Equal(t, []domain.StockMovement{{ProductID: tomatoID, Quantity: 3}}, placed.Stock)

	require.NoError(t, repo.MarkEventAsProcessed(ctx, events[0].ID))
	events, err = repo.GetUnprocessedEvents(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestPlaceOrder_NumbersAreSequential(t *testing.T) {
	repo := setupSQLite(t)
	ctx := context.Background()

	for _, want := range []string{"VEG0001", "VEG0002", "VEG0003"} {
		order := newTestOrder("9876543210", tomatoLine(1))
		require.NoError(t, repo.PlaceOrder(ctx, order))
		assert.Equal(t, want, order.OrderNumber)
	}
}

func TestPlaceOrder_InsufficientStockRollsBack(t *testing.T) {
	repo := setupSQLite(t)
	ctx := context.Background()

	broccoli := domain.OrderLine{
		ProductID: broccoliID, ProductName: "Broccoli", Quantity: 11, SelectedWeight: "500g",
		UnitPrice: decimal.NewFromInt(120), ItemTotal: decimal.NewFromInt(1320),
	}
	order := newTestOrder("9876543210", tomatoLine(2), broccoli)

	err := repo.PlaceOrder(ctx, order)
	require.ErrorIs(t, err, domain.ErrInsufficientStock)
	assert.Contains(t, err.Error(), "Broccoli")

	p, err := repo.GetProduct(ctx, tomatoID)
	require.NoError(t, err)
	assert.Equal(t, 40, p.StockQuantity, "tomato decrement must roll back")

	_, err = repo.GetOrder(ctx, order.ID)
	assert.ErrorIs(t, err, domain.ErrOrderNotFound)

	// the counter rolled back as well
	next := newTestOrder("9876543210", tomatoLine(1))
	require.NoError(t, repo.PlaceOrder(ctx, next))
	assert.Equal(t, "VEG0001", next.OrderNumber)
}

func TestPlaceOrder_ConcurrentCheckoutsNeverOversell(t *testing.T) {
	repo := setupSQLite(t)
	ctx := context.Background()

	// broccoli has 10 in stock; 8 buyers of 2 each can only partly succeed
	var wg sync.WaitGroup
	results := make(chan error, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			line := domain.OrderLine{
				ProductID: broccoliID, ProductName: "Broccoli", Quantity: 2, SelectedWeight: "500g",
				UnitPrice: decimal.NewFromInt(120), ItemTotal: decimal.NewFromInt(240),
			}
			results <- repo.PlaceOrder(ctx, newTestOrder("9876543210", line))
		}()
	}
	wg.Wait()
	close(results)

	succeeded := 0
	for err := range results {
		if err == nil {
			succeeded++
			continue
		}
		assert.ErrorIs(t, err, domain.ErrInsufficientStock)
	}
	assert.Equal(t, 5, succeeded)

	p, err := repo.GetProduct(ctx, broccoliID)
	require.NoError(t, err)
	assert.Equal(t, 0, p.StockQuantity)
}

func TestListOrders(t *testing.T) {
	repo := setupSQLite(t)
	ctx := context.Background()

	first := newTestOrder("9876543210", tomatoLine(1))
	first.CreatedAt = now().Add(-48 * time.Hour)
	second := newTestOrder("9876543210", tomatoLine(1))
	other := newTestOrder("9123456789", tomatoLine(1))
	for _, o := range []*domain.Order{first, second, other} {
		require.NoError(t, repo.PlaceOrder(ctx, o))
	}

	mine, err := repo.ListOrdersByPhone(ctx, "9876543210")
	require.NoError(t, err)
	require.Len(t, mine, 2)
	assert.Equal(t, second.ID, mine[0].ID)

	recent, err := repo.ListOrders(ctx, OrderFilter{Since: now().Add(-time.Hour)})
	require.NoError(t, err)
	assert.Len(t, recent, 2)

	all, err := repo.ListOrders(ctx, OrderFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestUpdateOrderStatus(t *testing.T) {
	repo := setupSQLite(t)
	ctx := context.Background()

	order := newTestOrder("9876543210", tomatoLine(1))
	require.NoError(t, repo.PlaceOrder(ctx, order))

	at := now().Add(time.Second)
	require.NoError(t, repo.UpdateOrderStatus(ctx, order.ID, domain.OrderStatusPlaced, domain.OrderStatusConfirmed, at))

	fetched, err := repo.GetOrder(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusConfirmed, fetched.Status)
	require.NotNil(t, fetched.UpdatedAt)
	assert.True(t, fetched.UpdatedAt.Equal(at))

	err = repo.UpdateOrderStatus(ctx, order.ID, domain.OrderStatusPlaced, domain.OrderStatusPreparing, now())
	assert.ErrorIs(t, err, ErrStatusConflict)

	err = repo.UpdateOrderStatus(ctx, "missing", domain.OrderStatusPlaced, domain.OrderStatusConfirmed, now())
	assert.ErrorIs(t, err, domain.ErrOrderNotFound)

	events, err := repo.GetUnprocessedEvents(ctx, 10)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, EventOrderStatusChanged, events[1].EventType)
}
