package repository

import (
	"context"
	"testing"
	"time"

	"github.com/freshveggie/veggie-api/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

func setupPostgres(t *testing.T) (*Repository, func()) {
	if testing.Short() {
		t.Skip("skipping postgres integration test in short mode")
	}
	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("testuser"),
		postgres.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	require.NoError(t, err)

	host, err := pgContainer.Host(ctx)
	require.NoError(t, err)

	port, err := pgContainer.MappedPort(ctx, "5432")
	require.NoError(t, err)

	creds := &Credentials{
		Host:              host,
		Port:              port.Int(),
		User:              "testuser",
		Password:          "testpass",
		DBName:            "testdb",
		MigrationsDirPath: "./migrations/postgres",
	}

	repo, err := NewPostgresRepository(creds)
	require.NoError(t, err)

	err = repo.RunMigrations(creds.MigrationsDirPath)
	require.NoError(t, err)

	cleanup := func() {
		repo.Close()
		if err := pgContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %s", err)
		}
	}

	return repo, cleanup
}

func TestPostgres_CatalogSeeded(t *testing.T) {
	repo, cleanup := setupPostgres(t)
	defer cleanup()

	products, total, err := repo.ListProducts(context.Background(), ProductFilter{ActiveOnly: true, SortBy: "price_high", Limit: 3})
	require.NoError(t, err)
	assert.Equal(t, 14, total)
	require.Len(t, products, 3)
	assert.Equal(t, "Broccoli", products[0].Name)
}

func TestPostgres_PlaceOrderAndStatus(t *testing.T) {
	repo, cleanup := setupPostgres(t)
	defer cleanup()
	ctx := context.Background()

	order := newTestOrder("9876543210", tomatoLine(2))
	require.NoError(t, repo.PlaceOrder(ctx, order))
	assert.Equal(t, "VEG0001", order.OrderNumber)

	p, err := repo.GetProduct(ctx, tomatoID)
	require.NoError(t, err)
	assert.Equal(t, 38, p.StockQuantity)

	require.NoError(t, repo.UpdateOrderStatus(ctx, order.ID, domain.OrderStatusPlaced, domain.OrderStatusConfirmed, now()))

	fetched, err := repo.GetOrderByNumber(ctx, "VEG0001")
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusConfirmed, fetched.Status)
	require.Len(t, fetched.Items, 1)
	assert.True(t, fetched.Items[0].ItemTotal.Equal(order.Items[0].ItemTotal))

	events, err := repo.GetUnprocessedEvents(ctx, 100)
	require.NoError(t, err)
	assert.Len(t, events, 2)
}

func TestPostgres_InsufficientStock(t *testing.T) {
	repo, cleanup := setupPostgres(t)
	defer cleanup()
	ctx := context.Background()

	err := repo.PlaceOrder(ctx, newTestOrder("9876543210", tomatoLine(41)))
	assert.ErrorIs(t, err, domain.ErrInsufficientStock)

	p, err := repo.GetProduct(ctx, tomatoID)
	require.NoError(t, err)
	assert.Equal(t, 40, p.StockQuantity)
}

func TestPostgres_RecordLogin(t *testing.T) {
	repo, cleanup := setupPostgres(t)
	defer cleanup()
	ctx := context.Background()

	_, created, err := repo.RecordLogin(ctx, "9876543210", "Asha", now())
	require.NoError(t, err)
	assert.True(t, created)

	c, created, err := repo.RecordLogin(ctx, "9876543210", "Asha", now())
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, 2, c.LoginCount)
}
