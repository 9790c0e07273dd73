package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/freshveggie/veggie-api/internal/cache"
	"github.com/freshveggie/veggie-api/internal/media"
	"github.com/freshveggie/veggie-api/internal/pricing"
	"github.com/freshveggie/veggie-api/internal/repository"
	"github.com/freshveggie/veggie-api/internal/service"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const (
	tomatoID     = "93757282-9976-5904-b589-4cb808f97768"
	vegetablesID = "93043c9c-bb8a-5d04-b60d-66c4a0bfe2ca"
	testPhone    = "9876543210"
)

type stubPinger struct{ err error }

func (p stubPinger) Ping(context.Context) error { return p.err }

type testServer struct {
	handler    http.Handler
	repo       *repository.Repository
	carts      *repository.MemoryCartRepository
	uploadsDir string
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	log := zap.NewNop()

	repo, err := repository.NewSQLiteRepository(filepath.Join(t.TempDir(), "veggie.db"))
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })
	require.NoError(t, repo.RunMigrations("../repository/migrations/sqlite"))

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	redisCache := cache.NewRedisCache(client)

	uploads := t.TempDir()
	local, err := media.NewLocalStore(uploads)
	require.NoError(t, err)
	store := media.NewFallbackStore(nil, local, log)

	policy := pricing.DefaultPolicy()
	timeout := 5 * time.Second
	carts := repository.NewMemoryCartRepository(time.Hour)

	cartSvc := service.NewCartService(carts, repo, redisCache, policy, log)
	mediaSvc := service.NewMediaService(store, repo, repo, log)
	orderSvc := service.NewOrderService(repo, repo, cartSvc, policy, true, log)
	catalogSvc := service.NewCatalogService(repo, repo, cartSvc, mediaSvc, log)
	customerSvc := service.NewCustomerService(repo, repo, log)
	reportSvc := service.NewReportService(repo, repo, repo, log)

	h := Handlers{
		Cart:      NewCartHandler(cartSvc, timeout, log),
		Orders:    NewOrdersHandler(orderSvc, timeout, log),
		Catalog:   NewCatalogHandler(catalogSvc, policy, timeout, log),
		Customers: NewCustomerHandler(customerSvc, policy, timeout, log),
		Admin:     NewAdminHandler(reportSvc, policy, timeout, log),
		Media:     NewMediaHandler(mediaSvc, store, timeout, log),
		Health:    map[string]Pinger{"database": repo, "cache": redisCache},
	}
	cfg := RouterConfig{RequestTimeout: timeout, MaxRequestBodySize: 6 << 20, UploadsDir: uploads}

	return &testServer{
		handler:    NewRouter(cfg, h, log),
		repo:       repo,
		carts:      carts,
		uploadsDir: uploads,
	}
}

func (s *testServer) do(t *testing.T, method, path string, body any, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func phoneHeader() map[string]string {
	return map[string]string{userPhoneHeader: testPhone}
}

func ptr[T any](v T) *T { return &v }
