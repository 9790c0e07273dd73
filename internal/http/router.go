package http

import (
	"context"
	"net/http"
	"time"

	"github.com/freshveggie/veggie-api/internal/domain"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
)

const apiVersion = "1.0.0"

// Pinger is a dependency the health check probes.
type Pinger interface {
	Ping(ctx context.Context) error
}

type RouterConfig struct {
	RequestTimeout     time.Duration
	MaxRequestBodySize int64
	// UploadsDir is served under /uploads when set.
	UploadsDir string
}

type Handlers struct {
	Cart      *CartHandler
	Orders    *OrdersHandler
	Catalog   *CatalogHandler
	Customers *CustomerHandler
	Admin     *AdminHandler
	Media     *MediaHandler
	// Health maps dependency names to their probes. The "database" entry
	// decides the overall status.
	Health map[string]Pinger
}

type HealthResponseDTO struct {
	Status       string            `json:"status"`
	Timestamp    time.Time         `json:"timestamp"`
	Dependencies map[string]string `json:"dependencies"`
}

// NewRouter wires every route behind the shared middleware stack.
func NewRouter(cfg RouterConfig, h Handlers, log *zap.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(RequestIDMiddleware)
	r.Use(AccessLog(log))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(cfg.RequestTimeout))
	r.Use(middleware.Compress(5))
	if cfg.MaxRequestBodySize > 0 {
		r.Use(middleware.RequestSize(cfg.MaxRequestBodySize))
	}

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{
			"message": "Fresh Vegetables API",
			"version": apiVersion,
			"status":  "running",
		})
	})
	r.Get("/health", healthHandler(h.Health, cfg.RequestTimeout))
	if cfg.UploadsDir != "" {
		r.Handle("/uploads/*", http.StripPrefix("/uploads/", http.FileServer(http.Dir(cfg.UploadsDir))))
	}

	r.Post("/login/phone", h.Customers.LoginPhone)
	r.Post("/login/guest", h.Customers.LoginGuest)
	r.Get("/user/addresses/{phone}", h.Customers.Addresses)
	r.Post("/user/addresses", h.Customers.SaveAddress)
	r.Get("/delivery-slots", h.Customers.DeliverySlots)
	r.Get("/config", h.Customers.Config)

	r.Get("/home", h.Catalog.Home)
	r.Get("/categories", h.Catalog.Categories)
	r.Get("/banners", h.Catalog.Banners)
	r.Get("/products", h.Catalog.Products)
	r.Get("/products/{id}", h.Catalog.Product)
	r.Get("/search", h.Catalog.Search)

	r.Route("/cart", func(r chi.Router) {
		r.Get("/", h.Cart.GetCart)
		r.Delete("/", h.Cart.ClearCart)
		r.Post("/add", h.Cart.AddItem)
		r.Put("/{lineId}", h.Cart.UpdateQuantity)
		r.Delete("/{lineId}", h.Cart.RemoveItem)
	})

	r.Post("/checkout", h.Orders.Checkout)
	r.Get("/orders/track/{orderNumber}", h.Orders.Track)
	r.Get("/orders/{phone}", h.Orders.History)

	r.Route("/admin", func(r chi.Router) {
		r.Get("/dashboard", h.Admin.Dashboard)
		r.Get("/reports/revenue", h.Admin.Revenue)
		r.Get("/analytics/products", h.Admin.ProductAnalytics)
		r.Get("/customers", h.Admin.Customers)
		r.Get("/customers/{phone}/details", h.Admin.CustomerDetails)
		r.Get("/delivery/analytics", h.Admin.DeliveryAnalytics)
		r.Get("/settings", h.Admin.Settings)
		r.Put("/settings", h.Admin.UpdateSettings)

		r.Get("/orders", h.Orders.ListAll)
		r.Put("/orders/{id}/status", h.Orders.SetStatus)

		r.Get("/inventory", h.Admin.Inventory)
		r.Put("/inventory/{id}/stock", h.Catalog.UpdateStock)

		r.Get("/products", h.Catalog.AdminProducts)
		r.Post("/products", h.Catalog.CreateProduct)
		r.Put("/products/{id}", h.Catalog.UpdateProduct)
		r.Delete("/products/{id}", h.Catalog.DeleteProduct)

		r.Get("/categories", h.Catalog.AdminCategories)
		r.Post("/categories", h.Catalog.CreateCategory)
		r.Put("/categories/{id}", h.Catalog.UpdateCategory)
		r.Delete("/categories/{id}", h.Catalog.DeleteCategory)

		r.Get("/banners", h.Catalog.AdminBanners)
		r.Post("/banners", h.Catalog.CreateBanner)
		r.Put("/banners/{id}", h.Catalog.UpdateBanner)
		r.Delete("/banners/{id}", h.Catalog.DeleteBanner)

		r.Post("/upload/product-image/{id}", h.Media.Upload(domain.ImageKindProduct))
		r.Post("/upload/category-image/{id}", h.Media.Upload(domain.ImageKindCategory))
		r.Post("/upload/banner-image/{id}", h.Media.Upload(domain.ImageKindBanner))
		r.Delete("/images/{kind}/{id}", h.Media.DeleteImage)
		r.Get("/storage/info", h.Media.StorageInfo)
		r.Post("/storage/bucket", h.Media.CreateBucket)
	})

	return otelhttp.NewHandler(r, "veggie-api")
}

func healthHandler(deps map[string]Pinger, timeout time.Duration) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), timeout)
		defer cancel()

		resp := HealthResponseDTO{Status: "healthy", Timestamp: time.Now().UTC(), Dependencies: map[string]string{}}
		status := http.StatusOK
		for name, p := range deps {
			if err := p.Ping(ctx); err != nil {
				resp.Dependencies[name] = "unavailable"
				if name == "database" {
					resp.Status = "unhealthy"
					status = http.StatusServiceUnavailable
				}
				continue
			}
			resp.Dependencies[name] = "ok"
		}
		respondJSON(w, status, resp)
	}
}
