package http

import (
	"context"
	"net/http"
	"time"

	"github.com/freshveggie/veggie-api/internal/pricing"
	"github.com/freshveggie/veggie-api/internal/service"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// AdminHandler serves the back office reports and settings.
type AdminHandler struct {
	reports *service.ReportService
	policy  pricing.Policy
	timeout time.Duration
	log     *zap.Logger
	now     func() time.Time
}

func NewAdminHandler(reports *service.ReportService, policy pricing.Policy, timeout time.Duration, log *zap.Logger) *AdminHandler {
	return &AdminHandler{
		reports: reports,
		policy:  policy,
		timeout: timeout,
		log:     log,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

type SettingsUpdatedDTO struct {
	Message   string    `json:"message"`
	UpdatedAt time.Time `json:"updated_at"`
}

// GET /admin/dashboard
func (h *AdminHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	d, err := h.reports.Dashboard(ctx)
	if err != nil {
		handleError(w, r, h.log, err)
		return
	}
	respondJSON(w, http.StatusOK, d)
}

// GET /admin/reports/revenue
func (h *AdminHandler) Revenue(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	q := r.URL.Query()
	report, err := h.reports.Revenue(ctx, service.RevenueQuery{
		Period:    q.Get("period"),
		StartDate: q.Get("start_date"),
		EndDate:   q.Get("end_date"),
	})
	if err != nil {
		handleError(w, r, h.log, err)
		return
	}
	respondJSON(w, http.StatusOK, report)
}

// GET /admin/analytics/products
func (h *AdminHandler) ProductAnalytics(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	a, err := h.reports.Products(ctx)
	if err != nil {
		handleError(w, r, h.log, err)
		return
	}
	respondJSON(w, http.StatusOK, a)
}

// GET /admin/customers
func (h *AdminHandler) Customers(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	list, err := h.reports.Customers(ctx)
	if err != nil {
		handleError(w, r, h.log, err)
		return
	}
	respondJSON(w, http.StatusOK, list)
}

// GET /admin/customers/{phone}/details
func (h *AdminHandler) CustomerDetails(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	d, err := h.reports.CustomerDetails(ctx, chi.URLParam(r, "phone"))
	if err != nil {
		handleError(w, r, h.log, err)
		return
	}
	respondJSON(w, http.StatusOK, d)
}

// GET /admin/inventory
func (h *AdminHandler) Inventory(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	inv, err := h.reports.Inventory(ctx)
	if err != nil {
		handleError(w, r, h.log, err)
		return
	}
	respondJSON(w, http.StatusOK, inv)
}

// GET /admin/delivery/analytics
func (h *AdminHandler) DeliveryAnalytics(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	d, err := h.reports.Delivery(ctx)
	if err != nil {
		handleError(w, r, h.log, err)
		return
	}
	respondJSON(w, http.StatusOK, d)
}

// GET /admin/settings
func (h *AdminHandler) Settings(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"business_info": BusinessInfoDTO{Name: businessName, Phone: businessPhone, Email: businessEmail},
		"delivery_settings": map[string]any{
			"free_delivery_threshold": h.policy.FreeDeliveryThreshold,
			"delivery_charge":         h.policy.DeliveryFee,
			"delivery_areas":          deliveryAreas,
			"delivery_time":           deliveryTime,
		},
		"payment_settings": map[string]any{
			"cod_enabled":    true,
			"online_enabled": false,
		},
		"app_settings": map[string]any{
			"maintenance_mode":    false,
			"guest_checkout":      true,
			"min_order_quantity":  1,
			"max_order_quantity":  20,
			"order_cancel_window": "30 minutes",
		},
	})
}

// PUT /admin/settings. Settings come from the environment, so the payload is
// only acknowledged.
func (h *AdminHandler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	var body map[string]any
	if !decodeJSON(w, r, &body) {
		return
	}
	h.log.Info("settings update received", zap.Int("sections", len(body)))
	respondJSON(w, http.StatusOK, SettingsUpdatedDTO{Message: "Settings updated successfully", UpdatedAt: h.now()})
}
