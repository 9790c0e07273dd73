package http

import (
	"context"
	"net/http"
	"time"

	"github.com/freshveggie/veggie-api/internal/domain"
	"github.com/freshveggie/veggie-api/internal/pricing"
	"github.com/freshveggie/veggie-api/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	businessName  = "Fresh Vegetables"
	businessPhone = "+91 9876543210"
	businessEmail = "orders@freshveggies.com"
	deliveryAreas = "Within 10km radius"
	deliveryTime  = "Same day delivery available"
)

type CustomerHandler struct {
	customers *service.CustomerService
	policy    pricing.Policy
	timeout   time.Duration
	log       *zap.Logger
}

func NewCustomerHandler(customers *service.CustomerService, policy pricing.Policy, timeout time.Duration, log *zap.Logger) *CustomerHandler {
	return &CustomerHandler{customers: customers, policy: policy, timeout: timeout, log: log}
}

type LoginRequestDTO struct {
	Phone string `json:"phone"`
	Name  string `json:"name"`
}

type LoginUserDTO struct {
	Phone       string `json:"phone,omitempty"`
	Name        string `json:"name"`
	UserID      string `json:"user_id,omitempty"`
	GuestID     string `json:"guest_id,omitempty"`
	TotalOrders int    `json:"total_orders"`
}

type LoginResponseDTO struct {
	Success     bool         `json:"success"`
	UserType    string       `json:"user_type"`
	User        LoginUserDTO `json:"user"`
	Message     string       `json:"message"`
	Limitations []string     `json:"limitations,omitempty"`
}

type AddressesResponseDTO struct {
	Addresses []*domain.Address `json:"addresses"`
}

type AddressSavedDTO struct {
	Message   string `json:"message"`
	AddressID string `json:"address_id"`
}

type SlotDTO struct {
	ID        domain.DeliverySlot `json:"id"`
	Label     string              `json:"label"`
	Time      string              `json:"time"`
	Available bool                `json:"available"`
}

type DeliverySlotsDTO struct {
	Slots []SlotDTO `json:"slots"`
}

type BusinessInfoDTO struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
	Email string `json:"email"`
}

type DeliveryInfoDTO struct {
	FreeDeliveryAbove decimal.Decimal `json:"free_delivery_above"`
	DeliveryCharge    decimal.Decimal `json:"delivery_charge"`
	DeliveryAreas     string          `json:"delivery_areas"`
	DeliveryTime      string          `json:"delivery_time"`
}

type PaymentMethodDTO struct {
	ID        domain.PaymentMethod `json:"id"`
	Name      string               `json:"name"`
	Available bool                 `json:"available"`
}

type AppConfigDTO struct {
	BusinessInfo   BusinessInfoDTO    `json:"business_info"`
	DeliveryInfo   DeliveryInfoDTO    `json:"delivery_info"`
	PaymentMethods []PaymentMethodDTO `json:"payment_methods"`
	AppFeatures    map[string]bool    `json:"app_features"`
}

// POST /login/phone
func (h *CustomerHandler) LoginPhone(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req LoginRequestDTO
	if !decodeJSON(w, r, &req) {
		return
	}
	res, err := h.customers.LoginPhone(ctx, req.Phone, req.Name)
	if err != nil {
		handleError(w, r, h.log, err)
		return
	}

	message := "Welcome to Fresh Vegetables!"
	if res.Returning {
		message = "Welcome back, " + res.Customer.Name + "!"
	}
	respondJSON(w, http.StatusOK, LoginResponseDTO{
		Success:  true,
		UserType: "registered",
		User: LoginUserDTO{
			Phone:       res.Customer.Phone,
			Name:        res.Customer.Name,
			UserID:      res.Customer.ID,
			TotalOrders: res.TotalOrders,
		},
		Message: message,
	})
}

// POST /login/guest
func (h *CustomerHandler) LoginGuest(w http.ResponseWriter, r *http.Request) {
	id := h.customers.LoginGuest()
	respondJSON(w, http.StatusOK, LoginResponseDTO{
		Success:     true,
		UserType:    "guest",
		User:        LoginUserDTO{GuestID: id.Key(), Name: "Guest User"},
		Message:     "Continuing as guest",
		Limitations: service.GuestLimitations,
	})
}

// GET /user/addresses/{phone}
func (h *CustomerHandler) Addresses(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	addresses, err := h.customers.Addresses(ctx, chi.URLParam(r, "phone"))
	if err != nil {
		handleError(w, r, h.log, err)
		return
	}
	respondJSON(w, http.StatusOK, AddressesResponseDTO{Addresses: addresses})
}

// POST /user/addresses
func (h *CustomerHandler) SaveAddress(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var address domain.DeliveryAddress
	if !decodeJSON(w, r, &address) {
		return
	}
	a, err := h.customers.SaveAddress(ctx, r.Header.Get(userPhoneHeader), address)
	if err != nil {
		handleError(w, r, h.log, err)
		return
	}
	respondJSON(w, http.StatusCreated, AddressSavedDTO{Message: "Address saved", AddressID: a.ID})
}

// GET /delivery-slots
func (h *CustomerHandler) DeliverySlots(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, DeliverySlotsDTO{Slots: []SlotDTO{
		{ID: domain.SlotTodayMorning, Label: "Today Morning", Time: "8:00 AM - 12:00 PM", Available: true},
		{ID: domain.SlotTodayEvening, Label: "Today Evening", Time: "4:00 PM - 8:00 PM", Available: true},
		{ID: domain.SlotTomorrowMorning, Label: "Tomorrow Morning", Time: "8:00 AM - 12:00 PM", Available: true},
	}})
}

// GET /config
func (h *CustomerHandler) Config(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, AppConfigDTO{
		BusinessInfo: BusinessInfoDTO{Name: businessName, Phone: businessPhone, Email: businessEmail},
		DeliveryInfo: DeliveryInfoDTO{
			FreeDeliveryAbove: h.policy.FreeDeliveryThreshold,
			DeliveryCharge:    h.policy.DeliveryFee,
			DeliveryAreas:     deliveryAreas,
			DeliveryTime:      deliveryTime,
		},
		PaymentMethods: []PaymentMethodDTO{
			{ID: domain.PaymentCOD, Name: "Cash on Delivery", Available: true},
			{ID: domain.PaymentOnline, Name: "Online Payment", Available: false},
		},
		AppFeatures: map[string]bool{
			"guest_checkout": true,
			"order_tracking": true,
			"address_book":   true,
			"image_uploads":  true,
		},
	})
}
