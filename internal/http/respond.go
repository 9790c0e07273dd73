package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/freshveggie/veggie-api/internal/domain"
	"github.com/freshveggie/veggie-api/internal/media"
	"github.com/freshveggie/veggie-api/internal/repository"
	"go.uber.org/zap"
)

type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details string `json:"details,omitempty"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		zap.L().Warn("failed to encode response", zap.Error(err))
	}
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, ErrorResponse{Error: message, Code: code})
}

func respondMessage(w http.ResponseWriter, message string) {
	respondJSON(w, http.StatusOK, MessageResponse{Message: message})
}

// decodeJSON reads a JSON request body. An empty body decodes to the zero value.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil && !errors.Is(err, io.EOF) {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return false
	}
	return true
}

// handleError maps service errors onto HTTP statuses.
func handleError(w http.ResponseWriter, r *http.Request, log *zap.Logger, err error) {
	var (
		vErr     *domain.ValidationError
		stockErr *domain.StockError
	)

	switch {
	case errors.As(err, &vErr):
		respondJSON(w, http.StatusBadRequest, ErrorResponse{Error: vErr.Message, Code: "validation_error", Details: vErr.Field})
	case domain.IsNotFound(err):
		respondError(w, http.StatusNotFound, "not_found", capitalize(err.Error()))
	case errors.As(err, &stockErr):
		respondError(w, http.StatusBadRequest, "insufficient_stock", capitalize(stockErr.Error()))
	case errors.Is(err, domain.ErrEmptyCart):
		respondError(w, http.StatusBadRequest, "empty_cart", "Cart is empty")
	case errors.Is(err, domain.ErrInvalidStatus):
		respondJSON(w, http.StatusBadRequest, ErrorResponse{
			Error:   "Invalid status",
			Code:    "invalid_status",
			Details: "must be one of: " + strings.Join(statusNames(), ", "),
		})
	case errors.Is(err, domain.ErrInvalidTransition):
		respondError(w, http.StatusBadRequest, "invalid_transition", "Order cannot move to that status")
	case errors.Is(err, domain.ErrCategoryInUse):
		respondError(w, http.StatusBadRequest, "category_in_use", capitalize(err.Error()))
	case errors.Is(err, repository.ErrStatusConflict):
		respondError(w, http.StatusConflict, "status_conflict", "Order status changed, reload and retry")
	case errors.Is(err, media.ErrNoObjectStore):
		respondError(w, http.StatusServiceUnavailable, "storage_unavailable", "Object storage is not configured")
	case errors.Is(err, domain.ErrUpstreamUnavailable):
		respondError(w, http.StatusServiceUnavailable, "upstream_unavailable", "Service temporarily unavailable")
	default:
		log.Error("request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err))
		respondError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}

func statusNames() []string {
	out := make([]string, 0, len(domain.OrderStatuses))
	for _, s := range domain.OrderStatuses {
		out = append(out, string(s))
	}
	return out
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
