package handlers

import (
	"errors"
	"net/http"

	"github.com/gebeya-labs/wallet-backend/internal/api/httpx"
	"github.com/gebeya-labs/wallet-backend/internal/services"
)

// writeServiceError maps the service error taxonomy onto HTTP responses. The
// unreachable/denied split matters to clients: one means retry, the other
// means the payment is dead.
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, services.ErrValidation):
		httpx.WriteError(w, http.StatusBadRequest, "validation_error", err.Error(), nil)
	case errors.Is(err, services.ErrNotFound):
		httpx.WriteError(w, http.StatusNotFound, "not_found", err.Error(), nil)
	case errors.Is(err, services.ErrForbidden):
		httpx.WriteError(w, http.StatusForbidden, "forbidden", "forbidden", nil)
	case errors.Is(err, services.ErrProviderDenied):
		httpx.WriteError(w, http.StatusPaymentRequired, "payment_failed", "payment was not successful", nil)
	case errors.Is(err, services.ErrProviderUnreachable):
		httpx.WriteError(w, http.StatusBadGateway, "provider_unreachable", "could not reach payment provider, please retry", nil)
	case errors.Is(err, services.ErrInFlight):
		httpx.WriteError(w, http.StatusConflict, "in_progress", "verification already in progress", nil)
	case errors.Is(err, services.ErrInsufficientBalance):
		httpx.WriteError(w, http.StatusUnprocessableEntity, "insufficient_balance", "insufficient balance", nil)
	default:
		httpx.WriteError(w, http.StatusInternalServerError, "internal_error", "internal error", nil)
	}
}
