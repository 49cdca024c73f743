package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/gebeya-labs/wallet-backend/internal/api/httpx"
	"github.com/gebeya-labs/wallet-backend/internal/api/validate"
	"github.com/gebeya-labs/wallet-backend/internal/middleware"
	"github.com/gebeya-labs/wallet-backend/internal/services"
	"github.com/gebeya-labs/wallet-backend/internal/txref"
	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
)

type DepositHandler struct {
	deposits *services.DepositService
}

func NewDepositHandler(deposits *services.DepositService) *DepositHandler {
	return &DepositHandler{deposits: deposits}
}

type initiateReq struct {
	Amount    decimal.Decimal `json:"amount"`
	Email     string          `json:"email"`
	FirstName string          `json:"first_name"`
	LastName  string          `json:"last_name"`
}

func (h *DepositHandler) Initiate(w http.ResponseWriter, r *http.Request) {
	u, ok := middleware.FromCtx(r.Context())
	if !ok {
		httpx.WriteError(w, http.StatusUnauthorized, "unauthorized", "authentication required", nil)
		return
	}
	var req initiateReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "bad_request", "invalid body", nil)
		return
	}
	var errs validate.Errs
	if ef := validate.Positive("amount", req.Amount); ef != nil {
		errs = append(errs, *ef)
	}
	if ef := validate.Required("email", req.Email); ef != nil {
		errs = append(errs, *ef)
	}
	if len(errs) > 0 {
		httpx.WriteError(w, http.StatusBadRequest, "validation_error", errs.Error(), errs)
		return
	}
	intent, err := h.deposits.Initiate(r.Context(), u.UserID, req.Amount, services.Contact{
		Email:     req.Email,
		FirstName: req.FirstName,
		LastName:  req.LastName,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, intent)
}

// Verify is the browser-return resume point: the client lands back with
// tx_ref and an untrusted status hint and asks the server to settle the
// truth. Safe to repeat; re-verifying a terminal reference is a no-op. Only
// the owner of the reference may see the result.
func (h *DepositHandler) Verify(w http.ResponseWriter, r *http.Request) {
	u, ok := middleware.FromCtx(r.Context())
	if !ok {
		httpx.WriteError(w, http.StatusUnauthorized, "unauthorized", "authentication required", nil)
		return
	}
	ref := chi.URLParam(r, "txRef")
	hint := r.URL.Query().Get("status")
	res, err := h.deposits.Verify(r.Context(), u.UserID, ref, hint)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, res)
}

type callbackReq struct {
	TxRef  string `json:"tx_ref"`
	Status string `json:"status"`
}

// Callback is the provider's server-to-server notification. It is unauthenticated
// and its payload is untrusted; crediting is still gated on our own verify
// call against the provider.
func (h *DepositHandler) Callback(w http.ResponseWriter, r *http.Request) {
	var req callbackReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.TxRef == "" {
		// Some gateways deliver the reference as query parameters instead.
		req.TxRef = r.URL.Query().Get("tx_ref")
		req.Status = r.URL.Query().Get("status")
	}
	if req.TxRef == "" {
		httpx.WriteError(w, http.StatusBadRequest, "bad_request", "tx_ref required", nil)
		return
	}
	// Unauthenticated endpoint: drop anything that is not even shaped like a
	// deposit reference before touching the store.
	if !txref.IsDeposit(req.TxRef) {
		httpx.WriteError(w, http.StatusNotFound, "not_found", "unknown reference", nil)
		return
	}
	if _, err := h.deposits.Verify(r.Context(), "", req.TxRef, req.Status); err != nil {
		writeServiceError(w, err)
		return
	}
	// The caller is the provider (or anyone holding the reference), not the
	// wallet owner: acknowledge receipt, never echo amounts or balances.
	httpx.WriteJSON(w, http.StatusOK, callbackAck{Received: true})
}

type callbackAck struct {
	Received bool `json:"received"`
}
