package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/gebeya-labs/wallet-backend/internal/api/httpx"
	"github.com/gebeya-labs/wallet-backend/internal/api/validate"
	"github.com/gebeya-labs/wallet-backend/internal/middleware"
	"github.com/gebeya-labs/wallet-backend/internal/models"
	"github.com/gebeya-labs/wallet-backend/internal/services"
	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
)

type WithdrawalHandler struct {
	withdrawals *services.WithdrawalService
}

func NewWithdrawalHandler(withdrawals *services.WithdrawalService) *WithdrawalHandler {
	return &WithdrawalHandler{withdrawals: withdrawals}
}

type withdrawalReq struct {
	Amount        decimal.Decimal `json:"amount"`
	Method        string          `json:"method"`
	AccountName   string          `json:"account_name"`
	AccountNumber string          `json:"account_number"`
	BankCode      string          `json:"bank_code"`
}

func (h *WithdrawalHandler) Request(w http.ResponseWriter, r *http.Request) {
	u, ok := middleware.FromCtx(r.Context())
	if !ok {
		httpx.WriteError(w, http.StatusUnauthorized, "unauthorized", "authentication required", nil)
		return
	}
	var req withdrawalReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "bad_request", "invalid body", nil)
		return
	}
	var errs validate.Errs
	if ef := validate.Positive("amount", req.Amount); ef != nil {
		errs = append(errs, *ef)
	}
	if ef := validate.Required("account_name", req.AccountName); ef != nil {
		errs = append(errs, *ef)
	}
	if ef := validate.Required("account_number", req.AccountNumber); ef != nil {
		errs = append(errs, *ef)
	}
	if len(errs) > 0 {
		httpx.WriteError(w, http.StatusBadRequest, "validation_error", errs.Error(), errs)
		return
	}
	wd, err := h.withdrawals.Request(r.Context(), u.UserID, services.WithdrawalInput{
		Amount:        req.Amount,
		Method:        models.TransactionMethod(req.Method),
		AccountName:   req.AccountName,
		AccountNumber: req.AccountNumber,
		BankCode:      req.BankCode,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, wd)
}

func (h *WithdrawalHandler) List(w http.ResponseWriter, r *http.Request) {
	u, ok := middleware.FromCtx(r.Context())
	if !ok {
		httpx.WriteError(w, http.StatusUnauthorized, "unauthorized", "authentication required", nil)
		return
	}
	limit, offset := pagination(r)
	out, err := h.withdrawals.ListByUser(r.Context(), u.UserID, limit, offset)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, out)
}

type reviewReq struct {
	Notes string `json:"notes"`
}

func (h *WithdrawalHandler) ListPending(w http.ResponseWriter, r *http.Request) {
	limit, offset := pagination(r)
	out, err := h.withdrawals.ListPending(r.Context(), limit, offset)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, out)
}

func (h *WithdrawalHandler) Approve(w http.ResponseWriter, r *http.Request) {
	var req reviewReq
	_ = json.NewDecoder(r.Body).Decode(&req)
	wd, err := h.withdrawals.Approve(r.Context(), chi.URLParam(r, "id"), req.Notes)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, wd)
}

func (h *WithdrawalHandler) Reject(w http.ResponseWriter, r *http.Request) {
	var req reviewReq
	_ = json.NewDecoder(r.Body).Decode(&req)
	wd, err := h.withdrawals.Reject(r.Context(), chi.URLParam(r, "id"), req.Notes)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, wd)
}
