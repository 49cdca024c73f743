package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/gebeya-labs/wallet-backend/internal/metrics"
	"github.com/gebeya-labs/wallet-backend/internal/models"
	repo "github.com/gebeya-labs/wallet-backend/internal/repository"
	"github.com/gebeya-labs/wallet-backend/internal/txref"
	"github.com/shopspring/decimal"
)

// WithdrawalService routes every balance decrement through the same ledger
// primitive the deposit flow uses. There is no optimistic client-side
// decrement: the funds leave the wallet inside DebitOnce or not at all.
type WithdrawalService struct {
	wd     repo.Withdrawals
	trx    repo.Transactions
	ledger repo.Ledger
	audit  repo.AuditLogs
}

func NewWithdrawalService(wd repo.Withdrawals, trx repo.Transactions, ledger repo.Ledger, audit repo.AuditLogs) *WithdrawalService {
	return &WithdrawalService{wd: wd, trx: trx, ledger: ledger, audit: audit}
}

type WithdrawalInput struct {
	Amount        decimal.Decimal
	Method        models.TransactionMethod
	AccountName   string
	AccountNumber string
	BankCode      string
}

func (in WithdrawalInput) validate() error {
	if !in.Amount.IsPositive() {
		return fmt.Errorf("%w: amount must be positive", ErrValidation)
	}
	if strings.TrimSpace(in.AccountName) == "" || strings.TrimSpace(in.AccountNumber) == "" {
		return fmt.Errorf("%w: destination account required", ErrValidation)
	}
	switch in.Method {
	case models.MethodBankTransfer, models.MethodTelebirr:
	default:
		return fmt.Errorf("%w: unsupported withdrawal method %q", ErrValidation, in.Method)
	}
	return nil
}

func (s *WithdrawalService) Request(ctx context.Context, userID string, in WithdrawalInput) (models.WithdrawalRequest, error) {
	if userID == "" {
		return models.WithdrawalRequest{}, fmt.Errorf("%w: user id required", ErrValidation)
	}
	if err := in.validate(); err != nil {
		return models.WithdrawalRequest{}, err
	}

	ref := txref.NewWithdrawal()
	if _, err := s.trx.Create(ctx, models.Transaction{
		UserID:      userID,
		Amount:      in.Amount,
		Type:        models.TxnWithdrawal,
		Method:      in.Method,
		Status:      models.TxnPending,
		Reference:   ref,
		Description: "wallet withdrawal",
	}); err != nil {
		return models.WithdrawalRequest{}, fmt.Errorf("persist pending withdrawal: %w", err)
	}

	w, err := s.wd.Create(ctx, models.WithdrawalRequest{
		UserID:        userID,
		Amount:        in.Amount,
		Method:        in.Method,
		AccountName:   in.AccountName,
		AccountNumber: in.AccountNumber,
		BankCode:      in.BankCode,
		Status:        models.WdPending,
		Reference:     ref,
	})
	if err != nil {
		return models.WithdrawalRequest{}, err
	}

	entry, err := s.ledger.DebitOnce(ctx, userID, ref, in.Amount)
	if errors.Is(err, repo.ErrInsufficientBalance) {
		_ = s.wd.UpdateStatus(ctx, w.ID, models.WdRejected, "insufficient balance")
		return models.WithdrawalRequest{}, ErrInsufficientBalance
	}
	if err != nil {
		return models.WithdrawalRequest{}, err
	}

	if entry.Applied {
		metrics.DebitsApplied.Inc()
	}
	if err := s.wd.UpdateStatus(ctx, w.ID, models.WdProcessing, ""); err != nil {
		return models.WithdrawalRequest{}, err
	}
	s.logAudit(ctx, ref, "withdrawal_debited", map[string]any{
		"amount":      in.Amount.String(),
		"new_balance": entry.NewBalance.String(),
	})

	w.Status = models.WdProcessing
	return w, nil
}

// Approve marks a debited request as paid out by the operator.
func (s *WithdrawalService) Approve(ctx context.Context, id, notes string) (models.WithdrawalRequest, error) {
	w, err := s.get(ctx, id)
	if err != nil {
		return models.WithdrawalRequest{}, err
	}
	if w.Status != models.WdProcessing {
		return models.WithdrawalRequest{}, fmt.Errorf("%w: request is %s, not processing", ErrValidation, w.Status)
	}
	if err := s.wd.UpdateStatus(ctx, id, models.WdCompleted, notes); err != nil {
		return models.WithdrawalRequest{}, err
	}
	s.logAudit(ctx, w.Reference, "withdrawal_completed", nil)
	w.Status = models.WdCompleted
	w.Notes = notes
	return w, nil
}

// Reject refunds an already-debited request through a fresh refund
// transaction on the same exactly-once primitive, then closes the request.
func (s *WithdrawalService) Reject(ctx context.Context, id, notes string) (models.WithdrawalRequest, error) {
	w, err := s.get(ctx, id)
	if err != nil {
		return models.WithdrawalRequest{}, err
	}
	switch w.Status {
	case models.WdProcessing:
		refundRef := txref.NewRefund()
		if _, err := s.trx.Create(ctx, models.Transaction{
			UserID:      w.UserID,
			Amount:      w.Amount,
			Type:        models.TxnRefund,
			Method:      models.MethodInternal,
			Status:      models.TxnPending,
			Reference:   refundRef,
			Description: "withdrawal refund: " + w.Reference,
		}); err != nil {
			return models.WithdrawalRequest{}, fmt.Errorf("persist refund: %w", err)
		}
		entry, err := s.ledger.CreditOnce(ctx, w.UserID, refundRef, w.Amount)
		if err != nil {
			return models.WithdrawalRequest{}, err
		}
		if entry.Applied {
			metrics.CreditsApplied.Inc()
		}
		s.logAudit(ctx, w.Reference, "withdrawal_refunded", map[string]any{"refund_reference": refundRef})
	case models.WdPending:
		// Debit never applied, nothing to refund.
	default:
		return models.WithdrawalRequest{}, fmt.Errorf("%w: request is %s", ErrValidation, w.Status)
	}

	if err := s.wd.UpdateStatus(ctx, id, models.WdRejected, notes); err != nil {
		return models.WithdrawalRequest{}, err
	}
	w.Status = models.WdRejected
	w.Notes = notes
	return w, nil
}

func (s *WithdrawalService) ListByUser(ctx context.Context, userID string, limit, offset int) ([]models.WithdrawalRequest, error) {
	return s.wd.ListByUser(ctx, userID, limit, offset)
}

func (s *WithdrawalService) ListPending(ctx context.Context, limit, offset int) ([]models.WithdrawalRequest, error) {
	return s.wd.ListByStatus(ctx, models.WdProcessing, limit, offset)
}

func (s *WithdrawalService) get(ctx context.Context, id string) (models.WithdrawalRequest, error) {
	w, err := s.wd.GetByID(ctx, id)
	if errors.Is(err, repo.ErrNotFound) {
		return models.WithdrawalRequest{}, fmt.Errorf("%w: withdrawal %s", ErrNotFound, id)
	}
	return w, err
}

func (s *WithdrawalService) logAudit(ctx context.Context, reference, action string, details map[string]any) {
	ref := reference
	_ = s.audit.Create(ctx, models.AuditLog{
		EntityType: "withdrawal",
		EntityID:   &ref,
		Action:     action,
		Details:    details,
	})
}
