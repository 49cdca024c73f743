package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/gebeya-labs/wallet-backend/internal/cache"
	"github.com/gebeya-labs/wallet-backend/internal/chapa"
	"github.com/gebeya-labs/wallet-backend/internal/metrics"
	"github.com/gebeya-labs/wallet-backend/internal/models"
	repo "github.com/gebeya-labs/wallet-backend/internal/repository"
	"github.com/gebeya-labs/wallet-backend/internal/txref"
	"github.com/shopspring/decimal"
)

// Gateway is the slice of the provider client the deposit flow needs.
type Gateway interface {
	Initialize(ctx context.Context, in chapa.InitializeRequest) (chapa.InitializeResponse, error)
	Verify(ctx context.Context, reference string) (chapa.VerifyResult, error)
	HostedFormFields(in chapa.InitializeRequest) map[string]string
}

type Contact struct {
	Email     string
	FirstName string
	LastName  string
}

// DepositIntent is what the client needs to send the user to the hosted
// payment page. The pending transaction behind TxRef is already durable by
// the time an intent is returned.
type DepositIntent struct {
	TxRef       string            `json:"tx_ref"`
	CheckoutURL string            `json:"checkout_url"`
	FormFields  map[string]string `json:"form_fields"`
}

type VerificationResult struct {
	OK               bool            `json:"ok"`
	AlreadyProcessed bool            `json:"already_processed"`
	Amount           decimal.Decimal `json:"amount"`
	ProviderStatus   string          `json:"provider_status"`
	NewBalance       decimal.Decimal `json:"new_balance"`
}

type DepositConfig struct {
	AppBaseURL      string
	StalePendingAge time.Duration
	SweepBatchSize  int
}

// DepositService owns the three responsibilities of the deposit flow:
// initiating a payment, verifying it against the provider, and reconciling a
// verified payment into an exactly-once balance credit.
type DepositService struct {
	trx     repo.Transactions
	wallets repo.Wallets
	ledger  repo.Ledger
	failed  repo.FailedTransactions
	audit   repo.AuditLogs
	gw      Gateway
	locks   *cache.Cache
	cfg     DepositConfig
}

func NewDepositService(
	trx repo.Transactions,
	wallets repo.Wallets,
	ledger repo.Ledger,
	failed repo.FailedTransactions,
	audit repo.AuditLogs,
	gw Gateway,
	locks *cache.Cache,
	cfg DepositConfig,
) *DepositService {
	if cfg.SweepBatchSize <= 0 {
		cfg.SweepBatchSize = 50
	}
	return &DepositService{
		trx: trx, wallets: wallets, ledger: ledger, failed: failed,
		audit: audit, gw: gw, locks: locks, cfg: cfg,
	}
}

func (s *DepositService) logAudit(ctx context.Context, reference, action string, details map[string]any) {
	ref := reference
	_ = s.audit.Create(ctx, models.AuditLog{
		EntityType: "transaction",
		EntityID:   &ref,
		Action:     action,
		Details:    details,
	})
}

// Initiate persists a pending deposit before anything else happens: the
// pending record is the only way to recover a flow whose user never comes
// back from the payment page. Persistence failure aborts with no redirect
// parameters.
func (s *DepositService) Initiate(ctx context.Context, userID string, amount decimal.Decimal, contact Contact) (DepositIntent, error) {
	if userID == "" {
		return DepositIntent{}, fmt.Errorf("%w: user id required", ErrValidation)
	}
	if !amount.IsPositive() {
		return DepositIntent{}, fmt.Errorf("%w: amount must be positive", ErrValidation)
	}
	if !strings.Contains(contact.Email, "@") {
		return DepositIntent{}, fmt.Errorf("%w: valid email required", ErrValidation)
	}

	ref := txref.NewDeposit()
	_, err := s.trx.Create(ctx, models.Transaction{
		UserID:      userID,
		Amount:      amount,
		Type:        models.TxnDeposit,
		Method:      models.MethodChapa,
		Status:      models.TxnPending,
		Reference:   ref,
		Description: "wallet deposit",
	})
	if err != nil {
		return DepositIntent{}, fmt.Errorf("persist pending deposit: %w", err)
	}
	s.logAudit(ctx, ref, "deposit_initiated", map[string]any{"amount": amount.String(), "user_id": userID})

	in := chapa.InitializeRequest{
		Amount:      amount,
		Currency:    models.DefaultCurrency,
		Email:       contact.Email,
		FirstName:   contact.FirstName,
		LastName:    contact.LastName,
		TxRef:       ref,
		CallbackURL: s.cfg.AppBaseURL + "/api/v1/deposits/callback",
		ReturnURL:   s.cfg.AppBaseURL + "/wallet/return?tx_ref=" + ref + "&status=success",
		Title:       "Gebeya Wallet",
		Description: "Wallet deposit",
	}
	resp, err := s.gw.Initialize(ctx, in)
	if err != nil {
		// Pending record stays; the sweeper or a retry can still resolve it.
		if errors.Is(err, chapa.ErrUnreachable) {
			return DepositIntent{}, fmt.Errorf("%w: %v", ErrProviderUnreachable, err)
		}
		return DepositIntent{}, err
	}

	metrics.DepositsInitiated.Inc()
	return DepositIntent{
		TxRef:       ref,
		CheckoutURL: resp.CheckoutURL,
		FormFields:  s.gw.HostedFormFields(in),
	}, nil
}

// failureHint reports whether the browser-supplied status is an explicit
// failure. The hint is untrusted: it may short-circuit the provider call, but
// it never credits funds and never moves the record out of pending.
func failureHint(statusHint string) bool {
	switch strings.ToLower(statusHint) {
	case "failed", "cancelled", "canceled", "error":
		return true
	}
	return false
}

// Verify resolves a reference against the provider's server-side verification
// endpoint, the single source of truth, and reconciles on success. It is safe
// to call concurrently from the callback and return handlers, in any order,
// any number of times. userID is the authenticated session user and must own
// the reference; the provider callback has no session and passes it empty,
// which skips the ownership check (its caller only ever sees a bare ack).
func (s *DepositService) Verify(ctx context.Context, userID, reference, statusHint string) (VerificationResult, error) {
	t, err := s.trx.GetByRef(ctx, reference)
	if errors.Is(err, repo.ErrNotFound) {
		return VerificationResult{}, fmt.Errorf("%w: %s", ErrNotFound, reference)
	}
	if err != nil {
		return VerificationResult{}, err
	}
	if userID != "" && t.UserID != userID {
		return VerificationResult{}, ErrForbidden
	}

	// Terminal records never go back to the provider. Completed is the
	// idempotent success path; failed stays failed.
	if t.Terminal() {
		if t.Status == models.TxnCompleted {
			metrics.Verifications.WithLabelValues("already_processed").Inc()
			return s.completedResult(ctx, t), nil
		}
		metrics.Verifications.WithLabelValues("denied").Inc()
		return VerificationResult{ProviderStatus: "failed"}, ErrProviderDenied
	}

	if failureHint(statusHint) {
		metrics.Verifications.WithLabelValues("denied").Inc()
		return VerificationResult{ProviderStatus: statusHint}, nil
	}

	// Advisory lock so a callback/return race makes one provider call, not
	// two. The ledger's gate stays authoritative either way.
	if !s.locks.AcquireLock(ctx, "verify", reference, 30*time.Second) {
		return VerificationResult{}, ErrInFlight
	}
	defer s.locks.ReleaseLock(ctx, "verify", reference)

	vr, err := s.gw.Verify(ctx, reference)
	if err != nil {
		metrics.Verifications.WithLabelValues("unreachable").Inc()
		return VerificationResult{}, fmt.Errorf("%w: %v", ErrProviderUnreachable, err)
	}

	if vr.Denied {
		return s.markDenied(ctx, t, vr)
	}
	if !vr.OK {
		// Ambiguous or still pending at the provider: leave the record
		// pending, never complete on anything short of explicit success.
		metrics.Verifications.WithLabelValues("pending").Inc()
		return VerificationResult{ProviderStatus: vr.ProviderStatus}, nil
	}

	if !vr.Amount.IsZero() && !vr.Amount.Equal(t.Amount) {
		s.logAudit(ctx, reference, "amount_mismatch", map[string]any{
			"recorded": t.Amount.String(),
			"provider": vr.Amount.String(),
		})
		return VerificationResult{}, fmt.Errorf("%w: provider amount %s does not match recorded %s",
			ErrValidation, vr.Amount, t.Amount)
	}

	return s.reconcile(ctx, t, vr.ProviderStatus)
}

// reconcile converts a provider-verified payment into a durable exactly-once
// credit. User identity comes from the stored record, which was written under
// the authenticated session at initiate time, never parsed from the reference.
func (s *DepositService) reconcile(ctx context.Context, t models.Transaction, providerStatus string) (VerificationResult, error) {
	entry, err := s.ledger.CreditOnce(ctx, t.UserID, t.Reference, t.Amount)
	switch {
	case errors.Is(err, repo.ErrNotFound):
		return VerificationResult{}, fmt.Errorf("%w: %s", ErrNotFound, t.Reference)
	case errors.Is(err, repo.ErrInFlight):
		return VerificationResult{}, ErrInFlight
	case errors.Is(err, repo.ErrTerminal):
		// Locally failed but provider says success: do not credit through a
		// terminal record, surface for operator review.
		s.logAudit(ctx, t.Reference, "verified_after_failure", map[string]any{"provider_status": providerStatus})
		return VerificationResult{}, fmt.Errorf("reference %s already terminal", t.Reference)
	case err != nil:
		return VerificationResult{}, err
	}

	if entry.Applied {
		metrics.CreditsApplied.Inc()
		metrics.Verifications.WithLabelValues("success").Inc()
		s.logAudit(ctx, t.Reference, "credited", map[string]any{
			"previous_balance": entry.PreviousBalance.String(),
			"new_balance":      entry.NewBalance.String(),
		})
		slog.Info("deposit credited", "reference", t.Reference, "amount", t.Amount.String())
	} else {
		metrics.Verifications.WithLabelValues("already_processed").Inc()
	}

	return VerificationResult{
		OK:               true,
		AlreadyProcessed: !entry.Applied,
		Amount:           t.Amount,
		ProviderStatus:   providerStatus,
		NewBalance:       entry.NewBalance,
	}, nil
}

func (s *DepositService) markDenied(ctx context.Context, t models.Transaction, vr chapa.VerifyResult) (VerificationResult, error) {
	marked, err := s.trx.MarkFailed(ctx, t.Reference, "provider denied: "+vr.ProviderStatus)
	if err != nil {
		return VerificationResult{}, err
	}
	if marked {
		_ = s.failed.Create(ctx, models.FailedTransaction{
			Reference: t.Reference,
			UserID:    t.UserID,
			Amount:    t.Amount,
			Reason:    "provider denied: " + vr.ProviderStatus,
		})
	}
	metrics.Verifications.WithLabelValues("denied").Inc()
	return VerificationResult{ProviderStatus: vr.ProviderStatus}, ErrProviderDenied
}

func (s *DepositService) completedResult(ctx context.Context, t models.Transaction) VerificationResult {
	res := VerificationResult{
		OK:               true,
		AlreadyProcessed: true,
		Amount:           t.Amount,
		ProviderStatus:   "success",
	}
	if w, err := s.wallets.Get(ctx, t.UserID); err == nil {
		res.NewBalance = w.Balance
	}
	return res
}

// SweepStalePending re-verifies pending deposits older than the configured
// age. A provider-confirmed success is credited (the user paid and never came
// back); an explicit denial is failed out; anything ambiguous waits for the
// next sweep.
func (s *DepositService) SweepStalePending(ctx context.Context) (int, error) {
	cutoff := time.Now().Add(-s.cfg.StalePendingAge)
	stale, err := s.trx.ListStalePending(ctx, cutoff, s.cfg.SweepBatchSize)
	if err != nil {
		return 0, err
	}

	handled := 0
	for _, t := range stale {
		vr, err := s.gw.Verify(ctx, t.Reference)
		if err != nil {
			metrics.SweptPending.WithLabelValues("deferred").Inc()
			continue
		}
		switch {
		case vr.OK:
			if _, err := s.reconcile(ctx, t, vr.ProviderStatus); err != nil {
				slog.Error("sweep reconcile", "reference", t.Reference, "err", err)
				continue
			}
			metrics.SweptPending.WithLabelValues("recovered").Inc()
			handled++
		case vr.Denied:
			if _, err := s.markDenied(ctx, t, vr); err != nil && !errors.Is(err, ErrProviderDenied) {
				slog.Error("sweep mark failed", "reference", t.Reference, "err", err)
				continue
			}
			metrics.SweptPending.WithLabelValues("expired").Inc()
			handled++
		default:
			metrics.SweptPending.WithLabelValues("deferred").Inc()
		}
	}
	return handled, nil
}
