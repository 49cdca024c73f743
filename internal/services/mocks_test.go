package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gebeya-labs/wallet-backend/internal/chapa"
	"github.com/gebeya-labs/wallet-backend/internal/models"
	repo "github.com/gebeya-labs/wallet-backend/internal/repository"
	"github.com/shopspring/decimal"
)

// In-memory fakes implementing the repository interfaces. The fake ledger
// guards the gate-then-write sequence with a single mutex, mirroring the
// atomicity the Postgres implementation gets from its transaction.

type fakeTxStore struct {
	mu    sync.Mutex
	byRef map[string]models.Transaction
	seq   int
}

func newFakeTxStore() *fakeTxStore {
	return &fakeTxStore{byRef: map[string]models.Transaction{}}
}

func (f *fakeTxStore) Create(ctx context.Context, t models.Transaction) (models.Transaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if existing, ok := f.byRef[t.Reference]; ok {
		return existing, nil
	}
	f.seq++
	if t.ID == "" {
		t.ID = fmt.Sprintf("txn-%d", f.seq)
	}
	t.CreatedAt = time.Now()
	t.UpdatedAt = t.CreatedAt
	f.byRef[t.Reference] = t
	return t, nil
}

func (f *fakeTxStore) GetByRef(ctx context.Context, reference string) (models.Transaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.byRef[reference]
	if !ok {
		return models.Transaction{}, repo.ErrNotFound
	}
	return t, nil
}

func (f *fakeTxStore) GetByID(ctx context.Context, id string) (models.Transaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, t := range f.byRef {
		if t.ID == id {
			return t, nil
		}
	}
	return models.Transaction{}, repo.ErrNotFound
}

func (f *fakeTxStore) ListByUser(ctx context.Context, userID string, limit, offset int) ([]models.Transaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Transaction
	for _, t := range f.byRef {
		if t.UserID == userID {
			out = append(out, t)
		}
	}
	return out, nil
}

func (f *fakeTxStore) MarkFailed(ctx context.Context, reference, reason string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.byRef[reference]
	if !ok || t.Status != models.TxnPending {
		return false, nil
	}
	t.Status = models.TxnFailed
	if t.Metadata == nil {
		t.Metadata = map[string]any{}
	}
	t.Metadata["failure_reason"] = reason
	f.byRef[reference] = t
	return true, nil
}

func (f *fakeTxStore) ListStalePending(ctx context.Context, cutoff time.Time, limit int) ([]models.Transaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Transaction
	for _, t := range f.byRef {
		if t.Status == models.TxnPending && t.Type == models.TxnDeposit && t.CreatedAt.Before(cutoff) {
			out = append(out, t)
		}
	}
	return out, nil
}

type fakeWallets struct {
	mu     sync.Mutex
	byUser map[string]models.Wallet
}

func newFakeWallets() *fakeWallets {
	return &fakeWallets{byUser: map[string]models.Wallet{}}
}

func (f *fakeWallets) GetOrCreate(ctx context.Context, userID string) (models.Wallet, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.getOrCreateLocked(userID), nil
}

func (f *fakeWallets) getOrCreateLocked(userID string) models.Wallet {
	if w, ok := f.byUser[userID]; ok {
		return w
	}
	w := models.Wallet{
		UserID:   userID,
		Balance:  decimal.Zero,
		Currency: models.DefaultCurrency,
		Active:   true,
	}
	f.byUser[userID] = w
	return w
}

func (f *fakeWallets) Get(ctx context.Context, userID string) (models.Wallet, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	w, ok := f.byUser[userID]
	if !ok {
		return models.Wallet{}, repo.ErrNotFound
	}
	return w, nil
}

type fakeLedger struct {
	mu      sync.Mutex
	tx      *fakeTxStore
	wallets *fakeWallets
	// Applied counts every credit/debit that actually moved a balance.
	Applied int
}

func newFakeLedger(tx *fakeTxStore, wallets *fakeWallets) *fakeLedger {
	return &fakeLedger{tx: tx, wallets: wallets}
}

func (f *fakeLedger) CreditOnce(ctx context.Context, userID, reference string, amount decimal.Decimal) (repo.LedgerEntry, error) {
	return f.applyOnce(ctx, userID, reference, amount, false)
}

func (f *fakeLedger) DebitOnce(ctx context.Context, userID, reference string, amount decimal.Decimal) (repo.LedgerEntry, error) {
	return f.applyOnce(ctx, userID, reference, amount, true)
}

func (f *fakeLedger) applyOnce(ctx context.Context, userID, reference string, amount decimal.Decimal, debit bool) (repo.LedgerEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tx.mu.Lock()
	t, ok := f.tx.byRef[reference]
	f.tx.mu.Unlock()
	if !ok || t.UserID != userID {
		return repo.LedgerEntry{}, repo.ErrNotFound
	}

	switch t.Status {
	case models.TxnCompleted:
		w, _ := f.wallets.Get(ctx, userID)
		entry := repo.LedgerEntry{Wallet: w, NewBalance: w.Balance}
		if s, ok := t.Metadata["previous_balance"].(string); ok {
			entry.PreviousBalance, _ = decimal.NewFromString(s)
		}
		if s, ok := t.Metadata["new_balance"].(string); ok {
			entry.NewBalance, _ = decimal.NewFromString(s)
		}
		return entry, nil
	case models.TxnProcessing:
		return repo.LedgerEntry{}, repo.ErrInFlight
	case models.TxnFailed:
		return repo.LedgerEntry{}, repo.ErrTerminal
	}

	f.wallets.mu.Lock()
	w := f.wallets.getOrCreateLocked(userID)
	prev := w.Balance
	next := prev.Add(amount)
	if debit {
		next = prev.Sub(amount)
		if next.IsNegative() {
			f.wallets.mu.Unlock()
			f.tx.mu.Lock()
			t.Status = models.TxnFailed
			f.tx.byRef[reference] = t
			f.tx.mu.Unlock()
			return repo.LedgerEntry{}, repo.ErrInsufficientBalance
		}
	}
	w.Balance = next
	f.wallets.byUser[userID] = w
	f.wallets.mu.Unlock()

	f.tx.mu.Lock()
	t.Status = models.TxnCompleted
	if t.Metadata == nil {
		t.Metadata = map[string]any{}
	}
	t.Metadata["previous_balance"] = prev.String()
	t.Metadata["new_balance"] = next.String()
	f.tx.byRef[reference] = t
	f.tx.mu.Unlock()

	f.Applied++
	return repo.LedgerEntry{Wallet: w, PreviousBalance: prev, NewBalance: next, Applied: true}, nil
}

type fakeFailedStore struct {
	mu   sync.Mutex
	rows []models.FailedTransaction
}

func (f *fakeFailedStore) Create(ctx context.Context, ft models.FailedTransaction) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rows = append(f.rows, ft)
	return nil
}

type fakeAuditStore struct {
	mu   sync.Mutex
	rows []models.AuditLog
}

func (f *fakeAuditStore) Create(ctx context.Context, l models.AuditLog) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rows = append(f.rows, l)
	return nil
}

type fakeGateway struct {
	mu          sync.Mutex
	initErr     error
	verifyErr   error
	results     map[string]chapa.VerifyResult
	verifyCalls int
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{results: map[string]chapa.VerifyResult{}}
}

func (f *fakeGateway) setResult(ref string, vr chapa.VerifyResult) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.results[ref] = vr
}

func (f *fakeGateway) Initialize(ctx context.Context, in chapa.InitializeRequest) (chapa.InitializeResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.initErr != nil {
		return chapa.InitializeResponse{}, f.initErr
	}
	return chapa.InitializeResponse{CheckoutURL: "https://checkout.test/" + in.TxRef}, nil
}

func (f *fakeGateway) Verify(ctx context.Context, reference string) (chapa.VerifyResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.verifyCalls++
	if f.verifyErr != nil {
		return chapa.VerifyResult{}, f.verifyErr
	}
	if vr, ok := f.results[reference]; ok {
		return vr, nil
	}
	return chapa.VerifyResult{Denied: true, ProviderStatus: "not_found"}, nil
}

func (f *fakeGateway) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.verifyCalls
}

func (f *fakeGateway) HostedFormFields(in chapa.InitializeRequest) map[string]string {
	return map[string]string{
		"public_key": "pk-test",
		"tx_ref":     in.TxRef,
		"amount":     in.Amount.String(),
	}
}

type depositFixture struct {
	tx      *fakeTxStore
	wallets *fakeWallets
	ledger  *fakeLedger
	failed  *fakeFailedStore
	audit   *fakeAuditStore
	gw      *fakeGateway
	svc     *DepositService
}

func newDepositFixture() *depositFixture {
	tx := newFakeTxStore()
	wallets := newFakeWallets()
	ledger := newFakeLedger(tx, wallets)
	failed := &fakeFailedStore{}
	audit := &fakeAuditStore{}
	gw := newFakeGateway()
	svc := NewDepositService(tx, wallets, ledger, failed, audit, gw, nil, DepositConfig{
		AppBaseURL:      "https://app.test",
		StalePendingAge: 30 * time.Minute,
		SweepBatchSize:  50,
	})
	return &depositFixture{tx: tx, wallets: wallets, ledger: ledger, failed: failed, audit: audit, gw: gw, svc: svc}
}
