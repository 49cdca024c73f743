package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/gebeya-labs/wallet-backend/internal/models"
	repo "github.com/gebeya-labs/wallet-backend/internal/repository"
)

type fakeWdStore struct {
	mu   sync.Mutex
	byID map[string]models.WithdrawalRequest
	seq  int
}

func newFakeWdStore() *fakeWdStore {
	return &fakeWdStore{byID: map[string]models.WithdrawalRequest{}}
}

func (f *fakeWdStore) Create(ctx context.Context, w models.WithdrawalRequest) (models.WithdrawalRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seq++
	w.ID = fmt.Sprintf("wd-%d", f.seq)
	f.byID[w.ID] = w
	return w, nil
}

func (f *fakeWdStore) GetByID(ctx context.Context, id string) (models.WithdrawalRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	w, ok := f.byID[id]
	if !ok {
		return models.WithdrawalRequest{}, repo.ErrNotFound
	}
	return w, nil
}

func (f *fakeWdStore) ListByUser(ctx context.Context, userID string, limit, offset int) ([]models.WithdrawalRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.WithdrawalRequest
	for _, w := range f.byID {
		if w.UserID == userID {
			out = append(out, w)
		}
	}
	return out, nil
}

func (f *fakeWdStore) ListByStatus(ctx context.Context, status models.WithdrawalStatus, limit, offset int) ([]models.WithdrawalRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.WithdrawalRequest
	for _, w := range f.byID {
		if w.Status == status {
			out = append(out, w)
		}
	}
	return out, nil
}

func (f *fakeWdStore) UpdateStatus(ctx context.Context, id string, status models.WithdrawalStatus, notes string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	w, ok := f.byID[id]
	if !ok {
		return repo.ErrNotFound
	}
	w.Status = status
	w.Notes = notes
	f.byID[id] = w
	return nil
}

type withdrawalFixture struct {
	wd      *fakeWdStore
	tx      *fakeTxStore
	wallets *fakeWallets
	ledger  *fakeLedger
	svc     *WithdrawalService
}

func newWithdrawalFixture(balance string) *withdrawalFixture {
	tx := newFakeTxStore()
	wallets := newFakeWallets()
	wallets.byUser[testUser] = models.Wallet{
		UserID:   testUser,
		Balance:  amount(balance),
		Currency: models.DefaultCurrency,
		Active:   true,
	}
	ledger := newFakeLedger(tx, wallets)
	wd := newFakeWdStore()
	svc := NewWithdrawalService(wd, tx, ledger, &fakeAuditStore{})
	return &withdrawalFixture{wd: wd, tx: tx, wallets: wallets, ledger: ledger, svc: svc}
}

func validInput(amt string) WithdrawalInput {
	return WithdrawalInput{
		Amount:        amount(amt),
		Method:        models.MethodBankTransfer,
		AccountName:   "Abebe Bikila",
		AccountNumber: "1000123456789",
		BankCode:      "CBE",
	}
}

func TestWithdrawalRequest(t *testing.T) {
	ctx := context.Background()

	t.Run("validation failures leave wallet untouched", func(t *testing.T) {
		fx := newWithdrawalFixture("100")
		cases := []WithdrawalInput{
			{Amount: amount("0"), Method: models.MethodBankTransfer, AccountName: "a", AccountNumber: "1"},
			{Amount: amount("10"), Method: models.MethodBankTransfer},
			{Amount: amount("10"), Method: models.MethodChapa, AccountName: "a", AccountNumber: "1"},
		}
		for i, in := range cases {
			if _, err := fx.svc.Request(ctx, testUser, in); !errors.Is(err, ErrValidation) {
				t.Errorf("case %d: expected ErrValidation, got %v", i, err)
			}
		}
		w, _ := fx.wallets.Get(ctx, testUser)
		if !w.Balance.Equal(amount("100")) {
			t.Errorf("balance = %s, want 100", w.Balance)
		}
	})

	t.Run("debits once and moves request to processing", func(t *testing.T) {
		fx := newWithdrawalFixture("100")
		w, err := fx.svc.Request(ctx, testUser, validInput("40"))
		if err != nil {
			t.Fatalf("Request failed: %v", err)
		}
		if w.Status != models.WdProcessing {
			t.Errorf("status = %s, want processing", w.Status)
		}
		if !strings.HasPrefix(w.Reference, "GBYA-WD-") {
			t.Errorf("reference = %q, want GBYA-WD- prefix", w.Reference)
		}
		wal, _ := fx.wallets.Get(ctx, testUser)
		if !wal.Balance.Equal(amount("60")) {
			t.Errorf("balance = %s, want 60", wal.Balance)
		}
		if fx.ledger.Applied != 1 {
			t.Errorf("ledger applied %d movements, want 1", fx.ledger.Applied)
		}
		rec, _ := fx.tx.GetByRef(ctx, w.Reference)
		if rec.Status != models.TxnCompleted || rec.Type != models.TxnWithdrawal {
			t.Errorf("unexpected ledger record: %+v", rec)
		}
	})

	t.Run("insufficient balance rejects without debiting", func(t *testing.T) {
		fx := newWithdrawalFixture("30")
		_, err := fx.svc.Request(ctx, testUser, validInput("50"))
		if !errors.Is(err, ErrInsufficientBalance) {
			t.Fatalf("expected ErrInsufficientBalance, got %v", err)
		}
		w, _ := fx.wallets.Get(ctx, testUser)
		if !w.Balance.Equal(amount("30")) {
			t.Errorf("balance = %s, want 30", w.Balance)
		}
		reqs, _ := fx.wd.ListByStatus(ctx, models.WdRejected, 10, 0)
		if len(reqs) != 1 {
			t.Errorf("rejected requests = %d, want 1", len(reqs))
		}
	})
}

func TestWithdrawalApprove(t *testing.T) {
	ctx := context.Background()
	fx := newWithdrawalFixture("100")
	w, err := fx.svc.Request(ctx, testUser, validInput("40"))
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}

	got, err := fx.svc.Approve(ctx, w.ID, "paid via CBE")
	if err != nil {
		t.Fatalf("Approve failed: %v", err)
	}
	if got.Status != models.WdCompleted || got.Notes != "paid via CBE" {
		t.Errorf("unexpected result: %+v", got)
	}

	// Approval is a bookkeeping transition, the debit already happened.
	wal, _ := fx.wallets.Get(ctx, testUser)
	if !wal.Balance.Equal(amount("60")) {
		t.Errorf("balance = %s, want 60", wal.Balance)
	}

	if _, err := fx.svc.Approve(ctx, w.ID, "again"); !errors.Is(err, ErrValidation) {
		t.Errorf("double approve: expected ErrValidation, got %v", err)
	}
	if _, err := fx.svc.Approve(ctx, "wd-999", ""); !errors.Is(err, ErrNotFound) {
		t.Errorf("unknown id: expected ErrNotFound, got %v", err)
	}
}

func TestWithdrawalReject(t *testing.T) {
	ctx := context.Background()
	fx := newWithdrawalFixture("100")
	w, err := fx.svc.Request(ctx, testUser, validInput("40"))
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}

	got, err := fx.svc.Reject(ctx, w.ID, "account name mismatch")
	if err != nil {
		t.Fatalf("Reject failed: %v", err)
	}
	if got.Status != models.WdRejected {
		t.Errorf("status = %s, want rejected", got.Status)
	}

	// The refund restores the debited amount through its own reference.
	wal, _ := fx.wallets.Get(ctx, testUser)
	if !wal.Balance.Equal(amount("100")) {
		t.Errorf("balance = %s after refund, want 100", wal.Balance)
	}
	var refunds int
	fx.tx.mu.Lock()
	for ref, rec := range fx.tx.byRef {
		if rec.Type == models.TxnRefund {
			refunds++
			if !strings.HasPrefix(ref, "GBYA-RF-") {
				t.Errorf("refund reference = %q, want GBYA-RF- prefix", ref)
			}
			if rec.Status != models.TxnCompleted {
				t.Errorf("refund status = %s, want completed", rec.Status)
			}
		}
	}
	fx.tx.mu.Unlock()
	if refunds != 1 {
		t.Errorf("refund transactions = %d, want 1", refunds)
	}

	if _, err := fx.svc.Reject(ctx, w.ID, "again"); !errors.Is(err, ErrValidation) {
		t.Errorf("double reject: expected ErrValidation, got %v", err)
	}
}
