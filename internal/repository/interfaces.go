package repository

import (
	"context"
	"errors"
	"time"

	"github.com/gebeya-labs/wallet-backend/internal/models"
	"github.com/shopspring/decimal"
)

var (
	ErrNotFound = errors.New("not found")
	// ErrInFlight: another writer won the pending->processing transition and
	// has not committed yet.
	ErrInFlight = errors.New("reference is being processed")
	// ErrTerminal: the reference already reached failed and cannot move again.
	ErrTerminal            = errors.New("reference is terminal")
	ErrInsufficientBalance = errors.New("insufficient balance")
)

type Users interface {
	Create(ctx context.Context, firstName, lastName, email, passwordHash, role string) (models.User, error)
	GetByID(ctx context.Context, id string) (models.User, error)
	GetByEmail(ctx context.Context, email string) (models.User, error)
}

type Wallets interface {
	GetOrCreate(ctx context.Context, userID string) (models.Wallet, error)
	Get(ctx context.Context, userID string) (models.Wallet, error)
}

type Transactions interface {
	Create(ctx context.Context, t models.Transaction) (models.Transaction, error)
	GetByRef(ctx context.Context, reference string) (models.Transaction, error)
	GetByID(ctx context.Context, id string) (models.Transaction, error)
	ListByUser(ctx context.Context, userID string, limit, offset int) ([]models.Transaction, error)
	// MarkFailed moves a pending reference to failed. It is conditional: a
	// reference that already left pending is untouched and reported false.
	MarkFailed(ctx context.Context, reference, reason string) (bool, error)
	ListStalePending(ctx context.Context, cutoff time.Time, limit int) ([]models.Transaction, error)
}

// LedgerEntry reports the outcome of an exactly-once balance movement.
// Applied is false when the idempotency gate found the reference already
// completed, in which case the balances echo the recorded outcome.
type LedgerEntry struct {
	Wallet          models.Wallet
	PreviousBalance decimal.Decimal
	NewBalance      decimal.Decimal
	Applied         bool
}

// Ledger is the only path that mutates wallet balances. Implementations must
// run the idempotency gate (pending->processing), the balance write and the
// completed flip as a single atomic unit keyed by the reference.
type Ledger interface {
	CreditOnce(ctx context.Context, userID, reference string, amount decimal.Decimal) (LedgerEntry, error)
	DebitOnce(ctx context.Context, userID, reference string, amount decimal.Decimal) (LedgerEntry, error)
}

type Withdrawals interface {
	Create(ctx context.Context, w models.WithdrawalRequest) (models.WithdrawalRequest, error)
	GetByID(ctx context.Context, id string) (models.WithdrawalRequest, error)
	ListByUser(ctx context.Context, userID string, limit, offset int) ([]models.WithdrawalRequest, error)
	ListByStatus(ctx context.Context, status models.WithdrawalStatus, limit, offset int) ([]models.WithdrawalRequest, error)
	UpdateStatus(ctx context.Context, id string, status models.WithdrawalStatus, notes string) error
}

type FailedTransactions interface {
	Create(ctx context.Context, f models.FailedTransaction) error
}

type AuditLogs interface {
	Create(ctx context.Context, l models.AuditLog) error
}
