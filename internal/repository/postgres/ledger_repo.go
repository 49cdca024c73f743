package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/gebeya-labs/wallet-backend/internal/models"
	repo "github.com/gebeya-labs/wallet-backend/internal/repository"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// ledgerRepo applies exactly-once balance movements. The idempotency gate and
// the two writes (wallet balance, transaction status) run inside one
// transaction, so a crash at any point rolls the reference back to pending
// and a replay re-enters the gate as a no-op.
type ledgerRepo struct{ pool *pgxpool.Pool }

func (r *ledgerRepo) CreditOnce(ctx context.Context, userID, reference string, amount decimal.Decimal) (repo.LedgerEntry, error) {
	return r.applyOnce(ctx, userID, reference, amount, false)
}

func (r *ledgerRepo) DebitOnce(ctx context.Context, userID, reference string, amount decimal.Decimal) (repo.LedgerEntry, error) {
	return r.applyOnce(ctx, userID, reference, amount, true)
}

func (r *ledgerRepo) applyOnce(ctx context.Context, userID, reference string, amount decimal.Decimal, debit bool) (repo.LedgerEntry, error) {
	// Read committed, not serializable: the conditional pending->processing
	// UPDATE is the CAS and the wallet row is locked FOR UPDATE. When two
	// verifies race, the loser's gate UPDATE blocks on the winner's row lock,
	// re-evaluates its WHERE after the winner commits, matches zero rows and
	// falls through to lostGate. Serializable would instead abort the loser
	// with a 40001 it has no way to act on.
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{
		IsoLevel:   pgx.ReadCommitted,
		AccessMode: pgx.ReadWrite,
	})
	if err != nil {
		return repo.LedgerEntry{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	// Idempotency gate: only the writer that wins pending->processing may
	// touch the balance.
	tag, err := tx.Exec(ctx,
		`UPDATE transactions SET status=$3, updated_at=now()
		  WHERE reference=$1 AND user_id=$2 AND status=$4`,
		reference, userID, models.TxnProcessing, models.TxnPending,
	)
	if err != nil {
		return repo.LedgerEntry{}, err
	}
	if tag.RowsAffected() == 0 {
		return r.lostGate(ctx, tx, userID, reference)
	}

	_, err = tx.Exec(ctx,
		`INSERT INTO wallets(user_id, balance, currency, active)
		 VALUES($1, 0, $2, true)
		 ON CONFLICT (user_id) DO NOTHING`,
		userID, models.DefaultCurrency,
	)
	if err != nil {
		return repo.LedgerEntry{}, err
	}

	var prev decimal.Decimal
	if err := tx.QueryRow(ctx,
		`SELECT balance FROM wallets WHERE user_id=$1 FOR UPDATE`, userID,
	).Scan(&prev); err != nil {
		return repo.LedgerEntry{}, err
	}

	next := prev.Add(amount)
	if debit {
		next = prev.Sub(amount)
		if next.IsNegative() {
			// Persist the failure mark, then surface the error. The rollback
			// of the processing flip must not swallow it.
			if _, err := tx.Exec(ctx,
				`UPDATE transactions
				    SET status=$2,
				        metadata = coalesce(metadata, '{}'::jsonb) || jsonb_build_object('failure_reason', 'insufficient balance'),
				        updated_at = now()
				  WHERE reference=$1`,
				reference, models.TxnFailed,
			); err != nil {
				return repo.LedgerEntry{}, err
			}
			if err := tx.Commit(ctx); err != nil {
				return repo.LedgerEntry{}, err
			}
			return repo.LedgerEntry{}, repo.ErrInsufficientBalance
		}
	}

	var w models.Wallet
	if err := tx.QueryRow(ctx,
		`UPDATE wallets SET balance=$2, updated_at=now()
		  WHERE user_id=$1
		  RETURNING user_id, balance, currency, active, created_at, updated_at`,
		userID, next,
	).Scan(&w.UserID, &w.Balance, &w.Currency, &w.Active, &w.CreatedAt, &w.UpdatedAt); err != nil {
		return repo.LedgerEntry{}, err
	}

	if _, err := tx.Exec(ctx,
		`UPDATE transactions
		    SET status=$2,
		        metadata = coalesce(metadata, '{}'::jsonb) ||
		                   jsonb_build_object('previous_balance', $3::text, 'new_balance', $4::text),
		        updated_at = now()
		  WHERE reference=$1`,
		reference, models.TxnCompleted, prev.String(), next.String(),
	); err != nil {
		return repo.LedgerEntry{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return repo.LedgerEntry{}, err
	}
	return repo.LedgerEntry{Wallet: w, PreviousBalance: prev, NewBalance: next, Applied: true}, nil
}

// lostGate classifies why the pending->processing transition did not happen.
// An already-completed reference is the idempotent success path: report the
// recorded outcome without touching the balance.
func (r *ledgerRepo) lostGate(ctx context.Context, tx pgx.Tx, userID, reference string) (repo.LedgerEntry, error) {
	var status models.TransactionStatus
	var meta map[string]any
	err := tx.QueryRow(ctx,
		`SELECT status, metadata FROM transactions WHERE reference=$1 AND user_id=$2`,
		reference, userID,
	).Scan(&status, &meta)
	if errors.Is(err, pgx.ErrNoRows) {
		return repo.LedgerEntry{}, repo.ErrNotFound
	}
	if err != nil {
		return repo.LedgerEntry{}, err
	}

	switch status {
	case models.TxnCompleted:
		var w models.Wallet
		err := tx.QueryRow(ctx,
			`SELECT user_id, balance, currency, active, created_at, updated_at
			   FROM wallets WHERE user_id=$1`,
			userID,
		).Scan(&w.UserID, &w.Balance, &w.Currency, &w.Active, &w.CreatedAt, &w.UpdatedAt)
		if err != nil {
			return repo.LedgerEntry{}, err
		}
		entry := repo.LedgerEntry{Wallet: w, NewBalance: w.Balance, Applied: false}
		if s, ok := meta["previous_balance"].(string); ok {
			if d, derr := decimal.NewFromString(s); derr == nil {
				entry.PreviousBalance = d
			}
		}
		if s, ok := meta["new_balance"].(string); ok {
			if d, derr := decimal.NewFromString(s); derr == nil {
				entry.NewBalance = d
			}
		}
		return entry, nil
	case models.TxnProcessing:
		return repo.LedgerEntry{}, repo.ErrInFlight
	case models.TxnFailed:
		return repo.LedgerEntry{}, repo.ErrTerminal
	default:
		return repo.LedgerEntry{}, fmt.Errorf("unexpected status %q for %s", status, reference)
	}
}
