package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/gebeya-labs/wallet-backend/internal/models"
	repo "github.com/gebeya-labs/wallet-backend/internal/repository"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type transactionsRepo struct{ pool *pgxpool.Pool }

const txnColumns = `id, user_id, amount, type, method, status, reference, description, metadata, created_at, updated_at`

func scanTxn(row pgx.Row) (models.Transaction, error) {
	var t models.Transaction
	err := row.Scan(&t.ID, &t.UserID, &t.Amount, &t.Type, &t.Method, &t.Status,
		&t.Reference, &t.Description, &t.Metadata, &t.CreatedAt, &t.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.Transaction{}, repo.ErrNotFound
	}
	return t, err
}

// Create inserts a pending record keyed by reference. A duplicate reference
// returns the existing row instead of a second one, so a retried initiate
// cannot fork the flow.
func (r *transactionsRepo) Create(ctx context.Context, t models.Transaction) (models.Transaction, error) {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	const q = `
INSERT INTO transactions (` + txnColumns + `)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9, now(), now())
ON CONFLICT (reference) DO UPDATE
SET reference = EXCLUDED.reference
RETURNING ` + txnColumns
	return scanTxn(r.pool.QueryRow(ctx, q,
		t.ID, t.UserID, t.Amount, t.Type, t.Method, t.Status, t.Reference, t.Description, t.Metadata,
	))
}

func (r *transactionsRepo) GetByRef(ctx context.Context, reference string) (models.Transaction, error) {
	return scanTxn(r.pool.QueryRow(ctx,
		`SELECT `+txnColumns+` FROM transactions WHERE reference=$1`, reference))
}

func (r *transactionsRepo) GetByID(ctx context.Context, id string) (models.Transaction, error) {
	return scanTxn(r.pool.QueryRow(ctx,
		`SELECT `+txnColumns+` FROM transactions WHERE id=$1`, id))
}

func (r *transactionsRepo) ListByUser(ctx context.Context, userID string, limit, offset int) ([]models.Transaction, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+txnColumns+`
		   FROM transactions
		  WHERE user_id=$1
		  ORDER BY created_at DESC
		  LIMIT $2 OFFSET $3`,
		userID, limit, offset,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Transaction
	for rows.Next() {
		t, err := scanTxn(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (r *transactionsRepo) MarkFailed(ctx context.Context, reference, reason string) (bool, error) {
	tag, err := r.pool.Exec(ctx,
		`UPDATE transactions
		    SET status=$2,
		        metadata = coalesce(metadata, '{}'::jsonb) || jsonb_build_object('failure_reason', $3::text),
		        updated_at = now()
		  WHERE reference=$1 AND status=$4`,
		reference, models.TxnFailed, reason, models.TxnPending,
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (r *transactionsRepo) ListStalePending(ctx context.Context, cutoff time.Time, limit int) ([]models.Transaction, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+txnColumns+`
		   FROM transactions
		  WHERE status=$1 AND type=$2 AND created_at < $3
		  ORDER BY created_at ASC
		  LIMIT $4`,
		models.TxnPending, models.TxnDeposit, cutoff, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Transaction
	for rows.Next() {
		t, err := scanTxn(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}
