package postgres

import (
	"context"

	"github.com/gebeya-labs/wallet-backend/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

type failedTransactionsRepo struct{ pool *pgxpool.Pool }

func (r *failedTransactionsRepo) Create(ctx context.Context, f models.FailedTransaction) error {
	if f.ID == "" {
		f.ID = uuid.NewString()
	}
	_, err := r.pool.Exec(ctx,
		`INSERT INTO failed_transactions(id, reference, user_id, amount, reason)
		 VALUES($1,$2,$3,$4,$5)`,
		f.ID, f.Reference, f.UserID, f.Amount, f.Reason,
	)
	return err
}
