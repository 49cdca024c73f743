package postgres

import (
	"context"
	"errors"

	"github.com/gebeya-labs/wallet-backend/internal/models"
	repo "github.com/gebeya-labs/wallet-backend/internal/repository"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type withdrawalsRepo struct{ pool *pgxpool.Pool }

const wdColumns = `id, user_id, amount, method, account_name, account_number, bank_code, status, reference, notes, created_at, updated_at`

func scanWithdrawal(row pgx.Row) (models.WithdrawalRequest, error) {
	var w models.WithdrawalRequest
	err := row.Scan(&w.ID, &w.UserID, &w.Amount, &w.Method, &w.AccountName, &w.AccountNumber,
		&w.BankCode, &w.Status, &w.Reference, &w.Notes, &w.CreatedAt, &w.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.WithdrawalRequest{}, repo.ErrNotFound
	}
	return w, err
}

func (r *withdrawalsRepo) Create(ctx context.Context, w models.WithdrawalRequest) (models.WithdrawalRequest, error) {
	if w.ID == "" {
		w.ID = uuid.NewString()
	}
	return scanWithdrawal(r.pool.QueryRow(ctx,
		`INSERT INTO withdrawal_requests(`+wdColumns+`)
		 VALUES($1,$2,$3,$4,$5,$6,$7,$8,$9,$10, now(), now())
		 RETURNING `+wdColumns,
		w.ID, w.UserID, w.Amount, w.Method, w.AccountName, w.AccountNumber,
		w.BankCode, w.Status, w.Reference, w.Notes,
	))
}

func (r *withdrawalsRepo) GetByID(ctx context.Context, id string) (models.WithdrawalRequest, error) {
	return scanWithdrawal(r.pool.QueryRow(ctx,
		`SELECT `+wdColumns+` FROM withdrawal_requests WHERE id=$1`, id))
}

func (r *withdrawalsRepo) ListByUser(ctx context.Context, userID string, limit, offset int) ([]models.WithdrawalRequest, error) {
	return r.list(ctx,
		`SELECT `+wdColumns+`
		   FROM withdrawal_requests
		  WHERE user_id=$1
		  ORDER BY created_at DESC
		  LIMIT $2 OFFSET $3`,
		userID, limit, offset)
}

func (r *withdrawalsRepo) ListByStatus(ctx context.Context, status models.WithdrawalStatus, limit, offset int) ([]models.WithdrawalRequest, error) {
	return r.list(ctx,
		`SELECT `+wdColumns+`
		   FROM withdrawal_requests
		  WHERE status=$1
		  ORDER BY created_at ASC
		  LIMIT $2 OFFSET $3`,
		status, limit, offset)
}

func (r *withdrawalsRepo) list(ctx context.Context, q string, args ...any) ([]models.WithdrawalRequest, error) {
	rows, err := r.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.WithdrawalRequest
	for rows.Next() {
		w, err := scanWithdrawal(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, w)
	}
	return out, rows.Err()
}

func (r *withdrawalsRepo) UpdateStatus(ctx context.Context, id string, status models.WithdrawalStatus, notes string) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE withdrawal_requests
		    SET status=$2, notes=$3, updated_at=now()
		  WHERE id=$1`,
		id, status, notes,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return repo.ErrNotFound
	}
	return nil
}
