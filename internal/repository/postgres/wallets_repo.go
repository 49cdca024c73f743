package postgres

import (
	"context"
	"errors"

	"github.com/gebeya-labs/wallet-backend/internal/models"
	repo "github.com/gebeya-labs/wallet-backend/internal/repository"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type walletsRepo struct{ pool *pgxpool.Pool }

func (r *walletsRepo) GetOrCreate(ctx context.Context, userID string) (models.Wallet, error) {
	if w, err := r.Get(ctx, userID); err == nil {
		return w, nil
	}
	_, err := r.pool.Exec(ctx,
		`INSERT INTO wallets(user_id, balance, currency, active)
		 VALUES($1, 0, $2, true)
		 ON CONFLICT (user_id) DO NOTHING`,
		userID, models.DefaultCurrency,
	)
	if err != nil {
		return models.Wallet{}, err
	}
	return r.Get(ctx, userID)
}

func (r *walletsRepo) Get(ctx context.Context, userID string) (models.Wallet, error) {
	var w models.Wallet
	err := r.pool.QueryRow(ctx,
		`SELECT user_id, balance, currency, active, created_at, updated_at
		   FROM wallets
		  WHERE user_id=$1`,
		userID,
	).Scan(&w.UserID, &w.Balance, &w.Currency, &w.Active, &w.CreatedAt, &w.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.Wallet{}, repo.ErrNotFound
	}
	return w, err
}
