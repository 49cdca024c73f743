package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/gebeya-labs/wallet-backend/internal/models"
	repo "github.com/gebeya-labs/wallet-backend/internal/repository"
)

type WalletService struct {
	wallets repo.Wallets
	trx     repo.Transactions
}

func NewWalletService(wallets repo.Wallets, trx repo.Transactions) *WalletService {
	return &WalletService{wallets: wallets, trx: trx}
}

// Current lazily creates the wallet: one wallet per user, born on first
// touch, never deleted.
func (s *WalletService) Current(ctx context.Context, userID string) (models.Wallet, error) {
	if userID == "" {
		return models.Wallet{}, fmt.Errorf("%w: user id required", ErrValidation)
	}
	return s.wallets.GetOrCreate(ctx, userID)
}

func (s *WalletService) History(ctx context.Context, userID string, limit, offset int) ([]models.Transaction, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	return s.trx.ListByUser(ctx, userID, limit, offset)
}

// Transaction fetches by id and enforces ownership from the authenticated
// session, never from anything client-supplied.
func (s *WalletService) Transaction(ctx context.Context, userID, id string) (models.Transaction, error) {
	t, err := s.trx.GetByID(ctx, id)
	if errors.Is(err, repo.ErrNotFound) {
		return models.Transaction{}, fmt.Errorf("%w: transaction %s", ErrNotFound, id)
	}
	if err != nil {
		return models.Transaction{}, err
	}
	if t.UserID != userID {
		return models.Transaction{}, ErrForbidden
	}
	return t, nil
}
