package postgres

import (
	repo "github.com/gebeya-labs/wallet-backend/internal/repository"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Repositories struct {
	Users              repo.Users
	Wallets            repo.Wallets
	Transactions       repo.Transactions
	Ledger             repo.Ledger
	Withdrawals        repo.Withdrawals
	FailedTransactions repo.FailedTransactions
	AuditLogs          repo.AuditLogs
}

func NewRepositories(pool *pgxpool.Pool) Repositories {
	return Repositories{
		Users:              &usersRepo{pool},
		Wallets:            &walletsRepo{pool},
		Transactions:       &transactionsRepo{pool},
		Ledger:             &ledgerRepo{pool},
		Withdrawals:        &withdrawalsRepo{pool},
		FailedTransactions: &failedTransactionsRepo{pool},
		AuditLogs:          &auditLogsRepo{pool},
	}
}
