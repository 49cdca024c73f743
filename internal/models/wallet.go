package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Wallet is one-per-user, created lazily on first deposit. Balance is only
// ever mutated inside the ledger transaction, never read-modify-written by
// handlers.
type Wallet struct {
	UserID    string          `json:"user_id"`
	Balance   decimal.Decimal `json:"balance"`
	Currency  string          `json:"currency"`
	Active    bool            `json:"active"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

const DefaultCurrency = "ETB"
