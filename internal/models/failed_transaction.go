package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// FailedTransaction is an audit-only sink: rows are written when a deposit is
// denied by the provider or aged out by the sweeper, and never read back by
// the flow itself.
type FailedTransaction struct {
	ID        string          `json:"id"`
	Reference string          `json:"reference"`
	UserID    string          `json:"user_id"`
	Amount    decimal.Decimal `json:"amount"`
	Reason    string          `json:"reason"`
	CreatedAt time.Time       `json:"created_at"`
}
