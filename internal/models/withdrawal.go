package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type WithdrawalStatus string

const (
	WdPending    WithdrawalStatus = "pending"
	WdProcessing WithdrawalStatus = "processing"
	WdCompleted  WithdrawalStatus = "completed"
	WdRejected   WithdrawalStatus = "rejected"
)

type WithdrawalRequest struct {
	ID            string            `json:"id"`
	UserID        string            `json:"user_id"`
	Amount        decimal.Decimal   `json:"amount"`
	Method        TransactionMethod `json:"method"`
	AccountName   string            `json:"account_name"`
	AccountNumber string            `json:"account_number"`
	BankCode      string            `json:"bank_code,omitempty"`
	Status        WithdrawalStatus  `json:"status"`
	Reference     string            `json:"reference"`
	Notes         string            `json:"notes,omitempty"`
	CreatedAt     time.Time         `json:"created_at"`
	UpdatedAt     time.Time         `json:"updated_at"`
}
