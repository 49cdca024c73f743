package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type TransactionType string

const (
	TxnDeposit    TransactionType = "deposit"
	TxnWithdrawal TransactionType = "withdrawal"
	TxnPayment    TransactionType = "payment"
	TxnRefund     TransactionType = "refund"
)

type TransactionMethod string

const (
	MethodChapa        TransactionMethod = "chapa"
	MethodBankTransfer TransactionMethod = "bank_transfer"
	MethodTelebirr     TransactionMethod = "telebirr"
	MethodInternal     TransactionMethod = "internal"
)

type TransactionStatus string

const (
	TxnPending    TransactionStatus = "pending"
	TxnProcessing TransactionStatus = "processing"
	TxnCompleted  TransactionStatus = "completed"
	TxnFailed     TransactionStatus = "failed"
)

// Transaction correlates a local ledger movement with the payment provider
// through Reference, the natural key. Once Completed it is terminal: neither
// the amount nor the status may change again.
type Transaction struct {
	ID          string            `json:"id"`
	UserID      string            `json:"user_id"`
	Amount      decimal.Decimal   `json:"amount"`
	Type        TransactionType   `json:"type"`
	Method      TransactionMethod `json:"method"`
	Status      TransactionStatus `json:"status"`
	Reference   string            `json:"reference"`
	Description string            `json:"description,omitempty"`
	Metadata    map[string]any    `json:"metadata,omitempty"`
	CreatedAt   time.Time         `json:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at"`
}

func (t Transaction) Terminal() bool {
	return t.Status == TxnCompleted || t.Status == TxnFailed
}
