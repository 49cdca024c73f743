package services

import "errors"

// Error taxonomy for the deposit/withdrawal flow. Handlers map these onto
// HTTP statuses; everything else is an internal error.
var (
	// ErrValidation: bad input, rejected before any I/O.
	ErrValidation = errors.New("validation failed")
	// ErrNotFound: the reference is unknown to the local store. Distinct
	// from found-but-not-completed.
	ErrNotFound = errors.New("transaction not found")
	// ErrProviderDenied: the provider explicitly reported the payment as
	// unsuccessful.
	ErrProviderDenied = errors.New("payment was not successful")
	// ErrProviderUnreachable: no answer from the provider; the transaction
	// stays pending and the caller should retry.
	ErrProviderUnreachable = errors.New("payment provider unreachable")
	// ErrInFlight: a concurrent verification holds the idempotency gate.
	ErrInFlight = errors.New("verification already in progress")
	// ErrInsufficientBalance: debit would take the wallet negative.
	ErrInsufficientBalance = errors.New("insufficient balance")
	// ErrForbidden: the record belongs to a different user.
	ErrForbidden = errors.New("forbidden")
)
