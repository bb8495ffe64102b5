package service

import "errors"

// Authorization errors.
var ErrForbidden = errors.New("forbidden: caller cannot manage this wallet")

// Validation errors.
var (
	ErrInvalidAmount        = errors.New("invalid amount")
	ErrRecipientNotEligible = errors.New("recipient is not an active, unblocked member of the organization")
	ErrEmptyBatch           = errors.New("bulk disbursement needs at least one recipient")
	ErrBatchTooLarge        = errors.New("bulk disbursement exceeds the recipient limit")
	ErrInvalidStatus        = errors.New("unknown wallet status")
)

// State errors. Callers may retry once conditions change; the service never does.
var (
	ErrWalletNotFound          = errors.New("wallet not found")
	ErrWalletInactive          = errors.New("wallet is not active")
	ErrInsufficientBalance     = errors.New("insufficient wallet balance")
	ErrInvalidStatusTransition = errors.New("wallet status transition not allowed")
)

// ErrConcurrentUpdate is transient: the unit of work lost a race twice in a row.
var ErrConcurrentUpdate = errors.New("wallet was modified concurrently, try again")
