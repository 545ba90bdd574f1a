package domain

import "errors"

var (
	// Common domain errors
	ErrNotFound           = errors.New("entity not found")
	ErrAlreadyExists      = errors.New("entity already exists")
	ErrInvalidArgument    = errors.New("invalid argument")
	ErrOperationFailed    = errors.New("operation failed")
	ErrReadDatabaseRow    = errors.New("failed to read database row")
	ErrInvalidExecContext = errors.New("invalid execution context")
	ErrLockNotAcquired    = errors.New("lock not acquired")

	// Payment lifecycle errors. Only the kind is meaningful to callers;
	// the user-facing message is always one of the generic notifications.
	ErrAuthenticationRequired = errors.New("authentication required")
	ErrLedgerWriteFailed      = errors.New("payment ledger write failed")
	ErrAuthorizationFailed    = errors.New("payment authorization failed")
	ErrCompletionWriteFailed  = errors.New("payment completion write failed")
	ErrRenewalFailed          = errors.New("subscription renewal failed")
	ErrLinkWriteFailed        = errors.New("subscription payment link write failed")
	ErrUnexpected             = errors.New("unexpected payment processing failure")

	// Premium resolution errors; logged, never returned to callers.
	ErrResolverStorage = errors.New("premium status storage unavailable")
)
