package service

import "errors"

// Error kinds surfaced by the services. Callers match with errors.Is; the
// HTTP layer maps each kind to a stable status category.
var (
	// ErrInvalidTransfer indicates a same-card transfer or non-positive amount
	ErrInvalidTransfer = errors.New("invalid transfer")
	// ErrCardNotFound indicates a referenced card does not exist
	ErrCardNotFound = errors.New("card not found")
	// ErrUnauthorized indicates the initiator does not own the resource
	ErrUnauthorized = errors.New("unauthorized")
	// ErrCardNotActive indicates a card is blocked or expired
	ErrCardNotActive = errors.New("card not active")
	// ErrInsufficientBalance indicates the source balance is below the amount
	ErrInsufficientBalance = errors.New("insufficient balance")
	// ErrConcurrencyConflict indicates a lock deadlock or timeout at the store
	ErrConcurrencyConflict = errors.New("concurrency conflict")
	// ErrPersistenceFailure indicates an unexpected failure while committing
	ErrPersistenceFailure = errors.New("persistence failure")

	ErrTransferNotFound  = errors.New("transfer not found")
	ErrUserNotFound      = errors.New("user not found")
	ErrDuplicateResource = errors.New("duplicate resource")
	ErrInvalidCard       = errors.New("invalid card")
	ErrBadCredentials    = errors.New("invalid username or password")
)
