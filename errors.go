package steward

import "errors"

// Sentinel errors for common failure modes.
var (
	// ErrValidation indicates a request or configuration failed validation.
	ErrValidation = errors.New("validation error")

	// ErrUserNotFound indicates the ledger has no record of the requested user.
	ErrUserNotFound = errors.New("user not found")

	// ErrSourceClosed indicates Next() was called on a closed TokenSource.
	ErrSourceClosed = errors.New("token source closed")
)
