package loyalty

import (
	"errors"
	"fmt"

	"github.com/xraph/loyalty/types"
)

// Sentinel errors for common failure scenarios.
var (
	// General errors
	ErrNotFound      = errors.New("loyalty: not found")
	ErrAlreadyExists = errors.New("loyalty: already exists")
	ErrInvalidInput  = errors.New("loyalty: invalid input")
	ErrInvalidAmount = fmt.Errorf("%w: amount must be greater than zero", ErrInvalidInput)
	ErrUnauthorized  = errors.New("loyalty: unauthorized")

	// Ledger state errors
	ErrAlreadyInitialized = errors.New("loyalty: ledger already initialized")
	ErrNotInitialized     = errors.New("loyalty: ledger not initialized")

	// Arithmetic errors. Aliases the types error so checked Amount
	// operations match with errors.Is.
	ErrOverflow = types.ErrOverflow

	// Subscription errors
	ErrSubscriptionNotActive = errors.New("loyalty: subscription is not active")

	// Value transfer errors
	ErrInsufficientFunds   = errors.New("loyalty: insufficient funds")
	ErrInsufficientBalance = errors.New("loyalty: insufficient cashback balance")
	ErrAssetNotFound       = errors.New("loyalty: asset not found")
	ErrAssetExists         = errors.New("loyalty: asset already registered")
	ErrAlreadyReversed     = errors.New("loyalty: receipt already reversed")
	ErrReceiptNotFound     = errors.New("loyalty: receipt not found")

	// Store / execution errors
	ErrStoreClosed    = errors.New("loyalty: store is closed")
	ErrRollbackFailed = errors.New("loyalty: rollback failed")
	ErrConflict       = errors.New("loyalty: concurrent update")
)

// ValidationError represents a validation failure with details.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("loyalty: validation failed for %s: %s", e.Field, e.Message)
}

// Unwrap lets errors.Is match ErrInvalidInput.
func (e ValidationError) Unwrap() error { return ErrInvalidInput }

// IsNotFound reports whether err is a not-found error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrNotInitialized) ||
		errors.Is(err, ErrAssetNotFound) ||
		errors.Is(err, ErrReceiptNotFound)
}

// IsFundsError reports whether err is a value-transfer shortfall.
func IsFundsError(err error) bool {
	return errors.Is(err, ErrInsufficientFunds) ||
		errors.Is(err, ErrInsufficientBalance)
}

// IsConflict reports whether err is caused by an identity collision or a
// lost compare-and-swap on the ledger state.
func IsConflict(err error) bool {
	return errors.Is(err, ErrAlreadyExists) ||
		errors.Is(err, ErrAlreadyInitialized) ||
		errors.Is(err, ErrConflict)
}
