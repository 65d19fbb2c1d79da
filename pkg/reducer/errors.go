package reducer

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation is matched by every *ValidationError.
	ErrValidation            = errors.New("validation error")
	ErrInsufficientFunds     = errors.New("insufficient funds")
	ErrInsufficientInventory = errors.New("insufficient inventory")
	ErrInventoryFull         = errors.New("inventory full")
	ErrOutOfStock            = errors.New("out of stock")
	ErrUnknownParent         = errors.New("unknown parent")
	ErrTradeOnCooldown       = errors.New("trade on cooldown")
	ErrRequirementsNotMet    = errors.New("trade requirements not met")
	ErrUnknownAction         = errors.New("unknown action")
)

// ValidationError rejects an action with bad arguments before any mutation.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

func Invalid(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

// IsBusinessRule reports whether err is an expected gameplay rejection
// rather than bad input or a programming error.
func IsBusinessRule(err error) bool {
	for _, target := range []error{
		ErrInsufficientFunds,
		ErrInsufficientInventory,
		ErrInventoryFull,
		ErrOutOfStock,
		ErrUnknownParent,
		ErrTradeOnCooldown,
		ErrRequirementsNotMet,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
