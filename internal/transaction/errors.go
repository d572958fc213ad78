package transaction

import "errors"

var (
	// ErrValidation indicates a malformed request. Nothing was persisted and
	// no remote call was made.
	ErrValidation = errors.New("invalid request")

	// ErrInsufficientFunds indicates the source balance cannot cover the
	// amount. Nothing was persisted and no mutation was attempted.
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrAccountNotFound indicates an account failed the existence check.
	ErrAccountNotFound = errors.New("account not found")

	// ErrDependencyUnavailable indicates a required remote mutation failed
	// after the resilience policy gave up; the record is FAILED.
	ErrDependencyUnavailable = errors.New("dependency unavailable")

	// ErrIllegalTransition indicates the requested status change is not
	// permitted by the record state machine.
	ErrIllegalTransition = errors.New("illegal status transition")

	// ErrNotFound indicates no record exists for the identifier.
	ErrNotFound = errors.New("transaction not found")
)
