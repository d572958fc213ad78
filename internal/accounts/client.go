package accounts

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
)

// ErrNotFound indicates the accounts service does not know the account.
var ErrNotFound = errors.New("account not found")

// Client is the remote balance-ledger surface the orchestrator consumes.
// Implementations own their transport and resilience concerns; callers see
// either a real result or a typed failure.
type Client interface {
	// Balance returns the current balance for the account.
	Balance(ctx context.Context, accountID string) (decimal.Decimal, error)

	// Adjust mutates the account balance by delta: positive credits,
	// negative debits.
	Adjust(ctx context.Context, accountID string, delta decimal.Decimal) error

	// Exists reports whether the account is known to the accounts service.
	Exists(ctx context.Context, accountID string) (bool, error)
}
