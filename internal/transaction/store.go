package transaction

import (
	"context"

	"github.com/shopspring/decimal"
)

// Store persists transaction records. Implementations guarantee per-record
// atomicity only; the orchestrator owns all business logic.
type Store interface {
	// Save inserts the record or replaces it by ID.
	Save(ctx context.Context, record Record) error

	// FindByID returns the record or ErrNotFound.
	FindByID(ctx context.Context, id string) (Record, error)

	// FindByAccount returns records involving the account as source or
	// destination, newest first.
	FindByAccount(ctx context.Context, accountID string) ([]Record, error)

	// FindByStatus returns records in the given status, newest first.
	FindByStatus(ctx context.Context, status Status) ([]Record, error)

	// FindByAccountAndStatus narrows FindByAccount by status.
	FindByAccountAndStatus(ctx context.Context, accountID string, status Status) ([]Record, error)

	// SumBySource totals completed amounts of the kind where the account is
	// the source.
	SumBySource(ctx context.Context, accountID string, kind Kind) (decimal.Decimal, error)

	// SumByDestination totals completed amounts of the kind where the
	// account is the destination.
	SumByDestination(ctx context.Context, accountID string, kind Kind) (decimal.Decimal, error)

	// CountByAccountAndStatus counts records involving the account in the
	// given status.
	CountByAccountAndStatus(ctx context.Context, accountID string, status Status) (int64, error)
}
