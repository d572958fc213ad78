package accounts

import (
	"context"
	"errors"
	"sync"

	"github.com/shopspring/decimal"
)

// ErrStubUnavailable simulates a dependency outage in tests.
var ErrStubUnavailable = errors.New("accounts stub unavailable")

// Stub is an in-memory accounts backend for unit tests and dev mode. Failure
// hooks let tests script dependency outages per operation.
type Stub struct {
	mu       sync.RWMutex
	balances map[string]decimal.Decimal

	// AutoCreate makes unknown accounts spring into existence with a zero
	// balance, which keeps dev mode usable without an accounts service.
	AutoCreate bool

	// Failure hooks. When set, the corresponding operation returns the error.
	BalanceErr error
	AdjustErr  error
	ExistsErr  error

	// AdjustErrAfter fails the n-th Adjust call (1-based) and all later ones
	// when positive. Used to break the credit leg after a successful debit.
	AdjustErrAfter int
	adjustCalls    int
}

// NewStub creates an empty stub ledger.
func NewStub() *Stub {
	return &Stub{balances: make(map[string]decimal.Decimal)}
}

// Seed sets an account balance, creating the account when missing.
func (s *Stub) Seed(accountID string, balance decimal.Decimal) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.balances[accountID] = balance
}

// Balance implements Client.
func (s *Stub) Balance(_ context.Context, accountID string) (decimal.Decimal, error) {
	if s.BalanceErr != nil {
		return decimal.Zero, s.BalanceErr
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	balance, ok := s.balances[accountID]
	if !ok {
		if s.AutoCreate {
			return decimal.Zero, nil
		}
		return decimal.Zero, ErrNotFound
	}
	return balance, nil
}

// Adjust implements Client.
func (s *Stub) Adjust(_ context.Context, accountID string, delta decimal.Decimal) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.adjustCalls++
	if s.AdjustErr != nil {
		return s.AdjustErr
	}
	if s.AdjustErrAfter > 0 && s.adjustCalls >= s.AdjustErrAfter {
		return ErrStubUnavailable
	}

	balance, ok := s.balances[accountID]
	if !ok {
		if !s.AutoCreate {
			return ErrNotFound
		}
		balance = decimal.Zero
	}
	s.balances[accountID] = balance.Add(delta)
	return nil
}

// Exists implements Client.
func (s *Stub) Exists(_ context.Context, accountID string) (bool, error) {
	if s.ExistsErr != nil {
		return false, s.ExistsErr
	}
	if s.AutoCreate {
		return true, nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.balances[accountID]
	return ok, nil
}

// Snapshot returns the current balance without error handling, for asserts.
func (s *Stub) Snapshot(accountID string) decimal.Decimal {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.balances[accountID]
}
