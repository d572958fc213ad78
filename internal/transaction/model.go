package transaction

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Kind identifies the money-movement flavor a record captures.
type Kind string

const (
	KindDeposit    Kind = "DEPOSIT"
	KindWithdrawal Kind = "WITHDRAWAL"
	KindTransfer   Kind = "TRANSFER"
)

// Status tracks a record through its lifecycle.
type Status string

const (
	StatusPending   Status = "PENDING"
	StatusCompleted Status = "COMPLETED"
	StatusFailed    Status = "FAILED"
	StatusCancelled Status = "CANCELLED"
)

// Record is the durable trace of one money-movement attempt. Deposits carry
// only a destination account, withdrawals only a source, transfers both.
type Record struct {
	ID                   string
	SourceAccountID      string
	DestinationAccountID string
	Amount               decimal.Decimal
	Kind                 Kind
	Status               Status
	Description          string
	CreatedAt            time.Time
	CompletedAt          *time.Time
}

func newRecord(kind Kind, source, destination string, amount decimal.Decimal, description string, now time.Time) Record {
	return Record{
		ID:                   uuid.NewString(),
		SourceAccountID:      source,
		DestinationAccountID: destination,
		Amount:               amount,
		Kind:                 kind,
		Status:               StatusPending,
		Description:          description,
		CreatedAt:            now,
	}
}

// IsPending reports whether the record is still awaiting its outcome.
func (r *Record) IsPending() bool { return r.Status == StatusPending }

// IsFailed reports whether the record ended in failure.
func (r *Record) IsFailed() bool { return r.Status == StatusFailed }

// MarkCompleted transitions PENDING -> COMPLETED and stamps CompletedAt.
func (r *Record) MarkCompleted(now time.Time) error {
	if r.Status != StatusPending {
		return ErrIllegalTransition
	}
	r.Status = StatusCompleted
	r.CompletedAt = &now
	return nil
}

// MarkFailed transitions PENDING -> FAILED and stamps CompletedAt.
func (r *Record) MarkFailed(now time.Time) error {
	if r.Status != StatusPending {
		return ErrIllegalTransition
	}
	r.Status = StatusFailed
	r.CompletedAt = &now
	return nil
}

// MarkCancelled transitions PENDING -> CANCELLED and stamps CompletedAt.
// Only pending records can be cancelled.
func (r *Record) MarkCancelled(now time.Time) error {
	if r.Status != StatusPending {
		return ErrIllegalTransition
	}
	r.Status = StatusCancelled
	r.CompletedAt = &now
	return nil
}

// ResetForRetry transitions FAILED -> PENDING and clears CompletedAt. This is
// the only transition out of a terminal-looking state, and it is always
// operator or user initiated.
func (r *Record) ResetForRetry() error {
	if r.Status != StatusFailed {
		return ErrIllegalTransition
	}
	r.Status = StatusPending
	r.CompletedAt = nil
	return nil
}

// Involves reports whether the account participates in the record.
func (r *Record) Involves(accountID string) bool {
	return r.SourceAccountID == accountID || r.DestinationAccountID == accountID
}
