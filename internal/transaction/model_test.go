package transaction

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func pendingRecord(t *testing.T) Record {
	t.Helper()
	return newRecord(KindTransfer, "a", "b", decimal.RequireFromString("10.00"), "", time.Now().UTC())
}

func TestMarkCompletedStampsCompletedAt(t *testing.T) {
	r := pendingRecord(t)
	now := time.Now().UTC()

	if err := r.MarkCompleted(now); err != nil {
		t.Fatalf("mark completed: %v", err)
	}
	if r.Status != StatusCompleted {
		t.Fatalf("expected COMPLETED, got %s", r.Status)
	}
	if r.CompletedAt == nil || !r.CompletedAt.Equal(now) {
		t.Fatalf("expected completedAt %v, got %v", now, r.CompletedAt)
	}
	if r.CompletedAt.Before(r.CreatedAt) {
		t.Fatal("completedAt must not precede createdAt")
	}
}

func TestTerminalStatesRejectFurtherTransitions(t *testing.T) {
	now := time.Now().UTC()

	completed := pendingRecord(t)
	if err := completed.MarkCompleted(now); err != nil {
		t.Fatalf("mark completed: %v", err)
	}
	if err := completed.MarkCancelled(now); err != ErrIllegalTransition {
		t.Fatalf("expected ErrIllegalTransition, got %v", err)
	}
	if err := completed.ResetForRetry(); err != ErrIllegalTransition {
		t.Fatalf("expected ErrIllegalTransition, got %v", err)
	}

	cancelled := pendingRecord(t)
	if err := cancelled.MarkCancelled(now); err != nil {
		t.Fatalf("mark cancelled: %v", err)
	}
	if err := cancelled.MarkCompleted(now); err != ErrIllegalTransition {
		t.Fatalf("expected ErrIllegalTransition, got %v", err)
	}
	if err := cancelled.ResetForRetry(); err != ErrIllegalTransition {
		t.Fatalf("expected ErrIllegalTransition, got %v", err)
	}
}

func TestResetForRetryClearsCompletedAt(t *testing.T) {
	r := pendingRecord(t)
	now := time.Now().UTC()

	if err := r.MarkFailed(now); err != nil {
		t.Fatalf("mark failed: %v", err)
	}
	if r.CompletedAt == nil {
		t.Fatal("expected completedAt on FAILED record")
	}

	if err := r.ResetForRetry(); err != nil {
		t.Fatalf("reset for retry: %v", err)
	}
	if r.Status != StatusPending {
		t.Fatalf("expected PENDING, got %s", r.Status)
	}
	if r.CompletedAt != nil {
		t.Fatal("expected completedAt cleared after retry reset")
	}

	// Retry is only legal from FAILED.
	if err := r.ResetForRetry(); err != ErrIllegalTransition {
		t.Fatalf("expected ErrIllegalTransition on PENDING retry, got %v", err)
	}
}

func TestInvolves(t *testing.T) {
	r := pendingRecord(t)
	if !r.Involves("a") || !r.Involves("b") {
		t.Fatal("expected both parties to be involved")
	}
	if r.Involves("c") {
		t.Fatal("unexpected involvement")
	}
}
