package notification

import (
	"context"
	"log/slog"
)

// Event kinds emitted by the money-movement orchestrator.
const (
	KindTransferSent        = "TRANSFER_SENT"
	KindTransferReceived    = "TRANSFER_RECEIVED"
	KindDepositReceived     = "DEPOSIT_RECEIVED"
	KindWithdrawalCompleted = "WITHDRAWAL_COMPLETED"
)

// Event describes one user-facing notification payload.
type Event struct {
	UserID  string
	Kind    string
	Title   string
	Message string
}

// Notifier delivers events to the notifications service. Delivery is best
// effort: the orchestrator logs and discards failures, it never fails a
// transaction because of one.
type Notifier interface {
	Emit(ctx context.Context, event Event) error
}

// LogNotifier writes events to the structured logger. It backs dev mode and
// tests where no notifications service is running.
type LogNotifier struct {
	logger *slog.Logger
}

// NewLogNotifier constructs a logging notifier.
func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

// Emit writes the event to the structured logger.
func (n *LogNotifier) Emit(_ context.Context, event Event) error {
	if n == nil || n.logger == nil {
		return nil
	}
	n.logger.Info("notification",
		"user_id", event.UserID,
		"kind", event.Kind,
		"title", event.Title,
		"message", event.Message,
	)
	return nil
}
