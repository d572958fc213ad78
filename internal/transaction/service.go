package transaction

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/danjos91/my-bank-app/internal/accounts"
	"github.com/danjos91/my-bank-app/internal/notification"
)

// Service orchestrates money movement: it sequences the local record, the
// remote balance mutations and the best-effort notification for each
// operation, and owns the record state machine.
type Service struct {
	store    Store
	accounts accounts.Client
	notifier notification.Notifier
	logger   *slog.Logger
	now      func() time.Time
}

// NewService builds the orchestrator.
func NewService(store Store, accountsClient accounts.Client, notifier notification.Notifier, logger *slog.Logger) *Service {
	return &Service{
		store:    store,
		accounts: accountsClient,
		notifier: notifier,
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// DepositInput captures a cash deposit request.
type DepositInput struct {
	AccountID   string
	Amount      decimal.Decimal
	Description string
}

// WithdrawInput captures a cash withdrawal request.
type WithdrawInput struct {
	AccountID   string
	Amount      decimal.Decimal
	Description string
}

// TransferInput captures an account-to-account transfer request.
type TransferInput struct {
	SourceAccountID      string
	DestinationAccountID string
	Amount               decimal.Decimal
	Description          string
}

// Deposit credits the destination account and records the movement.
func (s *Service) Deposit(ctx context.Context, input DepositInput) (Record, error) {
	if err := validateAmount(input.Amount); err != nil {
		return Record{}, err
	}
	if input.AccountID == "" {
		return Record{}, fmt.Errorf("%w: account id is required", ErrValidation)
	}
	if err := s.requireAccount(ctx, input.AccountID); err != nil {
		return Record{}, err
	}

	record := newRecord(KindDeposit, "", input.AccountID, input.Amount, input.Description, s.now())
	if err := s.store.Save(ctx, record); err != nil {
		return Record{}, err
	}

	if err := s.accounts.Adjust(ctx, input.AccountID, input.Amount); err != nil {
		return s.fail(ctx, record, fmt.Errorf("credit account %s: %w", input.AccountID, err))
	}

	record, err := s.complete(ctx, record)
	if err != nil {
		return Record{}, err
	}

	s.notify(ctx, notification.Event{
		UserID:  input.AccountID,
		Kind:    notification.KindDepositReceived,
		Title:   "Deposit Received",
		Message: fmt.Sprintf("You deposited %s", record.Amount.StringFixed(2)),
	})

	return record, nil
}

// Withdraw debits the source account after a balance check.
func (s *Service) Withdraw(ctx context.Context, input WithdrawInput) (Record, error) {
	if err := validateAmount(input.Amount); err != nil {
		return Record{}, err
	}
	if input.AccountID == "" {
		return Record{}, fmt.Errorf("%w: account id is required", ErrValidation)
	}
	if err := s.requireAccount(ctx, input.AccountID); err != nil {
		return Record{}, err
	}
	if err := s.requireBalance(ctx, input.AccountID, input.Amount); err != nil {
		return Record{}, err
	}

	record := newRecord(KindWithdrawal, input.AccountID, "", input.Amount, input.Description, s.now())
	if err := s.store.Save(ctx, record); err != nil {
		return Record{}, err
	}

	if err := s.accounts.Adjust(ctx, input.AccountID, input.Amount.Neg()); err != nil {
		return s.fail(ctx, record, fmt.Errorf("debit account %s: %w", input.AccountID, err))
	}

	record, err := s.complete(ctx, record)
	if err != nil {
		return Record{}, err
	}

	s.notify(ctx, notification.Event{
		UserID:  input.AccountID,
		Kind:    notification.KindWithdrawalCompleted,
		Title:   "Withdrawal Completed",
		Message: fmt.Sprintf("You withdrew %s", record.Amount.StringFixed(2)),
	})

	return record, nil
}

// Transfer moves the amount from source to destination: existence checks,
// balance check, PENDING record, debit, credit, COMPLETED, notifications.
//
// When the credit fails after a successful debit the record is marked FAILED
// but the debit is not reversed; the ledger and the record disagree until an
// operator reconciles. The error log below is the breadcrumb for that.
func (s *Service) Transfer(ctx context.Context, input TransferInput) (Record, error) {
	if err := validateAmount(input.Amount); err != nil {
		return Record{}, err
	}
	if input.SourceAccountID == "" || input.DestinationAccountID == "" {
		return Record{}, fmt.Errorf("%w: source and destination are required", ErrValidation)
	}
	if input.SourceAccountID == input.DestinationAccountID {
		return Record{}, fmt.Errorf("%w: source and destination must differ", ErrValidation)
	}

	if err := s.requireAccount(ctx, input.SourceAccountID); err != nil {
		return Record{}, err
	}
	if err := s.requireAccount(ctx, input.DestinationAccountID); err != nil {
		return Record{}, err
	}
	if err := s.requireBalance(ctx, input.SourceAccountID, input.Amount); err != nil {
		return Record{}, err
	}

	record := newRecord(KindTransfer, input.SourceAccountID, input.DestinationAccountID, input.Amount, input.Description, s.now())
	if err := s.store.Save(ctx, record); err != nil {
		return Record{}, err
	}

	if err := s.accounts.Adjust(ctx, input.SourceAccountID, input.Amount.Neg()); err != nil {
		return s.fail(ctx, record, fmt.Errorf("debit account %s: %w", input.SourceAccountID, err))
	}

	if err := s.accounts.Adjust(ctx, input.DestinationAccountID, input.Amount); err != nil {
		s.logger.Error("credit failed after successful debit, debit not reversed",
			"transaction_id", record.ID,
			"source_account", input.SourceAccountID,
			"destination_account", input.DestinationAccountID,
			"amount", input.Amount.StringFixed(2),
			"error", err,
		)
		return s.fail(ctx, record, fmt.Errorf("credit account %s: %w", input.DestinationAccountID, err))
	}

	record, err := s.complete(ctx, record)
	if err != nil {
		return Record{}, err
	}

	s.notify(ctx, notification.Event{
		UserID:  input.SourceAccountID,
		Kind:    notification.KindTransferSent,
		Title:   "Transfer Sent",
		Message: fmt.Sprintf("You sent %s to account %s", record.Amount.StringFixed(2), input.DestinationAccountID),
	})
	s.notify(ctx, notification.Event{
		UserID:  input.DestinationAccountID,
		Kind:    notification.KindTransferReceived,
		Title:   "Transfer Received",
		Message: fmt.Sprintf("You received %s from account %s", record.Amount.StringFixed(2), input.SourceAccountID),
	})

	return record, nil
}

// Cancel moves a PENDING record to CANCELLED.
func (s *Service) Cancel(ctx context.Context, id string) (Record, error) {
	record, err := s.store.FindByID(ctx, id)
	if err != nil {
		return Record{}, err
	}
	if err := record.MarkCancelled(s.now()); err != nil {
		return Record{}, err
	}
	if err := s.store.Save(ctx, record); err != nil {
		return Record{}, err
	}
	s.logger.Info("transaction cancelled", "transaction_id", record.ID)
	return record, nil
}

// Retry resets a FAILED record to PENDING and clears its completion stamp.
// It does not re-execute the movement; the caller issues a fresh request.
func (s *Service) Retry(ctx context.Context, id string) (Record, error) {
	record, err := s.store.FindByID(ctx, id)
	if err != nil {
		return Record{}, err
	}
	if err := record.ResetForRetry(); err != nil {
		return Record{}, err
	}
	if err := s.store.Save(ctx, record); err != nil {
		return Record{}, err
	}
	s.logger.Info("transaction marked for retry", "transaction_id", record.ID)
	return record, nil
}

// Get fetches a record by id.
func (s *Service) Get(ctx context.Context, id string) (Record, error) {
	return s.store.FindByID(ctx, id)
}

// ListByAccount returns records involving the account, newest first.
func (s *Service) ListByAccount(ctx context.Context, accountID string) ([]Record, error) {
	return s.store.FindByAccount(ctx, accountID)
}

// ListByStatus returns records in the given status, newest first.
func (s *Service) ListByStatus(ctx context.Context, status Status) ([]Record, error) {
	return s.store.FindByStatus(ctx, status)
}

// ListByAccountAndStatus narrows ListByAccount by status.
func (s *Service) ListByAccountAndStatus(ctx context.Context, accountID string, status Status) ([]Record, error) {
	return s.store.FindByAccountAndStatus(ctx, accountID, status)
}

// TotalSent sums completed transfers sent by the account.
func (s *Service) TotalSent(ctx context.Context, accountID string) (decimal.Decimal, error) {
	return s.store.SumBySource(ctx, accountID, KindTransfer)
}

// TotalReceived sums completed transfers received by the account.
func (s *Service) TotalReceived(ctx context.Context, accountID string) (decimal.Decimal, error) {
	return s.store.SumByDestination(ctx, accountID, KindTransfer)
}

// CountByAccountAndStatus counts records involving the account in a status.
func (s *Service) CountByAccountAndStatus(ctx context.Context, accountID string, status Status) (int64, error) {
	return s.store.CountByAccountAndStatus(ctx, accountID, status)
}

func validateAmount(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return fmt.Errorf("%w: amount must be positive", ErrValidation)
	}
	if amount.Exponent() < -2 {
		return fmt.Errorf("%w: amount supports at most 2 decimal places", ErrValidation)
	}
	return nil
}

func (s *Service) requireAccount(ctx context.Context, accountID string) error {
	ok, err := s.accounts.Exists(ctx, accountID)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrDependencyUnavailable, err)
	}
	if !ok {
		return fmt.Errorf("%w: %s", ErrAccountNotFound, accountID)
	}
	return nil
}

func (s *Service) requireBalance(ctx context.Context, accountID string, amount decimal.Decimal) error {
	balance, err := s.accounts.Balance(ctx, accountID)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrDependencyUnavailable, err)
	}
	if balance.LessThan(amount) {
		return fmt.Errorf("%w: available %s, requested %s", ErrInsufficientFunds, balance.StringFixed(2), amount.StringFixed(2))
	}
	return nil
}

// fail marks the record FAILED, persists it and surfaces a dependency error.
func (s *Service) fail(ctx context.Context, record Record, cause error) (Record, error) {
	if err := record.MarkFailed(s.now()); err != nil {
		return Record{}, err
	}
	if err := s.store.Save(ctx, record); err != nil {
		s.logger.Error("persisting failed transaction", "transaction_id", record.ID, "error", err)
	}
	return record, fmt.Errorf("%w: %w", ErrDependencyUnavailable, cause)
}

func (s *Service) complete(ctx context.Context, record Record) (Record, error) {
	if err := record.MarkCompleted(s.now()); err != nil {
		return Record{}, err
	}
	if err := s.store.Save(ctx, record); err != nil {
		return Record{}, err
	}
	s.logger.Info("transaction completed",
		"transaction_id", record.ID,
		"kind", record.Kind,
		"amount", record.Amount.StringFixed(2),
	)
	return record, nil
}

// notify delivers one event, logging and swallowing any failure.
func (s *Service) notify(ctx context.Context, event notification.Event) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Emit(ctx, event); err != nil {
		s.logger.Warn("notification delivery failed",
			"user_id", event.UserID,
			"kind", event.Kind,
			"error", err,
		)
	}
}
