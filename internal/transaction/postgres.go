package transaction

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// PostgresStore persists records in the transactions table.
type PostgresStore struct {
	db *pgxpool.Pool
}

// NewPostgresStore constructs a Postgres-backed store.
func NewPostgresStore(db *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{db: db}
}

const selectColumns = `id, source_account_id, destination_account_id, amount::text, kind, status, description, created_at, completed_at`

// Save inserts the record or updates its mutable fields by id.
func (s *PostgresStore) Save(ctx context.Context, record Record) error {
	_, err := s.db.Exec(ctx, `
        INSERT INTO transactions (id, source_account_id, destination_account_id, amount, kind, status, description, created_at, completed_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
        ON CONFLICT (id) DO UPDATE SET status = EXCLUDED.status, completed_at = EXCLUDED.completed_at`,
		record.ID,
		nullable(record.SourceAccountID),
		nullable(record.DestinationAccountID),
		record.Amount.StringFixed(2),
		string(record.Kind),
		string(record.Status),
		record.Description,
		record.CreatedAt.UTC(),
		record.CompletedAt,
	)
	return err
}

// FindByID fetches a single record.
func (s *PostgresStore) FindByID(ctx context.Context, id string) (Record, error) {
	row := s.db.QueryRow(ctx, `SELECT `+selectColumns+` FROM transactions WHERE id = $1`, id)
	record, err := scanRecord(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Record{}, ErrNotFound
	}
	return record, err
}

// FindByAccount returns records where the account is source or destination.
func (s *PostgresStore) FindByAccount(ctx context.Context, accountID string) ([]Record, error) {
	rows, err := s.db.Query(ctx, `
        SELECT `+selectColumns+` FROM transactions
        WHERE source_account_id = $1 OR destination_account_id = $1
        ORDER BY created_at DESC`, accountID)
	if err != nil {
		return nil, err
	}
	return scanRecords(rows)
}

// FindByStatus returns records in a status, newest first.
func (s *PostgresStore) FindByStatus(ctx context.Context, status Status) ([]Record, error) {
	rows, err := s.db.Query(ctx, `
        SELECT `+selectColumns+` FROM transactions
        WHERE status = $1
        ORDER BY created_at DESC`, string(status))
	if err != nil {
		return nil, err
	}
	return scanRecords(rows)
}

// FindByAccountAndStatus narrows FindByAccount by status.
func (s *PostgresStore) FindByAccountAndStatus(ctx context.Context, accountID string, status Status) ([]Record, error) {
	rows, err := s.db.Query(ctx, `
        SELECT `+selectColumns+` FROM transactions
        WHERE (source_account_id = $1 OR destination_account_id = $1) AND status = $2
        ORDER BY created_at DESC`, accountID, string(status))
	if err != nil {
		return nil, err
	}
	return scanRecords(rows)
}

// SumBySource totals completed amounts of a kind sent by the account.
func (s *PostgresStore) SumBySource(ctx context.Context, accountID string, kind Kind) (decimal.Decimal, error) {
	return s.sum(ctx, `
        SELECT COALESCE(SUM(amount), 0)::text FROM transactions
        WHERE source_account_id = $1 AND kind = $2 AND status = $3`, accountID, kind)
}

// SumByDestination totals completed amounts of a kind received by the account.
func (s *PostgresStore) SumByDestination(ctx context.Context, accountID string, kind Kind) (decimal.Decimal, error) {
	return s.sum(ctx, `
        SELECT COALESCE(SUM(amount), 0)::text FROM transactions
        WHERE destination_account_id = $1 AND kind = $2 AND status = $3`, accountID, kind)
}

// CountByAccountAndStatus counts records involving the account in a status.
func (s *PostgresStore) CountByAccountAndStatus(ctx context.Context, accountID string, status Status) (int64, error) {
	var count int64
	err := s.db.QueryRow(ctx, `
        SELECT COUNT(*) FROM transactions
        WHERE (source_account_id = $1 OR destination_account_id = $1) AND status = $2`,
		accountID, string(status)).Scan(&count)
	return count, err
}

func (s *PostgresStore) sum(ctx context.Context, query, accountID string, kind Kind) (decimal.Decimal, error) {
	var raw string
	err := s.db.QueryRow(ctx, query, accountID, string(kind), string(StatusCompleted)).Scan(&raw)
	if err != nil {
		return decimal.Zero, err
	}
	total, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, fmt.Errorf("decode sum: %w", err)
	}
	return total, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (Record, error) {
	var (
		r           Record
		source      *string
		destination *string
		amount      string
		kind        string
		status      string
		createdAt   time.Time
		completedAt *time.Time
	)
	if err := row.Scan(&r.ID, &source, &destination, &amount, &kind, &status, &r.Description, &createdAt, &completedAt); err != nil {
		return Record{}, err
	}
	if source != nil {
		r.SourceAccountID = *source
	}
	if destination != nil {
		r.DestinationAccountID = *destination
	}
	parsed, err := decimal.NewFromString(amount)
	if err != nil {
		return Record{}, fmt.Errorf("decode amount: %w", err)
	}
	r.Amount = parsed
	r.Kind = Kind(kind)
	r.Status = Status(status)
	r.CreatedAt = createdAt.UTC()
	if completedAt != nil {
		utc := completedAt.UTC()
		r.CompletedAt = &utc
	}
	return r, nil
}

func scanRecords(rows pgx.Rows) ([]Record, error) {
	defer rows.Close()
	var out []Record
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, record)
	}
	return out, rows.Err()
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
