package transaction

import (
	"context"
	"sort"
	"sync"

	"github.com/shopspring/decimal"
)

type memoryStore struct {
	mu      sync.RWMutex
	records map[string]Record
}

// NewMemoryStore creates a concurrency-safe in-memory store used by unit
// tests and dev mode.
func NewMemoryStore() Store {
	return &memoryStore{records: make(map[string]Record)}
}

func (s *memoryStore) Save(_ context.Context, record Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[record.ID] = record
	return nil
}

func (s *memoryStore) FindByID(_ context.Context, id string) (Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	record, ok := s.records[id]
	if !ok {
		return Record{}, ErrNotFound
	}
	return record, nil
}

func (s *memoryStore) FindByAccount(_ context.Context, accountID string) ([]Record, error) {
	return s.filter(func(r Record) bool { return r.Involves(accountID) }), nil
}

func (s *memoryStore) FindByStatus(_ context.Context, status Status) ([]Record, error) {
	return s.filter(func(r Record) bool { return r.Status == status }), nil
}

func (s *memoryStore) FindByAccountAndStatus(_ context.Context, accountID string, status Status) ([]Record, error) {
	return s.filter(func(r Record) bool { return r.Involves(accountID) && r.Status == status }), nil
}

func (s *memoryStore) SumBySource(_ context.Context, accountID string, kind Kind) (decimal.Decimal, error) {
	return s.sum(func(r Record) bool {
		return r.SourceAccountID == accountID && r.Kind == kind && r.Status == StatusCompleted
	}), nil
}

func (s *memoryStore) SumByDestination(_ context.Context, accountID string, kind Kind) (decimal.Decimal, error) {
	return s.sum(func(r Record) bool {
		return r.DestinationAccountID == accountID && r.Kind == kind && r.Status == StatusCompleted
	}), nil
}

func (s *memoryStore) CountByAccountAndStatus(_ context.Context, accountID string, status Status) (int64, error) {
	var count int64
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, r := range s.records {
		if r.Involves(accountID) && r.Status == status {
			count++
		}
	}
	return count, nil
}

func (s *memoryStore) filter(match func(Record) bool) []Record {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Record
	for _, r := range s.records {
		if match(r) {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

func (s *memoryStore) sum(match func(Record) bool) decimal.Decimal {
	s.mu.RLock()
	defer s.mu.RUnlock()
	total := decimal.Zero
	for _, r := range s.records {
		if match(r) {
			total = total.Add(r.Amount)
		}
	}
	return total
}
