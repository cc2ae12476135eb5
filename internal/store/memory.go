package store

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/castlemilk/pfinance/insights/internal/insights"
	"github.com/google/uuid"
)

// MemoryStore keeps ledger records in memory. It is used for local
// development and tests.
type MemoryStore struct {
	mu sync.RWMutex

	// records by ID
	records map[string]TransactionRecord
}

// NewMemoryStore creates a new in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		records: make(map[string]TransactionRecord),
	}
}

// PutRecords validates and stores records, assigning IDs to records without
// one. Nothing is stored if any record is invalid.
func (m *MemoryStore) PutRecords(ctx context.Context, records ...TransactionRecord) error {
	prepared := make([]TransactionRecord, 0, len(records))
	for _, rec := range records {
		if rec.ID == "" {
			rec.ID = uuid.New().String()
		}
		if rec.UserID == "" {
			return fmt.Errorf("record %s: missing user id", rec.ID)
		}
		if _, err := rec.ToTransaction(); err != nil {
			return err
		}
		prepared = append(prepared, rec)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	for _, rec := range prepared {
		m.records[rec.ID] = rec
	}
	return nil
}

// DeleteUser removes every record of a user.
func (m *MemoryStore) DeleteUser(ctx context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for id, rec := range m.records {
		if rec.UserID == userID {
			delete(m.records, id)
		}
	}
	return nil
}

func (m *MemoryStore) ListTransactions(ctx context.Context, userID string, r DateRange) ([]insights.Transaction, error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}

	m.mu.RLock()
	var matching []TransactionRecord
	for _, rec := range m.records {
		if rec.UserID != userID || !r.Contains(rec.Date) {
			continue
		}
		matching = append(matching, rec)
	}
	m.mu.RUnlock()

	sort.Slice(matching, func(i, j int) bool {
		if !matching[i].Date.Equal(matching[j].Date) {
			return matching[i].Date.Before(matching[j].Date)
		}
		return matching[i].ID < matching[j].ID
	})
	return convertRecords(matching)
}

// Len returns the number of stored records.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.records)
}
