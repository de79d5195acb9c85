package repository

import (
	"context"
	"sync"
)

// WriteHook can veto a batch before it is applied. n is the 1-based count of
// writes attempted against the table, including this one.
type WriteHook func(table string, n int, batch Batch) error

type memoryTable struct {
	order []string
	rows  map[string][]string
}

// MemoryTableStore is an in-memory TableStore.
// Use this for development/testing; failures can be injected with SetWriteHook.
type MemoryTableStore struct {
	mu     sync.Mutex
	tables map[string]*memoryTable
	writes map[string]int
	hook   WriteHook
}

// NewMemoryTableStore creates an empty in-memory store.
func NewMemoryTableStore() *MemoryTableStore {
	return &MemoryTableStore{
		tables: make(map[string]*memoryTable),
		writes: make(map[string]int),
	}
}

// SetWriteHook installs (or clears, with nil) a write hook.
func (s *MemoryTableStore) SetWriteHook(hook WriteHook) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hook = hook
}

// Writes returns how many batches were attempted against a table.
func (s *MemoryTableStore) Writes(table string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writes[table]
}

// LoadTable returns copies of every row of a table in insertion order.
func (s *MemoryTableStore) LoadTable(ctx context.Context, table string) ([]Row, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tables[table]
	if !ok {
		return nil, nil
	}
	out := make([]Row, 0, len(t.order))
	for _, key := range t.order {
		cells := make([]string, len(t.rows[key]))
		copy(cells, t.rows[key])
		out = append(out, Row{Key: key, Cells: cells})
	}
	return out, nil
}

// ApplyBatch applies a batch atomically unless the write hook rejects it.
func (s *MemoryTableStore) ApplyBatch(ctx context.Context, table string, batch Batch) error {
	if batch.IsEmpty() {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.writes[table]++
	if s.hook != nil {
		if err := s.hook(table, s.writes[table], batch); err != nil {
			return err
		}
	}

	t, ok := s.tables[table]
	if !ok {
		t = &memoryTable{rows: make(map[string][]string)}
		s.tables[table] = t
	}
	for _, row := range batch.Upserts {
		if _, exists := t.rows[row.Key]; !exists {
			t.order = append(t.order, row.Key)
		}
		cells := make([]string, len(row.Cells))
		copy(cells, row.Cells)
		t.rows[row.Key] = cells
	}
	for _, key := range batch.Deletes {
		if _, exists := t.rows[key]; !exists {
			continue
		}
		delete(t.rows, key)
		for i, k := range t.order {
			if k == key {
				t.order = append(t.order[:i], t.order[i+1:]...)
				break
			}
		}
	}
	return nil
}

// GetStats returns row counts per table.
func (s *MemoryTableStore) GetStats(ctx context.Context) (map[string]interface{}, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	counts := make(map[string]int64, len(s.tables))
	for name, t := range s.tables {
		counts[name] = int64(len(t.order))
	}
	return map[string]interface{}{
		"backend": "memory",
		"rows":    counts,
	}, nil
}

// Close is a no-op.
func (s *MemoryTableStore) Close() error {
	return nil
}

// Ensure MemoryTableStore implements TableStore
var _ TableStore = (*MemoryTableStore)(nil)
