package ledger

import (
	"context"
	"fmt"
	"log"

	"cardvault-api/internal/model"
	"cardvault-api/internal/repository"
)

// Holdings is an ownership-shaped table: one row per item, owner counts as cells.
// Both the main ledger and the vault are Holdings.
//
// Reads may be called without the lock. Mutations must be called with the lock
// held so that read-modify-write sequences are serialized.
type Holdings struct {
	t *table
}

// Name returns the table name.
func (h *Holdings) Name() Table { return h.t.name }

// Lock acquires the table lock.
func (h *Holdings) Lock() { h.t.Lock() }

// Unlock releases the table lock.
func (h *Holdings) Unlock() { h.t.Unlock() }

// Rows returns every ownership row.
func (h *Holdings) Rows(ctx context.Context) ([]model.OwnershipRow, error) {
	raw, err := h.t.rows(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]model.OwnershipRow, 0, len(raw))
	for _, r := range raw {
		row, err := DecodeOwnershipRow(r.Cells)
		if err != nil {
			log.Printf("[Ledger] Skipping undecodable %s row %q: %v", h.t.name, r.Key, err)
			continue
		}
		out = append(out, row)
	}
	return out, nil
}

// Row returns the ownership row of an item, if present.
func (h *Holdings) Row(ctx context.Context, key model.ItemKey) (model.OwnershipRow, bool, error) {
	raw, err := h.t.rows(ctx)
	if err != nil {
		return model.OwnershipRow{}, false, err
	}
	rowKey := itemRowKey(key)
	for _, r := range raw {
		if r.Key != rowKey {
			continue
		}
		row, err := DecodeOwnershipRow(r.Cells)
		if err != nil {
			return model.OwnershipRow{}, false, fmt.Errorf("failed to decode %s row %s: %w", h.t.name, key, err)
		}
		return row, true, nil
	}
	return model.OwnershipRow{}, false, nil
}

// Count returns how many copies of an item an owner holds.
func (h *Holdings) Count(ctx context.Context, key model.ItemKey, owner string) (int, error) {
	row, ok, err := h.Row(ctx, key)
	if err != nil || !ok {
		return 0, err
	}
	return row.Owners[owner], nil
}

// Of returns every item an owner holds with its count.
func (h *Holdings) Of(ctx context.Context, owner string) (map[model.ItemKey]int, error) {
	rows, err := h.Rows(ctx)
	if err != nil {
		return nil, err
	}
	out := make(map[model.ItemKey]int)
	for _, row := range rows {
		if c := row.Owners[owner]; c > 0 {
			out[row.Key] = c
		}
	}
	return out, nil
}

// Totals returns the total count of every item across owners.
func (h *Holdings) Totals(ctx context.Context) (map[model.ItemKey]int, error) {
	rows, err := h.Rows(ctx)
	if err != nil {
		return nil, err
	}
	out := make(map[model.ItemKey]int, len(rows))
	for _, row := range rows {
		out[row.Key] = row.Total()
	}
	return out, nil
}

// SetCount sets an owner's count. A zero count removes the owner's cell but keeps the row.
// Caller must hold the lock.
func (h *Holdings) SetCount(ctx context.Context, key model.ItemKey, owner string, count int) error {
	if key.Category == "" || key.Name == "" || owner == "" || count < 0 {
		return model.Wrap(model.ErrInvalidInput, fmt.Sprintf("set %s count of %s for %q to %d", h.t.name, key, owner, count), nil)
	}
	row, ok, err := h.Row(ctx, key)
	if err != nil {
		return err
	}
	if !ok {
		if count == 0 {
			return nil
		}
		row = model.OwnershipRow{Key: key, Owners: make(map[string]int)}
	}
	if count == 0 {
		delete(row.Owners, owner)
	} else {
		row.Owners[owner] = count
	}
	return h.t.write(ctx, repository.Batch{
		Upserts: []repository.Row{{Key: itemRowKey(key), Cells: EncodeOwnershipRow(row)}},
	})
}

// Add changes an owner's count by delta. A result below zero fails with
// ErrInsufficientItems and writes nothing. Caller must hold the lock.
func (h *Holdings) Add(ctx context.Context, key model.ItemKey, owner string, delta int) error {
	current, err := h.Count(ctx, key, owner)
	if err != nil {
		return err
	}
	next := current + delta
	if next < 0 {
		return model.Wrap(model.ErrInsufficientItems, fmt.Sprintf("%s holds %d of %s in %s", owner, current, key, h.t.name), nil)
	}
	if delta == 0 {
		return nil
	}
	return h.SetCount(ctx, key, owner, next)
}
