// Package discovery records the first-ever acquisition of each item.
package discovery

import (
	"context"
	"log"
	"time"

	"cardvault-api/internal/ledger"
	"cardvault-api/internal/model"
)

// Tracker assigns permanent chronological ranks to first acquisitions.
type Tracker struct {
	table *ledger.Discoveries
	now   func() time.Time
}

// NewTracker creates a tracker over the discoveries table.
func NewTracker(table *ledger.Discoveries) *Tracker {
	return &Tracker{table: table, now: time.Now}
}

// WithClock replaces the timestamp source.
func (t *Tracker) WithClock(now func() time.Time) *Tracker {
	t.now = now
	return t
}

// LogDiscovery records key as discovered by discovererID unless it already is.
// It returns the item's discovery index and whether this call created it.
// Concurrent first discoverers are serialized by the discoveries lock, so
// exactly one record is created and every caller sees the same index.
func (t *Tracker) LogDiscovery(ctx context.Context, key model.ItemKey, discovererID, discovererName string) (int, bool, error) {
	t.table.Lock()
	defer t.table.Unlock()

	all, err := t.table.All(ctx)
	if err != nil {
		return 0, false, err
	}
	for _, rec := range all {
		if rec.Item == key {
			return rec.Index, false, nil
		}
	}

	rec := model.Discovery{
		Item:           key,
		DiscovererID:   discovererID,
		DiscovererName: discovererName,
		Timestamp:      t.now().UTC(),
		Index:          len(all) + 1,
	}
	if err := t.table.Append(ctx, rec); err != nil {
		return 0, false, err
	}
	log.Printf("[DiscoveryTracker] %s discovered %s (#%d)", discovererID, key, rec.Index)
	return rec.Index, true, nil
}

// Lookup returns the discovery of key, if any.
func (t *Tracker) Lookup(ctx context.Context, key model.ItemKey) (model.Discovery, bool, error) {
	return t.table.Find(ctx, key)
}

// List returns up to limit discoveries, oldest first. limit <= 0 returns all.
func (t *Tracker) List(ctx context.Context, limit int) ([]model.Discovery, error) {
	all, err := t.table.All(ctx)
	if err != nil {
		return nil, err
	}
	if limit > 0 && len(all) > limit {
		all = all[:limit]
	}
	return all, nil
}

// CountBy returns how many items userID discovered first.
func (t *Tracker) CountBy(ctx context.Context, userID string) (int, error) {
	all, err := t.table.All(ctx)
	if err != nil {
		return 0, err
	}
	n := 0
	for _, rec := range all {
		if rec.DiscovererID == userID {
			n++
		}
	}
	return n, nil
}
