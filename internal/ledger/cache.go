package ledger

import (
	"context"
	"log"
	"sync"
	"time"

	"cardvault-api/internal/repository"
)

// tableCache is a short-lived snapshot of one table.
// Reads within ttl are served from memory; a successful write refreshes it
// synchronously so writers observe their own writes. gen counts writes: a
// load that started before a write never replaces the snapshot that write
// produced.
type tableCache struct {
	name  string
	store repository.TableStore
	ttl   time.Duration

	mu       sync.RWMutex
	rows     []repository.Row
	loadedAt time.Time
	valid    bool
	gen      uint64
}

func newTableCache(name string, store repository.TableStore, ttl time.Duration) *tableCache {
	return &tableCache{name: name, store: store, ttl: ttl}
}

// get returns the cached rows, reloading them when the snapshot is stale.
// The returned slice must not be modified.
func (c *tableCache) get(ctx context.Context) ([]repository.Row, error) {
	c.mu.RLock()
	if c.valid && time.Since(c.loadedAt) < c.ttl {
		rows := c.rows
		c.mu.RUnlock()
		return rows, nil
	}
	c.mu.RUnlock()

	return c.refresh(ctx)
}

// refresh reloads the table from the store. When a write lands while the
// load is in flight the loaded rows are returned to the caller but not kept.
func (c *tableCache) refresh(ctx context.Context) ([]repository.Row, error) {
	c.mu.RLock()
	gen := c.gen
	c.mu.RUnlock()

	rows, err := c.store.LoadTable(ctx, c.name)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.gen != gen {
		return rows, nil
	}
	c.rows = rows
	c.loadedAt = time.Now()
	c.valid = true
	return rows, nil
}

// applied records a batch that already landed in the store. It tries a full
// reload and falls back to patching the snapshot in place.
func (c *tableCache) applied(ctx context.Context, batch repository.Batch) {
	c.mu.Lock()
	c.gen++
	c.mu.Unlock()

	_, err := c.refresh(ctx)
	if err == nil {
		return
	}
	log.Printf("[Ledger] Refresh of %s after write failed, patching cache: %v", c.name, err)

	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.valid {
		return
	}
	index := make(map[string]int, len(c.rows))
	rows := make([]repository.Row, 0, len(c.rows)+len(batch.Upserts))
	for _, r := range c.rows {
		index[r.Key] = len(rows)
		rows = append(rows, r)
	}
	for _, up := range batch.Upserts {
		if i, ok := index[up.Key]; ok {
			rows[i] = up
			continue
		}
		index[up.Key] = len(rows)
		rows = append(rows, up)
	}
	deleted := make(map[string]bool, len(batch.Deletes))
	for _, key := range batch.Deletes {
		deleted[key] = true
	}
	kept := rows[:0]
	for _, r := range rows {
		if !deleted[r.Key] {
			kept = append(kept, r)
		}
	}
	c.rows = kept
}

// invalidate forces the next get to reload.
func (c *tableCache) invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gen++
	c.valid = false
}
