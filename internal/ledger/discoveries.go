package ledger

import (
	"context"
	"log"
	"sort"

	"cardvault-api/internal/model"
	"cardvault-api/internal/repository"
)

// Discoveries is the first-acquisition table. Mutations require the lock.
type Discoveries struct {
	t *table
}

// Lock acquires the discoveries lock.
func (d *Discoveries) Lock() { d.t.Lock() }

// Unlock releases the discoveries lock.
func (d *Discoveries) Unlock() { d.t.Unlock() }

// All returns every discovery ordered by index.
func (d *Discoveries) All(ctx context.Context) ([]model.Discovery, error) {
	raw, err := d.t.rows(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]model.Discovery, 0, len(raw))
	for _, r := range raw {
		rec, err := DecodeDiscovery(r.Cells)
		if err != nil {
			log.Printf("[Ledger] Skipping undecodable discovery row %q: %v", r.Key, err)
			continue
		}
		out = append(out, rec)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Index < out[j].Index })
	return out, nil
}

// Find returns the discovery of an item, if any.
func (d *Discoveries) Find(ctx context.Context, key model.ItemKey) (model.Discovery, bool, error) {
	all, err := d.All(ctx)
	if err != nil {
		return model.Discovery{}, false, err
	}
	for _, rec := range all {
		if rec.Item == key {
			return rec, true, nil
		}
	}
	return model.Discovery{}, false, nil
}

// Append stores a new discovery. Caller must hold the lock.
func (d *Discoveries) Append(ctx context.Context, rec model.Discovery) error {
	return d.t.write(ctx, repository.Batch{Upserts: []repository.Row{
		{Key: itemRowKey(rec.Item), Cells: EncodeDiscovery(rec)},
	}})
}
