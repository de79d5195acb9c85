package ledger

import (
	"context"
	"fmt"

	"cardvault-api/internal/model"
	"cardvault-api/internal/repository"
)

// Counters is the per-user gating table. Mutations require the lock.
type Counters struct {
	t *table
}

// Lock acquires the counters lock.
func (c *Counters) Lock() { c.t.Lock() }

// Unlock releases the counters lock.
func (c *Counters) Unlock() { c.t.Unlock() }

// Get returns a user's counters; a user without a row gets zero values.
func (c *Counters) Get(ctx context.Context, userID string) (model.DailyCounters, error) {
	raw, err := c.t.rows(ctx)
	if err != nil {
		return model.DailyCounters{}, err
	}
	for _, r := range raw {
		if r.Key != userID {
			continue
		}
		counters, err := DecodeCounters(r.Cells)
		if err != nil {
			return model.DailyCounters{}, fmt.Errorf("failed to decode counters of %s: %w", userID, err)
		}
		return counters, nil
	}
	return model.DailyCounters{UserID: userID}, nil
}

// Put stores a user's counters. Caller must hold the lock.
func (c *Counters) Put(ctx context.Context, counters model.DailyCounters) error {
	if counters.UserID == "" {
		return model.Wrap(model.ErrInvalidInput, "counters without user id", nil)
	}
	return c.t.write(ctx, repository.Batch{Upserts: []repository.Row{
		{Key: counters.UserID, Cells: EncodeCounters(counters)},
	}})
}
