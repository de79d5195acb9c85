package ledger

import (
	"context"
	"fmt"
	"log"
	"sort"

	"cardvault-api/internal/model"
	"cardvault-api/internal/repository"
)

// Trades is the bazaar trade requests table. Mutations require the lock.
type Trades struct {
	t *table
}

// Lock acquires the trades lock.
func (tr *Trades) Lock() { tr.t.Lock() }

// Unlock releases the trades lock.
func (tr *Trades) Unlock() { tr.t.Unlock() }

// All returns every trade request, oldest first.
func (tr *Trades) All(ctx context.Context) ([]model.TradeRequest, error) {
	raw, err := tr.t.rows(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]model.TradeRequest, 0, len(raw))
	for _, r := range raw {
		req, err := DecodeTrade(r.Cells)
		if err != nil {
			log.Printf("[Ledger] Skipping undecodable trade row %q: %v", r.Key, err)
			continue
		}
		out = append(out, req)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// Get returns a trade request by id.
func (tr *Trades) Get(ctx context.Context, id string) (model.TradeRequest, bool, error) {
	raw, err := tr.t.rows(ctx)
	if err != nil {
		return model.TradeRequest{}, false, err
	}
	for _, r := range raw {
		if r.Key != id {
			continue
		}
		req, err := DecodeTrade(r.Cells)
		if err != nil {
			return model.TradeRequest{}, false, fmt.Errorf("failed to decode trade %s: %w", id, err)
		}
		return req, true, nil
	}
	return model.TradeRequest{}, false, nil
}

// Put stores a trade request. Caller must hold the lock.
func (tr *Trades) Put(ctx context.Context, req model.TradeRequest) error {
	return tr.t.write(ctx, repository.Batch{Upserts: []repository.Row{{Key: req.ID, Cells: EncodeTrade(req)}}})
}

// PutAll stores several trade requests in one batch. Caller must hold the lock.
func (tr *Trades) PutAll(ctx context.Context, reqs []model.TradeRequest) error {
	batch := repository.Batch{Upserts: make([]repository.Row, 0, len(reqs))}
	for _, req := range reqs {
		batch.Upserts = append(batch.Upserts, repository.Row{Key: req.ID, Cells: EncodeTrade(req)})
	}
	return tr.t.write(ctx, batch)
}
