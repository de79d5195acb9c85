package ledger

import (
	"context"
	"fmt"
	"log"
	"sort"
	"strconv"

	"cardvault-api/internal/model"
	"cardvault-api/internal/repository"
)

const boardSequenceKey = "board"

// Board is the public offers table. Mutations require the lock.
type Board struct {
	t   *table
	seq *table
}

// Lock acquires the board lock.
func (b *Board) Lock() { b.t.Lock() }

// Unlock releases the board lock.
func (b *Board) Unlock() { b.t.Unlock() }

// Offers returns every offer ordered by id.
func (b *Board) Offers(ctx context.Context) ([]model.BoardOffer, error) {
	raw, err := b.t.rows(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]model.BoardOffer, 0, len(raw))
	for _, r := range raw {
		o, err := DecodeBoardOffer(r.Cells)
		if err != nil {
			log.Printf("[Ledger] Skipping undecodable board row %q: %v", r.Key, err)
			continue
		}
		out = append(out, o)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// Offer returns one offer by id.
func (b *Board) Offer(ctx context.Context, id int64) (model.BoardOffer, bool, error) {
	raw, err := b.t.rows(ctx)
	if err != nil {
		return model.BoardOffer{}, false, err
	}
	key := strconv.FormatInt(id, 10)
	for _, r := range raw {
		if r.Key != key {
			continue
		}
		o, err := DecodeBoardOffer(r.Cells)
		if err != nil {
			return model.BoardOffer{}, false, fmt.Errorf("failed to decode board offer %d: %w", id, err)
		}
		return o, true, nil
	}
	return model.BoardOffer{}, false, nil
}

// nextID returns an id strictly greater than any issued before, including
// ids of offers that were already consumed.
func (b *Board) nextID(ctx context.Context) (int64, error) {
	var high int64
	seqRows, err := b.seq.rows(ctx)
	if err != nil {
		return 0, err
	}
	for _, r := range seqRows {
		if r.Key == boardSequenceKey && len(r.Cells) > 1 {
			if n, err := strconv.ParseInt(r.Cells[1], 10, 64); err == nil {
				high = n
			}
		}
	}
	offers, err := b.Offers(ctx)
	if err != nil {
		return 0, err
	}
	for _, o := range offers {
		if o.ID > high {
			high = o.ID
		}
	}
	return high + 1, nil
}

// Create assigns the next id to offer and stores it. Caller must hold the lock.
func (b *Board) Create(ctx context.Context, offer model.BoardOffer) (model.BoardOffer, error) {
	id, err := b.nextID(ctx)
	if err != nil {
		return model.BoardOffer{}, err
	}
	offer.ID = id

	// The high-water mark lands first; a failed offer write only leaves a gap.
	if err := b.seq.write(ctx, repository.Batch{Upserts: []repository.Row{
		{Key: boardSequenceKey, Cells: []string{boardSequenceKey, strconv.FormatInt(id, 10)}},
	}}); err != nil {
		return model.BoardOffer{}, err
	}
	if err := b.put(ctx, offer); err != nil {
		return model.BoardOffer{}, err
	}
	return offer, nil
}

// Restore re-inserts a previously deleted offer with its original id. Caller must hold the lock.
func (b *Board) Restore(ctx context.Context, offer model.BoardOffer) error {
	return b.put(ctx, offer)
}

func (b *Board) put(ctx context.Context, offer model.BoardOffer) error {
	return b.t.write(ctx, repository.Batch{Upserts: []repository.Row{
		{Key: strconv.FormatInt(offer.ID, 10), Cells: EncodeBoardOffer(offer)},
	}})
}

// Delete removes an offer. Caller must hold the lock.
func (b *Board) Delete(ctx context.Context, id int64) error {
	return b.t.write(ctx, repository.Batch{Deletes: []string{strconv.FormatInt(id, 10)}})
}
