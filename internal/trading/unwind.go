package trading

import (
	"context"
	"log"

	"cardvault-api/internal/ledger"
	"cardvault-api/internal/model"
)

// unwinder records undo actions for completed steps.
type unwinder struct {
	op   string
	undo []func(context.Context) error
}

func newUnwinder(op string) *unwinder {
	return &unwinder{op: op}
}

// add applies delta to owner's count of key and records its inverse.
func (u *unwinder) add(ctx context.Context, h *ledger.Holdings, key model.ItemKey, owner string, delta int) error {
	if err := h.Add(ctx, key, owner, delta); err != nil {
		return err
	}
	u.push(func(ctx context.Context) error {
		return h.Add(ctx, key, owner, -delta)
	})
	return nil
}

func (u *unwinder) push(fn func(context.Context) error) {
	u.undo = append(u.undo, fn)
}

// rollback undoes every recorded step in reverse order. It keeps going after
// a failed undo and reports the first failure.
func (u *unwinder) rollback(ctx context.Context) error {
	var first error
	for i := len(u.undo) - 1; i >= 0; i-- {
		if err := u.undo[i](ctx); err != nil {
			log.Printf("[TradingEngine] CRITICAL: %s rollback step %d failed: %v", u.op, i+1, err)
			if first == nil {
				first = err
			}
		}
	}
	u.undo = nil
	if first != nil {
		return model.Wrap(model.ErrRollbackFailed, u.op, first)
	}
	return nil
}

// fail rolls back and returns cause, or the rollback error if the unwind itself failed.
func (u *unwinder) fail(ctx context.Context, cause error) error {
	if err := u.rollback(ctx); err != nil {
		return err
	}
	return cause
}
