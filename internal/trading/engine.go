package trading

import (
	"context"
	"log"
	"time"

	"cardvault-api/internal/catalog"
	"cardvault-api/internal/drawing"
	"cardvault-api/internal/ledger"
	"cardvault-api/internal/model"
)

// DefaultTradeTTL is how long a bazaar request stays pending.
const DefaultTradeTTL = 24 * time.Hour

const maxCommentLen = 200

// Upgrader converts duplicates into upgraded variants. It acquires the cards
// lock itself, so it must be called after the exchange released it.
type Upgrader interface {
	CheckUpgrade(ctx context.Context, userID string, items []model.ItemKey) ([]drawing.Upgrade, error)
}

// Options configures an Engine.
type Options struct {
	TradeTTL time.Duration
}

// Engine executes exchanges over the ledger.
type Engine struct {
	catalog  catalog.Catalog
	ledger   *ledger.Ledger
	upgrader Upgrader
	gate     *Gate
	tradeTTL time.Duration
}

// ExchangeResult reports the upgrades triggered by an exchange.
type ExchangeResult struct {
	Upgrades []drawing.Upgrade `json:"upgrades,omitempty"`
}

// New creates a trading engine. upgrader may be nil.
func New(c catalog.Catalog, l *ledger.Ledger, upgrader Upgrader, gate *Gate, opts Options) *Engine {
	if opts.TradeTTL <= 0 {
		opts.TradeTTL = DefaultTradeTTL
	}
	return &Engine{
		catalog:  c,
		ledger:   l,
		upgrader: upgrader,
		gate:     gate,
		tradeTTL: opts.TradeTTL,
	}
}

// Gate returns the engine's gate.
func (e *Engine) Gate() *Gate {
	return e.gate
}

// SafeExchange swaps one unit of itemA owned by userA for one unit of itemB
// owned by userB. Either both transfers land or none does.
func (e *Engine) SafeExchange(ctx context.Context, userA string, itemA model.ItemKey, userB string, itemB model.ItemKey) (*ExchangeResult, error) {
	keyA, keyB, err := e.validateSwap(userA, itemA, userB, itemB)
	if err != nil {
		return nil, err
	}

	cards := e.ledger.Cards()
	cards.Lock()
	err = e.swapLocked(ctx, newUnwinder("exchange"), userA, keyA, userB, keyB)
	cards.Unlock()
	if err != nil {
		return nil, err
	}

	return e.upgradeAfterSwap(ctx, userA, keyA, userB, keyB), nil
}

func (e *Engine) validateSwap(userA string, itemA model.ItemKey, userB string, itemB model.ItemKey) (model.ItemKey, model.ItemKey, error) {
	if userA == "" || userB == "" {
		return model.ItemKey{}, model.ItemKey{}, model.Wrap(model.ErrInvalidInput, "user ids are required", nil)
	}
	if userA == userB {
		return model.ItemKey{}, model.ItemKey{}, model.ErrSelfTrade
	}
	defA, err := catalog.Resolve(e.catalog, itemA)
	if err != nil {
		return model.ItemKey{}, model.ItemKey{}, err
	}
	defB, err := catalog.Resolve(e.catalog, itemB)
	if err != nil {
		return model.ItemKey{}, model.ItemKey{}, err
	}
	if defA.Key() == defB.Key() {
		return model.ItemKey{}, model.ItemKey{}, model.Wrap(model.ErrInvalidInput, "cannot swap an item for itself", nil)
	}
	return defA.Key(), defB.Key(), nil
}

type holding struct {
	key   model.ItemKey
	owner string
}

// swapLocked runs the four transfer steps and the verification. The caller
// must hold the cards lock. Completed steps stay on u so the caller can unwind
// them if a later step of its own fails; on an error here u has already been
// rolled back.
func (e *Engine) swapLocked(ctx context.Context, u *unwinder, userA string, itemA model.ItemKey, userB string, itemB model.ItemKey) error {
	cards := e.ledger.Cards()

	watched := []holding{{itemA, userA}, {itemB, userB}, {itemB, userA}, {itemA, userB}}
	before := make(map[holding]int, len(watched))
	for _, h := range watched {
		n, err := cards.Count(ctx, h.key, h.owner)
		if err != nil {
			return err
		}
		before[h] = n
	}
	if before[holding{itemA, userA}] < 1 {
		return model.Wrap(model.ErrInsufficientItems, userA+" does not own "+itemA.String(), nil)
	}
	if before[holding{itemB, userB}] < 1 {
		return model.Wrap(model.ErrInsufficientItems, userB+" does not own "+itemB.String(), nil)
	}

	steps := []struct {
		h     holding
		delta int
	}{
		{holding{itemA, userA}, -1},
		{holding{itemB, userB}, -1},
		{holding{itemB, userA}, +1},
		{holding{itemA, userB}, +1},
	}
	for i, s := range steps {
		if err := u.add(ctx, cards, s.h.key, s.h.owner, s.delta); err != nil {
			log.Printf("[TradingEngine] Exchange step %d failed (%s %s <-> %s %s): %v", i+1, userA, itemA, userB, itemB, err)
			return u.fail(ctx, err)
		}
	}

	expected := map[holding]int{
		{itemA, userA}: before[holding{itemA, userA}] - 1,
		{itemB, userB}: before[holding{itemB, userB}] - 1,
		{itemB, userA}: before[holding{itemB, userA}] + 1,
		{itemA, userB}: before[holding{itemA, userB}] + 1,
	}
	for h, want := range expected {
		got, err := cards.Count(ctx, h.key, h.owner)
		if err != nil {
			return u.fail(ctx, err)
		}
		if got != want {
			log.Printf("[TradingEngine] CRITICAL: exchange verification failed for %s/%s: want %d, have %d", h.owner, h.key, want, got)
			return u.fail(ctx, model.ErrExchangeVerification)
		}
	}
	return nil
}

// upgradeAfterSwap runs the upgrade check for both parties on what they
// received. The exchange is already committed, so failures are logged only.
func (e *Engine) upgradeAfterSwap(ctx context.Context, userA string, itemA model.ItemKey, userB string, itemB model.ItemKey) *ExchangeResult {
	res := &ExchangeResult{}
	if e.upgrader == nil {
		return res
	}
	for _, p := range []holding{{itemB, userA}, {itemA, userB}} {
		ups, err := e.upgrader.CheckUpgrade(ctx, p.owner, []model.ItemKey{p.key})
		if err != nil {
			log.Printf("[TradingEngine] Upgrade check failed for %s after exchange: %v", p.owner, err)
			continue
		}
		res.Upgrades = append(res.Upgrades, ups...)
	}
	return res
}
