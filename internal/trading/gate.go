package trading

import (
	"context"
	"fmt"
	"time"

	"cardvault-api/internal/ledger"
	"cardvault-api/internal/model"
)

// DefaultWeeklyExchangeLimit caps accepted bazaar trades per ISO week.
const DefaultWeeklyExchangeLimit = 3

// Gate answers and records the daily and weekly limits of a user. Dates are
// taken in a fixed timezone and reset implicitly by comparison.
//
// Check/record pairs are only race-free when the caller serializes the user,
// which the economy facade does with its per-user locks.
type Gate struct {
	counters    *ledger.Counters
	loc         *time.Location
	now         func() time.Time
	weeklyLimit int
}

// NewGate creates a gate over the counters table.
func NewGate(counters *ledger.Counters, loc *time.Location, weeklyLimit int) *Gate {
	if loc == nil {
		loc = time.UTC
	}
	if weeklyLimit <= 0 {
		weeklyLimit = DefaultWeeklyExchangeLimit
	}
	return &Gate{counters: counters, loc: loc, now: time.Now, weeklyLimit: weeklyLimit}
}

// WithClock replaces the time source.
func (g *Gate) WithClock(now func() time.Time) *Gate {
	g.now = now
	return g
}

// Now returns the current time in the gate's timezone.
func (g *Gate) Now() time.Time {
	return g.now().In(g.loc)
}

// Today returns the current calendar date as YYYY-MM-DD.
func (g *Gate) Today() string {
	return g.Now().Format("2006-01-02")
}

// ThisWeek returns the current ISO week as YYYY-Www.
func (g *Gate) ThisWeek() string {
	year, week := g.Now().ISOWeek()
	return fmt.Sprintf("%d-W%02d", year, week)
}

// WeeklyLimit returns the exchange cap.
func (g *Gate) WeeklyLimit() int {
	return g.weeklyLimit
}

// Snapshot returns a user's counters.
func (g *Gate) Snapshot(ctx context.Context, userID string) (model.DailyCounters, error) {
	return g.counters.Get(ctx, userID)
}

// Restore writes back a snapshot taken earlier.
func (g *Gate) Restore(ctx context.Context, snapshot model.DailyCounters) error {
	g.counters.Lock()
	defer g.counters.Unlock()
	return g.counters.Put(ctx, snapshot)
}

func (g *Gate) update(ctx context.Context, userID string, fn func(c *model.DailyCounters) error) (model.DailyCounters, error) {
	g.counters.Lock()
	defer g.counters.Unlock()

	c, err := g.counters.Get(ctx, userID)
	if err != nil {
		return model.DailyCounters{}, err
	}
	prev := c
	if err := fn(&c); err != nil {
		return prev, err
	}
	if err := g.counters.Put(ctx, c); err != nil {
		return prev, err
	}
	return prev, nil
}

// CanPerformDailyDraw reports whether the user has not drawn today.
func (g *Gate) CanPerformDailyDraw(ctx context.Context, userID string) (bool, error) {
	c, err := g.counters.Get(ctx, userID)
	if err != nil {
		return false, err
	}
	return c.LastDailyDraw != g.Today(), nil
}

// RecordDailyDraw marks today's daily draw as taken and returns the previous counters.
func (g *Gate) RecordDailyDraw(ctx context.Context, userID string) (model.DailyCounters, error) {
	today := g.Today()
	return g.update(ctx, userID, func(c *model.DailyCounters) error {
		c.LastDailyDraw = today
		return nil
	})
}

// CanPerformSacrificialDraw reports whether the user has not sacrificed today.
func (g *Gate) CanPerformSacrificialDraw(ctx context.Context, userID string) (bool, error) {
	c, err := g.counters.Get(ctx, userID)
	if err != nil {
		return false, err
	}
	return c.LastSacrifice != g.Today(), nil
}

// RecordSacrificialDraw marks today's sacrifice as taken and returns the previous counters.
func (g *Gate) RecordSacrificialDraw(ctx context.Context, userID string) (model.DailyCounters, error) {
	today := g.Today()
	return g.update(ctx, userID, func(c *model.DailyCounters) error {
		c.LastSacrifice = today
		return nil
	})
}

func (g *Gate) exchangesThisWeek(c model.DailyCounters) int {
	if c.ExchangeWeek != g.ThisWeek() {
		return 0
	}
	return c.WeeklyExchanges
}

// WeeklyExchangesLeft returns how many exchanges the user may still do this week.
func (g *Gate) WeeklyExchangesLeft(ctx context.Context, userID string) (int, error) {
	c, err := g.counters.Get(ctx, userID)
	if err != nil {
		return 0, err
	}
	left := g.weeklyLimit - g.exchangesThisWeek(c)
	if left < 0 {
		left = 0
	}
	return left, nil
}

// CanPerformWeeklyExchange reports whether the user is below the weekly cap.
func (g *Gate) CanPerformWeeklyExchange(ctx context.Context, userID string) (bool, error) {
	left, err := g.WeeklyExchangesLeft(ctx, userID)
	return left > 0, err
}

// RecordWeeklyExchange counts one exchange this week and returns the previous counters.
func (g *Gate) RecordWeeklyExchange(ctx context.Context, userID string) (model.DailyCounters, error) {
	week := g.ThisWeek()
	return g.update(ctx, userID, func(c *model.DailyCounters) error {
		n := g.exchangesThisWeek(*c)
		if n >= g.weeklyLimit {
			return model.ErrWeeklyExchangeLimit
		}
		c.ExchangeWeek = week
		c.WeeklyExchanges = n + 1
		return nil
	})
}

// BonusCredits returns the user's bonus draw credits.
func (g *Gate) BonusCredits(ctx context.Context, userID string) (int, error) {
	c, err := g.counters.Get(ctx, userID)
	if err != nil {
		return 0, err
	}
	return c.BonusCredits, nil
}

// GrantBonusCredits adds n credits and returns the new balance.
func (g *Gate) GrantBonusCredits(ctx context.Context, userID string, n int) (int, error) {
	if n <= 0 {
		return 0, model.Wrap(model.ErrInvalidInput, "bonus credits must be positive", nil)
	}
	prev, err := g.update(ctx, userID, func(c *model.DailyCounters) error {
		c.BonusCredits += n
		return nil
	})
	if err != nil {
		return 0, err
	}
	return prev.BonusCredits + n, nil
}

// ConsumeBonusCredit spends one credit and returns the previous counters.
func (g *Gate) ConsumeBonusCredit(ctx context.Context, userID string) (model.DailyCounters, error) {
	return g.update(ctx, userID, func(c *model.DailyCounters) error {
		if c.BonusCredits <= 0 {
			return model.ErrNoBonusCredits
		}
		c.BonusCredits--
		return nil
	})
}
