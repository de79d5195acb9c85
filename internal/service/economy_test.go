package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cardvault-api/internal/cache"
	"cardvault-api/internal/catalog"
	"cardvault-api/internal/discovery"
	"cardvault-api/internal/drawing"
	"cardvault-api/internal/ledger"
	"cardvault-api/internal/model"
	"cardvault-api/internal/repository"
	"cardvault-api/internal/trading"
)

var (
	aria     = model.ItemKey{Category: "Students", Name: "Aria"}
	ariaFull = model.ItemKey{Category: "Students", Name: "Aria (Full)"}
	bruno    = model.ItemKey{Category: "Students", Name: "Bruno"}
	chiara   = model.ItemKey{Category: "Students", Name: "Chiara"}
	mentor   = model.ItemKey{Category: "Teachers", Name: "Mentor"}
	dean     = model.ItemKey{Category: "Teachers", Name: "Dean"}
)

type stubPlayers map[string]string

func (p stubPlayers) GetPlayer(ctx context.Context, userID string) (*model.Player, error) {
	name, ok := p[userID]
	if !ok {
		return nil, repository.ErrPlayerNotFound
	}
	return &model.Player{UserID: userID, DisplayName: name, IsActive: true}, nil
}

type harness struct {
	svc    *EconomyService
	ledger *ledger.Ledger
	store  *repository.MemoryTableStore
	now    time.Time
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	c, err := catalog.New([]catalog.CategorySpec{
		{Name: "Students", Weight: 0.7, Items: []model.ItemDefinition{
			{Name: "Aria"}, {Name: "Aria (Full)"}, {Name: "Bruno"}, {Name: "Chiara"},
		}},
		{Name: "Teachers", Weight: 0.3, Items: []model.ItemDefinition{
			{Name: "Mentor"}, {Name: "Dean"},
		}},
	})
	require.NoError(t, err)

	h := &harness{
		store: repository.NewMemoryTableStore(),
		now:   time.Date(2025, 5, 20, 12, 0, 0, 0, time.UTC),
	}
	h.ledger = ledger.New(h.store, ledger.Options{CacheTTL: time.Minute})
	clock := func() time.Time { return h.now }

	drawer := drawing.New(c, c.Specs(), h.ledger.Cards(), 7)
	gate := trading.NewGate(h.ledger.Counters(), time.UTC, 3).WithClock(clock)
	names := NewNameDirectory(stubPlayers{"A": "Alice", "B": "Bea"}, cache.NewMemoryCache(0), time.Minute)

	h.svc = NewEconomyService(EconomyDeps{
		Catalog: c,
		Ledger:  h.ledger,
		Drawer:  drawer,
		Trading: trading.New(c, h.ledger, drawer, gate, trading.Options{}),
		Tracker: discovery.NewTracker(h.ledger.Discoveries()).WithClock(clock),
		Names:   names,
	}, EconomyOptions{})
	return h
}

func (h *harness) give(t *testing.T, holdings *ledger.Holdings, owner string, key model.ItemKey, n int) {
	t.Helper()
	holdings.Lock()
	defer holdings.Unlock()
	require.NoError(t, holdings.Add(context.Background(), key, owner, n))
}

func (h *harness) held(t *testing.T, owner string) map[model.ItemKey]int {
	t.Helper()
	m, err := h.ledger.Cards().Of(context.Background(), owner)
	require.NoError(t, err)
	return m
}

func total(m map[model.ItemKey]int) int {
	n := 0
	for _, c := range m {
		n += c
	}
	return n
}

func TestDrawDaily_OncePerDayAndDiscovers(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	res, err := h.svc.DrawDaily(ctx, "A")
	require.NoError(t, err)
	require.Len(t, res.Items, 1)
	assert.False(t, res.Items[0].IsUpgraded)
	assert.True(t, res.Items[0].FirstDiscovery)
	assert.Equal(t, 1, res.Items[0].DiscoveryIndex)
	assert.Equal(t, 1, total(h.held(t, "A")))

	_, err = h.svc.DrawDaily(ctx, "A")
	require.ErrorIs(t, err, model.ErrDailyDrawTaken)
	assert.Equal(t, model.KindLimit, model.KindOf(err))

	discoveries, err := h.svc.GetDiscoveries(ctx, 10)
	require.NoError(t, err)
	require.Len(t, discoveries, 1)
	assert.Equal(t, "Alice", discoveries[0].DiscovererName)

	h.now = h.now.Add(24 * time.Hour)
	_, err = h.svc.DrawDaily(ctx, "A")
	require.NoError(t, err)
	assert.Equal(t, 2, total(h.held(t, "A")))
}

func TestDrawDaily_ConcurrentRequestsGrantOnce(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	var mu sync.Mutex
	succeeded := 0
	for i := 0; i < 12; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := h.svc.DrawDaily(ctx, "A"); err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, succeeded)
	assert.Equal(t, 1, total(h.held(t, "A")))
	assert.Equal(t, 0, h.svc.locks.size())
}

func TestDrawDaily_FailedCreditKeepsDrawAvailable(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.store.SetWriteHook(func(table string, n int, batch repository.Batch) error {
		if table == string(ledger.TableCards) {
			return errors.New("store offline")
		}
		return nil
	})

	_, err := h.svc.DrawDaily(ctx, "A")
	require.Error(t, err)
	assert.Equal(t, model.KindPersistence, model.KindOf(err))

	h.store.SetWriteHook(nil)
	_, err = h.svc.DrawDaily(ctx, "A")
	require.NoError(t, err)
}

func TestDrawBonus_SpendsCredits(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	_, err := h.svc.DrawBonus(ctx, "A")
	require.ErrorIs(t, err, model.ErrNoBonusCredits)

	balance, err := h.svc.GrantBonusDraws(ctx, "A", 2)
	require.NoError(t, err)
	assert.Equal(t, 2, balance)

	res, err := h.svc.DrawBonus(ctx, "A")
	require.NoError(t, err)
	assert.Equal(t, 1, res.BonusCredits)
	_, err = h.svc.DrawBonus(ctx, "A")
	require.NoError(t, err)
	_, err = h.svc.DrawBonus(ctx, "A")
	require.ErrorIs(t, err, model.ErrNoBonusCredits)
	assert.Equal(t, 2, total(h.held(t, "A")))
}

func TestDrawSacrificial_ConsumesPreviewedCandidates(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	cards := h.ledger.Cards()
	for _, k := range []model.ItemKey{aria, bruno, chiara, mentor, dean} {
		h.give(t, cards, "A", k, 2)
	}

	preview, err := h.svc.PreviewSacrifice(ctx, "A")
	require.NoError(t, err)
	require.Len(t, preview.Candidates, drawing.SacrificeSize)
	assert.True(t, preview.Available)

	res, err := h.svc.DrawSacrificial(ctx, "A")
	require.NoError(t, err)
	require.Len(t, res.Items, drawing.SacrificeReward)
	consumed := make([]model.ItemKey, 0, len(preview.Candidates))
	for _, def := range preview.Candidates {
		consumed = append(consumed, def.Key())
	}
	assert.Equal(t, consumed, res.Consumed)
	assert.Empty(t, res.Upgrades)
	assert.Equal(t, 10-drawing.SacrificeSize+drawing.SacrificeReward, total(h.held(t, "A")))

	_, err = h.svc.DrawSacrificial(ctx, "A")
	require.ErrorIs(t, err, model.ErrSacrificeTaken)
}

func TestDrawSacrificial_NeedsFiveDistinctItems(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.give(t, h.ledger.Cards(), "A", aria, 9)

	_, err := h.svc.DrawSacrificial(ctx, "A")
	require.ErrorIs(t, err, model.ErrNotEnoughCandidates)

	ok, err := h.svc.gate.CanPerformSacrificialDraw(ctx, "A")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestAcceptTrade_SwapsAndUpgrades(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	cards := h.ledger.Cards()
	h.give(t, cards, "A", mentor, 1)
	h.give(t, cards, "B", aria, 1)
	h.give(t, cards, "A", aria, 4)

	req, err := h.svc.ProposeTrade(ctx, "A", "B", mentor, aria)
	require.NoError(t, err)

	out, err := h.svc.AcceptTrade(ctx, req.ID, "B")
	require.NoError(t, err)
	assert.Equal(t, model.TradeAccepted, out.Trade.Status)
	require.Len(t, out.Upgrades, 1)
	assert.Equal(t, ariaFull, out.Upgrades[0].Upgraded)

	assert.Equal(t, map[model.ItemKey]int{ariaFull: 1}, h.held(t, "A"))
	assert.Equal(t, map[model.ItemKey]int{mentor: 1}, h.held(t, "B"))

	d, ok, err := h.svc.tracker.Lookup(ctx, ariaFull)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "A", d.DiscovererID)
}

func TestTradeLifecycle_DeclineCancelExpire(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	cards := h.ledger.Cards()
	h.give(t, cards, "A", aria, 3)
	h.give(t, cards, "B", mentor, 3)

	declined, err := h.svc.ProposeTrade(ctx, "A", "B", aria, mentor)
	require.NoError(t, err)
	cancelled, err := h.svc.ProposeTrade(ctx, "A", "B", aria, mentor)
	require.NoError(t, err)
	stale, err := h.svc.ProposeTrade(ctx, "A", "B", aria, mentor)
	require.NoError(t, err)

	_, err = h.svc.DeclineTrade(ctx, declined.ID, "B")
	require.NoError(t, err)
	_, err = h.svc.CancelTrade(ctx, cancelled.ID, "A")
	require.NoError(t, err)

	h.now = h.now.Add(25 * time.Hour)
	n, err := h.svc.ExpireTrades(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	_, err = h.svc.AcceptTrade(ctx, stale.ID, "B")
	require.ErrorIs(t, err, model.ErrTradeClosed)

	pending, err := h.svc.ListTrades(ctx, "A", true)
	require.NoError(t, err)
	assert.Empty(t, pending)
	assert.Equal(t, 3, h.held(t, "A")[aria])
}

func TestBoardFlow_DepositAcceptWithdraw(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	cards := h.ledger.Cards()
	h.give(t, cards, "A", aria, 2)
	h.give(t, cards, "B", mentor, 1)

	_, err := h.svc.DepositToVault(ctx, "A", aria)
	require.NoError(t, err)
	_, err = h.svc.DepositToVault(ctx, "A", aria)
	require.NoError(t, err)
	_, err = h.svc.DepositToVault(ctx, "B", mentor)
	require.NoError(t, err)

	first, err := h.svc.DepositToBoard(ctx, "A", aria, "first")
	require.NoError(t, err)
	assert.Equal(t, "Alice", first.OwnerName)
	second, err := h.svc.DepositToBoard(ctx, "A", aria, "second")
	require.NoError(t, err)
	assert.Greater(t, second.ID, first.ID)

	_, err = h.svc.AcceptBoardOffer(ctx, "A", first.ID, aria)
	require.ErrorIs(t, err, model.ErrOwnOffer)

	trade, err := h.svc.AcceptBoardOffer(ctx, "B", first.ID, mentor)
	require.NoError(t, err)
	assert.Equal(t, aria, trade.Received)

	_, err = h.svc.AcceptBoardOffer(ctx, "B", first.ID, mentor)
	require.ErrorIs(t, err, model.ErrOfferUnavailable)
	_, err = h.svc.AcceptBoardOffer(ctx, "C", first.ID, mentor)
	require.ErrorIs(t, err, model.ErrOfferUnavailable)
	assert.Equal(t, model.KindUnavailable, model.KindOf(err))

	_, err = h.svc.WithdrawFromBoard(ctx, "A", second.ID)
	require.NoError(t, err)
	moved, err := h.svc.WithdrawFromVault(ctx, "A", aria)
	require.NoError(t, err)
	assert.Equal(t, aria, moved.Item.Key())

	colA, err := h.svc.GetCollection(ctx, "A")
	require.NoError(t, err)
	require.Len(t, colA.Items, 1)
	assert.Equal(t, 1, colA.Items[0].Count)
	require.Len(t, colA.Vault, 1)
	assert.Equal(t, "Mentor", colA.Vault[0].Name)

	board, err := h.svc.ListBoard(ctx)
	require.NoError(t, err)
	assert.Empty(t, board)
}

func TestGetStats_ReflectsGatesAndHoldings(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	cards := h.ledger.Cards()
	h.give(t, cards, "A", aria, 2)
	h.give(t, cards, "A", ariaFull, 1)
	h.give(t, h.ledger.Vault(), "A", bruno, 1)

	_, err := h.svc.DrawDaily(ctx, "A")
	require.NoError(t, err)

	st, err := h.svc.GetStats(ctx, "A")
	require.NoError(t, err)
	assert.Equal(t, "Alice", st.DisplayName)
	assert.Equal(t, 4, st.TotalItems)
	assert.Equal(t, 1, st.UpgradedItems)
	assert.Equal(t, 1, st.VaultItems)
	assert.Equal(t, 6, st.CatalogSize)
	assert.False(t, st.DailyDrawAvailable)
	assert.True(t, st.SacrificeAvailable)
	assert.Equal(t, 3, st.WeeklyExchangesLeft)

	global, err := h.svc.GetEconomyStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, global.Owners)
	assert.Equal(t, 4, global.ItemsInCirculation)
	assert.Equal(t, 1, global.ItemsInVaults)
	assert.Equal(t, "memory", global.Store["backend"])
}

func TestOperations_RejectEmptyUser(t *testing.T) {
	h := newHarness(t)
	_, err := h.svc.DrawDaily(context.Background(), "")
	require.ErrorIs(t, err, model.ErrInvalidInput)
	_, err = h.svc.GetCollection(context.Background(), "")
	require.ErrorIs(t, err, model.ErrInvalidInput)
}
