package service

import (
	"context"
	"log"

	"cardvault-api/internal/model"
)

// Collection is a user's holdings in the main ledger and the vault.
type Collection struct {
	UserID      string            `json:"user_id"`
	DisplayName string            `json:"display_name"`
	Items       []model.OwnedItem `json:"items"`
	Vault       []model.OwnedItem `json:"vault"`
	TotalItems  int               `json:"total_items"`
	UniqueItems int               `json:"unique_items"`
}

// UserStats summarizes a user's standing in the economy.
type UserStats struct {
	UserID              string  `json:"user_id"`
	DisplayName         string  `json:"display_name"`
	TotalItems          int     `json:"total_items"`
	UniqueItems         int     `json:"unique_items"`
	UpgradedItems       int     `json:"upgraded_items"`
	VaultItems          int     `json:"vault_items"`
	CatalogSize         int     `json:"catalog_size"`
	Completion          float64 `json:"completion_percent"`
	Discoveries         int     `json:"discoveries"`
	DailyDrawAvailable  bool    `json:"daily_draw_available"`
	SacrificeAvailable  bool    `json:"sacrifice_available"`
	BonusCredits        int     `json:"bonus_credits"`
	WeeklyExchangesLeft int     `json:"weekly_exchanges_left"`
	OpenOffers          int     `json:"open_offers"`
	PendingTrades       int     `json:"pending_trades"`
}

// EconomyStats are global counters for operators.
type EconomyStats struct {
	CatalogSize        int                    `json:"catalog_size"`
	Owners             int                    `json:"owners"`
	ItemsInCirculation int                    `json:"items_in_circulation"`
	ItemsInVaults      int                    `json:"items_in_vaults"`
	BoardOffers        int                    `json:"board_offers"`
	Discoveries        int                    `json:"discoveries"`
	Trades             map[string]int         `json:"trades"`
	Store              map[string]interface{} `json:"store"`
}

// GetCollection returns the user's collection and vault.
func (s *EconomyService) GetCollection(ctx context.Context, userID string) (*Collection, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	held, err := s.ledger.Cards().Of(ctx, userID)
	if err != nil {
		return nil, err
	}
	vault, err := s.ledger.Vault().Of(ctx, userID)
	if err != nil {
		return nil, err
	}

	c := &Collection{
		UserID:      userID,
		DisplayName: s.names.DisplayName(ctx, userID),
		Items:       s.owned(held),
		Vault:       s.owned(vault),
	}
	for _, it := range c.Items {
		c.TotalItems += it.Count
	}
	c.UniqueItems = len(c.Items)
	return c, nil
}

func (s *EconomyService) catalogSize() int {
	n := 0
	for _, cat := range s.catalog.Categories() {
		n += len(s.catalog.ListItems(cat))
	}
	return n
}

// GetStats returns the user's statistics.
func (s *EconomyService) GetStats(ctx context.Context, userID string) (*UserStats, error) {
	c, err := s.GetCollection(ctx, userID)
	if err != nil {
		return nil, err
	}
	st := &UserStats{
		UserID:      userID,
		DisplayName: c.DisplayName,
		TotalItems:  c.TotalItems,
		UniqueItems: c.UniqueItems,
		CatalogSize: s.catalogSize(),
	}
	for _, it := range c.Items {
		if it.IsUpgraded {
			st.UpgradedItems += it.Count
		}
	}
	for _, it := range c.Vault {
		st.VaultItems += it.Count
	}
	if st.CatalogSize > 0 {
		st.Completion = float64(st.UniqueItems) * 100 / float64(st.CatalogSize)
	}

	if st.Discoveries, err = s.tracker.CountBy(ctx, userID); err != nil {
		return nil, err
	}
	if st.DailyDrawAvailable, err = s.gate.CanPerformDailyDraw(ctx, userID); err != nil {
		return nil, err
	}
	if st.SacrificeAvailable, err = s.gate.CanPerformSacrificialDraw(ctx, userID); err != nil {
		return nil, err
	}
	if st.BonusCredits, err = s.gate.BonusCredits(ctx, userID); err != nil {
		return nil, err
	}
	if st.WeeklyExchangesLeft, err = s.gate.WeeklyExchangesLeft(ctx, userID); err != nil {
		return nil, err
	}

	offers, err := s.trading.ListBoard(ctx)
	if err != nil {
		return nil, err
	}
	for _, o := range offers {
		if o.OwnerID == userID {
			st.OpenOffers++
		}
	}
	pending, err := s.trading.ListTrades(ctx, userID, true)
	if err != nil {
		return nil, err
	}
	st.PendingTrades = len(pending)
	return st, nil
}

// GetEconomyStats returns global counters.
func (s *EconomyService) GetEconomyStats(ctx context.Context) (*EconomyStats, error) {
	st := &EconomyStats{CatalogSize: s.catalogSize(), Trades: make(map[string]int)}

	rows, err := s.ledger.Cards().Rows(ctx)
	if err != nil {
		return nil, err
	}
	owners := make(map[string]bool)
	for _, r := range rows {
		for owner, n := range r.Owners {
			owners[owner] = true
			st.ItemsInCirculation += n
		}
	}
	st.Owners = len(owners)

	vault, err := s.ledger.Vault().Totals(ctx)
	if err != nil {
		return nil, err
	}
	for _, n := range vault {
		st.ItemsInVaults += n
	}

	offers, err := s.trading.ListBoard(ctx)
	if err != nil {
		return nil, err
	}
	st.BoardOffers = len(offers)

	discoveries, err := s.tracker.List(ctx, 0)
	if err != nil {
		return nil, err
	}
	st.Discoveries = len(discoveries)

	trades, err := s.ledger.Trades().All(ctx)
	if err != nil {
		return nil, err
	}
	for _, tr := range trades {
		st.Trades[string(tr.Status)]++
	}

	if st.Store, err = s.ledger.Stats(ctx); err != nil {
		return nil, err
	}
	return st, nil
}

// GetDiscoveries returns up to limit discoveries, oldest first.
func (s *EconomyService) GetDiscoveries(ctx context.Context, limit int) ([]model.Discovery, error) {
	return s.tracker.List(ctx, limit)
}

// Ping reports whether the backing store answers.
func (s *EconomyService) Ping(ctx context.Context) error {
	_, err := s.ledger.Stats(ctx)
	return err
}

// ReloadLedger drops every cached table snapshot so edits made directly in the
// store are picked up on the next read.
func (s *EconomyService) ReloadLedger() {
	s.ledger.Invalidate()
	log.Println("[EconomyService] Ledger caches dropped")
}

// RememberName records a display name an adapter already knows for userID.
func (s *EconomyService) RememberName(ctx context.Context, userID, name string) {
	if userID == "" {
		return
	}
	s.names.Remember(ctx, userID, name)
}
