package model

import "time"

// TradeStatus is the lifecycle state of a bazaar trade request.
type TradeStatus string

const (
	TradePending   TradeStatus = "pending"
	TradeAccepted  TradeStatus = "accepted"
	TradeDeclined  TradeStatus = "declined"
	TradeCancelled TradeStatus = "cancelled"
	TradeExpired   TradeStatus = "expired"
)

// IsTerminal reports whether no further transition is allowed.
func (s TradeStatus) IsTerminal() bool {
	return s != TradePending
}

// TradeRequest is a proposed direct swap between two users.
type TradeRequest struct {
	ID          string      `json:"id"`
	RequesterID string      `json:"requester_id"`
	TargetID    string      `json:"target_id"`
	Offered     ItemKey     `json:"offered"`
	Requested   ItemKey     `json:"requested"`
	Status      TradeStatus `json:"status"`
	CreatedAt   time.Time   `json:"created_at"`
	ExpiresAt   time.Time   `json:"expires_at"`
	ResolvedAt  *time.Time  `json:"resolved_at,omitempty"`
}

// BoardOffer is a single vault item listed publicly.
type BoardOffer struct {
	ID        int64     `json:"id"`
	OwnerID   string    `json:"owner_id"`
	OwnerName string    `json:"owner_name"`
	Item      ItemKey   `json:"item"`
	Comment   string    `json:"comment"`
	CreatedAt time.Time `json:"created_at"`
}

// Discovery records the first-ever acquisition of an item.
type Discovery struct {
	Item           ItemKey   `json:"item"`
	DiscovererID   string    `json:"discoverer_id"`
	DiscovererName string    `json:"discoverer_name"`
	Timestamp      time.Time `json:"timestamp"`
	Index          int       `json:"discovery_index"`
}

// DailyCounters tracks per-user gating state. Dates are YYYY-MM-DD in the
// economy timezone, ExchangeWeek is an ISO week key such as "2026-W42".
type DailyCounters struct {
	UserID          string `json:"user_id"`
	LastDailyDraw   string `json:"last_daily_draw"`
	LastSacrifice   string `json:"last_sacrifice"`
	BonusCredits    int    `json:"bonus_credits"`
	ExchangeWeek    string `json:"exchange_week"`
	WeeklyExchanges int    `json:"weekly_exchanges"`
}
