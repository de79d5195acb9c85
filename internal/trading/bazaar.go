package trading

import (
	"context"
	"log"
	"time"

	"cardvault-api/internal/model"
	"cardvault-api/pkg/uid"
)

// ProposeTrade records a pending request from requester to target: one unit
// of offered for one unit of requested.
func (e *Engine) ProposeTrade(ctx context.Context, requesterID, targetID string, offered, requested model.ItemKey) (model.TradeRequest, error) {
	offeredKey, requestedKey, err := e.validateSwap(requesterID, offered, targetID, requested)
	if err != nil {
		return model.TradeRequest{}, err
	}
	cards := e.ledger.Cards()
	if n, err := cards.Count(ctx, offeredKey, requesterID); err != nil {
		return model.TradeRequest{}, err
	} else if n < 1 {
		return model.TradeRequest{}, model.Wrap(model.ErrInsufficientItems, requesterID+" does not own "+offeredKey.String(), nil)
	}
	if n, err := cards.Count(ctx, requestedKey, targetID); err != nil {
		return model.TradeRequest{}, err
	} else if n < 1 {
		return model.TradeRequest{}, model.Wrap(model.ErrInsufficientItems, targetID+" does not own "+requestedKey.String(), nil)
	}
	ok, err := e.gate.CanPerformWeeklyExchange(ctx, requesterID)
	if err != nil {
		return model.TradeRequest{}, err
	}
	if !ok {
		return model.TradeRequest{}, model.ErrWeeklyExchangeLimit
	}

	now := e.gate.Now().UTC()
	req := model.TradeRequest{
		ID:          uid.New(),
		RequesterID: requesterID,
		TargetID:    targetID,
		Offered:     offeredKey,
		Requested:   requestedKey,
		Status:      model.TradePending,
		CreatedAt:   now,
		ExpiresAt:   now.Add(e.tradeTTL),
	}

	trades := e.ledger.Trades()
	trades.Lock()
	defer trades.Unlock()
	if err := trades.Put(ctx, req); err != nil {
		return model.TradeRequest{}, err
	}
	log.Printf("[TradingEngine] Trade %s proposed: %s %s -> %s %s", req.ID, requesterID, offeredKey, targetID, requestedKey)
	return req, nil
}

// loadPendingLocked fetches a request and checks it is still open. A request
// past its expiry is marked expired on the spot. Caller must hold the trades lock.
func (e *Engine) loadPendingLocked(ctx context.Context, tradeID string, now time.Time) (model.TradeRequest, error) {
	trades := e.ledger.Trades()
	req, ok, err := trades.Get(ctx, tradeID)
	if err != nil {
		return model.TradeRequest{}, err
	}
	if !ok {
		return model.TradeRequest{}, model.ErrTradeNotFound
	}
	if req.Status != model.TradePending {
		return model.TradeRequest{}, model.Wrap(model.ErrTradeClosed, "trade is "+string(req.Status), nil)
	}
	if now.After(req.ExpiresAt) {
		req.Status = model.TradeExpired
		req.ResolvedAt = &now
		if err := trades.Put(ctx, req); err != nil {
			return model.TradeRequest{}, err
		}
		return model.TradeRequest{}, model.Wrap(model.ErrTradeClosed, "trade has expired", nil)
	}
	return req, nil
}

// AcceptTrade executes a pending request on behalf of its target. Ownership
// and weekly limits are re-checked; on any failure the request stays pending
// and no holdings change.
func (e *Engine) AcceptTrade(ctx context.Context, tradeID, userID string) (model.TradeRequest, *ExchangeResult, error) {
	var req model.TradeRequest
	err := func() error {
		cards, trades := e.ledger.Cards(), e.ledger.Trades()
		cards.Lock()
		defer cards.Unlock()
		trades.Lock()
		defer trades.Unlock()

		now := e.gate.Now().UTC()
		var err error
		req, err = e.loadPendingLocked(ctx, tradeID, now)
		if err != nil {
			return err
		}
		if req.TargetID != userID {
			return model.ErrNotTradeParticipant
		}
		for _, party := range []string{req.RequesterID, req.TargetID} {
			ok, err := e.gate.CanPerformWeeklyExchange(ctx, party)
			if err != nil {
				return err
			}
			if !ok {
				return model.Wrap(model.ErrWeeklyExchangeLimit, party+" reached the weekly exchange limit", nil)
			}
		}

		u := newUnwinder("trade acceptance")
		if err := e.swapLocked(ctx, u, req.RequesterID, req.Offered, req.TargetID, req.Requested); err != nil {
			return err
		}
		for _, party := range []string{req.RequesterID, req.TargetID} {
			prev, err := e.gate.RecordWeeklyExchange(ctx, party)
			if err != nil {
				return u.fail(ctx, err)
			}
			u.push(func(ctx context.Context) error { return e.gate.Restore(ctx, prev) })
		}

		req.Status = model.TradeAccepted
		req.ResolvedAt = &now
		if err := trades.Put(ctx, req); err != nil {
			req.Status, req.ResolvedAt = model.TradePending, nil
			return u.fail(ctx, err)
		}
		return nil
	}()
	if err != nil {
		return model.TradeRequest{}, nil, err
	}

	log.Printf("[TradingEngine] Trade %s accepted", req.ID)
	return req, e.upgradeAfterSwap(ctx, req.RequesterID, req.Offered, req.TargetID, req.Requested), nil
}

func (e *Engine) resolve(ctx context.Context, tradeID, userID string, status model.TradeStatus) (model.TradeRequest, error) {
	trades := e.ledger.Trades()
	trades.Lock()
	defer trades.Unlock()

	now := e.gate.Now().UTC()
	req, err := e.loadPendingLocked(ctx, tradeID, now)
	if err != nil {
		return model.TradeRequest{}, err
	}
	allowed := req.TargetID
	if status == model.TradeCancelled {
		allowed = req.RequesterID
	}
	if userID != allowed {
		return model.TradeRequest{}, model.ErrNotTradeParticipant
	}
	req.Status = status
	req.ResolvedAt = &now
	if err := trades.Put(ctx, req); err != nil {
		return model.TradeRequest{}, err
	}
	log.Printf("[TradingEngine] Trade %s %s by %s", req.ID, status, userID)
	return req, nil
}

// DeclineTrade closes a pending request on behalf of its target.
func (e *Engine) DeclineTrade(ctx context.Context, tradeID, userID string) (model.TradeRequest, error) {
	return e.resolve(ctx, tradeID, userID, model.TradeDeclined)
}

// CancelTrade withdraws a pending request on behalf of its requester.
func (e *Engine) CancelTrade(ctx context.Context, tradeID, userID string) (model.TradeRequest, error) {
	return e.resolve(ctx, tradeID, userID, model.TradeCancelled)
}

// ExpireStale marks every pending request whose expiry lies before now as
// expired, in one batch, and returns them.
func (e *Engine) ExpireStale(ctx context.Context, now time.Time) ([]model.TradeRequest, error) {
	trades := e.ledger.Trades()
	trades.Lock()
	defer trades.Unlock()

	all, err := trades.All(ctx)
	if err != nil {
		return nil, err
	}
	now = now.UTC()
	var expired []model.TradeRequest
	for _, req := range all {
		if req.Status != model.TradePending || !now.After(req.ExpiresAt) {
			continue
		}
		req.Status = model.TradeExpired
		resolved := now
		req.ResolvedAt = &resolved
		expired = append(expired, req)
	}
	if len(expired) == 0 {
		return nil, nil
	}
	if err := trades.PutAll(ctx, expired); err != nil {
		return nil, err
	}
	return expired, nil
}

// ListTrades returns the requests a user takes part in, oldest first. With
// pendingOnly set, resolved requests are left out.
func (e *Engine) ListTrades(ctx context.Context, userID string, pendingOnly bool) ([]model.TradeRequest, error) {
	all, err := e.ledger.Trades().All(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]model.TradeRequest, 0)
	for _, req := range all {
		if req.RequesterID != userID && req.TargetID != userID {
			continue
		}
		if pendingOnly && req.Status != model.TradePending {
			continue
		}
		out = append(out, req)
	}
	return out, nil
}
