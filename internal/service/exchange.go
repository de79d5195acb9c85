package service

import (
	"context"
	"strconv"

	"cardvault-api/internal/audit"
	"cardvault-api/internal/drawing"
	"cardvault-api/internal/model"
	"cardvault-api/internal/trading"
)

// TradeOutcome is the result of accepting a trade request.
type TradeOutcome struct {
	Trade    model.TradeRequest `json:"trade"`
	Upgrades []drawing.Upgrade  `json:"upgrades,omitempty"`
}

// VaultMove is the result of a vault deposit or withdrawal.
type VaultMove struct {
	Item     model.ItemDefinition `json:"item"`
	Upgrades []drawing.Upgrade    `json:"upgrades,omitempty"`
}

// ProposeTrade opens a bazaar request from requester to target.
func (s *EconomyService) ProposeTrade(ctx context.Context, requesterID, targetID string, offered, requested model.ItemKey) (model.TradeRequest, error) {
	if err := requireUser(requesterID, targetID); err != nil {
		return model.TradeRequest{}, err
	}
	unlock := s.locks.lock(requesterID, targetID)
	defer unlock()

	req, err := s.trading.ProposeTrade(ctx, requesterID, targetID, offered, requested)
	if err != nil {
		return model.TradeRequest{}, err
	}
	s.audit.Record(audit.Event{
		Type: audit.EventTradeProposed, UserID: requesterID, Counterparty: targetID,
		Gave: []model.ItemKey{req.Offered}, Got: []model.ItemKey{req.Requested}, Ref: req.ID,
	})
	return req, nil
}

// participants looks up who a trade involves so both users can be locked.
func (s *EconomyService) participants(ctx context.Context, tradeID string) (model.TradeRequest, error) {
	req, ok, err := s.ledger.Trades().Get(ctx, tradeID)
	if err != nil {
		return model.TradeRequest{}, err
	}
	if !ok {
		return model.TradeRequest{}, model.ErrTradeNotFound
	}
	return req, nil
}

// AcceptTrade executes a pending request on behalf of its target.
func (s *EconomyService) AcceptTrade(ctx context.Context, tradeID, userID string) (*TradeOutcome, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	req, err := s.participants(ctx, tradeID)
	if err != nil {
		return nil, err
	}
	unlock := s.locks.lock(req.RequesterID, req.TargetID)
	defer unlock()

	accepted, res, err := s.trading.AcceptTrade(ctx, tradeID, userID)
	if err != nil {
		return nil, err
	}
	s.audit.Record(audit.Event{
		Type: audit.EventTradeResolved, UserID: accepted.TargetID, Counterparty: accepted.RequesterID,
		Gave: []model.ItemKey{accepted.Requested}, Got: []model.ItemKey{accepted.Offered},
		Ref: accepted.ID, Detail: string(accepted.Status),
	})
	s.recordExchangeUpgrades(ctx, res.Upgrades, accepted.RequesterID, accepted.TargetID, accepted.Requested)
	return &TradeOutcome{Trade: accepted, Upgrades: res.Upgrades}, nil
}

// recordExchangeUpgrades attributes upgrades triggered by a swap: the
// requester received requested, the target received offered.
func (s *EconomyService) recordExchangeUpgrades(ctx context.Context, ups []drawing.Upgrade, requesterID, targetID string, requested model.ItemKey) {
	for _, up := range ups {
		owner := targetID
		if up.Base == requested {
			owner = requesterID
		}
		s.recordUpgrades(ctx, owner, []drawing.Upgrade{up})
	}
}

func (s *EconomyService) closeTrade(ctx context.Context, tradeID, userID string, fn func(context.Context, string, string) (model.TradeRequest, error)) (model.TradeRequest, error) {
	if err := requireUser(userID); err != nil {
		return model.TradeRequest{}, err
	}
	unlock := s.locks.lock(userID)
	defer unlock()

	req, err := fn(ctx, tradeID, userID)
	if err != nil {
		return model.TradeRequest{}, err
	}
	s.audit.Record(audit.Event{Type: audit.EventTradeResolved, UserID: userID, Ref: req.ID, Detail: string(req.Status)})
	return req, nil
}

// DeclineTrade closes a request on behalf of its target.
func (s *EconomyService) DeclineTrade(ctx context.Context, tradeID, userID string) (model.TradeRequest, error) {
	return s.closeTrade(ctx, tradeID, userID, s.trading.DeclineTrade)
}

// CancelTrade withdraws a request on behalf of its requester.
func (s *EconomyService) CancelTrade(ctx context.Context, tradeID, userID string) (model.TradeRequest, error) {
	return s.closeTrade(ctx, tradeID, userID, s.trading.CancelTrade)
}

// ListTrades returns the requests a user takes part in.
func (s *EconomyService) ListTrades(ctx context.Context, userID string, pendingOnly bool) ([]model.TradeRequest, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	return s.trading.ListTrades(ctx, userID, pendingOnly)
}

// ExpireTrades flips overdue pending requests to expired and returns how many changed.
func (s *EconomyService) ExpireTrades(ctx context.Context) (int, error) {
	expired, err := s.trading.ExpireStale(ctx, s.gate.Now())
	if err != nil {
		return 0, err
	}
	for _, req := range expired {
		s.audit.Record(audit.Event{
			Type: audit.EventTradeResolved, UserID: req.RequesterID, Counterparty: req.TargetID,
			Ref: req.ID, Detail: string(req.Status),
		})
	}
	return len(expired), nil
}

// DepositToVault moves one unit of item into the user's vault.
func (s *EconomyService) DepositToVault(ctx context.Context, userID string, item model.ItemKey) (*VaultMove, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	unlock := s.locks.lock(userID)
	defer unlock()

	def, err := s.trading.DepositToVault(ctx, userID, item)
	if err != nil {
		return nil, err
	}
	s.audit.Record(audit.Event{Type: audit.EventVaultDeposit, UserID: userID, Gave: []model.ItemKey{def.Key()}})
	return &VaultMove{Item: def}, nil
}

// WithdrawFromVault moves one unit of item back into the user's collection.
func (s *EconomyService) WithdrawFromVault(ctx context.Context, userID string, item model.ItemKey) (*VaultMove, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	unlock := s.locks.lock(userID)
	defer unlock()

	def, ups, err := s.trading.WithdrawFromVault(ctx, userID, item)
	if err != nil {
		return nil, err
	}
	s.audit.Record(audit.Event{Type: audit.EventVaultWithdraw, UserID: userID, Got: []model.ItemKey{def.Key()}})
	s.recordUpgrades(ctx, userID, ups)
	return &VaultMove{Item: def, Upgrades: ups}, nil
}

// DepositToBoard lists one vault unit publicly.
func (s *EconomyService) DepositToBoard(ctx context.Context, userID string, item model.ItemKey, comment string) (model.BoardOffer, error) {
	if err := requireUser(userID); err != nil {
		return model.BoardOffer{}, err
	}
	unlock := s.locks.lock(userID)
	defer unlock()

	offer, err := s.trading.DepositToBoard(ctx, userID, s.names.DisplayName(ctx, userID), item, comment)
	if err != nil {
		return model.BoardOffer{}, err
	}
	s.audit.Record(audit.Event{
		Type: audit.EventBoardDeposit, UserID: userID, Gave: []model.ItemKey{offer.Item},
		Ref: strconv.FormatInt(offer.ID, 10),
	})
	return offer, nil
}

// WithdrawFromBoard removes the user's offer and returns the item to the vault.
func (s *EconomyService) WithdrawFromBoard(ctx context.Context, userID string, offerID int64) (model.BoardOffer, error) {
	if err := requireUser(userID); err != nil {
		return model.BoardOffer{}, err
	}
	unlock := s.locks.lock(userID)
	defer unlock()

	offer, err := s.trading.WithdrawFromBoard(ctx, userID, offerID)
	if err != nil {
		return model.BoardOffer{}, err
	}
	s.audit.Record(audit.Event{
		Type: audit.EventBoardWithdraw, UserID: userID, Got: []model.ItemKey{offer.Item},
		Ref: strconv.FormatInt(offer.ID, 10),
	})
	return offer, nil
}

// AcceptBoardOffer trades one unit of offered from the user's vault for the
// listed item. Losing a race for the offer yields ErrOfferUnavailable.
func (s *EconomyService) AcceptBoardOffer(ctx context.Context, userID string, offerID int64, offered model.ItemKey) (*trading.BoardTrade, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	offer, _, err := s.trading.InitiateBoardTrade(ctx, userID, offerID, offered)
	if err != nil {
		return nil, err
	}
	unlock := s.locks.lock(userID, offer.OwnerID)
	defer unlock()

	trade, err := s.trading.TakeFromBoard(ctx, userID, offerID, offered)
	if err != nil {
		return nil, err
	}
	s.audit.Record(audit.Event{
		Type: audit.EventBoardTrade, UserID: userID, Counterparty: trade.Offer.OwnerID,
		Gave: []model.ItemKey{trade.Given}, Got: []model.ItemKey{trade.Received},
		Ref: strconv.FormatInt(trade.Offer.ID, 10),
	})
	return trade, nil
}

// ListBoard returns all open offers.
func (s *EconomyService) ListBoard(ctx context.Context) ([]model.BoardOffer, error) {
	return s.trading.ListBoard(ctx)
}
