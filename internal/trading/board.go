package trading

import (
	"context"
	"fmt"
	"log"
	"strings"

	"cardvault-api/internal/model"
)

// BoardTrade is the outcome of taking an offer from the board.
type BoardTrade struct {
	Offer    model.BoardOffer `json:"offer"`
	Given    model.ItemKey    `json:"given"`
	Received model.ItemKey    `json:"received"`
}

// DepositToBoard lists one unit from the owner's vault as a public offer.
func (e *Engine) DepositToBoard(ctx context.Context, ownerID, ownerName string, item model.ItemKey, comment string) (model.BoardOffer, error) {
	def, err := e.resolveTradable(item)
	if err != nil {
		return model.BoardOffer{}, err
	}
	comment = strings.TrimSpace(comment)
	if len(comment) > maxCommentLen {
		return model.BoardOffer{}, model.Wrap(model.ErrInvalidInput, fmt.Sprintf("comment longer than %d bytes", maxCommentLen), nil)
	}

	vault, board := e.ledger.Vault(), e.ledger.Board()
	vault.Lock()
	defer vault.Unlock()
	board.Lock()
	defer board.Unlock()

	u := newUnwinder("board deposit")
	if err := u.add(ctx, vault, def.Key(), ownerID, -1); err != nil {
		return model.BoardOffer{}, err
	}
	offer, err := board.Create(ctx, model.BoardOffer{
		OwnerID:   ownerID,
		OwnerName: ownerName,
		Item:      def.Key(),
		Comment:   comment,
		CreatedAt: e.gate.Now().UTC(),
	})
	if err != nil {
		return model.BoardOffer{}, u.fail(ctx, err)
	}
	log.Printf("[TradingEngine] %s listed %s as offer #%d", ownerID, def.Key(), offer.ID)
	return offer, nil
}

// WithdrawFromBoard removes the owner's offer and returns the item to their vault.
func (e *Engine) WithdrawFromBoard(ctx context.Context, ownerID string, offerID int64) (model.BoardOffer, error) {
	vault, board := e.ledger.Vault(), e.ledger.Board()
	vault.Lock()
	defer vault.Unlock()
	board.Lock()
	defer board.Unlock()

	offer, ok, err := board.Offer(ctx, offerID)
	if err != nil {
		return model.BoardOffer{}, err
	}
	if !ok {
		return model.BoardOffer{}, model.ErrOfferNotFound
	}
	if offer.OwnerID != ownerID {
		return model.BoardOffer{}, model.ErrNotOfferOwner
	}

	u := newUnwinder("board withdrawal")
	if err := board.Delete(ctx, offerID); err != nil {
		return model.BoardOffer{}, err
	}
	u.push(func(ctx context.Context) error { return board.Restore(ctx, offer) })
	if err := u.add(ctx, vault, offer.Item, ownerID, +1); err != nil {
		return model.BoardOffer{}, u.fail(ctx, err)
	}
	return offer, nil
}

// InitiateBoardTrade validates that buyerID could take the offer in exchange
// for theirItem. Nothing is reserved; the offer may still be taken by someone
// else before TakeFromBoard runs. A missing offer is reported as
// ErrOfferUnavailable since it was most likely just taken.
func (e *Engine) InitiateBoardTrade(ctx context.Context, buyerID string, offerID int64, theirItem model.ItemKey) (model.BoardOffer, model.ItemDefinition, error) {
	offer, ok, err := e.ledger.Board().Offer(ctx, offerID)
	if err != nil {
		return model.BoardOffer{}, model.ItemDefinition{}, err
	}
	if !ok {
		return model.BoardOffer{}, model.ItemDefinition{}, model.ErrOfferUnavailable
	}
	def, err := e.checkBoardTrade(ctx, buyerID, offer, theirItem)
	if err != nil {
		return model.BoardOffer{}, model.ItemDefinition{}, err
	}
	return offer, def, nil
}

func (e *Engine) checkBoardTrade(ctx context.Context, buyerID string, offer model.BoardOffer, theirItem model.ItemKey) (model.ItemDefinition, error) {
	if offer.OwnerID == buyerID {
		return model.ItemDefinition{}, model.ErrOwnOffer
	}
	def, err := e.resolveTradable(theirItem)
	if err != nil {
		return model.ItemDefinition{}, err
	}
	n, err := e.ledger.Vault().Count(ctx, def.Key(), buyerID)
	if err != nil {
		return model.ItemDefinition{}, err
	}
	if n < 1 {
		return model.ItemDefinition{}, model.Wrap(model.ErrInsufficientItems, "vault holds no "+def.Key().String(), nil)
	}
	return def, nil
}

// TakeFromBoard completes a board trade: the buyer's item goes to the offer
// owner's vault and the listed item goes to the buyer's vault. Of two buyers
// racing for the same offer exactly one succeeds; the other gets
// ErrOfferUnavailable and nothing changes.
func (e *Engine) TakeFromBoard(ctx context.Context, buyerID string, offerID int64, theirItem model.ItemKey) (*BoardTrade, error) {
	vault, board := e.ledger.Vault(), e.ledger.Board()
	vault.Lock()
	defer vault.Unlock()
	board.Lock()
	defer board.Unlock()

	offer, ok, err := board.Offer(ctx, offerID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, model.ErrOfferUnavailable
	}
	def, err := e.checkBoardTrade(ctx, buyerID, offer, theirItem)
	if err != nil {
		return nil, err
	}
	given := def.Key()

	u := newUnwinder("board trade")
	if err := u.add(ctx, vault, given, buyerID, -1); err != nil {
		return nil, err
	}
	if err := board.Delete(ctx, offerID); err != nil {
		return nil, u.fail(ctx, err)
	}
	u.push(func(ctx context.Context) error { return board.Restore(ctx, offer) })
	if err := u.add(ctx, vault, offer.Item, buyerID, +1); err != nil {
		return nil, u.fail(ctx, err)
	}
	if err := u.add(ctx, vault, given, offer.OwnerID, +1); err != nil {
		return nil, u.fail(ctx, err)
	}

	log.Printf("[TradingEngine] %s took offer #%d (%s) from %s for %s", buyerID, offer.ID, offer.Item, offer.OwnerID, given)
	return &BoardTrade{Offer: offer, Given: given, Received: offer.Item}, nil
}

// ListBoard returns all open offers ordered by id.
func (e *Engine) ListBoard(ctx context.Context) ([]model.BoardOffer, error) {
	return e.ledger.Board().Offers(ctx)
}
