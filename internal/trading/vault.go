package trading

import (
	"context"
	"log"

	"cardvault-api/internal/catalog"
	"cardvault-api/internal/drawing"
	"cardvault-api/internal/model"
)

// resolveTradable resolves key and rejects upgraded items.
func (e *Engine) resolveTradable(key model.ItemKey) (model.ItemDefinition, error) {
	def, err := catalog.Resolve(e.catalog, key)
	if err != nil {
		return model.ItemDefinition{}, err
	}
	if def.IsUpgraded {
		return model.ItemDefinition{}, model.Wrap(model.ErrUpgradedNotAllowed, def.Key().String(), nil)
	}
	return def, nil
}

// DepositToVault moves one unit from the user's collection into their vault.
func (e *Engine) DepositToVault(ctx context.Context, userID string, item model.ItemKey) (model.ItemDefinition, error) {
	def, err := e.resolveTradable(item)
	if err != nil {
		return model.ItemDefinition{}, err
	}

	cards, vault := e.ledger.Cards(), e.ledger.Vault()
	cards.Lock()
	defer cards.Unlock()
	vault.Lock()
	defer vault.Unlock()

	u := newUnwinder("vault deposit")
	if err := u.add(ctx, cards, def.Key(), userID, -1); err != nil {
		return model.ItemDefinition{}, err
	}
	if err := u.add(ctx, vault, def.Key(), userID, +1); err != nil {
		return model.ItemDefinition{}, u.fail(ctx, err)
	}
	log.Printf("[TradingEngine] %s deposited %s into the vault", userID, def.Key())
	return def, nil
}

// WithdrawFromVault moves one unit from the user's vault back into their
// collection and runs the upgrade check on it.
func (e *Engine) WithdrawFromVault(ctx context.Context, userID string, item model.ItemKey) (model.ItemDefinition, []drawing.Upgrade, error) {
	def, err := e.resolveTradable(item)
	if err != nil {
		return model.ItemDefinition{}, nil, err
	}

	err = func() error {
		cards, vault := e.ledger.Cards(), e.ledger.Vault()
		cards.Lock()
		defer cards.Unlock()
		vault.Lock()
		defer vault.Unlock()

		u := newUnwinder("vault withdrawal")
		if err := u.add(ctx, vault, def.Key(), userID, -1); err != nil {
			return err
		}
		if err := u.add(ctx, cards, def.Key(), userID, +1); err != nil {
			return u.fail(ctx, err)
		}
		return nil
	}()
	if err != nil {
		return model.ItemDefinition{}, nil, err
	}

	var upgrades []drawing.Upgrade
	if e.upgrader != nil {
		upgrades, err = e.upgrader.CheckUpgrade(ctx, userID, []model.ItemKey{def.Key()})
		if err != nil {
			log.Printf("[TradingEngine] Upgrade check failed for %s after withdrawal: %v", userID, err)
		}
	}
	return def, upgrades, nil
}

// VaultOf returns the user's vault contents.
func (e *Engine) VaultOf(ctx context.Context, userID string) (map[model.ItemKey]int, error) {
	return e.ledger.Vault().Of(ctx, userID)
}
