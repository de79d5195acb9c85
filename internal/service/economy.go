package service

import (
	"context"
	"log"

	"cardvault-api/internal/audit"
	"cardvault-api/internal/catalog"
	"cardvault-api/internal/discovery"
	"cardvault-api/internal/drawing"
	"cardvault-api/internal/ledger"
	"cardvault-api/internal/model"
	"cardvault-api/internal/trading"
)

// EconomyOptions tunes draw sizes.
type EconomyOptions struct {
	DailyDraws      int
	SacrificeReward int
}

// EconomyDeps are the collaborators of EconomyService.
type EconomyDeps struct {
	Catalog catalog.Catalog
	Ledger  *ledger.Ledger
	Drawer  *drawing.Engine
	Trading *trading.Engine
	Tracker *discovery.Tracker
	Names   *NameDirectory
	Audit   audit.Recorder
}

// EconomyService is the operation set exposed to adapters. Every operation
// runs under the per-user lock of the users it touches, taken before any
// table lock.
type EconomyService struct {
	catalog catalog.Catalog
	ledger  *ledger.Ledger
	drawer  *drawing.Engine
	trading *trading.Engine
	gate    *trading.Gate
	tracker *discovery.Tracker
	names   *NameDirectory
	audit   audit.Recorder
	locks   *userLocks
	opts    EconomyOptions
}

// NewEconomyService wires the facade.
func NewEconomyService(deps EconomyDeps, opts EconomyOptions) *EconomyService {
	if opts.DailyDraws <= 0 {
		opts.DailyDraws = 1
	}
	if opts.SacrificeReward <= 0 {
		opts.SacrificeReward = drawing.SacrificeReward
	}
	rec := deps.Audit
	if rec == nil {
		rec = audit.Nop{}
	}
	return &EconomyService{
		catalog: deps.Catalog,
		ledger:  deps.Ledger,
		drawer:  deps.Drawer,
		trading: deps.Trading,
		gate:    deps.Trading.Gate(),
		tracker: deps.Tracker,
		names:   deps.Names,
		audit:   rec,
		locks:   newUserLocks(),
		opts:    opts,
	}
}

func requireUser(ids ...string) error {
	for _, id := range ids {
		if id == "" {
			return model.Wrap(model.ErrInvalidInput, "user id is required", nil)
		}
	}
	return nil
}

type cardDelta struct {
	key model.ItemKey
	n   int
}

// applyCards applies deltas to one user's collection, restoring the applied
// ones if any step fails.
func (s *EconomyService) applyCards(ctx context.Context, userID string, deltas []cardDelta) error {
	cards := s.ledger.Cards()
	cards.Lock()
	defer cards.Unlock()

	for i, d := range deltas {
		if err := cards.Add(ctx, d.key, userID, d.n); err != nil {
			for j := i - 1; j >= 0; j-- {
				if rerr := cards.Add(ctx, deltas[j].key, userID, -deltas[j].n); rerr != nil {
					log.Printf("[EconomyService] CRITICAL: failed to restore %s for %s: %v", deltas[j].key, userID, rerr)
					return model.Wrap(model.ErrRollbackFailed, "collection update", rerr)
				}
			}
			return err
		}
	}
	return nil
}

// undoGate puts back counters recorded before a failed mutation.
func (s *EconomyService) undoGate(ctx context.Context, prev model.DailyCounters, cause error) error {
	if err := s.gate.Restore(ctx, prev); err != nil {
		log.Printf("[EconomyService] CRITICAL: failed to restore counters of %s: %v", prev.UserID, err)
		return model.Wrap(model.ErrRollbackFailed, "counters", err)
	}
	return cause
}

// discover logs first acquisitions of keys and returns their discovery ranks.
func (s *EconomyService) discover(ctx context.Context, userID string, keys []model.ItemKey) map[model.ItemKey]discoveryMark {
	marks := make(map[model.ItemKey]discoveryMark, len(keys))
	if s.tracker == nil {
		return marks
	}
	name := s.names.DisplayName(ctx, userID)
	for _, key := range keys {
		if _, done := marks[key]; done {
			continue
		}
		idx, created, err := s.tracker.LogDiscovery(ctx, key, userID, name)
		if err != nil {
			log.Printf("[EconomyService] Failed to log discovery of %s: %v", key, err)
			continue
		}
		marks[key] = discoveryMark{index: idx, first: created}
		if created {
			s.audit.Record(audit.Event{Type: audit.EventDiscovery, UserID: userID, Got: []model.ItemKey{key}})
		}
	}
	return marks
}

type discoveryMark struct {
	index int
	first bool
}

// upgrade runs the upgrade check after a commit and records what it produced.
func (s *EconomyService) upgrade(ctx context.Context, userID string, keys []model.ItemKey) []drawing.Upgrade {
	ups, err := s.drawer.CheckUpgrade(ctx, userID, keys)
	if err != nil {
		log.Printf("[EconomyService] Upgrade check failed for %s: %v", userID, err)
	}
	s.recordUpgrades(ctx, userID, ups)
	return ups
}

func (s *EconomyService) recordUpgrades(ctx context.Context, userID string, ups []drawing.Upgrade) {
	if len(ups) == 0 {
		return
	}
	full := make([]model.ItemKey, 0, len(ups))
	for _, up := range ups {
		full = append(full, up.Upgraded)
		s.audit.Record(audit.Event{
			Type:   audit.EventUpgrade,
			UserID: userID,
			Gave:   repeatKey(up.Base, up.Consumed),
			Got:    repeatKey(up.Upgraded, up.Granted),
		})
	}
	s.discover(ctx, userID, full)
}

func repeatKey(k model.ItemKey, n int) []model.ItemKey {
	out := make([]model.ItemKey, n)
	for i := range out {
		out[i] = k
	}
	return out
}

func keysOf(defs []model.ItemDefinition) []model.ItemKey {
	out := make([]model.ItemKey, len(defs))
	for i, d := range defs {
		out[i] = d.Key()
	}
	return out
}

// owned converts a holdings map into catalog-ordered entries.
func (s *EconomyService) owned(held map[model.ItemKey]int) []model.OwnedItem {
	out := make([]model.OwnedItem, 0, len(held))
	for _, key := range catalog.SortedKeys(held) {
		n := held[key]
		if n <= 0 {
			continue
		}
		item := model.OwnedItem{Category: key.Category, Name: key.Name, Count: n, IsUpgraded: model.IsUpgradedName(key.Name)}
		if def, ok := s.catalog.Lookup(key); ok {
			item.IsUpgraded = def.IsUpgraded
			item.MediaHandle = def.MediaHandle
		}
		out = append(out, item)
	}
	return out
}
