package service

import (
	"context"
	"fmt"
	"log"

	"cardvault-api/internal/audit"
	"cardvault-api/internal/drawing"
	"cardvault-api/internal/model"
)

// DrawnItem is an item produced by a draw, with its discovery rank.
type DrawnItem struct {
	model.ItemDefinition
	DiscoveryIndex int  `json:"discovery_index,omitempty"`
	FirstDiscovery bool `json:"first_discovery"`
}

// DrawResult is the outcome of a daily, bonus or sacrificial draw.
type DrawResult struct {
	Items        []DrawnItem       `json:"items"`
	Consumed     []model.ItemKey   `json:"consumed,omitempty"`
	Upgrades     []drawing.Upgrade `json:"upgrades,omitempty"`
	BonusCredits int               `json:"bonus_credits"`
}

// SacrificePreview shows what today's sacrifice would consume.
type SacrificePreview struct {
	Day        string                 `json:"day"`
	Available  bool                   `json:"available"`
	Candidates []model.ItemDefinition `json:"candidates"`
	Reward     int                    `json:"reward"`
}

type gateRecord func(ctx context.Context, userID string) (model.DailyCounters, error)

// DrawDaily grants the user's once-per-day draw.
func (s *EconomyService) DrawDaily(ctx context.Context, userID string) (*DrawResult, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	unlock := s.locks.lock(userID)
	defer unlock()

	ok, err := s.gate.CanPerformDailyDraw(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, model.ErrDailyDrawTaken
	}
	return s.gatedDraw(ctx, userID, s.opts.DailyDraws, nil, s.gate.RecordDailyDraw, "daily")
}

// DrawBonus spends one bonus credit on a draw.
func (s *EconomyService) DrawBonus(ctx context.Context, userID string) (*DrawResult, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	unlock := s.locks.lock(userID)
	defer unlock()

	return s.gatedDraw(ctx, userID, 1, nil, s.gate.ConsumeBonusCredit, "bonus")
}

// DrawSacrificial consumes today's sacrifice candidates in exchange for fresh draws.
func (s *EconomyService) DrawSacrificial(ctx context.Context, userID string) (*DrawResult, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	unlock := s.locks.lock(userID)
	defer unlock()

	ok, err := s.gate.CanPerformSacrificialDraw(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, model.ErrSacrificeTaken
	}
	held, err := s.ledger.Cards().Of(ctx, userID)
	if err != nil {
		return nil, err
	}
	candidates, err := s.drawer.SelectSacrificeCandidates(userID, held, s.gate.Today())
	if err != nil {
		return nil, err
	}
	return s.gatedDraw(ctx, userID, s.opts.SacrificeReward, candidates, s.gate.RecordSacrificialDraw, "sacrifice")
}

// gatedDraw records the gate, then consumes and credits items in one guarded
// step. A failed credit puts the counters back. Caller holds the user lock.
func (s *EconomyService) gatedDraw(ctx context.Context, userID string, n int, consume []model.ItemKey, record gateRecord, kind string) (*DrawResult, error) {
	defs, err := s.drawer.Draw(n)
	if err != nil {
		return nil, err
	}
	prev, err := record(ctx, userID)
	if err != nil {
		return nil, err
	}

	deltas := make([]cardDelta, 0, len(consume)+len(defs))
	for _, k := range consume {
		deltas = append(deltas, cardDelta{key: k, n: -1})
	}
	for _, d := range defs {
		deltas = append(deltas, cardDelta{key: d.Key(), n: 1})
	}
	if err := s.applyCards(ctx, userID, deltas); err != nil {
		return nil, s.undoGate(ctx, prev, err)
	}

	got := keysOf(defs)
	ev := audit.Event{Type: audit.EventDraw, UserID: userID, Gave: consume, Got: got, Detail: kind}
	if len(consume) > 0 {
		ev.Type = audit.EventSacrifice
	}
	s.audit.Record(ev)
	log.Printf("[EconomyService] %s %s draw: %v", userID, kind, got)

	res := &DrawResult{Consumed: consume, Upgrades: s.upgrade(ctx, userID, got)}
	marks := s.discover(ctx, userID, got)
	for _, d := range defs {
		m := marks[d.Key()]
		res.Items = append(res.Items, DrawnItem{ItemDefinition: d, DiscoveryIndex: m.index, FirstDiscovery: m.first})
	}
	credits, err := s.gate.BonusCredits(ctx, userID)
	if err == nil {
		res.BonusCredits = credits
	}
	return res, nil
}

// PreviewSacrifice returns today's candidates without consuming anything.
func (s *EconomyService) PreviewSacrifice(ctx context.Context, userID string) (*SacrificePreview, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	available, err := s.gate.CanPerformSacrificialDraw(ctx, userID)
	if err != nil {
		return nil, err
	}
	held, err := s.ledger.Cards().Of(ctx, userID)
	if err != nil {
		return nil, err
	}
	day := s.gate.Today()
	keys, err := s.drawer.SelectSacrificeCandidates(userID, held, day)
	if err != nil {
		return nil, err
	}

	preview := &SacrificePreview{Day: day, Available: available, Reward: s.opts.SacrificeReward}
	for _, k := range keys {
		def, ok := s.catalog.Lookup(k)
		if !ok {
			return nil, fmt.Errorf("failed to resolve sacrifice candidate %s", k)
		}
		preview.Candidates = append(preview.Candidates, def)
	}
	return preview, nil
}

// GrantBonusDraws adds n bonus draw credits and returns the new balance.
func (s *EconomyService) GrantBonusDraws(ctx context.Context, userID string, n int) (int, error) {
	if err := requireUser(userID); err != nil {
		return 0, err
	}
	unlock := s.locks.lock(userID)
	defer unlock()

	balance, err := s.gate.GrantBonusCredits(ctx, userID, n)
	if err != nil {
		return 0, err
	}
	s.audit.Record(audit.Event{Type: audit.EventBonusGranted, UserID: userID, Detail: fmt.Sprintf("+%d", n)})
	return balance, nil
}
