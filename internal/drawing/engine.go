package drawing

import (
	"context"
	crand "crypto/rand"
	"encoding/binary"
	"fmt"
	"hash/fnv"
	"log"
	"math/rand"
	"sync"

	"cardvault-api/internal/catalog"
	"cardvault-api/internal/ledger"
	"cardvault-api/internal/model"
)

const (
	// SacrificeSize is how many distinct items a sacrifice consumes.
	SacrificeSize = 5
	// SacrificeReward is how many fresh draws a sacrifice yields.
	SacrificeReward = 3
	// DefaultUpgradeThreshold applies to categories that leave the threshold unset.
	DefaultUpgradeThreshold = 5
)

// Engine draws items and applies upgrades on the main ledger.
type Engine struct {
	catalog catalog.Catalog
	cards   *ledger.Holdings
	specs   map[string]catalog.CategorySpec
	order   []string

	mu  sync.Mutex
	rng *rand.Rand
}

// NewSeed generates a random seed using crypto/rand.
func NewSeed() (int64, error) {
	var b [8]byte
	if _, err := crand.Read(b[:]); err != nil {
		return 0, fmt.Errorf("read random seed: %w", err)
	}
	return int64(binary.LittleEndian.Uint64(b[:])), nil
}

// New creates a drawing engine. specs carry the per-category weights and thresholds.
func New(c catalog.Catalog, specs []catalog.CategorySpec, cards *ledger.Holdings, seed int64) *Engine {
	e := &Engine{
		catalog: c,
		cards:   cards,
		specs:   make(map[string]catalog.CategorySpec, len(specs)),
		rng:     rand.New(rand.NewSource(seed)),
	}
	for _, s := range specs {
		e.specs[s.Name] = s
		e.order = append(e.order, s.Name)
	}
	return e
}

type weightedCategory struct {
	weight float64
	items  []model.ItemDefinition
}

// drawPool returns the categories that can currently produce an item.
// Categories without drawable items drop out, which renormalizes the rest.
func (e *Engine) drawPool() ([]weightedCategory, float64) {
	var pool []weightedCategory
	var total float64
	for _, name := range e.order {
		spec := e.specs[name]
		if spec.Weight <= 0 {
			continue
		}
		var drawable []model.ItemDefinition
		for _, def := range e.catalog.ListItems(name) {
			if !def.IsUpgraded {
				drawable = append(drawable, def)
			}
		}
		if len(drawable) == 0 {
			continue
		}
		pool = append(pool, weightedCategory{weight: spec.Weight, items: drawable})
		total += spec.Weight
	}
	return pool, total
}

// Draw picks n items: a category by weight, then an item uniformly within it.
func (e *Engine) Draw(n int) ([]model.ItemDefinition, error) {
	if n <= 0 {
		return nil, nil
	}
	pool, total := e.drawPool()
	if len(pool) == 0 || total <= 0 {
		return nil, model.ErrEmptyCatalog
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	out := make([]model.ItemDefinition, 0, n)
	for i := 0; i < n; i++ {
		r := e.rng.Float64() * total
		chosen := pool[len(pool)-1]
		for _, c := range pool {
			if r < c.weight {
				chosen = c
				break
			}
			r -= c.weight
		}
		out = append(out, chosen.items[e.rng.Intn(len(chosen.items))])
	}
	return out, nil
}

// SacrificeSeed derives the PRNG seed for a user's sacrifice on a calendar date.
func SacrificeSeed(userID, day string) int64 {
	h := fnv.New64a()
	h.Write([]byte(userID))
	h.Write([]byte{'|'})
	h.Write([]byte(day))
	return int64(h.Sum64())
}

// SelectSacrificeCandidates returns SacrificeSize distinct base items from owned,
// weighted by owned count. The result depends only on the user, the day and owned.
func (e *Engine) SelectSacrificeCandidates(userID string, owned map[model.ItemKey]int, day string) ([]model.ItemKey, error) {
	var keys []model.ItemKey
	var weights []int
	for _, k := range catalog.SortedKeys(owned) {
		if owned[k] <= 0 {
			continue
		}
		def, ok := e.catalog.Lookup(k)
		if !ok || def.IsUpgraded {
			continue
		}
		keys = append(keys, def.Key())
		weights = append(weights, owned[k])
	}
	if len(keys) < SacrificeSize {
		return nil, model.Wrap(model.ErrNotEnoughCandidates, fmt.Sprintf("have %d, need %d", len(keys), SacrificeSize), nil)
	}

	rng := rand.New(rand.NewSource(SacrificeSeed(userID, day)))
	total := 0
	for _, w := range weights {
		total += w
	}

	picked := make([]model.ItemKey, 0, SacrificeSize)
	for len(picked) < SacrificeSize {
		r := rng.Intn(total)
		i := 0
		for ; i < len(weights); i++ {
			if r < weights[i] {
				break
			}
			r -= weights[i]
		}
		picked = append(picked, keys[i])
		total -= weights[i]
		keys = append(keys[:i], keys[i+1:]...)
		weights = append(weights[:i], weights[i+1:]...)
	}
	return picked, nil
}

// Upgrade describes the duplicate→upgraded conversions of one base item.
type Upgrade struct {
	Base     model.ItemKey `json:"base"`
	Upgraded model.ItemKey `json:"upgraded"`
	Consumed int           `json:"consumed"`
	Granted  int           `json:"granted"`
}

func (e *Engine) threshold(category string) int {
	spec, ok := e.specs[category]
	if !ok || spec.UpgradeThreshold == 0 {
		return DefaultUpgradeThreshold
	}
	return spec.UpgradeThreshold
}

// CheckUpgrade converts duplicates of the given items into upgraded variants for
// userID. Each conversion consumes exactly the category threshold, and every
// full multiple of it is converted in one call; a failed grant restores the
// consumed duplicates. Acquires the main-ledger lock.
func (e *Engine) CheckUpgrade(ctx context.Context, userID string, items []model.ItemKey) ([]Upgrade, error) {
	e.cards.Lock()
	defer e.cards.Unlock()

	seen := make(map[model.ItemKey]bool, len(items))
	var upgrades []Upgrade
	for _, item := range items {
		def, ok := e.catalog.Lookup(item)
		if !ok || def.IsUpgraded || seen[def.Key()] {
			continue
		}
		base := def.Key()
		seen[base] = true

		threshold := e.threshold(base.Category)
		if threshold < 0 {
			continue
		}
		full, ok := e.catalog.Lookup(base.UpgradedKey())
		if !ok || !full.IsUpgraded {
			continue
		}

		count, err := e.cards.Count(ctx, base, userID)
		if err != nil {
			return upgrades, err
		}
		granted := count / threshold
		if granted == 0 {
			continue
		}
		consumed := granted * threshold

		if err := e.cards.SetCount(ctx, base, userID, count-consumed); err != nil {
			return upgrades, err
		}
		if err := e.cards.Add(ctx, full.Key(), userID, granted); err != nil {
			if rerr := e.cards.SetCount(ctx, base, userID, count); rerr != nil {
				log.Printf("[DrawingEngine] CRITICAL: failed to restore %d x %s for %s: %v", count, base, userID, rerr)
				return upgrades, model.Wrap(model.ErrRollbackFailed, "upgrade of "+base.String(), rerr)
			}
			return upgrades, err
		}
		log.Printf("[DrawingEngine] Upgraded %d x %s for %s (%d consumed)", granted, full.Key(), userID, consumed)
		upgrades = append(upgrades, Upgrade{Base: base, Upgraded: full.Key(), Consumed: consumed, Granted: granted})
	}
	return upgrades, nil
}
