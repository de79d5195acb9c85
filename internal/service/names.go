package service

import (
	"context"
	"errors"
	"log"
	"time"

	"cardvault-api/internal/cache"
	"cardvault-api/internal/repository"
)

const defaultNameTTL = 10 * time.Minute

// NameDirectory resolves display names through the cache and the players
// repository. Unknown users resolve to their id.
type NameDirectory struct {
	players repository.PlayerRepository
	cache   cache.Cache
	ttl     time.Duration
}

// NewNameDirectory creates a directory. players and c may be nil.
func NewNameDirectory(players repository.PlayerRepository, c cache.Cache, ttl time.Duration) *NameDirectory {
	if ttl <= 0 {
		ttl = defaultNameTTL
	}
	return &NameDirectory{players: players, cache: c, ttl: ttl}
}

func nameKey(userID string) string {
	return "name:" + userID
}

// DisplayName returns the user's display name, or userID when it cannot be resolved.
func (d *NameDirectory) DisplayName(ctx context.Context, userID string) string {
	if d == nil {
		return userID
	}
	load := func(ctx context.Context) ([]byte, error) {
		if d.players == nil {
			return nil, repository.ErrPlayerNotFound
		}
		p, err := d.players.GetPlayer(ctx, userID)
		if err != nil {
			return nil, err
		}
		return []byte(p.DisplayName), nil
	}

	var (
		name []byte
		err  error
	)
	if d.cache != nil {
		name, err = d.cache.GetOrSet(ctx, nameKey(userID), d.ttl, load)
	} else {
		name, err = load(ctx)
	}
	if err != nil {
		if !errors.Is(err, repository.ErrPlayerNotFound) {
			log.Printf("[NameDirectory] Failed to resolve %s: %v", userID, err)
		}
		return userID
	}
	if len(name) == 0 {
		return userID
	}
	return string(name)
}

// Remember caches a name supplied by an adapter that already knows it.
func (d *NameDirectory) Remember(ctx context.Context, userID, name string) {
	if d == nil || d.cache == nil || name == "" {
		return
	}
	if err := d.cache.Set(ctx, nameKey(userID), []byte(name), d.ttl); err != nil {
		log.Printf("[NameDirectory] Failed to cache name for %s: %v", userID, err)
	}
}
