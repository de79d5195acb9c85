// Package app assembles the economy from configuration. It is shared by the
// HTTP server and the admin CLI.
package app

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"time"
	_ "time/tzdata"

	"cardvault-api/internal/audit"
	"cardvault-api/internal/cache"
	"cardvault-api/internal/catalog"
	"cardvault-api/internal/config"
	"cardvault-api/internal/discovery"
	"cardvault-api/internal/drawing"
	"cardvault-api/internal/ledger"
	"cardvault-api/internal/repository"
	"cardvault-api/internal/service"
	"cardvault-api/internal/trading"
)

// App holds the wired economy and everything that must be closed with it.
type App struct {
	Config  *config.Config
	Store   repository.TableStore
	Ledger  *ledger.Ledger
	Service *service.EconomyService

	closers []func() error
}

// Build opens the configured store and wires every component over it.
func Build(cfg *config.Config) (*App, error) {
	store, err := repository.OpenTableStore(cfg.Store.Type, cfg.Store.Path, cfg.Store.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s store: %w", cfg.Store.Type, err)
	}
	log.Printf("[App] %s table store initialized", cfg.Store.Type)
	return Assemble(cfg, store)
}

// Assemble wires every component over an already open store. The store is
// closed with the App.
func Assemble(cfg *config.Config, store repository.TableStore) (*App, error) {
	a := &App{Config: cfg, Store: store}
	a.closers = append(a.closers, store.Close)
	ok := false
	defer func() {
		if !ok {
			a.Close()
		}
	}()

	loc, err := cfg.Economy.Location()
	if err != nil {
		return nil, err
	}

	cat, err := catalog.LoadFile(cfg.Economy.CatalogFile)
	if err != nil {
		return nil, err
	}
	log.Printf("[App] catalog loaded: %d items in %d categories", cat.Size(), len(cat.Categories()))

	seed, err := drawing.NewSeed()
	if err != nil {
		return nil, err
	}

	a.Ledger = ledger.New(store, ledger.Options{CacheTTL: cfg.Economy.LedgerCacheTTL})
	drawer := drawing.New(cat, cat.Specs(), a.Ledger.Cards(), seed)
	gate := trading.NewGate(a.Ledger.Counters(), loc, cfg.Economy.WeeklyExchanges)
	engine := trading.New(cat, a.Ledger, drawer, gate, trading.Options{TradeTTL: cfg.Economy.TradeTTL})
	tracker := discovery.NewTracker(a.Ledger.Discoveries())

	nameCache, err := openCache(cfg)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, nameCache.Close)

	players, err := openPlayers(cfg)
	if err != nil {
		return nil, err
	}
	if players != nil {
		a.closers = append(a.closers, players.db.Close)
	}

	var dir repository.PlayerRepository
	if players != nil {
		dir = players.repo
	}
	names := service.NewNameDirectory(dir, nameCache, cfg.Cache.TTL)

	rec := audit.Open(cfg.Economy.AuditDir)
	a.closers = append(a.closers, rec.Close)

	a.Service = service.NewEconomyService(service.EconomyDeps{
		Catalog: cat,
		Ledger:  a.Ledger,
		Drawer:  drawer,
		Trading: engine,
		Tracker: tracker,
		Names:   names,
		Audit:   rec,
	}, service.EconomyOptions{
		DailyDraws:      cfg.Economy.DailyDraws,
		SacrificeReward: cfg.Economy.SacrificeReward,
	})

	ok = true
	return a, nil
}

func openCache(cfg *config.Config) (cache.Cache, error) {
	if cfg.Cache.Type != "redis" {
		return cache.NewMemoryCache(time.Minute), nil
	}
	rc, err := cache.NewRedisCache(cache.RedisConfig{
		Addr:      cfg.Cache.RedisAddress(),
		Password:  cfg.Cache.RedisPassword,
		DB:        cfg.Cache.RedisDB,
		KeyPrefix: cfg.Cache.RedisPrefix,
	})
	if err != nil {
		log.Printf("[App] Warning: Redis unavailable, using memory cache: %v", err)
		return cache.NewMemoryCache(time.Minute), nil
	}
	log.Println("[App] Redis name cache initialized")
	return rc, nil
}

type playerDirectory struct {
	db   *sql.DB
	repo *repository.MySQLPlayerRepository
}

// openPlayers connects the optional MySQL players directory. A directory that
// does not answer is skipped and names fall back to user ids.
func openPlayers(cfg *config.Config) (*playerDirectory, error) {
	if !cfg.Database.Enabled() {
		return nil, nil
	}
	db, err := sql.Open("mysql", cfg.Database.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open players database: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		log.Printf("[App] Warning: players directory ping failed: %v", err)
		_ = db.Close()
		return nil, nil
	}
	log.Println("[App] MySQL players directory initialized")
	return &playerDirectory{db: db, repo: repository.NewMySQLPlayerRepository(db)}, nil
}

// Close releases resources in reverse order of acquisition.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			log.Printf("[App] close error: %v", err)
		}
	}
	a.closers = nil
}
