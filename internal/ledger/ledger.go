package ledger

import (
	"context"
	"sync"
	"time"

	"cardvault-api/internal/model"
	"cardvault-api/internal/repository"
)

// Table names a logical table of the ledger.
type Table string

const (
	TableCards       Table = "cards"
	TableVault       Table = "vault"
	TableBoard       Table = "board"
	TableTrades      Table = "trades"
	TableDiscoveries Table = "discoveries"
	TableCounters    Table = "counters"

	// tableSequences holds id high-water marks. It is guarded by the board lock.
	tableSequences Table = "sequences"
)

// LockOrder is the global acquisition order of table locks. An operation that
// needs several locks takes them in this order and never re-acquires one it holds.
var LockOrder = []Table{TableCards, TableVault, TableBoard, TableTrades, TableDiscoveries, TableCounters}

// DefaultCacheTTL is the validity window of table snapshots.
const DefaultCacheTTL = 3 * time.Second

// table couples a lock with a cached view of the store.
type table struct {
	name  Table
	mu    sync.Mutex
	store repository.TableStore
	cache *tableCache
}

func newTable(name Table, store repository.TableStore, ttl time.Duration) *table {
	return &table{
		name:  name,
		store: store,
		cache: newTableCache(string(name), store, ttl),
	}
}

// Lock acquires the table lock.
func (t *table) Lock() { t.mu.Lock() }

// Unlock releases the table lock.
func (t *table) Unlock() { t.mu.Unlock() }

func (t *table) rows(ctx context.Context) ([]repository.Row, error) {
	rows, err := t.cache.get(ctx)
	if err != nil {
		return nil, model.Wrap(model.ErrPersistence, "read "+string(t.name), err)
	}
	return rows, nil
}

// write applies a batch to the store and refreshes the cache. On failure the
// cache is left as it was and nothing was written.
func (t *table) write(ctx context.Context, batch repository.Batch) error {
	if batch.IsEmpty() {
		return nil
	}
	if err := t.store.ApplyBatch(ctx, string(t.name), batch); err != nil {
		return model.Wrap(model.ErrPersistence, "write "+string(t.name), err)
	}
	t.cache.applied(ctx, batch)
	return nil
}

// Ledger is the cached, lock-guarded access point to every economy table.
type Ledger struct {
	store repository.TableStore

	cards       *Holdings
	vault       *Holdings
	board       *Board
	trades      *Trades
	discoveries *Discoveries
	counters    *Counters
}

// Options configures a Ledger.
type Options struct {
	CacheTTL time.Duration
}

// New creates a ledger over store.
func New(store repository.TableStore, opts Options) *Ledger {
	ttl := opts.CacheTTL
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &Ledger{
		store:       store,
		cards:       &Holdings{t: newTable(TableCards, store, ttl)},
		vault:       &Holdings{t: newTable(TableVault, store, ttl)},
		board:       &Board{t: newTable(TableBoard, store, ttl), seq: newTable(tableSequences, store, ttl)},
		trades:      &Trades{t: newTable(TableTrades, store, ttl)},
		discoveries: &Discoveries{t: newTable(TableDiscoveries, store, ttl)},
		counters:    &Counters{t: newTable(TableCounters, store, ttl)},
	}
}

// Cards returns the main ledger.
func (l *Ledger) Cards() *Holdings { return l.cards }

// Vault returns the escrow ledger.
func (l *Ledger) Vault() *Holdings { return l.vault }

// Board returns the public offer board.
func (l *Ledger) Board() *Board { return l.board }

// Trades returns the bazaar trade requests table.
func (l *Ledger) Trades() *Trades { return l.trades }

// Discoveries returns the discoveries table.
func (l *Ledger) Discoveries() *Discoveries { return l.discoveries }

// Counters returns the per-user daily counters table.
func (l *Ledger) Counters() *Counters { return l.counters }

// Stats returns store statistics.
func (l *Ledger) Stats(ctx context.Context) (map[string]interface{}, error) {
	return l.store.GetStats(ctx)
}

// table returns the lock-guarded table called name, or nil.
func (l *Ledger) table(name Table) *table {
	switch name {
	case TableCards:
		return l.cards.t
	case TableVault:
		return l.vault.t
	case TableBoard:
		return l.board.t
	case TableTrades:
		return l.trades.t
	case TableDiscoveries:
		return l.discoveries.t
	case TableCounters:
		return l.counters.t
	case tableSequences:
		return l.board.seq
	}
	return nil
}

// Invalidate drops every cached snapshot. It takes each table lock in
// LockOrder so no writer is mid-batch while its snapshot is dropped.
func (l *Ledger) Invalidate() {
	for _, name := range LockOrder {
		t := l.table(name)
		t.Lock()
		t.cache.invalidate()
		if name == TableBoard {
			l.board.seq.cache.invalidate()
		}
		t.Unlock()
	}
}
