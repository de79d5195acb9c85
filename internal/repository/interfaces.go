package repository

import (
	"context"

	"cardvault-api/internal/model"
)

// Row is one row of a tabular store: a stable key and its ordered cells.
type Row struct {
	Key   string
	Cells []string
}

// Batch groups the writes of one logical mutation on a single table.
// A batch is applied atomically: either every upsert and delete lands or none does.
type Batch struct {
	Upserts []Row
	Deletes []string
}

// IsEmpty reports whether the batch carries no writes.
func (b Batch) IsEmpty() bool {
	return len(b.Upserts) == 0 && len(b.Deletes) == 0
}

// TableStore is the row/column persistence medium behind the ledger.
type TableStore interface {
	// LoadTable returns every row of a table in insertion order.
	LoadTable(ctx context.Context, table string) ([]Row, error)

	// ApplyBatch writes a batch to a table atomically.
	ApplyBatch(ctx context.Context, table string, batch Batch) error

	// GetStats returns statistics about the store.
	GetStats(ctx context.Context) (map[string]interface{}, error)

	// Close closes the store connection.
	Close() error
}

// PlayerRepository defines display-name directory access methods.
type PlayerRepository interface {
	// GetPlayer finds an active player by user id.
	GetPlayer(ctx context.Context, userID string) (*model.Player, error)
}
