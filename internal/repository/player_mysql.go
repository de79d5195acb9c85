package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"cardvault-api/internal/model"
)

// ErrPlayerNotFound is returned when no active player matches a user id.
var ErrPlayerNotFound = errors.New("player not found")

// MySQLPlayerRepository implements PlayerRepository using MySQL.
type MySQLPlayerRepository struct {
	db *sql.DB
}

// NewMySQLPlayerRepository creates a new MySQL player repository.
func NewMySQLPlayerRepository(db *sql.DB) *MySQLPlayerRepository {
	return &MySQLPlayerRepository{db: db}
}

// GetPlayer finds an active player by user id.
func (r *MySQLPlayerRepository) GetPlayer(ctx context.Context, userID string) (*model.Player, error) {
	query := `SELECT user_id, display_name, is_active FROM players WHERE user_id = ? AND is_active = 1 LIMIT 1`

	var p model.Player
	err := r.db.QueryRowContext(ctx, query, userID).Scan(&p.UserID, &p.DisplayName, &p.IsActive)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrPlayerNotFound
		}
		return nil, fmt.Errorf("failed to get player: %w", err)
	}

	return &p, nil
}

// Ensure MySQLPlayerRepository implements PlayerRepository
var _ PlayerRepository = (*MySQLPlayerRepository)(nil)
