package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	apperrors "github.com/pravoguard/court-monitor/internal/domain/errors"
)

// StateRepository is a small keyed store for sync state: the monitoring
// cursor and refresh timestamps.
type StateRepository struct {
	db *pgxpool.Pool
}

func NewStateRepository(db *pgxpool.Pool) *StateRepository {
	return &StateRepository{db: db}
}

// Get returns the stored value for key, or a not-found error.
func (r *StateRepository) Get(ctx context.Context, key string) (string, error) {
	var value string
	err := r.db.QueryRow(ctx,
		`SELECT value FROM sync_state WHERE key_name = $1`, key).Scan(&value)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", apperrors.NewNotFoundError("sync state " + key)
	}
	if err != nil {
		return "", mapError(err, "sync state")
	}
	return value, nil
}

// Set stores the value, creating the row when absent.
func (r *StateRepository) Set(ctx context.Context, key, value string) error {
	query := `
		INSERT INTO sync_state (key_name, value, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (key_name) DO UPDATE SET value = EXCLUDED.value, updated_at = NOW()`

	if _, err := r.db.Exec(ctx, query, key, value); err != nil {
		return mapError(err, "sync state")
	}
	return nil
}
