package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// SettingsRepository holds per-user notification preferences. Rows are
// created lazily with the default: filter out cases already present in the
// known-cases index.
type SettingsRepository struct {
	db *pgxpool.Pool
}

func NewSettingsRepository(db *pgxpool.Pool) *SettingsRepository {
	return &SettingsRepository{db: db}
}

// ReceiveAll reports the user's preference; a missing row is the default
// (false, filter by the known-cases index).
func (r *SettingsRepository) ReceiveAll(ctx context.Context, userID int64) (bool, error) {
	var receiveAll bool
	err := r.db.QueryRow(ctx,
		`SELECT receive_all FROM user_settings WHERE user_id = $1`, userID).Scan(&receiveAll)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, mapError(err, "user settings")
	}
	return receiveAll, nil
}

// SetReceiveAll stores the preference, creating the row when absent.
func (r *SettingsRepository) SetReceiveAll(ctx context.Context, userID int64, value bool) error {
	query := `
		INSERT INTO user_settings (id, user_id, receive_all, created_at, updated_at)
		VALUES ($1, $2, $3, NOW(), NOW())
		ON CONFLICT (user_id) DO UPDATE SET receive_all = EXCLUDED.receive_all, updated_at = NOW()`

	if _, err := r.db.Exec(ctx, query, uuid.New(), userID, value); err != nil {
		return mapError(err, "user settings")
	}
	return nil
}
