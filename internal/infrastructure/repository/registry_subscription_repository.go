package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pravoguard/court-monitor/internal/domain/values"
)

// RegistrySubscriptionRepository persists upstream monitoring subscriptions
// created at the registry collaborator.
type RegistrySubscriptionRepository struct {
	db *pgxpool.Pool
}

func NewRegistrySubscriptionRepository(db *pgxpool.Pool) *RegistrySubscriptionRepository {
	return &RegistrySubscriptionRepository{db: db}
}

// Exists reports whether an active subscription of the given type already
// covers the company.
func (r *RegistrySubscriptionRepository) Exists(ctx context.Context, code values.EDRPOU, subType string) (bool, error) {
	var exists bool
	query := `
		SELECT EXISTS(
			SELECT 1 FROM registry_subscriptions
			WHERE edrpou = $1 AND subscription_type = $2 AND is_active)`

	if err := r.db.QueryRow(ctx, query, code, subType).Scan(&exists); err != nil {
		return false, mapError(err, "registry subscription")
	}
	return exists, nil
}

// Add records an upstream subscription id returned by the collaborator.
func (r *RegistrySubscriptionRepository) Add(ctx context.Context, upstreamID string, code values.EDRPOU, subType string) error {
	query := `
		INSERT INTO registry_subscriptions (id, subscription_id, edrpou, subscription_type, is_active, created_at)
		VALUES ($1, $2, $3, $4, TRUE, NOW())
		ON CONFLICT (subscription_id) DO UPDATE SET is_active = TRUE`

	if _, err := r.db.Exec(ctx, query, uuid.New(), upstreamID, code, subType); err != nil {
		return mapError(err, "registry subscription")
	}
	return nil
}

// Deactivate marks an upstream subscription inactive after it is removed at
// the collaborator.
func (r *RegistrySubscriptionRepository) Deactivate(ctx context.Context, upstreamID string) error {
	_, err := r.db.Exec(ctx,
		`UPDATE registry_subscriptions SET is_active = FALSE WHERE subscription_id = $1`, upstreamID)
	if err != nil {
		return mapError(err, "registry subscription")
	}
	return nil
}
