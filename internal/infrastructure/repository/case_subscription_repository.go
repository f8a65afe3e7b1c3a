package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pravoguard/court-monitor/internal/domain/values"
)

// CaseSubscriptionRepository binds users directly to case numbers,
// independent of tracked companies. Unique per (user, case number).
type CaseSubscriptionRepository struct {
	db *pgxpool.Pool
}

func NewCaseSubscriptionRepository(db *pgxpool.Pool) *CaseSubscriptionRepository {
	return &CaseSubscriptionRepository{db: db}
}

// Subscribe creates or reactivates the per-case binding. A non-empty label
// replaces the stored one.
func (r *CaseSubscriptionRepository) Subscribe(ctx context.Context, userID int64, number values.CaseNumber, label string) error {
	query := `
		INSERT INTO case_subscriptions (id, user_id, case_number, label, is_active, created_at)
		VALUES ($1, $2, $3, NULLIF($4, ''), TRUE, NOW())
		ON CONFLICT (user_id, case_number) DO UPDATE SET
			is_active = TRUE,
			label = COALESCE(NULLIF(EXCLUDED.label, ''), case_subscriptions.label)`

	if _, err := r.db.Exec(ctx, query, uuid.New(), userID, number, label); err != nil {
		return mapError(err, "case subscription")
	}
	return nil
}

// Unsubscribe deactivates the binding.
func (r *CaseSubscriptionRepository) Unsubscribe(ctx context.Context, userID int64, number values.CaseNumber) error {
	_, err := r.db.Exec(ctx,
		`UPDATE case_subscriptions SET is_active = FALSE WHERE user_id = $1 AND case_number = $2`,
		userID, number)
	if err != nil {
		return mapError(err, "case subscription")
	}
	return nil
}

// UsersForCase lists users actively subscribed to this exact case number.
func (r *CaseSubscriptionRepository) UsersForCase(ctx context.Context, number values.CaseNumber) ([]int64, error) {
	rows, err := r.db.Query(ctx,
		`SELECT user_id FROM case_subscriptions WHERE case_number = $1 AND is_active ORDER BY created_at`,
		number)
	if err != nil {
		return nil, mapError(err, "case subscriptions")
	}
	defer rows.Close()

	var users []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, mapError(err, "case subscription")
		}
		users = append(users, id)
	}
	return users, rows.Err()
}
