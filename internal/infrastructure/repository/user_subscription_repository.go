package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pravoguard/court-monitor/internal/domain/values"
)

// UserSubscriptionRepository binds users to tracked companies. Rows are
// unique per (user, code) and soft-deactivated on unsubscribe.
type UserSubscriptionRepository struct {
	db *pgxpool.Pool
}

func NewUserSubscriptionRepository(db *pgxpool.Pool) *UserSubscriptionRepository {
	return &UserSubscriptionRepository{db: db}
}

// Subscribe creates or reactivates the (user, company) binding.
func (r *UserSubscriptionRepository) Subscribe(ctx context.Context, userID int64, code values.EDRPOU) error {
	query := `
		INSERT INTO user_subscriptions (id, user_id, edrpou, is_active, created_at)
		VALUES ($1, $2, $3, TRUE, NOW())
		ON CONFLICT (user_id, edrpou) DO UPDATE SET is_active = TRUE`

	if _, err := r.db.Exec(ctx, query, uuid.New(), userID, code); err != nil {
		return mapError(err, "user subscription")
	}
	return nil
}

// Unsubscribe deactivates the binding; re-subscribing reactivates it.
func (r *UserSubscriptionRepository) Unsubscribe(ctx context.Context, userID int64, code values.EDRPOU) error {
	_, err := r.db.Exec(ctx,
		`UPDATE user_subscriptions SET is_active = FALSE WHERE user_id = $1 AND edrpou = $2`,
		userID, code)
	if err != nil {
		return mapError(err, "user subscription")
	}
	return nil
}

// UsersForCode lists users actively subscribed to a company.
func (r *UserSubscriptionRepository) UsersForCode(ctx context.Context, code values.EDRPOU) ([]int64, error) {
	rows, err := r.db.Query(ctx,
		`SELECT user_id FROM user_subscriptions WHERE edrpou = $1 AND is_active ORDER BY created_at`,
		code)
	if err != nil {
		return nil, mapError(err, "user subscriptions")
	}
	defer rows.Close()

	var users []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, mapError(err, "user subscription")
		}
		users = append(users, id)
	}
	return users, rows.Err()
}

// CodesForUser lists company codes the user actively follows.
func (r *UserSubscriptionRepository) CodesForUser(ctx context.Context, userID int64) ([]values.EDRPOU, error) {
	rows, err := r.db.Query(ctx,
		`SELECT edrpou FROM user_subscriptions WHERE user_id = $1 AND is_active ORDER BY created_at`,
		userID)
	if err != nil {
		return nil, mapError(err, "user subscriptions")
	}
	defer rows.Close()

	var codes []values.EDRPOU
	for rows.Next() {
		var code values.EDRPOU
		if err := rows.Scan(&code); err != nil {
			return nil, mapError(err, "user subscription")
		}
		codes = append(codes, code)
	}
	return codes, rows.Err()
}
