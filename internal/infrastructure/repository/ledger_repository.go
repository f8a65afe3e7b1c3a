package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pravoguard/court-monitor/internal/domain/courtcase"
	"github.com/pravoguard/court-monitor/internal/domain/values"
)

// LedgerRepository is the notification idempotency store. The dedup key is
// globally unique; a duplicate insert is an idempotent no-op so overlapping
// cycles cannot double-send.
type LedgerRepository struct {
	db *pgxpool.Pool
}

func NewLedgerRepository(db *pgxpool.Pool) *LedgerRepository {
	return &LedgerRepository{db: db}
}

// WasSent reports whether the key has already resulted in a dispatched
// message. Checked before dispatch.
func (r *LedgerRepository) WasSent(ctx context.Context, key values.DedupKey) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM notification_ledger WHERE dedup_key = $1)`,
		key.String()).Scan(&exists)
	if err != nil {
		return false, mapError(err, "ledger entry")
	}
	return exists, nil
}

// Record writes the ledger entry after a successful send. Two overlapping
// cycles may race past WasSent with the same key; ON CONFLICT DO NOTHING
// resolves that race as success rather than an error.
func (r *LedgerRepository) Record(ctx context.Context, entry courtcase.LedgerEntry) error {
	query := `
		INSERT INTO notification_ledger
			(id, dedup_key, case_number, threat_tier, chat_id, message_id, payload_hash, sent_at)
		VALUES ($1, $2, $3, $4, $5, NULLIF($6, ''), NULLIF($7, ''), $8)
		ON CONFLICT (dedup_key) DO NOTHING`

	_, err := r.db.Exec(ctx, query,
		entry.ID,
		entry.DedupKey.String(),
		entry.CaseNumber,
		string(entry.ThreatTier),
		entry.ChatID,
		entry.MessageID,
		entry.PayloadHash,
		entry.SentAt,
	)
	if err != nil {
		return mapError(err, "ledger entry")
	}
	return nil
}

// Recent returns the newest ledger entries, most recent first.
func (r *LedgerRepository) Recent(ctx context.Context, limit int) ([]courtcase.LedgerEntry, error) {
	query := `
		SELECT id, dedup_key, case_number, threat_tier, chat_id,
			COALESCE(message_id, ''), COALESCE(payload_hash, ''), sent_at
		FROM notification_ledger ORDER BY sent_at DESC LIMIT $1`

	rows, err := r.db.Query(ctx, query, limit)
	if err != nil {
		return nil, mapError(err, "ledger entries")
	}
	defer rows.Close()

	var entries []courtcase.LedgerEntry
	for rows.Next() {
		var e courtcase.LedgerEntry
		var key, tier string
		if err := rows.Scan(&e.ID, &key, &e.CaseNumber, &tier, &e.ChatID,
			&e.MessageID, &e.PayloadHash, &e.SentAt); err != nil {
			return nil, mapError(err, "ledger entry")
		}
		e.ThreatTier = courtcase.ThreatTier(tier)
		e.DedupKey = values.RawDedupKey(key)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
