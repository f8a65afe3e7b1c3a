package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pravoguard/court-monitor/internal/domain/courtcase"
	"github.com/pravoguard/court-monitor/internal/domain/values"
)

// CaseRepository persists discovered court cases.
type CaseRepository struct {
	db *pgxpool.Pool
}

func NewCaseRepository(db *pgxpool.Pool) *CaseRepository {
	return &CaseRepository{db: db}
}

// Upsert stores a discovered case. Cases are keyed by the canonical case
// number; re-discovery refreshes the row and unions the matched codes, but
// never downgrades a notified status back to new.
func (r *CaseRepository) Upsert(ctx context.Context, c courtcase.Case) error {
	query := `
		INSERT INTO court_cases
			(id, upstream_id, case_number, court_name, category, threat_tier,
			 status, source_link, claim_amount, matched_codes, fetched_at)
		VALUES ($1, NULLIF($2, ''), $3, NULLIF($4, ''), NULLIF($5, ''), $6,
			$7, NULLIF($8, ''), $9, $10, $11)
		ON CONFLICT (case_number) DO UPDATE SET
			upstream_id = COALESCE(EXCLUDED.upstream_id, court_cases.upstream_id),
			court_name = COALESCE(EXCLUDED.court_name, court_cases.court_name),
			category = COALESCE(EXCLUDED.category, court_cases.category),
			threat_tier = EXCLUDED.threat_tier,
			source_link = COALESCE(EXCLUDED.source_link, court_cases.source_link),
			claim_amount = EXCLUDED.claim_amount,
			matched_codes = (
				SELECT ARRAY(SELECT DISTINCT unnest(court_cases.matched_codes || EXCLUDED.matched_codes))
			),
			fetched_at = EXCLUDED.fetched_at`

	_, err := r.db.Exec(ctx, query,
		c.ID,
		c.UpstreamID,
		c.CaseNumber,
		c.CourtName,
		c.Category,
		string(c.ThreatTier),
		string(c.Status),
		c.SourceLink,
		c.ClaimAmount,
		c.MatchedCodes,
		c.FetchedAt,
	)
	if err != nil {
		return mapError(err, "court case")
	}
	return nil
}

// MarkNotified flags a case after at least one notification was dispatched.
func (r *CaseRepository) MarkNotified(ctx context.Context, number values.CaseNumber) error {
	_, err := r.db.Exec(ctx,
		`UPDATE court_cases SET status = $1, notified_at = NOW() WHERE case_number = $2`,
		string(courtcase.StatusNotified), number)
	if err != nil {
		return mapError(err, "court case")
	}
	return nil
}

// ByThreatTier lists recent cases of one tier, newest first.
func (r *CaseRepository) ByThreatTier(ctx context.Context, tier courtcase.ThreatTier, limit int) ([]courtcase.Case, error) {
	query := `
		SELECT id, COALESCE(upstream_id, ''), case_number, COALESCE(court_name, ''),
			COALESCE(category, ''), threat_tier, status, COALESCE(source_link, ''),
			claim_amount, matched_codes, fetched_at, notified_at
		FROM court_cases WHERE threat_tier = $1
		ORDER BY fetched_at DESC LIMIT $2`

	return r.queryCases(ctx, query, string(tier), limit)
}

// Recent lists the newest discovered cases.
func (r *CaseRepository) Recent(ctx context.Context, limit int) ([]courtcase.Case, error) {
	query := `
		SELECT id, COALESCE(upstream_id, ''), case_number, COALESCE(court_name, ''),
			COALESCE(category, ''), threat_tier, status, COALESCE(source_link, ''),
			claim_amount, matched_codes, fetched_at, notified_at
		FROM court_cases ORDER BY fetched_at DESC LIMIT $1`

	return r.queryCases(ctx, query, limit)
}

func (r *CaseRepository) queryCases(ctx context.Context, query string, args ...any) ([]courtcase.Case, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, mapError(err, "court cases")
	}
	defer rows.Close()

	var cases []courtcase.Case
	for rows.Next() {
		var c courtcase.Case
		var tier, status string
		if err := rows.Scan(&c.ID, &c.UpstreamID, &c.CaseNumber, &c.CourtName,
			&c.Category, &tier, &status, &c.SourceLink,
			&c.ClaimAmount, &c.MatchedCodes, &c.FetchedAt, &c.NotifiedAt); err != nil {
			return nil, mapError(err, "court case")
		}
		c.ThreatTier = courtcase.ThreatTier(tier)
		c.Status = courtcase.CaseStatus(status)
		cases = append(cases, c)
	}
	return cases, rows.Err()
}
