package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pravoguard/court-monitor/internal/domain/values"
)

// KnownCaseRepository stores the known-cases index: one provenance row per
// (case number, source task). The index itself is the distinct set of case
// numbers across rows.
type KnownCaseRepository struct {
	db *pgxpool.Pool
}

func NewKnownCaseRepository(db *pgxpool.Pool) *KnownCaseRepository {
	return &KnownCaseRepository{db: db}
}

// Upsert stores one provenance row; an existing (number, task) pair is
// refreshed in place so repeated full resyncs stay idempotent.
func (r *KnownCaseRepository) Upsert(ctx context.Context, number values.CaseNumber, taskID, taskName, projectID, projectName string) error {
	query := `
		INSERT INTO known_cases (id, case_number, task_id, task_name, project_id, project_name, synced_at)
		VALUES ($1, $2, $3, NULLIF($4, ''), NULLIF($5, ''), NULLIF($6, ''), NOW())
		ON CONFLICT (case_number, task_id) DO UPDATE SET
			task_name = EXCLUDED.task_name,
			project_id = EXCLUDED.project_id,
			project_name = EXCLUDED.project_name,
			synced_at = NOW()`

	if _, err := r.db.Exec(ctx, query, uuid.New(), number, taskID, taskName, projectID, projectName); err != nil {
		return mapError(err, "known case")
	}
	return nil
}

// Contains reports membership of the distinct case-number set.
func (r *KnownCaseRepository) Contains(ctx context.Context, number values.CaseNumber) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM known_cases WHERE case_number = $1)`, number).Scan(&exists)
	if err != nil {
		return false, mapError(err, "known case")
	}
	return exists, nil
}

// All returns the distinct set of canonical case numbers.
func (r *KnownCaseRepository) All(ctx context.Context) (map[string]struct{}, error) {
	rows, err := r.db.Query(ctx, `SELECT DISTINCT case_number FROM known_cases`)
	if err != nil {
		return nil, mapError(err, "known cases")
	}
	defer rows.Close()

	set := make(map[string]struct{})
	for rows.Next() {
		var number string
		if err := rows.Scan(&number); err != nil {
			return nil, mapError(err, "known case")
		}
		set[number] = struct{}{}
	}
	return set, rows.Err()
}
