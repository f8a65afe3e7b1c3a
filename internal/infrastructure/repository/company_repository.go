package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pravoguard/court-monitor/internal/domain/courtcase"
	"github.com/pravoguard/court-monitor/internal/domain/values"
)

// CompanyRepository persists tracked companies.
type CompanyRepository struct {
	db *pgxpool.Pool
}

func NewCompanyRepository(db *pgxpool.Pool) *CompanyRepository {
	return &CompanyRepository{db: db}
}

// Add registers a company for monitoring. Re-adding a previously deactivated
// company reactivates it in place.
func (r *CompanyRepository) Add(ctx context.Context, code values.EDRPOU, name string, addedBy int64) (*courtcase.TrackedCompany, error) {
	query := `
		INSERT INTO tracked_companies (id, edrpou, company_name, is_active, added_by, created_at, updated_at)
		VALUES ($1, $2, NULLIF($3, ''), TRUE, $4, NOW(), NOW())
		ON CONFLICT (edrpou) DO UPDATE SET
			is_active = TRUE,
			company_name = COALESCE(NULLIF(EXCLUDED.company_name, ''), tracked_companies.company_name),
			updated_at = NOW()
		RETURNING id, edrpou, COALESCE(company_name, ''), is_active, COALESCE(added_by, 0), created_at, updated_at`

	var c courtcase.TrackedCompany
	err := r.db.QueryRow(ctx, query, uuid.New(), code, name, addedBy).Scan(
		&c.ID, &c.Code, &c.Name, &c.Active, &c.AddedBy, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, mapError(err, "tracked company")
	}
	return &c, nil
}

// Get retrieves a company by registry code.
func (r *CompanyRepository) Get(ctx context.Context, code values.EDRPOU) (*courtcase.TrackedCompany, error) {
	query := `
		SELECT id, edrpou, COALESCE(company_name, ''), is_active, COALESCE(added_by, 0), created_at, updated_at
		FROM tracked_companies WHERE edrpou = $1`

	var c courtcase.TrackedCompany
	err := r.db.QueryRow(ctx, query, code).Scan(
		&c.ID, &c.Code, &c.Name, &c.Active, &c.AddedBy, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, mapError(err, "tracked company")
	}
	return &c, nil
}

// Active lists companies currently under monitoring.
func (r *CompanyRepository) Active(ctx context.Context) ([]courtcase.TrackedCompany, error) {
	query := `
		SELECT id, edrpou, COALESCE(company_name, ''), is_active, COALESCE(added_by, 0), created_at, updated_at
		FROM tracked_companies WHERE is_active ORDER BY created_at`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, mapError(err, "tracked companies")
	}
	defer rows.Close()

	var companies []courtcase.TrackedCompany
	for rows.Next() {
		var c courtcase.TrackedCompany
		if err := rows.Scan(&c.ID, &c.Code, &c.Name, &c.Active, &c.AddedBy, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, mapError(err, "tracked company")
		}
		companies = append(companies, c)
	}
	return companies, rows.Err()
}

// Deactivate soft-deletes a company. History is kept for reactivation.
func (r *CompanyRepository) Deactivate(ctx context.Context, code values.EDRPOU) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE tracked_companies SET is_active = FALSE, updated_at = NOW() WHERE edrpou = $1`, code)
	if err != nil {
		return mapError(err, "tracked company")
	}
	if tag.RowsAffected() == 0 {
		return mapError(pgx.ErrNoRows, "tracked company")
	}
	return nil
}

// Activate re-enables monitoring for a previously deactivated company.
func (r *CompanyRepository) Activate(ctx context.Context, code values.EDRPOU) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE tracked_companies SET is_active = TRUE, updated_at = NOW() WHERE edrpou = $1`, code)
	if err != nil {
		return mapError(err, "tracked company")
	}
	if tag.RowsAffected() == 0 {
		return mapError(pgx.ErrNoRows, "tracked company")
	}
	return nil
}
