package repository

import (
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	apperrors "github.com/pravoguard/court-monitor/internal/domain/errors"
)

// mapError translates pgx errors into the domain error taxonomy.
func mapError(err error, resource string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return apperrors.NewNotFoundError(resource)
	}
	if isUniqueViolation(err) {
		return apperrors.NewConflictError(resource + " already exists").WithCause(err)
	}
	return apperrors.NewInternalError("database error").WithCause(err)
}

// isUniqueViolation checks for a unique constraint violation (23505).
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
