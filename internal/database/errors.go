package database

import (
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/otzivi/authcore/internal/models"
)

// MapPostgresError folds driver errors into the models sentinel set. A
// missing row becomes a plain ErrNotFound so auth paths can treat it as a
// normal negative result rather than a distinguishable failure.
func MapPostgresError(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, pgx.ErrNoRows) {
		return models.ErrNotFound
	}

	if pgErr, ok := err.(*pgconn.PgError); ok {
		switch pgErr.Code {
		case "23505": // unique_violation
			return models.ErrValidation
		case "23503", "23502": // foreign_key_violation, not_null_violation
			return models.ErrValidation
		}
	}

	return err
}
