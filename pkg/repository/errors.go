package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"

	"library-backend/pkg/apperror"
)

// SQLSTATE codes the repository classifies.
const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
	pgCheckViolation      = "23514"
	pgNotNullViolation    = "23502"
)

// mapError turns a driver error into an *apperror.Error. The original error
// stays reachable through Unwrap.
func mapError(table string, err error) error {
	if err == nil {
		return nil
	}

	var appErr *apperror.Error
	if errors.As(err, &appErr) {
		return err
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgUniqueViolation:
			return apperror.Wrap(apperror.KindConflict, "DUPLICATE_ENTRY",
				fmt.Sprintf("%s: duplicate value violates %s", table, pgErr.ConstraintName), err)
		case pgForeignKeyViolation:
			return apperror.Wrap(apperror.KindNotFound, "REFERENCE_NOT_FOUND",
				fmt.Sprintf("%s: referenced row does not exist (%s)", table, pgErr.ConstraintName), err)
		case pgCheckViolation:
			return apperror.Wrap(apperror.KindBadRequest, "CHECK_VIOLATION",
				fmt.Sprintf("%s: value violates %s", table, pgErr.ConstraintName), err)
		case pgNotNullViolation:
			return apperror.Wrap(apperror.KindBadRequest, "NOT_NULL_VIOLATION",
				fmt.Sprintf("%s: column %s must not be null", table, pgErr.ColumnName), err)
		}
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return apperror.Internal(fmt.Sprintf("%s: query interrupted", table), err)
	}

	return apperror.Internal(fmt.Sprintf("%s: query failed", table), err)
}
