package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"lectern/internal/domain"
)

// isPgDuplicateError checks if error is a unique constraint violation
func isPgDuplicateError(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		// 23505 = unique_violation
		return pgErr.Code == "23505"
	}
	return false
}

// isPgNoRowsError checks if error is a "no rows" error
func isPgNoRowsError(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}

// isPgTransientError reports failures a retry may fix: dropped connections,
// timeouts, serialization failures, deadlocks and admin shutdowns.
func isPgTransientError(err error) bool {
	if errors.Is(err, context.Canceled) {
		return false
	}
	if pgconn.SafeToRetry(err) || pgconn.Timeout(err) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch {
		case strings.HasPrefix(pgErr.Code, "08"): // connection_exception
			return true
		case pgErr.Code == "40001", pgErr.Code == "40P01": // serialization_failure, deadlock_detected
			return true
		case pgErr.Code == "57P01", pgErr.Code == "57P03": // admin_shutdown, cannot_connect_now
			return true
		}
	}
	return false
}

// wrapError translates a driver error into the domain taxonomy
func wrapError(op, path string, err error) error {
	switch {
	case isPgNoRowsError(err):
		return &domain.NotFoundError{Message: fmt.Sprintf("resource not found: %s", path)}
	case isPgDuplicateError(err):
		return &domain.ConflictError{
			Message:      fmt.Sprintf("a resource already exists at %q", path),
			ResourceType: "resource",
			ResourceID:   path,
		}
	case isPgTransientError(err):
		return &domain.TransientError{Op: op, Err: err}
	default:
		return fmt.Errorf("%s: %w", op, err)
	}
}
