package apperror

import (
	"context"
	"database/sql/driver"
	"errors"
	"fmt"
	"net"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

const pgUniqueViolation = "23505"

// FromStore translates a persistence error into the application taxonomy.
// what names the entity for NotFound and Conflict messages.
func FromStore(err error, what string) error {
	if err == nil {
		return nil
	}

	var appErr *AppError
	if errors.As(err, &appErr) {
		return err
	}

	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return NotFound(fmt.Sprintf("%s not found", what))
	case errors.Is(err, gorm.ErrDuplicatedKey), isUniqueViolation(err):
		return Wrap(ErrConflict, CodeConflict, fmt.Sprintf("%s already exists", what), err)
	case IsTransient(err):
		return Unavailable(err)
	}
	return Internal(fmt.Errorf("%s: %w", what, err))
}

// IsTransient reports whether err is a timeout or a lost connection.
func IsTransient(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return true
	}
	if errors.Is(err, driver.ErrBadConn) || errors.Is(err, ErrServiceUnavailable) {
		return true
	}
	if pgconn.Timeout(err) || pgconn.SafeToRetry(err) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}

// IsConnectionLost reports whether err shows the database connection itself
// failed, as opposed to a slow query running out of time.
func IsConnectionLost(err error) bool {
	if errors.Is(err, driver.ErrBadConn) || pgconn.SafeToRetry(err) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && !netErr.Timeout()
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation
}
