package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/NordCoder/Vidhub/internal/domain/user"
)

const (
	pgUniqueViolation = "23505"
	pgInvalidTextRepr = "22P02" // malformed uuid
)

// mapErr translates driver errors into the user store vocabulary.
func mapErr(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return user.ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgUniqueViolation:
			return user.ErrAlreadyExists
		case pgInvalidTextRepr:
			return user.ErrNotFound
		}
		return fmt.Errorf("%s: %w", op, err)
	}
	if isTransient(err) {
		return fmt.Errorf("%s: %w: %v", op, user.ErrUnavailable, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}

func isTransient(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || pgconn.Timeout(err) {
		return true
	}
	var connErr *pgconn.ConnectError
	if errors.As(err, &connErr) {
		return true
	}
	return pgconn.SafeToRetry(err)
}
