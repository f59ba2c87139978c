package repository

import (
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = pgx.ErrNoRows

// ErrAlreadyExists is returned when an insert hits a uniqueness guarantee;
// the existing row is authoritative.
var ErrAlreadyExists = errors.New("record already exists")

// IsNotFound reports whether err means the record does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}

// isUniqueViolation reports whether err is a unique-constraint conflict.
// The unique indexes on links, reply_syncs and closure_notifications close
// the look-up-before-insert race window: a concurrent insert surfaces here
// and callers treat it as "already exists, fetch and return".
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
