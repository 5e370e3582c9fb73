// Package repository provides PostgreSQL persistence for profiles, projects,
// rewards and contributions.
package repository

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"
)

var (
	// ErrNotFound is returned when no row matches the lookup.
	ErrNotFound = errors.New("not found")
	// ErrConflict is returned when a write violates a uniqueness rule or the
	// row is no longer in the state the write expects.
	ErrConflict = errors.New("conflict")
	// ErrSoldOut is returned when a reward has no units left or is inactive.
	ErrSoldOut = errors.New("reward is not available")
)

const uniqueViolation = pq.ErrorCode("23505")

// wrap annotates err with op and maps driver errors to the package sentinels.
func wrap(op string, err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s: %w", op, ErrNotFound)
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
		return fmt.Errorf("%s: %w", op, ErrConflict)
	}
	return fmt.Errorf("%s: %w", op, err)
}

// scanner is satisfied by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}
