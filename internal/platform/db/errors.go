package db

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/ledgerbook/ledgerbook/internal/shared"
)

const (
	codeUniqueViolation    = "23505"
	codeForeignKey         = "23503"
	codeExclusionViolation = "23P01"
	codeCheckViolation     = "23514"
	codeSerialization      = "40001"
	codeDeadlock           = "40P01"
)

// ErrConcurrentUpdate reports a transaction that lost a race with another
// request touching the same rows.
var ErrConcurrentUpdate = shared.NewDomainError(shared.ErrConflict, "ConcurrentUpdate",
	"the record was changed by another request, retry")

// concurrencyError maps serialization failures and deadlocks to
// ErrConcurrentUpdate and returns any other error unchanged.
func concurrencyError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && (pgErr.Code == codeSerialization || pgErr.Code == codeDeadlock) {
		return fmt.Errorf("%w: %s", ErrConcurrentUpdate, pgErr.Message)
	}
	return err
}

// IsNoRows reports whether err is pgx.ErrNoRows.
func IsNoRows(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}

// UniqueViolation returns the violated constraint name when err is a unique violation.
func UniqueViolation(err error) (string, bool) {
	return constraint(err, codeUniqueViolation)
}

// ExclusionViolation returns the violated constraint name when err is an exclusion violation.
func ExclusionViolation(err error) (string, bool) {
	return constraint(err, codeExclusionViolation)
}

// ForeignKeyViolation returns the violated constraint name when err is a foreign key violation.
func ForeignKeyViolation(err error) (string, bool) {
	return constraint(err, codeForeignKey)
}

// CheckViolation returns the violated constraint name when err is a check violation.
func CheckViolation(err error) (string, bool) {
	return constraint(err, codeCheckViolation)
}

func constraint(err error, code string) (string, bool) {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == code {
		return pgErr.ConstraintName, true
	}
	return "", false
}
