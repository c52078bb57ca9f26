package db

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ledgerbook/ledgerbook/internal/shared"
)

func TestConcurrencyErrorMapsToConflict(t *testing.T) {
	for _, code := range []string{"40001", "40P01"} {
		raw := fmt.Errorf("journals: post: %w", &pgconn.PgError{Code: code, Message: "could not serialize access due to concurrent update"})
		err := concurrencyError(raw)
		require.ErrorIs(t, err, ErrConcurrentUpdate, code)
		assert.ErrorIs(t, err, shared.ErrConflict, code)
	}

	unique := &pgconn.PgError{Code: "23505", ConstraintName: "uq_accounts_code"}
	assert.Same(t, error(unique), concurrencyError(unique))

	plain := errors.New("boom")
	assert.Equal(t, plain, concurrencyError(plain))
	assert.NoError(t, concurrencyError(nil))
}

func TestConstraintHelpers(t *testing.T) {
	err := fmt.Errorf("insert: %w", &pgconn.PgError{Code: "23505", ConstraintName: "uq_accounts_code"})
	name, ok := UniqueViolation(err)
	assert.True(t, ok)
	assert.Equal(t, "uq_accounts_code", name)

	_, ok = CheckViolation(err)
	assert.False(t, ok)
}
