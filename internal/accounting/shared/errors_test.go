package shared_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	acctshared "github.com/ledgerbook/ledgerbook/internal/accounting/shared"
	"github.com/ledgerbook/ledgerbook/internal/platform/httpx"
	"github.com/ledgerbook/ledgerbook/internal/shared"
)

func TestUnbalancedErrorCarriesDelta(t *testing.T) {
	err := fmt.Errorf("post transaction 3: %w", &acctshared.UnbalancedError{
		Debit:  decimal.NewFromInt(100),
		Credit: decimal.NewFromInt(90),
	})

	assert.True(t, errors.Is(err, acctshared.ErrUnbalanced))
	assert.True(t, errors.Is(err, shared.ErrUnprocessable))

	var unbalanced *acctshared.UnbalancedError
	assert.True(t, errors.As(err, &unbalanced))
	assert.Equal(t, "10", unbalanced.Delta().String())

	problem := httpx.ProblemFor(err)
	assert.Equal(t, 422, problem.Status)
	assert.Equal(t, "UnbalancedTransaction", problem.Code)
	assert.Equal(t, "10.00", problem.Meta["delta"])
}

func TestTrialBalanceMismatchProblem(t *testing.T) {
	err := &acctshared.TrialBalanceMismatchError{PeriodID: 2, DebitTotal: decimal.RequireFromString("50.10"), CreditTotal: decimal.RequireFromString("50")}
	problem := httpx.ProblemFor(err)
	assert.Equal(t, 422, problem.Status)
	assert.Equal(t, "TrialBalanceMismatch", problem.Code)
	assert.Equal(t, "0.10", problem.Meta["delta"])
}

func TestErrorClasses(t *testing.T) {
	assert.ErrorIs(t, acctshared.ErrDuplicateCode, shared.ErrConflict)
	assert.ErrorIs(t, acctshared.ErrTransactionLocked, shared.ErrConflict)
	assert.ErrorIs(t, acctshared.ErrPeriodClosed, shared.ErrUnprocessable)
	assert.ErrorIs(t, acctshared.ErrAccountNotFound, shared.ErrNotFound)
}
