package journals

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	acctshared "github.com/ledgerbook/ledgerbook/internal/accounting/shared"
	"github.com/ledgerbook/ledgerbook/internal/shared"
)

// ValidateEntry enforces the side rules of a single line: no negative
// amounts, and exactly one side strictly positive.
func ValidateEntry(in EntryInput) error {
	if in.Debit.IsNegative() || in.Credit.IsNegative() {
		return acctshared.ErrNonPositiveAmount
	}
	if in.Debit.IsPositive() == in.Credit.IsPositive() {
		return acctshared.ErrInvalidEntrySide
	}
	if !acctshared.HasCents(in.Debit) || !acctshared.HasCents(in.Credit) {
		return shared.NewValidationError("amount", "must have at most two decimal places")
	}
	if !acctshared.InRange(in.Debit) || !acctshared.InRange(in.Credit) {
		return shared.NewValidationError("amount", "must be less than 10^16")
	}
	return nil
}

// CheckBalance fails with *UnbalancedError when the sides differ.
func CheckBalance(debit, credit decimal.Decimal) error {
	if !debit.Equal(credit) {
		return &acctshared.UnbalancedError{Debit: debit, Credit: credit}
	}
	return nil
}

// ValidatePostable checks the entries of a transaction about to be posted.
func ValidatePostable(entries []Entry) error {
	if len(entries) < 2 {
		return acctshared.ErrTooFewLines
	}
	debit, credit := Totals(entries)
	return CheckBalance(debit, credit)
}

// ValidateLines checks a complete set of lines before PostBalanced writes them.
func ValidateLines(lines []EntryInput) error {
	if len(lines) < 2 {
		return acctshared.ErrTooFewLines
	}
	var debit, credit decimal.Decimal
	for i, line := range lines {
		if err := ValidateEntry(line); err != nil {
			return fmt.Errorf("line %d: %w", i+1, err)
		}
		debit = debit.Add(line.Debit)
		credit = credit.Add(line.Credit)
	}
	return CheckBalance(debit, credit)
}

func checkAccount(a AccountRef) error {
	if !a.IsActive || !a.AcceptsPostings {
		return fmt.Errorf("%w: %s", acctshared.ErrInvalidAccount, a.Code)
	}
	return nil
}

func checkPeriod(p PeriodRef, date time.Time) error {
	if !p.Open {
		return fmt.Errorf("%w: %s", acctshared.ErrPeriodClosed, p.Name)
	}
	d := acctshared.DateOnly(date)
	if d.Before(acctshared.DateOnly(p.StartDate)) || d.After(acctshared.DateOnly(p.EndDate)) {
		return fmt.Errorf("%w: %s is outside %s", acctshared.ErrDateOutOfRange, d.Format(acctshared.DateLayout), p.Name)
	}
	return nil
}
