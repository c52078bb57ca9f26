package shared

import (
	"fmt"

	"github.com/shopspring/decimal"

	appshared "github.com/ledgerbook/ledgerbook/internal/shared"
)

func notFound(msg string) *appshared.DomainError {
	return appshared.NewDomainError(appshared.ErrNotFound, "NotFound", msg)
}

var (
	// ErrAccountNotFound indicates a missing account.
	ErrAccountNotFound = notFound("accounting: account not found")
	// ErrPeriodNotFound indicates a missing period.
	ErrPeriodNotFound = notFound("accounting: period not found")
	// ErrTransactionNotFound indicates a missing transaction.
	ErrTransactionNotFound = notFound("accounting: transaction not found")
	// ErrEntryNotFound indicates a missing journal entry.
	ErrEntryNotFound = notFound("accounting: journal entry not found")
	// ErrOpeningBalanceNotFound indicates a missing opening balance.
	ErrOpeningBalanceNotFound = notFound("accounting: opening balance not found")
	// ErrAdjustmentNotFound indicates a missing adjustment.
	ErrAdjustmentNotFound = notFound("accounting: adjustment not found")
	// ErrSnapshotNotFound indicates a missing statement snapshot.
	ErrSnapshotNotFound = notFound("accounting: statement snapshot not found")
	// ErrMappingNotFound indicates account mapping missing.
	ErrMappingNotFound = notFound("accounting: account mapping not found")
)

var (
	// ErrDuplicateCode indicates the account code is taken.
	ErrDuplicateCode = appshared.NewDomainError(appshared.ErrConflict, "DuplicateCode", "accounting: account code already exists")
	// ErrAccountInUse indicates the account is referenced and cannot change state.
	ErrAccountInUse = appshared.NewDomainError(appshared.ErrConflict, "AccountInUse", "accounting: account is in use")
	// ErrTransactionLocked indicates the transaction is no longer a draft.
	ErrTransactionLocked = appshared.NewDomainError(appshared.ErrConflict, "TransactionLocked", "accounting: transaction is not a draft")
	// ErrPeriodOverlap indicates the period range intersects another period.
	ErrPeriodOverlap = appshared.NewDomainError(appshared.ErrConflict, "PeriodOverlap", "accounting: period overlaps an existing period")
	// ErrSourceAlreadyLinked indicates idempotency conflict.
	ErrSourceAlreadyLinked = appshared.NewDomainError(appshared.ErrConflict, "SourceAlreadyLinked", "accounting: source already linked")
	// ErrDuplicateOpeningBalance indicates an active opening balance already exists.
	ErrDuplicateOpeningBalance = appshared.NewDomainError(appshared.ErrConflict, "DuplicateOpeningBalance", "accounting: account already has an opening balance in this period")
	// ErrInvalidStatus indicates action can't proceed.
	ErrInvalidStatus = appshared.NewDomainError(appshared.ErrConflict, "InvalidStatus", "accounting: invalid status transition")
)

var (
	// ErrCyclicParent indicates the new parent is the account or one of its descendants.
	ErrCyclicParent = appshared.NewDomainError(appshared.ErrUnprocessable, "CyclicParent", "accounting: parent would create a cycle")
	// ErrInvalidParentState indicates the parent is inactive or accepts postings.
	ErrInvalidParentState = appshared.NewDomainError(appshared.ErrUnprocessable, "InvalidParentState", "accounting: parent must be active and must not accept postings")
	// ErrInvalidEntrySide indicates both or neither side carry an amount.
	ErrInvalidEntrySide = appshared.NewDomainError(appshared.ErrUnprocessable, "InvalidEntrySide", "accounting: entry must have exactly one of debit or credit")
	// ErrNonPositiveAmount indicates a negative amount.
	ErrNonPositiveAmount = appshared.NewDomainError(appshared.ErrUnprocessable, "NonPositiveAmount", "accounting: amounts must be positive")
	// ErrInvalidAccount indicates the account cannot receive postings.
	ErrInvalidAccount = appshared.NewDomainError(appshared.ErrUnprocessable, "InvalidAccount", "accounting: account missing, inactive or not posting-enabled")
	// ErrTooFewLines indicates less than two lines.
	ErrTooFewLines = appshared.NewDomainError(appshared.ErrUnprocessable, "TooFewEntries", "accounting: transaction requires at least two entries")
	// ErrPeriodClosed indicates missing or locked period.
	ErrPeriodClosed = appshared.NewDomainError(appshared.ErrUnprocessable, "PeriodClosed", "accounting: period is closed")
	// ErrDateOutOfRange indicates a date outside its period.
	ErrDateOutOfRange = appshared.NewDomainError(appshared.ErrUnprocessable, "DateOutOfRange", "accounting: date outside period")
	// ErrNegativeOpening indicates a negative opening on a debit-natured account.
	ErrNegativeOpening = appshared.NewDomainError(appshared.ErrUnprocessable, "NegativeOpeningBalance", "accounting: asset and expense openings cannot be negative")
	// ErrNoOpenPeriod indicates no open period covers a date.
	ErrNoOpenPeriod = appshared.NewDomainError(appshared.ErrUnprocessable, "PeriodClosed", "accounting: no open period covers the date")

	// ErrUnbalanced indicates debit != credit. Returned errors are *UnbalancedError.
	ErrUnbalanced = appshared.NewDomainError(appshared.ErrUnprocessable, "UnbalancedTransaction", "accounting: journal lines must balance")
	// ErrTrialBalanceMismatch indicates trial balance totals differ. Returned errors are *TrialBalanceMismatchError.
	ErrTrialBalanceMismatch = appshared.NewDomainError(appshared.ErrUnprocessable, "TrialBalanceMismatch", "accounting: trial balance totals differ")
)

// UnbalancedError reports the totals of a transaction that failed to post.
type UnbalancedError struct {
	Debit  decimal.Decimal
	Credit decimal.Decimal
}

// Delta is the absolute difference between the two sides.
func (e *UnbalancedError) Delta() decimal.Decimal {
	return e.Debit.Sub(e.Credit).Abs()
}

func (e *UnbalancedError) Error() string {
	return fmt.Sprintf("accounting: transaction is unbalanced: debit %s, credit %s, delta %s",
		e.Debit.StringFixed(2), e.Credit.StringFixed(2), e.Delta().StringFixed(2))
}

// Unwrap lets errors.Is match ErrUnbalanced and its class.
func (e *UnbalancedError) Unwrap() error {
	return ErrUnbalanced
}

// Code returns the machine readable error code.
func (e *UnbalancedError) Code() string {
	return ErrUnbalanced.Code()
}

// ProblemMeta exposes the totals to API clients.
func (e *UnbalancedError) ProblemMeta() map[string]any {
	return map[string]any{
		"debit":  e.Debit.StringFixed(2),
		"credit": e.Credit.StringFixed(2),
		"delta":  e.Delta().StringFixed(2),
	}
}

// TrialBalanceMismatchError reports unequal trial balance columns.
type TrialBalanceMismatchError struct {
	PeriodID    int64
	DebitTotal  decimal.Decimal
	CreditTotal decimal.Decimal
}

// Delta is the absolute difference between the columns.
func (e *TrialBalanceMismatchError) Delta() decimal.Decimal {
	return e.DebitTotal.Sub(e.CreditTotal).Abs()
}

func (e *TrialBalanceMismatchError) Error() string {
	return fmt.Sprintf("accounting: trial balance of period %d does not balance: debit %s, credit %s, delta %s",
		e.PeriodID, e.DebitTotal.StringFixed(2), e.CreditTotal.StringFixed(2), e.Delta().StringFixed(2))
}

// Unwrap lets errors.Is match ErrTrialBalanceMismatch and its class.
func (e *TrialBalanceMismatchError) Unwrap() error {
	return ErrTrialBalanceMismatch
}

// Code returns the machine readable error code.
func (e *TrialBalanceMismatchError) Code() string {
	return ErrTrialBalanceMismatch.Code()
}

// ProblemMeta exposes the totals to API clients.
func (e *TrialBalanceMismatchError) ProblemMeta() map[string]any {
	return map[string]any{
		"period_id":    e.PeriodID,
		"debit_total":  e.DebitTotal.StringFixed(2),
		"credit_total": e.CreditTotal.StringFixed(2),
		"delta":        e.Delta().StringFixed(2),
	}
}
