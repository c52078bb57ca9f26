package reports

import (
	"encoding/json"
	"time"

	"github.com/ledgerbook/ledgerbook/internal/accounting/periods"
	acctshared "github.com/ledgerbook/ledgerbook/internal/accounting/shared"
)

// Kind names a financial statement.
type Kind string

const (
	KindTrialBalance    Kind = "TRIAL_BALANCE"
	KindBalanceSheet    Kind = "BALANCE_SHEET"
	KindIncomeStatement Kind = "INCOME_STATEMENT"
)

// Snapshot is a stored copy of a statement as it was generated.
type Snapshot struct {
	ID        int64           `json:"id"`
	PeriodID  int64           `json:"period_id"`
	Kind      Kind            `json:"kind"`
	Payload   json.RawMessage `json:"payload"`
	Balanced  bool            `json:"balanced"`
	CreatedBy string          `json:"created_by"`
	CreatedAt time.Time       `json:"created_at"`
}

// SnapshotInput requests a new snapshot.
type SnapshotInput struct {
	PeriodID int64 `json:"period_id" validate:"required,gt=0"`
	Kind     Kind  `json:"kind" validate:"required,oneof=TRIAL_BALANCE BALANCE_SHEET INCOME_STATEMENT"`
}

// TrialBalanceViewModel holds page data for the trial balance report.
type TrialBalanceViewModel struct {
	Period    periods.Period
	Periods   []periods.Period
	Report    TrialBalance
	Mismatch  *acctshared.TrialBalanceMismatchError
	Snapshots []Snapshot
}

// IncomeStatementViewModel holds page data for the income statement.
type IncomeStatementViewModel struct {
	Period    periods.Period
	Periods   []periods.Period
	Report    IncomeStatement
	Snapshots []Snapshot
}

// BalanceSheetViewModel contains data for the balance sheet report.
type BalanceSheetViewModel struct {
	Period    periods.Period
	Periods   []periods.Period
	Report    BalanceSheet
	Snapshots []Snapshot
}

// SnapshotKind names the statement a snapshot form on the page stores.
func (TrialBalanceViewModel) SnapshotKind() Kind { return KindTrialBalance }

// SnapshotKind names the statement a snapshot form on the page stores.
func (IncomeStatementViewModel) SnapshotKind() Kind { return KindIncomeStatement }

// SnapshotKind names the statement a snapshot form on the page stores.
func (BalanceSheetViewModel) SnapshotKind() Kind { return KindBalanceSheet }
