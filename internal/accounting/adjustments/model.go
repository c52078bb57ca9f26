package adjustments

import (
	"fmt"
	"time"

	"github.com/ledgerbook/ledgerbook/internal/accounting/journals"
)

// Type classifies the adjusting entry.
type Type string

const (
	TypeDepreciation Type = "DEPRECIATION"
	TypeProvision    Type = "PROVISION"
	TypeAccrual      Type = "ACCRUAL"
	TypeOther        Type = "OTHER"
)

// Types lists the adjustment types for forms.
var Types = []Type{TypeDepreciation, TypeProvision, TypeAccrual, TypeOther}

// Status of an adjustment.
type Status string

const (
	StatusActive   Status = "ACTIVE"
	StatusAnnulled Status = "ANNULLED"
)

// Adjustment is a numbered adjusting entry carried by a posted transaction.
type Adjustment struct {
	ID            int64                 `json:"id"`
	Number        string                `json:"number"`
	PeriodID      int64                 `json:"period_id"`
	Date          time.Time             `json:"date"`
	Type          Type                  `json:"type"`
	Reason        string                `json:"reason"`
	Status        Status                `json:"status"`
	TransactionID int64                 `json:"transaction_id"`
	CreatedBy     string                `json:"created_by"`
	AnnulledAt    *time.Time            `json:"annulled_at,omitempty"`
	AnnulReason   string                `json:"annul_reason,omitempty"`
	CreatedAt     time.Time             `json:"created_at"`
	Transaction   *journals.Transaction `json:"transaction,omitempty"`
}

// FormatNumber renders the sequence value as PAJ-0001.
func FormatNumber(seq int64) string {
	return fmt.Sprintf("PAJ-%04d", seq)
}

// SourceRef is the idempotency key of the carrying transaction.
func SourceRef(number string) string {
	return "ADJUSTMENT:" + number
}

// Input creates an adjustment.
type Input struct {
	PeriodID int64                 `json:"period_id" validate:"required,gt=0"`
	Date     string                `json:"date" validate:"required,datetime=2006-01-02"`
	Type     Type                  `json:"type" validate:"required,oneof=DEPRECIATION PROVISION ACCRUAL OTHER"`
	Reason   string                `json:"reason" validate:"required,max=500"`
	Lines    []journals.EntryInput `json:"lines" validate:"required,min=2,dive"`
}

// AnnulInput carries the reason for annulment.
type AnnulInput struct {
	Reason string `json:"reason" validate:"max=500"`
}

// ListFilters narrows adjustment listings.
type ListFilters struct {
	PeriodID *int64
	Type     Type
	Status   Status
}
