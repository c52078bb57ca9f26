package periods

import "time"

// PeriodStatus enumerates valid period states.
type PeriodStatus string

const (
	PeriodStatusOpen   PeriodStatus = "OPEN"
	PeriodStatusClosed PeriodStatus = "CLOSED"
)

// PeriodType describes the length of a period.
type PeriodType string

const (
	PeriodTypeMonthly    PeriodType = "MONTHLY"
	PeriodTypeQuarterly  PeriodType = "QUARTERLY"
	PeriodTypeSemiannual PeriodType = "SEMIANNUAL"
	PeriodTypeAnnual     PeriodType = "ANNUAL"
)

// PeriodTypes lists the accepted types.
var PeriodTypes = []PeriodType{PeriodTypeMonthly, PeriodTypeQuarterly, PeriodTypeSemiannual, PeriodTypeAnnual}

// Period represents a fiscal period window. Both bounds are inclusive.
type Period struct {
	ID        int64        `json:"id"`
	Name      string       `json:"name"`
	Type      PeriodType   `json:"type"`
	StartDate time.Time    `json:"start_date"`
	EndDate   time.Time    `json:"end_date"`
	Status    PeriodStatus `json:"status"`
	ClosedAt  *time.Time   `json:"closed_at,omitempty"`
	ClosedBy  *string      `json:"closed_by,omitempty"`
	CreatedAt time.Time    `json:"created_at"`
	UpdatedAt time.Time    `json:"updated_at"`
}

// IsOpen reports whether postings are still accepted.
func (p Period) IsOpen() bool {
	return p.Status == PeriodStatusOpen
}

// Contains reports whether date falls inside the period.
func (p Period) Contains(date time.Time) bool {
	d := dateOnly(date)
	return !d.Before(dateOnly(p.StartDate)) && !d.After(dateOnly(p.EndDate))
}

func dateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// PeriodInput is the payload for creating a period.
type PeriodInput struct {
	Name      string     `json:"name" validate:"required,max=100"`
	Type      PeriodType `json:"type" validate:"required,oneof=MONTHLY QUARTERLY SEMIANNUAL ANNUAL"`
	StartDate string     `json:"start_date" validate:"required,datetime=2006-01-02"`
	EndDate   string     `json:"end_date" validate:"required,datetime=2006-01-02"`
}

// UpdateInput changes a period. Dates may only move while the period has no
// transactions.
type UpdateInput struct {
	Name      string `json:"name" validate:"required,max=100"`
	StartDate string `json:"start_date" validate:"omitempty,datetime=2006-01-02"`
	EndDate   string `json:"end_date" validate:"omitempty,datetime=2006-01-02"`
}
