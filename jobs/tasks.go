package jobs

import (
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskLedgerIntegrity checks the trial balance of open periods.
	TaskLedgerIntegrity = "ledger:integrity"
	// TaskInvoicesOverdue moves past due invoices to OVERDUE.
	TaskInvoicesOverdue = "invoices:overdue"
)

// Nightly schedules, evaluated in UTC.
const (
	IntegrityCron = "0 2 * * *"
	OverdueCron   = "30 0 * * *"
)

// IntegrityPayload limits the check to one period when PeriodID is set.
type IntegrityPayload struct {
	PeriodID int64 `json:"period_id,omitempty"`
}

// OverduePayload carries the reference date; empty means today.
type OverduePayload struct {
	AsOf string `json:"as_of,omitempty"`
}

// NewIntegrityTask constructs a ledger integrity task.
func NewIntegrityTask(payload IntegrityPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskLedgerIntegrity, data, asynq.MaxRetry(3), asynq.Timeout(5*time.Minute)), nil
}

// NewOverdueTask constructs an overdue marking task.
func NewOverdueTask(payload OverduePayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskInvoicesOverdue, data, asynq.MaxRetry(3), asynq.Timeout(time.Minute)), nil
}

// DefaultCron returns the nightly schedule of both jobs.
func DefaultCron() ([]CronRegistration, error) {
	integrity, err := NewIntegrityTask(IntegrityPayload{})
	if err != nil {
		return nil, err
	}
	overdue, err := NewOverdueTask(OverduePayload{})
	if err != nil {
		return nil, err
	}
	return []CronRegistration{
		{Spec: IntegrityCron, Task: integrity, Options: []asynq.Option{asynq.Queue(QueueDefault)}},
		{Spec: OverdueCron, Task: overdue, Options: []asynq.Option{asynq.Queue(QueueDefault)}},
	}, nil
}
