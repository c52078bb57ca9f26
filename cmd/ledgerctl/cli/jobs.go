package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/hibiken/asynq"
	"github.com/spf13/cobra"

	"github.com/ledgerbook/ledgerbook/jobs"
)

// JobsCLI wraps manual management helpers for Asynq jobs.
type JobsCLI struct {
	client    *jobs.Client
	inspector *asynq.Inspector
}

// NewJobsCLI initialises the CLI helpers using the provided Redis address.
func NewJobsCLI(redisAddr string) *JobsCLI {
	opts := asynq.RedisClientOpt{Addr: redisAddr}
	return &JobsCLI{client: jobs.NewClient(opts), inspector: asynq.NewInspector(opts)}
}

// Close releases underlying resources.
func (c *JobsCLI) Close() error {
	var errs []error
	if c.inspector != nil {
		errs = append(errs, c.inspector.Close())
	}
	if c.client != nil {
		errs = append(errs, c.client.Close())
	}
	return errors.Join(errs...)
}

// Trigger enqueues a supported job by name.
func (c *JobsCLI) Trigger(ctx context.Context, name string, periodID int64, asOf string) (*asynq.TaskInfo, error) {
	if c == nil || c.client == nil {
		return nil, errors.New("jobs cli: client not configured")
	}
	switch name {
	case jobs.TaskLedgerIntegrity, jobs.TaskInvoicesOverdue:
	default:
		return nil, fmt.Errorf("jobs cli: unsupported job %s", name)
	}
	return c.client.Trigger(ctx, name, periodID, asOf)
}

// InspectQueue reports the metrics of the default queue.
func (c *JobsCLI) InspectQueue() (jobs.QueueStats, error) {
	if c == nil || c.inspector == nil {
		return jobs.QueueStats{}, errors.New("jobs cli: inspector not configured")
	}
	return jobs.Stats(c.inspector)
}

func newJobsCommand(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "jobs",
		Short: "Trigger and inspect background jobs",
	}

	var (
		periodID int64
		asOf     string
	)
	trigger := &cobra.Command{
		Use:       "trigger <" + jobs.TaskLedgerIntegrity + "|" + jobs.TaskInvoicesOverdue + ">",
		Short:     "Enqueue a job for the worker",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{jobs.TaskLedgerIntegrity, jobs.TaskInvoicesOverdue},
		RunE: func(cmd *cobra.Command, args []string) error {
			c := NewJobsCLI(e.cfg.RedisAddr)
			defer c.Close()
			info, err := c.Trigger(cmd.Context(), args[0], periodID, asOf)
			if err != nil {
				return err
			}
			fmt.Fprintf(e.out, "enqueued %s as %s on %s\n", info.Type, info.ID, info.Queue)
			return nil
		},
	}
	trigger.Flags().Int64Var(&periodID, "period", 0, "period id for "+jobs.TaskLedgerIntegrity)
	trigger.Flags().StringVar(&asOf, "as-of", "", "date for "+jobs.TaskInvoicesOverdue+" (YYYY-MM-DD)")

	stats := &cobra.Command{
		Use:   "stats",
		Short: "Print queue counters as JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c := NewJobsCLI(e.cfg.RedisAddr)
			defer c.Close()
			s, err := c.InspectQueue()
			if err != nil {
				return err
			}
			enc := json.NewEncoder(e.out)
			enc.SetIndent("", "  ")
			return enc.Encode(s)
		},
	}

	cmd.AddCommand(trigger, stats)
	return cmd
}
