package cli

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/ledgerbook/ledgerbook/internal/accounting/mappings"
	"github.com/ledgerbook/ledgerbook/internal/view"
	"github.com/ledgerbook/ledgerbook/jobs"
)

// ErrLedgerUnbalanced makes the check command exit non-zero.
var ErrLedgerUnbalanced = errors.New("ledgerctl: trial balance mismatch")

// ErrMappingsIncomplete is returned when a required account mapping is unusable.
var ErrMappingsIncomplete = errors.New("ledgerctl: account mappings incomplete")

func newCheckCommand(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Run ledger consistency checks",
	}

	var periodID int64
	tb := &cobra.Command{
		Use:   "trial-balance",
		Short: "Verify debits equal credits for open periods or one period",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			services, pool, err := e.services(cmd.Context())
			if err != nil {
				return err
			}
			defer pool.Close()
			job := jobs.NewGLIntegrityJob(services.Periods, services.Reports, e.logger, nil)
			res, err := job.Run(cmd.Context(), periodID)
			if err != nil {
				return err
			}
			if periodID != 0 && res.Checked == 0 {
				return fmt.Errorf("ledgerctl: period %d not found", periodID)
			}
			return printIntegrity(e.out, res)
		},
	}
	tb.Flags().Int64Var(&periodID, "period", 0, "period id (default: every open period)")

	mappingsCmd := &cobra.Command{
		Use:   "mappings",
		Short: "Verify every required integration key maps to a postable account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			services, pool, err := e.services(cmd.Context())
			if err != nil {
				return err
			}
			defer pool.Close()
			report, err := services.Mappings.Validate(cmd.Context())
			if err != nil {
				return err
			}
			return printMappings(e.out, report)
		},
	}

	cmd.AddCommand(tb, mappingsCmd)
	return cmd
}

func printMappings(out io.Writer, report mappings.Report) error {
	for _, issue := range report.Issues {
		fmt.Fprintf(out, "%s/%s: %s\n", issue.Module, issue.Key, issue.Reason)
	}
	if !report.OK {
		return ErrMappingsIncomplete
	}
	fmt.Fprintln(out, "ok")
	return nil
}

func printIntegrity(out io.Writer, res jobs.IntegrityResult) error {
	fmt.Fprintf(out, "periods checked: %d\n", res.Checked)
	for _, m := range res.Mismatches {
		fmt.Fprintf(out, "period %d: debit %s credit %s delta %s\n",
			m.PeriodID, view.Money(m.DebitTotal), view.Money(m.CreditTotal), view.Money(m.Delta()))
	}
	if len(res.Mismatches) > 0 {
		return ErrLedgerUnbalanced
	}
	fmt.Fprintln(out, "ok")
	return nil
}
