// Package cli implements ledgerctl, the administration tool for ledgerbook.
package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"github.com/ledgerbook/ledgerbook/internal/app"
	"github.com/ledgerbook/ledgerbook/internal/platform/db"
)

// env carries what subcommands share after configuration is loaded.
type env struct {
	out    io.Writer
	cfg    *app.Config
	logger *slog.Logger
}

// NewRootCommand assembles the ledgerctl command tree writing to out.
func NewRootCommand(out io.Writer) *cobra.Command {
	e := &env{out: out}
	var (
		envFile string
		debug   bool
	)
	root := &cobra.Command{
		Use:           "ledgerctl",
		Short:         "Administer a ledgerbook installation",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if envFile != "" {
				if err := os.Setenv("ENV_FILE", envFile); err != nil {
					return err
				}
			}
			cfg, err := app.LoadConfig()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			e.cfg = cfg
			level := slog.LevelInfo
			if debug {
				level = slog.LevelDebug
			}
			e.logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
			return nil
		},
	}
	root.SetOut(out)
	root.PersistentFlags().StringVar(&envFile, "env-file", "", "dotenv file to load (default .env)")
	root.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")

	root.AddCommand(
		newMigrateCommand(e),
		newSeedCommand(e),
		newUserCommand(e),
		newCheckCommand(e),
		newJobsCommand(e),
	)
	return root
}

// services opens the database and wires the domain services without Redis.
func (e *env) services(ctx context.Context) (*app.Services, *pgxpool.Pool, error) {
	pool, err := db.New(ctx, e.cfg.PGDSN, db.Options{MaxConns: 4})
	if err != nil {
		return nil, nil, err
	}
	return app.NewServices(app.ServiceDeps{Pool: pool, Logger: e.logger}), pool, nil
}
