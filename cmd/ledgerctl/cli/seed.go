package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/ledgerbook/ledgerbook/internal/seed"
)

func newSeedCommand(e *env) *cobra.Command {
	var (
		year        int
		catalogPath string
	)
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load the starter chart of accounts, mappings and fiscal year",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			catalog, err := loadCatalog(catalogPath)
			if err != nil {
				return err
			}
			services, pool, err := e.services(cmd.Context())
			if err != nil {
				return err
			}
			defer pool.Close()

			seeder := seed.NewSeeder(services.Accounts, services.Periods, services.Mappings, e.logger)
			res, err := seeder.Run(cmd.Context(), catalog, year)
			if err != nil {
				return err
			}
			fmt.Fprintf(e.out, "accounts created=%d skipped=%d mappings=%d\n", res.AccountsCreated, res.AccountsSkipped, res.Mappings)
			if res.Period != nil {
				fmt.Fprintf(e.out, "period %q created\n", res.Period.Name)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&year, "year", time.Now().Year(), "fiscal year of the first period")
	cmd.Flags().StringVar(&catalogPath, "catalog", "", "YAML catalog to load instead of the built-in one")
	return cmd
}

func loadCatalog(path string) (seed.Catalog, error) {
	if path == "" {
		return seed.DefaultCatalog()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return seed.Catalog{}, err
	}
	return seed.ParseCatalog(data)
}
