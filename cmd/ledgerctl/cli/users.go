package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ledgerbook/ledgerbook/internal/auth"
)

func newUserCommand(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage dashboard users",
	}

	var in auth.NewUserInput
	create := &cobra.Command{
		Use:   "create",
		Short: "Create a user that can sign in",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			services, pool, err := e.services(cmd.Context())
			if err != nil {
				return err
			}
			defer pool.Close()
			user, err := services.Auth.CreateUser(cmd.Context(), in)
			if err != nil {
				return err
			}
			fmt.Fprintf(e.out, "user %d created for %s\n", user.ID, user.Email)
			return nil
		},
	}
	create.Flags().StringVar(&in.Email, "email", "", "login email")
	create.Flags().StringVar(&in.Name, "name", "", "display name")
	create.Flags().StringVar(&in.Password, "password", "", "initial password")
	_ = create.MarkFlagRequired("email")
	_ = create.MarkFlagRequired("password")

	cmd.AddCommand(create)
	return cmd
}
