package cmd

import (
	"fmt"
	"strings"

	"github.com/aussiebroadwan/taskd/internal/taskd/app"
	"github.com/aussiebroadwan/taskd/internal/taskd/domain"
	"github.com/aussiebroadwan/taskd/internal/taskd/service"
	"github.com/spf13/cobra"
)

func newAccountsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "accounts",
		Short: "Operator tasks on registered accounts",
	}

	promote := &cobra.Command{
		Use:   "promote <email>",
		Short: "Grant a role to an existing account (ADMIN by default)",
		Long: `promote changes the role of an account that has already signed up.
It talks to the database directly and is how the first ADMIN is created.
Pass --role USER to demote.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := loadConfig(cmd)
			role, _ := cmd.Flags().GetString("role")

			db, err := app.OpenStore(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer db.Close()

			if err := db.ApplyMigrations(cmd.Context()); err != nil {
				return fmt.Errorf("apply migrations: %w", err)
			}

			accounts := &service.AccountService{Store: db}
			account, err := accounts.SetRole(cmd.Context(), args[0], domain.Role(strings.ToUpper(role)))
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "account %d (%s) is now %s\n", account.ID, account.Email, account.Role)
			return nil
		},
	}
	promote.Flags().String("role", string(domain.RoleAdmin), "role to grant: USER or ADMIN")

	cmd.AddCommand(promote)
	return cmd
}
