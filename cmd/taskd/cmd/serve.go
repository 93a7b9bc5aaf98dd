package cmd

import (
	"github.com/aussiebroadwan/taskd/internal/taskd/app"
	"github.com/spf13/cobra"
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			application, err := app.New(cmd.Context(), loadConfig(cmd))
			if err != nil {
				return err
			}
			return application.Run()
		},
	}
	cmd.Flags().Int("port", 8080, "listen port (env PORT)")
	return cmd
}
