package cmd

import (
	"fmt"

	"github.com/aussiebroadwan/taskd/internal/taskd/app"
	"github.com/aussiebroadwan/taskd/internal/taskd/cache"
	"github.com/spf13/cobra"
)

func newCacheCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect and manage the Redis caches",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "clear",
		Short: "Drop every cached task list page; the token blacklist is kept",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := loadConfig(cmd)

			client, err := app.OpenCache(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer client.Close()

			n, err := cache.NewQueryCache(client, cfg.QueryCacheTTL).Clear(cmd.Context())
			if err != nil {
				return fmt.Errorf("clear query cache: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "removed %d cached pages\n", n)
			return nil
		},
	})
	return cmd
}
