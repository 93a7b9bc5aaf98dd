package cmd

import (
	"os"

	"github.com/aussiebroadwan/taskd/internal/taskd/app"
	"github.com/spf13/cobra"
)

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

// NewRootCmd builds the command tree. Configuration comes from the
// environment; flags given on the command line win.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "taskd",
		Short: "taskd is a task tracking service with JWT sessions",
		Long: `taskd serves a per-account task list behind short-lived access tokens
and rotating refresh tokens, with a Redis-backed token blacklist and query cache.`,
		SilenceUsage: true,
		Version:      app.BuildVersion,
	}

	root.PersistentFlags().String("db-driver", "", "database driver: sqlite or postgres (env DATABASE_DRIVER)")
	root.PersistentFlags().String("db-url", "", "database DSN or sqlite file (env DATABASE_URL)")
	root.PersistentFlags().String("redis-url", "", "redis URL (env REDIS_URL)")

	root.AddCommand(newServeCmd(), newMigrateCmd(), newCacheCmd(), newAccountsCmd())
	return root
}

// loadConfig reads the environment and applies any flags that were set.
func loadConfig(cmd *cobra.Command) app.Config {
	cfg := app.LoadConfig()
	flags := cmd.Flags()

	if flags.Changed("db-driver") {
		cfg.DatabaseDriver, _ = flags.GetString("db-driver")
	}
	if flags.Changed("db-url") {
		cfg.DatabaseURL, _ = flags.GetString("db-url")
	}
	if flags.Changed("redis-url") {
		cfg.RedisURL, _ = flags.GetString("redis-url")
	}
	if flags.Lookup("port") != nil && flags.Changed("port") {
		cfg.Port, _ = flags.GetInt("port")
	}
	return cfg
}
