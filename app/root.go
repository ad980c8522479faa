// Package app implements the main application commands.
package app

import (
	"github.com/spf13/cobra"

	"github.com/roleindex/roleindex/internal/config"
	"github.com/roleindex/roleindex/internal/logger"
)

var rootCmd = &cobra.Command{
	Use:   "roleindex",
	Short: "roleindex maintains a queryable index of user role assignments",
	Long: `roleindex maintains a denormalized index of user role assignments
across the sites and networks of a multisite install, keeps it in sync with
the platform's lifecycle events, and rewrites role-filtered user queries to
run against the index instead of scanning per-user attributes.`,
	Args: cobra.OnlyValidArgs,
}

var (
	configPath string
	cfg        config.Config
	err        error
)

func init() { //nolint: gochecknoinits
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to the configuration directory")
}

// loadConfig reads the configuration and initializes logging. Used as PreRun
// by every command that touches the database.
func loadConfig(_ *cobra.Command, _ []string) {
	if cfg, err = config.ReadConfig(configPath); err != nil {
		panic(err)
	}

	if err = logger.Init(cfg.Log); err != nil {
		panic(err)
	}
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
