package app

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roleindex/roleindex/internal/bootstrap"
	"github.com/roleindex/roleindex/internal/migrate"
	"github.com/roleindex/roleindex/internal/platform"
)

// ErrNoDirectory is returned by migration commands when the embedding
// platform has not injected its Directory.
var ErrNoDirectory = errors.New("no platform directory registered, call app.SetDirectory first")

// directory is the platform adapter the migration commands read from. The
// binary is meant to be embedded by the hosting platform, which registers its
// own implementation before Execute.
var directory platform.Directory

// SetDirectory registers the platform adapter used by the migration commands.
func SetDirectory(dir platform.Directory) {
	directory = dir
}

func init() { //nolint: gochecknoinits
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(migrateSuperAdminsCmd)
}

// printReport writes a bulk pass summary to the command's stdout.
func printReport(cmd *cobra.Command, report *migrate.Report) {
	cmd.Printf("total: %d  synced: %d  failed: %d\n", report.Total, report.Synced, report.Failed)
	for _, msg := range report.Errors {
		cmd.Printf("  error: %s\n", msg)
	}
}

var migrateCmd = &cobra.Command{
	Use:    "migrate",
	Short:  "Backfill the role index from every user's current roles",
	PreRun: loadConfig,
	RunE: func(cmd *cobra.Command, _ []string) error {
		if directory == nil {
			return ErrNoDirectory
		}

		app, err := bootstrap.New(cmd.Context(), &cfg, directory)
		if err != nil {
			return err
		}

		report, err := app.Migrator.Users(cmd.Context())
		if err != nil {
			return err
		}

		printReport(cmd, report)
		if report.Failed > 0 {
			return fmt.Errorf("%d of %d users failed to migrate", report.Failed, report.Total)
		}

		return nil
	},
}

var migrateSuperAdminsCmd = &cobra.Command{
	Use:    "migrate-superadmins",
	Short:  "Backfill the super-admin rows of every network",
	PreRun: loadConfig,
	RunE: func(cmd *cobra.Command, _ []string) error {
		if directory == nil {
			return ErrNoDirectory
		}

		app, err := bootstrap.New(cmd.Context(), &cfg, directory)
		if err != nil {
			return err
		}

		report, err := app.Migrator.SuperAdmins(cmd.Context())
		if err != nil {
			return err
		}

		printReport(cmd, report)
		if report.Failed > 0 {
			return fmt.Errorf("%d of %d networks failed to migrate", report.Failed, report.Total)
		}

		return nil
	},
}
