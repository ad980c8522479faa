package app

import (
	"fmt"

	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"github.com/roleindex/roleindex/internal/config"
	"github.com/roleindex/roleindex/internal/db/dsn"
	"github.com/roleindex/roleindex/internal/roleindex"
)

func init() { //nolint: gochecknoinits
	rootCmd.AddCommand(createTableCmd)
	rootCmd.AddCommand(dropTableCmd)
}

// openStore opens the configured database without running the full bootstrap,
// for commands that manage the schema itself.
func openStore(cfg *config.Config) (*roleindex.Store, error) {
	dialector, err := dsn.Dialector(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to select database driver: %w", err)
	}

	db, err := gorm.Open(dialector, &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to connect database: %w", err)
	}

	return roleindex.NewStore(db, directory)
}

var createTableCmd = &cobra.Command{
	Use:    "create-table",
	Short:  "Create or upgrade the role index table",
	PreRun: loadConfig,
	RunE: func(cmd *cobra.Command, _ []string) error {
		store, err := openStore(&cfg)
		if err != nil {
			return err
		}

		result, err := store.CreateSchema(cmd.Context())
		if err != nil {
			return err
		}

		cmd.Printf("schema: %s (version %s)\n", result, roleindex.SchemaVersion)

		return nil
	},
}

var dropTableCmd = &cobra.Command{
	Use:    "drop-table",
	Short:  "Drop the role index table and clear its markers",
	PreRun: loadConfig,
	RunE: func(cmd *cobra.Command, _ []string) error {
		store, err := openStore(&cfg)
		if err != nil {
			return err
		}

		if err = store.DropSchema(cmd.Context()); err != nil {
			return err
		}

		cmd.Println("schema dropped")

		return nil
	},
}
