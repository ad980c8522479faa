package app

import (
	"github.com/spf13/cobra"

	"github.com/roleindex/roleindex/internal/db/controller/marker"
	"github.com/roleindex/roleindex/internal/db/models"
)

func init() { //nolint: gochecknoinits
	rootCmd.AddCommand(statusCmd)
}

var statusCmd = &cobra.Command{
	Use:    "status",
	Short:  "Show the schema version, migrated networks and index size",
	PreRun: loadConfig,
	RunE: func(cmd *cobra.Command, _ []string) error {
		store, err := openStore(&cfg)
		if err != nil {
			return err
		}

		db := store.DB().WithContext(cmd.Context())

		if !db.Migrator().HasTable(&models.Marker{}) {
			cmd.Println("schema: not created")

			return nil
		}

		version, err := marker.SchemaVersion(db)
		if err != nil {
			return err
		}
		if version == "" {
			version = "not created"
		}
		cmd.Printf("schema version: %s\n", version)

		if !db.Migrator().HasTable(&models.RoleAssignment{}) {
			return nil
		}

		var count int64
		if err = db.Model(&models.RoleAssignment{}).Count(&count).Error; err != nil {
			return err
		}
		cmd.Printf("role assignments: %d\n", count)

		networkIDs, err := marker.MigratedNetworks(db)
		if err != nil {
			return err
		}
		if len(networkIDs) == 0 {
			cmd.Println("migrated networks: none")

			return nil
		}

		cmd.Printf("migrated networks:")
		for _, networkID := range networkIDs {
			cmd.Printf(" %d", networkID)
		}
		cmd.Println()

		return nil
	},
}
