package roleindex

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/roleindex/roleindex/internal/db/controller/marker"
	"github.com/roleindex/roleindex/internal/db/models"
)

// SchemaVersion is the current on-disk layout version, recorded in the
// markers table so redundant schema upgrades are skipped.
const SchemaVersion = "1.0.0"

// SchemaResult reports what CreateSchema did.
type SchemaResult string

const (
	// SchemaExists means the version marker already matched and nothing was done.
	SchemaExists SchemaResult = "exists"
	// SchemaCreated means the table was created or upgraded.
	SchemaCreated SchemaResult = "created"
)

// CreateSchema ensures the role index table exists at the current version.
// It is re-entrant and safe to call on every process start: when the persisted
// version marker already matches it returns SchemaExists without touching the
// table.
func (s *Store) CreateSchema(ctx context.Context) (SchemaResult, error) {
	db := s.db.WithContext(ctx)

	// The markers table has to exist before the version check can read it.
	if err := db.AutoMigrate(&models.Marker{}); err != nil {
		return "", fmt.Errorf("failed to migrate markers table: %w", err)
	}

	version, err := marker.SchemaVersion(db)
	if err != nil {
		return "", fmt.Errorf("failed to read schema version: %w", err)
	}
	if version == SchemaVersion {
		return SchemaExists, nil
	}

	if err = db.AutoMigrate(&models.RoleAssignment{}); err != nil {
		return "", fmt.Errorf("failed to migrate role index table: %w", err)
	}

	if err = marker.SetSchemaVersion(db, SchemaVersion); err != nil {
		return "", fmt.Errorf("failed to record schema version: %w", err)
	}

	log.Info().Str("version", SchemaVersion).Msg("role index schema created")

	return SchemaCreated, nil
}

// DropSchema tears down the role index table and clears the schema version
// and every migration-complete marker.
func (s *Store) DropSchema(ctx context.Context) error {
	db := s.db.WithContext(ctx)

	if db.Migrator().HasTable(&models.RoleAssignment{}) {
		if err := db.Migrator().DropTable(&models.RoleAssignment{}); err != nil {
			return fmt.Errorf("failed to drop role index table: %w", err)
		}
	}

	if !db.Migrator().HasTable(&models.Marker{}) {
		return nil
	}

	if err := marker.ClearSchemaVersion(db); err != nil {
		return fmt.Errorf("failed to clear schema version: %w", err)
	}

	if err := marker.ClearMigrationMarkers(db); err != nil {
		return fmt.Errorf("failed to clear migration markers: %w", err)
	}

	return nil
}
