// Package marker provides CRUD operations for the persisted flags the role
// index keeps next to its table: the schema version marker and the per-network
// migration-complete marker.
package marker

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"gorm.io/gorm"

	"github.com/roleindex/roleindex/internal/db/models"
)

const (
	nameQueryPattern = "name = ?"

	// SchemaVersionName is the marker holding the current schema version string.
	SchemaVersionName = "role_index.db.version"

	// migratedPrefix prefixes the per-network migration-complete markers.
	migratedPrefix = "role_index.migrated."
)

var (
	// ErrMarkerNotFound is returned when a marker is not found.
	ErrMarkerNotFound = errors.New("marker not found")
	// ErrMarkerNameEmpty is returned when attempting to read/write a marker with an empty name.
	ErrMarkerNameEmpty = errors.New("marker name cannot be empty")
	// ErrDBNil is returned when the database connection is nil.
	ErrDBNil = errors.New("database connection is nil")
)

// Get retrieves a marker by its name.
func Get(db *gorm.DB, name string) (*models.Marker, error) {
	if db == nil {
		return nil, ErrDBNil
	}
	if name == "" {
		return nil, ErrMarkerNameEmpty
	}

	var marker models.Marker
	result := db.Where(nameQueryPattern, name).First(&marker)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrMarkerNotFound
		}
		return nil, result.Error
	}

	return &marker, nil
}

// Set creates or updates a marker by name (upsert operation).
func Set(db *gorm.DB, name string, value []byte) (*models.Marker, error) {
	if db == nil {
		return nil, ErrDBNil
	}
	if name == "" {
		return nil, ErrMarkerNameEmpty
	}

	var marker models.Marker
	result := db.Where(nameQueryPattern, name).First(&marker)

	if errors.Is(result.Error, gorm.ErrRecordNotFound) {
		marker = models.Marker{Name: name, Value: value}
		if result = db.Create(&marker); result.Error != nil {
			return nil, result.Error
		}

		return &marker, nil
	}
	if result.Error != nil {
		return nil, result.Error
	}

	marker.Value = value
	result = db.Save(&marker)
	if result.Error != nil {
		return nil, result.Error
	}

	return &marker, nil
}

// Delete deletes a marker by name. Deleting a marker that does not exist
// returns ErrMarkerNotFound.
func Delete(db *gorm.DB, name string) error {
	if db == nil {
		return ErrDBNil
	}
	if name == "" {
		return ErrMarkerNameEmpty
	}

	result := db.Where(nameQueryPattern, name).Delete(&models.Marker{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrMarkerNotFound
	}

	return nil
}

// SchemaVersion returns the persisted schema version, or "" when the schema
// has never been created.
func SchemaVersion(db *gorm.DB) (string, error) {
	m, err := Get(db, SchemaVersionName)
	if errors.Is(err, ErrMarkerNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}

	return string(m.Value), nil
}

// SetSchemaVersion persists the schema version string.
func SetSchemaVersion(db *gorm.DB, version string) error {
	_, err := Set(db, SchemaVersionName, []byte(version))
	return err
}

// ClearSchemaVersion removes the schema version marker so the next schema
// check recreates the table. A missing marker is not an error here.
func ClearSchemaVersion(db *gorm.DB) error {
	err := Delete(db, SchemaVersionName)
	if errors.Is(err, ErrMarkerNotFound) {
		return nil
	}

	return err
}

// migratedName builds the migration-complete marker name for a network.
func migratedName(networkID uint64) string {
	return fmt.Sprintf("%s%d", migratedPrefix, networkID)
}

// MigrationComplete reports whether the role index has been fully backfilled
// for the given network. The query rewriter reads this as its activation gate.
func MigrationComplete(db *gorm.DB, networkID uint64) (bool, error) {
	m, err := Get(db, migratedName(networkID))
	if errors.Is(err, ErrMarkerNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	return string(m.Value) == "1", nil
}

// SetMigrationComplete records that the bulk migration finished backfilling
// every row for the given network.
func SetMigrationComplete(db *gorm.DB, networkID uint64) error {
	_, err := Set(db, migratedName(networkID), []byte("1"))
	return err
}

// MigratedNetworks lists the network ids carrying a migration-complete
// marker, in ascending order.
func MigratedNetworks(db *gorm.DB) ([]uint64, error) {
	if db == nil {
		return nil, ErrDBNil
	}

	var markers []models.Marker
	err := db.Where("name LIKE ?", migratedPrefix+"%").Order("name").Find(&markers).Error
	if err != nil {
		return nil, err
	}

	networkIDs := make([]uint64, 0, len(markers))
	for _, m := range markers {
		if string(m.Value) != "1" {
			continue
		}

		networkID, err := strconv.ParseUint(strings.TrimPrefix(m.Name, migratedPrefix), 10, 64)
		if err != nil {
			continue
		}
		networkIDs = append(networkIDs, networkID)
	}
	sort.Slice(networkIDs, func(i, j int) bool { return networkIDs[i] < networkIDs[j] })

	return networkIDs, nil
}

// ClearMigrationMarkers removes every migration-complete marker. Used when the
// role index table is dropped.
func ClearMigrationMarkers(db *gorm.DB) error {
	if db == nil {
		return ErrDBNil
	}

	result := db.Where("name LIKE ?", migratedPrefix+"%").Delete(&models.Marker{})

	return result.Error
}
