package query

import (
	"context"
	"errors"
	"fmt"

	"github.com/roleindex/roleindex/internal/db/controller/marker"
	"github.com/roleindex/roleindex/internal/db/models"
)

// ErrNotMigrated is returned when a count is requested for a network whose
// bulk migration has not completed.
var ErrNotMigrated = errors.New("network has not been migrated")

// RoleCounts is the per-role breakdown of one site's users.
type RoleCounts struct {
	// TotalUsers counts distinct users holding at least one role at the
	// site.
	TotalUsers int64

	// Roles maps each role label to its distinct user count. A user with
	// several roles counts once per role.
	Roles map[string]int64
}

// CountUsers tallies a site's users per role from the index alone, replacing
// the platform's full scan over per-user attributes. The site's network must
// have finished its bulk migration.
func (r *Rewriter) CountUsers(ctx context.Context, siteID uint64) (*RoleCounts, error) {
	networkID, err := r.dir.NetworkID(ctx, siteID)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve network of site %d: %w", siteID, err)
	}

	db := r.db.WithContext(ctx)

	complete, err := marker.MigrationComplete(db, networkID)
	if err != nil {
		return nil, fmt.Errorf("failed to read migration marker: %w", err)
	}
	if !complete {
		return nil, fmt.Errorf("%w: network %d", ErrNotMigrated, networkID)
	}

	counts := &RoleCounts{Roles: make(map[string]int64)}

	err = db.Model(&models.RoleAssignment{}).
		Where("site_id = ?", siteID).
		Distinct("user_id").
		Count(&counts.TotalUsers).Error
	if err != nil {
		return nil, fmt.Errorf("failed to count users: %w", err)
	}

	rows := []struct {
		Role  string
		Users int64
	}{}
	err = db.Model(&models.RoleAssignment{}).
		Select("role, COUNT(DISTINCT user_id) AS users").
		Where("site_id = ?", siteID).
		Group("role").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to count roles: %w", err)
	}

	for _, row := range rows {
		counts.Roles[row.Role] = row.Users
	}

	return counts, nil
}
