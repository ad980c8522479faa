// Package migrate backfills the role index from the hosting platform's
// authoritative user records. A full pass walks every user, mirrors their
// per-site roles into the index, and records the migration-complete marker
// per network so the query rewriter starts serving that network from the
// index.
package migrate

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/roleindex/roleindex/internal/db/controller/marker"
	"github.com/roleindex/roleindex/internal/platform"
	"github.com/roleindex/roleindex/internal/roleindex"
)

// DefaultProgressEvery is the progress log interval in users.
const DefaultProgressEvery = 100

// Migrator drives bulk index backfills.
type Migrator struct {
	store         *roleindex.Store
	dir           platform.Directory
	progressEvery int
}

// NewMigrator creates a migrator. A non-positive progressEvery falls back to
// the default interval.
func NewMigrator(store *roleindex.Store, dir platform.Directory, progressEvery int) (*Migrator, error) {
	if store == nil {
		return nil, roleindex.ErrDBNil
	}
	if progressEvery <= 0 {
		progressEvery = DefaultProgressEvery
	}

	return &Migrator{store: store, dir: dir, progressEvery: progressEvery}, nil
}

// Report sums up one bulk pass. A failed item never aborts the pass; its
// error is collected and the walk continues.
type Report struct {
	// Total is the number of items visited.
	Total int

	// Synced is the number of items mirrored successfully.
	Synced int

	// Failed is the number of items that errored.
	Failed int

	// Errors holds one message per failed item.
	Errors []string
}

// Users walks every user and mirrors their per-site roles into the index.
// When the pass ends, each network untouched by failures gets its
// migration-complete marker, switching the query rewriter on for it.
func (m *Migrator) Users(ctx context.Context) (*Report, error) {
	userIDs, err := m.dir.UserIDs(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}

	report := &Report{}

	// A failure that cannot be pinned on one network blocks every marker.
	failedNetworks := make(map[uint64]struct{})
	blockAll := false

	for i, userID := range userIDs {
		report.Total++

		attributedBefore := len(failedNetworks)
		if err = m.syncUser(ctx, userID, failedNetworks); err != nil {
			report.Failed++
			report.Errors = append(report.Errors, err.Error())
			log.Warn().Err(err).Uint64("user_id", userID).Msg("failed to migrate user")
			if len(failedNetworks) == attributedBefore {
				blockAll = true
			}
		} else {
			report.Synced++
		}

		if (i+1)%m.progressEvery == 0 {
			log.Info().
				Int("done", i+1).
				Int("total", len(userIDs)).
				Msg("user migration progress")
		}
	}

	if err = m.markNetworks(ctx, failedNetworks, blockAll); err != nil {
		return report, err
	}

	log.Info().
		Int("total", report.Total).
		Int("synced", report.Synced).
		Int("failed", report.Failed).
		Msg("user migration finished")

	return report, nil
}

// syncUser mirrors one user's roles on every site they belong to. On error
// the affected network is recorded so its marker is withheld.
func (m *Migrator) syncUser(ctx context.Context, userID uint64, failedNetworks map[uint64]struct{}) error {
	siteIDs, err := m.dir.SiteIDs(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to list sites of user %d: %w", userID, err)
	}

	for _, siteID := range siteIDs {
		networkID, err := m.dir.NetworkID(ctx, siteID)
		if err != nil {
			return fmt.Errorf("failed to resolve network of site %d: %w", siteID, err)
		}

		roles, err := m.dir.RolesAt(ctx, userID, siteID)
		if err != nil {
			failedNetworks[networkID] = struct{}{}

			return fmt.Errorf("failed to read roles of user %d at site %d: %w", userID, siteID, err)
		}

		if err = m.store.SyncUserRoles(ctx, userID, siteID, networkID, roles); err != nil {
			failedNetworks[networkID] = struct{}{}

			return fmt.Errorf("failed to sync user %d at site %d: %w", userID, siteID, err)
		}
	}

	return nil
}

// markNetworks records the migration-complete marker for every network the
// pass finished cleanly.
func (m *Migrator) markNetworks(ctx context.Context, failedNetworks map[uint64]struct{}, blockAll bool) error {
	if blockAll {
		log.Warn().Msg("withholding all migration markers after unattributed failures")

		return nil
	}

	networkIDs, err := m.dir.NetworkIDs(ctx)
	if err != nil {
		return fmt.Errorf("failed to list networks: %w", err)
	}

	for _, networkID := range networkIDs {
		if _, failed := failedNetworks[networkID]; failed {
			log.Warn().Uint64("network_id", networkID).
				Msg("withholding migration marker for failed network")
			continue
		}

		if err = marker.SetMigrationComplete(m.store.DB().WithContext(ctx), networkID); err != nil {
			return fmt.Errorf("failed to mark network %d migrated: %w", networkID, err)
		}
	}

	return nil
}

// SuperAdmins mirrors every network's super-admin list into the index.
func (m *Migrator) SuperAdmins(ctx context.Context) (*Report, error) {
	networkIDs, err := m.dir.NetworkIDs(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list networks: %w", err)
	}

	report := &Report{}

	for _, networkID := range networkIDs {
		report.Total++

		logins, err := m.dir.SuperAdminLogins(ctx, networkID)
		if err == nil {
			err = m.store.SyncSuperAdmins(ctx, networkID, logins)
		}
		if err != nil {
			report.Failed++
			report.Errors = append(report.Errors, fmt.Sprintf("network %d: %s", networkID, err))
			log.Warn().Err(err).Uint64("network_id", networkID).Msg("failed to migrate super-admins")
			continue
		}

		report.Synced++
	}

	log.Info().
		Int("total", report.Total).
		Int("synced", report.Synced).
		Int("failed", report.Failed).
		Msg("super-admin migration finished")

	return report, nil
}
