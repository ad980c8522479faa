// Package roleindex maintains the denormalized index of who has which role,
// on which site, within which network. The index is derived data: the hosting
// platform's per-user attributes stay authoritative, and the store is kept in
// sync by the lifecycle event handlers in this package plus the bulk
// migration tooling.
package roleindex

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/roleindex/roleindex/internal/db/models"
	"github.com/roleindex/roleindex/internal/platform"
)

const (
	// SuperAdminRole is the network-wide role label. Super-admin rows always
	// carry the global site sentinel 0.
	SuperAdminRole = "super-admin"

	// MinUserID is the platform's minimum valid user identifier.
	MinUserID = 1
)

// Store owns the role index table. It is constructed once at startup and
// passed explicitly to the event listener and the query rewriter; there is no
// ambient global instance.
type Store struct {
	db  *gorm.DB
	dir platform.Directory
}

// NewStore creates a role index store.
func NewStore(db *gorm.DB, dir platform.Directory) (*Store, error) {
	if db == nil {
		return nil, ErrDBNil
	}

	return &Store{db: db, dir: dir}, nil
}

// DB exposes the underlying handle for the query rewriter and the CLI status
// command. Callers must not mutate the index through it.
func (s *Store) DB() *gorm.DB {
	return s.db
}

// AddRole inserts a row for the four-tuple unless one already exists. A
// duplicate is a success no-op returning the existing row. Two concurrent
// calls for the same tuple are resolved by the composite unique index: the
// loser of the race re-reads and returns the winner's row.
func (s *Store) AddRole(ctx context.Context, userID uint64, role string, siteID, networkID uint64) (*models.RoleAssignment, error) {
	if userID < MinUserID {
		return nil, ErrInvalidUserID
	}
	if role == "" {
		return nil, ErrRoleEmpty
	}

	existing, err := s.GetRole(ctx, userID, role, siteID, networkID)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	row := &models.RoleAssignment{
		UserID:    userID,
		Role:      role,
		SiteID:    siteID,
		NetworkID: networkID,
	}

	if err = s.db.WithContext(ctx).Create(row).Error; err != nil {
		// Lost the check-then-insert race: the unique index rejected the twin
		// row. Whatever row won is the correct result.
		if winner, getErr := s.GetRole(ctx, userID, role, siteID, networkID); getErr == nil {
			return winner, nil
		}

		return nil, fmt.Errorf("failed to create role assignment: %w", err)
	}

	return row, nil
}

// GetRole performs an exact four-tuple lookup. A miss returns ErrNotFound.
func (s *Store) GetRole(ctx context.Context, userID uint64, role string, siteID, networkID uint64) (*models.RoleAssignment, error) {
	var row models.RoleAssignment

	err := s.db.WithContext(ctx).
		Where("user_id = ? AND role = ? AND site_id = ? AND network_id = ?", userID, role, siteID, networkID).
		First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}

		return nil, fmt.Errorf("failed to look up role assignment: %w", err)
	}

	return &row, nil
}

// RemoveRoles deletes every row matching all set filter fields; unset fields
// are wildcards. Removing nothing is a valid result, not an error.
func (s *Store) RemoveRoles(ctx context.Context, filter Filter) (int64, error) {
	if filter.IsZero() {
		return 0, ErrEmptyFilter
	}

	result := filter.apply(s.db.WithContext(ctx)).Delete(&models.RoleAssignment{})
	if result.Error != nil {
		return 0, fmt.Errorf("failed to remove role assignments: %w", result.Error)
	}

	return result.RowsAffected, nil
}

// DeleteScope removes every row of a scope. It shares RemoveRoles' semantics
// and exists as the named entry point for lifecycle teardown: site deleted,
// network deleted, user deleted everywhere.
func (s *Store) DeleteScope(ctx context.Context, filter Filter) (int64, error) {
	return s.RemoveRoles(ctx, filter)
}

// SyncUserRoles reconciles the index with a fresh snapshot of one user's
// roles at one site: rows not in the snapshot or carrying a stale network id
// are deleted, missing ones are inserted, all inside one transaction. Calling
// it twice with the same snapshot yields the same row set.
func (s *Store) SyncUserRoles(ctx context.Context, userID, siteID, networkID uint64, roles []string) error {
	if userID < MinUserID {
		return ErrInvalidUserID
	}

	roles = dedupe(roles)

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// A row also goes stale when the site changed networks since it was
		// written, so rows carrying another network id are deleted even when
		// their role is still in the snapshot.
		del := tx.Where("user_id = ? AND site_id = ?", userID, siteID)
		if len(roles) > 0 {
			del = del.Where("role NOT IN ? OR network_id <> ?", roles, networkID)
		}
		if err := del.Delete(&models.RoleAssignment{}).Error; err != nil {
			return fmt.Errorf("failed to remove stale role assignments: %w", err)
		}

		for _, role := range roles {
			var count int64
			err := tx.Model(&models.RoleAssignment{}).
				Where("user_id = ? AND role = ? AND site_id = ? AND network_id = ?", userID, role, siteID, networkID).
				Count(&count).Error
			if err != nil {
				return fmt.Errorf("failed to check role assignment: %w", err)
			}
			if count > 0 {
				continue
			}

			row := &models.RoleAssignment{
				UserID:    userID,
				Role:      role,
				SiteID:    siteID,
				NetworkID: networkID,
			}
			if err = tx.Create(row).Error; err != nil {
				return fmt.Errorf("failed to create role assignment: %w", err)
			}
		}

		return nil
	})
	if err != nil {
		return err
	}

	log.Debug().
		Uint64("user_id", userID).
		Uint64("site_id", siteID).
		Strs("roles", roles).
		Msg("synced user roles")

	return nil
}

// SyncSuperAdmins replaces a network's super-admin rows with one row per
// resolved login. Logins that do not resolve to a user are skipped, not
// errored. Last write wins: the previous set is not diffed, it is deleted and
// rewritten inside one transaction so a reader never observes the empty
// mid-state.
func (s *Store) SyncSuperAdmins(ctx context.Context, networkID uint64, logins []string) error {
	userIDs := make([]uint64, 0, len(logins))

	for _, login := range logins {
		userID, err := s.dir.UserIDByLogin(ctx, login)
		if err != nil {
			if errors.Is(err, platform.ErrUserNotFound) {
				log.Debug().Str("login", login).Uint64("network_id", networkID).
					Msg("skipping unresolvable super-admin login")
				continue
			}

			return fmt.Errorf("failed to resolve login %q: %w", login, err)
		}
		userIDs = append(userIDs, userID)
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Where("network_id = ? AND role = ?", networkID, SuperAdminRole).
			Delete(&models.RoleAssignment{}).Error
		if err != nil {
			return fmt.Errorf("failed to clear super-admin rows: %w", err)
		}

		for _, userID := range userIDs {
			row := &models.RoleAssignment{
				UserID:    userID,
				Role:      SuperAdminRole,
				SiteID:    0,
				NetworkID: networkID,
			}
			if err = tx.Create(row).Error; err != nil {
				return fmt.Errorf("failed to create super-admin row: %w", err)
			}
		}

		return nil
	})
}

// MoveSite reassigns every row of a site to a new network. A same-network
// move is a no-op. The rewrite is one bulk UPDATE so concurrent readers never
// observe a mix of old and new network ids for the site.
func (s *Store) MoveSite(ctx context.Context, siteID, oldNetworkID, newNetworkID uint64) error {
	if oldNetworkID == newNetworkID {
		return nil
	}

	result := s.db.WithContext(ctx).Model(&models.RoleAssignment{}).
		Where("site_id = ?", siteID).
		Update("network_id", newNetworkID)
	if result.Error != nil {
		return fmt.Errorf("failed to move site rows: %w", result.Error)
	}

	log.Debug().
		Uint64("site_id", siteID).
		Uint64("old_network_id", oldNetworkID).
		Uint64("new_network_id", newNetworkID).
		Int64("rows", result.RowsAffected).
		Msg("moved site role assignments")

	return nil
}

// dedupe drops repeated role labels preserving first-seen order.
func dedupe(roles []string) []string {
	seen := make(map[string]struct{}, len(roles))
	out := make([]string, 0, len(roles))
	for _, role := range roles {
		if _, ok := seen[role]; ok {
			continue
		}
		seen[role] = struct{}{}
		out = append(out, role)
	}

	return out
}
