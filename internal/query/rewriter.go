// Package query rewrites user searches against the role index. A search that
// filters users by role or by site scope is turned into a Plan of SQL
// fragments over the index table, replacing the hosting platform's per-user
// attribute scans. Rewriting is gated per network: until a network's bulk
// migration has completed, its searches pass through untouched.
package query

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/roleindex/roleindex/internal/db/controller/marker"
	"github.com/roleindex/roleindex/internal/db/models"
	"github.com/roleindex/roleindex/internal/platform"
	"github.com/roleindex/roleindex/internal/roleindex"
)

// DefaultUsersTable is the platform's user table joined against the index.
const DefaultUsersTable = "users"

// Rewriter plans role index lookups for user searches.
type Rewriter struct {
	db         *gorm.DB
	dir        platform.Directory
	usersTable string
}

// NewRewriter creates a rewriter over the store's database handle. The
// usersTable argument names the platform's user table; pass "" for the
// default.
func NewRewriter(store *roleindex.Store, dir platform.Directory, usersTable string) (*Rewriter, error) {
	if store == nil {
		return nil, roleindex.ErrDBNil
	}
	if usersTable == "" {
		usersTable = DefaultUsersTable
	}

	return &Rewriter{db: store.DB(), dir: dir, usersTable: usersTable}, nil
}

// UserSearch describes the role and scope constraints of one user search.
// Zero is a valid site and network identifier, so scope filters carry
// explicit flags instead of treating zero as unset.
type UserSearch struct {
	// SiteID constrains the search to one site when SiteScoped is set.
	SiteID     uint64
	SiteScoped bool

	// NetworkID constrains the search to one network when NetworkScoped is
	// set.
	NetworkID     uint64
	NetworkScoped bool

	// RoleAll lists roles the user must hold all of.
	RoleAll []string

	// RoleIn lists roles of which the user must hold at least one.
	RoleIn []string

	// RoleNotIn lists roles the user must hold none of, within the search's
	// scope.
	RoleNotIn []string

	// JoinedUserRoles signals that the caller's query already joins the
	// index table, so the plan must not join it again.
	JoinedUserRoles bool
}

// hasRoleFilter reports whether the search constrains roles at all.
func (s UserSearch) hasRoleFilter() bool {
	return len(s.RoleAll) > 0 || len(s.RoleIn) > 0 || len(s.RoleNotIn) > 0
}

// Rewritable reports whether the search carries any constraint the index can
// answer.
func (s UserSearch) Rewritable() bool {
	return s.hasRoleFilter() || s.SiteScoped || s.NetworkScoped
}

// Rewrite plans the search. The returned plan is a pass-through when the
// search has no constraint the index can answer, or when any network the
// search touches has not finished its bulk migration yet.
func (r *Rewriter) Rewrite(ctx context.Context, search UserSearch) (*Plan, error) {
	if !search.Rewritable() {
		return &Plan{PassThrough: true}, nil
	}

	migrated, err := r.migrated(ctx, search)
	if err != nil {
		return nil, err
	}
	if !migrated {
		return &Plan{PassThrough: true}, nil
	}

	return r.plan(search), nil
}

// migrated reports whether every network the search touches carries the
// migration-complete marker. An unscoped search touches all networks.
func (r *Rewriter) migrated(ctx context.Context, search UserSearch) (bool, error) {
	var networkIDs []uint64

	switch {
	case search.NetworkScoped:
		networkIDs = []uint64{search.NetworkID}
	case search.SiteScoped:
		networkID, err := r.dir.NetworkID(ctx, search.SiteID)
		if err != nil {
			return false, fmt.Errorf("failed to resolve network of site %d: %w", search.SiteID, err)
		}
		networkIDs = []uint64{networkID}
	default:
		var err error
		networkIDs, err = r.dir.NetworkIDs(ctx)
		if err != nil {
			return false, fmt.Errorf("failed to list networks: %w", err)
		}
	}

	for _, networkID := range networkIDs {
		complete, err := marker.MigrationComplete(r.db.WithContext(ctx), networkID)
		if err != nil {
			return false, fmt.Errorf("failed to read migration marker: %w", err)
		}
		if !complete {
			return false, nil
		}
	}

	return true, nil
}

// plan builds the SQL fragments for a search whose gates have passed.
func (r *Rewriter) plan(search UserSearch) *Plan {
	table := (&models.RoleAssignment{}).TableName()
	plan := &Plan{}

	// Only positive constraints need the join. A pure exclusion search must
	// not join, or users holding no role at all would vanish from it.
	needJoin := search.SiteScoped || search.NetworkScoped ||
		len(search.RoleAll) > 0 || len(search.RoleIn) > 0

	if needJoin && !search.JoinedUserRoles {
		plan.Join = fmt.Sprintf("JOIN %s ON %s.user_id = %s.id", table, table, r.usersTable)
	}

	if search.SiteScoped {
		plan.where(fmt.Sprintf("%s.site_id = ?", table), search.SiteID)
	}
	if search.NetworkScoped {
		plan.where(fmt.Sprintf("%s.network_id = ?", table), search.NetworkID)
	}

	if len(search.RoleIn) > 0 {
		plan.where(fmt.Sprintf("%s.role IN ?", table), search.RoleIn)
	}

	switch len(search.RoleAll) {
	case 0:
	case 1:
		plan.where(fmt.Sprintf("%s.role = ?", table), search.RoleAll[0])
	default:
		// A user holds all n roles exactly when n distinct matching rows
		// exist for them in the scope.
		plan.where(fmt.Sprintf("%s.role IN ?", table), search.RoleAll)
		plan.Having = cond{
			Expr: fmt.Sprintf("COUNT(DISTINCT %s.role) = ?", table),
			Args: []any{len(search.RoleAll)},
		}
	}

	if len(search.RoleNotIn) > 0 {
		expr, args := r.notExists(table, search)
		plan.where(expr, args...)
	}

	// The join fans out one row per role a user holds, so every joined
	// query collapses back to one row per user.
	if needJoin || search.JoinedUserRoles {
		plan.GroupBy = fmt.Sprintf("%s.id", r.usersTable)
	}

	return plan
}

// notExists builds the exclusion subquery: no row of the user in the search's
// scope may carry an excluded role.
func (r *Rewriter) notExists(table string, search UserSearch) (string, []any) {
	sub := fmt.Sprintf("SELECT 1 FROM %s x WHERE x.user_id = %s.id AND x.role IN ?", table, r.usersTable)
	args := []any{search.RoleNotIn}

	if search.SiteScoped {
		sub += " AND x.site_id = ?"
		args = append(args, search.SiteID)
	}
	if search.NetworkScoped {
		sub += " AND x.network_id = ?"
		args = append(args, search.NetworkID)
	}

	return "NOT EXISTS (" + sub + ")", args
}
