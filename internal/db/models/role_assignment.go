// Package models contains database model definitions.
package models

// RoleAssignment is one row of the denormalized role index: who has which role,
// on which site, within which network. The tuple (user_id, role, site_id,
// network_id) is the natural key; the composite unique index backs the
// application-level check-then-insert so a race can never produce two rows for
// the same assignment.
type RoleAssignment struct {
	// ID is the surrogate identifier, assigned by the store on insert.
	ID uint64 `gorm:"primaryKey"`
	// SiteID is the site scope of the assignment. 0 means the assignment is
	// network-wide (for example super-admin) rather than site-scoped.
	SiteID uint64 `gorm:"column:site_id;default:0;index;uniqueIndex:idx_user_role_scope,priority:3"`
	// NetworkID is the tenant-group the site belongs to. 0 is a valid network
	// identifier in single-tenant installs.
	NetworkID uint64 `gorm:"column:network_id;default:0;index;uniqueIndex:idx_user_role_scope,priority:4"`
	// UserID identifies the subject of the assignment.
	UserID uint64 `gorm:"column:user_id;default:0;index;uniqueIndex:idx_user_role_scope,priority:1"`
	// Role is an opaque label such as "author" or "super-admin". The store
	// enforces no enumeration or hierarchy.
	Role string `gorm:"size:191;not null;index;uniqueIndex:idx_user_role_scope,priority:2"`
}

// TableName specifies the database table name for the RoleAssignment model.
// This overrides GORM's default pluralized table naming.
func (RoleAssignment) TableName() string {
	return "user_roles"
}
