package roleindex

import (
	"gorm.io/gorm"
)

// Filter selects role assignment rows by any subset of the four-tuple. Fields
// that were never set act as wildcards. Explicit set-tracking is required
// because 0 is a meaningful site and network identifier, so a zero value alone
// cannot mean "unset".
type Filter struct {
	userID  uint64
	hasUser bool

	role    string
	hasRole bool

	siteID  uint64
	hasSite bool

	networkID  uint64
	hasNetwork bool
}

// NewFilter creates an empty filter matching nothing until a field is set.
func NewFilter() Filter {
	return Filter{}
}

// ByUser restricts the filter to one subject.
func (f Filter) ByUser(userID uint64) Filter {
	f.userID = userID
	f.hasUser = true
	return f
}

// ByRole restricts the filter to one role label.
func (f Filter) ByRole(role string) Filter {
	f.role = role
	f.hasRole = true
	return f
}

// BySite restricts the filter to one site scope. Site 0 selects the
// network-wide rows.
func (f Filter) BySite(siteID uint64) Filter {
	f.siteID = siteID
	f.hasSite = true
	return f
}

// ByNetwork restricts the filter to one tenant-group.
func (f Filter) ByNetwork(networkID uint64) Filter {
	f.networkID = networkID
	f.hasNetwork = true
	return f
}

// IsZero reports whether no field was set.
func (f Filter) IsZero() bool {
	return !f.hasUser && !f.hasRole && !f.hasSite && !f.hasNetwork
}

// apply chains the set fields as WHERE conditions.
func (f Filter) apply(db *gorm.DB) *gorm.DB {
	if f.hasUser {
		db = db.Where("user_id = ?", f.userID)
	}
	if f.hasRole {
		db = db.Where("role = ?", f.role)
	}
	if f.hasSite {
		db = db.Where("site_id = ?", f.siteID)
	}
	if f.hasNetwork {
		db = db.Where("network_id = ?", f.networkID)
	}

	return db
}
