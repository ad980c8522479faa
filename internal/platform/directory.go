// Package platform declares the interfaces of the hosting platform the role
// index consumes. The platform owns users, sites and networks; the role index
// only reads from it and never writes back.
package platform

import (
	"context"
	"errors"
)

var (
	// ErrUserNotFound is returned when a login or user id does not resolve to a
	// real user. Super-admin sync treats this as skip-and-continue, not failure.
	ErrUserNotFound = errors.New("platform: user not found")

	// ErrSiteNotFound is returned when a site id does not resolve to a site.
	ErrSiteNotFound = errors.New("platform: site not found")
)

// Directory resolves users, sites and networks against the hosting platform's
// authoritative (but unindexed) data. Every blocking call takes a context.
type Directory interface {
	// UserIDByLogin resolves a login name to a user identity.
	UserIDByLogin(ctx context.Context, login string) (uint64, error)

	// UserIDs enumerates every user known to the platform. Used by the bulk
	// migration tooling.
	UserIDs(ctx context.Context) ([]uint64, error)

	// SiteIDs lists the sites a user belongs to.
	SiteIDs(ctx context.Context, userID uint64) ([]uint64, error)

	// RolesAt returns the user's current role set at one site, read from the
	// platform's per-user attributes. This is the authoritative snapshot the
	// index is reconciled against.
	RolesAt(ctx context.Context, userID, siteID uint64) ([]string, error)

	// NetworkID resolves the tenant-group a site belongs to.
	NetworkID(ctx context.Context, siteID uint64) (uint64, error)

	// NetworkIDs enumerates every network. Used by super-admin migration.
	NetworkIDs(ctx context.Context) ([]uint64, error)

	// SuperAdminLogins returns the configured super-admin logins of a network.
	SuperAdminLogins(ctx context.Context, networkID uint64) ([]string, error)
}
