package roleindex

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"

	"github.com/roleindex/roleindex/internal/platform"
)

// Kind identifies one platform lifecycle event the role index reacts to.
type Kind string

// Lifecycle events pushed by the hosting platform. Site-scoped events carry
// the site id explicitly; there is no ambient "current site".
const (
	KindRoleAdded             Kind = "role.added"
	KindRoleRemoved           Kind = "role.removed"
	KindRolesSet              Kind = "roles.set"
	KindUserAddedToSite       Kind = "site.user_added"
	KindUserRemovedFromSite   Kind = "site.user_removed"
	KindUserSaved             Kind = "user.saved"
	KindUserDeleted           Kind = "user.deleted"
	KindUserDeletedEverywhere Kind = "user.deleted_everywhere"
	KindSuperAdminGranted     Kind = "superadmin.granted"
	KindSuperAdminRevoked     Kind = "superadmin.revoked"
	KindSuperAdminsUpdated    Kind = "superadmin.list_updated"
	KindNetworkCreated        Kind = "network.created"
	KindNetworkDeleted        Kind = "network.deleted"
	KindSiteMoved             Kind = "site.moved"
	KindSiteDeleted           Kind = "site.deleted"
)

// ErrUnknownEvent is returned when Dispatch receives a kind with no handler.
var ErrUnknownEvent = errors.New("unknown event kind")

// ErrInvalidEvent is returned when an event payload fails validation for its kind.
var ErrInvalidEvent = errors.New("invalid event payload")

// Event is the payload union for every lifecycle event. Which fields are
// required depends on the kind; Dispatch validates before handling.
type Event struct {
	Kind Kind

	UserID uint64
	Role   string
	Roles  []string
	Logins []string

	SiteID       uint64
	NetworkID    uint64
	OldNetworkID uint64
	NewNetworkID uint64
}

// Handler reacts to one validated lifecycle event.
type Handler func(ctx context.Context, ev Event) error

// eventRule names the payload fields a kind requires. Network ids are never
// required because 0 is a valid network identifier.
type eventRule struct {
	user bool
	role bool
	site bool
}

var validate = validator.New()

// Listener maps lifecycle events onto store operations. The kind→handler
// table is built once at construction; the host platform pushes events into
// Dispatch and nothing here polls.
type Listener struct {
	store    *Store
	dir      platform.Directory
	handlers map[Kind]Handler
	rules    map[Kind]eventRule
}

// NewListener builds the listener and its registration table.
func NewListener(store *Store, dir platform.Directory) *Listener {
	l := &Listener{store: store, dir: dir}

	l.handlers = map[Kind]Handler{
		KindRoleAdded:             l.roleAdded,
		KindRoleRemoved:           l.roleRemoved,
		KindRolesSet:              l.rolesSet,
		KindUserAddedToSite:       l.userAddedToSite,
		KindUserRemovedFromSite:   l.userRemovedFromSite,
		KindUserSaved:             l.userSaved,
		KindUserDeleted:           l.userDeleted,
		KindUserDeletedEverywhere: l.userDeletedEverywhere,
		KindSuperAdminGranted:     l.superAdminGranted,
		KindSuperAdminRevoked:     l.superAdminRevoked,
		KindSuperAdminsUpdated:    l.superAdminsUpdated,
		KindNetworkCreated:        l.networkCreated,
		KindNetworkDeleted:        l.networkDeleted,
		KindSiteMoved:             l.siteMoved,
		KindSiteDeleted:           l.siteDeleted,
	}

	l.rules = map[Kind]eventRule{
		KindRoleAdded:             {user: true, role: true, site: true},
		KindRoleRemoved:           {user: true, role: true, site: true},
		KindRolesSet:              {user: true, site: true},
		KindUserAddedToSite:       {user: true, role: true, site: true},
		KindUserRemovedFromSite:   {user: true, site: true},
		KindUserSaved:             {user: true, site: true},
		KindUserDeleted:           {user: true, site: true},
		KindUserDeletedEverywhere: {user: true},
		KindSuperAdminGranted:     {user: true},
		KindSuperAdminRevoked:     {user: true},
		KindSuperAdminsUpdated:    {},
		KindNetworkCreated:        {},
		KindNetworkDeleted:        {},
		KindSiteMoved:             {site: true},
		KindSiteDeleted:           {site: true},
	}

	return l
}

// Handlers exposes the registration table so the host platform can wire its
// own notification mechanism directly to the handlers.
func (l *Listener) Handlers() map[Kind]Handler {
	return l.handlers
}

// Dispatch validates the event payload for its kind and invokes the handler.
func (l *Listener) Dispatch(ctx context.Context, ev Event) error {
	handler, ok := l.handlers[ev.Kind]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownEvent, ev.Kind)
	}

	if err := l.validateEvent(ev); err != nil {
		return err
	}

	return handler(ctx, ev)
}

// validateEvent checks the required payload fields for the kind.
func (l *Listener) validateEvent(ev Event) error {
	rule := l.rules[ev.Kind]

	if rule.user {
		if err := validate.Var(ev.UserID, "gte=1"); err != nil {
			return fmt.Errorf("%w: %s requires a user id: %s", ErrInvalidEvent, ev.Kind, err)
		}
	}
	if rule.role {
		if err := validate.Var(ev.Role, "required"); err != nil {
			return fmt.Errorf("%w: %s requires a role: %s", ErrInvalidEvent, ev.Kind, err)
		}
	}
	if rule.site {
		if err := validate.Var(ev.SiteID, "gte=1"); err != nil {
			return fmt.Errorf("%w: %s requires a site id: %s", ErrInvalidEvent, ev.Kind, err)
		}
	}

	return nil
}

// networkOf resolves a site's network. Every site-scoped handler resolves the
// network this way; events never carry a trusted network id for a site.
func (l *Listener) networkOf(ctx context.Context, siteID uint64) (uint64, error) {
	networkID, err := l.dir.NetworkID(ctx, siteID)
	if err != nil {
		return 0, fmt.Errorf("failed to resolve network of site %d: %w", siteID, err)
	}

	return networkID, nil
}

// roleAdded indexes a role granted to a user at a site.
func (l *Listener) roleAdded(ctx context.Context, ev Event) error {
	networkID, err := l.networkOf(ctx, ev.SiteID)
	if err != nil {
		return err
	}

	_, err = l.store.AddRole(ctx, ev.UserID, ev.Role, ev.SiteID, networkID)

	return err
}

// roleRemoved drops one role of a user at a site.
func (l *Listener) roleRemoved(ctx context.Context, ev Event) error {
	_, err := l.store.RemoveRoles(ctx, NewFilter().ByUser(ev.UserID).ByRole(ev.Role).BySite(ev.SiteID))

	return err
}

// rolesSet replaces a user's role set at a site with a single role, or with
// nothing when the new role is empty.
func (l *Listener) rolesSet(ctx context.Context, ev Event) error {
	networkID, err := l.networkOf(ctx, ev.SiteID)
	if err != nil {
		return err
	}

	filter := NewFilter().ByUser(ev.UserID).BySite(ev.SiteID).ByNetwork(networkID)
	if _, err = l.store.RemoveRoles(ctx, filter); err != nil {
		return err
	}

	if ev.Role == "" {
		return nil
	}

	_, err = l.store.AddRole(ctx, ev.UserID, ev.Role, ev.SiteID, networkID)

	return err
}

// userAddedToSite indexes the role a user joins a site with.
func (l *Listener) userAddedToSite(ctx context.Context, ev Event) error {
	networkID, err := l.networkOf(ctx, ev.SiteID)
	if err != nil {
		return err
	}

	_, err = l.store.AddRole(ctx, ev.UserID, ev.Role, ev.SiteID, networkID)

	return err
}

// userRemovedFromSite drops every row of the user at the site.
func (l *Listener) userRemovedFromSite(ctx context.Context, ev Event) error {
	_, err := l.store.RemoveRoles(ctx, NewFilter().ByUser(ev.UserID).BySite(ev.SiteID))

	return err
}

// userSaved reconciles the index with the user's current role set at the
// site. Fired on profile update and on registration.
func (l *Listener) userSaved(ctx context.Context, ev Event) error {
	networkID, err := l.networkOf(ctx, ev.SiteID)
	if err != nil {
		return err
	}

	roles, err := l.dir.RolesAt(ctx, ev.UserID, ev.SiteID)
	if err != nil {
		return fmt.Errorf("failed to read roles of user %d at site %d: %w", ev.UserID, ev.SiteID, err)
	}

	return l.store.SyncUserRoles(ctx, ev.UserID, ev.SiteID, networkID, roles)
}

// userDeleted drops the user's rows at one site.
func (l *Listener) userDeleted(ctx context.Context, ev Event) error {
	_, err := l.store.RemoveRoles(ctx, NewFilter().ByUser(ev.UserID).BySite(ev.SiteID))

	return err
}

// userDeletedEverywhere drops the user's rows across all scopes.
func (l *Listener) userDeletedEverywhere(ctx context.Context, ev Event) error {
	_, err := l.store.DeleteScope(ctx, NewFilter().ByUser(ev.UserID))

	return err
}

// superAdminGranted adds the network-wide super-admin row.
func (l *Listener) superAdminGranted(ctx context.Context, ev Event) error {
	_, err := l.store.AddRole(ctx, ev.UserID, SuperAdminRole, 0, ev.NetworkID)

	return err
}

// superAdminRevoked drops the user's super-admin row for the network.
func (l *Listener) superAdminRevoked(ctx context.Context, ev Event) error {
	_, err := l.store.RemoveRoles(ctx, NewFilter().ByUser(ev.UserID).ByRole(SuperAdminRole).ByNetwork(ev.NetworkID))

	return err
}

// superAdminsUpdated replaces the network's super-admin set with the event's
// login list.
func (l *Listener) superAdminsUpdated(ctx context.Context, ev Event) error {
	return l.store.SyncSuperAdmins(ctx, ev.NetworkID, ev.Logins)
}

// networkCreated seeds the new network's super-admin rows from its configured
// admin logins.
func (l *Listener) networkCreated(ctx context.Context, ev Event) error {
	logins, err := l.dir.SuperAdminLogins(ctx, ev.NetworkID)
	if err != nil {
		return fmt.Errorf("failed to read super-admin logins of network %d: %w", ev.NetworkID, err)
	}

	return l.store.SyncSuperAdmins(ctx, ev.NetworkID, logins)
}

// networkDeleted drops every row of the network.
func (l *Listener) networkDeleted(ctx context.Context, ev Event) error {
	_, err := l.store.DeleteScope(ctx, NewFilter().ByNetwork(ev.NetworkID))

	return err
}

// siteMoved rewrites the network id of the site's rows.
func (l *Listener) siteMoved(ctx context.Context, ev Event) error {
	return l.store.MoveSite(ctx, ev.SiteID, ev.OldNetworkID, ev.NewNetworkID)
}

// siteDeleted drops every row of the site.
func (l *Listener) siteDeleted(ctx context.Context, ev Event) error {
	_, err := l.store.DeleteScope(ctx, NewFilter().BySite(ev.SiteID))

	return err
}
