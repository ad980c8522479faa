package platform

import (
	"context"
	"sort"
	"sync"
)

// Fake is an in-memory Directory for tests and local development.
type Fake struct {
	mu sync.RWMutex

	logins      map[string]uint64              // login -> user id
	sites       map[uint64]uint64              // site id -> network id
	roles       map[uint64]map[uint64][]string // user id -> site id -> roles
	superAdmins map[uint64][]string            // network id -> logins
}

// NewFake creates an empty in-memory directory.
func NewFake() *Fake {
	return &Fake{
		logins:      make(map[string]uint64),
		sites:       make(map[uint64]uint64),
		roles:       make(map[uint64]map[uint64][]string),
		superAdmins: make(map[uint64][]string),
	}
}

var _ Directory = (*Fake)(nil)

// AddUser registers a user with its login name.
func (f *Fake) AddUser(login string, userID uint64) *Fake {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.logins[login] = userID
	if _, ok := f.roles[userID]; !ok {
		f.roles[userID] = make(map[uint64][]string)
	}

	return f
}

// AddSite registers a site within a network.
func (f *Fake) AddSite(siteID, networkID uint64) *Fake {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sites[siteID] = networkID

	return f
}

// SetRoles sets a user's role snapshot at a site.
func (f *Fake) SetRoles(userID, siteID uint64, roles ...string) *Fake {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.roles[userID]; !ok {
		f.roles[userID] = make(map[uint64][]string)
	}
	f.roles[userID][siteID] = roles

	return f
}

// SetSuperAdmins sets the configured super-admin logins of a network.
func (f *Fake) SetSuperAdmins(networkID uint64, logins ...string) *Fake {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.superAdmins[networkID] = logins

	return f
}

// UserIDByLogin implements Directory.
func (f *Fake) UserIDByLogin(_ context.Context, login string) (uint64, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	id, ok := f.logins[login]
	if !ok {
		return 0, ErrUserNotFound
	}

	return id, nil
}

// UserIDs implements Directory. IDs are returned in ascending order so bulk
// runs are deterministic.
func (f *Fake) UserIDs(_ context.Context) ([]uint64, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	ids := make([]uint64, 0, len(f.roles))
	for id := range f.roles {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	return ids, nil
}

// SiteIDs implements Directory.
func (f *Fake) SiteIDs(_ context.Context, userID uint64) ([]uint64, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	var ids []uint64
	for siteID := range f.roles[userID] {
		ids = append(ids, siteID)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	return ids, nil
}

// RolesAt implements Directory.
func (f *Fake) RolesAt(_ context.Context, userID, siteID uint64) ([]string, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	sites, ok := f.roles[userID]
	if !ok {
		return nil, ErrUserNotFound
	}

	return sites[siteID], nil
}

// NetworkID implements Directory.
func (f *Fake) NetworkID(_ context.Context, siteID uint64) (uint64, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	networkID, ok := f.sites[siteID]
	if !ok {
		return 0, ErrSiteNotFound
	}

	return networkID, nil
}

// NetworkIDs implements Directory.
func (f *Fake) NetworkIDs(_ context.Context) ([]uint64, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	seen := make(map[uint64]struct{})
	for _, networkID := range f.sites {
		seen[networkID] = struct{}{}
	}
	for networkID := range f.superAdmins {
		seen[networkID] = struct{}{}
	}

	ids := make([]uint64, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	return ids, nil
}

// SuperAdminLogins implements Directory.
func (f *Fake) SuperAdminLogins(_ context.Context, networkID uint64) ([]string, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	return f.superAdmins[networkID], nil
}
