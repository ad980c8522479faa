package roleindex

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roleindex/roleindex/internal/platform"
)

// setupListener builds a store and listener over the given directory.
func setupListener(t *testing.T, dir platform.Directory) (*Listener, *Store) {
	t.Helper()

	store := setupStore(t, dir)

	return NewListener(store, dir), store
}

func TestDispatchValidation(t *testing.T) {
	ctx := context.Background()
	dir := platform.NewFake().AddSite(2, 1)
	listener, _ := setupListener(t, dir)

	testCases := []struct {
		name          string
		event         Event
		expectedError error
	}{
		{
			name:          "unknown kind",
			event:         Event{Kind: Kind("bogus")},
			expectedError: ErrUnknownEvent,
		},
		{
			name:          "role added without user",
			event:         Event{Kind: KindRoleAdded, Role: "editor", SiteID: 2},
			expectedError: ErrInvalidEvent,
		},
		{
			name:          "role added without role",
			event:         Event{Kind: KindRoleAdded, UserID: 7, SiteID: 2},
			expectedError: ErrInvalidEvent,
		},
		{
			name:          "role added without site",
			event:         Event{Kind: KindRoleAdded, UserID: 7, Role: "editor"},
			expectedError: ErrInvalidEvent,
		},
		{
			name:  "valid role added",
			event: Event{Kind: KindRoleAdded, UserID: 7, Role: "editor", SiteID: 2},
		},
		{
			name: "network id zero is valid",
			// The primary network carries id 0 on some installs.
			event: Event{Kind: KindSuperAdminGranted, UserID: 7, NetworkID: 0},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := listener.Dispatch(ctx, tc.event)
			if tc.expectedError != nil {
				assert.ErrorIs(t, err, tc.expectedError)

				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestHandlersTable(t *testing.T) {
	listener, _ := setupListener(t, platform.NewFake())

	handlers := listener.Handlers()
	assert.Len(t, handlers, 15)
	for _, kind := range []Kind{
		KindRoleAdded, KindRoleRemoved, KindRolesSet,
		KindUserAddedToSite, KindUserRemovedFromSite,
		KindUserSaved, KindUserDeleted, KindUserDeletedEverywhere,
		KindSuperAdminGranted, KindSuperAdminRevoked, KindSuperAdminsUpdated,
		KindNetworkCreated, KindNetworkDeleted,
		KindSiteMoved, KindSiteDeleted,
	} {
		assert.Contains(t, handlers, kind)
	}
}

func TestRoleAddedRemoved(t *testing.T) {
	ctx := context.Background()
	dir := platform.NewFake().AddSite(2, 1)
	listener, store := setupListener(t, dir)

	err := listener.Dispatch(ctx, Event{Kind: KindRoleAdded, UserID: 7, Role: "editor", SiteID: 2})
	require.NoError(t, err)

	// The network id is resolved from the site, never taken from the event.
	row, err := store.GetRole(ctx, 7, "editor", 2, 1)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), row.NetworkID)

	err = listener.Dispatch(ctx, Event{Kind: KindRoleRemoved, UserID: 7, Role: "editor", SiteID: 2})
	require.NoError(t, err)

	_, err = store.GetRole(ctx, 7, "editor", 2, 1)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRoleAddedUnknownSite(t *testing.T) {
	ctx := context.Background()
	listener, _ := setupListener(t, platform.NewFake())

	err := listener.Dispatch(ctx, Event{Kind: KindRoleAdded, UserID: 7, Role: "editor", SiteID: 99})
	assert.ErrorIs(t, err, platform.ErrSiteNotFound)
}

func TestRolesSet(t *testing.T) {
	ctx := context.Background()
	dir := platform.NewFake().AddSite(2, 1)
	listener, store := setupListener(t, dir)

	require.NoError(t, listener.Dispatch(ctx, Event{Kind: KindRoleAdded, UserID: 7, Role: "author", SiteID: 2}))
	require.NoError(t, listener.Dispatch(ctx, Event{Kind: KindRoleAdded, UserID: 7, Role: "editor", SiteID: 2}))

	// Setting a single role replaces the whole set at the site.
	require.NoError(t, listener.Dispatch(ctx, Event{Kind: KindRolesSet, UserID: 7, Role: "subscriber", SiteID: 2}))
	assert.Equal(t, []string{"subscriber"}, rolesAt(t, store, 7, 2))

	// Setting the empty role clears the set.
	require.NoError(t, listener.Dispatch(ctx, Event{Kind: KindRolesSet, UserID: 7, SiteID: 2}))
	assert.Empty(t, rolesAt(t, store, 7, 2))
}

func TestUserSiteMembership(t *testing.T) {
	ctx := context.Background()
	dir := platform.NewFake().AddSite(2, 1)
	listener, store := setupListener(t, dir)

	require.NoError(t, listener.Dispatch(ctx, Event{Kind: KindUserAddedToSite, UserID: 7, Role: "contributor", SiteID: 2}))
	assert.Equal(t, []string{"contributor"}, rolesAt(t, store, 7, 2))

	require.NoError(t, listener.Dispatch(ctx, Event{Kind: KindUserRemovedFromSite, UserID: 7, SiteID: 2}))
	assert.Empty(t, rolesAt(t, store, 7, 2))
}

func TestUserSaved(t *testing.T) {
	ctx := context.Background()
	dir := platform.NewFake().
		AddSite(2, 1).
		AddUser("dave", 7).
		SetRoles(7, 2, "editor", "author")
	listener, store := setupListener(t, dir)

	// Saving reconciles the index with the directory's current role set.
	require.NoError(t, listener.Dispatch(ctx, Event{Kind: KindUserSaved, UserID: 7, SiteID: 2}))
	assert.Equal(t, []string{"author", "editor"}, rolesAt(t, store, 7, 2))

	dir.SetRoles(7, 2, "subscriber")
	require.NoError(t, listener.Dispatch(ctx, Event{Kind: KindUserSaved, UserID: 7, SiteID: 2}))
	assert.Equal(t, []string{"subscriber"}, rolesAt(t, store, 7, 2))
}

func TestUserDeleted(t *testing.T) {
	ctx := context.Background()
	dir := platform.NewFake().AddSite(2, 1).AddSite(3, 1)
	listener, store := setupListener(t, dir)

	require.NoError(t, listener.Dispatch(ctx, Event{Kind: KindRoleAdded, UserID: 7, Role: "editor", SiteID: 2}))
	require.NoError(t, listener.Dispatch(ctx, Event{Kind: KindRoleAdded, UserID: 7, Role: "editor", SiteID: 3}))

	// Single-site deletion leaves the user's other sites alone.
	require.NoError(t, listener.Dispatch(ctx, Event{Kind: KindUserDeleted, UserID: 7, SiteID: 2}))
	assert.Empty(t, rolesAt(t, store, 7, 2))
	assert.Equal(t, []string{"editor"}, rolesAt(t, store, 7, 3))

	// Deletion everywhere clears all scopes.
	require.NoError(t, listener.Dispatch(ctx, Event{Kind: KindUserDeletedEverywhere, UserID: 7}))
	assert.Equal(t, int64(0), countRows(t, store))
}

func TestSuperAdminEvents(t *testing.T) {
	ctx := context.Background()
	dir := platform.NewFake().AddUser("alice", 1).AddUser("bob", 2)
	listener, store := setupListener(t, dir)

	require.NoError(t, listener.Dispatch(ctx, Event{Kind: KindSuperAdminGranted, UserID: 1, NetworkID: 1}))

	row, err := store.GetRole(ctx, 1, SuperAdminRole, 0, 1)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), row.SiteID)

	require.NoError(t, listener.Dispatch(ctx, Event{
		Kind: KindSuperAdminsUpdated, NetworkID: 1, Logins: []string{"bob"},
	}))
	_, err = store.GetRole(ctx, 1, SuperAdminRole, 0, 1)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = store.GetRole(ctx, 2, SuperAdminRole, 0, 1)
	assert.NoError(t, err)

	require.NoError(t, listener.Dispatch(ctx, Event{Kind: KindSuperAdminRevoked, UserID: 2, NetworkID: 1}))
	assert.Equal(t, int64(0), countRows(t, store))
}

func TestNetworkLifecycle(t *testing.T) {
	ctx := context.Background()
	dir := platform.NewFake().
		AddUser("alice", 1).
		AddSite(2, 5).
		SetSuperAdmins(5, "alice")
	listener, store := setupListener(t, dir)

	// Creating a network seeds its super-admins from the directory.
	require.NoError(t, listener.Dispatch(ctx, Event{Kind: KindNetworkCreated, NetworkID: 5}))
	_, err := store.GetRole(ctx, 1, SuperAdminRole, 0, 5)
	require.NoError(t, err)

	require.NoError(t, listener.Dispatch(ctx, Event{Kind: KindRoleAdded, UserID: 7, Role: "editor", SiteID: 2}))

	// Deleting the network drops every row in it, site rows included.
	require.NoError(t, listener.Dispatch(ctx, Event{Kind: KindNetworkDeleted, NetworkID: 5}))
	assert.Equal(t, int64(0), countRows(t, store))
}

func TestSiteLifecycle(t *testing.T) {
	ctx := context.Background()
	dir := platform.NewFake().AddSite(2, 1).AddSite(3, 1)
	listener, store := setupListener(t, dir)

	require.NoError(t, listener.Dispatch(ctx, Event{Kind: KindRoleAdded, UserID: 7, Role: "editor", SiteID: 2}))
	require.NoError(t, listener.Dispatch(ctx, Event{Kind: KindRoleAdded, UserID: 8, Role: "author", SiteID: 3}))

	require.NoError(t, listener.Dispatch(ctx, Event{
		Kind: KindSiteMoved, SiteID: 2, OldNetworkID: 1, NewNetworkID: 6,
	}))
	_, err := store.GetRole(ctx, 7, "editor", 2, 6)
	require.NoError(t, err)

	require.NoError(t, listener.Dispatch(ctx, Event{Kind: KindSiteDeleted, SiteID: 2}))
	assert.Empty(t, rolesAt(t, store, 7, 2))
	assert.Equal(t, []string{"author"}, rolesAt(t, store, 8, 3))
}

// TestEventFlow walks a small install through its life: users join sites,
// change roles, one becomes super-admin, a site changes networks, and the
// index tracks every step.
func TestEventFlow(t *testing.T) {
	ctx := context.Background()
	dir := platform.NewFake().
		AddUser("alice", 1).
		AddUser("bob", 2).
		AddUser("carol", 3).
		AddUser("dave", 4).
		AddSite(10, 1).
		AddSite(11, 1)
	listener, store := setupListener(t, dir)

	for _, userID := range []uint64{1, 2, 3, 4} {
		require.NoError(t, listener.Dispatch(ctx, Event{
			Kind: KindUserAddedToSite, UserID: userID, Role: "author", SiteID: 10,
		}))
	}
	require.NoError(t, listener.Dispatch(ctx, Event{
		Kind: KindUserAddedToSite, UserID: 2, Role: "editor", SiteID: 11,
	}))

	require.NoError(t, listener.Dispatch(ctx, Event{
		Kind: KindRolesSet, UserID: 1, Role: "administrator", SiteID: 10,
	}))
	require.NoError(t, listener.Dispatch(ctx, Event{
		Kind: KindSuperAdminsUpdated, NetworkID: 1, Logins: []string{"alice"},
	}))
	require.NoError(t, listener.Dispatch(ctx, Event{
		Kind: KindUserRemovedFromSite, UserID: 4, SiteID: 10,
	}))
	require.NoError(t, listener.Dispatch(ctx, Event{
		Kind: KindSiteMoved, SiteID: 11, OldNetworkID: 1, NewNetworkID: 2,
	}))

	assert.Equal(t, []string{"administrator"}, rolesAt(t, store, 1, 10))
	assert.Equal(t, []string{SuperAdminRole}, rolesAt(t, store, 1, 0))
	assert.Equal(t, []string{"author"}, rolesAt(t, store, 2, 10))
	assert.Equal(t, []string{"author"}, rolesAt(t, store, 3, 10))
	assert.Empty(t, rolesAt(t, store, 4, 10))

	row, err := store.GetRole(ctx, 2, "editor", 11, 2)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), row.NetworkID)

	assert.Equal(t, int64(5), countRows(t, store))
}
