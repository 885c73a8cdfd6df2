package access

import (
	"errors"
	"testing"

	"support-chat-service/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeGrants struct {
	grants map[[2]uint]bool
	err    error
	calls  int
}

func (f *fakeGrants) HasGrant(userID, tenantID uint) (bool, error) {
	f.calls++
	if f.err != nil {
		return false, f.err
	}
	return f.grants[[2]uint{userID, tenantID}], nil
}

func TestCanAccessAdminAnywhere(t *testing.T) {
	grants := &fakeGrants{}
	resolver := NewResolver(grants)

	admin := &model.User{ID: 1, Role: model.RoleAdmin, TenantID: 1}

	ok, err := resolver.CanAccess(admin, 99)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Zero(t, grants.calls, "admin access must not consult grants")
}

func TestCanAccessHomeTenantAnyRole(t *testing.T) {
	resolver := NewResolver(&fakeGrants{})

	for _, role := range []string{model.RoleAdmin, model.RoleManager, model.RoleSupportAgent} {
		actor := &model.User{ID: 2, Role: role, TenantID: 7}
		ok, err := resolver.CanAccess(actor, 7)
		require.NoError(t, err)
		assert.True(t, ok, "role %s must access home tenant", role)
	}
}

func TestCanAccessManagerNeedsGrant(t *testing.T) {
	grants := &fakeGrants{grants: map[[2]uint]bool{{3, 8}: true}}
	resolver := NewResolver(grants)

	manager := &model.User{ID: 3, Role: model.RoleManager, TenantID: 1}

	ok, err := resolver.CanAccess(manager, 8)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = resolver.CanAccess(manager, 9)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCanAccessAgentNeverCrossesTenant(t *testing.T) {
	grants := &fakeGrants{grants: map[[2]uint]bool{{4, 8}: true}}
	resolver := NewResolver(grants)

	agent := &model.User{ID: 4, Role: model.RoleSupportAgent, TenantID: 1}

	ok, err := resolver.CanAccess(agent, 8)
	require.NoError(t, err)
	assert.False(t, ok, "grants apply to managers only")
	assert.Zero(t, grants.calls)
}

func TestCanAccessNilActorDenied(t *testing.T) {
	resolver := NewResolver(&fakeGrants{})

	ok, err := resolver.CanAccess(nil, 1)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCanAccessGrantStoreErrorPropagates(t *testing.T) {
	boom := errors.New("db down")
	resolver := NewResolver(&fakeGrants{err: boom})

	manager := &model.User{ID: 5, Role: model.RoleManager, TenantID: 1}

	ok, err := resolver.CanAccess(manager, 2)
	assert.ErrorIs(t, err, boom)
	assert.False(t, ok)
}
