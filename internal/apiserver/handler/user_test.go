package handler

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Phantom-bronze/UserModule/internal/apiserver/database"
	"github.com/Phantom-bronze/UserModule/internal/common/dto"
)

func TestListUsersScoped(t *testing.T) {
	env := newTestEnv(t)
	a := env.createTenant("A")
	b := env.createTenant("B")
	super := env.createUser("root@example.com", database.RoleSuperAdmin, nil)
	adminA := env.createUser("admin-a@example.com", database.RoleAdmin, &a.ID)
	env.createUser("user-a@example.com", database.RoleUser, &a.ID)
	env.createUser("user-b@example.com", database.RoleUser, &b.ID)

	w := env.request(http.MethodGet, "/api/users", nil, super)
	requireStatus(t, w, http.StatusOK)
	assert.Len(t, decodeBody[[]*dto.UserResponse](t, w), 4)

	w = env.request(http.MethodGet, "/api/users?tenant_id="+b.ID, nil, super)
	requireStatus(t, w, http.StatusOK)
	assert.Len(t, decodeBody[[]*dto.UserResponse](t, w), 1)

	// Admins are pinned to their own tenant even when they ask for
	// another one.
	w = env.request(http.MethodGet, "/api/users?tenant_id="+b.ID, nil, adminA)
	requireStatus(t, w, http.StatusOK)
	for _, u := range decodeBody[[]*dto.UserResponse](t, w) {
		require.NotNil(t, u.TenantID)
		assert.Equal(t, a.ID, *u.TenantID)
	}

	w = env.request(http.MethodGet, "/api/users?role=user", nil, adminA)
	requireStatus(t, w, http.StatusOK)
	assert.Len(t, decodeBody[[]*dto.UserResponse](t, w), 1)

	w = env.request(http.MethodGet, "/api/users?role=bogus", nil, adminA)
	requireStatus(t, w, http.StatusBadRequest)
}

func TestListUsersForbiddenForRegularUser(t *testing.T) {
	env := newTestEnv(t)
	tenant := env.createTenant("Acme")
	user := env.createUser("user@example.com", database.RoleUser, &tenant.ID)

	w := env.request(http.MethodGet, "/api/users", nil, user)
	requireStatus(t, w, http.StatusForbidden)
}

func TestGetUserCrossTenantMasked(t *testing.T) {
	env := newTestEnv(t)
	a := env.createTenant("A")
	b := env.createTenant("B")
	adminA := env.createUser("admin-a@example.com", database.RoleAdmin, &a.ID)
	userB := env.createUser("user-b@example.com", database.RoleUser, &b.ID)

	w := env.request(http.MethodGet, "/api/users/"+userB.ID, nil, adminA)
	requireStatus(t, w, http.StatusNotFound)

	// Same status for a genuinely missing account.
	w = env.request(http.MethodGet, "/api/users/no-such-id", nil, adminA)
	requireStatus(t, w, http.StatusNotFound)
}

func TestUpdateUserRoleChange(t *testing.T) {
	env := newTestEnv(t)
	tenant := env.createTenant("Acme")
	super := env.createUser("root@example.com", database.RoleSuperAdmin, nil)
	admin := env.createUser("admin@example.com", database.RoleAdmin, &tenant.ID)
	user := env.createUser("user@example.com", database.RoleUser, &tenant.ID)

	role := "admin"
	// Only super admins assign roles.
	w := env.request(http.MethodPut, "/api/users/"+user.ID, dto.UpdateUserRequest{Role: &role}, admin)
	requireStatus(t, w, http.StatusForbidden)

	w = env.request(http.MethodPut, "/api/users/"+user.ID, dto.UpdateUserRequest{Role: &role}, super)
	requireStatus(t, w, http.StatusOK)
	updated := decodeBody[dto.UserResponse](t, w)
	assert.Equal(t, "admin", updated.Role)

	// super_admin is never assignable through the API.
	bad := "super_admin"
	w = env.request(http.MethodPut, "/api/users/"+user.ID, dto.UpdateUserRequest{Role: &bad}, super)
	requireStatus(t, w, http.StatusBadRequest)
}

func TestAdminCannotManagePeerAdmin(t *testing.T) {
	env := newTestEnv(t)
	tenant := env.createTenant("Acme")
	admin := env.createUser("admin@example.com", database.RoleAdmin, &tenant.ID)
	peer := env.createUser("peer@example.com", database.RoleAdmin, &tenant.ID)

	active := false
	w := env.request(http.MethodPut, "/api/users/"+peer.ID, dto.UpdateUserRequest{IsActive: &active}, admin)
	requireStatus(t, w, http.StatusForbidden)

	w = env.request(http.MethodDelete, "/api/users/"+peer.ID, nil, admin)
	requireStatus(t, w, http.StatusForbidden)
}

func TestAdminDeactivatesTenantUser(t *testing.T) {
	env := newTestEnv(t)
	tenant := env.createTenant("Acme")
	admin := env.createUser("admin@example.com", database.RoleAdmin, &tenant.ID)
	user := env.createUser("user@example.com", database.RoleUser, &tenant.ID)

	active := false
	w := env.request(http.MethodPut, "/api/users/"+user.ID, dto.UpdateUserRequest{IsActive: &active}, admin)
	requireStatus(t, w, http.StatusOK)
	assert.False(t, decodeBody[dto.UserResponse](t, w).IsActive)

	// The deactivated user's token is rejected.
	w = env.request(http.MethodGet, "/api/auth/me", nil, user)
	requireStatus(t, w, http.StatusUnauthorized)
}

func TestDeleteOwnAccountRejected(t *testing.T) {
	env := newTestEnv(t)
	tenant := env.createTenant("Acme")
	admin := env.createUser("admin@example.com", database.RoleAdmin, &tenant.ID)

	w := env.request(http.MethodDelete, "/api/users/"+admin.ID, nil, admin)
	requireStatus(t, w, http.StatusBadRequest)
}

func TestDeleteUserRemovesDevices(t *testing.T) {
	env := newTestEnv(t)
	tenant := env.createTenant("Acme")
	admin := env.createUser("admin@example.com", database.RoleAdmin, &tenant.ID)
	user := env.createUser("user@example.com", database.RoleUser, &tenant.ID)

	device := env.linkNewDevice(user, tenant)

	w := env.request(http.MethodDelete, "/api/users/"+user.ID, nil, admin)
	requireStatus(t, w, http.StatusOK)

	_, err := env.db.GetDeviceByID(testCtx(), device.ID)
	assert.True(t, database.IsNotFound(err))
}

func TestUpdateProfileSelfService(t *testing.T) {
	env := newTestEnv(t)
	tenant := env.createTenant("Acme")
	user := env.createUser("user@example.com", database.RoleUser, &tenant.ID)

	name := "New Name"
	pic := "https://example.com/pic.png"
	w := env.request(http.MethodPut, "/api/users/me/profile", dto.UpdateProfileRequest{
		FullName:          &name,
		ProfilePictureURL: &pic,
	}, user)
	requireStatus(t, w, http.StatusOK)
	updated := decodeBody[dto.UserResponse](t, w)
	assert.Equal(t, "New Name", updated.FullName)
	assert.Equal(t, pic, updated.ProfilePictureURL)
	assert.Equal(t, "user", updated.Role)
}
