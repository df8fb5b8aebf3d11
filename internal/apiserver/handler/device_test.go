package handler

import (
	"net/http"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Phantom-bronze/UserModule/internal/apiserver/database"
	"github.com/Phantom-bronze/UserModule/internal/common/dto"
)

// registerDevice boots a fresh device through the public endpoint.
func (e *testEnv) registerDevice() dto.RegisterDeviceResponse {
	e.t.Helper()
	w := e.request(http.MethodPost, "/api/devices/register", dto.RegisterDeviceRequest{
		HardwareID: uuid.NewString(),
	}, nil)
	requireStatus(e.t, w, http.StatusOK)
	return decodeBody[dto.RegisterDeviceResponse](e.t, w)
}

// linkNewDevice registers a device and pairs it to the given user.
func (e *testEnv) linkNewDevice(user *database.User, tenant *database.Tenant) *database.Device {
	e.t.Helper()
	reg := e.registerDevice()
	require.NoError(e.t, e.db.LinkDevice(testCtx(), reg.DeviceID, user.ID, tenant.ID, time.Now()))
	device, err := e.db.GetDeviceByID(testCtx(), reg.DeviceID)
	require.NoError(e.t, err)
	return device
}

func TestRegisterDeviceIssuesCode(t *testing.T) {
	env := newTestEnv(t)

	reg := env.registerDevice()
	assert.Len(t, reg.Code, 4)
	assert.False(t, reg.IsLinked)
	assert.True(t, reg.CodeExpiresAt.After(time.Now()))
}

func TestRegisterDeviceIdempotent(t *testing.T) {
	env := newTestEnv(t)
	hw := uuid.NewString()

	w := env.request(http.MethodPost, "/api/devices/register", dto.RegisterDeviceRequest{HardwareID: hw}, nil)
	requireStatus(t, w, http.StatusOK)
	first := decodeBody[dto.RegisterDeviceResponse](t, w)

	// Same hardware, same device, same unexpired code.
	w = env.request(http.MethodPost, "/api/devices/register", dto.RegisterDeviceRequest{HardwareID: hw}, nil)
	requireStatus(t, w, http.StatusOK)
	second := decodeBody[dto.RegisterDeviceResponse](t, w)
	assert.Equal(t, first.DeviceID, second.DeviceID)
	assert.Equal(t, first.Code, second.Code)
}

func TestRegisterLinkedDeviceReportsLinked(t *testing.T) {
	env := newTestEnv(t)
	tenant := env.createTenant("Acme")
	user := env.createUser("user@example.com", database.RoleUser, &tenant.ID)
	device := env.linkNewDevice(user, tenant)

	w := env.request(http.MethodPost, "/api/devices/register", dto.RegisterDeviceRequest{HardwareID: device.HardwareID}, nil)
	requireStatus(t, w, http.StatusOK)
	reg := decodeBody[dto.RegisterDeviceResponse](t, w)
	assert.True(t, reg.IsLinked)
	assert.Empty(t, reg.Code)
}

func TestHeartbeat(t *testing.T) {
	env := newTestEnv(t)
	tenant := env.createTenant("Acme")
	user := env.createUser("user@example.com", database.RoleUser, &tenant.ID)
	device := env.linkNewDevice(user, tenant)

	w := env.request(http.MethodPost, "/api/devices/heartbeat", dto.HeartbeatRequest{HardwareID: device.HardwareID}, nil)
	requireStatus(t, w, http.StatusOK)
	hb := decodeBody[dto.HeartbeatResponse](t, w)
	assert.True(t, hb.IsLinked)

	got, err := env.db.GetDeviceByID(testCtx(), device.ID)
	require.NoError(t, err)
	assert.True(t, got.IsOnline)
	require.NotNil(t, got.LastSeen)

	w = env.request(http.MethodPost, "/api/devices/heartbeat", dto.HeartbeatRequest{HardwareID: "unknown-hw"}, nil)
	requireStatus(t, w, http.StatusNotFound)
}

func TestLinkDevice(t *testing.T) {
	env := newTestEnv(t)
	tenant := env.createTenant("Acme")
	user := env.createUser("user@example.com", database.RoleUser, &tenant.ID)
	reg := env.registerDevice()

	w := env.request(http.MethodPost, "/api/devices/link", dto.LinkDeviceRequest{
		Code: reg.Code,
		Name: "Lobby TV",
	}, user)
	requireStatus(t, w, http.StatusOK)
	linked := decodeBody[dto.DeviceResponse](t, w)
	assert.True(t, linked.IsLinked)
	assert.Equal(t, "Lobby TV", linked.Name)
	require.NotNil(t, linked.UserID)
	assert.Equal(t, user.ID, *linked.UserID)

	// The consumed code no longer links anything.
	other := env.createUser("other@example.com", database.RoleUser, &tenant.ID)
	w = env.request(http.MethodPost, "/api/devices/link", dto.LinkDeviceRequest{Code: reg.Code}, other)
	requireStatus(t, w, http.StatusNotFound)
}

func TestLinkDeviceWrongCode(t *testing.T) {
	env := newTestEnv(t)
	tenant := env.createTenant("Acme")
	user := env.createUser("user@example.com", database.RoleUser, &tenant.ID)
	env.registerDevice()

	w := env.request(http.MethodPost, "/api/devices/link", dto.LinkDeviceRequest{Code: "0000"}, user)
	// Either not found or, in the unlikely case 0000 was drawn, linked.
	if w.Code != http.StatusOK {
		requireStatus(t, w, http.StatusNotFound)
	}

	// Malformed codes never reach the database.
	w = env.request(http.MethodPost, "/api/devices/link", dto.LinkDeviceRequest{Code: "12AB"}, user)
	requireStatus(t, w, http.StatusBadRequest)
}

func TestLinkDeviceExpiredCode(t *testing.T) {
	env := newTestEnv(t)
	tenant := env.createTenant("Acme")
	user := env.createUser("user@example.com", database.RoleUser, &tenant.ID)
	reg := env.registerDevice()

	device, err := env.db.GetDeviceByID(testCtx(), reg.DeviceID)
	require.NoError(t, err)
	device.CodeIssuedAt = time.Now().Add(-time.Hour)
	require.NoError(t, env.db.UpdateDevice(testCtx(), device))

	w := env.request(http.MethodPost, "/api/devices/link", dto.LinkDeviceRequest{Code: reg.Code}, user)
	requireStatus(t, w, http.StatusBadRequest)
}

func TestLinkDeviceCapacity(t *testing.T) {
	env := newTestEnv(t)
	tenant := env.createTenant("Tiny")
	tenant.MaxDevices = 1
	require.NoError(t, env.db.UpdateTenant(testCtx(), tenant))
	user := env.createUser("user@example.com", database.RoleUser, &tenant.ID)
	env.linkNewDevice(user, tenant)

	reg := env.registerDevice()
	w := env.request(http.MethodPost, "/api/devices/link", dto.LinkDeviceRequest{Code: reg.Code}, user)
	requireStatus(t, w, http.StatusConflict)
}

func TestLinkDevicePermissions(t *testing.T) {
	env := newTestEnv(t)
	tenant := env.createTenant("Acme")
	super := env.createUser("root@example.com", database.RoleSuperAdmin, nil)
	restricted := env.createUser("norights@example.com", database.RoleUser, &tenant.ID)
	restricted.CanAddDevices = false
	require.NoError(t, env.db.UpdateUser(testCtx(), restricted))
	reg := env.registerDevice()

	// Super admins have no tenant to attach devices to.
	w := env.request(http.MethodPost, "/api/devices/link", dto.LinkDeviceRequest{Code: reg.Code}, super)
	requireStatus(t, w, http.StatusBadRequest)

	// Plain users need the can-add-devices grant.
	w = env.request(http.MethodPost, "/api/devices/link", dto.LinkDeviceRequest{Code: reg.Code}, restricted)
	requireStatus(t, w, http.StatusForbidden)
}

func TestListDevicesScoped(t *testing.T) {
	env := newTestEnv(t)
	tenant := env.createTenant("Acme")
	admin := env.createUser("admin@example.com", database.RoleAdmin, &tenant.ID)
	alice := env.createUser("alice@example.com", database.RoleUser, &tenant.ID)
	bob := env.createUser("bob@example.com", database.RoleUser, &tenant.ID)
	env.linkNewDevice(alice, tenant)
	env.linkNewDevice(bob, tenant)

	w := env.request(http.MethodGet, "/api/devices", nil, admin)
	requireStatus(t, w, http.StatusOK)
	assert.Len(t, decodeBody[[]*dto.DeviceResponse](t, w), 2)

	w = env.request(http.MethodGet, "/api/devices", nil, alice)
	requireStatus(t, w, http.StatusOK)
	mine := decodeBody[[]*dto.DeviceResponse](t, w)
	require.Len(t, mine, 1)
	require.NotNil(t, mine[0].UserID)
	assert.Equal(t, alice.ID, *mine[0].UserID)
}

func TestGetDeviceScopeMasked(t *testing.T) {
	env := newTestEnv(t)
	tenant := env.createTenant("Acme")
	alice := env.createUser("alice@example.com", database.RoleUser, &tenant.ID)
	bob := env.createUser("bob@example.com", database.RoleUser, &tenant.ID)
	device := env.linkNewDevice(alice, tenant)

	w := env.request(http.MethodGet, "/api/devices/"+device.ID, nil, alice)
	requireStatus(t, w, http.StatusOK)

	// Another user's device looks missing.
	w = env.request(http.MethodGet, "/api/devices/"+device.ID, nil, bob)
	requireStatus(t, w, http.StatusNotFound)
}

func TestUnlinkDeviceIssuesFreshCode(t *testing.T) {
	env := newTestEnv(t)
	tenant := env.createTenant("Acme")
	user := env.createUser("user@example.com", database.RoleUser, &tenant.ID)
	device := env.linkNewDevice(user, tenant)

	w := env.request(http.MethodPost, "/api/devices/"+device.ID+"/unlink", nil, user)
	requireStatus(t, w, http.StatusOK)

	got, err := env.db.GetDeviceByID(testCtx(), device.ID)
	require.NoError(t, err)
	assert.False(t, got.IsLinked)
	assert.Nil(t, got.UserID)
	require.NotNil(t, got.Code)
	assert.Len(t, *got.Code, 4)

	// The released device left the user's scope entirely.
	w = env.request(http.MethodGet, "/api/devices/"+device.ID, nil, user)
	requireStatus(t, w, http.StatusNotFound)

	// Unlinking it again conflicts; only super admins still see it.
	super := env.createUser("root@example.com", database.RoleSuperAdmin, nil)
	w = env.request(http.MethodPost, "/api/devices/"+device.ID+"/unlink", nil, super)
	requireStatus(t, w, http.StatusConflict)
}

func TestUpdateDevice(t *testing.T) {
	env := newTestEnv(t)
	tenant := env.createTenant("Acme")
	user := env.createUser("user@example.com", database.RoleUser, &tenant.ID)
	device := env.linkNewDevice(user, tenant)

	name := "Kitchen TV"
	playlist := uuid.NewString()
	w := env.request(http.MethodPut, "/api/devices/"+device.ID, dto.UpdateDeviceRequest{
		Name:              &name,
		CurrentPlaylistID: &playlist,
	}, user)
	requireStatus(t, w, http.StatusOK)
	updated := decodeBody[dto.DeviceResponse](t, w)
	assert.Equal(t, "Kitchen TV", updated.Name)
	require.NotNil(t, updated.CurrentPlaylistID)
	assert.Equal(t, playlist, *updated.CurrentPlaylistID)

	// Empty playlist id clears the assignment.
	empty := ""
	w = env.request(http.MethodPut, "/api/devices/"+device.ID, dto.UpdateDeviceRequest{CurrentPlaylistID: &empty}, user)
	requireStatus(t, w, http.StatusOK)
	assert.Nil(t, decodeBody[dto.DeviceResponse](t, w).CurrentPlaylistID)
}

func TestDeleteDevice(t *testing.T) {
	env := newTestEnv(t)
	tenant := env.createTenant("Acme")
	admin := env.createUser("admin@example.com", database.RoleAdmin, &tenant.ID)
	user := env.createUser("user@example.com", database.RoleUser, &tenant.ID)
	device := env.linkNewDevice(user, tenant)

	w := env.request(http.MethodDelete, "/api/devices/"+device.ID, nil, admin)
	requireStatus(t, w, http.StatusOK)

	_, err := env.db.GetDeviceByID(testCtx(), device.ID)
	assert.True(t, database.IsNotFound(err))
}
