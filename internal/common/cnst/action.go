package cnst

// Audit action names, "<resource>.<verb>".
const (
	ActionAuthLogin        = "auth.login"
	ActionAuthLoginFailed  = "auth.login_failed"
	ActionAuthLogout       = "auth.logout"
	ActionAuthTokenRefresh = "auth.token_refresh"

	ActionUserCreated           = "user.created"
	ActionUserUpdated           = "user.updated"
	ActionUserDeleted           = "user.deleted"
	ActionUserActivated         = "user.activated"
	ActionUserDeactivated       = "user.deactivated"
	ActionUserPermissionChanged = "user.permission_changed"

	ActionTenantCreated     = "tenant.created"
	ActionTenantUpdated     = "tenant.updated"
	ActionTenantDeleted     = "tenant.deleted"
	ActionTenantActivated   = "tenant.activated"
	ActionTenantDeactivated = "tenant.deactivated"

	ActionInvitationSent      = "invitation.sent"
	ActionInvitationAccepted  = "invitation.accepted"
	ActionInvitationCancelled = "invitation.cancelled"
	ActionInvitationExpired   = "invitation.expired"

	ActionDeviceRegistered = "device.registered"
	ActionDeviceLinked     = "device.linked"
	ActionDeviceUnlinked   = "device.unlinked"
	ActionDeviceUpdated    = "device.updated"
	ActionDeviceDeleted    = "device.deleted"
	ActionDeviceOffline    = "device.offline"

	ActionCredentialsAdded   = "credentials.added"
	ActionCredentialsDeleted = "credentials.deleted"

	ActionKeyRotated = "crypto.key_rotated"
)

// Resource types recorded in audit log entries.
const (
	ResourceUser       = "user"
	ResourceTenant     = "tenant"
	ResourceInvitation = "invitation"
	ResourceDevice     = "device"
	ResourceCredential = "credential"
)
