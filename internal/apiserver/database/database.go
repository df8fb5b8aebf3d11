package database

import (
	"context"
	"time"
)

// TenantStats aggregates per-tenant counters for the stats endpoint.
type TenantStats struct {
	TotalUsers    int64 `json:"totalUsers"`
	ActiveUsers   int64 `json:"activeUsers"`
	AdminUsers    int64 `json:"adminUsers"`
	TotalDevices  int64 `json:"totalDevices"`
	OnlineDevices int64 `json:"onlineDevices"`
	LinkedDevices int64 `json:"linkedDevices"`
}

// UserFilter narrows ListUsers.
type UserFilter struct {
	TenantID *string
	Role     *UserRole
	IsActive *bool
	Search   string
	Offset   int
	Limit    int
}

// AuditFilter narrows ListAuditLogs.
type AuditFilter struct {
	UserID       *string
	Action       string
	ResourceType string
	Offset       int
	Limit        int
}

// Database defines the methods for database operations.
type Database interface {
	// Close closes the database connection.
	Close() error

	// Transaction runs fn inside a database transaction. The transaction
	// is injected into the context passed to fn, so nested Database calls
	// made with that context participate in it.
	Transaction(ctx context.Context, fn func(ctx context.Context) error) error

	// Tenant operations.
	CreateTenant(ctx context.Context, tenant *Tenant) error
	GetTenantByID(ctx context.Context, id string) (*Tenant, error)
	// GetTenantByIDForUpdate locks the tenant row for the rest of the
	// enclosing transaction. Use it before checking a quota that the
	// transaction is about to consume.
	GetTenantByIDForUpdate(ctx context.Context, id string) (*Tenant, error)
	GetTenantBySubdomain(ctx context.Context, subdomain string) (*Tenant, error)
	ListTenants(ctx context.Context, offset, limit int) ([]*Tenant, error)
	UpdateTenant(ctx context.Context, tenant *Tenant) error
	// DeleteTenant removes the tenant and everything scoped to it.
	DeleteTenant(ctx context.Context, id string) error
	// SetTenantActive flips the tenant flag and cascades it to the
	// tenant's users when deactivating.
	SetTenantActive(ctx context.Context, id string, active bool) error
	GetTenantStats(ctx context.Context, id string) (*TenantStats, error)
	CountActiveUsers(ctx context.Context, tenantID string) (int64, error)
	CountTenantDevices(ctx context.Context, tenantID string) (int64, error)

	// User operations.
	CreateUser(ctx context.Context, user *User) error
	GetUserByID(ctx context.Context, id string) (*User, error)
	GetUserByEmail(ctx context.Context, email string) (*User, error)
	ListUsers(ctx context.Context, filter *UserFilter) ([]*User, error)
	UpdateUser(ctx context.Context, user *User) error
	// DeleteUser removes the user, deletes their devices and detaches
	// rows that reference them.
	DeleteUser(ctx context.Context, id string) error
	CountUsers(ctx context.Context) (int64, error)

	// Invitation operations.
	CreateInvitation(ctx context.Context, inv *Invitation) error
	GetInvitationByID(ctx context.Context, id string) (*Invitation, error)
	GetInvitationByToken(ctx context.Context, token string) (*Invitation, error)
	ListInvitations(ctx context.Context, tenantID string, offset, limit int) ([]*Invitation, error)
	// HasPendingInvitation reports whether a pending invitation exists
	// for the email in any tenant.
	HasPendingInvitation(ctx context.Context, email string) (bool, error)
	// AcceptInvitation transitions pending -> accepted. At most one
	// caller wins; later attempts get ErrNotPending.
	AcceptInvitation(ctx context.Context, id string, now time.Time) error
	// CancelInvitation transitions pending -> cancelled with the same
	// one-winner guarantee.
	CancelInvitation(ctx context.Context, id string) error
	// ExpireStaleInvitations moves every pending invitation whose expiry
	// passed to expired, returning how many rows changed.
	ExpireStaleInvitations(ctx context.Context, now time.Time) (int64, error)

	// Device operations.
	CreateDevice(ctx context.Context, device *Device) error
	GetDeviceByID(ctx context.Context, id string) (*Device, error)
	GetDeviceByHardwareID(ctx context.Context, hardwareID string) (*Device, error)
	GetDeviceByCode(ctx context.Context, code string) (*Device, error)
	CodeInUse(ctx context.Context, code string) (bool, error)
	ListUserDevices(ctx context.Context, userID string, offset, limit int) ([]*Device, error)
	ListTenantDevices(ctx context.Context, tenantID string, offset, limit int) ([]*Device, error)
	UpdateDevice(ctx context.Context, device *Device) error
	DeleteDevice(ctx context.Context, id string) error
	// LinkDevice claims an unlinked device for a user. Conditional on the
	// device still being unlinked; a concurrent winner leaves the loser
	// with ErrAlreadyLinked.
	LinkDevice(ctx context.Context, deviceID, userID, tenantID string, now time.Time) error
	// UnlinkDevice releases the device back to the pairing pool under a
	// fresh code.
	UnlinkDevice(ctx context.Context, deviceID, newCode string, now time.Time) error
	// Heartbeat records a device check-in and returns the updated row.
	Heartbeat(ctx context.Context, hardwareID string, now time.Time) (*Device, error)
	// RefreshDeviceCode replaces the pairing code of an unlinked device.
	RefreshDeviceCode(ctx context.Context, deviceID, code string, now time.Time) error
	// MarkDevicesOffline flags every online device not seen since the
	// threshold and returns the affected IDs.
	MarkDevicesOffline(ctx context.Context, threshold time.Time) ([]string, error)

	// Google credential operations.
	UpsertGoogleCredential(ctx context.Context, cred *GoogleCredential) error
	GetGoogleCredentialByTenant(ctx context.Context, tenantID string) (*GoogleCredential, error)
	ListGoogleCredentials(ctx context.Context) ([]*GoogleCredential, error)
	DeleteGoogleCredential(ctx context.Context, tenantID string) error

	// Drive token operations.
	UpsertGoogleDriveToken(ctx context.Context, token *GoogleDriveToken) error
	GetGoogleDriveTokenByUser(ctx context.Context, userID string) (*GoogleDriveToken, error)
	ListGoogleDriveTokens(ctx context.Context) ([]*GoogleDriveToken, error)
	DeleteGoogleDriveToken(ctx context.Context, userID string) error

	// Audit operations.
	CreateAuditLog(ctx context.Context, entry *AuditLog) error
	ListAuditLogs(ctx context.Context, filter *AuditFilter) ([]*AuditLog, error)
}
