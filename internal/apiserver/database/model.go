package database

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"math/big"
	"time"
)

// UserRole represents the role of a user
type UserRole string

const (
	RoleSuperAdmin UserRole = "super_admin"
	RoleAdmin      UserRole = "admin"
	RoleUser       UserRole = "user"
)

// Valid reports whether r is a known role.
func (r UserRole) Valid() bool {
	switch r {
	case RoleSuperAdmin, RoleAdmin, RoleUser:
		return true
	}
	return false
}

// ParseInvitableRole converts a request string into a role that may be
// assigned through an invitation. Super admin is never invitable.
func ParseInvitableRole(s string) (UserRole, bool) {
	switch UserRole(s) {
	case RoleAdmin:
		return RoleAdmin, true
	case RoleUser:
		return RoleUser, true
	}
	return "", false
}

// InvitationStatus represents the lifecycle state of an invitation
type InvitationStatus string

const (
	InvitationPending   InvitationStatus = "pending"
	InvitationAccepted  InvitationStatus = "accepted"
	InvitationExpired   InvitationStatus = "expired"
	InvitationCancelled InvitationStatus = "cancelled"
)

// Terminal reports whether the status admits no further transitions.
func (s InvitationStatus) Terminal() bool {
	return s == InvitationAccepted || s == InvitationExpired || s == InvitationCancelled
}

// Tenant represents an isolated company owning its own users and devices
type Tenant struct {
	ID         string    `json:"id" gorm:"primaryKey;type:varchar(36)"`
	Name       string    `json:"name" gorm:"type:varchar(255);not null"`
	Subdomain  *string   `json:"subdomain" gorm:"type:varchar(100);uniqueIndex"`
	LogoURL    string    `json:"logoUrl" gorm:"type:varchar(500)"`
	IsActive   bool      `json:"isActive" gorm:"not null;default:true"`
	MaxUsers   int       `json:"maxUsers" gorm:"not null;default:10"`
	MaxDevices int       `json:"maxDevices" gorm:"not null;default:5"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// User represents a user account. Authentication happens via external
// SSO; there is no password column.
type User struct {
	ID                string     `json:"id" gorm:"primaryKey;type:varchar(36)"`
	Email             string     `json:"email" gorm:"type:varchar(255);uniqueIndex;not null"`
	GoogleID          *string    `json:"-" gorm:"type:varchar(255);uniqueIndex"`
	FullName          string     `json:"fullName" gorm:"type:varchar(255);not null"`
	ProfilePictureURL string     `json:"profilePictureUrl" gorm:"type:varchar(500)"`
	Role              UserRole   `json:"role" gorm:"type:varchar(50);not null;default:'user';index"`
	TenantID          *string    `json:"tenantId" gorm:"type:varchar(36);index"` // null only for super_admin
	CanAddDevices     bool       `json:"canAddDevices" gorm:"not null;default:false"`
	IsActive          bool       `json:"isActive" gorm:"not null;default:true"`
	LastLogin         *time.Time `json:"lastLogin"`
	CreatedAt         time.Time  `json:"createdAt"`
	UpdatedAt         time.Time  `json:"updatedAt"`
}

// Invitation represents a token-based onboarding offer
type Invitation struct {
	ID         string           `json:"id" gorm:"primaryKey;type:varchar(36)"`
	Email      string           `json:"email" gorm:"type:varchar(255);not null;index"`
	Role       UserRole         `json:"role" gorm:"type:varchar(50);not null"`
	TenantID   string           `json:"tenantId" gorm:"type:varchar(36);not null;index"`
	InvitedBy  *string          `json:"invitedBy" gorm:"type:varchar(36)"`
	Token      string           `json:"-" gorm:"type:varchar(255);uniqueIndex;not null"`
	Status     InvitationStatus `json:"status" gorm:"type:varchar(50);not null;default:'pending';index"`
	ExpiresAt  time.Time        `json:"expiresAt" gorm:"not null"`
	CreatedAt  time.Time        `json:"createdAt"`
	AcceptedAt *time.Time       `json:"acceptedAt"`
}

// Expired reports whether the invitation is past its expiry at now.
// The instant expires_at itself is already expired.
func (i *Invitation) Expired(now time.Time) bool {
	return !now.Before(i.ExpiresAt)
}

// Valid reports whether the invitation can still be accepted at now.
func (i *Invitation) Valid(now time.Time) bool {
	return i.Status == InvitationPending && !i.Expired(now)
}

// URL returns the acceptance link embedded in invitation emails.
func (i *Invitation) URL(baseURL string) string {
	return fmt.Sprintf("%s/accept-invitation?token=%s", baseURL, i.Token)
}

// NewInvitationToken returns 32 bytes of cryptographic randomness in
// URL-safe encoding.
func NewInvitationToken() (string, error) {
	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(raw), nil
}

// Device represents a Smart TV endpoint. Unlinked devices carry a
// 4-digit pairing code; linked devices belong to a user and tenant and
// carry no code.
type Device struct {
	ID                string     `json:"id" gorm:"primaryKey;type:varchar(36)"`
	UserID            *string    `json:"userId" gorm:"type:varchar(36);index"`
	TenantID          *string    `json:"tenantId" gorm:"type:varchar(36);index"`
	Name              string     `json:"name" gorm:"type:varchar(255);not null"`
	Code              *string    `json:"-" gorm:"column:device_code;type:varchar(4);uniqueIndex"`
	HardwareID        string     `json:"hardwareId" gorm:"type:varchar(255);uniqueIndex;not null"`
	IsOnline          bool       `json:"isOnline" gorm:"not null;default:false"`
	IsLinked          bool       `json:"isLinked" gorm:"not null;default:false"`
	CurrentPlaylistID *string    `json:"currentPlaylistId" gorm:"type:varchar(36)"`
	LastSeen          *time.Time `json:"lastSeen"`
	CodeIssuedAt      time.Time  `json:"-"`
	CreatedAt         time.Time  `json:"createdAt"`
	UpdatedAt         time.Time  `json:"updatedAt"`
	LinkedAt          *time.Time `json:"linkedAt"`
}

// CodeExpired reports whether the pairing code is stale at now. Linked
// devices have no code and are never expired.
func (d *Device) CodeExpired(now time.Time, ttl time.Duration) bool {
	if d.IsLinked || d.Code == nil {
		return false
	}
	return now.Sub(d.CodeIssuedAt) > ttl
}

// Offline reports whether the device should be considered offline at
// now. A device that never sent a heartbeat is offline.
func (d *Device) Offline(now time.Time, timeout time.Duration) bool {
	if d.LastSeen == nil {
		return true
	}
	return now.Sub(*d.LastSeen) > timeout
}

// NewDeviceCode returns a random 4-digit pairing code, leading zeros
// preserved.
func NewDeviceCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(10000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%04d", n.Int64()), nil
}

// GoogleCredential holds a tenant's OAuth client credentials. Secret
// columns are vault-encrypted before they reach this layer.
type GoogleCredential struct {
	ID                  string     `json:"id" gorm:"primaryKey;type:varchar(36)"`
	TenantID            string     `json:"tenantId" gorm:"type:varchar(36);uniqueIndex;not null"`
	ClientID            string     `json:"clientId" gorm:"type:varchar(500);not null"`
	ClientSecret        string     `json:"-" gorm:"type:text;not null"` // encrypted
	ProjectID           string     `json:"projectId" gorm:"type:varchar(255)"`
	ServiceAccountEmail string     `json:"serviceAccountEmail" gorm:"type:varchar(255)"`
	CredentialsJSON     string     `json:"-" gorm:"type:text;not null"` // encrypted
	IsValid             bool       `json:"isValid" gorm:"not null;default:true"`
	CreatedBy           *string    `json:"createdBy" gorm:"type:varchar(36)"`
	CreatedAt           time.Time  `json:"createdAt"`
	UpdatedAt           time.Time  `json:"updatedAt"`
	LastValidated       *time.Time `json:"lastValidated"`
}

// GoogleDriveToken holds a user's Drive OAuth tokens, encrypted at rest.
type GoogleDriveToken struct {
	ID           string    `json:"id" gorm:"primaryKey;type:varchar(36)"`
	UserID       string    `json:"userId" gorm:"type:varchar(36);uniqueIndex;not null"`
	AccessToken  string    `json:"-" gorm:"type:text;not null"` // encrypted
	RefreshToken string    `json:"-" gorm:"type:text;not null"` // encrypted
	TokenExpiry  time.Time `json:"tokenExpiry" gorm:"not null"`
	Scope        string    `json:"scope" gorm:"type:text"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// Expired reports whether the access token is past its expiry at now.
func (t *GoogleDriveToken) Expired(now time.Time) bool {
	return !now.Before(t.TokenExpiry)
}

// NeedsRefresh reports whether the access token expires within buffer.
func (t *GoogleDriveToken) NeedsRefresh(now time.Time, buffer time.Duration) bool {
	return !now.Before(t.TokenExpiry.Add(-buffer))
}

// AuditLog is an append-only record of a state-changing operation.
// Rows are never updated or deleted by the application.
type AuditLog struct {
	ID           string    `json:"id" gorm:"primaryKey;type:varchar(36)"`
	UserID       *string   `json:"userId" gorm:"type:varchar(36);index"` // null for system actions
	Action       string    `json:"action" gorm:"type:varchar(100);not null;index"`
	ResourceType string    `json:"resourceType" gorm:"type:varchar(50)"`
	ResourceID   *string   `json:"resourceId" gorm:"type:varchar(36)"`
	Details      string    `json:"details" gorm:"type:text"` // JSON stored as text
	IPAddress    string    `json:"ipAddress" gorm:"type:varchar(45)"`
	UserAgent    string    `json:"userAgent" gorm:"type:varchar(500)"`
	CreatedAt    time.Time `json:"createdAt" gorm:"index"`
}
