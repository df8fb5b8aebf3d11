package dto

import "time"

// CreateInvitationRequest invites an email address into a tenant.
// TenantID is required for super admins and ignored for admins, who
// always invite into their own tenant.
type CreateInvitationRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Role     string `json:"role" binding:"required,oneof=admin user"`
	TenantID string `json:"tenantId"`
}

// InvitationResponse is the public shape of an invitation.
type InvitationResponse struct {
	ID         string     `json:"id"`
	Email      string     `json:"email"`
	Role       string     `json:"role"`
	TenantID   string     `json:"tenantId"`
	InvitedBy  *string    `json:"invitedBy,omitempty"`
	Status     string     `json:"status"`
	ExpiresAt  time.Time  `json:"expiresAt"`
	CreatedAt  time.Time  `json:"createdAt"`
	AcceptedAt *time.Time `json:"acceptedAt,omitempty"`
}

// InvitationPreviewResponse is shown to the invitee before they sign
// in; it never exposes who issued the invitation.
type InvitationPreviewResponse struct {
	Email      string `json:"email"`
	Role       string `json:"role"`
	TenantName string `json:"tenantName"`
	Valid      bool   `json:"valid"`
}
