package dto

import "time"

// UserResponse is the public shape of a user account.
type UserResponse struct {
	ID                string     `json:"id"`
	Email             string     `json:"email"`
	FullName          string     `json:"fullName"`
	ProfilePictureURL string     `json:"profilePictureUrl,omitempty"`
	Role              string     `json:"role"`
	TenantID          *string    `json:"tenantId"`
	CanAddDevices     bool       `json:"canAddDevices"`
	IsActive          bool       `json:"isActive"`
	LastLogin         *time.Time `json:"lastLogin,omitempty"`
	CreatedAt         time.Time  `json:"createdAt"`
}

// UpdateUserRequest carries admin-side partial user updates.
type UpdateUserRequest struct {
	FullName      *string `json:"fullName" binding:"omitempty,max=255"`
	Role          *string `json:"role" binding:"omitempty,oneof=admin user"`
	CanAddDevices *bool   `json:"canAddDevices"`
	IsActive      *bool   `json:"isActive"`
}

// UpdateProfileRequest carries self-service profile updates.
type UpdateProfileRequest struct {
	FullName          *string `json:"fullName" binding:"omitempty,max=255"`
	ProfilePictureURL *string `json:"profilePictureUrl" binding:"omitempty,max=500"`
}
