package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/Phantom-bronze/UserModule/internal/apiserver/database"
	"github.com/Phantom-bronze/UserModule/internal/common/dto"
)

const (
	defaultPageSize = 50
	maxPageSize     = 200
)

// pagination reads offset/limit query parameters with sane bounds.
func pagination(c *gin.Context) (offset, limit int) {
	offset, _ = strconv.Atoi(c.DefaultQuery("offset", "0"))
	if offset < 0 {
		offset = 0
	}
	limit, _ = strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(defaultPageSize)))
	if limit <= 0 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	return offset, limit
}

func toUserResponse(u *database.User) *dto.UserResponse {
	return &dto.UserResponse{
		ID:                u.ID,
		Email:             u.Email,
		FullName:          u.FullName,
		ProfilePictureURL: u.ProfilePictureURL,
		Role:              string(u.Role),
		TenantID:          u.TenantID,
		CanAddDevices:     u.CanAddDevices,
		IsActive:          u.IsActive,
		LastLogin:         u.LastLogin,
		CreatedAt:         u.CreatedAt,
	}
}

func toUserResponses(users []*database.User) []*dto.UserResponse {
	out := make([]*dto.UserResponse, 0, len(users))
	for _, u := range users {
		out = append(out, toUserResponse(u))
	}
	return out
}

func toInvitationResponse(i *database.Invitation) *dto.InvitationResponse {
	return &dto.InvitationResponse{
		ID:         i.ID,
		Email:      i.Email,
		Role:       string(i.Role),
		TenantID:   i.TenantID,
		InvitedBy:  i.InvitedBy,
		Status:     string(i.Status),
		ExpiresAt:  i.ExpiresAt,
		CreatedAt:  i.CreatedAt,
		AcceptedAt: i.AcceptedAt,
	}
}

func toDeviceResponse(d *database.Device) *dto.DeviceResponse {
	return &dto.DeviceResponse{
		ID:                d.ID,
		Name:              d.Name,
		HardwareID:        d.HardwareID,
		UserID:            d.UserID,
		TenantID:          d.TenantID,
		IsOnline:          d.IsOnline,
		IsLinked:          d.IsLinked,
		CurrentPlaylistID: d.CurrentPlaylistID,
		LastSeen:          d.LastSeen,
		LinkedAt:          d.LinkedAt,
		CreatedAt:         d.CreatedAt,
	}
}

func toDeviceResponses(devices []*database.Device) []*dto.DeviceResponse {
	out := make([]*dto.DeviceResponse, 0, len(devices))
	for _, d := range devices {
		out = append(out, toDeviceResponse(d))
	}
	return out
}

func toCredentialResponse(cred *database.GoogleCredential) *dto.CredentialResponse {
	return &dto.CredentialResponse{
		ID:                  cred.ID,
		TenantID:            cred.TenantID,
		ClientID:            cred.ClientID,
		ProjectID:           cred.ProjectID,
		ServiceAccountEmail: cred.ServiceAccountEmail,
		IsValid:             cred.IsValid,
		CreatedAt:           cred.CreatedAt,
		LastValidated:       cred.LastValidated,
	}
}
