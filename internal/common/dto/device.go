package dto

import "time"

// RegisterDeviceRequest is sent by a TV on first boot. Unauthenticated;
// the hardware id is the device's stable identity.
type RegisterDeviceRequest struct {
	HardwareID string `json:"hardwareId" binding:"required,max=255"`
	Name       string `json:"name" binding:"omitempty,max=255"`
}

// RegisterDeviceResponse returns the pairing code shown on screen.
type RegisterDeviceResponse struct {
	DeviceID      string    `json:"deviceId"`
	Code          string    `json:"code"`
	CodeExpiresAt time.Time `json:"codeExpiresAt"`
	IsLinked      bool      `json:"isLinked"`
}

// HeartbeatRequest is the periodic device check-in.
type HeartbeatRequest struct {
	HardwareID string `json:"hardwareId" binding:"required,max=255"`
}

// HeartbeatResponse tells the device its current assignment.
type HeartbeatResponse struct {
	IsLinked          bool    `json:"isLinked"`
	CurrentPlaylistID *string `json:"currentPlaylistId,omitempty"`
}

// LinkDeviceRequest claims a device by pairing code.
type LinkDeviceRequest struct {
	Code string `json:"code" binding:"required,len=4,numeric"`
	Name string `json:"name" binding:"omitempty,max=255"`
}

// UpdateDeviceRequest renames a device or changes its playlist.
type UpdateDeviceRequest struct {
	Name              *string `json:"name" binding:"omitempty,max=255"`
	CurrentPlaylistID *string `json:"currentPlaylistId"`
}

// DeviceResponse is the public shape of a device.
type DeviceResponse struct {
	ID                string     `json:"id"`
	Name              string     `json:"name"`
	HardwareID        string     `json:"hardwareId"`
	UserID            *string    `json:"userId,omitempty"`
	TenantID          *string    `json:"tenantId,omitempty"`
	IsOnline          bool       `json:"isOnline"`
	IsLinked          bool       `json:"isLinked"`
	CurrentPlaylistID *string    `json:"currentPlaylistId,omitempty"`
	LastSeen          *time.Time `json:"lastSeen,omitempty"`
	LinkedAt          *time.Time `json:"linkedAt,omitempty"`
	CreatedAt         time.Time  `json:"createdAt"`
}
