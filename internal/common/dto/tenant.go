package dto

// CreateTenantRequest creates a new company.
type CreateTenantRequest struct {
	Name       string  `json:"name" binding:"required,max=255"`
	Subdomain  *string `json:"subdomain" binding:"omitempty,max=100"`
	LogoURL    string  `json:"logoUrl" binding:"omitempty,max=500"`
	MaxUsers   int     `json:"maxUsers" binding:"omitempty,min=1"`
	MaxDevices int     `json:"maxDevices" binding:"omitempty,min=1"`
}

// UpdateTenantRequest carries partial tenant updates. Nil fields are
// left untouched.
type UpdateTenantRequest struct {
	Name       *string `json:"name" binding:"omitempty,max=255"`
	Subdomain  *string `json:"subdomain" binding:"omitempty,max=100"`
	LogoURL    *string `json:"logoUrl" binding:"omitempty,max=500"`
	MaxUsers   *int    `json:"maxUsers" binding:"omitempty,min=1"`
	MaxDevices *int    `json:"maxDevices" binding:"omitempty,min=1"`
}
