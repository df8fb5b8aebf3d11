package dto

import "time"

// UploadCredentialRequest stores a tenant's OAuth client credentials.
// CredentialsJSON is the raw JSON file downloaded from the provider
// console; the server extracts and encrypts its fields.
type UploadCredentialRequest struct {
	TenantID        string `json:"tenantId"`
	CredentialsJSON string `json:"credentialsJson" binding:"required"`
}

// CredentialResponse never includes decrypted secret material.
type CredentialResponse struct {
	ID                  string     `json:"id"`
	TenantID            string     `json:"tenantId"`
	ClientID            string     `json:"clientId"`
	ProjectID           string     `json:"projectId,omitempty"`
	ServiceAccountEmail string     `json:"serviceAccountEmail,omitempty"`
	IsValid             bool       `json:"isValid"`
	CreatedAt           time.Time  `json:"createdAt"`
	LastValidated       *time.Time `json:"lastValidated,omitempty"`
}

// RotateKeyRequest re-encrypts every stored secret under a new master
// key. Both keys are required so the operation is explicit.
type RotateKeyRequest struct {
	OldMasterKey string `json:"oldMasterKey" binding:"required"`
	NewMasterKey string `json:"newMasterKey" binding:"required,min=32"`
}

// RotateKeyResponse reports how many secrets were re-encrypted.
type RotateKeyResponse struct {
	RotatedCredentials int `json:"rotatedCredentials"`
	RotatedTokens      int `json:"rotatedTokens"`
}
