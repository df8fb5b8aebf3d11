package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/tidwall/gjson"
	"go.uber.org/zap"

	"github.com/Phantom-bronze/UserModule/internal/apiserver/audit"
	"github.com/Phantom-bronze/UserModule/internal/apiserver/database"
	"github.com/Phantom-bronze/UserModule/internal/apiserver/middleware"
	"github.com/Phantom-bronze/UserModule/internal/auth/policy"
	"github.com/Phantom-bronze/UserModule/internal/common/cnst"
	"github.com/Phantom-bronze/UserModule/internal/common/dto"
	"github.com/Phantom-bronze/UserModule/internal/common/errorx"
	"github.com/Phantom-bronze/UserModule/internal/crypto"
)

// Credential handles tenant OAuth credential storage. Secret material
// is encrypted before it touches the database and never returned.
type Credential struct {
	db     database.Database
	vault  *crypto.Vault
	audit  *audit.Recorder
	logger *zap.Logger
}

// NewCredential creates a new credential handler.
func NewCredential(db database.Database, vault *crypto.Vault, recorder *audit.Recorder, logger *zap.Logger) *Credential {
	return &Credential{db: db, vault: vault, audit: recorder, logger: logger.Named("handler.credential")}
}

// Upload stores a tenant's OAuth client file. The raw JSON is parsed
// for its identifying fields, then encrypted whole.
func (h *Credential) Upload(c *gin.Context) {
	var req dto.UploadCredentialRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errorx.Respond(c, h.logger, errorx.Validation(err.Error()))
		return
	}

	actor := middleware.ActorFromContext(c)
	tenantID := req.TenantID
	if actor.Role != database.RoleSuperAdmin {
		if actor.Role != database.RoleAdmin || actor.TenantID == nil {
			errorx.Respond(c, h.logger, errorx.Forbidden("insufficient permissions"))
			return
		}
		tenantID = *actor.TenantID
	}
	if tenantID == "" {
		errorx.Respond(c, h.logger, errorx.Validation("tenantId is required"))
		return
	}
	if !policy.CanAccessTenant(actor, tenantID) {
		errorx.Respond(c, h.logger, errorx.NotFound("tenant not found"))
		return
	}

	if !gjson.Valid(req.CredentialsJSON) {
		errorx.Respond(c, h.logger, errorx.Validation("credentialsJson is not valid JSON"))
		return
	}
	parsed := gjson.Parse(req.CredentialsJSON)
	// Both "web" and "installed" client files are accepted.
	client := parsed.Get("web")
	if !client.Exists() {
		client = parsed.Get("installed")
	}
	clientID := client.Get("client_id").String()
	clientSecret := client.Get("client_secret").String()
	if clientID == "" || clientSecret == "" {
		errorx.Respond(c, h.logger, errorx.Validation("credentials file is missing client_id or client_secret"))
		return
	}
	if crypto.IsEncrypted(clientSecret) {
		errorx.Respond(c, h.logger, errorx.Validation("client_secret appears to be already encrypted"))
		return
	}

	encryptedSecret, err := h.vault.Encrypt(clientSecret)
	if err != nil {
		errorx.Respond(c, h.logger, err)
		return
	}
	encryptedJSON, err := h.vault.Encrypt(req.CredentialsJSON)
	if err != nil {
		errorx.Respond(c, h.logger, err)
		return
	}

	cred := &database.GoogleCredential{
		ID:              uuid.NewString(),
		TenantID:        tenantID,
		ClientID:        clientID,
		ClientSecret:    encryptedSecret,
		ProjectID:       client.Get("project_id").String(),
		CredentialsJSON: encryptedJSON,
		IsValid:         true,
		CreatedBy:       &actor.ID,
	}
	if err := h.db.UpsertGoogleCredential(c.Request.Context(), cred); err != nil {
		errorx.Respond(c, h.logger, errorx.Internal(err))
		return
	}

	h.audit.Record(c, &actor.ID, cnst.ActionCredentialsAdded, cnst.ResourceCredential, &cred.ID,
		map[string]any{"tenantId": tenantID})
	c.JSON(http.StatusCreated, toCredentialResponse(cred))
}

// Get returns a tenant's credential metadata, never the secrets.
func (h *Credential) Get(c *gin.Context) {
	actor := middleware.ActorFromContext(c)
	tenantID := c.Param("tenantId")

	if !policy.CanAccessTenant(actor, tenantID) {
		errorx.Respond(c, h.logger, errorx.NotFound("credentials not found"))
		return
	}

	cred, err := h.db.GetGoogleCredentialByTenant(c.Request.Context(), tenantID)
	if err != nil {
		if database.IsNotFound(err) {
			errorx.Respond(c, h.logger, errorx.NotFound("credentials not found"))
			return
		}
		errorx.Respond(c, h.logger, errorx.Internal(err))
		return
	}
	c.JSON(http.StatusOK, toCredentialResponse(cred))
}

// Delete removes a tenant's stored credentials.
func (h *Credential) Delete(c *gin.Context) {
	actor := middleware.ActorFromContext(c)
	tenantID := c.Param("tenantId")

	if !policy.CanAccessTenant(actor, tenantID) {
		errorx.Respond(c, h.logger, errorx.NotFound("credentials not found"))
		return
	}
	if actor.Role == database.RoleUser {
		errorx.Respond(c, h.logger, errorx.Forbidden("insufficient permissions"))
		return
	}

	if err := h.db.DeleteGoogleCredential(c.Request.Context(), tenantID); err != nil {
		errorx.Respond(c, h.logger, errorx.Internal(err))
		return
	}

	h.audit.Record(c, &actor.ID, cnst.ActionCredentialsDeleted, cnst.ResourceCredential, nil,
		map[string]any{"tenantId": tenantID})
	c.JSON(http.StatusOK, gin.H{"message": "credentials deleted"})
}

// RotateKey re-encrypts every stored secret under a new master key.
// All rows rotate in one transaction; a single failure rolls the whole
// operation back so the store never mixes keys.
func (h *Credential) RotateKey(c *gin.Context) {
	var req dto.RotateKeyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errorx.Respond(c, h.logger, errorx.Validation(err.Error()))
		return
	}

	var resp dto.RotateKeyResponse
	err := h.db.Transaction(c.Request.Context(), func(ctx context.Context) error {
		creds, err := h.db.ListGoogleCredentials(ctx)
		if err != nil {
			return errorx.Internal(err)
		}
		for _, cred := range creds {
			if cred.ClientSecret, err = h.vault.Rotate(req.OldMasterKey, req.NewMasterKey, cred.ClientSecret); err != nil {
				return err
			}
			if cred.CredentialsJSON, err = h.vault.Rotate(req.OldMasterKey, req.NewMasterKey, cred.CredentialsJSON); err != nil {
				return err
			}
			if err = h.db.UpsertGoogleCredential(ctx, cred); err != nil {
				return errorx.Internal(err)
			}
			resp.RotatedCredentials++
		}

		tokens, err := h.db.ListGoogleDriveTokens(ctx)
		if err != nil {
			return errorx.Internal(err)
		}
		for _, token := range tokens {
			if token.AccessToken, err = h.vault.Rotate(req.OldMasterKey, req.NewMasterKey, token.AccessToken); err != nil {
				return err
			}
			if token.RefreshToken, err = h.vault.Rotate(req.OldMasterKey, req.NewMasterKey, token.RefreshToken); err != nil {
				return err
			}
			if err = h.db.UpsertGoogleDriveToken(ctx, token); err != nil {
				return errorx.Internal(err)
			}
			resp.RotatedTokens++
		}
		return nil
	})
	if err != nil {
		errorx.Respond(c, h.logger, err)
		return
	}

	actor := middleware.ActorFromContext(c)
	h.audit.Record(c, &actor.ID, cnst.ActionKeyRotated, cnst.ResourceCredential, nil,
		map[string]any{
			"rotatedCredentials": resp.RotatedCredentials,
			"rotatedTokens":      resp.RotatedTokens,
		})
	c.JSON(http.StatusOK, resp)
}
