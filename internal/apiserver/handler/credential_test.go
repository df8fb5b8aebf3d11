package handler

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Phantom-bronze/UserModule/internal/apiserver/database"
	"github.com/Phantom-bronze/UserModule/internal/common/config"
	"github.com/Phantom-bronze/UserModule/internal/common/dto"
	"github.com/Phantom-bronze/UserModule/internal/crypto"
)

const testCredentialsJSON = `{
	"web": {
		"client_id": "client-123.apps.example.com",
		"project_id": "demo-project",
		"client_secret": "top-secret-value",
		"redirect_uris": ["http://localhost:3000/callback"]
	}
}`

func TestUploadCredentialEncryptsSecrets(t *testing.T) {
	env := newTestEnv(t)
	tenant := env.createTenant("Acme")
	admin := env.createUser("admin@example.com", database.RoleAdmin, &tenant.ID)

	w := env.request(http.MethodPost, "/api/credentials", dto.UploadCredentialRequest{
		CredentialsJSON: testCredentialsJSON,
	}, admin)
	requireStatus(t, w, http.StatusCreated)
	resp := decodeBody[dto.CredentialResponse](t, w)
	assert.Equal(t, "client-123.apps.example.com", resp.ClientID)
	assert.Equal(t, "demo-project", resp.ProjectID)
	assert.Equal(t, tenant.ID, resp.TenantID)

	// The response carries no secret material.
	assert.NotContains(t, w.Body.String(), "top-secret-value")

	// At rest the secret is an opaque blob that round-trips through the
	// vault.
	stored, err := env.db.GetGoogleCredentialByTenant(testCtx(), tenant.ID)
	require.NoError(t, err)
	assert.NotEqual(t, "top-secret-value", stored.ClientSecret)
	assert.True(t, crypto.IsEncrypted(stored.ClientSecret))
	assert.True(t, crypto.IsEncrypted(stored.CredentialsJSON))

	secret, err := env.vault.Decrypt(stored.ClientSecret)
	require.NoError(t, err)
	assert.Equal(t, "top-secret-value", secret)
}

func TestUploadCredentialValidation(t *testing.T) {
	env := newTestEnv(t)
	tenant := env.createTenant("Acme")
	admin := env.createUser("admin@example.com", database.RoleAdmin, &tenant.ID)

	w := env.request(http.MethodPost, "/api/credentials", dto.UploadCredentialRequest{
		CredentialsJSON: "{not json",
	}, admin)
	requireStatus(t, w, http.StatusBadRequest)

	w = env.request(http.MethodPost, "/api/credentials", dto.UploadCredentialRequest{
		CredentialsJSON: `{"web": {"client_id": "id-only"}}`,
	}, admin)
	requireStatus(t, w, http.StatusBadRequest)
}

func TestUploadCredentialReplacesExisting(t *testing.T) {
	env := newTestEnv(t)
	tenant := env.createTenant("Acme")
	admin := env.createUser("admin@example.com", database.RoleAdmin, &tenant.ID)

	w := env.request(http.MethodPost, "/api/credentials", dto.UploadCredentialRequest{
		CredentialsJSON: testCredentialsJSON,
	}, admin)
	requireStatus(t, w, http.StatusCreated)

	w = env.request(http.MethodPost, "/api/credentials", dto.UploadCredentialRequest{
		CredentialsJSON: `{"installed": {"client_id": "new-client", "client_secret": "new-secret"}}`,
	}, admin)
	requireStatus(t, w, http.StatusCreated)

	stored, err := env.db.GetGoogleCredentialByTenant(testCtx(), tenant.ID)
	require.NoError(t, err)
	assert.Equal(t, "new-client", stored.ClientID)
}

func TestGetCredentialScoped(t *testing.T) {
	env := newTestEnv(t)
	a := env.createTenant("A")
	b := env.createTenant("B")
	adminA := env.createUser("admin-a@example.com", database.RoleAdmin, &a.ID)

	w := env.request(http.MethodPost, "/api/credentials", dto.UploadCredentialRequest{
		CredentialsJSON: testCredentialsJSON,
	}, adminA)
	requireStatus(t, w, http.StatusCreated)

	w = env.request(http.MethodGet, "/api/credentials/"+a.ID, nil, adminA)
	requireStatus(t, w, http.StatusOK)

	// Another tenant's credentials look missing.
	w = env.request(http.MethodGet, "/api/credentials/"+b.ID, nil, adminA)
	requireStatus(t, w, http.StatusNotFound)
}

func TestDeleteCredentialForbiddenForUser(t *testing.T) {
	env := newTestEnv(t)
	tenant := env.createTenant("Acme")
	admin := env.createUser("admin@example.com", database.RoleAdmin, &tenant.ID)
	user := env.createUser("user@example.com", database.RoleUser, &tenant.ID)

	w := env.request(http.MethodPost, "/api/credentials", dto.UploadCredentialRequest{
		CredentialsJSON: testCredentialsJSON,
	}, admin)
	requireStatus(t, w, http.StatusCreated)

	// The delete route itself is admin-gated.
	w = env.request(http.MethodDelete, "/api/credentials/"+tenant.ID, nil, user)
	requireStatus(t, w, http.StatusForbidden)

	w = env.request(http.MethodDelete, "/api/credentials/"+tenant.ID, nil, admin)
	requireStatus(t, w, http.StatusOK)

	_, err := env.db.GetGoogleCredentialByTenant(testCtx(), tenant.ID)
	assert.True(t, database.IsNotFound(err))
}

func TestRotateKey(t *testing.T) {
	env := newTestEnv(t)
	tenant := env.createTenant("Acme")
	super := env.createUser("root@example.com", database.RoleSuperAdmin, nil)
	admin := env.createUser("admin@example.com", database.RoleAdmin, &tenant.ID)

	w := env.request(http.MethodPost, "/api/credentials", dto.UploadCredentialRequest{
		CredentialsJSON: testCredentialsJSON,
	}, admin)
	requireStatus(t, w, http.StatusCreated)

	newKey := "rotated-master-key-0123456789abcdefgh"
	w = env.request(http.MethodPost, "/api/admin/rotate-key", dto.RotateKeyRequest{
		OldMasterKey: env.cfg.Crypto.MasterKey,
		NewMasterKey: newKey,
	}, super)
	requireStatus(t, w, http.StatusOK)
	resp := decodeBody[dto.RotateKeyResponse](t, w)
	assert.Equal(t, 1, resp.RotatedCredentials)
	assert.Equal(t, 0, resp.RotatedTokens)

	// Secrets now decrypt under the new key only.
	stored, err := env.db.GetGoogleCredentialByTenant(testCtx(), tenant.ID)
	require.NoError(t, err)
	_, err = env.vault.Decrypt(stored.ClientSecret)
	require.Error(t, err)

	rotated, err := crypto.NewVault(&config.CryptoConfig{
		MasterKey:  newKey,
		Iterations: env.cfg.Crypto.Iterations,
	})
	require.NoError(t, err)
	secret, err := rotated.Decrypt(stored.ClientSecret)
	require.NoError(t, err)
	assert.Equal(t, "top-secret-value", secret)
}

func TestRotateKeyWithWrongOldKeyRollsBack(t *testing.T) {
	env := newTestEnv(t)
	tenant := env.createTenant("Acme")
	super := env.createUser("root@example.com", database.RoleSuperAdmin, nil)
	admin := env.createUser("admin@example.com", database.RoleAdmin, &tenant.ID)

	w := env.request(http.MethodPost, "/api/credentials", dto.UploadCredentialRequest{
		CredentialsJSON: testCredentialsJSON,
	}, admin)
	requireStatus(t, w, http.StatusCreated)

	w = env.request(http.MethodPost, "/api/admin/rotate-key", dto.RotateKeyRequest{
		OldMasterKey: "completely-wrong-key-0123456789abcdef",
		NewMasterKey: "rotated-master-key-0123456789abcdefgh",
	}, super)
	requireStatus(t, w, http.StatusInternalServerError)

	// Nothing changed; the original key still decrypts.
	stored, err := env.db.GetGoogleCredentialByTenant(testCtx(), tenant.ID)
	require.NoError(t, err)
	secret, err := env.vault.Decrypt(stored.ClientSecret)
	require.NoError(t, err)
	assert.Equal(t, "top-secret-value", secret)
}

func TestRotateKeySuperAdminOnly(t *testing.T) {
	env := newTestEnv(t)
	tenant := env.createTenant("Acme")
	admin := env.createUser("admin@example.com", database.RoleAdmin, &tenant.ID)

	w := env.request(http.MethodPost, "/api/admin/rotate-key", dto.RotateKeyRequest{
		OldMasterKey: env.cfg.Crypto.MasterKey,
		NewMasterKey: "rotated-master-key-0123456789abcdefgh",
	}, admin)
	requireStatus(t, w, http.StatusForbidden)
}
