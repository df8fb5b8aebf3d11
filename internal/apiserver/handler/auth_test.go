package handler

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Phantom-bronze/UserModule/internal/apiserver/database"
	"github.com/Phantom-bronze/UserModule/internal/auth/jwt"
	"github.com/Phantom-bronze/UserModule/internal/common/dto"
	"github.com/Phantom-bronze/UserModule/internal/common/errorx"
)

func (e *testEnv) signIn(info *googleUserInfo, invitationToken string) (*database.User, bool, *database.Invitation, error) {
	var (
		user       *database.User
		newAccount bool
		inv        *database.Invitation
	)
	err := e.db.Transaction(testCtx(), func(ctx context.Context) error {
		var txErr error
		user, newAccount, inv, txErr = e.auth.loginOrRegister(ctx, info, invitationToken)
		return txErr
	})
	return user, newAccount, inv, err
}

func TestFirstSignInBootstrapsSuperAdmin(t *testing.T) {
	env := newTestEnv(t)

	user, created, _, err := env.signIn(&googleUserInfo{
		googleID: "g-1", email: "founder@example.com", name: "Founder",
	}, "")
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, database.RoleSuperAdmin, user.Role)
	assert.Nil(t, user.TenantID)
}

func TestSignInWithoutInvitationIsRejected(t *testing.T) {
	env := newTestEnv(t)
	tenant := env.createTenant("Acme")
	env.createUser("existing@example.com", database.RoleAdmin, &tenant.ID)

	_, _, _, err := env.signIn(&googleUserInfo{
		googleID: "g-2", email: "stranger@example.com", name: "Stranger",
	}, "")
	assert.True(t, errorx.IsKind(err, errorx.KindForbidden))
}

func TestSignInWithInvitation(t *testing.T) {
	env := newTestEnv(t)
	tenant := env.createTenant("Acme")
	admin := env.createUser("admin@example.com", database.RoleAdmin, &tenant.ID)

	token, err := database.NewInvitationToken()
	require.NoError(t, err)
	inv := &database.Invitation{
		ID: "inv-1", Email: "new@example.com", Role: database.RoleUser,
		TenantID: tenant.ID, InvitedBy: &admin.ID, Token: token,
		Status: database.InvitationPending, ExpiresAt: time.Now().Add(time.Hour),
	}
	require.NoError(t, env.db.CreateInvitation(testCtx(), inv))

	user, created, acceptedInv, err := env.signIn(&googleUserInfo{
		googleID: "g-3", email: "new@example.com", name: "New User",
	}, token)
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, database.RoleUser, user.Role)
	require.NotNil(t, user.TenantID)
	assert.Equal(t, tenant.ID, *user.TenantID)
	require.NotNil(t, acceptedInv)

	got, err := env.db.GetInvitationByID(testCtx(), inv.ID)
	require.NoError(t, err)
	assert.Equal(t, database.InvitationAccepted, got.Status)

	// Later sign-ins resolve to the existing account; the consumed
	// token is simply ignored.
	again, created, _, err := env.signIn(&googleUserInfo{
		googleID: "g-3", email: "new@example.com", name: "New User",
	}, token)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, user.ID, again.ID)
}

func TestSignInInvitationChecks(t *testing.T) {
	env := newTestEnv(t)
	tenant := env.createTenant("Acme")
	env.createUser("admin@example.com", database.RoleAdmin, &tenant.ID)

	newToken := func(email string, expires time.Time) string {
		token, err := database.NewInvitationToken()
		require.NoError(t, err)
		require.NoError(t, env.db.CreateInvitation(testCtx(), &database.Invitation{
			ID: "inv-" + token[:8], Email: email, Role: database.RoleUser,
			TenantID: tenant.ID, Token: token,
			Status: database.InvitationPending, ExpiresAt: expires,
		}))
		return token
	}

	// Wrong email.
	token := newToken("alice@example.com", time.Now().Add(time.Hour))
	_, _, _, err := env.signIn(&googleUserInfo{googleID: "g", email: "bob@example.com", name: "Bob"}, token)
	assert.True(t, errorx.IsKind(err, errorx.KindForbidden))

	// Expired.
	token = newToken("carol@example.com", time.Now().Add(-time.Hour))
	_, _, _, err = env.signIn(&googleUserInfo{googleID: "g", email: "carol@example.com", name: "Carol"}, token)
	assert.True(t, errorx.IsKind(err, errorx.KindConflict))

	// Unknown token.
	_, _, _, err = env.signIn(&googleUserInfo{googleID: "g", email: "dave@example.com", name: "Dave"}, "no-such-token")
	assert.True(t, errorx.IsKind(err, errorx.KindNotFound))
}

func TestSignInCapacityLimit(t *testing.T) {
	env := newTestEnv(t)
	tenant := env.createTenant("Tiny")
	tenant.MaxUsers = 1
	require.NoError(t, env.db.UpdateTenant(testCtx(), tenant))
	env.createUser("only@example.com", database.RoleAdmin, &tenant.ID)

	token, err := database.NewInvitationToken()
	require.NoError(t, err)
	require.NoError(t, env.db.CreateInvitation(testCtx(), &database.Invitation{
		ID: "inv-cap", Email: "more@example.com", Role: database.RoleUser,
		TenantID: tenant.ID, Token: token,
		Status: database.InvitationPending, ExpiresAt: time.Now().Add(time.Hour),
	}))

	_, _, _, err = env.signIn(&googleUserInfo{googleID: "g", email: "more@example.com", name: "More"}, token)
	assert.True(t, errorx.IsKind(err, errorx.KindCapacity))

	// Rejection rolled the acceptance back; the invitation stays usable.
	got, gerr := env.db.GetInvitationByID(testCtx(), "inv-cap")
	require.NoError(t, gerr)
	assert.Equal(t, database.InvitationPending, got.Status)
}

func TestDeactivatedUserCannotSignIn(t *testing.T) {
	env := newTestEnv(t)
	tenant := env.createTenant("Acme")
	user := env.createUser("gone@example.com", database.RoleUser, &tenant.ID)
	user.IsActive = false
	require.NoError(t, env.db.UpdateUser(testCtx(), user))

	_, _, _, err := env.signIn(&googleUserInfo{googleID: "g", email: user.Email, name: "Gone"}, "")
	assert.True(t, errorx.IsKind(err, errorx.KindForbidden))
}

func TestRefreshRotatesAndBlacklists(t *testing.T) {
	env := newTestEnv(t)
	tenant := env.createTenant("Acme")
	user := env.createUser("admin@example.com", database.RoleAdmin, &tenant.ID)

	refresh, err := env.jwtSvc.GenerateRefreshToken(jwt.TokenSubject{UserID: user.ID, Email: user.Email})
	require.NoError(t, err)

	w := env.request(http.MethodPost, "/api/auth/refresh", dto.RefreshRequest{RefreshToken: refresh}, nil)
	requireStatus(t, w, http.StatusOK)
	pair := decodeBody[dto.TokenPairResponse](t, w)
	assert.NotEmpty(t, pair.AccessToken)
	assert.NotEmpty(t, pair.RefreshToken)
	assert.Equal(t, "bearer", pair.TokenType)

	// Redeeming the same token again fails.
	w = env.request(http.MethodPost, "/api/auth/refresh", dto.RefreshRequest{RefreshToken: refresh}, nil)
	requireStatus(t, w, http.StatusUnauthorized)

	// The freshly issued one still works.
	w = env.request(http.MethodPost, "/api/auth/refresh", dto.RefreshRequest{RefreshToken: pair.RefreshToken}, nil)
	requireStatus(t, w, http.StatusOK)
}

func TestRefreshRejectsAccessToken(t *testing.T) {
	env := newTestEnv(t)
	tenant := env.createTenant("Acme")
	user := env.createUser("admin@example.com", database.RoleAdmin, &tenant.ID)

	w := env.request(http.MethodPost, "/api/auth/refresh", dto.RefreshRequest{RefreshToken: env.tokenFor(user)}, nil)
	requireStatus(t, w, http.StatusUnauthorized)
}

func TestRefreshRejectsDeactivatedUser(t *testing.T) {
	env := newTestEnv(t)
	tenant := env.createTenant("Acme")
	user := env.createUser("admin@example.com", database.RoleAdmin, &tenant.ID)

	refresh, err := env.jwtSvc.GenerateRefreshToken(jwt.TokenSubject{UserID: user.ID, Email: user.Email})
	require.NoError(t, err)

	user.IsActive = false
	require.NoError(t, env.db.UpdateUser(testCtx(), user))

	w := env.request(http.MethodPost, "/api/auth/refresh", dto.RefreshRequest{RefreshToken: refresh}, nil)
	requireStatus(t, w, http.StatusUnauthorized)
}

func TestMeAndVerify(t *testing.T) {
	env := newTestEnv(t)
	tenant := env.createTenant("Acme")
	user := env.createUser("me@example.com", database.RoleUser, &tenant.ID)

	w := env.request(http.MethodGet, "/api/auth/me", nil, user)
	requireStatus(t, w, http.StatusOK)
	me := decodeBody[dto.UserResponse](t, w)
	assert.Equal(t, user.Email, me.Email)

	w = env.request(http.MethodGet, "/api/auth/verify", nil, user)
	requireStatus(t, w, http.StatusOK)
	verify := decodeBody[dto.VerifyResponse](t, w)
	assert.True(t, verify.Valid)
	assert.Equal(t, user.ID, verify.UserID)

	// No token at all.
	w = env.request(http.MethodGet, "/api/auth/me", nil, nil)
	requireStatus(t, w, http.StatusUnauthorized)
}

func TestLogoutConsumesRefreshToken(t *testing.T) {
	env := newTestEnv(t)
	tenant := env.createTenant("Acme")
	user := env.createUser("bye@example.com", database.RoleUser, &tenant.ID)

	refresh, err := env.jwtSvc.GenerateRefreshToken(jwt.TokenSubject{UserID: user.ID, Email: user.Email})
	require.NoError(t, err)

	w := env.request(http.MethodPost, "/api/auth/logout", dto.RefreshRequest{RefreshToken: refresh}, user)
	requireStatus(t, w, http.StatusOK)

	w = env.request(http.MethodPost, "/api/auth/refresh", dto.RefreshRequest{RefreshToken: refresh}, nil)
	requireStatus(t, w, http.StatusUnauthorized)
}
