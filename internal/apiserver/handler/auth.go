package handler

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/tidwall/gjson"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"github.com/Phantom-bronze/UserModule/internal/apiserver/audit"
	"github.com/Phantom-bronze/UserModule/internal/apiserver/database"
	"github.com/Phantom-bronze/UserModule/internal/apiserver/middleware"
	"github.com/Phantom-bronze/UserModule/internal/auth/jwt"
	"github.com/Phantom-bronze/UserModule/internal/auth/storage"
	"github.com/Phantom-bronze/UserModule/internal/common/cnst"
	"github.com/Phantom-bronze/UserModule/internal/common/config"
	"github.com/Phantom-bronze/UserModule/internal/common/dto"
	"github.com/Phantom-bronze/UserModule/internal/common/errorx"
	"github.com/Phantom-bronze/UserModule/pkg/metrics"
)

const userinfoURL = "https://www.googleapis.com/oauth2/v2/userinfo"

// Auth handles login, token refresh and session introspection.
type Auth struct {
	db           database.Database
	jwtSvc       *jwt.Service
	tokens       storage.TokenStore
	audit        *audit.Recorder
	oauth        *oauth2.Config
	oauthTimeout time.Duration
	accessTTL    time.Duration
	metrics      *metrics.Metrics
	logger       *zap.Logger
}

// NewAuth creates a new auth handler.
func NewAuth(db database.Database, jwtSvc *jwt.Service, tokens storage.TokenStore, recorder *audit.Recorder, m *metrics.Metrics, cfg *config.APIServerConfig, logger *zap.Logger) *Auth {
	scopes := cfg.GoogleOAuth.Scopes
	if len(scopes) == 0 {
		scopes = []string{
			"https://www.googleapis.com/auth/userinfo.email",
			"https://www.googleapis.com/auth/userinfo.profile",
		}
	}
	return &Auth{
		db:     db,
		jwtSvc: jwtSvc,
		tokens: tokens,
		audit:  recorder,
		oauth: &oauth2.Config{
			ClientID:     cfg.GoogleOAuth.ClientID,
			ClientSecret: cfg.GoogleOAuth.ClientSecret,
			RedirectURL:  cfg.GoogleOAuth.RedirectURL,
			Scopes:       scopes,
			Endpoint:     google.Endpoint,
		},
		oauthTimeout: cfg.GoogleOAuth.Timeout,
		accessTTL:    cfg.JWT.AccessDuration,
		metrics:      m,
		logger:       logger.Named("handler.auth"),
	}
}

// GoogleLogin returns the provider consent URL the frontend redirects to.
func (h *Auth) GoogleLogin(c *gin.Context) {
	state := uuid.NewString()
	c.JSON(http.StatusOK, dto.GoogleLoginResponse{
		AuthorizationURL: h.oauth.AuthCodeURL(state, oauth2.AccessTypeOffline),
		State:            state,
	})
}

// GoogleCallback exchanges the provider code, then signs the user in.
// New accounts are created only for the very first user (bootstrap
// super admin) or against a valid invitation token.
func (h *Auth) GoogleCallback(c *gin.Context) {
	var req dto.GoogleCallbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errorx.Respond(c, h.logger, errorx.Validation(err.Error()))
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), h.oauthTimeout)
	defer cancel()

	info, err := h.fetchUserInfo(ctx, req.Code)
	if err != nil {
		errorx.Respond(c, h.logger, err)
		return
	}

	var (
		user       *database.User
		newAccount bool
		invitation *database.Invitation
	)
	err = h.db.Transaction(c.Request.Context(), func(ctx context.Context) error {
		var txErr error
		user, newAccount, invitation, txErr = h.loginOrRegister(ctx, info, req.InvitationToken)
		return txErr
	})
	if err != nil {
		h.metrics.LoginAttempt(false)
		h.audit.Record(c, nil, cnst.ActionAuthLoginFailed, cnst.ResourceUser, nil,
			map[string]any{"email": info.email})
		errorx.Respond(c, h.logger, err)
		return
	}

	pair, err := h.issueTokens(user)
	if err != nil {
		errorx.Respond(c, h.logger, errorx.Internal(err))
		return
	}

	h.metrics.LoginAttempt(true)
	h.audit.Record(c, &user.ID, cnst.ActionAuthLogin, cnst.ResourceUser, &user.ID, nil)
	if newAccount {
		h.audit.Record(c, &user.ID, cnst.ActionUserCreated, cnst.ResourceUser, &user.ID,
			map[string]any{"role": string(user.Role)})
	}
	if invitation != nil {
		h.audit.Record(c, &user.ID, cnst.ActionInvitationAccepted, cnst.ResourceInvitation, &invitation.ID, nil)
	}

	c.JSON(http.StatusOK, pair)
}

type googleUserInfo struct {
	googleID string
	email    string
	name     string
	picture  string
}

func (h *Auth) fetchUserInfo(ctx context.Context, code string) (*googleUserInfo, error) {
	token, err := h.oauth.Exchange(ctx, code)
	if err != nil {
		return nil, errorx.Unauthenticated("could not validate credentials")
	}

	resp, err := h.oauth.Client(ctx, token).Get(userinfoURL)
	if err != nil {
		return nil, errorx.Internal(fmt.Errorf("fetch userinfo: %w", err))
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, errorx.Unauthenticated("could not validate credentials")
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, errorx.Internal(fmt.Errorf("read userinfo: %w", err))
	}

	info := &googleUserInfo{
		googleID: gjson.GetBytes(body, "id").String(),
		email:    gjson.GetBytes(body, "email").String(),
		name:     gjson.GetBytes(body, "name").String(),
		picture:  gjson.GetBytes(body, "picture").String(),
	}
	if info.email == "" {
		return nil, errorx.Unauthenticated("could not validate credentials")
	}
	if info.name == "" {
		info.name = info.email
	}
	return info, nil
}

// loginOrRegister resolves the signed-in identity to a user row inside
// the caller's transaction.
func (h *Auth) loginOrRegister(ctx context.Context, info *googleUserInfo, invitationToken string) (*database.User, bool, *database.Invitation, error) {
	now := time.Now()

	existing, err := h.db.GetUserByEmail(ctx, info.email)
	if err == nil {
		if !existing.IsActive {
			return nil, false, nil, errorx.Forbidden("account is deactivated")
		}
		if existing.TenantID != nil {
			tenant, terr := h.db.GetTenantByID(ctx, *existing.TenantID)
			if terr != nil {
				return nil, false, nil, errorx.Internal(terr)
			}
			if !tenant.IsActive {
				return nil, false, nil, errorx.Forbidden("company is deactivated")
			}
		}
		existing.GoogleID = &info.googleID
		existing.ProfilePictureURL = info.picture
		existing.LastLogin = &now
		if existing.FullName == "" {
			existing.FullName = info.name
		}
		if uerr := h.db.UpdateUser(ctx, existing); uerr != nil {
			return nil, false, nil, errorx.Internal(uerr)
		}
		return existing, false, nil, nil
	}
	if !database.IsNotFound(err) {
		return nil, false, nil, errorx.Internal(err)
	}

	total, err := h.db.CountUsers(ctx)
	if err != nil {
		return nil, false, nil, errorx.Internal(err)
	}
	if total == 0 {
		// First user ever becomes the platform super admin.
		user := &database.User{
			ID:                uuid.NewString(),
			Email:             info.email,
			GoogleID:          &info.googleID,
			FullName:          info.name,
			ProfilePictureURL: info.picture,
			Role:              database.RoleSuperAdmin,
			IsActive:          true,
			LastLogin:         &now,
		}
		if cerr := h.db.CreateUser(ctx, user); cerr != nil {
			return nil, false, nil, errorx.Internal(cerr)
		}
		return user, true, nil, nil
	}

	if invitationToken == "" {
		return nil, false, nil, errorx.Forbidden("registration is by invitation only")
	}
	return h.registerByInvitation(ctx, info, invitationToken, now)
}

func (h *Auth) registerByInvitation(ctx context.Context, info *googleUserInfo, token string, now time.Time) (*database.User, bool, *database.Invitation, error) {
	inv, err := h.db.GetInvitationByToken(ctx, token)
	if err != nil {
		if database.IsNotFound(err) {
			return nil, false, nil, errorx.NotFound("invitation not found")
		}
		return nil, false, nil, errorx.Internal(err)
	}
	if inv.Email != info.email {
		return nil, false, nil, errorx.Forbidden("invitation was issued to a different email")
	}
	if !inv.Valid(now) {
		return nil, false, nil, errorx.Conflict("invitation is no longer valid")
	}

	// The tenant row is locked so the seat count cannot change between
	// the quota check and the user insert.
	tenant, err := h.db.GetTenantByIDForUpdate(ctx, inv.TenantID)
	if err != nil {
		return nil, false, nil, errorx.Internal(err)
	}
	if !tenant.IsActive {
		return nil, false, nil, errorx.Forbidden("company is deactivated")
	}
	active, err := h.db.CountActiveUsers(ctx, tenant.ID)
	if err != nil {
		return nil, false, nil, errorx.Internal(err)
	}
	if active >= int64(tenant.MaxUsers) {
		return nil, false, nil, errorx.Capacity("company has reached its user limit")
	}

	// Conditional transition; a concurrent accept or cancel wins at most
	// once.
	if err := h.db.AcceptInvitation(ctx, inv.ID, now); err != nil {
		if err == database.ErrNotPending {
			return nil, false, nil, errorx.Conflict("invitation is no longer valid")
		}
		return nil, false, nil, errorx.Internal(err)
	}

	user := &database.User{
		ID:                uuid.NewString(),
		Email:             info.email,
		GoogleID:          &info.googleID,
		FullName:          info.name,
		ProfilePictureURL: info.picture,
		Role:              inv.Role,
		TenantID:          &inv.TenantID,
		IsActive:          true,
		LastLogin:         &now,
	}
	if err := h.db.CreateUser(ctx, user); err != nil {
		return nil, false, nil, errorx.Internal(err)
	}
	return user, true, inv, nil
}

func (h *Auth) issueTokens(user *database.User) (*dto.TokenPairResponse, error) {
	sub := jwt.TokenSubject{
		UserID: user.ID,
		Email:  user.Email,
		Role:   string(user.Role),
	}
	if user.TenantID != nil {
		sub.TenantID = *user.TenantID
	}

	access, err := h.jwtSvc.GenerateAccessToken(sub)
	if err != nil {
		return nil, err
	}
	refresh, err := h.jwtSvc.GenerateRefreshToken(sub)
	if err != nil {
		return nil, err
	}

	return &dto.TokenPairResponse{
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    "bearer",
		ExpiresIn:    int64(h.accessTTL / time.Second),
		User:         toUserResponse(user),
	}, nil
}

// Refresh redeems a refresh token for a new pair. Each refresh token is
// single-use; the consumed id is blacklisted for the rest of its life.
func (h *Auth) Refresh(c *gin.Context) {
	var req dto.RefreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errorx.Respond(c, h.logger, errorx.Validation(err.Error()))
		return
	}

	claims, err := h.jwtSvc.ValidateRefreshToken(req.RefreshToken)
	if err != nil {
		errorx.Respond(c, h.logger, errorx.Unauthenticated("could not validate credentials"))
		return
	}

	ctx := c.Request.Context()
	used, err := h.tokens.IsUsed(ctx, claims.ID)
	if err != nil {
		errorx.Respond(c, h.logger, errorx.Internal(err))
		return
	}
	if used {
		errorx.Respond(c, h.logger, errorx.Unauthenticated("could not validate credentials"))
		return
	}

	user, err := h.db.GetUserByID(ctx, claims.UserID)
	if err != nil || !user.IsActive {
		errorx.Respond(c, h.logger, errorx.Unauthenticated("could not validate credentials"))
		return
	}

	if err := h.tokens.MarkUsed(ctx, claims.ID, time.Until(claims.ExpiresAt.Time)); err != nil {
		errorx.Respond(c, h.logger, errorx.Internal(err))
		return
	}

	pair, err := h.issueTokens(user)
	if err != nil {
		errorx.Respond(c, h.logger, errorx.Internal(err))
		return
	}

	h.audit.Record(c, &user.ID, cnst.ActionAuthTokenRefresh, cnst.ResourceUser, &user.ID, nil)
	c.JSON(http.StatusOK, pair)
}

// Logout invalidates the presented refresh token. Access tokens simply
// age out.
func (h *Auth) Logout(c *gin.Context) {
	actor := middleware.ActorFromContext(c)

	var req dto.RefreshRequest
	if err := c.ShouldBindJSON(&req); err == nil && req.RefreshToken != "" {
		if claims, err := h.jwtSvc.ValidateRefreshToken(req.RefreshToken); err == nil {
			_ = h.tokens.MarkUsed(c.Request.Context(), claims.ID, time.Until(claims.ExpiresAt.Time))
		}
	}

	if actor != nil {
		h.audit.Record(c, &actor.ID, cnst.ActionAuthLogout, cnst.ResourceUser, &actor.ID, nil)
	}
	c.JSON(http.StatusOK, gin.H{"message": "logged out"})
}

// Me returns the authenticated user's profile.
func (h *Auth) Me(c *gin.Context) {
	actor := middleware.ActorFromContext(c)
	c.JSON(http.StatusOK, toUserResponse(actor))
}

// Verify reports that the presented access token is valid. Reaching
// this handler at all means the middleware accepted it.
func (h *Auth) Verify(c *gin.Context) {
	actor := middleware.ActorFromContext(c)
	c.JSON(http.StatusOK, dto.VerifyResponse{
		Valid:  true,
		UserID: actor.ID,
		Email:  actor.Email,
		Role:   string(actor.Role),
	})
}
