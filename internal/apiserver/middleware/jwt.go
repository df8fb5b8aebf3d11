package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Phantom-bronze/UserModule/internal/apiserver/database"
	"github.com/Phantom-bronze/UserModule/internal/auth/jwt"
	"github.com/Phantom-bronze/UserModule/internal/common/errorx"
)

const (
	actorKey  = "actor"
	claimsKey = "claims"
)

// JWTAuth validates the Bearer access token and loads the current user.
// The user row is re-read on every request so deactivation and role
// changes apply immediately rather than when the token expires.
func JWTAuth(jwtSvc *jwt.Service, db database.Database, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			errorx.Abort(c, logger, errorx.Unauthenticated("could not validate credentials"))
			return
		}

		claims, err := jwtSvc.ValidateAccessToken(token)
		if err != nil {
			errorx.Abort(c, logger, errorx.Unauthenticated("could not validate credentials"))
			return
		}

		user, err := db.GetUserByID(c.Request.Context(), claims.UserID)
		if err != nil || !user.IsActive {
			errorx.Abort(c, logger, errorx.Unauthenticated("could not validate credentials"))
			return
		}

		c.Set(actorKey, user)
		c.Set(claimsKey, claims)
		c.Next()
	}
}

// RequireRoles rejects requests whose actor has none of the given roles.
// Must run after JWTAuth.
func RequireRoles(logger *zap.Logger, roles ...database.UserRole) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor := ActorFromContext(c)
		if actor == nil {
			errorx.Abort(c, logger, errorx.Unauthenticated("could not validate credentials"))
			return
		}
		for _, role := range roles {
			if actor.Role == role {
				c.Next()
				return
			}
		}
		errorx.Abort(c, logger, errorx.Forbidden("insufficient permissions"))
	}
}

// ActorFromContext returns the authenticated user, or nil outside
// JWTAuth-protected routes.
func ActorFromContext(c *gin.Context) *database.User {
	v, ok := c.Get(actorKey)
	if !ok {
		return nil
	}
	user, _ := v.(*database.User)
	return user
}

// ClaimsFromContext returns the validated access token claims.
func ClaimsFromContext(c *gin.Context) *jwt.Claims {
	v, ok := c.Get(claimsKey)
	if !ok {
		return nil
	}
	claims, _ := v.(*jwt.Claims)
	return claims
}
