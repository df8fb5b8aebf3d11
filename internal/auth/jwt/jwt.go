// Package jwt issues and validates the signed access and refresh tokens
// used by the API.
package jwt

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/Phantom-bronze/UserModule/internal/common/config"
)

const (
	// TokenTypeAccess marks short-lived tokens accepted by API routes.
	TokenTypeAccess = "access"
	// TokenTypeRefresh marks long-lived tokens accepted only by the
	// refresh endpoint.
	TokenTypeRefresh = "refresh"
)

// ErrInvalidCredentials is the single error returned for every
// validation failure. Callers must not learn whether a token was
// malformed, expired, mis-signed or of the wrong type.
var ErrInvalidCredentials = errors.New("could not validate credentials")

// Claims represents the payload carried by both token types. TenantID
// is omitted for super admins, who are not bound to a tenant.
type Claims struct {
	UserID    string `json:"sub"`
	Email     string `json:"email"`
	Role      string `json:"role,omitempty"`
	TenantID  string `json:"tenant_id,omitempty"`
	TokenType string `json:"type"`
	jwt.RegisteredClaims
}

// Service handles JWT operations
type Service struct {
	secretKey       []byte
	accessDuration  time.Duration
	refreshDuration time.Duration
}

// NewService creates a new JWT service
func NewService(cfg config.JWTConfig) (*Service, error) {
	if cfg.SecretKey == "" {
		return nil, errors.New("JWT secret key cannot be empty")
	}
	if len(cfg.SecretKey) < 32 {
		return nil, errors.New("JWT secret key must be at least 32 characters")
	}
	if cfg.AccessDuration <= 0 {
		return nil, errors.New("JWT access token duration must be positive")
	}
	if cfg.RefreshDuration <= 0 {
		return nil, errors.New("JWT refresh token duration must be positive")
	}

	return &Service{
		secretKey:       []byte(cfg.SecretKey),
		accessDuration:  cfg.AccessDuration,
		refreshDuration: cfg.RefreshDuration,
	}, nil
}

// TokenSubject identifies the user a token is minted for.
type TokenSubject struct {
	UserID   string
	Email    string
	Role     string
	TenantID string // empty for super admins
}

// GenerateAccessToken creates a short-lived token carrying the user's
// identity and authorization context.
func (s *Service) GenerateAccessToken(sub TokenSubject) (string, error) {
	return s.generate(sub, TokenTypeAccess, s.accessDuration, true)
}

// GenerateRefreshToken creates a long-lived token carrying identity
// only. Role and tenant are re-read from storage on refresh so that
// role changes take effect without waiting out the refresh window.
func (s *Service) GenerateRefreshToken(sub TokenSubject) (string, error) {
	return s.generate(sub, TokenTypeRefresh, s.refreshDuration, false)
}

func (s *Service) generate(sub TokenSubject, tokenType string, ttl time.Duration, withAuthz bool) (string, error) {
	now := time.Now()
	claims := Claims{
		UserID:    sub.UserID,
		Email:     sub.Email,
		TokenType: tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	if withAuthz {
		claims.Role = sub.Role
		claims.TenantID = sub.TenantID
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secretKey)
}

// ValidateAccessToken validates a token and requires the access type.
func (s *Service) ValidateAccessToken(tokenString string) (*Claims, error) {
	return s.validate(tokenString, TokenTypeAccess)
}

// ValidateRefreshToken validates a token and requires the refresh type.
func (s *Service) ValidateRefreshToken(tokenString string) (*Claims, error) {
	return s.validate(tokenString, TokenTypeRefresh)
}

func (s *Service) validate(tokenString, wantType string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidCredentials
		}
		return s.secretKey, nil
	})
	if err != nil || !token.Valid {
		return nil, ErrInvalidCredentials
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || claims.TokenType != wantType || claims.UserID == "" {
		return nil, ErrInvalidCredentials
	}
	return claims, nil
}

// RefreshTTL exposes the refresh window, used to bound how long a
// consumed token id must stay blacklisted.
func (s *Service) RefreshTTL() time.Duration {
	return s.refreshDuration
}
