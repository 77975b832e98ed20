// Package jwt provides JWT token generation and validation utilities.
package jwt

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/northstarhq/api/pkg/domain/tenant"
)

var (
	// ErrInvalidToken is returned when the token is invalid.
	ErrInvalidToken = errors.New("invalid token")
	// ErrExpiredToken is returned when the token has expired.
	ErrExpiredToken = errors.New("token has expired")
	// ErrEmptyUserID is returned when user_id is empty.
	ErrEmptyUserID = errors.New("user_id cannot be empty")
	// ErrInvalidTokenType is returned when token type is invalid.
	ErrInvalidTokenType = errors.New("invalid token type")
)

// TokenType represents the type of JWT token.
type TokenType string

const (
	// TokenTypeAccess is a short-lived access token. Refresh tokens are
	// opaque values managed by the session package, not JWTs.
	TokenTypeAccess TokenType = "access"
)

// TenantMembership represents a user's membership in a tenant.
type TenantMembership struct {
	TenantID   string `json:"tenant_id"`
	TenantSlug string `json:"tenant_slug,omitempty"`
	Role       string `json:"role"` // owner, admin, member
	IsDefault  bool   `json:"is_default,omitempty"`
}

// Claims represents the JWT claims structure. The system role is an
// explicit claim; platform-admin checks read it and nothing else.
type Claims struct {
	UserID    string    `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name,omitempty"`
	SessionID string    `json:"session_id,omitempty"`
	TokenType TokenType `json:"token_type,omitempty"`

	// Multi-tenant access control
	Tenants    []TenantMembership `json:"tenants,omitempty"`
	SystemRole string             `json:"system_role,omitempty"` // user, admin

	jwt.RegisteredClaims
}

// IsSystemAdmin reports whether the claims carry the platform admin role.
func (c *Claims) IsSystemAdmin() bool {
	return c.SystemRole == "admin"
}

// HasTenantAccess checks if user has access to a specific tenant.
func (c *Claims) HasTenantAccess(tenantID string) bool {
	for _, t := range c.Tenants {
		if t.TenantID == tenantID {
			return true
		}
	}
	return false
}

// GetTenantRole returns the user's role in a specific tenant.
func (c *Claims) GetTenantRole(tenantID string) string {
	for _, t := range c.Tenants {
		if t.TenantID == tenantID {
			return t.Role
		}
	}
	return ""
}

// HasTenantRole checks if user has a specific role (or higher) in a tenant.
// Role hierarchy: owner > admin > member
func (c *Claims) HasTenantRole(tenantID string, requiredRole string) bool {
	userRole := c.GetTenantRole(tenantID)
	if userRole == "" {
		return false
	}
	return roleLevel(userRole) >= roleLevel(requiredRole)
}

// DefaultTenantID returns the tenant ID of the default membership,
// or empty when the user has none.
func (c *Claims) DefaultTenantID() string {
	for _, t := range c.Tenants {
		if t.IsDefault {
			return t.TenantID
		}
	}
	return ""
}

// GetAccessibleTenantIDs returns all tenant IDs the user has access to.
func (c *Claims) GetAccessibleTenantIDs() []string {
	ids := make([]string, len(c.Tenants))
	for i, t := range c.Tenants {
		ids[i] = t.TenantID
	}
	return ids
}

// roleLevel returns the numeric level of a role for comparison.
// Uses tenant.Role constants for type safety.
func roleLevel(role string) int {
	r := tenant.Role(role)
	return r.Priority()
}

// TokenConfig holds configuration for token generation.
type TokenConfig struct {
	Secret              string
	Issuer              string
	AccessTokenDuration time.Duration
}

// Generator handles JWT token generation and validation.
type Generator struct {
	config TokenConfig
}

// NewGenerator creates a new token generator.
func NewGenerator(config TokenConfig) *Generator {
	return &Generator{config: config}
}

// GenerateAccessToken creates an access token carrying the user's
// tenant memberships and system role.
func (g *Generator) GenerateAccessToken(userID, email, name, sessionID, systemRole string, tenants []TenantMembership) (string, time.Time, error) {
	if userID == "" {
		return "", time.Time{}, ErrEmptyUserID
	}

	now := time.Now()
	expiresAt := now.Add(g.config.AccessTokenDuration)

	claims := Claims{
		UserID:     userID,
		Email:      email,
		Name:       name,
		SessionID:  sessionID,
		TokenType:  TokenTypeAccess,
		Tenants:    tenants,
		SystemRole: systemRole,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    g.config.Issuer,
			Subject:   userID,
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signedToken, err := token.SignedString([]byte(g.config.Secret))
	if err != nil {
		return "", time.Time{}, err
	}

	return signedToken, expiresAt, nil
}

// ValidateToken validates the token and returns the claims.
func (g *Generator) ValidateToken(tokenString string) (*Claims, error) {
	return ValidateToken(tokenString, g.config.Secret)
}

// ValidateAccessToken validates an access token specifically.
func (g *Generator) ValidateAccessToken(tokenString string) (*Claims, error) {
	claims, err := g.ValidateToken(tokenString)
	if err != nil {
		return nil, err
	}

	if claims.TokenType != TokenTypeAccess && claims.TokenType != "" {
		return nil, ErrInvalidTokenType
	}

	return claims, nil
}

// ValidateToken validates the token and returns the claims.
func ValidateToken(tokenString, secret string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}

	return claims, nil
}

// GenerateShortLivedToken creates a short-lived token for WebSocket
// authentication. Used when WebSocket connections cannot use httpOnly
// cookies due to cross-origin restrictions; the token is passed as a
// query parameter during the handshake.
func (g *Generator) GenerateShortLivedToken(userID, tenantID, role string, ttl time.Duration) (string, error) {
	if userID == "" {
		return "", ErrEmptyUserID
	}

	now := time.Now()
	expiresAt := now.Add(ttl)

	claims := Claims{
		UserID:    userID,
		TokenType: TokenTypeAccess,
		Tenants: []TenantMembership{
			{TenantID: tenantID, Role: role},
		},
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    g.config.Issuer,
			Subject:   userID,
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(g.config.Secret))
}
