package middleware

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	RoleAdmin = "admin"

	// SystemActor stamps ledger changes made without an authenticated user
	SystemActor = "system"

	issuer = "coliving-auth"
)

// AdminClaims are the claims of an admin session token
type AdminClaims struct {
	Email string `json:"email"`
	Role  string `json:"role"`
	jwt.RegisteredClaims
}

// Revocations reports tokens that were logged out before expiry
type Revocations interface {
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}

// AuthMiddleware validates HS256 admin tokens
type AuthMiddleware struct {
	secret  []byte
	now     func() time.Time
	revoked Revocations
}

// NewAuthMiddleware creates an authenticator for tokens signed with secret
func NewAuthMiddleware(secret string) (*AuthMiddleware, error) {
	if len(secret) < 16 {
		return nil, errors.New("JWT secret must be at least 16 characters")
	}
	return &AuthMiddleware{secret: []byte(secret), now: time.Now}, nil
}

// WithRevocations makes RequireAuth reject logged out tokens
func (am *AuthMiddleware) WithRevocations(r Revocations) *AuthMiddleware {
	am.revoked = r
	return am
}

// IssueToken signs a token for the admin identified by email
func (am *AuthMiddleware) IssueToken(subject, email string, ttl time.Duration) (string, time.Time, error) {
	now := am.now()
	expiresAt := now.Add(ttl)
	claims := AdminClaims{
		Email: email,
		Role:  RoleAdmin,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   subject,
			Issuer:    issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(am.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, expiresAt, nil
}

// ParseToken verifies signature, issuer and expiry
func (am *AuthMiddleware) ParseToken(tokenString string) (*AdminClaims, error) {
	claims := &AdminClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return am.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithTimeFunc(am.now),
	)
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, errors.New("invalid token")
	}
	return claims, nil
}

// RequireAuth rejects requests without a valid bearer token and puts the
// caller's identity on the context
func (am *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := extractToken(c)
		if tokenString == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"success": false, "error": "Authorization token required"})
			return
		}

		claims, err := am.ParseToken(tokenString)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"success": false, "error": "Invalid token"})
			return
		}

		if am.revoked != nil {
			revoked, err := am.revoked.IsRevoked(c.Request.Context(), claims.ID)
			if err != nil {
				c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"success": false, "error": "Session store unavailable"})
				return
			}
			if revoked {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"success": false, "error": "Session has been revoked"})
				return
			}
		}

		c.Set("claims", claims)
		c.Set("user_id", claims.Subject)
		c.Set("email", claims.Email)
		c.Set("role", claims.Role)
		c.Next()
	}
}

// ClaimsFrom returns the claims RequireAuth verified
func ClaimsFrom(c *gin.Context) (*AdminClaims, bool) {
	v, ok := c.Get("claims")
	if !ok {
		return nil, false
	}
	claims, ok := v.(*AdminClaims)
	return claims, ok
}

// RequireRole rejects callers whose token carries another role
func (am *AuthMiddleware) RequireRole(requiredRole string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetString("role") != requiredRole {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"success": false, "error": "Insufficient permissions"})
			return
		}
		c.Next()
	}
}

// ForwardIdentity copies the authenticated identity into X-User-* headers
// for upstream services behind the gateway
func ForwardIdentity() gin.HandlerFunc {
	return func(c *gin.Context) {
		if id := c.GetString("user_id"); id != "" {
			c.Request.Header.Set("X-User-ID", id)
			c.Request.Header.Set("X-User-Role", c.GetString("role"))
		}
		c.Next()
	}
}

// Actor returns who is making the request, for audit stamps. Services
// behind the gateway read the forwarded header.
func Actor(c *gin.Context) string {
	if id := c.GetString("user_id"); id != "" {
		return id
	}
	if id := c.GetHeader("X-User-ID"); id != "" {
		return id
	}
	return SystemActor
}

// extractToken extracts the JWT token from the Authorization header
func extractToken(c *gin.Context) string {
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		return ""
	}
	if strings.HasPrefix(authHeader, "Bearer ") {
		return strings.TrimPrefix(authHeader, "Bearer ")
	}
	return authHeader
}
