package main

import (
	"context"
	"crypto/subtle"
	"errors"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"github.com/pavitra93/go-coliving-admin/shared/middleware"
	"github.com/pavitra93/go-coliving-admin/shared/utils"
)

// ErrInvalidCredentials is returned for any login mismatch
var ErrInvalidCredentials = errors.New("invalid credentials")

// LoginRequest represents the login request
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// LoginResponse represents the login response
type LoginResponse struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"`
	ExpiresIn   int64     `json:"expires_in"`
	ExpiresAt   time.Time `json:"expires_at"`
	Email       string    `json:"email"`
	Role        string    `json:"role"`
}

// AdminAccount is the single administrator credential
type AdminAccount struct {
	Email        string
	PasswordHash []byte
}

// NewAdminAccount validates a bcrypt hash for email
func NewAdminAccount(email, passwordHash string) (*AdminAccount, error) {
	if email == "" || passwordHash == "" {
		return nil, errors.New("ADMIN_EMAIL and ADMIN_PASSWORD_HASH are required")
	}
	if _, err := bcrypt.Cost([]byte(passwordHash)); err != nil {
		return nil, errors.New("ADMIN_PASSWORD_HASH is not a bcrypt hash")
	}
	return &AdminAccount{Email: strings.ToLower(strings.TrimSpace(email)), PasswordHash: []byte(passwordHash)}, nil
}

// Authenticate compares the password even when the email does not match so
// both failures take the same time
func (a *AdminAccount) Authenticate(email, password string) error {
	emailOK := subtle.ConstantTimeCompare([]byte(strings.ToLower(strings.TrimSpace(email))), []byte(a.Email)) == 1
	passErr := bcrypt.CompareHashAndPassword(a.PasswordHash, []byte(password))
	if !emailOK || passErr != nil {
		return ErrInvalidCredentials
	}
	return nil
}

type tokenRevoker interface {
	Revoke(ctx context.Context, tokenID string, expiresAt time.Time) error
}

func handleLogin(admin *AdminAccount, auth *middleware.AuthMiddleware, ttl time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req LoginRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			utils.BadRequestResponse(c, "email and password are required")
			return
		}

		if err := admin.Authenticate(req.Email, req.Password); err != nil {
			logrus.WithField("email", req.Email).Warn("Failed admin login")
			utils.UnauthorizedResponse(c, "Invalid credentials")
			return
		}

		token, expiresAt, err := auth.IssueToken(admin.Email, admin.Email, ttl)
		if err != nil {
			logrus.WithError(err).Error("Failed to issue token")
			utils.InternalServerErrorResponse(c, "Failed to create session")
			return
		}

		utils.OKResponse(c, "Login successful", LoginResponse{
			AccessToken: token,
			TokenType:   "Bearer",
			ExpiresIn:   int64(ttl.Seconds()),
			ExpiresAt:   expiresAt,
			Email:       admin.Email,
			Role:        middleware.RoleAdmin,
		})
	}
}

// handleVerifyToken echoes the identity of a valid token
func handleVerifyToken() gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, ok := middleware.ClaimsFrom(c)
		if !ok {
			utils.UnauthorizedResponse(c, "Invalid token")
			return
		}

		utils.OKResponse(c, "Token is valid", gin.H{
			"user_id":    claims.Subject,
			"email":      claims.Email,
			"role":       claims.Role,
			"expires_at": claims.ExpiresAt.Time,
		})
	}
}

// handleLogout revokes the presented token. Without a session store tokens
// simply run until they expire.
func handleLogout(revoker tokenRevoker) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, ok := middleware.ClaimsFrom(c)
		if !ok {
			utils.UnauthorizedResponse(c, "No active session found")
			return
		}
		if revoker == nil {
			utils.OKResponse(c, "Logout successful", gin.H{"revoked": false})
			return
		}

		if err := revoker.Revoke(c.Request.Context(), claims.ID, claims.ExpiresAt.Time); err != nil {
			logrus.WithError(err).Error("Failed to revoke session")
			utils.ServiceUnavailableResponse(c, "Failed to revoke session")
			return
		}

		utils.OKResponse(c, "Logout successful", gin.H{"revoked": true})
	}
}
