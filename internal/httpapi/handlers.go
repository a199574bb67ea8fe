package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"profile-api/internal/auth"
	"profile-api/pkg/logger"

	"github.com/gin-gonic/gin"
)

// Authenticator exchanges a credential for an access token.
type Authenticator interface {
	Login(ctx context.Context, cred auth.Credential) (auth.Token, error)
}

// Handlers groups HTTP handlers for dependency injection.
// Keep these thin: parse input, call internal services, return JSON.
type Handlers struct {
	Auth Authenticator
}

const maxLoginBody = 4 << 10

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// Login answers POST /v1/auth/login.
func (h Handlers) Login(c *gin.Context) {
	if h.Auth == nil {
		abortInternal(c)
		return
	}
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxLoginBody)
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"code": "bad_request", "error": "invalid json"})
		return
	}

	tok, err := h.Auth.Login(c.Request.Context(), auth.Credential{Username: req.Username, Password: req.Password})
	switch {
	case err == nil:
	case errors.Is(err, auth.ErrInvalidCredential):
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"code": "conflict", "error": "authentication failed"})
		return
	default:
		if !errors.Is(err, auth.ErrInternal) {
			logger.FromGin(c).Error("login: unexpected error", "err", err)
		}
		abortInternal(c)
		return
	}

	c.Header("Cache-Control", "no-store")
	c.JSON(http.StatusOK, loginResponse{
		AccessToken: tok.Raw,
		TokenType:   "Bearer",
		ExpiresAt:   tok.ExpiresAt.UTC(),
	})
}

type meResponse struct {
	UserID        int64     `json:"user_id"`
	PasswordEpoch int64     `json:"password_epoch"`
	ExpiresAt     time.Time `json:"expires_at"`
}

// Me answers GET /v1/me from the verified token. Route it behind
// authz.RequireAuthenticated.
func (h Handlers) Me(c *gin.Context) {
	id, ok := auth.IdentityFrom(c.Request.Context())
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"code": "unauthorized", "error": "authentication required"})
		return
	}
	c.JSON(http.StatusOK, meResponse{
		UserID:        id.UserID,
		PasswordEpoch: id.PasswordEpoch,
		ExpiresAt:     id.ExpiresAt.UTC(),
	})
}

func abortInternal(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"code": "internal_error", "error": "internal server error"})
}
