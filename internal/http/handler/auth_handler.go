package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/stackmesh/authgate/internal/csrf"
	"github.com/stackmesh/authgate/internal/domain"
	httpmiddleware "github.com/stackmesh/authgate/internal/http/middleware"
	"github.com/stackmesh/authgate/internal/service"
)

var processStart = time.Now()

// AuthHandler exposes the authentication endpoints.
type AuthHandler struct {
	Auth   *service.AuthService
	OAuth  *service.OAuthService
	CSRF   *csrf.Guard
	Logger *zap.Logger
}

// NewAuthHandler creates the handler set.
func NewAuthHandler(auth *service.AuthService, oauth *service.OAuthService, guard *csrf.Guard, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{Auth: auth, OAuth: oauth, CSRF: guard, Logger: logger}
}

type credentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// CSRFToken mints a token/cookie pair for the frontend.
func (h *AuthHandler) CSRFToken(c *gin.Context) {
	tok, err := h.CSRF.IssueToken(c)
	if err != nil {
		h.log().Error("csrf token generation failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "CSRF token generation failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"csrfToken": tok})
}

// Ping is the unauthenticated health check.
func (h *AuthHandler) Ping(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"pong": true, "uptime": time.Since(processStart).Seconds()})
}

// Register creates a password account.
func (h *AuthHandler) Register(c *gin.Context) {
	var req credentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	if err := h.Auth.Register(c.Request.Context(), req.Username, req.Password); err != nil {
		h.respondAuthError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "User registered successfully"})
}

// Login verifies credentials and returns a session token.
func (h *AuthHandler) Login(c *gin.Context) {
	var req credentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	tok, err := h.Auth.Login(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		h.respondAuthError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": tok})
}

// Profile returns the authenticated user's profile.
func (h *AuthHandler) Profile(c *gin.Context) {
	username, ok := httpmiddleware.SessionUsername(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	user, err := h.Auth.Profile(c.Request.Context(), username)
	if err != nil {
		h.respondAuthError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"username": user.Username})
}

// OAuthRedirect sends the browser to the provider authorization endpoint.
func (h *AuthHandler) OAuthRedirect(c *gin.Context) {
	c.Redirect(http.StatusFound, h.OAuth.AuthorizeURL())
}

// OAuthCallback completes the authorization-code flow and redirects to the
// frontend with the session token.
func (h *AuthHandler) OAuthCallback(c *gin.Context) {
	redirect, err := h.OAuth.HandleCallback(c.Request.Context(), c.Query("code"))
	if err != nil {
		h.respondAuthError(c, err)
		return
	}
	c.Redirect(http.StatusFound, redirect)
}

// respondAuthError maps domain failures onto HTTP responses. Internal causes
// are logged, never echoed.
func (h *AuthHandler) respondAuthError(c *gin.Context, err error) {
	var validationErr *domain.ValidationError
	switch {
	case errors.As(err, &validationErr):
		c.JSON(http.StatusBadRequest, gin.H{"errors": validationErr.Fields})
	case errors.Is(err, domain.ErrUsernameTaken):
		c.JSON(http.StatusConflict, gin.H{"error": "Username already taken"})
	case errors.Is(err, domain.ErrInvalidCredentials):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
	case errors.Is(err, domain.ErrUserNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
	case errors.Is(err, domain.ErrMissingAuthCode):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing authorization code"})
	case errors.Is(err, domain.ErrExchangeFailed), errors.Is(err, domain.ErrIdentityMalformed):
		h.log().Error("oauth callback failure", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "OAuth authentication failed"})
	default:
		h.log().Error("unexpected auth failure", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal Server Error"})
	}
}

func (h *AuthHandler) log() *zap.Logger {
	if h != nil && h.Logger != nil {
		return h.Logger
	}
	return zap.L()
}
