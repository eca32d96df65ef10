package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/stackmesh/authgate/internal/token"
)

const usernameKey = "authUsername"

// Auth validates the Authorization header and attaches the verified username.
type Auth struct {
	Verifier *token.Verifier
	Logger   *zap.Logger
}

// RequireSession ensures the request carries a valid bearer session token.
func (m *Auth) RequireSession(c *gin.Context) {
	header := c.GetHeader("Authorization")
	if header == "" || !strings.HasPrefix(header, "Bearer ") {
		m.log().Warn("missing or malformed authorization header",
			zap.String("event", "auth-missing-header"),
			zap.String("path", c.Request.URL.Path),
		)
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	claims, err := m.Verifier.Verify(strings.TrimPrefix(header, "Bearer "))
	if err != nil {
		m.log().Warn("session token rejected",
			zap.String("event", "auth-token-invalid"),
			zap.String("reason", verifyFailureReason(err)),
		)
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
		return
	}

	c.Set(usernameKey, claims.Username)
	c.Next()
}

// SessionUsername returns the username attached by RequireSession.
func SessionUsername(c *gin.Context) (string, bool) {
	value, ok := c.Get(usernameKey)
	if !ok {
		return "", false
	}
	username, ok := value.(string)
	return username, ok
}

func verifyFailureReason(err error) string {
	switch {
	case errors.Is(err, token.ErrExpired):
		return "expired"
	case errors.Is(err, token.ErrSignature):
		return "signature mismatch"
	default:
		return "malformed"
	}
}

func (m *Auth) log() *zap.Logger {
	if m != nil && m.Logger != nil {
		return m.Logger
	}
	return zap.L()
}
