// Package csrf implements double-submit CSRF protection. The seed lives in a
// signed httpOnly cookie; the token handed to the client is an HMAC over the
// same seed, so a valid pair can only be produced by this service.
package csrf

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	// CookieName matches the original cookie key.
	CookieName = "_csrf"
	// HeaderName carries the submitted token on state-changing requests.
	HeaderName = "X-CSRF-Token"
	// FormField is the body fallback for form submissions.
	FormField = "_csrf"

	seedLen      = 32
	cookieLabel  = "authgate.csrf.cookie"
	tokenLabel   = "authgate.csrf.token"
	cookieMaxAge = 12 * 3600
)

// Guard issues and validates CSRF token/cookie pairs.
type Guard struct {
	secret []byte
	secure bool
	logger *zap.Logger
}

// NewGuard constructs a guard keyed by the cookie-signing secret.
func NewGuard(secret string, secure bool, logger *zap.Logger) *Guard {
	if logger == nil {
		logger = zap.L()
	}
	return &Guard{secret: []byte(secret), secure: secure, logger: logger}
}

// IssueToken mints a fresh seed, binds it to the signed cookie, and returns
// the matching token for the client to submit later.
func (g *Guard) IssueToken(c *gin.Context) (string, error) {
	seed := make([]byte, seedLen)
	if _, err := rand.Read(seed); err != nil {
		return "", fmt.Errorf("generate csrf seed: %w", err)
	}

	encoded := base64.RawURLEncoding.EncodeToString(seed)
	cookieValue := encoded + "." + g.sign(cookieLabel, encoded)

	http.SetCookie(c.Writer, &http.Cookie{
		Name:     CookieName,
		Value:    cookieValue,
		Path:     "/",
		MaxAge:   cookieMaxAge,
		HttpOnly: true,
		Secure:   g.secure,
		SameSite: http.SameSiteStrictMode,
	})

	return g.sign(tokenLabel, encoded), nil
}

// Validate checks the submitted token against the cookie-bound seed.
func (g *Guard) Validate(c *gin.Context) bool {
	cookie, err := c.Cookie(CookieName)
	if err != nil {
		return false
	}
	seed, ok := g.verifyCookie(cookie)
	if !ok {
		return false
	}

	submitted := strings.TrimSpace(c.GetHeader(HeaderName))
	if submitted == "" {
		submitted = strings.TrimSpace(c.PostForm(FormField))
	}
	if submitted == "" {
		return false
	}

	expected := g.sign(tokenLabel, seed)
	return subtle.ConstantTimeCompare([]byte(expected), []byte(submitted)) == 1
}

// Middleware rejects state-changing requests lacking a valid token/cookie
// pair before any business logic runs. Safe verbs pass through.
func (g *Guard) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		switch c.Request.Method {
		case http.MethodGet, http.MethodHead, http.MethodOptions:
			c.Next()
			return
		}
		if !g.Validate(c) {
			g.logger.Warn("csrf validation failed",
				zap.String("event", "csrf-reject"),
				zap.String("path", c.Request.URL.Path),
				zap.String("client_ip", c.ClientIP()),
			)
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Invalid CSRF token"})
			return
		}
		c.Next()
	}
}

func (g *Guard) sign(label, value string) string {
	mac := hmac.New(sha256.New, g.secret)
	mac.Write([]byte(label))
	mac.Write([]byte(value))
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}

func (g *Guard) verifyCookie(cookie string) (string, bool) {
	parts := strings.SplitN(cookie, ".", 2)
	if len(parts) != 2 {
		return "", false
	}
	expected := g.sign(cookieLabel, parts[0])
	if subtle.ConstantTimeCompare([]byte(expected), []byte(parts[1])) != 1 {
		return "", false
	}
	return parts[0], true
}
