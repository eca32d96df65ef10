package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/stackmesh/authgate/internal/http/middleware"
	"github.com/stackmesh/authgate/internal/token"
)

func buildProtectedRouter(verifier *token.Verifier) *gin.Engine {
	gin.SetMode(gin.TestMode)
	auth := &middleware.Auth{Verifier: verifier, Logger: zap.NewNop()}

	router := gin.New()
	router.GET("/protected", auth.RequireSession, func(c *gin.Context) {
		username, ok := middleware.SessionUsername(c)
		if !ok {
			c.Status(http.StatusInternalServerError)
			return
		}
		c.JSON(http.StatusOK, gin.H{"username": username})
	})
	return router
}

func TestRequireSessionAcceptsValidToken(t *testing.T) {
	secret := []byte("middleware-secret-0123456789abcdef")
	issuer := token.NewIssuer(secret, time.Hour)
	router := buildProtectedRouter(token.NewVerifier(secret))

	signed, err := issuer.Issue("alice")
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+signed)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"username":"alice"}`, rec.Body.String())
}

func TestRequireSessionMissingHeader(t *testing.T) {
	router := buildProtectedRouter(token.NewVerifier([]byte("middleware-secret-0123456789abcdef")))

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.JSONEq(t, `{"error":"Unauthorized"}`, rec.Body.String())
}

func TestRequireSessionRejectsNonBearerScheme(t *testing.T) {
	router := buildProtectedRouter(token.NewVerifier([]byte("middleware-secret-0123456789abcdef")))

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Basic dXNlcjpwYXNz")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequireSessionRejectsForgedToken(t *testing.T) {
	otherIssuer := token.NewIssuer([]byte("attacker-secret-0123456789abcdef"), time.Hour)
	router := buildProtectedRouter(token.NewVerifier([]byte("middleware-secret-0123456789abcdef")))

	forged, err := otherIssuer.Issue("alice")
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+forged)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.JSONEq(t, `{"error":"Invalid or expired token"}`, rec.Body.String())
}
