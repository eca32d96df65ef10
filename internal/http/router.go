package http

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/stackmesh/authgate/internal/config"
	"github.com/stackmesh/authgate/internal/csrf"
	"github.com/stackmesh/authgate/internal/http/handler"
	httpmiddleware "github.com/stackmesh/authgate/internal/http/middleware"
	"github.com/stackmesh/authgate/internal/ratelimit"
)

// NewRouter wires the request pipeline: recovery, logging, security headers,
// rate limiting, CORS, and tracing run on every request; CSRF guards the
// state-changing auth routes; the profile route requires a bearer session.
func NewRouter(cfg config.Config, authHandler *handler.AuthHandler, authMiddleware *httpmiddleware.Auth, guard *csrf.Guard, limiter *ratelimit.Limiter) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(httpmiddleware.RequestLogger(nil))
	r.Use(httpmiddleware.SecurityHeaders())
	r.Use(limiter.Handler())
	r.Use(httpmiddleware.CORS(cfg))
	r.Use(otelgin.Middleware(cfg.ServiceName))

	r.GET("/csrf-token", authHandler.CSRFToken)
	r.GET("/ping", authHandler.Ping)

	authGroup := r.Group("/api/auth")
	{
		authGroup.POST("/register", guard.Middleware(), authHandler.Register)
		authGroup.POST("/login", guard.Middleware(), authHandler.Login)

		oauth := authGroup.Group("/oauth/google")
		{
			oauth.GET("", authHandler.OAuthRedirect)
			oauth.GET("/callback", authHandler.OAuthCallback)
		}
	}

	r.GET("/api/profile", authMiddleware.RequireSession, authHandler.Profile)

	return r
}
