package main

import (
	"context"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/stackmesh/authgate/internal/config"
	"github.com/stackmesh/authgate/internal/csrf"
	httptransport "github.com/stackmesh/authgate/internal/http"
	"github.com/stackmesh/authgate/internal/http/handler"
	httpmiddleware "github.com/stackmesh/authgate/internal/http/middleware"
	"github.com/stackmesh/authgate/internal/oauth"
	"github.com/stackmesh/authgate/internal/ratelimit"
	"github.com/stackmesh/authgate/internal/server"
	"github.com/stackmesh/authgate/internal/service"
	"github.com/stackmesh/authgate/internal/store"
	"github.com/stackmesh/authgate/internal/telemetry"
	"github.com/stackmesh/authgate/internal/token"
)

func main() {
	app := fx.New(
		fx.Provide(
			newConfig,
			newLogger,
			newTelemetry,
			newSnowflake,
			newUserDirectory,
			newTokenIssuer,
			newTokenVerifier,
			newOAuthClient,
			newCSRFGuard,
			newRateLimiter,
			newAuthService,
			newOAuthService,
			newAuthMiddleware,
			newAuthHandler,
			httptransport.NewRouter,
			server.NewHTTPServer,
		),
		fx.Invoke(useTelemetry, startHTTPServer),
	)

	app.Run()
}

func newConfig() (config.Config, error) {
	return config.Load()
}

func newLogger(cfg config.Config) (*zap.Logger, error) {
	var (
		logger *zap.Logger
		err    error
	)
	if cfg.Environment == "development" {
		logger, err = zap.NewDevelopment()
	} else {
		logger, err = zap.NewProduction()
	}
	if err != nil {
		return nil, err
	}
	zap.ReplaceGlobals(logger)
	return logger, nil
}

func newTelemetry(lc fx.Lifecycle, cfg config.Config, logger *zap.Logger) (*telemetry.Provider, error) {
	provider, err := telemetry.New(context.Background(), cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("telemetry init: %w", err)
	}

	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			stopCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			defer cancel()
			return provider.Shutdown(stopCtx)
		},
	})

	return provider, nil
}

func newSnowflake() (*snowflake.Node, error) {
	return snowflake.NewNode(1)
}

// newUserDirectory selects Postgres when DATABASE_URL is set, otherwise the
// ephemeral in-memory directory.
func newUserDirectory(lc fx.Lifecycle, cfg config.Config, logger *zap.Logger) (store.UserDirectory, error) {
	if cfg.DatabaseURL == "" {
		logger.Warn("using in-memory user directory; records are lost on restart")
		return store.NewMemoryDirectory(), nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			pool.Close()
			return nil
		},
	})

	return store.NewPostgresDirectory(pool), nil
}

func newTokenIssuer(cfg config.Config) *token.Issuer {
	return token.NewIssuer([]byte(cfg.SessionSecret), cfg.SessionTTL)
}

func newTokenVerifier(cfg config.Config) *token.Verifier {
	return token.NewVerifier([]byte(cfg.SessionSecret))
}

func newOAuthClient(cfg config.Config) *oauth.Client {
	return oauth.NewClient(oauth.Config{
		Provider:     "google",
		ClientID:     cfg.GoogleClientID,
		ClientSecret: cfg.GoogleClientSecret,
		RedirectURL:  cfg.OAuthCallbackURL,
	}, nil)
}

func newCSRFGuard(cfg config.Config, logger *zap.Logger) *csrf.Guard {
	return csrf.NewGuard(cfg.CookieSecret, cfg.Environment == "production", logger)
}

// newRateLimiter selects Redis-backed counters when REDIS_ADDR is set,
// otherwise per-process memory counters.
func newRateLimiter(lc fx.Lifecycle, cfg config.Config, logger *zap.Logger) (*ratelimit.Limiter, error) {
	policy := ratelimit.Policy{
		Max:       cfg.RateLimitMax,
		Window:    cfg.RateLimitWindow,
		BanAfter:  cfg.RateLimitBanAfter,
		AllowList: cfg.RateLimitAllowList,
	}

	var counters ratelimit.CounterStore
	if cfg.RedisAddr == "" {
		counters = ratelimit.NewMemoryStore()
	} else {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return nil, fmt.Errorf("redis ping: %w", err)
		}
		lc.Append(fx.Hook{
			OnStop: func(context.Context) error {
				return client.Close()
			},
		})
		counters = ratelimit.NewRedisStore(client)
	}

	return ratelimit.NewLimiter(policy, counters, logger), nil
}

func newAuthService(users store.UserDirectory, issuer *token.Issuer, node *snowflake.Node, logger *zap.Logger) *service.AuthService {
	return service.NewAuthService(users, issuer, node, logger)
}

func newOAuthService(users store.UserDirectory, client *oauth.Client, issuer *token.Issuer, node *snowflake.Node, cfg config.Config, logger *zap.Logger) *service.OAuthService {
	return service.NewOAuthService(users, client, issuer, node, client.Provider(), cfg.FrontendOrigin, logger)
}

func newAuthMiddleware(verifier *token.Verifier, logger *zap.Logger) *httpmiddleware.Auth {
	return &httpmiddleware.Auth{Verifier: verifier, Logger: logger}
}

func newAuthHandler(auth *service.AuthService, oauthSvc *service.OAuthService, guard *csrf.Guard, logger *zap.Logger) *handler.AuthHandler {
	return handler.NewAuthHandler(auth, oauthSvc, guard, logger)
}

func startHTTPServer(lc fx.Lifecycle, srv *server.HTTPServer, cfg config.Config, logger *zap.Logger) {
	addr := ":" + cfg.HTTPPort
	var (
		cancel context.CancelFunc
		done   chan struct{}
	)

	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			runCtx, stop := context.WithCancel(context.Background())
			cancel = stop
			done = make(chan struct{})

			go func() {
				if err := srv.Run(runCtx, addr); err != nil {
					logger.Error("http server stopped", zap.Error(err))
				}
				close(done)
			}()

			return nil
		},
		OnStop: func(ctx context.Context) error {
			if cancel != nil {
				cancel()
			}
			if done == nil {
				return nil
			}
			select {
			case <-done:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		},
	})
}

func useTelemetry(*telemetry.Provider) {}
