package service

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/stackmesh/authgate/internal/domain"
	"github.com/stackmesh/authgate/internal/oauth"
	"github.com/stackmesh/authgate/internal/store"
	"github.com/stackmesh/authgate/internal/token"
)

// frontendCallbackPath is where the SPA expects to receive the session token.
const frontendCallbackPath = "/oauth/callback"

// OAuthService drives the callback side of the authorization-code flow:
// code receipt, token exchange, identity extraction, account resolution,
// session issuance, and the final redirect.
type OAuthService struct {
	users          store.UserDirectory
	client         oauth.Exchanger
	issuer         *token.Issuer
	snowflake      *snowflake.Node
	provider       string
	frontendOrigin string
	logger         *zap.Logger
	tracer         trace.Tracer
}

// NewOAuthService wires dependencies.
func NewOAuthService(users store.UserDirectory, client oauth.Exchanger, issuer *token.Issuer, node *snowflake.Node, provider, frontendOrigin string, logger *zap.Logger) *OAuthService {
	return &OAuthService{
		users:          users,
		client:         client,
		issuer:         issuer,
		snowflake:      node,
		provider:       provider,
		frontendOrigin: strings.TrimRight(frontendOrigin, "/"),
		logger:         logger,
		tracer:         otel.Tracer("github.com/stackmesh/authgate/internal/service"),
	}
}

// AuthorizeURL returns the provider authorization URL for the redirect leg.
func (s *OAuthService) AuthorizeURL() string {
	return s.client.AuthorizeURL()
}

// HandleCallback runs the whole callback state machine and returns the
// frontend redirect URL carrying the session token. Failures map onto the
// sentinel errors callers translate into HTTP statuses; provider-side causes
// are logged here and never surface verbatim.
func (s *OAuthService) HandleCallback(ctx context.Context, code string) (string, error) {
	ctx, span := s.startSpan(ctx, "OAuthService.HandleCallback")
	defer span.End()

	if strings.TrimSpace(code) == "" {
		return "", domain.ErrMissingAuthCode
	}

	resp, err := s.client.Exchange(ctx, code)
	if err != nil {
		span.RecordError(err)
		s.log().Error("oauth code exchange failed", zap.String("event", "oauth-exchange-fail"), zap.Error(err))
		return "", fmt.Errorf("%w: %v", domain.ErrExchangeFailed, err)
	}

	identity, err := oauth.DecodeIDToken(resp.IDToken)
	if err != nil {
		span.RecordError(err)
		s.log().Error("oauth identity decode failed", zap.String("event", "oauth-identity-fail"), zap.Error(err))
		return "", fmt.Errorf("%w: %v", domain.ErrIdentityMalformed, err)
	}
	if identity.Subject() == "" {
		return "", fmt.Errorf("%w: missing subject claim", domain.ErrIdentityMalformed)
	}

	user, err := s.resolveAccount(ctx, identity)
	if err != nil {
		span.RecordError(err)
		return "", err
	}

	signed, err := s.issuer.Issue(user.Username)
	if err != nil {
		span.RecordError(err)
		return "", fmt.Errorf("issue session token: %w", err)
	}

	s.audit("oauth-login-success", "user", user.Username, "provider", s.provider)
	return s.redirectURL(signed), nil
}

// resolveAccount maps the provider identity onto a directory record,
// creating one on first login. Resolution is idempotent: repeat logins for
// the same (provider, subject) pair land on the same username.
func (s *OAuthService) resolveAccount(ctx context.Context, identity oauth.Identity) (domain.User, error) {
	providerID := identity.Subject()

	user, err := s.users.FindByOAuthIdentity(ctx, s.provider, providerID)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return domain.User{}, fmt.Errorf("find oauth user: %w", err)
	}

	oauthID := domain.OAuthIdentity{Provider: s.provider, ProviderID: providerID}
	created, err := s.users.Insert(ctx, domain.User{
		ID:        s.snowflake.Generate().Int64(),
		Username:  oauthID.Username(),
		OAuth:     &oauthID,
		Profile:   identity,
		CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			// Lost the race against a concurrent first login; reuse theirs.
			return s.users.FindByOAuthIdentity(ctx, s.provider, providerID)
		}
		return domain.User{}, fmt.Errorf("create oauth user: %w", err)
	}

	s.audit("oauth-register", "user", created.Username, "provider", s.provider)
	return created, nil
}

// redirectURL appends the session token as a query parameter on the frontend
// callback path. The token being visible in the URL is accepted behavior of
// this delivery scheme.
func (s *OAuthService) redirectURL(sessionToken string) string {
	params := url.Values{}
	params.Set("token", sessionToken)
	return s.frontendOrigin + frontendCallbackPath + "?" + params.Encode()
}

func (s *OAuthService) startSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	if s == nil || s.tracer == nil {
		return ctx, trace.SpanFromContext(ctx)
	}
	return s.tracer.Start(ctx, name)
}

func (s *OAuthService) audit(event string, attrs ...any) {
	auditLog(s.log(), event, attrs...)
}

func (s *OAuthService) log() *zap.Logger {
	if s != nil && s.logger != nil {
		return s.logger
	}
	return zap.L()
}
