package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/stackmesh/authgate/internal/credentials"
	"github.com/stackmesh/authgate/internal/domain"
	pw "github.com/stackmesh/authgate/internal/password"
	"github.com/stackmesh/authgate/internal/store"
	"github.com/stackmesh/authgate/internal/token"
)

// AuthService encapsulates password registration and login flows.
type AuthService struct {
	users     store.UserDirectory
	issuer    *token.Issuer
	snowflake *snowflake.Node
	logger    *zap.Logger
	tracer    trace.Tracer
}

// NewAuthService wires dependencies.
func NewAuthService(users store.UserDirectory, issuer *token.Issuer, node *snowflake.Node, logger *zap.Logger) *AuthService {
	return &AuthService{
		users:     users,
		issuer:    issuer,
		snowflake: node,
		logger:    logger,
		tracer:    otel.Tracer("github.com/stackmesh/authgate/internal/service"),
	}
}

// Register validates credentials, hashes the password, and creates the user.
// The duplicate check runs again inside the directory insert, so a racing
// registration for the same username still yields exactly one record.
func (s *AuthService) Register(ctx context.Context, username, password string) error {
	ctx, span := s.startSpan(ctx, "AuthService.Register")
	defer span.End()

	if fieldErrs := credentials.Validate(username, password); len(fieldErrs) > 0 {
		return &domain.ValidationError{Fields: fieldErrs}
	}

	if _, err := s.users.Get(ctx, username); err == nil {
		return domain.ErrUsernameTaken
	} else if !errors.Is(err, store.ErrNotFound) {
		span.RecordError(err)
		return fmt.Errorf("lookup user: %w", err)
	}

	hash, err := pw.Hash(password)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("hash password: %w", err)
	}

	user := domain.User{
		ID:           s.snowflake.Generate().Int64(),
		Username:     username,
		PasswordHash: hash,
		CreatedAt:    time.Now().UTC(),
	}
	if _, err := s.users.Insert(ctx, user); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return domain.ErrUsernameTaken
		}
		span.RecordError(err)
		return fmt.Errorf("insert user: %w", err)
	}

	s.audit("register", "user", username)
	return nil
}

// Login verifies credentials and returns a signed session token.
func (s *AuthService) Login(ctx context.Context, username, password string) (string, error) {
	ctx, span := s.startSpan(ctx, "AuthService.Login")
	defer span.End()

	if fieldErrs := credentials.Validate(username, password); len(fieldErrs) > 0 {
		return "", &domain.ValidationError{Fields: fieldErrs}
	}

	user, err := s.users.Get(ctx, username)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			s.audit("login-fail", "user", username, "reason", "user not found")
			return "", domain.ErrInvalidCredentials
		}
		span.RecordError(err)
		return "", fmt.Errorf("lookup user: %w", err)
	}

	if user.PasswordHash == "" || !pw.Verify(password, user.PasswordHash) {
		s.audit("login-fail", "user", username, "reason", "wrong password")
		return "", domain.ErrInvalidCredentials
	}

	signed, err := s.issuer.Issue(user.Username)
	if err != nil {
		span.RecordError(err)
		return "", fmt.Errorf("issue session token: %w", err)
	}

	s.audit("login-success", "user", username)
	return signed, nil
}

// Profile resolves the verified username against the directory. Token
// verification happens upstream; a vanished subject surfaces here.
func (s *AuthService) Profile(ctx context.Context, username string) (domain.User, error) {
	ctx, span := s.startSpan(ctx, "AuthService.Profile")
	defer span.End()

	user, err := s.users.Get(ctx, username)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			s.audit("profile-user-not-found", "user", username)
			return domain.User{}, domain.ErrUserNotFound
		}
		span.RecordError(err)
		return domain.User{}, fmt.Errorf("lookup user: %w", err)
	}

	s.audit("profile-access", "user", username)
	return user, nil
}

func (s *AuthService) startSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	if s == nil || s.tracer == nil {
		return ctx, trace.SpanFromContext(ctx)
	}
	return s.tracer.Start(ctx, name)
}

func (s *AuthService) audit(event string, attrs ...any) {
	auditLog(s.log(), event, attrs...)
}

func (s *AuthService) log() *zap.Logger {
	if s != nil && s.logger != nil {
		return s.logger
	}
	return zap.L()
}

func auditLog(logger *zap.Logger, event string, attrs ...any) {
	if logger == nil {
		return
	}
	fields := make([]zap.Field, 0, len(attrs)/2+2)
	fields = append(fields, zap.String("event", event), zap.Time("timestamp", time.Now().UTC()))
	for i := 0; i+1 < len(attrs); i += 2 {
		key, ok := attrs[i].(string)
		if !ok {
			continue
		}
		fields = append(fields, zap.Any(key, attrs[i+1]))
	}
	logger.Info("audit", fields...)
}
