package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/stackmesh/authgate/internal/domain"
)

const uniqueViolationCode = "23505"

// PostgresDirectory implements UserDirectory on a Postgres pool. The schema
// is a single users table keyed by username with an optional provider pair.
type PostgresDirectory struct {
	pool *pgxpool.Pool
}

var _ UserDirectory = (*PostgresDirectory)(nil)

// NewPostgresDirectory wraps the pool.
func NewPostgresDirectory(pool *pgxpool.Pool) *PostgresDirectory {
	return &PostgresDirectory{pool: pool}
}

func (d *PostgresDirectory) Get(ctx context.Context, username string) (domain.User, error) {
	row := d.pool.QueryRow(ctx,
		`SELECT id, username, password_hash, provider, provider_id, profile, created_at
		 FROM users WHERE username = $1`, username)
	return scanUser(row)
}

func (d *PostgresDirectory) Insert(ctx context.Context, user domain.User) (domain.User, error) {
	var profile []byte
	if user.Profile != nil {
		encoded, err := json.Marshal(user.Profile)
		if err != nil {
			return domain.User{}, fmt.Errorf("encode profile: %w", err)
		}
		profile = encoded
	}

	var provider, providerID *string
	if user.OAuth != nil {
		provider = &user.OAuth.Provider
		providerID = &user.OAuth.ProviderID
	}

	_, err := d.pool.Exec(ctx,
		`INSERT INTO users (id, username, password_hash, provider, provider_id, profile)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		user.ID, user.Username, user.PasswordHash, provider, providerID, profile)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode {
			return domain.User{}, ErrDuplicate
		}
		return domain.User{}, fmt.Errorf("insert user: %w", err)
	}
	return d.Get(ctx, user.Username)
}

func (d *PostgresDirectory) FindByOAuthIdentity(ctx context.Context, provider, providerID string) (domain.User, error) {
	row := d.pool.QueryRow(ctx,
		`SELECT id, username, password_hash, provider, provider_id, profile, created_at
		 FROM users WHERE provider = $1 AND provider_id = $2`, provider, providerID)
	return scanUser(row)
}

func scanUser(row pgx.Row) (domain.User, error) {
	var user domain.User
	var passwordHash, provider, providerID *string
	var profile []byte

	err := row.Scan(&user.ID, &user.Username, &passwordHash, &provider, &providerID, &profile, &user.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.User{}, ErrNotFound
		}
		return domain.User{}, fmt.Errorf("scan user: %w", err)
	}

	if passwordHash != nil {
		user.PasswordHash = *passwordHash
	}
	if provider != nil && providerID != nil {
		user.OAuth = &domain.OAuthIdentity{Provider: *provider, ProviderID: *providerID}
	}
	if len(profile) > 0 {
		if err := json.Unmarshal(profile, &user.Profile); err != nil {
			return domain.User{}, fmt.Errorf("decode profile: %w", err)
		}
	}
	return user, nil
}
