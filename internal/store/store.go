// Package store defines the user directory contract. Auth logic depends only
// on the UserDirectory interface; implementations decide persistence.
package store

import (
	"context"
	"errors"

	"github.com/stackmesh/authgate/internal/domain"
)

var (
	// ErrNotFound means no record exists for the requested key.
	ErrNotFound = errors.New("store: user not found")
	// ErrDuplicate means a record with the same username already exists.
	ErrDuplicate = errors.New("store: duplicate username")
)

// UserDirectory is the read/insert contract for user records. Usernames are
// globally unique across password and OAuth accounts; creation is the only
// mutation.
type UserDirectory interface {
	Get(ctx context.Context, username string) (domain.User, error)
	Insert(ctx context.Context, user domain.User) (domain.User, error)
	FindByOAuthIdentity(ctx context.Context, provider, providerID string) (domain.User, error)
}
