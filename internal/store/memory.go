package store

import (
	"context"
	"sync"
	"time"

	"github.com/stackmesh/authgate/internal/domain"
)

// MemoryDirectory is an in-process UserDirectory. Records live for the
// process lifetime only.
type MemoryDirectory struct {
	mu    sync.RWMutex
	users map[string]domain.User
}

var _ UserDirectory = (*MemoryDirectory)(nil)

// NewMemoryDirectory constructs an empty directory.
func NewMemoryDirectory() *MemoryDirectory {
	return &MemoryDirectory{users: make(map[string]domain.User)}
}

// Get returns the record stored under username.
func (d *MemoryDirectory) Get(ctx context.Context, username string) (domain.User, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	user, ok := d.users[username]
	if !ok {
		return domain.User{}, ErrNotFound
	}
	return user, nil
}

// Insert stores a new record. The uniqueness check and the write happen under
// one lock, so concurrent registrations for the same username cannot both
// succeed.
func (d *MemoryDirectory) Insert(ctx context.Context, user domain.User) (domain.User, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, exists := d.users[user.Username]; exists {
		return domain.User{}, ErrDuplicate
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}
	d.users[user.Username] = user
	return user, nil
}

// FindByOAuthIdentity resolves the record for a (provider, providerID) pair.
// OAuth records are keyed by the synthesized composite username.
func (d *MemoryDirectory) FindByOAuthIdentity(ctx context.Context, provider, providerID string) (domain.User, error) {
	key := domain.OAuthIdentity{Provider: provider, ProviderID: providerID}.Username()
	return d.Get(ctx, key)
}
