package store_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/stackmesh/authgate/internal/domain"
	"github.com/stackmesh/authgate/internal/store"
)

func TestMemoryDirectoryInsertAndGet(t *testing.T) {
	dir := store.NewMemoryDirectory()

	created, err := dir.Insert(context.Background(), domain.User{
		ID:           1,
		Username:     "alice",
		PasswordHash: "$2a$10$hash",
	})
	require.NoError(t, err)
	require.False(t, created.CreatedAt.IsZero())

	found, err := dir.Get(context.Background(), "alice")
	require.NoError(t, err)
	require.Equal(t, int64(1), found.ID)
	require.Equal(t, "$2a$10$hash", found.PasswordHash)
}

func TestMemoryDirectoryGetMissing(t *testing.T) {
	dir := store.NewMemoryDirectory()

	_, err := dir.Get(context.Background(), "nobody")
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestMemoryDirectoryInsertDuplicate(t *testing.T) {
	dir := store.NewMemoryDirectory()

	_, err := dir.Insert(context.Background(), domain.User{ID: 1, Username: "alice"})
	require.NoError(t, err)

	_, err = dir.Insert(context.Background(), domain.User{ID: 2, Username: "alice"})
	require.ErrorIs(t, err, store.ErrDuplicate)
}

func TestMemoryDirectoryFindByOAuthIdentity(t *testing.T) {
	dir := store.NewMemoryDirectory()
	identity := domain.OAuthIdentity{Provider: "google", ProviderID: "sub-123"}

	_, err := dir.FindByOAuthIdentity(context.Background(), "google", "sub-123")
	require.ErrorIs(t, err, store.ErrNotFound)

	_, err = dir.Insert(context.Background(), domain.User{
		ID:       7,
		Username: identity.Username(),
		OAuth:    &identity,
	})
	require.NoError(t, err)

	found, err := dir.FindByOAuthIdentity(context.Background(), "google", "sub-123")
	require.NoError(t, err)
	require.Equal(t, "google:sub-123", found.Username)
	require.Equal(t, int64(7), found.ID)
}
