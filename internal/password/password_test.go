package password_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/stackmesh/authgate/internal/password"
)

func TestHashAndVerify(t *testing.T) {
	hash, err := password.Hash("hunter2secret")
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(hash, "$2a$10$"), "expected bcrypt cost 10, got %s", hash)

	require.True(t, password.Verify("hunter2secret", hash))
	require.False(t, password.Verify("wrong-password", hash))
}

func TestHashProducesUniqueDigests(t *testing.T) {
	first, err := password.Hash("same-input")
	require.NoError(t, err)
	second, err := password.Hash("same-input")
	require.NoError(t, err)
	require.NotEqual(t, first, second)
}

func TestVerifyRejectsGarbageHash(t *testing.T) {
	require.False(t, password.Verify("anything", "not-a-bcrypt-hash"))
	require.False(t, password.Verify("anything", ""))
}
