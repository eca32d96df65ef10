package token_test

import (
	"testing"
	"time"

	gojose "github.com/go-jose/go-jose/v4"
	gojwt "github.com/go-jose/go-jose/v4/jwt"
	"github.com/stretchr/testify/require"

	"github.com/stackmesh/authgate/internal/token"
)

var secret = []byte("test-session-secret-0123456789abcdef")

func TestIssueAndVerifyRoundTrip(t *testing.T) {
	issuer := token.NewIssuer(secret, time.Hour)
	verifier := token.NewVerifier(secret)

	signed, err := issuer.Issue("alice")
	require.NoError(t, err)
	require.NotEmpty(t, signed)

	claims, err := verifier.Verify(signed)
	require.NoError(t, err)
	require.Equal(t, "alice", claims.Username)
	require.WithinDuration(t, time.Now().Add(time.Hour), claims.ExpiresAt, time.Minute)
}

func TestVerifyRejectsExpiredToken(t *testing.T) {
	verifier := token.NewVerifier(secret)

	// Expiry must sit well past the library's one-minute validation leeway.
	expired := signWithExpiry(t, "alice", time.Now().Add(-2*time.Hour))

	_, err := verifier.Verify(expired)
	require.ErrorIs(t, err, token.ErrExpired)
}

func TestVerifyRejectsWrongSecret(t *testing.T) {
	issuer := token.NewIssuer(secret, time.Hour)
	verifier := token.NewVerifier([]byte("some-other-secret-0123456789abcdef"))

	signed, err := issuer.Issue("alice")
	require.NoError(t, err)

	_, err = verifier.Verify(signed)
	require.ErrorIs(t, err, token.ErrSignature)
}

func TestVerifyRejectsMalformedToken(t *testing.T) {
	verifier := token.NewVerifier(secret)

	for _, tok := range []string{"", "garbage", "a.b", "a.b.c.d"} {
		_, err := verifier.Verify(tok)
		require.ErrorIs(t, err, token.ErrMalformed, "token %q", tok)
	}
}

func TestVerifyRequiresUsernameClaim(t *testing.T) {
	issuer := token.NewIssuer(secret, time.Hour)
	verifier := token.NewVerifier(secret)

	signed, err := issuer.Issue("")
	require.NoError(t, err)

	_, err = verifier.Verify(signed)
	require.ErrorIs(t, err, token.ErrMalformed)
}

func TestIssuerDefaultsTTL(t *testing.T) {
	issuer := token.NewIssuer(secret, 0)
	verifier := token.NewVerifier(secret)

	signed, err := issuer.Issue("bob")
	require.NoError(t, err)

	claims, err := verifier.Verify(signed)
	require.NoError(t, err)
	require.WithinDuration(t, time.Now().Add(time.Hour), claims.ExpiresAt, time.Minute)
}

func signWithExpiry(t *testing.T, username string, expiry time.Time) string {
	t.Helper()

	signer, err := gojose.NewSigner(
		gojose.SigningKey{Algorithm: gojose.HS256, Key: secret},
		(&gojose.SignerOptions{}).WithType("JWT"),
	)
	require.NoError(t, err)

	std := gojwt.Claims{
		IssuedAt: gojwt.NewNumericDate(expiry.Add(-time.Hour)),
		Expiry:   gojwt.NewNumericDate(expiry),
	}
	signed, err := gojwt.Signed(signer).Claims(std).Claims(map[string]any{"username": username}).Serialize()
	require.NoError(t, err)
	return signed
}
