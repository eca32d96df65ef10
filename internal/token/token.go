// Package token signs and validates bearer session tokens. Tokens are
// HS256-signed compact JWTs carrying a username claim; verification is
// stateless and shared by password and OAuth login flows.
package token

import (
	"errors"
	"fmt"
	"time"

	gojose "github.com/go-jose/go-jose/v4"
	gojwt "github.com/go-jose/go-jose/v4/jwt"
)

var (
	// ErrMalformed indicates the token is not a parseable compact JWT.
	ErrMalformed = errors.New("token: malformed")
	// ErrSignature indicates the signature does not match the signing secret.
	ErrSignature = errors.New("token: signature mismatch")
	// ErrExpired indicates the token is past its expiry claim.
	ErrExpired = errors.New("token: expired")
)

// Claims are the verified contents of a session token.
type Claims struct {
	Username  string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

type customClaims struct {
	Username string `json:"username"`
}

// Issuer signs session tokens with a symmetric secret.
type Issuer struct {
	secret []byte
	ttl    time.Duration
}

// NewIssuer constructs an issuer. A non-positive ttl falls back to one hour.
func NewIssuer(secret []byte, ttl time.Duration) *Issuer {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &Issuer{secret: secret, ttl: ttl}
}

// Issue produces a signed session token asserting the username.
func (i *Issuer) Issue(username string) (string, error) {
	signer, err := gojose.NewSigner(
		gojose.SigningKey{Algorithm: gojose.HS256, Key: i.secret},
		(&gojose.SignerOptions{}).WithType("JWT"),
	)
	if err != nil {
		return "", fmt.Errorf("new signer: %w", err)
	}

	now := time.Now().UTC()
	std := gojwt.Claims{
		IssuedAt: gojwt.NewNumericDate(now),
		Expiry:   gojwt.NewNumericDate(now.Add(i.ttl)),
	}
	custom := customClaims{Username: username}

	signed, err := gojwt.Signed(signer).Claims(std).Claims(custom).Serialize()
	if err != nil {
		return "", fmt.Errorf("serialize token: %w", err)
	}
	return signed, nil
}

// Verifier validates session tokens against the shared signing secret.
type Verifier struct {
	secret []byte
}

// NewVerifier constructs a verifier for the given secret.
func NewVerifier(secret []byte) *Verifier {
	return &Verifier{secret: secret}
}

// Verify checks the token cryptographically and returns its claims. Failure
// causes are distinguishable: ErrMalformed, ErrSignature, and ErrExpired.
// Subject existence is the caller's concern.
func (v *Verifier) Verify(tok string) (Claims, error) {
	parsed, err := gojwt.ParseSigned(tok, []gojose.SignatureAlgorithm{gojose.HS256})
	if err != nil {
		return Claims{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	var std gojwt.Claims
	var custom customClaims
	if err := parsed.Claims(v.secret, &std, &custom); err != nil {
		return Claims{}, fmt.Errorf("%w: %v", ErrSignature, err)
	}

	if err := std.Validate(gojwt.Expected{Time: time.Now().UTC()}); err != nil {
		if errors.Is(err, gojwt.ErrExpired) {
			return Claims{}, fmt.Errorf("%w: %v", ErrExpired, err)
		}
		return Claims{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	if custom.Username == "" {
		return Claims{}, fmt.Errorf("%w: missing username claim", ErrMalformed)
	}

	claims := Claims{Username: custom.Username}
	if std.IssuedAt != nil {
		claims.IssuedAt = std.IssuedAt.Time()
	}
	if std.Expiry != nil {
		claims.ExpiresAt = std.Expiry.Time()
	}
	return claims, nil
}
