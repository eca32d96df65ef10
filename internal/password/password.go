package password

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

const hashCost = 10

// Hash returns a bcrypt digest of the plaintext password.
func Hash(password string) (string, error) {
	sum, err := bcrypt.GenerateFromPassword([]byte(password), hashCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(sum), nil
}

// Verify checks a password against the stored bcrypt digest.
func Verify(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
