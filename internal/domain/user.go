package domain

import (
	"fmt"
	"time"
)

// User represents one authenticated principal. OAuth-originated users carry
// no password hash; their username is synthesized from the provider identity.
type User struct {
	ID           int64
	Username     string
	PasswordHash string
	OAuth        *OAuthIdentity
	Profile      map[string]any
	CreatedAt    time.Time
}

// OAuthIdentity links a user record to an external provider account.
type OAuthIdentity struct {
	Provider   string
	ProviderID string
}

// Username derives the directory key for an OAuth identity.
func (id OAuthIdentity) Username() string {
	return fmt.Sprintf("%s:%s", id.Provider, id.ProviderID)
}
