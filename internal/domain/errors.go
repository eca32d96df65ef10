package domain

import (
	"errors"
	"strings"
)

var (
	// ErrInvalidCredentials covers both unknown-user and wrong-password
	// failures so responses never reveal which field was wrong.
	ErrInvalidCredentials = errors.New("auth: invalid credentials")
	// ErrUsernameTaken signals a duplicate registration attempt.
	ErrUsernameTaken = errors.New("auth: username already taken")
	// ErrUserNotFound signals that a verified identity has no directory record.
	ErrUserNotFound = errors.New("auth: user not found")
	// ErrMissingAuthCode indicates an OAuth callback without a code parameter.
	ErrMissingAuthCode = errors.New("oauth: missing authorization code")
	// ErrExchangeFailed indicates the provider code exchange failed.
	ErrExchangeFailed = errors.New("oauth: code exchange failed")
	// ErrIdentityMalformed indicates an unparseable provider identity payload.
	ErrIdentityMalformed = errors.New("oauth: identity payload malformed")
)

// FieldError names a single invalid input field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError aggregates field-level input failures.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	msgs := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		msgs = append(msgs, f.Field+": "+f.Message)
	}
	return "validation: " + strings.Join(msgs, "; ")
}
