// Package credentials performs syntactic validation of login input. It is
// pure and deterministic; no I/O happens here.
package credentials

import "github.com/stackmesh/authgate/internal/domain"

const (
	MinUsernameLength = 3
	MinPasswordLength = 6
)

// Validate returns the list of field errors for a username/password pair.
// An empty slice means the input is well formed.
func Validate(username, password string) []domain.FieldError {
	var errs []domain.FieldError

	if len(username) < MinUsernameLength {
		errs = append(errs, domain.FieldError{
			Field:   "username",
			Message: "Username must be at least 3 characters",
		})
	}

	if len(password) < MinPasswordLength {
		errs = append(errs, domain.FieldError{
			Field:   "password",
			Message: "Password must be at least 6 characters",
		})
	}

	return errs
}
