// Package models holds the account aggregate for the auth domain.
package models

import (
	"strings"
	"time"

	id "legitid/pkg/domain"
	dErrors "legitid/pkg/domain-errors"
)

// User is an account holder's profile record.
//
// Invariants:
//   - Email is non-empty and contains "@"
//   - Role is one of the supported roles
//   - Role is set exactly once at account creation and never re-derived
//     from unrelated data
//   - CreatedAt is immutable after construction
type User struct {
	ID         id.UserID `json:"id"`
	Email      string    `json:"email"`
	FullName   string    `json:"full_name"`
	Role       id.Role   `json:"role"`
	IsVerified bool      `json:"is_verified"`
	CreatedAt  time.Time `json:"created_at"`
}

// NewUser constructs a validated profile record.
func NewUser(userID id.UserID, email, fullName string, role id.Role, now time.Time) (*User, error) {
	if err := validateEmail(email); err != nil {
		return nil, err
	}
	if fullName == "" {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "full name cannot be empty")
	}
	if len(fullName) > 128 {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "full name must be 128 characters or less")
	}
	if !role.IsValid() {
		return nil, dErrors.Newf(dErrors.CodeInvalidInput, "unsupported role: %s", role)
	}
	return &User{
		ID:         userID,
		Email:      email,
		FullName:   fullName,
		Role:       role,
		IsVerified: false,
		CreatedAt:  now,
	}, nil
}

// SynthesizeUser builds a minimal profile for a session whose profile row is
// missing: display name from the email local-part, role individual, not
// verified. Used by login and checkAuth as the fallback path.
func SynthesizeUser(userID id.UserID, email string, now time.Time) *User {
	fullName := email
	if at := strings.Index(email, "@"); at > 0 {
		fullName = email[:at]
	}
	return &User{
		ID:         userID,
		Email:      email,
		FullName:   fullName,
		Role:       id.RoleIndividual,
		IsVerified: false,
		CreatedAt:  now,
	}
}

func validateEmail(email string) error {
	if email == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "email cannot be empty")
	}
	if !strings.Contains(email, "@") {
		return dErrors.New(dErrors.CodeInvalidInput, "email is not valid")
	}
	if len(email) > 254 {
		return dErrors.New(dErrors.CodeInvalidInput, "email is too long")
	}
	return nil
}

// ValidateEmail exposes the email validation for trust-boundary use.
func ValidateEmail(email string) error {
	return validateEmail(email)
}
