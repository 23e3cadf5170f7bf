// Package models holds the digital-identity aggregate and its lifecycle.
package models

import (
	"time"

	id "legitid/pkg/domain"
	dErrors "legitid/pkg/domain-errors"
)

// IdentityStatus is the lifecycle state of a digital identity.
type IdentityStatus string

const (
	IdentityStatusPending  IdentityStatus = "pending"
	IdentityStatusVerified IdentityStatus = "verified"
	IdentityStatusRejected IdentityStatus = "rejected"
	IdentityStatusExpired  IdentityStatus = "expired"
)

// ParseIdentityStatus constructs an IdentityStatus from external input.
func ParseIdentityStatus(s string) (IdentityStatus, error) {
	switch st := IdentityStatus(s); st {
	case IdentityStatusPending, IdentityStatusVerified, IdentityStatusRejected, IdentityStatusExpired:
		return st, nil
	}
	return "", dErrors.Newf(dErrors.CodeInvalidInput, "unsupported identity status: %s", s)
}

// CanTransitionTo enforces the monotonic lifecycle: pending is the only
// non-terminal state, and verified, rejected, and expired are final.
func (s IdentityStatus) CanTransitionTo(target IdentityStatus) bool {
	if s != IdentityStatusPending {
		return false
	}
	switch target {
	case IdentityStatusVerified, IdentityStatusRejected, IdentityStatusExpired:
		return true
	}
	return false
}

// IsTerminal reports whether no further transitions are possible.
func (s IdentityStatus) IsTerminal() bool {
	return s != IdentityStatusPending
}

// Identity is the verifiable profile record a user builds.
//
// Invariants:
//   - At most one identity per user (enforced by the store)
//   - Status is monotonic along pending -> {verified, rejected, expired};
//     a reverse transition is never observed
//   - CreatedAt is immutable after construction
type Identity struct {
	ID             id.IdentityID  `json:"id"`
	UserID         id.UserID      `json:"user_id"`
	FullName       string         `json:"full_name"`
	DateOfBirth    string         `json:"date_of_birth"`
	IDNumber       string         `json:"id_number"`
	Status         IdentityStatus `json:"status"`
	BlockchainHash *string        `json:"blockchain_hash,omitempty"`
	DocumentURLs   []string       `json:"document_urls"`
	VerifiedAt     *time.Time     `json:"verified_at,omitempty"`
	ExpiresAt      *time.Time     `json:"expires_at,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
}

// NewIdentity constructs a validated identity in the pending state.
func NewIdentity(identityID id.IdentityID, userID id.UserID, fullName, dateOfBirth, idNumber string, now time.Time) (*Identity, error) {
	if fullName == "" {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "full name cannot be empty")
	}
	if dateOfBirth != "" {
		if _, err := time.Parse("2006-01-02", dateOfBirth); err != nil {
			return nil, dErrors.New(dErrors.CodeInvalidInput, "date of birth must be YYYY-MM-DD")
		}
	}
	if idNumber == "" {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "id number cannot be empty")
	}
	return &Identity{
		ID:          identityID,
		UserID:      userID,
		FullName:    fullName,
		DateOfBirth: dateOfBirth,
		IDNumber:    idNumber,
		Status:      IdentityStatusPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

// CanSetStatus checks whether the identity can transition to the target
// status. Returns an error if the transition would move out of a terminal
// state or re-enter pending.
func (i *Identity) CanSetStatus(target IdentityStatus) error {
	if i.Status == target {
		return dErrors.Newf(dErrors.CodeInvariantViolation, "identity is already %s", target)
	}
	if !i.Status.CanTransitionTo(target) {
		return dErrors.Newf(dErrors.CodeInvalidState, "identity cannot move from %s to %s", i.Status, target)
	}
	return nil
}

// ApplySetStatus transitions the identity to the target status and stamps the
// lifecycle timestamps. Call CanSetStatus first to validate the transition.
func (i *Identity) ApplySetStatus(target IdentityStatus, now time.Time) {
	i.Status = target
	i.UpdatedAt = now
	if target == IdentityStatusVerified {
		i.VerifiedAt = &now
	}
	if target == IdentityStatusExpired {
		i.ExpiresAt = &now
	}
}

// SetStatus validates and applies a status transition in one call.
func (i *Identity) SetStatus(target IdentityStatus, now time.Time) error {
	if err := i.CanSetStatus(target); err != nil {
		return err
	}
	i.ApplySetStatus(target, now)
	return nil
}
