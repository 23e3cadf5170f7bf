package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "legitid/pkg/domain"
	dErrors "legitid/pkg/domain-errors"
)

func newTestIdentity(t *testing.T) *Identity {
	t.Helper()
	identity, err := NewIdentity(
		id.NewIdentityID(),
		id.NewUserID(),
		"Ada Lovelace",
		"1990-12-10",
		"ID-12345",
		time.Date(2026, 1, 15, 10, 0, 0, 0, time.UTC),
	)
	require.NoError(t, err)
	return identity
}

func TestNewIdentity_StartsPending(t *testing.T) {
	identity := newTestIdentity(t)

	assert.Equal(t, IdentityStatusPending, identity.Status)
	assert.Nil(t, identity.VerifiedAt)
	assert.Equal(t, identity.CreatedAt, identity.UpdatedAt)
}

func TestNewIdentity_Validation(t *testing.T) {
	now := time.Now()

	tests := []struct {
		name        string
		fullName    string
		dateOfBirth string
		idNumber    string
	}{
		{"empty full name", "", "1990-12-10", "ID-1"},
		{"malformed date of birth", "Ada", "12/10/1990", "ID-1"},
		{"empty id number", "Ada", "1990-12-10", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewIdentity(id.NewIdentityID(), id.NewUserID(), tt.fullName, tt.dateOfBirth, tt.idNumber, now)
			require.Error(t, err)
			assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
		})
	}
}

// TestIdentityStatus_Monotonic verifies the lifecycle is one-way:
// pending can reach any terminal state, and terminal states are final.
func TestIdentityStatus_Monotonic(t *testing.T) {
	terminal := []IdentityStatus{IdentityStatusVerified, IdentityStatusRejected, IdentityStatusExpired}

	for _, target := range terminal {
		assert.True(t, IdentityStatusPending.CanTransitionTo(target), "pending -> %s must be allowed", target)
	}

	for _, from := range terminal {
		assert.True(t, from.IsTerminal())
		for _, target := range append(terminal, IdentityStatusPending) {
			assert.False(t, from.CanTransitionTo(target), "%s -> %s must be rejected", from, target)
		}
	}
}

func TestIdentity_SetStatus(t *testing.T) {
	t.Run("verify stamps VerifiedAt", func(t *testing.T) {
		identity := newTestIdentity(t)
		now := time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC)

		require.NoError(t, identity.SetStatus(IdentityStatusVerified, now))

		assert.Equal(t, IdentityStatusVerified, identity.Status)
		require.NotNil(t, identity.VerifiedAt)
		assert.Equal(t, now, *identity.VerifiedAt)
		assert.Equal(t, now, identity.UpdatedAt)
	})

	t.Run("reverse transition is rejected", func(t *testing.T) {
		identity := newTestIdentity(t)
		now := time.Now()

		require.NoError(t, identity.SetStatus(IdentityStatusRejected, now))

		err := identity.SetStatus(IdentityStatusPending, now)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidState))
	})

	t.Run("repeated transition is an invariant violation", func(t *testing.T) {
		identity := newTestIdentity(t)
		now := time.Now()

		require.NoError(t, identity.SetStatus(IdentityStatusVerified, now))

		err := identity.SetStatus(IdentityStatusVerified, now)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvariantViolation))
	})
}

func TestParseIdentityStatus(t *testing.T) {
	for _, valid := range []string{"pending", "verified", "rejected", "expired"} {
		status, err := ParseIdentityStatus(valid)
		require.NoError(t, err)
		assert.Equal(t, IdentityStatus(valid), status)
	}

	_, err := ParseIdentityStatus("archived")
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
}
