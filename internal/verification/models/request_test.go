package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "legitid/pkg/domain"
	dErrors "legitid/pkg/domain-errors"
)

func newTestRequest(t *testing.T) *VerificationRequest {
	t.Helper()
	req, err := NewVerificationRequest(
		id.NewRequestID(),
		id.NewUserID(),
		id.NewUserID(),
		id.NewIdentityID(),
		"Identity Verification",
		nil,
		time.Date(2026, 1, 15, 10, 0, 0, 0, time.UTC),
	)
	require.NoError(t, err)
	return req
}

func TestNewVerificationRequest(t *testing.T) {
	req := newTestRequest(t)

	assert.Equal(t, RequestStatusPending, req.Status)
	assert.Nil(t, req.RespondedAt)

	_, err := NewVerificationRequest(id.NewRequestID(), id.NewUserID(), id.NewUserID(), id.NewIdentityID(), "", nil, time.Now())
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
}

// TestRequestStatus_Monotonic verifies a request is responded to exactly once
// and terminal states are final with no re-opening.
func TestRequestStatus_Monotonic(t *testing.T) {
	assert.True(t, RequestStatusPending.CanTransitionTo(RequestStatusApproved))
	assert.True(t, RequestStatusPending.CanTransitionTo(RequestStatusRejected))
	assert.False(t, RequestStatusPending.CanTransitionTo(RequestStatusPending))

	for _, terminal := range []RequestStatus{RequestStatusApproved, RequestStatusRejected} {
		assert.True(t, terminal.IsTerminal())
		for _, target := range []RequestStatus{RequestStatusPending, RequestStatusApproved, RequestStatusRejected} {
			assert.False(t, terminal.CanTransitionTo(target), "%s -> %s must be rejected", terminal, target)
		}
	}
}

func TestVerificationRequest_Respond(t *testing.T) {
	t.Run("approve stamps RespondedAt and result data", func(t *testing.T) {
		req := newTestRequest(t)
		now := time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC)
		result := map[string]any{"verified_by": "reviewer"}

		require.NoError(t, req.Respond(RequestStatusApproved, result, now))

		assert.Equal(t, RequestStatusApproved, req.Status)
		require.NotNil(t, req.RespondedAt)
		assert.Equal(t, now, *req.RespondedAt)
		assert.Equal(t, result, req.ResultData)
	})

	t.Run("responding twice is rejected", func(t *testing.T) {
		req := newTestRequest(t)
		now := time.Now()

		require.NoError(t, req.Respond(RequestStatusApproved, nil, now))

		err := req.Respond(RequestStatusRejected, nil, now)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidState))
	})
}
