// Package models holds the verification-request aggregate and its lifecycle.
package models

import (
	"time"

	id "legitid/pkg/domain"
	dErrors "legitid/pkg/domain-errors"
)

// RequestStatus is the lifecycle state of a verification request.
type RequestStatus string

const (
	RequestStatusPending  RequestStatus = "pending"
	RequestStatusApproved RequestStatus = "approved"
	RequestStatusRejected RequestStatus = "rejected"
)

// ParseRequestStatus constructs a RequestStatus from external input.
func ParseRequestStatus(s string) (RequestStatus, error) {
	switch st := RequestStatus(s); st {
	case RequestStatusPending, RequestStatusApproved, RequestStatusRejected:
		return st, nil
	}
	return "", dErrors.Newf(dErrors.CodeInvalidInput, "unsupported request status: %s", s)
}

// CanTransitionTo enforces the one-way lifecycle: a request is responded to
// exactly once, and approved/rejected are final with no re-opening.
func (s RequestStatus) CanTransitionTo(target RequestStatus) bool {
	if s != RequestStatusPending {
		return false
	}
	return target == RequestStatusApproved || target == RequestStatusRejected
}

// IsTerminal reports whether no further transitions are possible.
func (s RequestStatus) IsTerminal() bool {
	return s != RequestStatusPending
}

// VerificationRequest is a third party's ask to confirm facts about a user's
// identity.
//
// Invariants:
//   - Status is monotonic along pending -> {approved, rejected}
//   - RespondedAt is set exactly when the request leaves pending
type VerificationRequest struct {
	ID               id.RequestID   `json:"id"`
	RequesterID      id.UserID      `json:"requester_id"`
	UserID           id.UserID      `json:"user_id"`
	IdentityID       id.IdentityID  `json:"identity_id"`
	Status           RequestStatus  `json:"status"`
	VerificationType string         `json:"verification_type"`
	Message          *string        `json:"message,omitempty"`
	ResultData       map[string]any `json:"result_data,omitempty"`
	CreatedAt        time.Time      `json:"created_at"`
	RespondedAt      *time.Time     `json:"responded_at,omitempty"`
}

// NewVerificationRequest constructs a validated request in the pending state.
func NewVerificationRequest(requestID id.RequestID, requesterID, userID id.UserID, identityID id.IdentityID, verificationType string, message *string, now time.Time) (*VerificationRequest, error) {
	if verificationType == "" {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "verification type cannot be empty")
	}
	return &VerificationRequest{
		ID:               requestID,
		RequesterID:      requesterID,
		UserID:           userID,
		IdentityID:       identityID,
		Status:           RequestStatusPending,
		VerificationType: verificationType,
		Message:          message,
		CreatedAt:        now,
	}, nil
}

// CanRespond checks whether the request can be resolved to the target status.
func (r *VerificationRequest) CanRespond(target RequestStatus) error {
	if r.Status == target {
		return dErrors.Newf(dErrors.CodeInvariantViolation, "request is already %s", target)
	}
	if !r.Status.CanTransitionTo(target) {
		return dErrors.Newf(dErrors.CodeInvalidState, "request cannot move from %s to %s", r.Status, target)
	}
	return nil
}

// ApplyResponse resolves the request and stamps the response time.
// Call CanRespond first to validate the transition.
func (r *VerificationRequest) ApplyResponse(target RequestStatus, resultData map[string]any, now time.Time) {
	r.Status = target
	r.ResultData = resultData
	r.RespondedAt = &now
}

// Respond validates and applies a response in one call.
func (r *VerificationRequest) Respond(target RequestStatus, resultData map[string]any, now time.Time) error {
	if err := r.CanRespond(target); err != nil {
		return err
	}
	r.ApplyResponse(target, resultData, now)
	return nil
}
