// Package admin is the review surface: list verification requests across
// all users and override identity lifecycle status. It operates on the
// backend facade directly rather than through the per-user containers.
package admin

import (
	"context"
	"errors"
	"log/slog"

	"legitid/internal/backend"
	identitymodels "legitid/internal/identity/models"
	"legitid/internal/platform/metrics"
	verificationmodels "legitid/internal/verification/models"
	id "legitid/pkg/domain"
	dErrors "legitid/pkg/domain-errors"
	"legitid/pkg/platform/audit"
	"legitid/pkg/platform/audit/publisher"
	"legitid/pkg/platform/sentinel"
	"legitid/pkg/requestcontext"
)

type Service struct {
	client  backend.Client
	audit   *publisher.Publisher
	metrics *metrics.Metrics
	logger  *slog.Logger
}

func NewService(client backend.Client, auditPub *publisher.Publisher, m *metrics.Metrics, logger *slog.Logger) *Service {
	return &Service{
		client:  client,
		audit:   auditPub,
		metrics: m,
		logger:  logger,
	}
}

// ListVerificationRequests returns every request, newest first.
func (s *Service) ListVerificationRequests(ctx context.Context) ([]*verificationmodels.VerificationRequest, error) {
	var requests []*verificationmodels.VerificationRequest
	err := s.client.From(backend.TableVerificationRequests).
		Select("*").
		Order("created_at", false).
		All(ctx, &requests)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list verification requests")
	}
	return requests, nil
}

// SetIdentityStatus transitions an identity's lifecycle status. The
// monotonic rules on the model decide legality; an identity already in a
// terminal state cannot move again.
func (s *Service) SetIdentityStatus(ctx context.Context, identityID id.IdentityID, target identitymodels.IdentityStatus) (*identitymodels.Identity, error) {
	var identity identitymodels.Identity
	err := s.client.From(backend.TableIdentities).
		Select("*").
		Eq("id", identityID.String()).
		Single(ctx, &identity)
	if errors.Is(err, sentinel.ErrNoRows) {
		return nil, dErrors.Newf(dErrors.CodeNotFound, "identity %s not found", identityID)
	}
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load identity")
	}

	if err := identity.CanSetStatus(target); err != nil {
		return nil, err
	}

	now := requestcontext.Now(ctx)
	patch := map[string]any{
		"status":     string(target),
		"updated_at": now,
	}
	if target == identitymodels.IdentityStatusVerified {
		patch["verified_at"] = now
	}
	if target == identitymodels.IdentityStatusExpired {
		patch["expires_at"] = now
	}

	var updated identitymodels.Identity
	err = s.client.From(backend.TableIdentities).
		Update(patch).
		Eq("id", identityID.String()).
		Single(ctx, &updated)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to update identity status")
	}

	s.metrics.IdentityStatusChange.WithLabelValues(string(target)).Inc()
	s.emit(ctx, audit.EventAdminStatusOverride, audit.Event{
		UserID:   updated.UserID,
		Decision: string(target),
	})
	return &updated, nil
}

func (s *Service) emit(ctx context.Context, action audit.AuditEvent, event audit.Event) {
	if s.audit == nil {
		return
	}
	event.Category = action.Category()
	event.Action = string(action)
	event.Subject = "identity"
	event.RequestID = requestcontext.RequestID(ctx)
	event.IP = requestcontext.ClientIP(ctx)
	event.Device = requestcontext.Device(ctx)
	if err := s.audit.Emit(ctx, event); err != nil {
		s.logger.WarnContext(ctx, "failed to emit audit event",
			"action", event.Action,
			"error", err,
		)
	}
}
