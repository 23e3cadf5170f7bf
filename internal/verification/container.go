// Package verification owns the verification-request slice of application
// state: the request list, loading flags, and the last error. GetRequests
// carries the one reentrancy guard in the system; overlapping fetches from
// the same container perform exactly one underlying query.
package verification

import (
	"context"
	"log/slog"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"legitid/internal/backend"
	"legitid/internal/platform/metrics"
	"legitid/internal/verification/models"
	id "legitid/pkg/domain"
	"legitid/pkg/platform/audit"
	"legitid/pkg/platform/audit/publisher"
	"legitid/pkg/requestcontext"
)

var tracer = otel.Tracer("legitid/internal/verification")

// State is a point-in-time snapshot of the container.
type State struct {
	Requests          []*models.VerificationRequest
	Loading           bool
	Error             string
	IsLoadingRequests bool
}

// CreateFields carries the caller-supplied columns for a new request.
type CreateFields struct {
	RequesterID      id.UserID
	UserID           id.UserID
	IdentityID       id.IdentityID
	VerificationType string
	Message          *string
}

// Container holds verification-request state and the actions that mutate it.
type Container struct {
	client  backend.Client
	audit   *publisher.Publisher
	metrics *metrics.Metrics
	logger  *slog.Logger

	mu                sync.Mutex
	requests          []*models.VerificationRequest
	loading           bool
	errMsg            string
	isLoadingRequests bool
}

func NewContainer(
	client backend.Client,
	auditPub *publisher.Publisher,
	m *metrics.Metrics,
	logger *slog.Logger,
) *Container {
	return &Container{
		client:  client,
		audit:   auditPub,
		metrics: m,
		logger:  logger,
	}
}

// State returns a snapshot of the container's state. The request slice is
// copied; the elements are shared.
func (c *Container) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	requests := make([]*models.VerificationRequest, len(c.requests))
	copy(requests, c.requests)
	return State{
		Requests:          requests,
		Loading:           c.loading,
		Error:             c.errMsg,
		IsLoadingRequests: c.isLoadingRequests,
	}
}

// GetRequests fetches the user's requests, newest first. If a fetch is
// already in flight the call is a no-op; this keeps rapid re-renders from
// racing on the shared request list.
func (c *Container) GetRequests(ctx context.Context, userID id.UserID) bool {
	c.mu.Lock()
	if c.isLoadingRequests {
		c.mu.Unlock()
		return true
	}
	c.isLoadingRequests = true
	c.errMsg = ""
	c.mu.Unlock()

	ctx, span := tracer.Start(ctx, "verification.get_requests")
	defer span.End()
	span.SetAttributes(attribute.String("user_id", userID.String()))

	var fetched []*models.VerificationRequest
	err := c.client.From(backend.TableVerificationRequests).
		Select("*").
		Eq("user_id", userID.String()).
		Order("created_at", false).
		All(ctx, &fetched)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.isLoadingRequests = false
	if err != nil {
		span.RecordError(err)
		c.errMsg = err.Error()
		return false
	}
	c.requests = fetched
	return true
}

// CreateRequest inserts a new request and appends the returned row to the
// existing list without refetching.
func (c *Container) CreateRequest(ctx context.Context, fields CreateFields) bool {
	ctx, span := tracer.Start(ctx, "verification.create_request")
	defer span.End()

	c.mu.Lock()
	c.loading = true
	c.errMsg = ""
	c.mu.Unlock()

	row := map[string]any{
		"requester_id":      fields.RequesterID.String(),
		"user_id":           fields.UserID.String(),
		"identity_id":       fields.IdentityID.String(),
		"verification_type": fields.VerificationType,
	}
	if fields.Message != nil {
		row["message"] = *fields.Message
	}

	var created models.VerificationRequest
	err := c.client.From(backend.TableVerificationRequests).Insert(row).Single(ctx, &created)

	c.mu.Lock()
	c.loading = false
	if err != nil {
		c.errMsg = err.Error()
		c.mu.Unlock()
		span.RecordError(err)
		return false
	}
	c.requests = append(c.requests, &created)
	c.mu.Unlock()

	c.metrics.VerificationRequests.Inc()
	c.emit(ctx, audit.EventVerificationRequested, audit.Event{
		UserID:  created.UserID,
		ActorID: created.RequesterID.String(),
	})
	return true
}

// UpdateRequest resolves a pending request and replaces the matching list
// element in place. All other elements keep their position and identity.
func (c *Container) UpdateRequest(ctx context.Context, requestID id.RequestID, status models.RequestStatus) bool {
	ctx, span := tracer.Start(ctx, "verification.update_request")
	defer span.End()
	span.SetAttributes(
		attribute.String("request_id", requestID.String()),
		attribute.String("status", string(status)),
	)

	c.mu.Lock()
	current := c.find(requestID)
	c.mu.Unlock()

	if current != nil {
		if err := current.CanRespond(status); err != nil {
			span.RecordError(err)
			c.mu.Lock()
			c.errMsg = err.Error()
			c.mu.Unlock()
			return false
		}
	}

	now := requestcontext.Now(ctx)
	patch := map[string]any{
		"status":       string(status),
		"responded_at": now,
	}

	var updated models.VerificationRequest
	err := c.client.From(backend.TableVerificationRequests).
		Update(patch).
		Eq("id", requestID.String()).
		Single(ctx, &updated)

	c.mu.Lock()
	if err != nil {
		c.errMsg = err.Error()
		c.mu.Unlock()
		span.RecordError(err)
		return false
	}
	for i, req := range c.requests {
		if req.ID == requestID {
			c.requests[i] = &updated
			break
		}
	}
	c.errMsg = ""
	c.mu.Unlock()

	c.metrics.VerificationResponse.WithLabelValues(string(status)).Inc()
	c.emit(ctx, audit.EventVerificationResponded, audit.Event{
		UserID:   updated.UserID,
		Decision: string(status),
	})
	return true
}

func (c *Container) find(requestID id.RequestID) *models.VerificationRequest {
	for _, req := range c.requests {
		if req.ID == requestID {
			return req
		}
	}
	return nil
}

func (c *Container) emit(ctx context.Context, action audit.AuditEvent, event audit.Event) {
	if c.audit == nil {
		return
	}
	event.Category = action.Category()
	event.Action = string(action)
	event.Subject = "verification_request"
	event.RequestID = requestcontext.RequestID(ctx)
	event.IP = requestcontext.ClientIP(ctx)
	event.Device = requestcontext.Device(ctx)
	if err := c.audit.Emit(ctx, event); err != nil {
		c.logger.WarnContext(ctx, "failed to emit audit event",
			"action", event.Action,
			"error", err,
		)
	}
}
