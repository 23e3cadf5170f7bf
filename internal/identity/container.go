// Package identity owns the digital-identity slice of application state:
// the user's identity record, a loading flag, and the last error. The
// optional on-chain registration step lives here too, since its result is
// written back onto the identity row.
package identity

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"legitid/internal/backend"
	"legitid/internal/chain"
	"legitid/internal/identity/models"
	"legitid/internal/platform/metrics"
	id "legitid/pkg/domain"
	"legitid/pkg/platform/audit"
	"legitid/pkg/platform/audit/publisher"
	"legitid/pkg/platform/sentinel"
	strutil "legitid/pkg/platform/strings"
	"legitid/pkg/requestcontext"
)

var tracer = otel.Tracer("legitid/internal/identity")

// State is a point-in-time snapshot of the container.
type State struct {
	Identity *models.Identity
	Loading  bool
	Error    string
}

// CreateFields carries the caller-supplied columns for a new identity.
// Server-assigned fields (id, status, timestamps) are never accepted here.
type CreateFields struct {
	UserID       id.UserID
	FullName     string
	DateOfBirth  string
	IDNumber     string
	DocumentURLs []string
}

// Container holds identity state and the actions that mutate it.
type Container struct {
	client  backend.Client
	chain   *chain.Service
	audit   *publisher.Publisher
	metrics *metrics.Metrics
	logger  *slog.Logger

	mu       sync.Mutex
	identity *models.Identity
	loading  bool
	errMsg   string
}

func NewContainer(
	client backend.Client,
	chainSvc *chain.Service,
	auditPub *publisher.Publisher,
	m *metrics.Metrics,
	logger *slog.Logger,
) *Container {
	return &Container{
		client:  client,
		chain:   chainSvc,
		audit:   auditPub,
		metrics: m,
		logger:  logger,
	}
}

// State returns a snapshot of the container's state.
func (c *Container) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return State{Identity: c.identity, Loading: c.loading, Error: c.errMsg}
}

func (c *Container) setLoading() {
	c.mu.Lock()
	c.loading = true
	c.errMsg = ""
	c.mu.Unlock()
}

func (c *Container) fail(msg string) bool {
	c.mu.Lock()
	c.loading = false
	c.errMsg = msg
	c.mu.Unlock()
	return false
}

func (c *Container) store(identity *models.Identity) {
	c.mu.Lock()
	c.identity = identity
	c.loading = false
	c.errMsg = ""
	c.mu.Unlock()
}

// CreateIdentity inserts a new identity row and adopts the returned
// representation, including the server-assigned id, pending status, and
// timestamps. Uniqueness per user is a backend concern, not enforced here.
func (c *Container) CreateIdentity(ctx context.Context, fields CreateFields) bool {
	ctx, span := tracer.Start(ctx, "identity.create")
	defer span.End()
	span.SetAttributes(attribute.String("user_id", fields.UserID.String()))

	c.setLoading()

	row := map[string]any{
		"user_id":       fields.UserID.String(),
		"full_name":     fields.FullName,
		"date_of_birth": fields.DateOfBirth,
		"id_number":     fields.IDNumber,
		"document_urls": strutil.DedupeAndTrim(fields.DocumentURLs),
	}

	var created models.Identity
	err := c.client.From(backend.TableIdentities).Insert(row).Single(ctx, &created)
	if err != nil {
		span.RecordError(err)
		return c.fail(err.Error())
	}

	c.store(&created)
	c.metrics.IdentitiesCreated.Inc()
	c.emit(ctx, audit.EventIdentityCreated, audit.Event{UserID: created.UserID})
	return true
}

// GetIdentity fetches the user's identity. A "no rows" miss is a valid
// negative result: the identity is cleared and no error is surfaced.
func (c *Container) GetIdentity(ctx context.Context, userID id.UserID) bool {
	ctx, span := tracer.Start(ctx, "identity.get")
	defer span.End()
	span.SetAttributes(attribute.String("user_id", userID.String()))

	c.setLoading()

	var identity models.Identity
	err := c.client.From(backend.TableIdentities).
		Select("*").
		Eq("user_id", userID.String()).
		Single(ctx, &identity)
	if errors.Is(err, sentinel.ErrNoRows) {
		c.store(nil)
		return true
	}
	if err != nil {
		span.RecordError(err)
		return c.fail(err.Error())
	}

	c.store(&identity)
	return true
}

// UpdateIdentity applies a patch by identifier and adopts the updated row.
func (c *Container) UpdateIdentity(ctx context.Context, identityID id.IdentityID, patch map[string]any) bool {
	ctx, span := tracer.Start(ctx, "identity.update")
	defer span.End()
	span.SetAttributes(attribute.String("identity_id", identityID.String()))

	c.setLoading()

	var updated models.Identity
	err := c.client.From(backend.TableIdentities).
		Update(patch).
		Eq("id", identityID.String()).
		Single(ctx, &updated)
	if err != nil {
		span.RecordError(err)
		return c.fail(err.Error())
	}

	c.store(&updated)
	c.emit(ctx, audit.EventIdentityUpdated, audit.Event{UserID: updated.UserID})
	return true
}

// RegisterOnChain hashes the identity onto the registry contract and writes
// the transaction hash back onto the identity row. The chain step is
// optional: a missing wallet or provider is surfaced as the error message,
// never as a fault.
func (c *Container) RegisterOnChain(ctx context.Context, userID id.UserID, documentHash, verificationLevel string) bool {
	ctx, span := tracer.Start(ctx, "identity.register_on_chain")
	defer span.End()

	c.mu.Lock()
	identity := c.identity
	c.mu.Unlock()
	if identity == nil {
		return c.fail("no identity to register")
	}

	c.setLoading()

	txHash, err := c.chain.RegisterIdentity(ctx, userID, documentHash, verificationLevel)
	if err != nil {
		span.RecordError(err)
		return c.fail(err.Error())
	}

	if !c.UpdateIdentity(ctx, identity.ID, map[string]any{"blockchain_hash": txHash}) {
		return false
	}

	c.emit(ctx, audit.EventChainRegistered, audit.Event{
		UserID: userID,
		Reason: txHash,
	})
	return true
}

func (c *Container) emit(ctx context.Context, action audit.AuditEvent, event audit.Event) {
	if c.audit == nil {
		return
	}
	event.Category = action.Category()
	event.Action = string(action)
	event.Subject = "identity"
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
