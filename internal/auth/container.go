// Package auth owns the authentication slice of application state: the
// current user, whether a session is established, and the last error. Actions
// call the backend facade and fold the result into the state; failures are
// stored as messages, never propagated to callers as faults.
package auth

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"legitid/internal/auth/models"
	"legitid/internal/auth/sessioncache"
	"legitid/internal/backend"
	jwttoken "legitid/internal/jwt_token"
	"legitid/internal/platform/metrics"
	id "legitid/pkg/domain"
	"legitid/pkg/platform/audit"
	"legitid/pkg/platform/audit/publisher"
	"legitid/pkg/platform/sentinel"
	"legitid/pkg/requestcontext"
)

var tracer = otel.Tracer("legitid/internal/auth")

// State is a point-in-time snapshot of the container.
type State struct {
	User            *models.User
	Loading         bool
	Error           string
	IsAuthenticated bool
}

// Container holds authentication state and the actions that mutate it.
// Actions return a success boolean so callers can branch without inspecting
// the error message. The last writer wins on overlapping calls; only the
// state words are guarded, not whole actions.
type Container struct {
	client     backend.Client
	tokens     *jwttoken.JWTService
	sessions   sessioncache.Cache
	audit      *publisher.Publisher
	metrics    *metrics.Metrics
	logger     *slog.Logger
	sessionTTL time.Duration

	mu              sync.Mutex
	user            *models.User
	loading         bool
	errMsg          string
	isAuthenticated bool

	// Portal session established on login/register.
	token       string
	sessionID   id.SessionID
	accessToken string // facade bearer token, used for sign-out and checkAuth
}

func NewContainer(
	client backend.Client,
	tokens *jwttoken.JWTService,
	sessions sessioncache.Cache,
	auditPub *publisher.Publisher,
	m *metrics.Metrics,
	sessionTTL time.Duration,
	logger *slog.Logger,
) *Container {
	return &Container{
		client:     client,
		tokens:     tokens,
		sessions:   sessions,
		audit:      auditPub,
		metrics:    m,
		logger:     logger,
		sessionTTL: sessionTTL,
	}
}

// State returns a snapshot of the container's state.
func (c *Container) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return State{
		User:            c.user,
		Loading:         c.loading,
		Error:           c.errMsg,
		IsAuthenticated: c.isAuthenticated,
	}
}

// Token returns the portal JWT issued by the last successful login or
// registration.
func (c *Container) Token() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.token
}

// SessionID returns the active portal session's identifier.
func (c *Container) SessionID() id.SessionID {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sessionID
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
	c.isAuthenticated = false
	c.mu.Unlock()
	return false
}

// Login authenticates against the backend and resolves the user's profile.
// A missing profile row is not a failure: a minimal user is synthesized from
// the session email.
func (c *Container) Login(ctx context.Context, email, password string) bool {
	ctx, span := tracer.Start(ctx, "auth.login")
	defer span.End()
	span.SetAttributes(attribute.String("email", email))

	c.setLoading()

	session, err := c.client.Auth().SignIn(ctx, email, password)
	if err != nil {
		span.RecordError(err)
		c.metrics.Logins.WithLabelValues("failure").Inc()
		c.emit(ctx, audit.EventLoginFailed, audit.Event{
			Email:  email,
			Reason: err.Error(),
		})
		return c.fail(err.Error())
	}

	userID, err := id.ParseUserID(session.User.ID)
	if err != nil {
		span.RecordError(err)
		return c.fail("backend returned an invalid user id")
	}

	user := c.resolveProfile(ctx, userID, session.User.Email)

	if !c.establishSession(ctx, user, session.AccessToken) {
		return false
	}

	c.metrics.Logins.WithLabelValues("success").Inc()
	c.emit(ctx, audit.EventUserLogin, audit.Event{
		UserID: userID,
		Email:  user.Email,
	})
	return true
}

// Register signs the account up, writes the profile row, and establishes a
// session. Any failure, auth or profile insert, surfaces as the error and
// leaves the container unauthenticated.
func (c *Container) Register(ctx context.Context, email, password, fullName string, role id.Role) bool {
	ctx, span := tracer.Start(ctx, "auth.register")
	defer span.End()
	span.SetAttributes(attribute.String("email", email), attribute.String("role", string(role)))

	c.setLoading()

	metadata := map[string]any{
		"full_name": fullName,
		"role":      string(role),
	}
	session, err := c.client.Auth().SignUp(ctx, email, password, metadata)
	if err != nil {
		span.RecordError(err)
		return c.fail(err.Error())
	}

	userID, err := id.ParseUserID(session.User.ID)
	if err != nil {
		span.RecordError(err)
		return c.fail("backend returned an invalid user id")
	}

	profile, err := models.NewUser(userID, email, fullName, role, requestcontext.Now(ctx))
	if err != nil {
		span.RecordError(err)
		return c.fail(err.Error())
	}

	if err := c.client.From(backend.TableUsers).Insert(profile).Exec(ctx); err != nil {
		span.RecordError(err)
		return c.fail(err.Error())
	}

	if !c.establishSession(ctx, profile, session.AccessToken) {
		return false
	}

	c.metrics.Registrations.Inc()
	c.emit(ctx, audit.EventUserRegistered, audit.Event{
		UserID: userID,
		Email:  email,
	})
	return true
}

// Logout signs out remotely and always clears local authentication state.
// A remote failure only sets the error message; the user is still logged
// out locally.
func (c *Container) Logout(ctx context.Context) bool {
	ctx, span := tracer.Start(ctx, "auth.logout")
	defer span.End()

	c.mu.Lock()
	accessToken := c.accessToken
	sessionID := c.sessionID
	user := c.user
	c.mu.Unlock()

	remoteErr := c.client.Auth().SignOut(ctx, accessToken)
	if remoteErr != nil {
		span.RecordError(remoteErr)
		c.logger.WarnContext(ctx, "remote sign-out failed", "error", remoteErr)
	}

	if c.sessions != nil && !sessionID.IsNil() {
		if err := c.sessions.Remove(ctx, sessionID); err != nil {
			c.logger.WarnContext(ctx, "failed to remove session", "error", err)
		}
	}

	c.mu.Lock()
	c.user = nil
	c.isAuthenticated = false
	c.token = ""
	c.sessionID = id.SessionID{}
	c.accessToken = ""
	c.loading = false
	if remoteErr != nil {
		c.errMsg = remoteErr.Error()
	} else {
		c.errMsg = ""
	}
	c.mu.Unlock()

	if user != nil {
		c.emit(ctx, audit.EventUserLogout, audit.Event{
			UserID: user.ID,
			Email:  user.Email,
		})
	}
	return remoteErr == nil
}

// CheckAuth resolves whatever session the facade currently reports, using
// the same profile fallback as Login. Used at application start.
func (c *Container) CheckAuth(ctx context.Context) bool {
	ctx, span := tracer.Start(ctx, "auth.check")
	defer span.End()

	c.mu.Lock()
	accessToken := c.accessToken
	c.mu.Unlock()

	account, err := c.client.Auth().CurrentUser(ctx, accessToken)
	if err != nil {
		span.RecordError(err)
		return c.fail(err.Error())
	}
	if account == nil {
		c.mu.Lock()
		c.user = nil
		c.isAuthenticated = false
		c.loading = false
		c.mu.Unlock()
		return false
	}

	userID, err := id.ParseUserID(account.ID)
	if err != nil {
		span.RecordError(err)
		return c.fail("backend returned an invalid user id")
	}

	user := c.resolveProfile(ctx, userID, account.Email)

	c.mu.Lock()
	c.user = user
	c.isAuthenticated = true
	c.loading = false
	c.errMsg = ""
	c.mu.Unlock()
	return true
}

// resolveProfile adopts the stored profile row verbatim when one exists and
// synthesizes a minimal user otherwise.
func (c *Container) resolveProfile(ctx context.Context, userID id.UserID, email string) *models.User {
	var user models.User
	err := c.client.From(backend.TableUsers).
		Select("*").
		Eq("id", userID.String()).
		Single(ctx, &user)
	if err == nil {
		return &user
	}
	if !errors.Is(err, sentinel.ErrNoRows) {
		c.logger.WarnContext(ctx, "profile lookup failed, synthesizing",
			"user_id", userID,
			"error", err,
		)
	}
	return models.SynthesizeUser(userID, email, requestcontext.Now(ctx))
}

// establishSession issues the portal JWT and registers the session.
func (c *Container) establishSession(ctx context.Context, user *models.User, accessToken string) bool {
	sessionID := id.NewSessionID()
	token, err := c.tokens.GenerateAccessToken(user.ID, sessionID, string(user.Role), c.sessionTTL)
	if err != nil {
		c.logger.ErrorContext(ctx, "failed to issue token", "error", err)
		return c.fail("failed to establish session")
	}

	if c.sessions != nil {
		err := c.sessions.Put(ctx, sessionID, sessioncache.Session{
			UserID:      user.ID,
			Email:       user.Email,
			AccessToken: accessToken,
			CreatedAt:   requestcontext.Now(ctx),
		}, c.sessionTTL)
		if err != nil {
			c.logger.ErrorContext(ctx, "failed to register session", "error", err)
			return c.fail("failed to establish session")
		}
	}

	c.mu.Lock()
	c.user = user
	c.isAuthenticated = true
	c.loading = false
	c.errMsg = ""
	c.token = token
	c.sessionID = sessionID
	c.accessToken = accessToken
	c.mu.Unlock()
	return true
}

func (c *Container) emit(ctx context.Context, action audit.AuditEvent, event audit.Event) {
	if c.audit == nil {
		return
	}
	event.Category = action.Category()
	event.Action = string(action)
	event.Subject = "user"
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
