package auth

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"legitid/internal/auth/sessioncache"
	"legitid/internal/backend"
	"legitid/internal/backend/mockstore"
	jwttoken "legitid/internal/jwt_token"
	"legitid/internal/platform/metrics"
	id "legitid/pkg/domain"
	"legitid/pkg/platform/audit"
	"legitid/pkg/platform/audit/publisher"
	"legitid/pkg/platform/audit/store/memory"
)

type fixture struct {
	container *Container
	store     *mockstore.Store
	sessions  *sessioncache.InMemory
	audit     *memory.InMemoryStore
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := mockstore.New()
	sessions := sessioncache.NewInMemory()
	auditStore := memory.NewInMemoryStore()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	container := NewContainer(
		store,
		jwttoken.NewJWTService("test-signing-key", "legitid", "legitid-portal"),
		sessions,
		publisher.NewPublisher(auditStore),
		metrics.New(prometheus.NewRegistry()),
		time.Hour,
		logger,
	)
	return &fixture{container: container, store: store, sessions: sessions, audit: auditStore}
}

func TestLogin_AdoptsSuppliedEmail(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	ok := f.container.Login(ctx, "user@example.com", "whatever")
	require.True(t, ok)

	state := f.container.State()
	require.NotNil(t, state.User)
	assert.Equal(t, "user@example.com", state.User.Email)
	assert.True(t, state.IsAuthenticated)
	assert.Empty(t, state.Error)
	assert.False(t, state.Loading)
	assert.NotEmpty(t, f.container.Token())
}

func TestLogin_RegistersActiveSession(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.True(t, f.container.Login(ctx, "user@example.com", "pw"))

	active, err := f.sessions.IsActive(ctx, f.container.SessionID())
	require.NoError(t, err)
	assert.True(t, active)
}

func TestLogin_AdminSubstringRole(t *testing.T) {
	f := newFixture(t)

	require.True(t, f.container.Login(context.Background(), "admin@x.com", "pw"))

	state := f.container.State()
	require.NotNil(t, state.User)
	assert.Equal(t, id.RoleAdmin, state.User.Role)
}

func TestLogin_FailureSurfacesMessage(t *testing.T) {
	f := newFixture(t)
	f.container.client = &failingClient{err: errors.New("invalid credentials")}

	ok := f.container.Login(context.Background(), "user@example.com", "wrong")
	require.False(t, ok)

	state := f.container.State()
	assert.Nil(t, state.User)
	assert.False(t, state.IsAuthenticated)
	assert.Contains(t, state.Error, "invalid credentials")
	assert.False(t, state.Loading)
}

func TestRegister_IndividualScenario(t *testing.T) {
	f := newFixture(t)

	ok := f.container.Register(context.Background(), "a@x.com", "pw", "Ada", id.RoleIndividual)
	require.True(t, ok)

	state := f.container.State()
	require.NotNil(t, state.User)
	assert.Equal(t, id.RoleIndividual, state.User.Role)
	assert.Equal(t, "Ada", state.User.FullName)
	assert.Equal(t, "a@x.com", state.User.Email)
	assert.False(t, state.User.IsVerified)
	assert.True(t, state.IsAuthenticated)
}

func TestRegister_EmitsAuditEvent(t *testing.T) {
	f := newFixture(t)

	require.True(t, f.container.Register(context.Background(), "a@x.com", "pw", "Ada", id.RoleIndividual))

	events, err := f.audit.ListByUser(context.Background(), f.container.State().User.ID)
	require.NoError(t, err)
	require.NotEmpty(t, events)
	assert.Equal(t, string(audit.EventUserRegistered), events[0].Action)
	assert.Equal(t, audit.CategoryCompliance, events[0].Category)
}

func TestRegister_InvalidInputFails(t *testing.T) {
	f := newFixture(t)

	ok := f.container.Register(context.Background(), "a@x.com", "pw", "", id.RoleIndividual)
	require.False(t, ok)

	state := f.container.State()
	assert.False(t, state.IsAuthenticated)
	assert.Contains(t, state.Error, "full name")
}

func TestLogout_ClearsLocalState(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.True(t, f.container.Login(ctx, "user@example.com", "pw"))
	sessionID := f.container.SessionID()

	ok := f.container.Logout(ctx)
	require.True(t, ok)

	state := f.container.State()
	assert.Nil(t, state.User)
	assert.False(t, state.IsAuthenticated)
	assert.Empty(t, f.container.Token())

	active, err := f.sessions.IsActive(ctx, sessionID)
	require.NoError(t, err)
	assert.False(t, active)
}

func TestLogout_RemoteFailureStillClearsState(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.True(t, f.container.Login(ctx, "user@example.com", "pw"))

	f.container.client = &failingClient{err: errors.New("backend down")}

	ok := f.container.Logout(ctx)
	require.False(t, ok)

	state := f.container.State()
	assert.Nil(t, state.User)
	assert.False(t, state.IsAuthenticated)
	assert.Contains(t, state.Error, "backend down")
}

func TestCheckAuth_ResolvesCurrentSession(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// The mock always reports its singleton session.
	ok := f.container.CheckAuth(ctx)
	require.True(t, ok)

	state := f.container.State()
	require.NotNil(t, state.User)
	assert.Equal(t, f.store.Session().User.Email, state.User.Email)
	assert.True(t, state.IsAuthenticated)
}

// failingClient fails every auth operation with a fixed error.
type failingClient struct {
	err error
}

func (c *failingClient) Auth() backend.Auth        { return (*failingAuth)(c) }
func (c *failingClient) From(string) backend.Query { panic("not used") }

type failingAuth failingClient

func (a *failingAuth) SignIn(context.Context, string, string) (*backend.Session, error) {
	return nil, a.err
}

func (a *failingAuth) SignUp(context.Context, string, string, map[string]any) (*backend.Session, error) {
	return nil, a.err
}

func (a *failingAuth) SignOut(context.Context, string) error { return a.err }

func (a *failingAuth) CurrentUser(context.Context, string) (*backend.Account, error) {
	return nil, a.err
}
