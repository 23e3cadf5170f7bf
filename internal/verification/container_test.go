package verification

import (
	"context"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"legitid/internal/backend"
	"legitid/internal/backend/mockstore"
	"legitid/internal/platform/metrics"
	"legitid/internal/verification/models"
	id "legitid/pkg/domain"
	"legitid/pkg/platform/audit/publisher"
	"legitid/pkg/platform/audit/store/memory"
	"legitid/pkg/requestcontext"
)

func newContainer(t *testing.T, client backend.Client) *Container {
	t.Helper()
	return NewContainer(
		client,
		publisher.NewPublisher(memory.NewInMemoryStore()),
		metrics.New(prometheus.NewRegistry()),
		slog.New(slog.NewTextHandler(io.Discard, nil)),
	)
}

func sampleFields(userID id.UserID) CreateFields {
	msg := "please confirm identity"
	return CreateFields{
		RequesterID:      id.NewUserID(),
		UserID:           userID,
		IdentityID:       id.NewIdentityID(),
		VerificationType: "Identity Verification",
		Message:          &msg,
	}
}

func TestCreateRequest_AppendsWithServerAssignedID(t *testing.T) {
	c := newContainer(t, mockstore.New())
	userID := id.NewUserID()

	require.Empty(t, c.State().Requests)

	ok := c.CreateRequest(context.Background(), sampleFields(userID))
	require.True(t, ok)

	state := c.State()
	require.Len(t, state.Requests, 1)
	assert.False(t, state.Requests[0].ID.IsNil())
	assert.Equal(t, models.RequestStatusPending, state.Requests[0].Status)
	assert.Equal(t, userID, state.Requests[0].UserID)
	assert.Empty(t, state.Error)
}

func TestGetRequests_NewestFirst(t *testing.T) {
	store := mockstore.New()
	c := newContainer(t, store)
	userID := id.NewUserID()

	base := time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		ctx := requestcontext.WithTime(context.Background(), base.Add(time.Duration(i)*time.Minute))
		require.True(t, c.CreateRequest(ctx, sampleFields(userID)))
	}

	require.True(t, c.GetRequests(context.Background(), userID))

	state := c.State()
	require.Len(t, state.Requests, 3)
	for i := 1; i < len(state.Requests); i++ {
		assert.False(t, state.Requests[i].CreatedAt.After(state.Requests[i-1].CreatedAt),
			"requests must be ordered newest first")
	}
}

func TestGetRequests_InFlightGuard(t *testing.T) {
	store := mockstore.New()
	counting := &countingClient{Client: store}
	counting.started = make(chan struct{}, 1)
	counting.release = make(chan struct{})
	c := newContainer(t, counting)
	userID := id.NewUserID()

	done := make(chan bool, 1)
	go func() {
		done <- c.GetRequests(context.Background(), userID)
	}()

	// Wait for the first fetch to be in flight, then call again: the second
	// call must be a no-op, not a second fetch.
	<-counting.started
	assert.True(t, c.GetRequests(context.Background(), userID))

	close(counting.release)
	assert.True(t, <-done)
	assert.EqualValues(t, 1, counting.fetches.Load())
	assert.False(t, c.State().IsLoadingRequests)
}

func TestUpdateRequest_ReplacesOnlyMatchingElement(t *testing.T) {
	c := newContainer(t, mockstore.New())
	userID := id.NewUserID()
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		require.True(t, c.CreateRequest(ctx, sampleFields(userID)))
	}
	before := c.State().Requests
	target := before[1].ID

	ok := c.UpdateRequest(ctx, target, models.RequestStatusApproved)
	require.True(t, ok)

	after := c.State().Requests
	require.Len(t, after, 3)

	// Unmatched elements keep their identity and order.
	assert.Same(t, before[0], after[0])
	assert.Same(t, before[2], after[2])
	assert.NotSame(t, before[1], after[1])
	assert.Equal(t, target, after[1].ID)
	assert.Equal(t, models.RequestStatusApproved, after[1].Status)
	assert.NotNil(t, after[1].RespondedAt)
}

func TestUpdateRequest_TerminalStateIsFinal(t *testing.T) {
	c := newContainer(t, mockstore.New())
	userID := id.NewUserID()
	ctx := context.Background()

	require.True(t, c.CreateRequest(ctx, sampleFields(userID)))
	target := c.State().Requests[0].ID

	require.True(t, c.UpdateRequest(ctx, target, models.RequestStatusApproved))

	ok := c.UpdateRequest(ctx, target, models.RequestStatusRejected)
	require.False(t, ok)
	assert.NotEmpty(t, c.State().Error)

	// The list element is unchanged.
	assert.Equal(t, models.RequestStatusApproved, c.State().Requests[0].Status)
}

// countingClient counts verification-request fetches and blocks the first
// one until released, so tests can observe an in-flight fetch.
type countingClient struct {
	backend.Client
	fetches atomic.Int32
	started chan struct{}
	release chan struct{}
}

func (c *countingClient) From(table string) backend.Query {
	return &countingQuery{Query: c.Client.From(table), client: c}
}

type countingQuery struct {
	backend.Query
	client *countingClient
}

func (q *countingQuery) Select(columns string) backend.Query {
	q.Query = q.Query.Select(columns)
	return q
}

func (q *countingQuery) Eq(column, value string) backend.Query {
	q.Query = q.Query.Eq(column, value)
	return q
}

func (q *countingQuery) Order(column string, ascending bool) backend.Query {
	q.Query = q.Query.Order(column, ascending)
	return q
}

func (q *countingQuery) All(ctx context.Context, dst any) error {
	q.client.fetches.Add(1)
	select {
	case q.client.started <- struct{}{}:
	default:
	}
	<-q.client.release
	return q.Query.All(ctx, dst)
}
