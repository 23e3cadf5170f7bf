package supabase

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"legitid/internal/platform/config"
	"legitid/pkg/platform/sentinel"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return New(config.BackendConfig{
		URL:     srv.URL,
		AnonKey: "test-anon-key",
		Timeout: 5 * time.Second,
	}, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestSignIn(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/auth/v1/token", r.URL.Path)
		assert.Equal(t, "password", r.URL.Query().Get("grant_type"))
		assert.Equal(t, "test-anon-key", r.Header.Get("apikey"))

		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "ada@x.com", body["email"])

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"access_token": "jwt-token",
			"token_type": "bearer",
			"expires_in": 3600,
			"user": {"id": "550e8400-e29b-41d4-a716-446655440000", "email": "ada@x.com"}
		}`))
	})

	session, err := client.Auth().SignIn(context.Background(), "ada@x.com", "secret")
	require.NoError(t, err)
	assert.Equal(t, "jwt-token", session.AccessToken)
	assert.Equal(t, "ada@x.com", session.User.Email)
}

func TestSignIn_BadCredentials(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"invalid_grant","error_description":"Invalid login credentials"}`))
	})

	_, err := client.Auth().SignIn(context.Background(), "ada@x.com", "wrong")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Invalid login credentials")
}

func TestSignUp_CarriesMetadata(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/auth/v1/signup", r.URL.Path)

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		data, ok := body["data"].(map[string]any)
		require.True(t, ok, "metadata must be sent under data")
		assert.Equal(t, "Ada", data["full_name"])

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"access_token": "jwt-token",
			"user": {"id": "550e8400-e29b-41d4-a716-446655440000", "email": "ada@x.com", "user_metadata": {"full_name": "Ada"}}
		}`))
	})

	session, err := client.Auth().SignUp(context.Background(), "ada@x.com", "secret", map[string]any{"full_name": "Ada"})
	require.NoError(t, err)
	assert.Equal(t, "Ada", session.User.Metadata["full_name"])
}

func TestCurrentUser_NoSession(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"msg":"invalid JWT"}`))
	})

	account, err := client.Auth().CurrentUser(context.Background(), "stale-token")
	require.NoError(t, err, "a rejected token is a valid negative result")
	assert.Nil(t, account)
}

func TestSingle_NoRowsSentinel(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/vnd.pgrst.object+json", r.Header.Get("Accept"))
		assert.Equal(t, "eq.user-1", r.URL.Query().Get("user_id"))

		w.WriteHeader(http.StatusNotAcceptable)
		_, _ = w.Write([]byte(`{"code":"PGRST116","message":"JSON object requested, multiple (or no) rows returned"}`))
	})

	var dst map[string]any
	err := client.From("identities").Eq("user_id", "user-1").Single(context.Background(), &dst)
	require.ErrorIs(t, err, sentinel.ErrNoRows)

	found, err := client.From("identities").Eq("user_id", "user-1").MaybeSingle(context.Background(), &dst)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestInsert_ReturnsRepresentation(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/rest/v1/identities", r.URL.Path)
		assert.Equal(t, "return=representation", r.Header.Get("Prefer"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id": "new-id", "user_id": "user-1", "status": "pending"}`))
	})

	var inserted map[string]any
	err := client.From("identities").
		Insert(map[string]any{"user_id": "user-1"}).
		Single(context.Background(), &inserted)
	require.NoError(t, err)
	assert.Equal(t, "new-id", inserted["id"])
	assert.Equal(t, "pending", inserted["status"])
}

func TestUpdate_Exec(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPatch, r.Method)
		assert.Equal(t, "eq.ident-1", r.URL.Query().Get("id"))
		assert.Equal(t, "return=minimal", r.Header.Get("Prefer"))
		w.WriteHeader(http.StatusNoContent)
	})

	err := client.From("identities").
		Update(map[string]any{"status": "verified"}).
		Eq("id", "ident-1").
		Exec(context.Background())
	require.NoError(t, err)
}

func TestAll_AppliesOrder(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "created_at.desc", r.URL.Query().Get("order"))
		assert.Equal(t, "eq.user-1", r.URL.Query().Get("user_id"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"id": "b"}, {"id": "a"}]`))
	})

	var rows []map[string]any
	err := client.From("verification_requests").
		Eq("user_id", "user-1").
		Order("created_at", false).
		All(context.Background(), &rows)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "b", rows[0]["id"])
}

func TestUnreachableBackend(t *testing.T) {
	client := New(config.BackendConfig{
		URL:     "http://127.0.0.1:1",
		AnonKey: "key",
		Timeout: 100 * time.Millisecond,
	}, slog.New(slog.NewTextHandler(io.Discard, nil)))

	var dst map[string]any
	err := client.From("identities").Eq("user_id", "u").Single(context.Background(), &dst)
	require.ErrorIs(t, err, sentinel.ErrUnavailable)
}
