// Package backend defines the narrow client facade through which containers
// reach the remote data service. Two implementations exist: the supabase
// subpackage speaks to a live GoTrue/PostgREST deployment, and the mockstore
// subpackage is the in-memory demo/test backend. Selection between them
// happens once at startup based on configuration.
package backend

import (
	"context"
	"time"
)

// Table names the facade serves.
const (
	TableUsers                = "users"
	TableIdentities           = "identities"
	TableVerificationRequests = "verification_requests"
)

// Client is the facade root: authentication plus a per-table query builder.
type Client interface {
	Auth() Auth
	From(table string) Query
}

// Auth exposes the account operations containers consume.
type Auth interface {
	// SignIn authenticates with email and password and returns the session.
	SignIn(ctx context.Context, email, password string) (*Session, error)
	// SignUp registers an account. Metadata is merged into the account's
	// profile metadata and carried on the returned session's user.
	SignUp(ctx context.Context, email, password string, metadata map[string]any) (*Session, error)
	// SignOut ends the session for the given access token.
	SignOut(ctx context.Context, accessToken string) error
	// CurrentUser resolves the account behind an access token.
	// Returns nil with no error when no session exists.
	CurrentUser(ctx context.Context, accessToken string) (*Account, error)
}

// Query is a chainable single-table query builder. Builder methods return the
// receiver for chaining; terminal methods execute.
//
// Terminal semantics:
//   - Single decodes exactly one row into dst and returns
//     sentinel.ErrNoRows (possibly wrapped) when zero or multiple rows
//     match. Callers must treat that as a valid negative result.
//   - MaybeSingle reports found=false with a nil error on miss.
//   - All decodes every matching row into a slice pointed to by dst.
//   - Exec applies a side effect (insert or update) without decoding a
//     representation.
type Query interface {
	Select(columns string) Query
	Eq(column, value string) Query
	Order(column string, ascending bool) Query
	Insert(row any) Query
	Update(patch any) Query

	Single(ctx context.Context, dst any) error
	MaybeSingle(ctx context.Context, dst any) (bool, error)
	All(ctx context.Context, dst any) error
	Exec(ctx context.Context) error
}

// Account is the backend's view of an authenticated account.
type Account struct {
	ID        string         `json:"id"`
	Email     string         `json:"email"`
	Metadata  map[string]any `json:"user_metadata,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}

// Session is an authenticated session with its bearer token.
type Session struct {
	AccessToken  string  `json:"access_token"`
	TokenType    string  `json:"token_type"`
	ExpiresIn    int     `json:"expires_in"`
	RefreshToken string  `json:"refresh_token"`
	User         Account `json:"user"`
}
