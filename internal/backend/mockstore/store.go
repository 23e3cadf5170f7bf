// Package mockstore is the in-memory backend used for demos and tests. It
// lets every container function end-to-end without a live service while
// keeping that service's observable quirks:
//
//   - One mutable session per Store instance, its identifier and creation
//     timestamp fixed at construction. Sign-in overwrites the session email
//     without validating the password; sign-up merges profile metadata onto
//     the same session identifier; sign-out succeeds without mutating
//     anything, and the current user does not observe it.
//   - The "users" table synthesizes a profile from the session (an email
//     containing "admin" yields the admin role) and never reflects written
//     rows.
//   - An insert followed by Single in the same chain returns the inserted
//     row regardless of filters.
//
// The session is scoped to the Store instance rather than the process, so a
// test fixture or server owns exactly one session and tests do not share
// state.
package mockstore

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"

	"legitid/internal/backend"
	"legitid/pkg/platform/sentinel"
	"legitid/pkg/requestcontext"
)

// Store implements backend.Client entirely in memory.
type Store struct {
	mu       sync.Mutex
	session  backend.Session
	tables   map[string][]row
	serverID map[string]bool
}

type row map[string]any

// New constructs a Store with a fresh singleton session.
func New() *Store {
	now := timeNow()
	return &Store{
		session: backend.Session{
			AccessToken: "mock-token-" + uuid.New().String(),
			TokenType:   "bearer",
			ExpiresIn:   3600,
			User: backend.Account{
				ID:        uuid.New().String(),
				Email:     "demo@legitid.local",
				Metadata:  map[string]any{},
				CreatedAt: now,
			},
		},
		tables: map[string][]row{
			backend.TableIdentities:           {},
			backend.TableVerificationRequests: {},
		},
	}
}

// Auth implements backend.Client.
func (s *Store) Auth() backend.Auth { return (*mockAuth)(s) }

// From implements backend.Client.
func (s *Store) From(table string) backend.Query {
	return &query{store: s, table: table}
}

type mockAuth Store

// SignIn always succeeds: it overwrites the singleton session's email with
// the supplied one and never validates the password.
func (a *mockAuth) SignIn(_ context.Context, email, _ string) (*backend.Session, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.session.User.Email = email
	return copySession(a.session), nil
}

// SignUp always succeeds: it merges the metadata into the session's profile
// metadata. The session identifier is fixed at construction, so consecutive
// sign-ups resolve to the same identifier.
func (a *mockAuth) SignUp(_ context.Context, email, _ string, metadata map[string]any) (*backend.Session, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.session.User.Email = email
	for k, v := range metadata {
		a.session.User.Metadata[k] = v
	}
	return copySession(a.session), nil
}

// SignOut succeeds and mutates nothing; a subsequent CurrentUser still
// returns the session.
func (a *mockAuth) SignOut(context.Context, string) error { return nil }

// CurrentUser returns the singleton session's account regardless of prior
// sign-in or sign-out calls. The access token is ignored.
func (a *mockAuth) CurrentUser(context.Context, string) (*backend.Account, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	account := a.session.User
	account.Metadata = cloneMap(a.session.User.Metadata)
	return &account, nil
}

// Session returns a copy of the singleton session for test assertions.
func (s *Store) Session() backend.Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return *copySession(s.session)
}

func copySession(s backend.Session) *backend.Session {
	out := s
	out.User.Metadata = cloneMap(s.User.Metadata)
	return &out
}

func cloneMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

type eqFilter struct {
	column string
	value  string
}

type query struct {
	store   *Store
	table   string
	filters []eqFilter

	orderColumn string
	orderAsc    bool
	hasOrder    bool

	insertRow any
	hasInsert bool

	updatePatch any
	hasUpdate   bool
}

func (q *query) Select(string) backend.Query { return q }

func (q *query) Eq(column, value string) backend.Query {
	q.filters = append(q.filters, eqFilter{column: column, value: value})
	return q
}

func (q *query) Order(column string, ascending bool) backend.Query {
	q.orderColumn = column
	q.orderAsc = ascending
	q.hasOrder = true
	return q
}

func (q *query) Insert(r any) backend.Query {
	q.insertRow = r
	q.hasInsert = true
	return q
}

func (q *query) Update(patch any) backend.Query {
	q.updatePatch = patch
	q.hasUpdate = true
	return q
}

// Single executes the chain and decodes exactly one row. An insert in the
// chain wins over any filter lookup; a filtered lookup that matches zero (or
// multiple) rows reports sentinel.ErrNoRows.
func (q *query) Single(ctx context.Context, dst any) error {
	q.store.mu.Lock()
	defer q.store.mu.Unlock()

	if q.hasInsert {
		inserted, err := q.store.applyInsert(ctx, q.table, q.insertRow)
		if err != nil {
			return err
		}
		return decodeInto(inserted, dst)
	}

	if q.hasUpdate {
		updated, err := q.store.applyUpdate(ctx, q.table, q.updatePatch, q.filters)
		if err != nil {
			return err
		}
		if len(updated) == 0 {
			return fmt.Errorf("update matched no rows in %q: %w", q.table, sentinel.ErrNoRows)
		}
		return decodeInto(updated[0], dst)
	}

	matches := q.store.matchRows(q.table, q.filters)
	if len(matches) != 1 {
		return fmt.Errorf("expected one row in %q, matched %d: %w", q.table, len(matches), sentinel.ErrNoRows)
	}
	return decodeInto(matches[0], dst)
}

// MaybeSingle is Single's optional-row variant: a miss reports found=false
// with no error.
func (q *query) MaybeSingle(ctx context.Context, dst any) (bool, error) {
	err := q.Single(ctx, dst)
	if err != nil {
		if errorsIsNoRows(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// All executes the chain and decodes every matching row, applying the
// requested ordering.
func (q *query) All(_ context.Context, dst any) error {
	q.store.mu.Lock()
	defer q.store.mu.Unlock()

	matches := q.store.matchRows(q.table, q.filters)
	if q.hasOrder {
		col, asc := q.orderColumn, q.orderAsc
		sort.SliceStable(matches, func(i, j int) bool {
			a := fmt.Sprint(matches[i][col])
			b := fmt.Sprint(matches[j][col])
			if asc {
				return a < b
			}
			return a > b
		})
	}
	return decodeInto(matches, dst)
}

// Exec applies the chain's side effect without decoding a representation.
func (q *query) Exec(ctx context.Context) error {
	q.store.mu.Lock()
	defer q.store.mu.Unlock()

	switch {
	case q.hasInsert:
		_, err := q.store.applyInsert(ctx, q.table, q.insertRow)
		return err
	case q.hasUpdate:
		_, err := q.store.applyUpdate(ctx, q.table, q.updatePatch, q.filters)
		return err
	default:
		return nil
	}
}

// applyInsert assigns server fields, appends the row in insertion order, and
// returns it. Rows written to "users" are accepted and echoed but never
// stored; the users table is synthesized from the session.
func (s *Store) applyInsert(ctx context.Context, table string, src any) (row, error) {
	r, err := toRow(src)
	if err != nil {
		return nil, err
	}

	now := requestcontext.Now(ctx).UTC().Format(rfc3339Micro)
	switch table {
	case backend.TableIdentities:
		r["id"] = uuid.New().String()
		r["status"] = "pending"
		r["created_at"] = now
		r["updated_at"] = now
	case backend.TableVerificationRequests:
		r["id"] = uuid.New().String()
		r["status"] = "pending"
		r["created_at"] = now
	case backend.TableUsers:
		return r, nil
	}

	s.tables[table] = append(s.tables[table], r)
	return r, nil
}

func (s *Store) applyUpdate(ctx context.Context, table string, patch any, filters []eqFilter) ([]row, error) {
	p, err := toRow(patch)
	if err != nil {
		return nil, err
	}

	var updated []row
	for _, r := range s.tables[table] {
		if !rowMatches(r, filters) {
			continue
		}
		for k, v := range p {
			r[k] = v
		}
		if table == backend.TableIdentities {
			r["updated_at"] = requestcontext.Now(ctx).UTC().Format(rfc3339Micro)
		}
		updated = append(updated, r)
	}
	return updated, nil
}

// matchRows resolves a filtered read. The "users" table never reflects
// written rows: it synthesizes a single profile from the session, deriving
// the admin role from an "admin" substring in the email.
func (s *Store) matchRows(table string, filters []eqFilter) []row {
	if table == backend.TableUsers {
		profile := s.synthesizeUserRow()
		if rowMatches(profile, filters) {
			return []row{profile}
		}
		return nil
	}

	var matches []row
	for _, r := range s.tables[table] {
		if rowMatches(r, filters) {
			matches = append(matches, r)
		}
	}
	return matches
}

func (s *Store) synthesizeUserRow() row {
	email := s.session.User.Email

	role := "individual"
	if strings.Contains(email, "admin") {
		role = "admin"
	}

	fullName, _ := s.session.User.Metadata["full_name"].(string)
	if fullName == "" {
		fullName = email
		if at := strings.Index(email, "@"); at > 0 {
			fullName = email[:at]
		}
	}

	return row{
		"id":          s.session.User.ID,
		"email":       email,
		"full_name":   fullName,
		"role":        role,
		"is_verified": false,
		"created_at":  s.session.User.CreatedAt.UTC().Format(rfc3339Micro),
	}
}

func rowMatches(r row, filters []eqFilter) bool {
	for _, f := range filters {
		v, ok := r[f.column]
		if !ok || fmt.Sprint(v) != f.value {
			return false
		}
	}
	return true
}

func toRow(src any) (row, error) {
	if r, ok := src.(row); ok {
		return cloneMap(r), nil
	}
	if m, ok := src.(map[string]any); ok {
		return cloneMap(m), nil
	}
	b, err := json.Marshal(src)
	if err != nil {
		return nil, fmt.Errorf("encode row: %w", err)
	}
	var r row
	if err := json.Unmarshal(b, &r); err != nil {
		return nil, fmt.Errorf("decode row: %w", err)
	}
	return r, nil
}

func decodeInto(src, dst any) error {
	b, err := json.Marshal(src)
	if err != nil {
		return fmt.Errorf("encode result: %w", err)
	}
	if err := json.Unmarshal(b, dst); err != nil {
		return fmt.Errorf("decode result: %w", err)
	}
	return nil
}
