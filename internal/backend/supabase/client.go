// Package supabase implements the backend client facade against a live
// GoTrue (auth) and PostgREST (data) deployment.
package supabase

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"legitid/internal/backend"
	"legitid/internal/platform/config"
	"legitid/pkg/platform/sentinel"
)

// pgrstNoRows is the PostgREST error code for "JSON object requested,
// multiple (or no) rows returned" on a single-object fetch. It marks a valid
// negative result, not a fault.
const pgrstNoRows = "PGRST116"

// Client talks to the remote backend over its REST APIs.
type Client struct {
	baseURL    string
	anonKey    string
	httpClient *http.Client
	logger     *slog.Logger
}

// New constructs a Client from backend configuration.
func New(cfg config.BackendConfig, logger *slog.Logger) *Client {
	return &Client{
		baseURL:    strings.TrimRight(cfg.URL, "/"),
		anonKey:    cfg.AnonKey,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		logger:     logger,
	}
}

// Auth implements backend.Client.
func (c *Client) Auth() backend.Auth { return &authAPI{client: c} }

// From implements backend.Client.
func (c *Client) From(table string) backend.Query {
	return &query{client: c, table: table, params: url.Values{}}
}

// apiError is the REST error envelope shared by GoTrue and PostgREST.
type apiError struct {
	Code             string `json:"code"`
	Message          string `json:"message"`
	Details          string `json:"details"`
	Hint             string `json:"hint"`
	ErrorField       string `json:"error"`
	ErrorDescription string `json:"error_description"`
	Msg              string `json:"msg"`
}

func (e *apiError) text() string {
	for _, m := range []string{e.Message, e.Msg, e.ErrorDescription, e.ErrorField} {
		if m != "" {
			return m
		}
	}
	return "unknown backend error"
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body any, headers map[string]string) (*http.Response, error) {
	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var bodyReader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode request body: %w", err)
		}
		bodyReader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	req.Header.Set("apikey", c.anonKey)
	req.Header.Set("Authorization", "Bearer "+c.anonKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.WarnContext(ctx, "backend request failed",
			"method", method,
			"path", path,
			"error", err,
		)
		return nil, fmt.Errorf("backend request failed: %w", sentinel.ErrUnavailable)
	}
	return resp, nil
}

func readBody(resp *http.Response) ([]byte, error) {
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read backend response: %w", err)
	}
	return raw, nil
}

// decodeError drains the response and converts a non-2xx status into an
// error, mapping the PostgREST no-rows code onto the sentinel.
func decodeError(resp *http.Response) error {
	defer resp.Body.Close()
	raw, _ := io.ReadAll(resp.Body)

	var envelope apiError
	_ = json.Unmarshal(raw, &envelope)

	if envelope.Code == pgrstNoRows {
		return fmt.Errorf("%s: %w", envelope.text(), sentinel.ErrNoRows)
	}
	return fmt.Errorf("backend error (status %d): %s", resp.StatusCode, envelope.text())
}

func decodeJSON(resp *http.Response, dst any) error {
	defer resp.Body.Close()
	if dst == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		return fmt.Errorf("decode backend response: %w", err)
	}
	return nil
}

type authAPI struct {
	client *Client
}

// SignIn authenticates with the password grant.
func (a *authAPI) SignIn(ctx context.Context, email, password string) (*backend.Session, error) {
	q := url.Values{}
	q.Set("grant_type", "password")

	resp, err := a.client.do(ctx, http.MethodPost, "/auth/v1/token", q, map[string]string{
		"email":    email,
		"password": password,
	}, nil)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, decodeError(resp)
	}

	var session backend.Session
	if err := decodeJSON(resp, &session); err != nil {
		return nil, err
	}
	return &session, nil
}

// SignUp registers an account; metadata lands in the account's profile
// metadata. With autoconfirm enabled the response already carries a session.
func (a *authAPI) SignUp(ctx context.Context, email, password string, metadata map[string]any) (*backend.Session, error) {
	payload := map[string]any{
		"email":    email,
		"password": password,
	}
	if len(metadata) > 0 {
		payload["data"] = metadata
	}

	resp, err := a.client.do(ctx, http.MethodPost, "/auth/v1/signup", nil, payload, nil)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, decodeError(resp)
	}

	raw, err := readBody(resp)
	if err != nil {
		return nil, err
	}

	var session backend.Session
	if err := json.Unmarshal(raw, &session); err != nil {
		return nil, fmt.Errorf("decode backend response: %w", err)
	}
	if session.User.ID == "" {
		// Without autoconfirm the signup response is the bare user object.
		if err := json.Unmarshal(raw, &session.User); err != nil {
			return nil, fmt.Errorf("decode backend response: %w", err)
		}
	}
	return &session, nil
}

// SignOut revokes the session behind the access token.
func (a *authAPI) SignOut(ctx context.Context, accessToken string) error {
	resp, err := a.client.do(ctx, http.MethodPost, "/auth/v1/logout", nil, nil, map[string]string{
		"Authorization": "Bearer " + accessToken,
	})
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent && resp.StatusCode != http.StatusOK {
		return decodeError(resp)
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

// CurrentUser resolves the account behind an access token. A rejected token
// means no session exists, which is a valid negative result.
func (a *authAPI) CurrentUser(ctx context.Context, accessToken string) (*backend.Account, error) {
	resp, err := a.client.do(ctx, http.MethodGet, "/auth/v1/user", nil, nil, map[string]string{
		"Authorization": "Bearer " + accessToken,
	})
	if err != nil {
		return nil, err
	}
	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		resp.Body.Close()
		return nil, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, decodeError(resp)
	}

	var account backend.Account
	if err := decodeJSON(resp, &account); err != nil {
		return nil, err
	}
	return &account, nil
}

type query struct {
	client *Client
	table  string
	params url.Values

	method string
	body   any
}

func (q *query) Select(columns string) backend.Query {
	if columns != "" && columns != "*" {
		q.params.Set("select", columns)
	}
	return q
}

func (q *query) Eq(column, value string) backend.Query {
	q.params.Set(column, "eq."+value)
	return q
}

func (q *query) Order(column string, ascending bool) backend.Query {
	direction := "desc"
	if ascending {
		direction = "asc"
	}
	q.params.Set("order", column+"."+direction)
	return q
}

func (q *query) Insert(row any) backend.Query {
	q.method = http.MethodPost
	q.body = row
	return q
}

func (q *query) Update(patch any) backend.Query {
	q.method = http.MethodPatch
	q.body = patch
	return q
}

func (q *query) path() string { return "/rest/v1/" + q.table }

// Single executes the chain expecting exactly one row. PostgREST reports
// zero or multiple rows via PGRST116, which maps to sentinel.ErrNoRows.
func (q *query) Single(ctx context.Context, dst any) error {
	method := q.method
	if method == "" {
		method = http.MethodGet
	}
	headers := map[string]string{
		"Accept": "application/vnd.pgrst.object+json",
	}
	if q.body != nil {
		headers["Prefer"] = "return=representation"
	}

	resp, err := q.client.do(ctx, method, q.path(), q.params, q.body, headers)
	if err != nil {
		return err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return decodeError(resp)
	}
	return decodeJSON(resp, dst)
}

// MaybeSingle is Single's optional-row variant.
func (q *query) MaybeSingle(ctx context.Context, dst any) (bool, error) {
	err := q.Single(ctx, dst)
	if err != nil {
		if errors.Is(err, sentinel.ErrNoRows) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// All executes the chain and decodes the full result set.
func (q *query) All(ctx context.Context, dst any) error {
	resp, err := q.client.do(ctx, http.MethodGet, q.path(), q.params, nil, nil)
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusOK {
		return decodeError(resp)
	}
	return decodeJSON(resp, dst)
}

// Exec applies the chain's side effect without requesting a representation.
func (q *query) Exec(ctx context.Context) error {
	if q.method == "" {
		return nil
	}
	resp, err := q.client.do(ctx, q.method, q.path(), q.params, q.body, map[string]string{
		"Prefer": "return=minimal",
	})
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return decodeError(resp)
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}
