package e2e

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// TestContext drives a running portal instance over HTTP and holds the
// state shared across steps: the last response, the bearer token from the
// most recent registration or login, and identifiers captured along the way.
type TestContext struct {
	baseURL string
	client  *http.Client

	lastStatus int
	lastBody   map[string]any

	accessToken string
	adminToken  string
	identityID  string
	requestID   string
	userID      string
}

func NewTestContext(baseURL, adminToken string) *TestContext {
	return &TestContext{
		baseURL:    baseURL,
		adminToken: adminToken,
		client:     &http.Client{Timeout: 10 * time.Second},
	}
}

// Reset clears per-scenario state so scenarios stay independent.
func (tc *TestContext) Reset() {
	tc.lastStatus = 0
	tc.lastBody = nil
	tc.accessToken = ""
	tc.identityID = ""
	tc.requestID = ""
	tc.userID = ""
}

func (tc *TestContext) do(method, path string, body any, headers map[string]string) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request body: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequest(method, tc.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if tc.accessToken != "" {
		req.Header.Set("Authorization", "Bearer "+tc.accessToken)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := tc.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	tc.lastStatus = resp.StatusCode
	tc.lastBody = nil
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if len(raw) > 0 {
		// Non-JSON bodies are fine for status-only assertions.
		_ = json.Unmarshal(raw, &tc.lastBody)
	}
	return nil
}

func (tc *TestContext) POST(path string, body any) error {
	return tc.do(http.MethodPost, path, body, nil)
}

func (tc *TestContext) PATCH(path string, body any) error {
	return tc.do(http.MethodPatch, path, body, nil)
}

func (tc *TestContext) GET(path string, headers map[string]string) error {
	return tc.do(http.MethodGet, path, nil, headers)
}

// AdminPOST and AdminGET hit the admin surface with the shared admin token.
func (tc *TestContext) AdminPOST(path string, body any) error {
	return tc.do(http.MethodPost, path, body, map[string]string{"X-Admin-Token": tc.adminToken})
}

func (tc *TestContext) AdminGET(path string) error {
	return tc.do(http.MethodGet, path, nil, map[string]string{"X-Admin-Token": tc.adminToken})
}

func (tc *TestContext) LastStatus() int { return tc.lastStatus }

// GetResponseField looks a field up in the last JSON response body.
func (tc *TestContext) GetResponseField(field string) (any, error) {
	if tc.lastBody == nil {
		return nil, fmt.Errorf("no JSON body recorded for the last response")
	}
	value, ok := tc.lastBody[field]
	if !ok {
		return nil, fmt.Errorf("field %q not present in the last response", field)
	}
	return value, nil
}

func (tc *TestContext) SetAccessToken(token string) { tc.accessToken = token }
func (tc *TestContext) GetAccessToken() string      { return tc.accessToken }
func (tc *TestContext) ClearAccessToken()           { tc.accessToken = "" }

func (tc *TestContext) GetAdminToken() string { return tc.adminToken }

func (tc *TestContext) SetIdentityID(id string) { tc.identityID = id }
func (tc *TestContext) GetIdentityID() string   { return tc.identityID }

func (tc *TestContext) SetRequestID(id string) { tc.requestID = id }
func (tc *TestContext) GetRequestID() string   { return tc.requestID }

func (tc *TestContext) SetUserID(id string) { tc.userID = id }
func (tc *TestContext) GetUserID() string   { return tc.userID }
