package httptransport

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	adminsvc "legitid/internal/admin"
	adminhandler "legitid/internal/admin/handler"
	"legitid/internal/auth"
	authhandler "legitid/internal/auth/handler"
	"legitid/internal/auth/sessioncache"
	"legitid/internal/backend/mockstore"
	"legitid/internal/chain"
	"legitid/internal/identity"
	identityhandler "legitid/internal/identity/handler"
	jwttoken "legitid/internal/jwt_token"
	"legitid/internal/platform/config"
	"legitid/internal/platform/metrics"
	"legitid/internal/platform/middleware"
	"legitid/internal/verification"
	verificationhandler "legitid/internal/verification/handler"
	"legitid/pkg/platform/audit/publisher"
	auditmemory "legitid/pkg/platform/audit/store/memory"
	"legitid/pkg/testutil"
)

const testAdminToken = "test-admin-token"

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	m := metrics.New(prometheus.NewRegistry())

	client := mockstore.New()
	sessions := sessioncache.NewInMemory()
	auditPub := publisher.NewPublisher(auditmemory.NewInMemoryStore())

	chainSvc, err := chain.New(context.Background(), config.ChainConfig{}, m, log)
	require.NoError(t, err)

	tokens := jwttoken.NewJWTService("test-signing-key", "legitid", "legitid-portal")
	authMW := middleware.RequireAuth(jwttoken.NewJWTServiceAdapter(tokens), sessions, log)
	adminMW := middleware.RequireAdminToken(testAdminToken, log)

	authContainer := auth.NewContainer(client, tokens, sessions, auditPub, m, time.Hour, log)
	identityContainer := identity.NewContainer(client, chainSvc, auditPub, m, log)
	verificationContainer := verification.NewContainer(client, auditPub, m, log)
	adminService := adminsvc.NewService(client, auditPub, m, log)

	return NewRouter(Deps{
		Logger:         log,
		Metrics:        m,
		RequestTimeout: 5 * time.Second,
		Handlers: []Registrar{
			authhandler.New(authContainer, authMW, log),
			identityhandler.New(identityContainer, authMW, log),
			verificationhandler.New(verificationContainer, authMW, log),
			adminhandler.New(adminService, adminMW, log),
		},
	})
}

type sessionPayload struct {
	Token string `json:"token"`
	User  struct {
		ID       string `json:"id"`
		Email    string `json:"email"`
		FullName string `json:"full_name"`
		Role     string `json:"role"`
	} `json:"user"`
}

func register(t *testing.T, router http.Handler, email, fullName, role string) *sessionPayload {
	t.Helper()
	rr := testutil.DoRequest(router, testutil.NewJSONRequest(t, http.MethodPost, "/auth/register", map[string]string{
		"email":     email,
		"password":  "secret",
		"full_name": fullName,
		"role":      role,
	}))
	testutil.AssertStatus(t, rr, http.StatusCreated)
	return testutil.UnmarshalResponse[sessionPayload](t, rr)
}

func authed(req *http.Request, token string) *http.Request {
	req.Header.Set("Authorization", "Bearer "+token)
	return req
}

func TestHealthz(t *testing.T) {
	testutil.Given(t, "the assembled router", func(t *testing.T) {
		router := newTestRouter(t)

		testutil.When(t, "probing /healthz", func(t *testing.T) {
			rr := testutil.DoRequest(router, testutil.NewRequest(t, http.MethodGet, "/healthz"))

			testutil.Then(t, "it reports the process as up", func(t *testing.T) {
				testutil.AssertStatus(t, rr, http.StatusOK)
				testutil.AssertJSONContains(t, rr, "status", "ok")
			})
		})
	})
}

func TestRegisterAndLogin(t *testing.T) {
	router := newTestRouter(t)

	session := register(t, router, "a@x.com", "Ada", "individual")
	assert.NotEmpty(t, session.Token)
	assert.Equal(t, "individual", session.User.Role)
	assert.Equal(t, "Ada", session.User.FullName)

	rr := testutil.DoRequest(router, testutil.NewJSONRequest(t, http.MethodPost, "/auth/login", map[string]string{
		"email":    "a@x.com",
		"password": "secret",
	}))
	testutil.AssertStatus(t, rr, http.StatusOK)
	login := testutil.UnmarshalResponse[sessionPayload](t, rr)
	assert.Equal(t, "a@x.com", login.User.Email)
	assert.NotEmpty(t, login.Token)
}

func TestRegister_InvalidRole(t *testing.T) {
	router := newTestRouter(t)
	rr := testutil.DoRequest(router, testutil.NewJSONRequest(t, http.MethodPost, "/auth/register", map[string]string{
		"email":     "a@x.com",
		"password":  "secret",
		"full_name": "Ada",
		"role":      "superuser",
	}))
	testutil.AssertStatusAndError(t, rr, http.StatusBadRequest, "invalid_input")
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	router := newTestRouter(t)

	rr := testutil.DoRequest(router, testutil.NewRequest(t, http.MethodGet, "/identities/me"))
	testutil.AssertStatusAndError(t, rr, http.StatusUnauthorized, "unauthorized")

	rr = testutil.DoRequest(router, testutil.NewJSONRequest(t, http.MethodPost, "/verification-requests", map[string]string{}))
	testutil.AssertStatusAndError(t, rr, http.StatusUnauthorized, "unauthorized")
}

func TestLogoutInvalidatesSession(t *testing.T) {
	router := newTestRouter(t)
	session := register(t, router, "a@x.com", "Ada", "individual")

	rr := testutil.DoRequest(router, authed(testutil.NewRequest(t, http.MethodPost, "/auth/logout"), session.Token))
	testutil.AssertStatus(t, rr, http.StatusNoContent)

	rr = testutil.DoRequest(router, authed(testutil.NewRequest(t, http.MethodGet, "/auth/me"), session.Token))
	testutil.AssertStatusAndError(t, rr, http.StatusUnauthorized, "unauthorized")
}

func TestIdentityLifecycle(t *testing.T) {
	router := newTestRouter(t)
	session := register(t, router, "a@x.com", "Ada", "individual")

	// No identity yet is a valid negative result.
	rr := testutil.DoRequest(router, authed(testutil.NewRequest(t, http.MethodGet, "/identities/me"), session.Token))
	testutil.AssertStatusAndError(t, rr, http.StatusNotFound, "not_found")

	rr = testutil.DoRequest(router, authed(testutil.NewJSONRequest(t, http.MethodPost, "/identities", map[string]any{
		"full_name":     "Ada Lovelace",
		"date_of_birth": "1815-12-10",
		"id_number":     "AB123456",
		"document_urls": []string{"https://docs/passport.pdf"},
	}), session.Token))
	testutil.AssertStatus(t, rr, http.StatusCreated)
	testutil.AssertJSONContains(t, rr, "status", "pending")
	testutil.AssertJSONHasKey(t, rr, "id")

	rr = testutil.DoRequest(router, authed(testutil.NewRequest(t, http.MethodGet, "/identities/me"), session.Token))
	testutil.AssertStatus(t, rr, http.StatusOK)
	testutil.AssertJSONContains(t, rr, "full_name", "Ada Lovelace")
}

func TestIdentityPatch_RejectsStatusColumn(t *testing.T) {
	router := newTestRouter(t)
	session := register(t, router, "a@x.com", "Ada", "individual")

	rr := testutil.DoRequest(router, authed(testutil.NewJSONRequest(t, http.MethodPost, "/identities", map[string]any{
		"full_name": "Ada Lovelace",
		"id_number": "AB123456",
	}), session.Token))
	testutil.AssertStatus(t, rr, http.StatusCreated)
	identityID := testutil.UnmarshalResponse[struct {
		ID string `json:"id"`
	}](t, rr).ID

	rr = testutil.DoRequest(router, authed(testutil.NewJSONRequest(t, http.MethodPatch, "/identities/"+identityID, map[string]any{
		"status": "verified",
	}), session.Token))
	testutil.AssertStatusAndError(t, rr, http.StatusBadRequest, "invalid_input")
}

func TestVerificationFlowAndAdminReview(t *testing.T) {
	router := newTestRouter(t)
	session := register(t, router, "a@x.com", "Ada", "individual")

	rr := testutil.DoRequest(router, authed(testutil.NewJSONRequest(t, http.MethodPost, "/identities", map[string]any{
		"full_name": "Ada Lovelace",
		"id_number": "AB123456",
	}), session.Token))
	testutil.AssertStatus(t, rr, http.StatusCreated)
	created := testutil.UnmarshalResponse[struct {
		ID     string `json:"id"`
		UserID string `json:"user_id"`
	}](t, rr)

	rr = testutil.DoRequest(router, authed(testutil.NewJSONRequest(t, http.MethodPost, "/verification-requests", map[string]any{
		"user_id":           created.UserID,
		"identity_id":       created.ID,
		"verification_type": "Identity Verification",
		"message":           "please confirm",
	}), session.Token))
	testutil.AssertStatus(t, rr, http.StatusCreated)
	request := testutil.UnmarshalResponse[struct {
		ID     string `json:"id"`
		Status string `json:"status"`
	}](t, rr)
	assert.Equal(t, "pending", request.Status)

	rr = testutil.DoRequest(router, authed(testutil.NewJSONRequest(t, http.MethodPost, "/verification-requests/"+request.ID+"/respond", map[string]string{
		"status": "approved",
	}), session.Token))
	testutil.AssertStatus(t, rr, http.StatusOK)
	testutil.AssertJSONContains(t, rr, "status", "approved")

	// Responding again hits the terminal-state rule.
	rr = testutil.DoRequest(router, authed(testutil.NewJSONRequest(t, http.MethodPost, "/verification-requests/"+request.ID+"/respond", map[string]string{
		"status": "rejected",
	}), session.Token))
	testutil.AssertStatus(t, rr, http.StatusConflict)

	// Admin surface sees the request.
	req := testutil.NewRequest(t, http.MethodGet, "/admin/verification-requests")
	req.Header.Set("X-Admin-Token", testAdminToken)
	rr = testutil.DoRequest(router, req)
	testutil.AssertStatus(t, rr, http.StatusOK)
	testutil.AssertJSONContains(t, rr, "total", float64(1))

	// Admin verifies the identity; a second transition is rejected.
	req = testutil.NewJSONRequest(t, http.MethodPost, "/admin/identities/"+created.ID+"/status", map[string]string{"status": "verified"})
	req.Header.Set("X-Admin-Token", testAdminToken)
	rr = testutil.DoRequest(router, req)
	testutil.AssertStatus(t, rr, http.StatusOK)
	testutil.AssertJSONContains(t, rr, "status", "verified")

	req = testutil.NewJSONRequest(t, http.MethodPost, "/admin/identities/"+created.ID+"/status", map[string]string{"status": "rejected"})
	req.Header.Set("X-Admin-Token", testAdminToken)
	rr = testutil.DoRequest(router, req)
	testutil.AssertStatusAndError(t, rr, http.StatusConflict, "invalid_state")
}

func TestAdminSurfaceRequiresToken(t *testing.T) {
	router := newTestRouter(t)

	rr := testutil.DoRequest(router, testutil.NewRequest(t, http.MethodGet, "/admin/verification-requests"))
	testutil.AssertStatusAndError(t, rr, http.StatusUnauthorized, "unauthorized")

	req := testutil.NewRequest(t, http.MethodGet, "/admin/verification-requests")
	req.Header.Set("X-Admin-Token", "wrong")
	rr = testutil.DoRequest(router, req)
	testutil.AssertStatusAndError(t, rr, http.StatusUnauthorized, "unauthorized")
}

func TestMetricsEndpoint(t *testing.T) {
	router := newTestRouter(t)
	rr := testutil.DoRequest(router, testutil.NewRequest(t, http.MethodGet, "/metrics"))
	testutil.AssertStatus(t, rr, http.StatusOK)
}

func TestContentTypeEnforced(t *testing.T) {
	router := newTestRouter(t)
	req := testutil.NewJSONRequest(t, http.MethodPost, "/auth/login", map[string]string{"email": "a@x.com", "password": "x"})
	req.Header.Set("Content-Type", "text/plain")
	rr := testutil.DoRequest(router, req)
	testutil.AssertStatus(t, rr, http.StatusUnsupportedMediaType)
}
