// Package handler exposes the authentication endpoints.
package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"legitid/internal/auth"
	"legitid/internal/auth/models"
	id "legitid/pkg/domain"
	dErrors "legitid/pkg/domain-errors"
	"legitid/pkg/platform/httputil"
	"legitid/pkg/requestcontext"
)

// Handler handles registration, login, logout, and the current-user
// endpoint.
type Handler struct {
	logger *slog.Logger
	auth   *auth.Container
	authMW func(http.Handler) http.Handler
}

func New(container *auth.Container, authMW func(http.Handler) http.Handler, logger *slog.Logger) *Handler {
	return &Handler{
		logger: logger,
		auth:   container,
		authMW: authMW,
	}
}

// Register mounts the auth routes. Logout and the current-user endpoint
// require a valid session token; register and login are public.
func (h *Handler) Register(r chi.Router) {
	r.Post("/auth/register", h.handleRegister)
	r.Post("/auth/login", h.handleLogin)

	r.Group(func(r chi.Router) {
		r.Use(h.authMW)
		r.Post("/auth/logout", h.handleLogout)
		r.Get("/auth/me", h.handleMe)
	})
}

type registerRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	FullName string `json:"full_name"`
	Role     string `json:"role"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type sessionResponse struct {
	Token string       `json:"token"`
	User  *models.User `json:"user"`
}

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	if err := models.ValidateEmail(req.Email); err != nil {
		httputil.WriteError(w, err)
		return
	}
	if req.Password == "" {
		httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "password cannot be empty"))
		return
	}
	role, err := id.ParseRole(req.Role)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	if !h.auth.Register(ctx, req.Email, req.Password, req.FullName, role) {
		state := h.auth.State()
		h.logger.WarnContext(ctx, "registration failed",
			"request_id", requestcontext.RequestID(ctx),
			"error", state.Error,
		)
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, state.Error))
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, sessionResponse{
		Token: h.auth.Token(),
		User:  h.auth.State().User,
	})
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	if err := models.ValidateEmail(req.Email); err != nil {
		httputil.WriteError(w, err)
		return
	}

	if !h.auth.Login(ctx, req.Email, req.Password) {
		state := h.auth.State()
		h.logger.WarnContext(ctx, "login failed",
			"request_id", requestcontext.RequestID(ctx),
			"error", state.Error,
		)
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "invalid credentials"))
		return
	}

	httputil.WriteJSON(w, http.StatusOK, sessionResponse{
		Token: h.auth.Token(),
		User:  h.auth.State().User,
	})
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	// Local state is always cleared; a remote failure is reported but the
	// session is gone either way.
	if !h.auth.Logout(ctx) {
		state := h.auth.State()
		h.logger.WarnContext(ctx, "remote sign-out failed",
			"request_id", requestcontext.RequestID(ctx),
			"error", state.Error,
		)
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleMe(w http.ResponseWriter, r *http.Request) {
	state := h.auth.State()
	if !state.IsAuthenticated || state.User == nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "not authenticated"))
		return
	}
	httputil.WriteJSON(w, http.StatusOK, state.User)
}
