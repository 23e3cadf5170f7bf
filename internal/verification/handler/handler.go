// Package handler exposes the verification-request endpoints.
package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"legitid/internal/verification"
	"legitid/internal/verification/models"
	id "legitid/pkg/domain"
	dErrors "legitid/pkg/domain-errors"
	"legitid/pkg/platform/httputil"
	"legitid/pkg/requestcontext"
)

// Handler handles creating, listing, and responding to verification
// requests.
type Handler struct {
	logger       *slog.Logger
	verification *verification.Container
	authMW       func(http.Handler) http.Handler
}

func New(container *verification.Container, authMW func(http.Handler) http.Handler, logger *slog.Logger) *Handler {
	return &Handler{
		logger:       logger,
		verification: container,
		authMW:       authMW,
	}
}

// Register mounts the verification-request routes. All of them require a
// session.
func (h *Handler) Register(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.authMW)
		r.Get("/verification-requests", h.handleList)
		r.Post("/verification-requests", h.handleCreate)
		r.Post("/verification-requests/{id}/respond", h.handleRespond)
	})
}

type createRequest struct {
	UserID           string  `json:"user_id"`
	IdentityID       string  `json:"identity_id"`
	VerificationType string  `json:"verification_type"`
	Message          *string `json:"message,omitempty"`
}

type respondRequest struct {
	Status string `json:"status"`
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := requestcontext.UserID(ctx)

	if !h.verification.GetRequests(ctx, userID) {
		state := h.verification.State()
		httputil.WriteError(w, dErrors.New(dErrors.CodeInternal, state.Error))
		return
	}

	state := h.verification.State()
	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"requests": state.Requests,
	})
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requesterID := requestcontext.UserID(ctx)

	var req createRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	userID, err := id.ParseUserID(req.UserID)
	if err != nil {
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeInvalidInput, "invalid user_id"))
		return
	}
	identityID, err := id.ParseIdentityID(req.IdentityID)
	if err != nil {
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeInvalidInput, "invalid identity_id"))
		return
	}
	if req.VerificationType == "" {
		httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "verification_type is required"))
		return
	}

	ok := h.verification.CreateRequest(ctx, verification.CreateFields{
		RequesterID:      requesterID,
		UserID:           userID,
		IdentityID:       identityID,
		VerificationType: req.VerificationType,
		Message:          req.Message,
	})
	if !ok {
		state := h.verification.State()
		h.logger.WarnContext(ctx, "verification request creation failed",
			"request_id", requestcontext.RequestID(ctx),
			"error", state.Error,
		)
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, state.Error))
		return
	}

	state := h.verification.State()
	httputil.WriteJSON(w, http.StatusCreated, state.Requests[len(state.Requests)-1])
}

func (h *Handler) handleRespond(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	requestID, err := id.ParseRequestID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	var req respondRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	status, err := models.ParseRequestStatus(req.Status)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if status == models.RequestStatusPending {
		httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "a response must be approved or rejected"))
		return
	}

	if !h.verification.UpdateRequest(ctx, requestID, status) {
		state := h.verification.State()
		h.logger.WarnContext(ctx, "verification response failed",
			"request_id", requestcontext.RequestID(ctx),
			"error", state.Error,
		)
		httputil.WriteError(w, dErrors.New(dErrors.CodeConflict, state.Error))
		return
	}

	for _, request := range h.verification.State().Requests {
		if request.ID == requestID {
			httputil.WriteJSON(w, http.StatusOK, request)
			return
		}
	}
	w.WriteHeader(http.StatusNoContent)
}
