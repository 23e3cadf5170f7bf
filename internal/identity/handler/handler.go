// Package handler exposes the digital-identity endpoints.
package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"legitid/internal/identity"
	id "legitid/pkg/domain"
	dErrors "legitid/pkg/domain-errors"
	"legitid/pkg/platform/httputil"
	"legitid/pkg/requestcontext"
)

// Allowed PATCH columns. Status changes go through the admin surface, never
// through the owner's patch endpoint.
var patchableColumns = map[string]bool{
	"full_name":     true,
	"date_of_birth": true,
	"id_number":     true,
	"document_urls": true,
}

// Handler handles identity creation, lookup, patching, and the optional
// on-chain registration step.
type Handler struct {
	logger   *slog.Logger
	identity *identity.Container
	authMW   func(http.Handler) http.Handler
}

func New(container *identity.Container, authMW func(http.Handler) http.Handler, logger *slog.Logger) *Handler {
	return &Handler{
		logger:   logger,
		identity: container,
		authMW:   authMW,
	}
}

// Register mounts the identity routes. All of them require a session.
func (h *Handler) Register(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.authMW)
		r.Post("/identities", h.handleCreate)
		r.Get("/identities/me", h.handleGetMine)
		r.Patch("/identities/{id}", h.handlePatch)
		r.Post("/identities/{id}/chain", h.handleRegisterOnChain)
	})
}

type createRequest struct {
	FullName     string   `json:"full_name"`
	DateOfBirth  string   `json:"date_of_birth"`
	IDNumber     string   `json:"id_number"`
	DocumentURLs []string `json:"document_urls"`
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := requestcontext.UserID(ctx)

	var req createRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	if req.FullName == "" || req.IDNumber == "" {
		httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "full_name and id_number are required"))
		return
	}

	ok := h.identity.CreateIdentity(ctx, identity.CreateFields{
		UserID:       userID,
		FullName:     req.FullName,
		DateOfBirth:  req.DateOfBirth,
		IDNumber:     req.IDNumber,
		DocumentURLs: req.DocumentURLs,
	})
	if !ok {
		state := h.identity.State()
		h.logger.WarnContext(ctx, "identity creation failed",
			"request_id", requestcontext.RequestID(ctx),
			"error", state.Error,
		)
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, state.Error))
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, h.identity.State().Identity)
}

func (h *Handler) handleGetMine(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := requestcontext.UserID(ctx)

	if !h.identity.GetIdentity(ctx, userID) {
		state := h.identity.State()
		httputil.WriteError(w, dErrors.New(dErrors.CodeInternal, state.Error))
		return
	}

	state := h.identity.State()
	if state.Identity == nil {
		// No identity yet is a valid negative result.
		httputil.WriteError(w, dErrors.New(dErrors.CodeNotFound, "no identity exists yet"))
		return
	}
	httputil.WriteJSON(w, http.StatusOK, state.Identity)
}

func (h *Handler) handlePatch(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	identityID, err := id.ParseIdentityID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	var patch map[string]any
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	if len(patch) == 0 {
		httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "patch cannot be empty"))
		return
	}
	for column := range patch {
		if !patchableColumns[column] {
			httputil.WriteError(w, dErrors.Newf(dErrors.CodeInvalidInput, "column %s cannot be patched", column))
			return
		}
	}

	if !h.identity.UpdateIdentity(ctx, identityID, patch) {
		state := h.identity.State()
		h.logger.WarnContext(ctx, "identity update failed",
			"request_id", requestcontext.RequestID(ctx),
			"error", state.Error,
		)
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, state.Error))
		return
	}

	httputil.WriteJSON(w, http.StatusOK, h.identity.State().Identity)
}

type chainRequest struct {
	DocumentHash      string `json:"document_hash"`
	VerificationLevel string `json:"verification_level"`
}

func (h *Handler) handleRegisterOnChain(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := requestcontext.UserID(ctx)

	var req chainRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	if req.DocumentHash == "" {
		httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "document_hash is required"))
		return
	}
	if req.VerificationLevel == "" {
		req.VerificationLevel = "basic"
	}

	if !h.identity.RegisterOnChain(ctx, userID, req.DocumentHash, req.VerificationLevel) {
		state := h.identity.State()
		h.logger.WarnContext(ctx, "on-chain registration failed",
			"request_id", requestcontext.RequestID(ctx),
			"error", state.Error,
		)
		// A missing wallet or provider is recoverable and user-facing.
		httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidState, state.Error))
		return
	}

	httputil.WriteJSON(w, http.StatusOK, h.identity.State().Identity)
}
