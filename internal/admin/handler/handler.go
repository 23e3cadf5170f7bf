// Package handler exposes the admin review endpoints behind the shared
// admin token.
package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"legitid/internal/admin"
	identitymodels "legitid/internal/identity/models"
	id "legitid/pkg/domain"
	dErrors "legitid/pkg/domain-errors"
	"legitid/pkg/platform/httputil"
	"legitid/pkg/requestcontext"
)

type Handler struct {
	logger  *slog.Logger
	admin   *admin.Service
	adminMW func(http.Handler) http.Handler
}

func New(service *admin.Service, adminMW func(http.Handler) http.Handler, logger *slog.Logger) *Handler {
	return &Handler{
		logger:  logger,
		admin:   service,
		adminMW: adminMW,
	}
}

// Register mounts the admin routes behind the admin-token middleware.
func (h *Handler) Register(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.adminMW)
		r.Get("/admin/verification-requests", h.handleListRequests)
		r.Post("/admin/identities/{id}/status", h.handleSetStatus)
	})
}

func (h *Handler) handleListRequests(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	requests, err := h.admin.ListVerificationRequests(ctx)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to list verification requests",
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"requests": requests,
		"total":    len(requests),
	})
}

type setStatusRequest struct {
	Status string `json:"status"`
}

func (h *Handler) handleSetStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	identityID, err := id.ParseIdentityID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	var req setStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	target, err := identitymodels.ParseIdentityStatus(req.Status)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	updated, err := h.admin.SetIdentityStatus(ctx, identityID, target)
	if err != nil {
		h.logger.WarnContext(ctx, "identity status override rejected",
			"request_id", requestcontext.RequestID(ctx),
			"identity_id", identityID,
			"target", string(target),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, updated)
}
