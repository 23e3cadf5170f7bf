// Package httptransport assembles the portal's HTTP surface: the ambient
// middleware chain, the domain handlers, and the health and metrics
// endpoints.
package httptransport

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"legitid/internal/platform/metrics"
	"legitid/internal/platform/middleware"
	"legitid/pkg/platform/httputil"
)

// Registrar is implemented by every domain handler.
type Registrar interface {
	Register(r chi.Router)
}

// Deps carries everything the router needs.
type Deps struct {
	Logger         *slog.Logger
	Metrics        *metrics.Metrics
	RequestTimeout time.Duration
	Handlers       []Registrar
	Health         func() map[string]string
}

// NewRouter builds the chi router with the full middleware chain and every
// registered handler mounted.
func NewRouter(deps Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Recovery(deps.Logger))
	r.Use(middleware.RequestTime)
	r.Use(middleware.ClientMetadata)
	r.Use(middleware.Device)
	r.Use(middleware.Logger(deps.Logger))
	r.Use(middleware.Timeout(deps.RequestTimeout))
	r.Use(middleware.ContentTypeJSON)
	r.Use(middleware.Latency(deps.Metrics))

	r.Get("/healthz", handleHealth(deps.Health))
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	for _, h := range deps.Handlers {
		h.Register(r)
	}

	return r
}

// handleHealth reports the process as up plus per-dependency detail from
// the supplied probe.
func handleHealth(probe func() map[string]string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body := map[string]any{"status": "ok"}
		if probe != nil {
			deps := probe()
			if len(deps) > 0 {
				body["dependencies"] = deps
			}
			for _, status := range deps {
				if status != "ok" {
					body["status"] = "degraded"
				}
			}
		}
		httputil.WriteJSON(w, http.StatusOK, body)
	}
}
