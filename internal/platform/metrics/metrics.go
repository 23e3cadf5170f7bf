// Package metrics registers the Prometheus metrics for the portal.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	Registrations        prometheus.Counter
	Logins               *prometheus.CounterVec
	IdentitiesCreated    prometheus.Counter
	IdentityStatusChange *prometheus.CounterVec
	VerificationRequests prometheus.Counter
	VerificationResponse *prometheus.CounterVec
	ChainTransactions    *prometheus.CounterVec
	RequestLatency       *prometheus.HistogramVec
}

// New creates and registers all Prometheus metrics on the given registerer.
// Tests pass a fresh registry so repeated construction never collides.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Registrations: factory.NewCounter(prometheus.CounterOpts{
			Name: "legitid_registrations_total",
			Help: "Total number of accounts registered",
		}),
		Logins: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "legitid_logins_total",
			Help: "Total number of login attempts by outcome",
		}, []string{"outcome"}),
		IdentitiesCreated: factory.NewCounter(prometheus.CounterOpts{
			Name: "legitid_identities_created_total",
			Help: "Total number of digital identities created",
		}),
		IdentityStatusChange: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "legitid_identity_status_changes_total",
			Help: "Total number of identity status transitions by target status",
		}, []string{"status"}),
		VerificationRequests: factory.NewCounter(prometheus.CounterOpts{
			Name: "legitid_verification_requests_total",
			Help: "Total number of verification requests created",
		}),
		VerificationResponse: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "legitid_verification_responses_total",
			Help: "Total number of verification responses by decision",
		}, []string{"decision"}),
		ChainTransactions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "legitid_chain_transactions_total",
			Help: "Total number of chain transactions submitted by operation and outcome",
		}, []string{"operation", "outcome"}),
		RequestLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "legitid_http_request_duration_seconds",
			Help:    "HTTP request latency by route and status class",
			Buckets: prometheus.DefBuckets,
		}, []string{"route", "method", "status"}),
	}
}
