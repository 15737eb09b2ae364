package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP metrics
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fheai_http_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "fheai_http_request_duration_seconds",
			Help:    "HTTP request duration",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		},
		[]string{"method", "path"},
	)

	// Ledger metrics
	MessagesSubmitted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fheai_messages_submitted_total",
			Help: "Total messages appended to the ledger",
		},
		[]string{"model"},
	)

	ResponsesRequested = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fheai_responses_requested_total",
			Help: "Total response requests",
		},
		[]string{"result"}, // "created" or "existing"
	)

	Reverts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fheai_reverts_total",
			Help: "Total rejected state-changing calls",
		},
		[]string{"reason"},
	)

	// Gateway metrics
	InputsEncrypted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "fheai_inputs_encrypted_total",
			Help: "Total encrypted inputs issued",
		},
	)

	DecryptRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fheai_decrypt_requests_total",
			Help: "Total user decrypt requests",
		},
		[]string{"result"}, // "ok" or "rejected"
	)

	HandlesDecrypted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "fheai_handles_decrypted_total",
			Help: "Total handles re-encrypted for users",
		},
	)

	// Rate limit metrics
	RateLimitHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fheai_rate_limit_hits_total",
			Help: "Total rate limit hits",
		},
		[]string{"endpoint"},
	)

	BlockedRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fheai_blocked_requests_total",
			Help: "Total blocked requests",
		},
		[]string{"reason"},
	)
)
