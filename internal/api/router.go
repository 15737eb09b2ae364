package api

import (
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/novastreamlab/FHE-AI/internal/api/middleware"
	"github.com/novastreamlab/FHE-AI/internal/gateway"
	"github.com/novastreamlab/FHE-AI/internal/handlers"
	"github.com/novastreamlab/FHE-AI/internal/ledger"
	"github.com/novastreamlab/FHE-AI/internal/store"
)

// Deps are the services the router wires into handlers.
type Deps struct {
	Ledger  *ledger.Ledger
	Gateway *gateway.Gateway
	DB      store.LedgerStore
	Redis   *store.RedisStore // optional; enables rate limiting and shared nonces
	Nonces  store.NonceStore  // used when Redis is nil; an in-memory store is opened if unset
	Limits  middleware.RateLimiterConfig
}

// NewRouter creates and configures the HTTP router.
func NewRouter(logger zerolog.Logger, deps Deps) *chi.Mux {
	r := chi.NewRouter()

	// Metrics middleware (first to capture all requests)
	r.Use(middleware.Metrics)

	// Security middleware (order matters!)
	r.Use(middleware.SecurityHeaders)
	r.Use(middleware.MaxBodySize(middleware.MaxRequestBody))
	r.Use(middleware.ValidateRequest)

	// Standard middleware
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.Logger(logger))
	r.Use(chimw.Recoverer)

	nonces := deps.Nonces
	if deps.Redis != nil {
		nonces = deps.Redis
		limiter := middleware.NewRateLimiter(deps.Redis.Client(), logger, deps.Limits)
		r.Use(limiter.Middleware)
	}

	if nonces == nil {
		mem, err := store.NewMemoryNonceStore()
		if err != nil {
			panic(err)
		}
		nonces = mem
	}

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{
			"Accept", "Content-Type",
			middleware.HeaderKey, middleware.HeaderNonce, middleware.HeaderTimestamp, middleware.HeaderSignature,
		},
		ExposedHeaders:   []string{"X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset", "Retry-After"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	h := handlers.NewHandler(deps.Ledger, deps.Gateway, deps.DB, deps.Redis, logger)
	auth := middleware.NewAuthMiddleware(nonces, logger)

	r.Handle("/metrics", promhttp.Handler())

	// Public routes
	r.Get("/health", h.Health)
	r.Get("/api", h.Root)
	r.Get("/contract", h.GetContract)
	r.Get("/messages/total", h.TotalMessages)
	r.Get("/messages/{id}", h.GetMessage)
	r.Get("/users/{address}/messages", h.GetUserMessages)
	r.Get("/gateway/key", h.GatewayKey)
	r.Post("/gateway/decrypt", h.UserDecrypt) // signature travels in the body

	// Authenticated routes (require signature)
	r.Group(func(r chi.Router) {
		r.Use(auth.RequireAuth)

		r.Post("/deploy", h.Deploy)
		r.Post("/messages", h.SubmitMessage)
		r.Post("/messages/{id}/response", h.RequestResponse)
		r.Get("/messages/{id}/response", h.PreviewResponse)
		r.Post("/config/bot", h.UpdateBotAddress)
		r.Post("/config/response", h.UpdateResponseAddress)
		r.Post("/config/owner", h.TransferOwnership)
		r.Post("/gateway/input", h.EncryptInput)
	})

	return r
}
