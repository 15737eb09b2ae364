package handlers

import (
	"context"
	"net/http"
	"time"
)

const version = "0.1.0"

// Check represents the status of a health check.
type Check struct {
	Status  string `json:"status"`            // "pass", "fail" or "skip"
	Latency string `json:"latency,omitempty"` // e.g., "2ms"
	Message string `json:"message,omitempty"`
}

// HealthResponse represents the health check response.
type HealthResponse struct {
	Status    string           `json:"status"` // "healthy" or "degraded"
	Version   string           `json:"version"`
	Contract  string           `json:"contract,omitempty"`
	Checks    map[string]Check `json:"checks"`
	Timestamp string           `json:"timestamp"`
}

func timed(check func() error) Check {
	start := time.Now()
	if err := check(); err != nil {
		return Check{Status: "fail", Message: "connection failed"}
	}
	return Check{Status: "pass", Latency: time.Since(start).String()}
}

// Health handles the health check endpoint.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	checks := map[string]Check{
		"database": timed(func() error { return h.db.Ping(ctx) }),
		"vault":    timed(h.gateway.Vault().Ping),
	}
	if h.redis != nil {
		checks["redis"] = timed(func() error { return h.redis.Ping(ctx) })
	} else {
		checks["redis"] = Check{Status: "skip", Message: "not configured"}
	}

	status := "healthy"
	statusCode := http.StatusOK
	for _, c := range checks {
		if c.Status == "fail" {
			status = "degraded"
			statusCode = http.StatusServiceUnavailable
		}
	}

	resp := HealthResponse{
		Status:    status,
		Version:   version,
		Checks:    checks,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
	if c, err := h.ledger.Contract(ctx); err == nil {
		resp.Contract = c.Address.Hex()
	}

	h.JSON(w, statusCode, resp)
}

// RootResponse represents the root endpoint response.
type RootResponse struct {
	Name       string   `json:"name"`
	Version    string   `json:"version"`
	GatewayKey string   `json:"gateway_key"`
	Endpoints  []string `json:"endpoints"`
}

// Root handles the API info endpoint.
func (h *Handler) Root(w http.ResponseWriter, r *http.Request) {
	h.JSON(w, http.StatusOK, RootResponse{
		Name:       "FHE-AI ledger node",
		Version:    version,
		GatewayKey: h.gateway.PublicKey(),
		Endpoints: []string{
			"POST /deploy",
			"GET /contract",
			"GET /messages/total",
			"GET /messages/{id}",
			"GET /users/{address}/messages",
			"POST /messages",
			"POST /messages/{id}/response",
			"GET /messages/{id}/response",
			"POST /config/{bot,response,owner}",
			"GET /gateway/key",
			"POST /gateway/input",
			"POST /gateway/decrypt",
		},
	})
}
