package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/novastreamlab/FHE-AI/internal/crypto"
	"github.com/novastreamlab/FHE-AI/internal/models"
	"github.com/novastreamlab/FHE-AI/internal/store"
)

// Signed request headers.
const (
	HeaderKey       = "X-FHEAI-Key"
	HeaderNonce     = "X-FHEAI-Nonce"
	HeaderTimestamp = "X-FHEAI-Timestamp"
	HeaderSignature = "X-FHEAI-Signature"
)

type contextKey string

const CallerContextKey contextKey = "caller"

// AuthMiddleware handles signature verification for authenticated endpoints.
// The caller is identified by the address of the signing key.
type AuthMiddleware struct {
	nonces store.NonceStore
	window time.Duration
	logger zerolog.Logger
	now    func() time.Time
}

// NewAuthMiddleware creates a new auth middleware.
func NewAuthMiddleware(nonces store.NonceStore, logger zerolog.Logger) *AuthMiddleware {
	return &AuthMiddleware{
		nonces: nonces,
		window: 30 * time.Second,
		logger: logger,
		now:    time.Now,
	}
}

// RequireAuth middleware verifies Ed25519 signatures on requests.
func (m *AuthMiddleware) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := r.Header.Get(HeaderKey)
		nonce := r.Header.Get(HeaderNonce)
		timestamp := r.Header.Get(HeaderTimestamp)
		signature := r.Header.Get(HeaderSignature)

		if key == "" || nonce == "" || timestamp == "" || signature == "" {
			jsonError(w, http.StatusUnauthorized, "missing auth headers")
			return
		}

		ts, err := strconv.ParseInt(timestamp, 10, 64)
		if err != nil {
			jsonError(w, http.StatusUnauthorized, "invalid timestamp format")
			return
		}
		if !m.isTimestampValid(ts) {
			jsonError(w, http.StatusUnauthorized, "timestamp expired or too far in future")
			return
		}

		// Min 24 chars for adequate entropy
		if len(nonce) < 24 {
			jsonError(w, http.StatusUnauthorized, "nonce must be at least 24 characters")
			return
		}

		pubkey, err := crypto.ValidatePublicKey(key)
		if err != nil {
			jsonError(w, http.StatusUnauthorized, "invalid public key")
			return
		}
		caller := crypto.AddressOf(pubkey)

		if m.nonces.IsNonceUsed(r.Context(), caller.Hex(), nonce) {
			jsonError(w, http.StatusUnauthorized, "nonce already used")
			return
		}

		body, err := io.ReadAll(r.Body)
		if err != nil {
			jsonError(w, http.StatusBadRequest, "failed to read request body")
			return
		}
		r.Body = io.NopCloser(bytes.NewBuffer(body)) // Reset for handler

		signedData := crypto.SignaturePayload(sha256Hex(body), nonce, ts)
		if err := crypto.VerifySignature(pubkey, signedData, signature); err != nil {
			m.logger.Warn().
				Str("type", "security").
				Str("event", "bad_signature").
				Str("caller", caller.Hex()).
				Str("endpoint", r.URL.Path).
				Msg("signature verification failed")
			jsonError(w, http.StatusUnauthorized, "invalid signature")
			return
		}

		m.nonces.MarkNonceUsed(r.Context(), caller.Hex(), nonce, 3*time.Minute)

		ctx := context.WithValue(r.Context(), CallerContextKey, caller)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (m *AuthMiddleware) isTimestampValid(ts int64) bool {
	now := m.now().UnixMilli()
	windowMs := m.window.Milliseconds()
	// Only accept timestamps from the past (within window), reject future timestamps
	return ts > now-windowMs && ts <= now
}

func sha256Hex(data []byte) string {
	hash := sha256.Sum256(data)
	return hex.EncodeToString(hash[:])
}

func jsonError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}

// GetCallerFromContext returns the authenticated caller address.
func GetCallerFromContext(ctx context.Context) (models.Address, bool) {
	caller, ok := ctx.Value(CallerContextKey).(models.Address)
	return caller, ok
}

// WithCaller returns ctx carrying caller, as RequireAuth does.
func WithCaller(ctx context.Context, caller models.Address) context.Context {
	return context.WithValue(ctx, CallerContextKey, caller)
}
