package middleware

import (
	"bytes"
	"crypto/ed25519"
	"crypto/rand"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/novastreamlab/FHE-AI/internal/crypto"
	"github.com/novastreamlab/FHE-AI/internal/models"
	"github.com/novastreamlab/FHE-AI/internal/store"
)

const testNonce = "abcdefghijklmnopqrstuvwxyz"

func signedRequest(t *testing.T, priv ed25519.PrivateKey, body, nonce string, ts int64) *http.Request {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/messages", bytes.NewBufferString(body))
	req.Header.Set(HeaderKey, crypto.EncodePublicKey(priv.Public().(ed25519.PublicKey)))
	req.Header.Set(HeaderNonce, nonce)
	req.Header.Set(HeaderTimestamp, strconv.FormatInt(ts, 10))
	req.Header.Set(HeaderSignature, crypto.Sign(priv, crypto.SignaturePayload(sha256Hex([]byte(body)), nonce, ts)))
	return req
}

func newTestAuth(t *testing.T) (*AuthMiddleware, http.Handler, *models.Address) {
	t.Helper()
	nonces, err := store.NewMemoryNonceStore()
	require.NoError(t, err)
	t.Cleanup(func() { nonces.Close() })

	var seen models.Address
	auth := NewAuthMiddleware(nonces, zerolog.Nop())
	h := auth.RequireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = GetCallerFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))
	return auth, h, &seen
}

func TestRequireAuthAcceptsSignedRequest(t *testing.T) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	_, h, seen := newTestAuth(t)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, signedRequest(t, priv, `{"model_id":1}`, testNonce, time.Now().UnixMilli()))

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, crypto.AddressOf(pub), *seen)
}

func TestRequireAuthRejectsReplay(t *testing.T) {
	_, priv, _ := ed25519.GenerateKey(rand.Reader)
	_, h, _ := newTestAuth(t)
	ts := time.Now().UnixMilli()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, signedRequest(t, priv, "{}", testNonce, ts))
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, signedRequest(t, priv, "{}", testNonce, ts))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "nonce already used")
}

func TestRequireAuthRejections(t *testing.T) {
	_, priv, _ := ed25519.GenerateKey(rand.Reader)
	now := time.Now().UnixMilli()

	tests := []struct {
		name string
		req  func() *http.Request
		want string
	}{
		{"missing headers", func() *http.Request {
			return httptest.NewRequest(http.MethodPost, "/messages", nil)
		}, "missing auth headers"},
		{"stale timestamp", func() *http.Request {
			return signedRequest(t, priv, "{}", testNonce, now-time.Minute.Milliseconds())
		}, "timestamp expired"},
		{"future timestamp", func() *http.Request {
			return signedRequest(t, priv, "{}", testNonce, now+time.Minute.Milliseconds())
		}, "timestamp expired"},
		{"short nonce", func() *http.Request {
			return signedRequest(t, priv, "{}", "short", now)
		}, "nonce must be at least 24 characters"},
		{"tampered body", func() *http.Request {
			req := signedRequest(t, priv, "{}", testNonce, now)
			req.Body = io.NopCloser(bytes.NewBufferString(`{"x":1}`))
			return req
		}, "invalid signature"},
		{"bad key", func() *http.Request {
			req := signedRequest(t, priv, "{}", testNonce, now)
			req.Header.Set(HeaderKey, "AAAA")
			return req
		}, "invalid public key"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, h, _ := newTestAuth(t)
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, tt.req())
			assert.Equal(t, http.StatusUnauthorized, rec.Code)
			assert.Contains(t, rec.Body.String(), tt.want)
		})
	}
}

func TestNormalizePath(t *testing.T) {
	assert.Equal(t, "/messages/total", normalizePath("/messages/total"))
	assert.Equal(t, "/messages/:id", normalizePath("/messages/12"))
	assert.Equal(t, "/messages/:id/response", normalizePath("/messages/12/response"))
	assert.Equal(t, "/users/:address/messages", normalizePath("/users/0xabc/messages"))
	assert.Equal(t, "/health", normalizePath("/health"))
}
