package middleware

import (
	"crypto/ed25519"
	"crypto/rand"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/novastreamlab/FHE-AI/internal/crypto"
)

func TestFindLimitFirstMatchWins(t *testing.T) {
	rl := NewRateLimiter(nil, zerolog.Nop(), RateLimiterConfig{})

	tests := []struct {
		method, path string
		want         int // Requests of the matching rule, 0 for none
	}{
		{http.MethodPost, "/messages", 30},
		{http.MethodPost, "/messages/3/response", 60},
		{http.MethodGet, "/messages/3", 120},
		{http.MethodGet, "/messages/total", 120},
		{http.MethodPost, "/deploy", 5},
		{http.MethodPost, "/config/owner", 10},
		{http.MethodGet, "/health", 0},
		{http.MethodGet, "/contract", 0},
	}
	for _, tt := range tests {
		got := rl.findLimit(httptest.NewRequest(tt.method, tt.path, nil))
		if tt.want == 0 {
			assert.Nil(t, got, tt.path)
			continue
		}
		require.NotNil(t, got, tt.path)
		assert.Equal(t, tt.want, got.Requests, "%s %s", tt.method, tt.path)
	}
}

func TestCallerKeyUsesAddress(t *testing.T) {
	pub, _, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)

	r := httptest.NewRequest(http.MethodPost, "/messages", nil)
	r.RemoteAddr = "10.0.0.7:4242"
	assert.Equal(t, "ratelimit:ip:10.0.0.7", callerKey(r))

	r.Header.Set(HeaderKey, crypto.EncodePublicKey(pub))
	assert.Equal(t, "ratelimit:caller:"+crypto.AddressOf(pub).Hex(), callerKey(r))
	assert.Equal(t, "ratelimit:ip:10.0.0.7", callerOrIPKey(r), "unsigned read keys on IP")

	r.Header.Set("X-Forwarded-For", "203.0.113.9, 10.0.0.1")
	assert.Equal(t, "203.0.113.9", RealIP(r))
}

func TestWhitelist(t *testing.T) {
	rl := NewRateLimiter(nil, zerolog.Nop(), RateLimiterConfig{
		Whitelist: []string{"127.0.0.1", "10.1.0.0/16", "bogus/99"},
	})

	assert.True(t, rl.isWhitelisted("127.0.0.1"))
	assert.True(t, rl.isWhitelisted("10.1.2.3"))
	assert.False(t, rl.isWhitelisted("10.2.0.1"))
	assert.False(t, rl.isWhitelisted("not-an-ip"))
}
