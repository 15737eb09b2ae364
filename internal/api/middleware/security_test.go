package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidPath(t *testing.T) {
	tests := []struct {
		path string
		ok   bool
	}{
		{"/", true},
		{"/health", true},
		{"/messages/12/response", true},
		{"/users/0xAbCdEf0123456789aBCDef0123456789AbCdEf01/messages", true},
		{"/gateway/key", true},
		{"", false},
		{"/messages/", false},
		{"//messages", false},
		{"/messages/../config", false},
		{"/messages/<script>", false},
		{"/" + strings.Repeat("a", 300), false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.ok, validPath(tt.path), tt.path)
	}
}

func TestValidateRequest(t *testing.T) {
	h := ValidateRequest(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	serve := func(r *http.Request) int {
		w := httptest.NewRecorder()
		h.ServeHTTP(w, r)
		return w.Code
	}

	r := httptest.NewRequest(http.MethodPost, "/messages", strings.NewReader(`{}`))
	r.Header.Set("Content-Type", "application/json")
	assert.Equal(t, http.StatusNoContent, serve(r))

	r = httptest.NewRequest(http.MethodPost, "/messages", strings.NewReader(`{}`))
	r.Header.Set("Content-Type", "text/plain")
	assert.Equal(t, http.StatusUnsupportedMediaType, serve(r))

	// Empty bodies need no content type.
	r = httptest.NewRequest(http.MethodPost, "/messages/3/response", nil)
	assert.Equal(t, http.StatusNoContent, serve(r))

	r = httptest.NewRequest(http.MethodGet, "/messages/total?x=1", nil)
	assert.Equal(t, http.StatusBadRequest, serve(r))
}

func TestSecurityHeaders(t *testing.T) {
	h := SecurityHeaders(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/contract", nil))

	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "no-store", w.Header().Get("Cache-Control"))
}

func TestMaxBodySize(t *testing.T) {
	h := MaxBodySize(8)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/messages", strings.NewReader(strings.Repeat("x", 9))))
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
}
