package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/novastreamlab/FHE-AI/internal/api/middleware"
	"github.com/novastreamlab/FHE-AI/internal/gateway"
	"github.com/novastreamlab/FHE-AI/internal/ledger"
	"github.com/novastreamlab/FHE-AI/internal/models"
	"github.com/novastreamlab/FHE-AI/internal/store"
)

// Handler contains shared dependencies for all HTTP handlers.
type Handler struct {
	ledger  *ledger.Ledger
	gateway *gateway.Gateway
	db      store.LedgerStore
	redis   *store.RedisStore // optional
	logger  zerolog.Logger
}

// NewHandler creates a new Handler.
func NewHandler(l *ledger.Ledger, gw *gateway.Gateway, db store.LedgerStore, redis *store.RedisStore, logger zerolog.Logger) *Handler {
	return &Handler{ledger: l, gateway: gw, db: db, redis: redis, logger: logger}
}

// JSON sends a JSON response with the given status code.
func (h *Handler) JSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// Error sends a JSON error response with the given status code.
func (h *Handler) Error(w http.ResponseWriter, status int, message string) {
	h.JSON(w, status, models.ErrorResponse{Error: message})
}

// Fail maps a ledger or gateway error to its status code and reason.
func (h *Handler) Fail(w http.ResponseWriter, r *http.Request, err error) {
	if reason := ledger.Reason(err); reason != "" {
		h.Error(w, ledgerStatus(err), reason)
		return
	}

	switch {
	case errors.Is(err, gateway.ErrInvalidRequest), errors.Is(err, gateway.ErrInvalidProof):
		h.Error(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, gateway.ErrUnauthorized):
		h.Error(w, http.StatusForbidden, err.Error())
	case errors.Is(err, gateway.ErrUnknownHandle):
		h.Error(w, http.StatusNotFound, err.Error())
	default:
		h.logger.Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
		h.Error(w, http.StatusInternalServerError, "internal error")
	}
}

func ledgerStatus(err error) int {
	switch {
	case errors.Is(err, ledger.ErrInvalidArgument):
		return http.StatusBadRequest
	case errors.Is(err, ledger.ErrUnauthorized), errors.Is(err, ledger.ErrNotOwner):
		return http.StatusForbidden
	case errors.Is(err, ledger.ErrNotFound), errors.Is(err, ledger.ErrNotDeployed):
		return http.StatusNotFound
	case errors.Is(err, ledger.ErrAlreadyDeployed):
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

// caller returns the authenticated caller or writes a 401.
func (h *Handler) caller(w http.ResponseWriter, r *http.Request) (models.Address, bool) {
	caller, ok := middleware.GetCallerFromContext(r.Context())
	if !ok {
		h.Error(w, http.StatusUnauthorized, "authentication required")
	}
	return caller, ok
}

// messageID parses the {id} URL parameter.
func (h *Handler) messageID(w http.ResponseWriter, r *http.Request) (uint64, bool) {
	id, err := strconv.ParseUint(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		h.Error(w, http.StatusBadRequest, "invalid message id format")
		return 0, false
	}
	return id, true
}

// decode reads a JSON body into v or writes a 400. An empty body leaves v unchanged.
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil && !errors.Is(err, io.EOF) {
		h.Error(w, http.StatusBadRequest, "invalid JSON body")
		return false
	}
	return true
}
