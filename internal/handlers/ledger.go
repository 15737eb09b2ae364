package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/novastreamlab/FHE-AI/internal/models"
)

const contractCacheTTL = time.Minute

// Deploy handles POST /deploy. The signer becomes the owner.
func (h *Handler) Deploy(w http.ResponseWriter, r *http.Request) {
	caller, ok := h.caller(w, r)
	if !ok {
		return
	}
	var req models.DeployRequest
	if !h.decode(w, r, &req) {
		return
	}

	var bot, response models.Address
	if req.BotAddress != nil {
		bot = *req.BotAddress
	}
	if req.ResponseAddress != nil {
		response = *req.ResponseAddress
	}

	c, rcpt, err := h.ledger.Deploy(r.Context(), caller, bot, response)
	if err != nil {
		h.Fail(w, r, err)
		return
	}
	h.JSON(w, http.StatusCreated, models.DeployResponse{Contract: *c, Receipt: *rcpt})
}

// GetContract handles GET /contract.
func (h *Handler) GetContract(w http.ResponseWriter, r *http.Request) {
	if h.redis != nil {
		if data, err := h.redis.CachedContract(r.Context()); err == nil && data != nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusOK)
			w.Write(data)
			return
		}
	}

	c, err := h.ledger.Contract(r.Context())
	if err != nil {
		h.Fail(w, r, err)
		return
	}

	if h.redis != nil {
		if data, err := json.Marshal(c); err == nil {
			if err := h.redis.CacheContract(r.Context(), data, contractCacheTTL); err != nil {
				h.logger.Warn().Err(err).Msg("contract cache write failed")
			}
		}
	}
	h.JSON(w, http.StatusOK, c)
}

// TotalMessages handles GET /messages/total.
func (h *Handler) TotalMessages(w http.ResponseWriter, r *http.Request) {
	n, err := h.ledger.TotalMessages(r.Context())
	if err != nil {
		h.Fail(w, r, err)
		return
	}
	h.JSON(w, http.StatusOK, models.TotalMessagesResponse{Total: n})
}

// GetMessage handles GET /messages/{id}.
func (h *Handler) GetMessage(w http.ResponseWriter, r *http.Request) {
	id, ok := h.messageID(w, r)
	if !ok {
		return
	}
	msg, err := h.ledger.GetMessage(r.Context(), id)
	if err != nil {
		h.Fail(w, r, err)
		return
	}
	h.JSON(w, http.StatusOK, msg)
}

// GetUserMessages handles GET /users/{address}/messages.
func (h *Handler) GetUserMessages(w http.ResponseWriter, r *http.Request) {
	addr, err := models.ParseAddress(chi.URLParam(r, "address"))
	if err != nil {
		h.Error(w, http.StatusBadRequest, "invalid address")
		return
	}
	ids, err := h.ledger.GetUserMessageIDs(r.Context(), addr)
	if err != nil {
		h.Fail(w, r, err)
		return
	}
	h.JSON(w, http.StatusOK, models.UserMessagesResponse{Address: addr, IDs: ids})
}

// SubmitMessage handles POST /messages.
func (h *Handler) SubmitMessage(w http.ResponseWriter, r *http.Request) {
	caller, ok := h.caller(w, r)
	if !ok {
		return
	}
	var req models.SubmitMessageRequest
	if !h.decode(w, r, &req) {
		return
	}

	id, rcpt, err := h.ledger.SubmitMessage(r.Context(), caller, req.Ciphertext, req.KeyHandle, req.InputProof, req.ModelID)
	if err != nil {
		h.Fail(w, r, err)
		return
	}
	h.JSON(w, http.StatusCreated, models.SubmitMessageResponse{ID: id, Receipt: *rcpt})
}

// RequestResponse handles POST /messages/{id}/response.
func (h *Handler) RequestResponse(w http.ResponseWriter, r *http.Request) {
	caller, ok := h.caller(w, r)
	if !ok {
		return
	}
	id, ok := h.messageID(w, r)
	if !ok {
		return
	}

	handle, rcpt, err := h.ledger.RequestResponse(r.Context(), caller, id)
	if err != nil {
		h.Fail(w, r, err)
		return
	}
	h.JSON(w, http.StatusOK, models.ResponseHandleResponse{MessageID: id, Handle: handle, Receipt: rcpt})
}

// PreviewResponse handles GET /messages/{id}/response.
func (h *Handler) PreviewResponse(w http.ResponseWriter, r *http.Request) {
	caller, ok := h.caller(w, r)
	if !ok {
		return
	}
	id, ok := h.messageID(w, r)
	if !ok {
		return
	}

	handle, err := h.ledger.PreviewResponse(r.Context(), caller, id)
	if err != nil {
		h.Fail(w, r, err)
		return
	}
	h.JSON(w, http.StatusOK, models.ResponseHandleResponse{MessageID: id, Handle: handle})
}
