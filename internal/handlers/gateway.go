package handlers

import (
	"net/http"

	"github.com/novastreamlab/FHE-AI/internal/models"
)

// GatewayKey handles GET /gateway/key.
func (h *Handler) GatewayKey(w http.ResponseWriter, r *http.Request) {
	h.JSON(w, http.StatusOK, models.GatewayKeyResponse{PublicKey: h.gateway.PublicKey()})
}

// EncryptInput handles POST /gateway/input. The signer is the input's user.
func (h *Handler) EncryptInput(w http.ResponseWriter, r *http.Request) {
	caller, ok := h.caller(w, r)
	if !ok {
		return
	}
	var req models.EncryptInputRequest
	if !h.decode(w, r, &req) {
		return
	}
	if req.ContractAddress.IsZero() {
		h.Error(w, http.StatusBadRequest, "contract_address is required")
		return
	}

	in, err := h.gateway.EncryptInput(r.Context(), req.ContractAddress, caller, req.Value)
	if err != nil {
		h.Fail(w, r, err)
		return
	}
	h.JSON(w, http.StatusOK, in)
}

// UserDecrypt handles POST /gateway/decrypt. The request carries its own
// signature over the decrypt authorization.
func (h *Handler) UserDecrypt(w http.ResponseWriter, r *http.Request) {
	var req models.UserDecryptRequest
	if !h.decode(w, r, &req) {
		return
	}

	resp, err := h.gateway.UserDecrypt(r.Context(), &req)
	if err != nil {
		h.Fail(w, r, err)
		return
	}
	h.JSON(w, http.StatusOK, resp)
}
