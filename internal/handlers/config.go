package handlers

import (
	"context"
	"net/http"

	"github.com/novastreamlab/FHE-AI/internal/models"
)

type ownerCall func(ctx context.Context, caller, value models.Address) (*models.Receipt, error)

func (h *Handler) ownerCall(call ownerCall) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		caller, ok := h.caller(w, r)
		if !ok {
			return
		}
		var req models.AddressRequest
		if !h.decode(w, r, &req) {
			return
		}

		rcpt, err := call(r.Context(), caller, req.Address)
		if err != nil {
			h.Fail(w, r, err)
			return
		}
		if h.redis != nil {
			h.redis.InvalidateContract(r.Context())
		}
		h.JSON(w, http.StatusOK, models.ReceiptResponse{Receipt: *rcpt})
	}
}

// UpdateBotAddress handles POST /config/bot.
func (h *Handler) UpdateBotAddress(w http.ResponseWriter, r *http.Request) {
	h.ownerCall(h.ledger.UpdateBotAddress)(w, r)
}

// UpdateResponseAddress handles POST /config/response.
func (h *Handler) UpdateResponseAddress(w http.ResponseWriter, r *http.Request) {
	h.ownerCall(h.ledger.UpdateResponsePlainAddress)(w, r)
}

// TransferOwnership handles POST /config/owner.
func (h *Handler) TransferOwnership(w http.ResponseWriter, r *http.Request) {
	h.ownerCall(h.ledger.TransferOwnership)(w, r)
}
