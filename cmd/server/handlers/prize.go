package handlers

import (
	"net/http"

	"github.com/1prspctv/memory-match-madness/internal/services"
)

// PrizeHandler exposes the prize ledger and the payout job.
type PrizeHandler struct {
	svc *services.ScoreService
}

// NewPrizeHandler creates a new PrizeHandler.
func NewPrizeHandler(svc *services.ScoreService) *PrizeHandler {
	return &PrizeHandler{svc: svc}
}

// State handles GET /api/prize.
func (h *PrizeHandler) State(w http.ResponseWriter, r *http.Request) {
	state, err := h.svc.Payout.PrizeState(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, state)
}

// Payout handles POST /api/payout. It is meant to be called by a cron.
func (h *PrizeHandler) Payout(w http.ResponseWriter, r *http.Request) {
	result, err := h.svc.Payout.Run(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}
