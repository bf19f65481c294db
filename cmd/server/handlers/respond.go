// Package handlers provides the REST API handlers for score submission,
// the pending queue, leaderboards and prize payouts.
package handlers

import (
	"encoding/json"
	"net/http"

	apperrors "github.com/1prspctv/memory-match-madness/internal/errors"
	"github.com/1prspctv/memory-match-madness/internal/logging"
	"github.com/1prspctv/memory-match-madness/internal/services"
)

// Register mounts every REST route on mux.
func Register(mux *http.ServeMux, svc *services.ScoreService) {
	scores := NewScoreHandler(svc)
	prizes := NewPrizeHandler(svc)

	mux.HandleFunc("POST /api/scores", scores.Submit)
	mux.HandleFunc("GET /api/scores/pending", scores.Pending)
	mux.HandleFunc("POST /api/scores/sync", scores.Sync)
	mux.HandleFunc("GET /api/leaderboard/{gameID}", scores.Leaderboard)
	mux.HandleFunc("GET /api/prize", prizes.State)
	mux.HandleFunc("POST /api/payout", prizes.Payout)
	mux.HandleFunc("GET /api/health", Health(svc))
}

// errorResponse is the body of every failed request.
type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logging.Error("Failed to encode response", err, nil)
	}
}

func writeError(w http.ResponseWriter, err error) {
	code := apperrors.CodeOf(err)
	status := statusFor(code)
	if status >= http.StatusInternalServerError {
		logging.ErrorWithCode("Request failed", string(code), err, nil)
	}
	writeJSON(w, status, errorResponse{Error: err.Error(), Code: string(code)})
}

func statusFor(code apperrors.ErrorCode) int {
	switch code {
	case apperrors.ErrValidation, apperrors.ErrInvalid:
		return http.StatusBadRequest
	case apperrors.ErrNotFound:
		return http.StatusNotFound
	case apperrors.ErrPersistence, apperrors.ErrConfig:
		return http.StatusServiceUnavailable
	case apperrors.ErrNetwork, apperrors.ErrChain, apperrors.ErrSyncFailed:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
