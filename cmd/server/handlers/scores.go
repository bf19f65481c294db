package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	apperrors "github.com/1prspctv/memory-match-madness/internal/errors"
	"github.com/1prspctv/memory-match-madness/internal/models"
	"github.com/1prspctv/memory-match-madness/internal/services"
)

const (
	defaultLeaderboardLimit = 10
	maxLeaderboardLimit     = 100
)

// ScoreHandler handles score submission and leaderboard reads.
type ScoreHandler struct {
	svc *services.ScoreService
}

// NewScoreHandler creates a new ScoreHandler.
func NewScoreHandler(svc *services.ScoreService) *ScoreHandler {
	return &ScoreHandler{svc: svc}
}

// submitRequest is the body of POST /api/scores.
type submitRequest struct {
	WalletAddress string          `json:"wallet_address"`
	PlayerName    string          `json:"player_name"`
	Score         *int64          `json:"score"`
	Metadata      models.Metadata `json:"metadata"`
}

// submitResponse is the body of a successful submission.
type submitResponse struct {
	ID      string   `json:"id"`
	Synced  bool     `json:"synced"`
	Pending int      `json:"pending"`
	Errors  []string `json:"errors,omitempty"`
}

// Submit handles POST /api/scores. The score is durable once this returns
// 201, whether or not it reached the leaderboard yet.
func (h *ScoreHandler) Submit(w http.ResponseWriter, r *http.Request) {
	var request submitRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		writeError(w, apperrors.Wrap(apperrors.ErrInvalid, "invalid request body", err))
		return
	}
	if request.Score == nil {
		writeError(w, apperrors.New(apperrors.ErrValidation, "score is required"))
		return
	}

	result, err := h.svc.Submit(r.Context(), request.WalletAddress, request.PlayerName, *request.Score, request.Metadata)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, submitResponse{
		ID:      result.Record.ID,
		Synced:  result.Synced,
		Pending: result.Pending,
		Errors:  result.Errors,
	})
}

// Pending handles GET /api/scores/pending.
func (h *ScoreHandler) Pending(w http.ResponseWriter, r *http.Request) {
	records, err := h.svc.Pending()
	if err != nil {
		writeError(w, err)
		return
	}
	if records == nil {
		records = []*models.PendingScore{}
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"count":   len(records),
		"records": records,
	})
}

// Sync handles POST /api/scores/sync and waits for the pass to finish.
func (h *ScoreHandler) Sync(w http.ResponseWriter, r *http.Request) {
	result, err := h.svc.Scheduler.SyncNow(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"synced":      result.Synced,
		"failed":      result.Failed,
		"pending":     result.Pending,
		"errors":      result.Errors,
		"success":     result.Success(),
		"duration_ms": result.Duration.Milliseconds(),
	})
}

// Leaderboard handles GET /api/leaderboard/{gameID}?limit=&player=.
func (h *ScoreHandler) Leaderboard(w http.ResponseWriter, r *http.Request) {
	gameID := r.PathValue("gameID")

	limit := defaultLeaderboardLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, apperrors.New(apperrors.ErrInvalid, "limit must be an integer"))
			return
		}
		if n > 0 {
			limit = n
		}
	}
	if limit > maxLeaderboardLimit {
		limit = maxLeaderboardLimit
	}

	scores, err := h.svc.TopScores(r.Context(), gameID, limit)
	if err != nil {
		writeError(w, err)
		return
	}
	if scores == nil {
		scores = []models.TopScore{}
	}

	response := map[string]interface{}{
		"game_id": gameID,
		"scores":  scores,
	}

	if player := r.URL.Query().Get("player"); player != "" {
		rank, ok, err := h.svc.PlayerRank(r.Context(), gameID, player)
		if err != nil {
			writeError(w, err)
			return
		}
		if ok {
			response["player_rank"] = rank
		}
	}

	writeJSON(w, http.StatusOK, response)
}
