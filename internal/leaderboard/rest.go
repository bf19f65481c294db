package leaderboard

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	apperrors "github.com/1prspctv/memory-match-madness/internal/errors"
	"github.com/1prspctv/memory-match-madness/internal/models"
)

// RESTStore talks to a PostgREST-compatible endpoint (the hosted Supabase
// project the web client uses): rows go to /rest/v1/leaderboards and the
// ranked board comes from the get_top_scores RPC.
type RESTStore struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

// NewRESTStore creates a RESTStore. A nil client gets a 10s timeout client.
func NewRESTStore(baseURL, apiKey string, client *http.Client) *RESTStore {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &RESTStore{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		client:  client,
	}
}

type restEntry struct {
	ID            string          `json:"id,omitempty"`
	GameID        string          `json:"game_id"`
	WalletAddress string          `json:"wallet_address"`
	PlayerName    *string         `json:"player_name,omitempty"`
	Score         int64           `json:"score"`
	Metadata      models.Metadata `json:"metadata,omitempty"`
	CreatedAt     *time.Time      `json:"created_at,omitempty"`
}

type restTopScore struct {
	Rank          int       `json:"rank"`
	WalletAddress string    `json:"wallet_address"`
	PlayerName    *string   `json:"player_name"`
	Score         int64     `json:"score"`
	CreatedAt     time.Time `json:"created_at"`
}

// Insert implements Store.
func (r *RESTStore) Insert(ctx context.Context, entry *models.LeaderboardEntry) (*models.LeaderboardEntry, error) {
	if err := ValidateEntry(entry); err != nil {
		return nil, err
	}

	body := []restEntry{{
		GameID:        entry.GameID,
		WalletAddress: entry.SubmitterIdentity,
		Score:         entry.Score,
		Metadata:      entry.Metadata,
	}}
	if entry.PlayerName != "" {
		name := entry.PlayerName
		body[0].PlayerName = &name
	}

	var rows []restEntry
	headers := map[string]string{"Prefer": "return=representation"}
	if err := r.do(ctx, "/rest/v1/leaderboards", body, headers, &rows); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, apperrors.New(apperrors.ErrNetwork, "insert returned no rows")
	}

	stored := *entry
	stored.ID = rows[0].ID
	if rows[0].CreatedAt != nil {
		stored.CreatedAt = rows[0].CreatedAt.UTC()
	}
	return &stored, nil
}

// TopScores implements Store.
func (r *RESTStore) TopScores(ctx context.Context, gameID string, limit int) ([]models.TopScore, error) {
	args := map[string]interface{}{
		"game_name":   gameID,
		"limit_count": normalizeLimit(limit),
	}

	var rows []restTopScore
	if err := r.do(ctx, "/rest/v1/rpc/get_top_scores", args, nil, &rows); err != nil {
		return nil, err
	}

	out := make([]models.TopScore, len(rows))
	for i, row := range rows {
		out[i] = models.TopScore{
			Rank:              row.Rank,
			SubmitterIdentity: row.WalletAddress,
			Score:             row.Score,
			CreatedAt:         row.CreatedAt.UTC(),
		}
		if row.PlayerName != nil {
			out[i].PlayerName = *row.PlayerName
		}
		if out[i].Rank == 0 {
			out[i].Rank = i + 1
		}
	}
	return out, nil
}

// Close implements Store.
func (r *RESTStore) Close() error {
	r.client.CloseIdleConnections()
	return nil
}

// do POSTs payload as JSON and decodes the response into out. Client errors
// other than 408/429 are permanent; the rest are retryable.
func (r *RESTStore) do(ctx context.Context, path string, payload interface{}, headers map[string]string, out interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return apperrors.Wrap(apperrors.ErrValidation, "encode request", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return apperrors.Wrap(apperrors.ErrValidation, "build request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if r.apiKey != "" {
		req.Header.Set("apikey", r.apiKey)
		req.Header.Set("Authorization", "Bearer "+r.apiKey)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return apperrors.Wrap(apperrors.ErrNetwork, "POST "+path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return apperrors.Wrap(apperrors.ErrNetwork, "read response", err)
	}

	if resp.StatusCode >= 300 {
		statusErr := fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
		if resp.StatusCode >= 400 && resp.StatusCode < 500 &&
			resp.StatusCode != http.StatusRequestTimeout && resp.StatusCode != http.StatusTooManyRequests {
			return apperrors.Wrap(apperrors.ErrValidation, "POST "+path, statusErr)
		}
		return apperrors.Wrap(apperrors.ErrNetwork, "POST "+path, statusErr)
	}

	if out == nil || len(bytes.TrimSpace(body)) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return apperrors.Wrap(apperrors.ErrNetwork, "decode response", err)
	}
	return nil
}
