package handlers

import (
	"net/http"

	"github.com/1prspctv/memory-match-madness/internal/services"
)

// Health handles GET /api/health. It reports the pending count so a
// probe can tell a healthy but backlogged instance from an idle one.
func Health(svc *services.ScoreService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		count, err := svc.Queue.Count()
		if err != nil {
			writeError(w, err)
			return
		}

		status := svc.Scheduler.GetStatus()
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"status":         "ok",
			"service":        "memory-match-madness",
			"pending":        count,
			"scheduler":      status.IsRunning,
			"last_sync_time": status.LastSyncTime,
		})
	}
}
