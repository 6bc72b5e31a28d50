package httpapi

import (
	"net/http"
	"runtime"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/tonecapon3/stock-ticker-v2-sub000/internal/audit"
)

// handleAdminStats reports session counts together with process health.
func (a *API) handleAdminStats(w http.ResponseWriter, r *http.Request) {
	stats := a.sessions.GetStats()

	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	writeJSON(w, http.StatusOK, map[string]any{
		"sessions": stats,
		"users":    a.credentials.Count(),
		"server": map[string]any{
			"version":       a.version,
			"uptimeSeconds": int64(time.Since(a.startTime).Seconds()),
			"goroutines":    runtime.NumGoroutine(),
			"heapAllocMB":   float64(mem.HeapAlloc) / (1024 * 1024),
		},
	})
}

// handleAdminSessions lists every session across all users, sanitized of
// token material.
func (a *API) handleAdminSessions(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"sessions": a.sessions.All()})
}

// handleAdminEvictUser forcibly removes every session belonging to a user.
func (a *API) handleAdminEvictUser(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userId")
	removed := a.sessions.RemoveUser(userID)

	_ = audit.LogEvent(r.Context(), "session.evict", map[string]any{
		"target_user_id": userID,
		"removed":        removed,
	})

	writeJSON(w, http.StatusOK, map[string]any{"removed": removed})
}
