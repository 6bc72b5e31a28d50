package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/tonecapon3/stock-ticker-v2-sub000/internal/apierror"
	"github.com/tonecapon3/stock-ticker-v2-sub000/internal/audit"
	"github.com/tonecapon3/stock-ticker-v2-sub000/internal/auth"
)

// handleListSessions returns the caller's own live sessions, sanitized.
func (a *API) handleListSessions(w http.ResponseWriter, r *http.Request) {
	identity, _ := auth.IdentityFromContext(r.Context())
	infos := a.sessions.List(identity.ID)
	writeJSON(w, http.StatusOK, map[string]any{"sessions": infos})
}

// handleDeleteSession removes one of the caller's sessions by id. Sessions
// belonging to other users are reported as not found rather than forbidden,
// so ids cannot be probed.
func (a *API) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	identity, _ := auth.IdentityFromContext(r.Context())
	id := chi.URLParam(r, "id")

	owned := false
	for _, info := range a.sessions.List(identity.ID) {
		if info.SessionID == id {
			owned = true
			break
		}
	}
	if !owned || !a.sessions.Remove(id) {
		writeError(w, r, apierror.NotFound("session not found"))
		return
	}

	_ = audit.LogEvent(r.Context(), "session.delete", map[string]any{
		"session_id": id,
	})

	writeJSON(w, http.StatusOK, map[string]any{"removed": true})
}
