package httpapi

import (
	"net/http"
	"time"

	"github.com/tonecapon3/stock-ticker-v2-sub000/internal/apierror"
	"github.com/tonecapon3/stock-ticker-v2-sub000/internal/audit"
	"github.com/tonecapon3/stock-ticker-v2-sub000/internal/market"
)

// handleGetControls returns the caller's simulation controls and preferences.
func (a *API) handleGetControls(w http.ResponseWriter, r *http.Request) {
	sess, ok := sessionFromContext(r.Context())
	if !ok {
		writeError(w, r, apierror.SessionInvalid())
		return
	}
	view := sess.Data.Snapshot()
	writeJSON(w, http.StatusOK, map[string]any{
		"controls":    view.Controls,
		"preferences": view.Preferences,
	})
}

type updateControlsRequest struct {
	market.ControlsPatch
	Preferences map[string]string `json:"preferences"`
}

// handleUpdateControls applies a partial controls update. Omitted fields keep
// their current values; preference entries with empty values are removed.
func (a *API) handleUpdateControls(w http.ResponseWriter, r *http.Request) {
	sess, ok := sessionFromContext(r.Context())
	if !ok {
		writeError(w, r, apierror.SessionInvalid())
		return
	}

	var req updateControlsRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, apierror.Validation(err.Error()))
		return
	}

	controls, err := sess.Data.UpdateControls(req.ControlsPatch, time.Now())
	if err != nil {
		writeError(w, r, apierror.Validation(err.Error()))
		return
	}
	prefs := sess.Data.UpdatePreferences(req.Preferences)

	_ = audit.LogEvent(r.Context(), "controls.update", map[string]any{
		"session_id": sess.ID,
		"paused":     controls.IsPaused,
		"intervalMs": controls.UpdateIntervalMS,
		"volatility": controls.Volatility,
	})

	writeJSON(w, http.StatusOK, map[string]any{
		"controls":    controls,
		"preferences": prefs,
	})
}
