package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"github.com/tonecapon3/stock-ticker-v2-sub000/internal/apierror"
	"github.com/tonecapon3/stock-ticker-v2-sub000/internal/audit"
	"github.com/tonecapon3/stock-ticker-v2-sub000/internal/auth"
)

const deviceHeader = "X-Device-Fingerprint"

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token        string        `json:"token"`
	RefreshToken string        `json:"refreshToken"`
	ExpiresIn    int64         `json:"expiresIn"`
	SessionID    string        `json:"sessionId"`
	User         auth.Identity `json:"user"`
}

// handleLogin verifies credentials and creates a session with freshly minted
// tokens bound to it.
func (a *API) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, apierror.Validation(err.Error()))
		return
	}
	if strings.TrimSpace(req.Username) == "" || req.Password == "" {
		writeError(w, r, apierror.MissingCredentials())
		return
	}

	identity, err := a.credentials.Authenticate(req.Username, req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrMissingCredentials) {
			writeError(w, r, apierror.MissingCredentials())
			return
		}
		writeError(w, r, apierror.InvalidCredentials())
		return
	}

	deviceInfo := strings.TrimSpace(r.Header.Get(deviceHeader))
	if len(deviceInfo) > 256 {
		deviceInfo = deviceInfo[:256]
	}

	sess, err := a.sessions.Create(identity, deviceInfo)
	if err != nil {
		a.writeInternal(w, r, err)
		return
	}

	_ = audit.LogEvent(r.Context(), "auth.login", map[string]any{
		"user_id":    identity.ID,
		"username":   identity.Username,
		"session_id": sess.ID,
	})

	pair, _ := a.sessions.TokenPair(sess.ID)
	writeJSON(w, http.StatusOK, loginResponse{
		Token:        pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		ExpiresIn:    pair.ExpiresIn,
		SessionID:    sess.ID,
		User:         identity,
	})
}

// handleVerify echoes the resolved identity and session for a valid
// token/session pair.
func (a *API) handleVerify(w http.ResponseWriter, r *http.Request) {
	identity, _ := auth.IdentityFromContext(r.Context())
	sess, ok := sessionFromContext(r.Context())
	if !ok {
		writeError(w, r, apierror.SessionInvalid())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"user": identity,
		"session": map[string]any{
			"sessionId":    sess.ID,
			"expiresAt":    sess.ExpiresAt,
			"lastActivity": sess.LastActivity,
			"deviceInfo":   sess.DeviceInfo,
		},
	})
}

type logoutRequest struct {
	All bool `json:"all"`
}

// handleLogout removes the current session, or all of the caller's sessions
// when all=true.
func (a *API) handleLogout(w http.ResponseWriter, r *http.Request) {
	identity, _ := auth.IdentityFromContext(r.Context())
	sess, ok := sessionFromContext(r.Context())
	if !ok {
		writeError(w, r, apierror.SessionInvalid())
		return
	}

	var req logoutRequest
	if err := decodeJSONOptional(w, r, &req); err != nil {
		writeError(w, r, apierror.Validation(err.Error()))
		return
	}

	removed := 0
	if req.All {
		removed = a.sessions.RemoveUser(identity.ID)
	} else if a.sessions.Remove(sess.ID) {
		removed = 1
	}

	_ = audit.LogEvent(r.Context(), "auth.logout", map[string]any{
		"user_id":    identity.ID,
		"session_id": sess.ID,
		"all":        req.All,
		"removed":    removed,
	})

	writeJSON(w, http.StatusOK, map[string]any{"removed": removed})
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

// handleRefresh rotates the token pair for a live session. The refresh token
// must match the one currently bound to the session; a rotated-out token is
// rejected.
func (a *API) handleRefresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, apierror.Validation(err.Error()))
		return
	}

	claims, err := a.tokens.ParseRefresh(req.RefreshToken)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrTokenExpired):
			writeError(w, r, apierror.TokenExpired())
		default:
			writeError(w, r, apierror.TokenInvalid())
		}
		return
	}

	sess := a.sessions.Get(claims.SessionID)
	if sess == nil || sess.RefreshToken != req.RefreshToken || sess.UserID != claims.Subject {
		writeError(w, r, apierror.SessionInvalid())
		return
	}

	pair, err := a.tokens.Issue(claims.Identity(), sess.ID)
	if err != nil {
		a.writeInternal(w, r, err)
		return
	}
	if !a.sessions.UpdateTokens(sess.ID, pair) {
		writeError(w, r, apierror.SessionInvalid())
		return
	}

	_ = audit.LogEvent(r.Context(), "auth.refresh", map[string]any{
		"user_id":    claims.Subject,
		"session_id": sess.ID,
	})

	writeJSON(w, http.StatusOK, loginResponse{
		Token:        pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		ExpiresIn:    pair.ExpiresIn,
		SessionID:    sess.ID,
		User:         claims.Identity(),
	})
}

// writeInternal masks details in production and logs the full error.
func (a *API) writeInternal(w http.ResponseWriter, r *http.Request, err error) {
	audit.LogInternalError(r.Context(), err)
	msg := ""
	if !a.production {
		msg = err.Error()
	}
	writeError(w, r, apierror.Internal(msg))
}
