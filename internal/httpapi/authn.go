package httpapi

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/tonecapon3/stock-ticker-v2-sub000/internal/apierror"
	"github.com/tonecapon3/stock-ticker-v2-sub000/internal/auth"
	"github.com/tonecapon3/stock-ticker-v2-sub000/internal/session"
)

const (
	authHeader    = "Authorization"
	bearer        = "Bearer "
	sessionHeader = "X-Session-ID"
)

type sessionContextKey struct{}

func contextWithSession(ctx context.Context, s *session.Session) context.Context {
	return context.WithValue(ctx, sessionContextKey{}, s)
}

func sessionFromContext(ctx context.Context) (*session.Session, bool) {
	v, ok := ctx.Value(sessionContextKey{}).(*session.Session)
	if !ok || v == nil {
		return nil, false
	}
	return v, true
}

// withAuth resolves (Authorization: Bearer, X-Session-ID) into a validated
// identity and session. Token verification and session lookup are two
// explicit steps: the signature/expiry check never touches the session table,
// and the table lookup additionally requires the exact token the session was
// minted with.
func (a *API) withAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, err := extractBearerToken(r.Header.Get(authHeader))
		if err != nil {
			writeError(w, r, apierror.AuthMissing(err.Error()))
			return
		}
		sessionID := strings.TrimSpace(r.Header.Get(sessionHeader))
		if sessionID == "" {
			writeError(w, r, apierror.AuthMissing("session id header is required"))
			return
		}

		claims, err := a.tokens.ParseAccess(token)
		if err != nil {
			switch {
			case errors.Is(err, auth.ErrTokenExpired):
				writeError(w, r, apierror.TokenExpired())
			default:
				writeError(w, r, apierror.TokenInvalid())
			}
			return
		}

		// A token is valid only paired with the exact session it was minted
		// for.
		if claims.SessionID != sessionID {
			writeError(w, r, apierror.SessionInvalid())
			return
		}
		sess := a.sessions.Validate(sessionID, token)
		if sess == nil {
			writeError(w, r, apierror.SessionInvalid())
			return
		}

		ctx := auth.ContextWithIdentity(r.Context(), claims.Identity())
		ctx = auth.ContextWithToken(ctx, token)
		ctx = contextWithSession(ctx, sess)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// requireRole guards a route group with a minimum role.
func (a *API) requireRole(min auth.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity, ok := auth.IdentityFromContext(r.Context())
			if !ok {
				writeError(w, r, apierror.AuthMissing(""))
				return
			}
			if !identity.Role.AtLeast(min) {
				writeError(w, r, apierror.InsufficientPermissions())
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func extractBearerToken(header string) (string, error) {
	header = strings.TrimSpace(header)
	if header == "" {
		return "", errors.New("missing bearer token")
	}
	if !strings.HasPrefix(strings.ToLower(header), strings.ToLower(bearer)) {
		return "", errors.New("invalid authorization scheme")
	}
	token := strings.TrimSpace(header[len(bearer):])
	if token == "" {
		return "", errors.New("missing bearer token")
	}
	return token, nil
}
