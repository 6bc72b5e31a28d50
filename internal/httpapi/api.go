// Package httpapi is the HTTP boundary: routing, middleware, request
// validation, and translation of domain errors into the stable wire
// vocabulary.
package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	"github.com/tonecapon3/stock-ticker-v2-sub000/internal/auth"
	"github.com/tonecapon3/stock-ticker-v2-sub000/internal/obs"
	"github.com/tonecapon3/stock-ticker-v2-sub000/internal/session"
	"github.com/tonecapon3/stock-ticker-v2-sub000/internal/stream"
)

// Options wires the API's collaborators.
type Options struct {
	Credentials *auth.CredentialStore
	Tokens      *auth.TokenService
	Sessions    *session.Manager
	Stream      *stream.Stream
	Version     string
	Production  bool
	RateBurst   int
	RatePerSec  int
}

// API — HTTP слой.
type API struct {
	router      chi.Router
	credentials *auth.CredentialStore
	tokens      *auth.TokenService
	sessions    *session.Manager
	stream      *stream.Stream
	version     string
	production  bool
	startTime   time.Time
}

// New builds the router with the full middleware stack.
func New(opts Options) *API {
	a := &API{
		credentials: opts.Credentials,
		tokens:      opts.Tokens,
		sessions:    opts.Sessions,
		stream:      opts.Stream,
		version:     opts.Version,
		production:  opts.Production,
		startTime:   time.Now(),
	}

	rateBurst := opts.RateBurst
	if rateBurst <= 0 {
		rateBurst = 20
	}
	ratePerSec := opts.RatePerSec
	if ratePerSec <= 0 {
		ratePerSec = 10
	}

	r := chi.NewRouter()

	// Global middleware stack (applies to ALL routes)
	r.Use(RequestID)
	r.Use(LoggingJSON)
	r.Use(Recovery)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID", "X-Session-ID", "X-Device-Fingerprint"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.Use(SecurityHeaders)
	r.Use(func(next http.Handler) http.Handler {
		return RateLimit(next, rateBurst, ratePerSec)
	})

	// PUBLIC routes (no auth required)
	r.Get("/healthz", a.handleHealthz)
	r.Handle("/metrics", obs.Handler())
	r.Post("/auth", a.handleLogin)
	r.Post("/auth/refresh", a.handleRefresh)

	// AUTHENTICATED routes
	r.Group(func(r chi.Router) {
		r.Use(a.withAuth)

		r.Get("/auth", a.handleVerify)
		r.Post("/auth/logout", a.handleLogout)

		r.Get("/sessions", a.handleListSessions)
		r.Delete("/sessions/{id}", a.handleDeleteSession)

		r.Get("/stocks", a.handleListStocks)
		r.Get("/controls", a.handleGetControls)
		r.Get("/stream", a.handleStream)

		// Mutating market routes require at least the controller role.
		r.Group(func(r chi.Router) {
			r.Use(a.requireRole(auth.RoleController))
			r.Post("/stocks", a.handleAddStock)
			r.Put("/stocks/bulk", a.handleBulkUpdate)
			r.Put("/stocks/{symbol}", a.handleSetPrice)
			r.Delete("/stocks/{symbol}", a.handleRemoveStock)
			r.Put("/controls", a.handleUpdateControls)
		})

		// Admin inspector: read-only cross-session views plus forced eviction.
		r.Group(func(r chi.Router) {
			r.Use(a.requireRole(auth.RoleAdmin))
			r.Get("/admin/stats", a.handleAdminStats)
			r.Get("/admin/sessions", a.handleAdminSessions)
			r.Delete("/admin/sessions/{userId}", a.handleAdminEvictUser)
		})
	})

	a.router = r
	return a
}

// Handler возвращает http.Handler для сервера, обёрнутый метриками.
func (a *API) Handler() http.Handler {
	return obs.Instrument(a.router)
}

func (a *API) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"service": "stock-ticker-api",
		"version": a.version,
		"uptime":  time.Since(a.startTime).Round(time.Second).String(),
	})
}
