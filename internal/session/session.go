// Package session owns the session table and the per-user index: creation
// with a per-user cap, lazy expiry on access, token binding checks, forced
// eviction and the periodic sweep. No other component holds a long-lived
// reference to a session record.
package session

import (
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/tonecapon3/stock-ticker-v2-sub000/internal/auth"
	"github.com/tonecapon3/stock-ticker-v2-sub000/internal/market"
	"github.com/tonecapon3/stock-ticker-v2-sub000/internal/obs"
)

// Session binds one login to one isolated slice of application state.
// Tokens never appear in JSON; listings go through Info instead. The manager
// hands out detached copies of the record, so field reads on a returned
// session need no lock; only Data is shared, and it carries its own mutex.
type Session struct {
	ID           string
	UserID       string
	Username     string
	Role         auth.Role
	Token        string `json:"-"`
	RefreshToken string `json:"-"`
	CreatedAt    time.Time
	ExpiresAt    time.Time
	LastActivity time.Time
	DeviceInfo   string
	Data         *market.Data
}

// Info is the sanitized view of a session used in listings.
type Info struct {
	SessionID    string    `json:"sessionId"`
	UserID       string    `json:"userId"`
	Username     string    `json:"username"`
	Role         auth.Role `json:"role"`
	CreatedAt    time.Time `json:"createdAt"`
	ExpiresAt    time.Time `json:"expiresAt"`
	LastActivity time.Time `json:"lastActivity"`
	DeviceInfo   string    `json:"deviceInfo,omitempty"`
}

// Stats are the aggregate counts served to the admin inspector.
type Stats struct {
	TotalSessions   int `json:"totalSessions"`
	ActiveSessions  int `json:"activeSessions"`
	ExpiredSessions int `json:"expiredSessions"`
	TotalUsers      int `json:"totalUsers"`
}

// TokenIssuer mints session-bound token pairs. Implemented by
// auth.TokenService.
type TokenIssuer interface {
	Issue(identity auth.Identity, sessionID string) (auth.TokenPair, error)
	AccessTTL() time.Duration
}

// Config holds session lifecycle settings.
type Config struct {
	// MaxPerUser is the session cap; creating one more evicts the
	// least-recently-active session.
	MaxPerUser int
	// ActivityTimeout is the idle window after which a session is treated as
	// expired even if its token has not yet expired.
	ActivityTimeout time.Duration
}

// DefaultConfig returns the reference limits.
func DefaultConfig() Config {
	return Config{MaxPerUser: 5, ActivityTimeout: 2 * time.Hour}
}

// Manager implements the session store with in-process concurrency safety.
// The maps never escape; callers only ever see individual records or
// sanitized copies.
type Manager struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	byUser   map[string]map[string]struct{}

	tokens TokenIssuer
	cfg    Config
	simCfg market.SimConfig
	now    func() time.Time

	rngMu sync.Mutex
	rng   *rand.Rand
}

// Option configures Manager behavior.
type Option func(*Manager)

// WithClock overrides the time source (useful for tests).
func WithClock(fn func() time.Time) Option {
	return func(m *Manager) {
		if fn != nil {
			m.now = fn
		}
	}
}

// WithSeed fixes the root PRNG used to seed each session's market data.
func WithSeed(seed int64) Option {
	return func(m *Manager) {
		if seed != 0 {
			m.rng = rand.New(rand.NewSource(seed))
		}
	}
}

// NewManager creates an empty session manager.
func NewManager(tokens TokenIssuer, cfg Config, simCfg market.SimConfig, opts ...Option) *Manager {
	if cfg.MaxPerUser <= 0 {
		cfg.MaxPerUser = 5
	}
	if cfg.ActivityTimeout <= 0 {
		cfg.ActivityTimeout = 2 * time.Hour
	}
	m := &Manager{
		sessions: make(map[string]*Session),
		byUser:   make(map[string]map[string]struct{}),
		tokens:   tokens,
		cfg:      cfg,
		simCfg:   simCfg,
		now:      time.Now,
		rng:      rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *Manager) newDataRNG() *rand.Rand {
	m.rngMu.Lock()
	defer m.rngMu.Unlock()
	return rand.New(rand.NewSource(m.rng.Int63()))
}

// Create builds a new session for the identity: evicts the least-recently
// -active session once the user is at the cap, generates a unique session id,
// initializes isolated market data and mints tokens bound to the new id.
func (m *Manager) Create(identity auth.Identity, deviceInfo string) (*Session, error) {
	now := m.now().UTC()
	id := uuid.NewString()

	pair, err := m.tokens.Issue(identity, id)
	if err != nil {
		return nil, err
	}
	data := market.NewData(m.newDataRNG(), m.simCfg, now)

	sess := &Session{
		ID:           id,
		UserID:       identity.ID,
		Username:     identity.Username,
		Role:         identity.Role,
		Token:        pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		CreatedAt:    now,
		ExpiresAt:    now.Add(m.tokens.AccessTTL()),
		LastActivity: now,
		DeviceInfo:   deviceInfo,
		Data:         data,
	}

	m.mu.Lock()
	for len(m.byUser[identity.ID]) >= m.cfg.MaxPerUser {
		m.evictOldestLocked(identity.ID)
	}
	m.sessions[id] = sess
	set, ok := m.byUser[identity.ID]
	if !ok {
		set = make(map[string]struct{})
		m.byUser[identity.ID] = set
	}
	set[id] = struct{}{}
	total := len(m.sessions)
	out := *sess
	m.mu.Unlock()

	obs.SetActiveSessions(total)
	return &out, nil
}

// evictOldestLocked removes the user's least-recently-active session
// (tie-break: earliest LastActivity wins by strict before-comparison order).
func (m *Manager) evictOldestLocked(userID string) {
	var oldest *Session
	for id := range m.byUser[userID] {
		s := m.sessions[id]
		if s == nil {
			delete(m.byUser[userID], id)
			continue
		}
		if oldest == nil || s.LastActivity.Before(oldest.LastActivity) {
			oldest = s
		}
	}
	if oldest == nil {
		delete(m.byUser, userID)
		return
	}
	m.removeLocked(oldest.ID)
	obs.CountEviction("limit")
}

// TokenPair returns the current tokens for a session. Used once at login to
// shape the response; never stored elsewhere.
func (m *Manager) TokenPair(id string) (auth.TokenPair, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	if !ok {
		return auth.TokenPair{}, false
	}
	return auth.TokenPair{
		AccessToken:  s.Token,
		RefreshToken: s.RefreshToken,
		ExpiresIn:    int64(time.Until(s.ExpiresAt) / time.Second),
	}, true
}

// Get returns a copy of the session if it is still live, refreshing its
// activity timestamp. An expired or idle session is removed on the spot and
// nil is returned. Returning a copy keeps later writes under m.mu (rotation,
// activity refresh) invisible to a record a handler is still reading.
func (m *Manager) Get(id string) *Session {
	now := m.now().UTC()

	m.mu.Lock()
	s, ok := m.sessions[id]
	if !ok {
		m.mu.Unlock()
		return nil
	}
	if m.expiredLocked(s, now) {
		m.removeLocked(id)
		total := len(m.sessions)
		m.mu.Unlock()
		obs.CountEviction("expired")
		obs.SetActiveSessions(total)
		return nil
	}
	s.LastActivity = now
	out := *s
	m.mu.Unlock()
	return &out
}

// Validate is Get plus an exact token match, defending against a stale or
// rotated token being replayed with a still-live session id.
func (m *Manager) Validate(id, token string) *Session {
	s := m.Get(id)
	if s == nil || s.Token != token {
		return nil
	}
	return s
}

// UpdateTokens swaps in a freshly rotated pair and extends the session
// expiry accordingly.
func (m *Manager) UpdateTokens(id string, pair auth.TokenPair) bool {
	now := m.now().UTC()
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return false
	}
	s.Token = pair.AccessToken
	s.RefreshToken = pair.RefreshToken
	s.ExpiresAt = now.Add(m.tokens.AccessTTL())
	s.LastActivity = now
	return true
}

func (m *Manager) expiredLocked(s *Session, now time.Time) bool {
	if now.After(s.ExpiresAt) {
		return true
	}
	return now.Sub(s.LastActivity) > m.cfg.ActivityTimeout
}

// Remove deletes one session. Idempotent.
func (m *Manager) Remove(id string) bool {
	m.mu.Lock()
	_, ok := m.sessions[id]
	if ok {
		m.removeLocked(id)
	}
	total := len(m.sessions)
	m.mu.Unlock()

	if ok {
		obs.CountEviction("logout")
		obs.SetActiveSessions(total)
	}
	return ok
}

// RemoveUser deletes all of a user's sessions and returns the count removed.
func (m *Manager) RemoveUser(userID string) int {
	m.mu.Lock()
	removed := 0
	for id := range m.byUser[userID] {
		m.removeLocked(id)
		removed++
	}
	total := len(m.sessions)
	m.mu.Unlock()

	for i := 0; i < removed; i++ {
		obs.CountEviction("admin")
	}
	obs.SetActiveSessions(total)
	return removed
}

// removeLocked updates both the session table and the per-user index.
func (m *Manager) removeLocked(id string) {
	s, ok := m.sessions[id]
	if !ok {
		return
	}
	delete(m.sessions, id)
	if set, ok := m.byUser[s.UserID]; ok {
		delete(set, id)
		if len(set) == 0 {
			delete(m.byUser, s.UserID)
		}
	}
}

// Cleanup removes every session failing the expiry/activity check and
// returns the count removed. Called by the sweeper.
func (m *Manager) Cleanup() int {
	now := m.now().UTC()

	m.mu.Lock()
	var stale []string
	for id, s := range m.sessions {
		if m.expiredLocked(s, now) {
			stale = append(stale, id)
		}
	}
	for _, id := range stale {
		m.removeLocked(id)
	}
	total := len(m.sessions)
	m.mu.Unlock()

	for range stale {
		obs.CountEviction("expired")
	}
	obs.SetActiveSessions(total)
	return len(stale)
}

// List returns sanitized infos for one user's live sessions.
func (m *Manager) List(userID string) []Info {
	now := m.now().UTC()
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Info, 0, len(m.byUser[userID]))
	for id := range m.byUser[userID] {
		s := m.sessions[id]
		if s == nil || m.expiredLocked(s, now) {
			continue
		}
		out = append(out, infoFor(s))
	}
	return out
}

// All returns sanitized infos for every tracked session.
func (m *Manager) All() []Info {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Info, 0, len(m.sessions))
	for _, s := range m.sessions {
		out = append(out, infoFor(s))
	}
	return out
}

func infoFor(s *Session) Info {
	return Info{
		SessionID:    s.ID,
		UserID:       s.UserID,
		Username:     s.Username,
		Role:         s.Role,
		CreatedAt:    s.CreatedAt,
		ExpiresAt:    s.ExpiresAt,
		LastActivity: s.LastActivity,
		DeviceInfo:   s.DeviceInfo,
	}
}

// GetStats returns aggregate counts for the admin inspector.
func (m *Manager) GetStats() Stats {
	now := m.now().UTC()
	m.mu.RLock()
	defer m.mu.RUnlock()
	st := Stats{TotalSessions: len(m.sessions), TotalUsers: len(m.byUser)}
	for _, s := range m.sessions {
		if m.expiredLocked(s, now) {
			st.ExpiredSessions++
		} else {
			st.ActiveSessions++
		}
	}
	return st
}

// Targets enumerates live sessions for the market simulator. Expired sessions
// are skipped without touching their activity timestamps; the sweep or the
// next access removes them.
func (m *Manager) Targets() []market.Target {
	now := m.now().UTC()
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]market.Target, 0, len(m.sessions))
	for id, s := range m.sessions {
		if m.expiredLocked(s, now) {
			continue
		}
		out = append(out, market.Target{SessionID: id, Data: s.Data})
	}
	return out
}
