package session

import (
	"sync"
	"time"

	"github.com/tonecapon3/stock-ticker-v2-sub000/internal/obs"
)

// Sweeper runs the periodic cleanup of expired sessions. It is the only
// background task besides the market ticker, and it never crashes on a single
// bad record: Cleanup only reads the table under the manager lock.
type Sweeper struct {
	manager  *Manager
	interval time.Duration

	mu      sync.Mutex
	stopCh  chan struct{}
	running bool
}

// NewSweeper creates a stopped sweeper. interval defaults to 15 minutes.
func NewSweeper(manager *Manager, interval time.Duration) *Sweeper {
	if interval <= 0 {
		interval = 15 * time.Minute
	}
	return &Sweeper{
		manager:  manager,
		interval: interval,
	}
}

// Start begins the sweep loop. Calling Start twice is a no-op; a stopped
// sweeper may be started again.
func (s *Sweeper) Start() {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return
	}
	s.running = true
	s.stopCh = make(chan struct{})
	stop := s.stopCh
	s.mu.Unlock()

	go s.run(stop)
}

func (s *Sweeper) run(stop <-chan struct{}) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			s.sweep()
		case <-stop:
			return
		}
	}
}

func (s *Sweeper) sweep() {
	removed := s.manager.Cleanup()
	if removed > 0 {
		obs.LogRequest(map[string]any{
			"ts":      time.Now().UTC().Format(time.RFC3339Nano),
			"level":   "info",
			"msg":     "session_sweep",
			"removed": removed,
		})
	}
}

// RunNow triggers an immediate sweep and returns the count removed.
func (s *Sweeper) RunNow() int {
	return s.manager.Cleanup()
}

// Stop terminates the sweep loop. Idempotent.
func (s *Sweeper) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return
	}
	s.running = false
	close(s.stopCh)
}
