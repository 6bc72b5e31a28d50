package market

import (
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/tonecapon3/stock-ticker-v2-sub000/internal/obs"
)

// PriceChange describes one applied price move, emitted to subscribers.
type PriceChange struct {
	Symbol        string    `json:"symbol"`
	Price         float64   `json:"price"`
	PreviousPrice float64   `json:"previousPrice"`
	Change        float64   `json:"change"`
	PercentChange float64   `json:"percentChange"`
	Timestamp     time.Time `json:"timestamp"`
}

// drawMovePercent draws one random move as a percentage of the current price:
// 70% small (±0.5%), 20% medium (±1.5%), 10% large (±max, doubled). The
// result is scaled by the session's volatility relative to the default.
func drawMovePercent(rng *rand.Rand, volatility float64, cfg SimConfig) float64 {
	r := rng.Float64()
	var pct float64
	switch {
	case r < 0.70:
		pct = (rng.Float64()*2 - 1) * 0.5
	case r < 0.90:
		pct = (rng.Float64()*2 - 1) * 1.5
	default:
		pct = (rng.Float64()*2 - 1) * cfg.MaxChangePercent * 2
	}
	if cfg.DefaultVolatility > 0 {
		pct *= volatility / cfg.DefaultVolatility
	}
	return pct
}

// Tick advances the session's stocks once if the per-session interval has
// elapsed. Paused or emergency-stopped sessions are skipped. A move that
// clamps back to the same rounded price is a no-op and emits no history
// point.
func (d *Data) Tick(now time.Time) []PriceChange {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.controls.IsPaused || d.controls.IsEmergencyStopped {
		return nil
	}
	interval := time.Duration(d.controls.UpdateIntervalMS) * time.Millisecond
	if now.Sub(d.lastTick) < interval {
		return nil
	}
	d.lastTick = now

	var changes []PriceChange
	for _, st := range d.stocks {
		pct := drawMovePercent(d.rng, d.controls.Volatility, d.cfg)
		next := round2(clampPrice(st.CurrentPrice * (1 + pct/100)))
		if next == st.CurrentPrice {
			continue
		}
		st.applyPrice(next, now)
		st.Volume = jiggleVolume(d.rng, st.Volume)
		changes = append(changes, changeFor(st, now))
	}
	return changes
}

func jiggleVolume(rng *rand.Rand, volume int64) int64 {
	delta := int64(float64(volume) * (rng.Float64()*2 - 1) * 0.05)
	v := volume + delta
	if v < 0 {
		return 0
	}
	return v
}

func changeFor(st *Stock, now time.Time) PriceChange {
	return PriceChange{
		Symbol:        st.Symbol,
		Price:         st.CurrentPrice,
		PreviousPrice: st.PreviousPrice,
		Change:        st.Change,
		PercentChange: st.PercentChange,
		Timestamp:     now,
	}
}

// BulkKind is a named transform applied to every stock in a session at once.
type BulkKind string

const (
	BulkBull       BulkKind = "bull"       // +20%
	BulkBear       BulkKind = "bear"       // -20%
	BulkSimulate   BulkKind = "simulate"   // one random tick-style move per stock
	BulkPercentage BulkKind = "percentage" // explicit percentage
	BulkReset      BulkKind = "reset"      // back to initial price
)

// ParseBulkKind maps the wire value to a BulkKind.
func ParseBulkKind(raw string) (BulkKind, error) {
	switch BulkKind(strings.ToLower(strings.TrimSpace(raw))) {
	case BulkBull:
		return BulkBull, nil
	case BulkBear:
		return BulkBear, nil
	case BulkSimulate:
		return BulkSimulate, nil
	case BulkPercentage:
		return BulkPercentage, nil
	case BulkReset:
		return BulkReset, nil
	default:
		return "", ErrInvalidBulk
	}
}

// ApplyBulk runs one transform across all stocks. For BulkPercentage the pct
// argument is required and validated to [-99, 1000].
func (d *Data) ApplyBulk(kind BulkKind, pct float64, now time.Time) ([]Stock, []PriceChange, error) {
	if kind == BulkPercentage {
		if pct < -99 || pct > 1000 {
			return nil, nil, ErrInvalidBulk
		}
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	var changes []PriceChange
	out := make([]Stock, 0, len(d.stocks))
	for _, st := range d.stocks {
		var next float64
		switch kind {
		case BulkBull:
			next = st.CurrentPrice * 1.20
		case BulkBear:
			next = st.CurrentPrice * 0.80
		case BulkSimulate:
			next = st.CurrentPrice * (1 + drawMovePercent(d.rng, d.controls.Volatility, d.cfg)/100)
		case BulkPercentage:
			next = st.CurrentPrice * (1 + pct/100)
		case BulkReset:
			next = st.InitialPrice
		default:
			return nil, nil, ErrInvalidBulk
		}
		next = round2(clampPrice(next))
		if next != st.CurrentPrice {
			st.applyPrice(next, now)
			changes = append(changes, changeFor(st, now))
		}
		out = append(out, st.clone())
	}
	return out, changes, nil
}

// Target pairs a session id with its isolated data for the tick loop.
type Target struct {
	SessionID string
	Data      *Data
}

// Source enumerates live sessions for the simulator. Implemented by the
// session manager.
type Source interface {
	Targets() []Target
}

// PublishFunc delivers applied changes for one session to interested
// subscribers (the SSE stream).
type PublishFunc func(sessionID string, changes []PriceChange)

// Simulator drives all sessions' prices from a single background goroutine
// running at a fixed base resolution; each session's own update interval and
// pause switches are honored inside Data.Tick.
type Simulator struct {
	source   Source
	publish  PublishFunc
	interval time.Duration
	done     chan struct{}
	stopped  chan struct{}
}

// NewSimulator creates a stopped simulator. publish may be nil.
func NewSimulator(source Source, publish PublishFunc, interval time.Duration) *Simulator {
	if interval <= 0 {
		interval = 500 * time.Millisecond
	}
	return &Simulator{
		source:   source,
		publish:  publish,
		interval: interval,
	}
}

// Start launches the tick loop. Calling Start on a running simulator is a
// no-op.
func (s *Simulator) Start() {
	if s.done != nil {
		return
	}
	s.done = make(chan struct{})
	s.stopped = make(chan struct{})
	go s.run()
}

func (s *Simulator) run() {
	defer close(s.stopped)
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-s.done:
			return
		case now := <-ticker.C:
			s.tickAll(now.UTC())
		}
	}
}

// tickAll advances every live session. A failure in one session is logged and
// skipped; it never takes down the loop.
func (s *Simulator) tickAll(now time.Time) {
	for _, target := range s.source.Targets() {
		s.tickOne(target, now)
	}
}

func (s *Simulator) tickOne(target Target, now time.Time) {
	defer func() {
		if rec := recover(); rec != nil {
			obs.LogRequest(map[string]any{
				"ts":         now.Format(time.RFC3339Nano),
				"level":      "error",
				"msg":        "tick panic recovered",
				"session_id": target.SessionID,
				"panic":      fmt.Sprint(rec),
			})
		}
	}()
	changes := target.Data.Tick(now)
	if len(changes) == 0 {
		return
	}
	obs.CountTick()
	if s.publish != nil {
		s.publish(target.SessionID, changes)
	}
}

// Stop terminates the tick loop and waits for it to exit.
func (s *Simulator) Stop() {
	if s.done == nil {
		return
	}
	close(s.done)
	<-s.stopped
	s.done = nil
}
