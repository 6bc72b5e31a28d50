package stream

import (
	"context"
	"sync"
	"time"

	"github.com/tonecapon3/stock-ticker-v2-sub000/internal/market"
)

// PriceEvent is one batch of applied price moves for a single session.
type PriceEvent struct {
	Changes   []market.PriceChange `json:"changes"`
	Timestamp time.Time            `json:"timestamp"`
}

type subscriber struct {
	sessionID string
	ch        chan PriceEvent
}

// Stream fan-outs price events to SSE subscribers. Subscriptions are keyed by
// session id, so a subscriber only ever sees its own session's moves.
type Stream struct {
	mu   sync.RWMutex
	subs map[int]*subscriber
	next int
}

// New initialises an empty stream.
func New() *Stream {
	return &Stream{subs: make(map[int]*subscriber)}
}

// Subscribe registers a subscriber for one session and returns a channel
// which will receive that session's events. The channel is closed when the
// provided context ends.
func (s *Stream) Subscribe(ctx context.Context, sessionID string) <-chan PriceEvent {
	sub := &subscriber{sessionID: sessionID, ch: make(chan PriceEvent, 16)}

	s.mu.Lock()
	id := s.next
	s.next++
	s.subs[id] = sub
	s.mu.Unlock()

	go func() {
		<-ctx.Done()
		s.mu.Lock()
		delete(s.subs, id)
		close(sub.ch)
		s.mu.Unlock()
	}()

	return sub.ch
}

// Publish fan-outs the changes to the session's subscribers.
func (s *Stream) Publish(sessionID string, changes []market.PriceChange) {
	if len(changes) == 0 {
		return
	}
	evt := PriceEvent{Changes: changes, Timestamp: time.Now().UTC()}

	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, sub := range s.subs {
		if sub.sessionID != sessionID {
			continue
		}
		select {
		case sub.ch <- evt:
		default:
			// Drop when subscriber is slow to avoid blocking.
		}
	}
}

// Subscribers reports the number of active subscriptions.
func (s *Stream) Subscribers() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.subs)
}
