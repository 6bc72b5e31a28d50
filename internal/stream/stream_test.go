package stream

import (
	"context"
	"testing"
	"time"

	"github.com/tonecapon3/stock-ticker-v2-sub000/internal/market"
)

func TestPublishReachesOwnSessionOnly(t *testing.T) {
	s := New()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	chA := s.Subscribe(ctx, "sess-a")
	chB := s.Subscribe(ctx, "sess-b")
	if s.Subscribers() != 2 {
		t.Fatalf("expected 2 subscribers, got %d", s.Subscribers())
	}

	changes := []market.PriceChange{{Symbol: "BNOX", Price: 190.00}}
	s.Publish("sess-a", changes)

	select {
	case evt := <-chA:
		if len(evt.Changes) != 1 || evt.Changes[0].Symbol != "BNOX" {
			t.Fatalf("unexpected event: %+v", evt)
		}
		if evt.Timestamp.IsZero() {
			t.Fatalf("event missing timestamp")
		}
	case <-time.After(time.Second):
		t.Fatalf("subscriber a never received the event")
	}

	select {
	case evt := <-chB:
		t.Fatalf("subscriber b received a foreign event: %+v", evt)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestPublishEmptyIsNoop(t *testing.T) {
	s := New()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch := s.Subscribe(ctx, "sess-a")
	s.Publish("sess-a", nil)

	select {
	case evt := <-ch:
		t.Fatalf("unexpected event: %+v", evt)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestSubscribeClosesOnContextCancel(t *testing.T) {
	s := New()
	ctx, cancel := context.WithCancel(context.Background())

	ch := s.Subscribe(ctx, "sess-a")
	cancel()

	select {
	case _, ok := <-ch:
		if ok {
			t.Fatalf("expected closed channel after cancel")
		}
	case <-time.After(time.Second):
		t.Fatalf("channel never closed")
	}

	deadline := time.Now().Add(time.Second)
	for s.Subscribers() != 0 {
		if time.Now().After(deadline) {
			t.Fatalf("subscriber never deregistered")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestPublishDropsWhenSubscriberIsSlow(t *testing.T) {
	s := New()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch := s.Subscribe(ctx, "sess-a")
	changes := []market.PriceChange{{Symbol: "BNOX", Price: 1}}

	// Overfill the buffer; Publish must never block.
	done := make(chan struct{})
	go func() {
		for i := 0; i < 100; i++ {
			s.Publish("sess-a", changes)
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("publish blocked on a slow subscriber")
	}

	// The buffered events are still readable.
	select {
	case <-ch:
	case <-time.After(time.Second):
		t.Fatalf("no buffered event delivered")
	}
}
