package market

import (
	"math"
	"math/rand"
	"testing"
	"time"
)

func TestBackfillSeries(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	rng := rand.New(rand.NewSource(42))

	points := Backfill(rng, 100.00, 5, 15*time.Second, now)
	if len(points) != 5 {
		t.Fatalf("expected 5 points, got %d", len(points))
	}
	for i, p := range points {
		if p.Price < MinPrice {
			t.Fatalf("point %d below minimum: %v", i, p.Price)
		}
		// Every point stays near base: the smoothed blend of targets within
		// ±3% cannot stray past the raw target band.
		if p.Price < 97.0 || p.Price > 103.0 {
			t.Fatalf("point %d outside plausible band: %v", i, p.Price)
		}
		if math.Round(p.Price*100)/100 != p.Price {
			t.Fatalf("point %d not rounded to cents: %v", i, p.Price)
		}
		if i > 0 && !points[i-1].Timestamp.Before(p.Timestamp) {
			t.Fatalf("timestamps not strictly ascending at %d", i)
		}
	}
	if !points[len(points)-1].Timestamp.Equal(now) {
		t.Fatalf("last point should land on now, got %v", points[len(points)-1].Timestamp)
	}
	if got := now.Sub(points[0].Timestamp); got != 4*15*time.Second {
		t.Fatalf("unexpected span: %v", got)
	}
}

func TestBackfillDeterministic(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	a := Backfill(rand.New(rand.NewSource(7)), 50, 10, time.Minute, now)
	b := Backfill(rand.New(rand.NewSource(7)), 50, 10, time.Minute, now)
	if len(a) != len(b) {
		t.Fatalf("length mismatch: %d vs %d", len(a), len(b))
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("point %d differs: %+v vs %+v", i, a[i], b[i])
		}
	}
}

func TestBackfillDegenerateInputs(t *testing.T) {
	now := time.Now()
	rng := rand.New(rand.NewSource(1))
	if pts := Backfill(rng, 100, 0, time.Minute, now); pts != nil {
		t.Fatalf("expected nil for zero points, got %v", pts)
	}
	if pts := Backfill(rng, 0, 5, time.Minute, now); pts != nil {
		t.Fatalf("expected nil for non-positive base, got %v", pts)
	}
}
