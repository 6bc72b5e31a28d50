package market

import (
	"math/rand"
	"sort"
	"time"
)

// Backfill parameters. Each point's random target blends with the previous
// point so the series looks like a walk, not independent noise.
const (
	backfillMaxDeviation = 0.03 // ±3% of base price
	backfillSmoothing    = 0.7
)

// Backfill generates a plausible historical series ending at "now" without
// real data: points are spaced interval apart going backward, each one an
// exponentially smoothed blend of a random target around base. Deterministic
// for a fixed rng.
func Backfill(rng *rand.Rand, base float64, points int, interval time.Duration, now time.Time) []PricePoint {
	if points <= 0 || base <= 0 {
		return nil
	}

	out := make([]PricePoint, 0, points)
	prev := base
	for i := 0; i < points; i++ {
		// Random target within ±3% of base, blended with the previous point.
		target := base * (1 + (rng.Float64()*2-1)*backfillMaxDeviation)
		smoothed := prev*(1-backfillSmoothing) + target*backfillSmoothing
		smoothed = round2(smoothed)
		if smoothed < MinPrice {
			smoothed = MinPrice
		}
		ts := now.Add(-time.Duration(points-1-i) * interval)
		out = append(out, PricePoint{Timestamp: ts, Price: smoothed})
		prev = smoothed
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp.Before(out[j].Timestamp) })
	return out
}
