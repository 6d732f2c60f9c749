// Package throughput buckets expanded token-rate samples and finds the
// busiest bucket.
package throughput

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/pario-ai/flowstat/pkg/models"
	"github.com/pario-ai/flowstat/pkg/timeline"
)

// ErrDegenerateInput is returned when there are no samples to find a peak in.
var ErrDegenerateInput = errors.New("degenerate input: no flows remain after filtering")

// Aggregator sums samples into buckets of a reporting granularity.
type Aggregator interface {
	// Add folds one sample into its bucket.
	Add(s models.Sample) error
	// Buckets returns every non-empty bucket ordered by start ascending.
	Buckets(ctx context.Context) ([]models.Bucket, error)
	// Close releases resources.
	Close() error
}

// MemoryAggregator implements Aggregator with an in-process map.
type MemoryAggregator struct {
	granularity timeline.Granularity
	totals      map[int64]float64
}

// NewMemory creates a MemoryAggregator bucketing by g.
func NewMemory(g timeline.Granularity) *MemoryAggregator {
	return &MemoryAggregator{granularity: g, totals: make(map[int64]float64)}
}

// Add folds s into the bucket containing s.At.
func (m *MemoryAggregator) Add(s models.Sample) error {
	m.totals[timeline.Floor(s.At, m.granularity).Unix()] += s.Rate
	return nil
}

// Buckets returns the accumulated buckets ordered by start.
func (m *MemoryAggregator) Buckets(_ context.Context) ([]models.Bucket, error) {
	keys := make([]int64, 0, len(m.totals))
	for k := range m.totals {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })

	buckets := make([]models.Bucket, len(keys))
	for i, k := range keys {
		buckets[i] = models.Bucket{Start: time.Unix(k, 0).UTC(), Tokens: m.totals[k]}
	}
	return buckets, nil
}

// Close is a no-op.
func (m *MemoryAggregator) Close() error { return nil }

// Peak returns the bucket with the largest total. buckets must be ordered by
// start; on exact ties the earliest bucket wins.
func Peak(buckets []models.Bucket) (models.Bucket, error) {
	if len(buckets) == 0 {
		return models.Bucket{}, ErrDegenerateInput
	}
	best := buckets[0]
	for _, b := range buckets[1:] {
		if b.Tokens > best.Tokens {
			best = b
		}
	}
	return best, nil
}

// Top returns up to n buckets with the largest totals, largest first. Ties
// keep the earlier bucket first.
func Top(buckets []models.Bucket, n int) []models.Bucket {
	if n <= 0 {
		return nil
	}
	ranked := make([]models.Bucket, len(buckets))
	copy(ranked, buckets)
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].Tokens != ranked[j].Tokens {
			return ranked[i].Tokens > ranked[j].Tokens
		}
		return ranked[i].Start.Before(ranked[j].Start)
	})
	if len(ranked) > n {
		ranked = ranked[:n]
	}
	return ranked
}

// Collect expands flows with x and folds every sample into agg, returning the
// resulting buckets.
func Collect(ctx context.Context, agg Aggregator, x *timeline.Expander, flows []models.RoundedFlow) ([]models.Bucket, error) {
	var addErr error
	for _, f := range flows {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		x.Each([]models.RoundedFlow{f}, func(s models.Sample) {
			if addErr == nil {
				addErr = agg.Add(s)
			}
		})
		if addErr != nil {
			return nil, addErr
		}
	}
	return agg.Buckets(ctx)
}
