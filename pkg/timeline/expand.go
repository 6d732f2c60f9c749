package timeline

import (
	"time"

	"github.com/pario-ai/flowstat/pkg/models"
)

// UnitsBetween returns the whole number of g units from a to b. Negative when
// b precedes a.
func UnitsBetween(a, b time.Time, g Granularity) int64 {
	return int64(b.Sub(a) / g.Duration())
}

// DurationUnits returns the unit count a flow's tokens are spread over,
// floored at 1 so zero-length and reversed flows still carry their tokens.
func DurationUnits(f models.RoundedFlow, g Granularity) int64 {
	return max(1, UnitsBetween(f.CreatedAt, f.FinishedAt, g))
}

// Rate returns the tokens attributed to each unit of the flow.
func Rate(f models.RoundedFlow, g Granularity) float64 {
	return (float64(f.TokensIn) + float64(f.TokensOut)) / float64(DurationUnits(f, g))
}

// Expander turns rounded flows into token-rate samples.
type Expander struct {
	Granularity Granularity
	Endpoint    Endpoint
}

// NewExpander returns an Expander for the given unit and endpoint mode.
func NewExpander(g Granularity, e Endpoint) *Expander {
	return &Expander{Granularity: g, Endpoint: e}
}

// Each calls fn for every sample of every flow, in flow order and then time
// order, without materializing the timeline.
func (x *Expander) Each(flows []models.RoundedFlow, fn func(models.Sample)) {
	for _, f := range flows {
		x.expandFlow(f, fn)
	}
}

// Expand returns the full timeline of all flows.
func (x *Expander) Expand(flows []models.RoundedFlow) []models.Sample {
	var n int64
	for _, f := range flows {
		n += x.SampleCount(f)
	}
	samples := make([]models.Sample, 0, n)
	x.Each(flows, func(s models.Sample) {
		samples = append(samples, s)
	})
	return samples
}

// SampleCount returns how many samples f expands into.
func (x *Expander) SampleCount(f models.RoundedFlow) int64 {
	if x.Endpoint == Inclusive {
		n := UnitsBetween(f.CreatedAt, f.FinishedAt, x.Granularity)
		if n < 0 {
			return 0
		}
		return n + 1
	}
	return DurationUnits(f, x.Granularity)
}

func (x *Expander) expandFlow(f models.RoundedFlow, fn func(models.Sample)) {
	unit := x.Granularity.Duration()
	rate := Rate(f, x.Granularity)
	n := x.SampleCount(f)
	for i := int64(0); i < n; i++ {
		fn(models.Sample{At: f.CreatedAt.Add(time.Duration(i) * unit), Rate: rate})
	}
}
