// Package pipeline wires loading, pricing, rounding, expansion and
// aggregation into the flow analytics run.
package pipeline

import (
	"context"
	"fmt"

	"github.com/cockroachdb/apd/v3"
	log "github.com/sirupsen/logrus"

	"github.com/pario-ai/flowstat/pkg/config"
	"github.com/pario-ai/flowstat/pkg/cost"
	"github.com/pario-ai/flowstat/pkg/ingest"
	"github.com/pario-ai/flowstat/pkg/models"
	"github.com/pario-ai/flowstat/pkg/normalize"
	"github.com/pario-ai/flowstat/pkg/throughput"
	"github.com/pario-ai/flowstat/pkg/timeline"
)

// Options are the resolved settings of one run.
type Options struct {
	Pricing           models.Pricing
	Percentile        float64
	Granularity       timeline.Granularity
	ReportGranularity timeline.Granularity
	Endpoint          timeline.Endpoint
	Engine            string
	Drop              timeline.DropPolicy
	Workers           int
}

// OptionsFromConfig resolves the enumerated fields of cfg.
func OptionsFromConfig(cfg *config.Config) (Options, error) {
	if err := cfg.Validate(); err != nil {
		return Options{}, err
	}
	g, err := timeline.ParseGranularity(cfg.Granularity)
	if err != nil {
		return Options{}, fmt.Errorf("granularity: %w", err)
	}
	rg, err := timeline.ParseGranularity(cfg.ReportGranularity)
	if err != nil {
		return Options{}, fmt.Errorf("report granularity: %w", err)
	}
	ep, err := timeline.ParseEndpoint(cfg.Endpoint)
	if err != nil {
		return Options{}, fmt.Errorf("endpoint: %w", err)
	}
	return Options{
		Pricing:           cfg.Pricing,
		Percentile:        cfg.Percentile,
		Granularity:       g,
		ReportGranularity: rg,
		Endpoint:          ep,
		Engine:            cfg.Engine,
		Drop:              timeline.DropPolicy{RequireCategorical: cfg.RequireCategorical},
		Workers:           cfg.Workers,
	}, nil
}

// CostSummary is the cost side output.
type CostSummary struct {
	Percentiles []models.TypePercentile
	Total       *apd.Decimal
}

// ThroughputSummary is the peak-throughput output.
type ThroughputSummary struct {
	Kept    int
	Dropped int
	Samples int64
	Buckets []models.Bucket
	Peak    models.Bucket
}

// Result holds both outputs of a run.
type Result struct {
	Records    int
	Cost       CostSummary
	Throughput ThroughputSummary
}

// Pipeline runs the analytics stages with fixed options.
type Pipeline struct {
	opts      Options
	estimator *cost.Estimator
}

// New creates a Pipeline.
func New(opts Options) *Pipeline {
	return &Pipeline{opts: opts, estimator: cost.New(opts.Pricing, opts.Workers)}
}

// Options returns the settings the pipeline was built with.
func (p *Pipeline) Options() Options {
	return p.opts
}

// Load reads and normalizes the CSV at path.
func Load(path string) ([]models.FlowRecord, error) {
	rows, header, err := ingest.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if err := normalize.CheckHeader(header); err != nil {
		return nil, err
	}
	records, err := normalize.Normalize(rows)
	if err != nil {
		return nil, err
	}
	log.WithFields(log.Fields{"path": path, "records": len(records)}).Debug("loaded flows")
	return records, nil
}

// Costs prices every record in place and summarizes cost per flow type. It
// runs before the incomplete-records filter, so records with null timestamps
// are included.
func (p *Pipeline) Costs(ctx context.Context, records []models.FlowRecord) (CostSummary, error) {
	p.estimator.Apply(records)
	pct, err := p.estimator.PercentileByType(ctx, records, p.opts.Percentile)
	if err != nil {
		return CostSummary{}, fmt.Errorf("cost percentile: %w", err)
	}
	total, err := p.estimator.Total(records)
	if err != nil {
		return CostSummary{}, fmt.Errorf("total cost: %w", err)
	}
	log.WithFields(log.Fields{"types": len(pct), "records": len(records)}).Debug("priced flows")
	return CostSummary{Percentiles: pct, Total: total}, nil
}

// Throughput rounds, filters, expands and aggregates records and returns the
// peak bucket. It returns throughput.ErrDegenerateInput, wrapped, when no
// flow survives filtering; the summary is still filled in that case.
func (p *Pipeline) Throughput(ctx context.Context, records []models.FlowRecord) (ThroughputSummary, error) {
	flows, dropped := timeline.RoundFlows(records, p.opts.Granularity, p.opts.Drop)
	if dropped > 0 {
		log.WithFields(log.Fields{"dropped": dropped, "kept": len(flows)}).Debug("dropped incomplete records")
	}
	summary := ThroughputSummary{Kept: len(flows), Dropped: dropped}

	x := timeline.NewExpander(p.opts.Granularity, p.opts.Endpoint)
	for _, f := range flows {
		summary.Samples += x.SampleCount(f)
	}

	agg, err := p.newAggregator()
	if err != nil {
		return summary, err
	}
	defer func() { _ = agg.Close() }()

	buckets, err := throughput.Collect(ctx, agg, x, flows)
	if err != nil {
		return summary, fmt.Errorf("aggregate throughput: %w", err)
	}
	summary.Buckets = buckets
	log.WithFields(log.Fields{
		"flows":   len(flows),
		"samples": summary.Samples,
		"buckets": len(buckets),
		"engine":  p.opts.Engine,
	}).Debug("expanded timeline")

	peak, err := throughput.Peak(buckets)
	if err != nil {
		return summary, fmt.Errorf("peak throughput: %w", err)
	}
	summary.Peak = peak
	return summary, nil
}

// Run executes both stages over records. On a degenerate throughput result
// the returned Result still carries the cost summary.
func (p *Pipeline) Run(ctx context.Context, records []models.FlowRecord) (*Result, error) {
	res := &Result{Records: len(records)}

	costs, err := p.Costs(ctx, records)
	if err != nil {
		return nil, err
	}
	res.Cost = costs

	tp, err := p.Throughput(ctx, records)
	res.Throughput = tp
	if err != nil {
		return res, err
	}
	return res, nil
}

func (p *Pipeline) newAggregator() (throughput.Aggregator, error) {
	switch p.opts.Engine {
	case config.EngineSQLite:
		return throughput.NewSQLite(p.opts.ReportGranularity)
	case config.EngineMemory, "":
		return throughput.NewMemory(p.opts.ReportGranularity), nil
	default:
		return nil, fmt.Errorf("unknown engine %q", p.opts.Engine)
	}
}
