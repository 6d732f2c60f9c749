// Package cost prices flow records and summarizes cost per flow type.
package cost

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strconv"

	"github.com/cockroachdb/apd/v3"
	"golang.org/x/sync/errgroup"

	"github.com/pario-ai/flowstat/pkg/models"
)

const tokensPerPrice = 1_000_000

// Estimator prices records with a fixed per-token price list.
type Estimator struct {
	pricing models.Pricing
	workers int
}

// New creates an Estimator. workers bounds concurrent group computation;
// values below 1 mean one.
func New(pricing models.Pricing, workers int) *Estimator {
	return &Estimator{pricing: pricing, workers: max(1, workers)}
}

// Cost returns the USD cost of a single record.
func (e *Estimator) Cost(rec models.FlowRecord) float64 {
	return float64(rec.TokensIn)/tokensPerPrice*e.pricing.InputPerMillion +
		float64(rec.TokensOut)/tokensPerPrice*e.pricing.OutputPerMillion
}

// Apply sets LLMCost on every record.
func (e *Estimator) Apply(records []models.FlowRecord) {
	for i := range records {
		records[i].LLMCost = e.Cost(records[i])
	}
}

// PercentileByType groups records by Type and returns the q-th percentile of
// LLMCost within each group, sorted by type. Records with a missing type
// cell belong to no group.
func (e *Estimator) PercentileByType(ctx context.Context, records []models.FlowRecord, q float64) ([]models.TypePercentile, error) {
	groups := make(map[string][]float64)
	for _, r := range records {
		if r.IsMissing("type") {
			continue
		}
		groups[r.Type] = append(groups[r.Type], r.LLMCost)
	}

	types := make([]string, 0, len(groups))
	for t := range groups {
		types = append(types, t)
	}
	sort.Strings(types)

	out := make([]models.TypePercentile, len(types))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workers)
	for i, t := range types {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			costs := groups[t]
			p, err := Percentile(costs, q)
			if err != nil {
				return fmt.Errorf("percentile for type %q: %w", t, err)
			}
			out[i] = models.TypePercentile{FlowType: t, Cost: p, Count: len(costs)}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// Percentile returns the q-th quantile of values using linear interpolation
// between the order statistics around rank q*(n-1). values is not modified.
func Percentile(values []float64, q float64) (float64, error) {
	if len(values) == 0 {
		return 0, fmt.Errorf("percentile of empty set")
	}
	if q < 0 || q > 1 || math.IsNaN(q) {
		return 0, fmt.Errorf("quantile %v outside [0, 1]", q)
	}
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	rank := q * float64(len(sorted)-1)
	lo := int(math.Floor(rank))
	hi := int(math.Ceil(rank))
	if lo == hi {
		return sorted[lo], nil
	}
	frac := rank - float64(lo)
	return sorted[lo] + (sorted[hi]-sorted[lo])*frac, nil
}

// Total returns the exact decimal sum of the records' costs, priced from
// their token counts rather than from the float LLMCost.
func (e *Estimator) Total(records []models.FlowRecord) (*apd.Decimal, error) {
	ctx := apd.BaseContext.WithPrecision(34)
	inPrice, err := decimalFromFloat(e.pricing.InputPerMillion)
	if err != nil {
		return nil, err
	}
	outPrice, err := decimalFromFloat(e.pricing.OutputPerMillion)
	if err != nil {
		return nil, err
	}

	var tokensIn, tokensOut apd.Decimal
	for _, r := range records {
		var in, out apd.Decimal
		in.SetInt64(r.TokensIn)
		out.SetInt64(r.TokensOut)
		if _, err := ctx.Add(&tokensIn, &tokensIn, &in); err != nil {
			return nil, fmt.Errorf("sum tokens: %w", err)
		}
		if _, err := ctx.Add(&tokensOut, &tokensOut, &out); err != nil {
			return nil, fmt.Errorf("sum tokens: %w", err)
		}
	}

	var divisor, inCost, outCost, total apd.Decimal
	divisor.SetInt64(tokensPerPrice)
	if _, err := ctx.Mul(&inCost, &tokensIn, inPrice); err != nil {
		return nil, fmt.Errorf("price input: %w", err)
	}
	if _, err := ctx.Mul(&outCost, &tokensOut, outPrice); err != nil {
		return nil, fmt.Errorf("price output: %w", err)
	}
	if _, err := ctx.Add(&total, &inCost, &outCost); err != nil {
		return nil, fmt.Errorf("sum cost: %w", err)
	}
	if _, err := ctx.Quo(&total, &total, &divisor); err != nil {
		return nil, fmt.Errorf("scale cost: %w", err)
	}
	var reduced apd.Decimal
	reduced.Reduce(&total)
	return &reduced, nil
}

func decimalFromFloat(f float64) (*apd.Decimal, error) {
	d, _, err := apd.NewFromString(strconv.FormatFloat(f, 'f', -1, 64))
	if err != nil {
		return nil, fmt.Errorf("invalid price %v: %w", f, err)
	}
	return d, nil
}
