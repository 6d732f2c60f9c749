// Package report renders analytics results as plain-text tables and charts.
package report

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/cockroachdb/apd/v3"
	"github.com/guptarohit/asciigraph"

	"github.com/pario-ai/flowstat/pkg/models"
)

const timeLayout = "2006-01-02 15:04:05"

// FormatPercentiles formats the per-type cost percentile table.
func FormatPercentiles(rows []models.TypePercentile, q float64, total *apd.Decimal) string {
	if len(rows) == 0 {
		return "No cost data found.\n"
	}
	label := fmt.Sprintf("P%g LLM COST", q*100)
	var b strings.Builder
	fmt.Fprintf(&b, "%-25s %8s %16s\n", "FLOW TYPE", "FLOWS", label)
	b.WriteString(strings.Repeat("-", 51) + "\n")
	for _, r := range rows {
		fmt.Fprintf(&b, "%-25s %8d $%15.6f\n", defaultStr(r.FlowType, "(empty)"), r.Count, r.Cost)
	}
	if total != nil {
		b.WriteString(strings.Repeat("-", 51) + "\n")
		fmt.Fprintf(&b, "%-34s $%15s\n", "TOTAL COST:", total.Text('f'))
	}
	return b.String()
}

// FormatPeak formats the peak-throughput bucket.
func FormatPeak(peak models.Bucket, unit string) string {
	return fmt.Sprintf("Peak %s:  %s\nTokens:       %s\n",
		unit, peak.Start.UTC().Format(timeLayout), formatTokens(peak.Tokens))
}

// FormatBuckets formats a list of buckets as a ranked table.
func FormatBuckets(buckets []models.Bucket) string {
	if len(buckets) == 0 {
		return "No throughput data found.\n"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%4s  %-20s %16s\n", "#", "BUCKET", "TOKENS")
	b.WriteString(strings.Repeat("-", 42) + "\n")
	for i, bk := range buckets {
		fmt.Fprintf(&b, "%4d  %-20s %16s\n", i+1, bk.Start.UTC().Format(timeLayout), formatTokens(bk.Tokens))
	}
	return b.String()
}

// FormatRunSummary formats record counts of a throughput run.
func FormatRunSummary(records, kept, dropped int, samples int64) string {
	return fmt.Sprintf("Records: %d  Kept: %d  Dropped: %d  Samples: %d\n", records, kept, dropped, samples)
}

// pointsPerColumn bounds the chart grid relative to its width.
const pointsPerColumn = 4

// RenderChart plots bucket totals in time order. Gaps between buckets are
// plotted as zero so the x axis stays uniform. Long spans are folded into
// wider steps, shown in the caption.
func RenderChart(buckets []models.Bucket, step time.Duration, width, height int) string {
	if len(buckets) == 0 {
		return "No throughput data found.\n"
	}
	if width < 20 {
		width = 20
	}
	if height < 3 {
		height = 3
	}

	data, eff := Series(buckets, step, width*pointsPerColumn)
	caption := fmt.Sprintf("tokens per %s, %s to %s", eff,
		buckets[0].Start.UTC().Format(timeLayout),
		buckets[len(buckets)-1].Start.UTC().Format(timeLayout))
	return asciigraph.Plot(data,
		asciigraph.Height(height),
		asciigraph.Width(width),
		asciigraph.Caption(caption),
	) + "\n"
}

// Series returns bucket totals on a uniform grid from the first bucket to the
// last, with zero for missing buckets. buckets must be ordered. When the grid
// at step would exceed maxPoints, step is widened to a multiple of itself and
// buckets falling in the same wider step are summed. It returns the data and
// the step actually used. maxPoints below 1 means no limit.
func Series(buckets []models.Bucket, step time.Duration, maxPoints int) ([]float64, time.Duration) {
	if len(buckets) == 0 || step <= 0 {
		return nil, step
	}
	first := buckets[0].Start
	span := buckets[len(buckets)-1].Start.Sub(first)
	n := int64(span/step) + 1
	if maxPoints > 0 && n > int64(maxPoints) {
		factor := (n + int64(maxPoints) - 1) / int64(maxPoints)
		step *= time.Duration(factor)
		n = int64(span/step) + 1
	}
	data := make([]float64, n)
	for _, bk := range buckets {
		data[int64(bk.Start.Sub(first)/step)] += bk.Tokens
	}
	return data, step
}

func formatTokens(v float64) string {
	if math.Abs(v) < 1<<53 && v == math.Trunc(v) {
		return fmt.Sprintf("%d", int64(v))
	}
	return fmt.Sprintf("%.2f", v)
}

func defaultStr(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
