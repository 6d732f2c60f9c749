package main

import (
	"github.com/spf13/cobra"

	"github.com/pario-ai/flowstat/pkg/report"
	"github.com/pario-ai/flowstat/pkg/throughput"
)

func newTimelineCmd(g *globalFlags) *cobra.Command {
	var (
		top    int
		chart  bool
		width  int
		height int
	)

	cmd := &cobra.Command{
		Use:   "timeline <input_csv>",
		Short: "Show per-bucket token totals",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := g.start(args[0])
			if err != nil {
				return err
			}
			defer s.close()

			tp, err := s.pipe.Throughput(s.ctx, s.records)
			if err != nil {
				return err
			}

			n := top
			if n <= 0 {
				n = len(tp.Buckets)
			}
			out := cmd.OutOrStdout()
			write(out, report.FormatBuckets(throughput.Top(tp.Buckets, n)))
			if chart {
				step := s.pipe.Options().ReportGranularity.Duration()
				write(out, "\n")
				write(out, report.RenderChart(tp.Buckets, step, width, height))
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&top, "top", 10, "number of busiest buckets to list (0 for all)")
	cmd.Flags().BoolVar(&chart, "chart", false, "render an ASCII chart of all buckets")
	cmd.Flags().IntVar(&width, "width", 72, "chart width")
	cmd.Flags().IntVar(&height, "height", 12, "chart height")
	return cmd
}
