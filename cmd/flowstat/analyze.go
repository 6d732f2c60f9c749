package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pario-ai/flowstat/pkg/report"
	"github.com/pario-ai/flowstat/pkg/throughput"
)

func newAnalyzeCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "analyze <input_csv>",
		Short: "Show the cost percentile per flow type and the peak-throughput bucket",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := g.start(args[0])
			if err != nil {
				return err
			}
			defer s.close()

			opts := s.pipe.Options()
			res, err := s.pipe.Run(s.ctx, s.records)
			if res == nil {
				return err
			}

			out := cmd.OutOrStdout()
			write(out, report.FormatPercentiles(res.Cost.Percentiles, opts.Percentile, res.Cost.Total))
			write(out, "\n")
			if errors.Is(err, throughput.ErrDegenerateInput) {
				return fmt.Errorf("no complete flow records to expand: %w", err)
			}
			if err != nil {
				return err
			}
			write(out, report.FormatPeak(res.Throughput.Peak, unitName(opts)))
			return nil
		},
	}
}
