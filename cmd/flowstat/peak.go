package main

import (
	"github.com/spf13/cobra"

	"github.com/pario-ai/flowstat/pkg/report"
)

func newPeakCmd(g *globalFlags) *cobra.Command {
	var verbose bool

	cmd := &cobra.Command{
		Use:   "peak <input_csv>",
		Short: "Show the bucket with the highest token throughput",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := g.start(args[0])
			if err != nil {
				return err
			}
			defer s.close()

			tp, err := s.pipe.Throughput(s.ctx, s.records)
			out := cmd.OutOrStdout()
			if verbose {
				write(out, report.FormatRunSummary(len(s.records), tp.Kept, tp.Dropped, tp.Samples))
			}
			if err != nil {
				return err
			}
			write(out, report.FormatPeak(tp.Peak, unitName(s.pipe.Options())))
			return nil
		},
	}

	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "print record and sample counts")
	return cmd
}
