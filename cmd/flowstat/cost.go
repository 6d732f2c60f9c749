package main

import (
	"github.com/spf13/cobra"

	"github.com/pario-ai/flowstat/pkg/report"
)

func newCostCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "cost <input_csv>",
		Short: "Show the cost percentile per flow type and the exact total cost",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := g.start(args[0])
			if err != nil {
				return err
			}
			defer s.close()

			costs, err := s.pipe.Costs(s.ctx, s.records)
			if err != nil {
				return err
			}
			write(cmd.OutOrStdout(), report.FormatPercentiles(costs.Percentiles, s.pipe.Options().Percentile, costs.Total))
			return nil
		},
	}
}
