package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var g globalFlags

	root := &cobra.Command{
		Use:           "flowstat",
		Short:         "flowstat: cost percentiles and peak token throughput for LLM flows",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVarP(&g.configPath, "config", "c", "", "path to flowstat config file")
	root.PersistentFlags().StringVar(&g.granularity, "granularity", "", "rounding and expansion unit (second|minute)")
	root.PersistentFlags().StringVar(&g.endpoint, "endpoint", "", "timeline endpoint mode (exclusive|inclusive)")
	root.PersistentFlags().StringVar(&g.engine, "engine", "", "aggregation engine (memory|sqlite)")

	root.AddCommand(
		newAnalyzeCmd(&g),
		newCostCmd(&g),
		newPeakCmd(&g),
		newTimelineCmd(&g),
	)
	return root
}
