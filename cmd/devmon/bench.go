package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/danpilch/devmon/pkg/benchmark"
	"github.com/danpilch/devmon/pkg/clock"
	"github.com/danpilch/devmon/pkg/devices"
)

func newBenchCmd(a *app) *cobra.Command {
	opts := benchmark.DefaultOptions()

	cmd := &cobra.Command{
		Use:   "bench",
		Short: "Measure sampling latency of each configured counter",
		RunE: func(cmd *cobra.Command, args []string) error {
			clk := clock.Real()
			registry, err := devices.Build(a.cfg, clk, a.logger)
			if err != nil {
				return err
			}
			defer func() {
				if err := registry.Close(); err != nil {
					a.logger.WithError(err).Warn("Releasing counters failed")
				}
			}()

			var sources []benchmark.Source
			for _, c := range registry.Counters() {
				sources = append(sources, c)
			}
			opts.Clock = clk

			a.logger.WithField("iterations", opts.Iterations).Info("Benchmarking counters")
			results := benchmark.Run(sources, opts)
			benchmark.RenderResults(os.Stdout, results, benchmark.MeasureOverhead())
			return nil
		},
	}
	cmd.Flags().IntVar(&opts.Iterations, "iterations", opts.Iterations, "timed samples per counter")
	cmd.Flags().IntVar(&opts.Warmup, "warmup", opts.Warmup, "untimed samples taken first")
	return cmd
}
