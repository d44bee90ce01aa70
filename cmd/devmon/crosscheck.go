package main

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/danpilch/devmon/pkg/clock"
	"github.com/danpilch/devmon/pkg/crosscheck"
)

func newCrosscheckCmd(a *app) *cobra.Command {
	var (
		samples  int
		interval time.Duration
		format   string
	)

	cmd := &cobra.Command{
		Use:   "crosscheck",
		Short: "Compare CPU and memory readings across backends",
		RunE: func(cmd *cobra.Command, args []string) error {
			if format != "table" && format != "json" {
				return fmt.Errorf("unknown format %q (want table or json)", format)
			}

			groups := crosscheck.DefaultGroups(clock.Real(), a.logger)
			defer func() {
				for _, g := range groups {
					for _, c := range g.Candidates {
						closer, ok := c.Source.(io.Closer)
						if !ok {
							continue
						}
						if err := closer.Close(); err != nil {
							a.logger.WithError(err).WithField("source", c.Name).Debug("Close failed")
						}
					}
				}
			}()

			validations, sanity := crosscheck.Run(groups, crosscheck.Options{
				Samples:  samples,
				Interval: interval,
				Logger:   a.logger,
			})
			if format == "json" {
				return crosscheck.ReportJSON(os.Stdout, hostLabel(), validations, sanity)
			}
			crosscheck.Report(os.Stdout, hostLabel(), validations, sanity)
			return nil
		},
	}
	cmd.Flags().IntVar(&samples, "samples", 5, "samples per backend")
	cmd.Flags().DurationVar(&interval, "interval", time.Second, "time between samples")
	cmd.Flags().StringVarP(&format, "format", "f", "table", "output format: table or json")
	return cmd
}
