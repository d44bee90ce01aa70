package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/danpilch/devmon/pkg/clock"
	"github.com/danpilch/devmon/pkg/collectors"
	"github.com/danpilch/devmon/pkg/config"
	"github.com/danpilch/devmon/pkg/debug"
	"github.com/danpilch/devmon/pkg/devices"
	"github.com/danpilch/devmon/pkg/monitor"
	"github.com/danpilch/devmon/pkg/output"
)

type runOptions struct {
	count      int
	interval   time.Duration
	history    int
	format     string
	devices    string
	timing     bool
	dumpRaw    bool
	trends     bool
	exitStatus bool
}

func newRunCmd(a *app) *cobra.Command {
	opts := &runOptions{}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Sample devices at a fixed interval and print running means",
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("interval") {
				a.cfg.Interval = opts.interval
			}
			if cmd.Flags().Changed("history") {
				a.cfg.History = opts.history
			}
			if cmd.Flags().Changed("devices") {
				a.cfg.Devices = config.SplitList(opts.devices)
			}
			if err := a.cfg.Validate(); err != nil {
				return err
			}
			return runLoop(cmd.Context(), a, opts)
		},
	}

	flags := cmd.Flags()
	flags.IntVarP(&opts.count, "count", "n", 0, "number of samples to take (0 runs until interrupted)")
	flags.DurationVarP(&opts.interval, "interval", "i", time.Second, "sampling interval")
	flags.IntVar(&opts.history, "history", 60, "samples kept per device")
	flags.StringVarP(&opts.format, "format", "f", "table", "output format: table, json, tsv")
	flags.StringVar(&opts.devices, "devices", "", "comma separated devices: cpu, gpu, memory")
	flags.BoolVar(&opts.timing, "timing", false, "report how long each counter takes to sample")
	flags.BoolVar(&opts.dumpRaw, "dump-raw", false, "dump every retained sample on exit")
	flags.BoolVar(&opts.trends, "trends", true, "show sparkline trends in table output")
	flags.BoolVar(&opts.exitStatus, "exit-status", false, "exit 1 on warning and 2 on critical load")
	return cmd
}

// sampledDevice is one counter with the monitor accumulating its samples.
type sampledDevice struct {
	counter *collectors.Counter
	timed   *debug.TimedSource
	monitor *monitor.DeviceMonitor
	failed  bool
}

func runLoop(ctx context.Context, a *app, opts *runOptions) error {
	format, err := output.ParseFormat(opts.format)
	if err != nil {
		return err
	}

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

	var sampled []*sampledDevice
	for _, c := range registry.Counters() {
		d := &sampledDevice{counter: c}
		var src monitor.LoadSource = c
		if opts.timing {
			d.timed = debug.NewTimedSource(c, c.Name(), clk)
			src = d.timed
		}
		d.monitor = monitor.New(src, a.cfg.History)
		sampled = append(sampled, d)
	}

	formatter := output.NewFormatter(format, os.Stdout)
	formatter.SetHost(hostLabel())
	formatter.SetShowTrends(opts.trends)

	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	ticker := time.NewTicker(a.cfg.Interval)
	defer ticker.Stop()

	var reports []output.DeviceReport
	for i := 0; opts.count == 0 || i < opts.count; i++ {
		if i > 0 {
			select {
			case <-ctx.Done():
				a.logger.Debug("Interrupted, stopping sampling")
				return finish(a, opts, sampled, reports)
			case <-ticker.C:
			}
		}

		collectAll(a.logger, sampled)
		reports = snapshot(sampled)
		if err := formatter.Render(reports); err != nil {
			return err
		}
	}
	return finish(a, opts, sampled, reports)
}

// collectAll polls every device once. A device whose collection fails is
// logged and skipped from then on.
func collectAll(logger *logrus.Logger, sampled []*sampledDevice) {
	for _, d := range sampled {
		if d.failed {
			continue
		}
		if err := d.monitor.CollectData(); err != nil {
			d.failed = true
			logger.WithFields(logrus.Fields{
				"device": d.counter.Name(),
				"error":  err,
			}).Warn("Collection failed, disabling device")
		}
	}
}

func snapshot(sampled []*sampledDevice) []output.DeviceReport {
	reports := make([]output.DeviceReport, 0, len(sampled))
	for _, d := range sampled {
		reports = append(reports, output.NewDeviceReport(d.counter.Kind(), d.monitor, output.DefaultThresholds()))
	}
	return reports
}

func finish(a *app, opts *runOptions, sampled []*sampledDevice, reports []output.DeviceReport) error {
	if opts.dumpRaw {
		for _, d := range sampled {
			debug.DumpHistory(os.Stderr, d.counter.Name(), d.monitor.LastHistory(), d.monitor.MeanDeviceLoad())
		}
	}
	if opts.timing {
		timings := make([]debug.SourceTiming, 0, len(sampled))
		for _, d := range sampled {
			timings = append(timings, d.timed.Timing)
		}
		debug.TimingReport(os.Stderr, timings)
	}
	if opts.exitStatus {
		if code := output.ExitCode(reports); code != 0 {
			return exitError{code: code}
		}
	}
	return nil
}
