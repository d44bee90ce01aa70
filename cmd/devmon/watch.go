package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/danpilch/devmon/pkg/clock"
	"github.com/danpilch/devmon/pkg/collectors"
	"github.com/danpilch/devmon/pkg/devices"
	"github.com/danpilch/devmon/pkg/monitor"
	"github.com/danpilch/devmon/pkg/output"
)

func newWatchCmd(a *app) *cobra.Command {
	var keys string

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Interactive view with togglable monitors",
		Long: `Interactive view of device load.

Keys toggle the monitors while running:
  c  per-core CPU mean load
  d  mean load over all cores
  m  memory and swap usage
  g  per-adapter GPU load
  h  hide every monitor, or show all when none is visible
  q  quit and print the mean usage of the visible monitors`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("keys") {
				keys = a.cfg.Watch.Keys
			}
			enabled, err := output.ParseKeys(keys)
			if err != nil {
				return err
			}
			return runWatch(a, enabled)
		},
	}
	cmd.Flags().StringVarP(&keys, "keys", "k", "", "monitors shown at start, e.g. cdmg (h starts hidden)")
	return cmd
}

func runWatch(a *app, enabled []output.MonitorType) error {
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

	presenter := output.NewPresenter(output.PresenterConfig{
		CPU:         loadSource(registry, collectors.KindCPU),
		Memory:      loadSource(registry, collectors.KindMemory),
		GPU:         loadSource(registry, collectors.KindGPU),
		Enabled:     enabled,
		HistorySize: a.cfg.History,
		Clock:       clk,
		Logger:      a.logger,
	})

	prog := tea.NewProgram(&watchModel{presenter: presenter}, tea.WithAltScreen())
	if _, err := prog.Run(); err != nil {
		return err
	}

	if lines := presenter.ReportMeans(); lines != nil {
		fmt.Fprintln(os.Stdout, strings.Join(lines, "\n"))
	}
	return nil
}

// loadSource returns the registered counter of kind, or nil when the device
// was not configured.
func loadSource(r *collectors.Registry, kind collectors.Kind) monitor.LoadSource {
	c := r.GetByKind(kind)
	if c == nil {
		return nil
	}
	return c
}

type tickMsg struct{}

func tickCmd() tea.Cmd {
	return tea.Tick(time.Second/5, func(time.Time) tea.Msg { return tickMsg{} })
}

// watchModel drives the presenter from the bubbletea event loop.
type watchModel struct {
	presenter *output.Presenter
}

func (m *watchModel) Init() tea.Cmd {
	m.presenter.Collect()
	return tickCmd()
}

func (m *watchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		}
		if msg.Type == tea.KeyRunes && len(msg.Runes) == 1 {
			m.presenter.HandleKey(msg.Runes[0])
		}
	case tickMsg:
		m.presenter.Collect()
		return m, tickCmd()
	}
	return m, nil
}

func (m *watchModel) View() string {
	return m.presenter.View()
}
