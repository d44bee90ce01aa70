package main

import (
	"errors"
	"fmt"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/danpilch/devmon/pkg/collectors"
	"github.com/danpilch/devmon/pkg/output"
)

func TestNewLogger(t *testing.T) {
	logger, err := newLogger("debug", "json")
	require.NoError(t, err)
	assert.Equal(t, logrus.DebugLevel, logger.GetLevel())
	assert.IsType(t, &logrus.JSONFormatter{}, logger.Formatter)

	logger, err = newLogger("warn", "")
	require.NoError(t, err)
	assert.IsType(t, &logrus.TextFormatter{}, logger.Formatter)

	_, err = newLogger("loud", "text")
	assert.Error(t, err)

	_, err = newLogger("info", "xml")
	assert.Error(t, err)
}

func TestExitErrorUnwraps(t *testing.T) {
	err := fmt.Errorf("run: %w", exitError{code: 2})

	var exit exitError
	require.True(t, errors.As(err, &exit))
	assert.Equal(t, 2, exit.code)
	assert.Equal(t, "exit status 2", exit.Error())
}

func TestRootHasSubcommands(t *testing.T) {
	cmd := newRootCmd()
	for _, name := range []string{"run", "watch", "bench", "crosscheck"} {
		sub, _, err := cmd.Find([]string{name})
		require.NoError(t, err, name)
		assert.Equal(t, name, sub.Name())
	}
}

func TestLoadSourceMissingKind(t *testing.T) {
	r := collectors.NewRegistry()
	assert.Nil(t, loadSource(r, collectors.KindGPU))
}

func TestWatchModelKeys(t *testing.T) {
	p := output.NewPresenter(output.PresenterConfig{
		Enabled: []output.MonitorType{output.Memory},
	})
	m := &watchModel{presenter: p}

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'g'}})
	assert.Nil(t, cmd)
	assert.True(t, p.Enabled(output.GPU))

	m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'h'}})
	assert.False(t, p.Enabled(output.GPU))
	assert.False(t, p.Enabled(output.Memory))
	assert.Contains(t, m.View(), "all monitors hidden")

	_, cmd = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'q'}})
	require.NotNil(t, cmd)
	assert.Equal(t, tea.Quit(), cmd())
}
