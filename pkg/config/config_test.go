package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "devmon.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestDefaultIsValid(t *testing.T) {
	require.NoError(t, Default().Validate())
}

func TestLoadFileOverlaysDefaults(t *testing.T) {
	path := writeConfig(t, `
interval: 250ms
history: 10
devices: [cpu]
gpu:
  vendor: nvidia
  min_interval: 1s
`)
	cfg := Default()
	require.NoError(t, cfg.loadFile(path))

	assert.Equal(t, 250*time.Millisecond, cfg.Interval)
	assert.Equal(t, 10, cfg.History)
	assert.Equal(t, []string{DeviceCPU}, cfg.Devices)
	assert.Equal(t, "nvidia", cfg.GPU.Vendor)
	assert.Equal(t, time.Second, cfg.GPU.MinInterval)
	// untouched keys keep their defaults
	assert.Equal(t, "warn", cfg.LogLevel)
	assert.Equal(t, "cdmg", cfg.Watch.Keys)
}

func TestLoadFileErrors(t *testing.T) {
	cfg := Default()
	assert.Error(t, cfg.loadFile(filepath.Join(t.TempDir(), "missing.yaml")))
	assert.Error(t, cfg.loadFile(writeConfig(t, "history: [not, a, number]\n")))
}

func TestApplyEnv(t *testing.T) {
	env := map[string]string{
		"DEVMON_LOG_LEVEL":     "debug",
		"DEVMON_INTERVAL":      "2s",
		"DEVMON_HISTORY":       "5",
		"DEVMON_DEVICES":       " CPU, memory ,",
		"DEVMON_GPU_VENDOR":    "0x8086",
		"DEVMON_GPU_SUB_UNITS": "2",
		"DEVMON_KEYS":          "h",
		"DEVMON_CPU_BACKEND":   "   ",
	}
	lookup := func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	}

	cfg := Default()
	require.NoError(t, cfg.applyEnv(lookup))
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, 2*time.Second, cfg.Interval)
	assert.Equal(t, 5, cfg.History)
	assert.Equal(t, []string{DeviceCPU, DeviceMemory}, cfg.Devices)
	assert.Equal(t, "0x8086", cfg.GPU.Vendor)
	assert.Equal(t, 2, cfg.GPU.SubUnits)
	assert.Equal(t, "h", cfg.Watch.Keys)
	assert.Equal(t, CPUBackendAuto, cfg.CPU.Backend, "blank values are ignored")
}

func TestApplyEnvRejectsBadNumbers(t *testing.T) {
	for _, key := range []string{"DEVMON_INTERVAL", "DEVMON_HISTORY", "DEVMON_GPU_SUB_UNITS"} {
		t.Run(key, func(t *testing.T) {
			lookup := func(k string) (string, bool) {
				if k == key {
					return "soon", true
				}
				return "", false
			}
			assert.Error(t, Default().applyEnv(lookup))
		})
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
	}{
		{"zero interval", func(c *Config) { c.Interval = 0 }},
		{"negative history", func(c *Config) { c.History = -1 }},
		{"negative gpu sub units", func(c *Config) { c.GPU.SubUnits = -3 }},
		{"unknown log format", func(c *Config) { c.LogFormat = "xml" }},
		{"unknown cpu backend", func(c *Config) { c.CPU.Backend = "perf" }},
		{"no devices", func(c *Config) { c.Devices = nil }},
		{"unknown device", func(c *Config) { c.Devices = []string{"cpu", "npu"} }},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			cfg := Default()
			test.modify(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, "history: 3\n")
	t.Setenv("DEVMON_HISTORY", "7")
	t.Setenv("DEVMON_LOG_FORMAT", "json")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 7, cfg.History, "environment wins over the file")
	assert.Equal(t, "json", cfg.LogFormat)
}

func TestLoadFromEnvPath(t *testing.T) {
	t.Setenv("DEVMON_CONFIG", writeConfig(t, "devices: [gpu]\n"))

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, []string{DeviceGPU}, cfg.Devices)
}

func TestSplitList(t *testing.T) {
	assert.Equal(t, []string{"a", "b"}, SplitList("A, ,b,"))
	assert.Nil(t, SplitList(""))
}
