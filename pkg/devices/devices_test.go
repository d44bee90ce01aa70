package devices

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/danpilch/devmon/pkg/clock"
	"github.com/danpilch/devmon/pkg/collectors"
	"github.com/danpilch/devmon/pkg/config"
)

func fakeSysfs(t *testing.T, busy string) string {
	t.Helper()
	root := t.TempDir()
	device := filepath.Join(root, "class", "drm", "card0", "device")
	require.NoError(t, os.MkdirAll(device, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(device, "gpu_busy_percent"), []byte(busy), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(device, "vendor"), []byte("0x8086\n"), 0644))
	return root
}

func TestBuildOrderAndKinds(t *testing.T) {
	cfg := config.Default()
	cfg.Devices = []string{config.DeviceMemory, config.DeviceGPU}
	cfg.GPU.SysfsRoot = fakeSysfs(t, "20\n")

	registry, err := Build(cfg, clock.Fake(time.Now()), nil)
	require.NoError(t, err)
	defer registry.Close()

	counters := registry.Counters()
	require.Len(t, counters, 2)
	assert.Equal(t, NameMemory, counters[0].Name())
	assert.Equal(t, collectors.KindMemory, counters[0].Kind())
	assert.Equal(t, 2, counters[0].SubUnits())

	gpuCounter := registry.GetByName(NameGPU)
	require.NotNil(t, gpuCounter)
	assert.Equal(t, collectors.KindGPU, gpuCounter.Kind())
	assert.Equal(t, 1, gpuCounter.SubUnits())
}

func TestBuildGPUCounterSamples(t *testing.T) {
	cfg := config.Default()
	cfg.Devices = []string{config.DeviceGPU}
	cfg.GPU.SysfsRoot = fakeSysfs(t, "45\n")
	clk := clock.Fake(time.Now())

	registry, err := Build(cfg, clk, nil)
	require.NoError(t, err)
	defer registry.Close()

	counter := registry.GetByKind(collectors.KindGPU)
	require.NotNil(t, counter)
	sample, err := counter.Load()
	require.NoError(t, err)
	assert.InDelta(t, 0.45, sample[0], 1e-9)
	assert.Equal(t, []time.Duration{500 * time.Millisecond}, clk.Sleeps())
}

func TestBuildWithoutGPUFallsBackToNull(t *testing.T) {
	cfg := config.Default()
	cfg.Devices = []string{config.DeviceGPU}
	cfg.GPU.SysfsRoot = t.TempDir()

	registry, err := Build(cfg, nil, nil)
	require.NoError(t, err)

	counter := registry.GetByName(NameGPU)
	require.NotNil(t, counter)
	assert.Equal(t, collectors.KindNull, counter.Kind())
	sample, err := counter.Load()
	require.NoError(t, err)
	assert.Empty(t, sample)
}

func TestBuildPortableCPUCounter(t *testing.T) {
	cfg := config.Default()
	cfg.Devices = []string{config.DeviceCPU}
	cfg.CPU.Backend = config.CPUBackendPortable

	registry, err := Build(cfg, nil, nil)
	require.NoError(t, err)
	defer registry.Close()

	counter := registry.GetByName(NameCPU)
	require.NotNil(t, counter)
	assert.Contains(t, []collectors.Kind{collectors.KindCPU, collectors.KindNull}, counter.Kind())
}

func TestBuildErrors(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*config.Config)
	}{
		{"unknown device", func(c *config.Config) { c.Devices = []string{"tpu"} }},
		{"unknown cpu backend", func(c *config.Config) {
			c.Devices = []string{config.DeviceCPU}
			c.CPU.Backend = "perf"
		}},
		{"bad gpu vendor", func(c *config.Config) {
			c.Devices = []string{config.DeviceGPU}
			c.GPU.Vendor = "voodoo"
		}},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			cfg := config.Default()
			test.modify(cfg)
			_, err := Build(cfg, nil, nil)
			assert.Error(t, err)
		})
	}
}
