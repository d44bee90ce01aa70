// Package config loads devmon settings.
//
// Values are layered: built-in defaults, then an optional YAML file, then
// DEVMON_* environment variables (a .env file in the working directory is
// loaded first). Command line flags are applied last by the caller.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "DEVMON_"

// Known device names.
const (
	DeviceCPU    = "cpu"
	DeviceGPU    = "gpu"
	DeviceMemory = "memory"
)

// CPU backend names.
const (
	CPUBackendAuto     = "auto"
	CPUBackendProcStat = "procstat"
	CPUBackendPortable = "portable"
)

// Config is the complete devmon configuration.
type Config struct {
	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`

	// Interval is the sampling cadence of the run loop.
	Interval time.Duration `yaml:"interval"`

	// History is the number of samples each monitor keeps.
	History int `yaml:"history"`

	// Devices lists the counters to build, in report order.
	Devices []string `yaml:"devices"`

	CPU   CPUConfig   `yaml:"cpu"`
	GPU   GPUConfig   `yaml:"gpu"`
	Watch WatchConfig `yaml:"watch"`
}

// CPUConfig configures the CPU counter.
type CPUConfig struct {
	// Backend is auto, procstat or portable.
	Backend  string `yaml:"backend"`
	StatPath string `yaml:"stat_path"`
}

// GPUConfig configures the GPU counter.
type GPUConfig struct {
	// Vendor restricts adapters: intel, amd, nvidia, a hex PCI id, or empty.
	Vendor string `yaml:"vendor"`

	// SubUnits fixes the adapter count. Zero enumerates adapters.
	SubUnits int `yaml:"sub_units"`

	MinInterval time.Duration `yaml:"min_interval"`

	// SysfsRoot overrides /sys for the DRM source.
	SysfsRoot string `yaml:"sysfs_root"`
}

// WatchConfig configures the interactive view.
type WatchConfig struct {
	// Keys are the monitors enabled at start (c, d, m, g or h).
	Keys string `yaml:"keys"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		LogLevel:  "warn",
		LogFormat: "text",
		Interval:  time.Second,
		History:   60,
		Devices:   []string{DeviceCPU, DeviceGPU, DeviceMemory},
		CPU: CPUConfig{
			Backend: CPUBackendAuto,
		},
		GPU: GPUConfig{
			MinInterval: 500 * time.Millisecond,
		},
		Watch: WatchConfig{
			Keys: "cdmg",
		},
	}
}

// Load builds the configuration from defaults, the YAML file at path (or
// $DEVMON_CONFIG when path is empty) and the environment.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	cfg := Default()
	if path == "" {
		path = os.Getenv(EnvPrefix + "CONFIG")
	}
	if path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}
	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	get := func(key string) (string, bool) {
		v, ok := lookup(EnvPrefix + key)
		if !ok || strings.TrimSpace(v) == "" {
			return "", false
		}
		return strings.TrimSpace(v), true
	}

	if v, ok := get("LOG_LEVEL"); ok {
		c.LogLevel = v
	}
	if v, ok := get("LOG_FORMAT"); ok {
		c.LogFormat = v
	}
	if v, ok := get("INTERVAL"); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%sINTERVAL: %w", EnvPrefix, err)
		}
		c.Interval = d
	}
	if v, ok := get("HISTORY"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%sHISTORY: %w", EnvPrefix, err)
		}
		c.History = n
	}
	if v, ok := get("DEVICES"); ok {
		c.Devices = SplitList(v)
	}
	if v, ok := get("CPU_BACKEND"); ok {
		c.CPU.Backend = v
	}
	if v, ok := get("STAT_PATH"); ok {
		c.CPU.StatPath = v
	}
	if v, ok := get("GPU_VENDOR"); ok {
		c.GPU.Vendor = v
	}
	if v, ok := get("GPU_SUB_UNITS"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%sGPU_SUB_UNITS: %w", EnvPrefix, err)
		}
		c.GPU.SubUnits = n
	}
	if v, ok := get("KEYS"); ok {
		c.Watch.Keys = v
	}
	return nil
}

// Validate rejects values no component can run with.
func (c *Config) Validate() error {
	var errs []error
	if c.Interval <= 0 {
		errs = append(errs, fmt.Errorf("interval must be positive, got %s", c.Interval))
	}
	if c.History < 0 {
		errs = append(errs, fmt.Errorf("history must not be negative, got %d", c.History))
	}
	if c.GPU.SubUnits < 0 {
		errs = append(errs, fmt.Errorf("gpu sub_units must not be negative, got %d", c.GPU.SubUnits))
	}
	switch c.LogFormat {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("unknown log format %q", c.LogFormat))
	}
	switch c.CPU.Backend {
	case CPUBackendAuto, CPUBackendProcStat, CPUBackendPortable:
	default:
		errs = append(errs, fmt.Errorf("unknown cpu backend %q", c.CPU.Backend))
	}
	if len(c.Devices) == 0 {
		errs = append(errs, errors.New("no devices configured"))
	}
	for _, d := range c.Devices {
		switch d {
		case DeviceCPU, DeviceGPU, DeviceMemory:
		default:
			errs = append(errs, fmt.Errorf("unknown device %q", d))
		}
	}
	return errors.Join(errs...)
}

// SplitList splits a comma separated list, dropping blanks and lowercasing.
func SplitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.ToLower(strings.TrimSpace(part)); p != "" {
			out = append(out, p)
		}
	}
	return out
}
