//go:build linux

package crosscheck

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

func TestSysinfoUsage(t *testing.T) {
	info := unix.Sysinfo_t{Unit: 1024}
	info.Totalram = 1000
	info.Freeram = 200
	info.Bufferram = 50
	info.Totalswap = 400
	info.Freeswap = 300

	ram, swap, err := sysinfoUsage(info)
	require.NoError(t, err)
	assert.InDelta(t, 0.75, ram, 1e-9)
	assert.InDelta(t, 0.25, swap, 1e-9)

	_, _, err = sysinfoUsage(unix.Sysinfo_t{})
	assert.Error(t, err)
}

func TestPlatformMemorySource(t *testing.T) {
	src, err := platformMemorySource()
	if err != nil {
		t.Skipf("sysinfo unavailable: %v", err)
	}
	assert.Equal(t, "sysinfo", src.Name)
	assert.GreaterOrEqual(t, src.Value, 0.0)
	assert.LessOrEqual(t, src.Value, 1.0)

	_, swap, err := sysinfoUsage(mustSysinfo(t))
	require.NoError(t, err)
	assert.InDelta(t, swap, src.Value, 0.05, "value is the swap fraction")
}

func mustSysinfo(t *testing.T) unix.Sysinfo_t {
	t.Helper()
	var info unix.Sysinfo_t
	require.NoError(t, unix.Sysinfo(&info))
	return info
}
