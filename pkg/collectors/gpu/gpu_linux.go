//go:build linux

package gpu

// PlatformSource returns the DRM sysfs source rooted at /sys.
func PlatformSource() Source {
	return SysfsSource("/sys")
}
