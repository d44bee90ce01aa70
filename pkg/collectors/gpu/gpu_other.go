//go:build !linux && !windows

package gpu

// PlatformSource returns a source with no counters; New fails with
// collectors.ErrUnsupported.
func PlatformSource() Source {
	return Source{Name: "none"}
}
