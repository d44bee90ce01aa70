//go:build !linux

package crosscheck

import (
	"fmt"

	"github.com/danpilch/devmon/pkg/collectors"
)

func platformMemorySource() (Source, error) {
	return Source{}, fmt.Errorf("sysinfo: %w", collectors.ErrUnsupported)
}
