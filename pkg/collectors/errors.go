package collectors

import (
	"errors"
	"fmt"
)

var (
	// ErrBackendInitFailed reports that the OS counter source could not be
	// opened or configured. The owning counter stays unusable.
	ErrBackendInitFailed = errors.New("backend initialization failed")

	// ErrCoreCountChanged reports a CPU topology change at runtime.
	ErrCoreCountChanged = errors.New("the number of cores has changed")

	// ErrTransientCounter marks a single counter value that is temporarily
	// invalid. Backends absorb it and count the value as zero.
	ErrTransientCounter = errors.New("transient counter error")

	// ErrSubUnitMismatch reports a sample whose length differs from the
	// declared sub-unit count.
	ErrSubUnitMismatch = errors.New("sample length does not match sub-unit count")

	// ErrUnsupported reports a backend that does not exist on this platform.
	ErrUnsupported = errors.New("not supported on this platform")
)

func initFailed(name string, err error) error {
	if errors.Is(err, ErrBackendInitFailed) {
		return fmt.Errorf("%s: %w", name, err)
	}
	return fmt.Errorf("%s: %w: %w", name, ErrBackendInitFailed, err)
}
