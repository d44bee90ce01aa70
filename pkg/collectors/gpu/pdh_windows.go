//go:build windows

package gpu

import (
	"errors"
	"fmt"
	"unsafe"

	"golang.org/x/sys/windows"
)

var (
	modpdh = windows.NewLazySystemDLL("pdh.dll")

	procPdhOpenQueryW               = modpdh.NewProc("PdhOpenQueryW")
	procPdhAddCounterW              = modpdh.NewProc("PdhAddCounterW")
	procPdhExpandWildCardPathW      = modpdh.NewProc("PdhExpandWildCardPathW")
	procPdhCollectQueryData         = modpdh.NewProc("PdhCollectQueryData")
	procPdhGetFormattedCounterValue = modpdh.NewProc("PdhGetFormattedCounterValue")
	procPdhSetCounterScaleFactor    = modpdh.NewProc("PdhSetCounterScaleFactor")
	procPdhCloseQuery               = modpdh.NewProc("PdhCloseQuery")
)

const (
	pdhFmtDouble   = 0x00000200
	pdhFmtNoCap100 = 0x00008000

	// Scale factor exponent: raw percentages are divided by 10^2.
	pdhPercentScale = -2
)

// pdhFmtCounterValueDouble mirrors PDH_FMT_COUNTERVALUE with a double.
type pdhFmtCounterValueDouble struct {
	CStatus     uint32
	_           uint32
	DoubleValue float64
}

// pdhQuery owns one PDH query handle and the counters added to it.
type pdhQuery struct {
	handle windows.Handle
}

func openPDHQuery() (Query, error) {
	if err := modpdh.Load(); err != nil {
		return nil, fmt.Errorf("load pdh.dll: %w", err)
	}
	var h windows.Handle
	r, _, _ := procPdhOpenQueryW.Call(0, 0, uintptr(unsafe.Pointer(&h)))
	if uint32(r) != pdhCStatusValidData {
		return nil, fmt.Errorf("PdhOpenQuery: %w", PDHError(uint32(r)))
	}
	return &pdhQuery{handle: h}, nil
}

func (q *pdhQuery) Expand(pattern string) ([]string, error) {
	wild, err := windows.UTF16PtrFromString(pattern)
	if err != nil {
		return nil, err
	}

	// First call sizes the buffer. Instances can appear between calls, so
	// retry while PDH keeps asking for more room.
	var size uint32
	for attempt := 0; attempt < 3; attempt++ {
		var buf []uint16
		var bufPtr uintptr
		if size > 0 {
			buf = make([]uint16, size)
			bufPtr = uintptr(unsafe.Pointer(&buf[0]))
		}
		r, _, _ := procPdhExpandWildCardPathW.Call(
			0,
			uintptr(unsafe.Pointer(wild)),
			bufPtr,
			uintptr(unsafe.Pointer(&size)),
			0,
		)
		switch status := uint32(r); status {
		case pdhCStatusValidData:
			if buf == nil {
				return nil, nil
			}
			return splitMultiSz(buf, windows.UTF16ToString), nil
		case pdhCStatusNoInstance, pdhCStatusNoObject:
			return nil, nil
		case pdhMoreData, pdhInsufficientBuffer:
			if size == 0 {
				return nil, fmt.Errorf("PdhExpandWildCardPath %q: %w", pattern, PDHError(status))
			}
			continue
		default:
			return nil, fmt.Errorf("PdhExpandWildCardPath %q: %w", pattern, PDHError(status))
		}
	}
	return nil, fmt.Errorf("PdhExpandWildCardPath %q: buffer kept growing", pattern)
}

func (q *pdhQuery) Add(path string) (CounterHandle, error) {
	if q.handle == 0 {
		return 0, errors.New("query closed")
	}
	p, err := windows.UTF16PtrFromString(path)
	if err != nil {
		return 0, err
	}
	var counter windows.Handle
	r, _, _ := procPdhAddCounterW.Call(
		uintptr(q.handle),
		uintptr(unsafe.Pointer(p)),
		0,
		uintptr(unsafe.Pointer(&counter)),
	)
	if uint32(r) != pdhCStatusValidData {
		return 0, fmt.Errorf("PdhAddCounter: %w", PDHError(uint32(r)))
	}
	scale := int32(pdhPercentScale)
	r, _, _ = procPdhSetCounterScaleFactor.Call(uintptr(counter), uintptr(scale))
	if uint32(r) != pdhCStatusValidData {
		return 0, fmt.Errorf("PdhSetCounterScaleFactor: %w", PDHError(uint32(r)))
	}
	return CounterHandle(counter), nil
}

func (q *pdhQuery) Collect() error {
	if q.handle == 0 {
		return errors.New("query closed")
	}
	r, _, _ := procPdhCollectQueryData.Call(uintptr(q.handle))
	return pdhCollectError(uint32(r))
}

func (q *pdhQuery) Value(h CounterHandle) (float64, error) {
	var value pdhFmtCounterValueDouble
	r, _, _ := procPdhGetFormattedCounterValue.Call(
		uintptr(h),
		uintptr(pdhFmtDouble|pdhFmtNoCap100),
		0,
		uintptr(unsafe.Pointer(&value)),
	)
	if err := pdhValueError(uint32(r)); err != nil {
		return 0, err
	}
	if err := pdhValueError(value.CStatus); err != nil {
		return 0, err
	}
	return value.DoubleValue, nil
}

// Close releases the query and all of its counters. It is safe to call
// more than once.
func (q *pdhQuery) Close() error {
	if q.handle == 0 {
		return nil
	}
	r, _, _ := procPdhCloseQuery.Call(uintptr(q.handle))
	q.handle = 0
	if uint32(r) != pdhCStatusValidData {
		return fmt.Errorf("PdhCloseQuery: %w", PDHError(uint32(r)))
	}
	return nil
}
