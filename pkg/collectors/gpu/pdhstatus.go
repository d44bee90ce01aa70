package gpu

import (
	"fmt"

	"github.com/danpilch/devmon/pkg/collectors"
)

// PDH status codes (pdhmsg.h).
const (
	pdhCStatusValidData        uint32 = 0x00000000
	pdhCStatusNewData          uint32 = 0x00000001
	pdhCStatusNoInstance       uint32 = 0x800007D1
	pdhMoreData                uint32 = 0x800007D2
	pdhNoData                  uint32 = 0x800007D5
	pdhCalcNegativeDenominator uint32 = 0x800007D6
	pdhCalcNegativeTimebase    uint32 = 0x800007D7
	pdhCalcNegativeValue       uint32 = 0x800007D8
	pdhCStatusNoObject         uint32 = 0xC0000BB8
	pdhCStatusNoCounter        uint32 = 0xC0000BB9
	pdhCStatusInvalidData      uint32 = 0xC0000BBA
	pdhMemoryAllocationFailure uint32 = 0xC0000BBB
	pdhInvalidHandle           uint32 = 0xC0000BBC
	pdhInvalidArgument         uint32 = 0xC0000BBD
	pdhCStatusBadCountername   uint32 = 0xC0000BC0
	pdhInsufficientBuffer      uint32 = 0xC0000BC2
	pdhInvalidData             uint32 = 0xC0000BC6
)

var pdhStatusNames = map[uint32]string{
	pdhCStatusNoInstance:       "PDH_CSTATUS_NO_INSTANCE",
	pdhMoreData:                "PDH_MORE_DATA",
	pdhNoData:                  "PDH_NO_DATA",
	pdhCalcNegativeDenominator: "PDH_CALC_NEGATIVE_DENOMINATOR",
	pdhCalcNegativeTimebase:    "PDH_CALC_NEGATIVE_TIMEBASE",
	pdhCalcNegativeValue:       "PDH_CALC_NEGATIVE_VALUE",
	pdhCStatusNoObject:         "PDH_CSTATUS_NO_OBJECT",
	pdhCStatusNoCounter:        "PDH_CSTATUS_NO_COUNTER",
	pdhCStatusInvalidData:      "PDH_CSTATUS_INVALID_DATA",
	pdhMemoryAllocationFailure: "PDH_MEMORY_ALLOCATION_FAILURE",
	pdhInvalidHandle:           "PDH_INVALID_HANDLE",
	pdhInvalidArgument:         "PDH_INVALID_ARGUMENT",
	pdhCStatusBadCountername:   "PDH_CSTATUS_BAD_COUNTERNAME",
	pdhInsufficientBuffer:      "PDH_INSUFFICIENT_BUFFER",
	pdhInvalidData:             "PDH_INVALID_DATA",
}

// PDHError is a non-success PDH_STATUS.
type PDHError uint32

func (e PDHError) Error() string {
	if name, ok := pdhStatusNames[uint32(e)]; ok {
		return fmt.Sprintf("%s (0x%08X)", name, uint32(e))
	}
	return fmt.Sprintf("PDH status 0x%08X", uint32(e))
}

// pdhValueError maps the status of a formatted-value read. Engine instances
// come and go with the processes using them, and the engine counters
// occasionally report a negative denominator; those cases are transient.
// Anything else means the handle or query is unusable.
func pdhValueError(status uint32) error {
	switch status {
	case pdhCStatusValidData, pdhCStatusNewData:
		return nil
	case pdhCalcNegativeDenominator, pdhCalcNegativeTimebase, pdhCalcNegativeValue,
		pdhNoData, pdhCStatusNoInstance, pdhCStatusInvalidData, pdhInvalidData:
		return fmt.Errorf("%w: %w", collectors.ErrTransientCounter, PDHError(status))
	}
	return PDHError(status)
}

// pdhCollectError maps the status of PdhCollectQueryData. PDH_NO_DATA means
// none of the counters had data this cycle.
func pdhCollectError(status uint32) error {
	switch status {
	case pdhCStatusValidData:
		return nil
	case pdhNoData:
		return fmt.Errorf("%w: %w", collectors.ErrTransientCounter, PDHError(status))
	}
	return PDHError(status)
}

// splitMultiSz splits a double NUL terminated UTF-16 list into strings.
func splitMultiSz(buf []uint16, decode func([]uint16) string) []string {
	var out []string
	start := 0
	for i, c := range buf {
		if c != 0 {
			continue
		}
		if i == start {
			break
		}
		out = append(out, decode(buf[start:i]))
		start = i + 1
	}
	return out
}
