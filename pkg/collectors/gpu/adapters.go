package gpu

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/danpilch/devmon/pkg/collectors"
)

// PCI vendor ids.
const (
	VendorAMD    uint32 = 0x1002
	VendorNVIDIA uint32 = 0x10de
	VendorIntel  uint32 = 0x8086
)

// BasicRenderDriver is the name of the Windows software adapter.
const BasicRenderDriver = "Microsoft Basic Render Driver"

// Adapter is one physical GPU.
type Adapter struct {
	// Index is the physical index substituted into engine group patterns.
	Index    int
	Name     string
	VendorID uint32
}

// AdapterLister enumerates the adapters present on the machine.
type AdapterLister func() ([]Adapter, error)

// ParseVendor accepts a vendor name (intel, amd, nvidia) or a hex id such as
// 0x8086. The empty string and "any" mean no filter.
func ParseVendor(s string) (uint32, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "any":
		return 0, nil
	case "intel":
		return VendorIntel, nil
	case "amd", "ati":
		return VendorAMD, nil
	case "nvidia":
		return VendorNVIDIA, nil
	}
	v, err := strconv.ParseUint(strings.TrimPrefix(strings.ToLower(s), "0x"), 16, 32)
	if err != nil {
		return 0, fmt.Errorf("unknown GPU vendor %q", s)
	}
	return uint32(v), nil
}

// VendorName returns a display name for a PCI vendor id.
func VendorName(id uint32) string {
	switch id {
	case VendorAMD:
		return "AMD"
	case VendorNVIDIA:
		return "NVIDIA"
	case VendorIntel:
		return "INTEL"
	}
	return fmt.Sprintf("0x%04x", id)
}

// FilterAdapters drops the software render adapter and, when vendor is
// non-zero, adapters from other vendors.
func FilterAdapters(all []Adapter, vendor uint32) []Adapter {
	out := make([]Adapter, 0, len(all))
	for _, a := range all {
		if a.Name == BasicRenderDriver {
			continue
		}
		if vendor != 0 && a.VendorID != vendor {
			continue
		}
		out = append(out, a)
	}
	return out
}

func resolveAdapters(src Source, opts Options) ([]Adapter, error) {
	if opts.SubUnits > 0 {
		adapters := make([]Adapter, opts.SubUnits)
		for i := range adapters {
			adapters[i] = Adapter{Index: i}
		}
		return adapters, nil
	}
	if src.Adapters == nil {
		return nil, fmt.Errorf("adapter enumeration for %q: %w", src.Name, collectors.ErrUnsupported)
	}
	all, err := src.Adapters()
	if err != nil {
		return nil, fmt.Errorf("enumerate adapters: %w", err)
	}
	adapters := FilterAdapters(all, opts.Vendor)
	if len(adapters) == 0 {
		if opts.Vendor != 0 {
			return nil, fmt.Errorf("no %s GPU adapters found", VendorName(opts.Vendor))
		}
		return nil, errors.New("no GPU adapters found")
	}
	return adapters, nil
}

// parsePNPVendor extracts the vendor id from a PNP device id such as
// PCI\VEN_8086&DEV_9A49&SUBSYS_...
func parsePNPVendor(pnp string) uint32 {
	upper := strings.ToUpper(pnp)
	i := strings.Index(upper, "VEN_")
	if i < 0 || len(upper) < i+8 {
		return 0
	}
	v, err := strconv.ParseUint(upper[i+4:i+8], 16, 32)
	if err != nil {
		return 0
	}
	return uint32(v)
}
