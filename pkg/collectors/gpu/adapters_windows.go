//go:build windows

package gpu

import (
	"fmt"

	"github.com/yusufpapurcu/wmi"
)

type win32VideoController struct {
	Name                 string
	PNPDeviceID          string
	AdapterCompatibility string
}

// listWMIAdapters enumerates display adapters in WMI order. Sub-unit i is
// queried with "phys_i" in the engine wildcards, which assumes each adapter
// is unlinked and sits at that position. PDH actually tells adapters apart by
// "luid_..." and "phys_N" is the node within a linked adapter, so on hosts
// with several GPUs the engines summed for one adapter may belong to another.
func listWMIAdapters() ([]Adapter, error) {
	var controllers []win32VideoController
	q := wmi.CreateQuery(&controllers, "")
	if err := wmi.Query(q, &controllers); err != nil {
		return nil, fmt.Errorf("query Win32_VideoController: %w", err)
	}
	adapters := make([]Adapter, 0, len(controllers))
	for i, c := range controllers {
		adapters = append(adapters, Adapter{
			Index:    i,
			Name:     c.Name,
			VendorID: parsePNPVendor(c.PNPDeviceID),
		})
	}
	return adapters, nil
}
