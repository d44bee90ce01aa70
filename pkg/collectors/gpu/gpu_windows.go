//go:build windows

package gpu

// Engine groups sampled on Windows. Each expands to every engine instance of
// the adapter, across all processes.
var pdhGroups = []EngineGroup{
	{Name: "3D", Pattern: `\GPU Engine(*phys_%d_*engtype_3D)\Utilization Percentage`},
	{Name: "Compute", Pattern: `\GPU Engine(*phys_%d_*engtype_Compute)\Utilization Percentage`},
}

// PlatformSource returns the PDH GPU Engine source.
func PlatformSource() Source {
	return Source{
		Name:     "pdh",
		Open:     openPDHQuery,
		Groups:   pdhGroups,
		Adapters: listWMIAdapters,
	}
}
