package output

// Status grades a utilization value.
type Status string

const (
	StatusOK      Status = "ok"
	StatusWarning Status = "warning"
	StatusError   Status = "error"
	StatusUnknown Status = "unknown"
)

// Thresholds defines warning and critical utilization levels as fractions.
type Thresholds struct {
	WarnUtil float64
	CritUtil float64
}

// DefaultThresholds returns the default threshold values.
func DefaultThresholds() Thresholds {
	return Thresholds{
		WarnUtil: 0.70,
		CritUtil: 0.90,
	}
}

// EvaluateUtilization returns the status of a load fraction.
func (t Thresholds) EvaluateUtilization(load float64) Status {
	if load >= t.CritUtil {
		return StatusError
	}
	if load >= t.WarnUtil {
		return StatusWarning
	}
	return StatusOK
}

// Evaluate grades the highest value; no values is unknown.
func (t Thresholds) Evaluate(loads []float64) Status {
	if len(loads) == 0 {
		return StatusUnknown
	}
	peak := loads[0]
	for _, v := range loads[1:] {
		if v > peak {
			peak = v
		}
	}
	return t.EvaluateUtilization(peak)
}

// Summary counts reports per status.
type Summary struct {
	Total    int
	OK       int
	Warnings int
	Errors   int
	Unknown  int
}

// Summarize calculates summary statistics from device reports.
func Summarize(reports []DeviceReport) Summary {
	s := Summary{Total: len(reports)}
	for _, r := range reports {
		switch r.Status {
		case StatusOK:
			s.OK++
		case StatusWarning:
			s.Warnings++
		case StatusError:
			s.Errors++
		case StatusUnknown:
			s.Unknown++
		}
	}
	return s
}

// ExitCode maps reports to a process status: 2 when any device is critical,
// 1 for warnings, 3 when nothing could be sampled, 0 otherwise.
func ExitCode(reports []DeviceReport) int {
	summary := Summarize(reports)
	if summary.Errors > 0 {
		return 2
	}
	if summary.Warnings > 0 {
		return 1
	}
	if summary.Unknown > 0 && summary.Unknown == summary.Total {
		return 3
	}
	return 0
}
