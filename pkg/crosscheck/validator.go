// Package crosscheck compares device load measured by independent backends
// and checks the readings against physical bounds.
package crosscheck

import (
	"math"
	"slices"
)

// ValidationStatus grades how well the backends of one metric agree.
type ValidationStatus string

const (
	StatusValid    ValidationStatus = "valid"
	StatusSuspect  ValidationStatus = "suspect"
	StatusConflict ValidationStatus = "conflict"
)

// Source is one backend's mean load for a metric, as a fraction.
type Source struct {
	Name    string  `json:"name"`
	Value   float64 `json:"value"`
	Samples int     `json:"samples"`
	RawData string  `json:"raw_data,omitempty"`

	// Deviation is the absolute distance from the consensus.
	Deviation float64 `json:"deviation"`
}

// ValidationResult is the agreement of every backend measuring one metric.
type ValidationResult struct {
	Metric       string           `json:"metric"`
	Sources      []Source         `json:"sources"`
	Consensus    float64          `json:"consensus"`
	MaxDeviation float64          `json:"max_deviation"`
	Status       ValidationStatus `json:"status"`
}

// Validator grades disagreement in absolute load fraction. Relative
// deviation is useless near idle, where 0.001 and 0.004 differ by 4x.
type Validator struct {
	Suspect  float64
	Conflict float64
}

// NewValidator returns a validator marking 5 points of spread suspect and 20
// points a conflict.
func NewValidator() *Validator {
	return &Validator{Suspect: 0.05, Conflict: 0.20}
}

// CrossCheck takes the median of the sources as consensus and grades the
// largest deviation from it. The sources are copied, not modified.
func (v *Validator) CrossCheck(metric string, sources []Source) ValidationResult {
	result := ValidationResult{
		Metric:  metric,
		Sources: slices.Clone(sources),
		Status:  StatusValid,
	}
	if len(sources) == 0 {
		return result
	}

	values := make([]float64, len(sources))
	for i, s := range sources {
		values[i] = s.Value
	}
	result.Consensus = median(values)

	for i := range result.Sources {
		dev := math.Abs(result.Sources[i].Value - result.Consensus)
		result.Sources[i].Deviation = dev
		result.MaxDeviation = max(result.MaxDeviation, dev)
	}
	result.Status = v.grade(result.MaxDeviation)
	return result
}

func (v *Validator) grade(deviation float64) ValidationStatus {
	switch {
	case deviation >= v.Conflict:
		return StatusConflict
	case deviation >= v.Suspect:
		return StatusSuspect
	}
	return StatusValid
}

func median(values []float64) float64 {
	sorted := slices.Clone(values)
	slices.Sort(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 0 {
		return (sorted[mid-1] + sorted[mid]) / 2
	}
	return sorted[mid]
}
