package output

import (
	"strings"
)

// sparkBlocks are ordered from lowest to highest.
var sparkBlocks = []rune("▁▂▃▄▅▆▇█")

// Sparkline renders load fractions on a fixed 0..1 scale. Values outside the
// scale are drawn at the nearest edge.
func Sparkline(values []float64) string {
	return renderSparkline(values, 0, 1)
}

// AutoSparkline renders values scaled to their own min and max.
func AutoSparkline(values []float64) string {
	if len(values) == 0 {
		return ""
	}
	lo, hi := values[0], values[0]
	for _, v := range values {
		lo = min(lo, v)
		hi = max(hi, v)
	}
	return renderSparkline(values, lo, hi)
}

func renderSparkline(values []float64, lo, hi float64) string {
	if len(values) == 0 {
		return ""
	}

	var b strings.Builder
	rng := hi - lo
	for _, v := range values {
		idx := 0
		if rng > 0 {
			idx = int((v - lo) / rng * float64(len(sparkBlocks)-1))
		}
		if idx >= len(sparkBlocks) {
			idx = len(sparkBlocks) - 1
		}
		if idx < 0 {
			idx = 0
		}
		b.WriteRune(sparkBlocks[idx])
	}

	return b.String()
}

// Trend returns the per-sample mean across sub-units of a history, oldest
// first, ready for Sparkline.
func Trend(history [][]float64) []float64 {
	out := make([]float64, 0, len(history))
	for _, sample := range history {
		out = append(out, average(sample))
	}
	return out
}

// Column returns one sub-unit's values across a history.
func Column(history [][]float64, index int) []float64 {
	out := make([]float64, 0, len(history))
	for _, sample := range history {
		if index < len(sample) {
			out = append(out, sample[index])
		}
	}
	return out
}

func average(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}
