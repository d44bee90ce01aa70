package crosscheck

import (
	"fmt"

	"github.com/danpilch/devmon/pkg/collectors"
)

// Tolerance absorbs tick rounding in rate backends, which can push a core
// slightly below zero or above one.
const Tolerance = 0.02

// SanityResult holds the outcome of a physical constraint check.
type SanityResult struct {
	Check   string `json:"check"`
	Passed  bool   `json:"passed"`
	Details string `json:"details"`
}

// RunSanityChecks validates per-sub-unit mean loads against physical bounds.
// GPU loads sum several engines and may legitimately exceed one.
func RunSanityChecks(source string, kind collectors.Kind, means []float64) []SanityResult {
	results := make([]SanityResult, 0, len(means))

	for i, v := range means {
		check := fmt.Sprintf("%s %s[%d]", source, kind, i)
		switch {
		case v < -Tolerance:
			results = append(results, SanityResult{
				Check:   check,
				Passed:  false,
				Details: fmt.Sprintf("negative load: %.4f", v),
			})
		case v > 1+Tolerance && kind != collectors.KindGPU:
			results = append(results, SanityResult{
				Check:   check,
				Passed:  false,
				Details: fmt.Sprintf("load exceeds 100%%: %.2f%%", v*100),
			})
		case v > 1:
			results = append(results, SanityResult{
				Check:   check,
				Passed:  true,
				Details: fmt.Sprintf("%.2f%% summed over engines", v*100),
			})
		default:
			results = append(results, SanityResult{
				Check:   check,
				Passed:  true,
				Details: fmt.Sprintf("%.2f%% within [0, 100]", v*100),
			})
		}
	}

	return results
}
