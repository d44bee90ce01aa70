//go:build windows

package gpu

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPDHGroupsUseAdapterPosition(t *testing.T) {
	for _, g := range pdhGroups {
		assert.Contains(t, fmt.Sprintf(g.Pattern, 2), "phys_2_", g.Name)
	}
}
