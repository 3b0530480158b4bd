package entities_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/firesidegames/betrayal/internal/entities"
)

func TestRoleDistributionShape(t *testing.T) {
	assert.Equal(t, []int{3, 4, 5, 6, 7, 8}, entities.SupportedTotals())

	for _, total := range entities.SupportedTotals() {
		roles, ok := entities.RoleDistribution(total)
		require.True(t, ok, "total %d should be supported", total)
		require.Len(t, roles, total)

		shapeshifters := 0
		for _, role := range roles {
			if role == entities.RoleShapeshifter {
				shapeshifters++
			}
		}
		assert.Equal(t, 1, shapeshifters, "exactly one adversary seat at total %d", total)
	}

	_, ok := entities.RoleDistribution(9)
	assert.False(t, ok)
	_, ok = entities.RoleDistribution(2)
	assert.False(t, ok)
}

func TestRoleDistributionReturnsACopy(t *testing.T) {
	first, ok := entities.RoleDistribution(8)
	require.True(t, ok)

	// Role assignment rewrites its slice in place (the easy-difficulty
	// drunk swap), so the table must never hand out its backing array.
	for i := range first {
		first[i] = entities.RoleVillager
	}

	second, ok := entities.RoleDistribution(8)
	require.True(t, ok)
	assert.Contains(t, second, entities.RoleShapeshifter)
	assert.Contains(t, second, entities.RoleDrunk)
}
