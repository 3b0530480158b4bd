package engine_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/firesidegames/betrayal/internal/entities"
	gameerr "github.com/firesidegames/betrayal/internal/errors"
)

func TestEffectiveDifficulty(t *testing.T) {
	f := newFixture(t)

	tests := []struct {
		name     string
		humans   int
		selected entities.Difficulty
		want     entities.Difficulty
	}{
		{"three players soften hard", 3, entities.DifficultyHard, entities.DifficultyNormal},
		{"three players soften normal", 3, entities.DifficultyNormal, entities.DifficultyEasy},
		{"three players keep easy", 3, entities.DifficultyEasy, entities.DifficultyEasy},
		{"four players soften normal", 4, entities.DifficultyNormal, entities.DifficultyEasy},
		{"four players soften hard", 4, entities.DifficultyHard, entities.DifficultyNormal},
		{"five players unchanged", 5, entities.DifficultyHard, entities.DifficultyHard},
		{"two players unchanged", 2, entities.DifficultyNormal, entities.DifficultyNormal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, f.svc.EffectiveDifficulty(tt.humans, tt.selected))
		})
	}
}

func TestGetLobbySummary(t *testing.T) {
	f := newFixture(t)

	t.Run("six character game", func(t *testing.T) {
		summary := f.svc.GetLobbySummary(6, entities.DifficultyNormal)

		assert.Equal(t,
			"In this game: 4 special roles, 2 villagers, 1 AI hidden among you. Expected duration: 25–30 minutes",
			summary.Summary)
		assert.Equal(t, entities.DifficultyNormal, summary.EffectiveDifficulty)
		assert.Empty(t, summary.DifficultyNotice)
		assert.Empty(t, summary.MinPlayerWarning)
	})

	t.Run("small game gets softened with a notice", func(t *testing.T) {
		summary := f.svc.GetLobbySummary(4, entities.DifficultyHard)

		assert.Equal(t, entities.DifficultyNormal, summary.EffectiveDifficulty)
		assert.Contains(t, summary.DifficultyNotice, "Hard difficulty is adjusted to Normal")
		assert.Contains(t, summary.MinPlayerWarning, "Games work best with 4+ players")
	})

	t.Run("singular villager count", func(t *testing.T) {
		summary := f.svc.GetLobbySummary(3, entities.DifficultyEasy)

		assert.Equal(t,
			"In this game: 2 special roles, 1 villager, 1 AI hidden among you. Expected duration: 15–20 minutes",
			summary.Summary)
	})
}

func TestPlanRoles(t *testing.T) {
	f := newFixture(t)

	plan, err := f.svc.PlanRoles(6, entities.DifficultyNormal)
	require.NoError(t, err)

	assert.Equal(t, 6, plan.PlayerCount)
	assert.Equal(t, []entities.Role{
		entities.RoleShapeshifter,
		entities.RoleSeer,
		entities.RoleHealer,
		entities.RoleHunter,
		entities.RoleVillager,
		entities.RoleVillager,
	}, plan.Roles)
	assert.Equal(t, 2, plan.RoleCounts[entities.RoleVillager])
	assert.Equal(t, 1, plan.RoleCounts[entities.RoleShapeshifter])

	_, err = f.svc.PlanRoles(9, entities.DifficultyNormal)
	require.Error(t, err)
	assert.True(t, gameerr.IsInvalidArgument(err))

	_, err = f.svc.PlanRoles(2, entities.DifficultyNormal)
	require.Error(t, err)
	assert.True(t, gameerr.IsInvalidArgument(err))
}
