package engine

import (
	"fmt"
	"strings"

	"github.com/firesidegames/betrayal/internal/entities"
	gameerr "github.com/firesidegames/betrayal/internal/errors"
)

// smallGameDifficultyAdjustment softens the game for 3 and 4 human
// players, where the adversary has little room to hide. Keyed by human
// count, then by the host's selection.
var smallGameDifficultyAdjustment = map[int]map[entities.Difficulty]entities.Difficulty{
	3: {
		entities.DifficultyEasy:   entities.DifficultyEasy,
		entities.DifficultyNormal: entities.DifficultyEasy,
		entities.DifficultyHard:   entities.DifficultyNormal,
	},
	4: {
		entities.DifficultyEasy:   entities.DifficultyEasy,
		entities.DifficultyNormal: entities.DifficultyEasy,
		entities.DifficultyHard:   entities.DifficultyNormal,
	},
}

// expectedDurationDisplay is shown in the lobby, keyed by total
// character count.
var expectedDurationDisplay = map[int]string{
	3: "15–20 minutes",
	4: "15–20 minutes",
	5: "20–25 minutes",
	6: "25–30 minutes",
	7: "25–35 minutes",
	8: "30–40 minutes",
}

func (s *service) EffectiveDifficulty(humanCount int, selected entities.Difficulty) entities.Difficulty {
	adjustment, ok := smallGameDifficultyAdjustment[humanCount]
	if !ok {
		return selected
	}
	if adjusted, ok := adjustment[selected]; ok {
		return adjusted
	}
	return selected
}

func (s *service) GetLobbySummary(total int, selected entities.Difficulty) *LobbySummary {
	humans := total - 1

	roleCounts := make(map[entities.Role]int)
	if distribution, ok := entities.RoleDistribution(total); ok {
		for _, role := range distribution {
			roleCounts[role]++
		}
	}

	specials := 0
	for role, count := range roleCounts {
		if role != entities.RoleVillager {
			specials += count
		}
	}
	villagers := roleCounts[entities.RoleVillager]

	duration, ok := expectedDurationDisplay[total]
	if !ok {
		duration = "20–30 minutes"
	}

	summary := fmt.Sprintf("In this game: %d special role%s, %d villager%s, 1 AI hidden among you. Expected duration: %s",
		specials, plural(specials), villagers, plural(villagers), duration)

	effective := s.EffectiveDifficulty(humans, selected)

	notice := ""
	if effective != selected {
		notice = fmt.Sprintf("With only %d players, %s difficulty is adjusted to %s — the AI has less room to hide.",
			humans, capitalize(string(selected)), capitalize(string(effective)))
	}

	warning := ""
	if humans < 4 {
		warning = "Games work best with 4+ players. You can still start with fewer."
	}

	return &LobbySummary{
		Summary:             summary,
		EffectiveDifficulty: effective,
		DifficultyNotice:    notice,
		MinPlayerWarning:    warning,
	}
}

func (s *service) PlanRoles(total int, difficulty entities.Difficulty) (*RolePlan, error) {
	distribution, ok := entities.RoleDistribution(total)
	if !ok {
		return nil, gameerr.InvalidArgumentf(
			"unsupported player count: %d (supported totals: %v)", total, entities.SupportedTotals())
	}

	roleCounts := make(map[entities.Role]int)
	for _, role := range distribution {
		roleCounts[role]++
	}

	return &RolePlan{
		PlayerCount: total,
		Roles:       distribution,
		RoleCounts:  roleCounts,
		Difficulty:  difficulty,
	}, nil
}

func plural(n int) string {
	if n == 1 {
		return ""
	}
	return "s"
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + strings.ToLower(s[1:])
}
