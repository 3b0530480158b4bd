package testutils

import (
	"fmt"

	"github.com/firesidegames/betrayal/internal/entities"
)

// StandardCast returns the six-seat character roster most tests play with.
// The last seat belongs to the adversary.
func StandardCast() []string {
	return []string{"Elara", "Garrick", "Mira", "Tobias", "Wren", "Innkeeper Bram"}
}

// CreateTestGame returns an in-progress game on night one with the
// adversary "Innkeeper Bram" seated.
func CreateTestGame(id string) *entities.Game {
	game := entities.NewGame(id, "host-1", entities.DifficultyNormal)
	game.Status = entities.GameStatusInProgress
	game.Phase = entities.PhaseNight
	game.Round = 1
	game.CharacterCast = StandardCast()
	game.Adversary = entities.NewAdversary("Innkeeper Bram", "keeps the tavern and hears everything")
	return game
}

// CreateFinishedTestGame returns a finished game. A villagers win marks
// the adversary as exiled.
func CreateFinishedTestGame(id, winner, reason string) *entities.Game {
	game := CreateTestGame(id)
	game.Status = entities.GameStatusFinished
	game.Phase = entities.PhaseGameOver
	game.Round = 3
	game.Winner = winner
	game.WinReason = reason
	if winner == "villagers" {
		game.Adversary.Alive = false
	}
	return game
}

// CreateTestPlayer returns a live player already assigned a character
// and role.
func CreateTestPlayer(id, gameID, name, character string, role entities.Role) *entities.Player {
	p := entities.NewPlayer(id, gameID, name)
	p.CharacterName = character
	p.Role = role
	return p
}

// CreateTestRoster returns the five human players matching StandardCast,
// one special role each plus villagers.
func CreateTestRoster(gameID string) []*entities.Player {
	roles := []entities.Role{
		entities.RoleSeer,
		entities.RoleHealer,
		entities.RoleHunter,
		entities.RoleVillager,
		entities.RoleVillager,
	}
	cast := StandardCast()
	players := make([]*entities.Player, 0, len(roles))
	for i, role := range roles {
		players = append(players, CreateTestPlayer(
			fmt.Sprintf("p%d", i+1),
			gameID,
			fmt.Sprintf("Player %d", i+1),
			cast[i],
			role,
		))
	}
	return players
}
