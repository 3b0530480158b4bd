package roster

//go:generate mockgen -destination=mock/mock_service.go -package=mockroster -source=service.go

import (
	"context"
	"log"

	"github.com/firesidegames/betrayal/internal/entities"
	gameerr "github.com/firesidegames/betrayal/internal/errors"
	"github.com/firesidegames/betrayal/internal/random"
	"github.com/firesidegames/betrayal/internal/repositories/games"
	"github.com/firesidegames/betrayal/internal/repositories/players"
)

// Supported human player counts. Every game also seats one adversary.
const (
	MinHumans = 2
	MaxHumans = 7
)

// loyalDrawOdds is the 1-in-N chance the adversary is secretly loyal in
// random-alignment games.
const loyalDrawOdds = 10

// Service deals roles and Thornwood identities when the host starts a game
type Service interface {
	// AssignRoles shuffles roles and cast identities onto every joined
	// player, seats the adversary in the remaining slot, and persists
	// the full cast on the game. Called exactly once per game.
	AssignRoles(ctx context.Context, gameID string) (*AssignResult, error)
}

// Assignment is one player's dealt identity, used for private role cards
type Assignment struct {
	PlayerID       string
	PlayerName     string
	Role           entities.Role
	CharacterName  string
	CharacterIntro string
}

// AssignResult reports everything the start flow needs to broadcast
type AssignResult struct {
	Assignments    []Assignment
	AdversaryName  string
	AdversaryIntro string
	CharacterCast  []string
}

type service struct {
	gameRepo   games.Repository
	playerRepo players.Repository
	picker     random.Picker
}

// ServiceConfig holds configuration for the roster service
type ServiceConfig struct {
	GameRepository   games.Repository   // Required
	PlayerRepository players.Repository // Required
	Picker           random.Picker      // Optional, will use default if nil
}

// NewService creates a new roster service
func NewService(cfg *ServiceConfig) Service {
	if cfg.GameRepository == nil {
		panic("game repository is required")
	}
	if cfg.PlayerRepository == nil {
		panic("player repository is required")
	}

	svc := &service{
		gameRepo:   cfg.GameRepository,
		playerRepo: cfg.PlayerRepository,
		picker:     cfg.Picker,
	}
	if svc.picker == nil {
		svc.picker = random.NewPicker()
	}
	return svc
}

func (s *service) AssignRoles(ctx context.Context, gameID string) (*AssignResult, error) {
	game, err := s.gameRepo.Get(ctx, gameID)
	if err != nil {
		return nil, err
	}
	joined, err := s.playerRepo.ListByGame(ctx, gameID)
	if err != nil {
		return nil, err
	}

	humans := len(joined)
	if humans < MinHumans {
		return nil, gameerr.InvalidArgumentf(
			"need at least %d human players to start; got %d", MinHumans, humans)
	}
	if humans > MaxHumans {
		return nil, gameerr.InvalidArgumentf(
			"too many players: %d (maximum is %d)", humans, MaxHumans)
	}

	total := humans + 1
	roles, ok := entities.RoleDistribution(total)
	if !ok {
		return nil, gameerr.InvalidArgumentf(
			"no role distribution defined for %d total characters (%d humans and 1 AI)", total, humans)
	}

	// Easy games swap the drunk for a plain villager
	if game.Difficulty == entities.DifficultyEasy {
		for i, role := range roles {
			if role == entities.RoleDrunk {
				roles[i] = entities.RoleVillager
				break
			}
		}
	}

	// The shapeshifter slot belongs to the adversary, never a human
	humanRoles := make([]entities.Role, 0, humans)
	removed := false
	for _, role := range roles {
		if role == entities.RoleShapeshifter && !removed {
			removed = true
			continue
		}
		humanRoles = append(humanRoles, role)
	}
	s.picker.Shuffle(len(humanRoles), func(i, j int) {
		humanRoles[i], humanRoles[j] = humanRoles[j], humanRoles[i]
	})

	cast := CharacterCast()
	s.picker.Shuffle(len(cast), func(i, j int) {
		cast[i], cast[j] = cast[j], cast[i]
	})

	assignments := make([]Assignment, 0, humans)
	for i, player := range joined {
		role := humanRoles[i]
		slot := cast[i]
		_, err := s.playerRepo.Mutate(ctx, gameID, player.ID, func(p *entities.Player) error {
			p.Role = role
			p.CharacterName = slot.Name
			p.CharacterIntro = slot.Intro
			return nil
		})
		if err != nil {
			return nil, err
		}
		assignments = append(assignments, Assignment{
			PlayerID:       player.ID,
			PlayerName:     player.Name,
			Role:           role,
			CharacterName:  slot.Name,
			CharacterIntro: slot.Intro,
		})
	}

	adversarySlot := cast[humans]
	adversary := entities.NewAdversary(adversarySlot.Name, adversarySlot.Intro)

	// Random-alignment games roll a secret loyalty draw. A loyal adversary
	// carries a plain village role so the reveal has something to show.
	if game.RandomAlignment && s.picker.Intn(loyalDrawOdds) == 0 {
		adversary.Hostile = false
		adversary.Role = entities.RoleVillager
		log.Printf("[%s] Random alignment draw: the adversary is loyal this game", gameID)
	}

	castNames := make([]string, total)
	for i := 0; i < total; i++ {
		castNames[i] = cast[i].Name
	}

	if _, err := s.gameRepo.Mutate(ctx, gameID, func(g *entities.Game) error {
		g.Adversary = adversary
		g.CharacterCast = castNames
		return nil
	}); err != nil {
		return nil, err
	}

	dealt := make([]entities.Role, 0, humans)
	for _, a := range assignments {
		dealt = append(dealt, a.Role)
	}
	log.Printf("[%s] Roles assigned to %d humans (difficulty=%s). Roles: %v. AI character: %s.",
		gameID, humans, game.Difficulty, dealt, adversary.Name)

	return &AssignResult{
		Assignments:    assignments,
		AdversaryName:  adversary.Name,
		AdversaryIntro: adversary.Intro,
		CharacterCast:  castNames,
	}, nil
}
