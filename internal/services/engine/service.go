package engine

//go:generate mockgen -destination=mock/mock_service.go -package=mockengine -source=service.go

import (
	"context"

	"github.com/firesidegames/betrayal/internal/entities"
	"github.com/firesidegames/betrayal/internal/random"
	"github.com/firesidegames/betrayal/internal/repositories/events"
	"github.com/firesidegames/betrayal/internal/repositories/games"
	"github.com/firesidegames/betrayal/internal/repositories/players"
	"github.com/firesidegames/betrayal/internal/uuid"
)

// Winner values written to the game document at the end
const (
	WinnerVillagers    = "villagers"
	WinnerShapeshifter = "shapeshifter"

	// WinnerNobody covers the loyal-adversary ending where the village
	// voted out its own ally
	WinnerNobody = "nobody"

	// WinnerJester is the solo ending when the village exiles the Jester
	WinnerJester = "jester"
)

// Win reason strings shown on the results screen
const (
	ReasonShapeshifterCaught = "The Shapeshifter has been identified and cast out of Thornwood."
	ReasonVillageFalls       = "The Shapeshifter has eliminated enough villagers to seize Thornwood. The village falls into darkness."
	ReasonLoyalBetrayed      = "There was no Shapeshifter among you. The village turned on its own."
	ReasonJesterExiled       = "The Jester has tricked Thornwood into casting them out. The Jester wins alone."
)

// Service runs the deterministic game rules. Nothing here talks to a
// language model; every outcome is computed from stored state.
type Service interface {
	// AdvancePhase moves the game to the next phase in the cycle and
	// returns the phase entered. Entering night increments the round.
	AdvancePhase(ctx context.Context, gameID string) (entities.Phase, error)

	// ResolveNight processes all pending night actions in priority order
	// and logs the hidden events. It does not apply deaths; callers
	// eliminate the victim afterwards.
	ResolveNight(ctx context.Context, gameID string) (*NightResult, error)

	// TallyVotes counts day votes including the adversary's, breaking
	// ties uniformly at random among the leaders.
	TallyVotes(ctx context.Context, gameID string) (*VoteResult, error)

	// EliminateCharacter marks the named character dead, clears all
	// votes, and logs a visible elimination event. Unknown names are a
	// logged no-op.
	EliminateCharacter(ctx context.Context, gameID, characterName string, byVote bool) (*EliminationResult, error)

	// CheckWinCondition reports the game's outcome, or nil while play
	// continues.
	CheckWinCondition(ctx context.Context, gameID string) (*WinResult, error)

	// ExecuteHunterRevenge applies the hunter's dying shot to the chosen
	// target and logs it as a visible event.
	ExecuteHunterRevenge(ctx context.Context, gameID, hunterCharacter, targetCharacter string) (*EliminationResult, error)

	// EffectiveDifficulty applies the small-game softening for 3 and 4
	// human players. Larger games keep the host's selection.
	EffectiveDifficulty(humanCount int, selected entities.Difficulty) entities.Difficulty

	// GetLobbySummary describes the planned game to the host before
	// start. total counts every seat including the adversary's.
	GetLobbySummary(total int, selected entities.Difficulty) *LobbySummary

	// PlanRoles validates a game size and returns the role multiset that
	// would be dealt.
	PlanRoles(total int, difficulty entities.Difficulty) (*RolePlan, error)
}

// NightResult reports what happened during night resolution.
// Killed holds the victim's character name, empty when nobody died.
type NightResult struct {
	Killed             string
	Protected          string
	BodyguardSacrifice bool
	HunterTriggered    bool
	Investigation      *InvestigationResult
}

// InvestigationResult is delivered privately to the investigating player.
// The reported answer is already falsified for the drunk.
type InvestigationResult struct {
	Character             string
	IsShapeshifter        bool
	InvestigatingPlayerID string
}

// VoteOutcome classifies a day vote tally
type VoteOutcome string

const (
	VoteOutcomeEliminated VoteOutcome = "eliminated"
	VoteOutcomeTie        VoteOutcome = "tie"
	VoteOutcomeNoVotes    VoteOutcome = "no_votes"
)

// VoteResult reports the day vote tally and its resolution
type VoteResult struct {
	Outcome    VoteOutcome
	Eliminated string
	Tally      map[string]int
	Tied       []string
}

// EliminationResult reports the consequences of removing a character
type EliminationResult struct {
	Found                bool
	WasAdversary         bool
	Role                 entities.Role
	NeedsHunterRevenge   bool
	HunterCharacter      string
	IsLoyalAdversaryLoss bool
}

// WinResult names the winning side and the reason shown to players
type WinResult struct {
	Winner string
	Reason string
}

// LobbySummary is shown to the host while the lobby fills
type LobbySummary struct {
	Summary             string
	EffectiveDifficulty entities.Difficulty
	DifficultyNotice    string
	MinPlayerWarning    string
}

// RolePlan describes the roles a game of the given size would deal
type RolePlan struct {
	PlayerCount int
	Roles       []entities.Role
	RoleCounts  map[entities.Role]int
	Difficulty  entities.Difficulty
}

type service struct {
	gameRepo   games.Repository
	playerRepo players.Repository
	eventRepo  events.Repository
	uuider     uuid.Generator
	picker     random.Picker
}

// ServiceConfig holds configuration for the engine service
type ServiceConfig struct {
	GameRepository   games.Repository   // Required
	PlayerRepository players.Repository // Required
	EventRepository  events.Repository  // Required
	UUIDGenerator    uuid.Generator     // Optional, will use default if nil
	Picker           random.Picker      // Optional, will use default if nil
}

// NewService creates a new engine service
func NewService(cfg *ServiceConfig) Service {
	if cfg.GameRepository == nil {
		panic("game repository is required")
	}
	if cfg.PlayerRepository == nil {
		panic("player repository is required")
	}
	if cfg.EventRepository == nil {
		panic("event repository is required")
	}

	svc := &service{
		gameRepo:   cfg.GameRepository,
		playerRepo: cfg.PlayerRepository,
		eventRepo:  cfg.EventRepository,
		uuider:     cfg.UUIDGenerator,
		picker:     cfg.Picker,
	}
	if svc.uuider == nil {
		svc.uuider = uuid.NewGoogleUUIDGenerator()
	}
	if svc.picker == nil {
		svc.picker = random.NewPicker()
	}
	return svc
}
