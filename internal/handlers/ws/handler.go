package ws

import (
	"context"
	"time"

	"github.com/firesidegames/betrayal/internal/config"
	"github.com/firesidegames/betrayal/internal/entities"
	"github.com/firesidegames/betrayal/internal/repositories/chat"
	"github.com/firesidegames/betrayal/internal/repositories/events"
	"github.com/firesidegames/betrayal/internal/repositories/games"
	"github.com/firesidegames/betrayal/internal/repositories/players"
	"github.com/firesidegames/betrayal/internal/services/adversary"
	"github.com/firesidegames/betrayal/internal/services/engine"
	"github.com/firesidegames/betrayal/internal/services/narrator"
	"github.com/firesidegames/betrayal/internal/tasks"
	"github.com/firesidegames/betrayal/internal/uuid"
	hub "github.com/firesidegames/betrayal/internal/ws"
)

// OutcomeLogger archives a finished game for cross-game strategy
// analysis. Failures are logged and never surface to players.
type OutcomeLogger interface {
	LogGameOutcome(ctx context.Context, gameID string) error
}

// Handler owns the real-time side of a game: the connection endpoint,
// the action dispatcher, and the resolution flows that move play along.
type Handler struct {
	hub        *hub.Hub
	gameRepo   games.Repository
	playerRepo players.Repository
	eventRepo  events.Repository
	chatRepo   chat.Repository
	engine     engine.Service
	adversary  adversary.Service
	narrator   *narrator.Manager
	supervisor *tasks.Supervisor
	uuider     uuid.Generator
	outcomes   OutcomeLogger
	registry   *Registry

	discussionWindow time.Duration
	voteTimeout      time.Duration
}

// HandlerConfig holds configuration for the websocket handler
type HandlerConfig struct {
	Hub              *hub.Hub            // Required
	GameRepository   games.Repository    // Required
	PlayerRepository players.Repository  // Required
	EventRepository  events.Repository   // Required
	ChatRepository   chat.Repository     // Required
	Engine           engine.Service      // Required
	Adversary        adversary.Service   // Required
	Narrator         *narrator.Manager   // Required
	Supervisor       *tasks.Supervisor   // Optional, will use default if nil
	UUIDGenerator    uuid.Generator      // Optional, will use default if nil
	OutcomeLogger    OutcomeLogger       // Optional, nil skips post-game archiving
	Timing           *config.GameConfig  // Optional, defaults to standard pacing
}

// NewHandler creates the websocket handler and registers it as the
// narrator's phase driver.
func NewHandler(cfg *HandlerConfig) *Handler {
	if cfg.Hub == nil {
		panic("hub is required")
	}
	if cfg.GameRepository == nil {
		panic("game repository is required")
	}
	if cfg.PlayerRepository == nil {
		panic("player repository is required")
	}
	if cfg.EventRepository == nil {
		panic("event repository is required")
	}
	if cfg.ChatRepository == nil {
		panic("chat repository is required")
	}
	if cfg.Engine == nil {
		panic("engine is required")
	}
	if cfg.Adversary == nil {
		panic("adversary service is required")
	}
	if cfg.Narrator == nil {
		panic("narrator manager is required")
	}

	h := &Handler{
		hub:              cfg.Hub,
		gameRepo:         cfg.GameRepository,
		playerRepo:       cfg.PlayerRepository,
		eventRepo:        cfg.EventRepository,
		chatRepo:         cfg.ChatRepository,
		engine:           cfg.Engine,
		adversary:        cfg.Adversary,
		narrator:         cfg.Narrator,
		supervisor:       cfg.Supervisor,
		uuider:           cfg.UUIDGenerator,
		outcomes:         cfg.OutcomeLogger,
		registry:         NewRegistry(),
		discussionWindow: 90 * time.Second,
		voteTimeout:      60 * time.Second,
	}
	if h.supervisor == nil {
		h.supervisor = tasks.NewSupervisor()
	}
	if h.uuider == nil {
		h.uuider = uuid.NewGoogleUUIDGenerator()
	}
	if cfg.Timing != nil {
		if cfg.Timing.DiscussionSeconds > 0 {
			h.discussionWindow = time.Duration(cfg.Timing.DiscussionSeconds) * time.Second
		}
		if cfg.Timing.VoteTimeoutSeconds > 0 {
			h.voteTimeout = time.Duration(cfg.Timing.VoteTimeoutSeconds) * time.Second
		}
	}

	h.narrator.SetDriver(h)
	return h
}

// aliveCharacters returns the set of character names that may still be
// targeted, the adversary's included.
func aliveCharacters(list []*entities.Player, game *entities.Game) map[string]bool {
	alive := make(map[string]bool)
	for _, p := range list {
		if p.Alive && p.CharacterName != "" {
			alive[p.CharacterName] = true
		}
	}
	if game.AdversaryAlive() {
		alive[game.Adversary.Name] = true
	}
	return alive
}

// voteTally counts cast votes by target, the adversary's mirrored vote
// included.
func voteTally(list []*entities.Player, game *entities.Game) map[string]int {
	tally := make(map[string]int)
	for _, p := range list {
		if p.Alive && p.VotedFor != "" {
			tally[p.VotedFor]++
		}
	}
	if game.AdversaryAlive() && game.Adversary.VotedFor != "" {
		tally[game.Adversary.VotedFor]++
	}
	return tally
}
