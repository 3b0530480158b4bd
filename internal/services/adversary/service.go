package adversary

//go:generate mockgen -destination=mock/mock_service.go -package=mockadversary -source=service.go

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/tmc/langchaingo/llms"
	"golang.org/x/sync/errgroup"

	"github.com/firesidegames/betrayal/internal/entities"
	"github.com/firesidegames/betrayal/internal/random"
	"github.com/firesidegames/betrayal/internal/repositories/chat"
	"github.com/firesidegames/betrayal/internal/repositories/events"
	"github.com/firesidegames/betrayal/internal/repositories/games"
	"github.com/firesidegames/betrayal/internal/repositories/players"
	"github.com/firesidegames/betrayal/internal/uuid"
)

// dialogFallback is spoken whenever the model is unavailable or errors.
// Bland on purpose so a degraded adversary never breaks character.
const dialogFallback = "I stand by what I said."

// maxResponseTokens bounds every model call; replies are conversational
const maxResponseTokens = 300

// Dialog is one in-character line produced for the adversary
type Dialog struct {
	CharacterName string
	Text          string
}

// Service drives the hidden AI antagonist. All methods are stateless and
// fetch a fresh snapshot per call; the optional adapter carries the only
// cross-call state (performance signals) and may be nil.
type Service interface {
	// SelectNightTarget picks tonight's kill target and logs it as a hidden
	// night_target event for night resolution to read. Returns "" without
	// error when the adversary is missing, dead, or has nobody to target.
	SelectNightTarget(ctx context.Context, gameID string, adapter *DifficultyAdapter) (string, error)

	// SelectVoteTarget picks a character to vote against during day_vote and
	// mirrors it onto the game document for the tally to count.
	SelectVoteTarget(ctx context.Context, gameID string, adapter *DifficultyAdapter) (string, error)

	// GenerateDialog produces an in-character reply to the given discussion
	// context. Degrades to a stock line rather than failing.
	GenerateDialog(ctx context.Context, gameID, discussion string, adapter *DifficultyAdapter) (*Dialog, error)
}

// BriefSource supplies a cross-game strategy brief distilled from past
// outcomes. Implementations return "" while no brief is available; the
// difficulty profile always takes precedence and the brief only informs.
type BriefSource interface {
	IntelligenceBrief() string
}

type service struct {
	gameRepo   games.Repository
	playerRepo players.Repository
	eventRepo  events.Repository
	chatRepo   chat.Repository
	model      llms.Model
	picker     random.Picker
	uuider     uuid.Generator
	briefs     BriefSource
}

// ServiceConfig holds configuration for the adversary service
type ServiceConfig struct {
	GameRepository   games.Repository   // Required
	PlayerRepository players.Repository // Required
	EventRepository  events.Repository  // Required
	ChatRepository   chat.Repository    // Required
	Model            llms.Model         // Optional, nil falls back to random behavior
	Picker           random.Picker      // Optional, will use default if nil
	UUIDGenerator    uuid.Generator     // Optional, will use default if nil
	BriefSource      BriefSource        // Optional, nil plays without learned strategy hints
}

// NewService creates a new adversary service
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
	if cfg.ChatRepository == nil {
		panic("chat repository is required")
	}

	svc := &service{
		gameRepo:   cfg.GameRepository,
		playerRepo: cfg.PlayerRepository,
		eventRepo:  cfg.EventRepository,
		chatRepo:   cfg.ChatRepository,
		model:      cfg.Model,
		picker:     cfg.Picker,
		uuider:     cfg.UUIDGenerator,
		briefs:     cfg.BriefSource,
	}
	if svc.picker == nil {
		svc.picker = random.NewPicker()
	}
	if svc.uuider == nil {
		svc.uuider = uuid.NewGoogleUUIDGenerator()
	}
	return svc
}

// snapshot is the fresh game context fetched for every decision
type snapshot struct {
	game  *entities.Game
	alive []*entities.Player
	chat  []*entities.ChatMessage
}

func (s *service) fetchSnapshot(ctx context.Context, gameID string) (*snapshot, error) {
	snap := &snapshot{}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		game, err := s.gameRepo.Get(gctx, gameID)
		if err != nil {
			return err
		}
		snap.game = game
		return nil
	})
	g.Go(func() error {
		all, err := s.playerRepo.ListByGame(gctx, gameID)
		if err != nil {
			return err
		}
		for _, p := range all {
			if p.Alive {
				snap.alive = append(snap.alive, p)
			}
		}
		return nil
	})
	g.Go(func() error {
		recent, err := s.chatRepo.ListRecent(gctx, gameID, recentChatLines)
		if err != nil {
			return err
		}
		snap.chat = recent
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return snap, nil
}

// strategyBrief returns the learned cross-game brief, or "" when no
// source is wired or the source has nothing yet.
func (s *service) strategyBrief() string {
	if s.briefs == nil {
		return ""
	}
	return s.briefs.IntelligenceBrief()
}

// generate runs one model call and returns the trimmed response text
func (s *service) generate(ctx context.Context, system, prompt string, temperature float64) (string, error) {
	messages := []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, system),
		llms.TextParts(llms.ChatMessageTypeHuman, prompt),
	}
	resp, err := s.model.GenerateContent(ctx, messages,
		llms.WithTemperature(temperature),
		llms.WithMaxTokens(maxResponseTokens),
	)
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("model returned no choices")
	}
	return strings.TrimSpace(resp.Choices[0].Content), nil
}

// chooseCharacter asks the model to pick one of the candidates, falling
// back to a uniform random candidate when the model is absent, fails, or
// replies with something unparseable.
func (s *service) chooseCharacter(ctx context.Context, gameID, system, prompt string, temperature float64, candidates []string) string {
	if s.model != nil {
		response, err := s.generate(ctx, system, prompt, temperature)
		if err != nil {
			log.Printf("[%s] Adversary model call failed: %v", gameID, err)
		} else if target := parseCharacterName(response, candidates); target != "" {
			return target
		} else {
			log.Printf("[%s] Adversary reply %q names no candidate, picking randomly", gameID, response)
		}
	}
	return candidates[s.picker.Intn(len(candidates))]
}

func (s *service) SelectNightTarget(ctx context.Context, gameID string, adapter *DifficultyAdapter) (string, error) {
	snap, err := s.fetchSnapshot(ctx, gameID)
	if err != nil {
		return "", err
	}
	ai := snap.game.Adversary
	if ai == nil || !ai.Alive {
		return "", nil
	}
	if len(snap.alive) == 0 {
		log.Printf("[%s] Adversary has no alive players to target", gameID)
		return "", nil
	}

	candidates := characterNames(snap.alive)
	profile := profileFor(snap.game.Difficulty)
	system := buildSystemPrompt(ai, profile, formatGameState(snap.game, snap.alive, snap.chat), adapter, s.strategyBrief())
	prompt := fmt.Sprintf(
		"NIGHT PHASE — you must choose one villager to eliminate.\n"+
			"Alive villagers (potential targets): %s\n\n"+
			"Priority: target the Seer if identifiable, then the most suspicious person, "+
			"then the Healer, then a random villager.\n\n"+
			"Reply with ONLY the character name to eliminate (one name, no explanation).",
		strings.Join(candidates, ", "))

	target := s.chooseCharacter(ctx, gameID, system, prompt, profile.Temperature, candidates)

	err = s.eventRepo.Append(ctx, &entities.GameEvent{
		ID:     s.uuider.New(),
		GameID: gameID,
		Type:   entities.EventNightTarget,
		Round:  snap.game.Round,
		Phase:  entities.PhaseNight,
		Actor:  ai.Name,
		Target: target,
		Data:   map[string]any{"difficulty": string(snap.game.Difficulty)},
	})
	if err != nil {
		return "", err
	}

	log.Printf("[%s] Adversary night target: %s", gameID, target)
	return target, nil
}

func (s *service) SelectVoteTarget(ctx context.Context, gameID string, adapter *DifficultyAdapter) (string, error) {
	snap, err := s.fetchSnapshot(ctx, gameID)
	if err != nil {
		return "", err
	}
	ai := snap.game.Adversary
	if ai == nil || !ai.Alive {
		return "", nil
	}
	if len(snap.alive) == 0 {
		return "", nil
	}

	candidates := characterNames(snap.alive)
	profile := profileFor(snap.game.Difficulty)
	system := buildSystemPrompt(ai, profile, formatGameState(snap.game, snap.alive, snap.chat), adapter, s.strategyBrief())
	prompt := fmt.Sprintf(
		"DAY VOTE PHASE — choose one villager to vote to eliminate.\n"+
			"Options: %s\n\n"+
			"Strategy: vote against your biggest threat. If no clear threat, "+
			"vote with what appears to be the majority to blend in. "+
			"Never vote for yourself.\n\n"+
			"Reply with ONLY the character name you vote to eliminate.",
		strings.Join(candidates, ", "))

	target := s.chooseCharacter(ctx, gameID, system, prompt, profile.Temperature, candidates)

	if _, err := s.gameRepo.Mutate(ctx, gameID, func(g *entities.Game) error {
		if g.Adversary != nil {
			g.Adversary.VotedFor = target
		}
		return nil
	}); err != nil {
		return "", err
	}

	event := &entities.GameEvent{
		ID:     s.uuider.New(),
		GameID: gameID,
		Type:   entities.EventVote,
		Round:  snap.game.Round,
		Phase:  entities.PhaseDayVote,
		Actor:  ai.Name,
		Target: target,
	}
	if err := s.eventRepo.Append(ctx, event); err != nil {
		log.Printf("[%s] Could not log adversary vote event: %v", gameID, err)
	}

	log.Printf("[%s] Adversary vote: %s", gameID, target)
	return target, nil
}

func (s *service) GenerateDialog(ctx context.Context, gameID, discussion string, adapter *DifficultyAdapter) (*Dialog, error) {
	snap, err := s.fetchSnapshot(ctx, gameID)
	if err != nil {
		return nil, err
	}
	ai := snap.game.Adversary
	if ai == nil {
		return &Dialog{CharacterName: "Unknown", Text: dialogFallback}, nil
	}
	if s.model == nil {
		return &Dialog{CharacterName: ai.Name, Text: dialogFallback}, nil
	}

	profile := profileFor(snap.game.Difficulty)
	system := buildSystemPrompt(ai, profile, formatGameState(snap.game, snap.alive, snap.chat), adapter, s.strategyBrief())
	prompt := fmt.Sprintf(
		"The following occurred during village discussion:\n%s\n\n"+
			"Respond as %s in 1-3 sentences, staying in character.",
		discussion, ai.Name)

	text, err := s.generate(ctx, system, prompt, profile.Temperature)
	if err != nil || text == "" {
		if err != nil {
			log.Printf("[%s] Adversary dialog generation failed: %v", gameID, err)
		}
		text = dialogFallback
	}

	log.Printf("[%s] Adversary dialog for %s: %.80s", gameID, ai.Name, text)
	return &Dialog{CharacterName: ai.Name, Text: text}, nil
}

func characterNames(players []*entities.Player) []string {
	names := make([]string, 0, len(players))
	for _, p := range players {
		names = append(names, p.CharacterName)
	}
	return names
}
