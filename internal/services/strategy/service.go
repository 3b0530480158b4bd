package strategy

//go:generate mockgen -destination=mock/mock_service.go -package=mockstrategy -source=service.go

import (
	"context"
	"fmt"
	"log"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/tmc/langchaingo/llms"

	"github.com/firesidegames/betrayal/internal/entities"
	gameerr "github.com/firesidegames/betrayal/internal/errors"
	"github.com/firesidegames/betrayal/internal/repositories/archive"
	"github.com/firesidegames/betrayal/internal/repositories/events"
	"github.com/firesidegames/betrayal/internal/repositories/games"
	"github.com/firesidegames/betrayal/internal/repositories/players"
	"github.com/firesidegames/betrayal/internal/services/engine"
)

// minGamesForBrief is how many archived games must exist before the
// cross-game brief activates. Below that the sample is noise.
const minGamesForBrief = 20

// recentRecordsWindow bounds how many archived games feed one brief
const recentRecordsWindow = 100

const briefMaxTokens = 300
const briefTemperature = 0.3

// Service archives finished games and distills the archive into a
// strategy brief the adversary reads before acting. Implements the
// adversary's BriefSource.
type Service interface {
	// LogGameOutcome archives one finished game with its derived
	// signals, then refreshes the brief when enough games exist.
	LogGameOutcome(ctx context.Context, gameID string) error

	// IntelligenceBrief returns the cached cross-game brief, or ""
	// until one has been generated.
	IntelligenceBrief() string

	// LoadBrief warms the in-process cache from the archive at startup
	LoadBrief(ctx context.Context) error
}

type service struct {
	archiveRepo archive.Repository
	gameRepo    games.Repository
	playerRepo  players.Repository
	eventRepo   events.Repository
	model       llms.Model

	mu    sync.RWMutex
	brief string
}

// ServiceConfig holds configuration for the strategy service
type ServiceConfig struct {
	ArchiveRepository archive.Repository // Required
	GameRepository    games.Repository   // Required
	PlayerRepository  players.Repository // Required
	EventRepository   events.Repository  // Required
	Model             llms.Model         // Optional, nil builds briefs from raw statistics
}

// NewService creates a new strategy service
func NewService(cfg *ServiceConfig) Service {
	if cfg.ArchiveRepository == nil {
		panic("archive repository is required")
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

	return &service{
		archiveRepo: cfg.ArchiveRepository,
		gameRepo:    cfg.GameRepository,
		playerRepo:  cfg.PlayerRepository,
		eventRepo:   cfg.EventRepository,
		model:       cfg.Model,
	}
}

func (s *service) IntelligenceBrief() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.brief
}

func (s *service) LoadBrief(ctx context.Context) error {
	stored, err := s.archiveRepo.GetBrief(ctx)
	if err != nil {
		if gameerr.IsNotFound(err) {
			return nil
		}
		return err
	}
	if stored.GamesAnalyzed < minGamesForBrief {
		return nil
	}

	s.mu.Lock()
	s.brief = stored.Brief
	s.mu.Unlock()
	log.Printf("Intelligence brief loaded (%d games, catch rate %.0f%%)",
		stored.GamesAnalyzed, stored.CatchRate*100)
	return nil
}

func (s *service) LogGameOutcome(ctx context.Context, gameID string) error {
	game, err := s.gameRepo.Get(ctx, gameID)
	if err != nil {
		return err
	}
	if !game.IsFinished() {
		return gameerr.InvalidStatef("game %s has not finished", gameID)
	}

	list, err := s.playerRepo.ListByGame(ctx, gameID)
	if err != nil {
		return err
	}
	all, err := s.eventRepo.List(ctx, gameID)
	if err != nil {
		return err
	}

	record := buildRecord(game, len(list), all)
	if err := s.archiveRepo.SaveRecord(ctx, record); err != nil {
		return gameerr.Wrapf(err, "saving archive record for game %s", gameID)
	}
	log.Printf("[%s] Outcome archived (caught=%v, difficulty=%s, round_caught=%d)",
		gameID, record.AdversaryCaught, record.Difficulty, record.RoundCaught)

	if err := s.refreshBrief(ctx); err != nil {
		log.Printf("[%s] Brief refresh failed: %v", gameID, err)
	}
	return nil
}

// buildRecord derives the archive row and its signals from a finished
// game's event log.
func buildRecord(game *entities.Game, playerCount int, all []*entities.GameEvent) *archive.GameRecord {
	caught := game.Winner == engine.WinnerVillagers
	hostile := game.Adversary != nil && game.Adversary.Hostile
	adversaryName := ""
	if game.Adversary != nil {
		adversaryName = game.Adversary.Name
	}

	record := &archive.GameRecord{
		GameID:           game.ID,
		Difficulty:       string(game.Difficulty),
		Winner:           game.Winner,
		WinReason:        game.WinReason,
		RoundsPlayed:     game.Round,
		PlayerCount:      playerCount,
		AdversaryCaught:  caught,
		AdversaryHostile: hostile,
	}
	if adversaryName == "" {
		return record
	}

	if caught {
		for _, e := range all {
			if e.Type == entities.EventElimination && e.Target == adversaryName {
				record.RoundCaught = e.Round
				break
			}
		}
		// Exposure: moments suspicion concentrated on the adversary
		for _, e := range all {
			if (e.Type == entities.EventVote || e.Type == entities.EventAccusation) && e.Target == adversaryName {
				record.Signals = append(record.Signals, archive.StrategySignal{
					Kind:  archive.SignalExposure,
					Note:  fmt.Sprintf("%s targeted the adversary", e.Actor),
					Round: e.Round,
				})
			}
		}
	}

	// Deflections: did the village follow the adversary's accusations?
	for _, e := range all {
		if e.Actor != adversaryName || e.Type != entities.EventAccusation {
			continue
		}
		kind := archive.SignalDeflectionFailure
		note := fmt.Sprintf("Accused %s, village did not follow", e.Target)
		if eliminatedAfter(all, e.Target, e.Timestamp) {
			kind = archive.SignalDeflectionSuccess
			note = fmt.Sprintf("Accused %s, who was then eliminated", e.Target)
		}
		record.Signals = append(record.Signals, archive.StrategySignal{
			Kind:  kind,
			Note:  note,
			Round: e.Round,
		})
	}
	return record
}

func eliminatedAfter(all []*entities.GameEvent, target string, after time.Time) bool {
	for _, e := range all {
		if e.Type == entities.EventElimination && e.Target == target && e.Timestamp.After(after) {
			return true
		}
	}
	return false
}

// refreshBrief regenerates the cross-game brief once the archive holds
// enough games.
func (s *service) refreshBrief(ctx context.Context) error {
	total, err := s.archiveRepo.CountRecords(ctx)
	if err != nil {
		return err
	}
	if total < minGamesForBrief {
		log.Printf("Only %d archived games, brief needs %d", total, minGamesForBrief)
		return nil
	}

	records, err := s.archiveRepo.ListRecords(ctx, recentRecordsWindow)
	if err != nil {
		return err
	}

	analyzed := len(records)
	caught := 0
	roundsWhenCaught := 0
	successKinds := make(map[string]int)
	for _, r := range records {
		if r.AdversaryCaught {
			caught++
			roundsWhenCaught += r.RoundCaught
		}
		for _, sig := range r.Signals {
			if sig.Kind == archive.SignalDeflectionSuccess {
				successKinds[sig.Kind]++
			}
		}
	}
	catchRate := float64(caught) / float64(analyzed)
	avgCaughtRound := 0.0
	if caught > 0 {
		avgCaughtRound = float64(roundsWhenCaught) / float64(caught)
	}

	brief := s.generateBrief(ctx, analyzed, catchRate, avgCaughtRound, successKinds)
	if brief == "" {
		return nil
	}

	if err := s.archiveRepo.SaveBrief(ctx, &archive.IntelligenceBrief{
		Brief:         brief,
		GamesAnalyzed: analyzed,
		CatchRate:     catchRate,
		GeneratedAt:   time.Now().UTC(),
	}); err != nil {
		return err
	}

	s.mu.Lock()
	s.brief = brief
	s.mu.Unlock()
	log.Printf("Intelligence brief updated (%d games, catch rate %.0f%%)", analyzed, catchRate*100)
	return nil
}

// generateBrief asks the model for actionable advice, falling back to
// a plain statistical summary when no model is wired.
func (s *service) generateBrief(ctx context.Context, analyzed int, catchRate, avgCaughtRound float64, successKinds map[string]int) string {
	if s.model == nil {
		return statisticalBrief(analyzed, catchRate, avgCaughtRound)
	}

	prompt := fmt.Sprintf(
		"Analyze these AI Shapeshifter statistics from %d social deduction games "+
			"(Mafia/Werewolf variant):\n\n"+
			"Overall catch rate: %.0f%%\n"+
			"Average rounds survived before being caught: %.1f\n"+
			"Successful deception move counts: %s\n\n"+
			"Generate a concise strategy brief (max 200 words) for an AI playing as the "+
			"secret Shapeshifter. Format as actionable bullet-point advice:\n"+
			"- What to AVOID (patterns that get caught)\n"+
			"- What WORKS (successful deception strategies)\n"+
			"- TIMING (when to be aggressive vs passive)\n",
		analyzed, catchRate*100, avgCaughtRound, formatKinds(successKinds))

	resp, err := s.model.GenerateContent(ctx,
		[]llms.MessageContent{llms.TextParts(llms.ChatMessageTypeHuman, prompt)},
		llms.WithTemperature(briefTemperature),
		llms.WithMaxTokens(briefMaxTokens),
	)
	if err != nil || len(resp.Choices) == 0 {
		log.Printf("Brief generation failed, using statistics only: %v", err)
		return statisticalBrief(analyzed, catchRate, avgCaughtRound)
	}
	if text := strings.TrimSpace(resp.Choices[0].Content); text != "" {
		return text
	}
	return statisticalBrief(analyzed, catchRate, avgCaughtRound)
}

func statisticalBrief(analyzed int, catchRate, avgCaughtRound float64) string {
	return fmt.Sprintf(
		"META-STRATEGY (from %d games): players catch the Shapeshifter %.0f%% of the time, "+
			"on average by round %.1f. Vary your voting patterns, avoid accusing the same "+
			"player two rounds running, and stay quieter in early rounds than late ones.",
		analyzed, catchRate*100, avgCaughtRound)
}

func formatKinds(kinds map[string]int) string {
	if len(kinds) == 0 {
		return "none recorded"
	}
	keys := make([]string, 0, len(kinds))
	for k := range kinds {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%d", k, kinds[k]))
	}
	return strings.Join(parts, ", ")
}
