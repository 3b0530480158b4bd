package narrator

import (
	"context"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/tmc/langchaingo/llms"

	"github.com/firesidegames/betrayal/internal/entities"
	gameerr "github.com/firesidegames/betrayal/internal/errors"
	"github.com/firesidegames/betrayal/internal/repositories/chat"
	"github.com/firesidegames/betrayal/internal/repositories/games"
	"github.com/firesidegames/betrayal/internal/tasks"
	"github.com/firesidegames/betrayal/internal/uuid"
)

// Broadcaster delivers narrator output to everyone in a game. Partial
// deliveries carry the text generated so far and replace each other on
// the client; the final delivery is the stored transcript line.
type Broadcaster interface {
	BroadcastTranscript(gameID string, msg *entities.ChatMessage, partial bool)
}

// PhaseDriver advances the game once narration for a phase has played
// out. Implementations own the guards; the narrator just reports that
// its part is done.
type PhaseDriver interface {
	AdvancePhase(ctx context.Context, gameID string)
}

const (
	// EpilogueGracePeriod keeps the session alive after game over so the
	// closing narration reaches late listeners before teardown.
	EpilogueGracePeriod = 30 * time.Second

	generationTimeout    = 30 * time.Second
	narrationTemperature = 0.8
	maxNarrationTokens   = 256
)

// Manager owns one narration session per active game
type Manager struct {
	model       llms.Model
	gameRepo    games.Repository
	chatRepo    chat.Repository
	broadcaster Broadcaster
	supervisor  *tasks.Supervisor
	uuider      uuid.Generator

	mu       sync.Mutex
	sessions map[string]*session
	driver   PhaseDriver
}

// ManagerConfig holds configuration for the narrator manager
type ManagerConfig struct {
	GameRepository games.Repository  // Required
	ChatRepository chat.Repository   // Required
	Broadcaster    Broadcaster       // Required
	Model          llms.Model        // Optional, nil runs games without generated narration
	Supervisor     *tasks.Supervisor // Optional, will use default if nil
	UUIDGenerator  uuid.Generator    // Optional, will use default if nil
}

// NewManager creates a new narrator manager
func NewManager(cfg *ManagerConfig) *Manager {
	if cfg.GameRepository == nil {
		panic("game repository is required")
	}
	if cfg.ChatRepository == nil {
		panic("chat repository is required")
	}
	if cfg.Broadcaster == nil {
		panic("broadcaster is required")
	}

	m := &Manager{
		model:       cfg.Model,
		gameRepo:    cfg.GameRepository,
		chatRepo:    cfg.ChatRepository,
		broadcaster: cfg.Broadcaster,
		supervisor:  cfg.Supervisor,
		uuider:      cfg.UUIDGenerator,
		sessions:    make(map[string]*session),
	}
	if m.supervisor == nil {
		m.supervisor = tasks.NewSupervisor()
	}
	if m.uuider == nil {
		m.uuider = uuid.NewGoogleUUIDGenerator()
	}
	return m
}

// SetDriver wires the phase driver after construction. The ws runtime
// needs the manager to exist before it can register itself here.
func (m *Manager) SetDriver(d PhaseDriver) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.driver = d
}

func (m *Manager) currentDriver() PhaseDriver {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.driver
}

// StartGame opens a narration session for the game, replacing any
// session left over from a previous start.
func (m *Manager) StartGame(ctx context.Context, gameID string) error {
	game, err := m.gameRepo.Get(ctx, gameID)
	if err != nil {
		return err
	}

	s := newSession(m, gameID, presetOrDefault(game.NarratorPreset))

	m.mu.Lock()
	if old, ok := m.sessions[gameID]; ok {
		old.stop()
	}
	m.sessions[gameID] = s
	m.mu.Unlock()

	m.supervisor.Go("narrator-"+gameID, s.run)
	log.Printf("[%s] Narrator session started (preset=%s, model=%v)", gameID, s.preset.ID, m.model != nil)
	return nil
}

// ForwardPlayerMessage feeds table talk into the narrator's context so
// later narration can react to it. Only day discussion chatter is
// worth the tokens.
func (m *Manager) ForwardPlayerMessage(gameID string, phase entities.Phase, speaker, text string) {
	if phase != entities.PhaseDayDiscussion {
		return
	}
	s := m.session(gameID)
	if s == nil {
		return
	}
	s.enqueueContext(playerLine(speaker, text))
}

// SendPhaseEvent queues narration for a game event. It fails when the
// game has no session or the session cannot keep up.
func (m *Manager) SendPhaseEvent(gameID string, event *PhaseEvent) error {
	s := m.session(gameID)
	if s == nil {
		return gameerr.NotFoundf("no narrator session for game %s", gameID)
	}
	return s.enqueueEvent(event)
}

// StopGame tears down a game's session. Safe to call when none exists.
func (m *Manager) StopGame(gameID string) {
	m.mu.Lock()
	s, ok := m.sessions[gameID]
	if ok {
		delete(m.sessions, gameID)
	}
	m.mu.Unlock()

	if ok {
		s.stop()
		log.Printf("[%s] Narrator session stopped", gameID)
	}
}

// StopGameAfter schedules teardown once the epilogue has had time to
// play out.
func (m *Manager) StopGameAfter(gameID string, delay time.Duration) {
	m.supervisor.After("narrator-stop-"+gameID, delay, func(_ context.Context) {
		m.StopGame(gameID)
	})
}

func (m *Manager) session(gameID string) *session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sessions[gameID]
}

// ── Preset preview ────────────────────────────────────────────────────

const (
	previewSampleText  = "The fire dims. Someone among you is not what they seem."
	previewMaxAttempts = 3
	previewRetryDelay  = time.Second
	previewMaxTokens   = 96
)

// GeneratePreview produces a short sample line in the preset's voice
// for the lobby's narrator picker. Unknown presets return a not-found
// error; generation trouble returns unavailable.
func (m *Manager) GeneratePreview(ctx context.Context, presetID string) (string, error) {
	preset, ok := PresetByID(presetID)
	if !ok {
		return "", gameerr.NotFoundf("unknown narrator preset: %s", presetID)
	}
	if m.model == nil {
		return "", gameerr.Unavailable("narrator model is not configured")
	}

	msgs := []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, previewInstruction(preset)),
		llms.TextParts(llms.ChatMessageTypeHuman, previewSampleText),
	}

	var lastErr error
	for attempt := 1; attempt <= previewMaxAttempts; attempt++ {
		resp, err := m.model.GenerateContent(ctx, msgs,
			llms.WithTemperature(narrationTemperature),
			llms.WithMaxTokens(previewMaxTokens),
		)
		if err == nil && len(resp.Choices) > 0 {
			if text := strings.TrimSpace(resp.Choices[0].Content); text != "" {
				return text, nil
			}
		}
		if err != nil {
			lastErr = err
		}
		log.Printf("[preview] Attempt %d/%d failed for %q: %v", attempt, previewMaxAttempts, presetID, err)
		if attempt < previewMaxAttempts {
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(previewRetryDelay):
			}
		}
	}
	return "", gameerr.Unavailablef("preview generation failed: %v", lastErr)
}

func previewInstruction(p Preset) string {
	return "You are the Narrator of Thornwood, auditioning for a dark fantasy social deduction game. " +
		"Deliver the line you are given in your own words, at most two sentences, plain text only.\n\n" +
		"VOICE & TONE: " + p.Style
}
