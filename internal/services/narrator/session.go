package narrator

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/tmc/langchaingo/llms"

	"github.com/firesidegames/betrayal/internal/entities"
	gameerr "github.com/firesidegames/betrayal/internal/errors"
)

const (
	narratorSpeaker     = "Narrator"
	sessionQueueDepth   = 32
	maxHistoryMessages  = 40
	streamFlushInterval = 300 * time.Millisecond
)

// sessionItem is one unit of work for the session worker. Context-only
// items just extend the conversation; narrating items speak, and some
// of those hand the game to the phase driver afterwards.
type sessionItem struct {
	prompt  string
	narrate bool
	advance bool
}

type session struct {
	manager *Manager
	gameID  string
	preset  Preset
	system  string

	queue    chan sessionItem
	done     chan struct{}
	stopOnce sync.Once

	// history belongs to the worker goroutine only
	history []llms.MessageContent
}

func newSession(m *Manager, gameID string, preset Preset) *session {
	return &session{
		manager: m,
		gameID:  gameID,
		preset:  preset,
		system:  narratorSystemPrompt + "\n\nVOICE & TONE: " + preset.Style,
		queue:   make(chan sessionItem, sessionQueueDepth),
		done:    make(chan struct{}),
	}
}

func playerLine(speaker, text string) string {
	return fmt.Sprintf("[PLAYER] %s says: %q", speaker, text)
}

// enqueueContext adds table talk to the conversation without speaking.
// Dropped silently under backpressure; losing a chat line costs far
// less than blocking the caller's read loop.
func (s *session) enqueueContext(prompt string) {
	select {
	case s.queue <- sessionItem{prompt: prompt}:
	default:
		log.Printf("[%s] Narrator queue full, dropping context line", s.gameID)
	}
}

func (s *session) enqueueEvent(event *PhaseEvent) error {
	item := sessionItem{
		prompt:  buildPhasePrompt(event),
		narrate: true,
		advance: advancesAfter(event.Type),
	}
	select {
	case s.queue <- item:
		return nil
	default:
		return gameerr.Unavailablef("narrator queue full for game %s", s.gameID)
	}
}

func (s *session) stop() {
	s.stopOnce.Do(func() { close(s.done) })
}

func (s *session) run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.done:
			return
		case item := <-s.queue:
			s.handle(ctx, item)
		}
	}
}

func (s *session) handle(ctx context.Context, item sessionItem) {
	s.history = append(s.history, llms.TextParts(llms.ChatMessageTypeHuman, item.prompt))
	s.trimHistory()

	if item.narrate && s.manager.model != nil {
		if text := s.narrate(ctx); text != "" {
			s.history = append(s.history, llms.TextParts(llms.ChatMessageTypeAI, text))
			s.deliver(ctx, text)
		}
	}

	// The advance happens even when narration is disabled or failed, so
	// a game never stalls waiting for words that are not coming.
	if item.advance {
		if d := s.manager.currentDriver(); d != nil {
			d.AdvancePhase(ctx, s.gameID)
		} else {
			log.Printf("[%s] No phase driver wired, skipping post-narration advance", s.gameID)
		}
	}
}

// narrate runs one generation over the session history, streaming
// partial text to the room while the model writes.
func (s *session) narrate(ctx context.Context) string {
	genCtx, cancel := context.WithTimeout(ctx, generationTimeout)
	defer cancel()

	msgs := make([]llms.MessageContent, 0, len(s.history)+1)
	msgs = append(msgs, llms.TextParts(llms.ChatMessageTypeSystem, s.system))
	msgs = append(msgs, s.history...)

	var (
		mu  sync.Mutex
		buf strings.Builder
	)

	streamDone := make(chan struct{})
	go func() {
		ticker := time.NewTicker(streamFlushInterval)
		defer ticker.Stop()
		lastLen := 0
		for {
			select {
			case <-ticker.C:
				mu.Lock()
				text := buf.String()
				mu.Unlock()
				if len(text) > lastLen {
					lastLen = len(text)
					s.broadcastPartial(text)
				}
			case <-streamDone:
				return
			}
		}
	}()

	resp, err := s.manager.model.GenerateContent(genCtx, msgs,
		llms.WithTemperature(narrationTemperature),
		llms.WithMaxTokens(maxNarrationTokens),
		llms.WithStreamingFunc(func(_ context.Context, chunk []byte) error {
			mu.Lock()
			buf.Write(chunk)
			mu.Unlock()
			return nil
		}),
	)
	close(streamDone)

	if err != nil {
		log.Printf("[%s] Narration failed: %v", s.gameID, err)
		return ""
	}

	text := strings.TrimSpace(buf.String())
	if text == "" && len(resp.Choices) > 0 {
		text = strings.TrimSpace(resp.Choices[0].Content)
	}
	return text
}

func (s *session) broadcastPartial(text string) {
	s.manager.broadcaster.BroadcastTranscript(s.gameID, &entities.ChatMessage{
		GameID:    s.gameID,
		Speaker:   narratorSpeaker,
		Text:      text,
		Source:    entities.ChatSourceNarrator,
		Timestamp: time.Now().UTC(),
	}, true)
}

// deliver stores the finished narration and broadcasts the final line
func (s *session) deliver(ctx context.Context, text string) {
	msg := &entities.ChatMessage{
		ID:        s.manager.uuider.New(),
		GameID:    s.gameID,
		Speaker:   narratorSpeaker,
		Text:      text,
		Source:    entities.ChatSourceNarrator,
		Timestamp: time.Now().UTC(),
	}
	if game, err := s.manager.gameRepo.Get(ctx, s.gameID); err == nil {
		msg.Phase = game.Phase
		msg.Round = game.Round
	}

	if err := s.manager.chatRepo.Append(ctx, msg); err != nil {
		log.Printf("[%s] Could not store narration: %v", s.gameID, err)
	}
	s.manager.broadcaster.BroadcastTranscript(s.gameID, msg, false)
	log.Printf("[%s] Narrator: %.80s", s.gameID, text)
}

func (s *session) trimHistory() {
	if len(s.history) <= maxHistoryMessages {
		return
	}
	drop := len(s.history) - maxHistoryMessages
	s.history = append(s.history[:0], s.history[drop:]...)
}
