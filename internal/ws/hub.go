package ws

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/firesidegames/betrayal/internal/entities"
	"github.com/firesidegames/betrayal/internal/repositories/games"
	"github.com/firesidegames/betrayal/internal/repositories/players"
)

// writeWait bounds how long a slow client may stall a broadcast
const writeWait = 10 * time.Second

// subscriber wraps one connection with a write lock so broadcasts and
// private sends never interleave frames.
type subscriber struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (s *subscriber) send(payload []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return s.conn.WriteMessage(websocket.TextMessage, payload)
}

// Hub tracks live connections per game and fans messages out to them.
// A failed write disconnects that subscriber only; game state is never
// touched from here.
type Hub struct {
	gameRepo   games.Repository
	playerRepo players.Repository

	mu    sync.Mutex
	games map[string]map[string]*subscriber
}

// Config holds configuration for the hub
type Config struct {
	GameRepository   games.Repository   // Required
	PlayerRepository players.Repository // Required
}

// NewHub creates a connection hub
func NewHub(cfg *Config) *Hub {
	if cfg.GameRepository == nil {
		panic("game repository is required")
	}
	if cfg.PlayerRepository == nil {
		panic("player repository is required")
	}
	return &Hub{
		gameRepo:   cfg.GameRepository,
		playerRepo: cfg.PlayerRepository,
		games:      make(map[string]map[string]*subscriber),
	}
}

// Register attaches a connection for a player. A second connection for
// the same player replaces the first, which is closed.
func (h *Hub) Register(gameID, playerID string, conn *websocket.Conn) {
	h.mu.Lock()
	subs, ok := h.games[gameID]
	if !ok {
		subs = make(map[string]*subscriber)
		h.games[gameID] = subs
	}
	old := subs[playerID]
	subs[playerID] = &subscriber{conn: conn}
	h.mu.Unlock()

	if old != nil {
		old.conn.Close()
		log.Printf("[%s] Replaced existing connection for player %s", gameID, playerID)
	}
}

// Unregister detaches a player's connection if it is still the current
// one, and frees the game's map when it empties.
func (h *Hub) Unregister(gameID, playerID string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	subs, ok := h.games[gameID]
	if !ok {
		return
	}
	if sub, ok := subs[playerID]; ok && sub.conn == conn {
		delete(subs, playerID)
	}
	if len(subs) == 0 {
		delete(h.games, gameID)
	}
}

// Count reports how many live connections a game has
func (h *Hub) Count(gameID string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.games[gameID])
}

// Connected reports whether a player currently has a live connection
func (h *Hub) Connected(gameID, playerID string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	_, ok := h.games[gameID][playerID]
	return ok
}

// DisconnectGame closes every connection of a game and drops its map
func (h *Hub) DisconnectGame(gameID string) {
	h.mu.Lock()
	subs := h.games[gameID]
	delete(h.games, gameID)
	h.mu.Unlock()

	for _, sub := range subs {
		sub.conn.Close()
	}
}

// SendTo delivers a message to one player. Missing or dead connections
// are not an error; private messages are best effort.
func (h *Hub) SendTo(gameID, playerID string, msg any) {
	payload, err := json.Marshal(msg)
	if err != nil {
		log.Printf("[%s] Could not marshal message for %s: %v", gameID, playerID, err)
		return
	}

	h.mu.Lock()
	sub := h.games[gameID][playerID]
	h.mu.Unlock()
	if sub == nil {
		return
	}

	if err := sub.send(payload); err != nil {
		log.Printf("[%s] Send to %s failed, dropping connection: %v", gameID, playerID, err)
		sub.conn.Close()
		h.Unregister(gameID, playerID, sub.conn)
	}
}

// Broadcast marshals once and delivers to every connection in the game,
// skipping any player IDs listed in exclude.
func (h *Hub) Broadcast(gameID string, msg any, exclude ...string) {
	payload, err := json.Marshal(msg)
	if err != nil {
		log.Printf("[%s] Could not marshal broadcast: %v", gameID, err)
		return
	}

	h.mu.Lock()
	targets := make(map[string]*subscriber, len(h.games[gameID]))
	for playerID, sub := range h.games[gameID] {
		targets[playerID] = sub
	}
	h.mu.Unlock()

	for _, playerID := range exclude {
		delete(targets, playerID)
	}

	for playerID, sub := range targets {
		if err := sub.send(payload); err != nil {
			log.Printf("[%s] Broadcast to %s failed, dropping connection: %v", gameID, playerID, err)
			sub.conn.Close()
			h.Unregister(gameID, playerID, sub.conn)
		}
	}
}

// ── Typed broadcast helpers ───────────────────────────────────────────

// BroadcastGameStart delivers each player's private role card
func (h *Hub) BroadcastGameStart(gameID string, cards []*RoleCard) {
	for _, card := range cards {
		h.SendTo(gameID, card.PlayerID, card)
	}
}

// BroadcastPhaseChange announces a phase transition. Pass a negative
// round to have the current round looked up from the store.
func (h *Hub) BroadcastPhaseChange(ctx context.Context, gameID string, phase entities.Phase, round int) {
	if round < 0 {
		game, err := h.gameRepo.Get(ctx, gameID)
		if err != nil {
			log.Printf("[%s] Could not load game for phase broadcast: %v", gameID, err)
			return
		}
		round = game.Round
	}
	h.Broadcast(gameID, &PhaseChangeMessage{Type: TypePhaseChange, Phase: phase, Round: round})
}

// BroadcastElimination announces a death with its role reveal
func (h *Hub) BroadcastElimination(gameID, characterName string, wasTraitor bool, role string, hunterRevenge bool, tally map[string]int) {
	h.Broadcast(gameID, &EliminationMessage{
		Type:                 TypeElimination,
		CharacterName:        characterName,
		WasTraitor:           wasTraitor,
		Role:                 role,
		TriggerHunterRevenge: hunterRevenge,
		Tally:                tally,
	})
}

// BroadcastVoteUpdate shares the live ballot state
func (h *Hub) BroadcastVoteUpdate(gameID string, votes map[string]string, tally map[string]int) {
	h.Broadcast(gameID, &VoteUpdateMessage{Type: TypeVoteUpdate, Votes: votes, Tally: tally})
}

// BroadcastGameOver delivers the terminal reveal to everyone
func (h *Hub) BroadcastGameOver(gameID, winner, reason string, reveals []*CharacterReveal, timeline []*TimelineRound) {
	h.Broadcast(gameID, &GameOverMessage{
		Type:             TypeGameOver,
		Winner:           winner,
		Reason:           reason,
		CharacterReveals: reveals,
		Timeline:         timeline,
	})
}

// BroadcastTranscript delivers one dialogue line to the whole table.
// Satisfies the narrator's Broadcaster interface.
func (h *Hub) BroadcastTranscript(gameID string, msg *entities.ChatMessage, partial bool) {
	h.Broadcast(gameID, &TranscriptMessage{
		Type:    TypeTranscript,
		Speaker: msg.Speaker,
		Text:    msg.Text,
		Source:  string(msg.Source),
		Phase:   msg.Phase,
		Round:   msg.Round,
		Partial: partial,
	})
}

// BroadcastAudio pushes a narrator voice chunk as base64 PCM
func (h *Hub) BroadcastAudio(gameID, data string) {
	h.Broadcast(gameID, &AudioMessage{Type: TypeAudio, Data: data, SampleRate: 24000})
}

// Snapshot assembles the public game state sent on connect
func (h *Hub) Snapshot(ctx context.Context, game *entities.Game) (*GameStateSnapshot, error) {
	list, err := h.playerRepo.ListByGame(ctx, game.ID)
	if err != nil {
		return nil, err
	}
	public := make([]*entities.PublicPlayer, 0, len(list))
	for _, p := range list {
		public = append(public, p.ToPublic())
	}

	snap := &GameStateSnapshot{
		Phase:         game.Phase,
		Round:         game.Round,
		Status:        game.Status,
		CharacterCast: game.CharacterCast,
		Players:       public,
	}
	if game.Adversary != nil && game.IsInProgress() {
		snap.AICharacter = &AICharacterPublic{Name: game.Adversary.Name, Alive: game.Adversary.Alive}
	}
	return snap, nil
}
