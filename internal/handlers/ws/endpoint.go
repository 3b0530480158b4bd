package ws

import (
	"context"
	"encoding/json"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	hub "github.com/firesidegames/betrayal/internal/ws"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Game clients connect from arbitrary origins (phones on LAN, QR joins)
	CheckOrigin: func(r *http.Request) bool { return true },
}

// envelope is the inbound message shape: {type, data}
type envelope struct {
	Type string         `json:"type"`
	Data map[string]any `json:"data"`
}

// stringField extracts a trimmed string from the envelope payload
func stringField(data map[string]any, key string) string {
	if data == nil {
		return ""
	}
	s, _ := data[key].(string)
	return s
}

// HandleWS upgrades GET /ws/:game_id?playerId= and runs the message
// loop until the client disconnects.
func (h *Handler) HandleWS(c *gin.Context) {
	gameID := c.Param("game_id")
	playerID := c.Query("playerId")
	ctx := c.Request.Context()

	// Validate before upgrading so bad requests get proper HTTP errors
	game, err := h.gameRepo.Get(ctx, gameID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Game not found"})
		return
	}
	player, err := h.playerRepo.Get(ctx, gameID, playerID)
	if err != nil {
		c.JSON(http.StatusForbidden, gin.H{"error": "Player not found in this game"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("[%s] Upgrade failed for %s: %v", gameID, playerID, err)
		return
	}

	// The request context dies with the HTTP handshake; the connection
	// outlives it.
	connCtx := context.Background()

	h.hub.Register(gameID, playerID, conn)
	if _, err := h.playerRepo.Mutate(connCtx, gameID, playerID, setConnected(true)); err != nil {
		log.Printf("[%s] Could not mark %s connected: %v", gameID, playerID, err)
	}

	// Refresh: character name is assigned after game start
	if fresh, err := h.playerRepo.Get(connCtx, gameID, playerID); err == nil {
		player = fresh
	}

	snapshot, err := h.hub.Snapshot(connCtx, game)
	if err != nil {
		log.Printf("[%s] Could not build snapshot for %s: %v", gameID, playerID, err)
	}
	h.hub.SendTo(gameID, playerID, &hub.ConnectedMessage{
		Type:          hub.TypeConnected,
		PlayerID:      playerID,
		CharacterName: player.CharacterName,
		GameState:     snapshot,
	})

	// The joiner already knows from the connected snapshot; announce to
	// everyone else.
	if player.CharacterName != "" {
		h.hub.Broadcast(gameID, &hub.PresenceMessage{
			Type:          hub.TypePlayerJoined,
			CharacterName: player.CharacterName,
			Count:         h.hub.Count(gameID),
		}, playerID)
	}

	h.readLoop(connCtx, conn, gameID, playerID)

	// ── Disconnect ───────────────────────────────────────────────────
	h.hub.Unregister(gameID, playerID, conn)
	conn.Close()
	if _, err := h.playerRepo.Mutate(connCtx, gameID, playerID, setConnected(false)); err != nil {
		log.Printf("[%s] Could not mark %s disconnected: %v", gameID, playerID, err)
	}

	leftName := playerID
	if fresh, err := h.playerRepo.Get(connCtx, gameID, playerID); err == nil {
		leftName = fresh.CharacterName
		if leftName == "" {
			leftName = fresh.Name
		}
	}
	h.hub.Broadcast(gameID, &hub.PresenceMessage{
		Type:          hub.TypePlayerLeft,
		CharacterName: leftName,
		Count:         h.hub.Count(gameID),
	})
}

func (h *Handler) readLoop(ctx context.Context, conn *websocket.Conn, gameID, playerID string) {
	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("[%s] Read error for %s: %v", gameID, playerID, err)
			}
			return
		}

		var msg envelope
		if err := json.Unmarshal(raw, &msg); err != nil {
			h.hub.SendTo(gameID, playerID, hub.NewError("PARSE_ERROR", "Invalid JSON"))
			continue
		}

		h.dispatchSafe(ctx, gameID, playerID, &msg)
	}
}

// dispatchSafe recovers handler panics so one bad message cannot take
// the whole connection loop down.
func (h *Handler) dispatchSafe(ctx context.Context, gameID, playerID string, msg *envelope) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("[%s] Handler panic on %q from %s: %v", gameID, msg.Type, playerID, r)
			h.hub.SendTo(gameID, playerID, hub.NewError("SERVER_ERROR", "Something went wrong handling that action"))
		}
	}()
	h.dispatch(ctx, gameID, playerID, msg)
}
