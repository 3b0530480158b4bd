package api

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	qrcode "github.com/skip2/go-qrcode"

	"github.com/firesidegames/betrayal/internal/entities"
	gameerr "github.com/firesidegames/betrayal/internal/errors"
	"github.com/firesidegames/betrayal/internal/services/narrator"
	"github.com/firesidegames/betrayal/internal/services/roster"
	"github.com/firesidegames/betrayal/internal/uuid"
	hub "github.com/firesidegames/betrayal/internal/ws"
)

// qrImageSize is the rendered QR code edge length in pixels
const qrImageSize = 256

// CreateGameRequest is the POST /api/games body
type CreateGameRequest struct {
	HostName        string `json:"host_name" binding:"required"`
	Difficulty      string `json:"difficulty"`
	RandomAlignment bool   `json:"random_alignment"`
	NarratorPreset  string `json:"narrator_preset"`
	InPersonMode    bool   `json:"in_person_mode"`
}

// CreateGame creates a game and registers the host as its first player
func (h *Handler) CreateGame(c *gin.Context) {
	var body CreateGameRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "host_name is required"})
		return
	}

	difficulty := entities.Difficulty(body.Difficulty)
	if body.Difficulty == "" {
		difficulty = entities.DifficultyNormal
	}
	if !difficulty.IsValid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "difficulty must be easy, normal, or hard"})
		return
	}

	preset := body.NarratorPreset
	if preset == "" {
		preset = narrator.DefaultPresetID
	}
	if _, ok := narrator.PresetByID(preset); !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown narrator preset: " + preset})
		return
	}

	ctx := c.Request.Context()
	hostPlayerID := h.uuider.New()
	game := entities.NewGame(uuid.ShortCode(h.uuider), hostPlayerID, difficulty)
	game.RandomAlignment = body.RandomAlignment
	game.NarratorPreset = preset
	game.InPersonMode = body.InPersonMode

	if err := h.gameRepo.Create(ctx, game); err != nil {
		log.Printf("Could not create game: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not create game"})
		return
	}
	if err := h.playerRepo.Create(ctx, entities.NewPlayer(hostPlayerID, game.ID, body.HostName)); err != nil {
		log.Printf("[%s] Could not register host: %v", game.ID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not register host"})
		return
	}

	log.Printf("[%s] Game created by host %s (%s)", game.ID, hostPlayerID, body.HostName)
	c.JSON(http.StatusCreated, gin.H{
		"game_id":        game.ID,
		"host_player_id": hostPlayerID,
	})
}

// JoinGameRequest is the POST /api/games/:game_id/join body
type JoinGameRequest struct {
	PlayerName string `json:"player_name" binding:"required"`
}

// JoinGame adds a player to the lobby
func (h *Handler) JoinGame(c *gin.Context) {
	gameID := c.Param("game_id")
	var body JoinGameRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "player_name is required"})
		return
	}

	ctx := c.Request.Context()
	game, err := h.gameRepo.Get(ctx, gameID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Game not found"})
		return
	}
	if game.Status != entities.GameStatusLobby {
		c.JSON(http.StatusConflict, gin.H{"error": "Game already in progress or finished"})
		return
	}

	existing, err := h.playerRepo.ListByGame(ctx, gameID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not list players"})
		return
	}
	if len(existing) >= roster.MaxHumans {
		c.JSON(http.StatusConflict, gin.H{"error": "Game is full (maximum 7 players)"})
		return
	}

	playerID := h.uuider.New()
	if err := h.playerRepo.Create(ctx, entities.NewPlayer(playerID, gameID, body.PlayerName)); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not add player"})
		return
	}

	log.Printf("[%s] Player %s (%s) joined", gameID, playerID, body.PlayerName)
	c.JSON(http.StatusOK, gin.H{"player_id": playerID, "game_id": gameID})
}

// GetGame returns the public role-redacted game state. The lobby
// summary appears only before start so it cannot leak role structure.
func (h *Handler) GetGame(c *gin.Context) {
	ctx := c.Request.Context()
	game, err := h.gameRepo.Get(ctx, c.Param("game_id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Game not found"})
		return
	}

	list, err := h.playerRepo.ListByGame(ctx, game.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not list players"})
		return
	}
	public := make([]*entities.PublicPlayer, 0, len(list))
	for _, p := range list {
		public = append(public, p.ToPublic())
	}

	resp := gin.H{
		"game_id":        game.ID,
		"status":         game.Status,
		"phase":          game.Phase,
		"round":          game.Round,
		"difficulty":     game.Difficulty,
		"character_cast": game.CharacterCast,
		// The adversary's identity only travels over the private WS snapshot
		"ai_character": nil,
		"players":      public,
		"player_count": len(list),
	}
	if game.Status == entities.GameStatusLobby {
		// Every seat including the adversary's
		resp["lobby_summary"] = h.engine.GetLobbySummary(len(list)+1, game.Difficulty)
	}
	c.JSON(http.StatusOK, resp)
}

// JoinQR renders the join URL as a PNG QR code for in-person lobbies
func (h *Handler) JoinQR(c *gin.Context) {
	gameID := c.Param("game_id")
	if _, err := h.gameRepo.Get(c.Request.Context(), gameID); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Game not found"})
		return
	}

	joinURL := h.publicBaseURL + "/join/" + gameID
	png, err := qrcode.Encode(joinURL, qrcode.Medium, qrImageSize)
	if err != nil {
		log.Printf("[%s] Could not render QR code: %v", gameID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not render QR code"})
		return
	}
	c.Data(http.StatusOK, "image/png", png)
}

// StartGame deals roles and opens the first night. Only the host may
// start, and only from the lobby.
func (h *Handler) StartGame(c *gin.Context) {
	gameID := c.Param("game_id")
	hostPlayerID := c.Query("host_player_id")
	ctx := c.Request.Context()

	game, err := h.gameRepo.Get(ctx, gameID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Game not found"})
		return
	}
	if game.HostPlayerID != hostPlayerID {
		c.JSON(http.StatusForbidden, gin.H{"error": "Only the host can start the game"})
		return
	}

	// Double-start lock: flip the status atomically BEFORE dealing roles
	// so a concurrent second request sees in_progress and gets a 409.
	_, err = h.gameRepo.Mutate(ctx, gameID, func(g *entities.Game) error {
		if g.Status != entities.GameStatusLobby {
			return gameerr.InvalidStatef("game is not in lobby state")
		}
		g.Status = entities.GameStatusInProgress
		return nil
	})
	if err != nil {
		if gameerr.IsInvalidState(err) {
			c.JSON(http.StatusConflict, gin.H{"error": "Game is not in lobby state"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not start game"})
		return
	}

	assignment, err := h.roster.AssignRoles(ctx, gameID)
	if err != nil {
		// Restore the lobby so the host can fix the issue and retry
		if _, rbErr := h.gameRepo.Mutate(ctx, gameID, func(g *entities.Game) error {
			g.Status = entities.GameStatusLobby
			return nil
		}); rbErr != nil {
			log.Printf("[%s] Could not roll back failed start: %v", gameID, rbErr)
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	// Persist phase=night round=1 before anything is broadcast
	if _, err := h.engine.AdvancePhase(ctx, gameID); err != nil {
		log.Printf("[%s] Could not open the first night: %v", gameID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not start game"})
		return
	}

	cards := make([]*hub.RoleCard, 0, len(assignment.Assignments))
	for _, a := range assignment.Assignments {
		cards = append(cards, &hub.RoleCard{
			PlayerID:       a.PlayerID,
			Type:           hub.TypeRole,
			Role:           string(a.Role),
			CharacterName:  a.CharacterName,
			CharacterIntro: a.CharacterIntro,
			Description:    a.Role.Description(),
		})
	}
	h.starter.OnGameStarted(ctx, gameID, cards)

	log.Printf("[%s] Game started with %d players, cast: %v",
		gameID, len(assignment.Assignments), assignment.CharacterCast)
	c.JSON(http.StatusOK, gin.H{
		"status":         "started",
		"game_id":        gameID,
		"character_cast": assignment.CharacterCast,
		// Never exposed over HTTP; clients learn it from the WS snapshot
		"ai_character": nil,
	})
}
