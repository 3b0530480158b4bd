package api

import (
	"context"
	"sync"

	"github.com/gin-gonic/gin"

	"github.com/firesidegames/betrayal/internal/repositories/events"
	"github.com/firesidegames/betrayal/internal/repositories/games"
	"github.com/firesidegames/betrayal/internal/repositories/players"
	"github.com/firesidegames/betrayal/internal/services/engine"
	"github.com/firesidegames/betrayal/internal/services/narrator"
	"github.com/firesidegames/betrayal/internal/services/roster"
	"github.com/firesidegames/betrayal/internal/uuid"
	hub "github.com/firesidegames/betrayal/internal/ws"
)

// GameStarter runs the real-time side of a game start: phase broadcast,
// role cards, narrator session, first night selection. Implemented by
// the websocket handler.
type GameStarter interface {
	OnGameStarted(ctx context.Context, gameID string, cards []*hub.RoleCard)
}

// Handler serves the management HTTP API: lobby lifecycle, state reads,
// and the post-game reveal.
type Handler struct {
	gameRepo   games.Repository
	playerRepo players.Repository
	eventRepo  events.Repository
	engine     engine.Service
	roster     roster.Service
	narrator   *narrator.Manager
	starter    GameStarter
	uuider     uuid.Generator

	publicBaseURL string

	previewMu    sync.Mutex
	previewCache map[string]string
}

// HandlerConfig holds configuration for the HTTP API handler
type HandlerConfig struct {
	GameRepository   games.Repository   // Required
	PlayerRepository players.Repository // Required
	EventRepository  events.Repository  // Required
	Engine           engine.Service     // Required
	Roster           roster.Service     // Required
	Narrator         *narrator.Manager  // Required
	GameStarter      GameStarter        // Required
	UUIDGenerator    uuid.Generator     // Optional, will use default if nil
	PublicBaseURL    string             // Optional, used for join links and QR codes
}

// NewHandler creates the HTTP API handler
func NewHandler(cfg *HandlerConfig) *Handler {
	if cfg.GameRepository == nil {
		panic("game repository is required")
	}
	if cfg.PlayerRepository == nil {
		panic("player repository is required")
	}
	if cfg.EventRepository == nil {
		panic("event repository is required")
	}
	if cfg.Engine == nil {
		panic("engine is required")
	}
	if cfg.Roster == nil {
		panic("roster service is required")
	}
	if cfg.Narrator == nil {
		panic("narrator manager is required")
	}
	if cfg.GameStarter == nil {
		panic("game starter is required")
	}

	h := &Handler{
		gameRepo:      cfg.GameRepository,
		playerRepo:    cfg.PlayerRepository,
		eventRepo:     cfg.EventRepository,
		engine:        cfg.Engine,
		roster:        cfg.Roster,
		narrator:      cfg.Narrator,
		starter:       cfg.GameStarter,
		uuider:        cfg.UUIDGenerator,
		publicBaseURL: cfg.PublicBaseURL,
		previewCache:  make(map[string]string),
	}
	if h.uuider == nil {
		h.uuider = uuid.NewGoogleUUIDGenerator()
	}
	if h.publicBaseURL == "" {
		h.publicBaseURL = "http://localhost:8080"
	}
	return h
}

// RegisterRoutes attaches every API route to the router
func (h *Handler) RegisterRoutes(r *gin.Engine) {
	r.GET("/healthz", h.Healthz)

	api := r.Group("/api")
	{
		api.POST("/games", h.CreateGame)
		api.POST("/games/:game_id/join", h.JoinGame)
		api.GET("/games/:game_id", h.GetGame)
		api.GET("/games/:game_id/qr", h.JoinQR)
		api.POST("/games/:game_id/start", h.StartGame)
		api.GET("/games/:game_id/events", h.GetEvents)
		api.GET("/games/:game_id/result", h.GetResult)
		api.GET("/narrator/preview/:preset", h.NarratorPreview)
	}
}

// Healthz reports liveness
func (h *Handler) Healthz(c *gin.Context) {
	c.JSON(200, gin.H{"status": "ok"})
}
