package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/firesidegames/betrayal/internal/entities"
	"github.com/firesidegames/betrayal/internal/handlers/api"
	"github.com/firesidegames/betrayal/internal/repositories/chat"
	"github.com/firesidegames/betrayal/internal/repositories/events"
	"github.com/firesidegames/betrayal/internal/repositories/games"
	"github.com/firesidegames/betrayal/internal/repositories/players"
	"github.com/firesidegames/betrayal/internal/services/engine"
	"github.com/firesidegames/betrayal/internal/services/narrator"
	"github.com/firesidegames/betrayal/internal/services/roster"
	hub "github.com/firesidegames/betrayal/internal/ws"
)

// startRecorder captures OnGameStarted calls instead of broadcasting
type startRecorder struct {
	mu    sync.Mutex
	calls int
	cards []*hub.RoleCard
}

func (s *startRecorder) OnGameStarted(_ context.Context, _ string, cards []*hub.RoleCard) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	s.cards = cards
}

func (s *startRecorder) snapshot() (int, []*hub.RoleCard) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls, s.cards
}

type fixture struct {
	ctx     context.Context
	games   games.Repository
	players players.Repository
	events  events.Repository
	starter *startRecorder
	router  *gin.Engine
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	f := &fixture{
		ctx:     context.Background(),
		games:   games.NewInMemoryRepository(),
		players: players.NewInMemoryRepository(),
		events:  events.NewInMemoryRepository(),
		starter: &startRecorder{},
	}
	chats := chat.NewInMemoryRepository()
	hubInst := hub.NewHub(&hub.Config{GameRepository: f.games, PlayerRepository: f.players})
	narratorMgr := narrator.NewManager(&narrator.ManagerConfig{
		GameRepository: f.games,
		ChatRepository: chats,
		Broadcaster:    hubInst,
	})
	handler := api.NewHandler(&api.HandlerConfig{
		GameRepository:   f.games,
		PlayerRepository: f.players,
		EventRepository:  f.events,
		Engine: engine.NewService(&engine.ServiceConfig{
			GameRepository:   f.games,
			PlayerRepository: f.players,
			EventRepository:  f.events,
		}),
		Roster: roster.NewService(&roster.ServiceConfig{
			GameRepository:   f.games,
			PlayerRepository: f.players,
		}),
		Narrator:      narratorMgr,
		GameStarter:   f.starter,
		PublicBaseURL: "https://play.example.com",
	})

	f.router = gin.New()
	handler.RegisterRoutes(f.router)
	return f
}

func (f *fixture) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

// createGame runs the create flow and returns (gameID, hostPlayerID)
func (f *fixture) createGame(t *testing.T) (string, string) {
	t.Helper()
	w := f.do(t, http.MethodPost, "/api/games", map[string]any{
		"host_name":  "alice",
		"difficulty": "normal",
	})
	require.Equal(t, http.StatusCreated, w.Code)
	resp := decode(t, w)
	return resp["game_id"].(string), resp["host_player_id"].(string)
}

func (f *fixture) joinPlayer(t *testing.T, gameID, name string) string {
	t.Helper()
	w := f.do(t, http.MethodPost, "/api/games/"+gameID+"/join", map[string]any{"player_name": name})
	require.Equal(t, http.StatusOK, w.Code)
	return decode(t, w)["player_id"].(string)
}

func TestHealthz(t *testing.T) {
	f := newFixture(t)
	w := f.do(t, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestCreateGame(t *testing.T) {
	f := newFixture(t)
	gameID, hostID := f.createGame(t)

	assert.Len(t, gameID, 8)
	game, err := f.games.Get(f.ctx, gameID)
	require.NoError(t, err)
	assert.Equal(t, entities.GameStatusLobby, game.Status)
	assert.Equal(t, hostID, game.HostPlayerID)
	assert.Equal(t, "classic", game.NarratorPreset)

	host, err := f.players.Get(f.ctx, gameID, hostID)
	require.NoError(t, err)
	assert.Equal(t, "alice", host.Name)
}

func TestCreateGameValidation(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, http.MethodPost, "/api/games", map[string]any{"difficulty": "normal"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = f.do(t, http.MethodPost, "/api/games", map[string]any{"host_name": "alice", "difficulty": "nightmare"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = f.do(t, http.MethodPost, "/api/games", map[string]any{"host_name": "alice", "narrator_preset": "shouty"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestJoinGame(t *testing.T) {
	f := newFixture(t)
	gameID, _ := f.createGame(t)

	playerID := f.joinPlayer(t, gameID, "bob")
	assert.NotEmpty(t, playerID)

	w := f.do(t, http.MethodPost, "/api/games/NOPE/join", map[string]any{"player_name": "carol"})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestJoinGameFull(t *testing.T) {
	f := newFixture(t)
	gameID, _ := f.createGame(t)

	// Host plus six joins fills all seven human seats
	for i := 0; i < 6; i++ {
		f.joinPlayer(t, gameID, fmt.Sprintf("player%d", i))
	}
	w := f.do(t, http.MethodPost, "/api/games/"+gameID+"/join", map[string]any{"player_name": "late"})
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestJoinGameAfterStartRejected(t *testing.T) {
	f := newFixture(t)
	gameID, hostID := f.createGame(t)
	f.joinPlayer(t, gameID, "bob")

	w := f.do(t, http.MethodPost, "/api/games/"+gameID+"/start?host_player_id="+hostID, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = f.do(t, http.MethodPost, "/api/games/"+gameID+"/join", map[string]any{"player_name": "late"})
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestGetGameShowsLobbySummaryOnlyInLobby(t *testing.T) {
	f := newFixture(t)
	gameID, hostID := f.createGame(t)
	f.joinPlayer(t, gameID, "bob")

	resp := decode(t, f.do(t, http.MethodGet, "/api/games/"+gameID, nil))
	assert.Equal(t, "lobby", resp["status"])
	assert.NotNil(t, resp["lobby_summary"])
	assert.Nil(t, resp["ai_character"])
	assert.Equal(t, float64(2), resp["player_count"])

	w := f.do(t, http.MethodPost, "/api/games/"+gameID+"/start?host_player_id="+hostID, nil)
	require.Equal(t, http.StatusOK, w.Code)

	resp = decode(t, f.do(t, http.MethodGet, "/api/games/"+gameID, nil))
	assert.Equal(t, "in_progress", resp["status"])
	assert.Nil(t, resp["lobby_summary"])

	// Public players must never include roles
	assert.NotContains(t, string(f.do(t, http.MethodGet, "/api/games/"+gameID, nil).Body.Bytes()), "seer")
}

func TestStartGame(t *testing.T) {
	f := newFixture(t)
	gameID, hostID := f.createGame(t)
	f.joinPlayer(t, gameID, "bob")
	f.joinPlayer(t, gameID, "carol")

	w := f.do(t, http.MethodPost, "/api/games/"+gameID+"/start?host_player_id="+hostID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	resp := decode(t, w)
	assert.Equal(t, "started", resp["status"])
	assert.Len(t, resp["character_cast"].([]any), 4)
	assert.Nil(t, resp["ai_character"])

	game, err := f.games.Get(f.ctx, gameID)
	require.NoError(t, err)
	assert.True(t, game.IsInProgress())
	assert.Equal(t, entities.PhaseNight, game.Phase)
	assert.Equal(t, 1, game.Round)
	require.NotNil(t, game.Adversary)

	calls, cards := f.starter.snapshot()
	assert.Equal(t, 1, calls)
	require.Len(t, cards, 3)
	for _, card := range cards {
		assert.NotEmpty(t, card.Role)
		assert.NotEmpty(t, card.CharacterName)
		assert.NotEmpty(t, card.Description)
	}
}

func TestStartGameAuthz(t *testing.T) {
	f := newFixture(t)
	gameID, hostID := f.createGame(t)
	f.joinPlayer(t, gameID, "bob")

	w := f.do(t, http.MethodPost, "/api/games/"+gameID+"/start?host_player_id=not-the-host", nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = f.do(t, http.MethodPost, "/api/games/"+gameID+"/start?host_player_id="+hostID, nil)
	require.Equal(t, http.StatusOK, w.Code)

	// Second start sees in_progress and conflicts
	w = f.do(t, http.MethodPost, "/api/games/"+gameID+"/start?host_player_id="+hostID, nil)
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestStartGameRollsBackWhenTooFewPlayers(t *testing.T) {
	f := newFixture(t)
	gameID, hostID := f.createGame(t)

	// Host alone cannot start
	w := f.do(t, http.MethodPost, "/api/games/"+gameID+"/start?host_player_id="+hostID, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	game, err := f.games.Get(f.ctx, gameID)
	require.NoError(t, err)
	assert.Equal(t, entities.GameStatusLobby, game.Status, "failed start must restore the lobby")

	calls, _ := f.starter.snapshot()
	assert.Zero(t, calls)
}

func TestJoinQR(t *testing.T) {
	f := newFixture(t)
	gameID, _ := f.createGame(t)

	w := f.do(t, http.MethodGet, "/api/games/"+gameID+"/qr", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "image/png", w.Header().Get("Content-Type"))
	assert.NotEmpty(t, w.Body.Bytes())

	w = f.do(t, http.MethodGet, "/api/games/NOPE/qr", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestGetEventsHidesFullLogUntilFinished(t *testing.T) {
	f := newFixture(t)
	gameID, _ := f.createGame(t)

	require.NoError(t, f.events.Append(f.ctx, &entities.GameEvent{
		ID: "e1", GameID: gameID, Type: entities.EventElimination,
		Round: 1, Target: "Blacksmith Garin", Visible: true,
	}))
	require.NoError(t, f.events.Append(f.ctx, &entities.GameEvent{
		ID: "e2", GameID: gameID, Type: entities.EventNightTarget,
		Round: 1, Actor: "Innkeeper Bram", Target: "Blacksmith Garin",
	}))

	resp := decode(t, f.do(t, http.MethodGet, "/api/games/"+gameID+"/events", nil))
	assert.Len(t, resp["events"].([]any), 1)

	w := f.do(t, http.MethodGet, "/api/games/"+gameID+"/events?visible_only=false", nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	_, err := f.games.Mutate(f.ctx, gameID, func(g *entities.Game) error {
		g.Status = entities.GameStatusFinished
		return nil
	})
	require.NoError(t, err)

	resp = decode(t, f.do(t, http.MethodGet, "/api/games/"+gameID+"/events?visible_only=false", nil))
	assert.Len(t, resp["events"].([]any), 2)
}

func TestGetResultLockedUntilFinished(t *testing.T) {
	f := newFixture(t)
	gameID, _ := f.createGame(t)

	w := f.do(t, http.MethodGet, "/api/games/"+gameID+"/result", nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	_, err := f.games.Mutate(f.ctx, gameID, func(g *entities.Game) error {
		g.Status = entities.GameStatusFinished
		g.Winner = engine.WinnerVillagers
		g.WinReason = engine.ReasonShapeshifterCaught
		g.Adversary = entities.NewAdversary("Innkeeper Bram", "")
		g.Adversary.Alive = false
		return nil
	})
	require.NoError(t, err)

	resp := decode(t, f.do(t, http.MethodGet, "/api/games/"+gameID+"/result", nil))
	assert.Equal(t, engine.WinnerVillagers, resp["winner"])

	reveals := resp["reveals"].([]any)
	require.NotEmpty(t, reveals)
	ai := reveals[len(reveals)-1].(map[string]any)
	assert.Equal(t, true, ai["isAI"])
	assert.Equal(t, "shapeshifter", ai["role"])
}

func TestNarratorPreviewWithoutModel(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, http.MethodGet, "/api/narrator/preview/classic", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	w = f.do(t, http.MethodGet, "/api/narrator/preview/shouty", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
