package ws_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/firesidegames/betrayal/internal/entities"
	"github.com/firesidegames/betrayal/internal/repositories/games"
	"github.com/firesidegames/betrayal/internal/repositories/players"
	"github.com/firesidegames/betrayal/internal/ws"
)

const testGameID = "AB12CD34"

// testHarness runs a real websocket server whose handler registers every
// incoming connection with the hub under the player ID from the query.
type testHarness struct {
	t       *testing.T
	hub     *ws.Hub
	games   games.Repository
	players players.Repository
	server  *httptest.Server
}

func newHarness(t *testing.T) *testHarness {
	t.Helper()

	h := &testHarness{
		t:       t,
		games:   games.NewInMemoryRepository(),
		players: players.NewInMemoryRepository(),
	}
	h.hub = ws.NewHub(&ws.Config{
		GameRepository:   h.games,
		PlayerRepository: h.players,
	})

	upgrader := websocket.Upgrader{}
	h.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		require.NoError(t, err)
		h.hub.Register(testGameID, r.URL.Query().Get("player"), conn)
	}))
	t.Cleanup(h.server.Close)
	return h
}

// dial opens a client connection registered under the given player ID
func (h *testHarness) dial(playerID string) *websocket.Conn {
	h.t.Helper()

	url := "ws" + strings.TrimPrefix(h.server.URL, "http") + "?player=" + playerID
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(h.t, err)
	h.t.Cleanup(func() { conn.Close() })
	return conn
}

// readMessage reads one frame with a deadline so a failure does not hang
func readMessage(t *testing.T, conn *websocket.Conn) map[string]any {
	t.Helper()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, payload, err := conn.ReadMessage()
	require.NoError(t, err)

	var msg map[string]any
	require.NoError(t, json.Unmarshal(payload, &msg))
	return msg
}

func TestBroadcastReachesEveryConnection(t *testing.T) {
	h := newHarness(t)
	alice := h.dial("player-1")
	bob := h.dial("player-2")

	require.Eventually(t, func() bool {
		return h.hub.Connected(testGameID, "player-1") && h.hub.Connected(testGameID, "player-2")
	}, time.Second, 10*time.Millisecond)

	h.hub.BroadcastVoteUpdate(testGameID,
		map[string]string{"Scholar Theron": "Merchant Elara"},
		map[string]int{"Merchant Elara": 1},
	)

	for _, conn := range []*websocket.Conn{alice, bob} {
		msg := readMessage(t, conn)
		assert.Equal(t, "vote_update", msg["type"])
		assert.Equal(t, float64(1), msg["tally"].(map[string]any)["Merchant Elara"])
	}
}

func TestBroadcastSkipsExcludedPlayer(t *testing.T) {
	h := newHarness(t)
	alice := h.dial("player-1")
	bob := h.dial("player-2")

	require.Eventually(t, func() bool {
		return h.hub.Connected(testGameID, "player-1") && h.hub.Connected(testGameID, "player-2")
	}, time.Second, 10*time.Millisecond)

	h.hub.Broadcast(testGameID, &ws.PresenceMessage{
		Type:          ws.TypePlayerJoined,
		CharacterName: "Merchant Elara",
		Count:         2,
	}, "player-1")

	msg := readMessage(t, bob)
	assert.Equal(t, "player_joined", msg["type"])
	assert.Equal(t, "Merchant Elara", msg["characterName"])

	// Alice was excluded, so her connection stays silent
	require.NoError(t, alice.SetReadDeadline(time.Now().Add(200*time.Millisecond)))
	_, _, err := alice.ReadMessage()
	assert.Error(t, err)
}

func TestSendToTargetsOnePlayer(t *testing.T) {
	h := newHarness(t)
	alice := h.dial("player-1")
	bob := h.dial("player-2")

	require.Eventually(t, func() bool {
		return h.hub.Connected(testGameID, "player-1") && h.hub.Connected(testGameID, "player-2")
	}, time.Second, 10*time.Millisecond)

	h.hub.SendTo(testGameID, "player-1", &ws.SeerResultMessage{
		Type:           ws.TypeSeerResult,
		Character:      "Innkeeper Bram",
		IsShapeshifter: true,
	})

	msg := readMessage(t, alice)
	assert.Equal(t, "seer_result", msg["type"])
	assert.Equal(t, true, msg["isShapeshifter"])

	// Bob must not have received anything
	require.NoError(t, bob.SetReadDeadline(time.Now().Add(200*time.Millisecond)))
	_, _, err := bob.ReadMessage()
	assert.Error(t, err)
}

func TestSendToMissingPlayerIsNoop(t *testing.T) {
	h := newHarness(t)
	assert.NotPanics(t, func() {
		h.hub.SendTo(testGameID, "nobody", ws.NewError("WRONG_PHASE", "not now"))
	})
}

func TestRegisterReplacesExistingConnection(t *testing.T) {
	h := newHarness(t)
	first := h.dial("player-1")

	require.Eventually(t, func() bool {
		return h.hub.Connected(testGameID, "player-1")
	}, time.Second, 10*time.Millisecond)

	second := h.dial("player-1")
	require.Eventually(t, func() bool {
		// The replaced connection gets closed by the hub
		first.SetReadDeadline(time.Now().Add(50 * time.Millisecond))
		_, _, err := first.ReadMessage()
		return err != nil
	}, 2*time.Second, 50*time.Millisecond)

	h.hub.Broadcast(testGameID, &ws.ReadyMessage{Type: ws.TypePlayerReady, CharacterName: "Scholar Theron"})
	msg := readMessage(t, second)
	assert.Equal(t, "player_ready", msg["type"])
}

func TestUnregisterFreesEmptyGame(t *testing.T) {
	h := newHarness(t)
	conn := h.dial("player-1")

	require.Eventually(t, func() bool {
		return h.hub.Connected(testGameID, "player-1")
	}, time.Second, 10*time.Millisecond)

	conn.Close()
	// The hub only notices on the next write
	h.hub.Broadcast(testGameID, &ws.ReadyMessage{Type: ws.TypePlayerReady})

	require.Eventually(t, func() bool {
		return !h.hub.Connected(testGameID, "player-1")
	}, time.Second, 10*time.Millisecond)
}

func TestSnapshotRedactsRoles(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	game := entities.NewGame(testGameID, "player-1", entities.DifficultyNormal)
	game.Status = entities.GameStatusInProgress
	game.Phase = entities.PhaseDayDiscussion
	game.Round = 2
	game.Adversary = entities.NewAdversary("Innkeeper Bram", "The innkeeper pours ale.")
	require.NoError(t, h.games.Create(ctx, game))

	alice := entities.NewPlayer("player-1", testGameID, "alice")
	alice.Role = entities.RoleSeer
	alice.CharacterName = "Scholar Theron"
	require.NoError(t, h.players.Create(ctx, alice))

	snap, err := h.hub.Snapshot(ctx, game)
	require.NoError(t, err)

	assert.Equal(t, entities.PhaseDayDiscussion, snap.Phase)
	assert.Equal(t, 2, snap.Round)
	require.Len(t, snap.Players, 1)
	assert.Equal(t, "Scholar Theron", snap.Players[0].CharacterName)
	require.NotNil(t, snap.AICharacter)
	assert.Equal(t, "Innkeeper Bram", snap.AICharacter.Name)

	payload, err := json.Marshal(snap)
	require.NoError(t, err)
	assert.NotContains(t, string(payload), "seer")
	assert.NotContains(t, string(payload), "hostile")
}

func TestSnapshotHidesAdversaryInLobby(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	game := entities.NewGame(testGameID, "player-1", entities.DifficultyNormal)
	require.NoError(t, h.games.Create(ctx, game))

	snap, err := h.hub.Snapshot(ctx, game)
	require.NoError(t, err)
	assert.Nil(t, snap.AICharacter)
}

func TestBuildRevealsUnmasksEveryone(t *testing.T) {
	players := []*entities.Player{
		{Name: "alice", CharacterName: "Scholar Theron", Role: entities.RoleSeer, Alive: true},
		{Name: "bob", CharacterName: "Herbalist Mira", Role: entities.RoleVillager, Alive: false},
		{Name: "carol", CharacterName: "Huntress Reva"}, // role never assigned
	}
	adversary := entities.NewAdversary("Innkeeper Bram", "")
	adversary.Alive = false

	reveals := ws.BuildReveals(players, adversary)
	require.Len(t, reveals, 4)

	assert.Equal(t, "seer", reveals[0].Role)
	assert.False(t, reveals[1].Alive)
	assert.Equal(t, "villager", reveals[2].Role)

	ai := reveals[3]
	assert.True(t, ai.IsAI)
	assert.True(t, ai.IsTraitor)
	assert.Equal(t, "shapeshifter", ai.Role)
	assert.Equal(t, "AI", ai.PlayerName)
}

func TestBuildRevealsLoyalAdversaryKeepsCoverRole(t *testing.T) {
	adversary := entities.NewAdversary("Innkeeper Bram", "")
	adversary.Hostile = false
	adversary.Role = entities.RoleVillager

	reveals := ws.BuildReveals(nil, adversary)
	require.Len(t, reveals, 1)
	assert.Equal(t, "villager", reveals[0].Role)
	assert.False(t, reveals[0].IsTraitor)
	assert.True(t, reveals[0].IsAI)
}

func TestBuildTimelineGroupsByRoundAndSkipsSetup(t *testing.T) {
	events := []*entities.GameEvent{
		{ID: "e0", Type: entities.EventVote, Round: 0},
		{ID: "e1", Type: entities.EventNightTarget, Round: 2, Actor: "Innkeeper Bram", Target: "Herbalist Mira"},
		{ID: "e2", Type: entities.EventElimination, Round: 1, Target: "Blacksmith Garin", Visible: true},
		{ID: "e3", Type: entities.EventNightHeal, Round: 1, Actor: "Herbalist Mira"},
	}

	timeline := ws.BuildTimeline(events)
	require.Len(t, timeline, 2)

	assert.Equal(t, 1, timeline[0].Round)
	require.Len(t, timeline[0].Events, 2)
	assert.Equal(t, "e2", timeline[0].Events[0].ID)
	assert.True(t, timeline[0].Events[0].Visible)

	assert.Equal(t, 2, timeline[1].Round)
	assert.Equal(t, "Herbalist Mira", timeline[1].Events[0].Target)
}
