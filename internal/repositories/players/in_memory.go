package players

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/firesidegames/betrayal/internal/entities"
	gameerr "github.com/firesidegames/betrayal/internal/errors"
)

// inMemoryRepository implements Repository using in-memory storage
type inMemoryRepository struct {
	mu sync.RWMutex
	// gameID -> playerID -> player
	players map[string]map[string]*entities.Player
}

// NewInMemoryRepository creates a new in-memory player repository
func NewInMemoryRepository() Repository {
	return &inMemoryRepository{
		players: make(map[string]map[string]*entities.Player),
	}
}

func copyPlayer(player *entities.Player) *entities.Player {
	playerCopy := *player
	return &playerCopy
}

// Create persists a new player
func (r *inMemoryRepository) Create(ctx context.Context, player *entities.Player) error {
	if player == nil {
		return errors.New("player cannot be nil")
	}
	if player.ID == "" || player.GameID == "" {
		return errors.New("player ID and game ID cannot be empty")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	byGame, ok := r.players[player.GameID]
	if !ok {
		byGame = make(map[string]*entities.Player)
		r.players[player.GameID] = byGame
	}

	if _, exists := byGame[player.ID]; exists {
		return gameerr.Newf(gameerr.CodeAlreadyExists, "player with ID %s already exists", player.ID)
	}

	player.JoinedAt = time.Now()
	byGame[player.ID] = copyPlayer(player)
	return nil
}

// Get retrieves one player
func (r *inMemoryRepository) Get(ctx context.Context, gameID, playerID string) (*entities.Player, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	player, exists := r.players[gameID][playerID]
	if !exists {
		return nil, gameerr.NotFoundf("player not found: %s", playerID)
	}

	return copyPlayer(player), nil
}

// Update overwrites an existing player
func (r *inMemoryRepository) Update(ctx context.Context, player *entities.Player) error {
	if player == nil {
		return errors.New("player cannot be nil")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.players[player.GameID][player.ID]; !exists {
		return gameerr.NotFoundf("player not found: %s", player.ID)
	}

	r.players[player.GameID][player.ID] = copyPlayer(player)
	return nil
}

// Mutate applies fn while holding the write lock
func (r *inMemoryRepository) Mutate(ctx context.Context, gameID, playerID string, fn func(*entities.Player) error) (*entities.Player, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, exists := r.players[gameID][playerID]
	if !exists {
		return nil, gameerr.NotFoundf("player not found: %s", playerID)
	}

	player := copyPlayer(stored)
	if err := fn(player); err != nil {
		return nil, err
	}

	r.players[gameID][playerID] = copyPlayer(player)
	return player, nil
}

// ListByGame retrieves all players of a game ordered by join time
func (r *inMemoryRepository) ListByGame(ctx context.Context, gameID string) ([]*entities.Player, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	players := make([]*entities.Player, 0, len(r.players[gameID]))
	for _, player := range r.players[gameID] {
		players = append(players, copyPlayer(player))
	}

	sort.Slice(players, func(i, j int) bool {
		if players[i].JoinedAt.Equal(players[j].JoinedAt) {
			return players[i].ID < players[j].ID
		}
		return players[i].JoinedAt.Before(players[j].JoinedAt)
	})

	return players, nil
}

// ClearVotes resets every player's vote in a game
func (r *inMemoryRepository) ClearVotes(ctx context.Context, gameID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, player := range r.players[gameID] {
		player.VotedFor = ""
	}
	return nil
}

// ClearNightActions resets every player's pending night action in a game
func (r *inMemoryRepository) ClearNightActions(ctx context.Context, gameID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, player := range r.players[gameID] {
		player.NightAction = ""
	}
	return nil
}
