package games

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/firesidegames/betrayal/internal/entities"
	gameerr "github.com/firesidegames/betrayal/internal/errors"
)

// inMemoryRepository implements Repository using in-memory storage
type inMemoryRepository struct {
	mu    sync.RWMutex
	games map[string]*entities.Game
}

// NewInMemoryRepository creates a new in-memory game repository
func NewInMemoryRepository() Repository {
	return &inMemoryRepository{
		games: make(map[string]*entities.Game),
	}
}

// copyGame returns a deep copy so callers cannot mutate stored state
func copyGame(game *entities.Game) *entities.Game {
	gameCopy := *game
	if game.CharacterCast != nil {
		gameCopy.CharacterCast = append([]string(nil), game.CharacterCast...)
	}
	if game.Adversary != nil {
		adversaryCopy := *game.Adversary
		gameCopy.Adversary = &adversaryCopy
	}
	return &gameCopy
}

// Create persists a new game
func (r *inMemoryRepository) Create(ctx context.Context, game *entities.Game) error {
	if game == nil {
		return errors.New("game cannot be nil")
	}
	if game.ID == "" {
		return errors.New("game ID cannot be empty")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.games[game.ID]; exists {
		return gameerr.Newf(gameerr.CodeAlreadyExists, "game with ID %s already exists", game.ID)
	}

	now := time.Now()
	game.CreatedAt = now
	game.UpdatedAt = now

	r.games[game.ID] = copyGame(game)
	return nil
}

// Get retrieves a game by ID
func (r *inMemoryRepository) Get(ctx context.Context, id string) (*entities.Game, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	game, exists := r.games[id]
	if !exists {
		return nil, gameerr.NotFoundf("game not found: %s", id)
	}

	return copyGame(game), nil
}

// Update overwrites an existing game
func (r *inMemoryRepository) Update(ctx context.Context, game *entities.Game) error {
	if game == nil {
		return errors.New("game cannot be nil")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.games[game.ID]; !exists {
		return gameerr.NotFoundf("game not found: %s", game.ID)
	}

	game.UpdatedAt = time.Now()
	r.games[game.ID] = copyGame(game)
	return nil
}

// Mutate applies fn while holding the write lock, so concurrent mutations
// serialize instead of clobbering each other
func (r *inMemoryRepository) Mutate(ctx context.Context, id string, fn func(*entities.Game) error) (*entities.Game, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, exists := r.games[id]
	if !exists {
		return nil, gameerr.NotFoundf("game not found: %s", id)
	}

	game := copyGame(stored)
	if err := fn(game); err != nil {
		return nil, err
	}
	game.UpdatedAt = time.Now()

	r.games[id] = copyGame(game)
	return game, nil
}

// Delete removes a game
func (r *inMemoryRepository) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.games, id)
	return nil
}

// List retrieves all known games
func (r *inMemoryRepository) List(ctx context.Context) ([]*entities.Game, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	games := make([]*entities.Game, 0, len(r.games))
	for _, game := range r.games {
		games = append(games, copyGame(game))
	}

	return games, nil
}
