package games

//go:generate mockgen -destination=mock/mock_repository.go -package=mockgames -source=repository.go

import (
	"context"

	"github.com/firesidegames/betrayal/internal/entities"
)

// Repository defines the interface for game storage
type Repository interface {
	// Create persists a new game, failing if the ID is taken
	Create(ctx context.Context, game *entities.Game) error

	// Get retrieves a game by ID
	Get(ctx context.Context, id string) (*entities.Game, error)

	// Update overwrites an existing game
	Update(ctx context.Context, game *entities.Game) error

	// Mutate applies fn to the stored game under an optimistic lock and
	// persists the result. fn must be side-effect free because it is
	// retried when a concurrent writer wins the lock.
	Mutate(ctx context.Context, id string, fn func(*entities.Game) error) (*entities.Game, error)

	// Delete removes a game
	Delete(ctx context.Context, id string) error

	// List retrieves all known games
	List(ctx context.Context) ([]*entities.Game, error)
}
