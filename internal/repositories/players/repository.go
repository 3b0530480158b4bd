package players

//go:generate mockgen -destination=mock/mock_repository.go -package=mockplayers -source=repository.go

import (
	"context"

	"github.com/firesidegames/betrayal/internal/entities"
)

// Repository defines the interface for player storage. Players always
// belong to exactly one game.
type Repository interface {
	// Create persists a new player and indexes it under its game
	Create(ctx context.Context, player *entities.Player) error

	// Get retrieves one player
	Get(ctx context.Context, gameID, playerID string) (*entities.Player, error)

	// Update overwrites an existing player
	Update(ctx context.Context, player *entities.Player) error

	// Mutate applies fn to the stored player under an optimistic lock.
	// fn must be side-effect free because it is retried on conflicts.
	Mutate(ctx context.Context, gameID, playerID string, fn func(*entities.Player) error) (*entities.Player, error)

	// ListByGame retrieves all players of a game ordered by join time
	ListByGame(ctx context.Context, gameID string) ([]*entities.Player, error)

	// ClearVotes resets every player's vote in a game
	ClearVotes(ctx context.Context, gameID string) error

	// ClearNightActions resets every player's pending night action in a game
	ClearNightActions(ctx context.Context, gameID string) error
}
