package chat

//go:generate mockgen -destination=mock/mock_repository.go -package=mockchat -source=repository.go

import (
	"context"

	"github.com/firesidegames/betrayal/internal/entities"
)

// DefaultRecentLimit is how many messages ListRecent returns when the
// caller does not ask for a specific window.
const DefaultRecentLimit = 50

// Repository defines the interface for game chat transcripts
type Repository interface {
	// Append adds one message to a game's transcript
	Append(ctx context.Context, msg *entities.ChatMessage) error

	// ListRecent retrieves up to limit of the newest messages in
	// chronological order. A non-positive limit uses DefaultRecentLimit.
	ListRecent(ctx context.Context, gameID string, limit int) ([]*entities.ChatMessage, error)
}
