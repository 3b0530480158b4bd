package chat

import (
	"context"
	"sync"
	"time"

	"github.com/firesidegames/betrayal/internal/entities"
	gameerr "github.com/firesidegames/betrayal/internal/errors"
)

type inMemoryRepo struct {
	mu          sync.RWMutex
	transcripts map[string][]*entities.ChatMessage
}

// NewInMemoryRepository creates a new in-memory chat repository for testing
func NewInMemoryRepository() Repository {
	return &inMemoryRepo{
		transcripts: make(map[string][]*entities.ChatMessage),
	}
}

func (r *inMemoryRepo) Append(_ context.Context, msg *entities.ChatMessage) error {
	if msg == nil {
		return gameerr.InvalidArgument("message cannot be nil")
	}
	if msg.ID == "" {
		return gameerr.InvalidArgument("message ID cannot be empty")
	}
	if msg.GameID == "" {
		return gameerr.InvalidArgument("message game ID cannot be empty")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now()
	}

	stored := *msg
	r.transcripts[msg.GameID] = append(r.transcripts[msg.GameID], &stored)

	return nil
}

func (r *inMemoryRepo) ListRecent(_ context.Context, gameID string, limit int) ([]*entities.ChatMessage, error) {
	if gameID == "" {
		return nil, gameerr.InvalidArgument("game ID cannot be empty")
	}
	if limit <= 0 {
		limit = DefaultRecentLimit
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	transcript := r.transcripts[gameID]
	start := len(transcript) - limit
	if start < 0 {
		start = 0
	}

	messages := make([]*entities.ChatMessage, 0, len(transcript)-start)
	for _, msg := range transcript[start:] {
		copied := *msg
		messages = append(messages, &copied)
	}

	return messages, nil
}
