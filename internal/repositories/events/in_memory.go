package events

import (
	"context"
	"sync"
	"time"

	"github.com/firesidegames/betrayal/internal/entities"
	gameerr "github.com/firesidegames/betrayal/internal/errors"
)

type inMemoryRepo struct {
	mu   sync.RWMutex
	logs map[string][]*entities.GameEvent
}

// NewInMemoryRepository creates a new in-memory event repository for testing
func NewInMemoryRepository() Repository {
	return &inMemoryRepo{
		logs: make(map[string][]*entities.GameEvent),
	}
}

func (r *inMemoryRepo) Append(_ context.Context, event *entities.GameEvent) error {
	if event == nil {
		return gameerr.InvalidArgument("event cannot be nil")
	}
	if event.ID == "" {
		return gameerr.InvalidArgument("event ID cannot be empty")
	}
	if event.GameID == "" {
		return gameerr.InvalidArgument("event game ID cannot be empty")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	stored := copyEvent(event)
	r.logs[event.GameID] = append(r.logs[event.GameID], stored)

	return nil
}

func (r *inMemoryRepo) List(_ context.Context, gameID string) ([]*entities.GameEvent, error) {
	if gameID == "" {
		return nil, gameerr.InvalidArgument("game ID cannot be empty")
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	log := r.logs[gameID]
	events := make([]*entities.GameEvent, 0, len(log))
	for _, event := range log {
		events = append(events, copyEvent(event))
	}

	return events, nil
}

func copyEvent(event *entities.GameEvent) *entities.GameEvent {
	copied := *event
	if event.Data != nil {
		copied.Data = make(map[string]any, len(event.Data))
		for k, v := range event.Data {
			copied.Data[k] = v
		}
	}
	return &copied
}
