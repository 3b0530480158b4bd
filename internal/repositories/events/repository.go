package events

//go:generate mockgen -destination=mock/mock_repository.go -package=mockevents -source=repository.go

import (
	"context"

	"github.com/firesidegames/betrayal/internal/entities"
)

// Repository defines the interface for the append-only game event log
type Repository interface {
	// Append adds one event to a game's log
	Append(ctx context.Context, event *entities.GameEvent) error

	// List retrieves a game's full event log in append order
	List(ctx context.Context, gameID string) ([]*entities.GameEvent, error)
}

// FilterVisible keeps only events players may see before the game ends
func FilterVisible(events []*entities.GameEvent) []*entities.GameEvent {
	filtered := make([]*entities.GameEvent, 0, len(events))
	for _, event := range events {
		if event.Visible {
			filtered = append(filtered, event)
		}
	}
	return filtered
}

// FilterByRound keeps only events logged during the given round
func FilterByRound(events []*entities.GameEvent, round int) []*entities.GameEvent {
	filtered := make([]*entities.GameEvent, 0, len(events))
	for _, event := range events {
		if event.Round == round {
			filtered = append(filtered, event)
		}
	}
	return filtered
}

// FilterByType keeps only events of the given type
func FilterByType(events []*entities.GameEvent, eventType string) []*entities.GameEvent {
	filtered := make([]*entities.GameEvent, 0, len(events))
	for _, event := range events {
		if event.Type == eventType {
			filtered = append(filtered, event)
		}
	}
	return filtered
}
