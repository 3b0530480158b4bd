package archive

//go:generate mockgen -destination=mock/mock_repository.go -package=mockarchive -source=repository.go

import (
	"context"
)

// Repository defines the interface for the long-term game archive
type Repository interface {
	// SaveRecord persists a finished game's summary and its signals
	SaveRecord(ctx context.Context, record *GameRecord) error

	// GetRecord retrieves one archived game by its session code
	GetRecord(ctx context.Context, gameID string) (*GameRecord, error)

	// CountRecords reports how many games have been archived
	CountRecords(ctx context.Context) (int64, error)

	// CatchStats aggregates catch rate and game length. Pass an empty
	// difficulty to aggregate across all difficulties.
	CatchStats(ctx context.Context, difficulty string) (*CatchStats, error)

	// ListRecords returns the most recently archived games, newest first,
	// with their signals attached. A limit of zero or less returns all.
	ListRecords(ctx context.Context, limit int) ([]*GameRecord, error)

	// SaveBrief overwrites the stored cross-game strategy brief
	SaveBrief(ctx context.Context, brief *IntelligenceBrief) error

	// GetBrief returns the latest strategy brief, or a not-found error
	// when none has been generated yet
	GetBrief(ctx context.Context) (*IntelligenceBrief, error)
}
