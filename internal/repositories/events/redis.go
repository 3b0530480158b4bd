package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/firesidegames/betrayal/internal/clock"
	"github.com/firesidegames/betrayal/internal/entities"
	gameerr "github.com/firesidegames/betrayal/internal/errors"
)

const (
	eventLogKeyFormat = "game:%s:events"

	defaultEventTTL = 24 * time.Hour
)

type redisRepo struct {
	client       redis.UniversalClient
	timeProvider clock.TimeProvider
	eventTTL     time.Duration
}

// RedisRepoConfig holds configuration for the redis event repository
type RedisRepoConfig struct {
	Client       redis.UniversalClient
	TimeProvider clock.TimeProvider
	EventTTL     time.Duration
}

// NewRedisRepository creates a new redis-backed event repository
func NewRedisRepository(cfg *RedisRepoConfig) Repository {
	if cfg.Client == nil {
		panic("redis client is required")
	}

	ttl := cfg.EventTTL
	if ttl == 0 {
		ttl = defaultEventTTL
	}

	timeProvider := cfg.TimeProvider
	if timeProvider == nil {
		timeProvider = clock.NewTimeProvider()
	}

	return &redisRepo{
		client:       cfg.Client,
		timeProvider: timeProvider,
		eventTTL:     ttl,
	}
}

func (r *redisRepo) Append(ctx context.Context, event *entities.GameEvent) error {
	if event == nil {
		return gameerr.InvalidArgument("event cannot be nil")
	}
	if event.ID == "" {
		return gameerr.InvalidArgument("event ID cannot be empty")
	}
	if event.GameID == "" {
		return gameerr.InvalidArgument("event game ID cannot be empty")
	}

	if event.Timestamp.IsZero() {
		event.Timestamp = r.timeProvider.Now()
	}

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	key := fmt.Sprintf(eventLogKeyFormat, event.GameID)

	pipe := r.client.TxPipeline()
	pipe.RPush(ctx, key, data)
	pipe.Expire(ctx, key, r.eventTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to append event: %w", err)
	}

	return nil
}

func (r *redisRepo) List(ctx context.Context, gameID string) ([]*entities.GameEvent, error) {
	if gameID == "" {
		return nil, gameerr.InvalidArgument("game ID cannot be empty")
	}

	key := fmt.Sprintf(eventLogKeyFormat, gameID)

	raw, err := r.client.LRange(ctx, key, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}

	events := make([]*entities.GameEvent, 0, len(raw))
	for _, item := range raw {
		var event entities.GameEvent
		if err := json.Unmarshal([]byte(item), &event); err != nil {
			return nil, fmt.Errorf("failed to unmarshal event: %w", err)
		}
		events = append(events, &event)
	}

	return events, nil
}
