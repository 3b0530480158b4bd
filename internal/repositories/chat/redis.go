package chat

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
	chatKeyFormat = "game:%s:chat"

	defaultChatTTL = 24 * time.Hour
)

type redisRepo struct {
	client       redis.UniversalClient
	timeProvider clock.TimeProvider
	chatTTL      time.Duration
}

// RedisRepoConfig holds configuration for the redis chat repository
type RedisRepoConfig struct {
	Client       redis.UniversalClient
	TimeProvider clock.TimeProvider
	ChatTTL      time.Duration
}

// NewRedisRepository creates a new redis-backed chat repository
func NewRedisRepository(cfg *RedisRepoConfig) Repository {
	if cfg.Client == nil {
		panic("redis client is required")
	}

	ttl := cfg.ChatTTL
	if ttl == 0 {
		ttl = defaultChatTTL
	}

	timeProvider := cfg.TimeProvider
	if timeProvider == nil {
		timeProvider = clock.NewTimeProvider()
	}

	return &redisRepo{
		client:       cfg.Client,
		timeProvider: timeProvider,
		chatTTL:      ttl,
	}
}

func (r *redisRepo) Append(ctx context.Context, msg *entities.ChatMessage) error {
	if msg == nil {
		return gameerr.InvalidArgument("message cannot be nil")
	}
	if msg.ID == "" {
		return gameerr.InvalidArgument("message ID cannot be empty")
	}
	if msg.GameID == "" {
		return gameerr.InvalidArgument("message game ID cannot be empty")
	}

	if msg.Timestamp.IsZero() {
		msg.Timestamp = r.timeProvider.Now()
	}

	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal chat message: %w", err)
	}

	key := fmt.Sprintf(chatKeyFormat, msg.GameID)

	pipe := r.client.TxPipeline()
	pipe.RPush(ctx, key, data)
	pipe.Expire(ctx, key, r.chatTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to append chat message: %w", err)
	}

	return nil
}

func (r *redisRepo) ListRecent(ctx context.Context, gameID string, limit int) ([]*entities.ChatMessage, error) {
	if gameID == "" {
		return nil, gameerr.InvalidArgument("game ID cannot be empty")
	}
	if limit <= 0 {
		limit = DefaultRecentLimit
	}

	key := fmt.Sprintf(chatKeyFormat, gameID)

	raw, err := r.client.LRange(ctx, key, int64(-limit), -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list chat messages: %w", err)
	}

	messages := make([]*entities.ChatMessage, 0, len(raw))
	for _, item := range raw {
		var msg entities.ChatMessage
		if err := json.Unmarshal([]byte(item), &msg); err != nil {
			return nil, fmt.Errorf("failed to unmarshal chat message: %w", err)
		}
		messages = append(messages, &msg)
	}

	return messages, nil
}
