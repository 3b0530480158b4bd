package players

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/firesidegames/betrayal/internal/clock"
	"github.com/firesidegames/betrayal/internal/entities"
	gameerr "github.com/firesidegames/betrayal/internal/errors"
)

const (
	// TTL for player records, matching their game's lifetime
	defaultPlayerTTL = 24 * time.Hour

	maxMutateRetries = 10
)

func playerKey(gameID, playerID string) string {
	return fmt.Sprintf("game:%s:player:%s", gameID, playerID)
}

func playersIndexKey(gameID string) string {
	return fmt.Sprintf("game:%s:players", gameID)
}

// RedisRepoConfig holds configuration for the Redis repository
type RedisRepoConfig struct {
	Client       redis.UniversalClient
	TimeProvider clock.TimeProvider
	PlayerTTL    time.Duration
}

// redisRepository implements Repository using Redis
type redisRepository struct {
	client       redis.UniversalClient
	timeProvider clock.TimeProvider
	playerTTL    time.Duration
}

// NewRedisRepository creates a new Redis-backed player repository
func NewRedisRepository(cfg *RedisRepoConfig) Repository {
	if cfg.Client == nil {
		panic("redis client is required")
	}

	ttl := cfg.PlayerTTL
	if ttl == 0 {
		ttl = defaultPlayerTTL
	}

	timeProvider := cfg.TimeProvider
	if timeProvider == nil {
		timeProvider = clock.NewTimeProvider()
	}

	return &redisRepository{
		client:       cfg.Client,
		timeProvider: timeProvider,
		playerTTL:    ttl,
	}
}

// Create persists a new player
func (r *redisRepository) Create(ctx context.Context, player *entities.Player) error {
	if player == nil {
		return errors.New("player cannot be nil")
	}
	if player.ID == "" || player.GameID == "" {
		return errors.New("player ID and game ID cannot be empty")
	}

	player.JoinedAt = r.timeProvider.Now()

	data, err := json.Marshal(player)
	if err != nil {
		return fmt.Errorf("failed to serialize player: %w", err)
	}

	pipe := r.client.TxPipeline()
	pipe.Set(ctx, playerKey(player.GameID, player.ID), data, r.playerTTL)
	pipe.SAdd(ctx, playersIndexKey(player.GameID), player.ID)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to create player: %w", err)
	}

	return nil
}

// Get retrieves one player
func (r *redisRepository) Get(ctx context.Context, gameID, playerID string) (*entities.Player, error) {
	data, err := r.client.Get(ctx, playerKey(gameID, playerID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, gameerr.NotFoundf("player not found: %s", playerID)
		}
		return nil, fmt.Errorf("failed to get player from Redis: %w", err)
	}

	var player entities.Player
	if err := json.Unmarshal(data, &player); err != nil {
		return nil, fmt.Errorf("failed to unmarshal player data: %w", err)
	}

	return &player, nil
}

// Update overwrites an existing player and refreshes its TTL
func (r *redisRepository) Update(ctx context.Context, player *entities.Player) error {
	if player == nil {
		return errors.New("player cannot be nil")
	}

	data, err := json.Marshal(player)
	if err != nil {
		return fmt.Errorf("failed to serialize player: %w", err)
	}

	if err := r.client.Set(ctx, playerKey(player.GameID, player.ID), data, r.playerTTL).Err(); err != nil {
		return fmt.Errorf("failed to update player in Redis: %w", err)
	}

	return nil
}

// Mutate applies fn under WATCH so concurrent field updates cannot clobber
// each other
func (r *redisRepository) Mutate(ctx context.Context, gameID, playerID string, fn func(*entities.Player) error) (*entities.Player, error) {
	key := playerKey(gameID, playerID)

	var updated *entities.Player
	txf := func(tx *redis.Tx) error {
		data, err := tx.Get(ctx, key).Bytes()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				return gameerr.NotFoundf("player not found: %s", playerID)
			}
			return fmt.Errorf("failed to get player from Redis: %w", err)
		}

		var player entities.Player
		if err := json.Unmarshal(data, &player); err != nil {
			return fmt.Errorf("failed to unmarshal player data: %w", err)
		}

		if err := fn(&player); err != nil {
			return err
		}

		payload, err := json.Marshal(&player)
		if err != nil {
			return fmt.Errorf("failed to serialize player: %w", err)
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, payload, r.playerTTL)
			return nil
		})
		if err != nil {
			return err
		}

		updated = &player
		return nil
	}

	for i := 0; i < maxMutateRetries; i++ {
		err := r.client.Watch(ctx, txf, key)
		if err == nil {
			return updated, nil
		}
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return nil, err
	}

	return nil, gameerr.Internalf("player %s kept changing under us, giving up after %d attempts", playerID, maxMutateRetries)
}

// ListByGame retrieves all players of a game. Join order is stable so
// lobby listings do not jump around between refreshes.
func (r *redisRepository) ListByGame(ctx context.Context, gameID string) ([]*entities.Player, error) {
	playerIDs, err := r.client.SMembers(ctx, playersIndexKey(gameID)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get game players from Redis: %w", err)
	}

	players := make([]*entities.Player, len(playerIDs))

	g, gctx := errgroup.WithContext(ctx)
	for i, id := range playerIDs {
		g.Go(func() error {
			player, err := r.Get(gctx, gameID, id)
			if err != nil {
				return fmt.Errorf("failed to get player %s: %w", id, err)
			}
			players[i] = player
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	sort.Slice(players, func(i, j int) bool {
		if players[i].JoinedAt.Equal(players[j].JoinedAt) {
			return players[i].ID < players[j].ID
		}
		return players[i].JoinedAt.Before(players[j].JoinedAt)
	})

	return players, nil
}

// ClearVotes resets every player's vote in a game
func (r *redisRepository) ClearVotes(ctx context.Context, gameID string) error {
	return r.clearField(ctx, gameID, func(p *entities.Player) {
		p.VotedFor = ""
	})
}

// ClearNightActions resets every player's pending night action in a game
func (r *redisRepository) ClearNightActions(ctx context.Context, gameID string) error {
	return r.clearField(ctx, gameID, func(p *entities.Player) {
		p.NightAction = ""
	})
}

func (r *redisRepository) clearField(ctx context.Context, gameID string, clear func(*entities.Player)) error {
	players, err := r.ListByGame(ctx, gameID)
	if err != nil {
		return err
	}

	pipe := r.client.TxPipeline()
	for _, player := range players {
		clear(player)
		data, err := json.Marshal(player)
		if err != nil {
			return fmt.Errorf("failed to serialize player: %w", err)
		}
		pipe.Set(ctx, playerKey(gameID, player.ID), data, r.playerTTL)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to clear player fields: %w", err)
	}

	return nil
}
