package games

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/firesidegames/betrayal/internal/clock"
	"github.com/firesidegames/betrayal/internal/entities"
	gameerr "github.com/firesidegames/betrayal/internal/errors"
)

const (
	gameKeyPrefix = "game:"
	gamesIndexKey = "games"

	// TTL for game records (24 hours)
	defaultGameTTL = 24 * time.Hour

	// How many times Mutate retries after losing the optimistic lock
	maxMutateRetries = 10
)

// RedisRepoConfig holds configuration for the Redis repository
type RedisRepoConfig struct {
	Client       redis.UniversalClient
	TimeProvider clock.TimeProvider
	GameTTL      time.Duration
}

// redisRepository implements Repository using Redis
type redisRepository struct {
	client       redis.UniversalClient
	timeProvider clock.TimeProvider
	gameTTL      time.Duration
}

// NewRedisRepository creates a new Redis-backed game repository
func NewRedisRepository(cfg *RedisRepoConfig) Repository {
	if cfg.Client == nil {
		panic("redis client is required")
	}

	ttl := cfg.GameTTL
	if ttl == 0 {
		ttl = defaultGameTTL
	}

	timeProvider := cfg.TimeProvider
	if timeProvider == nil {
		timeProvider = clock.NewTimeProvider()
	}

	return &redisRepository{
		client:       cfg.Client,
		timeProvider: timeProvider,
		gameTTL:      ttl,
	}
}

func gameKey(id string) string {
	return gameKeyPrefix + id
}

// Create persists a new game
func (r *redisRepository) Create(ctx context.Context, game *entities.Game) error {
	if game == nil {
		return errors.New("game cannot be nil")
	}
	if game.ID == "" {
		return errors.New("game ID cannot be empty")
	}

	now := r.timeProvider.Now()
	game.CreatedAt = now
	game.UpdatedAt = now

	data, err := json.Marshal(game)
	if err != nil {
		return fmt.Errorf("failed to serialize game: %w", err)
	}

	// SETNX so two creates with a colliding short code cannot overwrite
	// each other
	created, err := r.client.SetNX(ctx, gameKey(game.ID), data, r.gameTTL).Result()
	if err != nil {
		return fmt.Errorf("failed to create game: %w", err)
	}
	if !created {
		return gameerr.Newf(gameerr.CodeAlreadyExists, "game with ID %s already exists", game.ID)
	}

	if err := r.client.SAdd(ctx, gamesIndexKey, game.ID).Err(); err != nil {
		return fmt.Errorf("failed to index game: %w", err)
	}

	return nil
}

// Get retrieves a game by ID
func (r *redisRepository) Get(ctx context.Context, id string) (*entities.Game, error) {
	data, err := r.client.Get(ctx, gameKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, gameerr.NotFoundf("game not found: %s", id)
		}
		return nil, fmt.Errorf("failed to get game from Redis: %w", err)
	}

	var game entities.Game
	if err := json.Unmarshal(data, &game); err != nil {
		return nil, fmt.Errorf("failed to unmarshal game data: %w", err)
	}

	return &game, nil
}

// Update overwrites an existing game and refreshes its TTL
func (r *redisRepository) Update(ctx context.Context, game *entities.Game) error {
	if game == nil {
		return errors.New("game cannot be nil")
	}

	game.UpdatedAt = r.timeProvider.Now()

	data, err := json.Marshal(game)
	if err != nil {
		return fmt.Errorf("failed to serialize game: %w", err)
	}

	if err := r.client.Set(ctx, gameKey(game.ID), data, r.gameTTL).Err(); err != nil {
		return fmt.Errorf("failed to update game in Redis: %w", err)
	}

	return nil
}

// Mutate applies fn under WATCH so concurrent field updates cannot clobber
// each other
func (r *redisRepository) Mutate(ctx context.Context, id string, fn func(*entities.Game) error) (*entities.Game, error) {
	key := gameKey(id)

	var updated *entities.Game
	txf := func(tx *redis.Tx) error {
		data, err := tx.Get(ctx, key).Bytes()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				return gameerr.NotFoundf("game not found: %s", id)
			}
			return fmt.Errorf("failed to get game from Redis: %w", err)
		}

		var game entities.Game
		if err := json.Unmarshal(data, &game); err != nil {
			return fmt.Errorf("failed to unmarshal game data: %w", err)
		}

		if err := fn(&game); err != nil {
			return err
		}
		game.UpdatedAt = r.timeProvider.Now()

		payload, err := json.Marshal(&game)
		if err != nil {
			return fmt.Errorf("failed to serialize game: %w", err)
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, payload, r.gameTTL)
			return nil
		})
		if err != nil {
			return err
		}

		updated = &game
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

	return nil, gameerr.Internalf("game %s kept changing under us, giving up after %d attempts", id, maxMutateRetries)
}

// Delete removes a game
func (r *redisRepository) Delete(ctx context.Context, id string) error {
	pipe := r.client.TxPipeline()
	pipe.Del(ctx, gameKey(id))
	pipe.SRem(ctx, gamesIndexKey, id)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to delete game from Redis: %w", err)
	}

	return nil
}

// List retrieves all known games. Games whose keys expired are skipped and
// removed from the index.
func (r *redisRepository) List(ctx context.Context) ([]*entities.Game, error) {
	ids, err := r.client.SMembers(ctx, gamesIndexKey).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list games from Redis: %w", err)
	}

	found := make([]*entities.Game, len(ids))

	g, gctx := errgroup.WithContext(ctx)
	for i, id := range ids {
		g.Go(func() error {
			game, err := r.Get(gctx, id)
			if err != nil {
				if gameerr.IsNotFound(err) {
					// Expired game, drop it from the index
					r.client.SRem(gctx, gamesIndexKey, id)
					return nil
				}
				return fmt.Errorf("failed to get game %s: %w", id, err)
			}
			found[i] = game
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	games := make([]*entities.Game, 0, len(found))
	for _, game := range found {
		if game != nil {
			games = append(games, game)
		}
	}

	return games, nil
}
