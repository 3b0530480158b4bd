package games

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/firesidegames/betrayal/internal/entities"
	"github.com/firesidegames/betrayal/internal/testutils"
)

// Integration coverage of the WATCH-based Mutate path, which redismock
// cannot race for real.

func TestRedisIntegrationRoundTrip(t *testing.T) {
	client := testutils.StartRedisContainer(t)
	ctx := context.Background()

	repo := NewRedisRepository(&RedisRepoConfig{Client: client})

	game := entities.NewGame("AB12CD34", "host-1", entities.DifficultyNormal)
	game.Adversary = entities.NewAdversary("Huntress Reva", "A tracker of few words.")
	require.NoError(t, repo.Create(ctx, game))

	got, err := repo.Get(ctx, "AB12CD34")
	require.NoError(t, err)
	assert.Equal(t, entities.GameStatusLobby, got.Status)
	require.NotNil(t, got.Adversary)
	assert.Equal(t, "Huntress Reva", got.Adversary.Name)

	games, err := repo.List(ctx)
	require.NoError(t, err)
	assert.Len(t, games, 1)
}

func TestRedisIntegrationMutateUnderContention(t *testing.T) {
	client := testutils.StartRedisContainer(t)
	ctx := context.Background()

	repo := NewRedisRepository(&RedisRepoConfig{Client: client})

	game := entities.NewGame("AB12CD34", "host-1", entities.DifficultyNormal)
	require.NoError(t, repo.Create(ctx, game))

	// Every conflict round has a winner, so each writer loses at most
	// writers-1 times and stays within the Mutate retry budget.
	const writers = 8

	var wg sync.WaitGroup
	wg.Add(writers)
	for i := 0; i < writers; i++ {
		go func() {
			defer wg.Done()
			_, err := repo.Mutate(ctx, "AB12CD34", func(g *entities.Game) error {
				g.Round++
				return nil
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	got, err := repo.Get(ctx, "AB12CD34")
	require.NoError(t, err)
	assert.Equal(t, writers, got.Round)
}
