package games

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"github.com/firesidegames/betrayal/internal/clock/mocks"
	"github.com/firesidegames/betrayal/internal/entities"
	gameerr "github.com/firesidegames/betrayal/internal/errors"
)

type RedisRepoTestSuite struct {
	suite.Suite
	mockClient   *redis.Client
	mock         redismock.ClientMock
	repo         Repository
	mockCtrl     *gomock.Controller
	timeProvider *mocks.MockTimeProvider
}

func (s *RedisRepoTestSuite) SetupTest() {
	s.mockClient, s.mock = redismock.NewClientMock()
	s.mockCtrl = gomock.NewController(s.T())
	s.timeProvider = mocks.NewMockTimeProvider(s.mockCtrl)
	s.repo = NewRedisRepository(&RedisRepoConfig{
		Client:       s.mockClient,
		TimeProvider: s.timeProvider,
	})
}

func (s *RedisRepoTestSuite) TearDownTest() {
	s.mockCtrl.Finish()
	s.NoError(s.mock.ExpectationsWereMet())
}

func TestRedisRepoTestSuite(t *testing.T) {
	suite.Run(t, new(RedisRepoTestSuite))
}

func (s *RedisRepoTestSuite) TestCreate() {
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Millisecond)
	s.timeProvider.EXPECT().Now().Return(now)

	game := entities.NewGame("AB12CD34", "host-1", entities.DifficultyNormal)

	expected := *game
	expected.CreatedAt = now
	expected.UpdatedAt = now
	jsonData, err := json.Marshal(&expected)
	s.Require().NoError(err)

	s.mock.ExpectSetNX("game:AB12CD34", jsonData, defaultGameTTL).SetVal(true)
	s.mock.ExpectSAdd("games", "AB12CD34").SetVal(1)

	err = s.repo.Create(ctx, game)
	s.NoError(err)
}

func (s *RedisRepoTestSuite) TestCreateDuplicateID() {
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Millisecond)
	s.timeProvider.EXPECT().Now().Return(now)

	game := entities.NewGame("AB12CD34", "host-1", entities.DifficultyNormal)

	expected := *game
	expected.CreatedAt = now
	expected.UpdatedAt = now
	jsonData, err := json.Marshal(&expected)
	s.Require().NoError(err)

	s.mock.ExpectSetNX("game:AB12CD34", jsonData, defaultGameTTL).SetVal(false)

	err = s.repo.Create(ctx, game)
	s.Error(err)
	s.True(gameerr.IsAlreadyExists(err))

	// Input validation
	err = s.repo.Create(ctx, nil)
	s.Error(err)
}

func (s *RedisRepoTestSuite) TestGet() {
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Millisecond)
	stored := entities.NewGame("AB12CD34", "host-1", entities.DifficultyHard)
	stored.CreatedAt = now
	stored.UpdatedAt = now
	jsonData, err := json.Marshal(stored)
	s.Require().NoError(err)

	// Happy path
	s.mock.ExpectGet("game:AB12CD34").SetVal(string(jsonData))

	game, err := s.repo.Get(ctx, "AB12CD34")
	s.NoError(err)
	s.Equal("AB12CD34", game.ID)
	s.Equal(entities.DifficultyHard, game.Difficulty)
	s.Equal(entities.PhaseSetup, game.Phase)

	// Missing game
	s.mock.ExpectGet("game:NOPE").RedisNil()

	_, err = s.repo.Get(ctx, "NOPE")
	s.Error(err)
	s.True(gameerr.IsNotFound(err))

	// Dependency error
	s.mock.ExpectGet("game:AB12CD34").SetErr(errors.New("redis error"))

	_, err = s.repo.Get(ctx, "AB12CD34")
	s.Error(err)
	s.False(gameerr.IsNotFound(err))
}

func (s *RedisRepoTestSuite) TestUpdate() {
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Millisecond)
	s.timeProvider.EXPECT().Now().Return(now)

	game := entities.NewGame("AB12CD34", "host-1", entities.DifficultyNormal)
	game.CreatedAt = now.Add(-1 * time.Hour)
	game.Status = entities.GameStatusInProgress
	game.Phase = entities.PhaseNight
	game.Round = 1

	expected := *game
	expected.UpdatedAt = now
	jsonData, err := json.Marshal(&expected)
	s.Require().NoError(err)

	s.mock.ExpectSet("game:AB12CD34", jsonData, defaultGameTTL).SetVal("OK")

	err = s.repo.Update(ctx, game)
	s.NoError(err)
}

func (s *RedisRepoTestSuite) TestMutate() {
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Millisecond)
	s.timeProvider.EXPECT().Now().Return(now)

	stored := entities.NewGame("AB12CD34", "host-1", entities.DifficultyNormal)
	stored.Status = entities.GameStatusInProgress
	stored.Phase = entities.PhaseNight
	stored.Round = 1
	stored.CreatedAt = now.Add(-1 * time.Hour)
	stored.UpdatedAt = now.Add(-1 * time.Hour)
	storedJSON, err := json.Marshal(stored)
	s.Require().NoError(err)

	expected := *stored
	expected.Phase = entities.PhaseDayDiscussion
	expected.UpdatedAt = now
	expectedJSON, err := json.Marshal(&expected)
	s.Require().NoError(err)

	s.mock.ExpectWatch("game:AB12CD34")
	s.mock.ExpectGet("game:AB12CD34").SetVal(string(storedJSON))
	s.mock.ExpectTxPipeline()
	s.mock.ExpectSet("game:AB12CD34", expectedJSON, defaultGameTTL).SetVal("OK")
	s.mock.ExpectTxPipelineExec()

	game, err := s.repo.Mutate(ctx, "AB12CD34", func(g *entities.Game) error {
		g.Phase = entities.PhaseDayDiscussion
		return nil
	})
	s.NoError(err)
	s.Equal(entities.PhaseDayDiscussion, game.Phase)
	s.Equal(now, game.UpdatedAt)
}

func (s *RedisRepoTestSuite) TestMutateCallbackError() {
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Millisecond)

	stored := entities.NewGame("AB12CD34", "host-1", entities.DifficultyNormal)
	stored.CreatedAt = now
	stored.UpdatedAt = now
	storedJSON, err := json.Marshal(stored)
	s.Require().NoError(err)

	s.mock.ExpectWatch("game:AB12CD34")
	s.mock.ExpectGet("game:AB12CD34").SetVal(string(storedJSON))

	_, err = s.repo.Mutate(ctx, "AB12CD34", func(g *entities.Game) error {
		return gameerr.InvalidState("phase is outside the cycle")
	})
	s.Error(err)
	s.True(gameerr.IsInvalidState(err))
}

func (s *RedisRepoTestSuite) TestDelete() {
	ctx := context.Background()

	s.mock.ExpectTxPipeline()
	s.mock.ExpectDel("game:AB12CD34").SetVal(1)
	s.mock.ExpectSRem("games", "AB12CD34").SetVal(1)
	s.mock.ExpectTxPipelineExec()

	err := s.repo.Delete(ctx, "AB12CD34")
	s.NoError(err)
}

func (s *RedisRepoTestSuite) TestList() {
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Millisecond)
	stored := entities.NewGame("AB12CD34", "host-1", entities.DifficultyEasy)
	stored.CreatedAt = now
	stored.UpdatedAt = now
	jsonData, err := json.Marshal(stored)
	s.Require().NoError(err)

	// Happy path
	s.mock.ExpectSMembers("games").SetVal([]string{"AB12CD34"})
	s.mock.ExpectGet("game:AB12CD34").SetVal(string(jsonData))

	games, err := s.repo.List(ctx)
	s.NoError(err)
	s.Len(games, 1)
	s.Equal("AB12CD34", games[0].ID)

	// Empty index
	s.mock.ExpectSMembers("games").SetVal([]string{})

	games, err = s.repo.List(ctx)
	s.NoError(err)
	s.Empty(games)

	// Dependency error
	s.mock.ExpectSMembers("games").SetErr(errors.New("redis error"))

	_, err = s.repo.List(ctx)
	s.Error(err)
}
