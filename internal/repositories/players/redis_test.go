package players

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

	player := entities.NewPlayer("p1", "AB12CD34", "Alice")

	expected := *player
	expected.JoinedAt = now
	jsonData, err := json.Marshal(&expected)
	s.Require().NoError(err)

	s.mock.ExpectTxPipeline()
	s.mock.ExpectSet("game:AB12CD34:player:p1", jsonData, defaultPlayerTTL).SetVal("OK")
	s.mock.ExpectSAdd("game:AB12CD34:players", "p1").SetVal(1)
	s.mock.ExpectTxPipelineExec()

	err = s.repo.Create(ctx, player)
	s.NoError(err)

	// Input validation
	err = s.repo.Create(ctx, nil)
	s.Error(err)
	err = s.repo.Create(ctx, entities.NewPlayer("", "AB12CD34", "Bob"))
	s.Error(err)
}

func (s *RedisRepoTestSuite) TestGet() {
	ctx := context.Background()
	player := entities.NewPlayer("p1", "AB12CD34", "Alice")
	player.Role = entities.RoleSeer
	player.CharacterName = "Scholar Theron"
	jsonData, err := json.Marshal(player)
	s.Require().NoError(err)

	// Happy path
	s.mock.ExpectGet("game:AB12CD34:player:p1").SetVal(string(jsonData))

	got, err := s.repo.Get(ctx, "AB12CD34", "p1")
	s.NoError(err)
	s.Equal("Alice", got.Name)
	s.Equal(entities.RoleSeer, got.Role)

	// Missing player
	s.mock.ExpectGet("game:AB12CD34:player:ghost").RedisNil()

	_, err = s.repo.Get(ctx, "AB12CD34", "ghost")
	s.Error(err)
	s.True(gameerr.IsNotFound(err))

	// Dependency error
	s.mock.ExpectGet("game:AB12CD34:player:p1").SetErr(errors.New("redis error"))

	_, err = s.repo.Get(ctx, "AB12CD34", "p1")
	s.Error(err)
}

func (s *RedisRepoTestSuite) TestMutateCastsVote() {
	ctx := context.Background()
	stored := entities.NewPlayer("p1", "AB12CD34", "Alice")
	stored.CharacterName = "Scholar Theron"
	storedJSON, err := json.Marshal(stored)
	s.Require().NoError(err)

	expected := *stored
	expected.VotedFor = "Merchant Elara"
	expectedJSON, err := json.Marshal(&expected)
	s.Require().NoError(err)

	s.mock.ExpectWatch("game:AB12CD34:player:p1")
	s.mock.ExpectGet("game:AB12CD34:player:p1").SetVal(string(storedJSON))
	s.mock.ExpectTxPipeline()
	s.mock.ExpectSet("game:AB12CD34:player:p1", expectedJSON, defaultPlayerTTL).SetVal("OK")
	s.mock.ExpectTxPipelineExec()

	got, err := s.repo.Mutate(ctx, "AB12CD34", "p1", func(p *entities.Player) error {
		p.VotedFor = "Merchant Elara"
		return nil
	})
	s.NoError(err)
	s.Equal("Merchant Elara", got.VotedFor)
}

func (s *RedisRepoTestSuite) TestListByGame() {
	ctx := context.Background()
	player := entities.NewPlayer("p1", "AB12CD34", "Alice")
	jsonData, err := json.Marshal(player)
	s.Require().NoError(err)

	// Happy path
	s.mock.ExpectSMembers("game:AB12CD34:players").SetVal([]string{"p1"})
	s.mock.ExpectGet("game:AB12CD34:player:p1").SetVal(string(jsonData))

	players, err := s.repo.ListByGame(ctx, "AB12CD34")
	s.NoError(err)
	s.Len(players, 1)
	s.Equal("Alice", players[0].Name)

	// Empty game
	s.mock.ExpectSMembers("game:AB12CD34:players").SetVal([]string{})

	players, err = s.repo.ListByGame(ctx, "AB12CD34")
	s.NoError(err)
	s.Empty(players)
}

func (s *RedisRepoTestSuite) TestClearVotes() {
	ctx := context.Background()
	player := entities.NewPlayer("p1", "AB12CD34", "Alice")
	player.VotedFor = "Merchant Elara"
	jsonData, err := json.Marshal(player)
	s.Require().NoError(err)

	cleared := *player
	cleared.VotedFor = ""
	clearedJSON, err := json.Marshal(&cleared)
	s.Require().NoError(err)

	s.mock.ExpectSMembers("game:AB12CD34:players").SetVal([]string{"p1"})
	s.mock.ExpectGet("game:AB12CD34:player:p1").SetVal(string(jsonData))
	s.mock.ExpectTxPipeline()
	s.mock.ExpectSet("game:AB12CD34:player:p1", clearedJSON, defaultPlayerTTL).SetVal("OK")
	s.mock.ExpectTxPipelineExec()

	err = s.repo.ClearVotes(ctx, "AB12CD34")
	s.NoError(err)
}
