package archive

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"gorm.io/gorm"

	gameerr "github.com/firesidegames/betrayal/internal/errors"
)

// startPostgres spins up a disposable database so the gorm schema and
// aggregate queries run against the real thing.
func startPostgres(t *testing.T) *gorm.DB {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx := context.Background()
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "postgres:16-alpine",
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_USER":     "betrayal",
				"POSTGRES_PASSWORD": "betrayal",
				"POSTGRES_DB":       "betrayal_test",
			},
			WaitingFor: wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	if err != nil {
		t.Skipf("could not start postgres container: %v", err)
	}
	t.Cleanup(func() {
		_ = container.Terminate(context.Background())
	})

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "5432/tcp")
	require.NoError(t, err)

	dsn := fmt.Sprintf("host=%s port=%s user=betrayal password=betrayal dbname=betrayal_test sslmode=disable TimeZone=UTC",
		host, port.Port())

	db, err := Open(dsn)
	require.NoError(t, err)

	return db
}

func TestGormArchiveRoundTrip(t *testing.T) {
	db := startPostgres(t)
	ctx := context.Background()

	repo := NewGormRepository(db)

	record := &GameRecord{
		GameID:           "AB12CD34",
		Difficulty:       "normal",
		Winner:           "villagers",
		WinReason:        "The Shapeshifter has been identified and cast out of Thornwood.",
		RoundsPlayed:     4,
		PlayerCount:      5,
		AdversaryCaught:  true,
		AdversaryHostile: true,
		RoundCaught:      4,
		Signals: []StrategySignal{
			{Kind: SignalExposure, Note: "accused after contradicting the seer", Round: 3},
			{Kind: SignalDeflectionSuccess, Note: "shifted suspicion onto the drunk", Round: 2},
		},
	}
	require.NoError(t, repo.SaveRecord(ctx, record))

	got, err := repo.GetRecord(ctx, "AB12CD34")
	require.NoError(t, err)
	assert.Equal(t, "villagers", got.Winner)
	assert.True(t, got.AdversaryCaught)
	require.Len(t, got.Signals, 2)
	assert.Equal(t, SignalExposure, got.Signals[0].Kind)

	_, err = repo.GetRecord(ctx, "MISSING0")
	require.Error(t, err)
	assert.True(t, gameerr.IsNotFound(err))
}

func TestGormArchiveCatchStats(t *testing.T) {
	db := startPostgres(t)
	ctx := context.Background()

	repo := NewGormRepository(db)

	seed := []*GameRecord{
		{GameID: "GAME0001", Difficulty: "normal", RoundsPlayed: 3, PlayerCount: 4, AdversaryCaught: true, AdversaryHostile: true},
		{GameID: "GAME0002", Difficulty: "normal", RoundsPlayed: 5, PlayerCount: 5, AdversaryCaught: false, AdversaryHostile: true},
		{GameID: "GAME0003", Difficulty: "hard", RoundsPlayed: 6, PlayerCount: 6, AdversaryCaught: false, AdversaryHostile: true},
	}
	for _, record := range seed {
		require.NoError(t, repo.SaveRecord(ctx, record))
	}

	count, err := repo.CountRecords(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)

	all, err := repo.CatchStats(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, int64(3), all.TotalGames)
	assert.Equal(t, int64(1), all.AdversaryCaught)
	assert.InDelta(t, 14.0/3.0, all.AverageRounds, 0.001)

	normal, err := repo.CatchStats(ctx, "normal")
	require.NoError(t, err)
	assert.Equal(t, int64(2), normal.TotalGames)
	assert.InDelta(t, 4.0, normal.AverageRounds, 0.001)
}

func TestGormArchiveListRecords(t *testing.T) {
	db := startPostgres(t)
	ctx := context.Background()

	repo := NewGormRepository(db)

	for i := 1; i <= 4; i++ {
		record := &GameRecord{
			GameID:       fmt.Sprintf("GAME%04d", i),
			Difficulty:   "normal",
			RoundsPlayed: i,
			PlayerCount:  5,
			Signals: []StrategySignal{
				{Kind: SignalExposure, Note: fmt.Sprintf("accusation in round %d", i), Round: i},
			},
		}
		require.NoError(t, repo.SaveRecord(ctx, record))
	}

	recent, err := repo.ListRecords(ctx, 2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, "GAME0004", recent[0].GameID, "newest comes first")
	assert.Equal(t, "GAME0003", recent[1].GameID)
	require.Len(t, recent[0].Signals, 1, "signals ride along")

	all, err := repo.ListRecords(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, all, 4)
}

func TestGormArchiveBriefUpsert(t *testing.T) {
	db := startPostgres(t)
	ctx := context.Background()

	repo := NewGormRepository(db)

	_, err := repo.GetBrief(ctx)
	require.Error(t, err)
	assert.True(t, gameerr.IsNotFound(err))

	first := &IntelligenceBrief{
		Brief:         "- Stay quiet in early rounds.",
		GamesAnalyzed: 25,
		CatchRate:     0.6,
		GeneratedAt:   time.Now().UTC(),
	}
	require.NoError(t, repo.SaveBrief(ctx, first))

	second := &IntelligenceBrief{
		Brief:         "- Vote with the crowd, never first.",
		GamesAnalyzed: 30,
		CatchRate:     0.5,
		GeneratedAt:   time.Now().UTC(),
	}
	require.NoError(t, repo.SaveBrief(ctx, second))

	got, err := repo.GetBrief(ctx)
	require.NoError(t, err)
	assert.Equal(t, "- Vote with the crowd, never first.", got.Brief)
	assert.Equal(t, 30, got.GamesAnalyzed)

	var count int64
	require.NoError(t, db.Model(&IntelligenceBrief{}).Count(&count).Error)
	assert.Equal(t, int64(1), count, "the brief stays a single row")
}
