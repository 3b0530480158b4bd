package archive

import (
	"context"
	"sort"
	"sync"
	"time"

	gameerr "github.com/firesidegames/betrayal/internal/errors"
)

type inMemoryRepo struct {
	mu      sync.RWMutex
	nextID  uint
	records map[string]*GameRecord
	brief   *IntelligenceBrief
}

// NewInMemoryRepository creates a new in-memory archive repository for testing
func NewInMemoryRepository() Repository {
	return &inMemoryRepo{
		nextID:  1,
		records: make(map[string]*GameRecord),
	}
}

func (r *inMemoryRepo) SaveRecord(_ context.Context, record *GameRecord) error {
	if record == nil {
		return gameerr.InvalidArgument("record cannot be nil")
	}
	if record.GameID == "" {
		return gameerr.InvalidArgument("record game ID cannot be empty")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.records[record.GameID]; exists {
		return gameerr.AlreadyExistsf("game %s is already archived", record.GameID)
	}

	stored := copyRecord(record)
	stored.ID = r.nextID
	stored.CreatedAt = time.Now()
	stored.UpdatedAt = stored.CreatedAt
	for i := range stored.Signals {
		stored.Signals[i].ID = r.nextID*100 + uint(i)
		stored.Signals[i].GameRecordID = stored.ID
		stored.Signals[i].CreatedAt = stored.CreatedAt
	}
	r.nextID++
	r.records[record.GameID] = stored

	record.ID = stored.ID

	return nil
}

func (r *inMemoryRepo) GetRecord(_ context.Context, gameID string) (*GameRecord, error) {
	if gameID == "" {
		return nil, gameerr.InvalidArgument("game ID cannot be empty")
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	record, exists := r.records[gameID]
	if !exists {
		return nil, gameerr.NotFoundf("no archived game with ID %s", gameID)
	}

	return copyRecord(record), nil
}

func (r *inMemoryRepo) CountRecords(_ context.Context) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return int64(len(r.records)), nil
}

func (r *inMemoryRepo) CatchStats(_ context.Context, difficulty string) (*CatchStats, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	stats := &CatchStats{}
	var roundsTotal int64
	for _, record := range r.records {
		if difficulty != "" && record.Difficulty != difficulty {
			continue
		}
		stats.TotalGames++
		roundsTotal += int64(record.RoundsPlayed)
		if record.AdversaryCaught {
			stats.AdversaryCaught++
		}
	}
	if stats.TotalGames > 0 {
		stats.AverageRounds = float64(roundsTotal) / float64(stats.TotalGames)
	}

	return stats, nil
}

func (r *inMemoryRepo) ListRecords(_ context.Context, limit int) ([]*GameRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	records := make([]*GameRecord, 0, len(r.records))
	for _, record := range r.records {
		records = append(records, copyRecord(record))
	}
	sort.Slice(records, func(i, j int) bool { return records[i].ID > records[j].ID })
	if limit > 0 && len(records) > limit {
		records = records[:limit]
	}

	return records, nil
}

func (r *inMemoryRepo) SaveBrief(_ context.Context, brief *IntelligenceBrief) error {
	if brief == nil {
		return gameerr.InvalidArgument("brief cannot be nil")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	stored := *brief
	stored.ID = briefRowID
	r.brief = &stored
	brief.ID = briefRowID

	return nil
}

func (r *inMemoryRepo) GetBrief(_ context.Context) (*IntelligenceBrief, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.brief == nil {
		return nil, gameerr.NotFound("no intelligence brief has been generated yet")
	}

	copied := *r.brief
	return &copied, nil
}

func copyRecord(record *GameRecord) *GameRecord {
	copied := *record
	if record.Signals != nil {
		copied.Signals = make([]StrategySignal, len(record.Signals))
		copy(copied.Signals, record.Signals)
	}
	return &copied
}
