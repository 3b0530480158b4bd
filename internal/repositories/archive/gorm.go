package archive

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	gameerr "github.com/firesidegames/betrayal/internal/errors"
)

// Open connects to postgres and migrates the archive schema
func Open(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := db.AutoMigrate(&GameRecord{}, &StrategySignal{}, &IntelligenceBrief{}); err != nil {
		return nil, fmt.Errorf("failed to migrate archive schema: %w", err)
	}

	return db, nil
}

type gormRepo struct {
	db *gorm.DB
}

// NewGormRepository creates a new gorm-backed archive repository
func NewGormRepository(db *gorm.DB) Repository {
	if db == nil {
		panic("gorm db handle is required")
	}
	return &gormRepo{db: db}
}

func (r *gormRepo) SaveRecord(ctx context.Context, record *GameRecord) error {
	if record == nil {
		return gameerr.InvalidArgument("record cannot be nil")
	}
	if record.GameID == "" {
		return gameerr.InvalidArgument("record game ID cannot be empty")
	}

	if err := r.db.WithContext(ctx).Create(record).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return gameerr.AlreadyExistsf("game %s is already archived", record.GameID)
		}
		return fmt.Errorf("failed to save game record: %w", err)
	}

	return nil
}

func (r *gormRepo) GetRecord(ctx context.Context, gameID string) (*GameRecord, error) {
	if gameID == "" {
		return nil, gameerr.InvalidArgument("game ID cannot be empty")
	}

	var record GameRecord
	err := r.db.WithContext(ctx).
		Preload("Signals").
		Where("game_id = ?", gameID).
		First(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, gameerr.NotFoundf("no archived game with ID %s", gameID)
		}
		return nil, fmt.Errorf("failed to get game record: %w", err)
	}

	return &record, nil
}

func (r *gormRepo) CountRecords(ctx context.Context) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&GameRecord{}).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count game records: %w", err)
	}
	return count, nil
}

func (r *gormRepo) CatchStats(ctx context.Context, difficulty string) (*CatchStats, error) {
	query := r.db.WithContext(ctx).Model(&GameRecord{})
	if difficulty != "" {
		query = query.Where("difficulty = ?", difficulty)
	}

	var row struct {
		TotalGames      int64
		AdversaryCaught int64
		AverageRounds   float64
	}
	err := query.
		Select("COUNT(*) AS total_games, " +
			"COUNT(*) FILTER (WHERE adversary_caught) AS adversary_caught, " +
			"COALESCE(AVG(rounds_played), 0) AS average_rounds").
		Scan(&row).Error
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate catch stats: %w", err)
	}

	return &CatchStats{
		TotalGames:      row.TotalGames,
		AdversaryCaught: row.AdversaryCaught,
		AverageRounds:   row.AverageRounds,
	}, nil
}

func (r *gormRepo) ListRecords(ctx context.Context, limit int) ([]*GameRecord, error) {
	query := r.db.WithContext(ctx).
		Preload("Signals").
		Order("id DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}

	var records []*GameRecord
	if err := query.Find(&records).Error; err != nil {
		return nil, fmt.Errorf("failed to list game records: %w", err)
	}

	return records, nil
}

func (r *gormRepo) SaveBrief(ctx context.Context, brief *IntelligenceBrief) error {
	if brief == nil {
		return gameerr.InvalidArgument("brief cannot be nil")
	}

	brief.ID = briefRowID
	if err := r.db.WithContext(ctx).Save(brief).Error; err != nil {
		return fmt.Errorf("failed to save intelligence brief: %w", err)
	}

	return nil
}

func (r *gormRepo) GetBrief(ctx context.Context) (*IntelligenceBrief, error) {
	var brief IntelligenceBrief
	err := r.db.WithContext(ctx).First(&brief, briefRowID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, gameerr.NotFound("no intelligence brief has been generated yet")
		}
		return nil, fmt.Errorf("failed to get intelligence brief: %w", err)
	}

	return &brief, nil
}
