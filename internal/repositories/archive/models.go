package archive

import (
	"time"
)

// Signal kinds recorded while a game runs. Positive kinds mean the
// humans read the adversary correctly, negative kinds mean it slipped by.
const (
	SignalExposure          = "exposure"
	SignalDeflectionSuccess = "deflection_success"
	SignalDeflectionFailure = "deflection_failure"
)

// GameRecord is the durable summary of one finished game
type GameRecord struct {
	ID               uint   `json:"id" gorm:"primaryKey"`
	GameID           string `json:"game_id" gorm:"uniqueIndex;not null"`
	Difficulty       string `json:"difficulty" gorm:"not null;index"`
	Winner           string `json:"winner"`
	WinReason        string `json:"win_reason"`
	RoundsPlayed     int    `json:"rounds_played"`
	PlayerCount      int    `json:"player_count"`
	AdversaryCaught  bool   `json:"adversary_caught"`
	AdversaryHostile bool   `json:"adversary_hostile"`
	// RoundCaught is zero when the adversary survived to the end
	RoundCaught int       `json:"round_caught"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`

	Signals []StrategySignal `json:"signals,omitempty" gorm:"foreignKey:GameRecordID"`
}

// StrategySignal is one observed read on the adversary during a game
type StrategySignal struct {
	ID           uint      `json:"id" gorm:"primaryKey"`
	GameRecordID uint      `json:"game_record_id" gorm:"index;not null"`
	Kind         string    `json:"kind" gorm:"not null"`
	Note         string    `json:"note"`
	Round        int       `json:"round"`
	CreatedAt    time.Time `json:"created_at"`
}

// CatchStats aggregates how often players unmask the adversary
type CatchStats struct {
	TotalGames      int64   `json:"total_games"`
	AdversaryCaught int64   `json:"adversary_caught"`
	AverageRounds   float64 `json:"average_rounds"`
}

// briefRowID pins the brief to a single row so saves overwrite in place
const briefRowID = 1

// IntelligenceBrief is the cross-game strategy brief distilled from the
// archive. Only the latest one is kept.
type IntelligenceBrief struct {
	ID            uint      `json:"id" gorm:"primaryKey"`
	Brief         string    `json:"brief"`
	GamesAnalyzed int       `json:"games_analyzed"`
	CatchRate     float64   `json:"catch_rate"`
	GeneratedAt   time.Time `json:"generated_at"`
}
