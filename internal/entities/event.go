package entities

import "time"

// Event types. Hidden events (Visible=false) surface only in the post-game
// timeline.
const (
	EventNightTarget        = "night_target"
	EventNightKillAttempt   = "night_kill_attempt"
	EventNightHeal          = "night_heal"
	EventNightInvestigation = "night_investigation"
	EventBodyguardSacrifice = "bodyguard_sacrifice"
	EventElimination        = "elimination"
	EventHunterRevenge      = "hunter_revenge"
	EventVote               = "vote"
	EventAccusation         = "accusation"
)

// GameEvent is one append-only log entry. Events are immutable once logged.
type GameEvent struct {
	ID        string         `json:"id"`
	GameID    string         `json:"game_id"`
	Type      string         `json:"type"`
	Round     int            `json:"round"`
	Phase     Phase          `json:"phase"`
	Actor     string         `json:"actor,omitempty"`
	Target    string         `json:"target,omitempty"`
	Data      map[string]any `json:"data,omitempty"`
	Narration string         `json:"narration,omitempty"`
	Visible   bool           `json:"visible"`
	Timestamp time.Time      `json:"timestamp"`
}
