package entities

import "time"

// Adversary is the AI-controlled character hidden among the cast.
// Its role value is always RoleShapeshifter, but its alignment may be
// loyal in random-alignment games.
type Adversary struct {
	Name           string  `json:"name"`
	Intro          string  `json:"intro"`
	Backstory      string  `json:"backstory,omitempty"`
	Role           Role    `json:"role"`
	Hostile        bool    `json:"hostile"`
	Alive          bool    `json:"alive"`
	VotedFor       string  `json:"voted_for,omitempty"`
	SuspicionLevel float64 `json:"suspicion_level"`
}

// NewAdversary creates a hostile adversary for the given cast slot
func NewAdversary(name, intro string) *Adversary {
	return &Adversary{
		Name:           name,
		Intro:          intro,
		Role:           RoleShapeshifter,
		Hostile:        true,
		Alive:          true,
		SuspicionLevel: 0.5,
	}
}

// Game represents a single session from lobby to reveal
type Game struct {
	ID              string     `json:"id"`
	Status          GameStatus `json:"status"`
	Phase           Phase      `json:"phase"`
	Round           int        `json:"round"`
	Difficulty      Difficulty `json:"difficulty"`
	HostPlayerID    string     `json:"host_player_id"`
	CharacterCast   []string   `json:"character_cast,omitempty"`
	Adversary       *Adversary `json:"adversary,omitempty"`
	NarratorPreset  string     `json:"narrator_preset,omitempty"`
	RandomAlignment bool       `json:"random_alignment,omitempty"`
	InPersonMode    bool       `json:"in_person_mode,omitempty"`
	Winner          string     `json:"winner,omitempty"`
	WinReason       string     `json:"win_reason,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// NewGame creates a game in the lobby waiting for players
func NewGame(id, hostPlayerID string, difficulty Difficulty) *Game {
	return &Game{
		ID:           id,
		Status:       GameStatusLobby,
		Phase:        PhaseSetup,
		Round:        0,
		Difficulty:   difficulty,
		HostPlayerID: hostPlayerID,
	}
}

// IsInProgress reports whether actions are currently being accepted
func (g *Game) IsInProgress() bool {
	return g.Status == GameStatusInProgress
}

// IsFinished reports whether the game reached a terminal state
func (g *Game) IsFinished() bool {
	return g.Status == GameStatusFinished
}

// AdversaryAlive reports whether the AI character is still in play
func (g *Game) AdversaryAlive() bool {
	return g.Adversary != nil && g.Adversary.Alive
}
