package entities

// GameStatus represents the lifecycle state of a game
type GameStatus string

const (
	GameStatusLobby      GameStatus = "lobby"       // Waiting for players
	GameStatusInProgress GameStatus = "in_progress" // Playing
	GameStatusFinished   GameStatus = "finished"    // Over, results available
)

// Phase represents the current stage inside a running game
type Phase string

const (
	PhaseSetup         Phase = "setup"          // Roles not yet assigned
	PhaseNight         Phase = "night"          // Night actions are collected
	PhaseDayDiscussion Phase = "day_discussion" // Open table talk
	PhaseDayVote       Phase = "day_vote"       // Votes are collected
	PhaseElimination   Phase = "elimination"    // Vote outcome is played out
	PhaseGameOver      Phase = "game_over"      // Absorbing
)

// Difficulty tunes how careful the hidden adversary plays
type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyNormal Difficulty = "normal"
	DifficultyHard   Difficulty = "hard"
)

// IsValid reports whether d is a known difficulty
func (d Difficulty) IsValid() bool {
	switch d {
	case DifficultyEasy, DifficultyNormal, DifficultyHard:
		return true
	}
	return false
}
