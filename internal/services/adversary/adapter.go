package adversary

import (
	"sync"

	"github.com/firesidegames/betrayal/internal/entities"
)

// Signal is one observed player-performance event fed to the adapter
type Signal string

// Positive signals say the players are on the adversary's trail; negative
// signals say they are chasing their own tails.
const (
	SignalCorrectAccusation  Signal = "correct_accusation"
	SignalCaughtLie          Signal = "caught_lie"
	SignalCloseVoteAgainstAI Signal = "close_vote_against_ai"

	SignalWrongElimination   Signal = "wrong_elimination"
	SignalAIUnquestioned     Signal = "ai_unquestioned"
	SignalUnanimousWrongVote Signal = "unanimous_wrong_vote"
)

var positiveSignals = map[Signal]bool{
	SignalCorrectAccusation:  true,
	SignalCaughtLie:          true,
	SignalCloseVoteAgainstAI: true,
}

var negativeSignals = map[Signal]bool{
	SignalWrongElimination:   true,
	SignalAIUnquestioned:     true,
	SignalUnanimousWrongVote: true,
}

// adjustmentThreshold is how far the signal counts must diverge before the
// adapter changes the adversary's behavior.
const adjustmentThreshold = 2

const escalateFragment = "ADAPTIVE ADJUSTMENT: Players are sharp. Increase deception complexity. " +
	"Use multi-round setups. Plant false evidence early to use later. " +
	"Form a voting alliance with one player to create trust, then betray."

const easeOffFragment = "ADAPTIVE ADJUSTMENT: Players are struggling. Make one deliberate mistake. " +
	"Hesitate slightly when lying. Give players a fair chance to catch you. " +
	"Do NOT throw the game — just reduce your deception by one tier."

// DifficultyAdapter tracks player-performance signals for one game and
// produces a prompt fragment that nudges the adversary's deception up or
// down mid-game. One adapter lives in each game's session runtime and is
// discarded with it. Safe for concurrent use.
type DifficultyAdapter struct {
	mu      sync.Mutex
	base    entities.Difficulty
	signals []Signal
}

// NewDifficultyAdapter creates an adapter anchored at the game's selected
// difficulty.
func NewDifficultyAdapter(base entities.Difficulty) *DifficultyAdapter {
	return &DifficultyAdapter{base: base}
}

// RecordSignal appends one observed performance signal
func (a *DifficultyAdapter) RecordSignal(signal Signal) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.signals = append(a.signals, signal)
}

// BaseDifficulty returns the difficulty the adapter was created with
func (a *DifficultyAdapter) BaseDifficulty() entities.Difficulty {
	return a.base
}

// PromptFragment returns the adjustment to append to the adversary's system
// prompt, or "" when the signals are balanced and no adjustment is needed.
func (a *DifficultyAdapter) PromptFragment() string {
	a.mu.Lock()
	defer a.mu.Unlock()

	var positive, negative int
	for _, s := range a.signals {
		switch {
		case positiveSignals[s]:
			positive++
		case negativeSignals[s]:
			negative++
		}
	}

	switch {
	case positive > negative+adjustmentThreshold:
		return escalateFragment
	case negative > positive+adjustmentThreshold:
		return easeOffFragment
	default:
		return ""
	}
}
