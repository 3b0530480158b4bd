package ws

import (
	"fmt"
	"sync"

	"github.com/firesidegames/betrayal/internal/entities"
	"github.com/firesidegames/betrayal/internal/services/adversary"
)

// runtime carries one game's in-process coordination state: resolution
// and phase-advance guards, pacing timers, spectator-clue tracking, and
// the difficulty adapter. All of it is disposable; a restart loses
// nothing a reconnect cannot rebuild.
type runtime struct {
	mu        sync.Mutex
	resolving bool
	advancing bool
	cluesSent map[string]bool
	adapter   *adversary.DifficultyAdapter

	stopVote   func()
	stopPacing func()
}

// tryBeginResolve claims the resolution guard. Exactly one caller wins
// when the last two votes land at the same time.
func (r *runtime) tryBeginResolve() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.resolving {
		return false
	}
	r.resolving = true
	return true
}

func (r *runtime) endResolve() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.resolving = false
}

// tryBeginAdvance claims the phase-advance guard so a narrator-driven
// advance cannot interleave with a player-driven one.
func (r *runtime) tryBeginAdvance() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.advancing {
		return false
	}
	r.advancing = true
	return true
}

func (r *runtime) endAdvance() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.advancing = false
}

// markClueSent records a spectator clue for this round. Returns false
// when the spectator already used their clue this round.
func (r *runtime) markClueSent(playerID string, round int) bool {
	key := fmt.Sprintf("%s:%d", playerID, round)
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cluesSent[key] {
		return false
	}
	r.cluesSent[key] = true
	return true
}

func (r *runtime) clueAlreadySent(playerID string, round int) bool {
	key := fmt.Sprintf("%s:%d", playerID, round)
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.cluesSent[key]
}

// difficultyAdapter lazily creates the game's adapter anchored at the
// given difficulty. Later calls return the same adapter regardless of
// the argument.
func (r *runtime) difficultyAdapter(base entities.Difficulty) *adversary.DifficultyAdapter {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.adapter == nil {
		r.adapter = adversary.NewDifficultyAdapter(base)
	}
	return r.adapter
}

// armVoteTimer installs the vote timeout's stop function, cancelling
// any previous timer.
func (r *runtime) armVoteTimer(stop func()) {
	r.mu.Lock()
	prev := r.stopVote
	r.stopVote = stop
	r.mu.Unlock()
	if prev != nil {
		prev()
	}
}

// stopVoteTimer cancels the pending vote timeout. Idempotent.
func (r *runtime) stopVoteTimer() {
	r.mu.Lock()
	stop := r.stopVote
	r.stopVote = nil
	r.mu.Unlock()
	if stop != nil {
		stop()
	}
}

// armPacingTimer installs the discussion pacing stop function,
// cancelling any previous timer.
func (r *runtime) armPacingTimer(stop func()) {
	r.mu.Lock()
	prev := r.stopPacing
	r.stopPacing = stop
	r.mu.Unlock()
	if prev != nil {
		prev()
	}
}

// stopPacingTimer cancels the pending discussion advance. Idempotent.
func (r *runtime) stopPacingTimer() {
	r.mu.Lock()
	stop := r.stopPacing
	r.stopPacing = nil
	r.mu.Unlock()
	if stop != nil {
		stop()
	}
}

// stopTimers cancels everything pending at teardown
func (r *runtime) stopTimers() {
	r.stopVoteTimer()
	r.stopPacingTimer()
}

// Registry owns one runtime per active game, created on demand and torn
// down explicitly when the game ends.
type Registry struct {
	mu    sync.Mutex
	games map[string]*runtime
}

// NewRegistry creates an empty runtime registry
func NewRegistry() *Registry {
	return &Registry{games: make(map[string]*runtime)}
}

func (reg *Registry) get(gameID string) *runtime {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	rt, ok := reg.games[gameID]
	if !ok {
		rt = &runtime{cluesSent: make(map[string]bool)}
		reg.games[gameID] = rt
	}
	return rt
}

// Remove tears down a game's runtime, cancelling its timers. Safe to
// call for unknown games.
func (reg *Registry) Remove(gameID string) {
	reg.mu.Lock()
	rt, ok := reg.games[gameID]
	delete(reg.games, gameID)
	reg.mu.Unlock()
	if ok {
		rt.stopTimers()
	}
}
