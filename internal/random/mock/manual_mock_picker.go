package mockrandom

import (
	"fmt"
	"sync"
)

// ManualMockPicker implements random.Picker for testing with predetermined results
type ManualMockPicker struct {
	mu       sync.Mutex
	picks    []int
	pickIdx  int
	shuffled bool
}

// NewManualMockPicker creates a new mock picker
func NewManualMockPicker() *ManualMockPicker {
	return &ManualMockPicker{
		picks: []int{},
	}
}

// SetNextPick queues the next Intn result
func (m *ManualMockPicker) SetNextPick(pick int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.picks = append(m.picks, pick)
}

// SetPicks sets multiple Intn results
func (m *ManualMockPicker) SetPicks(picks []int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.picks = picks
	m.pickIdx = 0
}

// Reset clears all picks and resets the index
func (m *ManualMockPicker) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.picks = []int{}
	m.pickIdx = 0
	m.shuffled = false
}

// ShuffleCalled reports whether Shuffle was invoked since the last Reset
func (m *ManualMockPicker) ShuffleCalled() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.shuffled
}

// Intn implements random.Picker.Intn
func (m *ManualMockPicker) Intn(n int) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.pickIdx >= len(m.picks) {
		panic(fmt.Sprintf("no more predetermined picks available (used %d of %d)", m.pickIdx, len(m.picks)))
	}

	pick := m.picks[m.pickIdx]
	m.pickIdx++

	if pick < 0 || pick >= n {
		panic(fmt.Sprintf("predetermined pick %d out of range for Intn(%d)", pick, n))
	}
	return pick
}

// Shuffle implements random.Picker.Shuffle. The order is left untouched so
// tests can reason about assignment positions.
func (m *ManualMockPicker) Shuffle(n int, swap func(i, j int)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.shuffled = true
}
