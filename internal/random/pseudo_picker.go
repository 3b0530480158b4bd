package random

import (
	"math/rand"
	"sync"
	"time"
)

// pseudoPicker implements Picker using a seeded math/rand source.
// rand.Rand is not safe for concurrent use, so calls are serialized.
type pseudoPicker struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewPicker creates a new time-seeded random picker
func NewPicker() Picker {
	return &pseudoPicker{
		rng: rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// NewSeededPicker creates a picker with a fixed seed for reproducible runs
func NewSeededPicker(seed int64) Picker {
	return &pseudoPicker{
		rng: rand.New(rand.NewSource(seed)),
	}
}

// Intn implements Picker.Intn
func (p *pseudoPicker) Intn(n int) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.rng.Intn(n)
}

// Shuffle implements Picker.Shuffle
func (p *pseudoPicker) Shuffle(n int, swap func(i, j int)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.rng.Shuffle(n, swap)
}
