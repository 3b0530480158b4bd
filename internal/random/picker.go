package random

//go:generate mockgen -destination=mock/mock_picker.go -package=mockrandom -source=picker.go

// Picker provides an interface for the randomness used by game logic.
// This allows us to inject deterministic implementations for testing
// tie-breaks, fallback targeting and role shuffles.
type Picker interface {
	// Intn returns a uniform random int in [0, n)
	Intn(n int) int

	// Shuffle randomizes the order of n elements using swap
	Shuffle(n int, swap func(i, j int))
}
