package clock

import "time"

//go:generate mockgen -destination=mocks/mock_time_provider.go -package=mocks github.com/firesidegames/betrayal/internal/clock TimeProvider

// TimeProvider abstracts time.Now so repositories and timers can be tested
// with pinned clocks.
type TimeProvider interface {
	Now() time.Time
}

type realTimeProvider struct{}

// NewTimeProvider returns a TimeProvider backed by the system clock.
func NewTimeProvider() TimeProvider {
	return &realTimeProvider{}
}

func (r *realTimeProvider) Now() time.Time {
	return time.Now()
}
