package tasks

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGoRecoversFromPanic(t *testing.T) {
	s := NewSupervisor()

	s.Go("explodes", func(_ context.Context) {
		panic("boom")
	})

	ran := make(chan struct{})
	s.Go("survives", func(_ context.Context) {
		close(ran)
	})

	select {
	case <-ran:
	case <-time.After(2 * time.Second):
		t.Fatal("job after panic never ran")
	}
	require.True(t, s.Shutdown(2*time.Second))
}

func TestGoCancelsContextOnShutdown(t *testing.T) {
	s := NewSupervisor()

	stopped := make(chan struct{})
	s.Go("waits", func(ctx context.Context) {
		<-ctx.Done()
		close(stopped)
	})

	require.True(t, s.Shutdown(2*time.Second))
	select {
	case <-stopped:
	case <-time.After(time.Second):
		t.Fatal("job never observed shutdown")
	}
}

func TestGoAfterShutdownIsDropped(t *testing.T) {
	s := NewSupervisor()
	require.True(t, s.Shutdown(time.Second))

	var ran atomic.Bool
	s.Go("late", func(_ context.Context) {
		ran.Store(true)
	})

	time.Sleep(50 * time.Millisecond)
	assert.False(t, ran.Load())
}

func TestAfterFires(t *testing.T) {
	s := NewSupervisor()

	fired := make(chan struct{})
	s.After("delayed", 10*time.Millisecond, func(_ context.Context) {
		close(fired)
	})

	select {
	case <-fired:
	case <-time.After(2 * time.Second):
		t.Fatal("delayed job never fired")
	}
	require.True(t, s.Shutdown(2*time.Second))
}

func TestAfterStopCancelsPendingRun(t *testing.T) {
	s := NewSupervisor()

	var ran atomic.Bool
	stop := s.After("cancelled", 50*time.Millisecond, func(_ context.Context) {
		ran.Store(true)
	})
	stop()
	stop() // safe to call twice

	time.Sleep(120 * time.Millisecond)
	assert.False(t, ran.Load())
	require.True(t, s.Shutdown(2*time.Second))
}

func TestShutdownTimesOutOnStuckJob(t *testing.T) {
	s := NewSupervisor()

	release := make(chan struct{})
	s.Go("stuck", func(_ context.Context) {
		<-release
	})

	assert.False(t, s.Shutdown(50*time.Millisecond))
	close(release)
}
