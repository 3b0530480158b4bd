package tasks

import (
	"context"
	"log"
	"runtime/debug"
	"sync"
	"time"
)

// Supervisor runs named background jobs with panic recovery. Every job
// receives a context that is cancelled when the supervisor shuts down,
// and Shutdown waits for running jobs to drain before returning.
type Supervisor struct {
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu     sync.Mutex
	closed bool
}

// NewSupervisor creates a supervisor ready to accept jobs
func NewSupervisor() *Supervisor {
	ctx, cancel := context.WithCancel(context.Background())
	return &Supervisor{ctx: ctx, cancel: cancel}
}

// Go starts fn in its own goroutine. A panic inside fn is logged with a
// stack trace instead of taking the process down. Jobs submitted after
// Shutdown are dropped with a log line.
func (s *Supervisor) Go(name string, fn func(ctx context.Context)) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		log.Printf("[tasks] Dropping job %s: supervisor is shut down", name)
		return
	}
	s.wg.Add(1)
	s.mu.Unlock()

	go func() {
		defer s.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				log.Printf("[tasks] Job %s panicked: %v\n%s", name, r, debug.Stack())
			}
		}()
		fn(s.ctx)
	}()
}

// After runs fn once delay elapses, unless the returned stop function is
// called first or the supervisor shuts down. stop is safe to call more
// than once and after the job has fired.
func (s *Supervisor) After(name string, delay time.Duration, fn func(ctx context.Context)) (stop func()) {
	cancelled := make(chan struct{})
	var once sync.Once
	stop = func() {
		once.Do(func() { close(cancelled) })
	}

	s.Go(name, func(ctx context.Context) {
		timer := time.NewTimer(delay)
		defer timer.Stop()
		select {
		case <-timer.C:
			fn(ctx)
		case <-cancelled:
		case <-ctx.Done():
		}
	})
	return stop
}

// Shutdown cancels all job contexts and waits up to timeout for them to
// finish. It reports whether everything drained in time.
func (s *Supervisor) Shutdown(timeout time.Duration) bool {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	s.cancel()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return true
	case <-time.After(timeout):
		log.Printf("[tasks] Shutdown timed out after %s with jobs still running", timeout)
		return false
	}
}
