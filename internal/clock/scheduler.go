// Package clock provides the cooperative scheduling primitives of the
// scrubber: a single-threaded control loop, a virtual-time scheduler for
// tests, the playback clock and cancellable fades.
package clock

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/OCAP2/scrubber/internal/queue"
)

// DefaultFrameInterval is the tick period of the playback clock and fades.
const DefaultFrameInterval = 16 * time.Millisecond

// Timer is a pending callback.
type Timer interface {
	// Stop prevents the callback from running. It returns false if the
	// callback already ran or the timer was already stopped.
	Stop() bool
}

// Scheduler delivers timer callbacks serially on the control thread.
type Scheduler interface {
	Now() time.Time
	AfterFunc(d time.Duration, f func()) Timer
}

// Loop is the single control thread. Every callback posted to it, including
// timer callbacks, runs on the goroutine executing Run, one at a time.
type Loop struct {
	pending *queue.Queue[func()]
	now     func() time.Time
}

// NewLoop creates a loop backed by the wall clock.
func NewLoop() *Loop {
	return &Loop{
		pending: queue.New[func()](),
		now:     time.Now,
	}
}

// Post schedules f to run on the loop. Safe to call from any goroutine.
func (l *Loop) Post(f func()) {
	l.pending.Push(f)
}

// Run executes posted callbacks until ctx is cancelled.
func (l *Loop) Run(ctx context.Context) error {
	for {
		l.drain()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-l.pending.Ready():
		}
	}
}

func (l *Loop) drain() {
	for {
		f, ok := l.pending.Pop()
		if !ok {
			return
		}
		f()
	}
}

// Now returns the wall clock time.
func (l *Loop) Now() time.Time {
	return l.now()
}

// AfterFunc runs f on the loop after d. Stopping the timer from the loop
// guarantees f does not run, even if its wake-up was already posted.
func (l *Loop) AfterFunc(d time.Duration, f func()) Timer {
	lt := &loopTimer{}
	lt.timer = time.AfterFunc(d, func() {
		l.Post(func() {
			if lt.fired.CompareAndSwap(false, true) {
				f()
			}
		})
	})
	return lt
}

type loopTimer struct {
	timer *time.Timer
	fired atomic.Bool
}

func (t *loopTimer) Stop() bool {
	t.timer.Stop()
	return t.fired.CompareAndSwap(false, true)
}
