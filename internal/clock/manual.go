package clock

import "time"

// Manual is a deterministic virtual-time Scheduler. Callbacks only run inside
// Advance, in due-time order, on the caller's goroutine.
type Manual struct {
	now    time.Time
	timers []*manualTimer
	seq    uint64
}

type manualTimer struct {
	due     time.Time
	seq     uint64
	f       func()
	stopped bool
}

func (t *manualTimer) Stop() bool {
	if t.stopped {
		return false
	}
	t.stopped = true
	return true
}

// NewManual creates a scheduler whose clock starts at start.
func NewManual(start time.Time) *Manual {
	return &Manual{now: start}
}

// Now returns the virtual time.
func (m *Manual) Now() time.Time {
	return m.now
}

// AfterFunc registers f to run once the virtual clock passes d from now.
func (m *Manual) AfterFunc(d time.Duration, f func()) Timer {
	if d < 0 {
		d = 0
	}
	m.seq++
	t := &manualTimer{due: m.now.Add(d), seq: m.seq, f: f}
	m.timers = append(m.timers, t)
	return t
}

// Advance moves the clock forward by d, firing every timer that falls due,
// including timers scheduled by the callbacks themselves.
func (m *Manual) Advance(d time.Duration) {
	target := m.now.Add(d)
	for {
		t := m.nextDue(target)
		if t == nil {
			break
		}
		m.now = t.due
		t.stopped = true
		t.f()
	}
	m.now = target
}

// Pending returns the number of timers that have neither fired nor been
// stopped.
func (m *Manual) Pending() int {
	n := 0
	for _, t := range m.timers {
		if !t.stopped {
			n++
		}
	}
	return n
}

func (m *Manual) nextDue(target time.Time) *manualTimer {
	var (
		best int = -1
		live     = m.timers[:0]
	)
	for _, t := range m.timers {
		if t.stopped {
			continue
		}
		live = append(live, t)
	}
	m.timers = live
	for i, t := range m.timers {
		if t.due.After(target) {
			continue
		}
		if best < 0 || t.due.Before(m.timers[best].due) ||
			(t.due.Equal(m.timers[best].due) && t.seq < m.timers[best].seq) {
			best = i
		}
	}
	if best < 0 {
		return nil
	}
	return m.timers[best]
}
