package clock

import "time"

// State of the playback clock.
type State int

const (
	Stopped State = iota
	Running
)

func (s State) String() string {
	if s == Running {
		return "running"
	}
	return "stopped"
}

// Playback advances an elapsed-time cursor over [0, length] at a rate
// multiplier, calling OnAdvance on every frame. Without looping it emits
// length once, stops, and calls OnFinish.
type Playback struct {
	sched  Scheduler
	frame  time.Duration
	length time.Duration

	state    State
	timer    Timer
	gen      uint64
	anchorAt time.Time
	anchor   time.Duration
	cursor   time.Duration
	rate     float64
	loop     bool

	onAdvance func(elapsed time.Duration)
	onFinish  func()
}

// NewPlayback creates a stopped clock.
func NewPlayback(s Scheduler, frame, length time.Duration, onAdvance func(time.Duration), onFinish func()) *Playback {
	if frame <= 0 {
		frame = DefaultFrameInterval
	}
	return &Playback{
		sched:     s,
		frame:     frame,
		length:    length,
		rate:      1,
		onAdvance: onAdvance,
		onFinish:  onFinish,
	}
}

// State returns Running or Stopped.
func (p *Playback) State() State { return p.state }

// Rate returns the current rate multiplier.
func (p *Playback) Rate() float64 { return p.rate }

// Loop reports whether the clock cycles indefinitely.
func (p *Playback) Loop() bool { return p.loop }

// Elapsed returns the cursor as of now.
func (p *Playback) Elapsed() time.Duration {
	if p.state != Running {
		return p.cursor
	}
	e, _ := p.elapsedAt(p.sched.Now())
	return e
}

// SetLength changes the duration of one cycle. The cursor is rescaled so it
// keeps the same fraction of the cycle; a running clock continues from there.
func (p *Playback) SetLength(length time.Duration) {
	at := p.Elapsed()
	if p.length > 0 {
		at = time.Duration(float64(at) * float64(length) / float64(p.length))
	}
	p.length = length
	if p.state == Running {
		p.Start(at, p.rate, p.loop)
		return
	}
	p.cursor = min(at, length)
}

// Start runs the clock from the given cursor. A running clock is stopped
// first, so there is never more than one driver.
func (p *Playback) Start(from time.Duration, rate float64, loop bool) {
	p.Stop()
	if from < 0 {
		from = 0
	}
	if from > p.length {
		from = p.length
	}
	if rate <= 0 {
		rate = 1
	}
	p.gen++
	p.state = Running
	p.anchorAt = p.sched.Now()
	p.anchor = from
	p.cursor = from
	p.rate = rate
	p.loop = loop
	p.schedule(p.gen)
}

// Stop freezes the cursor. No callbacks follow.
func (p *Playback) Stop() {
	if p.state != Running {
		return
	}
	p.cursor = p.Elapsed()
	p.state = Stopped
	p.gen++
	if p.timer != nil {
		p.timer.Stop()
		p.timer = nil
	}
}

// SetRate applies a new rate from the current cursor on.
func (p *Playback) SetRate(rate float64) {
	if p.state == Running {
		p.Start(p.Elapsed(), rate, p.loop)
		return
	}
	p.rate = rate
}

// SetLoop switches the cycle policy from the current cursor on.
func (p *Playback) SetLoop(loop bool) {
	if p.state == Running {
		p.Start(p.Elapsed(), p.rate, loop)
		return
	}
	p.loop = loop
}

func (p *Playback) schedule(gen uint64) {
	p.timer = p.sched.AfterFunc(p.frame, func() { p.tick(gen) })
}

// elapsedAt maps a wall time onto the cursor; done reports the end of a
// non-looping run.
func (p *Playback) elapsedAt(now time.Time) (elapsed time.Duration, done bool) {
	elapsed = p.anchor + time.Duration(float64(now.Sub(p.anchorAt))*p.rate)
	if elapsed < p.length {
		return elapsed, false
	}
	if p.loop && p.length > 0 {
		return elapsed % p.length, false
	}
	return p.length, true
}

func (p *Playback) tick(gen uint64) {
	if gen != p.gen || p.state != Running {
		return
	}
	p.timer = nil
	elapsed, done := p.elapsedAt(p.sched.Now())
	p.cursor = elapsed
	if done {
		p.state = Stopped
		p.gen++
		if p.onAdvance != nil {
			p.onAdvance(elapsed)
		}
		if p.onFinish != nil {
			p.onFinish()
		}
		return
	}
	if p.onAdvance != nil {
		p.onAdvance(elapsed)
	}
	// the callback may have restarted or stopped the clock
	if gen == p.gen && p.state == Running {
		p.schedule(gen)
	}
}
