package clock

import "time"

// Fade interpolates an opacity from one value to another over a fixed
// duration, then calls its completion callback once. A cancelled fade emits
// nothing further.
type Fade struct {
	sched Scheduler
	frame time.Duration

	from, to  float64
	duration  time.Duration
	startedAt time.Time
	timer     Timer
	running   bool

	onStep func(opacity float64)
	onDone func()
}

// StartFade begins a fade and emits the initial opacity synchronously.
func StartFade(s Scheduler, frame time.Duration, from, to float64, duration time.Duration, onStep func(float64), onDone func()) *Fade {
	if frame <= 0 {
		frame = DefaultFrameInterval
	}
	f := &Fade{
		sched:     s,
		frame:     frame,
		from:      from,
		to:        to,
		duration:  duration,
		startedAt: s.Now(),
		running:   true,
		onStep:    onStep,
		onDone:    onDone,
	}
	if duration <= 0 {
		f.finish()
		return f
	}
	f.emit(from)
	f.timer = s.AfterFunc(frame, f.tick)
	return f
}

// Target is the opacity the fade ends at.
func (f *Fade) Target() float64 { return f.to }

// Running reports whether the fade is still in flight.
func (f *Fade) Running() bool { return f.running }

// Cancel stops an in-flight fade without calling its completion callback.
// It returns false if the fade already finished or was cancelled.
func (f *Fade) Cancel() bool {
	if f == nil || !f.running {
		return false
	}
	f.running = false
	if f.timer != nil {
		f.timer.Stop()
		f.timer = nil
	}
	return true
}

func (f *Fade) tick() {
	if !f.running {
		return
	}
	f.timer = nil
	t := f.sched.Now().Sub(f.startedAt)
	if t >= f.duration {
		f.finish()
		return
	}
	f.emit(f.from + (f.to-f.from)*float64(t)/float64(f.duration))
	if f.running {
		f.timer = f.sched.AfterFunc(f.frame, f.tick)
	}
}

func (f *Fade) finish() {
	f.emit(f.to)
	f.running = false
	if f.onDone != nil {
		f.onDone()
	}
}

func (f *Fade) emit(v float64) {
	if f.onStep != nil {
		f.onStep(v)
	}
}
