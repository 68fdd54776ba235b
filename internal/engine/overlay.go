package engine

import (
	"time"

	"github.com/OCAP2/scrubber/internal/clock"
	"github.com/OCAP2/scrubber/internal/timeline"
)

// DefaultFadeDuration is the fade-in and fade-out time of the detail overlay.
const DefaultFadeDuration = 400 * time.Millisecond

// OverlayState is the visibility state of the detail overlay.
type OverlayState int

const (
	Hidden OverlayState = iota
	VisiblePersistent
	VisibleTransient
	Hiding
)

func (s OverlayState) String() string {
	switch s {
	case VisiblePersistent:
		return "visible-persistent"
	case VisibleTransient:
		return "visible-transient"
	case Hiding:
		return "hiding"
	default:
		return "hidden"
	}
}

// Overlay is the detail overlay state machine. Persistent content follows
// progress crossings; transient content follows pointer hovers.
type Overlay struct {
	sched    clock.Scheduler
	frame    time.Duration
	duration time.Duration

	state     OverlayState
	marker    *timeline.Marker
	text      string
	tag       timeline.Tag
	opacity   float64
	transient bool
	fade      *clock.Fade

	onChange func(OverlayState)
	onHidden func()
}

// NewOverlay creates a hidden overlay. onChange fires after every state,
// content or opacity change; onHidden fires once per completed fade-out.
func NewOverlay(s clock.Scheduler, frame, duration time.Duration, onChange func(OverlayState), onHidden func()) *Overlay {
	return &Overlay{
		sched:    s,
		frame:    frame,
		duration: duration,
		onChange: onChange,
		onHidden: onHidden,
	}
}

func (o *Overlay) State() OverlayState      { return o.state }
func (o *Overlay) Marker() *timeline.Marker { return o.marker }
func (o *Overlay) Text() string             { return o.text }
func (o *Overlay) Tag() timeline.Tag        { return o.tag }
func (o *Overlay) Opacity() float64         { return o.opacity }

// Transient reports whether a hover interaction owns the overlay.
func (o *Overlay) Transient() bool { return o.transient }

// Visible reports whether the overlay is on screen, fading out included.
func (o *Overlay) Visible() bool { return o.state != Hidden }

// TargetOpacity is the opacity the overlay is heading to.
func (o *Overlay) TargetOpacity() float64 {
	if o.state == Hidden || o.state == Hiding {
		return 0
	}
	return 1
}

// ShowPersistent shows m after a crossing. The overlay fades in when it was
// hidden or fading out; a visible overlay only swaps content.
func (o *Overlay) ShowPersistent(m *timeline.Marker, text string) {
	o.setContent(m, text)
	switch o.state {
	case Hidden, Hiding:
		from := o.opacity
		if o.state == Hidden {
			from = 0
		}
		o.state = VisiblePersistent
		o.startFade(from, 1, nil)
	default:
		o.state = VisiblePersistent
		o.changed()
	}
}

// HoverEnter shows m at full opacity for the duration of a hover.
func (o *Overlay) HoverEnter(m *timeline.Marker, text string) {
	o.transient = true
	o.cancelFade()
	o.setContent(m, text)
	o.opacity = 1
	o.state = VisibleTransient
	o.changed()
}

// HoverExit ends a hover. The overlay stays up when the pointer moved onto
// the overlay itself.
func (o *Overlay) HoverExit(overOverlay bool) {
	if !o.transient || overOverlay {
		return
	}
	o.transient = false
	o.Hide()
}

// LeaveOverlay ends a hover that continued on the overlay.
func (o *Overlay) LeaveOverlay() {
	if !o.transient {
		return
	}
	o.transient = false
	o.Hide()
}

// Jump shows m at full opacity after a manual jump.
func (o *Overlay) Jump(m *timeline.Marker, text string) {
	o.transient = false
	o.cancelFade()
	o.setContent(m, text)
	o.opacity = 1
	o.state = VisiblePersistent
	o.changed()
}

// Hide fades the overlay out. It is a no-op while hidden or already hiding,
// so the completion side effect fires once per fade-out.
func (o *Overlay) Hide() bool {
	if o.state == Hidden || o.state == Hiding {
		return false
	}
	o.state = Hiding
	o.startFade(o.opacity, 0, o.hidden)
	return true
}

// Restyle refreshes the importance tag when m is on display.
func (o *Overlay) Restyle(m *timeline.Marker) {
	if o.marker != m || m == nil {
		return
	}
	o.tag = timeline.StyleTag(m.Importance)
	o.changed()
}

// Purge drops a removed marker from display without fading.
func (o *Overlay) Purge(m *timeline.Marker) bool {
	if o.marker != m || m == nil {
		return false
	}
	o.cancelFade()
	o.marker = nil
	o.text = ""
	o.tag = ""
	o.opacity = 0
	o.transient = false
	o.state = Hidden
	o.changed()
	return true
}

func (o *Overlay) setContent(m *timeline.Marker, text string) {
	o.marker = m
	o.text = text
	o.tag = timeline.StyleTag(m.Importance)
}

func (o *Overlay) startFade(from, to float64, done func()) {
	o.cancelFade()
	var f *clock.Fade
	f = clock.StartFade(o.sched, o.frame, from, to, o.duration, func(v float64) {
		o.opacity = v
		o.changed()
	}, func() {
		if o.fade == f {
			o.fade = nil
		}
		if done != nil {
			done()
		}
	})
	if f.Running() {
		o.fade = f
	}
}

func (o *Overlay) cancelFade() {
	if o.fade != nil {
		o.fade.Cancel()
		o.fade = nil
	}
}

func (o *Overlay) hidden() {
	o.state = Hidden
	o.opacity = 0
	o.marker = nil
	o.changed()
	if o.onHidden != nil {
		o.onHidden()
	}
}

func (o *Overlay) changed() {
	if o.onChange != nil {
		o.onChange(o.state)
	}
}
