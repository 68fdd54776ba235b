package engine

import (
	"github.com/OCAP2/scrubber/internal/clock"
	"github.com/OCAP2/scrubber/internal/timeline"
)

// Speed bounds for SpeedUp and SlowDown.
const (
	MinSpeed = 0.125
	MaxSpeed = 16
)

// StepToPrevious pauses playback and jumps to the closest marker before the
// current progress. Without such a marker it does nothing.
func (e *Engine) StepToPrevious() bool {
	m := e.index.Previous(e.tl.Progress())
	if m == nil {
		return false
	}
	e.SetPlaying(false)
	e.jumpTo(m, "previous")
	return true
}

// StepToNext pauses playback and jumps to the closest marker after the
// current progress. Without such a marker it does nothing.
func (e *Engine) StepToNext() bool {
	m := e.index.Next(e.tl.Progress())
	if m == nil {
		return false
	}
	e.SetPlaying(false)
	e.jumpTo(m, "next")
	return true
}

// SelectMarker handles a press on a marker handle.
func (e *Engine) SelectMarker(m *timeline.Marker) bool {
	if !e.index.Contains(m) {
		return false
	}
	e.SetPlaying(false)
	e.jumpTo(m, "select")
	return true
}

// MarkerByID returns the indexed marker with the given ID, or nil.
func (e *Engine) MarkerByID(id string) *timeline.Marker {
	for _, m := range e.index.Markers() {
		if m.ID == id {
			return m
		}
	}
	return nil
}

func (e *Engine) jumpTo(m *timeline.Marker, kind string) {
	e.metrics.jump(kind)
	e.applyProgress(m.Position, false)
	if e.resolver.Jump(m) {
		e.emit(CurrentMarkerChanged, m)
	}
	e.overlay.Jump(m, timeline.DetailText(e.tl, m))
	e.log.Debug("Jumped to marker", "kind", kind, "marker", m.Name, "position", m.Position)
}

// SetLoop changes the loop policy. Enabling it while playing at the end of
// the timeline restarts from the start.
func (e *Engine) SetLoop(loop bool) {
	if e.tl.LoopPlayback == loop {
		return
	}
	e.tl.LoopPlayback = loop
	if loop && e.tl.Playing && e.tl.AtEnd() {
		e.applyProgress(e.tl.Start(), true)
		e.startClock()
	} else {
		e.clock.SetLoop(loop)
		e.emit(ClockChanged, nil)
	}
	e.log.Debug("Loop toggled", "loop", loop)
}

// ToggleLoop flips the loop policy.
func (e *Engine) ToggleLoop() {
	e.SetLoop(!e.tl.LoopPlayback)
}

// SpeedUp doubles the playback speed up to MaxSpeed.
func (e *Engine) SpeedUp() error {
	return e.SetPlaybackSpeed(min(e.tl.PlaybackSpeed*2, MaxSpeed))
}

// SlowDown halves the playback speed down to MinSpeed.
func (e *Engine) SlowDown() error {
	return e.SetPlaybackSpeed(max(e.tl.PlaybackSpeed/2, MinSpeed))
}

// DetailPosition places an overlay of labelWidth centred over markerX while
// keeping it inside a track of trackWidth.
func DetailPosition(markerX, labelWidth, trackWidth float64) float64 {
	x := markerX - labelWidth/2
	if x+labelWidth > trackWidth {
		x = trackWidth - labelWidth
	}
	if x < 0 {
		x = 0
	}
	return x
}

// Running reports whether the playback clock is driving progress.
func (e *Engine) Running() bool {
	return e.clock.State() == clock.Running
}
