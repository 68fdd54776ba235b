// Package timeline holds the data model shared by the scrubber: the timeline
// being replayed, its markers and the conversions between positions and time.
package timeline

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/OCAP2/scrubber/internal/util"
)

// ErrInvalidSpeed is returned when a non-positive playback speed is set.
var ErrInvalidSpeed = errors.New("playback speed must be positive")

// InvalidRangeError is returned when end <= start.
type InvalidRangeError struct {
	Start, End float64
}

func (e *InvalidRangeError) Error() string {
	return fmt.Sprintf("invalid timeline range [%g, %g]: end must be greater than start", e.Start, e.End)
}

// ProgressOutOfRangeError reports a progress value outside [Start, End].
// Writes through SetProgress clamp instead of failing; this error is only
// produced by CheckProgress.
type ProgressOutOfRangeError struct {
	Progress   float64
	Start, End float64
}

func (e *ProgressOutOfRangeError) Error() string {
	return fmt.Sprintf("progress %g outside [%g, %g]", e.Progress, e.Start, e.End)
}

// Timeline is the session being scrubbed.
type Timeline struct {
	start    float64
	end      float64
	progress float64

	Length        time.Duration
	PlaybackSpeed float64
	LoopPlayback  bool
	Playing       bool
	DetailTimeout time.Duration
}

// New creates a timeline over [start, end] that takes length to traverse at speed 1.
func New(start, end float64, length time.Duration) (*Timeline, error) {
	if !(end > start) {
		return nil, &InvalidRangeError{Start: start, End: end}
	}
	return &Timeline{
		start:         start,
		end:           end,
		progress:      start,
		Length:        length,
		PlaybackSpeed: 1,
	}, nil
}

// Start returns the lower bound of progress.
func (t *Timeline) Start() float64 { return t.start }

// End returns the upper bound of progress.
func (t *Timeline) End() float64 { return t.end }

// Progress returns the current scrub position.
func (t *Timeline) Progress() float64 { return t.progress }

// SetRange replaces the bounds and re-clamps progress.
func (t *Timeline) SetRange(start, end float64) error {
	if !(end > start) {
		return &InvalidRangeError{Start: start, End: end}
	}
	t.start, t.end = start, end
	t.progress = t.Clamp(t.progress)
	return nil
}

// SetProgress clamps p into [Start, End], stores it and returns the applied value.
func (t *Timeline) SetProgress(p float64) float64 {
	t.progress = t.Clamp(p)
	return t.progress
}

// CheckProgress reports whether p lies within the timeline bounds.
func (t *Timeline) CheckProgress(p float64) error {
	if math.IsNaN(p) || p < t.start || p > t.end {
		return &ProgressOutOfRangeError{Progress: p, Start: t.start, End: t.end}
	}
	return nil
}

// SetPlaybackSpeed sets the clock rate multiplier.
func (t *Timeline) SetPlaybackSpeed(s float64) error {
	if !(s > 0) || math.IsInf(s, 0) {
		return fmt.Errorf("%w: %g", ErrInvalidSpeed, s)
	}
	t.PlaybackSpeed = s
	return nil
}

// Clamp limits p to [Start, End]. NaN maps to Start.
func (t *Timeline) Clamp(p float64) float64 {
	switch {
	case math.IsNaN(p), p < t.start:
		return t.start
	case p > t.end:
		return t.end
	}
	return p
}

// AtEnd reports whether progress sits on the upper bound.
func (t *Timeline) AtEnd() bool {
	return t.progress == t.end
}

// ProgressToTime maps a position onto the elapsed time since Start.
func (t *Timeline) ProgressToTime(p float64) time.Duration {
	return t.SpanToTime(p - t.start)
}

// TimeToProgress is the inverse of ProgressToTime.
func (t *Timeline) TimeToProgress(d time.Duration) float64 {
	if t.Length <= 0 {
		return t.start
	}
	return t.start + float64(d)/float64(t.Length)*(t.end-t.start)
}

// SpanToTime converts a positional distance into the time it takes to cover
// it at speed 1.
func (t *Timeline) SpanToTime(delta float64) time.Duration {
	return time.Duration(float64(t.Length) * delta / (t.end - t.start))
}

// PixelToProgress maps a pointer coordinate on a track of the given width onto
// [start, end], clamping coordinates that fall outside the track.
func PixelToProgress(x, width, start, end float64) float64 {
	if width <= 0 {
		return start
	}
	return util.Clamp(start, start+x/width*(end-start), end)
}
