// Package tui renders a scrubbing session in the terminal with bubbletea.
package tui

import (
	"github.com/OCAP2/scrubber/internal/clock"
	"github.com/OCAP2/scrubber/internal/engine"
	"github.com/OCAP2/scrubber/internal/timeline"
)

// FrameMarker is a marker handle as drawn on the track.
type FrameMarker struct {
	ID       string
	Name     string
	Position float64
	Tags     []timeline.Tag
}

// Current reports whether the marker carries the highlight tag.
func (m FrameMarker) Current() bool {
	for _, t := range m.Tags {
		if t == timeline.TagCurrent {
			return true
		}
	}
	return false
}

// FrameOverlay is the detail overlay as drawn above the track.
type FrameOverlay struct {
	Visible  bool
	Text     string
	Opacity  float64
	Tag      timeline.Tag
	Position float64
}

// Frame is a copy of the engine view holding no engine pointers, so it can
// cross from the control thread to the render goroutine.
type Frame struct {
	Start, End float64
	Progress   float64
	Elapsed    string
	Length     string
	Playing    bool
	Running    bool
	Loop       bool
	Speed      float64
	Overlay    FrameOverlay
	Markers    []FrameMarker
}

// FrameMsg carries a new frame into the bubbletea program.
type FrameMsg Frame

// NewFrame copies v. It must run on the control thread.
func NewFrame(v engine.View) Frame {
	f := Frame{
		Start:    v.Start,
		End:      v.End,
		Progress: v.Progress,
		Elapsed:  v.Elapsed,
		Length:   timeline.FormatElapsed(v.Length),
		Playing:  v.Playing,
		Running:  v.Clock == clock.Running,
		Loop:     v.Loop,
		Speed:    v.Speed,
		Overlay: FrameOverlay{
			Visible: v.Overlay.State != engine.Hidden,
			Text:    v.Overlay.Text,
			Opacity: v.Overlay.Opacity,
			Tag:     v.Overlay.Tag,
		},
		Markers: make([]FrameMarker, len(v.Markers)),
	}
	if v.Overlay.Marker != nil {
		f.Overlay.Position = v.Overlay.Marker.Position
	}
	for i, mv := range v.Markers {
		f.Markers[i] = FrameMarker{
			ID:       mv.Marker.ID,
			Name:     mv.Marker.Name,
			Position: mv.Marker.Position,
			Tags:     append([]timeline.Tag(nil), mv.Tags...),
		}
	}
	return f
}
