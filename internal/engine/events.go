package engine

import (
	"time"

	"github.com/OCAP2/scrubber/internal/clock"
	"github.com/OCAP2/scrubber/internal/timeline"
)

// EventKind identifies a change notification.
type EventKind int

const (
	ProgressChanged EventKind = iota
	PlayingChanged
	ClockChanged
	CurrentMarkerChanged
	OverlayChanged
	MarkerTagsChanged
	MarkersChanged
)

var eventKindNames = map[EventKind]string{
	ProgressChanged:      "progress",
	PlayingChanged:       "playing",
	ClockChanged:         "clock",
	CurrentMarkerChanged: "current-marker",
	OverlayChanged:       "overlay",
	MarkerTagsChanged:    "marker-tags",
	MarkersChanged:       "markers",
}

func (k EventKind) String() string {
	if name, ok := eventKindNames[k]; ok {
		return name
	}
	return "unknown"
}

// Event is delivered to subscribers on the control thread, after the change
// it describes has been fully applied.
type Event struct {
	Kind   EventKind
	Marker *timeline.Marker
}

// Listener receives engine events.
type Listener func(Event)

// OverlayView is the renderer-facing state of the detail overlay.
type OverlayView struct {
	State         OverlayState
	Text          string
	Opacity       float64
	TargetOpacity float64
	Tag           timeline.Tag
	Marker        *timeline.Marker
	Transient     bool
}

// MarkerView is a marker with its style tags.
type MarkerView struct {
	Marker *timeline.Marker
	Tags   []timeline.Tag
}

// View is a snapshot of everything the rendering layer consumes.
type View struct {
	Start, End  float64
	Progress    float64
	Elapsed     string
	Length      time.Duration
	Playing     bool
	Clock       clock.State
	Loop        bool
	Speed       float64
	Current     *timeline.Marker
	Highlighted *timeline.Marker
	Overlay     OverlayView
	Markers     []MarkerView
}
