// Package engine is the timeline scrubbing and marker-proximity engine. It
// drives progress under the playback clock, resolves the current marker,
// runs the detail overlay state machine and handles marker navigation.
//
// An Engine is not safe for concurrent use: every method must be called on
// the control thread that also runs its scheduler callbacks.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/metric"

	"github.com/OCAP2/scrubber/internal/cache"
	"github.com/OCAP2/scrubber/internal/clock"
	"github.com/OCAP2/scrubber/internal/timeline"
)

// ErrDanglingMarker reports a removed marker that is still referenced.
var ErrDanglingMarker = errors.New("removed marker still referenced")

// Config holds engine settings. Zero values select the defaults.
type Config struct {
	FrameInterval time.Duration
	FadeDuration  time.Duration
	Logger        *slog.Logger
	Meter         metric.Meter
}

// Engine ties the marker index, resolver, overlay and playback clock to one
// timeline.
type Engine struct {
	tl       *timeline.Timeline
	sched    clock.Scheduler
	index    *cache.MarkerIndex
	resolver *Resolver
	overlay  *Overlay
	clock    *clock.Playback
	log      *slog.Logger
	metrics  *metrics

	listeners map[int]Listener
	order     []int
	nextID    int

	lastOverlayState OverlayState

	// mirrors for readers outside the control thread (log context)
	progressBits atomic.Uint64
	running      atomic.Bool
}

// New creates an engine for tl. The clock starts right away when tl.Playing
// is set.
func New(tl *timeline.Timeline, sched clock.Scheduler, cfg Config) (*Engine, error) {
	if tl == nil {
		return nil, errors.New("engine: nil timeline")
	}
	if sched == nil {
		return nil, errors.New("engine: nil scheduler")
	}
	if cfg.FrameInterval <= 0 {
		cfg.FrameInterval = clock.DefaultFrameInterval
	}
	if cfg.FadeDuration <= 0 {
		cfg.FadeDuration = DefaultFadeDuration
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Meter == nil {
		cfg.Meter = meter()
	}
	mt, err := newMetrics(cfg.Meter)
	if err != nil {
		return nil, err
	}

	e := &Engine{
		tl:        tl,
		sched:     sched,
		index:     cache.NewMarkerIndex(),
		log:       cfg.Logger,
		metrics:   mt,
		listeners: make(map[int]Listener),
	}
	e.resolver = NewResolver(e.index)
	e.overlay = NewOverlay(sched, cfg.FrameInterval, cfg.FadeDuration, e.overlayChanged, e.overlayHidden)
	e.clock = clock.NewPlayback(sched, cfg.FrameInterval, tl.Length, e.clockAdvanced, e.clockFinished)
	e.mirror()

	if tl.Playing {
		e.startClock()
	}
	return e, nil
}

// Timeline returns the timeline driven by the engine.
func (e *Engine) Timeline() *timeline.Timeline { return e.tl }

// Index returns the marker index.
func (e *Engine) Index() *cache.MarkerIndex { return e.index }

// CurrentMarker returns the current marker, or nil.
func (e *Engine) CurrentMarker() *timeline.Marker { return e.resolver.Current() }

// Overlay returns the detail overlay.
func (e *Engine) Overlay() *Overlay { return e.overlay }

// ClockState returns the playback clock state.
func (e *Engine) ClockState() clock.State { return e.clock.State() }

// Subscribe registers l for every event. The returned func unsubscribes.
func (e *Engine) Subscribe(l Listener) func() {
	id := e.nextID
	e.nextID++
	e.listeners[id] = l
	e.order = append(e.order, id)
	return func() {
		delete(e.listeners, id)
		for i, v := range e.order {
			if v == id {
				e.order = append(e.order[:i], e.order[i+1:]...)
				break
			}
		}
	}
}

func (e *Engine) emit(kind EventKind, m *timeline.Marker) {
	ev := Event{Kind: kind, Marker: m}
	ids := append([]int(nil), e.order...)
	for _, id := range ids {
		if l, ok := e.listeners[id]; ok {
			l(ev)
		}
	}
}

// Apply processes an ordered sequence of marker notifications.
func (e *Engine) Apply(changes []timeline.Change) {
	touched := false
	for _, c := range changes {
		for _, m := range c.Markers {
			if m == nil {
				continue
			}
			switch c.Kind {
			case timeline.Insert:
				if !e.index.Upsert(m) {
					e.log.Warn("Ignoring marker without a usable position", "marker", m.Name, "id", m.ID)
					continue
				}
				if m.Position < e.tl.Start() || m.Position > e.tl.End() {
					e.log.Warn("Marker outside timeline range", "marker", m.Name, "position", m.Position)
				}
			case timeline.Delete:
				e.remove(m)
			}
			touched = true
		}
	}
	if touched {
		e.log.Debug("Applied marker changes", "changes", len(changes), "markers", e.index.Len())
		e.emit(MarkersChanged, nil)
	}
}

func (e *Engine) remove(m *timeline.Marker) {
	e.index.Remove(m)
	referenced := e.resolver.Forget(m)
	e.overlay.Purge(m)
	if err := e.checkReferences(m); err != nil {
		e.log.Error("Invariant violation after marker removal", "error", err, "marker", m.Name)
		e.resolver.Forget(m)
		e.overlay.Purge(m)
	}
	if referenced {
		e.emit(CurrentMarkerChanged, e.resolver.Current())
	}
}

func (e *Engine) checkReferences(m *timeline.Marker) error {
	if e.resolver.Current() == m || e.resolver.Highlighted() == m || e.overlay.Marker() == m {
		return fmt.Errorf("%w: %s", ErrDanglingMarker, m)
	}
	return nil
}

// SetImportance changes the importance of a marker and restyles it.
func (e *Engine) SetImportance(m *timeline.Marker, imp timeline.Importance) {
	if m == nil || m.Importance == imp {
		return
	}
	m.Importance = imp
	e.emit(MarkerTagsChanged, m)
	e.overlay.Restyle(m)
}

// SetProgress moves progress to p, clamped into the timeline range, as an
// explicit seek. A running clock continues from the new position.
func (e *Engine) SetProgress(p float64) {
	e.applyProgress(p, true)
	if e.clock.State() == clock.Running {
		e.startClock()
	}
}

// Drag maps a pointer coordinate on a track of the given width onto progress.
// Dragging pauses playback.
func (e *Engine) Drag(x, width float64) {
	e.SetPlaying(false)
	e.applyProgress(timeline.PixelToProgress(x, width, e.tl.Start(), e.tl.End()), true)
}

// applyProgress is the single progress write path: the resolver pass and any
// overlay transition complete before it returns.
func (e *Engine) applyProgress(p float64, crossing bool) {
	old := e.tl.Progress()
	cur := e.tl.SetProgress(p)
	if cur == old {
		return
	}
	e.mirror()

	currentChanged, highlightChanged := e.resolver.Resolve(old, cur)
	if currentChanged {
		e.metrics.currentChanges.Add(context.Background(), 1)
		e.log.Debug("Current marker changed", "marker", e.resolver.Current().Name, "progress", cur)
	}
	if currentChanged || highlightChanged {
		e.emit(CurrentMarkerChanged, e.resolver.Current())
	}
	if crossing {
		e.crossed(cur)
	}
	e.emit(ProgressChanged, nil)
}

// crossed decides whether the current marker's detail stays on screen.
func (e *Engine) crossed(p float64) {
	if e.overlay.Transient() {
		return
	}
	m := e.resolver.Current()
	if m == nil {
		return
	}
	delta := math.Abs(m.Position-p) / e.tl.PlaybackSpeed
	if e.tl.SpanToTime(delta) >= e.tl.DetailTimeout {
		e.overlay.Hide()
		return
	}
	e.overlay.ShowPersistent(m, timeline.DetailText(e.tl, m))
}

// HoverEnter shows the detail of m while the pointer rests on its handle.
// Progress and the current highlight are left alone.
func (e *Engine) HoverEnter(m *timeline.Marker) {
	if !e.index.Contains(m) {
		return
	}
	e.overlay.HoverEnter(m, timeline.DetailText(e.tl, m))
}

// HoverExit ends a hover. overOverlay reports that the pointer left the
// handle onto the overlay, which keeps it visible.
func (e *Engine) HoverExit(overOverlay bool) {
	e.overlay.HoverExit(overOverlay)
}

// LeaveOverlay ends a hover that moved from a handle onto the overlay.
func (e *Engine) LeaveOverlay() {
	e.overlay.LeaveOverlay()
}

// HideDetail fades the overlay out.
func (e *Engine) HideDetail() bool {
	return e.overlay.Hide()
}

func (e *Engine) overlayChanged(s OverlayState) {
	if s != e.lastOverlayState {
		e.metrics.overlayTransition(s)
		e.log.Debug("Overlay state changed", "from", e.lastOverlayState.String(), "to", s.String())
		e.lastOverlayState = s
	}
	e.emit(OverlayChanged, e.overlay.Marker())
}

func (e *Engine) overlayHidden() {
	if e.resolver.ClearHighlight() {
		e.emit(CurrentMarkerChanged, e.resolver.Current())
	}
}

// SetPlaying starts or pauses playback.
func (e *Engine) SetPlaying(playing bool) {
	if e.tl.Playing == playing {
		return
	}
	e.tl.Playing = playing
	if playing {
		e.startClock()
	} else {
		e.stopClock()
	}
	e.log.Debug("Playback toggled", "playing", playing, "progress", e.tl.Progress())
	e.emit(PlayingChanged, nil)
}

// TogglePlaying flips the playing flag.
func (e *Engine) TogglePlaying() {
	e.SetPlaying(!e.tl.Playing)
}

// Resume restarts the clock from the current position, even when a
// non-looping run already finished while still flagged as playing.
func (e *Engine) Resume() {
	if !e.tl.Playing {
		e.SetPlaying(true)
		return
	}
	e.startClock()
}

// SetPlaybackSpeed changes the rate. A running clock keeps its position.
func (e *Engine) SetPlaybackSpeed(speed float64) error {
	if err := e.tl.SetPlaybackSpeed(speed); err != nil {
		return err
	}
	e.clock.SetRate(speed)
	e.emit(ClockChanged, nil)
	return nil
}

// SetLength changes the real-world duration of the timeline.
func (e *Engine) SetLength(d time.Duration) {
	e.tl.Length = d
	e.clock.SetLength(d)
	e.mirror()
	e.emit(ClockChanged, nil)
}

func (e *Engine) startClock() {
	e.clock.Start(e.tl.ProgressToTime(e.tl.Progress()), e.tl.PlaybackSpeed, e.tl.LoopPlayback)
	e.mirror()
	e.emit(ClockChanged, nil)
}

func (e *Engine) stopClock() {
	if e.clock.State() != clock.Running {
		return
	}
	e.clock.Stop()
	e.mirror()
	e.emit(ClockChanged, nil)
}

func (e *Engine) clockAdvanced(elapsed time.Duration) {
	e.applyProgress(e.tl.TimeToProgress(elapsed), true)
}

func (e *Engine) clockFinished() {
	e.log.Debug("Playback reached the end", "progress", e.tl.Progress())
	e.mirror()
	e.emit(ClockChanged, nil)
}

func (e *Engine) mirror() {
	e.progressBits.Store(math.Float64bits(e.tl.Progress()))
	e.running.Store(e.clock != nil && e.clock.State() == clock.Running)
}

// LogAttrs returns attributes describing the playback position. Safe to call
// from any goroutine.
func (e *Engine) LogAttrs() []slog.Attr {
	return []slog.Attr{
		slog.Float64("progress", math.Float64frombits(e.progressBits.Load())),
		slog.Bool("running", e.running.Load()),
	}
}

// Snapshot captures the renderer-facing state.
func (e *Engine) Snapshot() View {
	markers := e.index.Markers()
	views := make([]MarkerView, len(markers))
	for i, m := range markers {
		tags := []timeline.Tag{timeline.StyleTag(m.Importance)}
		if m == e.resolver.Highlighted() {
			tags = append(tags, timeline.TagCurrent)
		}
		views[i] = MarkerView{Marker: m, Tags: tags}
	}
	return View{
		Start:       e.tl.Start(),
		End:         e.tl.End(),
		Progress:    e.tl.Progress(),
		Elapsed:     timeline.FormatElapsed(e.tl.ProgressToTime(e.tl.Progress())),
		Length:      e.tl.Length,
		Playing:     e.tl.Playing,
		Clock:       e.clock.State(),
		Loop:        e.tl.LoopPlayback,
		Speed:       e.tl.PlaybackSpeed,
		Current:     e.resolver.Current(),
		Highlighted: e.resolver.Highlighted(),
		Overlay: OverlayView{
			State:         e.overlay.State(),
			Text:          e.overlay.Text(),
			Opacity:       e.overlay.Opacity(),
			TargetOpacity: e.overlay.TargetOpacity(),
			Tag:           e.overlay.Tag(),
			Marker:        e.overlay.Marker(),
			Transient:     e.overlay.Transient(),
		},
		Markers: views,
	}
}
