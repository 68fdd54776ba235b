package engine

import (
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/OCAP2/scrubber/internal/clock"
	"github.com/OCAP2/scrubber/internal/timeline"
)

var epoch = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

type fixture struct {
	tl      *timeline.Timeline
	sched   *clock.Manual
	engine  *Engine
	markers map[float64]*timeline.Marker
	events  []Event
}

// newFixture builds an engine over [0, 100] taking 100s at speed 1, so one
// unit of progress is one second.
func newFixture(t *testing.T, playing bool, positions ...float64) *fixture {
	t.Helper()
	tl, err := timeline.New(0, 100, 100*time.Second)
	require.NoError(t, err)
	tl.DetailTimeout = 2 * time.Second
	tl.Playing = playing

	f := &fixture{tl: tl, sched: clock.NewManual(epoch), markers: map[float64]*timeline.Marker{}}
	f.engine, err = New(tl, f.sched, Config{
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	require.NoError(t, err)
	f.engine.Subscribe(func(ev Event) { f.events = append(f.events, ev) })

	var added []*timeline.Marker
	for _, p := range positions {
		m := &timeline.Marker{Position: p, Name: markerName(p), Importance: timeline.ImportanceNormal}
		f.markers[p] = m
		added = append(added, m)
	}
	if len(added) > 0 {
		f.engine.Apply([]timeline.Change{{Kind: timeline.Insert, Markers: added}})
	}
	f.events = nil
	return f
}

func markerName(p float64) string {
	switch p {
	case 10:
		return "ten"
	case 50:
		return "fifty"
	case 90:
		return "ninety"
	}
	return "marker"
}

func (f *fixture) count(kind EventKind) int {
	n := 0
	for _, ev := range f.events {
		if ev.Kind == kind {
			n++
		}
	}
	return n
}

func TestNew_Validation(t *testing.T) {
	tl, err := timeline.New(0, 1, time.Second)
	require.NoError(t, err)

	_, err = New(nil, clock.NewManual(epoch), Config{})
	assert.Error(t, err)
	_, err = New(tl, nil, Config{})
	assert.Error(t, err)
}

func TestNew_PlayingStartsClock(t *testing.T) {
	f := newFixture(t, true)
	assert.Equal(t, clock.Running, f.engine.ClockState())

	g := newFixture(t, false)
	assert.Equal(t, clock.Stopped, g.engine.ClockState())
}

func TestStepToNext_WalksMarkersThenStops(t *testing.T) {
	f := newFixture(t, true, 10, 50, 90)

	for _, want := range []float64{10, 50, 90} {
		require.True(t, f.engine.StepToNext())
		assert.Equal(t, want, f.tl.Progress())
		assert.False(t, f.tl.Playing)
		assert.Equal(t, clock.Stopped, f.engine.ClockState())
		assert.Same(t, f.markers[want], f.engine.CurrentMarker())

		v := f.engine.Snapshot()
		assert.Equal(t, VisiblePersistent, v.Overlay.State)
		assert.Equal(t, 1.0, v.Overlay.Opacity)
		assert.False(t, v.Overlay.Transient)
		assert.Same(t, f.markers[want], v.Highlighted)
	}

	assert.False(t, f.engine.StepToNext())
	assert.Equal(t, 90.0, f.tl.Progress())
}

func TestStepToPrevious(t *testing.T) {
	f := newFixture(t, false, 10, 50, 90)
	f.engine.SetProgress(60)

	require.True(t, f.engine.StepToPrevious())
	assert.Equal(t, 50.0, f.tl.Progress())
	assert.Same(t, f.markers[50], f.engine.CurrentMarker())

	require.True(t, f.engine.StepToPrevious())
	assert.Equal(t, 10.0, f.tl.Progress())
	assert.Same(t, f.markers[10], f.engine.CurrentMarker())
	assert.Equal(t, "00:00:10.000 - ten", f.engine.Overlay().Text())

	assert.False(t, f.engine.StepToPrevious())
	assert.Equal(t, 10.0, f.tl.Progress())
}

func TestStep_NoMarkerKeepsPlaying(t *testing.T) {
	f := newFixture(t, true)
	assert.False(t, f.engine.StepToNext())
	assert.True(t, f.tl.Playing)
	assert.Equal(t, clock.Running, f.engine.ClockState())
}

func TestHover_ShowsTransientWithoutTouchingProgress(t *testing.T) {
	f := newFixture(t, false, 10, 50, 90)
	f.engine.SetProgress(20)
	require.Same(t, f.markers[10], f.engine.CurrentMarker())

	f.engine.HoverEnter(f.markers[50])

	want := View{
		Start:       0,
		End:         100,
		Progress:    20,
		Elapsed:     "00:00:20.000",
		Length:      100 * time.Second,
		Clock:       clock.Stopped,
		Speed:       1,
		Current:     f.markers[10],
		Highlighted: f.markers[10],
		Overlay: OverlayView{
			State:         VisibleTransient,
			Text:          "00:00:50.000 - fifty",
			Opacity:       1,
			TargetOpacity: 1,
			Tag:           "importance-normal",
			Marker:        f.markers[50],
			Transient:     true,
		},
		Markers: []MarkerView{
			{Marker: f.markers[10], Tags: []timeline.Tag{"importance-normal", timeline.TagCurrent}},
			{Marker: f.markers[50], Tags: []timeline.Tag{"importance-normal"}},
			{Marker: f.markers[90], Tags: []timeline.Tag{"importance-normal"}},
		},
	}
	if diff := cmp.Diff(want, f.engine.Snapshot()); diff != "" {
		t.Errorf("view mismatch (-want +got):\n%s", diff)
	}
}

func TestHover_ExitFadesOutAndClearsHighlight(t *testing.T) {
	f := newFixture(t, false, 10, 50)
	f.engine.SetProgress(20)
	f.engine.HoverEnter(f.markers[50])

	f.engine.HoverExit(true)
	assert.Equal(t, VisibleTransient, f.engine.Overlay().State())

	f.engine.LeaveOverlay()
	assert.Equal(t, Hiding, f.engine.Overlay().State())
	assert.False(t, f.engine.Overlay().Transient())

	f.sched.Advance(time.Second)
	assert.Equal(t, Hidden, f.engine.Overlay().State())
	assert.Nil(t, f.engine.Snapshot().Highlighted)
	assert.Same(t, f.markers[10], f.engine.CurrentMarker())
}

func TestHover_SuppressesCrossingDecision(t *testing.T) {
	f := newFixture(t, false, 10, 50)
	f.engine.HoverEnter(f.markers[50])

	f.engine.SetProgress(10)
	assert.Equal(t, VisibleTransient, f.engine.Overlay().State())
	assert.Same(t, f.markers[50], f.engine.Overlay().Marker())
	assert.Same(t, f.markers[10], f.engine.CurrentMarker())
}

func TestHover_UnknownMarkerIgnored(t *testing.T) {
	f := newFixture(t, false, 10)
	f.engine.HoverEnter(&timeline.Marker{Position: 40})
	assert.Equal(t, Hidden, f.engine.Overlay().State())
}

func TestToggleLoop_AtEndWhilePlayingRestarts(t *testing.T) {
	tl, err := timeline.New(0, 100, time.Second)
	require.NoError(t, err)
	tl.Playing = true
	sched := clock.NewManual(epoch)
	e, err := New(tl, sched, Config{Logger: slog.New(slog.NewTextHandler(io.Discard, nil))})
	require.NoError(t, err)

	sched.Advance(1100 * time.Millisecond)
	require.Equal(t, 100.0, tl.Progress())
	require.Equal(t, clock.Stopped, e.ClockState())
	require.True(t, tl.Playing)

	e.ToggleLoop()
	assert.True(t, tl.LoopPlayback)
	assert.Equal(t, 0.0, tl.Progress())
	assert.Equal(t, clock.Running, e.ClockState())

	sched.Advance(500 * time.Millisecond)
	assert.InDelta(t, 50, tl.Progress(), 2)
	assert.Equal(t, clock.Running, e.ClockState())

	sched.Advance(time.Second)
	assert.Equal(t, clock.Running, e.ClockState())
}

func TestToggleLoop_DisableKeepsPosition(t *testing.T) {
	f := newFixture(t, true)
	f.engine.SetLoop(true)
	f.sched.Advance(10 * time.Second)
	p := f.tl.Progress()

	f.engine.ToggleLoop()
	assert.False(t, f.tl.LoopPlayback)
	assert.Equal(t, p, f.tl.Progress())
	assert.Equal(t, clock.Running, f.engine.ClockState())
}

func TestPlayback_RunsOnceToEnd(t *testing.T) {
	tl, err := timeline.New(0, 100, time.Second)
	require.NoError(t, err)
	sched := clock.NewManual(epoch)
	e, err := New(tl, sched, Config{Logger: slog.New(slog.NewTextHandler(io.Discard, nil))})
	require.NoError(t, err)

	e.SetPlaying(true)
	sched.Advance(500 * time.Millisecond)
	assert.InDelta(t, 50, tl.Progress(), 2)

	sched.Advance(time.Second)
	assert.Equal(t, 100.0, tl.Progress())
	assert.Equal(t, clock.Stopped, e.ClockState())
	assert.Equal(t, 0, sched.Pending())

	e.Resume()
	assert.Equal(t, clock.Running, e.ClockState())
}

func TestSetProgress_WhileRunningReseedsClock(t *testing.T) {
	f := newFixture(t, false)
	f.engine.SetPlaying(true)
	f.sched.Advance(5 * time.Second)
	assert.InDelta(t, 5, f.tl.Progress(), 0.1)

	f.engine.SetProgress(50)
	f.sched.Advance(5 * time.Second)
	assert.InDelta(t, 55, f.tl.Progress(), 0.1)
	assert.Equal(t, clock.Running, f.engine.ClockState())
}

func TestSetLength_WhileRunningKeepsProgress(t *testing.T) {
	f := newFixture(t, true)
	f.sched.Advance(50 * time.Second)
	require.InDelta(t, 50, f.tl.Progress(), 0.1)

	f.engine.SetLength(200 * time.Second)
	assert.Equal(t, 200*time.Second, f.tl.Length)
	f.sched.Advance(16 * time.Millisecond)
	assert.InDelta(t, 50, f.tl.Progress(), 0.1)

	f.sched.Advance(10 * time.Second)
	assert.InDelta(t, 55, f.tl.Progress(), 0.1)
	assert.Equal(t, clock.Running, f.engine.ClockState())
}

func TestSetProgress_ListenersSeeResolvedMarker(t *testing.T) {
	f := newFixture(t, false, 10, 50, 90)
	var seen []*timeline.Marker
	f.engine.Subscribe(func(ev Event) {
		if ev.Kind == ProgressChanged {
			seen = append(seen, f.engine.CurrentMarker())
		}
	})

	f.engine.SetProgress(60)
	require.Len(t, seen, 1)
	assert.Same(t, f.markers[50], seen[0])

	f.engine.SetProgress(95)
	require.Len(t, seen, 2)
	assert.Same(t, f.markers[90], seen[1])
}

func TestSetProgress_Clamps(t *testing.T) {
	f := newFixture(t, false)
	f.engine.SetProgress(150)
	assert.Equal(t, 100.0, f.tl.Progress())
	f.engine.SetProgress(-5)
	assert.Equal(t, 0.0, f.tl.Progress())
}

func TestSetProgress_UnchangedIsSilent(t *testing.T) {
	f := newFixture(t, false)
	f.engine.SetProgress(30)
	f.events = nil
	f.engine.SetProgress(30)
	assert.Empty(t, f.events)
}

func TestCrossing_ShowsThenTimesOut(t *testing.T) {
	f := newFixture(t, false, 50)

	f.engine.SetProgress(50)
	assert.Equal(t, VisiblePersistent, f.engine.Overlay().State())
	assert.Equal(t, 0.0, f.engine.Overlay().Opacity())
	f.sched.Advance(time.Second)
	assert.Equal(t, 1.0, f.engine.Overlay().Opacity())

	// within the timeout: content stays, no new fade
	f.engine.SetProgress(51)
	assert.Equal(t, VisiblePersistent, f.engine.Overlay().State())
	assert.Equal(t, 1.0, f.engine.Overlay().Opacity())

	// three seconds away at speed 1
	f.engine.SetProgress(53)
	assert.Equal(t, Hiding, f.engine.Overlay().State())

	// back within range while fading out: fade in from the current opacity
	f.sched.Advance(100 * time.Millisecond)
	faded := f.engine.Overlay().Opacity()
	require.Less(t, faded, 1.0)
	f.engine.SetProgress(51)
	assert.Equal(t, VisiblePersistent, f.engine.Overlay().State())
	assert.Equal(t, faded, f.engine.Overlay().Opacity())
	f.sched.Advance(time.Second)
	assert.Equal(t, 1.0, f.engine.Overlay().Opacity())
}

func TestCrossing_SpeedShortensDistance(t *testing.T) {
	f := newFixture(t, false, 50)
	require.NoError(t, f.engine.SetPlaybackSpeed(4))

	f.engine.SetProgress(50)
	f.engine.SetProgress(57)
	assert.Equal(t, VisiblePersistent, f.engine.Overlay().State())

	f.engine.SetProgress(58)
	assert.Equal(t, Hiding, f.engine.Overlay().State())
}

func TestCrossing_NoCurrentMarkerSkipped(t *testing.T) {
	f := newFixture(t, false, 50)
	f.engine.SetProgress(20)
	assert.Nil(t, f.engine.CurrentMarker())
	assert.Equal(t, Hidden, f.engine.Overlay().State())
}

func TestCrossing_DuringPlaybackHidesAfterTimeout(t *testing.T) {
	f := newFixture(t, false, 10)
	f.engine.SetPlaying(true)

	f.sched.Advance(11 * time.Second)
	assert.Same(t, f.markers[10], f.engine.CurrentMarker())
	assert.Equal(t, VisiblePersistent, f.engine.Overlay().State())

	f.sched.Advance(1200 * time.Millisecond)
	assert.Equal(t, Hiding, f.engine.Overlay().State())

	f.sched.Advance(time.Second)
	assert.Equal(t, Hidden, f.engine.Overlay().State())
	assert.Nil(t, f.engine.Snapshot().Highlighted)
	assert.Same(t, f.markers[10], f.engine.CurrentMarker())
}

func TestHideDetail_IsIdempotent(t *testing.T) {
	f := newFixture(t, false, 50)
	f.engine.SetProgress(50)
	f.sched.Advance(time.Second)
	f.events = nil

	assert.True(t, f.engine.HideDetail())
	assert.False(t, f.engine.HideDetail())
	f.sched.Advance(time.Second)
	assert.False(t, f.engine.HideDetail())

	assert.Equal(t, Hidden, f.engine.Overlay().State())
	assert.Equal(t, 1, f.count(CurrentMarkerChanged))
}

func TestSweep_BackwardKeepsMaxPosition(t *testing.T) {
	f := newFixture(t, false, 10, 50)
	f.engine.SetProgress(100)
	assert.Same(t, f.markers[50], f.engine.CurrentMarker())

	f.engine.SetProgress(5)
	assert.Same(t, f.markers[50], f.engine.CurrentMarker())

	f.engine.SetProgress(0)
	assert.Same(t, f.markers[50], f.engine.CurrentMarker())

	f.engine.SetProgress(10)
	assert.Same(t, f.markers[10], f.engine.CurrentMarker())
}

func TestApply_RemovePurgesReferences(t *testing.T) {
	f := newFixture(t, false, 10, 50)
	f.engine.SetProgress(50)
	require.Same(t, f.markers[50], f.engine.CurrentMarker())

	f.engine.Apply([]timeline.Change{{Kind: timeline.Delete, Markers: []*timeline.Marker{f.markers[50]}}})

	assert.Nil(t, f.engine.CurrentMarker())
	assert.Nil(t, f.engine.Overlay().Marker())
	assert.Equal(t, Hidden, f.engine.Overlay().State())
	assert.Equal(t, 1, f.engine.Index().Len())
	assert.Equal(t, 1, f.count(MarkersChanged))
	assert.NoError(t, f.engine.checkReferences(f.markers[50]))
}

func TestApply_SamePositionLastInsertWins(t *testing.T) {
	f := newFixture(t, false)
	a := &timeline.Marker{Position: 40, Name: "a"}
	b := &timeline.Marker{Position: 40, Name: "b"}
	f.engine.Apply([]timeline.Change{
		{Kind: timeline.Insert, Markers: []*timeline.Marker{a}},
		{Kind: timeline.Insert, Markers: []*timeline.Marker{b}},
	})

	f.engine.SetProgress(45)
	assert.Same(t, b, f.engine.CurrentMarker())

	f.engine.Apply([]timeline.Change{{Kind: timeline.Delete, Markers: []*timeline.Marker{b}}})
	f.engine.SetProgress(40)
	assert.Same(t, a, f.engine.CurrentMarker())
}

func TestSetImportance_RestylesOverlay(t *testing.T) {
	f := newFixture(t, false, 50)
	m := f.markers[50]
	f.engine.HoverEnter(m)

	f.engine.SetImportance(m, timeline.ImportanceHighest)
	assert.Equal(t, timeline.Tag("importance-highest"), f.engine.Overlay().Tag())
	assert.Equal(t, 1, f.count(MarkerTagsChanged))

	f.engine.SetImportance(m, timeline.ImportanceHighest)
	assert.Equal(t, 1, f.count(MarkerTagsChanged))
}

func TestSelectMarker_IsManualJump(t *testing.T) {
	f := newFixture(t, true, 10, 50)
	f.engine.HoverEnter(f.markers[50])

	require.True(t, f.engine.SelectMarker(f.markers[50]))
	assert.Equal(t, 50.0, f.tl.Progress())
	assert.False(t, f.tl.Playing)
	assert.False(t, f.engine.Overlay().Transient())
	assert.Equal(t, VisiblePersistent, f.engine.Overlay().State())

	assert.False(t, f.engine.SelectMarker(&timeline.Marker{Position: 1}))
}

func TestDrag_PausesAndClamps(t *testing.T) {
	f := newFixture(t, true, 10)
	f.engine.Drag(25, 100)
	assert.Equal(t, 25.0, f.tl.Progress())
	assert.False(t, f.tl.Playing)
	assert.Same(t, f.markers[10], f.engine.CurrentMarker())

	f.engine.Drag(-40, 100)
	assert.Equal(t, 0.0, f.tl.Progress())
	f.engine.Drag(400, 100)
	assert.Equal(t, 100.0, f.tl.Progress())
}

func TestSpeedControls(t *testing.T) {
	f := newFixture(t, false)
	for range 10 {
		require.NoError(t, f.engine.SpeedUp())
	}
	assert.Equal(t, float64(MaxSpeed), f.tl.PlaybackSpeed)

	for range 20 {
		require.NoError(t, f.engine.SlowDown())
	}
	assert.Equal(t, MinSpeed, f.tl.PlaybackSpeed)

	err := f.engine.SetPlaybackSpeed(0)
	assert.True(t, errors.Is(err, timeline.ErrInvalidSpeed))
	assert.Equal(t, MinSpeed, f.tl.PlaybackSpeed)
}

func TestSubscribe_Unsubscribe(t *testing.T) {
	f := newFixture(t, false)
	var got []EventKind
	unsubscribe := f.engine.Subscribe(func(ev Event) { got = append(got, ev.Kind) })

	f.engine.TogglePlaying()
	unsubscribe()
	f.engine.TogglePlaying()

	assert.Equal(t, []EventKind{ClockChanged, PlayingChanged}, got)
}

func TestDetailPosition(t *testing.T) {
	tests := []struct {
		name                      string
		markerX, label, trackWide float64
		want                      float64
	}{
		{"centred", 50, 20, 100, 40},
		{"left edge", 5, 20, 100, 0},
		{"right edge", 95, 20, 100, 80},
		{"wider than track", 50, 200, 100, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DetailPosition(tt.markerX, tt.label, tt.trackWide))
		})
	}
}

func TestLogAttrs(t *testing.T) {
	f := newFixture(t, false)
	f.engine.SetProgress(42)
	attrs := f.engine.LogAttrs()
	require.Len(t, attrs, 2)
	assert.Equal(t, 42.0, attrs[0].Value.Float64())
	assert.False(t, attrs[1].Value.Bool())
}
