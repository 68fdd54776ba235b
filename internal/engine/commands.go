package engine

import (
	"fmt"
	"strconv"

	"github.com/OCAP2/scrubber/internal/dispatcher"
	"github.com/OCAP2/scrubber/internal/timeline"
)

// Keyboard command names.
const (
	CmdTogglePlay   = "toggle-play"
	CmdStepPrevious = "step-previous"
	CmdStepNext     = "step-next"
	CmdToggleLoop   = "toggle-loop"
	CmdSpeedUp      = "speed-up"
	CmdSlowDown     = "slow-down"
	CmdSeek         = "seek"
	CmdResume       = "resume"
	CmdHideDetail   = "hide-detail"
)

// Pointer command names.
const (
	CmdDrag         = "drag"
	CmdSelect       = "select"
	CmdHover        = "hover"
	CmdHoverExit    = "hover-exit"
	CmdLeaveOverlay = "leave-overlay"
)

// RegisterCommands binds the playback commands to d. Pass
// dispatcher.Deferred when events arrive off the control thread.
func (e *Engine) RegisterCommands(d *dispatcher.Dispatcher, opts ...dispatcher.Option) {
	d.Register(CmdTogglePlay, func(dispatcher.Event) (any, error) {
		e.TogglePlaying()
		return e.tl.Playing, nil
	}, opts...)

	d.Register(CmdStepPrevious, func(dispatcher.Event) (any, error) {
		return e.StepToPrevious(), nil
	}, opts...)

	d.Register(CmdStepNext, func(dispatcher.Event) (any, error) {
		return e.StepToNext(), nil
	}, opts...)

	d.Register(CmdToggleLoop, func(dispatcher.Event) (any, error) {
		e.ToggleLoop()
		return e.tl.LoopPlayback, nil
	}, opts...)

	d.Register(CmdSpeedUp, func(dispatcher.Event) (any, error) {
		if err := e.SpeedUp(); err != nil {
			return nil, err
		}
		return e.tl.PlaybackSpeed, nil
	}, opts...)

	d.Register(CmdSlowDown, func(dispatcher.Event) (any, error) {
		if err := e.SlowDown(); err != nil {
			return nil, err
		}
		return e.tl.PlaybackSpeed, nil
	}, opts...)

	d.Register(CmdSeek, func(ev dispatcher.Event) (any, error) {
		if len(ev.Args) != 1 {
			return nil, fmt.Errorf("seek: expected 1 argument, got %d", len(ev.Args))
		}
		p, err := strconv.ParseFloat(ev.Args[0], 64)
		if err != nil {
			return nil, fmt.Errorf("seek: %w", err)
		}
		e.SetProgress(p)
		return e.tl.Progress(), nil
	}, opts...)

	d.Register(CmdResume, func(dispatcher.Event) (any, error) {
		e.Resume()
		return e.tl.Playing, nil
	}, opts...)

	d.Register(CmdHideDetail, func(dispatcher.Event) (any, error) {
		return e.HideDetail(), nil
	}, opts...)

	d.Register(CmdDrag, func(ev dispatcher.Event) (any, error) {
		if len(ev.Args) != 2 {
			return nil, fmt.Errorf("drag: expected 2 arguments, got %d", len(ev.Args))
		}
		x, err := strconv.ParseFloat(ev.Args[0], 64)
		if err != nil {
			return nil, fmt.Errorf("drag: x: %w", err)
		}
		width, err := strconv.ParseFloat(ev.Args[1], 64)
		if err != nil {
			return nil, fmt.Errorf("drag: width: %w", err)
		}
		e.Drag(x, width)
		return e.tl.Progress(), nil
	}, opts...)

	d.Register(CmdSelect, func(ev dispatcher.Event) (any, error) {
		m, err := e.markerArg(ev)
		if err != nil {
			return nil, err
		}
		return e.SelectMarker(m), nil
	}, opts...)

	d.Register(CmdHover, func(ev dispatcher.Event) (any, error) {
		m, err := e.markerArg(ev)
		if err != nil {
			return nil, err
		}
		e.HoverEnter(m)
		return e.overlay.State().String(), nil
	}, opts...)

	d.Register(CmdHoverExit, func(ev dispatcher.Event) (any, error) {
		overOverlay := len(ev.Args) > 0 && ev.Args[0] == "overlay"
		e.HoverExit(overOverlay)
		return e.overlay.State().String(), nil
	}, opts...)

	d.Register(CmdLeaveOverlay, func(dispatcher.Event) (any, error) {
		e.LeaveOverlay()
		return e.overlay.State().String(), nil
	}, opts...)
}

func (e *Engine) markerArg(ev dispatcher.Event) (*timeline.Marker, error) {
	if len(ev.Args) != 1 {
		return nil, fmt.Errorf("%s: expected marker id, got %d arguments", ev.Command, len(ev.Args))
	}
	m := e.MarkerByID(ev.Args[0])
	if m == nil {
		return nil, fmt.Errorf("%s: unknown marker %q", ev.Command, ev.Args[0])
	}
	return m, nil
}
