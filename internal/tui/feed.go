package tui

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"
)

// Feed hands frames from the control thread to the program. Only the newest
// unsent frame is kept, so a slow renderer never stalls the control thread.
type Feed struct {
	frames chan Frame
}

// NewFeed creates an empty feed.
func NewFeed() *Feed {
	return &Feed{frames: make(chan Frame, 1)}
}

// Push replaces any pending frame with f. It must only be called from the
// control thread.
func (f *Feed) Push(fr Frame) {
	select {
	case <-f.frames:
	default:
	}
	f.frames <- fr
}

// Run forwards frames to send until ctx is done.
func (f *Feed) Run(ctx context.Context, send func(tea.Msg)) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case fr := <-f.frames:
			send(FrameMsg(fr))
		}
	}
}
