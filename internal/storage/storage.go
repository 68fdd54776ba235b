// internal/storage/storage.go
package storage

import (
	"context"
	"errors"
	"time"

	"github.com/OCAP2/scrubber/internal/timeline"
)

// ErrSessionNotFound is returned by Load for an unknown session name.
var ErrSessionNotFound = errors.New("session not found")

// Session is a recorded timeline and its markers as read from a source.
type Session struct {
	Name          string
	Ref           string // source-specific locator: file path or record ID
	Start, End    float64
	Length        time.Duration
	DetailTimeout time.Duration
	Markers       []*timeline.Marker

	tracker *Tracker
}

// Track records the stored value of every marker. Sources call it from Load,
// before the markers are handed out and edited in place.
func (s *Session) Track() { s.tracker = NewTracker(s.Markers) }

// Tracker returns the tracker recorded by Track, or a new one over the
// current markers.
func (s *Session) Tracker() *Tracker {
	if s.tracker == nil {
		s.Track()
	}
	return s.tracker
}

// Timeline builds the timeline described by the session.
func (s *Session) Timeline() (*timeline.Timeline, error) {
	tl, err := timeline.New(s.Start, s.End, s.Length)
	if err != nil {
		return nil, err
	}
	tl.DetailTimeout = s.DetailTimeout
	return tl, nil
}

// Source is the interface all marker sources must satisfy.
type Source interface {
	// Lifecycle
	Init() error
	Close() error

	Sessions(ctx context.Context) ([]string, error)
	Load(ctx context.Context, name string) (*Session, error)
}

// Watcher is an optional interface for sources that can report marker
// changes of a loaded session. Watch blocks until ctx is done; fn receives
// ordered insert / delete notifications and must not block.
type Watcher interface {
	Watch(ctx context.Context, s *Session, fn func([]timeline.Change)) error
}
