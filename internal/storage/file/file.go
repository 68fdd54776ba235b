// Package filestorage reads sessions from YAML files and watches them for
// marker changes with fsnotify.
package filestorage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/OCAP2/scrubber/internal/storage"
	"github.com/OCAP2/scrubber/internal/timeline"
)

// Ext is the session file extension.
const Ext = ".yaml"

// debounce collapses the burst of events an editor save produces.
const debounce = 100 * time.Millisecond

type fileTimeline struct {
	Start         float64 `yaml:"start"`
	End           float64 `yaml:"end"`
	Length        string  `yaml:"length"`
	DetailTimeout string  `yaml:"detailTimeout,omitempty"`
}

type fileMarker struct {
	ID          string  `yaml:"id,omitempty"`
	Position    float64 `yaml:"position"`
	Name        string  `yaml:"name"`
	Description string  `yaml:"description,omitempty"`
	Importance  string  `yaml:"importance,omitempty"`
}

type fileSession struct {
	Timeline fileTimeline `yaml:"timeline"`
	Markers  []fileMarker `yaml:"markers"`
}

// Source reads `<dir>/<name>.yaml` files.
type Source struct {
	dir string
	log *slog.Logger
}

// New creates a file source rooted at dir.
func New(dir string, log *slog.Logger) *Source {
	if log == nil {
		log = slog.Default()
	}
	return &Source{dir: dir, log: log}
}

// Init checks that the directory exists.
func (s *Source) Init() error {
	info, err := os.Stat(s.dir)
	if err != nil {
		return fmt.Errorf("session dir: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("session dir %s is not a directory", s.dir)
	}
	return nil
}

// Close is a no-op.
func (s *Source) Close() error { return nil }

// Path resolves a session name to its file. Names that already carry the
// extension or a directory are used as given.
func (s *Source) Path(name string) string {
	if strings.HasSuffix(name, Ext) || strings.HasSuffix(name, ".yml") || strings.ContainsRune(name, filepath.Separator) {
		return name
	}
	return filepath.Join(s.dir, name+Ext)
}

// Sessions lists the session files in the directory.
func (s *Source) Sessions(ctx context.Context) ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, err
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != Ext {
			continue
		}
		names = append(names, strings.TrimSuffix(e.Name(), Ext))
	}
	sort.Strings(names)
	return names, nil
}

// Load reads and validates a session file.
func (s *Source) Load(ctx context.Context, name string) (*storage.Session, error) {
	path := s.Path(name)
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", storage.ErrSessionNotFound, name)
	}
	if err != nil {
		return nil, err
	}
	sess, err := Decode(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	sess.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	sess.Ref = path
	sess.Track()
	return sess, nil
}

// Decode parses a YAML session document. Markers without an ID get one
// derived from their content, so reloads keep unchanged markers.
func Decode(data []byte) (*storage.Session, error) {
	var fs fileSession
	if err := yaml.Unmarshal(data, &fs); err != nil {
		return nil, fmt.Errorf("decoding session: %w", err)
	}

	length, err := time.ParseDuration(fs.Timeline.Length)
	if err != nil {
		return nil, fmt.Errorf("timeline length: %w", err)
	}
	sess := &storage.Session{
		Start:  fs.Timeline.Start,
		End:    fs.Timeline.End,
		Length: length,
	}
	if fs.Timeline.DetailTimeout != "" {
		if sess.DetailTimeout, err = time.ParseDuration(fs.Timeline.DetailTimeout); err != nil {
			return nil, fmt.Errorf("timeline detailTimeout: %w", err)
		}
	}
	if !(sess.End > sess.Start) {
		return nil, &timeline.InvalidRangeError{Start: sess.Start, End: sess.End}
	}

	for i, fm := range fs.Markers {
		imp, err := timeline.ParseImportance(fm.Importance)
		if err != nil {
			return nil, fmt.Errorf("marker %d: %w", i, err)
		}
		id := fm.ID
		if id == "" {
			id = contentID(fm)
		}
		sess.Markers = append(sess.Markers, &timeline.Marker{
			ID:          id,
			Position:    fm.Position,
			Name:        fm.Name,
			Description: fm.Description,
			Importance:  imp,
		})
	}
	return sess, nil
}

// contentID derives a stable ID from the marker fields.
func contentID(fm fileMarker) string {
	key := fmt.Sprintf("%g\x00%s\x00%s\x00%s", fm.Position, fm.Name, fm.Description, fm.Importance)
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(key)).String()
}

// Encode renders a session as YAML. Markers without an ID get a new random one.
func Encode(sess *storage.Session) ([]byte, error) {
	fs := fileSession{
		Timeline: fileTimeline{
			Start:  sess.Start,
			End:    sess.End,
			Length: sess.Length.String(),
		},
	}
	if sess.DetailTimeout > 0 {
		fs.Timeline.DetailTimeout = sess.DetailTimeout.String()
	}
	for _, m := range sess.Markers {
		id := m.ID
		if id == "" {
			id = uuid.NewString()
		}
		fs.Markers = append(fs.Markers, fileMarker{
			ID:          id,
			Position:    m.Position,
			Name:        m.Name,
			Description: m.Description,
			Importance:  m.Importance.String(),
		})
	}
	return yaml.Marshal(&fs)
}

// Watch reloads the session file whenever it changes and reports the marker
// differences. It watches the parent directory so editors that replace the
// file on save are handled.
func (s *Source) Watch(ctx context.Context, sess *storage.Session, fn func([]timeline.Change)) error {
	path := sess.Ref
	if path == "" {
		path = s.Path(sess.Name)
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer w.Close()

	if err := w.Add(filepath.Dir(abs)); err != nil {
		return fmt.Errorf("watching %s: %w", filepath.Dir(abs), err)
	}

	tracker := sess.Tracker()
	var (
		timer   *time.Timer
		pending <-chan time.Time
	)
	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != abs || !ev.Has(fsnotify.Write|fsnotify.Create|fsnotify.Rename) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(debounce)
			} else {
				timer.Reset(debounce)
			}
			pending = timer.C
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			s.log.Warn("Session watcher error", "path", path, "error", err)
		case <-pending:
			pending = nil
			fresh, err := s.Load(ctx, path)
			if err != nil {
				s.log.Warn("Keeping previous markers, session reload failed", "path", path, "error", err)
				continue
			}
			changes := tracker.Diff(fresh.Markers)
			if len(changes) > 0 {
				s.log.Info("Session markers changed", "path", path, "changes", len(changes))
				fn(changes)
			}
		}
	}
}
