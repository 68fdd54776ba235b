// Package gormstorage reads sessions from the timelines / markers tables of
// a sqlite or postgres database and polls them for marker changes.
package gormstorage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/OCAP2/scrubber/internal/storage"
	"github.com/OCAP2/scrubber/internal/timeline"
)

// DefaultPollInterval is used when Dependencies.PollInterval is unset.
const DefaultPollInterval = 5 * time.Second

// Dependencies holds everything the backend needs.
type Dependencies struct {
	DB           *gorm.DB
	Log          *slog.Logger
	PollInterval time.Duration
	Migrate      func(models ...any) error
}

// Backend implements storage.Source on top of GORM.
type Backend struct {
	deps Dependencies
	db   *gorm.DB
	log  *slog.Logger
}

// New creates a GORM-backed source.
func New(deps Dependencies) *Backend {
	if deps.Log == nil {
		deps.Log = slog.Default()
	}
	if deps.PollInterval <= 0 {
		deps.PollInterval = DefaultPollInterval
	}
	return &Backend{deps: deps, db: deps.DB, log: deps.Log}
}

// Init migrates the schema.
func (b *Backend) Init() error {
	if b.db == nil {
		return errors.New("gormstorage: nil database")
	}
	if b.deps.Migrate != nil {
		return b.deps.Migrate(Models...)
	}
	return b.db.AutoMigrate(Models...)
}

// Close is a no-op; the connection belongs to the database manager.
func (b *Backend) Close() error { return nil }

// Sessions lists session names in alphabetical order.
func (b *Backend) Sessions(ctx context.Context) ([]string, error) {
	var names []string
	err := b.db.WithContext(ctx).Model(&TimelineRecord{}).Order("session").Pluck("session", &names).Error
	if err != nil {
		return nil, fmt.Errorf("listing sessions: %w", err)
	}
	return names, nil
}

// Load reads a session and its markers ordered by position.
func (b *Backend) Load(ctx context.Context, name string) (*storage.Session, error) {
	var rec TimelineRecord
	err := b.db.WithContext(ctx).Where("session = ?", name).First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: %s", storage.ErrSessionNotFound, name)
	}
	if err != nil {
		return nil, fmt.Errorf("loading session %s: %w", name, err)
	}

	markers, err := b.markers(ctx, rec.ID)
	if err != nil {
		return nil, err
	}

	sess := &storage.Session{
		Name:          rec.Session,
		Ref:           strconv.FormatUint(uint64(rec.ID), 10),
		Start:         rec.Start,
		End:           rec.End,
		Length:        time.Duration(rec.LengthMs) * time.Millisecond,
		DetailTimeout: time.Duration(rec.DetailTimeoutMs) * time.Millisecond,
		Markers:       markers,
	}
	sess.Track()
	return sess, nil
}

func (b *Backend) markers(ctx context.Context, timelineID uint) ([]*timeline.Marker, error) {
	var recs []MarkerRecord
	err := b.db.WithContext(ctx).Where("timeline_id = ?", timelineID).Order("position, id").Find(&recs).Error
	if err != nil {
		return nil, fmt.Errorf("loading markers: %w", err)
	}

	out := make([]*timeline.Marker, 0, len(recs))
	for _, r := range recs {
		imp, err := timeline.ParseImportance(r.Importance)
		if err != nil {
			b.log.Warn("Unknown marker importance, using normal", "marker", r.UUID, "importance", r.Importance)
		}
		out = append(out, &timeline.Marker{
			ID:          r.UUID,
			Position:    r.Position,
			Name:        r.Name,
			Description: r.Description,
			Importance:  imp,
		})
	}
	return out, nil
}

// Import writes a session, replacing any session with the same name.
func (b *Backend) Import(ctx context.Context, sess *storage.Session) error {
	return b.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing TimelineRecord
		err := tx.Where("session = ?", sess.Name).First(&existing).Error
		switch {
		case err == nil:
			if err := tx.Where("timeline_id = ?", existing.ID).Delete(&MarkerRecord{}).Error; err != nil {
				return fmt.Errorf("clearing markers: %w", err)
			}
			if err := tx.Delete(&existing).Error; err != nil {
				return fmt.Errorf("clearing session: %w", err)
			}
		case !errors.Is(err, gorm.ErrRecordNotFound):
			return err
		}

		meta, err := json.Marshal(map[string]any{
			"importedAt": time.Now().UTC().Format(time.RFC3339),
			"ref":        sess.Ref,
		})
		if err != nil {
			return err
		}

		rec := TimelineRecord{
			Session:         sess.Name,
			Start:           sess.Start,
			End:             sess.End,
			LengthMs:        sess.Length.Milliseconds(),
			DetailTimeoutMs: sess.DetailTimeout.Milliseconds(),
		}
		for _, m := range sess.Markers {
			id := m.ID
			if id == "" {
				id = uuid.NewString()
			}
			rec.Markers = append(rec.Markers, MarkerRecord{
				UUID:        id,
				Position:    m.Position,
				Name:        m.Name,
				Description: m.Description,
				Importance:  m.Importance.String(),
				Metadata:    datatypes.JSON(meta),
			})
		}
		if err := tx.Create(&rec).Error; err != nil {
			return fmt.Errorf("importing session %s: %w", sess.Name, err)
		}
		b.log.Info("Imported session", "session", sess.Name, "markers", len(rec.Markers))
		return nil
	})
}

// Watch polls the markers of sess and reports differences.
func (b *Backend) Watch(ctx context.Context, sess *storage.Session, fn func([]timeline.Change)) error {
	id, err := strconv.ParseUint(sess.Ref, 10, 64)
	if err != nil {
		return fmt.Errorf("session %s has no record id: %w", sess.Name, err)
	}

	ticker := time.NewTicker(b.deps.PollInterval)
	defer ticker.Stop()

	tracker := sess.Tracker()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			fresh, err := b.markers(ctx, uint(id))
			if err != nil {
				if ctx.Err() != nil {
					return nil
				}
				b.log.Warn("Marker poll failed", "session", sess.Name, "error", err)
				continue
			}
			changes := tracker.Diff(fresh)
			if len(changes) > 0 {
				b.log.Info("Session markers changed", "session", sess.Name, "changes", len(changes))
				fn(changes)
			}
		}
	}
}
