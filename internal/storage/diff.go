package storage

import (
	"github.com/OCAP2/scrubber/internal/timeline"
)

// Tracker follows the live markers of a session across reloads. It keeps the
// value each marker had when it was read, so in-place edits made by the
// engine (importance restyling) are not mistaken for the stored state.
type Tracker struct {
	live   []*timeline.Marker
	stored map[*timeline.Marker]timeline.Marker
}

// NewTracker records the current value of every marker in live.
func NewTracker(live []*timeline.Marker) *Tracker {
	t := &Tracker{
		live:   live,
		stored: make(map[*timeline.Marker]timeline.Marker, len(live)),
	}
	for _, m := range live {
		t.stored[m] = *m
	}
	return t
}

// Live returns the markers handed out so far.
func (t *Tracker) Live() []*timeline.Marker { return t.live }

// Diff compares the stored markers with a fresh read and returns the changes
// that turn one into the other; the fresh read becomes the new stored state.
// Markers are matched by ID; an unchanged marker keeps its identity, a
// changed one is deleted and re-inserted. Deletes come first.
func (t *Tracker) Diff(fresh []*timeline.Marker) []timeline.Change {
	byID := make(map[string]*timeline.Marker, len(t.live))
	for _, m := range t.live {
		byID[m.ID] = m
	}

	var (
		inserted []*timeline.Marker
		merged   = make([]*timeline.Marker, 0, len(fresh))
		kept     = make(map[*timeline.Marker]bool, len(t.live))
	)
	for _, m := range fresh {
		if old, ok := byID[m.ID]; ok && !kept[old] && t.stored[old] == *m {
			kept[old] = true
			merged = append(merged, old)
			continue
		}
		inserted = append(inserted, m)
		merged = append(merged, m)
	}

	var deleted []*timeline.Marker
	for _, m := range t.live {
		if !kept[m] {
			deleted = append(deleted, m)
			delete(t.stored, m)
		}
	}
	for _, m := range inserted {
		t.stored[m] = *m
	}
	t.live = merged

	var changes []timeline.Change
	if len(deleted) > 0 {
		changes = append(changes, timeline.Change{Kind: timeline.Delete, Markers: deleted})
	}
	if len(inserted) > 0 {
		changes = append(changes, timeline.Change{Kind: timeline.Insert, Markers: inserted})
	}
	return changes
}
