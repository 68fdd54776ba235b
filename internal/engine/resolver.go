package engine

import (
	"github.com/OCAP2/scrubber/internal/cache"
	"github.com/OCAP2/scrubber/internal/timeline"
)

// Resolver owns the "current marker" reference and the marker carrying the
// current highlight. Both only change through Resolve, Jump, ClearHighlight
// and Forget.
type Resolver struct {
	index       *cache.MarkerIndex
	current     *timeline.Marker
	highlighted *timeline.Marker
}

// NewResolver creates a resolver over the given index.
func NewResolver(index *cache.MarkerIndex) *Resolver {
	return &Resolver{index: index}
}

// Current returns the current marker, or nil.
func (r *Resolver) Current() *timeline.Marker { return r.current }

// Highlighted returns the marker tagged as current, or nil.
func (r *Resolver) Highlighted() *timeline.Marker { return r.highlighted }

// Resolve applies a progress change from old to new. The marker with the
// greatest position in the swept range becomes current, whatever the sweep
// direction. With no candidate nothing changes.
func (r *Resolver) Resolve(old, new float64) (currentChanged, highlightChanged bool) {
	m := r.index.Sweep(old, new)
	if m == nil {
		return false, false
	}
	currentChanged = r.current != m
	highlightChanged = r.highlighted != m
	r.current = m
	r.highlighted = m
	return currentChanged, highlightChanged
}

// Jump makes m current and highlighted, as after a manual jump.
func (r *Resolver) Jump(m *timeline.Marker) (highlightChanged bool) {
	highlightChanged = r.highlighted != m
	r.current = m
	r.highlighted = m
	return highlightChanged
}

// ClearHighlight drops the current tag while keeping the current marker.
func (r *Resolver) ClearHighlight() bool {
	if r.highlighted == nil {
		return false
	}
	r.highlighted = nil
	return true
}

// Forget purges every reference to a removed marker.
func (r *Resolver) Forget(m *timeline.Marker) bool {
	purged := false
	if r.current == m {
		r.current = nil
		purged = true
	}
	if r.highlighted == m {
		r.highlighted = nil
		purged = true
	}
	return purged
}
