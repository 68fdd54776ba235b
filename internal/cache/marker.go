package cache

import (
	"math"
	"sort"
	"sync"

	"github.com/OCAP2/scrubber/internal/timeline"
)

// MarkerIndex keeps the live markers of a timeline indexed by identity and by
// position. Position lookups return the last marker written at that position.
type MarkerIndex struct {
	mu         sync.RWMutex
	markers    map[*timeline.Marker]entry
	byPosition map[float64]*timeline.Marker
	positions  []float64 // sorted keys of byPosition
	seq        uint64
}

type entry struct {
	position float64
	seq      uint64
}

// NewMarkerIndex creates an empty MarkerIndex
func NewMarkerIndex() *MarkerIndex {
	return &MarkerIndex{
		markers:    make(map[*timeline.Marker]entry),
		byPosition: make(map[float64]*timeline.Marker),
	}
}

// Upsert records or refreshes the position mapping of m. Markers with a NaN
// position cannot be ordered and are ignored.
func (c *MarkerIndex) Upsert(m *timeline.Marker) bool {
	if m == nil || math.IsNaN(m.Position) {
		return false
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	if old, ok := c.markers[m]; ok {
		c.unlinkLocked(m, old.position)
	}
	c.seq++
	c.markers[m] = entry{position: m.Position, seq: c.seq}
	c.linkLocked(m.Position, m)
	return true
}

// Remove deletes every entry for m. A marker shadowed at the same position
// becomes reachable again.
func (c *MarkerIndex) Remove(m *timeline.Marker) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.markers[m]
	if !ok {
		return
	}
	delete(c.markers, m)
	c.unlinkLocked(m, e.position)
}

// Contains reports whether m is indexed.
func (c *MarkerIndex) Contains(m *timeline.Marker) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.markers[m]
	return ok
}

// At returns the marker retrievable at exactly position p.
func (c *MarkerIndex) At(p float64) (*timeline.Marker, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	m, ok := c.byPosition[p]
	return m, ok
}

// Sweep returns the marker with the greatest position inside the inclusive
// range between a and b, in either order.
func (c *MarkerIndex) Sweep(a, b float64) *timeline.Marker {
	lo, hi := math.Min(a, b), math.Max(a, b)

	c.mu.RLock()
	defer c.mu.RUnlock()

	// first index with position > hi, the candidate sits just before it
	i := sort.Search(len(c.positions), func(i int) bool { return c.positions[i] > hi }) - 1
	if i < 0 || c.positions[i] < lo {
		return nil
	}
	return c.byPosition[c.positions[i]]
}

// Previous returns the marker with the largest position strictly below p.
func (c *MarkerIndex) Previous(p float64) *timeline.Marker {
	c.mu.RLock()
	defer c.mu.RUnlock()

	i := sort.SearchFloat64s(c.positions, p) - 1
	if i < 0 {
		return nil
	}
	return c.byPosition[c.positions[i]]
}

// Next returns the marker with the smallest position strictly above p.
func (c *MarkerIndex) Next(p float64) *timeline.Marker {
	c.mu.RLock()
	defer c.mu.RUnlock()

	i := sort.Search(len(c.positions), func(i int) bool { return c.positions[i] > p })
	if i >= len(c.positions) {
		return nil
	}
	return c.byPosition[c.positions[i]]
}

// Len returns the number of live markers, including shadowed ones.
func (c *MarkerIndex) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.markers)
}

// Markers returns every live marker ordered by position, then insertion.
func (c *MarkerIndex) Markers() []*timeline.Marker {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]*timeline.Marker, 0, len(c.markers))
	for m := range c.markers {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := c.markers[out[i]], c.markers[out[j]]
		if a.position != b.position {
			return a.position < b.position
		}
		return a.seq < b.seq
	})
	return out
}

// Reset clears the index
func (c *MarkerIndex) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.markers = make(map[*timeline.Marker]entry)
	c.byPosition = make(map[float64]*timeline.Marker)
	c.positions = nil
}

func (c *MarkerIndex) linkLocked(p float64, m *timeline.Marker) {
	if _, ok := c.byPosition[p]; !ok {
		i := sort.SearchFloat64s(c.positions, p)
		c.positions = append(c.positions, 0)
		copy(c.positions[i+1:], c.positions[i:])
		c.positions[i] = p
	}
	c.byPosition[p] = m
}

// unlinkLocked drops the position entry of m, falling back to the most
// recently written marker still live at p.
func (c *MarkerIndex) unlinkLocked(m *timeline.Marker, p float64) {
	if c.byPosition[p] != m {
		return
	}
	var (
		heir *timeline.Marker
		best uint64
	)
	for other, e := range c.markers {
		if other != m && e.position == p && e.seq >= best {
			heir, best = other, e.seq
		}
	}
	if heir != nil {
		c.byPosition[p] = heir
		return
	}
	delete(c.byPosition, p)
	i := sort.SearchFloat64s(c.positions, p)
	if i < len(c.positions) && c.positions[i] == p {
		c.positions = append(c.positions[:i], c.positions[i+1:]...)
	}
}
