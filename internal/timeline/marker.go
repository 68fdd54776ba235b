package timeline

import (
	"fmt"
	"strings"
)

// Importance is the ordered priority of a marker. It only affects styling.
type Importance int

const (
	ImportanceLowest Importance = iota
	ImportanceLow
	ImportanceNormal
	ImportanceHigh
	ImportanceHighest
)

var importanceNames = [...]string{"lowest", "low", "normal", "high", "highest"}

func (i Importance) String() string {
	if i < ImportanceLowest || i > ImportanceHighest {
		return fmt.Sprintf("Importance(%d)", int(i))
	}
	return importanceNames[i]
}

// ParseImportance accepts the lower- or upper-case importance names. An empty
// string maps to normal.
func ParseImportance(s string) (Importance, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return ImportanceNormal, nil
	}
	for i, name := range importanceNames {
		if name == s {
			return Importance(i), nil
		}
	}
	return ImportanceNormal, fmt.Errorf("unknown importance %q", s)
}

// Tag is an opaque style tag consumed by the rendering layer.
type Tag string

// TagCurrent marks the highlighted marker.
const TagCurrent Tag = "current"

// importanceTags is built once and never written afterwards.
var importanceTags = func() [ImportanceHighest + 1]Tag {
	var tags [ImportanceHighest + 1]Tag
	for i, name := range importanceNames {
		tags[i] = Tag("importance-" + name)
	}
	return tags
}()

// StyleTag returns the style tag for an importance level.
func StyleTag(i Importance) Tag {
	if i < ImportanceLowest || i > ImportanceHighest {
		return importanceTags[ImportanceNormal]
	}
	return importanceTags[i]
}

// ImportanceTags returns every importance tag ordered from lowest to highest.
func ImportanceTags() []Tag {
	out := make([]Tag, len(importanceTags))
	copy(out, importanceTags[:])
	return out
}

// Marker is a named, positioned annotation on the timeline. Markers are
// compared by identity.
type Marker struct {
	ID          string
	Position    float64
	Name        string
	Description string
	Importance  Importance
}

func (m *Marker) String() string {
	return fmt.Sprintf("%s@%g", m.Name, m.Position)
}

// ChangeKind is the type of a marker set notification.
type ChangeKind int

const (
	Insert ChangeKind = iota
	Delete
)

func (k ChangeKind) String() string {
	if k == Delete {
		return "delete"
	}
	return "insert"
}

// Change is one entry of the ordered marker add/remove notification sequence.
type Change struct {
	Kind    ChangeKind
	Markers []*Marker
}
