package tui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/OCAP2/scrubber/internal/timeline"
)

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205"))
	statusStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	trackStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	playedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("39"))
	handleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("15"))
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))

	// one colour per importance tag, lowest to highest
	importanceColors = map[timeline.Tag]lipgloss.Color{
		timeline.StyleTag(timeline.ImportanceLowest):  lipgloss.Color("243"),
		timeline.StyleTag(timeline.ImportanceLow):     lipgloss.Color("109"),
		timeline.StyleTag(timeline.ImportanceNormal):  lipgloss.Color("75"),
		timeline.StyleTag(timeline.ImportanceHigh):    lipgloss.Color("214"),
		timeline.StyleTag(timeline.ImportanceHighest): lipgloss.Color("196"),
	}

	// overlay opacity ramp, transparent to opaque
	fadeColors = []lipgloss.Color{"236", "239", "242", "246", "250", "255"}
)

func markerStyle(tags []timeline.Tag) lipgloss.Style {
	s := lipgloss.NewStyle().Foreground(importanceColors[timeline.StyleTag(timeline.ImportanceNormal)])
	for _, t := range tags {
		if c, ok := importanceColors[t]; ok {
			s = s.Foreground(c)
		}
		if t == timeline.TagCurrent {
			s = s.Bold(true).Underline(true)
		}
	}
	return s
}

func overlayStyle(tag timeline.Tag, opacity float64) lipgloss.Style {
	i := int(opacity*float64(len(fadeColors)-1) + 0.5)
	i = max(0, min(i, len(fadeColors)-1))
	s := lipgloss.NewStyle().Foreground(fadeColors[i])
	if c, ok := importanceColors[tag]; ok && opacity >= 1 {
		s = s.Foreground(c)
	}
	return s
}
