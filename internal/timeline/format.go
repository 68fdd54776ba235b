package timeline

import (
	"fmt"
	"time"

	"github.com/OCAP2/scrubber/internal/util"
)

// ToTimeString renders milliseconds as HH:MM:SS.mmm. Hours are unbounded.
func ToTimeString(millis float64) string {
	if millis < 0 {
		millis = 0
	}
	hh := int64(millis / 3_600_000)
	mm := int64(millis/60_000) % 60
	ss := int64(millis/1000) % 60
	mmm := int64(millis) % 1000
	return fmt.Sprintf("%02d:%02d:%02d.%03d", hh, mm, ss, mmm)
}

// FormatElapsed renders a duration as HH:MM:SS.mmm.
func FormatElapsed(d time.Duration) string {
	return ToTimeString(float64(d) / float64(time.Millisecond))
}

// DetailText is the overlay content for a marker:
// "<elapsed> - <name>" or "<elapsed> - <name>: <description>".
func DetailText(t *Timeline, m *Marker) string {
	elapsed := FormatElapsed(t.ProgressToTime(m.Position))
	if util.IsBlank(m.Description) {
		return elapsed + " - " + m.Name
	}
	return elapsed + " - " + m.Name + ": " + m.Description
}
