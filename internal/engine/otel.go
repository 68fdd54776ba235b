package engine

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const instrumentationName = "github.com/OCAP2/scrubber/internal/engine"

func meter() metric.Meter {
	return otel.Meter(instrumentationName)
}

type metrics struct {
	currentChanges metric.Int64Counter
	overlayStates  metric.Int64Counter
	jumps          metric.Int64Counter
}

func newMetrics(m metric.Meter) (*metrics, error) {
	var (
		mt  metrics
		err error
	)
	mt.currentChanges, err = m.Int64Counter(
		"scrubber.marker.current_changes",
		metric.WithDescription("Times the current marker changed"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating current marker counter: %w", err)
	}
	mt.overlayStates, err = m.Int64Counter(
		"scrubber.overlay.transitions",
		metric.WithDescription("Detail overlay state transitions"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating overlay counter: %w", err)
	}
	mt.jumps, err = m.Int64Counter(
		"scrubber.navigation.jumps",
		metric.WithDescription("Manual jumps to a marker"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating jump counter: %w", err)
	}
	return &mt, nil
}

func (m *metrics) overlayTransition(s OverlayState) {
	m.overlayStates.Add(context.Background(), 1, metric.WithAttributes(attribute.String("state", s.String())))
}

func (m *metrics) jump(kind string) {
	m.jumps.Add(context.Background(), 1, metric.WithAttributes(attribute.String("kind", kind)))
}
