package logging

import (
	"io"
	"log/slog"
	"strings"
	"time"
)

// SlogManager builds the process logger: console and session file fan-out,
// a runtime-adjustable level, and playback context on every record.
type SlogManager struct {
	logger *slog.Logger
	level  slog.LevelVar
	ctx    *ContextHandler
}

// NewSlogManager creates a new slog-based logging manager.
func NewSlogManager() *SlogManager {
	return &SlogManager{}
}

// parseLevel converts a string log level to slog.Level.
func parseLevel(level string) slog.Level {
	switch strings.ToUpper(strings.TrimSpace(level)) {
	case "DEBUG", "TRACE":
		return slog.LevelDebug
	case "INFO":
		return slog.LevelInfo
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Setup initializes the logging system. Either writer may be nil; the
// terminal UI passes a nil console so records only go to the session file.
func (m *SlogManager) Setup(console, file io.Writer, level string) {
	m.level.Set(parseLevel(level))

	// Common handler options with RFC3339 time formatting
	handlerOpts := &slog.HandlerOptions{
		Level: &m.level,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey {
				if t, ok := a.Value.Any().(time.Time); ok {
					a.Value = slog.StringValue(t.UTC().Format(time.RFC3339))
				}
			}
			return a
		},
	}

	var handlers []slog.Handler
	if console != nil {
		handlers = append(handlers, slog.NewTextHandler(console, handlerOpts))
	}
	if file != nil {
		handlers = append(handlers, slog.NewTextHandler(file, handlerOpts))
	}

	m.ctx = NewContextHandler(NewMultiHandler(handlers...), nil)
	m.logger = slog.New(m.ctx)
	m.logger.Info("Logging initialized", "level", m.level.Level().String())
}

// SetLevel changes the level of every handler built by Setup.
func (m *SlogManager) SetLevel(level string) {
	m.level.Set(parseLevel(level))
}

// SetContext attaches a provider whose attributes are added to every record.
func (m *SlogManager) SetContext(provider ContextProvider) {
	if m.ctx != nil {
		m.ctx.SetProvider(provider)
	}
}

// Logger returns the configured slog.Logger.
func (m *SlogManager) Logger() *slog.Logger {
	if m.logger == nil {
		// Return a default logger if Setup hasn't been called
		return slog.Default()
	}
	return m.logger
}
