package logging

import (
	"context"
	"log/slog"
	"sync/atomic"
)

// ContextProvider returns attributes describing the current playback state.
type ContextProvider func() []slog.Attr

// ContextHandler wraps another handler and injects dynamic context
// attributes. The provider can be attached after loggers were derived from
// the handler; derived handlers share it.
type ContextHandler struct {
	inner    slog.Handler
	provider *atomic.Pointer[ContextProvider]
}

// NewContextHandler creates a handler that adds dynamic context to each record.
func NewContextHandler(inner slog.Handler, provider ContextProvider) *ContextHandler {
	h := &ContextHandler{inner: inner, provider: &atomic.Pointer[ContextProvider]{}}
	h.SetProvider(provider)
	return h
}

// SetProvider replaces the provider; nil detaches it.
func (h *ContextHandler) SetProvider(provider ContextProvider) {
	if provider == nil {
		h.provider.Store(nil)
		return
	}
	h.provider.Store(&provider)
}

// Enabled delegates to the inner handler.
func (h *ContextHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.inner.Enabled(ctx, level)
}

// Handle adds dynamic context attributes and delegates to the inner handler.
func (h *ContextHandler) Handle(ctx context.Context, r slog.Record) error {
	if p := h.provider.Load(); p != nil {
		r.AddAttrs((*p)()...)
	}
	return h.inner.Handle(ctx, r)
}

// WithAttrs returns a new ContextHandler with the given attributes.
func (h *ContextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &ContextHandler{inner: h.inner.WithAttrs(attrs), provider: h.provider}
}

// WithGroup returns a new ContextHandler with the given group.
func (h *ContextHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	return &ContextHandler{inner: h.inner.WithGroup(name), provider: h.provider}
}
