package logging

import (
	"context"
	"log/slog"
)

// ContextProvider returns attributes evaluated at log time, such as the number of live sessions.
type ContextProvider func() []slog.Attr

type ctxKey int

const (
	sessionKey ctxKey = iota
	tickKey
)

// WithSession tags ctx so records logged with it carry session=<id>.
func WithSession(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, sessionKey, id)
}

// WithTick tags ctx so records logged with it carry the simulation tick.
func WithTick(ctx context.Context, tick uint64) context.Context {
	return context.WithValue(ctx, tickKey, tick)
}

// SessionFrom returns the session id carried by ctx, if any.
func SessionFrom(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(sessionKey).(string)
	return id, ok && id != ""
}

// ContextHandler stamps records with the session and tick found in the logging
// context and with the attributes of an optional provider.
type ContextHandler struct {
	next    slog.Handler
	dynamic ContextProvider
}

// NewContextHandler wraps next. provider may be nil.
func NewContextHandler(next slog.Handler, provider ContextProvider) *ContextHandler {
	return &ContextHandler{next: next, dynamic: provider}
}

func (h *ContextHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

func (h *ContextHandler) Handle(ctx context.Context, r slog.Record) error {
	if ctx != nil {
		if id, ok := SessionFrom(ctx); ok {
			r.AddAttrs(slog.String("session", id))
		}
		if tick, ok := ctx.Value(tickKey).(uint64); ok {
			r.AddAttrs(slog.Uint64("tick", tick))
		}
	}
	if h.dynamic != nil {
		r.AddAttrs(h.dynamic()...)
	}
	return h.next.Handle(ctx, r)
}

func (h *ContextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return h.wrap(h.next.WithAttrs(attrs))
}

func (h *ContextHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	return h.wrap(h.next.WithGroup(name))
}

func (h *ContextHandler) wrap(next slog.Handler) *ContextHandler {
	return &ContextHandler{next: next, dynamic: h.dynamic}
}
