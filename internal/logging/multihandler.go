package logging

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

// Sink is one named destination of the fan-out.
type Sink struct {
	Name    string
	Handler slog.Handler
}

// MultiHandler writes every record to each sink that accepts its level.
// A failing sink never keeps the record from the others.
type MultiHandler struct {
	sinks []Sink
}

// NewMultiHandler drops sinks without a handler.
func NewMultiHandler(sinks ...Sink) *MultiHandler {
	m := &MultiHandler{}
	for _, s := range sinks {
		if s.Handler != nil {
			m.sinks = append(m.sinks, s)
		}
	}
	return m
}

// Sinks lists the active sink names.
func (m *MultiHandler) Sinks() []string {
	names := make([]string, len(m.sinks))
	for i, s := range m.sinks {
		names[i] = s.Name
	}
	return names
}

func (m *MultiHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, s := range m.sinks {
		if s.Handler.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

// Handle returns the joined errors of the sinks that failed, each labeled with its name.
func (m *MultiHandler) Handle(ctx context.Context, r slog.Record) error {
	var errs []error
	for _, s := range m.sinks {
		if !s.Handler.Enabled(ctx, r.Level) {
			continue
		}
		if err := s.Handler.Handle(ctx, r.Clone()); err != nil {
			errs = append(errs, fmt.Errorf("%s sink: %w", s.Name, err))
		}
	}
	return errors.Join(errs...)
}

func (m *MultiHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return m.derive(func(h slog.Handler) slog.Handler { return h.WithAttrs(attrs) })
}

func (m *MultiHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return m
	}
	return m.derive(func(h slog.Handler) slog.Handler { return h.WithGroup(name) })
}

func (m *MultiHandler) derive(fn func(slog.Handler) slog.Handler) *MultiHandler {
	out := &MultiHandler{sinks: make([]Sink, len(m.sinks))}
	for i, s := range m.sinks {
		out.sinks[i] = Sink{Name: s.Name, Handler: fn(s.Handler)}
	}
	return out
}
