package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"

	"github.com/platform43/firerig/internal/sim"
	"github.com/platform43/firerig/internal/siren"
)

const instrumentationName = "github.com/platform43/firerig/internal/session"

var (
	// ErrSessionNotFound is returned for unknown session ids.
	ErrSessionNotFound = errors.New("session not found")
	// ErrSessionClosed is returned when talking to a session after Close.
	ErrSessionClosed = errors.New("session closed")
	// ErrTooManySessions is returned by Create once the session limit is reached.
	ErrTooManySessions = errors.New("too many sessions")
)

// DefaultTickRate is the frame rate used when none is configured.
const DefaultTickRate = 60

type metrics struct {
	ticks    metric.Int64Counter
	resolved metric.Int64Counter
}

// Manager owns the running sessions.
type Manager struct {
	deps        Dependencies
	maxSessions int
	metrics     *metrics

	mu       sync.RWMutex
	sessions map[string]*Session
	closed   bool
}

// NewManager creates a manager. maxSessions <= 0 means unlimited.
func NewManager(deps Dependencies, maxSessions int) (*Manager, error) {
	if deps.Advisor == nil {
		return nil, errors.New("session manager needs an advice generator")
	}
	if deps.Simulator == nil {
		deps.Simulator = sim.NewSimulator(sim.DefaultParams())
	}
	if deps.TickRate <= 0 {
		deps.TickRate = DefaultTickRate
	}
	if deps.SampleRate <= 0 {
		deps.SampleRate = siren.DefaultSampleRate
	}
	if deps.Tone == (siren.Tone{}) {
		deps.Tone = siren.DefaultTone()
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Meter == nil {
		deps.Meter = otel.Meter(instrumentationName)
	}

	m := &Manager{
		deps:        deps,
		maxSessions: maxSessions,
		sessions:    make(map[string]*Session),
	}

	var err error
	m.metrics = &metrics{}
	m.metrics.ticks, err = deps.Meter.Int64Counter(
		"session.ticks",
		metric.WithDescription("Total simulated frames across all sessions"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating ticks counter: %w", err)
	}

	m.metrics.resolved, err = deps.Meter.Int64Counter(
		"session.incidents.resolved",
		metric.WithDescription("Total fires put out"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating resolved counter: %w", err)
	}

	active, err := deps.Meter.Int64ObservableGauge(
		"session.active",
		metric.WithDescription("Current number of open sessions"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating active sessions gauge: %w", err)
	}
	_, err = deps.Meter.RegisterCallback(
		func(_ context.Context, o metric.Observer) error {
			o.ObserveInt64(active, int64(m.Count()))
			return nil
		},
		active,
	)
	if err != nil {
		return nil, fmt.Errorf("registering sessions callback: %w", err)
	}

	return m, nil
}

// Create starts a new session.
func (m *Manager) Create() (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil, ErrSessionClosed
	}
	if m.maxSessions > 0 && len(m.sessions) >= m.maxSessions {
		return nil, ErrTooManySessions
	}

	s := newSession(uuid.NewString(), m.deps, m.metrics)
	m.sessions[s.id] = s
	s.start()

	m.deps.Logger.Info("session created", "session", s.id, "active", len(m.sessions))
	return s, nil
}

// Get looks up a session by id.
func (m *Manager) Get(id string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	return s, nil
}

// List returns the ids of open sessions in lexical order.
func (m *Manager) List() []string {
	m.mu.RLock()
	ids := make([]string, 0, len(m.sessions))
	for id := range m.sessions {
		ids = append(ids, id)
	}
	m.mu.RUnlock()

	slices.Sort(ids)
	return ids
}

// Count is the number of open sessions.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Close stops one session and forgets it.
func (m *Manager) Close(id string) error {
	m.mu.Lock()
	s, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()

	if !ok {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	s.Close()
	return nil
}

// CloseAll stops every session. Create fails afterwards.
func (m *Manager) CloseAll() {
	m.mu.Lock()
	m.closed = true
	sessions := m.sessions
	m.sessions = make(map[string]*Session)
	m.mu.Unlock()

	var wg sync.WaitGroup
	for _, s := range sessions {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.Close()
		}()
	}
	wg.Wait()
}
