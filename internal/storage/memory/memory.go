// internal/storage/memory/memory.go
package memory

import (
	"fmt"
	"sync"

	"github.com/platform43/firerig/internal/config"
	"github.com/platform43/firerig/pkg/core"
)

// SessionRecord groups a session with all its telemetry
type SessionRecord struct {
	Session       core.Session
	HealthSamples []core.HealthSample
	Incidents     []core.Incident
	Advice        []core.AdviceExchange
	DriveTracks   []core.DriveTrack
}

// Backend keeps session telemetry in memory and exports each session to JSON when it ends
type Backend struct {
	cfg      config.MemoryConfig
	sessions map[string]*SessionRecord
	exports  map[string]string

	mu sync.RWMutex
}

// New creates a new memory backend
func New(cfg config.MemoryConfig) *Backend {
	return &Backend{
		cfg:      cfg,
		sessions: make(map[string]*SessionRecord),
		exports:  make(map[string]string),
	}
}

// Init initializes the backend
func (b *Backend) Init() error {
	return nil
}

// Close exports any session that never ended
func (b *Backend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	var firstErr error
	for id, record := range b.sessions {
		if err := b.exportJSON(record); err != nil && firstErr == nil {
			firstErr = err
		}
		delete(b.sessions, id)
	}
	return firstErr
}

// StartSession begins recording a new session
func (b *Backend) StartSession(s *core.Session) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.sessions[s.ID] = &SessionRecord{Session: *s}
	return nil
}

// EndSession finalizes and exports the session, then forgets it
func (b *Backend) EndSession(s *core.Session) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	record, ok := b.sessions[s.ID]
	if !ok {
		return fmt.Errorf("session %s not started", s.ID)
	}
	record.Session = *s
	delete(b.sessions, s.ID)
	return b.exportJSON(record)
}

// Session returns a copy of the record for a live session
func (b *Backend) Session(id string) (SessionRecord, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	record, ok := b.sessions[id]
	if !ok {
		return SessionRecord{}, false
	}
	return *record, true
}

// ExportedFilePath returns where the session was written, once it has ended
func (b *Backend) ExportedFilePath(sessionID string) (string, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	path, ok := b.exports[sessionID]
	return path, ok
}

// withSession runs fn on a live session record, ignoring records for unknown sessions
func (b *Backend) withSession(id string, fn func(*SessionRecord)) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	record, ok := b.sessions[id]
	if !ok {
		return fmt.Errorf("session %s not started", id)
	}
	fn(record)
	return nil
}

func (b *Backend) RecordHealthSample(h *core.HealthSample) error {
	return b.withSession(h.SessionID, func(r *SessionRecord) {
		r.HealthSamples = append(r.HealthSamples, *h)
	})
}

func (b *Backend) RecordIncident(i *core.Incident) error {
	return b.withSession(i.SessionID, func(r *SessionRecord) {
		r.Incidents = append(r.Incidents, *i)
	})
}

func (b *Backend) RecordAdvice(a *core.AdviceExchange) error {
	return b.withSession(a.SessionID, func(r *SessionRecord) {
		r.Advice = append(r.Advice, *a)
	})
}

func (b *Backend) RecordDriveTrack(t *core.DriveTrack) error {
	points := append([]core.Position3D(nil), t.Points...)
	return b.withSession(t.SessionID, func(r *SessionRecord) {
		r.DriveTracks = append(r.DriveTracks, core.DriveTrack{SessionID: t.SessionID, Time: t.Time, Points: points})
	})
}
