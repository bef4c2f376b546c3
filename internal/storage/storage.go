// internal/storage/storage.go
package storage

import "github.com/platform43/firerig/pkg/core"

// Backend is the interface all storage implementations must satisfy.
// Several sessions record concurrently, so every record carries its session ID.
type Backend interface {
	// Lifecycle
	Init() error
	Close() error

	// Session management
	StartSession(s *core.Session) error
	EndSession(s *core.Session) error

	// Telemetry
	RecordHealthSample(h *core.HealthSample) error
	RecordIncident(i *core.Incident) error
	RecordAdvice(a *core.AdviceExchange) error
	RecordDriveTrack(t *core.DriveTrack) error
}

// Exporter is an optional interface for backends that write one file per session.
type Exporter interface {
	ExportedFilePath(sessionID string) (string, bool)
}
