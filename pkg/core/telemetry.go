// pkg/core/telemetry.go
package core

import "time"

// Session describes one configurator session as seen by telemetry sinks.
type Session struct {
	ID        string    `json:"id"`
	StartTime time.Time `json:"startTime"`
	EndTime   time.Time `json:"endTime,omitzero"`
	Version   string    `json:"version"`
	// Final holds the configuration at session end; zero until EndSession.
	Final Configuration `json:"final,omitzero"`
}

// HealthSample is a rate-limited report of the fire's health.
type HealthSample struct {
	SessionID    string    `json:"sessionId"`
	Time         time.Time `json:"time"`
	Tick         uint64    `json:"tick"`
	Health       float64   `json:"health"`
	FireStrength int       `json:"fireStrength"`
}

// Incident records a fire being put out.
type Incident struct {
	SessionID     string    `json:"sessionId"`
	Time          time.Time `json:"time"`
	Tick          uint64    `json:"tick"`
	FireStrength  int       `json:"fireStrength"`
	DurationTicks uint64    `json:"durationTicks"`
	Geometry      string    `json:"geometry"`
}

// AdviceExchange records one question/answer round trip with the advice model.
type AdviceExchange struct {
	SessionID string        `json:"sessionId"`
	Time      time.Time     `json:"time"`
	Question  string        `json:"question"`
	Reply     string        `json:"reply"`
	Fallback  bool          `json:"fallback"`
	Duration  time.Duration `json:"duration"`
}

// DriveTrack is the sampled path of the truck over a session.
type DriveTrack struct {
	SessionID string       `json:"sessionId"`
	Time      time.Time    `json:"time"`
	Points    []Position3D `json:"points"`
}
