// Package streaming defines the envelope protocol used to stream session telemetry to a remote collector.
package streaming

import (
	"encoding/json"

	"github.com/platform43/firerig/pkg/core"
)

// Message type constants matching the streaming protocol.
const (
	TypeStartSession = "start_session"
	TypeEndSession   = "end_session"
	TypeHealthSample = "health_sample"
	TypeIncident     = "incident"
	TypeAdvice       = "advice"
	TypeDriveTrack   = "drive_track"
)

// Envelope wraps all messages sent over the WebSocket.
type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// AckMessage is the server's acknowledgement response.
type AckMessage struct {
	Type      string `json:"type"` // always "ack"
	For       string `json:"for"`
	SessionID string `json:"sessionId,omitempty"`
}

// SessionPayload carries session start and end data.
type SessionPayload struct {
	Session *core.Session `json:"session"`
}
