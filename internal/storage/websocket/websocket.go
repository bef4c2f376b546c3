// Package websocket streams session telemetry to a remote collector over a WebSocket.
package websocket

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/platform43/firerig/internal/config"
	"github.com/platform43/firerig/pkg/core"
	"github.com/platform43/firerig/pkg/streaming"
)

// Backend streams session data over WebSocket. Session start and end wait
// for the collector's ack; everything else is fire-and-forget.
type Backend struct {
	conn *connection
	cfg  config.WebSocketConfig
}

// New creates a new WebSocket storage backend.
func New(cfg config.WebSocketConfig, logger *slog.Logger) *Backend {
	if logger == nil {
		logger = slog.Default()
	}
	return &Backend{
		conn: newConnection(logger),
		cfg:  cfg,
	}
}

// Init connects to the collector.
func (b *Backend) Init() error {
	return b.conn.dial(b.cfg.URL, b.cfg.Secret)
}

// Close disconnects from the collector.
func (b *Backend) Close() error {
	return b.conn.close()
}

// marshalEnvelope builds a JSON-encoded Envelope from a message type and payload.
func marshalEnvelope(msgType string, payload any) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal %s payload: %w", msgType, err)
	}
	env := streaming.Envelope{Type: msgType, Payload: raw}
	data, err := json.Marshal(env)
	if err != nil {
		return nil, fmt.Errorf("marshal %s envelope: %w", msgType, err)
	}
	return data, nil
}

// sendEnvelope marshals the payload into an Envelope and pushes it
// to the write loop (fire-and-forget).
func (b *Backend) sendEnvelope(msgType string, payload any) error {
	data, err := marshalEnvelope(msgType, payload)
	if err != nil {
		return err
	}
	b.conn.send(data)
	return nil
}

// StartSession sends the session and waits for the collector's ack.
func (b *Backend) StartSession(s *core.Session) error {
	data, err := marshalEnvelope(streaming.TypeStartSession, streaming.SessionPayload{Session: s})
	if err != nil {
		return err
	}
	b.conn.remember(s.ID, data)
	return b.conn.sendAndWait(data, streaming.TypeStartSession, s.ID, ackTimeout)
}

// EndSession sends the finished session and waits for the collector's ack.
func (b *Backend) EndSession(s *core.Session) error {
	defer b.conn.forget(s.ID)

	data, err := marshalEnvelope(streaming.TypeEndSession, streaming.SessionPayload{Session: s})
	if err != nil {
		return err
	}
	return b.conn.sendAndWait(data, streaming.TypeEndSession, s.ID, ackTimeout)
}

func (b *Backend) RecordHealthSample(h *core.HealthSample) error {
	return b.sendEnvelope(streaming.TypeHealthSample, h)
}

func (b *Backend) RecordIncident(i *core.Incident) error {
	return b.sendEnvelope(streaming.TypeIncident, i)
}

func (b *Backend) RecordAdvice(a *core.AdviceExchange) error {
	return b.sendEnvelope(streaming.TypeAdvice, a)
}

func (b *Backend) RecordDriveTrack(t *core.DriveTrack) error {
	return b.sendEnvelope(streaming.TypeDriveTrack, t)
}
