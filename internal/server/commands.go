package server

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/platform43/firerig/internal/dispatcher"
	"github.com/platform43/firerig/internal/sim"
)

// Client commands.
const (
	CommandUpdate = "update"
	CommandKeys   = "keys"
	CommandAim    = "aim"
	CommandReset  = "reset"
	CommandAdvice = "advice"
)

type aimPayload struct {
	DX float64 `json:"dx"`
	DY float64 `json:"dy"`
}

type adviceRequest struct {
	Question string `json:"question"`
}

// registerCommands wires the client commands into d.
func (s *Server) registerCommands(d *dispatcher.Dispatcher) {
	d.Register(CommandUpdate, s.handleUpdate, dispatcher.Logged())
	d.Register(CommandKeys, s.handleKeys)
	d.Register(CommandAim, s.handleAim)
	d.Register(CommandReset, s.handleReset, dispatcher.Logged())
	d.Register(CommandAdvice, s.handleAdviceCommand, dispatcher.Logged())
}

func decodePayload(e dispatcher.Event, v any) error {
	if len(e.Payload) == 0 {
		return fmt.Errorf("%w: %s needs a payload", errBadRequest, e.Command)
	}
	if err := json.Unmarshal(e.Payload, v); err != nil {
		return fmt.Errorf("%w: %s payload: %v", errBadRequest, e.Command, err)
	}
	return nil
}

func (s *Server) handleUpdate(ctx context.Context, e dispatcher.Event) (any, error) {
	sess, err := s.deps.Sessions.Get(e.SessionID)
	if err != nil {
		return nil, err
	}
	var msg sim.UpdateMessage
	if err := decodePayload(e, &msg); err != nil {
		return nil, err
	}
	u, err := msg.ToUpdate()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errBadRequest, err)
	}
	return nil, sess.Submit(ctx, u)
}

func (s *Server) handleKeys(_ context.Context, e dispatcher.Event) (any, error) {
	sess, err := s.deps.Sessions.Get(e.SessionID)
	if err != nil {
		return nil, err
	}
	var keys sim.Keys
	if err := decodePayload(e, &keys); err != nil {
		return nil, err
	}
	return nil, sess.SetKeys(keys)
}

func (s *Server) handleAim(ctx context.Context, e dispatcher.Event) (any, error) {
	sess, err := s.deps.Sessions.Get(e.SessionID)
	if err != nil {
		return nil, err
	}
	var aim aimPayload
	if err := decodePayload(e, &aim); err != nil {
		return nil, err
	}
	return nil, sess.Submit(ctx, sim.AimChanged{DX: aim.DX, DY: aim.DY})
}

func (s *Server) handleReset(ctx context.Context, e dispatcher.Event) (any, error) {
	sess, err := s.deps.Sessions.Get(e.SessionID)
	if err != nil {
		return nil, err
	}
	return nil, sess.Submit(ctx, sim.IncidentReset{})
}

// handleAdviceCommand reserves the session's desk and returns at once. The reply reaches
// the client as an advice message; a busy desk is refused here.
func (s *Server) handleAdviceCommand(_ context.Context, e dispatcher.Event) (any, error) {
	sess, err := s.deps.Sessions.Get(e.SessionID)
	if err != nil {
		return nil, err
	}
	var req adviceRequest
	if err := decodePayload(e, &req); err != nil {
		return nil, err
	}
	if err := sess.AskAsync(req.Question); err != nil {
		return nil, err
	}
	return dispatcher.Queued, nil
}
