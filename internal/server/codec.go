package server

import (
	"encoding/json"
	"fmt"

	"github.com/gorilla/websocket"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/platform43/firerig/internal/dispatcher"
)

// Codec converts between websocket frames and commands or messages.
type Codec interface {
	Name() string
	// FrameType is the websocket message type used for outbound frames.
	FrameType() int
	Encode(v any) ([]byte, error)
	// DecodeCommand parses an inbound frame. The payload is normalized to JSON.
	DecodeCommand(data []byte) (dispatcher.Event, error)
}

// CodecByName returns the codec for a ?codec= query value. An empty name selects JSON.
func CodecByName(name string) (Codec, error) {
	switch name {
	case "", "json":
		return jsonCodec{}, nil
	case "msgpack":
		return msgpackCodec{}, nil
	default:
		return nil, fmt.Errorf("%w: unknown codec %q", errBadRequest, name)
	}
}

type jsonCodec struct{}

func (jsonCodec) Name() string   { return "json" }
func (jsonCodec) FrameType() int { return websocket.TextMessage }

func (jsonCodec) Encode(v any) ([]byte, error) {
	return json.Marshal(v)
}

func (jsonCodec) DecodeCommand(data []byte) (dispatcher.Event, error) {
	var e dispatcher.Event
	if err := json.Unmarshal(data, &e); err != nil {
		return dispatcher.Event{}, fmt.Errorf("%w: %v", errBadRequest, err)
	}
	return e, nil
}

type msgpackCodec struct{}

func (msgpackCodec) Name() string   { return "msgpack" }
func (msgpackCodec) FrameType() int { return websocket.BinaryMessage }

func (msgpackCodec) Encode(v any) ([]byte, error) {
	return msgpack.Marshal(v)
}

type msgpackCommand struct {
	Command string `msgpack:"command"`
	Payload any    `msgpack:"payload"`
}

func (msgpackCodec) DecodeCommand(data []byte) (dispatcher.Event, error) {
	var c msgpackCommand
	if err := msgpack.Unmarshal(data, &c); err != nil {
		return dispatcher.Event{}, fmt.Errorf("%w: %v", errBadRequest, err)
	}
	e := dispatcher.Event{Command: c.Command}
	if c.Payload != nil {
		payload, err := json.Marshal(c.Payload)
		if err != nil {
			return dispatcher.Event{}, fmt.Errorf("%w: payload: %v", errBadRequest, err)
		}
		e.Payload = payload
	}
	return e, nil
}
