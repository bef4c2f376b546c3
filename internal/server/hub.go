package server

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/platform43/firerig/internal/dispatcher"
	"github.com/platform43/firerig/internal/logging"
	"github.com/platform43/firerig/internal/session"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 16 << 10
	directBuffer   = 8
)

// Hub tracks the websocket clients attached to sessions.
type Hub struct {
	server   *Server
	upgrader websocket.Upgrader

	mu      sync.Mutex
	clients map[*client]struct{}
	closed  bool
	wg      sync.WaitGroup
}

func newHub(s *Server) *Hub {
	h := &Hub{
		server:  s,
		clients: make(map[*client]struct{}),
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     s.originAllowed,
	}
	return h
}

// Clients is the number of connected websocket clients.
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// client is one browser connection bound to a session.
type client struct {
	hub     *Hub
	conn    *websocket.Conn
	codec   Codec
	session *session.Session

	updates <-chan session.Message
	cancel  func()
	direct  chan session.Message
	done    chan struct{}
	once    sync.Once
}

// ServeWS upgrades /ws?session=<id>&codec=json|msgpack and attaches the connection to the session.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	s := h.server

	codec, err := CodecByName(r.URL.Query().Get("codec"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	sess, err := s.deps.Sessions.Get(r.URL.Query().Get("session"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.deps.Logger.Warn("websocket upgrade failed", "error", err)
		return
	}

	updates, cancel := sess.Subscribe()
	c := &client{
		hub:     h,
		conn:    conn,
		codec:   codec,
		session: sess,
		updates: updates,
		cancel:  cancel,
		direct:  make(chan session.Message, directBuffer),
		done:    make(chan struct{}),
	}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		cancel()
		conn.Close()
		return
	}
	h.clients[c] = struct{}{}
	h.wg.Add(2)
	h.mu.Unlock()

	snap := sess.Snapshot()
	c.send(session.Message{Type: session.MessageSnapshot, Snapshot: &snap})

	s.deps.Logger.Debug("websocket client attached", "session", sess.ID(), "codec", codec.Name())

	go c.writePump()
	go c.readPump()
}

// Close disconnects every client.
func (h *Hub) Close() {
	h.mu.Lock()
	h.closed = true
	clients := make([]*client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.Unlock()

	for _, c := range clients {
		c.close()
	}
	h.wg.Wait()
}

func (h *Hub) remove(c *client) {
	h.mu.Lock()
	delete(h.clients, c)
	h.mu.Unlock()
}

func (c *client) close() {
	c.once.Do(func() {
		close(c.done)
		c.cancel()
		c.conn.Close()
		c.hub.remove(c)
	})
}

// send queues a message for this client only. It never blocks.
func (c *client) send(m session.Message) {
	select {
	case c.direct <- m:
	default:
	}
}

func (c *client) sendError(err error) {
	c.send(session.Message{Type: session.MessageError, Error: err.Error()})
}

func (c *client) readPump() {
	defer c.hub.wg.Done()
	defer c.close()

	logger := c.hub.server.deps.Logger
	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	ctx, cancel := context.WithCancel(logging.WithSession(context.Background(), c.session.ID()))
	defer cancel()

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.DebugContext(ctx, "websocket read failed", "error", err)
			}
			return
		}

		e, err := c.codec.DecodeCommand(data)
		if err != nil {
			c.sendError(err)
			continue
		}
		e.SessionID = c.session.ID()

		if _, err := c.hub.server.dispatcher.Dispatch(ctx, e); err != nil {
			if errors.Is(err, session.ErrSessionClosed) || errors.Is(err, session.ErrSessionNotFound) {
				return
			}
			if !errors.Is(err, dispatcher.ErrUnknownCommand) {
				logger.DebugContext(ctx, "command rejected", "command", e.Command, "error", err)
			}
			c.sendError(err)
		}
	}
}

func (c *client) writePump() {
	defer c.hub.wg.Done()
	defer c.close()

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case m, ok := <-c.updates:
			if !ok {
				c.conn.SetWriteDeadline(time.Now().Add(writeWait))
				c.conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, "session closed"))
				return
			}
			if !c.write(m) {
				return
			}
		case m := <-c.direct:
			if !c.write(m) {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *client) write(m session.Message) bool {
	data, err := c.codec.Encode(m)
	if err != nil {
		c.hub.server.deps.Logger.Error("encoding message failed", "type", m.Type, "error", err)
		return true
	}
	c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteMessage(c.codec.FrameType(), data) == nil
}
