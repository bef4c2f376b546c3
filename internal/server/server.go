package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"slices"
	"time"

	"github.com/gopxl/beep"
	"go.opentelemetry.io/otel/metric"

	"github.com/platform43/firerig/internal/advice"
	"github.com/platform43/firerig/internal/catalog"
	"github.com/platform43/firerig/internal/dispatcher"
	"github.com/platform43/firerig/internal/logging"
	"github.com/platform43/firerig/internal/session"
	"github.com/platform43/firerig/internal/sim"
	"github.com/platform43/firerig/internal/siren"
)

// errBadRequest marks client input that could not be decoded.
var errBadRequest = errors.New("bad request")

const maxBodyBytes = 64 << 10

// Dependencies holds everything the HTTP layer needs.
type Dependencies struct {
	Sessions       *session.Manager
	Catalog        *catalog.Catalog
	Tone           siren.Tone
	SampleRate     beep.SampleRate
	RenderDuration time.Duration
	AllowedOrigins []string
	Logger         *slog.Logger
	CommandLogger  dispatcher.Logger
	Meter          metric.Meter
}

// Server serves the HTTP API and the client websocket.
type Server struct {
	deps       Dependencies
	dispatcher *dispatcher.Dispatcher
	hub        *Hub
	handler    http.Handler
}

// New builds the server and its command dispatcher.
func New(deps Dependencies) (*Server, error) {
	if deps.Sessions == nil {
		return nil, errors.New("server needs a session manager")
	}
	if deps.Catalog == nil {
		c, err := catalog.Default()
		if err != nil {
			return nil, fmt.Errorf("loading default catalog: %w", err)
		}
		deps.Catalog = c
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.CommandLogger == nil {
		deps.CommandLogger = deps.Logger
	}
	if deps.SampleRate <= 0 {
		deps.SampleRate = siren.DefaultSampleRate
	}
	if deps.Tone == (siren.Tone{}) {
		deps.Tone = siren.DefaultTone()
	}
	if deps.RenderDuration <= 0 {
		deps.RenderDuration = deps.Tone.Period
	}

	s := &Server{deps: deps}

	var (
		d   *dispatcher.Dispatcher
		err error
	)
	if deps.Meter != nil {
		d, err = dispatcher.NewWithMeter(deps.CommandLogger, deps.Meter)
	} else {
		d, err = dispatcher.New(deps.CommandLogger)
	}
	if err != nil {
		return nil, fmt.Errorf("creating dispatcher: %w", err)
	}
	s.dispatcher = d
	s.registerCommands(d)
	s.hub = newHub(s)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthcheck", s.handleHealthcheck)
	mux.HandleFunc("GET /api/catalog", s.handleCatalog)
	mux.HandleFunc("POST /api/sessions", s.handleCreateSession)
	mux.HandleFunc("GET /api/sessions", s.handleListSessions)
	mux.HandleFunc("GET /api/sessions/{id}", s.handleGetSession)
	mux.HandleFunc("DELETE /api/sessions/{id}", s.handleDeleteSession)
	mux.HandleFunc("POST /api/sessions/{id}/updates", s.handleSubmitUpdate)
	mux.HandleFunc("POST /api/sessions/{id}/advice", s.handleAdvice)
	mux.HandleFunc("GET /api/sessions/{id}/transcript", s.handleTranscript)
	mux.HandleFunc("GET /api/siren.wav", s.handleSirenWAV)
	mux.HandleFunc("GET /ws", s.hub.ServeWS)

	s.handler = s.withCORS(mux)
	return s, nil
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Close disconnects websocket clients and drains queued commands.
func (s *Server) Close() {
	s.hub.Close()
	s.dispatcher.Close()
}

func (s *Server) withCORS(next http.Handler) http.Handler {
	allowAll := slices.Contains(s.deps.AllowedOrigins, "*")
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin != "" && (allowAll || slices.Contains(s.deps.AllowedOrigins, origin)) {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
			w.Header().Add("Vary", "Origin")
		}
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) originAllowed(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" || slices.Contains(s.deps.AllowedOrigins, "*") {
		return true
	}
	return slices.Contains(s.deps.AllowedOrigins, origin)
}

// statusFor maps service errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, errBadRequest),
		errors.Is(err, advice.ErrEmptyQuestion),
		errors.Is(err, dispatcher.ErrUnknownCommand):
		return http.StatusBadRequest
	case errors.Is(err, session.ErrSessionNotFound):
		return http.StatusNotFound
	case errors.Is(err, advice.ErrBusy):
		return http.StatusConflict
	case errors.Is(err, session.ErrSessionClosed):
		return http.StatusGone
	case errors.Is(err, session.ErrTooManySessions),
		errors.Is(err, dispatcher.ErrQueueFull):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.deps.Logger.Debug("writing response failed", "error", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		ctx := r.Context()
		if id := r.PathValue("id"); id != "" {
			ctx = logging.WithSession(ctx, id)
		}
		s.deps.Logger.ErrorContext(ctx, "request failed", "method", r.Method, "path", r.URL.Path, "error", err)
	}
	s.writeJSON(w, status, map[string]string{"error": err.Error()})
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: %v", errBadRequest, err)
	}
	return nil
}

func (s *Server) handleHealthcheck(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]any{
		"status":   "ok",
		"sessions": s.deps.Sessions.Count(),
	})
}

func (s *Server) handleCatalog(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, s.deps.Catalog)
}

type sessionResponse struct {
	ID       string           `json:"id"`
	Snapshot session.Snapshot `json:"snapshot"`
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	sess, err := s.deps.Sessions.Create()
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, sessionResponse{ID: sess.ID(), Snapshot: sess.Snapshot()})
}

func (s *Server) handleListSessions(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string][]string{"sessions": s.deps.Sessions.List()})
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	sess, err := s.deps.Sessions.Get(r.PathValue("id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, sessionResponse{ID: sess.ID(), Snapshot: sess.Snapshot()})
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	if err := s.deps.Sessions.Close(r.PathValue("id")); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSubmitUpdate(w http.ResponseWriter, r *http.Request) {
	var msg sim.UpdateMessage
	if err := decodeBody(w, r, &msg); err != nil {
		s.writeError(w, r, err)
		return
	}
	payload, err := json.Marshal(msg)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	_, err = s.dispatcher.Dispatch(r.Context(), dispatcher.Event{
		Command:   CommandUpdate,
		SessionID: r.PathValue("id"),
		Payload:   payload,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

func (s *Server) handleAdvice(w http.ResponseWriter, r *http.Request) {
	sess, err := s.deps.Sessions.Get(r.PathValue("id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var req adviceRequest
	if err := decodeBody(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	// A dropped client does not cancel the model call.
	reply, err := sess.Ask(context.WithoutCancel(r.Context()), req.Question)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, reply)
}

func (s *Server) handleTranscript(w http.ResponseWriter, r *http.Request) {
	sess, err := s.deps.Sessions.Get(r.PathValue("id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string][]advice.Message{"messages": sess.Transcript()})
}

// handleSirenWAV renders the siren tone to a temporary file and serves it.
func (s *Server) handleSirenWAV(w http.ResponseWriter, r *http.Request) {
	f, err := os.CreateTemp("", "firerig-siren-*.wav")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	defer os.Remove(f.Name())
	defer f.Close()

	if err := siren.RenderWAV(f, s.deps.Tone, s.deps.SampleRate, s.deps.RenderDuration); err != nil {
		s.writeError(w, r, fmt.Errorf("rendering siren: %w", err))
		return
	}

	w.Header().Set("Content-Type", "audio/wav")
	http.ServeContent(w, r, "siren.wav", time.Time{}, f)
}
