package session

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gopxl/beep"
	"go.opentelemetry.io/otel/metric"

	"github.com/platform43/firerig/internal/advice"
	"github.com/platform43/firerig/internal/api"
	"github.com/platform43/firerig/internal/influx"
	"github.com/platform43/firerig/internal/logging"
	"github.com/platform43/firerig/internal/sim"
	"github.com/platform43/firerig/internal/siren"
	"github.com/platform43/firerig/internal/storage"
	"github.com/platform43/firerig/pkg/core"
)

const (
	updateBuffer     = 64
	subscriberBuffer = 16

	// maxTrackPoints bounds a drive track before it is written out and restarted.
	maxTrackPoints = 1024

	uploadTimeout = time.Minute
)

// TickWriter receives one sample per simulated frame.
type TickWriter interface {
	WriteTick(s influx.TickSample) error
}

// Uploader ships a finished session export to the collector.
type Uploader interface {
	Upload(ctx context.Context, path string, meta api.UploadMetadata) error
}

// Dependencies holds everything a session needs from the service around it.
type Dependencies struct {
	Simulator        *sim.Simulator
	Backend          storage.Backend
	Ticks            TickWriter
	Uploader         Uploader
	Advisor          advice.Generator
	Tone             siren.Tone
	SampleRate       beep.SampleRate
	TickRate         int
	TrackSampleTicks int
	Version          string
	Logger           *slog.Logger
	Meter            metric.Meter
}

// MessageType tags an outbound Message.
type MessageType string

const (
	MessageSnapshot MessageType = "snapshot"
	MessageHealth   MessageType = "health"
	MessageResolved MessageType = "resolved"
	MessageAdvice   MessageType = "advice"
	MessageError    MessageType = "error"
)

// Message is what subscribers receive.
type Message struct {
	Type     MessageType   `json:"type" msgpack:"type"`
	Snapshot *Snapshot     `json:"snapshot,omitempty" msgpack:"snapshot,omitempty"`
	Event    *sim.Event    `json:"event,omitempty" msgpack:"event,omitempty"`
	Advice   *advice.Reply `json:"advice,omitempty" msgpack:"advice,omitempty"`
	Error    string        `json:"error,omitempty" msgpack:"error,omitempty"`
}

// Snapshot is the published view of a session after a tick.
type Snapshot struct {
	SessionID    string             `json:"sessionId" msgpack:"sessionId"`
	Tick         uint64             `json:"tick" msgpack:"tick"`
	Config       core.Configuration `json:"config" msgpack:"config"`
	Joints       sim.Joints         `json:"joints" msgpack:"joints"`
	Drive        sim.Drive          `json:"drive" msgpack:"drive"`
	SirenPlaying bool               `json:"sirenPlaying" msgpack:"sirenPlaying"`
	AdviceBusy   bool               `json:"adviceBusy" msgpack:"adviceBusy"`
}

// Session is one running configurator. The loop goroutine owns the simulation state;
// everything else talks to it through Submit, SetKeys and the published snapshot.
type Session struct {
	id      string
	deps    Dependencies
	metrics *metrics
	logger  *slog.Logger

	desk  *advice.Desk
	bus   *siren.Bus
	siren *siren.Handle

	// Loop-owned.
	state sim.State
	track []core.Position3D
	info  core.Session

	updates chan sim.Update

	keysMu sync.Mutex
	keys   sim.Keys

	snapMu   sync.RWMutex
	snapshot Snapshot

	subsMu  sync.Mutex
	subs    map[int]chan Message
	nextSub int

	started   atomic.Bool
	done      chan struct{}
	stopped   chan struct{}
	closeOnce sync.Once
}

func newSession(id string, deps Dependencies, m *metrics) *Session {
	s := &Session{
		id:      id,
		deps:    deps,
		metrics: m,
		logger:  deps.Logger.With("session", id),
		bus:     siren.NewBus(deps.SampleRate),
		state:   deps.Simulator.NewState(),
		updates: make(chan sim.Update, updateBuffer),
		subs:    make(map[int]chan Message),
		done:    make(chan struct{}),
		stopped: make(chan struct{}),
		info: core.Session{
			ID:        id,
			StartTime: time.Now(),
			Version:   deps.Version,
		},
	}
	s.desk = advice.NewDesk(deps.Advisor, s.logger)
	s.snapshot = s.snapshotOf()

	info := s.info
	s.record("session_start", func(b storage.Backend) error { return b.StartSession(&info) })
	return s
}

// start launches the frame loop.
func (s *Session) start() {
	if !s.started.CompareAndSwap(false, true) {
		return
	}
	go s.run(time.Second / time.Duration(s.deps.TickRate))
}

func (s *Session) run(interval time.Duration) {
	defer close(s.stopped)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			s.step(interval)
		}
	}
}

// ID returns the session identifier.
func (s *Session) ID() string {
	return s.id
}

// StartTime is when the session was created.
func (s *Session) StartTime() time.Time {
	return s.info.StartTime
}

// Snapshot returns the view published after the most recent tick.
func (s *Session) Snapshot() Snapshot {
	s.snapMu.RLock()
	defer s.snapMu.RUnlock()
	return s.snapshot
}

// Closed reports whether Close has been called.
func (s *Session) Closed() bool {
	select {
	case <-s.done:
		return true
	default:
		return false
	}
}

// Submit queues an update for the next tick.
func (s *Session) Submit(ctx context.Context, u sim.Update) error {
	if s.Closed() {
		return ErrSessionClosed
	}
	select {
	case s.updates <- u:
		return nil
	case <-s.done:
		return ErrSessionClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// SetKeys replaces the held keys used by subsequent ticks.
func (s *Session) SetKeys(k sim.Keys) error {
	if s.Closed() {
		return ErrSessionClosed
	}
	s.keysMu.Lock()
	s.keys = k
	s.keysMu.Unlock()
	return nil
}

func (s *Session) heldKeys() sim.Keys {
	s.keysMu.Lock()
	defer s.keysMu.Unlock()
	return s.keys
}

// Ask forwards a question to the advice desk with the current configuration.
// advice.ErrBusy is returned while an earlier question is outstanding.
func (s *Session) Ask(ctx context.Context, question string) (advice.Reply, error) {
	if s.Closed() {
		return advice.Reply{}, ErrSessionClosed
	}
	call, err := s.desk.Reserve(question)
	if err != nil {
		return advice.Reply{}, err
	}
	reply := call.Run(ctx, s.Snapshot().Config)
	s.finishAdvice(reply)
	return reply, nil
}

// AskAsync reserves the desk and answers in the background. The reply arrives as an
// advice message. A question refused by the desk is reported here, before any model call.
func (s *Session) AskAsync(question string) error {
	if s.Closed() {
		return ErrSessionClosed
	}
	call, err := s.desk.Reserve(question)
	if err != nil {
		return err
	}
	go func() {
		s.finishAdvice(call.Run(context.Background(), s.Snapshot().Config))
	}()
	return nil
}

func (s *Session) finishAdvice(reply advice.Reply) {
	s.record("advice", func(b storage.Backend) error {
		return b.RecordAdvice(&core.AdviceExchange{
			SessionID: s.id,
			Time:      time.Now(),
			Question:  reply.Question,
			Reply:     reply.Text,
			Fallback:  reply.Fallback,
			Duration:  reply.Duration,
		})
	})
	s.publish(Message{Type: MessageAdvice, Advice: &reply})
}

// Transcript returns the advice chat so far.
func (s *Session) Transcript() []advice.Message {
	return s.desk.Transcript()
}

// Subscribe registers for published messages. Slow subscribers miss messages
// rather than stall the loop. The channel is closed when the session closes
// or cancel is called.
func (s *Session) Subscribe() (<-chan Message, func()) {
	s.subsMu.Lock()
	defer s.subsMu.Unlock()

	ch := make(chan Message, subscriberBuffer)
	if s.subs == nil {
		close(ch)
		return ch, func() {}
	}

	id := s.nextSub
	s.nextSub++
	s.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.subsMu.Lock()
			defer s.subsMu.Unlock()
			if c, ok := s.subs[id]; ok {
				delete(s.subs, id)
				close(c)
			}
		})
	}
}

// PublishError tells subscribers that an asynchronous command failed.
func (s *Session) PublishError(err error) {
	s.publish(Message{Type: MessageError, Error: err.Error()})
}

func (s *Session) publish(m Message) {
	s.subsMu.Lock()
	defer s.subsMu.Unlock()
	for _, ch := range s.subs {
		select {
		case ch <- m:
		default:
		}
	}
}

// step runs one frame: pending updates, the simulation tick, siren transitions,
// then publishing and recording.
func (s *Session) step(dt time.Duration) {
	start := time.Now()

	s.applyPending()

	var events []sim.Event
	s.state, events = s.deps.Simulator.Tick(s.state, sim.Input{Keys: s.heldKeys()}, dt)

	s.syncSiren()
	s.sampleTrack(start)

	snap := s.snapshotOf()
	s.snapMu.Lock()
	s.snapshot = snap
	s.snapMu.Unlock()

	s.publish(Message{Type: MessageSnapshot, Snapshot: &snap})
	for _, ev := range events {
		s.handleEvent(ev, start)
	}

	s.metrics.ticks.Add(context.Background(), 1)
	if s.deps.Ticks != nil {
		err := s.deps.Ticks.WriteTick(influx.TickSample{
			SessionID:    s.id,
			Time:         start,
			Tick:         s.state.Tick,
			Health:       s.state.Config.FireHealth,
			FireStrength: s.state.Config.FireStrength,
			Speed:        s.state.Config.Speed,
			DriveMode:    s.state.Config.IsDriveMode,
			TickDuration: time.Since(start),
		})
		if err != nil {
			s.logger.Debug("tick sample dropped", "error", err)
		}
	}
}

func (s *Session) applyPending() {
	for {
		select {
		case u := <-s.updates:
			s.state = s.deps.Simulator.Apply(s.state, u)
		default:
			return
		}
	}
}

// syncSiren mounts the siren voice when sirenActive turns on and releases it when it turns off.
func (s *Session) syncSiren() {
	active := s.state.Config.SirenActive
	switch {
	case active && s.siren == nil:
		s.siren = s.bus.Acquire(s.deps.Tone)
		s.logger.Debug("siren acquired")
	case !active && s.siren != nil:
		s.releaseSiren()
	}
}

func (s *Session) releaseSiren() {
	if s.siren == nil {
		return
	}
	s.siren.Release()
	s.siren = nil
	s.logger.Debug("siren released")
}

func (s *Session) sampleTrack(now time.Time) {
	cfg := s.state.Config
	if !cfg.IsDriveMode {
		s.flushTrack(now)
		return
	}
	n := s.deps.TrackSampleTicks
	if n <= 0 || s.state.Tick%uint64(n) != 0 {
		return
	}
	s.track = append(s.track, cfg.Position)
	if len(s.track) >= maxTrackPoints {
		last := s.track[len(s.track)-1]
		s.flushTrack(now)
		s.track = append(s.track, last)
	}
}

func (s *Session) flushTrack(now time.Time) {
	if len(s.track) >= 2 && moved(s.track) {
		points := s.track
		s.record("drive_track", func(b storage.Backend) error {
			return b.RecordDriveTrack(&core.DriveTrack{SessionID: s.id, Time: now, Points: points})
		})
	}
	s.track = nil
}

// moved reports whether the track covers more than one ground position.
func moved(track []core.Position3D) bool {
	for _, p := range track[1:] {
		if p.HorizontalDistance(track[0]) > 0 {
			return true
		}
	}
	return false
}

func (s *Session) handleEvent(ev sim.Event, now time.Time) {
	switch ev.Kind {
	case sim.EventHealth:
		s.record("health_sample", func(b storage.Backend) error {
			return b.RecordHealthSample(&core.HealthSample{
				SessionID:    s.id,
				Time:         now,
				Tick:         ev.Tick,
				Health:       ev.Health,
				FireStrength: ev.FireStrength,
			})
		})
	case sim.EventResolved:
		s.metrics.resolved.Add(context.Background(), 1)
		s.logger.InfoContext(logging.WithTick(context.Background(), ev.Tick), "incident resolved",
			"durationTicks", ev.DurationTicks,
			"fireStrength", ev.FireStrength,
			"geometry", ev.Geometry)
		s.record("incident", func(b storage.Backend) error {
			return b.RecordIncident(&core.Incident{
				SessionID:     s.id,
				Time:          now,
				Tick:          ev.Tick,
				FireStrength:  ev.FireStrength,
				DurationTicks: ev.DurationTicks,
				Geometry:      string(ev.Geometry),
			})
		})
	}
	s.publish(Message{Type: MessageType(ev.Kind), Event: &ev})
}

func (s *Session) snapshotOf() Snapshot {
	return Snapshot{
		SessionID:    s.id,
		Tick:         s.state.Tick,
		Config:       s.state.Config,
		Joints:       s.state.Joints,
		Drive:        s.state.Drive,
		SirenPlaying: s.siren != nil,
		AdviceBusy:   s.desk.Busy(),
	}
}

// record hands a telemetry write to the backend. Failures are logged and never stop the session.
func (s *Session) record(what string, write func(storage.Backend) error) {
	if s.deps.Backend == nil {
		return
	}
	if err := write(s.deps.Backend); err != nil {
		s.logger.Warn("telemetry write failed", "record", what, "error", err)
	}
}

// Close stops the loop, releases the siren and records the session end.
// Subscriber channels are closed. Calling Close again is a no-op.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		close(s.done)
		if s.started.Load() {
			<-s.stopped
		}

		now := time.Now()
		s.releaseSiren()
		s.bus.Close()
		s.flushTrack(now)

		s.subsMu.Lock()
		for id, ch := range s.subs {
			close(ch)
			delete(s.subs, id)
		}
		s.subs = nil
		s.subsMu.Unlock()

		info := s.info
		info.EndTime = now
		info.Final = s.state.Config
		s.record("session_end", func(b storage.Backend) error { return b.EndSession(&info) })
		s.upload(info)
		s.logger.Info("session closed", "ticks", s.state.Tick)
	})
}

// upload sends the backend's export file for this session, if it wrote one.
func (s *Session) upload(info core.Session) {
	exporter, ok := s.deps.Backend.(storage.Exporter)
	if !ok || s.deps.Uploader == nil {
		return
	}
	path, ok := exporter.ExportedFilePath(s.id)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), uploadTimeout)
	defer cancel()
	err := s.deps.Uploader.Upload(ctx, path, api.UploadMetadata{
		SessionID: s.id,
		Version:   info.Version,
		Duration:  info.EndTime.Sub(info.StartTime),
	})
	if err != nil {
		s.logger.Warn("session upload failed", "path", path, "error", err)
		return
	}
	s.logger.Info("session uploaded", "path", path)
}
