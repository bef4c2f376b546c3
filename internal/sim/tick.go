package sim

import (
	"time"

	"github.com/platform43/firerig/pkg/core"
)

// State is everything one session simulates between ticks.
type State struct {
	Config   core.Configuration `json:"config" msgpack:"config"`
	Joints   Joints             `json:"joints" msgpack:"joints"`
	Drive    Drive              `json:"drive" msgpack:"drive"`
	Tick     uint64             `json:"tick" msgpack:"tick"`
	Reporter HealthReporter     `json:"-" msgpack:"-"`

	// IncidentStart is the tick the current incident was (re)opened on.
	IncidentStart uint64 `json:"-" msgpack:"-"`
}

// Input is what the client holds down during a tick.
type Input struct {
	Keys Keys `json:"keys" msgpack:"keys"`
}

// EventKind tags an Event.
type EventKind string

const (
	EventHealth   EventKind = "health"
	EventResolved EventKind = "resolved"
)

// Event is something a tick reports upward.
type Event struct {
	Kind          EventKind `json:"kind" msgpack:"kind"`
	Tick          uint64    `json:"tick" msgpack:"tick"`
	Health        float64   `json:"health" msgpack:"health"`
	FireStrength  int       `json:"fireStrength" msgpack:"fireStrength"`
	DurationTicks uint64    `json:"durationTicks,omitempty" msgpack:"durationTicks,omitempty"`
	Geometry      Geometry  `json:"geometry,omitempty" msgpack:"geometry,omitempty"`
}

// Simulator advances States. It holds no per-session data and is safe to share.
type Simulator struct {
	params Params
}

// NewSimulator creates a simulator with the given tuning.
func NewSimulator(p Params) *Simulator {
	return &Simulator{params: p}
}

// Params returns the simulator's tuning.
func (s *Simulator) Params() Params {
	return s.params
}

// NewState returns the state a fresh session starts in.
func (s *Simulator) NewState() State {
	return State{
		Config:   core.DefaultConfiguration(),
		Joints:   RestJoints(),
		Reporter: NewHealthReporter(s.params.ReportInterval),
	}
}

// Apply reduces one update into st and keeps the tick bookkeeping consistent with it.
func (s *Simulator) Apply(st State, u Update) State {
	before := st.Config
	st.Config = Reduce(st.Config, u)

	switch u.(type) {
	case IncidentReset, FireStrengthChanged:
		st.Reporter.Reset()
		st.IncidentStart = st.Tick
	}
	if before.IsDriveMode && !st.Config.IsDriveMode {
		st.Drive = Drive{}
	}
	return st
}

// Tick advances st by one frame: drive, smoothing, suppression, then health reporting.
func (s *Simulator) Tick(st State, in Input, dt time.Duration) (State, []Event) {
	st.Tick++
	cfg := st.Config

	if cfg.IsDriveMode {
		st.Drive, cfg = s.params.Drive.Step(st.Drive, cfg, in.Keys)
	}

	st.Joints = st.Joints.Smooth(cfg.IsLadderDeployed, cfg.SirenActive, cfg.CannonYaw, cfg.CannonPitch, s.params.Factors)

	var events []Event
	cfg, resolved := s.params.Suppression.Apply(cfg, st.Joints.LadderElevation)
	st.Config = cfg

	if st.Reporter.Observe(cfg.FireHealth, dt) {
		events = append(events, Event{
			Kind:         EventHealth,
			Tick:         st.Tick,
			Health:       cfg.FireHealth,
			FireStrength: cfg.FireStrength,
		})
	}
	if resolved {
		events = append(events, Event{
			Kind:          EventResolved,
			Tick:          st.Tick,
			Health:        cfg.FireHealth,
			FireStrength:  cfg.FireStrength,
			DurationTicks: st.Tick - st.IncidentStart,
			Geometry:      s.params.Suppression.geometryFor(cfg),
		})
	}
	return st, events
}
