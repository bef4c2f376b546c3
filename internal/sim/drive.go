package sim

import (
	"math"

	"github.com/platform43/firerig/pkg/core"
)

// Keys is the set of directional keys held during a tick.
type Keys struct {
	Forward  bool `json:"forward" msgpack:"forward"`
	Backward bool `json:"backward" msgpack:"backward"`
	Left     bool `json:"left" msgpack:"left"`
	Right    bool `json:"right" msgpack:"right"`
}

// throttle sums the held drive keys; forward and backward together cancel.
func (k Keys) throttle() float64 {
	t := 0.0
	if k.Forward {
		t++
	}
	if k.Backward {
		t--
	}
	return t
}

// turn sums the held steering keys, positive to the left.
func (k Keys) turn() float64 {
	t := 0.0
	if k.Left {
		t++
	}
	if k.Right {
		t--
	}
	return t
}

// DriveParams tunes the keyboard vehicle integrator. Rates are per tick.
type DriveParams struct {
	Accel        float64
	Friction     float64
	MaxSpeed     float64
	MaxReverse   float64
	TurnRate     float64
	SteerFactor  float64
	MinTurnSpeed float64
	TurnGain     float64
	StopEpsilon  float64
}

// DefaultDriveParams returns the tuning used by the free-roam mode.
func DefaultDriveParams() DriveParams {
	return DriveParams{
		Accel:        0.01,
		Friction:     0.95,
		MaxSpeed:     0.5,
		MaxReverse:   0.2,
		TurnRate:     0.04,
		SteerFactor:  0.1,
		MinTurnSpeed: 0.01,
		TurnGain:     2.0,
		StopEpsilon:  1e-4,
	}
}

// Drive is the integrator's own state between ticks.
type Drive struct {
	Velocity float64 `json:"velocity" msgpack:"velocity"`
	Steering float64 `json:"steering" msgpack:"steering"`
}

// Step integrates one tick of driving and returns the new drive state and configuration.
func (p DriveParams) Step(d Drive, cfg core.Configuration, keys Keys) (Drive, core.Configuration) {
	if throttle := keys.throttle(); throttle != 0 {
		d.Velocity += throttle * p.Accel
	} else {
		d.Velocity *= p.Friction
		if math.Abs(d.Velocity) < p.StopEpsilon {
			d.Velocity = 0
		}
	}
	d.Velocity = clamp(d.Velocity, -p.MaxReverse, p.MaxSpeed)

	steerTarget := 0.0
	if turn := keys.turn(); turn != 0 && math.Abs(d.Velocity) >= p.MinTurnSpeed {
		steerTarget = turn * p.TurnRate
	}
	d.Steering = Lerp(d.Steering, steerTarget, p.SteerFactor)
	if steerTarget == 0 && math.Abs(d.Steering) < p.StopEpsilon {
		d.Steering = 0
	}

	cfg.Heading += d.Steering * d.Velocity * p.TurnGain
	cfg.Position = cfg.Position.Add(Forward(cfg.Heading).Scale(d.Velocity))
	cfg.Speed = math.Abs(d.Velocity)
	return d, cfg
}

// Forward is the unit vector the truck's nose points along at the given heading.
func Forward(heading float64) core.Position3D {
	sin, cos := math.Sincos(heading)
	return core.Position3D{X: cos, Z: -sin}
}
