package sim

import (
	"fmt"
	"math"
	"time"

	"github.com/platform43/firerig/pkg/core"
)

// Geometry names the rule deciding whether the water stream is on target.
type Geometry string

const (
	// GeometryAuto picks the landing zone in drive mode and the aim window otherwise.
	GeometryAuto    Geometry = "auto"
	GeometryWindow  Geometry = "window"
	GeometryLanding Geometry = "landing"
)

// ParseGeometry validates a configured geometry name. An empty name means auto.
func ParseGeometry(s string) (Geometry, error) {
	switch g := Geometry(s); g {
	case "":
		return GeometryAuto, nil
	case GeometryAuto, GeometryWindow, GeometryLanding:
		return g, nil
	default:
		return "", fmt.Errorf("unknown suppression geometry %q", s)
	}
}

// AimWindow accepts hits when the cannon points along the line toward the fire.
type AimWindow struct {
	YawTolerance float64
	PitchLow     float64
	PitchHigh    float64
	BaseRate     float64
}

// Hit reports whether yaw and pitch fall inside the window.
func (w AimWindow) Hit(yaw, pitch float64) bool {
	return math.Abs(yaw) < w.YawTolerance && pitch >= w.PitchLow && pitch <= w.PitchHigh
}

// Damage is the per-tick health loss for a fire of the given strength.
func (w AimWindow) Damage(strength int) float64 {
	return w.BaseRate / (float64(strength)*0.5 + 1)
}

// LandingZone accepts hits when the projected landing point falls within Radius of the fire.
type LandingZone struct {
	FirePosition  core.Position3D
	Radius        float64
	ThrowDistance float64
	BaseRate      float64
	// TurretMount is the ladder pivot in the truck's local frame (+X toward the cab).
	TurretMount core.Position3D
}

// Damage is the per-tick health loss for a fire of the given strength.
func (z LandingZone) Damage(strength int) float64 {
	return z.BaseRate * float64(11-strength) / 5
}

// Nozzle returns the world position of the cannon at the ladder tip.
func (z LandingZone) Nozzle(cfg core.Configuration, elevation float64) core.Position3D {
	local := core.Position3D{
		X: z.TurretMount.X + cfg.LadderLength*math.Cos(elevation),
		Y: z.TurretMount.Y + cfg.LadderLength*math.Sin(elevation),
		Z: z.TurretMount.Z,
	}
	return cfg.Position.Add(toWorld(local, cfg.Heading))
}

// Landing projects the nozzle along the aim direction by the throw distance.
func (z LandingZone) Landing(cfg core.Configuration, elevation float64) core.Position3D {
	nozzle := z.Nozzle(cfg, elevation)
	azimuth := cfg.Heading + cfg.CannonYaw
	dir := core.Position3D{
		X: math.Cos(cfg.CannonPitch) * math.Cos(azimuth),
		Y: math.Sin(cfg.CannonPitch),
		Z: -math.Cos(cfg.CannonPitch) * math.Sin(azimuth),
	}
	return nozzle.Add(dir.Scale(z.ThrowDistance))
}

// Hit reports whether the landing point is within the fire's radius.
func (z LandingZone) Hit(cfg core.Configuration, elevation float64) bool {
	return z.Landing(cfg, elevation).HorizontalDistance(z.FirePosition) < z.Radius
}

// toWorld rotates a truck-local offset by heading about the Y axis.
func toWorld(local core.Position3D, heading float64) core.Position3D {
	sin, cos := math.Sincos(heading)
	return core.Position3D{
		X: local.X*cos + local.Z*sin,
		Y: local.Y,
		Z: -local.X*sin + local.Z*cos,
	}
}

// Suppression decides each tick whether water reaches the fire and applies the damage.
type Suppression struct {
	Geometry Geometry
	Window   AimWindow
	Landing  LandingZone
}

// geometryFor resolves GeometryAuto against the current mode.
func (s Suppression) geometryFor(cfg core.Configuration) Geometry {
	switch s.Geometry {
	case GeometryWindow, GeometryLanding:
		return s.Geometry
	}
	if cfg.IsDriveMode {
		return GeometryLanding
	}
	return GeometryWindow
}

// Apply returns cfg after one tick of suppression and whether this tick put the fire out.
// Health never rises here and never drops below zero.
func (s Suppression) Apply(cfg core.Configuration, elevation float64) (core.Configuration, bool) {
	if !cfg.IsLadderDeployed || !cfg.IsFireActive || cfg.Resolved() {
		return cfg, false
	}

	var damage float64
	switch s.geometryFor(cfg) {
	case GeometryLanding:
		if !s.Landing.Hit(cfg, elevation) {
			return cfg, false
		}
		damage = s.Landing.Damage(cfg.FireStrength)
	default:
		if !s.Window.Hit(cfg.CannonYaw, cfg.CannonPitch) {
			return cfg, false
		}
		damage = s.Window.Damage(cfg.FireStrength)
	}

	cfg.FireHealth = clamp(cfg.FireHealth-math.Max(damage, 0), core.MinFireHealth, core.MaxFireHealth)
	if cfg.Resolved() {
		cfg.IsFireActive = false
		return cfg, true
	}
	return cfg, false
}

// HealthReporter rate-limits health reports. The report that reaches zero is always delivered.
type HealthReporter struct {
	Interval time.Duration

	elapsed  time.Duration
	last     float64
	reported bool
}

// NewHealthReporter creates a reporter that emits at most one report per interval.
func NewHealthReporter(interval time.Duration) HealthReporter {
	return HealthReporter{Interval: interval}
}

// Observe accounts dt of simulated time and reports whether health should be published.
func (r *HealthReporter) Observe(health float64, dt time.Duration) bool {
	r.elapsed += dt
	if r.reported && health == r.last {
		return false
	}
	if health <= core.MinFireHealth || r.elapsed >= r.Interval || !r.reported {
		r.elapsed = 0
		r.last = health
		r.reported = true
		return true
	}
	return false
}

// Reset forgets the last reported value so the next observation is published.
func (r *HealthReporter) Reset() {
	r.elapsed = 0
	r.last = 0
	r.reported = false
}
