package sim

import (
	"math"

	"github.com/lucasb-eyer/go-colorful"

	"github.com/platform43/firerig/pkg/core"
)

// Update is one user-driven mutation of a Configuration. The set of variants is closed.
type Update interface {
	Kind() string
}

type (
	// ColorChanged repaints the body. Colors that do not parse are ignored.
	ColorChanged struct{ Color string }
	// LadderLengthChanged sets the truss length, clamped to the supported range.
	LadderLengthChanged struct{ Length float64 }
	// LadderToggled raises or stows the aerial; outriggers follow it.
	LadderToggled struct{}
	// SirenToggled switches the siren and lightbar.
	SirenToggled struct{}
	// AimChanged carries a pointer offset for the cannon. Ignored while the ladder is stowed.
	AimChanged struct{ DX, DY float64 }
	// FireStrengthChanged sets the fire intensity and restarts the incident.
	FireStrengthChanged struct{ Strength int }
	// IncidentReset relights the fire at full health.
	IncidentReset struct{}
	// WheelsChanged sets the wheel count and tyre type. A zero Count or empty Type keeps the current value.
	WheelsChanged struct {
		Count int
		Type  core.WheelType
	}
	// CabStyleChanged swaps the cab body.
	CabStyleChanged struct{ Style core.CabStyle }
	// DriveModeToggled switches between the configurator and free-roam driving.
	DriveModeToggled struct{}
)

func (ColorChanged) Kind() string        { return "colorChanged" }
func (LadderLengthChanged) Kind() string { return "ladderLengthChanged" }
func (LadderToggled) Kind() string       { return "ladderToggled" }
func (SirenToggled) Kind() string        { return "sirenToggled" }
func (AimChanged) Kind() string          { return "aimChanged" }
func (FireStrengthChanged) Kind() string { return "fireStrengthChanged" }
func (IncidentReset) Kind() string       { return "incidentReset" }
func (WheelsChanged) Kind() string       { return "wheelsChanged" }
func (CabStyleChanged) Kind() string     { return "cabStyleChanged" }
func (DriveModeToggled) Kind() string    { return "driveModeToggled" }

// Reduce applies u to cfg. It never fails: out-of-range values are clamped and
// unusable ones leave the field as it was.
func Reduce(cfg core.Configuration, u Update) core.Configuration {
	switch u := u.(type) {
	case ColorChanged:
		if c, ok := NormalizeColor(u.Color); ok {
			cfg.BodyColor = c
		}

	case LadderLengthChanged:
		if finite(u.Length) {
			cfg.LadderLength = clamp(u.Length, core.MinLadderLength, core.MaxLadderLength)
		}

	case LadderToggled:
		cfg.IsLadderDeployed = !cfg.IsLadderDeployed
		cfg.OutriggersExtended = cfg.IsLadderDeployed
		if !cfg.IsLadderDeployed {
			cfg.CannonYaw, cfg.CannonPitch = 0, 0
		}

	case SirenToggled:
		cfg.SirenActive = !cfg.SirenActive

	case AimChanged:
		if !cfg.IsLadderDeployed {
			return cfg
		}
		aim := ResolveAim(u.DX, u.DY)
		cfg.CannonYaw, cfg.CannonPitch = aim.Yaw, aim.Pitch

	case FireStrengthChanged:
		cfg.FireStrength = clampInt(u.Strength, core.MinFireStrength, core.MaxFireStrength)
		cfg.FireHealth = core.MaxFireHealth
		cfg.IsFireActive = true

	case IncidentReset:
		cfg.FireHealth = core.MaxFireHealth
		cfg.IsFireActive = true

	case WheelsChanged:
		if u.Count != 0 {
			n := clampInt(u.Count, core.MinWheelCount, core.MaxWheelCount)
			if n%2 != 0 {
				n++
			}
			cfg.WheelCount = clampInt(n, core.MinWheelCount, core.MaxWheelCount)
		}
		if u.Type.Valid() {
			cfg.WheelType = u.Type
		}

	case CabStyleChanged:
		if u.Style.Valid() {
			cfg.CabStyle = u.Style
		}

	case DriveModeToggled:
		cfg.IsDriveMode = !cfg.IsDriveMode
		if !cfg.IsDriveMode {
			cfg.Speed = 0
		}
	}
	return cfg
}

// NormalizeColor parses a hex color and returns it as lowercase #rrggbb.
func NormalizeColor(s string) (string, bool) {
	c, err := colorful.Hex(s)
	if err != nil {
		return "", false
	}
	return c.Hex(), true
}

func clampInt(v, lo, hi int) int {
	return int(math.Max(float64(lo), math.Min(float64(hi), float64(v))))
}
