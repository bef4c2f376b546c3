// pkg/core/configuration.go
package core

import "math"

// Bounds for the user- and simulation-tunable fields of a Configuration.
const (
	MinLadderLength = 3.0
	MaxLadderLength = 7.0

	MaxCannonYaw   = math.Pi / 3
	MaxCannonPitch = math.Pi / 6

	MinFireStrength = 1
	MaxFireStrength = 10

	MinFireHealth = 0.0
	MaxFireHealth = 100.0

	MinWheelCount = 4
	MaxWheelCount = 10
)

// WheelType selects the tyre tread rendered on every axle.
type WheelType string

const (
	WheelStreet  WheelType = "street"
	WheelOffroad WheelType = "offroad"
)

// Valid reports whether w is a known wheel type.
func (w WheelType) Valid() bool {
	return w == WheelStreet || w == WheelOffroad
}

// CabStyle selects the crew cab body.
type CabStyle string

const (
	CabStandard CabStyle = "standard"
	CabExtended CabStyle = "extended"
)

// Valid reports whether c is a known cab style.
func (c CabStyle) Valid() bool {
	return c == CabStandard || c == CabExtended
}

// Position3D is a point in the scene frame. Y is up; the truck drives on the XZ plane.
type Position3D struct {
	X float64 `json:"x" msgpack:"x"`
	Y float64 `json:"y" msgpack:"y"`
	Z float64 `json:"z" msgpack:"z"`
}

// Add returns p+o.
func (p Position3D) Add(o Position3D) Position3D {
	return Position3D{X: p.X + o.X, Y: p.Y + o.Y, Z: p.Z + o.Z}
}

// Scale returns p*k.
func (p Position3D) Scale(k float64) Position3D {
	return Position3D{X: p.X * k, Y: p.Y * k, Z: p.Z * k}
}

// HorizontalDistance is the Euclidean distance between p and o projected onto the ground plane.
func (p Position3D) HorizontalDistance(o Position3D) float64 {
	return math.Hypot(p.X-o.X, p.Z-o.Z)
}

// Configuration is the single record driving every visual and simulated aspect of the truck.
type Configuration struct {
	// Identity
	BodyColor          string    `json:"bodyColor" msgpack:"bodyColor"`
	LadderLength       float64   `json:"ladderLength" msgpack:"ladderLength"`
	IsLadderDeployed   bool      `json:"isLadderDeployed" msgpack:"isLadderDeployed"`
	SirenActive        bool      `json:"sirenActive" msgpack:"sirenActive"`
	OutriggersExtended bool      `json:"outriggersExtended" msgpack:"outriggersExtended"`
	WheelCount         int       `json:"wheelCount" msgpack:"wheelCount"`
	WheelType          WheelType `json:"wheelType" msgpack:"wheelType"`
	CabStyle           CabStyle  `json:"cabStyle" msgpack:"cabStyle"`

	// Aim
	CannonYaw   float64 `json:"cannonYaw" msgpack:"cannonYaw"`
	CannonPitch float64 `json:"cannonPitch" msgpack:"cannonPitch"`

	// Fire simulation
	IsFireActive bool    `json:"isFireActive" msgpack:"isFireActive"`
	FireStrength int     `json:"fireStrength" msgpack:"fireStrength"`
	FireHealth   float64 `json:"fireHealth" msgpack:"fireHealth"`

	// Driving
	IsDriveMode bool       `json:"isDriveMode" msgpack:"isDriveMode"`
	Speed       float64    `json:"speed" msgpack:"speed"`
	Heading     float64    `json:"heading" msgpack:"heading"`
	Position    Position3D `json:"position" msgpack:"position"`
}

// DefaultConfiguration returns the configuration every session starts with.
func DefaultConfiguration() Configuration {
	return Configuration{
		BodyColor:    "#fbbf24",
		LadderLength: 6.0,
		WheelCount:   8,
		WheelType:    WheelStreet,
		CabStyle:     CabExtended,
		IsFireActive: true,
		FireStrength: 5,
		FireHealth:   MaxFireHealth,
	}
}

// Resolved reports whether the incident has been put out.
func (c Configuration) Resolved() bool {
	return c.FireHealth <= MinFireHealth
}
