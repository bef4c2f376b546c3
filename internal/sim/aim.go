package sim

import (
	"math"

	"github.com/platform43/firerig/pkg/core"
)

// Aim is a resolved cannon orientation in radians.
type Aim struct {
	Yaw   float64 `json:"yaw"`
	Pitch float64 `json:"pitch"`
}

// ResolveAim maps a pointer offset on the unit disc to cannon angles.
// Offsets outside the disc are pulled back onto its rim; non-finite offsets count as centred.
// Pointer down (positive dy) pitches the cannon down.
func ResolveAim(dx, dy float64) Aim {
	if !finite(dx) || !finite(dy) {
		return Aim{}
	}
	if r := math.Hypot(dx, dy); r > 1 {
		dx /= r
		dy /= r
	}
	return Aim{
		Yaw:   clamp(dx*core.MaxCannonYaw, -core.MaxCannonYaw, core.MaxCannonYaw),
		Pitch: clamp(-dy*core.MaxCannonPitch, -core.MaxCannonPitch, core.MaxCannonPitch),
	}
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
