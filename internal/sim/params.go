package sim

import (
	"time"

	"github.com/platform43/firerig/pkg/core"
)

// Params is the complete tuning of the simulation. The zero value is not useful; start from DefaultParams.
type Params struct {
	Suppression    Suppression
	Drive          DriveParams
	Factors        Factors
	ReportInterval time.Duration
}

// DefaultParams returns the tuning used when no configuration overrides it.
func DefaultParams() Params {
	return Params{
		Suppression: Suppression{
			Geometry: GeometryAuto,
			Window: AimWindow{
				YawTolerance: 0.15,
				PitchLow:     -0.35,
				PitchHigh:    -0.1,
				BaseRate:     0.6,
			},
			Landing: LandingZone{
				FirePosition:  core.Position3D{X: 13},
				Radius:        2.5,
				ThrowDistance: 12,
				BaseRate:      0.1,
				TurretMount:   core.Position3D{X: -3.0, Y: 2.15},
			},
		},
		Drive:          DefaultDriveParams(),
		Factors:        DefaultFactors(),
		ReportInterval: 100 * time.Millisecond,
	}
}
