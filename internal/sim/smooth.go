package sim

import "math"

// Smoothing factors applied once per tick.
const (
	LadderFactor = 0.05
	CannonFactor = 0.1
	StrobeFactor = 0.2
)

// Ladder elevation targets, in radians.
const (
	LadderDeployedElevation = math.Pi / 4
	LadderStowedElevation   = 0.05
)

// Lerp moves current toward target by factor. At rest (current == target) it returns current unchanged.
func Lerp(current, target, factor float64) float64 {
	if current == target {
		return current
	}
	return current + (target-current)*factor
}

// Joints holds the animated angles the renderer draws. They trail their targets in Configuration.
type Joints struct {
	LadderElevation float64 `json:"ladderElevation" msgpack:"ladderElevation"`
	CannonYaw       float64 `json:"cannonYaw" msgpack:"cannonYaw"`
	CannonPitch     float64 `json:"cannonPitch" msgpack:"cannonPitch"`
	StrobeIntensity float64 `json:"strobeIntensity" msgpack:"strobeIntensity"`
}

// RestJoints returns joints already settled on the stowed pose.
func RestJoints() Joints {
	return Joints{LadderElevation: LadderStowedElevation}
}

// Factors groups the per-joint smoothing factors.
type Factors struct {
	Ladder float64
	Cannon float64
	Strobe float64
}

// DefaultFactors returns the factors used by the configurator.
func DefaultFactors() Factors {
	return Factors{Ladder: LadderFactor, Cannon: CannonFactor, Strobe: StrobeFactor}
}

// Smooth advances every joint one step toward the targets implied by the given state.
func (j Joints) Smooth(ladderDeployed, sirenActive bool, yaw, pitch float64, f Factors) Joints {
	ladderTarget := LadderStowedElevation
	if ladderDeployed {
		ladderTarget = LadderDeployedElevation
	}
	strobeTarget := 0.0
	if sirenActive {
		strobeTarget = 1.0
	}

	return Joints{
		LadderElevation: Lerp(j.LadderElevation, ladderTarget, f.Ladder),
		CannonYaw:       Lerp(j.CannonYaw, yaw, f.Cannon),
		CannonPitch:     Lerp(j.CannonPitch, pitch, f.Cannon),
		StrobeIntensity: Lerp(j.StrobeIntensity, strobeTarget, f.Strobe),
	}
}
