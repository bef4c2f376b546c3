package sim

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/platform43/firerig/pkg/core"
)

func TestResolveAim(t *testing.T) {
	tests := []struct {
		name      string
		dx, dy    float64
		wantYaw   float64
		wantPitch float64
	}{
		{"centre", 0, 0, 0, 0},
		{"right edge", 1, 0, core.MaxCannonYaw, 0},
		{"far right clipped", 2, 0, core.MaxCannonYaw, 0},
		{"far left clipped", -10, 0, -core.MaxCannonYaw, 0},
		{"far up clipped", 0, -5, 0, core.MaxCannonPitch},
		{"far down clipped", 0, 7, 0, -core.MaxCannonPitch},
		{"inside disc", 0.5, 0.5, 0.5 * core.MaxCannonYaw, -0.5 * core.MaxCannonPitch},
		{"NaN", math.NaN(), 0.3, 0, 0},
		{"Inf", 0.2, math.Inf(1), 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ResolveAim(tt.dx, tt.dy)
			assert.InDelta(t, tt.wantYaw, got.Yaw, 1e-12)
			assert.InDelta(t, tt.wantPitch, got.Pitch, 1e-12)
		})
	}
}

func TestResolveAim_OutsideDiscStaysInRange(t *testing.T) {
	for _, p := range [][2]float64{{3, 4}, {-3, 4}, {100, -0.1}, {-0.7, -0.9}, {1e9, 1e9}} {
		got := ResolveAim(p[0], p[1])
		assert.LessOrEqual(t, math.Abs(got.Yaw), core.MaxCannonYaw, "yaw for %v", p)
		assert.LessOrEqual(t, math.Abs(got.Pitch), core.MaxCannonPitch, "pitch for %v", p)
	}
}

func TestResolveAim_BoundaryIsExact(t *testing.T) {
	assert.Equal(t, core.MaxCannonYaw, ResolveAim(5, 0).Yaw)
	assert.Equal(t, -core.MaxCannonYaw, ResolveAim(-5, 0).Yaw)
	assert.Equal(t, core.MaxCannonPitch, ResolveAim(0, -5).Pitch)
	assert.Equal(t, -core.MaxCannonPitch, ResolveAim(0, 5).Pitch)
}
