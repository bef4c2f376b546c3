package sim

import (
	"math"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platform43/firerig/pkg/core"
)

func TestReduce_Color(t *testing.T) {
	cfg := core.DefaultConfiguration()

	cfg = Reduce(cfg, ColorChanged{Color: "#EF4444"})
	assert.Equal(t, "#ef4444", cfg.BodyColor)

	cfg = Reduce(cfg, ColorChanged{Color: "not a color"})
	assert.Equal(t, "#ef4444", cfg.BodyColor)

	cfg = Reduce(cfg, ColorChanged{Color: ""})
	assert.Equal(t, "#ef4444", cfg.BodyColor)
}

func TestReduce_LadderLengthClamped(t *testing.T) {
	tests := []struct {
		in   float64
		want float64
	}{
		{5.5, 5.5},
		{1, core.MinLadderLength},
		{12, core.MaxLadderLength},
		{math.NaN(), 6},
		{math.Inf(-1), 6},
	}
	for _, tt := range tests {
		cfg := Reduce(core.DefaultConfiguration(), LadderLengthChanged{Length: tt.in})
		assert.Equal(t, tt.want, cfg.LadderLength, "input %v", tt.in)
	}
}

func TestReduce_OutriggersFollowLadder(t *testing.T) {
	cfg := core.DefaultConfiguration()
	for i := range 7 {
		cfg = Reduce(cfg, LadderToggled{})
		assert.Equal(t, i%2 == 0, cfg.IsLadderDeployed)
		assert.Equal(t, cfg.IsLadderDeployed, cfg.OutriggersExtended)
	}
}

func TestReduce_AimRequiresDeployedLadder(t *testing.T) {
	cfg := Reduce(core.DefaultConfiguration(), AimChanged{DX: 1, DY: 0})
	assert.Equal(t, 0.0, cfg.CannonYaw)

	cfg = Reduce(cfg, LadderToggled{})
	cfg = Reduce(cfg, AimChanged{DX: 1, DY: 1})
	assert.Greater(t, cfg.CannonYaw, 0.0)
	assert.Less(t, cfg.CannonPitch, 0.0)

	cfg = Reduce(cfg, LadderToggled{})
	assert.Equal(t, 0.0, cfg.CannonYaw)
	assert.Equal(t, 0.0, cfg.CannonPitch)
}

func TestReduce_FireStrengthRestartsIncident(t *testing.T) {
	cfg := core.DefaultConfiguration()
	cfg.FireHealth = 0
	cfg.IsFireActive = false

	cfg = Reduce(cfg, FireStrengthChanged{Strength: 15})
	assert.Equal(t, core.MaxFireStrength, cfg.FireStrength)
	assert.Equal(t, core.MaxFireHealth, cfg.FireHealth)
	assert.True(t, cfg.IsFireActive)

	cfg = Reduce(cfg, FireStrengthChanged{Strength: -3})
	assert.Equal(t, core.MinFireStrength, cfg.FireStrength)
}

func TestReduce_IncidentReset(t *testing.T) {
	cfg := core.DefaultConfiguration()
	cfg.FireHealth = 0
	cfg.IsFireActive = false
	cfg.FireStrength = 8

	cfg = Reduce(cfg, IncidentReset{})
	assert.Equal(t, core.MaxFireHealth, cfg.FireHealth)
	assert.True(t, cfg.IsFireActive)
	assert.Equal(t, 8, cfg.FireStrength)
}

func TestReduce_Wheels(t *testing.T) {
	tests := []struct {
		name      string
		update    WheelsChanged
		wantCount int
		wantType  core.WheelType
	}{
		{"even", WheelsChanged{Count: 6}, 6, core.WheelStreet},
		{"odd rounds up", WheelsChanged{Count: 5}, 6, core.WheelStreet},
		{"too many", WheelsChanged{Count: 13}, core.MaxWheelCount, core.WheelStreet},
		{"too few", WheelsChanged{Count: 1}, core.MinWheelCount, core.WheelStreet},
		{"type only", WheelsChanged{Type: core.WheelOffroad}, 8, core.WheelOffroad},
		{"unknown type", WheelsChanged{Type: "slick"}, 8, core.WheelStreet},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Reduce(core.DefaultConfiguration(), tt.update)
			assert.Equal(t, tt.wantCount, cfg.WheelCount)
			assert.Equal(t, tt.wantType, cfg.WheelType)
		})
	}
}

func TestReduce_CabStyle(t *testing.T) {
	cfg := Reduce(core.DefaultConfiguration(), CabStyleChanged{Style: core.CabStandard})
	assert.Equal(t, core.CabStandard, cfg.CabStyle)

	cfg = Reduce(cfg, CabStyleChanged{Style: "limo"})
	assert.Equal(t, core.CabStandard, cfg.CabStyle)
}

func TestReduce_DriveModeToggleStopsTruck(t *testing.T) {
	cfg := Reduce(core.DefaultConfiguration(), DriveModeToggled{})
	require.True(t, cfg.IsDriveMode)
	cfg.Speed = 0.3

	cfg = Reduce(cfg, DriveModeToggled{})
	assert.False(t, cfg.IsDriveMode)
	assert.Equal(t, 0.0, cfg.Speed)
}

func TestReduce_NeverLeavesRange(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 2))
	updates := func() Update {
		v := (rng.Float64() - 0.5) * 40
		switch rng.IntN(10) {
		case 0:
			return LadderLengthChanged{Length: v}
		case 1:
			return LadderToggled{}
		case 2:
			return AimChanged{DX: v, DY: -v / 3}
		case 3:
			return FireStrengthChanged{Strength: int(v)}
		case 4:
			return WheelsChanged{Count: int(v)}
		case 5:
			return IncidentReset{}
		case 6:
			return SirenToggled{}
		case 7:
			return DriveModeToggled{}
		case 8:
			return ColorChanged{Color: "#123"}
		default:
			return CabStyleChanged{Style: core.CabStandard}
		}
	}

	cfg := core.DefaultConfiguration()
	for range 2000 {
		cfg = Reduce(cfg, updates())

		require.GreaterOrEqual(t, cfg.LadderLength, core.MinLadderLength)
		require.LessOrEqual(t, cfg.LadderLength, core.MaxLadderLength)
		require.LessOrEqual(t, math.Abs(cfg.CannonYaw), core.MaxCannonYaw)
		require.LessOrEqual(t, math.Abs(cfg.CannonPitch), core.MaxCannonPitch)
		require.GreaterOrEqual(t, cfg.FireStrength, core.MinFireStrength)
		require.LessOrEqual(t, cfg.FireStrength, core.MaxFireStrength)
		require.GreaterOrEqual(t, cfg.WheelCount, core.MinWheelCount)
		require.LessOrEqual(t, cfg.WheelCount, core.MaxWheelCount)
		require.Zero(t, cfg.WheelCount%2)
		require.Equal(t, cfg.IsLadderDeployed, cfg.OutriggersExtended)
		if !cfg.IsLadderDeployed {
			require.Zero(t, cfg.CannonYaw)
			require.Zero(t, cfg.CannonPitch)
		}
	}
}

func TestUpdateMessage_ToUpdate(t *testing.T) {
	tests := []struct {
		msg  UpdateMessage
		want Update
	}{
		{UpdateMessage{Kind: "colorChanged", Color: "#fff"}, ColorChanged{Color: "#fff"}},
		{UpdateMessage{Kind: "ladderLengthChanged", Length: 4}, LadderLengthChanged{Length: 4}},
		{UpdateMessage{Kind: "ladderToggled"}, LadderToggled{}},
		{UpdateMessage{Kind: "aimChanged", DX: 0.1, DY: -0.2}, AimChanged{DX: 0.1, DY: -0.2}},
		{UpdateMessage{Kind: "wheelsChanged", Count: 6, WheelType: core.WheelOffroad}, WheelsChanged{Count: 6, Type: core.WheelOffroad}},
		{UpdateMessage{Kind: "driveModeToggled"}, DriveModeToggled{}},
	}
	for _, tt := range tests {
		got, err := tt.msg.ToUpdate()
		require.NoError(t, err)
		assert.Equal(t, tt.want, got)
		assert.Equal(t, tt.msg.Kind, got.Kind())
	}

	_, err := UpdateMessage{Kind: "explode"}.ToUpdate()
	assert.Error(t, err)
}
