package influx

import (
	"time"

	influxdb2_write "github.com/influxdata/influxdb-client-go/v2/api/write"
)

// TickSample is one simulated frame of a session.
type TickSample struct {
	SessionID    string
	Time         time.Time
	Tick         uint64
	Health       float64
	FireStrength int
	Speed        float64
	DriveMode    bool
	TickDuration time.Duration
}

// NewTickPoint converts a sample to a line-protocol point tagged by session.
func NewTickPoint(s TickSample) *influxdb2_write.Point {
	mode := "configurator"
	if s.DriveMode {
		mode = "drive"
	}
	return influxdb2_write.NewPoint(
		MeasurementTick,
		map[string]string{
			"session": s.SessionID,
			"mode":    mode,
		},
		map[string]any{
			"tick":          int64(s.Tick),
			"health":        s.Health,
			"fire_strength": s.FireStrength,
			"speed":         s.Speed,
			"tick_us":       s.TickDuration.Microseconds(),
		},
		s.Time,
	)
}
