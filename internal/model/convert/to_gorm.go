// Package convert provides functions to convert core telemetry records to GORM models
package convert

import (
	"database/sql"
	"encoding/json"

	"gorm.io/datatypes"

	"github.com/platform43/firerig/internal/geo"
	"github.com/platform43/firerig/internal/model"
	"github.com/platform43/firerig/pkg/core"
)

func configToJSON(c core.Configuration) datatypes.JSON {
	data, err := json.Marshal(c)
	if err != nil {
		return datatypes.JSON("{}")
	}
	return datatypes.JSON(data)
}

// CoreToSession converts a core.Session. EndTime and FinalConfig stay empty until the session has ended.
func CoreToSession(s core.Session) model.Session {
	out := model.Session{
		ID:        s.ID,
		StartTime: s.StartTime,
		Version:   s.Version,
	}
	if !s.EndTime.IsZero() {
		out.EndTime = sql.NullTime{Time: s.EndTime, Valid: true}
		out.FinalConfig = configToJSON(s.Final)
	}
	return out
}

func CoreToHealthSample(h core.HealthSample) model.HealthSample {
	return model.HealthSample{
		SessionID:    h.SessionID,
		Time:         h.Time,
		Tick:         h.Tick,
		Health:       h.Health,
		FireStrength: h.FireStrength,
	}
}

func CoreToIncident(i core.Incident) model.Incident {
	return model.Incident{
		SessionID:     i.SessionID,
		Time:          i.Time,
		Tick:          i.Tick,
		FireStrength:  i.FireStrength,
		DurationTicks: i.DurationTicks,
		Geometry:      i.Geometry,
	}
}

func CoreToAdviceExchange(a core.AdviceExchange) model.AdviceExchange {
	return model.AdviceExchange{
		SessionID:  a.SessionID,
		Time:       a.Time,
		Question:   a.Question,
		Reply:      a.Reply,
		Fallback:   a.Fallback,
		DurationMs: a.Duration.Milliseconds(),
	}
}

// CoreToDriveTrack converts a track to its WKT form. Tracks with fewer than two points cannot be stored.
func CoreToDriveTrack(t core.DriveTrack) (model.DriveTrack, error) {
	wkt, length, err := geo.TrackWKT(t.Points)
	if err != nil {
		return model.DriveTrack{}, err
	}
	return model.DriveTrack{
		SessionID: t.SessionID,
		Time:      t.Time,
		Path:      wkt,
		Length:    length,
		Points:    len(t.Points),
	}, nil
}
