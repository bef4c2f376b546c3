package model

import (
	"database/sql"
	"time"

	"gorm.io/datatypes"
)

////////////////////////
// DATABASE STRUCTURES //
////////////////////////

// DatabaseModels is a list of all the structs exported here which represent tables in the database schema
var DatabaseModels = []any{
	&Session{},
	&HealthSample{},
	&Incident{},
	&AdviceExchange{},
	&DriveTrack{},
}

// Session is one configurator session. FinalConfig is written when the session ends.
type Session struct {
	ID          string         `json:"id" gorm:"primaryKey;size:64"`
	StartTime   time.Time      `json:"startTime" gorm:"index:idx_session_start_time"`
	EndTime     sql.NullTime   `json:"endTime"`
	Version     string         `json:"version" gorm:"size:32"`
	FinalConfig datatypes.JSON `json:"finalConfig"`
}

func (*Session) TableName() string {
	return "sessions"
}

// HealthSample is a rate-limited fire health report.
type HealthSample struct {
	ID           uint      `json:"id" gorm:"primarykey;autoIncrement;"`
	SessionID    string    `json:"sessionId" gorm:"size:64;index:idx_healthsample_session_id"`
	Session      Session   `json:"-" gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;foreignKey:SessionID;"`
	Time         time.Time `json:"time"`
	Tick         uint64    `json:"tick" gorm:"index:idx_healthsample_tick"`
	Health       float64   `json:"health"`
	FireStrength int       `json:"fireStrength"`
}

func (*HealthSample) TableName() string {
	return "health_samples"
}

// Incident is a fire that was put out.
type Incident struct {
	ID            uint      `json:"id" gorm:"primarykey;autoIncrement;"`
	SessionID     string    `json:"sessionId" gorm:"size:64;index:idx_incident_session_id"`
	Session       Session   `json:"-" gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;foreignKey:SessionID;"`
	Time          time.Time `json:"time"`
	Tick          uint64    `json:"tick"`
	FireStrength  int       `json:"fireStrength"`
	DurationTicks uint64    `json:"durationTicks"`
	Geometry      string    `json:"geometry" gorm:"size:16"`
}

func (*Incident) TableName() string {
	return "incidents"
}

// AdviceExchange is one question answered by the advice model.
type AdviceExchange struct {
	ID         uint      `json:"id" gorm:"primarykey;autoIncrement;"`
	SessionID  string    `json:"sessionId" gorm:"size:64;index:idx_advice_session_id"`
	Session    Session   `json:"-" gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;foreignKey:SessionID;"`
	Time       time.Time `json:"time"`
	Question   string    `json:"question"`
	Reply      string    `json:"reply"`
	Fallback   bool      `json:"fallback"`
	DurationMs int64     `json:"durationMs"`
}

func (*AdviceExchange) TableName() string {
	return "advice_exchanges"
}

// DriveTrack is the sampled ground path of a session, stored as WKT.
type DriveTrack struct {
	ID        uint      `json:"id" gorm:"primarykey;autoIncrement;"`
	SessionID string    `json:"sessionId" gorm:"size:64;index:idx_drivetrack_session_id"`
	Session   Session   `json:"-" gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;foreignKey:SessionID;"`
	Time      time.Time `json:"time"`
	Path      string    `json:"path" gorm:"type:text"`
	Length    float64   `json:"length"`
	Points    int       `json:"points"`
}

func (*DriveTrack) TableName() string {
	return "drive_tracks"
}
