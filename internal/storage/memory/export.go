// internal/storage/memory/export.go
package memory

import (
	"compress/gzip"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/platform43/firerig/internal/geo"
	"github.com/platform43/firerig/pkg/core"
)

// ExportFormatVersion is written into every export
const ExportFormatVersion = 1

// SessionExport is the root JSON structure of an exported session
type SessionExport struct {
	FormatVersion   int                   `json:"formatVersion"`
	SessionID       string                `json:"sessionId"`
	Version         string                `json:"version"`
	StartTime       time.Time             `json:"startTime"`
	EndTime         time.Time             `json:"endTime"`
	DurationSeconds float64               `json:"durationSeconds"`
	FinalConfig     core.Configuration    `json:"finalConfig"`
	HealthSamples   []core.HealthSample   `json:"healthSamples"`
	Incidents       []core.Incident       `json:"incidents"`
	Advice          []core.AdviceExchange `json:"advice"`
	DriveTracks     []TrackJSON           `json:"driveTracks"`
}

// TrackJSON is a drive track with its WKT geometry
type TrackJSON struct {
	Time   time.Time `json:"time"`
	Path   string    `json:"path"`
	Length float64   `json:"length"`
	Points int       `json:"points"`
}

// exportJSON writes the session to a JSON file, gzipped when configured
func (b *Backend) exportJSON(record *SessionRecord) error {
	export := buildExport(record)

	timestamp := record.Session.StartTime.Format("20060102_150405")
	filename := fmt.Sprintf("firerig_%s_%s.json", record.Session.ID, timestamp)
	if b.cfg.CompressOutput {
		filename += ".gz"
	}

	if err := os.MkdirAll(b.cfg.OutputDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	outputPath := filepath.Join(b.cfg.OutputDir, filename)
	var err error
	if b.cfg.CompressOutput {
		err = writeGzipJSON(outputPath, export)
	} else {
		err = writeJSON(outputPath, export)
	}
	if err != nil {
		return err
	}

	b.exports[record.Session.ID] = outputPath
	return nil
}

func buildExport(record *SessionRecord) SessionExport {
	s := record.Session
	export := SessionExport{
		FormatVersion: ExportFormatVersion,
		SessionID:     s.ID,
		Version:       s.Version,
		StartTime:     s.StartTime,
		EndTime:       s.EndTime,
		FinalConfig:   s.Final,
		HealthSamples: nonNil(record.HealthSamples),
		Incidents:     nonNil(record.Incidents),
		Advice:        nonNil(record.Advice),
		DriveTracks:   make([]TrackJSON, 0, len(record.DriveTracks)),
	}
	if !s.EndTime.IsZero() {
		export.DurationSeconds = s.EndTime.Sub(s.StartTime).Seconds()
	}

	for _, track := range record.DriveTracks {
		wkt, length, err := geo.TrackWKT(track.Points)
		if err != nil {
			continue
		}
		export.DriveTracks = append(export.DriveTracks, TrackJSON{
			Time:   track.Time,
			Path:   wkt,
			Length: length,
			Points: len(track.Points),
		})
	}

	return export
}

func nonNil[T any](items []T) []T {
	if items == nil {
		return make([]T, 0)
	}
	return items
}

func writeJSON(path string, data SessionExport) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer f.Close()

	encoder := json.NewEncoder(f)
	return encoder.Encode(data)
}

func writeGzipJSON(path string, data SessionExport) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer f.Close()

	gzWriter := gzip.NewWriter(f)
	defer gzWriter.Close()

	encoder := json.NewEncoder(gzWriter)
	return encoder.Encode(data)
}
