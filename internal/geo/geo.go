// Package geo converts truck positions to planar geometry for storage.
//
// The scene is Y-up with the truck driving on the XZ plane. Stored geometry uses the
// ground plane as XY (scene X, scene Z) and keeps height as Z.
package geo

import (
	"errors"
	"fmt"

	geom "github.com/peterstace/simplefeatures/geom"

	"github.com/platform43/firerig/pkg/core"
)

// ErrShortTrack is returned when a track has fewer than two points.
var ErrShortTrack = errors.New("track needs at least 2 points")

// PointFromPosition maps a scene position onto a 3D geometry point.
// Non-finite positions are rejected.
func PointFromPosition(p core.Position3D) (geom.Point, error) {
	pt, err := geom.NewPoint(geom.Coordinates{
		XY:   geom.XY{X: p.X, Y: p.Z},
		Z:    p.Y,
		Type: geom.DimXYZ,
	})
	if err != nil {
		return geom.NewEmptyPoint(geom.DimXYZ), fmt.Errorf("invalid position %v: %w", p, err)
	}
	return pt, nil
}

// PositionFromPoint is the inverse of PointFromPosition.
func PositionFromPoint(pt geom.Point) (core.Position3D, bool) {
	c, ok := pt.Coordinates()
	if !ok {
		return core.Position3D{}, false
	}
	return core.Position3D{X: c.XY.X, Y: c.Z, Z: c.XY.Y}, true
}

// TrackLineString builds a line string through the sampled positions.
func TrackLineString(points []core.Position3D) (geom.LineString, error) {
	if len(points) < 2 {
		return geom.LineString{}, ErrShortTrack
	}
	flat := make([]float64, 0, len(points)*3)
	for _, p := range points {
		flat = append(flat, p.X, p.Z, p.Y)
	}
	ls, err := geom.NewLineString(geom.NewSequence(flat, geom.DimXYZ))
	if err != nil {
		return geom.LineString{}, fmt.Errorf("invalid track: %w", err)
	}
	return ls, nil
}

// TrackWKT returns the WKT of the track and its ground-plane length.
func TrackWKT(points []core.Position3D) (string, float64, error) {
	ls, err := TrackLineString(points)
	if err != nil {
		return "", 0, err
	}
	return ls.AsText(), ls.Length(), nil
}

// ParseTrackWKT reads a track written by TrackWKT.
func ParseTrackWKT(wkt string) ([]core.Position3D, error) {
	g, err := geom.UnmarshalWKT(wkt)
	if err != nil {
		return nil, fmt.Errorf("failed to parse track: %w", err)
	}
	ls, ok := g.AsLineString()
	if !ok {
		return nil, fmt.Errorf("track is a %s, not a LineString", g.Type())
	}
	seq := ls.Coordinates()
	out := make([]core.Position3D, seq.Length())
	for i := range out {
		c := seq.Get(i)
		out[i] = core.Position3D{X: c.XY.X, Y: c.Z, Z: c.XY.Y}
	}
	return out, nil
}
