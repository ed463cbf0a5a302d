package segment

import (
	"encoding/json"
	"fmt"
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/pkg/errors"

	"github.com/dpup/tracks.ersn.net/server/internal/lib/geo"
)

// ErrMalformedGeometry is matched by every GeometryError
var ErrMalformedGeometry = errors.New("malformed geometry")

// GeometryError describes why a wire geometry could not be parsed.
// Line and Index locate the offending coordinate; they are -1 when not applicable.
type GeometryError struct {
	Reason string
	Line   int
	Index  int
	Err    error
}

func (e *GeometryError) Error() string {
	msg := "malformed geometry: " + e.Reason
	switch {
	case e.Line >= 0 && e.Index >= 0:
		msg += fmt.Sprintf(" (line %d, coordinate %d)", e.Line, e.Index)
	case e.Index >= 0:
		msg += fmt.Sprintf(" (coordinate %d)", e.Index)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Is lets errors.Is match ErrMalformedGeometry
func (e *GeometryError) Is(target error) bool {
	return target == ErrMalformedGeometry
}

func (e *GeometryError) Unwrap() error {
	return e.Err
}

type wireGeometry struct {
	Type        string          `json:"type"`
	Coordinates json.RawMessage `json:"coordinates"`
}

// ParseGeoJSON parses a GeoJSON LineString or MultiLineString. Coordinates on
// the wire are [longitude, latitude, ...]; extra components such as altitude are
// ignored.
func ParseGeoJSON(data []byte) (Geometry, error) {
	var wire wireGeometry
	if err := json.Unmarshal(data, &wire); err != nil {
		return nil, &GeometryError{Reason: "invalid json", Line: -1, Index: -1, Err: err}
	}
	if len(wire.Coordinates) == 0 || string(wire.Coordinates) == "null" {
		return nil, &GeometryError{Reason: "missing coordinates array", Line: -1, Index: -1}
	}

	switch Kind(wire.Type) {
	case KindLine:
		var raw []json.RawMessage
		if err := json.Unmarshal(wire.Coordinates, &raw); err != nil {
			return nil, &GeometryError{Reason: "coordinates must be an array of positions", Line: -1, Index: -1, Err: err}
		}
		seq, err := decodePositions(raw, -1)
		if err != nil {
			return nil, err
		}
		return Line(seq), nil

	case KindMultiLine:
		var lines []json.RawMessage
		if err := json.Unmarshal(wire.Coordinates, &lines); err != nil {
			return nil, &GeometryError{Reason: "coordinates must be an array of lines", Line: -1, Index: -1, Err: err}
		}
		multi := make(MultiLine, len(lines))
		for i, rawLine := range lines {
			var raw []json.RawMessage
			if err := json.Unmarshal(rawLine, &raw); err != nil || raw == nil {
				return nil, &GeometryError{Reason: "line must be an array of positions", Line: i, Index: -1, Err: err}
			}
			seq, err := decodePositions(raw, i)
			if err != nil {
				return nil, err
			}
			multi[i] = seq
		}
		return multi, nil

	default:
		return nil, &GeometryError{Reason: "unsupported type", Line: -1, Index: -1, Err: errors.Wrapf(ErrUnsupportedGeometry, "%q", wire.Type)}
	}
}

func decodePositions(raw []json.RawMessage, line int) (geo.Sequence, error) {
	seq := make(geo.Sequence, len(raw))
	for i, rawPos := range raw {
		var components []json.RawMessage
		if err := json.Unmarshal(rawPos, &components); err != nil {
			return nil, &GeometryError{Reason: "coordinate must be an array", Line: line, Index: i, Err: err}
		}
		if len(components) < 2 {
			return nil, &GeometryError{Reason: "coordinate needs at least 2 components", Line: line, Index: i}
		}

		var lon, lat float64
		if err := json.Unmarshal(components[0], &lon); err != nil {
			return nil, &GeometryError{Reason: "longitude is not numeric", Line: line, Index: i, Err: err}
		}
		if err := json.Unmarshal(components[1], &lat); err != nil {
			return nil, &GeometryError{Reason: "latitude is not numeric", Line: line, Index: i, Err: err}
		}
		if math.IsInf(lon, 0) || math.IsInf(lat, 0) || math.IsNaN(lon) || math.IsNaN(lat) {
			return nil, &GeometryError{Reason: "coordinate is not finite", Line: line, Index: i}
		}

		seq[i] = geo.Point{Latitude: lat, Longitude: lon}
	}
	return seq, nil
}

// ToOrb converts a geometry to its orb equivalent, swapping to [lon, lat] order
func ToOrb(g Geometry) orb.Geometry {
	switch v := g.(type) {
	case Line:
		return toLineString(geo.Sequence(v))
	case MultiLine:
		multi := make(orb.MultiLineString, len(v))
		for i, seq := range v {
			multi[i] = toLineString(seq)
		}
		return multi
	}
	return orb.LineString{}
}

func toLineString(seq geo.Sequence) orb.LineString {
	ls := make(orb.LineString, len(seq))
	for i, p := range seq {
		ls[i] = orb.Point{p.Longitude, p.Latitude}
	}
	return ls
}

// MarshalGeoJSON encodes a geometry as a GeoJSON geometry object
func MarshalGeoJSON(g Geometry) ([]byte, error) {
	data, err := geojson.NewGeometry(ToOrb(g)).MarshalJSON()
	if err != nil {
		return nil, errors.Wrap(err, "encode geojson geometry")
	}
	return data, nil
}

// Feature wraps a geometry in a GeoJSON feature with the given properties
func Feature(g Geometry, props map[string]interface{}) *geojson.Feature {
	f := geojson.NewFeature(ToOrb(g))
	for k, v := range props {
		f.Properties[k] = v
	}
	return f
}
