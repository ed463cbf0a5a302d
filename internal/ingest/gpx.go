package ingest

import (
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/tkrajina/gpxgo/gpx"

	"github.com/dpup/tracks.ersn.net/server/internal/lib/geo"
	"github.com/dpup/tracks.ersn.net/server/internal/lib/profile"
)

// Extension element names written by Garmin TrackPointExtension and most
// devices that copy it
const (
	heartRateNode   = "hr"
	temperatureNode = "atemp"
)

// ReadGPX parses every track and route in a GPX document. Segments of one
// track are concatenated; recording breaks are recovered later by gap
// detection. Heart rate and temperature channels are only set when at least
// one point carries the extension.
func ReadGPX(r io.Reader) ([]Track, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Wrap(err, "read gpx")
	}
	doc, err := gpx.ParseBytes(data)
	if err != nil {
		return nil, errors.Wrap(err, "parse gpx")
	}

	var tracks []Track
	for i, trk := range doc.Tracks {
		var points []gpx.GPXPoint
		for _, seg := range trk.Segments {
			points = append(points, seg.Points...)
		}
		if len(points) == 0 {
			continue
		}
		tracks = append(tracks, buildTrack(nameOr(trk.Name, "track", i), points))
	}
	for i, rte := range doc.Routes {
		if len(rte.Points) == 0 {
			continue
		}
		tracks = append(tracks, buildTrack(nameOr(rte.Name, "route", i), rte.Points))
	}

	if len(tracks) == 0 {
		return nil, ErrNoTracks
	}
	for _, t := range tracks {
		if err := t.Validate(); err != nil {
			return nil, err
		}
	}
	return tracks, nil
}

func nameOr(name, kind string, index int) string {
	if strings.TrimSpace(name) != "" {
		return name
	}
	return kind + "-" + strconv.Itoa(index+1)
}

func buildTrack(name string, points []gpx.GPXPoint) Track {
	n := len(points)
	t := Track{
		Name:      name,
		Points:    make(geo.Sequence, n),
		Elevation: make(profile.Channel[float64], n),
		Times:     make(profile.Channel[time.Time], n),
	}
	heartRate := make(profile.Channel[float64], n)
	temperature := make(profile.Channel[float64], n)

	for i, p := range points {
		t.Points[i] = geo.Point{Latitude: p.Latitude, Longitude: p.Longitude}
		if p.Elevation.NotNull() {
			t.Elevation[i] = profile.Some(p.Elevation.Value())
		}
		if !p.Timestamp.IsZero() {
			t.Times[i] = profile.Some(p.Timestamp)
		}
		if v, ok := extensionValue(p.Extensions.Nodes, heartRateNode); ok {
			heartRate[i] = profile.Some(v)
		}
		if v, ok := extensionValue(p.Extensions.Nodes, temperatureNode); ok {
			temperature[i] = profile.Some(v)
		}
	}

	if heartRate.ValidCount() > 0 {
		t.HeartRate = heartRate
	}
	if temperature.ValidCount() > 0 {
		t.Temperature = temperature
	}
	if t.Times.ValidCount() == 0 {
		t.Times = nil
	}
	return t
}

// extensionValue finds the first numeric element with the given local name,
// searching nested extension blocks depth first
func extensionValue(nodes []gpx.ExtensionNode, local string) (float64, bool) {
	for _, node := range nodes {
		if node.XMLName.Local == local {
			if v, err := strconv.ParseFloat(strings.TrimSpace(node.Data), 64); err == nil {
				return v, true
			}
		}
		if v, ok := extensionValue(node.Nodes, local); ok {
			return v, true
		}
	}
	return 0, false
}
