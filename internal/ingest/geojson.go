package ingest

import (
	"io"

	"github.com/pkg/errors"

	"github.com/dpup/tracks.ersn.net/server/internal/lib/segment"
)

// ReadGeoJSON reads a LineString or MultiLineString geometry as a single
// track without side channels. Sub-lines are joined in order.
func ReadGeoJSON(r io.Reader, name string) (Track, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return Track{}, errors.Wrap(err, "read geojson")
	}
	g, err := segment.ParseGeoJSON(data)
	if err != nil {
		return Track{}, err
	}
	sequences, err := segment.FromGeometry(g)
	if err != nil {
		return Track{}, err
	}

	t := Track{Name: name, Points: segment.Flatten(sequences)}
	if len(t.Points) == 0 {
		return Track{}, ErrNoTracks
	}
	return t, t.Validate()
}
