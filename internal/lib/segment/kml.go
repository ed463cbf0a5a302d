package segment

import (
	"io"

	"github.com/pkg/errors"
	"github.com/twpayne/go-kml/v2"

	"github.com/dpup/tracks.ersn.net/server/internal/lib/geo"
)

// WriteKML writes the geometry as a single-placemark KML document
func WriteKML(w io.Writer, name string, g Geometry) error {
	var shape kml.Element
	switch v := g.(type) {
	case Line:
		shape = lineStringElement(geo.Sequence(v))
	case MultiLine:
		lines := make([]kml.Element, len(v))
		for i, seq := range v {
			lines[i] = lineStringElement(seq)
		}
		shape = kml.MultiGeometry(lines...)
	default:
		return errors.Wrapf(ErrUnsupportedGeometry, "%T", g)
	}

	doc := kml.KML(
		kml.Document(
			kml.Name(name),
			kml.Placemark(
				kml.Name(name),
				shape,
			),
		),
	)
	if err := doc.WriteIndent(w, "", "  "); err != nil {
		return errors.Wrap(err, "write kml")
	}
	return nil
}

func lineStringElement(seq geo.Sequence) kml.Element {
	coords := make([]kml.Coordinate, len(seq))
	for i, p := range seq {
		coords[i] = kml.Coordinate{Lon: p.Longitude, Lat: p.Latitude}
	}
	return kml.LineString(
		kml.Tessellate(true),
		kml.Coordinates(coords...),
	)
}
