package segment

import (
	"github.com/pkg/errors"

	"github.com/dpup/tracks.ersn.net/server/internal/lib/geo"
)

// ErrUnsupportedGeometry is returned for geometries that are neither lines nor multi-lines
var ErrUnsupportedGeometry = errors.New("unsupported geometry type")

// SplitByGap breaks points into sequences wherever two consecutive points are
// farther apart than thresholdMeters. A non-positive threshold selects
// DefaultGapThresholdMeters.
func SplitByGap(points geo.Sequence, thresholdMeters float64) []geo.Sequence {
	if len(points) == 0 {
		return nil
	}
	if thresholdMeters <= 0 {
		thresholdMeters = DefaultGapThresholdMeters
	}

	var sequences []geo.Sequence
	current := geo.Sequence{points[0]}
	for i := 1; i < len(points); i++ {
		if geo.Distance(points[i-1], points[i]) > thresholdMeters {
			sequences = append(sequences, current)
			current = geo.Sequence{}
		}
		current = append(current, points[i])
	}
	return append(sequences, current)
}

// ToGeometry assembles sequences into a geometry. No sequences yield an empty
// line, exactly one yields a line, more than one yields a multi-line.
func ToGeometry(sequences []geo.Sequence) Geometry {
	switch len(sequences) {
	case 0:
		return Line{}
	case 1:
		return Line(sequences[0].Clone())
	}

	multi := make(MultiLine, len(sequences))
	for i, seq := range sequences {
		multi[i] = seq.Clone()
	}
	return multi
}

// FromGeometry returns the sequences of a line or multi-line geometry
func FromGeometry(g Geometry) ([]geo.Sequence, error) {
	switch v := g.(type) {
	case Line:
		return []geo.Sequence{geo.Sequence(v).Clone()}, nil
	case MultiLine:
		sequences := make([]geo.Sequence, len(v))
		for i, seq := range v {
			sequences[i] = seq.Clone()
		}
		return sequences, nil
	case nil:
		return nil, errors.Wrap(ErrUnsupportedGeometry, "geometry is nil")
	default:
		return nil, errors.Wrapf(ErrUnsupportedGeometry, "%T", g)
	}
}

// TotalLengthKm sums the length of every sequence. Distance across gaps
// between sequences is deliberately not counted.
func TotalLengthKm(sequences []geo.Sequence) float64 {
	total := 0.0
	for _, seq := range sequences {
		total += seq.LengthMeters()
	}
	return total / 1000
}

// PointCount returns the total number of points across sequences
func PointCount(sequences []geo.Sequence) int {
	n := 0
	for _, seq := range sequences {
		n += len(seq)
	}
	return n
}

// Flatten concatenates sequences back into a single point list
func Flatten(sequences []geo.Sequence) geo.Sequence {
	out := make(geo.Sequence, 0, PointCount(sequences))
	for _, seq := range sequences {
		out = append(out, seq...)
	}
	return out
}
