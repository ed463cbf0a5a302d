package geo

import (
	"math"

	"github.com/pkg/errors"
	"github.com/twpayne/go-polyline"
)

// EarthRadiusMeters is the mean Earth radius used by every spherical formula here
const EarthRadiusMeters = 6371000

// ErrInvalidCoordinate is returned when a latitude/longitude pair is out of range or not finite
var ErrInvalidCoordinate = errors.New("invalid coordinates: latitude must be [-90, 90], longitude must be [-180, 180]")

func toRadians(deg float64) float64 {
	return deg * math.Pi / 180
}

// Distance calculates great-circle distance between two points in meters using the Haversine formula
func Distance(a, b Point) float64 {
	if a.Latitude == b.Latitude && a.Longitude == b.Longitude {
		return 0
	}

	lat1 := toRadians(a.Latitude)
	lat2 := toRadians(b.Latitude)
	dlat := lat2 - lat1
	dlon := toRadians(b.Longitude - a.Longitude)

	h := math.Sin(dlat/2)*math.Sin(dlat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dlon/2)*math.Sin(dlon/2)
	// Rounding can push h a hair past 1 for antipodal points
	h = math.Min(1, math.Max(0, h))
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))

	return EarthRadiusMeters * c
}

// Bearing returns the initial bearing in radians from one point toward another
func Bearing(from, to Point) float64 {
	lat1 := toRadians(from.Latitude)
	lat2 := toRadians(to.Latitude)
	dlon := toRadians(to.Longitude - from.Longitude)

	y := math.Sin(dlon) * math.Cos(lat2)
	x := math.Cos(lat1)*math.Sin(lat2) - math.Sin(lat1)*math.Cos(lat2)*math.Cos(dlon)
	return math.Atan2(y, x)
}

// CrossTrackDistance calculates the perpendicular distance in meters from p to the
// great-circle segment start→end. When the along-track projection of p falls
// outside the segment, the distance to the nearer endpoint is returned instead.
func CrossTrackDistance(p, start, end Point) float64 {
	distanceToStart := Distance(start, p)
	segmentLength := Distance(start, end)
	if segmentLength == 0 {
		return distanceToStart
	}
	if distanceToStart == 0 {
		return 0
	}

	d13 := distanceToStart / EarthRadiusMeters
	delta := Bearing(start, p) - Bearing(start, end)

	dxt := math.Asin(clampUnit(math.Sin(d13) * math.Sin(delta)))

	// Projection lies behind start
	if math.Cos(delta) < 0 {
		return math.Min(distanceToStart, Distance(end, p))
	}

	cosXT := math.Cos(dxt)
	if cosXT == 0 {
		return math.Min(distanceToStart, Distance(end, p))
	}
	alongTrack := math.Acos(clampUnit(math.Cos(d13)/cosXT)) * EarthRadiusMeters
	if alongTrack > segmentLength {
		return math.Min(distanceToStart, Distance(end, p))
	}

	return math.Abs(dxt) * EarthRadiusMeters
}

func clampUnit(v float64) float64 {
	return math.Max(-1, math.Min(1, v))
}

// NewPoint creates a Point from latitude and longitude values with validation
func NewPoint(latitude, longitude float64) (Point, error) {
	point := Point{Latitude: latitude, Longitude: longitude}
	if !IsValid(point) {
		return Point{}, ErrInvalidCoordinate
	}
	return point, nil
}

// IsValid reports whether the point has finite, in-range coordinates
func IsValid(point Point) bool {
	if math.IsNaN(point.Latitude) || math.IsNaN(point.Longitude) {
		return false
	}
	return point.Latitude >= -90 && point.Latitude <= 90 &&
		point.Longitude >= -180 && point.Longitude <= 180
}

// EncodePolyline encodes a sequence with the Google polyline algorithm (precision 5)
func EncodePolyline(seq Sequence) string {
	coords := make([][]float64, len(seq))
	for i, p := range seq {
		coords[i] = []float64{p.Latitude, p.Longitude}
	}
	return string(polyline.EncodeCoords(coords))
}

// DecodePolyline decodes Google polyline string to point sequence
func DecodePolyline(encoded string) (Sequence, error) {
	if encoded == "" {
		return nil, errors.New("encoded polyline string is empty")
	}

	coords, _, err := polyline.DecodeCoords([]byte(encoded))
	if err != nil {
		return nil, errors.Wrap(err, "failed to decode polyline")
	}

	points := make(Sequence, len(coords))
	for i, coord := range coords {
		p, err := NewPoint(coord[0], coord[1])
		if err != nil {
			return nil, errors.Wrapf(err, "decoded polyline point %d", i)
		}
		points[i] = p
	}

	return points, nil
}
