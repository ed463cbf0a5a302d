package geo

// Point represents a geographic coordinate in decimal degrees (WGS84)
type Point struct {
	Latitude  float64 `json:"lat"`
	Longitude float64 `json:"lng"`
}

// Sequence is an ordered run of points recorded without interruption.
// Transformations never mutate a Sequence in place; they return a new one.
type Sequence []Point

// Clone returns a copy of the sequence that shares no storage with s
func (s Sequence) Clone() Sequence {
	if s == nil {
		return nil
	}
	out := make(Sequence, len(s))
	copy(out, s)
	return out
}

// First returns the first point and whether the sequence is non-empty
func (s Sequence) First() (Point, bool) {
	if len(s) == 0 {
		return Point{}, false
	}
	return s[0], true
}

// Last returns the last point and whether the sequence is non-empty
func (s Sequence) Last() (Point, bool) {
	if len(s) == 0 {
		return Point{}, false
	}
	return s[len(s)-1], true
}

// LengthMeters sums consecutive great-circle distances along the sequence
func (s Sequence) LengthMeters() float64 {
	total := 0.0
	for i := 1; i < len(s); i++ {
		total += Distance(s[i-1], s[i])
	}
	return total
}
