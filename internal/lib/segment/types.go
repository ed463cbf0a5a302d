package segment

import (
	"time"

	"github.com/dpup/tracks.ersn.net/server/internal/lib/geo"
)

// DefaultGapThresholdMeters treats jumps above 100km as recording interruptions
// ("teleports"), never as ordinary GPS noise.
const DefaultGapThresholdMeters = 100000.0

// DefaultPauseThreshold is the minimum timestamp gap reported as a pause
const DefaultPauseThreshold = 5 * time.Minute

// Config holds gap detection parameters
type Config struct {
	GapThresholdMeters float64       `koanf:"gap_threshold_meters"`
	PauseThreshold     time.Duration `koanf:"pause_threshold"`
}

// DefaultConfig returns the default gap detection configuration
func DefaultConfig() Config {
	return Config{
		GapThresholdMeters: DefaultGapThresholdMeters,
		PauseThreshold:     DefaultPauseThreshold,
	}
}

// Kind names the GeoJSON geometry type of a Geometry
type Kind string

const (
	KindLine      Kind = "LineString"
	KindMultiLine Kind = "MultiLineString"
)

// Geometry is the external representation of one or more sequences.
// It is either a Line or a MultiLine.
type Geometry interface {
	Kind() Kind
	// Sequences returns the member sequences in order
	Sequences() []geo.Sequence
	isGeometry()
}

// Line is a single-sequence geometry
type Line geo.Sequence

func (Line) Kind() Kind { return KindLine }

func (l Line) Sequences() []geo.Sequence { return []geo.Sequence{geo.Sequence(l)} }

func (Line) isGeometry() {}

// MultiLine is a geometry made of several sequences, usually produced by gap splitting
type MultiLine []geo.Sequence

func (MultiLine) Kind() Kind { return KindMultiLine }

func (m MultiLine) Sequences() []geo.Sequence { return []geo.Sequence(m) }

func (MultiLine) isGeometry() {}

// GapKind classifies a discontinuity in a track
type GapKind string

const (
	// GapSegment is a spatial jump that splits the track into segments
	GapSegment GapKind = "segment"
	// GapPause is a timestamp gap longer than the pause threshold
	GapPause GapKind = "pause"
)

// GapInfo describes a discontinuity between two consecutive points
type GapInfo struct {
	Kind            GapKind   `json:"kind"`
	Start           geo.Point `json:"start"`
	End             geo.Point `json:"end"`
	StartIndex      int       `json:"start_index"`
	EndIndex        int       `json:"end_index"`
	DistanceMeters  float64   `json:"distance_m"`
	DurationSeconds *float64  `json:"duration_seconds,omitempty"`
}
