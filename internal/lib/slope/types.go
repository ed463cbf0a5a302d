package slope

// Config holds the distance windows and merge policy for slope analysis
type Config struct {
	// Elevations within this distance of a point are averaged into it
	SmoothingHalfWindowM float64 `koanf:"smoothing_half_window_m"`
	// Slope at a point spans this distance either side of it
	SlopeHalfWindowM float64 `koanf:"slope_half_window_m"`
	// Consecutive slopes within this many percentage points share a segment
	MergeDeltaPercent float64 `koanf:"merge_delta_percent"`
	// Segments shorter than this are not reported
	MergeMinLengthM float64 `koanf:"merge_min_length_m"`
}

// DefaultConfig returns the default slope analysis settings
func DefaultConfig() Config {
	return Config{
		SmoothingHalfWindowM: 50,
		SlopeHalfWindowM:     25,
		MergeDeltaPercent:    1.0,
		MergeMinLengthM:      15,
	}
}

// BucketBoundaries are the fixed histogram edges in percent. Bucket i covers
// [BucketBoundaries[i], BucketBoundaries[i+1]).
var BucketBoundaries = []float64{-60, -30, -15, -8, -4, 0, 4, 8, 12, 18, 25, 60}

// Bucket is one histogram entry
type Bucket struct {
	Low       float64 `json:"bucket_low"`
	High      float64 `json:"bucket_high"`
	DistanceM float64 `json:"distance_m"`
}

// Segment is a run of near-constant slope for visualization
type Segment struct {
	StartDistanceM float64 `json:"start_distance_m"`
	SlopePercent   float64 `json:"slope_percent"`
	LengthM        float64 `json:"length_m"`
}

// Metrics summarizes a track's terrain. Either every field is set or none is;
// the zero value means the metrics could not be computed.
type Metrics struct {
	Min       *float64  `json:"slope_min"`
	Max       *float64  `json:"slope_max"`
	Avg       *float64  `json:"slope_avg"`
	Histogram []Bucket  `json:"slope_histogram"`
	Segments  []Segment `json:"slope_segments"`
}

// Computable reports whether m holds real metrics. A flat track is computable
// with values near zero.
func (m Metrics) Computable() bool {
	return m.Avg != nil
}

// Analysis holds the per-point intermediate arrays behind Metrics
type Analysis struct {
	// Distance from the previous point, 0 for the first
	Distances []float64 `json:"distances_m"`
	// Distance along the track from the first point
	Cumulative []float64 `json:"cumulative_m"`
	Smoothed   []float64 `json:"smoothed_elevation_m"`
	Slopes     []float64 `json:"slopes_percent"`
	GainM      float64   `json:"elevation_gain_m"`
	LossM      float64   `json:"elevation_loss_m"`
}

// TotalDistanceM is the track length in meters
func (a Analysis) TotalDistanceM() float64 {
	if len(a.Cumulative) == 0 {
		return 0
	}
	return a.Cumulative[len(a.Cumulative)-1]
}
