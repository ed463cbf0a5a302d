package slope

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dpup/tracks.ersn.net/server/internal/lib/geo"
	"github.com/dpup/tracks.ersn.net/server/internal/lib/profile"
)

// eastwardTrack returns n points along the equator spaced step degrees apart
func eastwardTrack(n int, step float64) geo.Sequence {
	points := make(geo.Sequence, n)
	for i := range points {
		points[i] = geo.Point{Latitude: 0, Longitude: float64(i) * step}
	}
	return points
}

func sumHistogram(buckets []Bucket) float64 {
	total := 0.0
	for _, b := range buckets {
		total += b.DistanceM
	}
	return total
}

func TestCompute_FlatTrack(t *testing.T) {
	points := eastwardTrack(50, 0.0001)
	elevations := make([]float64, 50)
	for i := range elevations {
		elevations[i] = 200
	}

	m := Compute(points, profile.Floats(elevations), DefaultConfig())
	require.True(t, m.Computable())

	assert.InDelta(t, 0, *m.Min, 0.1)
	assert.InDelta(t, 0, *m.Max, 0.1)
	assert.InDelta(t, 0, *m.Avg, 0.1)

	// Every meter lands in the [0, 4) bucket
	assert.InDelta(t, points.LengthMeters(), m.Histogram[5].DistanceM, 1e-6)
	assert.Equal(t, 0.0, m.Histogram[5].Low)

	require.Len(t, m.Segments, 1)
	assert.Equal(t, 0.0, m.Segments[0].StartDistanceM)
	assert.InDelta(t, points.LengthMeters(), m.Segments[0].LengthM, 1e-6)
}

func TestCompute_ThreePointUphill(t *testing.T) {
	points := geo.Sequence{
		{Latitude: 0, Longitude: 0},
		{Latitude: 0, Longitude: 0.001},
		{Latitude: 0, Longitude: 0.002},
	}
	m := Compute(points, profile.Floats([]float64{100, 110, 120}), DefaultConfig())
	require.True(t, m.Computable())

	// 10m rise per ~111.19m
	assert.Greater(t, *m.Avg, 0.0)
	assert.Greater(t, *m.Min, 0.0, "Every point is uphill")
	assert.Greater(t, *m.Max, 0.0)
	assert.InDelta(t, 8.99, *m.Avg, 0.05)
	assert.InDelta(t, 8.99, *m.Min, 0.05)
	assert.InDelta(t, 8.99, *m.Max, 0.05)

	for _, b := range m.Histogram {
		if b.High <= 0 {
			assert.Zero(t, b.DistanceM, "bucket [%v, %v) should be empty", b.Low, b.High)
		}
	}
	assert.Equal(t, 8.0, m.Histogram[7].Low)
	assert.InDelta(t, 222.39, m.Histogram[7].DistanceM, 0.1)

	require.Len(t, m.Segments, 1)
	assert.InDelta(t, 8.99, m.Segments[0].SlopePercent, 0.05)
	assert.InDelta(t, 222.39, m.Segments[0].LengthM, 0.1)
}

func TestCompute_HistogramCompleteness(t *testing.T) {
	points := eastwardTrack(300, 0.0002)
	elevations := make([]float64, len(points))
	for i := range elevations {
		elevations[i] = 100 + 30*math.Sin(float64(i)/10)
	}

	m := Compute(points, profile.Floats(elevations), DefaultConfig())
	require.True(t, m.Computable())
	require.Len(t, m.Histogram, 11)

	for _, s := range []float64{*m.Min, *m.Max} {
		require.True(t, s >= -60 && s < 60, "fixture slopes must stay in histogram range")
	}
	assert.InDelta(t, points.LengthMeters(), sumHistogram(m.Histogram), 1e-6)
	assert.Less(t, *m.Min, 0.0)
	assert.Greater(t, *m.Max, 0.0)
}

func TestCompute_HistogramBoundaries(t *testing.T) {
	m := Compute(eastwardTrack(2, 0.001), profile.Floats([]float64{0, 0}), DefaultConfig())
	require.True(t, m.Computable())

	require.Len(t, m.Histogram, len(BucketBoundaries)-1)
	for i, b := range m.Histogram {
		assert.Equal(t, BucketBoundaries[i], b.Low)
		assert.Equal(t, BucketBoundaries[i+1], b.High)
	}
	assert.Equal(t, -60.0, m.Histogram[0].Low)
	assert.Equal(t, 60.0, m.Histogram[10].High)
}

func TestCompute_OutOfRangeSlopesSkipHistogramOnly(t *testing.T) {
	// ~11m horizontal, 100m vertical
	points := geo.Sequence{
		{Latitude: 0, Longitude: 0},
		{Latitude: 0.0001, Longitude: 0},
	}
	m := Compute(points, profile.Floats([]float64{0, 100}), Config{
		SlopeHalfWindowM:  25,
		MergeDeltaPercent: 1,
		MergeMinLengthM:   1,
	})
	require.True(t, m.Computable())

	assert.Greater(t, *m.Max, 60.0)
	assert.Greater(t, *m.Avg, 60.0)
	assert.Zero(t, sumHistogram(m.Histogram))
}

func TestCompute_NotComputable(t *testing.T) {
	cfg := DefaultConfig()
	three := eastwardTrack(3, 0.001)

	tests := []struct {
		name       string
		points     geo.Sequence
		elevations profile.Channel[float64]
	}{
		{"no points", nil, nil},
		{"single point", three[:1], profile.Floats([]float64{10})},
		{"empty profile", three, nil},
		{"length mismatch", three, profile.Floats([]float64{10, 20})},
		{"one missing value", three, profile.Channel[float64]{profile.Some(10.0), profile.None[float64](), profile.Some(30.0)}},
		{"fewer than two values", three[:2], profile.Channel[float64]{profile.Some(10.0), profile.None[float64]()}},
		{"zero total distance", geo.Sequence{{Latitude: 1, Longitude: 1}, {Latitude: 1, Longitude: 1}}, profile.Floats([]float64{10, 20})},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := Compute(tt.points, tt.elevations, cfg)
			assert.False(t, m.Computable())
			assert.Equal(t, Metrics{}, m, "No partial metrics")
		})
	}
}

func TestMetrics_JSON(t *testing.T) {
	data, err := json.Marshal(Metrics{})
	require.NoError(t, err)
	assert.JSONEq(t, `{"slope_min":null,"slope_max":null,"slope_avg":null,"slope_histogram":null,"slope_segments":null}`, string(data))

	m := Compute(eastwardTrack(3, 0.001), profile.Floats([]float64{100, 110, 120}), DefaultConfig())
	data, err = json.Marshal(m)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.NotNil(t, decoded["slope_avg"])
	assert.Len(t, decoded["slope_histogram"], 11)
	bucket := decoded["slope_histogram"].([]any)[0].(map[string]any)
	assert.Contains(t, bucket, "bucket_low")
	assert.Contains(t, bucket, "bucket_high")
	assert.Contains(t, bucket, "distance_m")
}

func TestAnalyze_Smoothing(t *testing.T) {
	points := eastwardTrack(21, 0.0001)
	elevations := make([]float64, 21)
	elevations[10] = 100

	a, ok := Analyze(points, profile.Floats(elevations), DefaultConfig())
	require.True(t, ok)

	assert.Less(t, a.Smoothed[10], 100.0, "Spike is flattened")
	assert.Greater(t, a.Smoothed[10], 0.0)
	assert.Greater(t, a.Smoothed[9], 0.0, "Neighbours pick up part of the spike")
	assert.InDelta(t, a.Smoothed[9], a.Smoothed[11], 1e-9, "Weights are symmetric")
	assert.Zero(t, a.Smoothed[0], "Points beyond the window are untouched")

	cfg := DefaultConfig()
	cfg.SmoothingHalfWindowM = 0
	a, ok = Analyze(points, profile.Floats(elevations), cfg)
	require.True(t, ok)
	assert.Equal(t, elevations, a.Smoothed)
}

func TestAnalyze_GainLossAndDistances(t *testing.T) {
	points := eastwardTrack(4, 0.001)
	cfg := DefaultConfig()
	cfg.SmoothingHalfWindowM = 0

	a, ok := Analyze(points, profile.Floats([]float64{100, 130, 110, 140}), cfg)
	require.True(t, ok)

	assert.Equal(t, 0.0, a.Distances[0])
	assert.InDelta(t, 111.19, a.Distances[1], 0.01)
	assert.InDelta(t, points.LengthMeters(), a.TotalDistanceM(), 1e-9)
	assert.InDelta(t, 60, a.GainM, 1e-9)
	assert.InDelta(t, 20, a.LossM, 1e-9)
}

func TestCompute_MergesSegmentsAndDropsShortOnes(t *testing.T) {
	// Flat for 19 steps, then a steady 10% climb
	points := eastwardTrack(40, 0.0001)
	step := geo.Distance(points[0], points[1])
	elevations := make([]float64, 40)
	for i := 20; i < 40; i++ {
		elevations[i] = float64(i-19) * 0.1 * step
	}

	cfg := DefaultConfig()
	cfg.SmoothingHalfWindowM = 0
	m := Compute(points, profile.Floats(elevations), cfg)
	require.True(t, m.Computable())

	// Transition points at 2.5%, 5% and 7.5% each form a single-step segment
	// shorter than the minimum length
	require.Len(t, m.Segments, 2)

	flat := m.Segments[0]
	assert.Equal(t, 0.0, flat.StartDistanceM)
	assert.InDelta(t, 0, flat.SlopePercent, 1e-6)
	assert.InDelta(t, 18*step, flat.LengthM, 1e-6)

	climb := m.Segments[1]
	assert.InDelta(t, 21*step, climb.StartDistanceM, 1e-6)
	assert.InDelta(t, 10, climb.SlopePercent, 1e-6)
	assert.InDelta(t, 18*step, climb.LengthM, 1e-6)
}

func TestCompute_SegmentsEmptyButPresentWhenAllShort(t *testing.T) {
	points := eastwardTrack(2, 0.00005)
	cfg := DefaultConfig()
	cfg.MergeMinLengthM = 1000

	m := Compute(points, profile.Floats([]float64{0, 1}), cfg)
	require.True(t, m.Computable())
	assert.NotNil(t, m.Segments)
	assert.Empty(t, m.Segments)
}
