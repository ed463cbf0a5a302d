package slope

import (
	"math"

	"github.com/dpup/tracks.ersn.net/server/internal/lib/geo"
	"github.com/dpup/tracks.ersn.net/server/internal/lib/profile"
)

// Compute derives slope statistics from a track and its elevation profile.
//
// Any unmet precondition yields the zero Metrics rather than an error: fewer
// than two points, an elevation profile whose length differs from the point
// count, a single missing elevation anywhere, or a track with no length.
func Compute(points geo.Sequence, elevations profile.Channel[float64], cfg Config) Metrics {
	analysis, ok := Analyze(points, elevations, cfg)
	if !ok {
		return Metrics{}
	}
	return Summarize(analysis, cfg)
}

// Analyze computes the per-point distance, smoothed elevation and slope arrays.
// It returns false under the same preconditions as Compute.
func Analyze(points geo.Sequence, elevations profile.Channel[float64], cfg Config) (Analysis, bool) {
	n := len(points)
	if n < 2 || len(elevations) != n || elevations.ValidCount() < 2 || !elevations.Complete() {
		return Analysis{}, false
	}

	distances := make([]float64, n)
	cumulative := make([]float64, n)
	for i := 1; i < n; i++ {
		distances[i] = geo.Distance(points[i-1], points[i])
		cumulative[i] = cumulative[i-1] + distances[i]
	}
	if cumulative[n-1] <= 0 {
		return Analysis{}, false
	}

	raw := make([]float64, n)
	for i, e := range elevations {
		raw[i] = e.V
	}
	smoothed := smooth(cumulative, raw, cfg.SmoothingHalfWindowM)

	a := Analysis{
		Distances:  distances,
		Cumulative: cumulative,
		Smoothed:   smoothed,
		Slopes:     windowedSlopes(cumulative, smoothed, cfg.SlopeHalfWindowM),
	}
	for i := 1; i < n; i++ {
		if delta := smoothed[i] - smoothed[i-1]; delta > 0 {
			a.GainM += delta
		} else {
			a.LossM -= delta
		}
	}
	return a, true
}

// smooth averages each elevation with its neighbours within halfWindow meters,
// weighting each by 1 - offset/halfWindow
func smooth(cumulative, elevations []float64, halfWindow float64) []float64 {
	n := len(elevations)
	out := make([]float64, n)
	if halfWindow <= 0 {
		copy(out, elevations)
		return out
	}

	lo := 0
	for i := 0; i < n; i++ {
		center := cumulative[i]
		for cumulative[lo] < center-halfWindow {
			lo++
		}

		sum, weights := 0.0, 0.0
		for j := lo; j < n && cumulative[j] <= center+halfWindow; j++ {
			w := 1 - math.Abs(cumulative[j]-center)/halfWindow
			if w <= 0 {
				continue
			}
			sum += elevations[j] * w
			weights += w
		}

		// The point itself always carries weight 1
		out[i] = sum / weights
	}
	return out
}

// windowedSlopes measures the grade in percent across ±halfWindow meters of
// each point. When no other point lies in the window the immediate neighbours
// are used, clamped at the track ends.
func windowedSlopes(cumulative, elevations []float64, halfWindow float64) []float64 {
	n := len(elevations)
	slopes := make([]float64, n)

	lo, hi := 0, 0
	for i := 0; i < n; i++ {
		center := cumulative[i]
		for cumulative[lo] < center-halfWindow && lo < i {
			lo++
		}
		if hi < i {
			hi = i
		}
		for hi+1 < n && cumulative[hi+1] <= center+halfWindow {
			hi++
		}

		start, end := lo, hi
		if start == end {
			start = max(i-1, 0)
			end = min(i+1, n-1)
		}

		run := cumulative[end] - cumulative[start]
		if run > 0 {
			slopes[i] = (elevations[end] - elevations[start]) / run * 100
		}
	}
	return slopes
}

// Summarize reduces an analysis to slope metrics. Compute(p, e, cfg) equals
// Summarize of Analyze(p, e, cfg) whenever Analyze succeeds.
func Summarize(a Analysis, cfg Config) Metrics {
	minSlope, maxSlope := math.Inf(1), math.Inf(-1)
	weighted, total := 0.0, 0.0
	for i, s := range a.Slopes {
		minSlope = math.Min(minSlope, s)
		maxSlope = math.Max(maxSlope, s)
		weighted += s * a.Distances[i]
		total += a.Distances[i]
	}
	if total <= 0 {
		return Metrics{}
	}
	avg := weighted / total

	return Metrics{
		Min:       &minSlope,
		Max:       &maxSlope,
		Avg:       &avg,
		Histogram: histogram(a.Slopes, a.Distances),
		Segments:  mergeSegments(a.Slopes, a.Cumulative, cfg),
	}
}

// histogram accumulates each sample's distance into the bucket holding its
// slope. Slopes outside the outer boundaries are not counted.
func histogram(slopes, distances []float64) []Bucket {
	buckets := make([]Bucket, len(BucketBoundaries)-1)
	for i := range buckets {
		buckets[i].Low = BucketBoundaries[i]
		buckets[i].High = BucketBoundaries[i+1]
	}
	for i, s := range slopes {
		if idx := bucketIndex(s); idx >= 0 {
			buckets[idx].DistanceM += distances[i]
		}
	}
	return buckets
}

func bucketIndex(slope float64) int {
	for i := 0; i < len(BucketBoundaries)-1; i++ {
		if slope >= BucketBoundaries[i] && slope < BucketBoundaries[i+1] {
			return i
		}
	}
	return -1
}

// mergeSegments groups consecutive points whose slope stays within the merge
// delta of the group's first slope. A group starting at point s and broken at
// point e covers cumulative[s]..cumulative[e], so emitted segments tile the
// track except where short ones are dropped.
func mergeSegments(slopes, cumulative []float64, cfg Config) []Segment {
	segments := []Segment{}
	n := len(slopes)

	emit := func(start, end int) {
		length := cumulative[end] - cumulative[start]
		if length < cfg.MergeMinLengthM {
			return
		}
		representative := slopes[start]
		if length > 0 {
			weighted := 0.0
			for j := start; j < end; j++ {
				weighted += slopes[j] * (cumulative[j+1] - cumulative[j])
			}
			representative = weighted / length
		}
		segments = append(segments, Segment{
			StartDistanceM: cumulative[start],
			SlopePercent:   representative,
			LengthM:        length,
		})
	}

	start := 0
	for i := 1; i < n; i++ {
		if math.Abs(slopes[i]-slopes[start]) > cfg.MergeDeltaPercent {
			emit(start, i)
			start = i
		}
	}
	emit(start, n-1)
	return segments
}
