package simplify

import (
	"github.com/dpup/tracks.ersn.net/server/internal/lib/geo"
)

type window struct {
	start, end int
}

// DouglasPeucker reduces points to the subset needed to stay within tolerance
// meters of the original polyline, measuring geodesic cross-track distance.
//
// Sequences of two or fewer points and non-positive tolerances return a copy of
// the input. The work stack replaces recursion so very large tracks cannot
// exhaust the goroutine stack; split selection and output order match the
// recursive formulation exactly.
func DouglasPeucker(points geo.Sequence, tolerance float64) geo.Sequence {
	keep := douglasPeuckerMask(points, tolerance)
	if keep == nil {
		return points.Clone()
	}

	out := make(geo.Sequence, 0, countKept(keep))
	for i, k := range keep {
		if k {
			out = append(out, points[i])
		}
	}
	return out
}

// douglasPeuckerMask returns nil when every point is kept
func douglasPeuckerMask(points geo.Sequence, tolerance float64) []bool {
	n := len(points)
	if n <= 2 || tolerance <= 0 {
		return nil
	}

	keep := make([]bool, n)
	keep[0] = true
	keep[n-1] = true

	stack := []window{{0, n - 1}}
	for len(stack) > 0 {
		w := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if w.end-w.start < 2 {
			continue
		}

		maxDistance := 0.0
		index := w.start
		for i := w.start + 1; i < w.end; i++ {
			d := geo.CrossTrackDistance(points[i], points[w.start], points[w.end])
			if d > maxDistance {
				maxDistance = d
				index = i
			}
		}

		if maxDistance > tolerance {
			keep[index] = true
			stack = append(stack, window{index, w.end}, window{w.start, index})
		}
	}
	return keep
}

func countKept(keep []bool) int {
	n := 0
	for _, k := range keep {
		if k {
			n++
		}
	}
	return n
}
