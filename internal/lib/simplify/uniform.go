package simplify

import (
	"math"

	"github.com/dpup/tracks.ersn.net/server/internal/lib/geo"
)

// UniformSample picks n points at an even stride across points, always keeping
// the first and last. Targets that round to the same source index are
// collapsed, so the result can be slightly shorter than n on dense strides.
func UniformSample(points geo.Sequence, n int) geo.Sequence {
	indices := UniformIndices(len(points), n)
	out := make(geo.Sequence, len(indices))
	for i, idx := range indices {
		out[i] = points[idx]
	}
	return out
}

// UniformIndices returns the source indices UniformSample picks from a
// sequence of length total
func UniformIndices(total, n int) []int {
	if total == 0 {
		return nil
	}
	if n >= total || total <= 2 {
		indices := make([]int, total)
		for i := range indices {
			indices[i] = i
		}
		return indices
	}
	if n < 2 {
		n = 2
	}

	stride := float64(total-1) / float64(n-1)
	indices := make([]int, 0, n)
	for i := 0; i < n; i++ {
		idx := int(math.Round(float64(i) * stride))
		if idx > total-1 {
			idx = total - 1
		}
		if len(indices) > 0 && indices[len(indices)-1] == idx {
			continue
		}
		indices = append(indices, idx)
	}
	return indices
}
