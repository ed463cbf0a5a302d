package profile

import "math"

// SmallTrackThreshold is the point count at or below which tracks are never
// simplified, so their side channels pass through untouched.
const SmallTrackThreshold = 1000

// Resample reduces a side channel recorded against originalLen points so that it
// lines up with a simplified geometry of simplifiedLen points.
//
// Target index i maps to source index round(i*(L-1)/(n-1)). L is originalLen,
// unless the channel's own length disagrees with it, in which case the channel is
// sampled proportionally by position over its actual length. The first and last
// samples are always kept and the result always has simplifiedLen entries.
func Resample[T any](ch Channel[T], originalLen, simplifiedLen int) Channel[T] {
	if simplifiedLen <= 0 {
		return Channel[T]{}
	}

	if len(ch) == simplifiedLen && (originalLen == simplifiedLen || originalLen <= SmallTrackThreshold) {
		return ch
	}

	sourceLen := originalLen
	if len(ch) != originalLen {
		sourceLen = len(ch)
	}

	out := make(Channel[T], simplifiedLen)
	if sourceLen == 0 {
		return out
	}

	if simplifiedLen == 1 {
		out[0] = ch[0]
		return out
	}

	scale := float64(sourceLen-1) / float64(simplifiedLen-1)
	for i := range out {
		src := int(math.Round(float64(i) * scale))
		if src > sourceLen-1 {
			src = sourceLen - 1
		}
		out[i] = ch[src]
	}
	return out
}
