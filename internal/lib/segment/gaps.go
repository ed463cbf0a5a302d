package segment

import (
	"time"

	"github.com/dpup/tracks.ersn.net/server/internal/lib/geo"
	"github.com/dpup/tracks.ersn.net/server/internal/lib/profile"
)

// FindGaps walks the raw points once and reports every discontinuity: spatial
// jumps above cfg.GapThresholdMeters (segment boundaries) and, when times is
// aligned with points, timestamp gaps above cfg.PauseThreshold.
// A jump that is also a long pause is reported once, as a segment gap.
func FindGaps(points geo.Sequence, times profile.Channel[time.Time], cfg Config) []GapInfo {
	threshold := cfg.GapThresholdMeters
	if threshold <= 0 {
		threshold = DefaultGapThresholdMeters
	}
	useTimes := len(times) == len(points) && cfg.PauseThreshold > 0

	var gaps []GapInfo
	for i := 1; i < len(points); i++ {
		distance := geo.Distance(points[i-1], points[i])

		var duration *float64
		if useTimes && times[i-1].Valid && times[i].Valid {
			seconds := times[i].V.Sub(times[i-1].V).Seconds()
			duration = &seconds
		}

		kind := GapKind("")
		switch {
		case distance > threshold:
			kind = GapSegment
		case duration != nil && *duration > cfg.PauseThreshold.Seconds():
			kind = GapPause
		default:
			continue
		}

		gaps = append(gaps, GapInfo{
			Kind:            kind,
			Start:           points[i-1],
			End:             points[i],
			StartIndex:      i - 1,
			EndIndex:        i,
			DistanceMeters:  distance,
			DurationSeconds: duration,
		})
	}
	return gaps
}
