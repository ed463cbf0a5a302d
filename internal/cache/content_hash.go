package cache

import (
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"math"

	"github.com/dpup/tracks.ersn.net/server/internal/lib/geo"
	"github.com/dpup/tracks.ersn.net/server/internal/lib/profile"
	"github.com/dpup/tracks.ersn.net/server/internal/lib/slope"
)

// ContentHash identifies a track's terrain inputs. Two tracks with the same
// coordinates, elevations and slope settings hash identically regardless of
// where they were loaded from.
func ContentHash(points geo.Sequence, elevations profile.Channel[float64], cfg slope.Config) string {
	h := sha256.New()
	buf := make([]byte, 0, 64)

	putFloat := func(f float64) {
		buf = binary.LittleEndian.AppendUint64(buf, math.Float64bits(f))
	}

	buf = binary.LittleEndian.AppendUint64(buf, uint64(len(points)))
	h.Write(buf)
	for _, p := range points {
		buf = buf[:0]
		putFloat(p.Latitude)
		putFloat(p.Longitude)
		h.Write(buf)
	}

	buf = binary.LittleEndian.AppendUint64(buf[:0], uint64(len(elevations)))
	h.Write(buf)
	for _, e := range elevations {
		buf = buf[:0]
		if e.Valid {
			buf = append(buf, 1)
			putFloat(e.V)
		} else {
			buf = append(buf, 0)
		}
		h.Write(buf)
	}

	buf = buf[:0]
	putFloat(cfg.SmoothingHalfWindowM)
	putFloat(cfg.SlopeHalfWindowM)
	putFloat(cfg.MergeDeltaPercent)
	putFloat(cfg.MergeMinLengthM)
	h.Write(buf)

	return fmt.Sprintf("%x", h.Sum(nil))
}
