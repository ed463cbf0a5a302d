package ingest

import (
	"time"

	"github.com/pkg/errors"

	"github.com/dpup/tracks.ersn.net/server/internal/lib/geo"
	"github.com/dpup/tracks.ersn.net/server/internal/lib/profile"
)

// ErrNoTracks is returned when a file parses but holds no usable track
var ErrNoTracks = errors.New("no tracks found")

// Track is one recorded activity with its per-point side channels. Every
// non-nil channel has exactly one sample per point.
type Track struct {
	Name        string                     `json:"name"`
	Points      geo.Sequence               `json:"points"`
	Elevation   profile.Channel[float64]   `json:"elevation,omitempty"`
	HeartRate   profile.Channel[float64]   `json:"heart_rate,omitempty"`
	Temperature profile.Channel[float64]   `json:"temperature,omitempty"`
	Times       profile.Channel[time.Time] `json:"times,omitempty"`
}

// Validate checks that every present channel is aligned with the points
func (t Track) Validate() error {
	n := len(t.Points)
	for name, length := range map[string]int{
		"elevation":   len(t.Elevation),
		"heart_rate":  len(t.HeartRate),
		"temperature": len(t.Temperature),
		"times":       len(t.Times),
	} {
		if length != 0 && length != n {
			return errors.Errorf("track %q: %s has %d samples for %d points", t.Name, name, length, n)
		}
	}
	for i, p := range t.Points {
		if !geo.IsValid(p) {
			return errors.Wrapf(geo.ErrInvalidCoordinate, "track %q point %d (%v, %v)", t.Name, i, p.Latitude, p.Longitude)
		}
	}
	return nil
}
