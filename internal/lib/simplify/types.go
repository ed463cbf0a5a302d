package simplify

import (
	"math"

	"github.com/pkg/errors"

	"github.com/dpup/tracks.ersn.net/server/internal/lib/geo"
)

// Mode selects how aggressively a caller wants a track reduced
type Mode string

const (
	// ModeOverview fits tracks into a zoom-dependent point budget for list views
	ModeOverview Mode = "overview"
	// ModeDetail leaves tracks untouched unless they are very large
	ModeDetail Mode = "detail"
)

// ParseMode validates a rendering mode string
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeOverview, ModeDetail:
		return Mode(s), nil
	}
	return "", errors.Errorf("unknown rendering mode %q (expected %q or %q)", s, ModeOverview, ModeDetail)
}

// Strategy records which code path produced a simplified result
type Strategy string

const (
	StrategyPassthrough    Strategy = "passthrough"
	StrategyDouglasPeucker Strategy = "douglas_peucker"
	StrategyRefined        Strategy = "refined"
	StrategyUniform        Strategy = "uniform"
)

// Params is computed once per request and discarded afterwards
type Params struct {
	Tolerance float64 `json:"tolerance_m"`
	MinPoints int     `json:"min_points"`
	MaxPoints int     `json:"max_points"`
}

// Result is the outcome of one controller run
type Result struct {
	Points     geo.Sequence `json:"-"`
	Params     Params       `json:"params"`
	Strategy   Strategy     `json:"strategy"`
	Iterations int          `json:"iterations"`
}

// ZoomStep maps every zoom level up to and including MaxZoom to a base tolerance
type ZoomStep struct {
	MaxZoom         float64
	ToleranceMeters float64
}

// ZoomTable is an ascending step function from zoom level to base tolerance
type ZoomTable []ZoomStep

// Tolerance returns the base tolerance in meters for a zoom level
func (t ZoomTable) Tolerance(zoom float64) float64 {
	for _, step := range t {
		if zoom <= step.MaxZoom {
			return step.ToleranceMeters
		}
	}
	if len(t) == 0 {
		return 0
	}
	return t[len(t)-1].ToleranceMeters
}

// FineZoomTable is the canonical six-bucket table used for single-track views
var FineZoomTable = ZoomTable{
	{MaxZoom: 8, ToleranceMeters: 100},
	{MaxZoom: 10, ToleranceMeters: 50},
	{MaxZoom: 12, ToleranceMeters: 25},
	{MaxZoom: 14, ToleranceMeters: 10},
	{MaxZoom: 16, ToleranceMeters: 5},
	{MaxZoom: math.Inf(1), ToleranceMeters: 2},
}

// CoarseZoomTable is the five-bucket table used for multi-track overviews
var CoarseZoomTable = ZoomTable{
	{MaxZoom: 8, ToleranceMeters: 100},
	{MaxZoom: 11, ToleranceMeters: 40},
	{MaxZoom: 13, ToleranceMeters: 15},
	{MaxZoom: 15, ToleranceMeters: 5},
	{MaxZoom: math.Inf(1), ToleranceMeters: 2},
}

// Table names accepted in configuration
const (
	TableFine   = "fine"
	TableCoarse = "coarse"
)

// Config holds the retention policy for the adaptive controller
type Config struct {
	// Large tracks keep at least max(MinRetentionPoints, round(n*MinRetentionRatio)) points
	MinRetentionRatio  float64 `koanf:"min_retention_ratio"`
	MinRetentionPoints int     `koanf:"min_retention_points"`
	// Upper bound on tolerance halving/doubling rounds
	MaxRefinementIterations int `koanf:"max_refinement_iterations"`
	// "fine" or "coarse"
	ZoomTable string `koanf:"zoom_table"`
	// Detail mode only simplifies tracks above this many points
	DetailThreshold int `koanf:"detail_threshold"`
}

// DefaultConfig returns the default retention policy
func DefaultConfig() Config {
	return Config{
		MinRetentionRatio:       0.01,
		MinRetentionPoints:      500,
		MaxRefinementIterations: 4,
		ZoomTable:               TableFine,
		DetailThreshold:         50000,
	}
}

// Controller maps zoom level, rendering mode and track size to simplification
// parameters and runs the simplifier under retention guarantees.
type Controller interface {
	// Plan computes adaptive parameters for a single-track detail view
	Plan(pointCount int, zoom float64) Params

	// Simplify reduces points with the adaptive tolerance and retention guards
	Simplify(points geo.Sequence, zoom float64) Result

	// Budget computes point-budget parameters for a rendering mode
	Budget(pointCount int, zoom float64, mode Mode) Params

	// SimplifyForMode reduces points to fit the mode's point budget
	SimplifyForMode(points geo.Sequence, zoom float64, mode Mode) Result
}

// NewController is implemented in controller.go
