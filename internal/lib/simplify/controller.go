package simplify

import (
	"math"

	"github.com/dpup/tracks.ersn.net/server/internal/lib/geo"
)

const (
	// Tracks at or below this size are never simplified
	bypassThreshold = 1000
	// Upper bounds of the moderate and large count buckets
	moderateTrackMax = 20000
	largeTrackMin    = moderateTrackMax + 1
	// Refinement stops before tolerance falls below this share of its start value
	minToleranceFraction = 0.1
)

// controller implements the Controller interface
type controller struct {
	config Config
	table  ZoomTable
}

// NewController creates a Controller with the given retention policy.
// Zero-valued fields fall back to DefaultConfig values.
func NewController(cfg Config) Controller {
	defaults := DefaultConfig()
	if cfg.MinRetentionRatio <= 0 {
		cfg.MinRetentionRatio = defaults.MinRetentionRatio
	}
	if cfg.MinRetentionPoints <= 0 {
		cfg.MinRetentionPoints = defaults.MinRetentionPoints
	}
	if cfg.MaxRefinementIterations < 0 {
		cfg.MaxRefinementIterations = defaults.MaxRefinementIterations
	}
	if cfg.DetailThreshold <= 0 {
		cfg.DetailThreshold = defaults.DetailThreshold
	}

	table := FineZoomTable
	if cfg.ZoomTable == TableCoarse {
		table = CoarseZoomTable
	}

	return &controller{config: cfg, table: table}
}

// countScale returns the tolerance multiplier for a track size; 0 means bypass
func countScale(n int) float64 {
	switch {
	case n <= bypassThreshold:
		return 0
	case n <= 5000:
		return 0.5
	case n <= moderateTrackMax:
		return 1.0
	case n <= 50000:
		return 1.5
	default:
		return 2.0
	}
}

// minRequired is the retention floor for large tracks, never more than n
func (c *controller) minRequired(n int) int {
	required := int(math.Round(float64(n) * c.config.MinRetentionRatio))
	if required < c.config.MinRetentionPoints {
		required = c.config.MinRetentionPoints
	}
	if required > n {
		required = n
	}
	return required
}

// Plan computes adaptive parameters for a track of pointCount points
func (c *controller) Plan(pointCount int, zoom float64) Params {
	scale := countScale(pointCount)
	if scale == 0 {
		return Params{Tolerance: 0, MinPoints: pointCount, MaxPoints: pointCount}
	}

	params := Params{
		Tolerance: c.table.Tolerance(zoom) * scale,
		MinPoints: 2,
		MaxPoints: pointCount,
	}
	switch {
	case pointCount >= largeTrackMin:
		params.MinPoints = c.minRequired(pointCount)
	case pointCount > 5000:
		params.MinPoints = pointCount/3 + 1
	}
	return params
}

// Simplify runs Douglas-Peucker with the planned tolerance and enforces the
// retention guard for the track's size bucket
func (c *controller) Simplify(points geo.Sequence, zoom float64) Result {
	n := len(points)
	params := c.Plan(n, zoom)
	if params.Tolerance <= 0 || n <= 2 {
		return Result{Points: points.Clone(), Params: params, Strategy: StrategyPassthrough}
	}

	result := Result{
		Points:   DouglasPeucker(points, params.Tolerance),
		Params:   params,
		Strategy: StrategyDouglasPeucker,
	}

	if n >= largeTrackMin {
		return c.refine(points, result)
	}

	if len(result.Points) < params.MinPoints {
		result.Points = UniformSample(points, params.MinPoints)
		result.Strategy = StrategyUniform
	}
	return result
}

// refine halves the tolerance until the large-track floor is met, the
// iteration cap is reached, or the tolerance would become too fine
func (c *controller) refine(points geo.Sequence, result Result) Result {
	base := result.Params.Tolerance
	tolerance := base

	for result.Iterations < c.config.MaxRefinementIterations && len(result.Points) < result.Params.MinPoints {
		next := tolerance / 2
		if next < base*minToleranceFraction {
			break
		}
		tolerance = next
		result.Points = DouglasPeucker(points, tolerance)
		result.Params.Tolerance = tolerance
		result.Strategy = StrategyRefined
		result.Iterations++
	}

	if len(result.Points) < result.Params.MinPoints {
		result.Points = UniformSample(points, result.Params.MinPoints)
		result.Strategy = StrategyUniform
	}
	return result
}

// overviewBudget is the maximum point count for a track in overview listings
func overviewBudget(zoom float64) int {
	switch {
	case zoom <= 5:
		return 250
	case zoom <= 8:
		return 600
	case zoom <= 11:
		return 1500
	case zoom <= 14:
		return 4000
	default:
		return 10000
	}
}

// Budget computes the point budget for a rendering mode. A zero tolerance
// means the track already fits and passes through.
func (c *controller) Budget(pointCount int, zoom float64, mode Mode) Params {
	budget := overviewBudget(zoom)
	if mode == ModeDetail {
		budget = c.config.DetailThreshold
	}
	if pointCount <= budget {
		return Params{Tolerance: 0, MinPoints: pointCount, MaxPoints: pointCount}
	}
	return Params{
		Tolerance: CoarseZoomTable.Tolerance(zoom),
		MinPoints: 2,
		MaxPoints: budget,
	}
}

// SimplifyForMode coarsens the tolerance until the result fits the budget,
// falling back to uniform sampling down to exactly the budget
func (c *controller) SimplifyForMode(points geo.Sequence, zoom float64, mode Mode) Result {
	params := c.Budget(len(points), zoom, mode)
	if params.Tolerance <= 0 || len(points) <= 2 {
		return Result{Points: points.Clone(), Params: params, Strategy: StrategyPassthrough}
	}

	result := Result{
		Points:   DouglasPeucker(points, params.Tolerance),
		Params:   params,
		Strategy: StrategyDouglasPeucker,
	}

	tolerance := params.Tolerance
	for result.Iterations < c.config.MaxRefinementIterations && len(result.Points) > params.MaxPoints {
		tolerance *= 2
		result.Points = DouglasPeucker(points, tolerance)
		result.Params.Tolerance = tolerance
		result.Strategy = StrategyRefined
		result.Iterations++
	}

	if len(result.Points) > params.MaxPoints {
		result.Points = UniformSample(points, params.MaxPoints)
		result.Strategy = StrategyUniform
	}
	return result
}
