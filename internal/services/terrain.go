package services

import (
	"context"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/dpup/tracks.ersn.net/server/internal/cache"
	"github.com/dpup/tracks.ersn.net/server/internal/config"
	"github.com/dpup/tracks.ersn.net/server/internal/ingest"
	"github.com/dpup/tracks.ersn.net/server/internal/lib/segment"
	"github.com/dpup/tracks.ersn.net/server/internal/lib/slope"
)

// TerrainSummary pairs cached slope metrics with whole-track elevation totals
type TerrainSummary struct {
	Name       string        `json:"name"`
	DistanceKm float64       `json:"distance_km"`
	GainM      *float64      `json:"elevation_gain_m"`
	LossM      *float64      `json:"elevation_loss_m"`
	Metrics    slope.Metrics `json:"metrics"`
}

// TerrainService computes slope metrics once per distinct track content
type TerrainService struct {
	cache   *cache.MetricsCache
	config  slope.Config
	segment segment.Config
	logger  *zap.SugaredLogger
}

// NewTerrainService creates a TerrainService backed by metricsCache
func NewTerrainService(cfg *config.Config, metricsCache *cache.MetricsCache, logger *zap.SugaredLogger) *TerrainService {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &TerrainService{
		cache:   metricsCache,
		config:  cfg.Slope,
		segment: cfg.Segment,
		logger:  logger,
	}
}

// Metrics returns slope metrics for the track, computing them on a cache miss.
// A track without usable elevation yields not-computable metrics, not an error.
func (s *TerrainService) Metrics(ctx context.Context, t ingest.Track) (slope.Metrics, error) {
	entry, err := s.analyze(ctx, t)
	return entry.Metrics, err
}

// Summary returns metrics plus moving distance and smoothed elevation gain/loss.
// Distance excludes jumps across gaps; gain and loss are nil when the metrics
// are not computable.
func (s *TerrainService) Summary(ctx context.Context, t ingest.Track) (*TerrainSummary, error) {
	entry, err := s.analyze(ctx, t)
	if err != nil {
		return nil, err
	}

	return &TerrainSummary{
		Name:       t.Name,
		DistanceKm: segment.TotalLengthKm(segment.SplitByGap(t.Points, s.segment.GapThresholdMeters)),
		GainM:      entry.GainM,
		LossM:      entry.LossM,
		Metrics:    entry.Metrics,
	}, nil
}

// CacheStats reports on the analysis cache
func (s *TerrainService) CacheStats() cache.CacheStats {
	return s.cache.Stats()
}

// analyze runs the slope analysis at most once per distinct track content
func (s *TerrainService) analyze(ctx context.Context, t ingest.Track) (cache.TerrainEntry, error) {
	if err := ctx.Err(); err != nil {
		return cache.TerrainEntry{}, err
	}

	hash := cache.ContentHash(t.Points, t.Elevation, s.config)
	entry, found, err := s.cache.GetTerrain(hash)
	if err != nil {
		s.logger.Errorw("Terrain cache read failed", "track", t.Name, "error", err)
	}
	if found {
		s.logger.Debugw("Terrain cache hit", "track", t.Name, "hash", hash)
		return entry, nil
	}

	entry = cache.TerrainEntry{}
	if analysis, ok := slope.Analyze(t.Points, t.Elevation, s.config); ok {
		gain, loss := analysis.GainM, analysis.LossM
		entry.Metrics = slope.Summarize(analysis, s.config)
		entry.GainM = &gain
		entry.LossM = &loss
	} else {
		s.logger.Infow("Slope metrics not computable",
			"track", t.Name,
			"points", len(t.Points),
			"elevations", t.Elevation.ValidCount())
	}

	if err := s.cache.SetTerrain(hash, entry); err != nil {
		return entry, errors.Wrap(err, "cache terrain analysis")
	}
	return entry, nil
}
