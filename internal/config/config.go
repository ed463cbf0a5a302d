package config

import (
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/pkg/errors"

	"github.com/dpup/tracks.ersn.net/server/internal/lib/segment"
	"github.com/dpup/tracks.ersn.net/server/internal/lib/simplify"
	"github.com/dpup/tracks.ersn.net/server/internal/lib/slope"
)

// EnvPrefix is stripped from environment variables before they are mapped to
// config keys. A double underscore separates nesting levels, so
// TRACKS_SLOPE__SLOPE_HALF_WINDOW_M sets slope.slope_half_window_m.
const EnvPrefix = "TRACKS_"

// Config represents the complete engine configuration
type Config struct {
	Simplification simplify.Config `koanf:"simplification"`
	Slope          slope.Config    `koanf:"slope"`
	Segment        segment.Config  `koanf:"segment"`
	Render         RenderConfig    `koanf:"render"`
	Cache          CacheConfig     `koanf:"cache"`
}

// RenderConfig holds rendering defaults for the services layer
type RenderConfig struct {
	// Size of the worker pool used for multi-track overviews
	Workers     int     `koanf:"workers"`
	DefaultZoom float64 `koanf:"default_zoom"`
}

// CacheConfig holds slope metrics cache settings
type CacheConfig struct {
	TTL             time.Duration `koanf:"ttl"`
	CleanupInterval time.Duration `koanf:"cleanup_interval"`
}

// DefaultConfig returns a default configuration
func DefaultConfig() *Config {
	return &Config{
		Simplification: simplify.DefaultConfig(),
		Slope:          slope.DefaultConfig(),
		Segment:        segment.DefaultConfig(),
		Render: RenderConfig{
			Workers:     4,
			DefaultZoom: 12,
		},
		Cache: CacheConfig{
			TTL:             time.Hour,
			CleanupInterval: 10 * time.Minute,
		},
	}
}

// defaultsMap flattens DefaultConfig into koanf keys
func defaultsMap() map[string]interface{} {
	d := DefaultConfig()
	return map[string]interface{}{
		"simplification.min_retention_ratio":       d.Simplification.MinRetentionRatio,
		"simplification.min_retention_points":      d.Simplification.MinRetentionPoints,
		"simplification.max_refinement_iterations": d.Simplification.MaxRefinementIterations,
		"simplification.zoom_table":                d.Simplification.ZoomTable,
		"simplification.detail_threshold":          d.Simplification.DetailThreshold,
		"slope.smoothing_half_window_m":            d.Slope.SmoothingHalfWindowM,
		"slope.slope_half_window_m":                d.Slope.SlopeHalfWindowM,
		"slope.merge_delta_percent":                d.Slope.MergeDeltaPercent,
		"slope.merge_min_length_m":                 d.Slope.MergeMinLengthM,
		"segment.gap_threshold_meters":             d.Segment.GapThresholdMeters,
		"segment.pause_threshold":                  d.Segment.PauseThreshold.String(),
		"render.workers":                           d.Render.Workers,
		"render.default_zoom":                      d.Render.DefaultZoom,
		"cache.ttl":                                d.Cache.TTL.String(),
		"cache.cleanup_interval":                   d.Cache.CleanupInterval.String(),
	}
}

// envKey maps TRACKS_SLOPE__MERGE_DELTA_PERCENT to slope.merge_delta_percent
func envKey(s string) string {
	key := strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	return strings.ReplaceAll(key, "__", ".")
}

// Load layers defaults, an optional YAML file and TRACKS_ environment
// variables, in that order of precedence. An empty path skips the file; a
// named file that does not exist is an error.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(defaultsMap(), "."), nil); err != nil {
		return nil, errors.Wrap(err, "load defaults")
	}

	if path != "" {
		if _, err := os.Stat(path); err != nil {
			return nil, errors.Wrapf(err, "config file %s", path)
		}
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, errors.Wrapf(err, "parse config file %s", path)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, errors.Wrap(err, "load environment")
	}

	cfg := &Config{}
	if err := k.UnmarshalWithConf("", cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, errors.Wrap(err, "decode config")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects settings the engine cannot run with
func (c *Config) Validate() error {
	s := c.Simplification
	switch {
	case s.MinRetentionRatio <= 0 || s.MinRetentionRatio > 1:
		return errors.Errorf("simplification.min_retention_ratio must be in (0, 1], got %v", s.MinRetentionRatio)
	case s.MinRetentionPoints < 2:
		return errors.Errorf("simplification.min_retention_points must be at least 2, got %d", s.MinRetentionPoints)
	case s.MaxRefinementIterations < 0:
		return errors.Errorf("simplification.max_refinement_iterations must not be negative, got %d", s.MaxRefinementIterations)
	case s.ZoomTable != simplify.TableFine && s.ZoomTable != simplify.TableCoarse:
		return errors.Errorf("simplification.zoom_table must be %q or %q, got %q", simplify.TableFine, simplify.TableCoarse, s.ZoomTable)
	case s.DetailThreshold < 2:
		return errors.Errorf("simplification.detail_threshold must be at least 2, got %d", s.DetailThreshold)
	}

	sl := c.Slope
	switch {
	case sl.SmoothingHalfWindowM < 0:
		return errors.Errorf("slope.smoothing_half_window_m must not be negative, got %v", sl.SmoothingHalfWindowM)
	case sl.SlopeHalfWindowM < 0:
		return errors.Errorf("slope.slope_half_window_m must not be negative, got %v", sl.SlopeHalfWindowM)
	case sl.MergeDeltaPercent < 0:
		return errors.Errorf("slope.merge_delta_percent must not be negative, got %v", sl.MergeDeltaPercent)
	case sl.MergeMinLengthM < 0:
		return errors.Errorf("slope.merge_min_length_m must not be negative, got %v", sl.MergeMinLengthM)
	}

	if c.Segment.GapThresholdMeters <= 0 {
		return errors.Errorf("segment.gap_threshold_meters must be positive, got %v", c.Segment.GapThresholdMeters)
	}
	if c.Segment.PauseThreshold <= 0 {
		return errors.Errorf("segment.pause_threshold must be positive, got %v", c.Segment.PauseThreshold)
	}

	if c.Render.Workers < 1 {
		return errors.Errorf("render.workers must be at least 1, got %d", c.Render.Workers)
	}
	if c.Render.DefaultZoom < 0 || c.Render.DefaultZoom > 24 {
		return errors.Errorf("render.default_zoom must be in [0, 24], got %v", c.Render.DefaultZoom)
	}

	if c.Cache.TTL <= 0 {
		return errors.Errorf("cache.ttl must be positive, got %v", c.Cache.TTL)
	}
	if c.Cache.CleanupInterval <= 0 {
		return errors.Errorf("cache.cleanup_interval must be positive, got %v", c.Cache.CleanupInterval)
	}
	return nil
}
