package services

import (
	"context"
	"time"

	"github.com/paulmach/orb/geojson"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/dpup/tracks.ersn.net/server/internal/config"
	"github.com/dpup/tracks.ersn.net/server/internal/ingest"
	"github.com/dpup/tracks.ersn.net/server/internal/lib/geo"
	"github.com/dpup/tracks.ersn.net/server/internal/lib/profile"
	"github.com/dpup/tracks.ersn.net/server/internal/lib/segment"
	"github.com/dpup/tracks.ersn.net/server/internal/lib/simplify"
)

// RenderRequest asks for one track prepared for display at a zoom level
type RenderRequest struct {
	Track ingest.Track
	Zoom  float64
	// Empty Mode uses the adaptive single-track controller; overview and
	// detail apply the point budget for that mode.
	Mode simplify.Mode
}

// SegmentStats describes how one gap-free run was simplified
type SegmentStats struct {
	OriginalPoints   int               `json:"original_points"`
	SimplifiedPoints int               `json:"simplified_points"`
	Tolerance        float64           `json:"tolerance_m"`
	Strategy         simplify.Strategy `json:"strategy"`
	Iterations       int               `json:"iterations"`
}

// RenderPayload is a track reduced for display with its side channels
// resampled to match the simplified geometry
type RenderPayload struct {
	Name             string                     `json:"name"`
	Geometry         segment.Geometry           `json:"-"`
	Feature          *geojson.Feature           `json:"feature"`
	EncodedPolylines []string                   `json:"encoded_polylines"`
	Elevation        profile.Channel[float64]   `json:"elevation,omitempty"`
	HeartRate        profile.Channel[float64]   `json:"heart_rate,omitempty"`
	Temperature      profile.Channel[float64]   `json:"temperature,omitempty"`
	Times            profile.Channel[time.Time] `json:"times,omitempty"`
	OriginalPoints   int                        `json:"original_points"`
	SimplifiedPoints int                        `json:"simplified_points"`
	// Tolerance and Strategy are taken from the largest segment
	Tolerance float64           `json:"tolerance_m"`
	Strategy  simplify.Strategy `json:"strategy"`
	Segments  []SegmentStats    `json:"segments"`
	LengthKm  float64           `json:"length_km"`
	Gaps      []segment.GapInfo `json:"gaps"`
}

// RenderService turns raw tracks into rendering payloads
type RenderService struct {
	controller simplify.Controller
	segment    segment.Config
	workers    int
	logger     *zap.SugaredLogger
}

// NewRenderService creates a RenderService. A nil logger disables logging.
func NewRenderService(cfg *config.Config, logger *zap.SugaredLogger) *RenderService {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	workers := cfg.Render.Workers
	if workers < 1 {
		workers = 1
	}
	return &RenderService{
		controller: simplify.NewController(cfg.Simplification),
		segment:    cfg.Segment,
		workers:    workers,
		logger:     logger,
	}
}

// Render splits the track at gaps, simplifies each run and resamples every side
// channel with the same before and after point counts
func (s *RenderService) Render(ctx context.Context, req RenderRequest) (*RenderPayload, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	t := req.Track
	if err := t.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid track")
	}

	start := time.Now()
	sequences := segment.SplitByGap(t.Points, s.segment.GapThresholdMeters)

	simplified := make([]geo.Sequence, len(sequences))
	stats := make([]SegmentStats, len(sequences))
	largest := -1
	for i, seq := range sequences {
		var result simplify.Result
		if req.Mode == "" {
			result = s.controller.Simplify(seq, req.Zoom)
		} else {
			result = s.controller.SimplifyForMode(seq, req.Zoom, req.Mode)
		}
		simplified[i] = result.Points
		stats[i] = SegmentStats{
			OriginalPoints:   len(seq),
			SimplifiedPoints: len(result.Points),
			Tolerance:        result.Params.Tolerance,
			Strategy:         result.Strategy,
			Iterations:       result.Iterations,
		}
		if largest < 0 || len(seq) > stats[largest].OriginalPoints {
			largest = i
		}
	}

	geometry := segment.ToGeometry(simplified)
	originalLen := len(t.Points)
	simplifiedLen := segment.PointCount(simplified)

	payload := &RenderPayload{
		Name:             t.Name,
		Geometry:         geometry,
		EncodedPolylines: make([]string, len(simplified)),
		OriginalPoints:   originalLen,
		SimplifiedPoints: simplifiedLen,
		Segments:         stats,
		LengthKm:         segment.TotalLengthKm(sequences),
		Gaps:             segment.FindGaps(t.Points, t.Times, s.segment),
		Strategy:         simplify.StrategyPassthrough,
	}
	if largest >= 0 {
		payload.Tolerance = stats[largest].Tolerance
		payload.Strategy = stats[largest].Strategy
	}
	for i, seq := range simplified {
		payload.EncodedPolylines[i] = geo.EncodePolyline(seq)
	}
	if t.Elevation != nil {
		payload.Elevation = profile.Resample(t.Elevation, originalLen, simplifiedLen)
	}
	if t.HeartRate != nil {
		payload.HeartRate = profile.Resample(t.HeartRate, originalLen, simplifiedLen)
	}
	if t.Temperature != nil {
		payload.Temperature = profile.Resample(t.Temperature, originalLen, simplifiedLen)
	}
	if t.Times != nil {
		payload.Times = profile.Resample(t.Times, originalLen, simplifiedLen)
	}

	payload.Feature = segment.Feature(geometry, map[string]interface{}{
		"name":              t.Name,
		"original_points":   originalLen,
		"simplified_points": simplifiedLen,
		"length_km":         payload.LengthKm,
	})

	s.logger.Debugw("Rendered track",
		"name", t.Name,
		"zoom", req.Zoom,
		"mode", req.Mode,
		"segments", len(sequences),
		"original_points", originalLen,
		"simplified_points", simplifiedLen,
		"strategy", payload.Strategy,
		"duration", time.Since(start))

	return payload, nil
}

// RenderOverview renders many tracks in overview mode on a bounded worker
// pool. Results keep the input order. Cancellation is checked between tracks.
func (s *RenderService) RenderOverview(ctx context.Context, tracks []ingest.Track, zoom float64) ([]*RenderPayload, error) {
	payloads := make([]*RenderPayload, len(tracks))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)
	for i := range tracks {
		i := i
		g.Go(func() error {
			payload, err := s.Render(gctx, RenderRequest{
				Track: tracks[i],
				Zoom:  zoom,
				Mode:  simplify.ModeOverview,
			})
			if err != nil {
				return errors.Wrapf(err, "render track %d (%s)", i, tracks[i].Name)
			}
			payloads[i] = payload
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		s.logger.Errorw("Overview render failed", "tracks", len(tracks), "error", err)
		return nil, err
	}

	s.logger.Infow("Rendered overview", "tracks", len(tracks), "zoom", zoom, "workers", s.workers)
	return payloads, nil
}
