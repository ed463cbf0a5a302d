package cli

import (
	"fmt"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/dpup/tracks.ersn.net/server/internal/lib/segment"
	"github.com/dpup/tracks.ersn.net/server/internal/lib/simplify"
	"github.com/dpup/tracks.ersn.net/server/internal/services"
)

// Output formats accepted by simplify
const (
	FormatGeoJSON  = "geojson"
	FormatGeometry = "geometry"
	FormatKML      = "kml"
	FormatPolyline = "polyline"
)

// renderFlags are shared by simplify and render
type renderFlags struct {
	zoom float64
	mode string
}

func (f *renderFlags) register(cmd *cobra.Command) {
	cmd.Flags().Float64VarP(&f.zoom, "zoom", "z", 0, "map zoom level (default from config)")
	cmd.Flags().StringVarP(&f.mode, "mode", "m", "", "point budget mode: overview or detail (default adaptive)")
}

func (f *renderFlags) resolve(cmd *cobra.Command, a *app) (float64, simplify.Mode, error) {
	zoom := a.config.Render.DefaultZoom
	if cmd.Flags().Changed("zoom") {
		zoom = f.zoom
	}
	if f.mode == "" {
		return zoom, "", nil
	}
	mode, err := simplify.ParseMode(f.mode)
	return zoom, mode, err
}

func newSimplifyCommand(a *app) *cobra.Command {
	var flags renderFlags
	var format string
	var trackIndex int

	cmd := &cobra.Command{
		Use:   "simplify <file.gpx|file.geojson>",
		Short: "Simplify one track and print its geometry",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			zoom, mode, err := flags.resolve(cmd, a)
			if err != nil {
				return err
			}
			tracks, err := a.readTracks(args[0])
			if err != nil {
				return err
			}
			if trackIndex < 0 || trackIndex >= len(tracks) {
				return errors.Errorf("track index %d out of range (file has %d)", trackIndex, len(tracks))
			}

			payload, err := a.render.Render(cmd.Context(), services.RenderRequest{
				Track: tracks[trackIndex],
				Zoom:  zoom,
				Mode:  mode,
			})
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			switch format {
			case FormatGeoJSON:
				return writeJSON(out, payload.Feature)
			case FormatGeometry:
				data, err := segment.MarshalGeoJSON(payload.Geometry)
				if err != nil {
					return err
				}
				_, err = fmt.Fprintln(out, string(data))
				return errors.Wrap(err, "write geometry")
			case FormatKML:
				return segment.WriteKML(out, payload.Name, payload.Geometry)
			case FormatPolyline:
				for _, line := range payload.EncodedPolylines {
					if _, err := fmt.Fprintln(out, line); err != nil {
						return errors.Wrap(err, "write polyline")
					}
				}
				return nil
			default:
				return errors.Errorf("unknown format %q (expected %s, %s, %s or %s)", format, FormatGeoJSON, FormatGeometry, FormatKML, FormatPolyline)
			}
		},
	}
	flags.register(cmd)
	cmd.Flags().StringVarP(&format, "format", "f", FormatGeoJSON, "output format: geojson, geometry, kml or polyline")
	cmd.Flags().IntVarP(&trackIndex, "track", "t", 0, "index of the track to simplify")
	return cmd
}

func newRenderCommand(a *app) *cobra.Command {
	var flags renderFlags

	cmd := &cobra.Command{
		Use:   "render <file.gpx|file.geojson>",
		Short: "Print the full rendering payload for every track",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			zoom, mode, err := flags.resolve(cmd, a)
			if err != nil {
				return err
			}
			tracks, err := a.readTracks(args[0])
			if err != nil {
				return err
			}

			if mode == simplify.ModeOverview {
				payloads, err := a.render.RenderOverview(cmd.Context(), tracks, zoom)
				if err != nil {
					return err
				}
				return writeJSON(cmd.OutOrStdout(), payloads)
			}

			payloads := make([]*services.RenderPayload, 0, len(tracks))
			for _, t := range tracks {
				payload, err := a.render.Render(cmd.Context(), services.RenderRequest{Track: t, Zoom: zoom, Mode: mode})
				if err != nil {
					return err
				}
				payloads = append(payloads, payload)
			}
			return writeJSON(cmd.OutOrStdout(), payloads)
		},
	}
	flags.register(cmd)
	return cmd
}

func newSlopeCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "slope <file.gpx>",
		Short: "Print slope metrics and elevation totals for every track",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tracks, err := a.readTracks(args[0])
			if err != nil {
				return err
			}

			summaries := make([]*services.TerrainSummary, 0, len(tracks))
			for _, t := range tracks {
				summary, err := a.terrain.Summary(cmd.Context(), t)
				if err != nil {
					return err
				}
				summaries = append(summaries, summary)
			}
			a.logger.Debugw("Terrain cache", "stats", a.terrain.CacheStats())
			return writeJSON(cmd.OutOrStdout(), summaries)
		},
	}
}

type trackGaps struct {
	Name string            `json:"name"`
	Gaps []segment.GapInfo `json:"gaps"`
}

func newGapsCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "gaps <file.gpx>",
		Short: "List recording gaps and pauses for every track",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tracks, err := a.readTracks(args[0])
			if err != nil {
				return err
			}

			result := make([]trackGaps, 0, len(tracks))
			for _, t := range tracks {
				gaps := segment.FindGaps(t.Points, t.Times, a.config.Segment)
				if gaps == nil {
					gaps = []segment.GapInfo{}
				}
				result = append(result, trackGaps{Name: t.Name, Gaps: gaps})
			}
			return writeJSON(cmd.OutOrStdout(), result)
		},
	}
}
