package cli

import (
	"context"
	"encoding/json"
	"io"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/dpup/tracks.ersn.net/server/internal/cache"
	"github.com/dpup/tracks.ersn.net/server/internal/config"
	"github.com/dpup/tracks.ersn.net/server/internal/ingest"
	"github.com/dpup/tracks.ersn.net/server/internal/services"
)

const (
	configFlag  = "config"
	verboseFlag = "verbose"
)

// app holds state shared by every subcommand once flags are parsed
type app struct {
	config  *config.Config
	logger  *zap.SugaredLogger
	render  *services.RenderService
	terrain *services.TerrainService

	// stops background cache cleanup
	cancel context.CancelFunc
}

// NewRootCommand builds the trackctl command tree
func NewRootCommand() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:           "trackctl",
		Short:         "Simplify GPS tracks and compute terrain metrics",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init(cmd)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.cancel != nil {
				a.cancel()
			}
			if a.logger != nil {
				_ = a.logger.Sync()
			}
		},
	}
	root.PersistentFlags().StringP(configFlag, "c", "", "path to YAML config file")
	root.PersistentFlags().BoolP(verboseFlag, "v", false, "enable debug logging")

	root.AddCommand(
		newSimplifyCommand(a),
		newRenderCommand(a),
		newSlopeCommand(a),
		newGapsCommand(a),
	)
	return root
}

func (a *app) init(cmd *cobra.Command) error {
	path, err := cmd.Flags().GetString(configFlag)
	if err != nil {
		return err
	}
	verbose, err := cmd.Flags().GetBool(verboseFlag)
	if err != nil {
		return err
	}

	cfg, err := config.Load(path)
	if err != nil {
		return errors.Wrap(err, "load config")
	}

	logger, err := newLogger(verbose)
	if err != nil {
		return errors.Wrap(err, "create logger")
	}

	store := cache.NewCache(cache.WithLogger(logger))
	ctx, cancel := context.WithCancel(cmd.Context())
	store.StartPeriodicCleanup(ctx, cfg.Cache.CleanupInterval)
	a.cancel = cancel
	metricsCache := cache.NewMetricsCache(store, cfg.Cache.TTL)

	a.config = cfg
	a.logger = logger
	a.render = services.NewRenderService(cfg, logger)
	a.terrain = services.NewTerrainService(cfg, metricsCache, logger)

	logger.Debugw("Configuration loaded", "path", path, "zoom_table", cfg.Simplification.ZoomTable)
	return nil
}

// newLogger writes to stderr so stdout stays machine-readable
func newLogger(verbose bool) (*zap.SugaredLogger, error) {
	var zc zap.Config
	if verbose {
		zc = zap.NewDevelopmentConfig()
	} else {
		zc = zap.NewProductionConfig()
		zc.Level = zap.NewAtomicLevelAt(zapcore.WarnLevel)
	}
	zc.OutputPaths = []string{"stderr"}

	logger, err := zc.Build()
	if err != nil {
		return nil, err
	}
	return logger.Sugar(), nil
}

func (a *app) readTracks(path string) ([]ingest.Track, error) {
	tracks, err := ingest.ReadFile(path)
	if err != nil {
		return nil, err
	}
	a.logger.Debugw("Loaded tracks", "path", path, "tracks", len(tracks))
	return tracks, nil
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return errors.Wrap(enc.Encode(v), "encode output")
}
