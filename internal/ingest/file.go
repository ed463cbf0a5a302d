package ingest

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
)

// ReadFile loads tracks from a .gpx, .geojson or .json file
func ReadFile(path string) ([]Track, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "open track file")
	}
	defer f.Close()

	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".gpx":
		tracks, err := ReadGPX(f)
		return tracks, errors.Wrapf(err, "%s", path)
	case ".geojson", ".json":
		name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
		t, err := ReadGeoJSON(f, name)
		if err != nil {
			return nil, errors.Wrapf(err, "%s", path)
		}
		return []Track{t}, nil
	default:
		return nil, errors.Errorf("unsupported track file extension %q", ext)
	}
}
