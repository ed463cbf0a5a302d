package cache

import (
	"fmt"
	"time"

	"github.com/dpup/tracks.ersn.net/server/internal/lib/slope"
)

const terrainSource = "slope_analysis"

// TerrainEntry is the cached outcome of one slope analysis. GainM and LossM
// are nil when the metrics are not computable.
type TerrainEntry struct {
	Metrics slope.Metrics `json:"metrics"`
	GainM   *float64      `json:"gain_m"`
	LossM   *float64      `json:"loss_m"`
}

// MetricsCache stores terrain analysis results in a Cache keyed by content hash
type MetricsCache struct {
	cache *Cache
	ttl   time.Duration
}

// NewMetricsCache wraps cache with a fixed entry lifetime
func NewMetricsCache(cache *Cache, ttl time.Duration) *MetricsCache {
	return &MetricsCache{cache: cache, ttl: ttl}
}

func terrainKey(contentHash string) string {
	return fmt.Sprintf("terrain:%s", contentHash)
}

// SetTerrain caches an analysis result for a content hash. Not-computable
// results are cached too, since recomputing them gives the same answer.
func (m *MetricsCache) SetTerrain(contentHash string, entry TerrainEntry) error {
	return m.cache.Set(terrainKey(contentHash), entry, m.ttl, terrainSource)
}

// GetTerrain retrieves a fresh cached analysis result by content hash
func (m *MetricsCache) GetTerrain(contentHash string) (TerrainEntry, bool, error) {
	var entry TerrainEntry
	found, err := m.cache.Get(terrainKey(contentHash), &entry)
	if err != nil || !found {
		return TerrainEntry{}, false, err
	}
	return entry, true, nil
}

// Stats reports on the underlying cache
func (m *MetricsCache) Stats() CacheStats {
	return m.cache.Stats()
}
